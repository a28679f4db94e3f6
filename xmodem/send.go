package xmodem

import "path/filepath"

// initSend optionally writes the kickoff command and arms the very-long
// timeout while waiting for the receiver's first request (spec.md 4.3.2).
func (s *Session) initSend() {
	if s.config.KickoffCommand != "" && !s.kickoffDone {
		cmd := s.config.KickoffCommand + " " + filepath.Base(s.config.Filename) + "\r"
		s.writeOut([]byte(cmd))
	}
	s.kickoffDone = true
	s.clock.ArmDeadline(s.config.TimeoutVeryLong)
}

// parseSend drives the sending role: finish flushing any partially-written
// packet, otherwise read the receiver's response bytes until a decision is
// reached (ACK/NAK/'C'/CAN), then stage the next packet or resend the
// current one and write it (spec.md 4.3.2).
func (s *Session) parseSend() bool {
	if s.outPtr < s.outLen {
		n, _ := s.writeOut(s.outBuf[s.outPtr:s.outLen])
		s.outPtr += n
		if s.outPtr >= s.outLen {
			s.reportProgress()
		}
		return true
	}

	decided := false
	for {
		b, ok := s.transport.ReadByte()
		if !ok {
			return true
		}
		s.logIn(b)

		switch b {
		case ACK:
			if !s.source.IsOpen() {
				return s.terminate(true)
			}
			if s.sentBlockNum == s.blockNum+1 {
				s.blockNum = s.sentBlockNum
				if s.blockNum == 0 {
					s.blockOffset += 256
				}
				decided = true
			}
		case NAK:
			if s.inInitialWindow() {
				s.variant = s.variant.downgradeToChecksum()
			}
			decided = true
		case CAN:
			s.canCount++
			if s.canCount <= 2 {
				continue
			}
			s.fail(ErrRemoteCancel, "peer sent a cancel sequence")
			return s.terminate(false)
		case reqCRC:
			if s.inInitialWindow() {
				s.variant = s.variant.upgradeToCRC()
				decided = true
			}
		}
		s.canCount = 0
		if decided {
			break
		}
	}

	s.clock.ArmDeadline(s.config.TimeoutVeryLong)

	// A NAK or 'C' could have arrived while we were buffering; consume it
	// rather than reacting to it on the next tick.
	for {
		if _, ok := s.transport.ReadByte(); !ok {
			break
		}
	}

	s.stageOrResend()
	n, _ := s.writeOut(s.outBuf[:s.outLen])
	s.outPtr = n
	if s.outPtr >= s.outLen {
		s.reportProgress()
	}
	return true
}

// inInitialWindow reports whether no data packet has been sent yet, the
// window in which a 'C'/NAK from the receiver selects the check type
// (spec.md 4.3.3) rather than being treated as a retransmit request.
func (s *Session) inInitialWindow() bool {
	return s.blockNum == 0 && s.blockOffset == 0 && s.sentBlockNum == 0
}

// stageOrResend builds the next data packet (or EOT) when the previous one
// has just been acknowledged, or re-arms the already-built packet for
// retransmission otherwise.
func (s *Session) stageOrResend() {
	if s.sentBlockNum != s.blockNum {
		s.outPtr = 0
		return
	}

	next := s.sentBlockNum + 1
	s.sentBlockNum = next
	if n := s.composeDataPacket(next); n == 0 {
		s.source.Close()
		s.composeEOT()
	}
}
