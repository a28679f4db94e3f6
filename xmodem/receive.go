package xmodem

// initReceive sets up the first negotiation byte and retry budget
// (spec.md 4.3.1) and sends it.
func (s *Session) initReceive() {
	if s.variant.IsCRC() {
		s.nakMode = nakModeSendC
		s.nakRetriesRemaining = 3
	} else {
		s.nakMode = nakModeSendNAK
		s.nakRetriesRemaining = 10
	}
	s.sendNak()
}

// sendNak emits the receiver's current negotiation byte (NAK or 'C'),
// decrementing the retry budget first and handling budget exhaustion
// (CRC->checksum fallback, or cancel) exactly as XSendNAK in the TeraTerm
// original.
func (s *Session) sendNak() {
	s.transport.FlushInput()

	s.nakRetriesRemaining--
	if s.nakRetriesRemaining < 0 {
		if s.nakMode == nakModeSendC {
			s.variant = s.variant.downgradeToChecksum()
			s.nakMode = nakModeSendNAK
			s.nakRetriesRemaining = 9
		} else {
			s.fail(ErrRetryExhausted, "no valid packet received within the retry budget")
			s.Cancel()
			return
		}
	}

	var b byte
	var t int64
	if s.nakMode == nakModeSendNAK {
		b = NAK
		if s.blockNum == 0 && s.blockOffset == 0 {
			t = s.config.TimeoutInit
		} else {
			t = s.config.effectiveLong()
		}
	} else {
		b = reqCRC
		t = s.config.TimeoutInitCRC
	}
	s.writeOut([]byte{b})
	s.readState = stateAwaitHeader
	s.clock.ArmDeadline(t)
}

// timeoutReceive is the receiving-role half of OnTimeout: another NAK/'C' is
// emitted and the retry budget decremented.
func (s *Session) timeoutReceive() {
	s.sendNak()
}

// parseReceive drains every byte currently available from the transport,
// running the four-step packet assembly (spec.md 4.2) on each.
func (s *Session) parseReceive() bool {
	for {
		b, ok := s.transport.ReadByte()
		if !ok {
			return true
		}
		s.logIn(b)
		if !s.receiveByte(b) {
			return false
		}
		if s.role == RoleTerminated {
			return false
		}
	}
}

// receiveByte feeds one byte through the AwaitHeader/AwaitBlock/
// AwaitBlockComplement/AwaitData pull state. It returns false when the
// session has just terminated on EOT success, a CAN abort or a gap cancel.
// A cancel from sendNak after the retry budget is spent still returns true;
// parseReceive checks Role() after every byte to catch that case.
func (s *Session) receiveByte(b byte) bool {
	switch s.readState {
	case stateAwaitHeader:
		return s.receiveHeaderByte(b)
	case stateAwaitBlock:
		s.inBuf[1] = b
		s.readState = stateAwaitBlockComplement
		s.armShort()
		return true
	case stateAwaitBlockComplement:
		s.inBuf[2] = b
		if b^s.inBuf[1] == 0xFF {
			s.inPtr = 3
			s.readState = stateAwaitData
			s.armShort()
		} else {
			s.sendNak()
		}
		return true
	case stateAwaitData:
		return s.receiveDataByte(b)
	}
	return true
}

// receiveHeaderByte handles a byte while awaiting the next packet's header
// (SOH/STX/EOT/CAN), or noise. CAN-run counting is reset only by a valid
// header byte, never by noise or by the EOT branch — matching the
// TeraTerm original's control flow exactly (see SPEC_FULL.md).
func (s *Session) receiveHeaderByte(b byte) bool {
	switch b {
	case SOH:
		s.inBuf[0] = b
		s.readState = stateAwaitBlock
		s.variant = s.variant.withHeaderByte(SOH)
		s.armShort()
		s.canCount = 0
		return true
	case STX:
		s.inBuf[0] = b
		s.readState = stateAwaitBlock
		s.variant = s.variant.withHeaderByte(STX)
		s.armShort()
		s.canCount = 0
		return true
	case EOT:
		s.writeOut([]byte{ACK})
		return s.terminate(true)
	case CAN:
		s.canCount++
		if s.canCount >= 3 {
			s.fail(ErrRemoteCancel, "peer sent a cancel sequence")
			return s.terminate(false)
		}
		return true
	default:
		s.transport.FlushInput()
		return true
	}
}

// receiveDataByte accumulates one payload/trailer byte; once the packet is
// fully buffered it is validated and accepted/rejected.
func (s *Session) receiveDataByte(b byte) bool {
	s.inBuf[s.inPtr] = b
	s.inPtr++
	payloadLen := s.variant.PayloadLen()
	checkLen := s.variant.CheckLen()
	remaining := 3 + payloadLen + checkLen - s.inPtr
	if remaining > 0 {
		s.armShort()
		return true
	}

	s.armLong()
	s.readState = stateAwaitHeader
	return s.handlePacketComplete()
}

// handlePacketComplete implements spec.md 4.3.1: spurious block-0 rejection,
// trailer validation, and the d=(blk-block_num) mod 256 acceptance rule.
func (s *Session) handlePacketComplete() bool {
	blk := s.inBuf[1]

	if blk == 0 && s.blockNum == 0 && s.blockOffset == 0 {
		if s.nakMode == nakModeSendC {
			s.nakRetriesRemaining = 3
		} else {
			s.nakRetriesRemaining = 10
		}
		s.sendNak()
		return true
	}

	if !s.validateCheck() {
		s.sendNak()
		return true
	}

	d := byte(blk - s.blockNum)
	if d > 1 {
		s.fail(ErrGapDetected, "block number advanced by more than one")
		s.Cancel()
		return false
	}

	s.writeOut([]byte{ACK})
	s.nakMode = nakModeSendNAK
	s.nakRetriesRemaining = 10

	if d == 0 {
		return true
	}

	s.blockNum = blk
	if s.blockNum == 0 {
		s.blockOffset += 256
	}
	s.writePayload()
	s.reportProgress()
	return true
}
