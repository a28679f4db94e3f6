package xmodem

// composeDataPacket fills s.outBuf with a data packet for blockNum, reading
// payload bytes from s.source and padding any residual slots with SUB
// (spec.md 4.2). It reports how many payload bytes were actually read; zero
// means the source is exhausted and the caller should compose an EOT
// instead.
func (s *Session) composeDataPacket(blockNum byte) (read int) {
	payloadLen := s.variant.PayloadLen()
	s.outBuf[0] = s.variant.header()
	s.outBuf[1] = blockNum
	s.outBuf[2] = ^blockNum

	buf := s.outBuf[3 : 3+payloadLen]
	n := 0
	for n < payloadLen {
		m, err := s.source.Read(buf[n:])
		n += m
		if m == 0 || err != nil {
			break
		}
	}
	if n == 0 {
		return 0
	}
	s.byteCount += int64(n)
	for i := n; i < payloadLen; i++ {
		buf[i] = SUB
	}

	check := compute(s.variant, buf)
	trailer := appendCheck(s.variant, s.outBuf[:3+payloadLen], check)
	s.outLen = len(trailer)
	s.outPtr = 0
	return n
}

// composeEOT stages a single EOT byte as the outgoing packet.
func (s *Session) composeEOT() {
	s.outBuf[0] = EOT
	s.outLen = 1
	s.outPtr = 0
}

// validateCheck verifies the trailer of the assembled packet in s.inBuf
// against the payload it carries.
func (s *Session) validateCheck() bool {
	payloadLen := s.variant.PayloadLen()
	checkLen := s.variant.CheckLen()
	payload := s.inBuf[3 : 3+payloadLen]
	got := compute(s.variant, payload)
	if checkLen == 2 {
		return byte(got>>8) == s.inBuf[3+payloadLen] && byte(got) == s.inBuf[3+payloadLen+1]
	}
	return byte(got) == s.inBuf[3+payloadLen]
}

// writePayload delivers the accepted packet's payload to the file sink,
// applying text-mode trailing-SUB trim and CR/LF normalization (spec.md 4.2).
// XMODEM carries no explicit "last block" marker, so in text mode trailing
// SUB padding is trimmed from every block, same as the TeraTerm original (xmodem.c only trims when
// TextFlag is set, unconditionally on every block it writes).
func (s *Session) writePayload() {
	payloadLen := s.variant.PayloadLen()
	payload := s.inBuf[3 : 3+payloadLen]

	c := payloadLen
	if s.textMode {
		for c > 0 && payload[c-1] == SUB {
			c--
		}
	}

	if !s.textMode {
		n, _ := s.sink.Write(payload[:c])
		s.byteCount += int64(n)
		return
	}

	var out [2]byte
	written := int64(0)
	for i := 0; i < c; i++ {
		b := payload[i]
		if b == '\n' && !s.crCarry {
			n, _ := s.sink.Write([]byte{'\r'})
			written += int64(n)
		}
		if s.crCarry && b != '\n' {
			n, _ := s.sink.Write([]byte{'\n'})
			written += int64(n)
		}
		s.crCarry = b == '\r'
		out[0] = b
		n, _ := s.sink.Write(out[:1])
		written += int64(n)
	}
	s.byteCount += written
}
