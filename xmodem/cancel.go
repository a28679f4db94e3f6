package xmodem

// cancelSequence is five CAN bytes followed by five BS bytes: the
// traditional XMODEM abort trailer, the backspaces clearing any characters
// buffered by a remote shell (spec.md 4.3.4).
var cancelSequence = []byte{CAN, CAN, CAN, CAN, CAN, BS, BS, BS, BS, BS}

// Cancel aborts the transfer: it synchronously writes the CAN x5 BS x5
// sequence, releases the file handle, and moves the session to
// RoleTerminated. Any Session already Terminated ignores Cancel.
func (s *Session) Cancel() {
	if s.role == RoleTerminated {
		return
	}
	s.writeOut(cancelSequence)
	if s.source != nil && s.source.IsOpen() {
		s.source.Close()
	}
	if s.sink != nil {
		s.sink.Close()
	}
	s.terminate(false)
}
