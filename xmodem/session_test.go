package xmodem

import "testing"

func TestCRC128OneBlockText(t *testing.T) {
	recvEnd, sendEnd := newPipePair()

	rcfg := DefaultConfig()
	rcfg.Mode = RoleReceiving
	rcfg.InitialVariant = VariantCRC128
	receiver := NewSession(recvEnd, WithConfig(rcfg))
	sink := &memSink{}
	receiver.Init(nil, sink)

	scfg := DefaultConfig()
	scfg.Mode = RoleSending
	scfg.InitialVariant = VariantCRC128
	sender := NewSession(sendEnd, WithConfig(scfg))
	source := newMemSource([]byte("HELLO\n"))
	sender.Init(source, nil)

	if !drive(sender, receiver, 100) {
		t.Fatal("transfer did not terminate")
	}
	if !sender.Success() || !receiver.Success() {
		t.Fatalf("transfer failed: sender.Err=%v receiver.Err=%v", sender.Err(), receiver.Err())
	}
	if got := rtrimSUB(sink.buf.Bytes()); string(got) != "HELLO\n" {
		t.Errorf("sink = %q, want %q", got, "HELLO\n")
	}
}

func TestDuplicatePacketWrittenOnce(t *testing.T) {
	recvEnd, peer := newPipePair()
	cfg := DefaultConfig()
	cfg.Mode = RoleReceiving
	cfg.InitialVariant = VariantChecksum128
	receiver := NewSession(recvEnd, WithConfig(cfg))
	sink := &memSink{}
	receiver.Init(nil, sink)

	pkt := buildPacket(VariantChecksum128, 1, []byte("first-block-payload"))

	peer.Write(pkt)
	receiver.Parse()
	if receiver.BlockIndex() != 1 {
		t.Fatalf("blockIndex = %d, want 1", receiver.BlockIndex())
	}
	firstWrite := sink.buf.String()

	peer.Write(pkt)
	receiver.Parse()
	if receiver.BlockIndex() != 1 {
		t.Fatalf("blockIndex after duplicate = %d, want still 1", receiver.BlockIndex())
	}
	if sink.buf.String() != firstWrite {
		t.Errorf("duplicate packet written again: got %d bytes, want %d", sink.buf.Len(), len(firstWrite))
	}
}

func TestVariantDowngradeOnRetryExhaustion(t *testing.T) {
	recvEnd, sendEnd := newPipePair()

	rcfg := DefaultConfig()
	rcfg.Mode = RoleReceiving
	rcfg.InitialVariant = VariantCRC128
	receiver := NewSession(recvEnd, WithConfig(rcfg))
	sink := &memSink{}
	receiver.Init(nil, sink)

	downgraded := false
	for i := 0; i < 10 && !downgraded; i++ {
		receiver.OnTimeout()
		downgraded = receiver.Variant() == VariantChecksum128
	}
	if !downgraded {
		t.Fatal("receiver never downgraded to checksum after exhausting its CRC retry budget")
	}
	if receiver.nakMode != nakModeSendNAK || receiver.nakRetriesRemaining != 9 {
		t.Errorf("after downgrade: nakMode=%v retries=%d, want SendNAK/9", receiver.nakMode, receiver.nakRetriesRemaining)
	}

	// Discard the 'C'/NAK bytes the receiver already emitted while nothing was
	// listening on the other end; only the next retry, sent once the sender
	// is actually driving, is the NAK it should react to.
	for {
		if _, ok := sendEnd.ReadByte(); !ok {
			break
		}
	}

	scfg := DefaultConfig()
	scfg.Mode = RoleSending
	scfg.InitialVariant = VariantCRC128
	sender := NewSession(sendEnd, WithConfig(scfg))
	source := newMemSource([]byte("payload data for the downgrade scenario"))
	sender.Init(source, nil)

	receiver.OnTimeout()

	if !drive(sender, receiver, 500) {
		t.Fatal("sender/receiver pair did not terminate")
	}
	if !sender.Success() || !receiver.Success() {
		t.Fatalf("transfer did not succeed: sender.Err=%v receiver.Err=%v", sender.Err(), receiver.Err())
	}
	if sender.Variant() != VariantChecksum128 {
		t.Errorf("sender variant = %v, want checksum after responding to the receiver's NAK", sender.Variant())
	}
}

func TestCancelMidTransfer(t *testing.T) {
	recvEnd, sendEnd := newPipePair()

	rcfg := DefaultConfig()
	rcfg.Mode = RoleReceiving
	rcfg.InitialVariant = VariantChecksum128
	receiver := NewSession(recvEnd, WithConfig(rcfg))
	sink := &memSink{}
	receiver.Init(nil, sink)

	scfg := DefaultConfig()
	scfg.Mode = RoleSending
	scfg.InitialVariant = VariantChecksum128
	sender := NewSession(sendEnd, WithConfig(scfg))
	source := newMemSource(bytesOf('z', 128*5))
	sender.Init(source, nil)

	for i := 0; i < 200 && receiver.BlockIndex() < 3; i++ {
		sender.Parse()
		receiver.Parse()
	}
	if receiver.BlockIndex() < 3 {
		t.Fatal("never reached block 3")
	}

	receiver.Cancel()
	if receiver.Role() != RoleTerminated || receiver.Success() {
		t.Fatal("Cancel did not terminate the session unsuccessfully")
	}
	if receiver.Parse() {
		t.Fatal("Parse must return false once terminated")
	}

	var seen []byte
	for {
		b, ok := sendEnd.ReadByte()
		if !ok {
			break
		}
		seen = append(seen, b)
	}
	want := []byte{CAN, CAN, CAN, CAN, CAN, BS, BS, BS, BS, BS}
	if len(seen) < len(want) || string(seen[len(seen)-len(want):]) != string(want) {
		t.Errorf("cancel sequence observed on the wire = %v, want suffix %v", seen, want)
	}
}

func TestOneKUpgrade(t *testing.T) {
	recvEnd, sendEnd := newPipePair()

	rcfg := DefaultConfig()
	rcfg.Mode = RoleReceiving
	rcfg.InitialVariant = VariantCRC128
	receiver := NewSession(recvEnd, WithConfig(rcfg))
	sink := &memSink{}
	receiver.Init(nil, sink)

	scfg := DefaultConfig()
	scfg.Mode = RoleSending
	scfg.InitialVariant = VariantCRC1024
	sender := NewSession(sendEnd, WithConfig(scfg))
	data := bytesOf('k', 1500)
	source := newMemSource(data)
	sender.Init(source, nil)

	if !drive(sender, receiver, 500) {
		t.Fatal("transfer did not terminate")
	}
	if !sender.Success() || !receiver.Success() {
		t.Fatalf("transfer failed: sender.Err=%v receiver.Err=%v", sender.Err(), receiver.Err())
	}
	if receiver.Variant() != VariantCRC1024 {
		t.Errorf("receiver variant = %v, want CRC1024 after observing an STX header", receiver.Variant())
	}
	if got := rtrimSUB(sink.buf.Bytes()); string(got) != string(data) {
		t.Error("sink contents do not match the original file after a 1K-upgraded transfer")
	}
}

func TestGapCancels(t *testing.T) {
	recvEnd, peer := newPipePair()
	cfg := DefaultConfig()
	cfg.Mode = RoleReceiving
	cfg.InitialVariant = VariantChecksum128
	receiver := NewSession(recvEnd, WithConfig(cfg))
	sink := &memSink{}
	receiver.Init(nil, sink)

	for b := byte(1); b <= 5; b++ {
		peer.Write(buildPacket(VariantChecksum128, b, []byte{b}))
		receiver.Parse()
	}
	if receiver.BlockIndex() != 5 {
		t.Fatalf("blockIndex = %d, want 5", receiver.BlockIndex())
	}

	peer.Write(buildPacket(VariantChecksum128, 7, []byte{7}))
	receiver.Parse()

	if receiver.Role() != RoleTerminated || receiver.Success() {
		t.Fatal("a block-number gap must cancel the transfer")
	}
	xerr, ok := receiver.Err().(*Error)
	if !ok || xerr.Type != ErrGapDetected {
		t.Errorf("Err() = %v, want an ErrGapDetected *Error", receiver.Err())
	}

	var seen []byte
	for {
		b, ok := peer.ReadByte()
		if !ok {
			break
		}
		seen = append(seen, b)
	}
	want := []byte{CAN, CAN, CAN, CAN, CAN, BS, BS, BS, BS, BS}
	if len(seen) < len(want) || string(seen[len(seen)-len(want):]) != string(want) {
		t.Errorf("cancel sequence = %v, want suffix %v", seen, want)
	}
}

func TestZeroByteFileSendsEOTImmediately(t *testing.T) {
	recvEnd, sendEnd := newPipePair()

	rcfg := DefaultConfig()
	rcfg.Mode = RoleReceiving
	rcfg.InitialVariant = VariantChecksum128
	receiver := NewSession(recvEnd, WithConfig(rcfg))
	sink := &memSink{}
	receiver.Init(nil, sink)

	scfg := DefaultConfig()
	scfg.Mode = RoleSending
	scfg.InitialVariant = VariantChecksum128
	sender := NewSession(sendEnd, WithConfig(scfg))
	source := newMemSource(nil)
	sender.Init(source, nil)

	if !drive(sender, receiver, 50) {
		t.Fatal("zero-byte transfer did not terminate")
	}
	if !sender.Success() || !receiver.Success() {
		t.Fatalf("zero-byte transfer failed: sender.Err=%v receiver.Err=%v", sender.Err(), receiver.Err())
	}
	if sink.buf.Len() != 0 {
		t.Errorf("sink got %d bytes, want 0", sink.buf.Len())
	}
}

func TestBlockNumberWrapsOffset(t *testing.T) {
	recvEnd, peer := newPipePair()
	cfg := DefaultConfig()
	cfg.Mode = RoleReceiving
	cfg.InitialVariant = VariantChecksum128
	receiver := NewSession(recvEnd, WithConfig(cfg))
	sink := &memSink{}
	receiver.Init(nil, sink)
	receiver.blockNum = 255 // simulate 255 accepted packets in this window

	peer.Write(buildPacket(VariantChecksum128, 0, []byte("wrap")))
	receiver.Parse()

	if receiver.blockNum != 0 {
		t.Fatalf("blockNum = %d, want wire 0 after wraparound", receiver.blockNum)
	}
	if receiver.blockOffset != 256 {
		t.Fatalf("blockOffset = %d, want 256 after a single wraparound", receiver.blockOffset)
	}
	if receiver.BlockIndex() != 256 {
		t.Errorf("BlockIndex() = %d, want 256", receiver.BlockIndex())
	}
}
