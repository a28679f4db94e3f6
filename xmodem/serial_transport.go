package xmodem

import (
	"sync"
	"time"

	"go.bug.st/serial"
)

// SerialTransport adapts an RS-232 port (go.bug.st/serial) to the Transport
// interface. The underlying port is opened with a short read timeout so a
// background goroutine can poll it without blocking the caller's ReadByte
// forever, the same pattern madpsy-kiss-tnc-file-transfer's
// SerialKISSConnection uses for its own non-blocking RecvData.
type SerialTransport struct {
	port serial.Port

	mu  sync.Mutex
	buf []byte

	closed chan struct{}
}

// OpenSerialTransport opens portName at baud and starts pumping received
// bytes into an internal buffer.
func OpenSerialTransport(portName string, baud int) (*SerialTransport, error) {
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(50 * time.Millisecond); err != nil {
		port.Close()
		return nil, err
	}
	t := &SerialTransport{port: port, closed: make(chan struct{})}
	go t.pump()
	return t, nil
}

func (t *SerialTransport) pump() {
	chunk := make([]byte, 256)
	for {
		select {
		case <-t.closed:
			return
		default:
		}
		n, err := t.port.Read(chunk)
		if n > 0 {
			t.mu.Lock()
			t.buf = append(t.buf, chunk[:n]...)
			t.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// ReadByte implements Transport: it is non-blocking, returning ok=false when
// nothing has arrived from the pump goroutine yet.
func (t *SerialTransport) ReadByte() (byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.buf) == 0 {
		return 0, false
	}
	b := t.buf[0]
	t.buf = t.buf[1:]
	return b, true
}

// Write implements Transport; go.bug.st/serial writes are already
// best-effort partial writes on the wire, matching the contract directly.
func (t *SerialTransport) Write(p []byte) (int, error) {
	return t.port.Write(p)
}

// FlushInput discards any bytes the pump has buffered but not yet delivered.
func (t *SerialTransport) FlushInput() {
	t.mu.Lock()
	t.buf = t.buf[:0]
	t.mu.Unlock()
}

// Close stops the pump goroutine and closes the underlying port.
func (t *SerialTransport) Close() error {
	close(t.closed)
	return t.port.Close()
}
