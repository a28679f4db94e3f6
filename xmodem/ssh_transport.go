package xmodem

import (
	"sync"

	"golang.org/x/crypto/ssh"
)

// SSHTransport adapts an SSH exec channel to Transport, so a kickoff command
// (e.g. "rx -X /tmp/upload") can be run on a remote host and driven exactly
// like a local serial link. Adapted from zmodem/ssh.go's SSHSession/sshReader
// pair, collapsed down to the single Transport contract this engine needs.
type SSHTransport struct {
	session *ssh.Session
	stdin   interface {
		Write([]byte) (int, error)
		Close() error
	}

	mu  sync.Mutex
	buf []byte

	done chan struct{}
}

// NewSSHTransport starts command on sshSession's exec channel and returns a
// Transport wired to its stdin/stdout.
func NewSSHTransport(sshSession *ssh.Session, command string) (*SSHTransport, error) {
	stdin, err := sshSession.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := sshSession.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, err
	}
	if err := sshSession.Start(command); err != nil {
		stdin.Close()
		return nil, err
	}

	t := &SSHTransport{
		session: sshSession,
		stdin:   stdin,
		done:    make(chan struct{}),
	}
	go t.pump(stdout)
	return t, nil
}

func (t *SSHTransport) pump(stdout interface{ Read([]byte) (int, error) }) {
	chunk := make([]byte, 256)
	for {
		n, err := stdout.Read(chunk)
		if n > 0 {
			t.mu.Lock()
			t.buf = append(t.buf, chunk[:n]...)
			t.mu.Unlock()
		}
		if err != nil {
			close(t.done)
			return
		}
	}
}

// ReadByte implements Transport: non-blocking, drained from the pump buffer.
func (t *SSHTransport) ReadByte() (byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.buf) == 0 {
		return 0, false
	}
	b := t.buf[0]
	t.buf = t.buf[1:]
	return b, true
}

// Write implements Transport, writing directly to the remote command's stdin.
func (t *SSHTransport) Write(p []byte) (int, error) {
	return t.stdin.Write(p)
}

// FlushInput discards buffered-but-undelivered bytes from the remote.
func (t *SSHTransport) FlushInput() {
	t.mu.Lock()
	t.buf = t.buf[:0]
	t.mu.Unlock()
}

// Close closes stdin (signalling EOF to the remote command) and waits for it
// to exit.
func (t *SSHTransport) Close() error {
	t.stdin.Close()
	return t.session.Wait()
}
