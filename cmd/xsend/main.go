// Command xsend sends a single file over XMODEM on stdin/stdout, so it can
// be piped through a serial device, a modem, or an SSH exec channel exactly
// the way the classic sz/sx tools are.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/drunlade/go-xmodem/xmodem"
)

var (
	verbose  = flag.Bool("v", false, "verbose mode")
	quiet    = flag.Bool("q", false, "quiet mode")
	ascii    = flag.Bool("a", false, "ASCII transfer (text mode; has no effect when sending)")
	crc      = flag.Bool("c", true, "prefer CRC-16 over checksum")
	oneK     = flag.Bool("k", true, "prefer 1K (1024-byte) blocks")
	wide     = flag.Bool("w", false, "widen short/long timeouts for TCP-like links")
	help     = flag.Bool("h", false, "show help")
	version  = flag.Bool("version", false, "show version")
)

const versionString = "xsend version 0.1.0"

func main() {
	flag.Parse()

	if *help {
		showUsage(0)
	}
	if *version {
		fmt.Println(versionString)
		os.Exit(0)
	}

	files := flag.Args()
	if len(files) != 1 {
		fmt.Fprintf(os.Stderr, "%s: exactly one file must be given\n", os.Args[0])
		showUsage(1)
	}
	path := files[0]

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	source, err := xmodem.OpenFileSource(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xsend: %v\n", err)
		os.Exit(1)
	}

	cfg := xmodem.DefaultConfig()
	cfg.Mode = xmodem.RoleSending
	cfg.TextMode = *ascii
	cfg.Filename = path
	cfg.WideTimeouts = *wide
	cfg.InitialVariant = pickVariant(*crc, *oneK)

	progress := xmodem.NewProgressTracker(func(filename string, transferred, total int64, percent int, elapsed time.Duration) {
		if *quiet {
			return
		}
		if *verbose {
			fmt.Fprintf(os.Stderr, "\r%s: %d%% (%d/%d bytes, %v elapsed)", filename, percent, transferred, total, elapsed.Round(time.Millisecond))
		}
	}, 200*time.Millisecond)

	transport := newStdioTransport()
	clock := xmodem.NewWallClock()
	session := xmodem.NewSession(transport, xmodem.WithConfig(cfg), xmodem.WithClock(clock), xmodem.WithProgress(progress))
	session.Init(source, nil)

	go func() {
		<-sigChan
		session.Cancel()
	}()

	runScheduler(session, clock)

	if !session.Success() {
		fmt.Fprintf(os.Stderr, "\nxsend: transfer failed: %v\n", session.Err())
		os.Exit(1)
	}
	if !*quiet {
		fmt.Fprintln(os.Stderr, "\nxsend: transfer complete")
	}
}

func pickVariant(preferCRC, preferOneK bool) xmodem.Variant {
	switch {
	case preferCRC && preferOneK:
		return xmodem.VariantCRC1024
	case preferCRC:
		return xmodem.VariantCRC128
	case preferOneK:
		return xmodem.VariantChecksum1024
	default:
		return xmodem.VariantChecksum128
	}
}

// runScheduler drives Parse/OnTimeout in a tight poll loop until the session
// terminates, the cooperative scheduler spec.md 5 assumes an external driver
// provides.
func runScheduler(s *xmodem.Session, clock *xmodem.WallClock) {
	for s.Role() != xmodem.RoleTerminated {
		if !s.Parse() {
			break
		}
		if clock.NowMS() >= clock.Deadline() {
			s.OnTimeout()
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// stdioTransport adapts os.Stdin/os.Stdout to Transport via a pump goroutine,
// the same non-blocking-read-over-blocking-fd pattern serial_transport.go
// uses for a real serial port.
type stdioTransport struct {
	mu  sync.Mutex
	buf []byte
}

func newStdioTransport() *stdioTransport {
	t := &stdioTransport{}
	go t.pump()
	return t
}

func (t *stdioTransport) pump() {
	chunk := make([]byte, 256)
	for {
		n, err := os.Stdin.Read(chunk)
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

func (t *stdioTransport) ReadByte() (byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.buf) == 0 {
		return 0, false
	}
	b := t.buf[0]
	t.buf = t.buf[1:]
	return b, true
}

func (t *stdioTransport) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

func (t *stdioTransport) FlushInput() {
	t.mu.Lock()
	t.buf = t.buf[:0]
	t.mu.Unlock()
}

func showUsage(exitcode int) {
	fmt.Fprintf(os.Stderr, `%s - send a file with the XMODEM protocol over stdin/stdout

Usage: %s [options] file

Options:
  -a            ASCII transfer (text mode; has no effect when sending)
  -c            prefer CRC-16 over checksum (default true)
  -k            prefer 1K blocks (default true)
  -w            widen timeouts for TCP-like links
  -q            quiet mode
  -v            verbose mode
  -h            show this help message
  --version     show version

`, versionString, os.Args[0])
	os.Exit(exitcode)
}
