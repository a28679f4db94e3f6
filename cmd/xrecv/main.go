// Command xrecv receives a single file over XMODEM on stdin/stdout.
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
	verbose   = flag.Bool("v", false, "verbose mode")
	quiet     = flag.Bool("q", false, "quiet mode")
	ascii     = flag.Bool("a", false, "ASCII transfer (CR/LF normalization)")
	crc       = flag.Bool("c", true, "start in CRC-16 mode")
	wide      = flag.Bool("w", false, "widen short/long timeouts for TCP-like links")
	overwrite = flag.Bool("y", false, "overwrite an existing output file")
	help      = flag.Bool("h", false, "show help")
	version   = flag.Bool("version", false, "show version")
)

const versionString = "xrecv version 0.1.0"

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
		fmt.Fprintf(os.Stderr, "%s: exactly one output file must be given\n", os.Args[0])
		showUsage(1)
	}
	path := files[0]

	if !*overwrite {
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(os.Stderr, "xrecv: %s already exists (use -y to overwrite)\n", path)
			os.Exit(1)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sink, err := xmodem.CreateFileSink(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xrecv: %v\n", err)
		os.Exit(1)
	}

	cfg := xmodem.DefaultConfig()
	cfg.Mode = xmodem.RoleReceiving
	cfg.TextMode = *ascii
	cfg.Filename = path
	cfg.WideTimeouts = *wide
	if *crc {
		cfg.InitialVariant = xmodem.VariantCRC128
	} else {
		cfg.InitialVariant = xmodem.VariantChecksum128
	}

	progress := xmodem.NewProgressTracker(func(filename string, transferred, total int64, percent int, elapsed time.Duration) {
		if *quiet {
			return
		}
		if *verbose {
			fmt.Fprintf(os.Stderr, "\r%s: %d bytes received (%v elapsed)", filename, transferred, elapsed.Round(time.Millisecond))
		}
	}, 200*time.Millisecond)

	transport := newStdioTransport()
	clock := xmodem.NewWallClock()
	session := xmodem.NewSession(transport, xmodem.WithConfig(cfg), xmodem.WithClock(clock), xmodem.WithProgress(progress))
	session.Init(nil, sink)

	go func() {
		<-sigChan
		session.Cancel()
	}()

	runScheduler(session, clock)

	if !session.Success() {
		fmt.Fprintf(os.Stderr, "\nxrecv: transfer failed: %v\n", session.Err())
		os.Exit(1)
	}
	if !*quiet {
		fmt.Fprintln(os.Stderr, "\nxrecv: transfer complete")
	}
}

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
	fmt.Fprintf(os.Stderr, `%s - receive a file with the XMODEM protocol over stdin/stdout

Usage: %s [options] file

Options:
  -a            ASCII transfer (CR/LF normalization)
  -c            start in CRC-16 mode (default true)
  -w            widen timeouts for TCP-like links
  -y            overwrite an existing output file
  -q            quiet mode
  -v            verbose mode
  -h            show this help message
  --version     show version

`, versionString, os.Args[0])
	os.Exit(exitcode)
}
