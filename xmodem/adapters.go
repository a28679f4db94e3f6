package xmodem

// Transport is the byte-level channel a Session drives. Reads are
// non-blocking: ReadByte returns ok=false to mean "no data right now",
// never blocking the caller. Writes are best-effort; a short write is
// retried by the Session on a later Parse tick.
type Transport interface {
	// ReadByte returns the next available byte, or ok=false if none is
	// currently available.
	ReadByte() (b byte, ok bool)

	// Write writes as many bytes of p as possible right now and returns how
	// many were written. It must not block.
	Write(p []byte) (n int, err error)

	// FlushInput discards any buffered-but-unread input, used when the
	// framer encounters noise while awaiting a header.
	FlushInput()
}

// FileSource is the sender-side file adapter.
type FileSource interface {
	// Read follows ordinary io.Reader semantics: a short read with err==nil
	// is not end of file and must be retried. End of file is only n==0
	// accompanied by a non-nil error (or a subsequent zero-byte read).
	Read(buf []byte) (n int, err error)
	Close() error
	IsOpen() bool
	Size() int64
}

// FileSink is the receiver-side file adapter.
type FileSink interface {
	Write(p []byte) (n int, err error)
	Close() error
}

// Config is the read-only configuration contract a Session consumes
// (spec.md 6).
type Config struct {
	// Mode selects which role NewSession drives.
	Mode Role

	// InitialVariant is the receiver's initial preference, or the sender's
	// initial preference subject to negotiation.
	InitialVariant Variant

	// TextMode enables CR/LF normalization and trailing-SUB trimming on
	// receive (spec.md 4.2).
	TextMode bool

	// Timeouts, all in milliseconds.
	TimeoutInit     int64 // receiver's first NAK, non-CRC
	TimeoutInitCRC  int64 // receiver's first 'C', CRC mode
	TimeoutShort    int64 // mid-packet
	TimeoutLong     int64 // between packets
	TimeoutVeryLong int64 // sender awaiting the receiver's first request

	// KickoffCommand, if non-empty, is written (with a trailing basename and
	// CR) by the sender before arming the initial timeout, to invoke a
	// receiver program on the remote side (e.g. "rx").
	KickoffCommand string

	// Filename is used both for the kickoff command and for Progress.SetFilename.
	Filename string

	// LogEnabled mirrors spec.md's log flag; when true and the Logger is a
	// *FileLogger, transport traffic is recorded in its transcript. Protocol
	// failures are passed to the Logger whether or not LogEnabled is set.
	LogEnabled bool

	// WideTimeouts widens TimeoutShort/TimeoutLong to TimeoutVeryLong, for
	// TCP-like transports where sub-second granularity is unrealistic
	// (spec.md 6).
	WideTimeouts bool
}

// DefaultConfig returns a Config with the classic XMODEM timeout values (in
// milliseconds): 10s init, 10s init-CRC, 1s short, 10s long, 60s very-long.
func DefaultConfig() *Config {
	return &Config{
		Mode:            RoleReceiving,
		InitialVariant:  VariantCRC128,
		TimeoutInit:     10_000,
		TimeoutInitCRC:  10_000,
		TimeoutShort:    1_000,
		TimeoutLong:     10_000,
		TimeoutVeryLong: 60_000,
	}
}

// effectiveShort/effectiveLong apply the TCP-like timeout widening rule.
func (c *Config) effectiveShort() int64 {
	if c.WideTimeouts {
		return c.TimeoutVeryLong
	}
	return c.TimeoutShort
}

func (c *Config) effectiveLong() int64 {
	if c.WideTimeouts {
		return c.TimeoutVeryLong
	}
	return c.TimeoutLong
}
