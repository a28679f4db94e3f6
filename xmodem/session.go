package xmodem

import "time"

// Session is the long-lived object that embodies one XMODEM transfer. It
// never performs I/O itself; it is driven by Parse/OnTimeout/Cancel and
// talks to the world only through the adapters passed to NewSession.
type Session struct {
	role    Role
	variant Variant

	// receive-side packet assembly
	readState readState
	inBuf     [maxPacketSize]byte
	inPtr     int

	// send-side packet staging
	outBuf [maxPacketSize]byte
	outLen int
	outPtr int

	blockNum     byte
	blockOffset  int
	sentBlockNum byte

	nakMode             nakMode
	nakRetriesRemaining int
	canCount            int

	crCarry  bool
	textMode bool

	byteCount   int64
	fileSize    int64
	startTimeMS int64
	success     bool
	lastErr     *Error

	kickoffDone bool

	transport Transport
	source    FileSource
	sink      FileSink
	clock     Clock
	progress  Progress
	logger    Logger
	config    *Config
}

// Option configures a Session at construction time.
type Option func(*Session)

// WithConfig sets the session configuration. If omitted, DefaultConfig() is used.
func WithConfig(c *Config) Option {
	return func(s *Session) { s.config = c }
}

// WithClock overrides the default wall-clock Clock adapter.
func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithProgress sets the Progress adapter. If omitted, progress is discarded.
func WithProgress(p Progress) Option {
	return func(s *Session) { s.progress = p }
}

// WithLogger sets the protocol logger. If omitted, logging is discarded.
func WithLogger(l Logger) Option {
	return func(s *Session) { s.logger = l }
}

// NewSession creates a Session bound to transport, configured by opts. The
// file adapter (source for sending, sink for receiving) is supplied
// separately to Init, since it is often not known until a kickoff/negotiation
// exchange has happened.
func NewSession(transport Transport, opts ...Option) *Session {
	s := &Session{
		transport: transport,
		config:    DefaultConfig(),
		clock:     newWallClock(),
		progress:  NoopProgress{},
		logger:    NoopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.role = s.config.Mode
	s.variant = s.config.InitialVariant
	s.textMode = s.config.TextMode
	return s
}

// Init begins the transfer. For RoleSending, source must be non-nil and
// sink may be nil; for RoleReceiving, sink must be non-nil and source may be
// nil. Init sends the first negotiation byte (receiving) or arms the
// very-long timeout and optionally writes the kickoff command (sending).
func (s *Session) Init(source FileSource, sink FileSink) {
	s.source = source
	s.sink = sink
	s.startTimeMS = s.clock.NowMS()
	s.byteCount = 0
	if source != nil {
		s.fileSize = source.Size()
	}
	s.progress.SetProtoLabel(s.variant.String())
	s.progress.SetFilename(s.config.Filename)

	switch s.role {
	case RoleSending:
		s.initSend()
	case RoleReceiving:
		s.initReceive()
	}
}

// Role reports the current role (Sending/Receiving/Terminated).
func (s *Session) Role() Role { return s.role }

// Success reports whether the transfer completed successfully. Only
// meaningful once Role() == RoleTerminated.
func (s *Session) Success() bool { return s.success }

// BlockIndex returns the monotonic packet index (block_offset + block_num).
func (s *Session) BlockIndex() int { return s.blockOffset + int(s.blockNum) }

// Variant reports the currently negotiated XMODEM variant.
func (s *Session) Variant() Variant { return s.variant }

// Err returns the reason a terminated Session failed, or nil on success or
// while still running. A local Cancel records no reason, so Err is also nil
// after it.
func (s *Session) Err() error {
	if s.lastErr == nil {
		return nil
	}
	return s.lastErr
}

// fail records the reason a transfer is about to terminate unsuccessfully
// and logs it, matching the single-*Error taxonomy from spec.md 7.
func (s *Session) fail(t ErrorType, message string) {
	s.lastErr = NewError(t, message)
	s.logger.Error("%s", s.lastErr.Error())
}

// writeOut writes p to the transport, logging it if a FileLogger is attached.
func (s *Session) writeOut(p []byte) (int, error) {
	n, err := s.transport.Write(p)
	if n > 0 {
		if fl, ok := s.logger.(*FileLogger); ok && s.config.LogEnabled {
			fl.LogOut(p[:n])
		}
	}
	return n, err
}

func (s *Session) logIn(b byte) {
	if fl, ok := s.logger.(*FileLogger); ok && s.config.LogEnabled {
		fl.LogIn([]byte{b})
	}
}

func (s *Session) armShort() { s.clock.ArmDeadline(s.config.effectiveShort()) }
func (s *Session) armLong()  { s.clock.ArmDeadline(s.config.effectiveLong()) }

func (s *Session) terminate(success bool) bool {
	s.success = success
	s.role = RoleTerminated
	return false
}

func (s *Session) elapsed() time.Duration {
	return time.Duration(s.clock.NowMS()-s.startTimeMS) * time.Millisecond
}

func (s *Session) reportProgress() {
	s.progress.OnPacket(s.BlockIndex())
	s.progress.OnBytes(s.byteCount)
	if s.fileSize > 0 {
		s.progress.OnPercent(int(s.byteCount * 100 / s.fileSize))
	}
	s.progress.OnElapsed(s.elapsed())
}

// Parse is called by the external scheduler when the transport has input
// available (or, for the sender, may be writable). It returns true if the
// session should continue to be driven, false once it has terminated.
func (s *Session) Parse() bool {
	switch s.role {
	case RoleReceiving:
		return s.parseReceive()
	case RoleSending:
		return s.parseSend()
	default:
		return false
	}
}

// OnTimeout is called when the deadline most recently armed via the Clock
// adapter has elapsed.
func (s *Session) OnTimeout() {
	switch s.role {
	case RoleReceiving:
		s.timeoutReceive()
	case RoleSending:
		s.fail(ErrTimeout, "no response from receiver within the armed deadline")
		s.terminate(false)
	}
}
