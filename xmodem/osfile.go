package xmodem

import "os"

// OSFileSource adapts *os.File to FileSource, the disk-backed counterpart to
// memSource used in tests. Grounded in cmd/gsz's OnFileOpen callback, which
// opens the file and stats it for size up front.
type OSFileSource struct {
	f    *os.File
	size int64
	open bool
}

// OpenFileSource opens path for reading as a FileSource.
func OpenFileSource(path string) (*OSFileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &OSFileSource{f: f, size: info.Size(), open: true}, nil
}

func (s *OSFileSource) Read(buf []byte) (int, error) { return s.f.Read(buf) }
func (s *OSFileSource) Size() int64                  { return s.size }
func (s *OSFileSource) IsOpen() bool                 { return s.open }

func (s *OSFileSource) Close() error {
	s.open = false
	return s.f.Close()
}

// OSFileSink adapts *os.File to FileSink.
type OSFileSink struct {
	f *os.File
}

// CreateFileSink creates (or truncates) path for writing as a FileSink.
func CreateFileSink(path string) (*OSFileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	return &OSFileSink{f: f}, nil
}

func (s *OSFileSink) Write(p []byte) (int, error) { return s.f.Write(p) }
func (s *OSFileSink) Close() error                { return s.f.Close() }
