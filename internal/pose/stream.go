package pose

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// maxFrameSize bounds a single JSON line.
const maxFrameSize = 1 << 20

// ErrFrameTooLarge is returned for a line longer than maxFrameSize. The
// line is skipped and the next call reads the following frame.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// StreamSource reads newline-delimited JSON frames from a reader, such as
// the stdout of a pose estimation process or a recorded session file.
type StreamSource struct {
	r      io.Reader
	reader *bufio.Reader
	buf    []byte
	line   int
	mu     sync.Mutex // serializes Next
	closed atomic.Bool
	once   sync.Once
	err    error
}

// NewStreamSource creates a StreamSource reading from r. If r implements
// io.Closer it is closed by Close.
func NewStreamSource(r io.Reader) *StreamSource {
	return &StreamSource{
		r:      r,
		reader: bufio.NewReaderSize(r, 64*1024),
	}
}

// Next returns the next frame. Blank lines are skipped. A malformed or
// oversized line yields an error and the following call continues with
// the next line.
func (s *StreamSource) Next(ctx context.Context) (*Landmarks, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if s.closed.Load() {
			return nil, ErrSourceClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line, err := s.readLine()
		if err != nil {
			if s.closed.Load() {
				return nil, ErrSourceClosed
			}
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			if errors.Is(err, ErrFrameTooLarge) {
				return nil, fmt.Errorf("line %d: %w", s.line, err)
			}
			return nil, fmt.Errorf("read frame: %w", err)
		}

		data := bytes.TrimSpace(line)
		if len(data) == 0 {
			continue
		}

		lm, err := decodeFrame(data)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", s.line, err)
		}
		return lm, nil
	}
}

// readLine returns the next line without its terminator. A line longer
// than maxFrameSize is consumed up to its newline and reported as
// ErrFrameTooLarge. A final line without a newline is still returned.
func (s *StreamSource) readLine() ([]byte, error) {
	s.buf = s.buf[:0]
	oversized := false

	for {
		chunk, err := s.reader.ReadSlice('\n')
		if !oversized {
			if len(s.buf)+len(chunk) > maxFrameSize+1 {
				oversized = true
				s.buf = s.buf[:0]
			} else {
				s.buf = append(s.buf, chunk...)
			}
		}

		switch {
		case err == nil:
			s.line++
			if oversized {
				return nil, ErrFrameTooLarge
			}
			return s.buf, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if oversized {
				s.line++
				return nil, ErrFrameTooLarge
			}
			if len(s.buf) > 0 {
				s.line++
				return s.buf, nil
			}
			return nil, io.EOF
		default:
			return nil, err
		}
	}
}

// Close closes the underlying reader when it is closable, which unblocks a
// pending Next.
func (s *StreamSource) Close() error {
	s.once.Do(func() {
		s.closed.Store(true)
		if c, ok := s.r.(io.Closer); ok {
			s.err = c.Close()
		}
	})
	return s.err
}
