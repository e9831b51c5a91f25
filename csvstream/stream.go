package csvstream

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrStreamClosed is returned by Emit after Close.
var ErrStreamClosed = errors.New("stream already closed")

// StreamWriteError reports that a row could not be handed to the consumer.
type StreamWriteError struct {
	Row int
	Err error
}

func (e *StreamWriteError) Error() string {
	return fmt.Sprintf("write row %d: %v", e.Row, e.Err)
}

func (e *StreamWriteError) Unwrap() error { return e.Err }

type flusher interface {
	Flush()
}

// Stream is a push-based CSV sink with a separate completion signal.
//
// The producer side calls Emit once per record and then Close (or Abort).
// The consumer side calls WriteTo with the transport; every row is written and
// flushed as soon as it is emitted. Done is closed only after WriteTo has
// written and flushed the last byte of the closed stream.
//
// Emit blocks until the consumer has taken the row.
type Stream struct {
	columns []string

	pr *io.PipeReader
	pw *io.PipeWriter

	mu            sync.Mutex
	tee           *tee
	headerWritten bool
	closed        bool
	rows          int

	done     chan struct{}
	doneOnce sync.Once
	err      error
}

// Begin opens a stream that writes columns as its header row.
func Begin(columns []string) *Stream {
	pr, pw := io.Pipe()
	return &Stream{
		columns: append([]string(nil), columns...),
		pr:      pr,
		pw:      pw,
		done:    make(chan struct{}),
	}
}

// Columns returns the output columns in order.
func (s *Stream) Columns() []string {
	return append([]string(nil), s.columns...)
}

// Tee copies every encoded row to w as well, on a separate goroutine. w is
// closed once the stream is closed or aborted and the buffered rows are
// written. A failing w, or one more than TeeBuffer rows behind, is detached
// and never holds up or affects the stream.
func (s *Stream) Tee(w io.WriteCloser) {
	s.mu.Lock()
	s.tee = newTee(w)
	s.mu.Unlock()
}

// Rows returns the number of rows emitted so far.
func (s *Stream) Rows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}

// Emit appends one record. Values are taken in the stream's column order;
// columns the record lacks are written empty.
func (s *Stream) Emit(rec *Record) error {
	values := make([]string, len(s.columns))
	for i, col := range s.columns {
		values[i] = rec.Get(col)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStreamClosed
	}
	if err := s.writeHeaderLocked(); err != nil {
		return &StreamWriteError{Row: s.rows + 1, Err: err}
	}
	if err := s.writeLocked(values); err != nil {
		return &StreamWriteError{Row: s.rows + 1, Err: err}
	}
	s.rows++
	return nil
}

// Close signals that no more rows follow. The header is still written for an
// upload without rows.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	err := s.writeHeaderLocked()
	s.closed = true
	s.endTeeLocked()
	if err != nil {
		_ = s.pw.CloseWithError(err)
		return &StreamWriteError{Row: s.rows, Err: err}
	}
	return s.pw.Close()
}

// Abort ends the stream early; the consumer's WriteTo returns err after the
// rows already emitted.
func (s *Stream) Abort(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.endTeeLocked()
	_ = s.pw.CloseWithError(err)
}

// WriteTo copies the stream to w until it is closed, flushing w after every
// chunk when w supports it. It resolves Done when it returns.
func (s *Stream) WriteTo(w io.Writer) (int64, error) {
	f, canFlush := w.(flusher)
	buf := make([]byte, 32*1024)

	var written int64
	for {
		n, rerr := s.pr.Read(buf)
		if n > 0 {
			m, werr := w.Write(buf[:n])
			written += int64(m)
			if werr == nil && m < n {
				werr = io.ErrShortWrite
			}
			if werr != nil {
				// The producer sees this on its next Emit.
				_ = s.pr.CloseWithError(werr)
				s.finish(werr)
				return written, werr
			}
			if canFlush {
				f.Flush()
			}
		}
		if rerr == io.EOF {
			s.finish(nil)
			return written, nil
		}
		if rerr != nil {
			s.finish(rerr)
			return written, rerr
		}
	}
}

// Discard releases a stream whose consumer will never call WriteTo.
func (s *Stream) Discard(err error) {
	_ = s.pr.CloseWithError(err)
	s.finish(err)
}

// Done is closed once the consumer has finished with the stream.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Err returns the reason the stream ended early, or nil after a clean finish.
// It is only meaningful after Done is closed.
func (s *Stream) Err() error {
	<-s.done
	return s.err
}

func (s *Stream) finish(err error) {
	s.doneOnce.Do(func() {
		s.err = err
		close(s.done)
	})
}

func (s *Stream) writeHeaderLocked() error {
	if s.headerWritten {
		return nil
	}
	if err := s.writeLocked(s.columns); err != nil {
		return err
	}
	s.headerWritten = true
	return nil
}

func (s *Stream) writeLocked(values []string) error {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(values); err != nil {
		return err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	if _, err := s.pw.Write(buf.Bytes()); err != nil {
		return err
	}
	if s.tee != nil && !s.tee.offer(buf.Bytes()) {
		s.tee = nil
	}
	return nil
}

func (s *Stream) endTeeLocked() {
	if s.tee != nil {
		s.tee.end()
		s.tee = nil
	}
}
