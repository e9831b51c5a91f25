package csvstream

import (
	"bytes"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chunkWriter struct {
	chunks chan string
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	w.chunks <- string(p)
	return len(p), nil
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("connection reset") }

// recordingTee keeps what it is sent and how it was closed.
type recordingTee struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	release chan struct{}
	failing bool
	closed  chan error
}

func newRecordingTee() *recordingTee {
	return &recordingTee{closed: make(chan error, 1)}
}

func (r *recordingTee) Write(p []byte) (int, error) {
	if r.release != nil {
		<-r.release
	}
	if r.failing {
		return 0, errors.New("bucket unavailable")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Write(p)
}

func (r *recordingTee) Close() error { return r.CloseWithError(nil) }

func (r *recordingTee) CloseWithError(err error) error {
	r.closed <- err
	return nil
}

func (r *recordingTee) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}

func waitClosed(t *testing.T, r *recordingTee) error {
	t.Helper()
	select {
	case err := <-r.closed:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("tee was not closed")
		return nil
	}
}

func record(header *Header, values ...string) *Record {
	return NewRecord(header, values)
}

func TestStream_EmitsRowsBeforeClose(t *testing.T) {
	header := NewHeader([]string{"word", "action"})
	s := Begin(header.WithColumn("status"))

	w := &chunkWriter{chunks: make(chan string, 10)}
	go s.WriteTo(w)

	rec := record(header, "apple", "add")
	rec.Set("status", "SUCCESS")
	require.NoError(t, s.Emit(rec))

	assert.Equal(t, "word,action,status\n", <-w.chunks)
	assert.Equal(t, "apple,add,SUCCESS\n", <-w.chunks)

	select {
	case <-s.Done():
		t.Fatal("stream must not be done before Close")
	default:
	}

	require.NoError(t, s.Close())
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("stream not done after Close")
	}
	assert.NoError(t, s.Err())
	assert.Equal(t, 1, s.Rows())
}

func TestStream_FlushesRecorderAndWritesHeaderWithoutRows(t *testing.T) {
	s := Begin([]string{"word", "action", "status"})
	rec := httptest.NewRecorder()

	go func() { _ = s.Close() }()
	_, err := s.WriteTo(rec)

	require.NoError(t, err)
	assert.Equal(t, "word,action,status\n", rec.Body.String())
	assert.True(t, rec.Flushed)
}

func TestStream_QuotesValues(t *testing.T) {
	header := NewHeader([]string{"word", "note"})
	s := Begin(header.Columns())
	var out bytes.Buffer

	go func() {
		_ = s.Emit(record(header, "ice cream", "a, b"))
		_ = s.Close()
	}()
	_, err := s.WriteTo(&out)

	require.NoError(t, err)
	assert.Equal(t, "word,note\nice cream,\"a, b\"\n", out.String())
}

func TestStream_ConsumerFailureFailsNextEmit(t *testing.T) {
	header := NewHeader([]string{"word"})
	s := Begin(header.Columns())

	consumerErr := make(chan error, 1)
	go func() {
		_, err := s.WriteTo(failingWriter{})
		consumerErr <- err
	}()

	err := s.Emit(record(header, "apple"))
	var werr *StreamWriteError
	require.True(t, errors.As(err, &werr), "got %v", err)

	assert.EqualError(t, <-consumerErr, "connection reset")
	<-s.Done()
	assert.EqualError(t, s.Err(), "connection reset")
}

func TestStream_AbortKeepsEmittedRows(t *testing.T) {
	header := NewHeader([]string{"word"})
	s := Begin(header.Columns())
	var out bytes.Buffer
	boom := errors.New("backend exploded")

	go func() {
		_ = s.Emit(record(header, "apple"))
		s.Abort(boom)
	}()
	_, err := s.WriteTo(&out)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "word\napple\n", out.String())
	assert.ErrorIs(t, s.Err(), boom)
}

func TestStream_EmitAfterCloseFails(t *testing.T) {
	s := Begin([]string{"word"})
	go s.WriteTo(&bytes.Buffer{})

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Emit(record(NewHeader([]string{"word"}), "late")), ErrStreamClosed)
}

func TestStream_TeeReceivesSameBytes(t *testing.T) {
	header := NewHeader([]string{"word"})
	s := Begin(header.Columns())
	tee := newRecordingTee()
	s.Tee(tee)
	var out bytes.Buffer

	go func() {
		_ = s.Emit(record(header, "apple"))
		_ = s.Emit(record(header, "pear"))
		_ = s.Close()
	}()
	_, err := s.WriteTo(&out)

	require.NoError(t, err)
	assert.NoError(t, waitClosed(t, tee))
	assert.Equal(t, out.String(), tee.String())
}

func TestStream_TeeFailureIsIgnored(t *testing.T) {
	header := NewHeader([]string{"word"})
	s := Begin(header.Columns())
	tee := newRecordingTee()
	tee.failing = true
	s.Tee(tee)
	var out bytes.Buffer

	go func() {
		_ = s.Emit(record(header, "apple"))
		_ = s.Close()
	}()
	_, err := s.WriteTo(&out)

	require.NoError(t, err)
	assert.Equal(t, "word\napple\n", out.String())
	assert.EqualError(t, waitClosed(t, tee), "bucket unavailable")
}

func TestStream_StalledTeeIsDetached(t *testing.T) {
	header := NewHeader([]string{"word"})
	s := Begin(header.Columns())
	tee := newRecordingTee()
	tee.release = make(chan struct{})
	defer close(tee.release)
	s.Tee(tee)

	rows := 2 * TeeBuffer
	go func() {
		for i := 0; i < rows; i++ {
			_ = s.Emit(record(header, fmt.Sprintf("w%d", i)))
		}
		_ = s.Close()
	}()

	var out bytes.Buffer
	done := make(chan error, 1)
	go func() {
		_, err := s.WriteTo(&out)
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stream was held up by its tee")
	}
	assert.Equal(t, rows+1, strings.Count(out.String(), "\n"))
	assert.ErrorIs(t, waitClosed(t, tee), ErrTeeDetached)
}

func TestStream_AbortClosesTeeAfterEmittedRows(t *testing.T) {
	header := NewHeader([]string{"word"})
	s := Begin(header.Columns())
	tee := newRecordingTee()
	s.Tee(tee)

	go func() {
		_ = s.Emit(record(header, "apple"))
		s.Abort(errors.New("client went away"))
	}()
	_, _ = s.WriteTo(&bytes.Buffer{})

	assert.NoError(t, waitClosed(t, tee))
	assert.Equal(t, "word\napple\n", tee.String())
}

func TestStream_DiscardResolvesDone(t *testing.T) {
	s := Begin([]string{"word"})
	s.Discard(errors.New("handler gave up"))

	<-s.Done()
	assert.EqualError(t, s.Err(), "handler gave up")
	assert.Error(t, s.Close())
}
