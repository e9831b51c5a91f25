package csvstream

import (
	"errors"
	"io"
	"sync"
)

// TeeBuffer is the number of encoded rows a tee may fall behind the stream
// before it is detached.
const TeeBuffer = 64

// ErrTeeDetached is passed to a tee's CloseWithError when it fell more than
// TeeBuffer rows behind the stream.
var ErrTeeDetached = errors.New("tee fell behind the stream and was detached")

type errorCloser interface {
	CloseWithError(err error) error
}

// tee copies encoded rows to w on its own goroutine so that a slow writer
// never holds up Emit.
type tee struct {
	w      io.WriteCloser
	chunks chan []byte
	once   sync.Once
}

func newTee(w io.WriteCloser) *tee {
	t := &tee{w: w, chunks: make(chan []byte, TeeBuffer)}
	go t.drain()
	return t
}

func (t *tee) drain() {
	for b := range t.chunks {
		if _, err := t.w.Write(b); err != nil {
			t.finish(err)
			for range t.chunks {
			}
			return
		}
	}
	t.finish(nil)
}

// offer hands b to the drain goroutine without blocking. It reports false,
// and closes the writer with ErrTeeDetached, when the buffer is full.
func (t *tee) offer(b []byte) bool {
	select {
	case t.chunks <- b:
		return true
	default:
		t.finish(ErrTeeDetached)
		close(t.chunks)
		return false
	}
}

// end lets the drain goroutine write what is buffered, then close the writer.
func (t *tee) end() {
	close(t.chunks)
}

func (t *tee) finish(err error) {
	t.once.Do(func() {
		if ec, ok := t.w.(errorCloser); ok {
			_ = ec.CloseWithError(err)
			return
		}
		_ = t.w.Close()
	})
}
