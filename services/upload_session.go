package services

import (
	"io"
	"sync"

	"github.com/DIKSHA-NCTE/sl-sunbird-service/csvstream"
	"github.com/DIKSHA-NCTE/sl-sunbird-service/models"
)

// UploadState is the lifecycle position of an upload session.
type UploadState string

const (
	StateValidating UploadState = "VALIDATING"
	StateDecoded    UploadState = "DECODED"
	StateStreaming  UploadState = "STREAMING"
	StateDone       UploadState = "DONE"
	StateFailed     UploadState = "FAILED"
)

// UploadSession is one keyword upload in progress. The caller owns the
// consumer side: it must call WriteTo (or Discard) exactly once.
type UploadSession struct {
	ID string

	stream *csvstream.Stream
	total  int

	mu        sync.Mutex
	state     UploadState
	succeeded int
	failed    int
	err       error

	done chan struct{}
}

func newUploadSession(id string, total int) *UploadSession {
	return &UploadSession{
		ID:    id,
		total: total,
		state: StateValidating,
		done:  make(chan struct{}),
	}
}

// WriteTo sends the report to w, flushing after every row.
func (s *UploadSession) WriteTo(w io.Writer) (int64, error) {
	return s.stream.WriteTo(w)
}

// Discard releases a session whose report will never be read.
func (s *UploadSession) Discard(err error) {
	s.stream.Discard(err)
}

// Columns returns the report's columns.
func (s *UploadSession) Columns() []string {
	return s.stream.Columns()
}

// Done is closed once the session reached DONE or FAILED.
func (s *UploadSession) Done() <-chan struct{} {
	return s.done
}

// State returns the current state.
func (s *UploadSession) State() UploadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns why the session failed, if it did.
func (s *UploadSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Counts returns the rows processed so far.
func (s *UploadSession) Counts() (succeeded, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.succeeded, s.failed
}

func (s *UploadSession) setState(state UploadState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *UploadSession) record(outcome models.RowOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if outcome.Succeeded {
		s.succeeded++
	} else {
		s.failed++
	}
}

// terminate moves the session to its terminal state. Done is closed separately
// once the outcome has been reported.
func (s *UploadSession) terminate(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateFailed
		s.err = err
		return
	}
	s.state = StateDone
}

func (s *UploadSession) event() models.KeywordsUploadedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.KeywordsUploadedEvent{
		EventType: "keywords_uploaded",
		SessionID: s.ID,
		State:     string(s.state),
		Total:     s.total,
		Succeeded: s.succeeded,
		Failed:    s.failed,
	}
}
