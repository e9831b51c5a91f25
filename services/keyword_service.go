package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/DIKSHA-NCTE/sl-sunbird-service/csvstream"
	"github.com/DIKSHA-NCTE/sl-sunbird-service/models"
	aws_pkg "github.com/DIKSHA-NCTE/sl-sunbird-service/pkg/aws"
	"github.com/DIKSHA-NCTE/sl-sunbird-service/providers"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const keywordsUpdatedMessage = "Keywords updated successfully"

// ReportArchiver stores a copy of an upload report.
type ReportArchiver interface {
	Archive(ctx context.Context, key string, body io.Reader) error
}

// MetricsRecorder publishes numeric metrics.
type MetricsRecorder interface {
	RecordValue(ctx context.Context, metricName string, n float64, dimensions map[string]string) error
	RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error
}

// KeywordServiceOptions wires the optional collaborators of KeywordService.
// Nil members are skipped.
type KeywordServiceOptions struct {
	Archiver       ReportArchiver
	ReportsPrefix  string
	Metrics        MetricsRecorder
	Events         aws_pkg.SNSPublisher
	EventsTopicArn string
}

// KeywordService runs keyword uploads and bulk updates against the dictionary.
type KeywordService struct {
	backend providers.DictionaryBackend
	rows    *RowProcessor
	opts    KeywordServiceOptions
	logger  *zap.Logger
}

// NewKeywordService creates a new KeywordService.
func NewKeywordService(backend providers.DictionaryBackend, opts KeywordServiceOptions, logger *zap.Logger) *KeywordService {
	return &KeywordService{
		backend: backend,
		rows:    NewRowProcessor(backend),
		opts:    opts,
		logger:  logger,
	}
}

// Upload validates and decodes file, then returns a session whose report
// starts streaming immediately. Rows are applied in file order on a separate
// goroutine while the caller consumes the session.
//
// A nil file, an index without mapping, or an unparsable file fail before a
// session exists.
func (s *KeywordService) Upload(ctx context.Context, file io.Reader) (*UploadSession, error) {
	sess := newUploadSession(uuid.NewString(), 0)

	if file == nil {
		return nil, ErrMissingFile
	}
	if !s.backend.IndexReady(ctx) {
		return nil, ErrIndexNotReady
	}

	header, records, err := csvstream.Decode(file)
	if err != nil {
		return nil, ErrParse.Wrap(err)
	}
	sess.total = len(records)
	sess.setState(StateDecoded)

	sess.stream = csvstream.Begin(header.WithColumn(ColumnStatus))
	s.startArchive(ctx, sess)
	sess.setState(StateStreaming)

	s.logger.Info("upload session started",
		zap.String("session_id", sess.ID),
		zap.Int("rows", sess.total),
	)

	go s.run(ctx, sess, records)
	return sess, nil
}

func (s *KeywordService) run(ctx context.Context, sess *UploadSession, records []*csvstream.Record) {
	start := time.Now()
	var runErr error

	defer func() {
		if r := recover(); r != nil {
			runErr = fmt.Errorf("upload aborted: %v", r)
			s.logger.Error("upload session panicked", zap.String("session_id", sess.ID), zap.Any("panic", r))
			sess.stream.Abort(runErr)
		}

		// The session ends when the consumer is done with the stream.
		<-sess.stream.Done()
		if runErr == nil {
			runErr = sess.stream.Err()
		}

		sess.terminate(runErr)
		s.report(ctx, sess, time.Since(start))
		close(sess.done)
	}()

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			runErr = err
			sess.stream.Abort(err)
			return
		}

		outcome := s.rows.Process(ctx, rec)
		sess.record(outcome)
		rec.Set(ColumnStatus, outcome.Status())

		if err := sess.stream.Emit(rec); err != nil {
			runErr = err
			sess.stream.Abort(err)
			return
		}
	}

	if err := sess.stream.Close(); err != nil {
		runErr = err
	}
}

// startArchive tees the report into the archiver. The stream ends the archived
// object when it closes; a failing or stalled archiver is detached and never
// reaches the session.
func (s *KeywordService) startArchive(ctx context.Context, sess *UploadSession) {
	if s.opts.Archiver == nil {
		return
	}

	pr, pw := io.Pipe()
	sess.stream.Tee(pw)

	key := path.Join(s.opts.ReportsPrefix, sess.ID+".csv")
	archiveCtx := context.WithoutCancel(ctx)
	go func() {
		err := s.opts.Archiver.Archive(archiveCtx, key, pr)
		if err != nil {
			s.logger.Warn("keyword report archive failed", zap.String("session_id", sess.ID), zap.String("key", key), zap.Error(err))
			pr.CloseWithError(err)
			return
		}
		pr.Close()
		s.logger.Info("keyword report archived", zap.String("session_id", sess.ID), zap.String("key", key))
	}()
}

func (s *KeywordService) report(ctx context.Context, sess *UploadSession, elapsed time.Duration) {
	ctx = context.WithoutCancel(ctx)
	event := sess.event()

	fields := []zap.Field{
		zap.String("session_id", event.SessionID),
		zap.String("state", event.State),
		zap.Int("rows", event.Total),
		zap.Int("succeeded", event.Succeeded),
		zap.Int("failed", event.Failed),
		zap.Duration("elapsed", elapsed),
	}
	if err := sess.Err(); err != nil {
		s.logger.Warn("upload session finished", append(fields, zap.Error(err))...)
	} else {
		s.logger.Info("upload session finished", fields...)
	}

	if s.opts.Metrics != nil {
		dims := map[string]string{"State": event.State}
		_ = s.opts.Metrics.RecordValue(ctx, aws_pkg.MetricKeywordRowsSucceeded, float64(event.Succeeded), dims)
		_ = s.opts.Metrics.RecordValue(ctx, aws_pkg.MetricKeywordRowsFailed, float64(event.Failed), dims)
		_ = s.opts.Metrics.RecordLatency(ctx, aws_pkg.MetricKeywordUploadLatency, elapsed, dims)
	}

	if s.opts.Events != nil && s.opts.EventsTopicArn != "" {
		payload, err := json.Marshal(event)
		if err != nil {
			s.logger.Error("failed to marshal keywords event", zap.Error(err))
			return
		}
		if err := s.opts.Events.Publish(ctx, s.opts.EventsTopicArn, payload); err != nil {
			s.logger.Warn("failed to publish keywords event", zap.String("session_id", event.SessionID), zap.Error(err))
		}
	}
}

// Update adds every word in order and returns the per-word outcome. Empty
// words are reported FAILED without a backend call.
func (s *KeywordService) Update(ctx context.Context, words []string) (*models.BulkUpdateResult, error) {
	if !s.backend.IndexReady(ctx) {
		return nil, ErrIndexNotReady
	}

	result := make([]models.KeywordStatus, 0, len(words))
	for _, word := range words {
		outcome := s.rows.Apply(ctx, models.WordAction{Word: word, Action: models.ActionAdd})
		result = append(result, models.KeywordStatus{
			Keyword: word,
			Status:  outcome.Status(),
		})
	}

	return &models.BulkUpdateResult{
		Result:  result,
		Message: keywordsUpdatedMessage,
	}, nil
}
