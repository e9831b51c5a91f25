package services

import (
	"context"

	"github.com/DIKSHA-NCTE/sl-sunbird-service/csvstream"
	"github.com/DIKSHA-NCTE/sl-sunbird-service/models"
	"github.com/DIKSHA-NCTE/sl-sunbird-service/providers"
)

// Columns read from and written to keyword files.
const (
	ColumnWord   = "word"
	ColumnAction = "action"
	ColumnStatus = "status"
)

// RowProcessor applies one keyword mutation at a time.
type RowProcessor struct {
	backend providers.DictionaryBackend
}

func NewRowProcessor(backend providers.DictionaryBackend) *RowProcessor {
	return &RowProcessor{backend: backend}
}

// Process derives the mutation from rec's word and action cells and applies it.
func (p *RowProcessor) Process(ctx context.Context, rec *csvstream.Record) models.RowOutcome {
	return p.Apply(ctx, models.WordAction{
		Word:   rec.Get(ColumnWord),
		Action: models.ParseAction(rec.Get(ColumnAction)),
	})
}

// Apply sends wa.Word to the backend unchanged. Empty or missing words fail
// without a backend call.
func (p *RowProcessor) Apply(ctx context.Context, wa models.WordAction) models.RowOutcome {
	outcome := models.RowOutcome{Word: wa.Word, Action: wa.Action}
	if wa.Word == "" {
		return outcome
	}
	outcome.Succeeded = p.backend.ApplyWord(ctx, wa.Word, wa.Action)
	return outcome
}
