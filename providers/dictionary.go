package providers

import (
	"context"

	"github.com/DIKSHA-NCTE/sl-sunbird-service/models"
)

// DictionaryBackend is the keyword index the dictionary endpoints mutate.
// Implementations report outcomes as booleans and log their own failures;
// they never return errors.
type DictionaryBackend interface {
	// IndexReady reports whether the keyword index and its mapping exist.
	IndexReady(ctx context.Context) bool

	// ApplyWord adds or removes one word and reports whether it succeeded.
	ApplyWord(ctx context.Context, word string, action models.Action) bool
}
