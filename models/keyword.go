package models

// Action is the dictionary mutation a row asks for.
type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

// ParseAction maps a raw CSV action cell to an Action. Only the exact string
// "remove" removes; anything else, including an empty cell, adds.
func ParseAction(raw string) Action {
	if raw == string(ActionRemove) {
		return ActionRemove
	}
	return ActionAdd
}

// Row status values written to the status column and the bulk update result.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// WordAction is the mutation derived from one input row.
type WordAction struct {
	Word   string
	Action Action
}

// RowOutcome is the result of applying one WordAction.
type RowOutcome struct {
	Word      string
	Action    Action
	Succeeded bool
}

// Status renders the outcome as a status cell value.
func (o RowOutcome) Status() string {
	if o.Succeeded {
		return StatusSuccess
	}
	return StatusFailed
}

// BulkUpdateRequest is the body of the keywords update endpoint.
type BulkUpdateRequest struct {
	Keywords []string `json:"keywords" validate:"required"`
}

// KeywordStatus is one entry of a bulk update result.
type KeywordStatus struct {
	Keyword string `json:"keyword"`
	Status  string `json:"status"`
}

// BulkUpdateResult is returned as a single JSON value once every keyword is processed.
type BulkUpdateResult struct {
	Result  []KeywordStatus `json:"result"`
	Message string          `json:"message"`
}

// KeywordsUploadedEvent is published once an upload session finishes.
type KeywordsUploadedEvent struct {
	EventType string `json:"event_type"`
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}
