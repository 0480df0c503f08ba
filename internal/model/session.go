package model

import "time"

// Session captures one uploaded ledger: the parsed accounts plus enough raw
// context (columns, sample rows) for later chat analysis. Sessions live for
// the lifetime of the store they are put in; expiry is a store policy, not a
// property of the session itself.
type Session struct {
	UploadTime   time.Time           `json:"upload_time"`
	ID           string              `json:"session_id"`
	Filename     string              `json:"filename"`
	Accounts     []Account           `json:"accounts"`
	Columns      []string            `json:"columns"`
	RawSample    []map[string]string `json:"raw_data_sample"`
	AccountCount int                 `json:"account_count"`
}

// Batch lifecycle states.
const (
	BatchProcessing = "processing"
	BatchCompleted  = "completed"
	BatchFailed     = "failed"
)

// BatchStatus tracks the progress of one mapping batch so callers can poll
// it while the batch runs account by account.
type BatchStatus struct {
	StartTime         time.Time       `json:"start_time"`
	Summary           *BatchSummary   `json:"summary,omitempty"`
	Status            string          `json:"status"`
	Error             string          `json:"error,omitempty"`
	Results           []MappingResult `json:"results"`
	TotalAccounts     int             `json:"total_accounts"`
	ProcessedAccounts int             `json:"processed_accounts"`
}
