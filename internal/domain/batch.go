package domain

import "time"

// BatchStatus is the lifecycle state of an import batch.
type BatchStatus string

const (
	BatchStarted   BatchStatus = "started"
	BatchCompleted BatchStatus = "completed"
	BatchFailed    BatchStatus = "failed"
)

// SourceLiveSync is the Source value for batches written by the live-sync
// path rather than a file import.
const SourceLiveSync = "live-sync"

// ImportBatch is the unit of ingestion bookkeeping: one file import or one
// live-sync run. Partial success is always observable through the counters.
type ImportBatch struct {
	ID                string      `json:"id"`
	Source            string      `json:"source"`
	Status            BatchStatus `json:"status"`
	TotalRecords      int         `json:"total_records"`
	SuccessfulRecords int         `json:"successful_records"`
	FailedRecords     int         `json:"failed_records"`
	StartedAt         time.Time   `json:"started_at"`
	CompletedAt       *time.Time  `json:"completed_at,omitempty"`
}

// RowError records a single failed record within a batch, keyed to the
// source row or upstream record that produced it.
type RowError struct {
	ID        string    `json:"id"`
	BatchID   string    `json:"batch_id"`
	RowNumber int       `json:"row_number"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
