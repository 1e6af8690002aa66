package model

import (
	"time"

	"github.com/treadline/invoice-ingest-service/internal/domain"
)

// ErrorDetail describes one field-level problem in an error response.
type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// BatchDTO is the API form of an import batch.
type BatchDTO struct {
	ID                string     `json:"id"`
	Source            string     `json:"source"`
	Status            string     `json:"status"`
	TotalRecords      int        `json:"totalRecords"`
	SuccessfulRecords int        `json:"successfulRecords"`
	FailedRecords     int        `json:"failedRecords"`
	StartedAt         time.Time  `json:"startedAt"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
}

// FromDomain populates the DTO from a domain batch.
func (d *BatchDTO) FromDomain(batch *domain.ImportBatch) {
	d.ID = batch.ID
	d.Source = batch.Source
	d.Status = string(batch.Status)
	d.TotalRecords = batch.TotalRecords
	d.SuccessfulRecords = batch.SuccessfulRecords
	d.FailedRecords = batch.FailedRecords
	d.StartedAt = batch.StartedAt
	d.CompletedAt = batch.CompletedAt
}

// RowErrorDTO is the API form of one recorded row error.
type RowErrorDTO struct {
	RowNumber int       `json:"rowNumber"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// BatchListResponse is the payload of GET /v1/batches.
type BatchListResponse struct {
	Data []BatchDTO `json:"data"`
}

// BatchErrorsResponse is the payload of GET /v1/batches/:id/errors.
type BatchErrorsResponse struct {
	BatchID string        `json:"batchId"`
	Errors  []RowErrorDTO `json:"errors"`
}
