package handler

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/treadline/invoice-ingest-service/internal/model"
	"github.com/treadline/invoice-ingest-service/internal/repository"
)

// BatchHandler exposes import-batch progress to the dashboard UI. This is
// a read-only status surface; ingestion itself runs through the CLI and
// the sync orchestrator.
type BatchHandler struct {
	batches repository.BatchRepository
}

// NewBatchHandler creates a new batch status handler
func NewBatchHandler(batches repository.BatchRepository) *BatchHandler {
	return &BatchHandler{
		batches: batches,
	}
}

// RegisterRoutes registers the handler's routes with the given router
func (h *BatchHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/v1/batches", h.ListBatches)
	router.GET("/v1/batches/:id", h.GetBatch)
	router.GET("/v1/batches/:id/errors", h.ListBatchErrors)
}

// ListBatches handles a request for recent import batches
// @Summary List import batches
// @Description List recent import batches, newest first
// @Tags batches
// @Produce json
// @Param offset query int false "Pagination offset"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} model.BatchListResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /v1/batches [get]
func (h *BatchHandler) ListBatches(c *gin.Context) {
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	batches, err := h.batches.ListBatches(c.Request.Context(), offset, limit)
	if err != nil {
		respondInternalServerError(c, "Failed to list batches: "+err.Error())
		return
	}

	response := model.BatchListResponse{Data: make([]model.BatchDTO, 0, len(batches))}
	for _, batch := range batches {
		var dto model.BatchDTO
		dto.FromDomain(batch)
		response.Data = append(response.Data, dto)
	}
	respondOK(c, response)
}

// GetBatch handles a request for one import batch
// @Summary Get an import batch
// @Tags batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} model.BatchDTO
// @Failure 404 {object} model.ErrorResponse
// @Router /v1/batches/{id} [get]
func (h *BatchHandler) GetBatch(c *gin.Context) {
	batch, err := h.batches.GetBatchByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondNotFound(c, "Batch not found")
			return
		}
		respondInternalServerError(c, "Failed to get batch: "+err.Error())
		return
	}

	var dto model.BatchDTO
	dto.FromDomain(batch)
	respondOK(c, dto)
}

// ListBatchErrors handles a request for a batch's recorded row errors
// @Summary List a batch's row errors
// @Tags batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} model.BatchErrorsResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /v1/batches/{id}/errors [get]
func (h *BatchHandler) ListBatchErrors(c *gin.Context) {
	batchID := c.Param("id")
	if _, err := h.batches.GetBatchByID(c.Request.Context(), batchID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondNotFound(c, "Batch not found")
			return
		}
		respondInternalServerError(c, "Failed to get batch: "+err.Error())
		return
	}

	rowErrs, err := h.batches.ListRowErrors(c.Request.Context(), batchID)
	if err != nil {
		respondInternalServerError(c, "Failed to list batch errors: "+err.Error())
		return
	}

	response := model.BatchErrorsResponse{
		BatchID: batchID,
		Errors:  make([]model.RowErrorDTO, 0, len(rowErrs)),
	}
	for _, rowErr := range rowErrs {
		response.Errors = append(response.Errors, model.RowErrorDTO{
			RowNumber: rowErr.RowNumber,
			Message:   rowErr.Message,
			CreatedAt: rowErr.CreatedAt,
		})
	}
	respondOK(c, response)
}

// queryInt parses an optional integer query parameter.
func queryInt(c *gin.Context, name string, defaultValue int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s parameter: %q", name, raw)
	}
	return value, nil
}
