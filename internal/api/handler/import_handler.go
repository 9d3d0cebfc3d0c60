package handler

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cuongbtq/hr-records-be/internal/api/dto"
	"github.com/cuongbtq/hr-records-be/internal/config"
	"github.com/cuongbtq/hr-records-be/internal/importer"
	"github.com/cuongbtq/hr-records-be/internal/jobs"
	"github.com/cuongbtq/hr-records-be/internal/progress"
)

// ImportHandler handles CSV import HTTP requests
type ImportHandler struct {
	logger       *slog.Logger
	rabbitClient JobEnqueuer
	progress     *progress.Store
	importCfg    config.ImportConfig
	maxAttempts  int
}

// NewImportHandler creates a new ImportHandler instance
func NewImportHandler(deps *Dependencies) *ImportHandler {
	return &ImportHandler{
		logger:       deps.Logger,
		rabbitClient: deps.RabbitClient,
		progress:     deps.Progress,
		importCfg:    deps.Import,
		maxAttempts:  deps.MaxAttempts,
	}
}

// UploadAndImportCSV handles POST /api/import/employees. The file is parsed
// and split up front; each batch becomes one queued job and the response
// returns immediately with the job id to poll.
func (h *ImportHandler) UploadAndImportCSV(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "No file uploaded")
		return
	}

	if ext := strings.ToLower(filepath.Ext(fileHeader.Filename)); ext != ".csv" {
		respondError(c, http.StatusBadRequest, "Only CSV files are allowed")
		return
	}

	if h.importCfg.MaxFileSize > 0 && fileHeader.Size > h.importCfg.MaxFileSize {
		respondError(c, http.StatusBadRequest, "File too large")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", slog.String("error", err.Error()))
		respondInternalError(c)
		return
	}
	defer file.Close()

	rows, err := importer.ParseCSV(file)
	if err != nil {
		h.logger.Error("Failed to parse CSV", slog.String("error", err.Error()))
		respondError(c, http.StatusInternalServerError, "Failed to parse CSV file")
		return
	}

	batches := importer.Split(rows, h.importCfg.BatchSize)
	if len(batches) == 0 {
		respondValidationError(c, []string{}, "CSV file is empty or contains no valid data")
		return
	}

	jobID := uuid.New().String()

	if err := h.progress.Init(c.Request.Context(), jobID, len(batches)); err != nil {
		h.logger.Error("Failed to initialize import progress",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusInternalServerError, "Failed to initialize import process")
		return
	}

	for index, batch := range batches {
		payload := jobs.CSVBatchPayload{
			Batch:        batch,
			JobID:        jobID,
			CurrentBatch: index,
			TotalBatches: len(batches),
		}

		env, err := jobs.NewEnvelope(jobs.TopicProcessCSVBatch, h.maxAttempts, payload)
		if err != nil {
			h.logger.Error("Failed to build batch envelope",
				slog.String("job_id", jobID),
				slog.Int("batch", index),
				slog.String("error", err.Error()),
			)
			h.failImport(c, jobID)
			respondError(c, http.StatusInternalServerError, "Failed to initialize import process")
			return
		}

		body, err := env.Encode()
		if err != nil {
			h.logger.Error("Failed to encode batch envelope",
				slog.String("job_id", jobID),
				slog.Int("batch", index),
				slog.String("error", err.Error()),
			)
			h.failImport(c, jobID)
			respondError(c, http.StatusInternalServerError, "Failed to initialize import process")
			return
		}

		if err := h.rabbitClient.Publish(c.Request.Context(), jobs.TopicProcessCSVBatch, body); err != nil {
			h.logger.Error("Failed to enqueue import batch",
				slog.String("job_id", jobID),
				slog.Int("batch", index),
				slog.String("error", err.Error()),
			)
			h.failImport(c, jobID)
			respondError(c, http.StatusServiceUnavailable, "Failed to initialize import process")
			return
		}
	}

	h.logger.Info("CSV import started",
		slog.String("job_id", jobID),
		slog.Int("total_rows", len(rows)),
		slog.Int("total_batches", len(batches)),
	)

	respondCreated(c, dto.ImportStartedResponse{
		JobID:        jobID,
		TotalRows:    len(rows),
		TotalBatches: len(batches),
		BatchSize:    h.importCfg.BatchSize,
	}, "CSV import started successfully")
}

// failImport marks the progress record as failed when enqueueing is aborted
// partway, so pollers see a terminal state instead of a record stuck at
// "processing" until its TTL. Batches enqueued before the abort are still
// processed by the worker.
func (h *ImportHandler) failImport(c *gin.Context, jobID string) {
	if err := h.progress.Fail(c.Request.Context(), jobID, "Failed to enqueue import batches"); err != nil {
		h.logger.Error("Failed to mark import as failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}

// GetImportStatus handles GET /api/import/status/:jobId
func (h *ImportHandler) GetImportStatus(c *gin.Context) {
	jobID := c.Param("jobId")
	if _, err := uuid.Parse(jobID); err != nil {
		respondValidationError(c, []string{"Invalid job ID format"}, "Validation failed")
		return
	}

	record, err := h.progress.Get(c.Request.Context(), jobID)
	if err != nil {
		h.logger.Error("Failed to get import progress",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		respondInternalError(c)
		return
	}

	if record == nil {
		respondNotFound(c, "Import job not found")
		return
	}

	respondSuccess(c, record)
}
