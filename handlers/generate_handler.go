package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/llm-router-lab/internal/observability"
	"github.com/upb/llm-router-lab/services/generation"
	"github.com/upb/llm-router-lab/utils"
)

const maxGenerateBody = 10 << 20

// GenerationService defines the pipeline operations the handler needs
type GenerationService interface {
	Generate(ctx context.Context, requests []generation.Request) ([]generation.Record, error)
}

// Uploader forwards generation records to the evaluation service
type Uploader interface {
	Upload(ctx context.Context, datasetName string, records []generation.Record) error
}

// GenerateHandler handles batch generation requests
type GenerateHandler struct {
	pipeline GenerationService
	uploader Uploader
	logger   *zap.Logger
	log      *observability.ZapLogger
}

// NewGenerateHandler creates a GenerateHandler. uploader may be nil.
func NewGenerateHandler(pipeline GenerationService, uploader Uploader, logger *zap.Logger) *GenerateHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerateHandler{
		pipeline: pipeline,
		uploader: uploader,
		logger:   logger,
		log:      observability.NewContextLogger(logger),
	}
}

// HandleGenerate handles POST /api/v1/generate. With a dataset query parameter the
// records are also uploaded under that name.
func (h *GenerateHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	datasetName := r.URL.Query().Get("dataset")

	if datasetName != "" && h.uploader == nil {
		_ = utils.WriteError(w, http.StatusServiceUnavailable, "Result upload is not configured", nil)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxGenerateBody))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}
	requests, err := generation.DecodeRequests(body)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	records, err := h.pipeline.Generate(ctx, requests)
	if err != nil {
		h.log.Error(ctx, "generation failed", zap.Int("requests", len(requests)), zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	message := ""
	if datasetName != "" {
		if err := h.uploader.Upload(ctx, datasetName, records); err != nil {
			HandleServiceError(w, err, h.logger)
			return
		}
		message = fmt.Sprintf("uploaded %d records to dataset %s", len(records), datasetName)
	}

	h.log.Info(ctx, "generation completed", zap.Int("records", len(records)))
	if err := utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse{Data: records, Message: message}); err != nil {
		h.log.Error(ctx, "failed to write generate response", zap.Error(err))
	}
}
