package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/llm-router-lab/internal/observability"
	"github.com/upb/llm-router-lab/services/routing"
	"github.com/upb/llm-router-lab/utils"
)

// RouteRequest is the body of POST /api/v1/route.
type RouteRequest struct {
	Input          string `json:"input" validate:"required"`
	ReturnMetadata bool   `json:"return_metadata,omitempty"`
	MetadataOnly   bool   `json:"metadata_only,omitempty"`
}

// RouteResponse carries the selected model's output and, when asked for, the routing
// metadata.
type RouteResponse struct {
	Router   string         `json:"router"`
	Output   any            `json:"output,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RouterService defines the routing operations the handler needs
type RouterService interface {
	Run(ctx context.Context, input string, opts routing.RunOptions) (routing.Result, error)
	Name() string
}

// RouteHandler handles routing requests
type RouteHandler struct {
	router RouterService
	logger *zap.Logger
	log    *observability.ZapLogger
}

func NewRouteHandler(router RouterService, logger *zap.Logger) *RouteHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RouteHandler{router: router, logger: logger, log: observability.NewContextLogger(logger)}
}

// HandleRoute handles POST /api/v1/route
func (h *RouteHandler) HandleRoute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Warn(ctx, "failed to parse request body", zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	res, err := h.router.Run(ctx, req.Input, routing.RunOptions{
		ReturnMetadata: req.ReturnMetadata,
		MetadataOnly:   req.MetadataOnly,
	})
	if err != nil {
		h.log.Error(ctx, "routing request failed", zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.log.Debug(ctx, "routed request", zap.String("router", h.router.Name()))
	if err := utils.WriteOK(w, RouteResponse{
		Router:   h.router.Name(),
		Output:   res.Output,
		Metadata: res.Metadata,
	}); err != nil {
		h.log.Error(ctx, "failed to write route response", zap.Error(err))
	}
}
