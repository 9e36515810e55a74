// Package server provides HTTP handlers and server setup for the model router.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"modelrouter/internal/core"
	"modelrouter/internal/exhaustion"
	"modelrouter/internal/health"
	"modelrouter/internal/ratings"
	"modelrouter/internal/routing"
)

// Router is the set of operations the HTTP layer exposes.
type Router interface {
	Catalog(ctx context.Context, filter routing.Constraints) ([]core.ModelDescriptor, error)
	Model(ctx context.Context, id string) (*core.ModelDescriptor, error)
	Suggest(ctx context.Context, req routing.SuggestRequest) (*routing.SuggestResponse, error)
	Run(ctx context.Context, req routing.RunRequest) (*routing.RunResult, error)
	AccountStatus(ctx context.Context) (*exhaustion.AccountStatus, error)
	Preflight(ctx context.Context, task routing.Task) (*routing.PreflightResult, error)
	PreflightBatch(ctx context.Context, tasks []routing.Task) (*routing.BatchResult, error)
	ProviderHealth(ctx context.Context) ([]health.Report, error)
	UpdateRating(ctx context.Context, modelID string, patch ratings.Override) (*ratings.Override, error)
}

// Handler holds the HTTP handlers
type Handler struct {
	router Router
}

// NewHandler creates a new handler over router
func NewHandler(router Router) *Handler {
	return &Handler{router: router}
}

type batchRequest struct {
	Tasks []routing.Task `json:"tasks" validate:"required,min=1"`
}

func bindError(err error) error {
	return core.NewInvalidRequestError("invalid request body: "+err.Error(), err)
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// ListModels handles GET /api/models
func (h *Handler) ListModels(c echo.Context) error {
	var filter routing.Constraints
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &filter); err != nil {
		return handleError(c, bindError(err))
	}

	models, err := h.router.Catalog(c.Request().Context(), filter)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"models": models,
		"count":  len(models),
	})
}

// GetModel handles GET /api/models/:id
func (h *Handler) GetModel(c echo.Context) error {
	m, err := h.router.Model(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// SuggestModels handles POST /api/suggest-models
func (h *Handler) SuggestModels(c echo.Context) error {
	var req routing.SuggestRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, bindError(err))
	}

	resp, err := h.router.Suggest(c.Request().Context(), req)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Run handles POST /api/run
func (h *Handler) Run(c echo.Context) error {
	var req routing.RunRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, bindError(err))
	}

	resp, err := h.router.Run(c.Request().Context(), req)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// AccountStatus handles GET /api/account/status
func (h *Handler) AccountStatus(c echo.Context) error {
	status, err := h.router.AccountStatus(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

// Preflight handles POST /api/preflight
func (h *Handler) Preflight(c echo.Context) error {
	var task routing.Task
	if err := c.Bind(&task); err != nil {
		return handleError(c, bindError(err))
	}

	res, err := h.router.Preflight(c.Request().Context(), task)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// PreflightBatch handles POST /api/preflight/batch
func (h *Handler) PreflightBatch(c echo.Context) error {
	var req batchRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, bindError(err))
	}
	if err := core.ValidateStruct(req); err != nil {
		return handleError(c, err)
	}

	res, err := h.router.PreflightBatch(c.Request().Context(), req.Tasks)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ProviderHealth handles GET /api/providers/health
func (h *Handler) ProviderHealth(c echo.Context) error {
	reports, err := h.router.ProviderHealth(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"providers": reports})
}

// UpdateRating handles PATCH /api/models/:id/rating
func (h *Handler) UpdateRating(c echo.Context) error {
	var patch ratings.Override
	if err := (&echo.DefaultBinder{}).BindBody(c, &patch); err != nil {
		return handleError(c, bindError(err))
	}

	updated, err := h.router.UpdateRating(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// handleError converts router errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	var runErr *routing.RunError
	if errors.As(err, &runErr) {
		return handleRunError(c, runErr)
	}

	var gatewayErr *core.GatewayError
	if errors.As(err, &gatewayErr) {
		return c.JSON(gatewayErr.HTTPStatusCode(), gatewayErr.ToJSON())
	}

	slog.Error("unexpected error", "error", err, "path", c.Path())
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}

// handleRunError adds the retry hint and the alternative model to the error payload.
func handleRunError(c echo.Context, runErr *routing.RunError) error {
	status := http.StatusBadGateway
	body := map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "provider_error",
			"message": runErr.Error(),
		},
	}

	var gatewayErr *core.GatewayError
	if errors.As(runErr.Err, &gatewayErr) {
		status = gatewayErr.HTTPStatusCode()
		body = gatewayErr.ToJSON()
	}

	body["rate_limited"] = runErr.RateLimited
	if runErr.RateLimited {
		body["retry_after_seconds"] = runErr.RetryAfterSeconds
		c.Response().Header().Set("Retry-After", strconv.Itoa(runErr.RetryAfterSeconds))
	}
	if runErr.Alternative != nil {
		body["alternative"] = runErr.Alternative
	}
	return c.JSON(status, body)
}
