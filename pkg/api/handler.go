package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/vignesh-goutham/mmcompute/pkg/apperr"
	"github.com/vignesh-goutham/mmcompute/pkg/types"
)

// Runner executes a compute run
type Runner interface {
	Run(ctx context.Context, runID string) (types.RunStatus, error)
}

// RunRequest triggers a run
type RunRequest struct {
	RunID string `json:"run_id" validate:"required"`
}

// RunResponse reports the final status of a run
type RunResponse struct {
	RunID      string          `json:"run_id"`
	Status     types.RunStatus `json:"status"`
	ReceivedAt string          `json:"received_at"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Handler serves the compute endpoints
type Handler struct {
	runner   Runner
	validate *validator.Validate
	now      func() time.Time
}

// NewHandler creates the compute endpoints around runner
func NewHandler(runner Runner) *Handler {
	return &Handler{runner: runner, validate: validator.New(), now: time.Now}
}

// RegisterRoutes mounts the health and compute routes on e
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.POST("/compute/run", h.RunCompute)
}

// Health reports that the service is up
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// RunCompute runs the pipeline synchronously and returns its final status
func (h *Handler) RunCompute(c echo.Context) error {
	receivedAt := h.now()

	var req RunRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, apperr.New(apperr.InvalidArgument, "invalid request body"))
	}

	resp, err := execute(c.Request().Context(), h.runner, h.validate, req, receivedAt)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func execute(ctx context.Context, runner Runner, v *validator.Validate, req RunRequest, receivedAt time.Time) (RunResponse, error) {
	req.RunID = strings.TrimSpace(req.RunID)
	if err := v.Struct(req); err != nil {
		return RunResponse{}, apperr.New(apperr.InvalidArgument, "run_id must be non-empty")
	}

	status, err := runner.Run(ctx, req.RunID)
	if err != nil {
		return RunResponse{}, err
	}
	return RunResponse{
		RunID:      req.RunID,
		Status:     status,
		ReceivedAt: receivedAt.UTC().Format(time.RFC3339),
	}, nil
}

func errorJSON(c echo.Context, err error) error {
	kind := apperr.KindOf(err)
	return c.JSON(apperr.HTTPStatus(kind), ErrorResponse{Error: string(kind), Message: err.Error()})
}
