// Package v1handler implements the v1 scan API on a gin router.
package v1handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"osint/internal/scanner"
	"osint/pkg/logger"
	"osint/pkg/serrors"
)

// Deps are the collaborators of the v1 handlers.
type Deps struct {
	Scanner scanner.Scanner
	// UploadDir is where images posted for EXIF scans are stored.
	UploadDir string
	// MaxUploadBytes bounds a multipart scan request. Zero means 32 MiB.
	MaxUploadBytes int64
}

// Handler serves the v1 API.
type Handler struct {
	deps Deps
}

// New creates a Handler.
func New(deps Deps) *Handler {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 32 << 20
	}

	return &Handler{deps: deps}
}

// Register mounts the v1 routes on r.
func (h *Handler) Register(r gin.IRouter) {
	scans := r.Group("/scans")
	scans.POST("", h.CreateScan)
	scans.GET("", h.ListScans)
	scans.GET("/:id", h.GetScan)
	scans.DELETE("/:id", h.DeleteScan)
	scans.GET("/:id/correlation", h.GetCorrelation)
	scans.GET("/:id/graph", h.GetGraph)
	scans.GET("/:id/export/:part", h.GetExport)
}

// Error is the body of every error response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorStatusCode pairs an error body with its HTTP status.
type ErrorStatusCode struct {
	StatusCode int
	Response   Error
}

// NewError maps err to an HTTP status and a client-safe body. Messages of
// semantic errors are returned as is, except for internal ones; anything else
// becomes an opaque internal error.
func (h *Handler) NewError(ctx context.Context, err error) *ErrorStatusCode {
	code := serrors.KindOf(err)
	if code == nil {
		code = serrors.ErrInternal
	}
	message := serrors.MessageOf(err)
	if message == "" || code == serrors.ErrInternal {
		message = defaultMessage(code)
	}
	status := statusOf(code)

	if status >= http.StatusInternalServerError {
		logger.Error(ctx, "request failed", zap.Error(err))
	} else {
		logger.Debug(ctx, "request rejected", zap.Error(err))
	}

	return &ErrorStatusCode{
		StatusCode: status,
		Response: Error{
			Code:    code.Error(),
			Message: message,
		},
	}
}

func statusOf(k serrors.Kind) int {
	switch k {
	case serrors.ErrNotFound:
		return http.StatusNotFound
	case serrors.ErrBadRequest:
		return http.StatusBadRequest
	case serrors.ErrUnauthorized:
		return http.StatusUnauthorized
	case serrors.ErrForbidden:
		return http.StatusForbidden
	case serrors.ErrConflict:
		return http.StatusConflict
	case serrors.ErrTimeout:
		return http.StatusGatewayTimeout
	case serrors.ErrUnavailable:
		return http.StatusServiceUnavailable
	case serrors.ErrRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func defaultMessage(k serrors.Kind) string {
	switch k {
	case serrors.ErrNotFound:
		return "resource not found"
	case serrors.ErrBadRequest:
		return "bad request"
	case serrors.ErrUnauthorized:
		return "unauthorized"
	case serrors.ErrForbidden:
		return "forbidden"
	case serrors.ErrConflict:
		return "conflict"
	case serrors.ErrTimeout:
		return "timed out"
	case serrors.ErrUnavailable:
		return "service unavailable"
	case serrors.ErrRateLimited:
		return "too many requests"
	default:
		return "internal error"
	}
}

// abort writes the error response of err.
func (h *Handler) abort(c *gin.Context, err error) {
	res := h.NewError(c.Request.Context(), err)
	c.AbortWithStatusJSON(res.StatusCode, res.Response)
}
