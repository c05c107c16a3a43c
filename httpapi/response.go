package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ByLCY/lessoncanvas/engine"
	"github.com/ByLCY/lessoncanvas/host"
	"github.com/ByLCY/lessoncanvas/pages"
	"github.com/ByLCY/lessoncanvas/viewport"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// respondEngineError 把引擎的哨兵错误映射到 HTTP 状态码。
func respondEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pages.ErrPageOutOfRange):
		RespondError(c, http.StatusBadRequest, "page_out_of_range", err)
	case errors.Is(err, viewport.ErrInvalidZoom):
		RespondError(c, http.StatusBadRequest, "invalid_zoom", err)
	case errors.Is(err, pages.ErrAnimating):
		RespondError(c, http.StatusConflict, "animating", err)
	case errors.Is(err, pages.ErrNoPages):
		RespondError(c, http.StatusConflict, "no_pages", err)
	case errors.Is(err, viewport.ErrNotReady):
		RespondError(c, http.StatusServiceUnavailable, "not_ready", err)
	case errors.Is(err, viewport.ErrDestroyed), errors.Is(err, host.ErrClosed):
		RespondError(c, http.StatusServiceUnavailable, "closed", err)
	case errors.Is(err, context.DeadlineExceeded):
		RespondError(c, http.StatusGatewayTimeout, "timeout", err)
	case errors.Is(err, context.Canceled):
		RespondError(c, http.StatusServiceUnavailable, "canceled", err)
	case errors.Is(err, engine.ErrNoSnapshot), errors.Is(err, engine.ErrNoExporter):
		RespondError(c, http.StatusNotImplemented, "unsupported", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}
