package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/starter-api/internal/api/http/response"
	"github.com/dtroode/starter-api/internal/model"
)

// ErrorLogReader lists recorded request errors.
type ErrorLogReader interface {
	List(ctx context.Context, limit int) ([]model.ErrorLog, error)
}

// Logs serves the error-log endpoint.
type Logs struct {
	logs ErrorLogReader
}

// NewLogs creates a new Logs handler.
func NewLogs(logs ErrorLogReader) *Logs {
	return &Logs{logs: logs}
}

// List returns the newest error logs.
func (h *Logs) List(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		_ = c.Error(err)
		return
	}

	logs, err := h.logs.List(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if logs == nil {
		logs = []model.ErrorLog{}
	}
	response.OK(c, http.StatusOK, "Logs retrieved successfully", logs)
}
