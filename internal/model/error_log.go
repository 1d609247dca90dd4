package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ErrorLogStore persists handled request errors.
type ErrorLogStore interface {
	Create(ctx context.Context, entry ErrorLog) error
	List(ctx context.Context, limit int) ([]ErrorLog, error)
}

// ErrorLog describes one failed request.
type ErrorLog struct {
	ID        uuid.UUID      `json:"id"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Stack     string         `json:"stack,omitempty"`
	Status    int            `json:"status"`
	Method    string         `json:"method"`
	URL       string         `json:"url"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
