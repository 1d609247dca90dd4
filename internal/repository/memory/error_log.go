package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dtroode/starter-api/internal/model"
)

var _ model.ErrorLogStore = (*ErrorLogRepository)(nil)

type ErrorLogRepository struct {
	mu      sync.RWMutex
	entries []model.ErrorLog
}

func NewErrorLogRepository() *ErrorLogRepository {
	return &ErrorLogRepository{}
}

func (r *ErrorLogRepository) Create(_ context.Context, entry model.ErrorLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()
	return nil
}

func (r *ErrorLogRepository) List(_ context.Context, limit int) ([]model.ErrorLog, error) {
	r.mu.RLock()
	out := make([]model.ErrorLog, len(r.entries))
	copy(out, r.entries)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
