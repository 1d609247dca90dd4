package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/starter-api/internal/logger"
	"github.com/dtroode/starter-api/internal/model"
)

const (
	DefaultErrorLogLimit = 100
	MaxErrorLogLimit     = 500

	errorLogWriteTimeout = 5 * time.Second
)

// ErrorLog records handled request errors in the background. Recording
// never blocks the caller: entries are dropped when the queue is full.
type ErrorLog struct {
	store   model.ErrorLogStore
	archive model.Storage
	logger  *logger.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan model.ErrorLog
	done   chan struct{}
}

// NewErrorLog starts the recorder. archive may be nil.
func NewErrorLog(store model.ErrorLogStore, archive model.Storage, logger *logger.Logger, bufferSize int) *ErrorLog {
	e := &ErrorLog{
		store:   store,
		archive: archive,
		logger:  logger,
		queue:   make(chan model.ErrorLog, bufferSize),
		done:    make(chan struct{}),
	}
	go e.run()
	return e
}

// Record enqueues entry and reports whether it was accepted.
func (e *ErrorLog) Record(entry model.ErrorLog) bool {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.Level == "" {
		entry.Level = "error"
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return false
	}

	select {
	case e.queue <- entry:
		return true
	default:
		e.logger.Warn("Error log: queue full, entry dropped", "message", entry.Message)
		return false
	}
}

// List returns the newest entries first. limit is clamped to [1, MaxErrorLogLimit].
func (e *ErrorLog) List(ctx context.Context, limit int) ([]model.ErrorLog, error) {
	if limit <= 0 {
		limit = DefaultErrorLogLimit
	}
	limit = min(limit, MaxErrorLogLimit)

	entries, err := e.store.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list error logs: %w", err)
	}
	return entries, nil
}

// Close stops accepting entries and waits until queued ones are written.
func (e *ErrorLog) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()

	<-e.done
}

func (e *ErrorLog) run() {
	defer close(e.done)
	for entry := range e.queue {
		e.write(entry)
	}
}

func (e *ErrorLog) write(entry model.ErrorLog) {
	ctx, cancel := context.WithTimeout(context.Background(), errorLogWriteTimeout)
	defer cancel()

	if err := e.store.Create(ctx, entry); err != nil {
		e.logger.Error("Error log: failed to persist entry",
			"entry_id", entry.ID,
			"error", err.Error())
	}

	if e.archive == nil {
		return
	}

	doc, err := json.Marshal(entry)
	if err != nil {
		e.logger.Error("Error log: failed to encode entry", "entry_id", entry.ID, "error", err.Error())
		return
	}
	if err := e.archive.Upload(ctx, ArchiveKey(entry), bytes.NewReader(doc)); err != nil {
		e.logger.Error("Error log: failed to archive entry",
			"entry_id", entry.ID,
			"error", err.Error())
	}
}

// ArchiveKey returns the object key an entry is archived under.
func ArchiveKey(entry model.ErrorLog) string {
	return fmt.Sprintf("error-logs/%s/%s.json", entry.CreatedAt.UTC().Format("2006/01/02"), entry.ID)
}
