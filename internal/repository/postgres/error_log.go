package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/dtroode/starter-api/internal/model"
)

var _ model.ErrorLogStore = (*ErrorLogRepository)(nil)

type ErrorLogRepository struct {
	db *Connection
}

func NewErrorLogRepository(db *Connection) *ErrorLogRepository {
	return &ErrorLogRepository{db: db}
}

func (r *ErrorLogRepository) Create(ctx context.Context, entry model.ErrorLog) error {
	const query = `
        INSERT INTO error_logs (id, level, message, stack, status, method, url, meta, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	meta, err := json.Marshal(entry.Meta)
	if err != nil {
		return fmt.Errorf("failed to encode error log meta: %w", err)
	}

	_, err = r.db.Exec(ctx, query,
		entry.ID, entry.Level, entry.Message, entry.Stack, entry.Status, entry.Method, entry.URL,
		meta, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create error log: %w", err)
	}
	return nil
}

func (r *ErrorLogRepository) List(ctx context.Context, limit int) ([]model.ErrorLog, error) {
	const query = `
        SELECT id, level, message, stack, status, method, url, meta, created_at
        FROM error_logs ORDER BY created_at DESC LIMIT $1
    `

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list error logs: %w", err)
	}
	defer rows.Close()

	entries := make([]model.ErrorLog, 0, limit)
	for rows.Next() {
		var (
			entry model.ErrorLog
			meta  []byte
		)
		if err := rows.Scan(
			&entry.ID, &entry.Level, &entry.Message, &entry.Stack, &entry.Status, &entry.Method,
			&entry.URL, &meta, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan error log: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &entry.Meta); err != nil {
				return nil, fmt.Errorf("failed to decode error log meta: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate error logs: %w", err)
	}

	return entries, nil
}
