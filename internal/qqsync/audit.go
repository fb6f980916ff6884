package qqsync

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/qqsync/webui-bridge/internal/biz/domain"
)

// AuditLog persists admin actions using SQLite
type AuditLog struct {
	db *sql.DB
}

// NewAuditLog creates a new audit log store
func NewAuditLog(dbPath string) (*AuditLog, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_logs (
			id TEXT PRIMARY KEY,
			action TEXT NOT NULL,
			operator TEXT NOT NULL,
			target TEXT NOT NULL DEFAULT '',
			details TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs(created_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &AuditLog{db: db}, nil
}

// Close closes the database connection
func (l *AuditLog) Close() error {
	return l.db.Close()
}

// Record appends one admin action
func (l *AuditLog) Record(ctx context.Context, action, operator, target, details string) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, action, operator, target, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), action, operator, target, details, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// Query returns entries matching the filters, newest first
func (l *AuditLog) Query(ctx context.Context, q domain.AuditQuery) ([]domain.AuditEntry, error) {
	query := `
		SELECT id, action, operator, target, details, created_at
		FROM audit_logs
		WHERE 1=1`
	var args []any

	if q.Days > 0 {
		query += ` AND created_at >= ?`
		args = append(args, time.Now().AddDate(0, 0, -q.Days).Unix())
	}
	if q.ActionType != "" {
		query += ` AND action = ?`
		args = append(args, q.ActionType)
	}
	if q.Operator != "" {
		query += ` AND operator = ?`
		args = append(args, q.Operator)
	}

	query += ` ORDER BY created_at DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.Action, &e.Operator, &e.Target, &e.Details, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Time = time.Unix(createdAt, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit logs: %w", err)
	}
	return entries, nil
}
