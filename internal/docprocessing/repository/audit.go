package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/motorlog/motorlog-backend/pkg/database"
)

// AuditEntry records one processed capture. Only the summary survives;
// the image itself is zeroed before this row is written.
type AuditEntry struct {
	ID                   string     `db:"id" json:"id"`
	CaptureID            string     `db:"capture_id" json:"capture_id"`
	Kind                 string     `db:"kind" json:"kind"`
	CapturedBy           *string    `db:"captured_by" json:"captured_by,omitempty"`
	Valid                bool       `db:"valid" json:"valid"`
	ErrorCount           int        `db:"error_count" json:"error_count"`
	WarningCount         int        `db:"warning_count" json:"warning_count"`
	Summary              string     `db:"summary" json:"summary"`
	ProcessingDurationMs int64      `db:"processing_duration_ms" json:"processing_duration_ms"`
	ImageDeletedAt       *time.Time `db:"image_deleted_at" json:"image_deleted_at,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
}

// AuditRepository persists capture audit rows.
type AuditRepository struct {
	db *database.DB
}

// NewAuditRepository creates an audit repository.
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert writes an audit row for a processed capture.
func (r *AuditRepository) Insert(ctx context.Context, entry *AuditEntry) error {
	query := `
		INSERT INTO document_capture_audit
			(capture_id, kind, captured_by, valid, error_count, warning_count,
			 summary, processing_duration_ms, image_deleted_at)
		VALUES
			(:capture_id, :kind, :captured_by, :valid, :error_count, :warning_count,
			 :summary, :processing_duration_ms, :image_deleted_at)`

	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("failed to insert capture audit: %w", err)
	}
	return nil
}

// ListRecent returns the most recent audit entries, newest first.
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, capture_id, kind, captured_by, valid, error_count, warning_count,
		       summary, processing_duration_ms, image_deleted_at, created_at
		FROM document_capture_audit
		ORDER BY created_at DESC
		LIMIT $1`

	var entries []AuditEntry
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list capture audit: %w", err)
	}
	return entries, nil
}
