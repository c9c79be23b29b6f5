package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motorlog/motorlog-backend/internal/docprocessing/repository"
	"github.com/motorlog/motorlog-backend/pkg/testutil"
)

func TestAuditRepository_Insert(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	user := "user-7"
	deletedAt := time.Now()
	entry := &repository.AuditEntry{
		CaptureID:            "cap-123",
		Kind:                 "vin",
		CapturedBy:           &user,
		Valid:                true,
		ErrorCount:           0,
		WarningCount:         1,
		Summary:              "2002 Honda Accord",
		ProcessingDurationMs: 1840,
		ImageDeletedAt:       &deletedAt,
	}

	mockDB.ExpectExec("INSERT INTO document_capture_audit").
		WithArgs("cap-123", "vin", user, true, 0, 1, "2002 Honda Accord", int64(1840), deletedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repository.NewAuditRepository(mockDB.DB).Insert(context.Background(), entry)
	require.NoError(t, err)

	mockDB.ExpectationsWereMet(t)
}

func TestAuditRepository_InsertWithoutUser(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	entry := &repository.AuditEntry{
		CaptureID:            "cap-456",
		Kind:                 "odometer",
		Valid:                false,
		ErrorCount:           1,
		ProcessingDurationMs: 95,
	}

	mockDB.ExpectExec("INSERT INTO document_capture_audit").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repository.NewAuditRepository(mockDB.DB).Insert(context.Background(), entry)
	require.NoError(t, err)

	mockDB.ExpectationsWereMet(t)
}

func TestAuditRepository_ListRecent(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	now := time.Now()
	rows := testutil.MockRows(
		"id", "capture_id", "kind", "captured_by", "valid", "error_count",
		"warning_count", "summary", "processing_duration_ms", "image_deleted_at", "created_at",
	).
		AddRow("a1", "cap-2", "odometer", nil, true, 0, 0, "87,432 mi", int64(210), nil, now).
		AddRow("a2", "cap-1", "vin", "user-7", true, 0, 1, "2002 Honda Accord", int64(1840), now, now.Add(-time.Minute))

	mockDB.ExpectQuery("FROM document_capture_audit").
		WithArgs(25).
		WillReturnRows(rows)

	entries, err := repository.NewAuditRepository(mockDB.DB).ListRecent(context.Background(), 25)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "cap-2", entries[0].CaptureID)
	assert.Equal(t, "2002 Honda Accord", entries[1].Summary)

	mockDB.ExpectationsWereMet(t)
}
