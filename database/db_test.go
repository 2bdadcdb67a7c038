package database

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	apperrors "github.com/kbukum/ssehub/errors"
	"github.com/kbukum/ssehub/logger"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	cfg := memoryConfig()
	db, err := New(cfg, logger.Nop(), sqlite.Open(cfg.DSN))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.AutoMigrate(&widget{}); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return db
}

func TestDB_BaseModelGeneratesID(t *testing.T) {
	db := newTestDB(t)
	w := widget{Name: "a"}
	if err := db.WithContext(context.Background()).Create(&w).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(w.ID) != 36 {
		t.Errorf("expected uuid id, got %q", w.ID)
	}
	if w.CreatedAt.IsZero() {
		t.Error("expected CreatedAt")
	}
}

func TestDB_WithTransaction(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&widget{Name: "rolled-back"}).Error; err != nil {
			return err
		}
		return errors.New("abort")
	})
	if err == nil || err.Error() != "abort" {
		t.Fatalf("expected abort error, got %v", err)
	}

	var count int64
	db.WithContext(ctx).Model(&widget{}).Count(&count)
	if count != 0 {
		t.Errorf("expected rollback, found %d rows", count)
	}

	if err := db.WithTransaction(ctx, func(tx *gorm.DB) error {
		return tx.Create(&widget{Name: "kept"}).Error
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	db.WithContext(ctx).Model(&widget{}).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}
}

func TestDB_CloseIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
	if h := db.CheckHealth(context.Background()); h.Connected {
		t.Error("closed db should not be healthy")
	}
}

func TestFromDatabase(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	var missing widget
	err := db.WithContext(ctx).First(&missing, "id = ?", "nope").Error
	if got := FromDatabase(err, "widget"); got.Code != apperrors.ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %s", got.Code)
	}

	_ = db.WithContext(ctx).Create(&widget{Name: "dup"}).Error
	err = db.WithContext(ctx).Create(&widget{Name: "dup"}).Error
	if got := FromDatabase(err, "widget"); got.Code != apperrors.ErrCodeAlreadyExists {
		t.Errorf("expected ALREADY_EXISTS, got %s (%v)", got.Code, err)
	}

	conn := FromDatabase(errors.New("dial tcp: connection refused"), "widget")
	if conn.Code != apperrors.ErrCodeDBConnection || conn.Message != apperrors.DefaultDBConnectionMessage {
		t.Errorf("expected DB connection error, got %+v", conn)
	}
	if !conn.Retryable {
		t.Error("connection errors should be retryable")
	}

	if FromDatabase(nil, "widget") != nil {
		t.Error("nil error should map to nil")
	}
	if got := FromDatabase(errors.New("syntax error"), "widget"); got.Code != apperrors.ErrCodeDatabaseError {
		t.Errorf("expected DATABASE_ERROR, got %s", got.Code)
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadlock", errors.New("deadlock detected"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"deadline", fmt.Errorf("insert: %w", context.DeadlineExceeded), true},
		{"sqlite unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, false},
		{"syntax", errors.New("syntax error"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRetryableError(tc.err); got != tc.want {
				t.Errorf("IsRetryableError(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestFromDatabase_Timeout(t *testing.T) {
	db := newTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := db.WithContext(ctx).Create(&widget{Name: "late"}).Error
	got := FromDatabase(err, "widget")
	if got == nil || got.Code != apperrors.ErrCodeDatabaseError || !got.Retryable {
		t.Fatalf("expected retryable DATABASE_ERROR for a canceled statement, got %+v (%v)", got, err)
	}
	if got.HTTPStatus != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", got.HTTPStatus)
	}
}
