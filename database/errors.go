package database

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	apperrors "github.com/kbukum/ssehub/errors"
)

// failure is the storage-level cause of a failed statement.
type failure int

const (
	failureOther failure = iota
	failureNotFound
	failureDuplicate
	// failureConnection means the database could not be reached at all.
	failureConnection
	// failureContention covers lock and busy conditions that clear on retry.
	failureContention
	// failureTimeout means the caller's deadline expired first.
	failureTimeout
)

// Driver messages for servers reached over the network. SQLite reports
// through typed errors instead.
var (
	connectionMarkers = []string{
		"connection refused", "connection reset", "broken pipe", "i/o timeout",
		"no route to host", "network is unreachable", "connection closed",
		"connection lost", "driver: bad connection", "invalid connection",
	}
	contentionMarkers = []string{
		"deadlock", "lock timeout", "too many connections", "connection pool exhausted",
	}
)

func classify(err error) failure {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return failureNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return failureDuplicate
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return failureTimeout
	}

	var lite sqlite3.Error
	if errors.As(err, &lite) {
		switch {
		case lite.ExtendedCode == sqlite3.ErrConstraintUnique, lite.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
			return failureDuplicate
		case lite.Code == sqlite3.ErrBusy, lite.Code == sqlite3.ErrLocked:
			return failureContention
		case lite.Code == sqlite3.ErrCantOpen, lite.Code == sqlite3.ErrIoErr:
			return failureConnection
		}
		return failureOther
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, connectionMarkers):
		return failureConnection
	case containsAny(msg, contentionMarkers):
		return failureContention
	}
	return failureOther
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// IsRetryableError reports whether repeating the statement may succeed.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	switch classify(err) {
	case failureConnection, failureContention, failureTimeout:
		return true
	}
	return false
}

// FromDatabase converts a database error into an AppError for resource.
// The driver message stays in the cause and never reaches clients.
func FromDatabase(err error, resource string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	switch classify(err) {
	case failureNotFound:
		return apperrors.NotFound(resource, "")
	case failureDuplicate:
		return apperrors.New(apperrors.ErrCodeAlreadyExists,
			fmt.Sprintf("A %s with these details already exists.", resource),
			http.StatusConflict).WithCause(err)
	case failureConnection:
		return apperrors.DBConnection().WithCause(err)
	case failureContention, failureTimeout:
		retry := apperrors.New(apperrors.ErrCodeDatabaseError,
			"Database operation failed. Please try again.",
			http.StatusServiceUnavailable).WithCause(err)
		retry.Retryable = true
		return retry
	}
	return apperrors.DatabaseError(err)
}
