package backend

import (
	"context"

	"github.com/merosu1777-dotcom/gas-management-app/internal/sheets"
)

// Backend is a ledger store together with its backup log. Every backend
// carries both: a store without a backup log could lose data on edits.
type Backend interface {
	sheets.RecordStore
	sheets.BackupLog
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance, the optional receipt storage,
// and an optional cleanup function.
type BackendResult struct {
	Backend  Backend
	Receipts sheets.ReceiptStorage
	Cleanup  CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Google Sheets specific; credentials come from the environment.
	GoogleSpreadsheetID string

	// Receipt storage (Google Drive)
	ReceiptsEnabled bool
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
