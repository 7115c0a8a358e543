package sheets

import (
	"context"
	"errors"

	"github.com/merosu1777-dotcom/gas-management-app/internal/core"
)

// ErrRecordNotFound is returned by RecordStore lookups and mutations when no
// row carries the given id, e.g. after a concurrent delete.
var ErrRecordNotFound = errors.New("record not found")

// Ports for outbound adapters.
type (
	// RecordStore is the primary ledger: an ordered tabular store of usage
	// records. Reads come back raw; parsing is the normalizer's job.
	RecordStore interface {
		// Append adds a new record at the end of the store.
		Append(ctx context.Context, r core.Record) error

		// ListRows returns every stored row in sheet order.
		ListRows(ctx context.Context) ([]core.RecordRow, error)

		// Find returns the raw row identified by id.
		Find(ctx context.Context, id string) (core.RecordRow, error)

		// Update overwrites the row identified by id with the record's
		// values. The id and created_at cells are left untouched.
		Update(ctx context.Context, id string, r core.Record) error

		// Delete removes the row identified by id.
		Delete(ctx context.Context, id string) error
	}

	// BackupLog is the append-only mirror that receives a record's full
	// pre-mutation state before any edit or delete touches the store.
	// Implementations create the log with a header row when absent.
	// Nothing is ever removed from it.
	BackupLog interface {
		AppendBackup(ctx context.Context, row core.RecordRow) error
	}

	// ReceiptStorage hosts receipt images. Upload is independent of the
	// record mutation consuming its URL; a mutation that fails after a
	// successful upload simply orphans the file.
	ReceiptStorage interface {
		// Upload stores the bytes under name and returns a publicly
		// readable URL.
		Upload(ctx context.Context, name string, data []byte) (url string, err error)
	}
)
