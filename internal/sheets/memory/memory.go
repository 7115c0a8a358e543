package memory

import (
	"context"
	"sync"

	"github.com/merosu1777-dotcom/gas-management-app/internal/core"
	ports "github.com/merosu1777-dotcom/gas-management-app/internal/sheets"
)

// Store keeps ledger rows in memory with the same raw-row semantics as the
// spreadsheet backend. Used for local development and tests.
type Store struct {
	mu      sync.Mutex
	rows    []core.RecordRow
	backups []core.RecordRow
}

var (
	_ ports.RecordStore = (*Store)(nil)
	_ ports.BackupLog   = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

// Seed replaces the stored rows, bypassing validation. Test helper.
func (s *Store) Seed(rows []core.RecordRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append([]core.RecordRow(nil), rows...)
}

func (s *Store) Append(_ context.Context, r core.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, r.WithDistance().Row())
	return nil
}

func (s *Store) ListRows(_ context.Context) ([]core.RecordRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.RecordRow, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

func (s *Store) Find(_ context.Context, id string) (core.RecordRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return core.RecordRow{}, ports.ErrRecordNotFound
}

func (s *Store) Update(_ context.Context, id string, r core.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, row := range s.rows {
		if row.ID == id {
			next := r.WithDistance().Row()
			// The id and creation timestamp cells never change on edit,
			// and the receipt cell is only touched by a replacement.
			next.ID = row.ID
			next.CreatedAt = row.CreatedAt
			if next.ReceiptURL == "" {
				next.ReceiptURL = row.ReceiptURL
			}
			s.rows[i] = next
			return nil
		}
	}
	return ports.ErrRecordNotFound
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, row := range s.rows {
		if row.ID == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return ports.ErrRecordNotFound
}

func (s *Store) AppendBackup(_ context.Context, row core.RecordRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backups = append(s.backups, row)
	return nil
}

// Backups returns a copy of the backup log. Test helper.
func (s *Store) Backups() []core.RecordRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.RecordRow, len(s.backups))
	copy(out, s.backups)
	return out
}
