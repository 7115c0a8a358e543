package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/merosu1777-dotcom/gas-management-app/internal/cache"
	"github.com/merosu1777-dotcom/gas-management-app/internal/core"
	ports "github.com/merosu1777-dotcom/gas-management-app/internal/sheets"
)

const ledgerKey = "ledger"

type (
	// ReceiptUpload is an optional receipt image accompanying a record.
	ReceiptUpload struct {
		Filename string
		Data     []byte
	}

	// RecordInput carries the user-editable fields of a usage record.
	RecordInput struct {
		Date       time.Time
		User       string
		OdoStart   int64
		OdoEnd     int64
		FuelLiters float64
		PriceYen   int64
		Receipt    *ReceiptUpload
	}

	// LedgerService coordinates reads and mutations of the shared ledger.
	// Reads go through a short-lived cache; every successful mutation
	// invalidates it synchronously so the next read observes the write.
	// Edits and deletes append the record's pre-mutation state to the
	// backup log before touching the store.
	LedgerService struct {
		store    ports.RecordStore
		backup   ports.BackupLog
		receipts ports.ReceiptStorage // nil disables receipt uploads

		cache  cache.Cache[[]core.Record]
		flight singleflight.Group
	}
)

func NewLedgerService(store ports.RecordStore, backup ports.BackupLog, receipts ports.ReceiptStorage, ttl time.Duration) *LedgerService {
	return &LedgerService{
		store:    store,
		backup:   backup,
		receipts: receipts,
		cache:    cache.New[[]core.Record](1, ttl),
	}
}

func (s *LedgerService) record(in RecordInput) core.Record {
	r := core.Record{
		Date:       in.Date,
		User:       in.User,
		OdoStart:   core.Int(in.OdoStart),
		OdoEnd:     core.Int(in.OdoEnd),
		FuelLiters: core.Float(in.FuelLiters),
		PriceYen:   core.Int(in.PriceYen),
	}
	return r.WithDistance()
}

// Create validates and appends a new record. The receipt, when present, is
// uploaded first so only its URL ever reaches the store.
func (s *LedgerService) Create(ctx context.Context, in RecordInput) (core.Record, error) {
	rec := s.record(in)
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now()
	if err := rec.Validate(); err != nil {
		return core.Record{}, err
	}

	url, err := s.uploadReceipt(ctx, rec.ID, in.Receipt)
	if err != nil {
		return core.Record{}, err
	}
	rec.ReceiptURL = url

	if err := s.store.Append(ctx, rec); err != nil {
		return core.Record{}, fmt.Errorf("append record: %w", err)
	}
	s.Invalidate()
	slog.InfoContext(ctx, "Record created",
		"id", rec.ID, "user", rec.User, "distance_km", rec.Distance.Int64)
	return rec, nil
}

// Edit overwrites a record's editable fields. The current state is appended
// to the backup log before the store is touched; id and createdAt survive
// the edit unchanged. A failure after the backup write leaves an extra
// backup entry and an unmodified record, which is safe.
func (s *LedgerService) Edit(ctx context.Context, id string, in RecordInput) error {
	current, err := s.store.Find(ctx, id)
	if err != nil {
		return err
	}

	rec := s.record(in)
	rec.ID = id
	if err := rec.Validate(); err != nil {
		return err
	}

	url, err := s.uploadReceipt(ctx, id, in.Receipt)
	if err != nil {
		return err
	}
	rec.ReceiptURL = url

	if err := s.backup.AppendBackup(ctx, current); err != nil {
		return fmt.Errorf("backup before edit: %w", err)
	}
	if err := s.store.Update(ctx, id, rec); err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	s.Invalidate()
	slog.InfoContext(ctx, "Record edited", "id", id, "user", rec.User)
	return nil
}

// Delete removes a record after appending its final state to the backup log.
// The backup entry is the only trace left.
func (s *LedgerService) Delete(ctx context.Context, id string) error {
	current, err := s.store.Find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.backup.AppendBackup(ctx, current); err != nil {
		return fmt.Errorf("backup before delete: %w", err)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	s.Invalidate()
	slog.InfoContext(ctx, "Record deleted", "id", id)
	return nil
}

// Records returns the normalized, sorted ledger, served from cache when
// fresh. Concurrent cache misses collapse into a single store read.
func (s *LedgerService) Records(ctx context.Context) ([]core.Record, error) {
	if recs, ok := s.cache.Get(ledgerKey); ok {
		return recs, nil
	}
	v, err, _ := s.flight.Do(ledgerKey, func() (any, error) {
		rows, err := s.store.ListRows(ctx)
		if err != nil {
			return nil, fmt.Errorf("list rows: %w", err)
		}
		recs := core.Normalize(rows)
		s.cache.Set(ledgerKey, recs)
		return recs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]core.Record), nil
}

// Reports computes the monthly settlement over the current ledger.
func (s *LedgerService) Reports(ctx context.Context) ([]core.MonthReport, error) {
	recs, err := s.Records(ctx)
	if err != nil {
		return nil, err
	}
	return core.BuildReports(recs), nil
}

// UserRecords returns the given user's records in ledger order, for the
// edit/delete view scoped to the selected identity.
func (s *LedgerService) UserRecords(ctx context.Context, user string) ([]core.Record, error) {
	recs, err := s.Records(ctx)
	if err != nil {
		return nil, err
	}
	var out []core.Record
	for _, r := range recs {
		if r.User == user {
			out = append(out, r)
		}
	}
	return out, nil
}

// Invalidate drops the cached ledger so the next read hits the store.
func (s *LedgerService) Invalidate() {
	s.cache.Delete(ledgerKey)
}

func (s *LedgerService) uploadReceipt(ctx context.Context, id string, up *ReceiptUpload) (string, error) {
	if up == nil || len(up.Data) == 0 {
		return "", nil
	}
	if s.receipts == nil {
		slog.WarnContext(ctx, "Receipt storage not configured, dropping upload", "record_id", id)
		return "", nil
	}
	name := fmt.Sprintf("%s_%s", id, up.Filename)
	url, err := s.receipts.Upload(ctx, name, up.Data)
	if err != nil {
		return "", fmt.Errorf("upload receipt: %w", err)
	}
	return url, nil
}
