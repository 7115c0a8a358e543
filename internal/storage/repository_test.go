package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/merosu1777-dotcom/gas-management-app/internal/core"
	ports "github.com/merosu1777-dotcom/gas-management-app/internal/sheets"
)

func testRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func testRecord(id string) core.Record {
	return core.Record{
		ID:         id,
		Date:       time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		User:       "Umezo",
		OdoStart:   core.Int(100),
		OdoEnd:     core.Int(150),
		FuelLiters: core.Float(10),
		PriceYen:   core.Int(1500),
		CreatedAt:  time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSQLiteAppendFindList(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)

	if err := repo.Append(ctx, testRecord("a")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.Append(ctx, testRecord("b")); err != nil {
		t.Fatalf("append: %v", err)
	}

	rows, err := repo.ListRows(ctx)
	if err != nil || len(rows) != 2 {
		t.Fatalf("list: %v (n=%d)", err, len(rows))
	}
	if rows[0].ID != "a" || rows[1].ID != "b" {
		t.Fatalf("insertion order not preserved: %+v", rows)
	}
	if rows[0].Distance != "50" {
		t.Fatalf("distance cell = %q", rows[0].Distance)
	}

	if _, err := repo.Find(ctx, "missing"); !errors.Is(err, ports.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSQLiteAppendRejectsInvalid(t *testing.T) {
	repo := testRepo(t)
	bad := testRecord("a")
	bad.OdoEnd = core.Int(50)
	if err := repo.Append(context.Background(), bad); !errors.Is(err, core.ErrOdometerOrder) {
		t.Fatalf("expected validation error, got %v", err)
	}
	rows, _ := repo.ListRows(context.Background())
	if len(rows) != 0 {
		t.Fatalf("rejected append must not write")
	}
}

func TestSQLiteUpdatePreservesIdentity(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)
	if err := repo.Append(ctx, testRecord("a")); err != nil {
		t.Fatalf("append: %v", err)
	}

	edited := testRecord("a")
	edited.OdoStart = core.Int(150)
	edited.OdoEnd = core.Int(220)
	edited.ReceiptURL = ""
	if err := repo.Update(ctx, "a", edited); err != nil {
		t.Fatalf("update: %v", err)
	}

	row, err := repo.Find(ctx, "a")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if row.CreatedAt != "2025-08-01T12:00:00" {
		t.Fatalf("created_at changed: %q", row.CreatedAt)
	}
	if row.Distance != "70" {
		t.Fatalf("distance not recomputed: %q", row.Distance)
	}

	if err := repo.Update(ctx, "missing", edited); !errors.Is(err, ports.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSQLiteDeleteAndBackups(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)
	if err := repo.Append(ctx, testRecord("a")); err != nil {
		t.Fatalf("append: %v", err)
	}

	row, _ := repo.Find(ctx, "a")
	if err := repo.AppendBackup(ctx, row); err != nil {
		t.Fatalf("backup: %v", err)
	}
	if err := repo.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, "a"); !errors.Is(err, ports.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	backups, err := repo.Backups(ctx)
	if err != nil || len(backups) != 1 || backups[0].ID != "a" {
		t.Fatalf("backups = %+v err=%v", backups, err)
	}
}
