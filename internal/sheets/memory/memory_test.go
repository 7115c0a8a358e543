package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/merosu1777-dotcom/gas-management-app/internal/core"
	ports "github.com/merosu1777-dotcom/gas-management-app/internal/sheets"
)

func sample(id string) core.Record {
	return core.Record{
		ID:        id,
		Date:      time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		User:      "Umezo",
		OdoStart:  core.Int(100),
		OdoEnd:    core.Int(150),
		PriceYen:  core.Int(1500),
		CreatedAt: time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestAppendListFind(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.Append(ctx, sample("a")); err != nil {
		t.Fatalf("append: %v", err)
	}
	rows, err := s.ListRows(ctx)
	if err != nil || len(rows) != 1 {
		t.Fatalf("list: rows=%v err=%v", rows, err)
	}
	if rows[0].Distance != "50" {
		t.Fatalf("distance cell = %q, want derived 50", rows[0].Distance)
	}

	row, err := s.Find(ctx, "a")
	if err != nil || row.ID != "a" {
		t.Fatalf("find: row=%+v err=%v", row, err)
	}
	if _, err := s.Find(ctx, "nope"); !errors.Is(err, ports.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAppendRejectsInvalid(t *testing.T) {
	s := New()
	bad := sample("a")
	bad.OdoEnd = core.Int(100)
	if err := s.Append(context.Background(), bad); !errors.Is(err, core.ErrOdometerOrder) {
		t.Fatalf("expected odometer error, got %v", err)
	}
	rows, _ := s.ListRows(context.Background())
	if len(rows) != 0 {
		t.Fatalf("rejected append must not write")
	}
}

func TestUpdatePreservesIdentityCells(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.Append(ctx, sample("a")); err != nil {
		t.Fatalf("append: %v", err)
	}

	edited := sample("a")
	edited.OdoStart = core.Int(150)
	edited.OdoEnd = core.Int(220)
	edited.CreatedAt = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) // must be ignored
	if err := s.Update(ctx, "a", edited); err != nil {
		t.Fatalf("update: %v", err)
	}

	row, _ := s.Find(ctx, "a")
	if row.CreatedAt != "2025-08-01T12:00:00" {
		t.Fatalf("created_at changed on edit: %q", row.CreatedAt)
	}
	if row.OdoStart != "150" || row.Distance != "70" {
		t.Fatalf("edit not applied: %+v", row)
	}

	if err := s.Update(ctx, "missing", edited); !errors.Is(err, ports.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteAndBackupLog(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.Append(ctx, sample("a")); err != nil {
		t.Fatalf("append: %v", err)
	}

	row, _ := s.Find(ctx, "a")
	if err := s.AppendBackup(ctx, row); err != nil {
		t.Fatalf("backup: %v", err)
	}
	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	rows, _ := s.ListRows(ctx)
	if len(rows) != 0 {
		t.Fatalf("row not removed")
	}
	if got := s.Backups(); len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("backup log = %+v", got)
	}

	if err := s.Delete(ctx, "a"); !errors.Is(err, ports.ErrRecordNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}
