package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/merosu1777-dotcom/gas-management-app/internal/core"
	ports "github.com/merosu1777-dotcom/gas-management-app/internal/sheets"
	"github.com/merosu1777-dotcom/gas-management-app/internal/sheets/memory"
)

func newService(t *testing.T) (*LedgerService, *memory.Store) {
	t.Helper()
	store := memory.New()
	return NewLedgerService(store, store, nil, time.Minute), store
}

func input(user string, start, end, price int64) RecordInput {
	return RecordInput{
		Date:       time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		User:       user,
		OdoStart:   start,
		OdoEnd:     end,
		FuelLiters: 10,
		PriceYen:   price,
	}
}

func TestCreateAssignsIdentityAndDistance(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	rec, err := svc.Create(ctx, input("Umezo", 100, 150, 1500))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID == "" || rec.CreatedAt.IsZero() {
		t.Fatalf("identity not assigned: %+v", rec)
	}
	if rec.Distance.Int64 != 50 {
		t.Fatalf("distance = %d, want 50", rec.Distance.Int64)
	}

	rows, _ := store.ListRows(ctx)
	if len(rows) != 1 || rows[0].ID != rec.ID {
		t.Fatalf("store rows = %+v", rows)
	}
	if len(store.Backups()) != 0 {
		t.Fatalf("create must not write backups")
	}
}

func TestCreateRejectsOdometerOrder(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	_, err := svc.Create(ctx, input("Umezo", 150, 150, 1500))
	if !errors.Is(err, core.ErrOdometerOrder) {
		t.Fatalf("expected odometer error, got %v", err)
	}
	rows, _ := store.ListRows(ctx)
	if len(rows) != 0 {
		t.Fatalf("rejected create must not write, got %d rows", len(rows))
	}
}

func TestEditBacksUpPreEditStateAndPreservesIdentity(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	rec, err := svc.Create(ctx, input("Umezo", 100, 150, 1500))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	created, _ := store.Find(ctx, rec.ID)

	if err := svc.Edit(ctx, rec.ID, input("Umezo", 150, 220, 1200)); err != nil {
		t.Fatalf("edit: %v", err)
	}

	backups := store.Backups()
	if len(backups) != 1 {
		t.Fatalf("expected exactly one backup entry, got %d", len(backups))
	}
	if backups[0] != created {
		t.Fatalf("backup is not the pre-edit state:\n got %+v\nwant %+v", backups[0], created)
	}

	after, _ := store.Find(ctx, rec.ID)
	if after.ID != created.ID || after.CreatedAt != created.CreatedAt {
		t.Fatalf("id/createdAt changed on edit: %+v", after)
	}
	if after.OdoStart != "150" || after.Distance != "70" {
		t.Fatalf("edit not applied: %+v", after)
	}
}

func TestEditValidationAndNotFoundWriteNothing(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	rec, _ := svc.Create(ctx, input("Umezo", 100, 150, 1500))

	err := svc.Edit(ctx, rec.ID, input("Umezo", 220, 150, 1200))
	if !errors.Is(err, core.ErrOdometerOrder) {
		t.Fatalf("expected odometer error, got %v", err)
	}
	if len(store.Backups()) != 0 {
		t.Fatalf("invalid edit must not write a backup")
	}

	err = svc.Edit(ctx, "missing", input("Umezo", 150, 220, 1200))
	if !errors.Is(err, ports.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(store.Backups()) != 0 {
		t.Fatalf("not-found edit must not write a backup")
	}
}

func TestDeleteBacksUpFinalStateThenRemoves(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	rec, _ := svc.Create(ctx, input("Umezo", 100, 150, 1500))
	final, _ := store.Find(ctx, rec.ID)

	if err := svc.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	rows, _ := store.ListRows(ctx)
	if len(rows) != 0 {
		t.Fatalf("record still present after delete")
	}
	backups := store.Backups()
	if len(backups) != 1 || backups[0] != final {
		t.Fatalf("backup log = %+v, want single pre-delete state", backups)
	}

	if err := svc.Delete(ctx, rec.ID); !errors.Is(err, ports.ErrRecordNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if len(store.Backups()) != 1 {
		t.Fatalf("failed delete must not add backup entries")
	}
}

func TestMutationInvalidatesCachedLedger(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	rec, _ := svc.Create(ctx, input("Umezo", 100, 150, 1500))
	recs, err := svc.Records(ctx)
	if err != nil || len(recs) != 1 {
		t.Fatalf("records: %v (n=%d)", err, len(recs))
	}

	// A second read is served from cache; the delete must bust it so the
	// next read observes the mutation without waiting for expiry.
	if err := svc.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	recs, err = svc.Records(ctx)
	if err != nil || len(recs) != 0 {
		t.Fatalf("stale read after delete: %v (n=%d)", err, len(recs))
	}
}

func TestReportsAndUserRecords(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	if _, err := svc.Create(ctx, input("UserX", 0, 50, 0)); err != nil {
		t.Fatalf("create: %v", err)
	}
	in := input("UserY", 50, 100, 2000)
	in.Date = in.Date.AddDate(0, 0, 1)
	if _, err := svc.Create(ctx, in); err != nil {
		t.Fatalf("create: %v", err)
	}

	reports, err := svc.Reports(ctx)
	if err != nil || len(reports) != 1 {
		t.Fatalf("reports: %v (n=%d)", err, len(reports))
	}
	m := reports[0]
	if m.CostPerKm != 20 || len(m.Shares) != 2 {
		t.Fatalf("unexpected report: %+v", m)
	}
	if m.Shares[0].NetYen != -1000 || m.Shares[1].NetYen != 1000 {
		t.Fatalf("settlement signs wrong: %+v", m.Shares)
	}

	mine, err := svc.UserRecords(ctx, "UserX")
	if err != nil || len(mine) != 1 || mine[0].User != "UserX" {
		t.Fatalf("user records: %v %+v", err, mine)
	}
}

type fakeReceipts struct {
	uploads []string
}

func (f *fakeReceipts) Upload(_ context.Context, name string, data []byte) (string, error) {
	f.uploads = append(f.uploads, name)
	return "https://drive.example/" + name, nil
}

func TestReceiptUploadedBeforeWriteAndURLStored(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	receipts := &fakeReceipts{}
	svc := NewLedgerService(store, store, receipts, time.Minute)

	in := input("Umezo", 100, 150, 1500)
	in.Receipt = &ReceiptUpload{Filename: "receipt.jpg", Data: []byte("img")}
	rec, err := svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(receipts.uploads) != 1 {
		t.Fatalf("uploads = %v", receipts.uploads)
	}
	row, _ := store.Find(ctx, rec.ID)
	if row.ReceiptURL != "https://drive.example/"+rec.ID+"_receipt.jpg" {
		t.Fatalf("stored receipt = %q", row.ReceiptURL)
	}
}
