package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/merosu1777-dotcom/gas-management-app/internal/core"
	ports "github.com/merosu1777-dotcom/gas-management-app/internal/sheets"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is a local backend with the same row semantics as the
// spreadsheet: live rows in `records`, pre-mutation snapshots in the
// append-only `backup_log`.
type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ ports.RecordStore = (*SQLiteRepository)(nil)
	_ ports.BackupLog   = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const recordColumns = "id, date, user, odo_start, odo_end, distance, fuel, price, created_at, receipt"

func (r *SQLiteRepository) Append(ctx context.Context, rec core.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	row := rec.WithDistance().Row()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO records (`+recordColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		cellArgs(row)...)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	slog.InfoContext(ctx, "Record saved to SQLite", "id", row.ID, "user", row.User, "date", row.Date)
	return nil
}

func (r *SQLiteRepository) ListRows(ctx context.Context) ([]core.RecordRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records ORDER BY pos`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []core.RecordRow
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) Find(ctx context.Context, id string) (core.RecordRow, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	rec, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecordRow{}, ports.ErrRecordNotFound
	}
	if err != nil {
		return core.RecordRow{}, err
	}
	return rec, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, id string, rec core.Record) error {
	row := rec.WithDistance().Row()
	set := `UPDATE records SET date=?, user=?, odo_start=?, odo_end=?, distance=?, fuel=?, price=?`
	args := []any{row.Date, row.User, row.OdoStart, row.OdoEnd, row.Distance, row.Fuel, row.Price}
	if row.ReceiptURL != "" {
		set += `, receipt=?`
		args = append(args, row.ReceiptURL)
	}
	// id and created_at are never part of the SET list.
	args = append(args, id)
	res, err := r.db.ExecContext(ctx, set+` WHERE id=?`, args...)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if n == 0 {
		return ports.ErrRecordNotFound
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n == 0 {
		return ports.ErrRecordNotFound
	}
	return nil
}

func (r *SQLiteRepository) AppendBackup(ctx context.Context, row core.RecordRow) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO backup_log (`+recordColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		cellArgs(row)...)
	if err != nil {
		return fmt.Errorf("append backup: %w", err)
	}
	return nil
}

// Backups returns the backup log in append order.
func (r *SQLiteRepository) Backups(ctx context.Context) ([]core.RecordRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM backup_log ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var out []core.RecordRow
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func cellArgs(row core.RecordRow) []any {
	cells := row.Cells()
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(s rowScanner) (core.RecordRow, error) {
	var row core.RecordRow
	err := s.Scan(&row.ID, &row.Date, &row.User,
		&row.OdoStart, &row.OdoEnd, &row.Distance,
		&row.Fuel, &row.Price, &row.CreatedAt, &row.ReceiptURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.RecordRow{}, err
		}
		return core.RecordRow{}, fmt.Errorf("scan record row: %w", err)
	}
	return row, nil
}
