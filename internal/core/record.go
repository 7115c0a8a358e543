package core

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrOdometerOrder  = errors.New("odometer end must be greater than odometer start")
	ErrNegativeValue  = errors.New("value cannot be negative")
	ErrEmptyUser      = errors.New("empty user")
	ErrZeroDate       = errors.New("date cannot be zero")
	ErrMissingOdo     = errors.New("missing odometer reading")
)

type (
	// NullInt is an int64 that may be absent. Malformed stored cells are
	// normalized to the invalid state instead of failing the whole record.
	NullInt struct {
		Int64 int64
		Valid bool
	}

	// NullFloat is a float64 that may be absent.
	NullFloat struct {
		Float64 float64
		Valid   bool
	}

	// RecordRow is the raw stored shape of one usage record: ten cells,
	// exactly as they appear in the spreadsheet columns A..J.
	RecordRow struct {
		ID         string
		Date       string
		User       string
		OdoStart   string
		OdoEnd     string
		Distance   string
		Fuel       string
		Price      string
		CreatedAt  string
		ReceiptURL string
	}

	// Record is a typed usage record. Numeric fields keep a Valid flag so a
	// single malformed cell nulls that field without discarding the record.
	Record struct {
		ID         string
		Date       time.Time
		User       string
		OdoStart   NullInt
		OdoEnd     NullInt
		Distance   NullInt
		FuelLiters NullFloat
		PriceYen   NullInt
		CreatedAt  time.Time
		ReceiptURL string
	}
)

func Int(v int64) NullInt       { return NullInt{Int64: v, Valid: true} }
func Float(v float64) NullFloat { return NullFloat{Float64: v, Valid: true} }

// DateLayout is how dates are written to the store.
const DateLayout = "2006-01-02"

// CreatedAtLayout is how creation timestamps are written to the store.
const CreatedAtLayout = "2006-01-02T15:04:05"

// Validate enforces the write-side invariants. Records coming back out of
// the store go through Normalize instead, which tolerates bad cells.
func (r Record) Validate() error {
	if r.Date.IsZero() {
		return ErrZeroDate
	}
	if strings.TrimSpace(r.User) == "" {
		return ErrEmptyUser
	}
	if !r.OdoStart.Valid || !r.OdoEnd.Valid {
		return ErrMissingOdo
	}
	if r.OdoStart.Int64 < 0 || r.OdoEnd.Int64 < 0 {
		return ErrNegativeValue
	}
	if r.OdoEnd.Int64 <= r.OdoStart.Int64 {
		return ErrOdometerOrder
	}
	if r.FuelLiters.Valid && r.FuelLiters.Float64 < 0 {
		return ErrNegativeValue
	}
	if r.PriceYen.Valid && r.PriceYen.Int64 < 0 {
		return ErrNegativeValue
	}
	return nil
}

// WithDistance returns a copy with Distance recomputed from the odometer
// pair. Distance is never trusted from input; it is derived on every write.
func (r Record) WithDistance() Record {
	if r.OdoStart.Valid && r.OdoEnd.Valid {
		r.Distance = Int(r.OdoEnd.Int64 - r.OdoStart.Int64)
	} else {
		r.Distance = NullInt{}
	}
	return r
}

// Row renders the record into its stored cell representation.
func (r Record) Row() RecordRow {
	row := RecordRow{
		ID:         r.ID,
		User:       r.User,
		ReceiptURL: r.ReceiptURL,
	}
	if !r.Date.IsZero() {
		row.Date = r.Date.Format(DateLayout)
	}
	if !r.CreatedAt.IsZero() {
		row.CreatedAt = r.CreatedAt.Format(CreatedAtLayout)
	}
	if r.OdoStart.Valid {
		row.OdoStart = strconv.FormatInt(r.OdoStart.Int64, 10)
	}
	if r.OdoEnd.Valid {
		row.OdoEnd = strconv.FormatInt(r.OdoEnd.Int64, 10)
	}
	if r.Distance.Valid {
		row.Distance = strconv.FormatInt(r.Distance.Int64, 10)
	}
	if r.FuelLiters.Valid {
		row.Fuel = strconv.FormatFloat(r.FuelLiters.Float64, 'f', 2, 64)
	}
	if r.PriceYen.Valid {
		row.Price = strconv.FormatInt(r.PriceYen.Int64, 10)
	}
	return row
}

// Cells returns the row as a positional slice in column order A..J.
func (row RecordRow) Cells() []string {
	return []string{
		row.ID, row.Date, row.User,
		row.OdoStart, row.OdoEnd, row.Distance,
		row.Fuel, row.Price, row.CreatedAt, row.ReceiptURL,
	}
}

// RowFromCells maps a positional slice back into a RecordRow. Short rows are
// tolerated; missing trailing cells (typically the receipt) stay empty.
func RowFromCells(cells []string) RecordRow {
	get := func(i int) string {
		if i < len(cells) {
			return strings.TrimSpace(cells[i])
		}
		return ""
	}
	return RecordRow{
		ID:         get(0),
		Date:       get(1),
		User:       get(2),
		OdoStart:   get(3),
		OdoEnd:     get(4),
		Distance:   get(5),
		Fuel:       get(6),
		Price:      get(7),
		CreatedAt:  get(8),
		ReceiptURL: get(9),
	}
}

// Header is the column header row shared by the records and backup sheets.
func Header() []string {
	return []string{
		"id", "date", "user",
		"odo_start", "odo_end", "distance",
		"fuel", "price", "created_at", "receipt",
	}
}
