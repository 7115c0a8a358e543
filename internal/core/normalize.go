package core

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Normalize converts raw stored rows into typed records sorted ascending by
// (date, createdAt). It is the single schema-on-read boundary: every cell is
// parsed independently and a malformed cell nulls only that field, so one bad
// value never takes down the rest of the ledger.
func Normalize(rows []RecordRow) []Record {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		if isEmptyRow(row) {
			continue
		}
		rec := Record{
			ID:         strings.TrimSpace(row.ID),
			Date:       parseDate(row.Date),
			User:       strings.TrimSpace(row.User),
			OdoStart:   parseInt(row.OdoStart),
			OdoEnd:     parseInt(row.OdoEnd),
			FuelLiters: parseFloat(row.Fuel),
			PriceYen:   parseInt(row.Price),
			CreatedAt:  parseCreatedAt(row.CreatedAt),
			ReceiptURL: strings.TrimSpace(row.ReceiptURL),
		}
		// Distance is derived from the pair, never read back from the store.
		// A stored distance cell that disagrees is ignored.
		rec = rec.WithDistance()
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func isEmptyRow(row RecordRow) bool {
	for _, c := range row.Cells() {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{DateLayout, "2006/01/02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseCreatedAt(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{CreatedAtLayout, time.RFC3339, DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseInt(s string) NullInt {
	s = strings.TrimSpace(s)
	if s == "" {
		return NullInt{}
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(v)
	}
	// Sheets sometimes hands back integers formatted as decimals ("150.0").
	if f, err := strconv.ParseFloat(normalizeDecimal(s), 64); err == nil {
		return Int(int64(f + 0.5))
	}
	return NullInt{}
}

func parseFloat(s string) NullFloat {
	s = strings.TrimSpace(s)
	if s == "" {
		return NullFloat{}
	}
	if f, err := strconv.ParseFloat(normalizeDecimal(s), 64); err == nil {
		return Float(f)
	}
	return NullFloat{}
}

var (
	thousandsPattern    = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+(\.\d+)?$`)
	decimalCommaPattern = regexp.MustCompile(`^-?\d+,\d{1,2}$`)
)

// normalizeDecimal maps spreadsheet number formats onto what strconv accepts.
// A comma is read as a decimal point only in the unambiguous short-fraction
// form ("8,5"); thousands grouping ("1,500") loses its separators. Any other
// comma use stays as is and fails the parse, nulling the field, which beats
// misreading "1,500" as one and a half.
func normalizeDecimal(s string) string {
	if !strings.Contains(s, ",") {
		return s
	}
	if thousandsPattern.MatchString(s) {
		return strings.ReplaceAll(s, ",", "")
	}
	if decimalCommaPattern.MatchString(s) {
		return strings.Replace(s, ",", ".", 1)
	}
	return s
}
