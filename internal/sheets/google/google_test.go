package google

import (
	"testing"

	"github.com/merosu1777-dotcom/gas-management-app/internal/core"
)

func TestToStringsTrimsAndConverts(t *testing.T) {
	got := toStrings([]interface{}{" a ", 150, 8.5, ""})
	want := []string{"a", "150", "8.5", ""}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("toStrings = %v, want %v", got, want)
		}
	}
}

func TestRowMappingFromSheetValues(t *testing.T) {
	// The API returns numbers as untyped values; the row mapping must keep
	// them as cells for the normalizer.
	values := []interface{}{"id1", "2025-08-01", "Umezo", 100, 150, 50, 10.5, 1500, "2025-08-01T12:00:00"}
	row := core.RowFromCells(toStrings(values))
	if row.ID != "id1" || row.OdoStart != "100" || row.Fuel != "10.5" {
		t.Fatalf("unexpected row: %+v", row)
	}
	if row.ReceiptURL != "" {
		t.Fatalf("nine-cell row should default receipt to empty")
	}
}

func TestCellsToValuesMatchesColumnCount(t *testing.T) {
	vals := cellsToValues(core.Header())
	if len(vals) != 10 {
		t.Fatalf("expected 10 columns A..J, got %d", len(vals))
	}
}
