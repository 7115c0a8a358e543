package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/merosu1777-dotcom/gas-management-app/internal/core"
	ports "github.com/merosu1777-dotcom/gas-management-app/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client stores the ledger in a Google spreadsheet: one sheet for live
// records and one append-only sheet for pre-mutation backups.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	recordsSheet  string
	backupSheet   string

	mu          sync.Mutex
	sheetIDs    map[string]int64
	backupReady bool
}

// Ensure interface conformance
var (
	_ ports.RecordStore = (*Client)(nil)
	_ ports.BackupLog   = (*Client)(nil)
)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID.
// Optional sheet names: RECORDS_SHEET_NAME (default "Records"),
// BACKUP_SHEET_NAME (default "Backup").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	records := strings.TrimSpace(os.Getenv("RECORDS_SHEET_NAME"))
	if records == "" {
		records = "Records"
	}
	backup := strings.TrimSpace(os.Getenv("BACKUP_SHEET_NAME"))
	if backup == "" {
		backup = "Backup"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return New(svc, spreadsheetID, records, backup), nil
}

// New wires a Client over an existing Sheets service.
func New(svc *gsheet.Service, spreadsheetID, recordsSheet, backupSheet string) *Client {
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		recordsSheet:  recordsSheet,
		backupSheet:   backupSheet,
		sheetIDs:      map[string]int64{},
	}
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE,
// or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	credentialsJSON, err := serviceAccountJSON(ctx)
	if err != nil {
		return nil, err
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func serviceAccountJSON(ctx context.Context) ([]byte, error) {
	inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Read service account credentials", "path", file, "size", len(data))
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (c *Client) Append(ctx context.Context, r core.Record) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	cells := cellsToValues(r.WithDistance().Row().Cells())
	rng := fmt.Sprintf("%s!A:J", c.recordsSheet)
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng,
		&gsheet.ValueRange{Values: [][]any{cells}}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row to %s: %w", c.recordsSheet, err)
	}
	return nil
}

func (c *Client) ListRows(ctx context.Context) ([]core.RecordRow, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	// A2 skips the header row.
	rng := fmt.Sprintf("%s!A2:J", c.recordsSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([]core.RecordRow, 0, len(resp.Values))
	for _, row := range resp.Values {
		out = append(out, core.RowFromCells(toStrings(row)))
	}
	return out, nil
}

func (c *Client) Find(ctx context.Context, id string) (core.RecordRow, error) {
	_, row, err := c.findRow(ctx, id)
	return row, err
}

func (c *Client) Update(ctx context.Context, id string, r core.Record) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rowNum, _, err := c.findRow(ctx, id)
	if err != nil {
		return err
	}

	row := r.WithDistance().Row()
	// Columns B..H carry the editable values; A (id) and I (created_at)
	// stay as written at creation time.
	rng := fmt.Sprintf("%s!B%d:H%d", c.recordsSheet, rowNum, rowNum)
	values := [][]any{{row.Date, row.User, row.OdoStart, row.OdoEnd, row.Distance, row.Fuel, row.Price}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng,
		&gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}

	if row.ReceiptURL != "" {
		rng = fmt.Sprintf("%s!J%d", c.recordsSheet, rowNum)
		_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng,
			&gsheet.ValueRange{Values: [][]any{{row.ReceiptURL}}}).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rowNum, _, err := c.findRow(ctx, id)
	if err != nil {
		return err
	}
	sheetID, err := c.sheetID(ctx, c.recordsSheet)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(rowNum - 1),
					EndIndex:   int64(rowNum),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d from %s: %w", rowNum, c.recordsSheet, err)
	}
	return nil
}

// AppendBackup writes a pre-mutation snapshot to the backup sheet, creating
// the sheet with its header when it does not exist yet.
func (c *Client) AppendBackup(ctx context.Context, row core.RecordRow) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if err := c.EnsureBackupSheet(ctx); err != nil {
		return err
	}
	rng := fmt.Sprintf("%s!A:J", c.backupSheet)
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng,
		&gsheet.ValueRange{Values: [][]any{cellsToValues(row.Cells())}}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append backup row: %w", err)
	}
	return nil
}

// EnsureBackupSheet creates the backup sheet with a header row if absent.
func (c *Client) EnsureBackupSheet(ctx context.Context) error {
	c.mu.Lock()
	ready := c.backupReady
	c.mu.Unlock()
	if ready {
		return nil
	}

	if _, err := c.sheetID(ctx, c.backupSheet); err == nil {
		c.mu.Lock()
		c.backupReady = true
		c.mu.Unlock()
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: c.backupSheet},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("create backup sheet %s: %w", c.backupSheet, err)
	}

	header := cellsToValues(core.Header())
	rng := fmt.Sprintf("%s!A1:J1", c.backupSheet)
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng,
		&gsheet.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write backup header: %w", err)
	}

	slog.InfoContext(ctx, "Created backup sheet", "sheet", c.backupSheet)
	c.mu.Lock()
	c.backupReady = true
	c.sheetIDs = map[string]int64{} // new sheet invalidates the id cache
	c.mu.Unlock()
	return nil
}

// findRow scans column A for the id and returns the 1-based row number
// together with the raw row.
func (c *Client) findRow(ctx context.Context, id string) (int, core.RecordRow, error) {
	rng := fmt.Sprintf("%s!A:J", c.recordsSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, core.RecordRow{}, fmt.Errorf("read %s: %w", rng, err)
	}
	for i, row := range resp.Values {
		cells := toStrings(row)
		if len(cells) > 0 && cells[0] == id {
			return i + 1, core.RowFromCells(cells), nil
		}
	}
	return 0, core.RecordRow{}, ports.ErrRecordNotFound
}

// sheetID resolves a sheet title to its numeric id, cached per client.
func (c *Client) sheetID(ctx context.Context, title string) (int64, error) {
	c.mu.Lock()
	if id, ok := c.sheetIDs[title]; ok {
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet metadata: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			c.sheetIDs[sh.Properties.Title] = sh.Properties.SheetId
		}
	}
	if id, ok := c.sheetIDs[title]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", title)
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func cellsToValues(cells []string) []any {
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}
