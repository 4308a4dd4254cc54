// Package google mirrors ledger rows into a Google Spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budget/internal/core"
	ports "budget/internal/sheets"
)

var _ ports.Mirror = (*Client)(nil)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// New creates a Sheets client for one spreadsheet tab. Without extra options
// it authenticates with service account credentials from the environment.
func New(ctx context.Context, spreadsheetID, sheetName string, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Ledger"
	}

	if len(opts) == 0 {
		creds, err := serviceAccountCredentials(ctx)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// serviceAccountCredentials reads GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS, in that order.
func serviceAccountCredentials(ctx context.Context) ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); inline != "" {
		slog.InfoContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	}

	path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	slog.InfoContext(ctx, "Read service account credentials", "path", path, "size", len(b))
	return b, nil
}

// AppendTransaction adds a row for tx unless one with the same id exists.
// A header row is written first when the sheet is empty.
func (c *Client) AppendTransaction(ctx context.Context, tx core.Transaction) error {
	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	if indexOf(ids, tx.ID) >= 0 {
		slog.DebugContext(ctx, "Row already mirrored", "transaction_id", tx.ID)
		return nil
	}

	rows := [][]any{ports.Row(tx)}
	if len(ids) == 0 {
		rows = append([][]any{ports.Header}, rows...)
	}

	// RAW keeps user text such as "=HYPERLINK(...)" from being parsed as a formula
	rng := fmt.Sprintf("%s!A:G", c.sheetName)
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row to %s: %w", c.sheetName, err)
	}
	return nil
}

// DeleteTransaction removes the row whose first column equals id.
// A missing row is not an error.
func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	row := indexOf(ids, id)
	if row < 0 {
		return nil
	}

	sheetID, err := c.sheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row),
					EndIndex:   int64(row + 1),
					// zero values are meaningful here
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d from %s: %w", row+1, c.sheetName, err)
	}
	return nil
}

func (c *Client) readIDs(ctx context.Context) ([]string, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read ids from %s: %w", c.sheetName, err)
	}
	return firstColumn(resp.Values), nil
}

func (c *Client) sheetID(ctx context.Context) (int64, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheetName {
			return sh.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", c.sheetName)
}

func firstColumn(values [][]any) []string {
	out := make([]string, len(values))
	for i, row := range values {
		if len(row) > 0 {
			out[i] = strings.TrimSpace(fmt.Sprint(row[0]))
		}
	}
	return out
}

func indexOf(arr []string, target string) int {
	target = strings.TrimSpace(target)
	if target == "" {
		return -1
	}
	for i, v := range arr {
		if v == target {
			return i
		}
	}
	return -1
}
