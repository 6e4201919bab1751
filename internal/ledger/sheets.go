package ledger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsClient implements Store against a Google Sheets spreadsheet.
// The spreadsheet is addressed by id; worksheets by title.
type SheetsClient struct {
	svc           *sheets.Service
	spreadsheetID string
	categoriesWS  string
	log           zerolog.Logger
}

func NewSheetsClient(ctx context.Context, credentialsFile, spreadsheetID, categoriesWS string, log zerolog.Logger) (*SheetsClient, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}

	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &SheetsClient{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		categoriesWS:  categoriesWS,
		log:           log,
	}, nil
}

// FetchTaxonomyLines reads column A of the categories worksheet,
// skipping the header row.
func (c *SheetsClient) FetchTaxonomyLines(ctx context.Context) ([]string, error) {
	resp, err := c.svc.Spreadsheets.Values.
		Get(c.spreadsheetID, c.categoriesWS+"!A2:A").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read categories worksheet: %w", err)
	}

	lines := make([]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		if len(row) == 0 {
			lines = append(lines, "")
			continue
		}
		if s, ok := row[0].(string); ok {
			lines = append(lines, s)
		}
	}
	return lines, nil
}

func (c *SheetsClient) AppendRow(ctx context.Context, worksheet string, row []string) error {
	values := make([]interface{}, len(row))
	for i, cell := range row {
		values[i] = cell
	}

	_, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, worksheet+"!A:Z", &sheets.ValueRange{
			Values: [][]interface{}{values},
		}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row to %s: %w", worksheet, err)
	}

	c.log.Debug().Str("worksheet", worksheet).Msg("row appended")
	return nil
}

func (c *SheetsClient) EnsureWorksheet(ctx context.Context, worksheet string, header []string) (bool, error) {
	meta, err := c.svc.Spreadsheets.
		Get(c.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("get spreadsheet: %w", err)
	}

	for _, sheet := range meta.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == worksheet {
			return false, nil
		}
	}

	_, err = c.svc.Spreadsheets.
		BatchUpdate(c.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: worksheet},
				},
			}},
		}).
		Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("add worksheet %s: %w", worksheet, err)
	}

	if err := c.AppendRow(ctx, worksheet, header); err != nil {
		return true, err
	}

	c.log.Info().Str("worksheet", worksheet).Msg("worksheet created")
	return true, nil
}
