package sheet

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// GoogleCells implements CellAPI against one Google spreadsheet using a
// service-account credentials file.
type GoogleCells struct {
	svc           *sheets.Service
	spreadsheetID string
}

func NewGoogleCells(ctx context.Context, credentialsFile, spreadsheetID string) (*GoogleCells, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %v", err)
	}
	return &GoogleCells{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (g *GoogleCells) ReadCell(ctx context.Context, sheetName, cell string) (string, error) {
	rng := fmt.Sprintf("%s!%s", sheetName, cell)
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %v", rng, err)
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		return "", nil
	}
	return fmt.Sprint(resp.Values[0][0]), nil
}

func (g *GoogleCells) WriteCell(ctx context.Context, sheetName, cell, value string) error {
	rng := fmt.Sprintf("%s!%s", sheetName, cell)
	body := &sheets.ValueRange{Values: [][]interface{}{{value}}}
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, rng, body).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write %s: %v", rng, err)
	}
	return nil
}
