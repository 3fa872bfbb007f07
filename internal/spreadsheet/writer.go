// Package spreadsheet writes rows into Google Sheets with a service account.
package spreadsheet

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// ValueInputOption makes Sheets parse values as if typed by a user,
// so numbers and dates keep their types.
const ValueInputOption = "USER_ENTERED"

// Updater writes a block of values into an A1 range.
type Updater interface {
	Update(ctx context.Context, spreadsheetID, a1Range string, rows [][]string) error
}

// Writer is an Updater backed by the Sheets v4 API.
type Writer struct {
	values *sheets.SpreadsheetsValuesService
}

// NewWriter authenticates with the service-account JSON at credentialsFile.
func NewWriter(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*Writer, error) {
	opts = append([]option.ClientOption{
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	}, opts...)

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}
	return &Writer{values: svc.Spreadsheets.Values}, nil
}

// Update overwrites a1Range with rows.
func (w *Writer) Update(ctx context.Context, spreadsheetID, a1Range string, rows [][]string) error {
	vr := &sheets.ValueRange{Values: toInterfaces(rows)}
	_, err := w.values.Update(spreadsheetID, a1Range, vr).
		ValueInputOption(ValueInputOption).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("updating sheet range %s: %w", a1Range, err)
	}
	return nil
}

func toInterfaces(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		out[i] = make([]interface{}, len(row))
		for j, v := range row {
			out[i][j] = v
		}
	}
	return out
}
