package spreadsheet

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// newTestWriter builds a Writer without credentials, for use against an httptest server.
func newTestWriter(ctx context.Context, opts ...option.ClientOption) (*Writer, error) {
	svc, err := sheets.NewService(ctx, append(opts, option.WithoutAuthentication())...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}
	return &Writer{values: svc.Spreadsheets.Values}, nil
}
