// Package sheets appends completed sales to the store's Google Sheets
// ledger, one row per receipt.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/warungpos/print-bridge/internal/escpos"
	"github.com/warungpos/print-bridge/pkg/receipt"
)

// ErrNotConfigured is returned by the disabled appender. Callers treat the
// feature as absent rather than failed.
var ErrNotConfigured = errors.New("sales spreadsheet not configured")

// DefaultRange is the sheet range rows are appended under.
const DefaultRange = "Penjualan!A:H"

// Appender records completed sales.
type Appender interface {
	Append(ctx context.Context, r *receipt.Receipt) error
	Enabled() bool
}

// SheetsAppender writes sales rows through the Sheets API with a service
// account.
type SheetsAppender struct {
	service       *sheets.Service
	spreadsheetID string
	appendRange   string
}

// Ensure both implementations satisfy Appender.
var (
	_ Appender = (*SheetsAppender)(nil)
	_ Appender = (*disabledAppender)(nil)
)

// NewAppender creates an appender for the configured spreadsheet. Missing
// credentials or spreadsheet id yield a disabled appender, not an error.
func NewAppender(ctx context.Context, credentialsPath, spreadsheetID, appendRange string) (Appender, error) {
	if credentialsPath == "" || spreadsheetID == "" {
		return disabledAppender{}, nil
	}

	service, err := sheets.NewService(ctx, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	if appendRange == "" {
		appendRange = DefaultRange
	}
	return &SheetsAppender{
		service:       service,
		spreadsheetID: spreadsheetID,
		appendRange:   appendRange,
	}, nil
}

// Append adds one row for the sale: id, timestamp, item summary, subtotal,
// discount, total, payment method, customer.
func (a *SheetsAppender) Append(ctx context.Context, r *receipt.Receipt) error {
	if r == nil {
		return errors.New("nil receipt")
	}

	values := &sheets.ValueRange{Values: [][]interface{}{salesRow(r)}}
	_, err := a.service.Spreadsheets.Values.
		Append(a.spreadsheetID, a.appendRange, values).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append sale %s: %w", r.ID, err)
	}
	return nil
}

func (a *SheetsAppender) Enabled() bool { return true }

// disabledAppender stands in when sync is not configured.
type disabledAppender struct{}

func (disabledAppender) Append(context.Context, *receipt.Receipt) error { return ErrNotConfigured }
func (disabledAppender) Enabled() bool                                  { return false }

func salesRow(r *receipt.Receipt) []interface{} {
	return []interface{}{
		r.ID,
		r.CreatedAt.Format("2006-01-02 15:04:05"),
		itemSummary(r.Items),
		r.Subtotal,
		r.Discount,
		r.Total,
		escpos.PaymentLabel(r.PaymentMethod),
		r.CustomerName,
	}
}

func itemSummary(items []receipt.Item) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%s x%d", it.Name, it.Qty))
	}
	return strings.Join(parts, "; ")
}
