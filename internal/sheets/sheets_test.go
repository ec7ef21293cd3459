package sheets

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warungpos/print-bridge/pkg/receipt"
)

func sampleReceipt() *receipt.Receipt {
	return &receipt.Receipt{
		ID: "INV-20250812-0042",
		Items: []receipt.Item{
			{Name: "Beras 5kg", RetailPrice: 78000, Qty: 2},
			{Name: "Minyak Goreng 1L", RetailPrice: 17500, Qty: 1},
		},
		Subtotal:      173500,
		Discount:      3500,
		Total:         170000,
		PaymentMethod: receipt.PaymentCash,
		CreatedAt:     time.Date(2025, 8, 12, 14, 30, 0, 0, time.UTC),
		CustomerName:  "Bu Siti",
	}
}

func TestNewAppenderDisabledWithoutCredentials(t *testing.T) {
	a, err := NewAppender(context.Background(), "", "sheet-id", "")
	require.NoError(t, err)
	assert.False(t, a.Enabled())
	assert.ErrorIs(t, a.Append(context.Background(), sampleReceipt()), ErrNotConfigured)
}

func TestNewAppenderDisabledWithoutSpreadsheet(t *testing.T) {
	a, err := NewAppender(context.Background(), "/etc/creds.json", "", "")
	require.NoError(t, err)
	assert.False(t, a.Enabled())
}

func TestNewAppenderMissingCredentialsFile(t *testing.T) {
	_, err := NewAppender(context.Background(), "/nonexistent/creds.json", "sheet-id", "")
	assert.Error(t, err)
}

func TestSalesRow(t *testing.T) {
	row := salesRow(sampleReceipt())
	require.Len(t, row, 8)

	assert.Equal(t, "INV-20250812-0042", row[0])
	assert.Equal(t, "2025-08-12 14:30:00", row[1])
	assert.Equal(t, "Beras 5kg x2; Minyak Goreng 1L x1", row[2])
	assert.Equal(t, int64(173500), row[3])
	assert.Equal(t, int64(3500), row[4])
	assert.Equal(t, int64(170000), row[5])
	assert.Equal(t, "TUNAI", row[6])
	assert.Equal(t, "Bu Siti", row[7])
}

func TestSalesRowEmptyItems(t *testing.T) {
	r := sampleReceipt()
	r.Items = nil
	assert.Equal(t, "", salesRow(r)[2])
}
