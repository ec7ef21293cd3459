package receipt

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validReceipt() *Receipt {
	return &Receipt{
		ID: "INV-20250812-0042",
		Items: []Item{
			{Name: "Beras 5kg", RetailPrice: 78000, BulkPrice: 75000, Qty: 2, Tier: TierBulk},
			{Name: "Minyak Goreng 1L", RetailPrice: 17500, Qty: 1, Tier: TierRetail},
		},
		Subtotal:      167500,
		Discount:      2500,
		Total:         165000,
		PaymentMethod: PaymentCash,
		CashReceived:  200000,
		Change:        35000,
		CreatedAt:     time.Date(2025, 8, 12, 14, 30, 0, 0, time.UTC),
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Receipt)
		wantErr string
	}{
		{name: "valid", mutate: func(r *Receipt) {}},
		{
			name:    "missing id",
			mutate:  func(r *Receipt) { r.ID = "" },
			wantErr: "id is required",
		},
		{
			name:    "no items",
			mutate:  func(r *Receipt) { r.Items = nil },
			wantErr: "at least one item",
		},
		{
			name:    "item without name",
			mutate:  func(r *Receipt) { r.Items[0].Name = "" },
			wantErr: "name is required",
		},
		{
			name:    "zero qty",
			mutate:  func(r *Receipt) { r.Items[1].Qty = 0 },
			wantErr: "qty must be positive",
		},
		{
			name:    "negative price",
			mutate:  func(r *Receipt) { r.Items[0].RetailPrice = -1 },
			wantErr: "prices must not be negative",
		},
		{
			name:    "unknown tier",
			mutate:  func(r *Receipt) { r.Items[0].Tier = "wholesale" },
			wantErr: "invalid tier",
		},
		{
			name:    "missing payment method",
			mutate:  func(r *Receipt) { r.PaymentMethod = "" },
			wantErr: "payment_method is required",
		},
		{
			name:    "negative discount",
			mutate:  func(r *Receipt) { r.Discount = -100 },
			wantErr: "discount must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validReceipt()
			tt.mutate(r)
			err := Validate(r)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	r := validReceipt()
	data, err := r.ToJSON()
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, r.ID, parsed.ID)
	assert.Len(t, parsed.Items, 2)
	assert.Equal(t, r.Total, parsed.Total)
	assert.Equal(t, r.CashReceived, parsed.CashReceived)
}

func TestParseRejectsInvalid(t *testing.T) {
	_, err := Parse([]byte("{not json"))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"id":"X","items":[],"total":0,"payment_method":"cash"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one item")
}

func TestParseFile(t *testing.T) {
	r := validReceipt()
	path := filepath.Join(t.TempDir(), "receipt.json")
	require.NoError(t, r.SaveToFile(path))

	parsed, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, r.ID, parsed.ID)
}

func TestItemUnitPrice(t *testing.T) {
	it := Item{RetailPrice: 1000, BulkPrice: 900, Qty: 1}

	it.Tier = TierRetail
	assert.Equal(t, int64(1000), it.UnitPrice())

	it.Tier = TierBulk
	assert.Equal(t, int64(900), it.UnitPrice())

	// Bulk tier without a bulk price falls back to retail.
	it.BulkPrice = 0
	assert.Equal(t, int64(1000), it.UnitPrice())

	it.Tier = ""
	assert.Equal(t, int64(1000), it.UnitPrice())
}

func TestItemLineTotal(t *testing.T) {
	it := Item{RetailPrice: 17500, Qty: 3, Tier: TierRetail, Discount: 1500}
	assert.Equal(t, int64(51000), it.LineTotal())
}
