// Package receipt defines the receipt value object exchanged between the
// POS checkout flow and the print bridge.
package receipt

import "time"

// Price tier selectors carried per line item.
const (
	TierRetail = "ecer"
	TierBulk   = "grosir"
)

// Payment method tags understood by the invoice payment block.
const (
	PaymentCash     = "cash"
	PaymentTransfer = "transfer"
	PaymentQRIS     = "qris"
	PaymentDebit    = "debit"
)

// Receipt is a completed sale as produced by the checkout flow. The bridge
// consumes it read-only: subtotal, discount and total are rendered verbatim,
// never recomputed, so upstream inconsistencies are reproduced faithfully.
type Receipt struct {
	ID            string     `json:"id"`
	Items         []Item     `json:"items"`
	Subtotal      int64      `json:"subtotal"`
	Discount      int64      `json:"discount,omitempty"`
	Total         int64      `json:"total"`
	PaymentMethod string     `json:"payment_method"`
	CashReceived  int64      `json:"cash_received,omitempty"`
	Change        int64      `json:"change,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	CustomerName  string     `json:"customer_name,omitempty"`
	CustomerPhone string     `json:"customer_phone,omitempty"`
	Store         *StoreInfo `json:"store,omitempty"`
	Bank          *BankInfo  `json:"bank,omitempty"`
}

// Item is a single sale line. Prices are rupiah with no decimals.
type Item struct {
	Name        string `json:"name"`
	RetailPrice int64  `json:"retail_price"`
	BulkPrice   int64  `json:"bulk_price,omitempty"`
	Qty         int    `json:"qty"`
	Tier        string `json:"tier,omitempty"`
	Discount    int64  `json:"discount,omitempty"`
}

// UnitPrice returns the price selected by the item's tier. An item with no
// tier, or a bulk tier but no bulk price, falls back to the retail price.
func (it Item) UnitPrice() int64 {
	if it.Tier == TierBulk && it.BulkPrice > 0 {
		return it.BulkPrice
	}
	return it.RetailPrice
}

// LineTotal is the only derived money value the layouts need: quantity times
// the tier price, minus the per-item discount.
func (it Item) LineTotal() int64 {
	return int64(it.Qty)*it.UnitPrice() - it.Discount
}

// StoreInfo is the header identity printed on the invoice. The caller may
// override the receipt-embedded copy with a settings-sourced one.
type StoreInfo struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// BankInfo is printed in the payment block for bank-transfer sales.
type BankInfo struct {
	BankName      string `json:"bank_name,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	AccountHolder string `json:"account_holder,omitempty"`
}
