package escpos

import (
	"fmt"

	"github.com/warungpos/print-bridge/pkg/receipt"
)

// DefaultStoreName is printed when neither the caller nor the receipt
// carries a store identity.
const DefaultStoreName = "WARUNG POS"

// Invoice footer wording. Fixed by the layout, not configurable.
const (
	footerThanks   = "Terima kasih atas kunjungan Anda"
	footerNoReturn = "Barang yang sudah dibeli tidak dapat dikembalikan"
)

// EncodeInvoice renders the 80mm customer invoice. It always succeeds for a
// well-formed receipt and is deterministic: the same input produces a
// byte-identical stream. The optional store override takes precedence over
// the receipt-embedded store info; hardcoded defaults fill what remains.
func EncodeInvoice(r *receipt.Receipt, store *receipt.StoreInfo) []byte {
	const width = Columns80mm
	s := resolveStore(r, store)

	e := NewEncoder()
	e.Initialize()

	// Header: store identity, centered, name oversized.
	e.Align(AlignCenter)
	e.Size(SizeDouble).Line(s.Name).Size(SizeNormal)
	if s.Address != "" {
		e.Line(s.Address)
	}
	if s.Phone != "" {
		e.Line(s.Phone)
	}

	e.Align(AlignLeft)
	e.Line(rule('-', width))

	// Metadata block. The customer name is free text, so it is truncated to
	// fit its line rather than spilled to a continuation.
	writeKV(e, "No", r.ID, width)
	writeKV(e, "Tanggal", r.CreatedAt.Format("02/01/2006"), width)
	writeKV(e, "Jam", r.CreatedAt.Format("15:04"), width)
	if r.CustomerName != "" {
		writeKV(e, "Pelanggan", truncate(r.CustomerName, width-len("Pelanggan")-1), width)
	}
	e.Line(rule('-', width))

	// One block per item: name + tier marker, quantity x unit price against
	// the line total, then the per-item discount when present.
	for _, it := range r.Items {
		marker := TierMarker(it.Tier)
		e.Line(truncate(it.Name, width-len(marker)) + marker)
		qty := fmt.Sprintf("  %d x %s", it.Qty, FormatRupiah(it.UnitPrice()))
		writeKV(e, qty, FormatRupiah(it.LineTotal()), width)
		if it.Discount > 0 {
			writeKV(e, "  Diskon", "-"+FormatRupiah(it.Discount), width)
		}
	}

	// Totals. Rendered verbatim from the receipt, never recomputed.
	writeKV(e, "Subtotal", FormatRupiah(r.Subtotal), width)
	if r.Discount > 0 {
		writeKV(e, "Diskon", "-"+FormatRupiah(r.Discount), width)
	}
	e.Line(rule('-', width))
	e.Bold(true).Size(SizeDoubleHeight)
	writeKV(e, "TOTAL", "Rp "+FormatRupiah(r.Total), width)
	e.Size(SizeNormal).Bold(false)

	// Payment block.
	writeKV(e, "Metode", PaymentLabel(r.PaymentMethod), width)
	switch r.PaymentMethod {
	case receipt.PaymentCash:
		writeKV(e, "Bayar", "Rp "+FormatRupiah(r.CashReceived), width)
		writeKV(e, "Kembali", "Rp "+FormatRupiah(r.Change), width)
	case receipt.PaymentTransfer:
		if r.Bank != nil {
			writeKV(e, "Bank", r.Bank.BankName, width)
			writeKV(e, "No Rek", r.Bank.AccountNumber, width)
			writeKV(e, "a.n.", r.Bank.AccountHolder, width)
		}
	}

	e.Line(rule('-', width))
	e.Align(AlignCenter)
	e.Line(footerThanks)
	e.Line(footerNoReturn)
	e.Align(AlignLeft)

	e.Feed(3)
	e.PartialCut()
	return e.Bytes()
}

func writeKV(e *Encoder, label, value string, width int) {
	for _, line := range kvLines(label, value, width) {
		e.Line(line)
	}
}

// resolveStore merges the caller override over the receipt-embedded info.
// The override replaces address and phone wholesale (it is the settings
// profile); its name only wins when set, falling back to the receipt and
// finally the built-in default.
func resolveStore(r *receipt.Receipt, override *receipt.StoreInfo) receipt.StoreInfo {
	var s receipt.StoreInfo
	if r.Store != nil {
		s = *r.Store
	}
	if override != nil {
		if override.Name != "" {
			s.Name = override.Name
		}
		s.Address = override.Address
		s.Phone = override.Phone
	}
	if s.Name == "" {
		s.Name = DefaultStoreName
	}
	return s
}
