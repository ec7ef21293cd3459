package render

import (
	"errors"
	"fmt"
	"image"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"

	"github.com/warungpos/print-bridge/internal/escpos"
	"github.com/warungpos/print-bridge/internal/settings"
	"github.com/warungpos/print-bridge/pkg/receipt"
)

// Text sizes for the share layout. The printed invoice speaks in character
// cells; here the same blocks get pixel sizes.
const (
	titleSize = 40
	bodySize  = 26
	totalSize = 34
)

// Invoice draws the customer invoice as an image, block for block the same
// layout the printer produces, with the store profile supplying the header
// identity and footer lines. A code128 of the receipt id goes at the bottom
// so the sale can be pulled up by scanning the shared picture.
func Invoice(r *receipt.Receipt, profile settings.StoreProfile) (image.Image, error) {
	if r == nil {
		return nil, errors.New("nil receipt")
	}

	s := shareStore(r, profile)
	c := newCanvas(ShareWidth)
	c.feed(1)

	c.text(s.Name, titleSize, true, alignCenter)
	if s.Address != "" {
		c.text(s.Address, bodySize, false, alignCenter)
	}
	if s.Phone != "" {
		c.text(s.Phone, bodySize, false, alignCenter)
	}
	c.rule()

	c.kv("No", r.ID, bodySize, false)
	c.kv("Tanggal", r.CreatedAt.Format("02/01/2006"), bodySize, false)
	c.kv("Jam", r.CreatedAt.Format("15:04"), bodySize, false)
	if r.CustomerName != "" {
		c.kv("Pelanggan", r.CustomerName, bodySize, false)
	}
	c.rule()

	for _, it := range r.Items {
		c.text(it.Name+escpos.TierMarker(it.Tier), bodySize, false, alignLeft)
		qty := fmt.Sprintf("  %d x %s", it.Qty, escpos.FormatRupiah(it.UnitPrice()))
		c.kv(qty, escpos.FormatRupiah(it.LineTotal()), bodySize, false)
		if it.Discount > 0 {
			c.kv("  Diskon", "-"+escpos.FormatRupiah(it.Discount), bodySize, false)
		}
	}

	c.kv("Subtotal", escpos.FormatRupiah(r.Subtotal), bodySize, false)
	if r.Discount > 0 {
		c.kv("Diskon", "-"+escpos.FormatRupiah(r.Discount), bodySize, false)
	}
	c.rule()
	c.kv("TOTAL", "Rp "+escpos.FormatRupiah(r.Total), totalSize, true)

	c.kv("Metode", escpos.PaymentLabel(r.PaymentMethod), bodySize, false)
	switch r.PaymentMethod {
	case receipt.PaymentCash:
		c.kv("Bayar", "Rp "+escpos.FormatRupiah(r.CashReceived), bodySize, false)
		c.kv("Kembali", "Rp "+escpos.FormatRupiah(r.Change), bodySize, false)
	case receipt.PaymentTransfer:
		if bank := transferBank(r, profile); bank != nil {
			c.kv("Bank", bank.BankName, bodySize, false)
			c.kv("No Rek", bank.AccountNumber, bodySize, false)
			c.kv("a.n.", bank.AccountHolder, bodySize, false)
		}
	}
	c.rule()

	if profile.FooterLine1 != "" {
		c.text(profile.FooterLine1, bodySize, false, alignCenter)
	}
	if profile.FooterLine2 != "" {
		c.text(profile.FooterLine2, bodySize, false, alignCenter)
	}

	if r.ID != "" {
		code, err := code128.Encode(r.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to encode receipt barcode: %w", err)
		}
		scaled, err := barcode.Scale(code, c.width-40, 60)
		if err != nil {
			return nil, fmt.Errorf("failed to scale receipt barcode: %w", err)
		}
		c.feed(1)
		c.drawImage(scaled)
	}

	c.feed(1)
	return c.crop(), nil
}

// shareStore resolves the header identity: profile fields win where set,
// the receipt-embedded info fills the rest.
func shareStore(r *receipt.Receipt, profile settings.StoreProfile) receipt.StoreInfo {
	var s receipt.StoreInfo
	if r.Store != nil {
		s = *r.Store
	}
	if profile.Name != "" {
		s.Name = profile.Name
	}
	if profile.Address != "" {
		s.Address = profile.Address
	}
	if profile.Phone != "" {
		s.Phone = profile.Phone
	}
	if s.Name == "" {
		s.Name = escpos.DefaultStoreName
	}
	return s
}

// transferBank prefers the receipt-embedded account, then the profile's.
func transferBank(r *receipt.Receipt, profile settings.StoreProfile) *receipt.BankInfo {
	if r.Bank != nil {
		return r.Bank
	}
	if profile.Bank.BankName != "" {
		return &receipt.BankInfo{
			BankName:      profile.Bank.BankName,
			AccountNumber: profile.Bank.AccountNumber,
			AccountHolder: profile.Bank.AccountHolder,
		}
	}
	return nil
}
