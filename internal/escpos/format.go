package escpos

import (
	"strconv"
	"strings"

	"github.com/warungpos/print-bridge/pkg/receipt"
)

// kvLines composes a label/value pair against the given column width: the
// value is right-justified and padding fills the line exactly. When label and
// value cannot share the line with at least one space between them, the label
// is emitted alone and the value lands right-justified on a continuation
// line. Values are never truncated here; truncation is reserved for free
// text.
func kvLines(label, value string, width int) []string {
	if len(label)+1+len(value) <= width {
		pad := width - len(label) - len(value)
		return []string{label + strings.Repeat(" ", pad) + value}
	}

	if len(value) >= width {
		return []string{label, value}
	}
	return []string{label, strings.Repeat(" ", width-len(value)) + value}
}

// truncate hard-slices free text to at most max bytes.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) > max {
		return s[:max]
	}
	return s
}

// chunk splits s into width-sized segments, keeping every byte. Used by the
// worker copy, which wraps long names instead of truncating them.
func chunk(s string, width int) []string {
	if width <= 0 || s == "" {
		return []string{s}
	}
	var segs []string
	for len(s) > width {
		segs = append(segs, s[:width])
		s = s[width:]
	}
	return append(segs, s)
}

// rule returns a separator line of the given width.
func rule(ch byte, width int) string {
	return strings.Repeat(string(ch), width)
}

// FormatRupiah renders an amount with Indonesian thousands separators and no
// currency symbol: 1234567 -> "1.234.567". The "Rp" label is prefixed by the
// layouts only where column width allows.
func FormatRupiah(n int64) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return sign + s
	}

	var b strings.Builder
	head := len(s) % 3
	if head == 0 {
		head = 3
	}
	b.WriteString(s[:head])
	for i := head; i < len(s); i += 3 {
		b.WriteByte('.')
		b.WriteString(s[i : i+3])
	}
	return sign + b.String()
}

// Payment method labels for the invoice payment block. Unknown tags print
// uppercased as-is so new methods degrade readably.
var paymentLabels = map[string]string{
	receipt.PaymentCash:     "TUNAI",
	receipt.PaymentTransfer: "TRANSFER",
	receipt.PaymentQRIS:     "QRIS",
	receipt.PaymentDebit:    "DEBIT",
}

// PaymentLabel maps a payment method tag to its printed label.
func PaymentLabel(tag string) string {
	if label, ok := paymentLabels[tag]; ok {
		return label
	}
	return strings.ToUpper(tag)
}

// TierMarker is the compact invoice tier suffix.
func TierMarker(tier string) string {
	if tier == receipt.TierBulk {
		return " (G)"
	}
	return " (E)"
}

// tierWord is the spelled-out worker-copy tier label.
func tierWord(tier string) string {
	if tier == receipt.TierBulk {
		return "GROSIR"
	}
	return "ECER"
}
