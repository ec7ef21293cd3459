package escpos

import (
	"fmt"
	"strings"

	"github.com/warungpos/print-bridge/pkg/receipt"
)

// Worker copy column budget: 50mm paper at double width.
const workerWidth = Columns50mm / 2

const workerCustomerBudget = 10

// EncodeWorkerCopy renders the 50mm kitchen copy: oversized text, legible at
// a glance, no payment or money detail. Long item names wrap across
// fixed-width segments so every character survives; compactness loses to
// legibility here. Deterministic like EncodeInvoice.
func EncodeWorkerCopy(r *receipt.Receipt) []byte {
	e := NewEncoder()
	e.Initialize()

	e.Align(AlignCenter)
	e.Size(SizeDouble).Line("PESANAN DAPUR")

	e.Align(AlignLeft)
	e.Size(SizeDoubleWidth).Bold(true)
	writeKV(e, orderTag(r.ID), r.CreatedAt.Format("15:04"), workerWidth)
	if r.CustomerName != "" {
		e.Line(truncate(r.CustomerName, workerCustomerBudget))
	}
	e.Bold(false)
	e.Line(rule('=', workerWidth))

	itemCount := 0
	for _, it := range r.Items {
		itemCount += it.Qty
		e.Size(SizeDouble).Line(fmt.Sprintf("%dx", it.Qty))
		e.Size(SizeDoubleWidth)
		for _, seg := range chunk(it.Name, workerWidth) {
			e.Line(seg)
		}
		e.Line(tierWord(it.Tier))
		e.Line("")
	}

	e.Align(AlignCenter)
	e.Size(SizeDouble).Line(fmt.Sprintf("TOTAL: %d ITEM", itemCount))
	e.Size(SizeDoubleWidth)
	e.Line(rule('=', workerWidth))
	e.Bold(true).Line("COPY DAPUR").Bold(false)

	e.Size(SizeNormal)
	e.Align(AlignLeft)
	e.Feed(3)
	e.PartialCut()
	return e.Bytes()
}

// orderTag shortens a receipt ID to the 6-character uppercase tag the kitchen
// calls out. Shorter IDs are used whole.
func orderTag(id string) string {
	tag := id
	if len(tag) > 6 {
		tag = tag[len(tag)-6:]
	}
	return "#" + strings.ToUpper(tag)
}
