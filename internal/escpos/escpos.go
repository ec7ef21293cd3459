// Package escpos renders receipts as ESC/POS command streams.
//
// The encoder is a byte-stream assembler, not a templating engine: control
// bytes are emitted inline with text bytes in call order, and style changes
// apply to the text that follows until explicitly reset.
package escpos

import "bytes"

// ESC/POS control prefixes.
const (
	ESC byte = 0x1B
	GS  byte = 0x1D
)

// Text size modes for GS ! (width multiplier in the high nibble, height in
// the low nibble).
const (
	SizeNormal       byte = 0x00
	SizeDoubleHeight byte = 0x01
	SizeDoubleWidth  byte = 0x10
	SizeDouble       byte = 0x11
)

// Alignment selectors for ESC a.
const (
	AlignLeft   byte = 0
	AlignCenter byte = 1
	AlignRight  byte = 2
)

// Column budgets per paper width at normal size. Double-width halves them.
const (
	Columns80mm = 48
	Columns50mm = 32
)

// Encoder assembles an ESC/POS byte stream.
type Encoder struct {
	buf bytes.Buffer
}

// NewEncoder creates an empty encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Initialize resets the printer to its power-on state (ESC @).
func (e *Encoder) Initialize() *Encoder {
	e.buf.WriteByte(ESC)
	e.buf.WriteByte('@')
	return e
}

// Align sets the alignment for following lines (ESC a).
func (e *Encoder) Align(a byte) *Encoder {
	e.buf.WriteByte(ESC)
	e.buf.WriteByte('a')
	e.buf.WriteByte(a)
	return e
}

// Bold toggles emphasis (ESC E).
func (e *Encoder) Bold(on bool) *Encoder {
	e.buf.WriteByte(ESC)
	e.buf.WriteByte('E')
	if on {
		e.buf.WriteByte(1)
	} else {
		e.buf.WriteByte(0)
	}
	return e
}

// Size selects a text size mode (GS !).
func (e *Encoder) Size(mode byte) *Encoder {
	e.buf.WriteByte(GS)
	e.buf.WriteByte('!')
	e.buf.WriteByte(mode)
	return e
}

// Text writes raw text bytes with no trailing feed.
func (e *Encoder) Text(s string) *Encoder {
	e.buf.WriteString(s)
	return e
}

// Line writes text followed by a line feed.
func (e *Encoder) Line(s string) *Encoder {
	e.buf.WriteString(s)
	e.buf.WriteByte(0x0A)
	return e
}

// Feed emits n line feeds.
func (e *Encoder) Feed(n int) *Encoder {
	for i := 0; i < n; i++ {
		e.buf.WriteByte(0x0A)
	}
	return e
}

// Cut emits a full paper cut (GS V 0).
func (e *Encoder) Cut() *Encoder {
	e.buf.WriteByte(GS)
	e.buf.WriteByte('V')
	e.buf.WriteByte(0)
	return e
}

// PartialCut emits a partial paper cut (GS V 1).
func (e *Encoder) PartialCut() *Encoder {
	e.buf.WriteByte(GS)
	e.buf.WriteByte('V')
	e.buf.WriteByte(1)
	return e
}

// Bytes returns the assembled command stream.
func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}
