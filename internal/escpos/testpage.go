package escpos

// EncodeTestPage renders the short slip used to verify a fresh pairing:
// store name oversized, a ready line, alignment markers at both edges.
func EncodeTestPage(storeName string) []byte {
	if storeName == "" {
		storeName = DefaultStoreName
	}

	e := NewEncoder()
	e.Initialize()

	e.Align(AlignCenter)
	e.Size(SizeDouble).Line(storeName).Size(SizeNormal)
	e.Line("Tes cetak berhasil")
	e.Line("Printer siap digunakan")

	e.Align(AlignLeft)
	e.Line(rule('-', Columns80mm))
	writeKV(e, "<<kiri", "kanan>>", Columns80mm)
	e.Line(rule('-', Columns80mm))

	e.Feed(3)
	e.PartialCut()
	return e.Bytes()
}
