package ble

// GATT identifiers used by the common BLE thermal printer modules
// (Goojprt, Xprinter, Cashino and the various ISSC bridge clones).
// Both lists are ordered by how often the module family shows up in
// the field; negotiation walks them in this order.

// PrinterServiceUUIDs are the candidate print services.
var PrinterServiceUUIDs = []string{
	"000018f0-0000-1000-8000-00805f9b34fb",
	"e7810a71-73ae-499d-8c15-faa9aef0c3f2",
	"49535343-fe7d-4ae5-8fa9-9fafd205e455",
	"0000ff00-0000-1000-8000-00805f9b34fb",
}

// WriterCharacteristicUUIDs are the candidate write channels, matched
// against each candidate service before falling back to enumeration.
var WriterCharacteristicUUIDs = []string{
	"00002af1-0000-1000-8000-00805f9b34fb",
	"bef8d6c9-9c21-4c9e-b632-bd58c1009f9f",
	"49535343-8841-43f4-a8d4-ecbe34729bb3",
	"0000ff02-0000-1000-8000-00805f9b34fb",
}

// writerCharSet answers "is this a known write channel" during property
// queries. The BlueZ binding does not surface GATT flags, so known
// channels are assumed to accept both write modes and unknown ones only
// the acknowledged mode.
var writerCharSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(WriterCharacteristicUUIDs))
	for _, u := range WriterCharacteristicUUIDs {
		set[u] = struct{}{}
	}
	return set
}()
