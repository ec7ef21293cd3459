package printer

import "errors"

var (
	// ErrNoPairedDevice means an implicit connect was attempted with no
	// pairing on record.
	ErrNoPairedDevice = errors.New("no paired printer")

	// ErrNoWritableCharacteristic means negotiation searched every
	// candidate service and the device-wide fallback without finding a
	// write channel.
	ErrNoWritableCharacteristic = errors.New("no writable characteristic found")

	// ErrPrintBusy means another connect, print or scan holds the
	// session. There is no internal queue; the caller retries.
	ErrPrintBusy = errors.New("printer session busy")

	// ErrAlreadyConnected means pairing was requested while a link is
	// up. The caller disconnects first.
	ErrAlreadyConnected = errors.New("a printer is already connected")
)
