// Package ble abstracts the host Bluetooth Low Energy role behind small
// capability-query interfaces: list services, list characteristics of a
// service, query write support. The connection manager is written against
// these interfaces so negotiation and transfer run identically over real
// hardware and simulated devices.
package ble

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable means the runtime has no usable BLE adapter. Detected
	// once at Enable; callers disable dependent features instead of retrying.
	ErrUnavailable = errors.New("bluetooth is not available")

	// ErrDeviceNotFound means the requested identifier was not seen during
	// a scan, so there is no native address to connect to.
	ErrDeviceNotFound = errors.New("device not found")
)

// Props describes a characteristic's write capabilities.
type Props uint8

const (
	// PropWrite marks support for acknowledged writes.
	PropWrite Props = 1 << iota
	// PropWriteWithoutResponse marks support for unacknowledged writes.
	PropWriteWithoutResponse
)

// Writable reports whether either write mode is supported.
func (p Props) Writable() bool {
	return p&(PropWrite|PropWriteWithoutResponse) != 0
}

// CanWriteWithoutResponse reports support for the unacknowledged fast path.
func (p Props) CanWriteWithoutResponse() bool {
	return p&PropWriteWithoutResponse != 0
}

// Advertisement is one device seen during a scan.
type Advertisement interface {
	// ID is the stable platform identifier (the MAC address on Linux).
	ID() string
	LocalName() string
	RSSI() int16
	// LikelyPrinter reports whether the advertisement carries one of the
	// known candidate printer services. Discovery accepts every device;
	// this only flags the plausible ones for the UI.
	LikelyPrinter() bool
}

// Central is the host-side BLE role.
type Central interface {
	// Enable powers up the adapter. Fails with ErrUnavailable when the
	// runtime has no BLE support; called once at startup.
	Enable() error

	// Scan reports advertisements until ctx is cancelled or StopScan is
	// called. It blocks for the duration of the scan.
	Scan(ctx context.Context, found func(Advertisement)) error

	StopScan() error

	// Connect establishes a link to a device seen in a prior scan.
	Connect(id string) (Peripheral, error)

	// SetDisconnectHandler registers the callback invoked when an
	// established link drops for any reason outside Disconnect.
	SetDisconnectHandler(func(id string))
}

// Peripheral is a connected device.
type Peripheral interface {
	ID() string
	Name() string
	Services() ([]Service, error)
	Disconnect() error
}

// Service is a discovered GATT service.
type Service interface {
	// UUID in canonical lowercase 128-bit form.
	UUID() string
	Characteristics() ([]Characteristic, error)
}

// Characteristic is a discovered GATT characteristic.
type Characteristic interface {
	UUID() string
	Properties() Props
	// Write performs an acknowledged write.
	Write(p []byte) (int, error)
	// WriteWithoutResponse performs an unacknowledged write.
	WriteWithoutResponse(p []byte) (int, error)
}
