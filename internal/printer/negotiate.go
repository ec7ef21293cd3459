package printer

import (
	"fmt"

	"github.com/warungpos/print-bridge/internal/ble"
)

// negotiate finds the write channel on a freshly connected peripheral.
//
// The search order is fixed: walk the candidate service list by
// priority; within each present service try the candidate
// characteristic list by priority, then enumerate all of that
// service's characteristics. If the candidate services yield nothing,
// enumerate every service on the device the same way. The first
// writable characteristic found anywhere wins and the search stops.
func negotiate(peripheral ble.Peripheral) (ble.Characteristic, error) {
	services, err := peripheral.Services()
	if err != nil {
		return nil, fmt.Errorf("discover services: %w", err)
	}

	byUUID := make(map[string]ble.Service, len(services))
	for _, svc := range services {
		byUUID[svc.UUID()] = svc
	}

	for _, candidate := range ble.PrinterServiceUUIDs {
		svc, ok := byUUID[candidate]
		if !ok {
			continue
		}
		if writer := writableIn(svc); writer != nil {
			return writer, nil
		}
	}

	// Unrecognized layout: sweep every service the device exposes.
	for _, svc := range services {
		if writer := writableIn(svc); writer != nil {
			return writer, nil
		}
	}

	return nil, ErrNoWritableCharacteristic
}

// writableIn searches one service: known write channels first, then
// any characteristic that reports a write capability.
func writableIn(svc ble.Service) ble.Characteristic {
	chars, err := svc.Characteristics()
	if err != nil {
		// A service that refuses characteristic discovery is skipped,
		// not fatal; another service may still carry the write channel.
		return nil
	}

	byUUID := make(map[string]ble.Characteristic, len(chars))
	for _, ch := range chars {
		byUUID[ch.UUID()] = ch
	}

	for _, candidate := range ble.WriterCharacteristicUUIDs {
		if ch, ok := byUUID[candidate]; ok && ch.Properties().Writable() {
			return ch
		}
	}
	for _, ch := range chars {
		if ch.Properties().Writable() {
			return ch
		}
	}
	return nil
}
