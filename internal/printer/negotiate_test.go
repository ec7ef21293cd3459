package printer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warungpos/print-bridge/internal/ble"
)

func writable(uuid string) *fakeChar {
	return &fakeChar{uuid: uuid, props: ble.PropWrite}
}

func notifyOnly(uuid string) *fakeChar {
	return &fakeChar{uuid: uuid, props: 0}
}

func TestNegotiateCandidateServiceBeatsDiscoveryOrder(t *testing.T) {
	stray := writable("0000beef-0000-1000-8000-00805f9b34fb")
	known := writable(ble.WriterCharacteristicUUIDs[0])

	peripheral := &fakePeripheral{
		services: []ble.Service{
			fakeService{uuid: "0000feed-0000-1000-8000-00805f9b34fb", chars: []ble.Characteristic{stray}},
			fakeService{uuid: ble.PrinterServiceUUIDs[0], chars: []ble.Characteristic{known}},
		},
	}

	writer, err := negotiate(peripheral)
	require.NoError(t, err)
	require.Same(t, known, writer)
}

func TestNegotiateCandidateCharacteristicBeatsEnumeration(t *testing.T) {
	stray := writable("0000beef-0000-1000-8000-00805f9b34fb")
	known := writable(ble.WriterCharacteristicUUIDs[2])

	peripheral := &fakePeripheral{
		services: []ble.Service{
			// The stray characteristic comes first in discovery order
			fakeService{uuid: ble.PrinterServiceUUIDs[0], chars: []ble.Characteristic{stray, known}},
		},
	}

	writer, err := negotiate(peripheral)
	require.NoError(t, err)
	require.Same(t, known, writer)
}

func TestNegotiateServicePriorityOrder(t *testing.T) {
	second := writable(ble.WriterCharacteristicUUIDs[0])
	first := writable(ble.WriterCharacteristicUUIDs[1])

	peripheral := &fakePeripheral{
		// Discovery returns the lower-priority service first
		services: []ble.Service{
			fakeService{uuid: ble.PrinterServiceUUIDs[2], chars: []ble.Characteristic{second}},
			fakeService{uuid: ble.PrinterServiceUUIDs[0], chars: []ble.Characteristic{first}},
		},
	}

	writer, err := negotiate(peripheral)
	require.NoError(t, err)
	require.Same(t, first, writer)
}

func TestNegotiateFallbackWithinService(t *testing.T) {
	stray := writable("0000beef-0000-1000-8000-00805f9b34fb")

	peripheral := &fakePeripheral{
		services: []ble.Service{
			fakeService{uuid: ble.PrinterServiceUUIDs[1], chars: []ble.Characteristic{
				notifyOnly("0000dead-0000-1000-8000-00805f9b34fb"),
				stray,
			}},
		},
	}

	writer, err := negotiate(peripheral)
	require.NoError(t, err)
	require.Same(t, stray, writer)
}

func TestNegotiateSkipsNonWritableCandidate(t *testing.T) {
	// A known write channel UUID that reports no write capability must
	// not be picked just because its UUID matches.
	deadCandidate := notifyOnly(ble.WriterCharacteristicUUIDs[0])
	stray := writable("0000beef-0000-1000-8000-00805f9b34fb")

	peripheral := &fakePeripheral{
		services: []ble.Service{
			fakeService{uuid: ble.PrinterServiceUUIDs[0], chars: []ble.Characteristic{deadCandidate, stray}},
		},
	}

	writer, err := negotiate(peripheral)
	require.NoError(t, err)
	require.Same(t, stray, writer)
}

func TestNegotiateDeviceWideFallback(t *testing.T) {
	stray := writable("0000beef-0000-1000-8000-00805f9b34fb")

	peripheral := &fakePeripheral{
		services: []ble.Service{
			fakeService{uuid: "0000feed-0000-1000-8000-00805f9b34fb", chars: []ble.Characteristic{stray}},
		},
	}

	writer, err := negotiate(peripheral)
	require.NoError(t, err)
	require.Same(t, stray, writer)
}

func TestNegotiateNoWritableCharacteristic(t *testing.T) {
	peripheral := &fakePeripheral{
		services: []ble.Service{
			fakeService{uuid: ble.PrinterServiceUUIDs[0], chars: []ble.Characteristic{
				notifyOnly("0000dead-0000-1000-8000-00805f9b34fb"),
			}},
			fakeService{uuid: "0000feed-0000-1000-8000-00805f9b34fb", chars: []ble.Characteristic{
				notifyOnly("0000beef-0000-1000-8000-00805f9b34fb"),
			}},
		},
	}

	_, err := negotiate(peripheral)
	require.ErrorIs(t, err, ErrNoWritableCharacteristic)
}

func TestNegotiateSkipsServiceWithFailingDiscovery(t *testing.T) {
	known := writable(ble.WriterCharacteristicUUIDs[0])

	peripheral := &fakePeripheral{
		services: []ble.Service{
			fakeService{uuid: ble.PrinterServiceUUIDs[0], charsErr: assert.AnError},
			fakeService{uuid: ble.PrinterServiceUUIDs[1], chars: []ble.Characteristic{known}},
		},
	}

	writer, err := negotiate(peripheral)
	require.NoError(t, err)
	require.Same(t, known, writer)
}

func TestNegotiateServiceDiscoveryFailure(t *testing.T) {
	peripheral := &fakePeripheral{servicesErr: assert.AnError}

	_, err := negotiate(peripheral)
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "discover services")
}
