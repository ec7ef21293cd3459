package ble

import (
	"context"
	"fmt"
	"sync"

	"tinygo.org/x/bluetooth"
)

// printerServiceTable is PrinterServiceUUIDs parsed once for
// advertisement matching.
var printerServiceTable = func() []bluetooth.UUID {
	uuids := make([]bluetooth.UUID, 0, len(PrinterServiceUUIDs))
	for _, s := range PrinterServiceUUIDs {
		u, err := bluetooth.ParseUUID(s)
		if err != nil {
			panic(fmt.Sprintf("bad candidate service uuid %q: %v", s, err))
		}
		uuids = append(uuids, u)
	}
	return uuids
}()

// BlueZCentral implements Central on top of the system Bluetooth stack.
type BlueZCentral struct {
	adapter *bluetooth.Adapter

	mu      sync.Mutex
	enabled bool
	seen    map[string]seenDevice
}

// seenDevice caches what a scan learned about a device. Connect needs
// the native address, and the advertised name survives here because
// not every advertisement frame repeats it.
type seenDevice struct {
	addr bluetooth.Address
	name string
}

var _ Central = (*BlueZCentral)(nil)

// NewBlueZCentral wraps the default system adapter.
func NewBlueZCentral() *BlueZCentral {
	return &BlueZCentral{
		adapter: bluetooth.DefaultAdapter,
		seen:    make(map[string]seenDevice),
	}
}

func (c *BlueZCentral) Enable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enabled {
		return nil
	}
	if err := c.adapter.Enable(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	c.enabled = true
	return nil
}

func (c *BlueZCentral) Scan(ctx context.Context, found func(Advertisement)) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.adapter.StopScan()
		case <-done:
		}
	}()

	return c.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
		adv := bluezAdvertisement{result: result}
		c.remember(adv.ID(), result)
		found(adv)
	})
}

func (c *BlueZCentral) StopScan() error {
	return c.adapter.StopScan()
}

func (c *BlueZCentral) Connect(id string) (Peripheral, error) {
	c.mu.Lock()
	entry, ok := c.seen[id]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}

	device, err := c.adapter.Connect(entry.addr, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", id, err)
	}
	return &bluezPeripheral{device: device, id: id, name: entry.name}, nil
}

func (c *BlueZCentral) SetDisconnectHandler(handler func(id string)) {
	c.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if !connected {
			handler(device.Address.String())
		}
	})
}

func (c *BlueZCentral) remember(id string, result bluetooth.ScanResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := c.seen[id]
	entry.addr = result.Address
	if name := result.LocalName(); name != "" {
		entry.name = name
	}
	c.seen[id] = entry
}

type bluezAdvertisement struct {
	result bluetooth.ScanResult
}

func (a bluezAdvertisement) ID() string        { return a.result.Address.String() }
func (a bluezAdvertisement) LocalName() string { return a.result.LocalName() }
func (a bluezAdvertisement) RSSI() int16       { return a.result.RSSI }

func (a bluezAdvertisement) LikelyPrinter() bool {
	for _, u := range printerServiceTable {
		if a.result.HasServiceUUID(u) {
			return true
		}
	}
	return false
}

type bluezPeripheral struct {
	device bluetooth.Device
	id     string
	name   string
}

func (p *bluezPeripheral) ID() string   { return p.id }
func (p *bluezPeripheral) Name() string { return p.name }

func (p *bluezPeripheral) Services() ([]Service, error) {
	// nil asks for every service so negotiation can fall back to
	// enumerating layouts the candidate tables do not know.
	discovered, err := p.device.DiscoverServices(nil)
	if err != nil {
		return nil, err
	}
	services := make([]Service, len(discovered))
	for i, svc := range discovered {
		services[i] = bluezService{service: svc}
	}
	return services, nil
}

func (p *bluezPeripheral) Disconnect() error {
	return p.device.Disconnect()
}

type bluezService struct {
	service bluetooth.DeviceService
}

func (s bluezService) UUID() string {
	return s.service.UUID().String()
}

func (s bluezService) Characteristics() ([]Characteristic, error) {
	discovered, err := s.service.DiscoverCharacteristics(nil)
	if err != nil {
		return nil, err
	}
	chars := make([]Characteristic, len(discovered))
	for i, ch := range discovered {
		chars[i] = bluezCharacteristic{char: ch}
	}
	return chars, nil
}

type bluezCharacteristic struct {
	char bluetooth.DeviceCharacteristic
}

func (c bluezCharacteristic) UUID() string {
	return c.char.UUID().String()
}

// Properties derives write capabilities from the candidate tables. The
// BlueZ binding does not expose GATT flags, so known write channels get
// both modes and everything else the safe acknowledged mode only.
func (c bluezCharacteristic) Properties() Props {
	if _, ok := writerCharSet[c.UUID()]; ok {
		return PropWrite | PropWriteWithoutResponse
	}
	return PropWrite
}

func (c bluezCharacteristic) Write(p []byte) (int, error) {
	return c.char.Write(p)
}

func (c bluezCharacteristic) WriteWithoutResponse(p []byte) (int, error) {
	return c.char.WriteWithoutResponse(p)
}
