package printer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/warungpos/print-bridge/internal/ble"
	"github.com/warungpos/print-bridge/internal/registry"
)

type fakeAdv struct {
	id      string
	name    string
	rssi    int16
	printer bool
}

func (a fakeAdv) ID() string          { return a.id }
func (a fakeAdv) LocalName() string   { return a.name }
func (a fakeAdv) RSSI() int16         { return a.rssi }
func (a fakeAdv) LikelyPrinter() bool { return a.printer }

// fakeCentral simulates the BLE stack. With requireScan set, Connect
// only resolves devices a scan has delivered, mirroring the address
// cache of the real central.
type fakeCentral struct {
	mu             sync.Mutex
	advertisements []fakeAdv
	peripherals    map[string]*fakePeripheral
	connectErr     error
	enableErr      error
	requireScan    bool
	cached         map[string]bool
	stopped        bool
	connectCalls   int
	onDrop         func(id string)
}

var _ ble.Central = (*fakeCentral)(nil)

func (c *fakeCentral) Enable() error { return c.enableErr }

func (c *fakeCentral) Scan(ctx context.Context, found func(ble.Advertisement)) error {
	c.mu.Lock()
	c.stopped = false
	advs := append([]fakeAdv(nil), c.advertisements...)
	c.mu.Unlock()

	for _, adv := range advs {
		if c.isStopped() {
			return nil
		}
		c.mu.Lock()
		if c.cached == nil {
			c.cached = make(map[string]bool)
		}
		c.cached[adv.id] = true
		c.mu.Unlock()
		found(adv)
	}
	if c.isStopped() {
		return nil
	}
	<-ctx.Done()
	return nil
}

func (c *fakeCentral) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

func (c *fakeCentral) StopScan() error {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
	return nil
}

func (c *fakeCentral) Connect(id string) (ble.Peripheral, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connectCalls++
	if c.connectErr != nil {
		return nil, c.connectErr
	}
	if c.requireScan && !c.cached[id] {
		return nil, fmt.Errorf("%w: %s", ble.ErrDeviceNotFound, id)
	}
	p, ok := c.peripherals[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ble.ErrDeviceNotFound, id)
	}
	return p, nil
}

func (c *fakeCentral) SetDisconnectHandler(handler func(id string)) {
	c.onDrop = handler
}

// drop simulates a hardware-initiated disconnect event.
func (c *fakeCentral) drop(id string) {
	if c.onDrop != nil {
		c.onDrop(id)
	}
}

type fakePeripheral struct {
	id          string
	name        string
	services    []ble.Service
	servicesErr error

	mu           sync.Mutex
	disconnected bool
}

var _ ble.Peripheral = (*fakePeripheral)(nil)

func (p *fakePeripheral) ID() string   { return p.id }
func (p *fakePeripheral) Name() string { return p.name }

func (p *fakePeripheral) Services() ([]ble.Service, error) {
	if p.servicesErr != nil {
		return nil, p.servicesErr
	}
	return p.services, nil
}

func (p *fakePeripheral) Disconnect() error {
	p.mu.Lock()
	p.disconnected = true
	p.mu.Unlock()
	return nil
}

func (p *fakePeripheral) wasDisconnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disconnected
}

type fakeService struct {
	uuid     string
	chars    []ble.Characteristic
	charsErr error
}

var _ ble.Service = fakeService{}

func (s fakeService) UUID() string { return s.uuid }

func (s fakeService) Characteristics() ([]ble.Characteristic, error) {
	if s.charsErr != nil {
		return nil, s.charsErr
	}
	return s.chars, nil
}

// fakeChar records every write. failAt fails the nth write attempt
// (1-based); onWrite runs before the nth attempt so tests can inject a
// disconnect mid-transfer.
type fakeChar struct {
	uuid  string
	props ble.Props

	mu      sync.Mutex
	writes  [][]byte
	modes   []string
	fails   int
	failAt  int
	onWrite func(n int)
}

var _ ble.Characteristic = (*fakeChar)(nil)

func (c *fakeChar) UUID() string          { return c.uuid }
func (c *fakeChar) Properties() ble.Props { return c.props }

func (c *fakeChar) Write(p []byte) (int, error) {
	return c.write(p, "ack")
}

func (c *fakeChar) WriteWithoutResponse(p []byte) (int, error) {
	return c.write(p, "unack")
}

func (c *fakeChar) write(p []byte, mode string) (int, error) {
	c.mu.Lock()
	n := len(c.writes) + c.fails + 1
	hook := c.onWrite
	c.mu.Unlock()

	if hook != nil {
		hook(n)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAt != 0 && n >= c.failAt {
		c.fails++
		return 0, errors.New("write rejected by stack")
	}
	c.writes = append(c.writes, append([]byte(nil), p...))
	c.modes = append(c.modes, mode)
	return len(p), nil
}

func (c *fakeChar) recordedWrites() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.writes...)
}

type notifyEvent struct {
	kind   string
	id     string
	detail string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifyEvent
}

var _ Notifier = (*recordingNotifier)(nil)

func (r *recordingNotifier) record(kind, id, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, notifyEvent{kind: kind, id: id, detail: detail})
}

func (r *recordingNotifier) Connected(id, name string) {
	r.record("connect-success", id, name)
}

func (r *recordingNotifier) ConnectFailed(id, reason string) {
	r.record("connect-failure", id, reason)
}

func (r *recordingNotifier) Disconnected(id string) {
	r.record("unexpected-disconnect", id, "")
}

func (r *recordingNotifier) PrintSucceeded(id string) {
	r.record("print-success", id, "")
}

func (r *recordingNotifier) PrintFailed(id, reason string) {
	r.record("print-failure", id, reason)
}

func (r *recordingNotifier) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	kinds := make([]string, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.kind
	}
	return kinds
}

func (r *recordingNotifier) last() notifyEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.events) == 0 {
		return notifyEvent{}
	}
	return r.events[len(r.events)-1]
}

// knownPrinterPeripheral builds a device with the most common service
// and write channel layout.
func knownPrinterPeripheral(id, name string) (*fakePeripheral, *fakeChar) {
	writer := &fakeChar{
		uuid:  ble.WriterCharacteristicUUIDs[0],
		props: ble.PropWrite | ble.PropWriteWithoutResponse,
	}
	svc := fakeService{
		uuid:  ble.PrinterServiceUUIDs[0],
		chars: []ble.Characteristic{writer},
	}
	return &fakePeripheral{id: id, name: name, services: []ble.Service{svc}}, writer
}

func newTestSession(t *testing.T, central *fakeCentral) (*Session, *recordingNotifier, *registry.Registry) {
	t.Helper()

	reg, err := registry.New(filepath.Join(t.TempDir(), "pairing.json"))
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewSession(central, reg, notifier, log, Config{ScanWindow: 50 * time.Millisecond})
	s.sleep = func(time.Duration) {}
	return s, notifier, reg
}
