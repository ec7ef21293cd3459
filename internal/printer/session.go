// Package printer owns the single BLE printer session: pairing,
// characteristic negotiation, chunked transfer and the persisted
// pairing record.
package printer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/warungpos/print-bridge/internal/ble"
	"github.com/warungpos/print-bridge/internal/registry"
)

// ConnState is the connection half of the session state.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

// PrintState is the transfer half; Printing is only valid while
// Connected.
type PrintState string

const (
	PrintIdle     PrintState = "idle"
	PrintPrinting PrintState = "printing"
)

const (
	DefaultChunkSize  = 512
	DefaultChunkDelay = 50 * time.Millisecond
	DefaultScanWindow = 8 * time.Second
)

// Config tunes the session. Zero values fall back to the defaults.
type Config struct {
	ChunkSize  int
	ChunkDelay time.Duration
	ScanWindow time.Duration
}

// Session manages the lifecycle of one BLE printer link. All public
// operations are serialized; overlapping calls fail with ErrPrintBusy
// rather than queue.
type Session struct {
	central  ble.Central
	registry *registry.Registry
	notifier Notifier
	log      *slog.Logger

	chunkSize  int
	chunkDelay time.Duration
	scanWindow time.Duration
	sleep      func(time.Duration)

	// opMu serializes connect, print, scan and disconnect so at most
	// one BLE operation is ever in flight.
	opMu sync.Mutex

	// mu guards the state fields below.
	mu            sync.Mutex
	connState     ConnState
	printState    PrintState
	peripheral    ble.Peripheral
	writer        ble.Characteristic
	deviceID      string
	lastKnownName string
}

// NewSession wires a session to the BLE central and the pairing
// registry. notifier may be nil when no UI is listening.
func NewSession(central ble.Central, reg *registry.Registry, notifier Notifier, log *slog.Logger, cfg Config) *Session {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ChunkDelay <= 0 {
		cfg.ChunkDelay = DefaultChunkDelay
	}
	if cfg.ScanWindow <= 0 {
		cfg.ScanWindow = DefaultScanWindow
	}

	s := &Session{
		central:    central,
		registry:   reg,
		notifier:   notifier,
		log:        log,
		chunkSize:  cfg.ChunkSize,
		chunkDelay: cfg.ChunkDelay,
		scanWindow: cfg.ScanWindow,
		sleep:      time.Sleep,
		connState:  StateDisconnected,
		printState: PrintIdle,
	}
	central.SetDisconnectHandler(s.handleDrop)
	return s
}

// Snapshot is a point-in-time view of the session for UIs.
type Snapshot struct {
	Connection ConnState              `json:"connection"`
	Print      PrintState             `json:"print"`
	DeviceID   string                 `json:"device_id,omitempty"`
	DeviceName string                 `json:"device_name,omitempty"`
	Paired     *registry.PairedDevice `json:"paired,omitempty"`
}

// Snapshot reports the current state. Paired reflects the durable
// record, which can outlive the live link after a hardware drop.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		Connection: s.connState,
		Print:      s.printState,
		DeviceID:   s.deviceID,
		DeviceName: s.lastKnownName,
	}
	s.mu.Unlock()

	snap.Paired = s.registry.Device()
	return snap
}

// Pair connects to a device seen in a recent scan and negotiates its
// write channel. The persisted pairing is updated on success. A
// cancelled ctx returns the context error without any notification;
// dismissing the device chooser is not a failure.
func (s *Session) Pair(ctx context.Context, id string) error {
	if !s.opMu.TryLock() {
		return ErrPrintBusy
	}
	defer s.opMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	connected := s.connState != StateDisconnected
	s.mu.Unlock()
	if connected {
		return ErrAlreadyConnected
	}

	return s.connect(ctx, id)
}

// Disconnect tears down the link and forgets the persisted pairing.
// Calling it without a live link still forgets the pairing; no
// notification is emitted for a user-requested disconnect.
func (s *Session) Disconnect() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	peripheral := s.peripheral
	s.peripheral = nil
	s.writer = nil
	s.deviceID = ""
	s.lastKnownName = ""
	s.connState = StateDisconnected
	s.printState = PrintIdle
	s.mu.Unlock()

	if err := s.registry.Clear(); err != nil {
		s.log.Warn("failed to clear pairing", "error", err)
	}
	if peripheral != nil {
		if err := peripheral.Disconnect(); err != nil {
			return fmt.Errorf("disconnect: %w", err)
		}
	}
	return nil
}

// Close drops the live link but keeps the persisted pairing, so the
// next start reconnects to the same printer. No notification is
// emitted. Used at process shutdown.
func (s *Session) Close() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	peripheral := s.peripheral
	s.peripheral = nil
	s.writer = nil
	s.deviceID = ""
	s.connState = StateDisconnected
	s.printState = PrintIdle
	s.mu.Unlock()

	if peripheral == nil {
		return nil
	}
	if err := peripheral.Disconnect(); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}

// Print delivers an encoded payload to the negotiated write channel in
// fixed-size chunks. A request while Disconnected first attempts an
// implicit connect to the persisted pairing; if that fails, the print
// fails with the connect reason and Printing is never entered.
func (s *Session) Print(ctx context.Context, payload []byte) error {
	if !s.opMu.TryLock() {
		return ErrPrintBusy
	}
	defer s.opMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	state := s.connState
	s.mu.Unlock()

	if state == StateDisconnected {
		paired := s.registry.Device()
		if paired == nil {
			return ErrNoPairedDevice
		}
		if err := s.connect(ctx, paired.ID); err != nil {
			return err
		}
	}

	s.mu.Lock()
	if s.connState != StateConnected || s.writer == nil {
		s.mu.Unlock()
		return errors.New("connection lost before transfer started")
	}
	writer := s.writer
	id := s.deviceID
	s.printState = PrintPrinting
	s.mu.Unlock()

	err := s.transfer(writer, payload)

	s.mu.Lock()
	dropped := s.connState == StateDisconnected
	if s.connState == StateConnected {
		s.printState = PrintIdle
	}
	s.mu.Unlock()

	if err != nil {
		if dropped {
			err = fmt.Errorf("connection lost during print: %w", err)
		}
		s.notifier.PrintFailed(id, err.Error())
		printJobs.WithLabelValues("failure").Inc()
		return err
	}

	s.notifier.PrintSucceeded(id)
	printJobs.WithLabelValues("success").Inc()
	s.log.Info("print delivered", "device", id, "bytes", len(payload))
	return nil
}

// connect drives Disconnected -> Connecting -> Connected while opMu is
// held. Every failure lands back in Disconnected and emits exactly one
// connect-failure notification.
func (s *Session) connect(ctx context.Context, id string) error {
	s.mu.Lock()
	s.connState = StateConnecting
	s.deviceID = id
	s.mu.Unlock()

	peripheral, err := s.dial(ctx, id)
	if err != nil {
		s.resetDisconnected()
		s.notifier.ConnectFailed(id, err.Error())
		connectAttempts.WithLabelValues("failure").Inc()
		return err
	}

	writer, err := negotiate(peripheral)
	if err != nil {
		if derr := peripheral.Disconnect(); derr != nil {
			s.log.Debug("disconnect after failed negotiation", "error", derr)
		}
		s.resetDisconnected()
		s.notifier.ConnectFailed(id, err.Error())
		connectAttempts.WithLabelValues("failure").Inc()
		return err
	}

	name := peripheral.Name()
	s.mu.Lock()
	s.peripheral = peripheral
	s.writer = writer
	s.deviceID = id
	s.lastKnownName = name
	s.connState = StateConnected
	s.printState = PrintIdle
	s.mu.Unlock()

	if err := s.registry.Save(registry.PairedDevice{ID: id, Name: name}); err != nil {
		s.log.Warn("failed to persist pairing", "device", id, "error", err)
	}
	s.notifier.Connected(id, name)
	connectAttempts.WithLabelValues("success").Inc()
	s.log.Info("characteristic negotiated", "device", id, "characteristic", writer.UUID())
	return nil
}

// dial resolves the device handle, scanning for it when the address
// cache does not know it. That is the usual case for an implicit
// connect after a restart.
func (s *Session) dial(ctx context.Context, id string) (ble.Peripheral, error) {
	peripheral, err := s.central.Connect(id)
	if err == nil {
		return peripheral, nil
	}
	if !errors.Is(err, ble.ErrDeviceNotFound) {
		return nil, err
	}

	s.log.Debug("device not in scan cache, scanning", "device", id)
	if err := s.scanFor(ctx, id); err != nil {
		return nil, err
	}
	return s.central.Connect(id)
}

// scanFor runs a bounded scan until the device advertises.
func (s *Session) scanFor(ctx context.Context, id string) error {
	scanCtx, cancel := context.WithTimeout(ctx, s.scanWindow)
	defer cancel()

	var found atomic.Bool
	err := s.central.Scan(scanCtx, func(adv ble.Advertisement) {
		if adv.ID() == id {
			found.Store(true)
			if serr := s.central.StopScan(); serr != nil {
				s.log.Debug("stop scan", "error", serr)
			}
		}
	})
	if found.Load() {
		return nil
	}
	if err != nil && scanCtx.Err() == nil {
		return fmt.Errorf("scan: %w", err)
	}
	return fmt.Errorf("%w: %s", ble.ErrDeviceNotFound, id)
}

// resetDisconnected clears the live link. The persisted pairing and
// the last known name are left alone; only Disconnect clears those.
func (s *Session) resetDisconnected() {
	s.mu.Lock()
	s.peripheral = nil
	s.writer = nil
	s.deviceID = ""
	s.connState = StateDisconnected
	s.printState = PrintIdle
	s.mu.Unlock()
}

// handleDrop reacts to the stack's disconnect callback. An explicit
// Disconnect clears the peripheral before the callback fires, so only
// unexpected drops get past the guard. The persisted pairing survives
// so the UI can offer re-pairing.
func (s *Session) handleDrop(id string) {
	s.mu.Lock()
	if s.peripheral == nil || s.deviceID != id {
		s.mu.Unlock()
		return
	}
	wasPrinting := s.printState == PrintPrinting
	s.peripheral = nil
	s.writer = nil
	s.deviceID = ""
	s.connState = StateDisconnected
	s.printState = PrintIdle
	s.mu.Unlock()

	s.log.Warn("hardware disconnect", "device", id, "was_printing", wasPrinting)
	if wasPrinting {
		// the failing transfer reports this as a print failure
		return
	}
	s.notifier.Disconnected(id)
}
