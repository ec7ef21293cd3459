package printer

import "log/slog"

// Notifier receives fire-and-forget session events. Implementations
// must not call back into the Session and should return quickly; the
// Session invokes each method at most once per event, in transition
// order.
type Notifier interface {
	// Connected fires after a characteristic is negotiated.
	Connected(id, name string)
	// ConnectFailed fires when pairing or an implicit connect fails.
	ConnectFailed(id, reason string)
	// Disconnected fires on an unexpected hardware drop while idle.
	// A drop during a print surfaces as PrintFailed instead.
	Disconnected(id string)
	// PrintSucceeded fires after the last chunk is written.
	PrintSucceeded(id string)
	// PrintFailed fires when a transfer aborts.
	PrintFailed(id, reason string)
}

// MultiNotifier fans events out to several notifiers in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Connected(id, name string) {
	for _, n := range m {
		n.Connected(id, name)
	}
}

func (m MultiNotifier) ConnectFailed(id, reason string) {
	for _, n := range m {
		n.ConnectFailed(id, reason)
	}
}

func (m MultiNotifier) Disconnected(id string) {
	for _, n := range m {
		n.Disconnected(id)
	}
}

func (m MultiNotifier) PrintSucceeded(id string) {
	for _, n := range m {
		n.PrintSucceeded(id)
	}
}

func (m MultiNotifier) PrintFailed(id, reason string) {
	for _, n := range m {
		n.PrintFailed(id, reason)
	}
}

// LogNotifier writes every event to a structured logger.
type LogNotifier struct {
	Log *slog.Logger
}

func (l LogNotifier) Connected(id, name string) {
	l.Log.Info("printer connected", "device", id, "name", name)
}

func (l LogNotifier) ConnectFailed(id, reason string) {
	l.Log.Error("printer connect failed", "device", id, "reason", reason)
}

func (l LogNotifier) Disconnected(id string) {
	l.Log.Warn("printer disconnected unexpectedly", "device", id)
}

func (l LogNotifier) PrintSucceeded(id string) {
	l.Log.Info("print finished", "device", id)
}

func (l LogNotifier) PrintFailed(id, reason string) {
	l.Log.Error("print failed", "device", id, "reason", reason)
}

// NopNotifier discards every event.
type NopNotifier struct{}

func (NopNotifier) Connected(id, name string)       {}
func (NopNotifier) ConnectFailed(id, reason string) {}
func (NopNotifier) Disconnected(id string)          {}
func (NopNotifier) PrintSucceeded(id string)        {}
func (NopNotifier) PrintFailed(id, reason string)   {}
