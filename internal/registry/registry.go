// Package registry persists the paired printer identity across restarts.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// PairedDevice is the durable record of the last successful pairing.
// ID is the platform identifier reported by the BLE stack; Name is the
// advertised name at pairing time, kept so the UI can label the device
// while it is out of range.
type PairedDevice struct {
	ID       string    `json:"id"`
	Name     string    `json:"name,omitempty"`
	PairedAt time.Time `json:"paired_at"`
}

// Registry stores at most one paired device in a JSON file. It is
// written when a pairing is negotiated and cleared when the user
// explicitly disconnects; unexpected hardware drops leave it intact.
type Registry struct {
	filePath string
	mu       sync.RWMutex
	device   *PairedDevice
}

// New creates a Registry backed by filePath.
func New(filePath string) (*Registry, error) {
	r := &Registry{filePath: filePath}

	if err := r.load(); err != nil {
		// If file doesn't exist, that's okay - we'll create it on first save
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load registry: %w", err)
		}
	}

	return r, nil
}

// Device returns a copy of the paired device, or nil when none is stored.
func (r *Registry) Device() *PairedDevice {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.device == nil {
		return nil
	}
	device := *r.device
	return &device
}

// Save records d as the paired device and writes it to disk.
func (r *Registry) Save(d PairedDevice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d.PairedAt.IsZero() {
		d.PairedAt = time.Now()
	}
	r.device = &d

	return r.save()
}

// Clear forgets the paired device and removes the backing file.
func (r *Registry) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.device = nil

	if err := os.Remove(r.filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear registry: %w", err)
	}
	return nil
}

func (r *Registry) load() error {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		return err
	}

	var device PairedDevice
	if err := json.Unmarshal(data, &device); err != nil {
		return err
	}
	if device.ID != "" {
		r.device = &device
	}
	return nil
}

func (r *Registry) save() error {
	data, err := json.MarshalIndent(r.device, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(r.filePath, data, 0644)
}
