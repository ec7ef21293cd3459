// Package settings stores the editable store profile behind a TTL
// cache. The POS UI edits the same file out-of-band, so cached reads
// expire instead of living for the process lifetime.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// DefaultTTL bounds how stale a cached profile may get before Get
// re-reads the backing file.
const DefaultTTL = 5 * time.Minute

// BankAccount is the transfer destination printed on invoices.
type BankAccount struct {
	BankName      string `json:"bank_name,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	AccountHolder string `json:"account_holder,omitempty"`
}

// StoreProfile is the shop identity used across printing, rendering
// and sharing. The footer lines apply to the rendered share image; the
// printed layouts carry their own fixed footer.
type StoreProfile struct {
	Name               string      `json:"name"`
	Address            string      `json:"address,omitempty"`
	Phone              string      `json:"phone,omitempty"`
	FooterLine1        string      `json:"footer_line1,omitempty"`
	FooterLine2        string      `json:"footer_line2,omitempty"`
	Bank               BankAccount `json:"bank"`
	WhatsAppGatewayURL string      `json:"whatsapp_gateway_url,omitempty"`
	SpreadsheetID      string      `json:"spreadsheet_id,omitempty"`
}

// DefaultProfile is what a fresh install prints with before the shop
// fills in its details.
func DefaultProfile() StoreProfile {
	return StoreProfile{
		Name:        "WARUNG POS",
		FooterLine1: "Terima kasih atas kunjungan Anda",
		FooterLine2: "Barang yang sudah dibeli tidak dapat dikembalikan",
	}
}

// Store caches the profile file with a TTL.
type Store struct {
	filePath string
	ttl      time.Duration
	now      func() time.Time

	mu        sync.RWMutex
	profile   StoreProfile
	fetchedAt time.Time
	loaded    bool
}

// New creates a Store backed by filePath. A non-positive ttl selects
// DefaultTTL.
func New(filePath string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{filePath: filePath, ttl: ttl, now: time.Now}
}

// Get returns the profile, re-reading the file once the cached copy is
// older than the TTL. A missing file yields the default profile.
func (s *Store) Get() (StoreProfile, error) {
	s.mu.RLock()
	if s.loaded && s.now().Sub(s.fetchedAt) < s.ttl {
		profile := s.profile
		s.mu.RUnlock()
		return profile, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// another goroutine may have refreshed while we waited
	if s.loaded && s.now().Sub(s.fetchedAt) < s.ttl {
		return s.profile, nil
	}

	profile, err := s.read()
	if err != nil {
		return StoreProfile{}, err
	}
	s.profile = profile
	s.fetchedAt = s.now()
	s.loaded = true
	return profile, nil
}

// Put writes the profile to disk and refreshes the cache.
func (s *Store) Put(profile StoreProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}

	s.profile = profile
	s.fetchedAt = s.now()
	s.loaded = true
	return nil
}

// Invalidate forces the next Get to re-read the file.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.loaded = false
	s.mu.Unlock()
}

func (s *Store) read() (StoreProfile, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultProfile(), nil
		}
		return StoreProfile{}, fmt.Errorf("failed to read settings: %w", err)
	}

	var profile StoreProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return StoreProfile{}, fmt.Errorf("failed to parse settings: %w", err)
	}
	return profile, nil
}
