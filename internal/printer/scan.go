package printer

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warungpos/print-bridge/internal/ble"
)

// ScanResult is one device observed during a discovery window.
// Discovery accepts every advertiser; LikelyPrinter flags the ones
// carrying a known printer service so UIs can sort them first.
type ScanResult struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	RSSI          int16  `json:"rssi"`
	LikelyPrinter bool   `json:"likely_printer"`
}

// Scan discovers nearby devices for the given window (the configured
// default when window is zero). Repeated advertisements are collapsed
// into one entry keeping the strongest signal and the latest non-empty
// name. Results are sorted likely printers first, then by signal.
func (s *Session) Scan(ctx context.Context, window time.Duration) ([]ScanResult, error) {
	if !s.opMu.TryLock() {
		return nil, ErrPrintBusy
	}
	defer s.opMu.Unlock()

	if window <= 0 {
		window = s.scanWindow
	}
	scanCtx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	var (
		mu   sync.Mutex
		byID = make(map[string]ScanResult)
	)
	err := s.central.Scan(scanCtx, func(adv ble.Advertisement) {
		mu.Lock()
		defer mu.Unlock()

		entry, seen := byID[adv.ID()]
		if !seen {
			entry = ScanResult{ID: adv.ID(), RSSI: adv.RSSI()}
		}
		if name := adv.LocalName(); name != "" {
			entry.Name = name
		}
		if adv.RSSI() > entry.RSSI {
			entry.RSSI = adv.RSSI()
		}
		if adv.LikelyPrinter() {
			entry.LikelyPrinter = true
		}
		byID[adv.ID()] = entry
	})
	if err != nil && scanCtx.Err() == nil {
		return nil, err
	}

	mu.Lock()
	results := make([]ScanResult, 0, len(byID))
	for _, entry := range byID {
		results = append(results, entry)
	}
	mu.Unlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].LikelyPrinter != results[j].LikelyPrinter {
			return results[i].LikelyPrinter
		}
		if results[i].RSSI != results[j].RSSI {
			return results[i].RSSI > results[j].RSSI
		}
		return results[i].ID < results[j].ID
	})
	return results, nil
}
