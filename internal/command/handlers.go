package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/warungpos/print-bridge/internal/escpos"
	"github.com/warungpos/print-bridge/internal/printer"
	"github.com/warungpos/print-bridge/internal/render"
	"github.com/warungpos/print-bridge/internal/share"
	"github.com/warungpos/print-bridge/pkg/receipt"
)

// Share images are bounded to this dimension before leaving the bridge.
const shareMaxDim = 1080

// handleStatus reports the session snapshot and feature availability.
func (e *Executor) handleStatus() *Result {
	snap := e.session.Snapshot()

	data := map[string]interface{}{
		"connection":  string(snap.Connection),
		"print":       string(snap.Print),
		"ble":         e.bleAvailable,
		"device_id":   snap.DeviceID,
		"device_name": snap.DeviceName,
		"features": map[string]interface{}{
			"whatsapp": e.share != nil && e.share.Configured(),
			"sheets":   e.sheets != nil && e.sheets.Enabled(),
		},
	}
	if snap.Paired != nil {
		data["paired"] = map[string]interface{}{
			"id":   snap.Paired.ID,
			"name": snap.Paired.Name,
		}
	}

	message := fmt.Sprintf("Printer %s", snap.Connection)
	if snap.Connection == printer.StateConnected && snap.DeviceName != "" {
		message = fmt.Sprintf("Connected to %s", snap.DeviceName)
	}

	return &Result{
		Success: true,
		Message: message,
		Data:    data,
	}
}

// handleScan runs a time-boxed scan and lists nearby advertisers.
// Usage: scan [seconds]
func (e *Executor) handleScan(ctx context.Context, args []string) *Result {
	var window time.Duration
	if len(args) > 0 {
		seconds, err := strconv.Atoi(args[0])
		if err != nil || seconds <= 0 {
			return &Result{
				Success: false,
				Error:   fmt.Sprintf("invalid scan duration: %s", args[0]),
			}
		}
		window = time.Duration(seconds) * time.Second
	}

	devices, err := e.session.Scan(ctx, window)
	if err != nil {
		return &Result{
			Success: false,
			Error:   fmt.Sprintf("scan failed: %v", err),
		}
	}

	return &Result{
		Success: true,
		Message: fmt.Sprintf("Found %d device(s)", len(devices)),
		Data: map[string]interface{}{
			"devices": devices,
			"count":   len(devices),
		},
	}
}

// handlePair connects to a printer and persists the pairing. Without an
// argument it pairs the strongest likely printer from a fresh scan.
// Usage: pair [device-id]
func (e *Executor) handlePair(ctx context.Context, args []string) *Result {
	var id string
	if len(args) > 0 {
		id = args[0]
	} else {
		devices, err := e.session.Scan(ctx, 0)
		if err != nil {
			return &Result{
				Success: false,
				Error:   fmt.Sprintf("scan failed: %v", err),
			}
		}
		if len(devices) == 0 {
			return &Result{
				Success: false,
				Error:   "no printers found nearby",
			}
		}
		id = devices[0].ID
	}

	if err := e.session.Pair(ctx, id); err != nil {
		if errors.Is(err, printer.ErrAlreadyConnected) {
			return &Result{
				Success: false,
				Error:   "a printer is already connected; disconnect first",
			}
		}
		return &Result{
			Success: false,
			Error:   fmt.Sprintf("pairing failed: %v", err),
		}
	}

	snap := e.session.Snapshot()
	return &Result{
		Success: true,
		Message: fmt.Sprintf("Connected to %s", snap.DeviceName),
		Data: map[string]interface{}{
			"device_id":   snap.DeviceID,
			"device_name": snap.DeviceName,
		},
	}
}

// handleDisconnect drops the connection and clears the pairing.
func (e *Executor) handleDisconnect() *Result {
	if err := e.session.Disconnect(); err != nil {
		return &Result{
			Success: false,
			Error:   fmt.Sprintf("disconnect failed: %v", err),
		}
	}
	return &Result{
		Success: true,
		Message: "Disconnected and unpaired",
	}
}

// handlePrint encodes a receipt and sends the selected copies.
// Usage: print <receipt-path-or-url> [--copies invoice,worker]
func (e *Executor) handlePrint(ctx context.Context, args []string) *Result {
	if len(args) < 1 {
		return &Result{
			Success: false,
			Error:   "usage: print <receipt-path-or-url> [--copies invoice,worker]",
		}
	}

	copies := []string{"invoice"}
	for i := 1; i < len(args); i++ {
		if args[i] == "--copies" && i+1 < len(args) {
			copies = strings.Split(args[i+1], ",")
			i++
			continue
		}
		return &Result{
			Success: false,
			Error:   fmt.Sprintf("unexpected argument: %s", args[i]),
		}
	}

	r, err := loadReceipt(args[0])
	if err != nil {
		return &Result{
			Success: false,
			Error:   fmt.Sprintf("failed to load receipt: %v", err),
		}
	}
	if err := receipt.Validate(r); err != nil {
		return &Result{
			Success: false,
			Error:   fmt.Sprintf("invalid receipt: %v", err),
		}
	}

	profile, err := e.settings.Get()
	if err != nil {
		return &Result{
			Success: false,
			Error:   fmt.Sprintf("failed to load settings: %v", err),
		}
	}
	store := &receipt.StoreInfo{Name: profile.Name, Address: profile.Address, Phone: profile.Phone}

	printed := make([]string, 0, len(copies))
	for _, copyName := range copies {
		var payload []byte
		switch strings.TrimSpace(copyName) {
		case "invoice":
			payload = escpos.EncodeInvoice(r, store)
		case "worker":
			payload = escpos.EncodeWorkerCopy(r)
		default:
			return &Result{
				Success: false,
				Error:   fmt.Sprintf("unknown copy: %s (use invoice, worker)", copyName),
			}
		}

		if err := e.session.Print(ctx, payload); err != nil {
			return &Result{
				Success: false,
				Error:   fmt.Sprintf("failed to print %s copy: %v", copyName, err),
				Data: map[string]interface{}{
					"printed": printed,
				},
			}
		}
		printed = append(printed, strings.TrimSpace(copyName))
	}

	return &Result{
		Success: true,
		Message: fmt.Sprintf("Printed %s", strings.Join(printed, " + ")),
		Data: map[string]interface{}{
			"receipt_id": r.ID,
			"printed":    printed,
		},
	}
}

// handleTest prints the pairing test slip.
func (e *Executor) handleTest(ctx context.Context) *Result {
	profile, err := e.settings.Get()
	if err != nil {
		return &Result{
			Success: false,
			Error:   fmt.Sprintf("failed to load settings: %v", err),
		}
	}

	if err := e.session.Print(ctx, escpos.EncodeTestPage(profile.Name)); err != nil {
		return &Result{
			Success: false,
			Error:   fmt.Sprintf("test print failed: %v", err),
		}
	}
	return &Result{
		Success: true,
		Message: "Test page sent",
	}
}

// handleShare renders the invoice image and forwards it over the
// WhatsApp gateway.
// Usage: share <receipt-path-or-url> <phone> [caption]
func (e *Executor) handleShare(ctx context.Context, args []string) *Result {
	if len(args) < 2 {
		return &Result{
			Success: false,
			Error:   "usage: share <receipt-path-or-url> <phone> [caption]",
		}
	}

	r, err := loadReceipt(args[0])
	if err != nil {
		return &Result{
			Success: false,
			Error:   fmt.Sprintf("failed to load receipt: %v", err),
		}
	}
	if err := receipt.Validate(r); err != nil {
		return &Result{
			Success: false,
			Error:   fmt.Sprintf("invalid receipt: %v", err),
		}
	}

	profile, err := e.settings.Get()
	if err != nil {
		return &Result{
			Success: false,
			Error:   fmt.Sprintf("failed to load settings: %v", err),
		}
	}

	img, err := render.Invoice(r, profile)
	if err != nil {
		return &Result{
			Success: false,
			Error:   fmt.Sprintf("failed to render receipt: %v", err),
		}
	}
	png, err := render.EncodePNG(render.Downscale(img, shareMaxDim))
	if err != nil {
		return &Result{
			Success: false,
			Error:   fmt.Sprintf("failed to encode image: %v", err),
		}
	}

	caption := strings.Join(args[2:], " ")
	if caption == "" {
		caption = fmt.Sprintf("Struk %s - %s", r.ID, profile.Name)
	}

	if err := e.share.Forward(ctx, args[1], caption, png); err != nil {
		if errors.Is(err, share.ErrNotConfigured) {
			return &Result{
				Success: false,
				Error:   "whatsapp gateway not configured",
			}
		}
		return &Result{
			Success: false,
			Error:   fmt.Sprintf("share failed: %v", err),
		}
	}

	return &Result{
		Success: true,
		Message: fmt.Sprintf("Receipt %s sent to %s", r.ID, args[1]),
		Data: map[string]interface{}{
			"receipt_id": r.ID,
			"phone":      args[1],
		},
	}
}

// handleSettings shows the store profile.
func (e *Executor) handleSettings() *Result {
	profile, err := e.settings.Get()
	if err != nil {
		return &Result{
			Success: false,
			Error:   fmt.Sprintf("failed to load settings: %v", err),
		}
	}
	return &Result{
		Success: true,
		Message: profile.Name,
		Data: map[string]interface{}{
			"profile": profile,
		},
	}
}

// handleHelp lists the available commands.
func (e *Executor) handleHelp() *Result {
	helpText := `Available Commands:

  status
    Show connection state, paired printer and enabled features

  scan [seconds]
    Scan for nearby BLE printers (default window: 8s)

  pair [device-id]
    Connect to a printer and remember it. Without an id the
    strongest likely printer from a fresh scan is used

  disconnect
    Disconnect and forget the paired printer

  print <receipt-path-or-url> [--copies invoice,worker]
    Encode a receipt JSON file and print the selected copies

  test
    Print a short test page

  share <receipt-path-or-url> <phone> [caption]
    Render the receipt as an image and send it over WhatsApp

  settings
    Show the store profile

  help
    Show this help message

Examples:
  scan 5
  pair AA:BB:CC:DD:EE:FF
  print ./sale.json
  print ./sale.json --copies invoice,worker
  print https://pos.local/receipts/INV-42.json
  share ./sale.json 081234567890
`

	return &Result{
		Success: true,
		Message: helpText,
	}
}

// loadReceipt reads a receipt from a local path or an http(s) URL.
func loadReceipt(pathOrURL string) (*receipt.Receipt, error) {
	if !strings.HasPrefix(pathOrURL, "http://") && !strings.HasPrefix(pathOrURL, "https://") {
		return receipt.ParseFile(pathOrURL)
	}

	resp, err := http.Get(pathOrURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch receipt from URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch receipt: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt from URL: %w", err)
	}
	return receipt.Parse(data)
}
