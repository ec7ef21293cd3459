package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultServerURL = "http://localhost:12212"

// Print jobs ride on this request, and a cold BLE connect plus a long
// receipt can take tens of seconds.
var httpClient = &http.Client{Timeout: 2 * time.Minute}

func main() {
	var serverURL string
	flag.StringVar(&serverURL, "server", defaultServerURL, "Bridge URL")
	flag.StringVar(&serverURL, "s", defaultServerURL, "Bridge URL (short)")
	flag.Parse()

	if flag.NArg() == 0 {
		printUsage()
		os.Exit(1)
	}

	args := flag.Args()

	// A bare pair opens the interactive chooser; with a device id it
	// passes through to the bridge like every other command.
	if args[0] == "pair" && len(args) == 1 {
		os.Exit(runPairPicker(serverURL))
	}

	result := executeCommand(serverURL, strings.Join(args, " "))

	if result.Success {
		printSuccess(result)
		os.Exit(0)
	}
	printError(result)
	os.Exit(1)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `WarungPOS Print Bridge CLI

Usage:
  bridge-cli [flags] <command>

Flags:
  -s, -server <url>    Bridge URL (default: %s)

Commands:
  status
    Show connection state, paired printer and enabled features

  scan [seconds]
    Scan for nearby BLE printers

  pair [device-id]
    Connect to a printer and remember it. Without an id an
    interactive chooser opens

  disconnect
    Disconnect and forget the paired printer

  print <receipt-path-or-url> [--copies invoice,worker]
    Print a receipt JSON file. The path is resolved on the
    bridge host

  test
    Print a short test page

  share <receipt-path-or-url> <phone> [caption]
    Send the receipt image over WhatsApp. The path is resolved
    on the bridge host

  settings
    Show the store profile

  help
    Show the bridge command help

Examples:
  bridge-cli scan 5
  bridge-cli pair
  bridge-cli pair AA:BB:CC:DD:EE:FF
  bridge-cli print ./sale.json --copies invoice,worker
  bridge-cli share ./sale.json 081234567890
  bridge-cli -s http://192.168.0.10:12212 status

`, defaultServerURL)
}

// commandResponse is the bridge's command payload. Data keys arrive
// merged into the top level next to success/message/error.
type commandResponse struct {
	Success bool
	Message string
	Error   string
	Data    map[string]interface{}
}

func executeCommand(serverURL, command string) *commandResponse {
	url := strings.TrimSuffix(serverURL, "/") + "/api/command"

	jsonData, err := json.Marshal(map[string]string{"command": command})
	if err != nil {
		return &commandResponse{Error: fmt.Sprintf("failed to marshal request: %v", err)}
	}

	resp, err := httpClient.Post(url, "application/json", strings.NewReader(string(jsonData)))
	if err != nil {
		return &commandResponse{Error: fmt.Sprintf("failed to connect to bridge: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &commandResponse{Error: fmt.Sprintf("failed to read response: %v", err)}
	}
	return parseResponse(body)
}

func parseResponse(body []byte) *commandResponse {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return &commandResponse{Error: fmt.Sprintf("failed to parse response: %v", err)}
	}

	result := &commandResponse{Data: make(map[string]interface{})}
	for k, v := range raw {
		switch k {
		case "success":
			result.Success, _ = v.(bool)
		case "message":
			result.Message, _ = v.(string)
		case "error":
			result.Error, _ = v.(string)
		default:
			result.Data[k] = v
		}
	}
	return result
}

func printSuccess(result *commandResponse) {
	if result.Message != "" {
		fmt.Println(result.Message)
	}

	if devices, ok := result.Data["devices"].([]interface{}); ok {
		printDevices(devices)
	}

	if ble, ok := result.Data["ble"].(bool); ok && !ble {
		fmt.Println("Bluetooth is unavailable on the bridge host")
	}

	if features, ok := result.Data["features"].(map[string]interface{}); ok {
		fmt.Printf("WhatsApp sharing: %s\n", onOff(features["whatsapp"]))
		fmt.Printf("Sales sync: %s\n", onOff(features["sheets"]))
	}

	if profile, ok := result.Data["profile"].(map[string]interface{}); ok {
		printProfile(profile)
	}

	if id, ok := result.Data["receipt_id"].(string); ok && id != "" {
		fmt.Printf("Receipt: %s\n", id)
	}
}

func printDevices(devices []interface{}) {
	if len(devices) == 0 {
		return
	}

	fmt.Println("\nNearby devices:")
	likelySeen := false
	for _, d := range devices {
		dev, ok := d.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := dev["name"].(string)
		if name == "" {
			name = "(unnamed)"
		}
		marker := " "
		if likely, _ := dev["likely_printer"].(bool); likely {
			marker = "*"
			likelySeen = true
		}
		fmt.Printf("  %s %-24s %v  %vdBm\n", marker, name, dev["id"], dev["rssi"])
	}
	if likelySeen {
		fmt.Println("  * likely a printer")
	}
}

func printProfile(profile map[string]interface{}) {
	order := []struct{ key, label string }{
		{"name", "Name"},
		{"address", "Address"},
		{"phone", "Phone"},
		{"footer_line1", "Footer 1"},
		{"footer_line2", "Footer 2"},
	}
	for _, f := range order {
		if v, ok := profile[f.key].(string); ok && v != "" {
			fmt.Printf("  %-10s %s\n", f.label, v)
		}
	}
}

func onOff(v interface{}) string {
	if enabled, _ := v.(bool); enabled {
		return "on"
	}
	return "off"
}

func printError(result *commandResponse) {
	if result.Error != "" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", result.Error)
	} else if result.Message != "" {
		fmt.Fprintf(os.Stderr, "%s\n", result.Message)
	}
}
