package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	pickerTitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#06B6D4"))
	pickerSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981"))
	pickerMutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	pickerErrorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	pickerSpinnerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED"))
)

type pickerPhase int

const (
	pickerScanning pickerPhase = iota
	pickerChoosing
	pickerPairing
	pickerDone
	pickerFailed
)

type scanDevice struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	RSSI          int    `json:"rssi"`
	LikelyPrinter bool   `json:"likely_printer"`
}

type scanFinishedMsg struct {
	devices []scanDevice
	err     error
}

type pairFinishedMsg struct {
	name string
	err  error
}

type pickerModel struct {
	serverURL string
	phase     pickerPhase
	spinner   spinner.Model
	devices   []scanDevice
	cursor    int
	target    scanDevice
	paired    string
	err       error
	cancelled bool
}

// runPairPicker drives the interactive chooser for a bare pair command.
// Cancelling is a silent no-op; nothing is sent to the bridge until a
// device is chosen.
func runPairPicker(serverURL string) int {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = pickerSpinnerStyle

	m := pickerModel{serverURL: serverURL, phase: pickerScanning, spinner: s}

	finalModel, err := tea.NewProgram(m).Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	final := finalModel.(pickerModel)
	if final.phase == pickerFailed && final.err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", final.err)
		return 1
	}
	if final.phase == pickerDone {
		fmt.Printf("Connected to %s\n", final.paired)
	}
	return 0
}

func (m pickerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, scanCmd(m.serverURL))
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.phase != pickerFailed {
				m.cancelled = true
			}
			return m, tea.Quit

		case "up", "k":
			if m.phase == pickerChoosing && m.cursor > 0 {
				m.cursor--
			}

		case "down", "j":
			if m.phase == pickerChoosing && m.cursor < len(m.devices)-1 {
				m.cursor++
			}

		case "r":
			if m.phase == pickerChoosing || m.phase == pickerFailed {
				m.phase = pickerScanning
				m.err = nil
				return m, tea.Batch(m.spinner.Tick, scanCmd(m.serverURL))
			}

		case "enter":
			if m.phase == pickerChoosing && len(m.devices) > 0 {
				m.target = m.devices[m.cursor]
				m.phase = pickerPairing
				return m, tea.Batch(m.spinner.Tick, pairCmd(m.serverURL, m.target.ID))
			}
		}

	case scanFinishedMsg:
		if msg.err != nil {
			m.phase = pickerFailed
			m.err = msg.err
			return m, nil
		}
		m.devices = msg.devices
		m.cursor = 0
		m.phase = pickerChoosing
		return m, nil

	case pairFinishedMsg:
		if msg.err != nil {
			m.phase = pickerFailed
			m.err = msg.err
			return m, nil
		}
		m.paired = msg.name
		m.phase = pickerDone
		return m, tea.Quit

	case spinner.TickMsg:
		if m.phase == pickerScanning || m.phase == pickerPairing {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m pickerModel) View() string {
	if m.cancelled || m.phase == pickerDone {
		return ""
	}

	var b strings.Builder
	b.WriteString(pickerTitleStyle.Render("Pair a printer"))
	b.WriteString("\n\n")

	switch m.phase {
	case pickerScanning:
		b.WriteString(fmt.Sprintf("%s scanning for printers...\n", m.spinner.View()))

	case pickerPairing:
		name := m.target.Name
		if name == "" {
			name = m.target.ID
		}
		b.WriteString(fmt.Sprintf("%s pairing with %s...\n", m.spinner.View(), name))

	case pickerFailed:
		b.WriteString(pickerErrorStyle.Render("✗ " + m.err.Error()))
		b.WriteString("\n\n")
		b.WriteString(pickerMutedStyle.Render("r scan again • q quit"))
		b.WriteString("\n")

	case pickerChoosing:
		if len(m.devices) == 0 {
			b.WriteString("No printers found nearby.\n\n")
			b.WriteString(pickerMutedStyle.Render("Turn the printer on, move closer and press r"))
			b.WriteString("\n")
			break
		}

		for i, d := range m.devices {
			cursor := "  "
			name := d.Name
			if name == "" {
				name = "(unnamed)"
			}

			line := fmt.Sprintf("%-24s %s", name, pickerMutedStyle.Render(fmt.Sprintf("%s  %ddBm", d.ID, d.RSSI)))
			if i == m.cursor {
				cursor = "▸ "
				line = pickerSelectedStyle.Render(fmt.Sprintf("%-24s", name)) +
					pickerMutedStyle.Render(fmt.Sprintf(" %s  %ddBm", d.ID, d.RSSI))
			}
			b.WriteString(cursor + line + "\n")
		}

		b.WriteString("\n")
		b.WriteString(pickerMutedStyle.Render("↑/↓ select • enter pair • r rescan • q cancel"))
		b.WriteString("\n")
	}

	return b.String()
}

func scanCmd(serverURL string) tea.Cmd {
	return func() tea.Msg {
		devices, err := fetchScan(serverURL)
		return scanFinishedMsg{devices: devices, err: err}
	}
}

func pairCmd(serverURL, id string) tea.Cmd {
	return func() tea.Msg {
		name, err := requestPair(serverURL, id)
		return pairFinishedMsg{name: name, err: err}
	}
}

func fetchScan(serverURL string) ([]scanDevice, error) {
	resp, err := httpClient.Get(strings.TrimSuffix(serverURL, "/") + "/api/scan")
	if err != nil {
		return nil, fmt.Errorf("failed to reach bridge: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(body, fmt.Sprintf("scan failed: HTTP %d", resp.StatusCode))
	}

	var payload struct {
		Devices []scanDevice `json:"devices"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse scan response: %w", err)
	}
	return payload.Devices, nil
}

func requestPair(serverURL, id string) (string, error) {
	reqBody, err := json.Marshal(map[string]string{"device_id": id})
	if err != nil {
		return "", err
	}

	resp, err := httpClient.Post(strings.TrimSuffix(serverURL, "/")+"/api/pair", "application/json", strings.NewReader(string(reqBody)))
	if err != nil {
		return "", fmt.Errorf("failed to reach bridge: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", apiError(body, fmt.Sprintf("pairing failed: HTTP %d", resp.StatusCode))
	}

	var payload struct {
		DeviceID   string `json:"device_id"`
		DeviceName string `json:"device_name"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("failed to parse pair response: %w", err)
	}
	if payload.DeviceName != "" {
		return payload.DeviceName, nil
	}
	return payload.DeviceID, nil
}

// apiError pulls the bridge's error field out of an error response,
// falling back to the HTTP status.
func apiError(body []byte, fallback string) error {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return errors.New(payload.Error)
	}
	return errors.New(fallback)
}
