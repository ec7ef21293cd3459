// Package tui is the operator console shown when the bridge runs on an
// interactive terminal. It mirrors what the POS UI sees over the API:
// session state, nearby printers, and the live event log.
package tui

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/warungpos/print-bridge/internal/command"
	"github.com/warungpos/print-bridge/internal/printer"
)

const maxLogLines = 200

// Console is the tview operator console.
type Console struct {
	app      *tview.Application
	session  command.PrinterSession
	executor *command.Executor
	addr     string

	flex       *tview.Flex
	statusBox  *tview.TextView
	deviceList *tview.List
	logsArea   *tview.TextView
	cmdInput   *tview.InputField

	mu       sync.Mutex
	logs     []string
	devices  []printer.ScanResult
	scanning bool

	startTime time.Time
	done      chan struct{}
	stopOnce  sync.Once
}

// NewConsole builds the console around a live printer session. addr is the
// API listen address shown in the status panel.
func NewConsole(session command.PrinterSession, executor *command.Executor, addr string) *Console {
	c := &Console{
		app:       tview.NewApplication(),
		session:   session,
		executor:  executor,
		addr:      addr,
		startTime: time.Now(),
		done:      make(chan struct{}),
	}
	c.setupUI()
	return c
}

func (c *Console) setupUI() {
	c.statusBox = tview.NewTextView()
	c.statusBox.SetBorder(true)
	c.statusBox.SetTitle("Printer Session")
	c.statusBox.SetDynamicColors(true)

	c.deviceList = tview.NewList()
	c.deviceList.SetBorder(true)
	c.deviceList.SetTitle("Nearby Printers (F5 to scan, Enter to pair)")
	c.deviceList.ShowSecondaryText(true)
	c.deviceList.SetSelectedFunc(func(index int, _, _ string, _ rune) {
		c.pairSelected(index)
	})

	c.logsArea = tview.NewTextView()
	c.logsArea.SetBorder(true)
	c.logsArea.SetTitle("Events")
	c.logsArea.SetDynamicColors(true)
	c.logsArea.SetScrollable(true)
	c.logsArea.SetChangedFunc(func() {
		c.app.Draw()
	})

	c.cmdInput = tview.NewInputField().
		SetLabel("> ").
		SetFieldWidth(0).
		SetPlaceholder("Type a command (e.g. 'help')").
		SetDoneFunc(func(key tcell.Key) {
			if key == tcell.KeyEnter {
				c.executeCommand(c.cmdInput.GetText())
				c.cmdInput.SetText("")
			}
		})

	topRow := tview.NewFlex().
		AddItem(c.statusBox, 0, 1, false).
		AddItem(c.deviceList, 0, 2, false)

	c.flex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(topRow, 0, 1, false).
		AddItem(c.logsArea, 0, 2, false).
		AddItem(c.cmdInput, 1, 0, true)

	c.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			c.Stop()
			return nil
		case tcell.KeyF5:
			c.startScan(0)
			return nil
		case tcell.KeyTab:
			c.cycleFocus()
			return nil
		case tcell.KeyEsc:
			if !c.cmdInput.HasFocus() {
				c.app.SetFocus(c.cmdInput)
				return nil
			}
		}
		return event
	})

	c.app.SetRoot(c.flex, true)
}

func (c *Console) cycleFocus() {
	switch {
	case c.cmdInput.HasFocus():
		c.app.SetFocus(c.deviceList)
	case c.deviceList.HasFocus():
		c.app.SetFocus(c.logsArea)
	default:
		c.app.SetFocus(c.cmdInput)
	}
}

// Run starts the console and blocks until the operator quits.
func (c *Console) Run() error {
	c.refreshStatus()
	go c.refreshTicker()

	c.addLog(fmt.Sprintf("print bridge listening on %s", c.addr), "info")
	c.addLog("F5 scans for printers, Tab cycles panels, 'help' lists commands", "info")

	return c.app.Run()
}

// Stop closes the console. Safe to call from any goroutine.
func (c *Console) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		c.app.Stop()
	})
}

func (c *Console) refreshTicker() {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.app.QueueUpdateDraw(func() {
				c.refreshStatus()
			})
		case <-c.done:
			return
		}
	}
}

func (c *Console) refreshStatus() {
	snap := c.session.Snapshot()

	var state string
	switch snap.Connection {
	case printer.StateConnected:
		state = "[green]● connected[white]"
	case printer.StateConnecting:
		state = "[yellow]● connecting[white]"
	default:
		state = "[red]● disconnected[white]"
	}

	device := "-"
	if snap.DeviceID != "" {
		device = snap.DeviceID
		if snap.DeviceName != "" {
			device = fmt.Sprintf("%s (%s)", snap.DeviceName, snap.DeviceID)
		}
	}

	paired := "-"
	if snap.Paired != nil {
		paired = snap.Paired.Name
		if paired == "" {
			paired = snap.Paired.ID
		}
	}

	uptime := time.Since(c.startTime)
	hours := int(uptime.Hours())
	minutes := int(uptime.Minutes()) % 60

	c.statusBox.SetText(fmt.Sprintf(`%s

Printer: %s
Print: %s
Paired: %s

API: %s
Uptime: %dh %dm`,
		state, device, snap.Print, paired, c.addr, hours, minutes))
}

// startScan kicks off a discovery window. Results land in the device list.
func (c *Console) startScan(window time.Duration) {
	c.mu.Lock()
	if c.scanning {
		c.mu.Unlock()
		return
	}
	c.scanning = true
	c.mu.Unlock()

	c.addLog("scanning for printers...", "info")

	go func() {
		devices, err := c.session.Scan(context.Background(), window)

		c.mu.Lock()
		c.scanning = false
		c.devices = devices
		c.mu.Unlock()

		if err != nil {
			c.addLog(fmt.Sprintf("scan failed: %v", err), "error")
			return
		}
		c.addLog(fmt.Sprintf("scan finished, %d device(s) found", len(devices)), "info")

		c.app.QueueUpdateDraw(func() {
			c.refreshDevices(devices)
		})
	}()
}

func (c *Console) refreshDevices(devices []printer.ScanResult) {
	c.deviceList.Clear()

	if len(devices) == 0 {
		c.deviceList.AddItem("No printers found", "Move closer and press F5", 0, nil)
		return
	}

	for _, d := range devices {
		name := d.Name
		if name == "" {
			name = "(unnamed)"
		}
		main := fmt.Sprintf("%s  %ddBm", name, d.RSSI)
		if d.LikelyPrinter {
			main = "[green]" + main + "[white]"
		}
		c.deviceList.AddItem(main, d.ID, 0, nil)
	}
}

func (c *Console) pairSelected(index int) {
	c.mu.Lock()
	if index < 0 || index >= len(c.devices) {
		c.mu.Unlock()
		return
	}
	target := c.devices[index]
	c.mu.Unlock()

	c.addLog(fmt.Sprintf("pairing with %s...", target.ID), "info")

	go func() {
		if err := c.session.Pair(context.Background(), target.ID); err != nil {
			c.addLog(fmt.Sprintf("pairing failed: %v", err), "error")
			return
		}
		snap := c.session.Snapshot()
		c.addLog(fmt.Sprintf("connected to %s", snap.DeviceName), "info")
		c.app.QueueUpdateDraw(func() {
			c.refreshStatus()
		})
	}()
}

func (c *Console) executeCommand(cmd string) {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return
	}

	c.addLog("> "+cmd, "command")

	fields := strings.Fields(cmd)
	switch fields[0] {
	case "quit", "exit", "q":
		c.Stop()
		return
	case "clear":
		c.mu.Lock()
		c.logs = nil
		c.mu.Unlock()
		c.logsArea.Clear()
		return
	case "scan":
		// run through the console path so results fill the device list
		var window time.Duration
		if len(fields) > 1 {
			if seconds, err := strconv.Atoi(fields[1]); err == nil && seconds > 0 {
				window = time.Duration(seconds) * time.Second
			}
		}
		c.startScan(window)
		return
	}

	go func() {
		result := c.executor.Execute(context.Background(), cmd)
		if result.Success {
			msg := result.Message
			if msg == "" {
				msg = "ok"
			}
			c.addLog(msg, "info")
		} else {
			c.addLog(result.Error, "error")
		}
		c.app.QueueUpdateDraw(func() {
			c.refreshStatus()
		})
	}()
}

// addLog appends a line to the event panel. Safe from any goroutine.
func (c *Console) addLog(message, level string) {
	var color string
	switch level {
	case "error":
		color = "[red]"
	case "warning":
		color = "[yellow]"
	case "command":
		color = "[cyan]"
	default:
		color = "[white]"
	}

	entry := fmt.Sprintf("%s[%s] %s[white]\n", color, time.Now().Format("15:04:05"), tview.Escape(message))

	c.mu.Lock()
	c.logs = append(c.logs, entry)
	if len(c.logs) > maxLogLines {
		c.logs = c.logs[len(c.logs)-maxLogLines:]
	}
	lines := strings.Join(c.logs, "")
	c.mu.Unlock()

	c.logsArea.Clear()
	fmt.Fprint(c.logsArea, lines)
	c.logsArea.ScrollToEnd()
}

// LogWriter adapts the event panel into an io.Writer so the structured
// logger can be teed into it. Lines carrying level=WARN or level=ERROR
// keep their severity color.
func (c *Console) LogWriter() io.Writer {
	return &consoleLogWriter{console: c}
}

type consoleLogWriter struct {
	console *Console
}

func (w *consoleLogWriter) Write(p []byte) (int, error) {
	message := strings.TrimSpace(string(p))
	if message == "" {
		return len(p), nil
	}

	level := "info"
	switch {
	case strings.Contains(message, "level=ERROR"):
		level = "error"
	case strings.Contains(message, "level=WARN"):
		level = "warning"
	}
	w.console.addLog(message, level)
	return len(p), nil
}
