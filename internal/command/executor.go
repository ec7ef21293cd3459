// Package command provides the text command surface shared by the CLI and
// the operator console.
package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/warungpos/print-bridge/internal/printer"
	"github.com/warungpos/print-bridge/internal/settings"
	"github.com/warungpos/print-bridge/internal/sheets"
	"github.com/warungpos/print-bridge/internal/share"
)

// PrinterSession is the slice of the printer session the commands drive.
type PrinterSession interface {
	Snapshot() printer.Snapshot
	Scan(ctx context.Context, window time.Duration) ([]printer.ScanResult, error)
	Pair(ctx context.Context, id string) error
	Disconnect() error
	Print(ctx context.Context, payload []byte) error
}

// Executor executes commands against the running bridge.
type Executor struct {
	session      PrinterSession
	settings     *settings.Store
	sheets       sheets.Appender
	share        *share.Forwarder
	bleAvailable bool
}

// NewExecutor creates a command executor.
func NewExecutor(session PrinterSession, store *settings.Store, appender sheets.Appender, forwarder *share.Forwarder, bleAvailable bool) *Executor {
	return &Executor{
		session:      session,
		settings:     store,
		sheets:       appender,
		share:        forwarder,
		bleAvailable: bleAvailable,
	}
}

// Result represents the result of executing a command.
type Result struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// Execute executes a command string and returns a result.
func (e *Executor) Execute(ctx context.Context, cmdStr string) *Result {
	parts := parseCommand(cmdStr)
	if len(parts) == 0 {
		return &Result{
			Success: false,
			Error:   "empty command",
		}
	}

	command := parts[0]
	args := parts[1:]

	switch command {
	case "status":
		return e.handleStatus()
	case "scan":
		return e.handleScan(ctx, args)
	case "pair":
		return e.handlePair(ctx, args)
	case "disconnect":
		return e.handleDisconnect()
	case "print":
		return e.handlePrint(ctx, args)
	case "test":
		return e.handleTest(ctx)
	case "share":
		return e.handleShare(ctx, args)
	case "settings":
		return e.handleSettings()
	case "help":
		return e.handleHelp()
	default:
		return &Result{
			Success: false,
			Error:   fmt.Sprintf("unknown command: %s. Type 'help' for available commands", command),
		}
	}
}

// parseCommand parses a command string into parts, handling quoted strings.
func parseCommand(cmdStr string) []string {
	cmdStr = strings.TrimSpace(cmdStr)
	if cmdStr == "" {
		return []string{}
	}

	var parts []string
	var current strings.Builder
	inQuotes := false
	quoteChar := byte(0)

	for i := 0; i < len(cmdStr); i++ {
		char := cmdStr[i]

		if char == '"' || char == '\'' {
			if !inQuotes {
				inQuotes = true
				quoteChar = char
			} else if char == quoteChar {
				inQuotes = false
				quoteChar = 0
			} else {
				current.WriteByte(char)
			}
		} else if char == ' ' && !inQuotes {
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		} else {
			current.WriteByte(char)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}
