package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"

	"github.com/warungpos/print-bridge/internal/api"
	"github.com/warungpos/print-bridge/internal/ble"
	"github.com/warungpos/print-bridge/internal/command"
	"github.com/warungpos/print-bridge/internal/config"
	"github.com/warungpos/print-bridge/internal/printer"
	"github.com/warungpos/print-bridge/internal/registry"
	"github.com/warungpos/print-bridge/internal/settings"
	"github.com/warungpos/print-bridge/internal/share"
	"github.com/warungpos/print-bridge/internal/sheets"
	"github.com/warungpos/print-bridge/internal/tui"
	"github.com/warungpos/print-bridge/pkg/logging"
)

// Version is set during build via ldflags.
var Version = "dev"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	useTUI := cfg.Server.TUI && isatty.IsTerminal(os.Stdout.Fd())

	// The console's log panel only exists once the session it displays
	// does, so the logger starts on stderr and moves over afterwards.
	sink := &logSink{w: os.Stderr}
	var log *slog.Logger
	if useTUI {
		log = slog.New(slog.NewTextHandler(sink, &slog.HandlerOptions{
			Level: logging.ParseLevel(cfg.Log.Level),
		}))
		slog.SetDefault(log)
	} else {
		log = logging.Setup(sink, cfg.Log.Level, cfg.Log.Format)
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0755); err != nil {
		log.Error("failed to create data directory", "path", cfg.Storage.DataDir, "error", err)
		os.Exit(1)
	}

	reg, err := registry.New(cfg.Storage.RegistryPath())
	if err != nil {
		log.Error("failed to open pairing registry", "error", err)
		os.Exit(1)
	}
	store := settings.New(cfg.Storage.SettingsPath(), 0)

	central := ble.NewBlueZCentral()
	bleAvailable := true
	if err := central.Enable(); err != nil {
		log.Warn("bluetooth unavailable, printing disabled", "error", err)
		bleAvailable = false
	}

	hub := api.NewHub(log)
	session := printer.NewSession(central, reg, printer.MultiNotifier{hub, printer.LogNotifier{Log: log}}, log, printer.Config{
		ChunkSize:  cfg.Printer.ChunkSize,
		ChunkDelay: cfg.Printer.ChunkDelay,
		ScanWindow: cfg.Printer.ScanWindow,
	})

	forwarder := share.NewForwarder(func() string {
		if profile, err := store.Get(); err == nil && profile.WhatsAppGatewayURL != "" {
			return profile.WhatsAppGatewayURL
		}
		return cfg.Share.GatewayURL
	})

	appender := newAppender(cfg, store, log)
	executor := command.NewExecutor(session, store, appender, forwarder, bleAvailable)

	var console *tui.Console
	if useTUI {
		console = tui.NewConsole(session, executor, cfg.Server.Addr())
		sink.redirect(console.LogWriter())
		gin.DefaultWriter = io.Discard
		gin.DefaultErrorWriter = console.LogWriter()
	}

	server := api.NewServer(api.Deps{
		Session:      session,
		Settings:     store,
		Share:        forwarder,
		Sheets:       appender,
		Executor:     executor,
		Hub:          hub,
		Log:          log,
		BLEAvailable: bleAvailable,
		Version:      Version,
	})

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: server.Handler(),
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("print bridge listening", "addr", cfg.Server.Addr(), "version", Version, "ble", bleAvailable)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	if console != nil {
		consoleDone := make(chan struct{})
		go func() {
			if err := console.Run(); err != nil {
				log.Error("console failed", "error", err)
			}
			close(consoleDone)
		}()

		select {
		case err := <-serverErr:
			console.Stop()
			<-consoleDone
			sink.redirect(os.Stderr)
			log.Error("api server failed", "error", err)
			exitCode = 1
		case <-sigCh:
			console.Stop()
			<-consoleDone
			sink.redirect(os.Stderr)
		case <-consoleDone:
			sink.redirect(os.Stderr)
		}
	} else {
		select {
		case err := <-serverErr:
			log.Error("api server failed", "error", err)
			exitCode = 1
		case <-sigCh:
		}
	}

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Warn("http shutdown incomplete", "error", err)
	}
	hub.Close()
	if err := session.Close(); err != nil {
		log.Warn("printer link close failed", "error", err)
	}

	os.Exit(exitCode)
}

// newAppender builds the sales sync appender. The spreadsheet id may
// come from the environment or from the store profile; a broken sheets
// setup only disables syncing, never the bridge.
func newAppender(cfg *config.Config, store *settings.Store, log *slog.Logger) sheets.Appender {
	spreadsheetID := cfg.Sheets.SpreadsheetID
	if spreadsheetID == "" {
		if profile, err := store.Get(); err == nil {
			spreadsheetID = profile.SpreadsheetID
		}
	}

	appender, err := sheets.NewAppender(context.Background(), cfg.Sheets.CredentialsFile, spreadsheetID, cfg.Sheets.Range)
	if err != nil {
		log.Warn("sales sync disabled", "error", err)
		appender, _ = sheets.NewAppender(context.Background(), "", "", "")
	}
	return appender
}

// logSink is a movable logger destination. slog handlers bind their
// writer at construction, but the log output has to follow the process
// in and out of the console UI.
type logSink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *logSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *logSink) redirect(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}
