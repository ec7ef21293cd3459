// Package config loads bridge configuration from the environment. Every
// knob is a PRINTBRIDGE_* variable; a .env file loaded at startup feeds the
// same path.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	Printer PrinterConfig
	Storage StorageConfig
	Share   ShareConfig
	Sheets  SheetsConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
	TUI  bool
}

type PrinterConfig struct {
	ChunkSize  int
	ChunkDelay time.Duration
	ScanWindow time.Duration
}

type StorageConfig struct {
	DataDir string
}

type ShareConfig struct {
	GatewayURL string
}

type SheetsConfig struct {
	CredentialsFile string
	SpreadsheetID   string
	Range           string
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from PRINTBRIDGE_* environment variables with
// sensible defaults for a single-store deployment.
func Load() *Config {
	viper.SetEnvPrefix("PRINTBRIDGE")
	viper.AutomaticEnv()

	viper.SetDefault("PORT", 12212)
	viper.SetDefault("TUI", true)
	viper.SetDefault("DATA_DIR", "./data")
	viper.SetDefault("CHUNK_SIZE", 512)
	viper.SetDefault("CHUNK_DELAY_MS", 50)
	viper.SetDefault("SCAN_SECONDS", 8)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("WHATSAPP_GATEWAY_URL", "")
	viper.SetDefault("SHEETS_CREDENTIALS_FILE", "")
	viper.SetDefault("SHEETS_SPREADSHEET_ID", "")
	viper.SetDefault("SHEETS_RANGE", "")

	return &Config{
		Server: ServerConfig{
			Port: viper.GetInt("PORT"),
			TUI:  viper.GetBool("TUI"),
		},
		Printer: PrinterConfig{
			ChunkSize:  viper.GetInt("CHUNK_SIZE"),
			ChunkDelay: time.Duration(viper.GetInt("CHUNK_DELAY_MS")) * time.Millisecond,
			ScanWindow: time.Duration(viper.GetInt("SCAN_SECONDS")) * time.Second,
		},
		Storage: StorageConfig{
			DataDir: viper.GetString("DATA_DIR"),
		},
		Share: ShareConfig{
			GatewayURL: viper.GetString("WHATSAPP_GATEWAY_URL"),
		},
		Sheets: SheetsConfig{
			CredentialsFile: viper.GetString("SHEETS_CREDENTIALS_FILE"),
			SpreadsheetID:   viper.GetString("SHEETS_SPREADSHEET_ID"),
			Range:           viper.GetString("SHEETS_RANGE"),
		},
		Log: LogConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
		},
	}
}

// Addr is the listen address for the HTTP API.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// RegistryPath is the paired-device store location.
func (c *StorageConfig) RegistryPath() string {
	return filepath.Join(c.DataDir, "paired_printer.json")
}

// SettingsPath is the store profile location.
func (c *StorageConfig) SettingsPath() string {
	return filepath.Join(c.DataDir, "settings.json")
}
