package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Store backend constants
	StoreFile   = "file"
	StoreSQLite = "sqlite"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the PDF mapper MCP server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Template and data locations
	TemplateDirectory string
	DataDirectory     string
	OutputDirectory   string

	// Mapping storage backend
	StoreBackend string // "file" or "sqlite"
	SQLiteDSN    string

	// Remote discovery endpoint; empty means local pdfcpu discovery
	DiscoveryURL string

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum template PDF size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:              ModeStdio, // Default to stdio mode for MCP compatibility
		Host:              DefaultHost,
		Port:              DefaultPort,
		TemplateDirectory: currentDir,
		DataDirectory:     filepath.Join(currentDir, "data"),
		OutputDirectory:   filepath.Join(currentDir, "data", "generated_pdfs"),
		StoreBackend:      StoreFile,
		Version:           "1.0.0",
		ServerName:        "mcp-pdf-mapper",
		LogLevel:          DefaultLogLevel,
		MaxFileSize:       DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	for _, dir := range []*string{&cfg.TemplateDirectory, &cfg.DataDirectory, &cfg.OutputDirectory} {
		if *dir == "" {
			continue
		}
		if expandedPath, err := filepath.Abs(*dir); err == nil {
			*dir = expandedPath
		}
	}

	// The sqlite database lives alongside the file store unless overridden
	if cfg.StoreBackend == StoreSQLite && cfg.SQLiteDSN == "" {
		cfg.SQLiteDSN = filepath.Join(cfg.DataDirectory, "mappings.db")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// Set environment variable prefix
	viper.SetEnvPrefix("MCP_MAPPER")
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("templates", cfg.TemplateDirectory)
	viper.SetDefault("datadir", cfg.DataDirectory)
	viper.SetDefault("outputdir", cfg.OutputDirectory)
	viper.SetDefault("store", cfg.StoreBackend)
	viper.SetDefault("sqlitedsn", cfg.SQLiteDSN)
	viper.SetDefault("discoveryurl", cfg.DiscoveryURL)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("templates", cfg.TemplateDirectory, "Directory containing PDF templates")
	pflag.String("datadir", cfg.DataDirectory, "Directory for saved mappings and application data")
	pflag.String("outputdir", cfg.OutputDirectory, "Directory for generated PDFs")
	pflag.String("store", cfg.StoreBackend, "Mapping storage backend: 'file' or 'sqlite'")
	pflag.String("sqlitedsn", cfg.SQLiteDSN, "SQLite DSN (defaults to mappings.db under the data directory)")
	pflag.String("discoveryurl", cfg.DiscoveryURL, "Remote discovery service base URL (empty for local discovery)")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum template PDF size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "host", "port", "templates", "datadir", "outputdir",
		"store", "sqlitedsn", "discoveryurl", "loglevel", "maxfilesize",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP PDF Mapper - a Model Context Protocol server for mapping PDF form fields to client attributes\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          "+
			"# stdio mode, file store (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --templates=/path/to/templates           "+
			"# stdio mode with custom template directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --store=sqlite --datadir=/var/lib/mapper # sqlite-backed mappings\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --discoveryurl=http://localhost:8000     # remote field discovery\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  MCP_MAPPER_MODE         Server mode\n")
		fmt.Fprintf(os.Stderr, "  MCP_MAPPER_TEMPLATES    Template directory\n")
		fmt.Fprintf(os.Stderr, "  MCP_MAPPER_DATADIR      Data directory\n")
		fmt.Fprintf(os.Stderr, "  MCP_MAPPER_OUTPUTDIR    Generated PDF directory\n")
		fmt.Fprintf(os.Stderr, "  MCP_MAPPER_STORE        Storage backend (file|sqlite)\n")
		fmt.Fprintf(os.Stderr, "  MCP_MAPPER_SQLITEDSN    SQLite DSN\n")
		fmt.Fprintf(os.Stderr, "  MCP_MAPPER_DISCOVERYURL Remote discovery base URL\n")
		fmt.Fprintf(os.Stderr, "  MCP_MAPPER_LOGLEVEL     Log level\n")
		fmt.Fprintf(os.Stderr, "  MCP_MAPPER_MAXFILESIZE  Maximum file size\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.TemplateDirectory = viper.GetString("templates")
	cfg.DataDirectory = viper.GetString("datadir")
	cfg.OutputDirectory = viper.GetString("outputdir")
	cfg.StoreBackend = viper.GetString("store")
	cfg.SQLiteDSN = viper.GetString("sqlitedsn")
	cfg.DiscoveryURL = viper.GetString("discoveryurl")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	// Validate storage backend
	if c.StoreBackend != StoreFile && c.StoreBackend != StoreSQLite {
		return errors.New("store must be either 'file' or 'sqlite'")
	}
	if c.StoreBackend == StoreSQLite && c.SQLiteDSN == "" {
		return errors.New("sqlite store requires a DSN")
	}

	// Validate directories, creating them when absent
	for _, dir := range []struct {
		name string
		path string
	}{
		{"template", c.TemplateDirectory},
		{"data", c.DataDirectory},
		{"output", c.OutputDirectory},
	} {
		if dir.path == "" {
			return fmt.Errorf("%s directory cannot be empty", dir.name)
		}
		if _, err := os.Stat(dir.path); os.IsNotExist(err) {
			if err := os.MkdirAll(dir.path, DefaultDirPerm); err != nil {
				return fmt.Errorf("cannot create %s directory %s: %w", dir.name, dir.path, err)
			}
		} else if err != nil {
			return fmt.Errorf("cannot access %s directory %s: %w", dir.name, dir.path, err)
		}
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Templates: %s, Data: %s, Store: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.TemplateDirectory, c.DataDirectory, c.StoreBackend, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
