package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config represents application configuration
type Config struct {
	// Server configuration (overridable via webui_config.json)
	Server ServerConfig

	// Component configuration
	Component ComponentConfig

	// Storage configuration
	Storage StorageConfig

	// Debug mode
	Debug bool
}

// ServerConfig contains dashboard HTTP server configuration
type ServerConfig struct {
	Host string
	Port int
}

// ComponentConfig contains bridge component configuration
type ComponentConfig struct {
	// Name the adapter probes in the registry
	Name string
	// HandleTTL is the adapter's probe cache lifetime
	HandleTTL time.Duration
	// NapcatWS is the OneBot endpoint for the transport
	NapcatWS string
	// AccessToken authenticates the transport connection
	AccessToken string
}

// StorageConfig contains on-disk paths
type StorageConfig struct {
	// DataDir is the root for config and databases
	DataDir string
	// MessageDir holds the date-partitioned message log files
	MessageDir string
	// BindingDBPath is the SQLite binding store
	BindingDBPath string
	// AuditDBPath is the SQLite audit log
	AuditDBPath string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	dataDir := os.Getenv("WEBUI_DATA_DIR")
	if dataDir == "" {
		homeDir, _ := os.UserHomeDir()
		dataDir = filepath.Join(homeDir, ".qqsync-webui")
	}

	messageDir := os.Getenv("WEBUI_MESSAGE_DIR")
	if messageDir == "" {
		messageDir = filepath.Join(dataDir, "messages")
	}

	port := 8080
	if val := os.Getenv("WEBUI_PORT"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			port = parsed
		}
	}

	host := os.Getenv("WEBUI_HOST")
	if host == "" {
		host = "127.0.0.1"
	}

	ttl := 5 * time.Second
	if val := os.Getenv("COMPONENT_CACHE_TTL_SECONDS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			ttl = time.Duration(parsed) * time.Second
		}
	}

	componentName := os.Getenv("COMPONENT_NAME")
	if componentName == "" {
		componentName = "qqsync"
	}

	return &Config{
		Server: ServerConfig{
			Host: host,
			Port: port,
		},
		Component: ComponentConfig{
			Name:        componentName,
			HandleTTL:   ttl,
			NapcatWS:    os.Getenv("NAPCAT_WS"),
			AccessToken: os.Getenv("NAPCAT_ACCESS_TOKEN"),
		},
		Storage: StorageConfig{
			DataDir:       dataDir,
			MessageDir:    messageDir,
			BindingDBPath: filepath.Join(dataDir, "bindings.db"),
			AuditDBPath:   filepath.Join(dataDir, "audit.db"),
		},
		Debug: os.Getenv("DEBUG") == "true",
	}
}

// ApplyFile overlays values from the webui JSON config file onto the
// env-derived configuration. File values win over defaults but not over
// explicitly set environment variables.
func (c *Config) ApplyFile(store *FileStore) {
	if os.Getenv("WEBUI_HOST") == "" {
		if host, ok := store.Get("server.host").(string); ok && host != "" {
			c.Server.Host = host
		}
	}
	if os.Getenv("WEBUI_PORT") == "" {
		if port, ok := asInt(store.Get("server.port")); ok {
			c.Server.Port = port
		}
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64: // JSON numbers decode as float64
		return int(n), true
	}
	return 0, false
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return &ConfigError{Field: "server.port", Message: "must be between 1 and 65535"}
	}
	if c.Server.Host == "" {
		return &ConfigError{Field: "server.host", Message: "required"}
	}
	if c.Storage.MessageDir == "" {
		return &ConfigError{Field: "storage.message_dir", Message: "required"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
