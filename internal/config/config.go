// Package config provides configuration management for mediasink.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/ini.v1"
)

// Config is the merged configuration for the CLI: built-in defaults,
// overlaid by the INI config file, overlaid by MEDIASINK_* environment
// variables. Flags are applied last by the cli package.
//
// Config file location:
//   - Windows: %USERPROFILE%\.config\mediasink\config
//   - Unix: ~/.config/mediasink/config
//
// INI format:
//
//	[mediasink]
//	output_dir = output
//	input_dir = input
//	log_level = info
//
//	[destination]
//	provider = AWS S3
//	locator = s3://my-bucket/prefix
//	folder_path = outputs
//	api_key = <credential-or-json>
//
//	[proxy]
//	mode = no-proxy
//	host =
//	port = 8080
//	user =
//	password =
//	no_proxy =
//	warmup = false
//	warmup_url =
//
//	[notifications]
//	enabled = false
//	show_complete = true
//	show_failed = true
type Config struct {
	// OutputDir is the base directory for saved files.
	OutputDir string `ini:"output_dir" env:"MEDIASINK_OUTPUT_DIR"`

	// InputDir is the base directory local load paths resolve against.
	InputDir string `ini:"input_dir" env:"MEDIASINK_INPUT_DIR"`

	// LogLevel controls global log verbosity (debug, info, warn, error).
	LogLevel string `ini:"log_level" env:"MEDIASINK_LOG_LEVEL"`

	// Destination holds the default cloud destination used when the
	// corresponding flags are omitted.
	Destination DestinationDefaults

	// Proxy holds outbound proxy settings shared by every provider client.
	Proxy ProxyConfig

	// Notifications holds desktop notification settings.
	Notifications NotificationConfig
}

// DestinationDefaults is the default cloud destination tuple. APIKey has no
// env tag: environment fallback (MEDIASINK_API_KEY_<PROVIDER>, then
// MEDIASINK_API_KEY) is resolved by the credentials package so that an
// explicit value always wins over the environment.
type DestinationDefaults struct {
	Provider   string `ini:"provider" env:"MEDIASINK_PROVIDER"`
	Locator    string `ini:"locator" env:"MEDIASINK_LOCATOR"`
	FolderPath string `ini:"folder_path" env:"MEDIASINK_FOLDER_PATH"`
	APIKey     string `ini:"api_key"`
}

// ProxyConfig mirrors the proxy block consumed by internal/http.
type ProxyConfig struct {
	// Mode is one of "no-proxy", "system", "basic", "ntlm".
	Mode     string `ini:"mode" env:"MEDIASINK_PROXY_MODE"`
	Host     string `ini:"host" env:"MEDIASINK_PROXY_HOST"`
	Port     int    `ini:"port" env:"MEDIASINK_PROXY_PORT"`
	User     string `ini:"user" env:"MEDIASINK_PROXY_USER"`
	Password string `ini:"password"`

	// NoProxy is a comma-separated bypass list of hosts/CIDRs.
	NoProxy string `ini:"no_proxy" env:"MEDIASINK_NO_PROXY"`

	// Warmup sends one request through the proxy at startup to establish
	// the auth session before the first transfer. Requires WarmupURL.
	Warmup    bool   `ini:"warmup" env:"MEDIASINK_PROXY_WARMUP"`
	WarmupURL string `ini:"warmup_url" env:"MEDIASINK_PROXY_WARMUP_URL"`
}

// NotificationConfig controls desktop notifications on save/load completion.
type NotificationConfig struct {
	Enabled      bool `ini:"enabled" env:"MEDIASINK_NOTIFY"`
	ShowComplete bool `ini:"show_complete"`
	ShowFailed   bool `ini:"show_failed"`
}

// Validation errors
var (
	ErrInvalidProxyMode = errors.New("proxy mode must be one of: no-proxy, system, basic, ntlm")
	ErrInvalidProxyPort = errors.New("proxy port must be between 1 and 65535")
	ErrInvalidLogLevel  = errors.New("log_level must be one of: debug, info, warn, error")
)

// New returns a Config with default values.
func New() *Config {
	return &Config{
		OutputDir: "output",
		InputDir:  "input",
		LogLevel:  "info",
		Proxy: ProxyConfig{
			Mode: "no-proxy",
			Port: 8080,
		},
		Notifications: NotificationConfig{
			Enabled:      false,
			ShowComplete: true,
			ShowFailed:   true,
		},
	}
}

// DefaultPath returns the default path for the config file.
// - Windows: %USERPROFILE%\.config\mediasink\config
// - Unix: ~/.config/mediasink/config
func DefaultPath() (string, error) {
	var configDir string

	if runtime.GOOS == "windows" {
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", errors.New("USERPROFILE environment variable not set")
		}
		configDir = filepath.Join(userProfile, ".config", "mediasink")
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config", "mediasink")
	}

	return filepath.Join(configDir, "config"), nil
}

// Load reads configuration: defaults, then the INI file at path (or the
// default path when empty), then MEDIASINK_* environment variables.
// A missing file is not an error; a malformed file is.
func Load(path string) (*Config, error) {
	cfg := New()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			path = "" // fall through to env-only
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := loadINI(cfg, path); err != nil {
				return nil, err
			}
		}
	}

	// Env vars override file values. Fields without a matching variable in
	// the environment are left untouched.
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

func loadINI(cfg *Config, path string) error {
	iniFile, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	main := iniFile.Section("mediasink")
	cfg.OutputDir = main.Key("output_dir").MustString(cfg.OutputDir)
	cfg.InputDir = main.Key("input_dir").MustString(cfg.InputDir)
	cfg.LogLevel = main.Key("log_level").MustString(cfg.LogLevel)

	dest := iniFile.Section("destination")
	cfg.Destination.Provider = dest.Key("provider").String()
	cfg.Destination.Locator = dest.Key("locator").String()
	cfg.Destination.FolderPath = dest.Key("folder_path").String()
	cfg.Destination.APIKey = dest.Key("api_key").String()

	proxy := iniFile.Section("proxy")
	cfg.Proxy.Mode = proxy.Key("mode").MustString(cfg.Proxy.Mode)
	cfg.Proxy.Host = proxy.Key("host").String()
	cfg.Proxy.Port = proxy.Key("port").MustInt(cfg.Proxy.Port)
	cfg.Proxy.User = proxy.Key("user").String()
	cfg.Proxy.Password = proxy.Key("password").String()
	cfg.Proxy.NoProxy = proxy.Key("no_proxy").String()
	cfg.Proxy.Warmup = proxy.Key("warmup").MustBool(false)
	cfg.Proxy.WarmupURL = proxy.Key("warmup_url").String()

	notify := iniFile.Section("notifications")
	cfg.Notifications.Enabled = notify.Key("enabled").MustBool(cfg.Notifications.Enabled)
	cfg.Notifications.ShowComplete = notify.Key("show_complete").MustBool(true)
	cfg.Notifications.ShowFailed = notify.Key("show_failed").MustBool(true)

	return nil
}

// Save writes the configuration to an INI file, creating parent directories
// if needed. The credential is stored in the file, so the file is written
// with owner-only permissions via a temp file and atomic rename.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	main, err := iniFile.NewSection("mediasink")
	if err != nil {
		return fmt.Errorf("failed to create mediasink section: %w", err)
	}
	main.Key("output_dir").SetValue(cfg.OutputDir)
	main.Key("input_dir").SetValue(cfg.InputDir)
	main.Key("log_level").SetValue(cfg.LogLevel)

	dest, err := iniFile.NewSection("destination")
	if err != nil {
		return fmt.Errorf("failed to create destination section: %w", err)
	}
	dest.Key("provider").SetValue(cfg.Destination.Provider)
	dest.Key("locator").SetValue(cfg.Destination.Locator)
	dest.Key("folder_path").SetValue(cfg.Destination.FolderPath)
	dest.Key("api_key").SetValue(cfg.Destination.APIKey)

	proxy, err := iniFile.NewSection("proxy")
	if err != nil {
		return fmt.Errorf("failed to create proxy section: %w", err)
	}
	proxy.Key("mode").SetValue(cfg.Proxy.Mode)
	proxy.Key("host").SetValue(cfg.Proxy.Host)
	proxy.Key("port").SetValue(fmt.Sprintf("%d", cfg.Proxy.Port))
	proxy.Key("user").SetValue(cfg.Proxy.User)
	proxy.Key("password").SetValue(cfg.Proxy.Password)
	proxy.Key("no_proxy").SetValue(cfg.Proxy.NoProxy)
	proxy.Key("warmup").SetValue(fmt.Sprintf("%t", cfg.Proxy.Warmup))
	proxy.Key("warmup_url").SetValue(cfg.Proxy.WarmupURL)

	notify, err := iniFile.NewSection("notifications")
	if err != nil {
		return fmt.Errorf("failed to create notifications section: %w", err)
	}
	notify.Key("enabled").SetValue(fmt.Sprintf("%t", cfg.Notifications.Enabled))
	notify.Key("show_complete").SetValue(fmt.Sprintf("%t", cfg.Notifications.ShowComplete))
	notify.Key("show_failed").SetValue(fmt.Sprintf("%t", cfg.Notifications.ShowFailed))

	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// Validate checks field values that have a constrained domain.
func (cfg *Config) Validate() error {
	switch strings.ToLower(cfg.Proxy.Mode) {
	case "no-proxy", "", "system", "basic", "ntlm":
	default:
		return ErrInvalidProxyMode
	}

	if cfg.Proxy.Mode == "basic" || cfg.Proxy.Mode == "ntlm" {
		if cfg.Proxy.Port < 1 || cfg.Proxy.Port > 65535 {
			return ErrInvalidProxyPort
		}
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "warning", "error", "":
	default:
		return ErrInvalidLogLevel
	}

	return nil
}
