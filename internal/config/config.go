// Package config provides configuration management for imghub.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/rescale/imghub/internal/constants"
)

// Config is the resolved client configuration.
//
// Config file location: ~/.config/imghub/config (see DefaultConfigPath).
//
// INI format:
//
//	[endpoint]
//	upload_base_url = http://localhost:8000/api
//	asset_base_url  = http://localhost:8000/files
//	timeout_seconds = 120
//	max_retries     = 0
//
//	[proxy]
//	mode     = no-proxy
//	host     =
//	port     = 8080
//	user     =
//	password =
//	no_proxy =
//	warmup   = false
//
//	[history]
//	backend     = file
//	path        = ~/.local/share/imghub
//	max_entries = 0
//
//	[notifications]
//	enabled = true
type Config struct {
	// Endpoint settings
	UploadBaseURL string
	AssetBaseURL  string
	Timeout       time.Duration
	MaxRetries    int

	// Proxy settings
	ProxyMode     string // "no-proxy", "ntlm", "basic", "system"
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string
	NoProxy       string // Comma-separated list of hosts to bypass proxy
	ProxyWarmup   bool

	// History settings
	HistoryBackend    string // "file" or "sqlite"
	HistoryPath       string // data directory; "sqlite" keeps history.db inside it
	HistoryMaxEntries int

	// Notification settings
	NotificationsEnabled bool
}

// Environment variables that override the config file.
const (
	EnvUploadURL   = "IMGHUB_UPLOAD_URL"
	EnvAssetURL    = "IMGHUB_ASSET_URL"
	EnvHistoryPath = "IMGHUB_HISTORY_PATH"
	EnvProxyPass   = "IMGHUB_PROXY_PASSWORD"
)

// Validation errors
var (
	ErrMissingUploadURL   = errors.New("upload_base_url is required")
	ErrInvalidUploadURL   = errors.New("upload_base_url must be an absolute http(s) URL")
	ErrInvalidAssetURL    = errors.New("asset_base_url must be an absolute http(s) URL")
	ErrInvalidTimeout     = errors.New("timeout_seconds must be positive")
	ErrInvalidMaxRetries  = errors.New("max_retries is out of range")
	ErrInvalidBackend     = errors.New("history backend must be \"file\" or \"sqlite\"")
	ErrInvalidMaxEntries  = errors.New("max_entries must not be negative")
	ErrInvalidProxyMode   = errors.New("proxy mode must be one of no-proxy, system, basic, ntlm")
	ErrMissingHistoryPath = errors.New("history path is required")
)

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		UploadBaseURL:        constants.DefaultUploadBaseURL,
		AssetBaseURL:         constants.DefaultAssetBaseURL,
		Timeout:              constants.DefaultSubmitTimeout,
		MaxRetries:           constants.DefaultMaxRetries,
		ProxyMode:            "no-proxy",
		ProxyPort:            8080,
		HistoryBackend:       constants.DefaultHistoryBackend,
		HistoryPath:          DefaultDataDir(),
		HistoryMaxEntries:    constants.DefaultHistoryMaxEntries,
		NotificationsEnabled: true,
	}
}

// Load loads configuration from an INI file and applies environment overrides.
// If the file doesn't exist, returns defaults (plus overrides) and no error.
// If the file exists but is invalid, returns an error.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		path = DefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil {
		iniFile, err := ini.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg.applyINI(iniFile)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config: %w", err)
	}

	cfg.ApplyEnv()
	return cfg, nil
}

func (cfg *Config) applyINI(f *ini.File) {
	endpoint := f.Section("endpoint")
	cfg.UploadBaseURL = endpoint.Key("upload_base_url").MustString(cfg.UploadBaseURL)
	cfg.AssetBaseURL = endpoint.Key("asset_base_url").MustString(cfg.AssetBaseURL)
	if secs := endpoint.Key("timeout_seconds").MustInt(0); secs != 0 {
		cfg.Timeout = time.Duration(secs) * time.Second
	}
	cfg.MaxRetries = endpoint.Key("max_retries").MustInt(cfg.MaxRetries)

	proxy := f.Section("proxy")
	cfg.ProxyMode = proxy.Key("mode").MustString(cfg.ProxyMode)
	cfg.ProxyHost = proxy.Key("host").String()
	cfg.ProxyPort = proxy.Key("port").MustInt(cfg.ProxyPort)
	cfg.ProxyUser = proxy.Key("user").String()
	cfg.ProxyPassword = proxy.Key("password").String()
	cfg.NoProxy = proxy.Key("no_proxy").String()
	cfg.ProxyWarmup = proxy.Key("warmup").MustBool(false)

	history := f.Section("history")
	cfg.HistoryBackend = strings.ToLower(history.Key("backend").MustString(cfg.HistoryBackend))
	cfg.HistoryPath = expandHome(history.Key("path").MustString(cfg.HistoryPath))
	cfg.HistoryMaxEntries = history.Key("max_entries").MustInt(cfg.HistoryMaxEntries)

	cfg.NotificationsEnabled = f.Section("notifications").Key("enabled").MustBool(true)
}

// ApplyEnv applies IMGHUB_* environment overrides.
func (cfg *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvUploadURL)); v != "" {
		cfg.UploadBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAssetURL)); v != "" {
		cfg.AssetBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvHistoryPath)); v != "" {
		cfg.HistoryPath = expandHome(v)
	}
	if v := os.Getenv(EnvProxyPass); v != "" {
		cfg.ProxyPassword = v
	}
}

// Save writes configuration to an INI file.
// Creates parent directories if they don't exist. The proxy password is stored
// in the file, so the file is written with owner-only permissions.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f := ini.Empty()

	endpoint, err := f.NewSection("endpoint")
	if err != nil {
		return fmt.Errorf("failed to create endpoint section: %w", err)
	}
	endpoint.Key("upload_base_url").SetValue(cfg.UploadBaseURL)
	endpoint.Key("asset_base_url").SetValue(cfg.AssetBaseURL)
	endpoint.Key("timeout_seconds").SetValue(fmt.Sprintf("%d", int(cfg.Timeout/time.Second)))
	endpoint.Key("max_retries").SetValue(fmt.Sprintf("%d", cfg.MaxRetries))

	proxy, err := f.NewSection("proxy")
	if err != nil {
		return fmt.Errorf("failed to create proxy section: %w", err)
	}
	proxy.Key("mode").SetValue(cfg.ProxyMode)
	proxy.Key("host").SetValue(cfg.ProxyHost)
	proxy.Key("port").SetValue(fmt.Sprintf("%d", cfg.ProxyPort))
	proxy.Key("user").SetValue(cfg.ProxyUser)
	proxy.Key("password").SetValue(cfg.ProxyPassword)
	proxy.Key("no_proxy").SetValue(cfg.NoProxy)
	proxy.Key("warmup").SetValue(fmt.Sprintf("%t", cfg.ProxyWarmup))

	history, err := f.NewSection("history")
	if err != nil {
		return fmt.Errorf("failed to create history section: %w", err)
	}
	history.Key("backend").SetValue(cfg.HistoryBackend)
	history.Key("path").SetValue(cfg.HistoryPath)
	history.Key("max_entries").SetValue(fmt.Sprintf("%d", cfg.HistoryMaxEntries))

	notifications, err := f.NewSection("notifications")
	if err != nil {
		return fmt.Errorf("failed to create notifications section: %w", err)
	}
	notifications.Key("enabled").SetValue(fmt.Sprintf("%t", cfg.NotificationsEnabled))

	tmpPath := path + ".tmp"
	if err := f.SaveTo(tmpPath); err != nil {
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

// Validate checks that the configuration can drive a submission.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.UploadBaseURL) == "" {
		return ErrMissingUploadURL
	}
	if !isHTTPURL(cfg.UploadBaseURL) {
		return ErrInvalidUploadURL
	}
	if cfg.AssetBaseURL != "" && !isHTTPURL(cfg.AssetBaseURL) {
		return ErrInvalidAssetURL
	}
	if cfg.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if cfg.MaxRetries < 0 || cfg.MaxRetries > constants.MaxMaxRetries {
		return ErrInvalidMaxRetries
	}
	switch cfg.HistoryBackend {
	case "file", "sqlite":
	default:
		return ErrInvalidBackend
	}
	if strings.TrimSpace(cfg.HistoryPath) == "" {
		return ErrMissingHistoryPath
	}
	if cfg.HistoryMaxEntries < 0 {
		return ErrInvalidMaxEntries
	}
	switch strings.ToLower(cfg.ProxyMode) {
	case "", "no-proxy", "system", "basic", "ntlm":
	default:
		return ErrInvalidProxyMode
	}
	return nil
}

// UploadURL returns the full URL submissions are posted to.
func (cfg *Config) UploadURL() string {
	return strings.TrimSuffix(cfg.UploadBaseURL, "/") + constants.UploadPath
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
