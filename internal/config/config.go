package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"postern/pkg/logging"
)

const (
	userConfigDir  = ".config/postern"
	configFileName = "config.yaml"

	// DefaultCallbackPort is the loopback port OAuth redirects land on.
	DefaultCallbackPort = 8714

	// DefaultCallbackPath is the path component of the redirect URI.
	DefaultCallbackPath = "/callback"
)

// Config is the top-level postern configuration.
type Config struct {
	Callback CallbackConfig `yaml:"callback"`
	Timeouts TimeoutConfig  `yaml:"timeouts"`
	Paths    PathsConfig    `yaml:"paths"`
}

// CallbackConfig configures the loopback redirect listener.
type CallbackConfig struct {
	Port int    `yaml:"port,omitempty"` // Port for the callback listener (default: 8714)
	Path string `yaml:"path,omitempty"` // Path for the callback endpoint (default: /callback)
}

// TimeoutConfig bounds the blocking phases of an authorization flow.
type TimeoutConfig struct {
	RedirectWait  Duration `yaml:"redirectWait,omitempty"`  // How long to wait for the provider redirect (default: 2m)
	TokenExchange Duration `yaml:"tokenExchange,omitempty"` // Per-request token endpoint timeout (default: 30s)
}

// Duration is a time.Duration that reads YAML duration strings like
// "45s" or "2m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the plain time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// PathsConfig locates the workspace files.
type PathsConfig struct {
	Collection   string `yaml:"collection,omitempty"`   // Collection file (default: <config dir>/collection.yaml)
	Environments string `yaml:"environments,omitempty"` // Environments file (default: <config dir>/environments.yaml)
}

// DefaultConfigPath returns the user config directory, e.g.
// ~/.config/postern.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// Default returns the configuration used when no config.yaml exists.
func Default(configDir string) Config {
	return Config{
		Callback: CallbackConfig{
			Port: DefaultCallbackPort,
			Path: DefaultCallbackPath,
		},
		Timeouts: TimeoutConfig{
			RedirectWait:  Duration(2 * time.Minute),
			TokenExchange: Duration(30 * time.Second),
		},
		Paths: PathsConfig{
			Collection:   filepath.Join(configDir, "collection.yaml"),
			Environments: filepath.Join(configDir, "environments.yaml"),
		},
	}
}

// Load reads config.yaml from the given directory, filling unset fields
// with defaults. A missing file is not an error.
func Load(configDir string) (Config, error) {
	configFilePath := filepath.Join(configDir, configFileName)
	cfg := Default(configDir)

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("Config", "No config.yaml found at %s, using defaults", configFilePath)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("error reading config from %s: %w", configFilePath, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}

	applyDefaults(&cfg, configDir)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	logging.Info("Config", "Loaded configuration from %s", configFilePath)
	return cfg, nil
}

func applyDefaults(cfg *Config, configDir string) {
	def := Default(configDir)
	if cfg.Callback.Port == 0 {
		cfg.Callback.Port = def.Callback.Port
	}
	if cfg.Callback.Path == "" {
		cfg.Callback.Path = def.Callback.Path
	}
	if cfg.Timeouts.RedirectWait == 0 {
		cfg.Timeouts.RedirectWait = def.Timeouts.RedirectWait
	}
	if cfg.Timeouts.TokenExchange == 0 {
		cfg.Timeouts.TokenExchange = def.Timeouts.TokenExchange
	}
	if cfg.Paths.Collection == "" {
		cfg.Paths.Collection = def.Paths.Collection
	}
	if cfg.Paths.Environments == "" {
		cfg.Paths.Environments = def.Paths.Environments
	}
}

// Validate rejects configurations that cannot work.
func (c Config) Validate() error {
	if c.Callback.Port < 0 || c.Callback.Port > 65535 {
		return fmt.Errorf("callback.port must be between 0 and 65535, got %d", c.Callback.Port)
	}
	if c.Callback.Path == "" || c.Callback.Path[0] != '/' {
		return fmt.Errorf("callback.path must start with '/', got %q", c.Callback.Path)
	}
	if c.Timeouts.RedirectWait <= 0 {
		return fmt.Errorf("timeouts.redirectWait must be positive, got %s", c.Timeouts.RedirectWait)
	}
	if c.Timeouts.TokenExchange <= 0 {
		return fmt.Errorf("timeouts.tokenExchange must be positive, got %s", c.Timeouts.TokenExchange)
	}
	return nil
}

// RedirectURI builds the loopback redirect URI from the callback
// settings.
func (c Config) RedirectURI() string {
	return fmt.Sprintf("http://127.0.0.1:%d%s", c.Callback.Port, c.Callback.Path)
}
