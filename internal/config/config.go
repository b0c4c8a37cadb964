package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Screenshot provider names accepted in Config.Screenshot.Provider.
const (
	ProviderAPIFlash = "apiflash"
	ProviderChromium = "chromium"
)

// LLMConfig configures the language-model integration.
type LLMConfig struct {
	// BaseURL overrides the OpenAI-compatible endpoint. Empty keeps the
	// library default.
	BaseURL string `yaml:"base_url" json:"base_url"`
	// Model is the chat model used for extraction.
	Model string `yaml:"model" json:"model"`
	// APIKey is the credential. Usually supplied via OPENAI_KEY.
	APIKey string `yaml:"api_key" json:"-"`
	// TimeoutSec bounds a single extraction call.
	TimeoutSec int `yaml:"timeout_sec" json:"timeout_sec"`
}

// ScreenshotConfig configures page screenshot acquisition.
type ScreenshotConfig struct {
	// Provider selects the strategy: "apiflash" or "chromium". Empty is
	// resolved at startup: apiflash when an APIFlash key is present,
	// chromium otherwise.
	Provider string `yaml:"provider" json:"provider"`

	// APIFlashKey is the rendering API credential (APIFLASH_KEY).
	APIFlashKey string `yaml:"apiflash_key" json:"-"`
	// APIFlashURL overrides the rendering API endpoint.
	APIFlashURL string `yaml:"apiflash_url" json:"apiflash_url"`
	// DelaySec is the rendering delay requested from the API. Values
	// below 10 are raised to 10; slow pages need the headroom.
	DelaySec int `yaml:"delay_sec" json:"delay_sec"`

	// ChromeURL is the DevTools websocket endpoint of a remote Chromium
	// (CHROME_URL). Empty launches a local headless instance.
	ChromeURL string `yaml:"chrome_url" json:"chrome_url"`
	// TimeoutSec bounds a whole Chromium capture.
	TimeoutSec int `yaml:"timeout_sec" json:"timeout_sec"`
	// SettleMs is the extra wait after the page body is visible.
	SettleMs int `yaml:"settle_ms" json:"settle_ms"`
}

// BasicAuthConfig holds optional HTTP Basic Auth credentials.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone assumed for event times.
	Timezone string `yaml:"timezone" json:"timezone"`

	// MaxUploadBytes bounds request bodies; image uploads need more than
	// typical form defaults.
	MaxUploadBytes int64 `yaml:"max_upload_bytes" json:"max_upload_bytes"`

	LLM        LLMConfig        `yaml:"llm" json:"llm"`
	Screenshot ScreenshotConfig `yaml:"screenshot" json:"screenshot"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         "0.0.0.0:3000",
		Timezone:       "Europe/Berlin",
		MaxUploadBytes: 10_000_000,
		LLM: LLMConfig{
			Model:      "gpt-4o",
			TimeoutSec: 120,
		},
		Screenshot: ScreenshotConfig{
			DelaySec:   10,
			TimeoutSec: 60,
			SettleMs:   3000,
		},
	}
}

// Normalize fills in missing/zero values so partially-filled configs
// still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "0.0.0.0:3000"
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Berlin"
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 10_000_000
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o"
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 120
	}
	if c.Screenshot.DelaySec < 10 {
		c.Screenshot.DelaySec = 10
	}
	if c.Screenshot.TimeoutSec <= 0 {
		c.Screenshot.TimeoutSec = 60
	}
	if c.Screenshot.SettleMs <= 0 {
		c.Screenshot.SettleMs = 3000
	}
}

// ApplyEnvOverrides overrides config fields from environment variables
// when set. Env takes precedence over the config file; CLI flags remain
// highest precedence.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("ADDR"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("OPENAI_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("APIFLASH_KEY"); v != "" {
		c.Screenshot.APIFlashKey = v
	}
	if v := os.Getenv("CHROME_URL"); v != "" {
		c.Screenshot.ChromeURL = v
	}
}

// Validate resolves the screenshot provider and checks that required
// credentials are present, so the process can fail fast at startup.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return errors.New("LLM API key is not set (llm.api_key or OPENAI_KEY)")
	}

	switch c.Screenshot.Provider {
	case ProviderAPIFlash:
		if c.Screenshot.APIFlashKey == "" {
			return errors.New("screenshot provider is apiflash but no key is set (screenshot.apiflash_key or APIFLASH_KEY)")
		}
	case ProviderChromium:
		// Local launch needs no configuration.
	case "":
		if c.Screenshot.APIFlashKey != "" {
			c.Screenshot.Provider = ProviderAPIFlash
		} else {
			c.Screenshot.Provider = ProviderChromium
		}
	default:
		return fmt.Errorf("unknown screenshot provider %q", c.Screenshot.Provider)
	}

	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist: create parent directory if needed,
//     write a default config with 0600 perms, return the default config.
//   - If the file exists: read YAML, unmarshal, normalize defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration to path: parent dir 0700, atomic write
// via temp file + rename, final permissions 0600 (the file may hold
// credentials).
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".eventcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}
