package session

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/rockfall/loader"
)

const defaultSettleDelay = 2 * time.Second

// Config tunes one game session
type Config struct {
	// Failure policy for the loading cycle
	Policy      loader.Policy
	MaxAttempts int
	RetryBase   time.Duration

	// PerAssetTimeout bounds each fetch; zero disables it
	PerAssetTimeout time.Duration

	// SettleDelay holds AssetsLoaded before control passes to the menu
	// collaborator
	SettleDelay time.Duration
}

// DefaultConfig mirrors the shipped client: fail fast, no per-asset
// timeout, two-second settle
func DefaultConfig() Config {
	return Config{
		Policy:      loader.FailFast,
		SettleDelay: defaultSettleDelay,
	}
}

func (c Config) loaderConfig() loader.Config {
	return loader.Config{
		Policy:          c.Policy,
		MaxAttempts:     c.MaxAttempts,
		RetryBase:       c.RetryBase,
		PerAssetTimeout: c.PerAssetTimeout,
	}
}

// configDoc is the YAML wire form
type configDoc struct {
	Policy            string `yaml:"policy"`
	MaxAttempts       int    `yaml:"max_attempts"`
	RetryBaseMs       int    `yaml:"retry_base_ms"`
	PerAssetTimeoutMs int    `yaml:"per_asset_timeout_ms"`
	SettleDelayMs     *int   `yaml:"settle_delay_ms"`
}

// ParseConfig decodes a YAML session config, filling defaults for
// omitted fields
func ParseConfig(r io.Reader) (Config, error) {
	var doc configDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return Config{}, fmt.Errorf("session: decode config: %w", err)
	}

	cfg := DefaultConfig()
	if doc.Policy != "" {
		p, err := loader.PolicyFromString(doc.Policy)
		if err != nil {
			return Config{}, err
		}
		cfg.Policy = p
	}
	cfg.MaxAttempts = doc.MaxAttempts
	cfg.RetryBase = time.Duration(doc.RetryBaseMs) * time.Millisecond
	cfg.PerAssetTimeout = time.Duration(doc.PerAssetTimeoutMs) * time.Millisecond
	if doc.SettleDelayMs != nil {
		cfg.SettleDelay = time.Duration(*doc.SettleDelayMs) * time.Millisecond
	}
	return cfg, nil
}
