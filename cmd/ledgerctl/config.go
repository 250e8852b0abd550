package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Alecsis/py-chain/internal/client"
)

const defaultConfigPath = "ledgerctl.toml"

type clientConfig struct {
	Node    string
	KeyFile string
	Timeout time.Duration
}

type fileConfig struct {
	Node    string `toml:"node"`
	KeyFile string `toml:"key_file"`
	Timeout string `toml:"timeout"`
}

func defaultClientConfig() clientConfig {
	return clientConfig{
		Node:    "http://localhost:9300",
		KeyFile: "ledgerctl.key",
		Timeout: client.DefaultTimeout,
	}
}

// loadClientConfig overlays the keys present in path onto the defaults. A
// missing file is only an error when required is set.
func loadClientConfig(path string, required bool) (clientConfig, error) {
	cfg := defaultClientConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return clientConfig{}, fmt.Errorf("load ledgerctl config: %w", err)
	}

	if meta.IsDefined("node") {
		if v := strings.TrimSpace(raw.Node); v != "" {
			cfg.Node = v
		}
	}

	if meta.IsDefined("key_file") {
		if v := strings.TrimSpace(raw.KeyFile); v != "" {
			cfg.KeyFile = v
		}
	}

	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return clientConfig{}, fmt.Errorf("parse timeout: %w", err)
		}
		if d <= 0 {
			return clientConfig{}, fmt.Errorf("timeout must be positive")
		}
		cfg.Timeout = d
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return clientConfig{}, fmt.Errorf("unknown ledgerctl config key %q", undecoded[0].String())
	}
	return cfg, nil
}
