package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Alecsis/py-chain/internal/config"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledgerctl.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadClientConfigDefaultsAndOverrides(t *testing.T) {
	cfg, err := loadClientConfig(writeFile(t, "timeout = \"250ms\"\n"), true)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	def := defaultClientConfig()
	if cfg.Node != def.Node || cfg.KeyFile != def.KeyFile {
		t.Fatalf("defaults not kept: %+v", cfg)
	}
	if cfg.Timeout != 250*time.Millisecond {
		t.Fatalf("unexpected timeout: %v", cfg.Timeout)
	}
}

func TestLoadClientConfigTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledgerctl.toml")
	if err := config.WriteTemplate(path, "client", false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	cfg, err := loadClientConfig(path, true)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	if cfg.Node != "http://localhost:9300" || cfg.KeyFile != "ledgerctl.key" || cfg.Timeout != 5*time.Second {
		t.Fatalf("unexpected template config: %+v", cfg)
	}
}

func TestLoadClientConfigMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.toml")
	if _, err := loadClientConfig(missing, false); err != nil {
		t.Fatalf("optional missing config should load defaults: %v", err)
	}
	if _, err := loadClientConfig(missing, true); err == nil {
		t.Fatalf("expected error for required missing config")
	}
}

func TestLoadClientConfigRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"bad duration":  "timeout = \"soon\"\n",
		"zero duration": "timeout = \"0s\"\n",
		"unknown key":   "nodes = \"x\"\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := loadClientConfig(writeFile(t, body), true); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
