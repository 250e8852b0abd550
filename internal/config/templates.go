package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "node":
		return nodeTemplate, nil
	case "client":
		return clientTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const nodeTemplate = `id = "ledgerd"
addr = ":9300"
cors_origins = ["http://localhost:3000"]

max_supply = 1000000000000
precision = 6

faucet_address = "faucet"
faucet_limit = 1000
# "null" or "zero"
unknown_balance = "null"
# bearer token for /metrics; empty leaves it open
metrics_token = ""

[[genesis]]
address = "faucet"
amount = 1000000
`

const clientTemplate = `node = "http://localhost:9300"
key_file = "ledgerctl.key"
timeout = "5s"
`
