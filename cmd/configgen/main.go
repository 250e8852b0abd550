package main

import (
	"flag"
	"log"

	"github.com/Alecsis/py-chain/internal/config"
)

func main() {
	kind := flag.String("kind", "node", "config kind: node|client")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing node config file")
	input := flag.String("input", "", "config path for validation (defaults to per-kind path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		if *kind != "node" {
			log.Fatalf("validation is only supported for node configs, got %s", *kind)
		}
		path := *input
		if path == "" {
			path = defaultPath(*kind)
		}
		cfg, err := config.LoadNodeConfig(path)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated node config at %s (id=%s, %d genesis allocations)", path, cfg.ID, len(cfg.Genesis))
		return
	}

	target := *output
	if target == "" {
		target = defaultPath(*kind)
	}

	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *kind, target)
}

func defaultPath(kind string) string {
	switch kind {
	case "node":
		return "ledgerd.toml"
	case "client":
		return "ledgerctl.toml"
	default:
		log.Fatalf("unknown kind: %s", kind)
		return ""
	}
}
