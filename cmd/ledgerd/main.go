package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Alecsis/py-chain/internal/auth"
	"github.com/Alecsis/py-chain/internal/config"
	"github.com/Alecsis/py-chain/internal/node"
	"github.com/Alecsis/py-chain/internal/observability"
	"github.com/Alecsis/py-chain/internal/txpipe"
)

func main() {
	configPath := flag.String("config", "", "node config path (defaults apply when empty)")
	addr := flag.String("addr", "", "listen address override")
	flag.Parse()

	observability.InitLogger("ledgerd")
	gin.SetMode(gin.ReleaseMode)

	cfg := config.DefaultNodeConfig()
	if *configPath != "" {
		loaded, err := config.LoadNodeConfig(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load node config")
		}
		cfg = loaded
		log.Info().Str("path", *configPath).Msg("loaded node config")
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if err := config.ValidateNodeConfig(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid node config")
	}

	state, err := cfg.NewLedger()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to apply genesis")
	}
	observability.SetTotalSupply(state.TotalSupply())
	log.Info().
		Int64("total_supply", state.TotalSupply()).
		Int64("max_supply", state.MaxSupply()).
		Int("precision", state.Precision()).
		Int("allocations", len(cfg.Genesis)).
		Msg("genesis applied")

	server := node.Appear(cfg.ID, cfg.Addr, cfg.CorsOrigins, txpipe.New(state, cfg.PipelineOptions()))
	if cfg.MetricsToken != "" {
		server.GuardMetrics(auth.SharedSecret(cfg.MetricsToken))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("id", server.ID).Str("addr", server.Addr).Msg("ledger node started")
	if err := server.Serve(ctx); err != nil {
		log.Fatal().Err(err).Msg("ledger node stopped")
	}
}
