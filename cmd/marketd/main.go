package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"sparkmarket/config"
	"sparkmarket/core/events"
	"sparkmarket/core/types"
	"sparkmarket/native/market"
	"sparkmarket/native/registry"
	"sparkmarket/observability/logging"
	"sparkmarket/rpc"
	"sparkmarket/storage"
)

// logEmitter forwards engine events to the structured logger so every state
// transition is observable without a dedicated indexer.
type logEmitter struct {
	logger *slog.Logger
}

func (l logEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	attrs := []any{slog.String("event", evt.EventType())}
	if payload, ok := evt.(interface{ Event() *types.Event }); ok {
		if inner := payload.Event(); inner != nil {
			for k, v := range inner.Attributes {
				attrs = append(attrs, slog.String(k, v))
			}
		}
	}
	l.logger.Info("marketplace event", attrs...)
}

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	env := strings.TrimSpace(os.Getenv("SPARK_ENV"))
	logger := logging.Setup("marketd", env, cfg.LogLevel)

	vault, err := cfg.Vault()
	if err != nil {
		logger.Error("Invalid vault address", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	store := storage.NewMarketStore(db)
	emitter := logEmitter{logger: logger}

	reg := registry.NewEngine()
	reg.SetState(store)
	reg.SetEmitter(emitter)

	claims := market.NewClaimLedger()
	claims.SetState(store)
	claims.SetVault(vault)
	claims.SetEmitter(emitter)

	sale := market.NewSaleEngine(claims)
	sale.SetState(store)
	sale.SetVerifier(reg)
	sale.SetVault(vault)
	sale.SetEmitter(emitter)

	auction := market.NewAuctionEngine(claims)
	auction.SetState(store)
	auction.SetVerifier(reg)
	auction.SetVault(vault)
	auction.SetEmitter(emitter)

	logger.Info("marketplace configured",
		slog.String("market", cfg.MarketName),
		slog.String("token", cfg.TokenSymbol),
		slog.String("vault", cfg.VaultAddress),
		slog.String("dataDir", cfg.DataDir),
	)

	server := rpc.NewServer(sale, auction, claims, reg, store, logger)
	if token := strings.TrimSpace(os.Getenv("SPARK_RPC_TOKEN")); token != "" {
		server.SetAuthToken(token)
	} else {
		logger.Warn("SPARK_RPC_TOKEN not set; mutating RPC methods are unauthenticated")
	}
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
