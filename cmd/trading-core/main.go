package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"trading-core/internal/ai/externalclient"
	"trading-core/internal/api"
	"trading-core/internal/auth"
	"trading-core/internal/dex"
	"trading-core/internal/events"
	"trading-core/internal/executor"
	"trading-core/internal/gateway"
	"trading-core/internal/risk"
	"trading-core/pkg/config"
	"trading-core/pkg/crypto"
	"trading-core/pkg/db"
	"trading-core/pkg/exchanges/common"
	"trading-core/pkg/exchanges/venuea"
	"trading-core/pkg/exchanges/venueb"
)

// liquiditySeed is the fixed startup reserve pair for one bootstrap
// pool, drawn from the system account rather than any principal's
// wallet.
type liquiditySeed struct {
	tokenA, tokenB   string
	reserveA, reserveB float64
}

// seedLiquidity matches scenario 2: CRWN-USDT opens at
// reserveA=10_000_000, reserveB=1_250_000 (price 0.125). The other five
// bootstrap pools are seeded at the same order of magnitude so every
// pool is immediately tradable.
var seedLiquidity = []liquiditySeed{
	{"CRWN", "USDT", 10_000_000, 1_250_000},
	{"CRWN", "ETH", 10_000_000, 400},
	{"CRWN", "BTC", 10_000_000, 25},
	{"CRWN", "KRW", 10_000_000, 1_625_000_000},
	{"BTC", "USDT", 500, 31_250_000},
	{"ETH", "USDT", 5_000, 12_500_000},
}

// bootstrapLiquidity restores each pool's reserves from the last flush
// if the pools table already holds rows from a prior run, otherwise
// mints genesis liquidity once and persists it so the next restart
// finds it there.
func bootstrapLiquidity(ctx context.Context, database *db.Database, engine *dex.Engine) {
	rows, err := database.Queries().ListPools(ctx)
	if err != nil {
		log.Fatalf("[MAIN] listing persisted pools: %v", err)
	}
	if len(rows) > 0 {
		restoreEngineLiquidity(ctx, database, engine, rows)
		return
	}
	seedEngineLiquidity(engine)
	persistSeededLiquidity(ctx, database, engine)
}

func restoreEngineLiquidity(ctx context.Context, database *db.Database, engine *dex.Engine, rows []db.Pool) {
	for _, row := range rows {
		pool, ok := engine.Pool(row.ID)
		if !ok {
			log.Printf("[MAIN] persisted pool %s no longer in the bootstrap set, skipping", row.ID)
			continue
		}
		holderRows, err := database.Queries().ListLPHolders(ctx, row.ID)
		if err != nil {
			log.Fatalf("[MAIN] listing LP holders for pool %s: %v", row.ID, err)
		}
		holders := make(map[string]float64, len(holderRows))
		for _, h := range holderRows {
			holders[h.UserID] = h.Shares
		}
		pool.Restore(dex.PoolState{
			ReserveA: row.ReserveA, ReserveB: row.ReserveB, TotalLPShares: row.TotalLPShares,
			Volume24h: row.Volume24h, FeesCollected: row.FeesCollected, SwapCount: row.SwapCount,
			UpdatedAt: row.UpdatedAt,
		}, holders)
	}
	log.Printf("[MAIN] restored %d pools from the last flush", len(rows))
}

func seedEngineLiquidity(engine *dex.Engine) {
	for _, seed := range seedLiquidity {
		pool, ok := engine.PoolForPair(seed.tokenA, seed.tokenB)
		if !ok {
			log.Fatalf("missing bootstrap pool %s-%s", seed.tokenA, seed.tokenB)
		}
		if _, err := pool.AddLiquidity("system", seed.reserveA, seed.reserveB); err != nil {
			log.Fatalf("seeding pool %s-%s: %v", seed.tokenA, seed.tokenB, err)
		}
	}
}

func persistSeededLiquidity(ctx context.Context, database *db.Database, engine *dex.Engine) {
	for _, snap := range engine.Pools() {
		row := db.Pool{
			ID: snap.ID, TokenA: snap.TokenA, TokenB: snap.TokenB,
			ReserveA: snap.ReserveA, ReserveB: snap.ReserveB, FeeBps: snap.FeeBps,
			TotalLPShares: snap.TotalLPShares, Volume24h: snap.Volume24h,
			FeesCollected: snap.FeesCollected, SwapCount: snap.SwapCount, UpdatedAt: snap.UpdatedAt,
		}
		if err := database.Queries().UpsertPool(ctx, row, snap.LPHolders); err != nil {
			log.Fatalf("[MAIN] persisting seeded pool %s: %v", snap.ID, err)
		}
	}
}

// venueClientFactory dispatches on venue name to build a fresh
// authenticated client from a decrypted key pair; this is the closure
// the executor calls on every cache miss.
func venueClientFactory(venue, accessKey, secretKey string) (common.Client, error) {
	switch common.Venue(venue) {
	case common.VenueA:
		return venuea.New(venuea.Config{AccessKey: accessKey, SecretKey: secretKey}), nil
	case common.VenueB:
		return venueb.New(venueb.Config{APIKey: accessKey, APISecret: secretKey}), nil
	default:
		return nil, fmt.Errorf("main: unsupported venue %q", venue)
	}
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[MAIN] config load failed: %v", err)
	}
	log.Printf("[MAIN] starting on port %s, db=%s", cfg.Port, cfg.DBPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("[MAIN] db open failed: %v", err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf("[MAIN] migrations failed: %v", err)
	}

	vault, err := crypto.NewVault(cfg.VaultPassword, cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("[MAIN] key vault init failed: %v", err)
	}

	bus := events.NewBus()
	engine := dex.NewEngine()
	bootstrapLiquidity(ctx, database, engine)

	riskMT := risk.NewMultiTenant(risk.DefaultConfig())
	exec := executor.NewExecutor(database, bus, vault, venueClientFactory)
	executor.NewReconciler(exec, riskMT, bus).Start(ctx)

	venueBClient := venueb.New(venueb.Config{})
	venueBClient.StartTimeSync(ctx)
	venues := map[string]common.Client{
		string(common.VenueA): venuea.New(venuea.Config{}),
		string(common.VenueB): venueBClient,
	}

	gw := gateway.New(database, bus, engine, riskMT, exec, vault, venues)

	if cfg.ExternalAnalyzerAddr != "" {
		augmenter, err := externalclient.NewClient(cfg.ExternalAnalyzerAddr)
		if err != nil {
			log.Printf("[MAIN] external analyzer unavailable, continuing without it: %v", err)
		} else {
			gw.Augmenter = augmenter
		}
	}

	sched := gateway.NewScheduler(gw)
	sched.Start(ctx)
	if err := sched.Restore(ctx); err != nil {
		log.Printf("[MAIN] restoring auto-trade configs: %v", err)
	}

	authSvc := auth.New(database, cfg.JWTSecret)
	server := api.NewServer(gw, authSvc)
	server.RunBackgroundTickers(ctx)

	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf("[MAIN] api server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("[MAIN] shutting down")
}
