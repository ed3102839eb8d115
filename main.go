package main

import (
	"log"

	"backtest-core/internal/api"
	"backtest-core/internal/dispatch"
	"backtest-core/internal/events"
	"backtest-core/internal/ledger"
	"backtest-core/internal/rl"
	"backtest-core/pkg/config"
	"backtest-core/pkg/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	log.Printf("starting backtest-core on :%s (pool=%d, lookback=%d)",
		cfg.Port, cfg.PoolSize, cfg.DefaultLookback)

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf("db migrations failed: %v", err)
	}

	bus := events.NewBus()
	dispatcher := dispatch.New(bus, cfg.DefaultLookback)

	presets := map[string]rl.Config{}
	if cfg.PresetsPath != "" {
		presets, err = rl.LoadPresets(cfg.PresetsPath)
		if err != nil {
			log.Printf("training presets unavailable (%v), using built-in defaults", err)
			presets = map[string]rl.Config{}
		} else {
			log.Printf("loaded %d training presets from %s", len(presets), cfg.PresetsPath)
		}
	}
	if _, ok := presets[cfg.DefaultPreset]; !ok {
		presets[cfg.DefaultPreset] = rl.DefaultConfig()
	}

	costs := ledger.Costs{
		Slippage:         cfg.Slippage,
		CommissionPerLot: cfg.CommissionPerLot,
		TaxRate:          cfg.TaxRate,
		PointValue:       cfg.PointValue,
	}
	server := api.NewServer(bus, db.NewStore(database), dispatcher, cfg.PoolSize, presets, costs)
	if err := server.Start(":" + cfg.Port); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
