package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/embermud/server/internal/config"
	"github.com/embermud/server/internal/core/event"
	coresys "github.com/embermud/server/internal/core/system"
	"github.com/embermud/server/internal/data"
	"github.com/embermud/server/internal/npc"
	"github.com/embermud/server/internal/persist"
	"github.com/embermud/server/internal/scripting"
	"github.com/embermud/server/internal/system"
	"github.com/embermud/server/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func printStat(label string, count int) {
	fmt.Printf("  %-24s %d\n", label, count)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("EMBERD_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	fmt.Printf("\n  %s — NPC population server\n\n", cfg.Server.Name)

	// 3. Pick the reference-data store. A load error here is fatal: the
	// subsystem must not run on a silently empty configuration set.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var store data.Store = data.NewFileStore(cfg.World.DataDir)
	if cfg.Database.Enabled {
		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		if err := persist.RunMigrations(ctx, db.Pool); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		store = persist.NewStore(db)
		printOK("PostgreSQL reference store ready")
	}

	defs, err := store.LoadDefinitions(ctx)
	if err != nil {
		return fmt.Errorf("load npc definitions: %w", err)
	}
	printStat("NPC definitions", defs.Count())

	rules, err := store.LoadSpawnRules(ctx)
	if err != nil {
		return fmt.Errorf("load spawn rules: %w", err)
	}
	printStat("Spawn rules", rules.Count())

	zones, err := store.LoadZoneConfigs(ctx)
	if err != nil {
		return fmt.Errorf("load zone configurations: %w", err)
	}
	printStat("Zone configurations", zones.Count())

	// 4. Scripted behavior actions
	luaEngine, err := scripting.NewEngine(cfg.World.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()
	printStat("Scripted actions", luaEngine.Count())

	// 5. Construct and wire the population subsystem. Everything is threaded
	// through constructors; no global service locators.
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	bus := event.NewBus()
	ws := world.NewState(bus, cfg.World, log)
	printStat("Rooms", ws.RegisterRooms(zones))

	ctrl := npc.NewController(zones, rules, ws, rng.Float64, log)
	spawner := npc.NewSpawner(ctrl, ws, rng.Float64,
		cfg.Population.SpawnQueueCapacity,
		cfg.Population.HistoryTrimAt,
		cfg.Population.HistoryKeep,
		log)
	lifecycle := npc.NewLifecycle(cfg.Population, ws, ctrl, spawner, defs, bus, log)
	spawner.Bind(lifecycle.Spawn, luaEngine.Actions())
	lifecycle.Subscribe()

	// 6. Initial population pass: required templates self-heal through
	// admission; optional ones take their probability roll.
	spawned := 0
	for _, def := range defs.All() {
		if _, ok := lifecycle.Spawn(def, def.DefaultRoom, "startup"); ok {
			spawned++
		}
	}
	bus.Pump()
	printStat("NPCs spawned", spawned)
	fmt.Println()

	// 7. Register tick systems
	runner := coresys.NewRunner()
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewWorldClockSystem(ws))
	runner.Register(system.NewSpawnBacklogSystem(spawner, log))
	runner.Register(system.NewMaintenanceSystem(lifecycle, cfg.Population.MaintenanceEvery, log))

	// 8. Game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Server.TickRate)
	defer ticker.Stop()

	log.Info("game loop started",
		zap.Duration("tick", cfg.Server.TickRate),
		zap.Int("active_npcs", lifecycle.ActiveCount()))

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Server.TickRate)
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			st := lifecycle.Stats()
			log.Info("server stopped",
				zap.Int("active_npcs", st.Active),
				zap.Int("lifecycle_records", st.Records))
			return nil
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
