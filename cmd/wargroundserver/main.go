package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/vekshin/warground/internal/admin"
	"github.com/vekshin/warground/internal/config"
	"github.com/vekshin/warground/internal/db"
	"github.com/vekshin/warground/internal/economy"
	"github.com/vekshin/warground/internal/event"
	"github.com/vekshin/warground/internal/feed"
	"github.com/vekshin/warground/internal/game/capture"
	"github.com/vekshin/warground/internal/game/reinforce"
	"github.com/vekshin/warground/internal/model"
	"github.com/vekshin/warground/internal/town"
	"github.com/vekshin/warground/internal/world"
)

const ConfigPath = "config/wargroundserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load config
	cfgPath := ConfigPath
	if p := os.Getenv("WARGROUND_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Configure slog
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	slog.Info("warground server starting", "zones", len(cfg.Zones),
		"persistence", cfg.Database.Enabled(), "feed", cfg.FeedAddress)

	// Collaborators: in-memory by default, database-backed when configured.
	gameWorld := world.NewLocal(64)
	bus := event.NewBus()

	var towns town.Directory = town.NewMemory()
	var ledger economy.Ledger = economy.NewMemory()
	var zoneRepo *db.ZoneRepository

	if cfg.Database.Enabled() {
		database, err := db.New(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()
		slog.Info("database connected", "host", cfg.Database.Host, "db", cfg.Database.DBName)

		if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		slog.Info("database migrations applied")

		dir, err := db.NewTownRepository(database.Pool()).LoadDirectory(ctx)
		if err != nil {
			return fmt.Errorf("loading town directory: %w", err)
		}
		towns = dir
		ledger = db.NewLedgerRepository(database.Pool())
		zoneRepo = db.NewZoneRepository(database.Pool())
	}

	manager := capture.NewManager(cfg.Capture, gameWorld, towns, ledger, bus)
	scheduler := reinforce.NewScheduler(cfg.Reinforce, gameWorld, towns, manager, bus)
	manager.SetReinforcer(scheduler)
	if zoneRepo != nil {
		manager.SetStore(zoneRepo)
	}

	if err := loadZones(ctx, cfg, manager, zoneRepo); err != nil {
		return fmt.Errorf("loading zones: %w", err)
	}

	reaper := capture.NewReaper(manager, capture.DefaultReaperInterval)

	adm := admin.NewHandler()
	admin.RegisterAll(adm, manager, scheduler)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := manager.Start(gctx); err != nil {
			return fmt.Errorf("capture manager: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := scheduler.Start(gctx); err != nil {
			return fmt.Errorf("reinforcement scheduler: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := reaper.Start(gctx); err != nil {
			return fmt.Errorf("session reaper: %w", err)
		}
		return nil
	})

	if cfg.FeedAddress != "" {
		feedServer := feed.NewServer(cfg.FeedAddress, bus)
		g.Go(func() error {
			if err := feedServer.Start(gctx); err != nil {
				return fmt.Errorf("event feed: %w", err)
			}
			return nil
		})
	}

	// Admin console on stdin. EOF (e.g. detached stdin) just ends the
	// console, not the server.
	go runConsole(adm)

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// loadZones builds the zone set from config and restores persisted
// ownership on top.
func loadZones(ctx context.Context, cfg config.Server, manager *capture.Manager, zoneRepo *db.ZoneRepository) error {
	var states map[string]model.ZoneState
	if zoneRepo != nil {
		var err error
		states, err = zoneRepo.LoadZoneStates(ctx)
		if err != nil {
			return err
		}
	}

	for _, entry := range cfg.Zones {
		zone := model.NewZone(entry.ID,
			model.NewLocation(entry.World, entry.X, entry.Y, entry.Z),
			entry.ChunkRadius,
			entry.ResolvedPreparationSeconds(cfg.Capture),
			entry.ResolvedCaptureSeconds(cfg.Capture))
		zone.SetColor(entry.Color)
		zone.SetActive(!entry.Inactive)
		if state, ok := states[entry.ID]; ok {
			zone.ApplyState(state)
		}
		manager.AddZone(zone)
		slog.Info("zone loaded", "zone", entry.ID, "world", entry.World,
			"radius_chunks", entry.ChunkRadius, "owner", zone.ControllingTown())
	}
	return nil
}

func runConsole(adm *admin.Handler) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "help" {
			for _, usage := range adm.Usage() {
				fmt.Println(usage)
			}
			continue
		}
		out, err := adm.Execute(line)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		fmt.Println(out)
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
