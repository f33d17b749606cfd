// Command kingdomsim runs the Veloria kingdom simulation.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/veloria/internal/api"
	"github.com/talgya/veloria/internal/chronicle"
	"github.com/talgya/veloria/internal/config"
	"github.com/talgya/veloria/internal/engine"
	"github.com/talgya/veloria/internal/persistence"
)

// Version is injected via ldflags at build time.
var Version = "dev"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "kingdomsim",
		Short:        "Veloria kingdom simulation",
		SilenceUsage: true,
	}
	root.AddCommand(runCmd(), versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kingdomsim %s (%s/%s)\n", Version, runtime.GOOS, runtime.GOARCH)
		},
	}
}

func runCmd() *cobra.Command {
	var (
		dbPath   string
		tuning   string
		port     int
		seed     int64
		interval time.Duration
		fresh    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := config.LoadRuntime()
			if err != nil {
				return err
			}
			// Flags win over the environment when set explicitly.
			flags := cmd.Flags()
			if flags.Changed("db") {
				rt.DBPath = dbPath
			}
			if flags.Changed("tuning") {
				rt.TuningFile = tuning
			}
			if flags.Changed("port") {
				rt.APIPort = port
			}
			if flags.Changed("seed") {
				rt.Seed = seed
			}
			if flags.Changed("interval") {
				rt.TickInterval = interval
			}
			return run(rt, fresh)
		},
	}

	f := cmd.Flags()
	f.StringVar(&dbPath, "db", "", "sqlite database path (VELORIA_DB_PATH)")
	f.StringVar(&tuning, "tuning", "", "YAML tuning file (VELORIA_TUNING_FILE)")
	f.IntVar(&port, "port", 0, "HTTP API port (VELORIA_API_PORT)")
	f.Int64Var(&seed, "seed", 0, "world seed (VELORIA_SEED)")
	f.DurationVar(&interval, "interval", 0, "real time per simulated hour (VELORIA_TICK_INTERVAL)")
	f.BoolVar(&fresh, "fresh", false, "ignore any saved world and start from genesis")
	return cmd
}

func run(rt config.Runtime, fresh bool) error {
	slog.Info("Veloria kingdom simulation", "version", Version, "seed", rt.Seed)

	cfg := config.DefaultTuning()
	if rt.TuningFile != "" {
		var err error
		if cfg, err = config.LoadTuning(rt.TuningFile); err != nil {
			return err
		}
		slog.Info("tuning loaded", "path", rt.TuningFile)
	}

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(rt.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := persistence.Open(rt.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("database opened", "path", rt.DBPath)

	// ── Chronicle ─────────────────────────────────────────────────────
	sink := chronicle.New(cfg.Chronicle.Capacity, cfg.Chronicle.MessageLength)
	if rt.ArchiveDir != "" {
		archive := chronicle.NewArchive(rt.ArchiveDir, "chronicle")
		defer archive.Close()
		sink.SetRecorder(archive, func(err error) {
			slog.Warn("chronicle archive write failed", "error", err)
		})
		slog.Info("chronicle archive enabled", "dir", rt.ArchiveDir)
	}

	// ── Load or Generate World ────────────────────────────────────────
	opts := engine.Options{Seed: rt.Seed, Chronicle: sink}
	var w *engine.World
	if !fresh {
		w, err = db.LoadWorld(cfg, opts)
		switch {
		case errors.Is(err, persistence.ErrNoWorld):
			w = nil
		case err != nil:
			return err
		default:
			slog.Info("found saved world, resuming", "world_id", w.WorldID, "clock", w.Clock.String())
		}
	}
	if w == nil {
		w = engine.NewWorld(cfg, opts)
		if err := w.Genesis(); err != nil {
			return err
		}
		if err := db.SaveWorld(w); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	eng := engine.NewEngine(w, rt.TickInterval)

	// Auto-save every simulated day.
	eng.OnDay = func(c engine.Clock) {
		if err := db.SaveWorld(w); err != nil {
			slog.Error("daily save failed", "day", c.Day, "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── HTTP API ──────────────────────────────────────────────────────
	if rt.AdminKey == "" {
		slog.Warn("VELORIA_ADMIN_KEY not set, control endpoints will be disabled")
	}
	server := api.NewServer(w.Shared(), sink)
	server.Port = rt.APIPort
	server.AdminKey = rt.AdminKey
	server.Origins = rt.CORSOrigins
	server.Start(ctx)

	fmt.Printf("\n%s: %s souls, %s\n", w.Kingdoms[0].Name, humanize.Comma(int64(w.Population)), w.Clock)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", rt.APIPort)
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run(ctx)

	// Final save on shutdown. Run has returned, so the world is quiet.
	slog.Info("final save...")
	if err := db.SaveWorld(w); err != nil {
		return fmt.Errorf("final save: %w", err)
	}
	fmt.Println("Simulation stopped. World state saved.")
	return nil
}
