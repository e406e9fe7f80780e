package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/forge-factory/internal/api"
	"github.com/talgya/forge-factory/internal/engine"
	"github.com/talgya/forge-factory/internal/entropy"
	"github.com/talgya/forge-factory/internal/metrics"
	"github.com/talgya/forge-factory/internal/persistence"
)

func newRunCommand() *cobra.Command {
	var slot string
	var strict bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation with the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), slot, strict)
		},
	}
	cmd.Flags().StringVar(&slot, "slot", "", "Load this database save slot instead of the save file")
	cmd.Flags().BoolVar(&strict, "strict", false, "Refuse saves with malformed machine records")
	return cmd
}

func run(ctx context.Context, slot string, strict bool) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	// ── Database ──────────────────────────────────────────────────────
	db, err := persistence.Open(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.Storage.DBPath)

	// ── Session ───────────────────────────────────────────────────────
	collector := metrics.New()
	sess := engine.NewSession(cat, engine.Options{
		Interval:    cfg.Simulation.TickInterval,
		Random:      entropy.FromSeed(cfg.Simulation.Seed),
		BreakChance: cfg.Simulation.BreakChance,
		StartMoney:  cfg.Simulation.StartMoney,
		Metrics:     collector,
	})
	saver := &engine.Saver{Session: sess, Path: cfg.Storage.SavePath, DB: db, Metrics: collector}

	if slot != "" {
		if err := saver.LoadSlot(slot, strict); err != nil {
			return fmt.Errorf("load slot %q: %w", slot, err)
		}
		slog.Info("resumed from slot", "slot", slot)
	} else {
		loaded, err := saver.LoadFile(strict)
		if err != nil {
			return err
		}
		if loaded {
			slog.Info("resumed from save file", "path", cfg.Storage.SavePath)
		} else {
			slog.Info("no save found, starting a new game", "money", cfg.Simulation.StartMoney)
		}
	}

	eng := engine.NewEngine(sess, cfg.Simulation.TickInterval)
	eng.SetSpeed(cfg.Simulation.Speed)

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.API.AdminKey == "" {
		slog.Warn("FORGE_API_ADMIN_KEY not set, admin POST endpoints will be disabled")
	}
	apiServer := &api.Server{
		Session:   sess,
		Eng:       eng,
		Saver:     saver,
		Registry:  collector.Registry(),
		Port:      cfg.API.Port,
		AdminKey:  cfg.API.AdminKey,
		RateLimit: cfg.API.RateLimit,
		Burst:     cfg.API.Burst,
	}
	apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	autosaveDone := make(chan error, 1)
	go func() {
		autosaveDone <- saver.Autosave(ctx, cfg.Storage.AutosaveInterval)
	}()

	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.API.Port)
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	if err := eng.Run(ctx); err != nil {
		return err
	}

	// Autosave writes the final save once ctx is done.
	saveErr := <-autosaveDone
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}

	fmt.Printf("Simulation stopped after %d ticks (%s).\n",
		eng.Ticks(), engine.GameTime(sess.Status().Tick, cfg.Simulation.TickInterval))
	if saveErr != nil {
		return fmt.Errorf("final save: %w", saveErr)
	}
	fmt.Printf("Game saved to %s.\n", cfg.Storage.SavePath)
	return nil
}
