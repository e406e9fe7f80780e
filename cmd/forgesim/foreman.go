package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/forge-factory/internal/foreman"
)

func newForemanCommand() *cobra.Command {
	var (
		apiURL     string
		interval   time.Duration
		memoryPath string
		maxActions int
		once       bool
	)

	cmd := &cobra.Command{
		Use:   "foreman",
		Short: "Keep a running simulation's machines repaired, maintained and emptied",
		Long: `The foreman polls a running forgesim API, repairs broken machines, empties
machines whose inventory is nearly full into the player inventory, and pays
for maintenance of worn machines while the wallet allows.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			if cfg.API.AdminKey == "" {
				return fmt.Errorf("FORGE_API_ADMIN_KEY is required")
			}
			if apiURL == "" {
				apiURL = fmt.Sprintf("http://localhost:%d", cfg.API.Port)
			}

			f := foreman.New(apiURL, cfg.API.AdminKey, foreman.LoadMemory(memoryPath))
			f.MaxActions = maxActions

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			slog.Info("foreman starting", "api_url", apiURL, "interval", interval)
			if once {
				if err := f.WaitReady(ctx); err != nil {
					return err
				}
				rec, err := f.RunCycle(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d done, %d failed\n", rec.Level, len(rec.Done), len(rec.Failed))
				return nil
			}
			if err := f.Run(ctx, interval); err != nil && ctx.Err() == nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Foreman stopped.")
			return nil
		},
	}
	cmd.Flags().StringVar(&apiURL, "url", "", "API base URL (default: http://localhost:<api.port>)")
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "Time between cycles")
	cmd.Flags().StringVar(&memoryPath, "memory", "data/foreman.json", "Cycle memory file (empty keeps it in memory)")
	cmd.Flags().IntVar(&maxActions, "max-actions", foreman.DefaultMaxActions, "Actions per cycle")
	cmd.Flags().BoolVar(&once, "once", false, "Run a single cycle and exit")
	return cmd
}
