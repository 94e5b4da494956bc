// ProcSentry — Host process-telemetry anomaly detection.
// Author: vesaa | License: MIT | https://github.com/vesaa/procsentry
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/vesaa/procsentry/internal/anomaly"
	"github.com/vesaa/procsentry/internal/collector"
	"github.com/vesaa/procsentry/internal/config"
	"github.com/vesaa/procsentry/internal/logger"
	"github.com/vesaa/procsentry/internal/metrics"
	"github.com/vesaa/procsentry/internal/monitor"
	"github.com/vesaa/procsentry/internal/server"
)

const asciiLogo = `
 ██████╗ ██████╗  ██████╗  ██████╗███████╗███████╗███╗   ██╗████████╗██████╗ ██╗   ██╗
 ██╔══██╗██╔══██╗██╔═══██╗██╔════╝██╔════╝██╔════╝████╗  ██║╚══██╔══╝██╔══██╗╚██╗ ██╔╝
 ██████╔╝██████╔╝██║   ██║██║     ███████╗█████╗  ██╔██╗ ██║   ██║   ██████╔╝ ╚████╔╝
 ██╔═══╝ ██╔══██╗██║   ██║██║     ╚════██║██╔══╝  ██║╚██╗██║   ██║   ██╔══██╗  ╚██╔╝
 ██║     ██║  ██║╚██████╔╝╚██████╗███████║███████╗██║ ╚████║   ██║   ██║  ██║   ██║
 ╚═╝     ╚═╝  ╚═╝ ╚═════╝  ╚═════╝╚══════╝╚══════╝╚═╝  ╚═══╝   ╚═╝   ╚═╝  ╚═╝   ╚═╝
`

const version = "v0.1.0"

func printBanner(mode string) {
	fmt.Print(asciiLogo + "\n")
	fmt.Printf("  ► ProcSentry %s  |  Author: vesaa  |  Mode: %s\n\n", version, mode)
}

// buildSession wires collector + detector + session from config.
func buildSession(cfg *config.Config, store monitor.Store) *monitor.Session {
	log := logger.New(cfg.LogLevel)

	col := collector.New(cfg.SuspiciousPatterns, log)
	det := anomaly.NewDetector(anomaly.Config{
		HistorySize: cfg.HistorySize,
		Train: anomaly.TrainConfig{
			Epochs:       cfg.TrainEpochs,
			BatchSize:    cfg.TrainBatchSize,
			LearningRate: cfg.LearningRate,
			Seed:         time.Now().UnixNano(),
		},
	}, log)

	return monitor.New(cfg, col, det, store, log)
}

func main() {
	root := &cobra.Command{
		Use:   "procsentry",
		Short: "ProcSentry — host process-telemetry anomaly detection",
		Long: `ProcSentry watches running processes on a host and flags the ones whose
resource-usage pattern deviates from a learned notion of normal, using an
autoencoder's reconstruction error as the anomaly signal.`,
		SilenceUsage: true,
	}

	// ── server subcommand ─────────────────────────────────────────────────────
	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Start the ProcSentry server (JSON API + background monitoring)",
		RunE: func(cmd *cobra.Command, args []string) error {
			printBanner("SERVER")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if err := server.InitDB(cfg); err != nil {
				return fmt.Errorf("initializing database: %w", err)
			}

			// Inject security settings into server package globals.
			server.ConfigureAuth(server.AuthConfig{
				JWTSecret:   cfg.JWTSecret,
				Issuer:      cfg.JWTIssuer,
				TokenTTL:    cfg.TokenTTL,
				IngestToken: cfg.IngestToken,
			})
			server.SetAdminCredentials(cfg.AdminUser, cfg.AdminPass)

			metrics.MustRegister()

			sess := buildSession(cfg, server.ReportStore{})
			server.SetSession(sess)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go func() { _ = sess.Run(ctx) }()

			gin.SetMode(gin.ReleaseMode)
			engine := gin.New()
			engine.Use(gin.Recovery())
			server.RegisterRoutes(engine)

			addr := fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort)
			fmt.Printf("  ✓ API (JWT operator + token ingest) → http://%s\n", addr)
			fmt.Printf("  ✓ Default login: %s / %s\n", cfg.AdminUser, cfg.AdminPass)
			fmt.Printf("  ✓ Ingest token:  %s\n\n", cfg.IngestToken)

			srv := &http.Server{Addr: addr, Handler: engine}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt) // os.Interrupt = SIGINT; works on all platforms

			select {
			case err := <-errCh:
				return err
			case <-quit:
				fmt.Println("\n  → Shutting down gracefully…")
				cancel()
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				_ = srv.Shutdown(shutdownCtx)
				return nil
			}
		},
	}

	// ── monitor subcommand ────────────────────────────────────────────────────
	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run a headless monitoring loop, printing anomaly reports as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			printBanner("MONITOR")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if interval, _ := cmd.Flags().GetInt("interval"); interval > 0 {
				cfg.PollInterval = interval
			}

			sess := buildSession(cfg, nil)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			fmt.Printf("  ✓ Polling every %ds. Press Ctrl+C to stop.\n\n", cfg.PollInterval)

			ticker := time.NewTicker(time.Duration(cfg.PollInterval) * time.Second)
			defer ticker.Stop()

			enc := json.NewEncoder(os.Stdout)
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					rep, err := sess.Report()
					if err != nil {
						fmt.Fprintf(os.Stderr, "[monitor] report error: %v\n", err)
						continue
					}
					if !sess.Status().Trained {
						sess.TrainAsync(ctx)
					}
					_ = enc.Encode(rep)
				}
			}
		},
	}
	monitorCmd.Flags().Int("interval", 0, "Poll interval in seconds (overrides config)")

	// ── version subcommand ────────────────────────────────────────────────────
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print ProcSentry version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ProcSentry %s  |  Author: vesaa\n", version)
		},
	}

	root.AddCommand(serverCmd, monitorCmd, versionCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
