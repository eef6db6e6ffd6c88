// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/marquee/internal/api"
	"github.com/tomtom215/marquee/internal/config"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/models"
	"github.com/tomtom215/marquee/internal/pipeline"
	"github.com/tomtom215/marquee/internal/runlog"
	"github.com/tomtom215/marquee/internal/supervisor"
	"github.com/tomtom215/marquee/internal/supervisor/services"
)

func newRootCmd() *cobra.Command {
	var configPath string
	var cfg *config.Config

	root := &cobra.Command{
		Use:           "marquee",
		Short:         "Build a movie metadata star schema in DuckDB",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.LoadWithKoanf(configPath)
			if err != nil {
				return err
			}
			logging.Init(logging.Config{
				Level:  loaded.Logging.Level,
				Format: loaded.Logging.Format,
				Caller: loaded.Logging.Caller,
			})
			cfg = loaded
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	current := func() *config.Config { return cfg }
	root.AddCommand(
		newRunCmd(current),
		newReplayCmd(current),
		newServeCmd(current),
		newStatusCmd(current),
	)

	return root
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func newRunCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Ingest the CSV files and load the warehouse once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cfg(), func(a *app) error {
				ctx, stop := signalContext(cmd.Context())
				defer stop()
				summary, err := a.runner.Run(ctx)
				return printRun(cmd.OutOrStdout(), summary, err)
			})
		},
	}
}

func newReplayCmd(cfg func() *config.Config) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild the warehouse from the silver Parquet file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cfg(), func(a *app) error {
				ctx, stop := signalContext(cmd.Context())
				defer stop()
				summary, err := a.runner.Replay(ctx, path)
				return printRun(cmd.OutOrStdout(), summary, err)
			})
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "silver Parquet file (default: <silver.dir>/movies_cleaned.parquet)")
	return cmd
}

func newServeCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run builds on a schedule and serve the ops endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := cfg()
			return withApp(c, func(a *app) error {
				ctx, stop := signalContext(cmd.Context())
				defer stop()
				return serve(ctx, c, a)
			})
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, a *app) error {
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	tree.AddPipelineService(services.NewBuildSchedulerService(
		a.runner,
		cfg.Pipeline.Interval,
		cfg.Pipeline.RunOnStart,
		func(err error) bool { return errors.Is(err, pipeline.ErrRunInProgress) },
	))

	handler := api.NewHandler(a.db, a.runs, version)
	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           api.NewRouter(handler, api.RouterOptions{
			RateLimit:   cfg.Server.RateLimit,
			CORSOrigins: cfg.Server.CORSOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	logging.Info().
		Str("addr", server.Addr).
		Dur("interval", cfg.Pipeline.Interval).
		Msg("Starting supervisor tree")

	err = tree.Serve(ctx)
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		logging.Warn().Int("count", len(report)).Msg("Services did not stop within the shutdown timeout")
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logging.Info().Msg("Marquee stopped")
	return nil
}

func newStatusCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the latest run summary as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := runlog.Open(&cfg().RunLog)
			if err != nil {
				return fmt.Errorf("open run log: %w", err)
			}
			defer func() { _ = store.Close() }()

			latest, err := store.Latest(cmd.Context())
			if err != nil {
				return err
			}
			if latest == nil {
				return errors.New("no runs recorded")
			}
			return writeJSON(cmd.OutOrStdout(), latest)
		},
	}
}

func withApp(cfg *config.Config, fn func(a *app) error) error {
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("Error during shutdown")
		}
	}()
	return fn(a)
}

// printRun writes the summary of a started run and passes err through.
func printRun(w io.Writer, summary *models.RunSummary, err error) error {
	if summary != nil {
		if werr := writeJSON(w, summary); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
