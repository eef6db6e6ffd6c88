// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package pipeline composes ingest, build and load into one run and records
// its summary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/tomtom215/marquee/internal/config"
	"github.com/tomtom215/marquee/internal/database"
	"github.com/tomtom215/marquee/internal/ingest"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/models"
	"github.com/tomtom215/marquee/internal/warehouse"
)

// ErrRunInProgress is returned when a run is requested while another one
// holds the runner.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// Source yields the raw movie and credit records of a batch.
type Source interface {
	Read(ctx context.Context) ([]models.RawMovieRecord, []models.RawCreditRecord, error)
}

// Silver persists cleaned records between runs.
type Silver interface {
	Write(ctx context.Context, path string, movies []models.CleanedMovie) error
	Read(ctx context.Context, path string) ([]models.CleanedMovie, error)
}

// Warehouse is the persisted star schema.
type Warehouse interface {
	LoadTableSet(ctx context.Context) (*models.TableSet, error)
	Load(ctx context.Context, ts *models.TableSet) (*models.LoadResult, error)
}

// RunStore records run summaries.
type RunStore interface {
	Save(ctx context.Context, s *models.RunSummary) error
	Prune(ctx context.Context, keep int) (int, error)
}

// Publisher announces committed builds.
type Publisher interface {
	PublishBuildCompleted(ctx context.Context, s *models.RunSummary) error
}

// Options tune a Runner.
type Options struct {
	Parallel    bool
	Incremental bool

	// SilverPath is where cleaned records are written after ingest and the
	// default replay input. Empty disables the silver write.
	SilverPath string

	Timeout      time.Duration
	HistoryLimit int
}

// OptionsFromConfig derives runner options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		Parallel:     cfg.Pipeline.Parallel,
		Incremental:  cfg.Pipeline.Incremental,
		Timeout:      cfg.Pipeline.Timeout,
		HistoryLimit: cfg.RunLog.HistoryLimit,
	}
	if cfg.Silver.Enabled {
		opts.SilverPath = ingest.NewSilverStore().Path(cfg.Silver.Dir)
	}
	return opts
}

// Runner executes pipeline runs. At most one run is active per Runner.
type Runner struct {
	source    Source
	silver    Silver
	warehouse Warehouse
	runs      RunStore
	events    Publisher
	builder   *warehouse.Builder
	opts      Options

	mu  sync.Mutex
	now func() time.Time
}

// NewRunner wires a runner. runs and events may be nil.
func NewRunner(source Source, silver Silver, wh Warehouse, runs RunStore, events Publisher, opts Options) *Runner {
	return &Runner{
		source:    source,
		silver:    silver,
		warehouse: wh,
		runs:      runs,
		events:    events,
		builder: warehouse.NewBuilder(
			warehouse.WithParallel(opts.Parallel),
			warehouse.WithLogger(logging.WithComponent("builder")),
		),
		opts: opts,
		now:  time.Now,
	}
}

// Run ingests the CSV source, builds the star schema and loads it.
// The returned summary is non-nil whenever the run started, also on failure.
func (r *Runner) Run(ctx context.Context) (*models.RunSummary, error) {
	return r.execute(ctx, models.ModeCSV, r.ingestCSV)
}

// Replay builds and loads from a silver Parquet file instead of the CSV
// source. An empty path uses the configured silver location.
func (r *Runner) Replay(ctx context.Context, path string) (*models.RunSummary, error) {
	if path == "" {
		path = r.opts.SilverPath
	}
	if path == "" {
		return nil, errors.New("replay needs a silver file path")
	}
	return r.execute(ctx, models.ModeReplay, func(ctx context.Context, s *models.RunSummary) ([]models.CleanedMovie, error) {
		movies, err := r.silver.Read(ctx, path)
		if err != nil {
			return nil, err
		}
		s.RecordsRead = len(movies)
		s.RecordsCleaned = len(movies)
		s.SilverPath = path
		return movies, nil
	})
}

type ingestFunc func(ctx context.Context, s *models.RunSummary) ([]models.CleanedMovie, error)

func (r *Runner) execute(ctx context.Context, mode string, ingestFn ingestFunc) (*models.RunSummary, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()

	runID := logging.GenerateRunID()
	ctx = logging.ContextWithRunID(ctx, runID)
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}
	log := logging.Ctx(ctx)

	summary := models.NewRunSummary(runID, mode, r.now())
	log.Info().Str("mode", mode).Msg("Pipeline run started")

	err := r.stages(ctx, summary, ingestFn)
	status := models.RunSuccess
	if err != nil {
		status = models.RunFailed
	}
	summary.Finish(status, r.now(), err)
	metrics.RecordRun(summary)

	// The ledger entry is written even when ctx was cancelled.
	if recErr := r.record(context.WithoutCancel(ctx), summary); recErr != nil {
		if err != nil {
			err = multierr.Append(err, recErr)
		} else {
			log.Warn().Err(recErr).Msg("Failed to record run summary")
		}
	}

	if err != nil {
		log.Error().Err(err).Int64("duration_ms", summary.DurationMs).Msg("Pipeline run failed")
		return summary, err
	}

	if r.events != nil {
		if pubErr := r.events.PublishBuildCompleted(ctx, summary); pubErr != nil {
			log.Warn().Err(pubErr).Msg("Failed to publish build event")
		}
	}

	log.Info().
		Int("records_read", summary.RecordsRead).
		Int("records_cleaned", summary.RecordsCleaned).
		Int("records_rejected", summary.RecordsRejected).
		Int("skipped_references", summary.SkippedReferences).
		Int64("duration_ms", summary.DurationMs).
		Msg("Pipeline run finished")
	return summary, nil
}

func (r *Runner) stages(ctx context.Context, summary *models.RunSummary, ingestFn ingestFunc) error {
	records, err := timed("ingest", func() ([]models.CleanedMovie, error) {
		return ingestFn(ctx, summary)
	})
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	var prior *models.TableSet
	if r.opts.Incremental {
		prior, err = timed("prior_state", func() (*models.TableSet, error) {
			return r.warehouse.LoadTableSet(ctx)
		})
		if err != nil {
			return fmt.Errorf("read prior state: %w", err)
		}
	}

	var report *models.BuildReport
	ts, err := timed("build", func() (*models.TableSet, error) {
		ts, rep, err := r.builder.Build(records, prior)
		report = rep
		return ts, err
	})
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	summary.ApplyBuild(report)

	if err := warehouse.CheckIntegrity(ts); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	result, err := timed("load", func() (*models.LoadResult, error) {
		return r.warehouse.Load(ctx, ts)
	})
	if err != nil {
		if errors.Is(err, database.ErrLoadFailure) {
			summary.Rejections[models.IssueLoadFailure] = 1
		}
		return fmt.Errorf("load warehouse: %w", err)
	}
	summary.ApplyLoad(result)
	summary.SkippedReferences += result.Skipped
	summary.Rejections[models.IssueUnresolvedReference] += result.Skipped
	return nil
}

// ingestCSV reads and cleans the CSV batch and refreshes the silver file.
func (r *Runner) ingestCSV(ctx context.Context, s *models.RunSummary) ([]models.CleanedMovie, error) {
	movies, credits, err := r.source.Read(ctx)
	if err != nil {
		return nil, err
	}

	cleaned := ingest.Clean(movies, credits)
	s.ApplyIngest(cleaned.Report)

	if r.opts.SilverPath != "" && r.silver != nil {
		if err := r.silver.Write(ctx, r.opts.SilverPath, cleaned.Movies); err != nil {
			return nil, fmt.Errorf("write silver: %w", err)
		}
		s.SilverPath = r.opts.SilverPath
	}
	return cleaned.Movies, nil
}

func (r *Runner) record(ctx context.Context, s *models.RunSummary) error {
	if r.runs == nil {
		return nil
	}
	if err := r.runs.Save(ctx, s); err != nil {
		return fmt.Errorf("save run summary: %w", err)
	}
	if r.opts.HistoryLimit > 0 {
		if _, err := r.runs.Prune(ctx, r.opts.HistoryLimit); err != nil {
			return fmt.Errorf("prune run history: %w", err)
		}
	}
	return nil
}

func timed[T any](stage string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	metrics.RecordStage(stage, time.Since(start))
	return v, err
}
