// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package services

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/models"
)

// Runner starts one pipeline run. Satisfied by *pipeline.Runner.
type Runner interface {
	Run(ctx context.Context) (*models.RunSummary, error)
}

// BuildSchedulerService runs the pipeline on a fixed interval.
//
// A failed run is logged and retried at the next tick; it never makes
// Serve return, so suture does not restart the loop for data problems.
// A run refused because another run holds the runner is skipped.
type BuildSchedulerService struct {
	runner     Runner
	interval   time.Duration
	runOnStart bool
	isBusy     func(error) bool
	name       string
}

// NewBuildSchedulerService wraps runner. isBusy reports whether a run error
// means another run was in progress; it may be nil.
func NewBuildSchedulerService(runner Runner, interval time.Duration, runOnStart bool, isBusy func(error) bool) *BuildSchedulerService {
	if interval <= 0 {
		interval = time.Hour
	}
	if isBusy == nil {
		isBusy = func(error) bool { return false }
	}
	return &BuildSchedulerService{
		runner:     runner,
		interval:   interval,
		runOnStart: runOnStart,
		isBusy:     isBusy,
		name:       "build-scheduler",
	}
}

// Serve implements suture.Service.
func (s *BuildSchedulerService) Serve(ctx context.Context) error {
	logger := logging.WithComponent(s.name)
	logger.Info().Dur("interval", s.interval).Bool("run_on_start", s.runOnStart).Msg("Build scheduler started")

	if s.runOnStart {
		s.runOnce(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *BuildSchedulerService) runOnce(ctx context.Context) {
	summary, err := s.runner.Run(ctx)
	switch {
	case err == nil:
		return
	case s.isBusy(err):
		logging.Debug().Msg("Scheduled build skipped, a run is already in progress")
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		// shutting down
	default:
		evt := logging.Warn().Err(err)
		if summary != nil {
			evt = evt.Str("run_id", summary.RunID)
		}
		evt.Msg("Scheduled build failed")
	}
}

// String names the service in supervisor logs.
func (s *BuildSchedulerService) String() string {
	return s.name
}
