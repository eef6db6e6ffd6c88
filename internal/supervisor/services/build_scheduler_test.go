// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/marquee/internal/models"
)

var errBusy = errors.New("busy")

type countingRunner struct {
	runs atomic.Int32
	err  error
}

func (r *countingRunner) Run(context.Context) (*models.RunSummary, error) {
	n := r.runs.Add(1)
	return &models.RunSummary{RunID: "run", Status: models.RunSuccess, RecordsRead: int(n)}, r.err
}

func serveFor(t *testing.T, svc suture.Service, d time.Duration) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return svc.Serve(ctx)
}

var _ suture.Service = (*BuildSchedulerService)(nil)

func TestBuildScheduler_RunOnStart(t *testing.T) {
	runner := &countingRunner{}
	svc := NewBuildSchedulerService(runner, time.Hour, true, nil)

	err := serveFor(t, svc, 50*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v", err)
	}
	if runner.runs.Load() != 1 {
		t.Errorf("runs = %d, want 1", runner.runs.Load())
	}
}

func TestBuildScheduler_WaitsForFirstTick(t *testing.T) {
	runner := &countingRunner{}
	svc := NewBuildSchedulerService(runner, time.Hour, false, nil)

	_ = serveFor(t, svc, 50*time.Millisecond)
	if runner.runs.Load() != 0 {
		t.Errorf("runs = %d, want 0 before the first tick", runner.runs.Load())
	}
}

func TestBuildScheduler_Ticks(t *testing.T) {
	runner := &countingRunner{}
	svc := NewBuildSchedulerService(runner, 20*time.Millisecond, false, nil)

	_ = serveFor(t, svc, 150*time.Millisecond)
	if runner.runs.Load() < 2 {
		t.Errorf("runs = %d, want at least 2", runner.runs.Load())
	}
}

func TestBuildScheduler_FailuresKeepLoopAlive(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"run failure", errors.New("load warehouse: constraint")},
		{"busy", errBusy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &countingRunner{err: tt.err}
			svc := NewBuildSchedulerService(runner, 20*time.Millisecond, true, func(err error) bool {
				return errors.Is(err, errBusy)
			})

			err := serveFor(t, svc, 100*time.Millisecond)
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("Serve returned %v; run errors must not stop the loop", err)
			}
			if runner.runs.Load() < 2 {
				t.Errorf("runs = %d", runner.runs.Load())
			}
		})
	}
}

func TestNewBuildSchedulerService_Defaults(t *testing.T) {
	svc := NewBuildSchedulerService(&countingRunner{}, 0, false, nil)
	if svc.interval != time.Hour || svc.String() != "build-scheduler" {
		t.Errorf("interval=%v name=%q", svc.interval, svc.String())
	}
	if svc.isBusy(errBusy) {
		t.Error("default isBusy should report false")
	}
}
