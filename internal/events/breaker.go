// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package events

import (
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/marquee/internal/metrics"
)

const (
	defaultBreakerThreshold = 5
	defaultBreakerTimeout   = 30 * time.Second
)

// ErrCircuitOpen is returned while the publisher circuit is open.
var ErrCircuitOpen = gobreaker.ErrOpenState

// newBreaker trips after threshold consecutive publish failures and fails
// publishes fast until timeout has passed, then lets one probe through.
func newBreaker(name string, threshold uint32, timeout time.Duration, logger zerolog.Logger) *gobreaker.CircuitBreaker[struct{}] {
	if threshold == 0 {
		threshold = defaultBreakerThreshold
	}
	if timeout <= 0 {
		timeout = defaultBreakerTimeout
	}

	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetEventBreakerState(int(to))
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Event publisher circuit changed state")
		},
	})
}
