// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/validation"
)

// Validate checks struct tags first, then the cross-field rules.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}
	if err := c.validateInput(); err != nil {
		return err
	}
	if err := c.validateSilver(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateRunLog(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateInput() error {
	if c.Input.MoviesPath == c.Input.CreditsPath {
		return fmt.Errorf("MOVIES_PATH and CREDITS_PATH must be different files")
	}
	return nil
}

func (c *Config) validateSilver() error {
	if c.Silver.Enabled && strings.TrimSpace(c.Silver.Dir) == "" {
		return fmt.Errorf("SILVER_DIR is required when SILVER_ENABLED=true")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.Interval < time.Minute {
		return fmt.Errorf("PIPELINE_INTERVAL must be at least 1m, got %s", c.Pipeline.Interval)
	}
	if c.Pipeline.Timeout < 0 {
		return fmt.Errorf("PIPELINE_TIMEOUT must not be negative, got %s", c.Pipeline.Timeout)
	}
	return nil
}

func (c *Config) validateRunLog() error {
	if !c.RunLog.InMemory && strings.TrimSpace(c.RunLog.Path) == "" {
		return fmt.Errorf("RUNLOG_PATH is required unless RUNLOG_IN_MEMORY=true")
	}
	return nil
}

func (c *Config) validateEvents() error {
	if !c.Events.Enabled {
		return nil
	}
	if c.Events.Topic == "" {
		return fmt.Errorf("EVENTS_TOPIC is required when EVENTS_ENABLED=true")
	}
	u, err := url.Parse(c.Events.NATSURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("NATS_URL must be a valid URL such as nats://host:4222, got %q", c.Events.NATSURL)
	}
	if u.Scheme != "nats" && u.Scheme != "tls" {
		return fmt.Errorf("NATS_URL scheme must be nats or tls, got %q", u.Scheme)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal, disabled; got %q", c.Logging.Level)
	}
	return nil
}
