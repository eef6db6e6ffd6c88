// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package services adapts serve-mode components to suture.Service.
//
// Each wrapper turns a component's own lifecycle (a blocking
// ListenAndServe, a ticker loop) into Serve(ctx) that returns when ctx is
// cancelled and names itself through String for supervisor logs.
package services
