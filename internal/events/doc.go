// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package events publishes warehouse notifications through Watermill.

After a load commits, the pipeline publishes one BuildCompleted event to the
configured topic. Production deployments publish over NATS with
watermill-nats; tests use Watermill's in-process gochannel. When events are
disabled the pipeline uses Noop.

Message UUIDs double as the Nats-Msg-Id header so a JetStream-backed
subject can drop duplicates when a publish is retried.
*/
package events
