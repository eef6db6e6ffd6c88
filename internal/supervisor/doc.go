// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package supervisor runs serve mode under a suture v4 supervisor tree.

The tree has two layers so a crashing HTTP server never stops scheduled
builds, and a failing build loop never takes the ops endpoints down:

	RootSupervisor ("marquee")
	├── PipelineSupervisor ("pipeline-layer")
	│   └── BuildSchedulerService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Supervisor events are logged through sutureslog onto the zerolog-backed
slog handler of the logging package. Crashed services are restarted with
suture's backoff; the thresholds are set with TreeConfig.

The service wrappers live in the services subpackage.
*/
package supervisor
