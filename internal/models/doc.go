// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package models defines the data structures shared by every Marquee stage.

The package is the single source of truth for record shapes as they move
through the pipeline:

 1. Raw records: RawMovieRecord and RawCreditRecord keep every source
    field as text exactly as it was read.
 2. Cleaned records: CleanedMovie carries normalized scalars and
    normalized nested collections (genres, companies, countries, director).
 3. Dimensional tables: the seven dimension row types, FactMovieRelease,
    BridgeMovieGenre and the TableSet that groups them with the KeyState.
 4. Reports: IngestReport, BuildReport, LoadResult and RunSummary.

# Surrogate Keys

Every dimension row has a dense integer Key starting at 1 and a string
NaturalKey. KeyCounter holds the natural-key to surrogate-key mapping and
the next unused key for one dimension; KeyState groups one counter per
dimension and is passed explicitly into and out of a build:

	state := models.NewKeyState()
	key, minted := state.Counter(models.DimGenre).Assign("comedy")

Unknown values map to the UnknownKey natural key, which receives exactly
one row per dimension.

# Issues

Recoverable data problems are recorded as Issue values with an IssueKind.
Only IssueLoadFailure is fatal to a run; the other kinds are counted in the
reports and surfaced in the RunSummary.
*/
package models
