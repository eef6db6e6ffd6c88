// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package ingest turns the raw movie and credit files into cleaned movie
records.

# Stages

 1. CSVSource reads both files through an in-memory DuckDB instance
    (read_csv with every column kept as VARCHAR) into RawMovieRecord and
    RawCreditRecord values.
 2. Clean validates and normalizes them. It is a pure function: the only
    output is the CleanResult, whose IngestReport counts every rejected
    record and degraded field.
 3. SilverStore persists the cleaned records as a snappy-compressed Parquet
    file and reads them back for replays.

# Cleaning Rules

Scalars:
  - budget, revenue, vote_count, popularity, vote_average and runtime parse
    with a fallback of 0; unparseable non-empty text is counted as a
    malformed field and the record is kept
  - text is trimmed; empty text stays "" (the absent-value sentinel)
  - release_date accepts ISO, slash and US layouts; anything else becomes an
    unknown date
  - language codes are lower-cased, country codes upper-cased

Nested fields (genres, production_companies, production_countries,
spoken_languages, crew) are JSON arrays of strings or objects. Text that is
not valid JSON is retried with single quotes turned into double quotes; if
that fails too the field degrades to an empty list.

Records without a usable movie id are rejected as missing identity; later
records repeating an id are rejected as duplicates. Credits follow the same
rules on movie_id. The director is the first crew member whose job is
Director; movies without one keep an empty director.

# Example

	src := ingest.NewCSVSource(cfg.Input.MoviesPath, cfg.Input.CreditsPath)
	movies, credits, err := src.Read(ctx)
	if err != nil {
	    return err
	}
	result := ingest.Clean(movies, credits)
	logging.Info().
	    Int("cleaned", result.Report.Cleaned).
	    Int("rejected", result.Report.Rejected()).
	    Msg("Movies cleaned")
*/
package ingest
