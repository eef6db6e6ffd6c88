// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package database persists star-schema table sets in DuckDB.

The warehouse file holds seven dimension tables, one fact table and one
bridge table:

	dim_movie, dim_date, dim_genre, dim_director, dim_language,
	dim_country, dim_production_company
	fact_movie_release   one row per movie, six foreign keys, six measures
	bridge_movie_genre   (movie_key, genre_key) pairs

Every dimension has a BIGINT surrogate key and a UNIQUE natural key.
Indexes cover every fact foreign key and the bridge genre key.

Loading:

Load replaces the warehouse contents with a complete table set inside one
transaction. Bridge, fact, then dimension rows are deleted; dimension, fact,
then bridge rows are inserted. Any failure rolls the transaction back and
returns a *LoadError matching ErrLoadFailure, leaving the prior contents
untouched. Fact and bridge rows whose references are absent from the table
set are quarantined and counted instead of failing the load.

Reading:

LoadTableSet reads the persisted tables back into a TableSet, including the
key state, so the next build can merge into it. TableCounts reports row
counts for health and status output.

Schema changes are applied through versioned migrations recorded in
schema_migrations.
*/
package database
