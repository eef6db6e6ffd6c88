// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package warehouse turns cleaned movie records into the star schema.

The builder keeps one registry per dimension. A registry maps natural keys
to dense surrogate keys and is seeded from the previously loaded table set,
so a movie, genre, or company keeps its key across runs. New natural keys
are minted in first-seen order, except for dates, which a batch mints in
calendar order once its scan completes.

Dimensions:

  - dim_movie: one row per source movie id, attributes refreshed on rebuild
  - dim_date: release dates with derived calendar attributes
  - dim_genre, dim_director, dim_production_company: normalized names
  - dim_language, dim_country: ISO codes with display names

References that are absent in a record resolve to the "<unknown>" sentinel
row of the dimension. Genres are many-to-many and live in
bridge_movie_genre; the fact row carries the primary country, company, and
original language.

Each Build returns a complete snapshot: facts and bridge rows for prior
movies that are not in the batch are carried forward unchanged. The loader
in package database replaces the warehouse contents with that snapshot.
*/
package warehouse
