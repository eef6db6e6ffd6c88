// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package database

import (
	"context"
	"time"

	"github.com/tomtom215/marquee/internal/models"
)

// TableLoadHistory records one row per committed load.
const TableLoadHistory = "warehouse_loads"

// Tables lists the warehouse tables in insert order. Deletes run in
// reverse.
func Tables() []string {
	tables := make([]string, 0, len(models.AllDimensions)+2)
	for _, d := range models.AllDimensions {
		tables = append(tables, d.Table())
	}
	return append(tables, models.TableFact, models.TableBridge)
}

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// starSchema creates the dimension, fact and bridge tables.
var starSchema = []string{
	`CREATE TABLE IF NOT EXISTS dim_movie (
		movie_key BIGINT PRIMARY KEY,
		natural_key VARCHAR NOT NULL UNIQUE,
		source_id BIGINT NOT NULL,
		title VARCHAR,
		original_title VARCHAR,
		overview VARCHAR,
		tagline VARCHAR,
		status VARCHAR,
		homepage VARCHAR,
		runtime INTEGER,
		original_language VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS dim_date (
		date_key BIGINT PRIMARY KEY,
		natural_key VARCHAR NOT NULL UNIQUE,
		full_date DATE,
		year INTEGER,
		quarter INTEGER,
		month INTEGER,
		month_name VARCHAR,
		day INTEGER,
		day_of_week INTEGER,
		day_name VARCHAR,
		iso_week INTEGER,
		is_weekend BOOLEAN
	)`,
	`CREATE TABLE IF NOT EXISTS dim_genre (
		genre_key BIGINT PRIMARY KEY,
		natural_key VARCHAR NOT NULL UNIQUE,
		name VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS dim_director (
		director_key BIGINT PRIMARY KEY,
		natural_key VARCHAR NOT NULL UNIQUE,
		name VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS dim_language (
		language_key BIGINT PRIMARY KEY,
		natural_key VARCHAR NOT NULL UNIQUE,
		iso_639_1 VARCHAR,
		name VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS dim_country (
		country_key BIGINT PRIMARY KEY,
		natural_key VARCHAR NOT NULL UNIQUE,
		iso_3166_1 VARCHAR,
		name VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS dim_production_company (
		company_key BIGINT PRIMARY KEY,
		natural_key VARCHAR NOT NULL UNIQUE,
		name VARCHAR,
		origin_country VARCHAR
	)`,
	// No REFERENCES clauses: DuckDB checks foreign keys per statement and
	// rejects deleting a dimension even after its fact rows are gone in the
	// same transaction. Load resolves references itself (quarantine).
	`CREATE TABLE IF NOT EXISTS fact_movie_release (
		movie_key BIGINT PRIMARY KEY,
		date_key BIGINT NOT NULL,
		director_key BIGINT NOT NULL,
		language_key BIGINT NOT NULL,
		country_key BIGINT NOT NULL,
		company_key BIGINT NOT NULL,
		popularity DOUBLE,
		vote_average DOUBLE,
		vote_count BIGINT,
		budget BIGINT,
		revenue BIGINT,
		runtime INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS bridge_movie_genre (
		movie_key BIGINT NOT NULL,
		genre_key BIGINT NOT NULL,
		PRIMARY KEY (movie_key, genre_key)
	)`,
	"CREATE INDEX IF NOT EXISTS idx_fact_date ON fact_movie_release (date_key)",
	"CREATE INDEX IF NOT EXISTS idx_fact_director ON fact_movie_release (director_key)",
	"CREATE INDEX IF NOT EXISTS idx_fact_language ON fact_movie_release (language_key)",
	"CREATE INDEX IF NOT EXISTS idx_fact_country ON fact_movie_release (country_key)",
	"CREATE INDEX IF NOT EXISTS idx_fact_company ON fact_movie_release (company_key)",
	"CREATE INDEX IF NOT EXISTS idx_bridge_genre ON bridge_movie_genre (genre_key)",
}

// loadHistorySchema tracks which run produced the current contents.
var loadHistorySchema = []string{
	`CREATE TABLE IF NOT EXISTS warehouse_loads (
		run_id VARCHAR NOT NULL,
		loaded_at TIMESTAMP NOT NULL,
		movies BIGINT NOT NULL,
		facts BIGINT NOT NULL,
		bridge_rows BIGINT NOT NULL,
		skipped BIGINT NOT NULL
	)`,
}
