// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	// DuckDB driver, used in-memory to parse CSV and Parquet files
	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/marquee/internal/models"
)

// ErrMissingColumn is returned when an input file lacks its identity column.
var ErrMissingColumn = errors.New("required column missing")

// CSVSource reads the raw movies and credits files.
type CSVSource struct {
	MoviesPath  string
	CreditsPath string
}

// NewCSVSource returns a source for the two files.
func NewCSVSource(moviesPath, creditsPath string) *CSVSource {
	return &CSVSource{MoviesPath: moviesPath, CreditsPath: creditsPath}
}

// Read loads both files completely. Every column is read as text; NULLs
// and missing columns become empty strings.
func (s *CSVSource) Read(ctx context.Context) ([]models.RawMovieRecord, []models.RawCreditRecord, error) {
	db, err := openScratch()
	if err != nil {
		return nil, nil, err
	}
	defer closeQuietly(db)

	movieRows, err := readCSV(ctx, db, s.MoviesPath, "id")
	if err != nil {
		return nil, nil, fmt.Errorf("read movies %s: %w", s.MoviesPath, err)
	}
	creditRows, err := readCSV(ctx, db, s.CreditsPath, "movie_id")
	if err != nil {
		return nil, nil, fmt.Errorf("read credits %s: %w", s.CreditsPath, err)
	}

	movies := make([]models.RawMovieRecord, len(movieRows))
	for i, r := range movieRows {
		movies[i] = models.RawMovieRecord{
			Row:                 i + 1,
			ID:                  r["id"],
			Title:               r["title"],
			OriginalTitle:       r["original_title"],
			Overview:            r["overview"],
			Tagline:             r["tagline"],
			Status:              r["status"],
			Homepage:            r["homepage"],
			Runtime:             r["runtime"],
			Budget:              r["budget"],
			Revenue:             r["revenue"],
			Popularity:          r["popularity"],
			VoteAverage:         r["vote_average"],
			VoteCount:           r["vote_count"],
			ReleaseDate:         r["release_date"],
			OriginalLanguage:    r["original_language"],
			Genres:              r["genres"],
			ProductionCompanies: r["production_companies"],
			ProductionCountries: r["production_countries"],
			SpokenLanguages:     r["spoken_languages"],
		}
	}

	credits := make([]models.RawCreditRecord, len(creditRows))
	for i, r := range creditRows {
		credits[i] = models.RawCreditRecord{
			Row:     i + 1,
			MovieID: r["movie_id"],
			Title:   r["title"],
			Cast:    r["cast"],
			Crew:    r["crew"],
		}
	}

	return movies, credits, nil
}

// openScratch opens a private in-memory DuckDB limited to one connection.
func openScratch() (*sql.DB, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// readCSV returns every data row keyed by lower-cased header name.
func readCSV(ctx context.Context, db *sql.DB, path, identityColumn string) ([]map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT * FROM read_csv(%s, header = true, all_varchar = true)", sqlString(path))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query csv: %w", err)
	}
	defer closeQuietly(rows)

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	names := make([]string, len(columns))
	found := false
	for i, c := range columns {
		names[i] = strings.ToLower(strings.TrimSpace(c))
		if names[i] == identityColumn {
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, identityColumn)
	}

	values := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	var out []map[string]string
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(out)+1, err)
		}
		row := make(map[string]string, len(columns))
		for i, v := range values {
			if v.Valid {
				row[names[i]] = v.String
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// sqlString quotes s as a SQL string literal.
func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
