// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/marquee/internal/models"
)

// SilverFileName is the cleaned-record artifact inside the silver directory.
const SilverFileName = "movies_cleaned.parquet"

const createSilverTable = `CREATE TABLE silver_movies (
	ordinal INTEGER NOT NULL,
	source_id BIGINT NOT NULL,
	title VARCHAR,
	original_title VARCHAR,
	overview VARCHAR,
	tagline VARCHAR,
	status VARCHAR,
	homepage VARCHAR,
	runtime INTEGER,
	budget BIGINT,
	revenue BIGINT,
	popularity DOUBLE,
	vote_average DOUBLE,
	vote_count BIGINT,
	release_date DATE,
	original_language VARCHAR,
	genres VARCHAR,
	production_companies VARCHAR,
	production_countries VARCHAR,
	spoken_languages VARCHAR,
	director VARCHAR
)`

const silverColumns = `source_id, title, original_title, overview, tagline, status, homepage,
	runtime, budget, revenue, popularity, vote_average, vote_count,
	CAST(release_date AS VARCHAR), original_language,
	genres, production_companies, production_countries, spoken_languages, director`

// SilverStore writes and reads the cleaned-record Parquet artifact.
// Nested collections are stored as JSON text columns.
type SilverStore struct{}

// NewSilverStore returns a SilverStore.
func NewSilverStore() *SilverStore {
	return &SilverStore{}
}

// Path returns the artifact path inside dir.
func (s *SilverStore) Path(dir string) string {
	return filepath.Join(dir, SilverFileName)
}

// Write replaces the Parquet file at path with movies, snappy-compressed.
// The file is written next to path and renamed into place.
func (s *SilverStore) Write(ctx context.Context, path string, movies []models.CleanedMovie) (err error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create silver directory %s: %w", dir, err)
		}
	}

	db, err := openScratch()
	if err != nil {
		return err
	}
	defer closeQuietly(db)

	if _, err := db.ExecContext(ctx, createSilverTable); err != nil {
		return fmt.Errorf("create silver table: %w", err)
	}
	if err := insertSilver(ctx, db, movies); err != nil {
		return err
	}

	tmp := path + ".tmp"
	copySQL := fmt.Sprintf(
		"COPY (SELECT * FROM silver_movies ORDER BY ordinal) TO %s (FORMAT PARQUET, COMPRESSION SNAPPY)",
		sqlString(tmp))
	if _, err := db.ExecContext(ctx, copySQL); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("copy silver parquet: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish silver parquet: %w", err)
	}
	return nil
}

func insertSilver(ctx context.Context, db *sql.DB, movies []models.CleanedMovie) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin silver transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO silver_movies VALUES
		(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CAST(? AS DATE), ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare silver insert: %w", err)
	}
	defer closeQuietly(stmt)

	for i := range movies {
		m := &movies[i]
		genres, companies, countries, languages, err := encodeNested(m)
		if err != nil {
			return fmt.Errorf("encode movie %d: %w", m.SourceID, err)
		}
		var release any
		if m.ReleaseDate != nil {
			release = m.ReleaseDate.Format("2006-01-02")
		}
		if _, err = stmt.ExecContext(ctx,
			i, m.SourceID, m.Title, m.OriginalTitle, m.Overview, m.Tagline, m.Status, m.Homepage,
			m.Runtime, m.Budget, m.Revenue, m.Popularity, m.VoteAverage, m.VoteCount,
			release, m.OriginalLanguage, genres, companies, countries, languages, m.Director,
		); err != nil {
			return fmt.Errorf("insert movie %d: %w", m.SourceID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit silver transaction: %w", err)
	}
	return nil
}

func encodeNested(m *models.CleanedMovie) (genres, companies, countries, languages string, err error) {
	parts := []any{nonNil(m.Genres), nonNil(m.Companies), nonNil(m.Countries), nonNil(m.SpokenLanguages)}
	out := make([]string, len(parts))
	for i, p := range parts {
		b, err := json.Marshal(p)
		if err != nil {
			return "", "", "", "", err
		}
		out[i] = string(b)
	}
	return out[0], out[1], out[2], out[3], nil
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Read loads the cleaned records stored at path, in their original order.
func (s *SilverStore) Read(ctx context.Context, path string) ([]models.CleanedMovie, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("silver parquet: %w", err)
	}

	db, err := openScratch()
	if err != nil {
		return nil, err
	}
	defer closeQuietly(db)

	query := fmt.Sprintf("SELECT %s FROM read_parquet(%s) ORDER BY ordinal", silverColumns, sqlString(path))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query silver parquet: %w", err)
	}
	defer closeQuietly(rows)

	var out []models.CleanedMovie
	for rows.Next() {
		var (
			m                                    models.CleanedMovie
			title, origTitle, overview, tagline  sql.NullString
			status, homepage, language, director sql.NullString
			release                              sql.NullString
			genres, companies, countries, spoken sql.NullString
			runtime                              sql.NullInt64
			budget, revenue, voteCount           sql.NullInt64
			popularity, voteAverage              sql.NullFloat64
		)
		if err := rows.Scan(&m.SourceID, &title, &origTitle, &overview, &tagline, &status, &homepage,
			&runtime, &budget, &revenue, &popularity, &voteAverage, &voteCount,
			&release, &language, &genres, &companies, &countries, &spoken, &director); err != nil {
			return nil, fmt.Errorf("scan silver row: %w", err)
		}

		m.Title, m.OriginalTitle, m.Overview, m.Tagline = title.String, origTitle.String, overview.String, tagline.String
		m.Status, m.Homepage, m.OriginalLanguage, m.Director = status.String, homepage.String, language.String, director.String
		m.Runtime = int(runtime.Int64)
		m.Budget, m.Revenue, m.VoteCount = budget.Int64, revenue.Int64, voteCount.Int64
		m.Popularity, m.VoteAverage = popularity.Float64, voteAverage.Float64
		if release.Valid {
			d, err := time.Parse("2006-01-02", release.String)
			if err != nil {
				return nil, fmt.Errorf("movie %d release date %q: %w", m.SourceID, release.String, err)
			}
			m.ReleaseDate = &d
		}
		if err := decodeList(genres, &m.Genres); err != nil {
			return nil, fmt.Errorf("movie %d genres: %w", m.SourceID, err)
		}
		if err := decodeList(companies, &m.Companies); err != nil {
			return nil, fmt.Errorf("movie %d companies: %w", m.SourceID, err)
		}
		if err := decodeList(countries, &m.Countries); err != nil {
			return nil, fmt.Errorf("movie %d countries: %w", m.SourceID, err)
		}
		if err := decodeList(spoken, &m.SpokenLanguages); err != nil {
			return nil, fmt.Errorf("movie %d spoken languages: %w", m.SourceID, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate silver rows: %w", err)
	}
	return out, nil
}

// decodeList leaves dst nil for NULL or empty lists.
func decodeList[T any](text sql.NullString, dst *[]T) error {
	if !text.Valid || text.String == "" || text.String == "[]" {
		return nil
	}
	return json.Unmarshal([]byte(text.String), dst)
}
