// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/multierr"

	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/models"
)

const (
	insertMovie = `INSERT INTO dim_movie (movie_key, natural_key, source_id, title, original_title,
		overview, tagline, status, homepage, runtime, original_language)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	insertDate = `INSERT INTO dim_date (date_key, natural_key, full_date, year, quarter, month,
		month_name, day, day_of_week, day_name, iso_week, is_weekend)
		VALUES (?, ?, CAST(? AS DATE), ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	insertGenre    = `INSERT INTO dim_genre (genre_key, natural_key, name) VALUES (?, ?, ?)`
	insertDirector = `INSERT INTO dim_director (director_key, natural_key, name) VALUES (?, ?, ?)`
	insertLanguage = `INSERT INTO dim_language (language_key, natural_key, iso_639_1, name) VALUES (?, ?, ?, ?)`
	insertCountry  = `INSERT INTO dim_country (country_key, natural_key, iso_3166_1, name) VALUES (?, ?, ?, ?)`
	insertCompany  = `INSERT INTO dim_production_company (company_key, natural_key, name, origin_country) VALUES (?, ?, ?, ?)`
	insertFact     = `INSERT INTO fact_movie_release (movie_key, date_key, director_key, language_key,
		country_key, company_key, popularity, vote_average, vote_count, budget, revenue, runtime)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	insertBridge      = `INSERT INTO bridge_movie_genre (movie_key, genre_key) VALUES (?, ?)`
	insertLoadHistory = `INSERT INTO warehouse_loads (run_id, loaded_at, movies, facts, bridge_rows, skipped)
		VALUES (?, ?, ?, ?, ?, ?)`
)

// Load replaces the warehouse contents with ts in one transaction. On any
// error the transaction is rolled back and a *LoadError is returned.
func (db *DB) Load(ctx context.Context, ts *models.TableSet) (result *models.LoadResult, err error) {
	start := time.Now()
	if ts == nil {
		return nil, newLoadError("validate", "", errors.New("nil table set"))
	}
	logger := logging.Ctx(ctx).With().Str("component", "database").Logger()

	facts, bridge, skipped := quarantine(ts)
	for _, issue := range skipped {
		logger.Warn().Str("table", issue.Stream).Str("source_id", issue.SourceID).Str("detail", issue.Detail).
			Msg("Quarantined row with unresolved reference")
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, newLoadError("begin", "", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				logger.Error().
					Err(rbErr).
					AnErr("original_error", err).
					Msg("Transaction rollback failed")
				err = multierr.Append(err, rbErr)
			}
		}
	}()

	tables := Tables()
	for _, table := range slices.Backward(tables) {
		if err := execTimed(ctx, tx, "delete", table, "DELETE FROM "+table); err != nil {
			return nil, newLoadError("delete", table, err)
		}
	}

	inserts := []struct {
		table string
		run   func() error
	}{
		{models.DimMovie.Table(), func() error {
			return insertRows(ctx, tx, models.DimMovie.Table(), insertMovie, ts.Movies, func(r *models.MovieDim) []any {
				return []any{r.Key, r.NaturalKey, r.SourceID, r.Title, r.OriginalTitle, r.Overview,
					r.Tagline, r.Status, r.Homepage, r.Runtime, r.OriginalLanguage}
			})
		}},
		{models.DimDate.Table(), func() error {
			return insertRows(ctx, tx, models.DimDate.Table(), insertDate, ts.Dates, func(r *models.DateDim) []any {
				var full any
				if r.Date != nil {
					full = r.Date.Format("2006-01-02")
				}
				return []any{r.Key, r.NaturalKey, full, r.Year, r.Quarter, r.Month, r.MonthName,
					r.Day, r.DayOfWeek, r.DayName, r.Week, r.IsWeekend}
			})
		}},
		{models.DimGenre.Table(), func() error {
			return insertRows(ctx, tx, models.DimGenre.Table(), insertGenre, ts.Genres, func(r *models.GenreDim) []any {
				return []any{r.Key, r.NaturalKey, r.Name}
			})
		}},
		{models.DimDirector.Table(), func() error {
			return insertRows(ctx, tx, models.DimDirector.Table(), insertDirector, ts.Directors, func(r *models.DirectorDim) []any {
				return []any{r.Key, r.NaturalKey, r.Name}
			})
		}},
		{models.DimLanguage.Table(), func() error {
			return insertRows(ctx, tx, models.DimLanguage.Table(), insertLanguage, ts.Languages, func(r *models.LanguageDim) []any {
				return []any{r.Key, r.NaturalKey, r.Code, r.Name}
			})
		}},
		{models.DimCountry.Table(), func() error {
			return insertRows(ctx, tx, models.DimCountry.Table(), insertCountry, ts.Countries, func(r *models.CountryDim) []any {
				return []any{r.Key, r.NaturalKey, r.Code, r.Name}
			})
		}},
		{models.DimCompany.Table(), func() error {
			return insertRows(ctx, tx, models.DimCompany.Table(), insertCompany, ts.Companies, func(r *models.CompanyDim) []any {
				return []any{r.Key, r.NaturalKey, r.Name, r.OriginCountry}
			})
		}},
		{models.TableFact, func() error {
			return insertRows(ctx, tx, models.TableFact, insertFact, facts, func(r *models.FactMovieRelease) []any {
				return []any{r.MovieKey, r.DateKey, r.DirectorKey, r.LanguageKey, r.CountryKey, r.CompanyKey,
					r.Popularity, r.VoteAverage, r.VoteCount, r.Budget, r.Revenue, r.Runtime}
			})
		}},
		{models.TableBridge, func() error {
			return insertRows(ctx, tx, models.TableBridge, insertBridge, bridge, func(r *models.BridgeMovieGenre) []any {
				return []any{r.MovieKey, r.GenreKey}
			})
		}},
	}
	for _, ins := range inserts {
		if err := ins.run(); err != nil {
			return nil, newLoadError("insert", ins.table, err)
		}
	}

	runID := logging.RunIDFromContext(ctx)
	if _, err := tx.ExecContext(ctx, insertLoadHistory,
		runID, time.Now().UTC(), len(ts.Movies), len(facts), len(bridge), len(skipped)); err != nil {
		return nil, newLoadError("history", TableLoadHistory, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, newLoadError("commit", "", err)
	}

	counts := ts.RowCounts()
	counts[models.TableFact] = int64(len(facts))
	counts[models.TableBridge] = int64(len(bridge))

	result = &models.LoadResult{
		RowCounts: counts,
		Skipped:   len(skipped),
		Duration:  time.Since(start),
	}
	logger.Info().
		Int("movies", len(ts.Movies)).
		Int("facts", len(facts)).
		Int("bridge_rows", len(bridge)).
		Int("skipped", len(skipped)).
		Dur("duration", result.Duration).
		Msg("Warehouse loaded")
	return result, nil
}

// insertRows inserts rows through one prepared statement.
func insertRows[R any](ctx context.Context, tx *sql.Tx, table, query string, rows []R, args func(*R) []any) (err error) {
	if len(rows) == 0 {
		return nil
	}
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("insert", table, time.Since(start), err)
	}()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer closeWithLog(stmt, "insert statement")

	for i := range rows {
		if _, err = stmt.ExecContext(ctx, args(&rows[i])...); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return nil
}

func execTimed(ctx context.Context, tx *sql.Tx, operation, table, query string) error {
	start := time.Now()
	_, err := tx.ExecContext(ctx, query)
	metrics.RecordDBQuery(operation, table, time.Since(start), err)
	return err
}

// quarantine drops fact and bridge rows whose references are not present in
// the dimensions of ts.
func quarantine(ts *models.TableSet) (facts []models.FactMovieRelease, bridge []models.BridgeMovieGenre, skipped []models.Issue) {
	keySet := func(n int, key func(int) int64) map[int64]struct{} {
		set := make(map[int64]struct{}, n)
		for i := 0; i < n; i++ {
			set[key(i)] = struct{}{}
		}
		return set
	}
	movies := keySet(len(ts.Movies), func(i int) int64 { return ts.Movies[i].Key })
	dates := keySet(len(ts.Dates), func(i int) int64 { return ts.Dates[i].Key })
	genres := keySet(len(ts.Genres), func(i int) int64 { return ts.Genres[i].Key })
	directors := keySet(len(ts.Directors), func(i int) int64 { return ts.Directors[i].Key })
	languages := keySet(len(ts.Languages), func(i int) int64 { return ts.Languages[i].Key })
	countries := keySet(len(ts.Countries), func(i int) int64 { return ts.Countries[i].Key })
	companies := keySet(len(ts.Companies), func(i int) int64 { return ts.Companies[i].Key })

	has := func(set map[int64]struct{}, key int64) bool {
		_, ok := set[key]
		return ok
	}

	facts = make([]models.FactMovieRelease, 0, len(ts.Facts))
	for _, f := range ts.Facts {
		if has(movies, f.MovieKey) && has(dates, f.DateKey) && has(directors, f.DirectorKey) &&
			has(languages, f.LanguageKey) && has(countries, f.CountryKey) && has(companies, f.CompanyKey) {
			facts = append(facts, f)
			continue
		}
		skipped = append(skipped, models.Issue{
			Kind:     models.IssueUnresolvedReference,
			Stream:   models.TableFact,
			SourceID: fmt.Sprintf("movie_key=%d", f.MovieKey),
			Detail:   "fact references a key missing from its dimension",
		})
	}

	bridge = make([]models.BridgeMovieGenre, 0, len(ts.Bridge))
	for _, br := range ts.Bridge {
		if has(movies, br.MovieKey) && has(genres, br.GenreKey) {
			bridge = append(bridge, br)
			continue
		}
		skipped = append(skipped, models.Issue{
			Kind:     models.IssueUnresolvedReference,
			Stream:   models.TableBridge,
			SourceID: fmt.Sprintf("movie_key=%d", br.MovieKey),
			Detail:   fmt.Sprintf("bridge references missing genre_key %d or movie_key", br.GenreKey),
		})
	}
	return facts, bridge, skipped
}
