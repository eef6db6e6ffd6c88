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
	"time"

	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/models"
)

// LoadInfo describes the most recent committed load.
type LoadInfo struct {
	RunID      string    `json:"run_id"`
	LoadedAt   time.Time `json:"loaded_at"`
	Movies     int64     `json:"movies"`
	Facts      int64     `json:"facts"`
	BridgeRows int64     `json:"bridge_rows"`
	Skipped    int64     `json:"skipped"`
}

// LoadTableSet reads the persisted warehouse into a table set with rows in
// key order and a key state rebuilt from the natural keys. All tables are
// read from one transaction snapshot.
func (db *DB) LoadTableSet(ctx context.Context) (*models.TableSet, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ts := &models.TableSet{Keys: models.NewKeyState()}

	steps := []struct {
		table string
		read  func(context.Context, querier, *models.TableSet) error
	}{
		{models.DimMovie.Table(), readMovies},
		{models.DimDate.Table(), readDates},
		{models.DimGenre.Table(), readGenres},
		{models.DimDirector.Table(), readDirectors},
		{models.DimLanguage.Table(), readLanguages},
		{models.DimCountry.Table(), readCountries},
		{models.DimCompany.Table(), readCompanies},
		{models.TableFact, readFacts},
		{models.TableBridge, readBridge},
	}
	for _, step := range steps {
		start := time.Now()
		err := step.read(ctx, tx, ts)
		metrics.RecordDBQuery("select", step.table, time.Since(start), err)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", step.table, err)
		}
	}

	if err := seedKeys(ts); err != nil {
		return nil, err
	}
	return ts, nil
}

// seedKeys rebuilds the key state from dimension rows.
func seedKeys(ts *models.TableSet) error {
	seed := func(d models.Dimension, n int, row func(int) (string, int64)) error {
		counter := ts.Keys.Counter(d)
		for i := 0; i < n; i++ {
			nk, key := row(i)
			if err := counter.Seed(nk, key); err != nil {
				return fmt.Errorf("corrupt %s: %w", d.Table(), err)
			}
		}
		return nil
	}

	seeds := []struct {
		dim models.Dimension
		n   int
		row func(int) (string, int64)
	}{
		{models.DimMovie, len(ts.Movies), func(i int) (string, int64) { return ts.Movies[i].NaturalKey, ts.Movies[i].Key }},
		{models.DimDate, len(ts.Dates), func(i int) (string, int64) { return ts.Dates[i].NaturalKey, ts.Dates[i].Key }},
		{models.DimGenre, len(ts.Genres), func(i int) (string, int64) { return ts.Genres[i].NaturalKey, ts.Genres[i].Key }},
		{models.DimDirector, len(ts.Directors), func(i int) (string, int64) { return ts.Directors[i].NaturalKey, ts.Directors[i].Key }},
		{models.DimLanguage, len(ts.Languages), func(i int) (string, int64) { return ts.Languages[i].NaturalKey, ts.Languages[i].Key }},
		{models.DimCountry, len(ts.Countries), func(i int) (string, int64) { return ts.Countries[i].NaturalKey, ts.Countries[i].Key }},
		{models.DimCompany, len(ts.Companies), func(i int) (string, int64) { return ts.Companies[i].NaturalKey, ts.Companies[i].Key }},
	}
	for _, s := range seeds {
		if err := seed(s.dim, s.n, s.row); err != nil {
			return err
		}
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// scanAll runs query and calls scan for each row.
func scanAll(ctx context.Context, q querier, query string, scan func(*sql.Rows) error) error {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer closeQuietly(rows)

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func readMovies(ctx context.Context, q querier, ts *models.TableSet) error {
	return scanAll(ctx, q, `SELECT movie_key, natural_key, source_id, title, original_title, overview,
		tagline, status, homepage, runtime, original_language FROM dim_movie ORDER BY movie_key`,
		func(rows *sql.Rows) error {
			var (
				r                                   models.MovieDim
				title, origTitle, overview, tagline sql.NullString
				status, homepage, language          sql.NullString
				runtime                             sql.NullInt64
			)
			if err := rows.Scan(&r.Key, &r.NaturalKey, &r.SourceID, &title, &origTitle, &overview,
				&tagline, &status, &homepage, &runtime, &language); err != nil {
				return err
			}
			r.Title, r.OriginalTitle, r.Overview, r.Tagline = title.String, origTitle.String, overview.String, tagline.String
			r.Status, r.Homepage, r.OriginalLanguage = status.String, homepage.String, language.String
			r.Runtime = int(runtime.Int64)
			ts.Movies = append(ts.Movies, r)
			return nil
		})
}

func readDates(ctx context.Context, q querier, ts *models.TableSet) error {
	return scanAll(ctx, q, `SELECT date_key, natural_key, CAST(full_date AS VARCHAR), year, quarter, month,
		month_name, day, day_of_week, day_name, iso_week, is_weekend FROM dim_date ORDER BY date_key`,
		func(rows *sql.Rows) error {
			var (
				r                                          models.DateDim
				full, monthName, dayName                   sql.NullString
				year, quarter, month, day, dayOfWeek, week sql.NullInt64
				weekend                                    sql.NullBool
			)
			if err := rows.Scan(&r.Key, &r.NaturalKey, &full, &year, &quarter, &month,
				&monthName, &day, &dayOfWeek, &dayName, &week, &weekend); err != nil {
				return err
			}
			if full.Valid {
				d, err := time.Parse("2006-01-02", full.String)
				if err != nil {
					return fmt.Errorf("date_key %d: %w", r.Key, err)
				}
				r.Date = &d
			}
			r.Year, r.Quarter, r.Month, r.Day = int(year.Int64), int(quarter.Int64), int(month.Int64), int(day.Int64)
			r.DayOfWeek, r.Week = int(dayOfWeek.Int64), int(week.Int64)
			r.MonthName, r.DayName, r.IsWeekend = monthName.String, dayName.String, weekend.Bool
			ts.Dates = append(ts.Dates, r)
			return nil
		})
}

func readGenres(ctx context.Context, q querier, ts *models.TableSet) error {
	return scanAll(ctx, q, "SELECT genre_key, natural_key, name FROM dim_genre ORDER BY genre_key",
		func(rows *sql.Rows) error {
			var r models.GenreDim
			var name sql.NullString
			if err := rows.Scan(&r.Key, &r.NaturalKey, &name); err != nil {
				return err
			}
			r.Name = name.String
			ts.Genres = append(ts.Genres, r)
			return nil
		})
}

func readDirectors(ctx context.Context, q querier, ts *models.TableSet) error {
	return scanAll(ctx, q, "SELECT director_key, natural_key, name FROM dim_director ORDER BY director_key",
		func(rows *sql.Rows) error {
			var r models.DirectorDim
			var name sql.NullString
			if err := rows.Scan(&r.Key, &r.NaturalKey, &name); err != nil {
				return err
			}
			r.Name = name.String
			ts.Directors = append(ts.Directors, r)
			return nil
		})
}

func readLanguages(ctx context.Context, q querier, ts *models.TableSet) error {
	return scanAll(ctx, q, "SELECT language_key, natural_key, iso_639_1, name FROM dim_language ORDER BY language_key",
		func(rows *sql.Rows) error {
			var r models.LanguageDim
			var code, name sql.NullString
			if err := rows.Scan(&r.Key, &r.NaturalKey, &code, &name); err != nil {
				return err
			}
			r.Code, r.Name = code.String, name.String
			ts.Languages = append(ts.Languages, r)
			return nil
		})
}

func readCountries(ctx context.Context, q querier, ts *models.TableSet) error {
	return scanAll(ctx, q, "SELECT country_key, natural_key, iso_3166_1, name FROM dim_country ORDER BY country_key",
		func(rows *sql.Rows) error {
			var r models.CountryDim
			var code, name sql.NullString
			if err := rows.Scan(&r.Key, &r.NaturalKey, &code, &name); err != nil {
				return err
			}
			r.Code, r.Name = code.String, name.String
			ts.Countries = append(ts.Countries, r)
			return nil
		})
}

func readCompanies(ctx context.Context, q querier, ts *models.TableSet) error {
	return scanAll(ctx, q, "SELECT company_key, natural_key, name, origin_country FROM dim_production_company ORDER BY company_key",
		func(rows *sql.Rows) error {
			var r models.CompanyDim
			var name, origin sql.NullString
			if err := rows.Scan(&r.Key, &r.NaturalKey, &name, &origin); err != nil {
				return err
			}
			r.Name, r.OriginCountry = name.String, origin.String
			ts.Companies = append(ts.Companies, r)
			return nil
		})
}

func readFacts(ctx context.Context, q querier, ts *models.TableSet) error {
	return scanAll(ctx, q, `SELECT movie_key, date_key, director_key, language_key, country_key, company_key,
		popularity, vote_average, vote_count, budget, revenue, runtime FROM fact_movie_release ORDER BY movie_key`,
		func(rows *sql.Rows) error {
			var (
				f                          models.FactMovieRelease
				popularity, voteAverage    sql.NullFloat64
				voteCount, budget, revenue sql.NullInt64
				runtime                    sql.NullInt64
			)
			if err := rows.Scan(&f.MovieKey, &f.DateKey, &f.DirectorKey, &f.LanguageKey, &f.CountryKey, &f.CompanyKey,
				&popularity, &voteAverage, &voteCount, &budget, &revenue, &runtime); err != nil {
				return err
			}
			f.Popularity, f.VoteAverage = popularity.Float64, voteAverage.Float64
			f.VoteCount, f.Budget, f.Revenue = voteCount.Int64, budget.Int64, revenue.Int64
			f.Runtime = int(runtime.Int64)
			ts.Facts = append(ts.Facts, f)
			return nil
		})
}

func readBridge(ctx context.Context, q querier, ts *models.TableSet) error {
	return scanAll(ctx, q, "SELECT movie_key, genre_key FROM bridge_movie_genre ORDER BY movie_key, genre_key",
		func(rows *sql.Rows) error {
			var br models.BridgeMovieGenre
			if err := rows.Scan(&br.MovieKey, &br.GenreKey); err != nil {
				return err
			}
			ts.Bridge = append(ts.Bridge, br)
			return nil
		})
}

// TableCounts returns the row count of every warehouse table.
func (db *DB) TableCounts(ctx context.Context) (map[string]int64, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	counts := make(map[string]int64, len(Tables()))
	for _, table := range Tables() {
		var n int64
		if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// LastLoad returns the most recent committed load, or nil when the
// warehouse has never been loaded.
func (db *DB) LastLoad(ctx context.Context) (*LoadInfo, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var info LoadInfo
	err := db.conn.QueryRowContext(ctx, `SELECT run_id, loaded_at, movies, facts, bridge_rows, skipped
		FROM warehouse_loads ORDER BY loaded_at DESC LIMIT 1`).
		Scan(&info.RunID, &info.LoadedAt, &info.Movies, &info.Facts, &info.BridgeRows, &info.Skipped)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read load history: %w", err)
	}
	return &info, nil
}
