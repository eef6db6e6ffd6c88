// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package warehouse

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/models"
)

// Option configures a Builder.
type Option func(*Builder)

// WithParallel builds the independent dimensions concurrently.
func WithParallel(parallel bool) Option {
	return func(b *Builder) {
		b.parallel = parallel
	}
}

// WithLogger overrides the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// Builder produces star-schema table sets. A Builder holds no state between
// builds and is safe for concurrent use.
type Builder struct {
	parallel bool
	logger   zerolog.Logger
}

// NewBuilder returns a sequential builder unless WithParallel is given.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{logger: logging.WithComponent("warehouse")}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// dimensions groups the registries of one build.
type dimensions struct {
	movies    *registry[models.MovieDim]
	dates     *registry[models.DateDim]
	genres    *registry[models.GenreDim]
	directors *registry[models.DirectorDim]
	languages *registry[models.LanguageDim]
	countries *registry[models.CountryDim]
	companies *registry[models.CompanyDim]
}

func newDimensions() *dimensions {
	return &dimensions{
		movies: newRegistry(models.DimMovie,
			func(r *models.MovieDim) int64 { return r.Key },
			func(r *models.MovieDim) string { return r.NaturalKey }),
		dates: newRegistry(models.DimDate,
			func(r *models.DateDim) int64 { return r.Key },
			func(r *models.DateDim) string { return r.NaturalKey }),
		genres: newRegistry(models.DimGenre,
			func(r *models.GenreDim) int64 { return r.Key },
			func(r *models.GenreDim) string { return r.NaturalKey }),
		directors: newRegistry(models.DimDirector,
			func(r *models.DirectorDim) int64 { return r.Key },
			func(r *models.DirectorDim) string { return r.NaturalKey }),
		languages: newRegistry(models.DimLanguage,
			func(r *models.LanguageDim) int64 { return r.Key },
			func(r *models.LanguageDim) string { return r.NaturalKey }),
		countries: newRegistry(models.DimCountry,
			func(r *models.CountryDim) int64 { return r.Key },
			func(r *models.CountryDim) string { return r.NaturalKey }),
		companies: newRegistry(models.DimCompany,
			func(r *models.CompanyDim) int64 { return r.Key },
			func(r *models.CompanyDim) string { return r.NaturalKey }),
	}
}

// Build merges records into prior and returns the resulting snapshot. A nil
// prior builds from scratch. prior is not modified.
//
// Records are expected to be cleaned; a record without a positive source id
// yields no movie row and its fact is reported as unresolved.
func (b *Builder) Build(records []models.CleanedMovie, prior *models.TableSet) (*models.TableSet, *models.BuildReport, error) {
	start := time.Now()
	if prior == nil {
		prior = &models.TableSet{}
	}

	d := newDimensions()
	steps := []func() error{
		func() error { return d.buildMovies(records, prior) },
		func() error { return d.buildDates(records, prior) },
		func() error { return d.buildGenres(records, prior) },
		func() error { return d.buildDirectors(records, prior) },
		func() error { return d.buildLanguages(records, prior) },
		func() error { return d.buildCountries(records, prior) },
		func() error { return d.buildCompanies(records, prior) },
	}

	if b.parallel {
		var g errgroup.Group
		for _, step := range steps {
			g.Go(step)
		}
		if err := g.Wait(); err != nil {
			return nil, nil, err
		}
	} else {
		for _, step := range steps {
			if err := step(); err != nil {
				return nil, nil, err
			}
		}
	}

	report := models.NewBuildReport()
	report.Dimensions[models.DimMovie] = d.movies.counts()
	report.Dimensions[models.DimDate] = d.dates.counts()
	report.Dimensions[models.DimGenre] = d.genres.counts()
	report.Dimensions[models.DimDirector] = d.directors.counts()
	report.Dimensions[models.DimLanguage] = d.languages.counts()
	report.Dimensions[models.DimCountry] = d.countries.counts()
	report.Dimensions[models.DimCompany] = d.companies.counts()

	ts := &models.TableSet{
		Movies:    d.movies.sorted(),
		Dates:     d.dates.sorted(),
		Genres:    d.genres.sorted(),
		Directors: d.directors.sorted(),
		Languages: d.languages.sorted(),
		Countries: d.countries.sorted(),
		Companies: d.companies.sorted(),
		Keys: models.KeyState{
			models.DimMovie:    d.movies.counter,
			models.DimDate:     d.dates.counter,
			models.DimGenre:    d.genres.counter,
			models.DimDirector: d.directors.counter,
			models.DimLanguage: d.languages.counter,
			models.DimCountry:  d.countries.counter,
			models.DimCompany:  d.companies.counter,
		},
	}
	d.assemble(ts, records, prior, report)

	b.logger.Debug().
		Int("records", len(records)).
		Int("facts", report.Facts).
		Int("carried_facts", report.CarriedFacts).
		Int("bridge_rows", report.BridgeRows).
		Int("unresolved", report.Unresolved).
		Bool("parallel", b.parallel).
		Dur("elapsed", time.Since(start)).
		Msg("Star schema built")

	return ts, report, nil
}

func (d *dimensions) buildMovies(records []models.CleanedMovie, prior *models.TableSet) error {
	r := d.movies
	if err := r.seedFrom(prior.Movies, prior.Keys); err != nil {
		return err
	}
	for i := range records {
		m := &records[i]
		if m.SourceID <= 0 {
			continue
		}
		row := models.MovieDim{
			NaturalKey:       MovieKey(m.SourceID),
			SourceID:         m.SourceID,
			Title:            m.Title,
			OriginalTitle:    m.OriginalTitle,
			Overview:         m.Overview,
			Tagline:          m.Tagline,
			Status:           m.Status,
			Homepage:         m.Homepage,
			Runtime:          m.Runtime,
			OriginalLanguage: LanguageKey(m.OriginalLanguage),
		}
		r.resolve(row.NaturalKey,
			func(key int64) models.MovieDim {
				row.Key = key
				return row
			},
			func(existing *models.MovieDim) {
				row.Key = existing.Key
				*existing = row
			})
	}
	return nil
}

// buildDates mints the batch's new dates in calendar order once the scan is
// done. The sentinel, when first needed, follows them.
func (d *dimensions) buildDates(records []models.CleanedMovie, prior *models.TableSet) error {
	r := d.dates
	if err := r.seedFrom(prior.Dates, prior.Keys); err != nil {
		return err
	}

	var fresh []time.Time
	pending := make(map[string]struct{})
	needUnknown := false
	for i := range records {
		rd := records[i].ReleaseDate
		if rd == nil {
			needUnknown = true
			continue
		}
		nk := DateKey(rd)
		if r.has(nk) {
			r.resolve(nk, nil, nil)
			continue
		}
		if _, ok := pending[nk]; !ok {
			pending[nk] = struct{}{}
			fresh = append(fresh, *rd)
		}
	}

	slices.SortFunc(fresh, func(a, b time.Time) int { return a.Compare(b) })
	for _, t := range fresh {
		row := DeriveDate(t)
		r.resolve(row.NaturalKey, func(key int64) models.DateDim {
			row.Key = key
			return row
		}, nil)
	}
	if needUnknown {
		r.resolve(models.UnknownKey, unknownDate, nil)
	}
	return nil
}

func (d *dimensions) buildGenres(records []models.CleanedMovie, prior *models.TableSet) error {
	r := d.genres
	if err := r.seedFrom(prior.Genres, prior.Keys); err != nil {
		return err
	}
	for i := range records {
		for _, name := range records[i].Genres {
			nk := NormalizeName(name)
			if nk == "" {
				continue
			}
			display := displayName(name)
			r.resolve(nk,
				func(key int64) models.GenreDim {
					return models.GenreDim{Key: key, NaturalKey: nk, Name: display}
				},
				func(existing *models.GenreDim) { fillEmpty(&existing.Name, display) })
		}
	}
	return nil
}

func (d *dimensions) buildDirectors(records []models.CleanedMovie, prior *models.TableSet) error {
	r := d.directors
	if err := r.seedFrom(prior.Directors, prior.Keys); err != nil {
		return err
	}
	for i := range records {
		nk := directorKey(&records[i])
		display := displayName(records[i].Director)
		if nk == models.UnknownKey {
			display = models.UnknownLabel
		}
		r.resolve(nk,
			func(key int64) models.DirectorDim {
				return models.DirectorDim{Key: key, NaturalKey: nk, Name: display}
			},
			func(existing *models.DirectorDim) { fillEmpty(&existing.Name, display) })
	}
	return nil
}

// buildLanguages registers the original language first, then every spoken
// language. Names come from the spoken language list.
func (d *dimensions) buildLanguages(records []models.CleanedMovie, prior *models.TableSet) error {
	r := d.languages
	if err := r.seedFrom(prior.Languages, prior.Keys); err != nil {
		return err
	}
	register := func(nk, name string) {
		code := nk
		if nk == models.UnknownKey {
			code, name = "", models.UnknownLabel
		}
		r.resolve(nk,
			func(key int64) models.LanguageDim {
				return models.LanguageDim{Key: key, NaturalKey: nk, Code: code, Name: name}
			},
			func(existing *models.LanguageDim) { fillEmpty(&existing.Name, name) })
	}

	for i := range records {
		m := &records[i]
		primary := languageKey(m)
		register(primary, m.LanguageName(primary))
		for _, l := range m.SpokenLanguages {
			if nk := LanguageKey(l.Code); nk != "" {
				register(nk, strings.TrimSpace(l.Name))
			}
		}
	}
	return nil
}

func (d *dimensions) buildCountries(records []models.CleanedMovie, prior *models.TableSet) error {
	r := d.countries
	if err := r.seedFrom(prior.Countries, prior.Keys); err != nil {
		return err
	}
	register := func(nk, name string) {
		code := nk
		if nk == models.UnknownKey {
			code, name = "", models.UnknownLabel
		}
		r.resolve(nk,
			func(key int64) models.CountryDim {
				return models.CountryDim{Key: key, NaturalKey: nk, Code: code, Name: name}
			},
			func(existing *models.CountryDim) { fillEmpty(&existing.Name, name) })
	}

	for i := range records {
		m := &records[i]
		if countryKey(m) == models.UnknownKey {
			register(models.UnknownKey, "")
			continue
		}
		for _, c := range m.Countries {
			if nk := CountryKey(c.Code); nk != "" {
				register(nk, strings.TrimSpace(c.Name))
			}
		}
	}
	return nil
}

func (d *dimensions) buildCompanies(records []models.CleanedMovie, prior *models.TableSet) error {
	r := d.companies
	if err := r.seedFrom(prior.Companies, prior.Keys); err != nil {
		return err
	}
	for i := range records {
		m := &records[i]
		if companyKey(m) == models.UnknownKey {
			r.resolve(models.UnknownKey, func(key int64) models.CompanyDim {
				return models.CompanyDim{Key: key, NaturalKey: models.UnknownKey, Name: models.UnknownLabel}
			}, nil)
			continue
		}
		for _, c := range m.Companies {
			nk := NormalizeName(c.Name)
			if nk == "" {
				continue
			}
			display, origin := displayName(c.Name), CountryKey(c.OriginCountry)
			r.resolve(nk,
				func(key int64) models.CompanyDim {
					return models.CompanyDim{Key: key, NaturalKey: nk, Name: display, OriginCountry: origin}
				},
				func(existing *models.CompanyDim) {
					fillEmpty(&existing.Name, display)
					fillEmpty(&existing.OriginCountry, origin)
				})
		}
	}
	return nil
}

// lookup resolves a natural key in a final registry.
func (d *dimensions) lookup(dim models.Dimension, nk string) (int64, bool) {
	switch dim {
	case models.DimMovie:
		return d.movies.lookup(nk)
	case models.DimDate:
		return d.dates.lookup(nk)
	case models.DimGenre:
		return d.genres.lookup(nk)
	case models.DimDirector:
		return d.directors.lookup(nk)
	case models.DimLanguage:
		return d.languages.lookup(nk)
	case models.DimCountry:
		return d.countries.lookup(nk)
	case models.DimCompany:
		return d.companies.lookup(nk)
	}
	return 0, false
}

// assemble builds facts and bridge rows once every registry is final, then
// carries forward the rows of prior movies the batch does not touch. When a
// source id repeats, its last record wins.
func (d *dimensions) assemble(ts *models.TableSet, records []models.CleanedMovie, prior *models.TableSet, report *models.BuildReport) {
	latest := make(map[int64]int, len(records))
	order := make([]int64, 0, len(records))
	for i := range records {
		id := records[i].SourceID
		if _, ok := latest[id]; !ok {
			order = append(order, id)
		}
		latest[id] = i
	}

	touched := make(map[int64]struct{}, len(order))
	for _, id := range order {
		m := &records[latest[id]]
		sourceID := MovieKey(m.SourceID)

		movieKey, ok := d.lookup(models.DimMovie, sourceID)
		if !ok {
			report.RecordUnresolved(models.Issue{
				Stream:   models.TableFact,
				SourceID: sourceID,
				Field:    string(models.DimMovie),
				Detail:   "movie has no surrogate key",
			})
			continue
		}
		touched[movieKey] = struct{}{}

		if fact, ok := d.fact(m, movieKey, report); ok {
			ts.Facts = append(ts.Facts, fact)
			report.Facts++
		}
		report.BridgeRows += d.bridge(ts, m, movieKey, report)
	}

	for _, f := range prior.Facts {
		if _, ok := touched[f.MovieKey]; !ok {
			ts.Facts = append(ts.Facts, f)
			report.CarriedFacts++
		}
	}
	for _, br := range prior.Bridge {
		if _, ok := touched[br.MovieKey]; !ok {
			ts.Bridge = append(ts.Bridge, br)
			report.CarriedBridgeRows++
		}
	}

	slices.SortFunc(ts.Facts, func(a, b models.FactMovieRelease) int {
		return cmp.Compare(a.MovieKey, b.MovieKey)
	})
	slices.SortFunc(ts.Bridge, func(a, b models.BridgeMovieGenre) int {
		if c := cmp.Compare(a.MovieKey, b.MovieKey); c != 0 {
			return c
		}
		return cmp.Compare(a.GenreKey, b.GenreKey)
	})
}

func (d *dimensions) fact(m *models.CleanedMovie, movieKey int64, report *models.BuildReport) (models.FactMovieRelease, bool) {
	f := models.FactMovieRelease{
		MovieKey:    movieKey,
		Popularity:  m.Popularity,
		VoteAverage: m.VoteAverage,
		VoteCount:   m.VoteCount,
		Budget:      m.Budget,
		Revenue:     m.Revenue,
		Runtime:     m.Runtime,
	}
	refs := []struct {
		dim models.Dimension
		nk  string
		dst *int64
	}{
		{models.DimDate, DateKey(m.ReleaseDate), &f.DateKey},
		{models.DimDirector, directorKey(m), &f.DirectorKey},
		{models.DimLanguage, languageKey(m), &f.LanguageKey},
		{models.DimCountry, countryKey(m), &f.CountryKey},
		{models.DimCompany, companyKey(m), &f.CompanyKey},
	}
	for _, ref := range refs {
		key, ok := d.lookup(ref.dim, ref.nk)
		if !ok {
			report.RecordUnresolved(models.Issue{
				Stream:   models.TableFact,
				SourceID: MovieKey(m.SourceID),
				Field:    string(ref.dim),
				Detail:   fmt.Sprintf("no %s key for %q", ref.dim, ref.nk),
			})
			return f, false
		}
		*ref.dst = key
	}
	return f, true
}

// bridge appends one row per distinct genre of m and returns the number
// appended.
func (d *dimensions) bridge(ts *models.TableSet, m *models.CleanedMovie, movieKey int64, report *models.BuildReport) int {
	seen := make(map[int64]struct{}, len(m.Genres))
	for _, name := range m.Genres {
		nk := NormalizeName(name)
		if nk == "" {
			continue
		}
		genreKey, ok := d.lookup(models.DimGenre, nk)
		if !ok {
			report.RecordUnresolved(models.Issue{
				Stream:   models.TableBridge,
				SourceID: MovieKey(m.SourceID),
				Field:    string(models.DimGenre),
				Detail:   fmt.Sprintf("no genre key for %q", nk),
			})
			continue
		}
		if _, dup := seen[genreKey]; dup {
			continue
		}
		seen[genreKey] = struct{}{}
		ts.Bridge = append(ts.Bridge, models.BridgeMovieGenre{MovieKey: movieKey, GenreKey: genreKey})
	}
	return len(seen)
}

func directorKey(m *models.CleanedMovie) string {
	return orUnknown(NormalizeName(m.Director))
}

func languageKey(m *models.CleanedMovie) string {
	return orUnknown(LanguageKey(m.OriginalLanguage))
}

// countryKey returns the primary country: the first listed with a code.
func countryKey(m *models.CleanedMovie) string {
	for _, c := range m.Countries {
		if nk := CountryKey(c.Code); nk != "" {
			return nk
		}
	}
	return models.UnknownKey
}

// companyKey returns the primary company: the first listed with a name.
func companyKey(m *models.CleanedMovie) string {
	for _, c := range m.Companies {
		if nk := NormalizeName(c.Name); nk != "" {
			return nk
		}
	}
	return models.UnknownKey
}

// displayName trims name and collapses internal whitespace.
func displayName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
