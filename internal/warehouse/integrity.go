// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package warehouse

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/tomtom215/marquee/internal/models"
)

// ErrIntegrity matches every violation reported by CheckIntegrity.
var ErrIntegrity = errors.New("integrity violation")

// maxViolations bounds the violations collected per check.
const maxViolations = 50

type violations struct {
	err   error
	count int
}

func (v *violations) add(format string, args ...any) {
	v.count++
	if v.count > maxViolations {
		return
	}
	v.err = multierr.Append(v.err, fmt.Errorf("%w: "+format, append([]any{ErrIntegrity}, args...)...))
}

func (v *violations) result() error {
	if v.count > maxViolations {
		v.err = multierr.Append(v.err, fmt.Errorf("%w: %d more violations", ErrIntegrity, v.count-maxViolations))
	}
	return v.err
}

// CheckIntegrity verifies a table set before it is loaded: every dimension
// is a bijection between natural and surrogate keys with keys 1..n, the key
// state agrees with the rows, every fact and bridge reference resolves, and
// there is one fact per movie and no duplicate bridge pair.
func CheckIntegrity(ts *models.TableSet) error {
	if ts == nil {
		return fmt.Errorf("%w: nil table set", ErrIntegrity)
	}
	v := &violations{}

	movies := checkDimension(v, ts.Keys, models.DimMovie, ts.Movies, func(r models.MovieDim) (int64, string) { return r.Key, r.NaturalKey })
	dates := checkDimension(v, ts.Keys, models.DimDate, ts.Dates, func(r models.DateDim) (int64, string) { return r.Key, r.NaturalKey })
	genres := checkDimension(v, ts.Keys, models.DimGenre, ts.Genres, func(r models.GenreDim) (int64, string) { return r.Key, r.NaturalKey })
	directors := checkDimension(v, ts.Keys, models.DimDirector, ts.Directors, func(r models.DirectorDim) (int64, string) { return r.Key, r.NaturalKey })
	languages := checkDimension(v, ts.Keys, models.DimLanguage, ts.Languages, func(r models.LanguageDim) (int64, string) { return r.Key, r.NaturalKey })
	countries := checkDimension(v, ts.Keys, models.DimCountry, ts.Countries, func(r models.CountryDim) (int64, string) { return r.Key, r.NaturalKey })
	companies := checkDimension(v, ts.Keys, models.DimCompany, ts.Companies, func(r models.CompanyDim) (int64, string) { return r.Key, r.NaturalKey })

	factMovies := make(map[int64]struct{}, len(ts.Facts))
	for _, f := range ts.Facts {
		if _, dup := factMovies[f.MovieKey]; dup {
			v.add("%s has more than one row for movie_key %d", models.TableFact, f.MovieKey)
		}
		factMovies[f.MovieKey] = struct{}{}

		refs := []struct {
			dim  models.Dimension
			key  int64
			keys map[int64]struct{}
		}{
			{models.DimMovie, f.MovieKey, movies},
			{models.DimDate, f.DateKey, dates},
			{models.DimDirector, f.DirectorKey, directors},
			{models.DimLanguage, f.LanguageKey, languages},
			{models.DimCountry, f.CountryKey, countries},
			{models.DimCompany, f.CompanyKey, companies},
		}
		for _, ref := range refs {
			if _, ok := ref.keys[ref.key]; !ok {
				v.add("%s movie_key %d references missing %s key %d", models.TableFact, f.MovieKey, ref.dim, ref.key)
			}
		}
	}

	pairs := make(map[models.BridgeMovieGenre]struct{}, len(ts.Bridge))
	for _, br := range ts.Bridge {
		if _, dup := pairs[br]; dup {
			v.add("%s has duplicate pair (%d, %d)", models.TableBridge, br.MovieKey, br.GenreKey)
		}
		pairs[br] = struct{}{}
		if _, ok := movies[br.MovieKey]; !ok {
			v.add("%s references missing movie key %d", models.TableBridge, br.MovieKey)
		}
		if _, ok := genres[br.GenreKey]; !ok {
			v.add("%s references missing genre key %d", models.TableBridge, br.GenreKey)
		}
	}

	return v.result()
}

// checkDimension validates one dimension and returns its key set.
func checkDimension[R any](v *violations, state models.KeyState, dim models.Dimension, rows []R, keys func(R) (int64, string)) map[int64]struct{} {
	table := dim.Table()
	byKey := make(map[int64]struct{}, len(rows))
	byNatural := make(map[string]int64, len(rows))
	n := int64(len(rows))

	for _, row := range rows {
		key, nk := keys(row)
		if nk == "" {
			v.add("%s key %d has an empty natural key", table, key)
		}
		if key < 1 || key > n {
			v.add("%s key %d outside 1..%d", table, key, n)
		}
		if _, dup := byKey[key]; dup {
			v.add("%s key %d used more than once", table, key)
		}
		if other, dup := byNatural[nk]; dup {
			v.add("%s natural key %q maps to %d and %d", table, nk, other, key)
		}
		byKey[key] = struct{}{}
		byNatural[nk] = key
	}

	counter := state[dim]
	if counter == nil {
		return byKey
	}
	if counter.Len() != len(rows) {
		v.add("%s key state has %d keys for %d rows", table, counter.Len(), len(rows))
	}
	if counter.Next != n+1 {
		v.add("%s key state next is %d, want %d", table, counter.Next, n+1)
	}
	for nk, key := range byNatural {
		if got, ok := counter.Lookup(nk); !ok || got != key {
			v.add("%s key state disagrees for %q", table, nk)
		}
	}
	return byKey
}
