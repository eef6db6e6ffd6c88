// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package ingest

import (
	"strconv"

	"github.com/tomtom215/marquee/internal/models"
)

// CleanResult is the output of Clean.
type CleanResult struct {
	Movies []models.CleanedMovie
	Report *models.IngestReport
}

// creditInfo is what a credits row contributes to its movie.
type creditInfo struct {
	director string
	matched  bool
}

// Clean validates and normalizes one batch of raw records. Output order is
// the order of accepted movies in the input.
func Clean(movies []models.RawMovieRecord, credits []models.RawCreditRecord) *CleanResult {
	report := models.NewIngestReport()
	report.MoviesRead = len(movies)
	report.CreditsRead = len(credits)

	byMovie := indexCredits(credits, report)

	out := make([]models.CleanedMovie, 0, len(movies))
	seen := make(map[int64]struct{}, len(movies))
	for i := range movies {
		raw := &movies[i]
		id, ok := parseIdentity(raw.ID)
		if !ok {
			report.Record(models.Issue{
				Kind:     models.IssueMissingIdentity,
				Stream:   models.StreamMovies,
				Row:      raw.Row,
				SourceID: raw.ID,
				Field:    "id",
				Detail:   "movie id missing or not a positive integer",
			})
			continue
		}
		if _, dup := seen[id]; dup {
			report.Record(models.Issue{
				Kind:     models.IssueDuplicateIdentity,
				Stream:   models.StreamMovies,
				Row:      raw.Row,
				SourceID: strconv.FormatInt(id, 10),
				Field:    "id",
				Detail:   "movie id already seen in this batch",
			})
			continue
		}
		seen[id] = struct{}{}

		m := cleanMovie(raw, id, report)
		if info, ok := byMovie[id]; ok {
			m.Director = info.director
			info.matched = true
		}
		out = append(out, m)
	}

	for _, info := range byMovie {
		if !info.matched {
			report.OrphanCredits++
		}
	}
	report.Cleaned = len(out)

	return &CleanResult{Movies: out, Report: report}
}

// indexCredits validates the credits stream and extracts one director per
// movie id. The first row for an id wins.
func indexCredits(credits []models.RawCreditRecord, report *models.IngestReport) map[int64]*creditInfo {
	byMovie := make(map[int64]*creditInfo, len(credits))
	for i := range credits {
		raw := &credits[i]
		id, ok := parseIdentity(raw.MovieID)
		if !ok {
			report.Record(models.Issue{
				Kind:     models.IssueMissingIdentity,
				Stream:   models.StreamCredits,
				Row:      raw.Row,
				SourceID: raw.MovieID,
				Field:    "movie_id",
				Detail:   "credit movie_id missing or not a positive integer",
			})
			continue
		}
		if _, dup := byMovie[id]; dup {
			report.Record(models.Issue{
				Kind:     models.IssueDuplicateIdentity,
				Stream:   models.StreamCredits,
				Row:      raw.Row,
				SourceID: strconv.FormatInt(id, 10),
				Field:    "movie_id",
				Detail:   "credits for this movie already seen in this batch",
			})
			continue
		}

		info := &creditInfo{}
		crew, err := parseNested(raw.Crew)
		if err != nil {
			report.Record(malformed(models.StreamCredits, raw.Row, id, "crew", err.Error()))
		} else {
			info.director = firstDirector(crew)
		}
		byMovie[id] = info
	}
	return byMovie
}

// cleanMovie normalizes a movie whose identity is already validated.
func cleanMovie(raw *models.RawMovieRecord, id int64, report *models.IngestReport) models.CleanedMovie {
	m := models.CleanedMovie{
		SourceID:         id,
		Title:            cleanText(raw.Title),
		OriginalTitle:    cleanText(raw.OriginalTitle),
		Overview:         cleanText(raw.Overview),
		Tagline:          cleanText(raw.Tagline),
		Status:           cleanText(raw.Status),
		Homepage:         cleanText(raw.Homepage),
		OriginalLanguage: languageCode(raw.OriginalLanguage),
	}

	fail := func(field, value string) {
		report.Record(malformed(models.StreamMovies, raw.Row, id, field, "unparseable value "+strconv.Quote(value)))
	}

	var ok bool
	if m.Budget, ok = parseInt(raw.Budget); !ok {
		fail("budget", raw.Budget)
	}
	if m.Revenue, ok = parseInt(raw.Revenue); !ok {
		fail("revenue", raw.Revenue)
	}
	if m.VoteCount, ok = parseInt(raw.VoteCount); !ok {
		fail("vote_count", raw.VoteCount)
	}
	if m.Popularity, ok = parseFloat(raw.Popularity); !ok {
		fail("popularity", raw.Popularity)
	}
	if m.VoteAverage, ok = parseFloat(raw.VoteAverage); !ok {
		fail("vote_average", raw.VoteAverage)
	}
	runtime, ok := parseInt(raw.Runtime)
	if !ok {
		fail("runtime", raw.Runtime)
	}
	m.Runtime = int(runtime)
	if m.ReleaseDate, ok = parseDate(raw.ReleaseDate); !ok {
		fail("release_date", raw.ReleaseDate)
	}

	nested := func(field, text string) []nestedEntry {
		entries, err := parseNested(text)
		if err != nil {
			report.Record(malformed(models.StreamMovies, raw.Row, id, field, err.Error()))
			return nil
		}
		return entries
	}

	m.Genres = names(nested("genres", raw.Genres))

	for _, e := range nested("production_companies", raw.ProductionCompanies) {
		if name := cleanText(e.Name); name != "" {
			m.Companies = append(m.Companies, models.Company{Name: name, OriginCountry: countryCode(e.OriginCountry)})
		}
	}

	for _, e := range nested("production_countries", raw.ProductionCountries) {
		code := countryCode(e.ISO31661)
		name := cleanText(e.Name)
		if code == "" && len(name) == 2 {
			// Plain-string lists carry the code itself.
			code, name = countryCode(name), ""
		}
		if code != "" {
			m.Countries = append(m.Countries, models.Country{Code: code, Name: name})
		}
	}

	for _, e := range nested("spoken_languages", raw.SpokenLanguages) {
		code := languageCode(e.ISO6391)
		name := cleanText(e.Name)
		if code == "" && len(name) == 2 {
			code, name = languageCode(name), ""
		}
		if code != "" {
			m.SpokenLanguages = append(m.SpokenLanguages, models.Language{Code: code, Name: name})
		}
	}

	return m
}

func malformed(stream string, row int, id int64, field, detail string) models.Issue {
	return models.Issue{
		Kind:     models.IssueMalformedRecord,
		Stream:   stream,
		Row:      row,
		SourceID: strconv.FormatInt(id, 10),
		Field:    field,
		Detail:   detail,
	}
}
