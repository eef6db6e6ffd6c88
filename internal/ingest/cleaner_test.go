// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package ingest

import (
	"reflect"
	"testing"

	"github.com/tomtom215/marquee/internal/models"
)

func rawMovie(row int, id string) models.RawMovieRecord {
	return models.RawMovieRecord{Row: row, ID: id, Title: "Movie " + id}
}

func TestClean_SpecimenMovie(t *testing.T) {
	movies := []models.RawMovieRecord{{
		Row:              1,
		ID:               "101",
		Title:            "  Heat Wave ",
		Budget:           "",
		Revenue:          "2500000",
		Popularity:       "12.5",
		VoteAverage:      "7.1",
		VoteCount:        "340",
		Runtime:          "118",
		ReleaseDate:      "2001-07-14",
		OriginalLanguage: "EN",
		Genres:           `[{"id": 28, "name": "Action"}, {"id": 18, "name": "Drama"}, {"id": 28, "name": "Action"}]`,
	}}

	res := Clean(movies, nil)
	if len(res.Movies) != 1 {
		t.Fatalf("Movies = %d, want 1", len(res.Movies))
	}
	m := res.Movies[0]

	if m.SourceID != 101 {
		t.Errorf("SourceID = %d, want 101", m.SourceID)
	}
	if m.Title != "Heat Wave" {
		t.Errorf("Title = %q, want trimmed", m.Title)
	}
	if m.Budget != 0 {
		t.Errorf("Budget = %d, want 0 for empty", m.Budget)
	}
	if m.Revenue != 2500000 || m.VoteCount != 340 || m.Runtime != 118 {
		t.Errorf("numerics = %d/%d/%d", m.Revenue, m.VoteCount, m.Runtime)
	}
	if m.OriginalLanguage != "en" {
		t.Errorf("OriginalLanguage = %q, want en", m.OriginalLanguage)
	}
	// Duplicates are kept here; the builder deduplicates bridge rows.
	if want := []string{"Action", "Drama", "Action"}; !reflect.DeepEqual(m.Genres, want) {
		t.Errorf("Genres = %v, want %v", m.Genres, want)
	}
	if m.Director != "" {
		t.Errorf("Director = %q, want empty without credits", m.Director)
	}
	if m.ReleaseDate == nil || m.ReleaseDate.Format("2006-01-02") != "2001-07-14" {
		t.Errorf("ReleaseDate = %v", m.ReleaseDate)
	}
	if res.Report.Malformed() != 0 || res.Report.Rejected() != 0 {
		t.Errorf("unexpected issues: %+v", res.Report.Issues)
	}
}

func TestClean_IdentityRejections(t *testing.T) {
	tests := []struct {
		name          string
		ids           []string
		wantIDs       []int64
		wantMissing   int
		wantDuplicate int
	}{
		{"all valid", []string{"1", "2", "3"}, []int64{1, 2, 3}, 0, 0},
		{"empty id", []string{"1", "", "3"}, []int64{1, 3}, 1, 0},
		{"non numeric", []string{"abc", "2"}, []int64{2}, 1, 0},
		{"zero and negative", []string{"0", "-4", "5"}, []int64{5}, 2, 0},
		{"float id", []string{"19995.0"}, []int64{19995}, 0, 0},
		{"fractional id", []string{"12.5"}, nil, 1, 0},
		{"exponent id", []string{"1e3", "1000"}, []int64{1000}, 1, 0},
		{"duplicate keeps first", []string{"7", "8", "7"}, []int64{7, 8}, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw []models.RawMovieRecord
			for i, id := range tt.ids {
				raw = append(raw, rawMovie(i+1, id))
			}
			res := Clean(raw, nil)

			var got []int64
			for _, m := range res.Movies {
				got = append(got, m.SourceID)
			}
			if !reflect.DeepEqual(got, tt.wantIDs) {
				t.Errorf("ids = %v, want %v", got, tt.wantIDs)
			}
			if res.Report.MissingIdentity != tt.wantMissing {
				t.Errorf("MissingIdentity = %d, want %d", res.Report.MissingIdentity, tt.wantMissing)
			}
			if res.Report.DuplicateIdentity != tt.wantDuplicate {
				t.Errorf("DuplicateIdentity = %d, want %d", res.Report.DuplicateIdentity, tt.wantDuplicate)
			}
			if res.Report.Cleaned != len(tt.wantIDs) {
				t.Errorf("Cleaned = %d, want %d", res.Report.Cleaned, len(tt.wantIDs))
			}
		})
	}
}

func TestClean_DuplicateKeepsFirstAttributes(t *testing.T) {
	first := rawMovie(1, "9")
	first.Title = "First"
	second := rawMovie(2, "9")
	second.Title = "Second"

	res := Clean([]models.RawMovieRecord{first, second}, nil)
	if len(res.Movies) != 1 || res.Movies[0].Title != "First" {
		t.Fatalf("Movies = %+v, want only the first occurrence", res.Movies)
	}
	if got := res.Report.Issues[0]; got.Kind != models.IssueDuplicateIdentity || got.Row != 2 {
		t.Errorf("issue = %+v", got)
	}
}

func TestClean_MalformedFieldsDegrade(t *testing.T) {
	raw := rawMovie(1, "42")
	raw.Budget = "lots"
	raw.Popularity = "NaN"
	raw.ReleaseDate = "sometime in May"
	raw.Genres = `[{"name": "Drama"`
	raw.ProductionCountries = `[{"iso_3166_1": "us", "name": "United States of America"}]`

	res := Clean([]models.RawMovieRecord{raw}, nil)
	if len(res.Movies) != 1 {
		t.Fatalf("malformed fields must not reject the record")
	}
	m := res.Movies[0]
	if m.Budget != 0 || m.Popularity != 0 || m.ReleaseDate != nil || len(m.Genres) != 0 {
		t.Errorf("degraded fields not reset: %+v", m)
	}
	want := map[string]int{"budget": 1, "popularity": 1, "release_date": 1, "genres": 1}
	if !reflect.DeepEqual(res.Report.MalformedFields, want) {
		t.Errorf("MalformedFields = %v, want %v", res.Report.MalformedFields, want)
	}
	if want := []models.Country{{Code: "US", Name: "United States of America"}}; !reflect.DeepEqual(m.Countries, want) {
		t.Errorf("Countries = %+v, want %+v", m.Countries, want)
	}
}

func TestClean_NestedFields(t *testing.T) {
	raw := rawMovie(1, "5")
	raw.Genres = `['Comedy', 'Romance']`
	raw.ProductionCompanies = `[{"name": "Pixar", "id": 3, "origin_country": "us"}, {"name": " "}]`
	raw.ProductionCountries = `["gb"]`
	raw.SpokenLanguages = `[{"iso_639_1": "FR", "name": "Français"}, {"iso_639_1": "", "name": "Nothing"}]`

	res := Clean([]models.RawMovieRecord{raw}, nil)
	m := res.Movies[0]

	if want := []string{"Comedy", "Romance"}; !reflect.DeepEqual(m.Genres, want) {
		t.Errorf("Genres = %v, want %v", m.Genres, want)
	}
	if want := []models.Company{{Name: "Pixar", OriginCountry: "US"}}; !reflect.DeepEqual(m.Companies, want) {
		t.Errorf("Companies = %+v, want %+v", m.Companies, want)
	}
	if want := []models.Country{{Code: "GB"}}; !reflect.DeepEqual(m.Countries, want) {
		t.Errorf("Countries = %+v, want %+v", m.Countries, want)
	}
	if want := []models.Language{{Code: "fr", Name: "Français"}}; !reflect.DeepEqual(m.SpokenLanguages, want) {
		t.Errorf("SpokenLanguages = %+v, want %+v", m.SpokenLanguages, want)
	}
	if res.Report.Malformed() != 0 {
		t.Errorf("unexpected issues: %+v", res.Report.Issues)
	}
}

func TestClean_Credits(t *testing.T) {
	movies := []models.RawMovieRecord{rawMovie(1, "1"), rawMovie(2, "2"), rawMovie(3, "3")}
	credits := []models.RawCreditRecord{
		{Row: 1, MovieID: "1", Crew: `[{"job": "Producer", "name": "P"}, {"job": "Director", "name": "Ridley Scott"}, {"job": "Director", "name": "Other"}]`},
		{Row: 2, MovieID: "1", Crew: `[{"job": "Director", "name": "Ignored"}]`},
		{Row: 3, MovieID: "2", Crew: `not a list`},
		{Row: 4, MovieID: "", Crew: `[]`},
		{Row: 5, MovieID: "99", Crew: `[{"job": "Director", "name": "Nobody"}]`},
	}

	res := Clean(movies, credits)
	directors := map[int64]string{}
	for _, m := range res.Movies {
		directors[m.SourceID] = m.Director
	}

	if directors[1] != "Ridley Scott" {
		t.Errorf("movie 1 director = %q", directors[1])
	}
	if directors[2] != "" || directors[3] != "" {
		t.Errorf("movies 2 and 3 should have no director: %v", directors)
	}

	r := res.Report
	if r.CreditsRead != 5 {
		t.Errorf("CreditsRead = %d", r.CreditsRead)
	}
	if r.CreditsDuplicateIdentity != 1 || r.CreditsMissingIdentity != 1 {
		t.Errorf("credit identity counts = %d/%d", r.CreditsDuplicateIdentity, r.CreditsMissingIdentity)
	}
	if r.MalformedFields["crew"] != 1 {
		t.Errorf("crew malformed = %d", r.MalformedFields["crew"])
	}
	if r.OrphanCredits != 1 {
		t.Errorf("OrphanCredits = %d, want 1", r.OrphanCredits)
	}
	if r.Rejected() != 0 {
		t.Errorf("credit problems must not reject movies")
	}
}

func TestClean_EmptyBatch(t *testing.T) {
	res := Clean(nil, nil)
	if len(res.Movies) != 0 || res.Report.Cleaned != 0 || len(res.Report.Issues) != 0 {
		t.Errorf("empty batch produced %+v", res)
	}
}
