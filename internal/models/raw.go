// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package models

// Source stream names used in issues and metrics labels.
const (
	StreamMovies  = "movies"
	StreamCredits = "credits"
)

// RawMovieRecord is one row of the movies file. Missing columns and NULLs
// are empty strings; nested fields hold the serialized list text. Row is
// the 1-based data row number within the file.
type RawMovieRecord struct {
	Row                 int
	ID                  string
	Title               string
	OriginalTitle       string
	Overview            string
	Tagline             string
	Status              string
	Homepage            string
	Runtime             string
	Budget              string
	Revenue             string
	Popularity          string
	VoteAverage         string
	VoteCount           string
	ReleaseDate         string
	OriginalLanguage    string
	Genres              string
	ProductionCompanies string
	ProductionCountries string
	SpokenLanguages     string
}

// RawCreditRecord is one row of the credits file, keyed by movie id.
type RawCreditRecord struct {
	Row     int
	MovieID string
	Title   string
	Cast    string
	Crew    string
}
