// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package models

import "time"

// Company is a production company as listed on a movie.
type Company struct {
	Name          string `json:"name"`
	OriginCountry string `json:"origin_country,omitempty"`
}

// Country is a production country; Code is upper-case ISO 3166-1.
type Country struct {
	Code string `json:"iso_3166_1"`
	Name string `json:"name,omitempty"`
}

// Language is a spoken language; Code is lower-case ISO 639-1.
type Language struct {
	Code string `json:"iso_639_1"`
	Name string `json:"name,omitempty"`
}

// CleanedMovie is a validated movie with normalized fields.
// Empty strings stand for absent text values and a nil ReleaseDate for an
// absent or unparseable date. Numeric fields default to zero.
type CleanedMovie struct {
	SourceID         int64      `json:"source_id"`
	Title            string     `json:"title"`
	OriginalTitle    string     `json:"original_title"`
	Overview         string     `json:"overview"`
	Tagline          string     `json:"tagline"`
	Status           string     `json:"status"`
	Homepage         string     `json:"homepage"`
	Runtime          int        `json:"runtime"`
	Budget           int64      `json:"budget"`
	Revenue          int64      `json:"revenue"`
	Popularity       float64    `json:"popularity"`
	VoteAverage      float64    `json:"vote_average"`
	VoteCount        int64      `json:"vote_count"`
	ReleaseDate      *time.Time `json:"release_date,omitempty"`
	OriginalLanguage string     `json:"original_language"`
	Genres           []string   `json:"genres"`
	Companies        []Company  `json:"production_companies"`
	Countries        []Country  `json:"production_countries"`
	SpokenLanguages  []Language `json:"spoken_languages"`
	Director         string     `json:"director"`
}

// LanguageName returns the display name of the movie's spoken language
// with the given code, or "" when the movie does not list it.
func (m *CleanedMovie) LanguageName(code string) string {
	for _, l := range m.SpokenLanguages {
		if l.Code == code {
			return l.Name
		}
	}
	return ""
}
