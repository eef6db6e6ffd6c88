// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package models

import "time"

// Dimension identifies one of the seven warehouse dimensions.
type Dimension string

// Dimensions of the star schema.
const (
	DimMovie    Dimension = "movie"
	DimDate     Dimension = "date"
	DimGenre    Dimension = "genre"
	DimDirector Dimension = "director"
	DimLanguage Dimension = "language"
	DimCountry  Dimension = "country"
	DimCompany  Dimension = "production_company"
)

// AllDimensions lists the dimensions in load order.
var AllDimensions = []Dimension{
	DimMovie, DimDate, DimGenre, DimDirector, DimLanguage, DimCountry, DimCompany,
}

// Table returns the warehouse table name of the dimension.
func (d Dimension) Table() string {
	return "dim_" + string(d)
}

// Warehouse table names outside the dimensions.
const (
	TableFact   = "fact_movie_release"
	TableBridge = "bridge_movie_genre"
)

// UnknownKey is the natural key of the sentinel row present in a dimension
// whenever some record lacks a value for it.
const UnknownKey = "<unknown>"

// UnknownLabel is the display value stored on sentinel rows.
const UnknownLabel = "Unknown"

// MovieDim is a row of dim_movie. NaturalKey is the decimal source id.
type MovieDim struct {
	Key              int64
	NaturalKey       string
	SourceID         int64
	Title            string
	OriginalTitle    string
	Overview         string
	Tagline          string
	Status           string
	Homepage         string
	Runtime          int
	OriginalLanguage string
}

// GenreDim is a row of dim_genre.
type GenreDim struct {
	Key        int64
	NaturalKey string
	Name       string
}

// DirectorDim is a row of dim_director.
type DirectorDim struct {
	Key        int64
	NaturalKey string
	Name       string
}

// LanguageDim is a row of dim_language.
type LanguageDim struct {
	Key        int64
	NaturalKey string
	Code       string
	Name       string
}

// CountryDim is a row of dim_country.
type CountryDim struct {
	Key        int64
	NaturalKey string
	Code       string
	Name       string
}

// CompanyDim is a row of dim_production_company.
type CompanyDim struct {
	Key           int64
	NaturalKey    string
	Name          string
	OriginCountry string
}

// DateDim is a row of dim_date. Date is nil only on the unknown sentinel,
// whose calendar attributes are all zero.
type DateDim struct {
	Key        int64
	NaturalKey string
	Date       *time.Time
	Year       int
	Quarter    int
	Month      int
	MonthName  string
	Day        int
	DayOfWeek  int // ISO 8601, Monday = 1
	DayName    string
	Week       int // ISO 8601 week number
	IsWeekend  bool
}

// FactMovieRelease is one row of the fact table, one per movie.
type FactMovieRelease struct {
	MovieKey    int64
	DateKey     int64
	DirectorKey int64
	LanguageKey int64
	CountryKey  int64
	CompanyKey  int64
	Popularity  float64
	VoteAverage float64
	VoteCount   int64
	Budget      int64
	Revenue     int64
	Runtime     int
}

// BridgeMovieGenre associates a movie with one of its genres.
type BridgeMovieGenre struct {
	MovieKey int64
	GenreKey int64
}

// TableSet is the complete output of a build: every dimension, the fact
// table, the bridge table and the key state that produced them.
type TableSet struct {
	Movies    []MovieDim
	Dates     []DateDim
	Genres    []GenreDim
	Directors []DirectorDim
	Languages []LanguageDim
	Countries []CountryDim
	Companies []CompanyDim
	Facts     []FactMovieRelease
	Bridge    []BridgeMovieGenre
	Keys      KeyState
}

// RowCounts returns the number of rows per warehouse table.
func (ts *TableSet) RowCounts() map[string]int64 {
	if ts == nil {
		return map[string]int64{}
	}
	return map[string]int64{
		DimMovie.Table():    int64(len(ts.Movies)),
		DimDate.Table():     int64(len(ts.Dates)),
		DimGenre.Table():    int64(len(ts.Genres)),
		DimDirector.Table(): int64(len(ts.Directors)),
		DimLanguage.Table(): int64(len(ts.Languages)),
		DimCountry.Table():  int64(len(ts.Countries)),
		DimCompany.Table():  int64(len(ts.Companies)),
		TableFact:           int64(len(ts.Facts)),
		TableBridge:         int64(len(ts.Bridge)),
	}
}

// IsEmpty reports whether the table set holds no movies.
func (ts *TableSet) IsEmpty() bool {
	return ts == nil || len(ts.Movies) == 0
}
