// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package warehouse

import (
	"time"

	"github.com/tomtom215/marquee/internal/models"
)

// DateLayout is the natural key format of dim_date.
const DateLayout = "2006-01-02"

// DateKey returns the natural key for a release date, or the sentinel.
func DateKey(d *time.Time) string {
	if d == nil {
		return models.UnknownKey
	}
	return d.Format(DateLayout)
}

// DeriveDate computes the calendar attributes of d. The key is left unset.
func DeriveDate(d time.Time) models.DateDim {
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	_, week := day.ISOWeek()

	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7
	}

	return models.DateDim{
		NaturalKey: day.Format(DateLayout),
		Date:       &day,
		Year:       day.Year(),
		Quarter:    (int(day.Month())-1)/3 + 1,
		Month:      int(day.Month()),
		MonthName:  day.Month().String(),
		Day:        day.Day(),
		DayOfWeek:  weekday,
		DayName:    day.Weekday().String(),
		Week:       week,
		IsWeekend:  weekday >= 6,
	}
}

// unknownDate is the sentinel row: no calendar date, zero attributes.
func unknownDate(key int64) models.DateDim {
	return models.DateDim{Key: key, NaturalKey: models.UnknownKey}
}
