package domain

import (
	"math"
	"time"
)

// GenesisDate is the Bitcoin genesis block date, the epoch of the day count.
var GenesisDate = time.Date(2009, time.January, 3, 0, 0, 0, 0, time.UTC)

const hoursPerDay = 24

// DaysSinceGenesis returns the whole-day offset of date from GenesisDate.
// The date is truncated to midnight in its own location before the difference is taken,
// so a caller in a zone ahead of UTC sees the offset of its local calendar day.
// Dates before genesis yield negative offsets; rejecting them is left to the caller.
func DaysSinceGenesis(date time.Time) int {
	y, m, d := date.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, date.Location())
	return int(math.Floor(midnight.Sub(GenesisDate).Hours() / hoursPerDay))
}

// DayAtYearStart returns the day offset of January 1st (UTC) of the given year.
func DayAtYearStart(year int) int {
	return DaysSinceGenesis(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC))
}

// YearOfDay returns the UTC calendar year that contains the given day offset.
func YearOfDay(day int) int {
	return GenesisDate.AddDate(0, 0, day).Year()
}
