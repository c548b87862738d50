package clock

import (
	"sync"
	"time"
	_ "time/tzdata" // zone names must resolve on hosts without a zoneinfo tree
)

var locations sync.Map // string -> *time.Location

// Location resolves an IANA zone name. Empty, "Local" and unknown names
// fall back to UTC so a bad header never fails a request.
func Location(tz string) *time.Location {
	if tz == "" || tz == "UTC" || tz == "Local" {
		return time.UTC
	}
	if loc, ok := locations.Load(tz); ok {
		return loc.(*time.Location)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	locations.Store(tz, loc)
	return loc
}

// GameDate returns the day a user is "in" at nowUTC: local midnight is
// replaced by the user's reset time, so before the reset it is still
// yesterday.
func GameDate(nowUTC time.Time, reset TimeOfDay, tz string) Date {
	local := nowUTC.In(Location(tz))
	resetPoint := time.Date(local.Year(), local.Month(), local.Day(), reset.Hour, reset.Minute, 0, 0, local.Location())

	today := DateOf(local)
	if local.Before(resetPoint) {
		return today.AddDays(-1)
	}
	return today
}
