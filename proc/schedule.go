package proc

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/leeineian/akeome/ledger"
)

var dailyBoundary = mustSchedule("0 0 * * *")

func mustSchedule(spec string) cron.Schedule {
	s, err := cron.ParseStandard(spec)
	if err != nil {
		panic(err)
	}
	return s
}

// NextMidnight returns the first midnight in loc strictly after now.
func NextMidnight(now time.Time, loc *time.Location) time.Time {
	return dailyBoundary.Next(now.In(loc))
}

// anniversary is midnight in loc on start's month and day in year. Feb 29 falls back to
// Feb 28 in years without one.
func anniversary(start ledger.Date, year int, loc *time.Location) time.Time {
	day := start.Day
	if start.Month == time.February && day == 29 && !isLeap(year) {
		day = 28
	}
	return time.Date(year, start.Month, day, 0, 0, 0, 0, loc)
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// NextAnniversary returns the first midnight on start's month and day strictly after now.
func NextAnniversary(now time.Time, start ledger.Date, loc *time.Location) time.Time {
	now = now.In(loc)
	next := anniversary(start, now.Year(), loc)
	if !next.After(now) {
		next = anniversary(start, now.Year()+1, loc)
	}
	return next
}

// SeasonEnd is the first anniversary of a season that began on start.
func SeasonEnd(start ledger.Date, loc *time.Location) time.Time {
	return NextAnniversary(start.Midnight(loc), start, loc)
}

// NextSeasonStart is the day the next season begins when the season ending at end is
// closed, decided at now. An end still ahead starts the new season on its own date. An
// overdue end starts it today.
func NextSeasonStart(end, now time.Time, loc *time.Location) ledger.Date {
	if end.After(now) {
		return ledger.DateOf(end, loc)
	}
	return ledger.DateOf(now, loc)
}
