// Package ledger records who said the trigger phrase each day and who got there first.
//
// A Ledger is not safe for concurrent use. The application owns exactly one and only
// touches it from the event queue consumer.
package ledger

import (
	"sort"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Entry is one user's first trigger of a day.
type Entry struct {
	UserID snowflake.ID
	At     time.Time
}

// Count is the number of days a user was first within the current season.
type Count struct {
	UserID snowflake.ID
	Wins   int
}

// Outcome reports what RecordTrigger changed.
type Outcome struct {
	FirstTodayForUser bool
	FirstOverallToday bool
}

// Mutated reports whether the ledger changed and needs persisting.
func (o Outcome) Mutated() bool { return o.FirstTodayForUser }

type dayLog struct {
	entries []Entry
	seen    map[snowflake.ID]struct{}
}

func newDayLog() *dayLog {
	return &dayLog{seen: make(map[snowflake.ID]struct{})}
}

func (d *dayLog) add(e Entry) bool {
	if _, ok := d.seen[e.UserID]; ok {
		return false
	}
	d.seen[e.UserID] = struct{}{}
	d.entries = append(d.entries, e)
	return true
}

type Ledger struct {
	loc *time.Location
	now func() time.Time

	days map[Date]*dayLog

	// winners keeps insertion order in winnerOrder; counts tie-break on it.
	winners     map[Date]snowflake.ID
	winnerOrder []Date

	seasonStart Date
	hasSeason   bool

	lastChannel snowflake.ID
	hasChannel  bool
}

type Option func(*Ledger)

// WithClock overrides time.Now for "today" lookups.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func New(loc *time.Location, opts ...Option) *Ledger {
	if loc == nil {
		loc = time.UTC
	}
	l := &Ledger{
		loc:     loc,
		now:     time.Now,
		days:    make(map[Date]*dayLog),
		winners: make(map[Date]snowflake.ID),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) Location() *time.Location { return l.loc }

// Today is the current date in the reference zone.
func (l *Ledger) Today() Date { return DateOf(l.now(), l.loc) }

// RecordTrigger registers a trigger message. It is idempotent per user per date: a repeat
// leaves the ledger untouched, including the notify channel.
func (l *Ledger) RecordTrigger(userID, channelID snowflake.ID, at time.Time) Outcome {
	at = at.In(l.loc).Round(0)
	date := DateOf(at, l.loc)

	day, ok := l.days[date]
	if !ok {
		day = newDayLog()
		l.days[date] = day
	}
	if !day.add(Entry{UserID: userID, At: at}) {
		return Outcome{}
	}

	l.lastChannel, l.hasChannel = channelID, true
	out := Outcome{FirstTodayForUser: true}

	if _, taken := l.winners[date]; taken {
		return out
	}
	// A date before the season start cannot win; it would precede SeasonStart.
	if l.hasSeason && date.Before(l.seasonStart) {
		return out
	}

	l.winners[date] = userID
	l.winnerOrder = append(l.winnerOrder, date)
	if !l.hasSeason {
		l.seasonStart, l.hasSeason = date, true
	}
	out.FirstOverallToday = true
	return out
}

// TodayRanking lists today's records, earliest first. Equal timestamps put the day's
// winner first and then order by user id, so the ranking reads the same after a reload.
func (l *Ledger) TodayRanking() []Entry {
	today := l.Today()
	day, ok := l.days[today]
	if !ok {
		return nil
	}
	ranking := make([]Entry, len(day.entries))
	copy(ranking, day.entries)
	l.sortEntries(today, ranking)
	return ranking
}

func (l *Ledger) sortEntries(date Date, entries []Entry) {
	winner, hasWinner := l.winners[date]
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.At.Equal(b.At) {
			return a.At.Before(b.At)
		}
		if hasWinner && (a.UserID == winner) != (b.UserID == winner) {
			return a.UserID == winner
		}
		return a.UserID < b.UserID
	})
}

// TodayWorst is TodayRanking reversed.
func (l *Ledger) TodayWorst() []Entry {
	ranking := l.TodayRanking()
	for i, j := 0, len(ranking)-1; i < j; i, j = i+1, j-1 {
		ranking[i], ranking[j] = ranking[j], ranking[i]
	}
	return ranking
}

// SeasonWinnerCounts tallies winners of the current season, most wins first. Ties keep
// the order in which each user first appears among the season's winners.
func (l *Ledger) SeasonWinnerCounts() []Count {
	index := make(map[snowflake.ID]int)
	var counts []Count
	for _, date := range l.winnerOrder {
		userID := l.winners[date]
		if i, ok := index[userID]; ok {
			counts[i].Wins++
			continue
		}
		index[userID] = len(counts)
		counts = append(counts, Count{UserID: userID, Wins: 1})
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Wins > counts[j].Wins
	})
	return counts
}

// Winner returns the first poster of date.
func (l *Ledger) Winner(date Date) (snowflake.ID, bool) {
	userID, ok := l.winners[date]
	return userID, ok
}

func (l *Ledger) SeasonStart() (Date, bool) {
	return l.seasonStart, l.hasSeason
}

func (l *Ledger) LastNotifyChannel() (snowflake.ID, bool) {
	return l.lastChannel, l.hasChannel
}

// ResetDaily drops every daily record dated before keepFrom. Winners and the season are
// untouched. The daemon passes the date that just began, so a trigger that lands a few
// microseconds after midnight but before the timer fires survives the reset.
func (l *Ledger) ResetDaily(keepFrom Date) {
	for date := range l.days {
		if date.Before(keepFrom) {
			delete(l.days, date)
		}
	}
}

// ResetAnnual closes the season: it returns the final counts, forgets all winners and
// starts the next season on date.
func (l *Ledger) ResetAnnual(on Date) []Count {
	counts := l.SeasonWinnerCounts()
	l.winners = make(map[Date]snowflake.ID)
	l.winnerOrder = nil
	l.seasonStart, l.hasSeason = on, true
	return counts
}
