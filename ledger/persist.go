package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/leeineian/akeome/store"
)

// Restore replaces the ledger state with the ledger-owned parts of doc. Entries that fail
// to parse are dropped and reported; the rest is loaded.
func (l *Ledger) Restore(doc *store.Document) []error {
	var errs []error

	l.days = make(map[Date]*dayLog)
	l.winners = make(map[Date]snowflake.ID)
	l.winnerOrder = nil
	l.seasonStart, l.hasSeason = Date{}, false
	l.lastChannel, l.hasChannel = 0, false

	if doc == nil {
		return nil
	}

	for raw, rawUser := range doc.FirstWinners {
		date, err := ParseDate(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("winner: %w", err))
			continue
		}
		userID, err := snowflake.Parse(rawUser)
		if err != nil {
			errs = append(errs, fmt.Errorf("winner %s: parse user %q: %w", raw, rawUser, err))
			continue
		}
		l.winners[date] = userID
		l.winnerOrder = append(l.winnerOrder, date)
	}
	sort.Slice(l.winnerOrder, func(i, j int) bool {
		return l.winnerOrder[i].Before(l.winnerOrder[j])
	})

	for raw, users := range doc.History {
		date, err := ParseDate(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("history: %w", err))
			continue
		}
		var entries []Entry
		for rawUser, rawAt := range users {
			userID, err := snowflake.Parse(rawUser)
			if err != nil {
				errs = append(errs, fmt.Errorf("history %s: parse user %q: %w", raw, rawUser, err))
				continue
			}
			at, err := time.Parse(time.RFC3339Nano, rawAt)
			if err != nil {
				errs = append(errs, fmt.Errorf("history %s: parse timestamp %q: %w", raw, rawAt, err))
				continue
			}
			entries = append(entries, Entry{UserID: userID, At: at.In(l.loc)})
		}
		if len(entries) == 0 {
			continue
		}
		l.sortEntries(date, entries)
		day := newDayLog()
		for _, e := range entries {
			day.add(e)
		}
		l.days[date] = day
	}

	if doc.LastChannelID != nil {
		channelID, err := snowflake.Parse(*doc.LastChannelID)
		if err != nil {
			errs = append(errs, fmt.Errorf("last channel: parse %q: %w", *doc.LastChannelID, err))
		} else {
			l.lastChannel, l.hasChannel = channelID, true
		}
	}

	if doc.StartDate != nil {
		start, err := ParseDate(*doc.StartDate)
		if err != nil {
			errs = append(errs, fmt.Errorf("start date: %w", err))
		} else {
			l.seasonStart, l.hasSeason = start, true
		}
	}

	// Winners must not precede the season start. A missing or late start is pulled back to
	// the earliest winner.
	if len(l.winnerOrder) > 0 {
		earliest := l.winnerOrder[0]
		if !l.hasSeason || earliest.Before(l.seasonStart) {
			l.seasonStart, l.hasSeason = earliest, true
		}
	}

	return errs
}

// Export writes the ledger-owned parts of the state into doc.
func (l *Ledger) Export(doc *store.Document) {
	doc.FirstWinners = make(map[string]string, len(l.winners))
	for date, userID := range l.winners {
		doc.FirstWinners[date.String()] = userID.String()
	}

	doc.History = make(map[string]map[string]string, len(l.days))
	for date, day := range l.days {
		users := make(map[string]string, len(day.entries))
		for _, e := range day.entries {
			users[e.UserID.String()] = e.At.Format(time.RFC3339Nano)
		}
		doc.History[date.String()] = users
	}

	doc.LastChannelID = nil
	if l.hasChannel {
		s := l.lastChannel.String()
		doc.LastChannelID = &s
	}

	doc.StartDate = nil
	if l.hasSeason {
		s := l.seasonStart.String()
		doc.StartDate = &s
	}
}
