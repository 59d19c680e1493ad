package proc

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeineian/akeome/app"
	"github.com/leeineian/akeome/gate"
	"github.com/leeineian/akeome/ledger"
	"github.com/leeineian/akeome/store"
	"github.com/leeineian/akeome/sys"
)

var jst = time.FixedZone("UTC+9", 9*60*60)

func TestNextMidnight(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"evening", time.Date(2026, 1, 1, 23, 59, 59, 0, jst), time.Date(2026, 1, 2, 0, 0, 0, 0, jst)},
		{"exactly midnight", time.Date(2026, 1, 2, 0, 0, 0, 0, jst), time.Date(2026, 1, 3, 0, 0, 0, 0, jst)},
		{"year end", time.Date(2026, 12, 31, 12, 0, 0, 0, jst), time.Date(2027, 1, 1, 0, 0, 0, 0, jst)},
		{"utc input", time.Date(2026, 1, 1, 15, 30, 0, 0, time.UTC), time.Date(2026, 1, 3, 0, 0, 0, 0, jst)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextMidnight(tt.now, jst)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestNextAnniversary(t *testing.T) {
	newYear := ledger.Date{Year: 2026, Month: time.January, Day: 1}
	leap := ledger.Date{Year: 2024, Month: time.February, Day: 29}

	tests := []struct {
		name  string
		now   time.Time
		start ledger.Date
		want  time.Time
	}{
		{"later this year", time.Date(2026, 1, 1, 0, 0, 30, 0, jst), ledger.Date{Year: 2026, Month: time.March, Day: 3}, time.Date(2026, 3, 3, 0, 0, 0, 0, jst)},
		{"already passed", time.Date(2026, 1, 1, 0, 0, 30, 0, jst), newYear, time.Date(2027, 1, 1, 0, 0, 0, 0, jst)},
		{"strictly after", time.Date(2027, 1, 1, 0, 0, 0, 0, jst), newYear, time.Date(2028, 1, 1, 0, 0, 0, 0, jst)},
		{"leap day in common year", time.Date(2025, 1, 10, 0, 0, 0, 0, jst), leap, time.Date(2025, 2, 28, 0, 0, 0, 0, jst)},
		{"leap day in leap year", time.Date(2027, 6, 1, 0, 0, 0, 0, jst), leap, time.Date(2028, 2, 29, 0, 0, 0, 0, jst)},
		{"century is not leap", time.Date(2100, 1, 1, 0, 0, 0, 0, jst), leap, time.Date(2100, 2, 28, 0, 0, 0, 0, jst)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextAnniversary(tt.now, tt.start, jst)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestSeasonEnd(t *testing.T) {
	start := ledger.Date{Year: 2026, Month: time.January, Day: 1}
	assert.True(t, time.Date(2027, 1, 1, 0, 0, 0, 0, jst).Equal(SeasonEnd(start, jst)))

	leap := ledger.Date{Year: 2024, Month: time.February, Day: 29}
	assert.True(t, time.Date(2025, 2, 28, 0, 0, 0, 0, jst).Equal(SeasonEnd(leap, jst)))
}

func TestNextSeasonStart(t *testing.T) {
	end := time.Date(2027, 1, 1, 0, 0, 0, 0, jst)
	newYear := ledger.Date{Year: 2027, Month: time.January, Day: 1}

	tests := []struct {
		name string
		now  time.Time
		want ledger.Date
	}{
		{"armed ahead", time.Date(2026, 12, 31, 23, 0, 0, 0, jst), newYear},
		{"armed long ahead", time.Date(2026, 3, 1, 0, 0, 0, 0, jst), newYear},
		{"exactly at end", end, newYear},
		{"overdue", time.Date(2027, 1, 5, 9, 0, 0, 0, jst), ledger.Date{Year: 2027, Month: time.January, Day: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextSeasonStart(end, tt.now, jst))
		})
	}
}

func TestCanAnnounceNeedsEmbedLinks(t *testing.T) {
	grant := func(capabilities ...gate.Capability) func(snowflake.ID, gate.Capability) bool {
		return func(_ snowflake.ID, c gate.Capability) bool {
			for _, g := range capabilities {
				if g == c {
					return true
				}
			}
			return false
		}
	}

	assert.False(t, canAnnounce(grant(gate.SendMessages), 1))
	assert.False(t, canAnnounce(grant(gate.EmbedLinks), 1))
	assert.True(t, canAnnounce(grant(gate.SendMessages, gate.EmbedLinks), 1))
}

func names(id snowflake.ID) string { return "user-" + id.String() }

func TestEntriesEmbedListsTopTen(t *testing.T) {
	var entries []ledger.Entry
	for i := 0; i < 12; i++ {
		entries = append(entries, ledger.Entry{UserID: snowflake.ID(i + 1), At: time.Date(2026, 1, 1, 0, 0, i, 0, jst)})
	}

	embed := EntriesEmbed(sys.MsgRankingTodayTitle, sys.MsgRankingTodayDesc, ColorToday, entries, jst, names)
	require.Len(t, embed.Fields, RankingLimit)
	assert.Equal(t, "# 1 user-1", embed.Fields[0].Name)
	assert.Equal(t, "🕒 00:00:00", embed.Fields[0].Value)
	assert.Equal(t, "# 10 user-10", embed.Fields[9].Name)
	assert.Equal(t, ColorToday, embed.Color)
}

func TestSeasonSummaryEmbed(t *testing.T) {
	embed := SeasonSummaryEmbed([]ledger.Count{{UserID: 7, Wins: 3}, {UserID: 8, Wins: 1}}, names)
	assert.Equal(t, sys.MsgAkeomeSeasonTitle, embed.Title)
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "# 1 user-7", embed.Fields[0].Name)
	assert.Equal(t, "🏆 一番乗り回数: 3", embed.Fields[0].Value)

	empty := SeasonSummaryEmbed(nil, names)
	assert.Equal(t, sys.MsgAkeomeSeasonNoWinners, empty.Description)
	assert.Empty(t, empty.Fields)
}

type fakeSource struct{}

func (fakeSource) Latency() int64  { return 42 }
func (fakeSource) GuildCount() int { return 3 }

func TestPresenceRotatorAlternates(t *testing.T) {
	r := NewPresenceRotator(fakeSource{})
	assert.Equal(t, "Ping: 42ms", r.Next())
	assert.Equal(t, "Servers: 3", r.Next())
	assert.Equal(t, "Ping: 42ms", r.Next())
}

func newTestApp(t *testing.T) (*app.App, store.Store) {
	t.Helper()
	st, err := store.NewFileStore(filepath.Join(t.TempDir(), "akeome.json"))
	require.NoError(t, err)

	cfg := &sys.Config{ResetOffsetHours: 9, ThreadRatePerMinute: 30, AnnualPollInterval: time.Hour}
	now := time.Date(2026, 1, 2, 0, 0, 5, 0, jst)
	a := app.New(cfg, st, sys.NewMetrics(), ledger.WithClock(func() time.Time { return now }))

	ctx, cancel := context.WithCancel(context.Background())
	go a.Queue.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-a.Queue.Done()
	})
	return a, st
}

func TestDailyResetKeepsTheNewDay(t *testing.T) {
	a, st := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, a.Do(ctx, func() {
		a.Ledger.RecordTrigger(1, 100, time.Date(2026, 1, 1, 0, 0, 1, 0, jst))
		a.Ledger.RecordTrigger(2, 100, time.Date(2026, 1, 2, 0, 0, 2, 0, jst))
	}))

	require.NoError(t, DailyReset(ctx, a, ledger.Date{Year: 2026, Month: time.January, Day: 2}))

	var ranking []ledger.Entry
	var counts []ledger.Count
	require.NoError(t, a.Do(ctx, func() {
		ranking = a.Ledger.TodayRanking()
		counts = a.Ledger.SeasonWinnerCounts()
	}))
	require.Len(t, ranking, 1)
	assert.Equal(t, snowflake.ID(2), ranking[0].UserID)
	assert.Len(t, counts, 2)

	doc, err := st.Load(ctx)
	require.NoError(t, err)
	assert.NotContains(t, doc.History, "2026-01-01")
	assert.Contains(t, doc.History, "2026-01-02")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Metrics.Resets.WithLabelValues("daily")))
}

func TestAnnualResetStartsNewSeason(t *testing.T) {
	a, st := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, a.Do(ctx, func() {
		a.Ledger.RecordTrigger(1, 100, time.Date(2026, 1, 1, 0, 0, 1, 0, jst))
	}))

	on := ledger.Date{Year: 2027, Month: time.January, Day: 1}
	require.NoError(t, AnnualReset(ctx, a, on))

	var (
		counts []ledger.Count
		start  ledger.Date
		ok     bool
	)
	require.NoError(t, a.Do(ctx, func() {
		counts = a.Ledger.SeasonWinnerCounts()
		start, ok = a.Ledger.SeasonStart()
	}))
	assert.Empty(t, counts)
	require.True(t, ok)
	assert.Equal(t, on, start)

	doc, err := st.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, doc.StartDate)
	assert.Equal(t, "2027-01-01", *doc.StartDate)
	assert.Empty(t, doc.FirstWinners)
}

func TestRunDailyResetStopsWithContext(t *testing.T) {
	a, _ := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunDailyReset(ctx, a)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("daily reset loop did not stop")
	}
}

func TestRunAnnualResetPollsWithoutSeason(t *testing.T) {
	a, _ := newTestApp(t)
	a.Config.AnnualPollInterval = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	RunAnnualReset(ctx, a)

	_, ok := a.Ledger.SeasonStart()
	assert.False(t, ok)
}

func TestGuardRecovers(t *testing.T) {
	assert.NotPanics(t, func() {
		guard("test", func() { panic("boom") })
	})
}
