package home

import (
	"fmt"
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeineian/akeome/ledger"
	"github.com/leeineian/akeome/proc"
	"github.com/leeineian/akeome/sys"
	"github.com/leeineian/akeome/threadline"
)

var jst = time.FixedZone("JST", 9*60*60)

func testRequest(mode string, caller snowflake.ID) rankingRequest {
	name := func(id snowflake.ID) string { return fmt.Sprintf("user%d", id) }
	return rankingRequest{
		mode:       mode,
		caller:     caller,
		callerName: name(caller),
		trigger:    "あけおめ",
		loc:        jst,
		name:       name,
	}
}

func entries(n int) []ledger.Entry {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, jst)
	out := make([]ledger.Entry, n)
	for i := range out {
		out[i] = ledger.Entry{UserID: snowflake.ID(i + 1), At: base.Add(time.Duration(i) * time.Second)}
	}
	return out
}

func TestBuildRankingEmpty(t *testing.T) {
	tests := []struct {
		mode string
		want string
	}{
		{"", fmt.Sprintf(sys.MsgRankingNoneToday, "あけおめ")},
		{modeToday, fmt.Sprintf(sys.MsgRankingNoneToday, "あけおめ")},
		{modeSeason, sys.MsgRankingNoneSeason},
		{modeWorst, fmt.Sprintf(sys.MsgRankingNoneWorst, "あけおめ")},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			msg := buildRanking(testRequest(tt.mode, 1), rankingView{})
			assert.Equal(t, tt.want, msg.Content)
			assert.Empty(t, msg.Embeds)
			assert.True(t, msg.Flags.Has(discord.MessageFlagEphemeral))
		})
	}
}

func TestBuildRankingTodayTopTen(t *testing.T) {
	msg := buildRanking(testRequest(modeToday, 3), rankingView{today: entries(5)})
	require.Len(t, msg.Embeds, 1)

	embed := msg.Embeds[0]
	assert.Equal(t, sys.MsgRankingTodayTitle, embed.Title)
	assert.Equal(t, proc.ColorToday, embed.Color)
	require.Len(t, embed.Fields, 5)
	assert.Equal(t, "# 1 user1", embed.Fields[0].Name)
	assert.Equal(t, "🕒 00:00:00", embed.Fields[0].Value)
	assert.Equal(t, "🕒 00:00:04", embed.Fields[4].Value)
}

func TestBuildRankingTodayAppendsCallerRank(t *testing.T) {
	msg := buildRanking(testRequest(modeToday, 13), rankingView{today: entries(15)})
	require.Len(t, msg.Embeds, 1)

	fields := msg.Embeds[0].Fields
	require.Len(t, fields, proc.RankingLimit+1)
	last := fields[len(fields)-1]
	assert.Equal(t, "\u200b", last.Name)
	assert.Equal(t, fmt.Sprintf(sys.MsgRankingYourRank, 13, "user13", "00:00:12"), last.Value)
}

func TestBuildRankingTodayCallerAbsent(t *testing.T) {
	msg := buildRanking(testRequest(modeToday, 99), rankingView{today: entries(12)})
	require.Len(t, msg.Embeds, 1)
	assert.Len(t, msg.Embeds[0].Fields, proc.RankingLimit)
}

func TestBuildRankingSeason(t *testing.T) {
	view := rankingView{counts: []ledger.Count{{UserID: 7, Wins: 4}, {UserID: 2, Wins: 1}}}
	msg := buildRanking(testRequest(modeSeason, 1), view)
	require.Len(t, msg.Embeds, 1)

	embed := msg.Embeds[0]
	assert.Equal(t, sys.MsgRankingSeasonTitle, embed.Title)
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "# 1 user7", embed.Fields[0].Name)
	assert.Equal(t, fmt.Sprintf(sys.MsgRankingWins, 4), embed.Fields[0].Value)
}

func TestBuildRankingWorst(t *testing.T) {
	worst := entries(3)
	worst[0], worst[2] = worst[2], worst[0]
	msg := buildRanking(testRequest(modeWorst, 1), rankingView{today: entries(3), worst: worst})
	require.Len(t, msg.Embeds, 1)

	embed := msg.Embeds[0]
	assert.Equal(t, sys.MsgRankingWorstTitle, embed.Title)
	assert.Equal(t, proc.ColorWorst, embed.Color)
	assert.Equal(t, "# 1 user3", embed.Fields[0].Name)
}

func TestThreadlineReply(t *testing.T) {
	ch := snowflake.ID(42)

	assert.Equal(t, "<#42> のスレッド自動作成を無効にしました。", threadlineReply(ch, threadline.Set(0)))

	set := threadline.NewSet(threadline.CategoryLink, threadline.CategoryMessage)
	assert.Equal(t, fmt.Sprintf(sys.MsgThreadlineReply, ch, set.String()), threadlineReply(ch, set))
}

func TestBroadcastTargets(t *testing.T) {
	sys1, sys3 := snowflake.ID(101), snowflake.ID(103)
	guilds := []discord.Guild{
		{ID: 1, SystemChannelID: &sys1},
		{ID: 2},
		{ID: 3, SystemChannelID: &sys3},
	}

	t.Run("test sends to invoking channel", func(t *testing.T) {
		targets, missing := broadcastTargets(true, 55, guilds)
		assert.Equal(t, []snowflake.ID{55}, targets)
		assert.Zero(t, missing)
	})

	t.Run("broadcast uses system channels", func(t *testing.T) {
		targets, missing := broadcastTargets(false, 55, guilds)
		assert.Equal(t, []snowflake.ID{101, 103}, targets)
		assert.Equal(t, 1, missing)
	})

	t.Run("no guilds", func(t *testing.T) {
		targets, missing := broadcastTargets(false, 55, nil)
		assert.Empty(t, targets)
		assert.Zero(t, missing)
	})
}
