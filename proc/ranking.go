package proc

import (
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"

	"github.com/leeineian/akeome/ledger"
	"github.com/leeineian/akeome/sys"
)

// RankingLimit is how many places a ranking embed lists.
const RankingLimit = 10

const (
	ColorToday  = 0xc0c0c0
	ColorSeason = 0xf5c518
	ColorWorst  = 0xaaaaaa
)

// NameFunc resolves a user id to the name shown in rankings.
type NameFunc func(userID snowflake.ID) string

// ClockTime formats a trigger time as HH:MM:SS in loc.
func ClockTime(at time.Time, loc *time.Location) string {
	return at.In(loc).Format("15:04:05")
}

// EntriesEmbed lists up to RankingLimit entries with their trigger time.
func EntriesEmbed(title, description string, color int, entries []ledger.Entry, loc *time.Location, name NameFunc) discord.Embed {
	embed := discord.Embed{Title: title, Description: description, Color: color}
	for i, e := range entries {
		if i == RankingLimit {
			break
		}
		embed.Fields = append(embed.Fields, discord.EmbedField{
			Name:  fmt.Sprintf(sys.MsgRankingFieldName, i+1, name(e.UserID)),
			Value: fmt.Sprintf(sys.MsgRankingTime, ClockTime(e.At, loc)),
		})
	}
	return embed
}

// CountsEmbed lists up to RankingLimit users with their first-place count.
func CountsEmbed(title, description string, counts []ledger.Count, name NameFunc) discord.Embed {
	embed := discord.Embed{Title: title, Description: description, Color: ColorSeason}
	for i, c := range counts {
		if i == RankingLimit {
			break
		}
		embed.Fields = append(embed.Fields, discord.EmbedField{
			Name:  fmt.Sprintf(sys.MsgRankingFieldName, i+1, name(c.UserID)),
			Value: fmt.Sprintf(sys.MsgRankingWins, c.Wins),
		})
	}
	return embed
}

// SeasonSummaryEmbed announces the final counts of a season that just closed.
func SeasonSummaryEmbed(counts []ledger.Count, name NameFunc) discord.Embed {
	if len(counts) == 0 {
		return discord.Embed{Title: sys.MsgAkeomeSeasonTitle, Description: sys.MsgAkeomeSeasonNoWinners, Color: ColorSeason}
	}
	return CountsEmbed(sys.MsgAkeomeSeasonTitle, sys.MsgAkeomeSeasonDesc, counts, name)
}
