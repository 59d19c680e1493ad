package home

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"

	"github.com/leeineian/akeome/app"
	"github.com/leeineian/akeome/ledger"
	"github.com/leeineian/akeome/proc"
	"github.com/leeineian/akeome/sys"
)

const (
	modeToday  = "today"
	modeSeason = "season"
	modeWorst  = "worst"
)

func init() {
	registrars = append(registrars, func(l *sys.Loader, a *app.App) {
		l.RegisterCommand(discord.SlashCommandCreate{
			Name:        "ranking-top",
			Description: "今日のあけおめトップ10と自分の順位を表示します",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "mode",
					Description: "別のランキング表示（season=通算トップ、worst=遅かった順）",
					Required:    false,
					Choices: []discord.ApplicationCommandOptionChoiceString{
						{Name: modeToday, Value: modeToday},
						{Name: modeSeason, Value: modeSeason},
						{Name: modeWorst, Value: modeWorst},
					},
				},
			},
		}, func(event *events.ApplicationCommandInteractionCreate) { handleRankingTop(a, event) })
	})
}

// rankingView is a copy of the ledger taken on the queue.
type rankingView struct {
	today  []ledger.Entry
	worst  []ledger.Entry
	counts []ledger.Count
}

type rankingRequest struct {
	mode       string
	caller     snowflake.ID
	callerName string
	trigger    string
	loc        *time.Location
	name       proc.NameFunc
}

func handleRankingTop(a *app.App, event *events.ApplicationCommandInteractionCreate) {
	a.Metrics.Command("ranking-top")

	guildID := event.GuildID()
	if guildID == nil {
		respondEphemeral(event, sys.MsgRankingGuildOnly)
		return
	}

	data := event.SlashCommandInteractionData()
	req := rankingRequest{
		mode:    data.String("mode"),
		caller:  event.User().ID,
		trigger: a.Config.TriggerPhrase,
		loc:     a.Config.Location(),
		name:    func(id snowflake.ID) string { return a.MemberName(*guildID, id) },
	}
	req.callerName = req.name(req.caller)

	var view rankingView
	err := a.Do(context.Background(), func() {
		view = rankingView{
			today:  a.Ledger.TodayRanking(),
			worst:  a.Ledger.TodayWorst(),
			counts: a.Ledger.SeasonWinnerCounts(),
		}
	})
	if err != nil {
		sys.LogWarn(sys.MsgGenericError, err)
		return
	}

	respond(event, buildRanking(req, view))
}

func buildRanking(req rankingRequest, view rankingView) discord.MessageCreate {
	switch req.mode {
	case modeSeason:
		if len(view.counts) == 0 {
			return ephemeral(sys.MsgRankingNoneSeason)
		}
		embed := proc.CountsEmbed(sys.MsgRankingSeasonTitle, sys.MsgRankingSeasonDesc, view.counts, req.name)
		return discord.MessageCreate{Embeds: []discord.Embed{embed}}

	case modeWorst:
		if len(view.worst) == 0 {
			return ephemeral(fmt.Sprintf(sys.MsgRankingNoneWorst, req.trigger))
		}
		embed := proc.EntriesEmbed(sys.MsgRankingWorstTitle, sys.MsgRankingWorstDesc, proc.ColorWorst, view.worst, req.loc, req.name)
		return discord.MessageCreate{Embeds: []discord.Embed{embed}}

	default:
		if len(view.today) == 0 {
			return ephemeral(fmt.Sprintf(sys.MsgRankingNoneToday, req.trigger))
		}
		embed := proc.EntriesEmbed(sys.MsgRankingTodayTitle, sys.MsgRankingTodayDesc, proc.ColorToday, view.today, req.loc, req.name)
		for i, e := range view.today {
			if e.UserID != req.caller {
				continue
			}
			if i >= proc.RankingLimit {
				embed.Fields = append(embed.Fields, discord.EmbedField{
					Name:  "\u200b",
					Value: fmt.Sprintf(sys.MsgRankingYourRank, i+1, req.callerName, proc.ClockTime(e.At, req.loc)),
				})
			}
			break
		}
		return discord.MessageCreate{Embeds: []discord.Embed{embed}}
	}
}

func ephemeral(content string) discord.MessageCreate {
	return discord.NewMessageCreate().WithContent(content).WithEphemeral(true)
}
