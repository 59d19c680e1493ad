package proc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"

	"github.com/leeineian/akeome/app"
	"github.com/leeineian/akeome/gate"
	"github.com/leeineian/akeome/ledger"
	"github.com/leeineian/akeome/sys"
)

func init() {
	registrars = append(registrars, func(l *sys.Loader, a *app.App) {
		l.RegisterDaemon(sys.LogScheduler, func(ctx context.Context) (bool, func(), func()) {
			return true, func() { RunDailyReset(ctx, a) }, nil
		})
		l.RegisterDaemon(sys.LogScheduler, func(ctx context.Context) (bool, func(), func()) {
			return true, func() { RunAnnualReset(ctx, a) }, nil
		})
	})
}

// RunDailyReset clears the day's records at every midnight until ctx ends.
func RunDailyReset(ctx context.Context, a *app.App) {
	loc := a.Config.Location()
	for {
		next := NextMidnight(time.Now(), loc)
		sys.LogScheduler(sys.MsgSchedulerNextDaily, next.Format(time.RFC3339), time.Until(next).Round(time.Second))
		if !sleepUntil(ctx, next) {
			return
		}
		guard("daily reset", func() {
			if err := DailyReset(ctx, a, ledger.DateOf(next, loc)); err != nil {
				sys.ComponentWarn("scheduler", sys.MsgGenericError, err)
			}
		})
	}
}

// DailyReset drops every record dated before day and saves.
func DailyReset(ctx context.Context, a *app.App, day ledger.Date) error {
	if err := a.Do(ctx, func() { a.Ledger.ResetDaily(day) }); err != nil {
		return fmt.Errorf("daily reset: %w", err)
	}
	a.Metrics.Reset("daily")
	sys.LogScheduler(sys.MsgSchedulerDailyReset, day)
	return a.Persist(ctx)
}

// RunAnnualReset closes the season on its anniversary. While no season has started it
// checks again every ANNUAL_POLL_INTERVAL. A season already past its end when the bot comes
// up is closed straight away.
func RunAnnualReset(ctx context.Context, a *app.App) {
	loc := a.Config.Location()
	poll := a.Config.AnnualPollInterval
	if poll <= 0 {
		poll = time.Hour
	}

	for {
		var (
			start   ledger.Date
			started bool
		)
		err := a.Do(ctx, func() { start, started = a.Ledger.SeasonStart() })
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, sys.ErrQueueClosed) {
				return
			}
			sys.ComponentWarn("scheduler", sys.MsgGenericError, err)
			started = false
		}

		if !started {
			sys.LogScheduler(sys.MsgSchedulerNoSeason, poll)
			if !sleepFor(ctx, poll) {
				return
			}
			continue
		}

		end := SeasonEnd(start, loc)
		now := time.Now()
		on := NextSeasonStart(end, now, loc)
		if wait := end.Sub(now); wait > 0 {
			sys.LogScheduler(sys.MsgSchedulerNextAnnual, end.Format(time.RFC3339), wait.Round(time.Second))
			if !sleepUntil(ctx, end) {
				return
			}
		}

		guard("annual reset", func() {
			if err := AnnualReset(ctx, a, on); err != nil {
				sys.ComponentWarn("scheduler", sys.MsgGenericError, err)
			}
		})
	}
}

// AnnualReset closes the season, announces its final counts where the last trigger was
// posted, starts the next season on the given date and saves. The announcement is best
// effort.
func AnnualReset(ctx context.Context, a *app.App, on ledger.Date) error {
	var (
		counts     []ledger.Count
		channelID  snowflake.ID
		hasChannel bool
	)
	err := a.Do(ctx, func() {
		channelID, hasChannel = a.Ledger.LastNotifyChannel()
		counts = a.Ledger.ResetAnnual(on)
	})
	if err != nil {
		return fmt.Errorf("annual reset: %w", err)
	}

	if hasChannel {
		if err := announceSeason(ctx, a, channelID, counts); err != nil {
			sys.ComponentWarn("scheduler", sys.MsgSchedulerSummaryFail, err)
		}
	} else {
		sys.LogScheduler(sys.MsgSchedulerSummarySkip)
	}

	a.Metrics.Reset("annual")
	sys.LogScheduler(sys.MsgSchedulerAnnualReset, len(counts), on)
	return a.Persist(ctx)
}

// canAnnounce reports whether the summary embed may be posted in channelID.
func canAnnounce(allowed func(snowflake.ID, gate.Capability) bool, channelID snowflake.ID) bool {
	return allowed(channelID, gate.SendMessages) && allowed(channelID, gate.EmbedLinks)
}

func announceSeason(ctx context.Context, a *app.App, channelID snowflake.ID, counts []ledger.Count) error {
	client := a.Client()
	if client == nil || !canAnnounce(a.Allowed, channelID) {
		return nil
	}

	var guildID snowflake.ID
	if ch, ok := client.Caches.Channel(channelID); ok {
		guildID = ch.GuildID()
	}
	embed := SeasonSummaryEmbed(counts, func(userID snowflake.ID) string {
		return a.MemberName(guildID, userID)
	})

	_, err := client.Rest.CreateMessage(channelID, discord.MessageCreate{Embeds: []discord.Embed{embed}}, rest.WithCtx(ctx))
	return err
}
