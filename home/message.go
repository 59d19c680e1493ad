package home

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"

	"github.com/leeineian/akeome/app"
	"github.com/leeineian/akeome/gate"
	"github.com/leeineian/akeome/ledger"
	"github.com/leeineian/akeome/sys"
	"github.com/leeineian/akeome/threadline"
)

func init() {
	registrars = append(registrars, func(l *sys.Loader, a *app.App) {
		l.OnMessage(func(event *events.GuildMessageCreate) { onMessage(a, event) })
	})
}

// qualifies reports whether a message is a plain user post in a guild text channel.
func qualifies(a *app.App, msg discord.Message, channelID snowflake.ID) bool {
	if msg.Author.Bot || msg.WebhookID != nil {
		return false
	}
	if msg.Type != discord.MessageTypeDefault && msg.Type != discord.MessageTypeReply {
		return false
	}
	client := a.Client()
	if client == nil {
		return false
	}
	ch, ok := client.Caches.Channel(channelID)
	if !ok {
		return false
	}
	switch ch.Type() {
	case discord.ChannelTypeGuildText, discord.ChannelTypeGuildNews:
		return true
	}
	return false
}

func onMessage(a *app.App, event *events.GuildMessageCreate) {
	msg := event.Message
	if !qualifies(a, msg, event.ChannelID) {
		return
	}

	ctx := context.Background()
	if strings.TrimSpace(msg.Content) == a.Config.TriggerPhrase {
		handleTrigger(ctx, a, msg, event.ChannelID)
		return
	}

	var enabled threadline.Set
	if err := a.Do(ctx, func() { enabled = a.Threadline.Get(event.ChannelID) }); err != nil {
		return
	}
	if enabled.Empty() {
		return
	}

	input := threadline.FromDiscord(msg, threadline.DisplayName(msg.Author, msg.Member))
	if action, ok := a.Classifier.Classify(input, enabled); ok {
		openThread(ctx, a, event.ChannelID, msg.ID, action)
	}
}

func handleTrigger(ctx context.Context, a *app.App, msg discord.Message, channelID snowflake.ID) {
	at := msg.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}

	var out ledger.Outcome
	if err := a.Do(ctx, func() { out = a.Ledger.RecordTrigger(msg.Author.ID, channelID, at) }); err != nil {
		sys.LogWarn(sys.MsgGenericError, err)
		return
	}
	a.Metrics.Trigger(out.FirstOverallToday, out.FirstTodayForUser)
	if !out.Mutated() {
		return
	}
	sys.LogLedger(sys.MsgLedgerRecorded, msg.Author.Username, channelID, out.FirstOverallToday)

	if out.FirstOverallToday && a.Allowed(channelID, gate.SendMessages) {
		_, err := a.Client().Rest.CreateMessage(channelID, discord.NewMessageCreate().
			WithContent(fmt.Sprintf(sys.MsgAkeomeCongrats, msg.Author.Mention())), rest.WithCtx(ctx))
		if err != nil {
			sys.LogWarn(sys.MsgAkeomeSendFail, channelID, err)
		}
	}

	if err := a.Persist(ctx); err != nil {
		sys.ComponentWarn("store", sys.MsgStoreSaveFail, err)
	}
}
