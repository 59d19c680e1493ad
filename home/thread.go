package home

import (
	"context"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/time/rate"

	"github.com/leeineian/akeome/app"
	"github.com/leeineian/akeome/gate"
	"github.com/leeineian/akeome/sys"
	"github.com/leeineian/akeome/threadline"
)

// threadRequestEmoji asks the bot to open a thread on a message it skipped.
const threadRequestEmoji = "🧵"

func init() {
	registrars = append(registrars, func(l *sys.Loader, a *app.App) {
		l.OnReactionAdd(func(event *events.GuildMessageReactionAdd) { onThreadRequest(a, event) })
		l.OnThreadUpdate(func(event *events.ThreadUpdate) { onThreadUpdate(a, event) })
	})
}

// threadCreator is the part of the REST client that opening a thread needs.
type threadCreator interface {
	CreateThreadFromMessage(channelID, messageID snowflake.ID, threadCreateFromMessage discord.ThreadCreateFromMessage, opts ...rest.RequestOpt) (*discord.GuildThread, error)
	AddReaction(channelID, messageID snowflake.ID, emoji string, opts ...rest.RequestOpt) error
}

type threadOpener struct {
	rest    threadCreator
	allowed func(channelID snowflake.ID, capability gate.Capability) bool
	pacer   *rate.Limiter
	metrics *sys.Metrics
}

func newThreadOpener(a *app.App) (threadOpener, bool) {
	client := a.Client()
	if client == nil {
		return threadOpener{}, false
	}
	return threadOpener{
		rest:    client.Rest,
		allowed: a.Allowed,
		pacer:   a.ThreadPacer,
		metrics: a.Metrics,
	}, true
}

// open creates the thread and then marks the source message. Failures are logged and
// dropped.
func (o threadOpener) open(ctx context.Context, channelID, messageID snowflake.ID, action threadline.Action) {
	if !o.allowed(channelID, gate.CreatePublicThreads) {
		return
	}
	if err := o.pacer.Wait(ctx); err != nil {
		sys.LogThreadline(sys.MsgThreadlineWaitFail, err)
		return
	}

	category := action.Category.String()
	_, err := o.rest.CreateThreadFromMessage(channelID, messageID, discord.ThreadCreateFromMessage{
		Name: action.Title,
	}, rest.WithCtx(ctx))
	if err != nil {
		o.metrics.ThreadFailed(category)
		sys.LogThreadline(sys.MsgThreadlineCreateFail, action.Title, channelID, err)
		return
	}
	o.metrics.ThreadCreated(category)
	sys.LogThreadline(sys.MsgThreadlineCreated, category, action.Title, channelID)

	if !o.allowed(channelID, gate.AddReactions) {
		return
	}
	if err := o.rest.AddReaction(channelID, messageID, action.Emoji, rest.WithCtx(ctx)); err != nil {
		sys.LogThreadline(sys.MsgThreadlineReactFail, messageID, err)
	}
}

func openThread(ctx context.Context, a *app.App, channelID, messageID snowflake.ID, action threadline.Action) {
	if o, ok := newThreadOpener(a); ok {
		o.open(ctx, channelID, messageID, action)
	}
}

// onThreadRequest opens a thread for a message someone reacted to with 🧵, using its
// strongest category whatever the channel has enabled.
func onThreadRequest(a *app.App, event *events.GuildMessageReactionAdd) {
	if event.Emoji.Name == nil || *event.Emoji.Name != threadRequestEmoji || event.Member.User.Bot {
		return
	}

	ctx := context.Background()
	var enabled bool
	if err := a.Do(ctx, func() { enabled = a.Threadline.Enabled(event.ChannelID) }); err != nil || !enabled {
		return
	}

	client := a.Client()
	if client == nil {
		return
	}
	msg, err := client.Rest.GetMessage(event.ChannelID, event.MessageID, rest.WithCtx(ctx))
	if err != nil {
		sys.LogDebug(sys.MsgGenericError, err)
		return
	}
	if !qualifies(a, *msg, event.ChannelID) {
		return
	}

	name := a.MemberName(event.GuildID, msg.Author.ID)
	if action, ok := a.Classifier.Strongest(threadline.FromDiscord(*msg, name)); ok {
		openThread(ctx, a, event.ChannelID, event.MessageID, action)
	}
}

// onThreadUpdate reopens bot-owned threads that Discord auto-archived in channels that
// have threadline enabled.
func onThreadUpdate(a *app.App, event *events.ThreadUpdate) {
	thread := event.Thread
	if !thread.ThreadMetadata.Archived || thread.ThreadMetadata.Locked {
		return
	}
	client := a.Client()
	if client == nil || thread.OwnerID != client.ID() {
		return
	}
	parentID := thread.ParentID()
	if parentID == nil {
		return
	}

	ctx := context.Background()
	var enabled bool
	if err := a.Do(ctx, func() { enabled = a.Threadline.Enabled(*parentID) }); err != nil || !enabled {
		return
	}
	if !a.Allowed(*parentID, gate.ManageThreads) {
		return
	}

	archived := false
	if _, err := client.Rest.UpdateChannel(thread.ID(), discord.GuildThreadUpdate{Archived: &archived}, rest.WithCtx(ctx)); err != nil {
		sys.LogThreadline(sys.MsgThreadlineUnarchiveErr, thread.ID(), err)
		return
	}
	sys.LogThreadline(sys.MsgThreadlineUnarchived, thread.ID())
}
