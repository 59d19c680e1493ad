package home

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/omit"
	"github.com/disgoorg/snowflake/v2"

	"github.com/leeineian/akeome/app"
	"github.com/leeineian/akeome/sys"
	"github.com/leeineian/akeome/threadline"
)

var threadlineOptionDesc = map[threadline.Category]string{
	threadline.CategoryMessage: "テキストメッセージからスレッドを作成",
	threadline.CategoryPoll:    "投票からスレッドを作成",
	threadline.CategoryMedia:   "画像・動画・音声からスレッドを作成",
	threadline.CategoryFile:    "ファイルからスレッドを作成",
	threadline.CategoryLink:    "リンクからスレッドを作成",
}

func init() {
	manageChannels := discord.PermissionManageChannels

	registrars = append(registrars, func(l *sys.Loader, a *app.App) {
		var options []discord.ApplicationCommandOption
		for _, c := range []threadline.Category{
			threadline.CategoryMessage,
			threadline.CategoryPoll,
			threadline.CategoryMedia,
			threadline.CategoryFile,
			threadline.CategoryLink,
		} {
			options = append(options, discord.ApplicationCommandOptionBool{
				Name:        c.String(),
				Description: threadlineOptionDesc[c],
				Required:    false,
			})
		}

		l.RegisterCommand(discord.SlashCommandCreate{
			Name:                     "threadline",
			Description:              "このチャンネルでスレッドを自動作成する種類を設定します",
			DefaultMemberPermissions: omit.New(&manageChannels),
			Contexts: []discord.InteractionContextType{
				discord.InteractionContextTypeGuild,
			},
			Options: options,
		}, func(event *events.ApplicationCommandInteractionCreate) { handleThreadline(a, event) })
	})
}

// threadlineSet reads the command's boolean options. Unset options count as false.
func threadlineSet(data discord.SlashCommandInteractionData) threadline.Set {
	var set threadline.Set
	for c := range threadlineOptionDesc {
		if data.Bool(c.String()) {
			set = set.With(c)
		}
	}
	return set
}

func threadlineReply(channelID snowflake.ID, set threadline.Set) string {
	if set.Empty() {
		return fmt.Sprintf(sys.MsgThreadlineDisabled, channelID)
	}
	return fmt.Sprintf(sys.MsgThreadlineReply, channelID, set)
}

func handleThreadline(a *app.App, event *events.ApplicationCommandInteractionCreate) {
	a.Metrics.Command("threadline")

	if event.GuildID() == nil {
		respondEphemeral(event, sys.MsgRankingGuildOnly)
		return
	}

	channelID := event.Channel().ID()
	set := threadlineSet(event.SlashCommandInteractionData())

	ctx := context.Background()
	if err := a.Do(ctx, func() { a.Threadline.Enable(channelID, set) }); err != nil {
		sys.LogWarn(sys.MsgGenericError, err)
		return
	}
	sys.LogThreadline(sys.MsgThreadlineConfigured, channelID, set)

	respondEphemeral(event, threadlineReply(channelID, set))

	if err := a.Persist(ctx); err != nil {
		sys.ComponentWarn("store", sys.MsgThreadlineSaveFail, err)
	}
}
