package home

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"

	"github.com/leeineian/akeome/app"
	"github.com/leeineian/akeome/gate"
	"github.com/leeineian/akeome/sys"
)

func init() {
	registrars = append(registrars, func(l *sys.Loader, a *app.App) {
		l.RegisterCommand(discord.SlashCommandCreate{
			Name:        "admin",
			Description: "全サーバーにお知らせを送信します（管理者専用）",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "message",
					Description: "送信する内容",
					Required:    true,
				},
				discord.ApplicationCommandOptionBool{
					Name:        "test",
					Description: "このチャンネルにだけ送信する",
					Required:    false,
				},
			},
		}, func(event *events.ApplicationCommandInteractionCreate) { handleAdmin(a, event) })
	})
}

// broadcastTargets lists the channels an announcement goes to and counts the guilds that
// have nowhere to send it.
func broadcastTargets(test bool, invoking snowflake.ID, guilds []discord.Guild) ([]snowflake.ID, int) {
	if test {
		return []snowflake.ID{invoking}, 0
	}
	var (
		targets []snowflake.ID
		missing int
	)
	for _, g := range guilds {
		if g.SystemChannelID == nil {
			missing++
			continue
		}
		targets = append(targets, *g.SystemChannelID)
	}
	return targets, missing
}

func handleAdmin(a *app.App, event *events.ApplicationCommandInteractionCreate) {
	a.Metrics.Command("admin")

	caller := event.User()
	if caller.ID != a.Config.AdminID {
		respondEphemeral(event, sys.MsgAdminNoPermission)
		return
	}

	data := event.SlashCommandInteractionData()
	content := data.String("message")
	test := data.Bool("test")

	if err := event.DeferCreateMessage(true); err != nil {
		sys.LogDebug(sys.MsgInteractionRespondFail, err)
		return
	}

	client := a.Client()
	var guilds []discord.Guild
	if !test {
		for g := range client.Caches.Guilds() {
			guilds = append(guilds, g)
		}
	}
	targets, skipped := broadcastTargets(test, event.Channel().ID(), guilds)

	ctx := context.Background()
	sent := 0
	for _, channelID := range targets {
		if !a.Allowed(channelID, gate.SendMessages) {
			skipped++
			continue
		}
		_, err := client.Rest.CreateMessage(channelID, discord.NewMessageCreate().WithContent(content), rest.WithCtx(ctx))
		if err != nil {
			sys.LogWarn(sys.MsgAkeomeSendFail, channelID, err)
			skipped++
			continue
		}
		sent++
	}
	sys.LogInfo(sys.MsgAdminBroadcast, caller.Username, sent, skipped)

	result := fmt.Sprintf(sys.MsgAdminResult, sent, skipped)
	if _, err := client.Rest.UpdateInteractionResponse(event.ApplicationID(), event.Token(), discord.MessageUpdate{
		Content: &result,
	}, rest.WithCtx(ctx)); err != nil {
		sys.LogDebug(sys.MsgInteractionRespondFail, err)
	}
}
