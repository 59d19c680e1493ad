// Package home holds the slash commands and gateway event handlers.
package home

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"

	"github.com/leeineian/akeome/app"
	"github.com/leeineian/akeome/sys"
)

var registrars []func(l *sys.Loader, a *app.App)

// Register hands every command and handler in this package to the loader.
func Register(l *sys.Loader, a *app.App) {
	for _, r := range registrars {
		r(l, a)
	}
}

func respondEphemeral(event *events.ApplicationCommandInteractionCreate, content string) {
	err := event.CreateMessage(discord.NewMessageCreate().
		WithContent(content).
		WithEphemeral(true))
	if err != nil {
		sys.LogDebug(sys.MsgInteractionRespondFail, err)
	}
}

func respond(event *events.ApplicationCommandInteractionCreate, msg discord.MessageCreate) {
	if err := event.CreateMessage(msg); err != nil {
		sys.LogDebug(sys.MsgInteractionRespondFail, err)
	}
}
