package proc

import (
	"context"
	"fmt"
	"sync"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/gateway"
	"github.com/robfig/cron/v3"

	"github.com/leeineian/akeome/app"
	"github.com/leeineian/akeome/sys"
)

func init() {
	registrars = append(registrars, func(l *sys.Loader, a *app.App) {
		l.RegisterDaemon(sys.LogPresence, func(ctx context.Context) (bool, func(), func()) {
			client := a.Client()
			if client == nil {
				return false, nil, nil
			}
			return StartPresenceRotator(ctx, a, client)
		})
	})
}

// PresenceSource is what the rotator reads each tick.
type PresenceSource interface {
	Latency() int64
	GuildCount() int
}

type clientSource struct{ client *bot.Client }

func (s clientSource) Latency() int64 { return s.client.Gateway.Latency().Milliseconds() }

func (s clientSource) GuildCount() int {
	n := 0
	for range s.client.Caches.Guilds() {
		n++
	}
	return n
}

// PresenceRotator alternates between a latency and a server count status.
type PresenceRotator struct {
	src  PresenceSource
	mu   sync.Mutex
	tick int
}

func NewPresenceRotator(src PresenceSource) *PresenceRotator {
	return &PresenceRotator{src: src}
}

// Next returns the status text for the next tick.
func (r *PresenceRotator) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer func() { r.tick++ }()

	if r.tick%2 == 0 {
		return fmt.Sprintf("Ping: %dms", r.src.Latency())
	}
	return fmt.Sprintf("Servers: %d", r.src.GuildCount())
}

// StartPresenceRotator schedules presence updates every PRESENCE_INTERVAL on a cron
// runner that is stopped at shutdown.
func StartPresenceRotator(ctx context.Context, a *app.App, client *bot.Client) (bool, func(), func()) {
	rotator := NewPresenceRotator(clientSource{client: client})
	runner := cron.New(cron.WithLocation(a.Config.Location()))

	update := func() {
		text := rotator.Next()
		err := client.SetPresence(ctx,
			gateway.WithPlayingActivity(text),
			gateway.WithOnlineStatus(discord.OnlineStatusOnline),
		)
		if err != nil {
			sys.LogPresence(sys.MsgPresenceUpdateFail, err)
			return
		}
		sys.LogDebug(sys.MsgPresenceUpdated, text)
	}

	spec := fmt.Sprintf("@every %s", a.Config.PresenceInterval)
	if _, err := runner.AddFunc(spec, func() { guard("presence", update) }); err != nil {
		sys.LogPresence(sys.MsgPresenceUpdateFail, err)
		return false, nil, nil
	}

	return true, func() {
			update()
			runner.Start()
			<-ctx.Done()
			<-runner.Stop().Done()
		}, func() {
			<-runner.Stop().Done()
		}
}
