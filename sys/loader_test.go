package sys

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartDaemonsRunsOnce(t *testing.T) {
	l := NewLoader(context.Background(), "")

	var starts, runs, stops int32
	ran := make(chan struct{}, 4)
	l.RegisterDaemon(LogScheduler, func(ctx context.Context) (bool, func(), func()) {
		atomic.AddInt32(&starts, 1)
		return true, func() {
			atomic.AddInt32(&runs, 1)
			ran <- struct{}{}
		}, func() { atomic.AddInt32(&stops, 1) }
	})
	l.RegisterDaemon(LogPresence, func(ctx context.Context) (bool, func(), func()) {
		return false, nil, nil
	})

	l.StartDaemons(context.Background())
	l.StartDaemons(context.Background())

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("daemon never ran")
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&starts))
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))

	l.ShutdownDaemons()
	l.ShutdownDaemons()
	assert.Equal(t, int32(1), atomic.LoadInt32(&stops))
}

func TestRegisterCommandRoutesByName(t *testing.T) {
	l := NewLoader(context.Background(), "")

	called := ""
	l.RegisterCommand(discord.SlashCommandCreate{Name: "ranking-top", Description: "ranking"},
		func(event *events.ApplicationCommandInteractionCreate) { called = "ranking-top" })

	require.Len(t, l.Commands(), 1)
	h, ok := l.commandHandlers["ranking-top"]
	require.True(t, ok)
	h(nil)
	assert.Equal(t, "ranking-top", called)
}

func TestSyncStateRoundTrip(t *testing.T) {
	l := NewLoader(context.Background(), filepath.Join(t.TempDir(), "data", ".commands.hash"))

	assert.Equal(t, syncState{}, l.readSyncState())

	want := syncState{Mode: "guild", GuildID: "1100000000000000001", Hash: "abc"}
	l.writeSyncState(want)
	assert.Equal(t, want, l.readSyncState())
}

func TestCommandHashChangesWithCommands(t *testing.T) {
	a := []discord.ApplicationCommandCreate{discord.SlashCommandCreate{Name: "admin", Description: "a"}}
	b := []discord.ApplicationCommandCreate{discord.SlashCommandCreate{Name: "admin", Description: "b"}}

	assert.Equal(t, calculateCommandHash(a), calculateCommandHash(a))
	assert.NotEqual(t, calculateCommandHash(a), calculateCommandHash(b))
}
