package sys

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

// safeGo runs a function in a new goroutine with panic recovery
func safeGo(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				LogError(MsgLoaderPanicRecovered, r)
				LogDebug("%s", debug.Stack())
			}
		}()
		f()
	}()
}

type CommandHandler func(event *events.ApplicationCommandInteractionCreate)

// DaemonStarter reports whether the daemon should run, its loop, and an optional
// shutdown hook.
type DaemonStarter func(ctx context.Context) (bool, func(), func())

type daemonEntry struct {
	starter DaemonStarter
	logger  func(format string, v ...any)
}

// Loader collects commands, gateway handlers and daemons before the client exists, then
// dispatches to them once it does.
type Loader struct {
	ctx       context.Context
	startedAt time.Time
	hashFile  string

	commands        []discord.ApplicationCommandCreate
	commandHandlers map[string]CommandHandler

	messageHandlers      []func(event *events.GuildMessageCreate)
	threadUpdateHandlers []func(event *events.ThreadUpdate)
	reactionHandlers     []func(event *events.GuildMessageReactionAdd)

	daemons       []daemonEntry
	daemonsOnce   sync.Once
	shutdownHooks []func()
	shutdownMu    sync.Mutex
}

// NewLoader binds the loader to the application context. hashFile remembers the last
// synced command set; empty disables the skip.
func NewLoader(ctx context.Context, hashFile string) *Loader {
	return &Loader{
		ctx:             ctx,
		startedAt:       time.Now(),
		hashFile:        hashFile,
		commandHandlers: make(map[string]CommandHandler),
	}
}

// --- Bot Initialization ---

// CreateClient creates and configures a disgo client
func (l *Loader) CreateClient(cfg *Config) (*bot.Client, error) {
	client, err := disgo.New(cfg.Token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMessages,
				gateway.IntentGuildMembers,
				gateway.IntentMessageContent,
				gateway.IntentGuildMessageReactions,
			),
			gateway.WithPresenceOpts(
				gateway.WithPlayingActivity("Loading..."),
				gateway.WithOnlineStatus(discord.OnlineStatusOnline),
			),
		),
		bot.WithCacheConfigOpts(
			cache.WithCaches(cache.FlagGuilds, cache.FlagMembers, cache.FlagRoles, cache.FlagChannels),
		),
		bot.WithEventListenerFunc(l.onApplicationCommandInteraction),
		bot.WithEventListenerFunc(l.onGuildMessageCreate),
		bot.WithEventListenerFunc(l.onThreadUpdate),
		bot.WithEventListenerFunc(l.onGuildMessageReactionAdd),
		bot.WithEventListenerFunc(l.onReady),
		bot.WithLogger(slog.Default()),
		bot.WithRestClientConfigOpts(
			rest.WithHTTPClient(&http.Client{
				Timeout: 30 * time.Second,
			}),
		),
	)
	if err != nil {
		return nil, err
	}

	return client, nil
}

// --- Command & Handler Registration ---

func (l *Loader) RegisterCommand(cmd discord.ApplicationCommandCreate, handler CommandHandler) {
	l.commands = append(l.commands, cmd)
	switch c := cmd.(type) {
	case discord.SlashCommandCreate:
		l.commandHandlers[c.CommandName()] = handler
	case discord.UserCommandCreate:
		l.commandHandlers[c.CommandName()] = handler
	case discord.MessageCommandCreate:
		l.commandHandlers[c.CommandName()] = handler
	}
}

func (l *Loader) Commands() []discord.ApplicationCommandCreate { return l.commands }

func (l *Loader) OnMessage(handler func(event *events.GuildMessageCreate)) {
	l.messageHandlers = append(l.messageHandlers, handler)
}

func (l *Loader) OnThreadUpdate(handler func(event *events.ThreadUpdate)) {
	l.threadUpdateHandlers = append(l.threadUpdateHandlers, handler)
}

func (l *Loader) OnReactionAdd(handler func(event *events.GuildMessageReactionAdd)) {
	l.reactionHandlers = append(l.reactionHandlers, handler)
}

// --- Command Syncing Logic ---

// calculateCommandHash generates a SHA256 hash of the commands slice
func calculateCommandHash(cmds []discord.ApplicationCommandCreate) string {
	data, err := json.Marshal(cmds)
	if err != nil {
		return ""
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// syncState is what the hash file remembers about the last successful sync.
type syncState struct {
	Mode    string `json:"mode"`
	GuildID string `json:"guild_id"`
	Hash    string `json:"hash"`
}

func (l *Loader) readSyncState() syncState {
	var state syncState
	if l.hashFile == "" {
		return state
	}
	data, err := os.ReadFile(l.hashFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			LogDebug("Failed to read %s: %v", l.hashFile, err)
		}
		return state
	}
	_ = json.Unmarshal(data, &state)
	return state
}

func (l *Loader) writeSyncState(state syncState) {
	if l.hashFile == "" {
		return
	}
	data, err := json.Marshal(state)
	if err == nil {
		if dir := filepath.Dir(l.hashFile); dir != "" {
			err = os.MkdirAll(dir, 0o755)
		}
	}
	if err == nil {
		err = os.WriteFile(l.hashFile, data, 0o644)
	}
	if err != nil {
		LogWarn(MsgLoaderHashWriteFail, err)
	}
}

// RegisterCommands syncs the command set to guildIDStr when set, otherwise globally.
// An unchanged set in the same mode is skipped unless force is given.
func (l *Loader) RegisterCommands(client *bot.Client, guildIDStr string, force bool) error {
	isProduction := guildIDStr == ""
	currentMode := "guild"
	if isProduction {
		currentMode = "global"
	}

	LogInfo(MsgLoaderSyncCommands, strings.ToUpper(currentMode))

	last := l.readSyncState()
	currentHash := calculateCommandHash(l.commands)

	shouldRegister := true
	if currentHash != "" && currentHash == last.Hash && currentMode == last.Mode && guildIDStr == last.GuildID && !force {
		shouldRegister = false
		LogInfo(MsgLoaderUpToDate, currentHash[:8])
	}

	if isProduction {
		if shouldRegister {
			LogInfo(MsgLoaderProdStarting)
			created, err := client.Rest.SetGlobalCommands(client.ApplicationID, l.commands)
			if err != nil {
				return fmt.Errorf(MsgLoaderProdFail, err)
			}
			for _, cmd := range created {
				LogInfo(MsgLoaderProdRegistered, cmd.Name())
			}
		}

		// Leaving dev mode: drop the commands left in the old dev guild.
		if last.GuildID != "" {
			if oldID, err := snowflake.Parse(last.GuildID); err == nil {
				_, _ = client.Rest.SetGuildCommands(client.ApplicationID, oldID, []discord.ApplicationCommandCreate{})
			}
		}
	} else {
		guildID, err := snowflake.Parse(guildIDStr)
		if err != nil {
			return fmt.Errorf("invalid GUILD_ID: %w", err)
		}

		if shouldRegister {
			LogInfo(MsgLoaderDevStarting, guildIDStr)
			created, err := client.Rest.SetGuildCommands(client.ApplicationID, guildID, l.commands)
			if err != nil {
				LogWarn(MsgLoaderDevFail, err)
				return nil
			}
			for _, cmd := range created {
				LogInfo(MsgLoaderDevRegistered, cmd.Name())
			}
		}

		if last.Mode != currentMode || force {
			if cmds, err := client.Rest.GetGlobalCommands(client.ApplicationID, false); err == nil && len(cmds) > 0 {
				LogInfo(MsgLoaderDevGlobalClear)
				if _, err := client.Rest.SetGlobalCommands(client.ApplicationID, []discord.ApplicationCommandCreate{}); err != nil {
					LogWarn(MsgLoaderDevGlobalClearFail, err)
				}
			}
		}
	}

	l.writeSyncState(syncState{Mode: currentMode, GuildID: guildIDStr, Hash: currentHash})
	return nil
}

// --- Event Handlers ---

func (l *Loader) onReady(event *events.Ready) {
	botUser := event.User

	duration := time.Since(l.startedAt)
	LogInfo(MsgBotReady, botUser.Username, botUser.ID.String(), os.Getpid(), duration.Milliseconds())

	l.StartDaemons(l.ctx)
}

func (l *Loader) onApplicationCommandInteraction(event *events.ApplicationCommandInteractionCreate) {
	data := event.Data
	if h, ok := l.commandHandlers[data.CommandName()]; ok {
		safeGo(func() { h(event) })
	}
}

func (l *Loader) onGuildMessageCreate(event *events.GuildMessageCreate) {
	for _, h := range l.messageHandlers {
		safeGo(func() { h(event) })
	}
}

func (l *Loader) onThreadUpdate(event *events.ThreadUpdate) {
	for _, h := range l.threadUpdateHandlers {
		safeGo(func() { h(event) })
	}
}

func (l *Loader) onGuildMessageReactionAdd(event *events.GuildMessageReactionAdd) {
	for _, h := range l.reactionHandlers {
		safeGo(func() { h(event) })
	}
}

// --- Daemon System ---

// RegisterDaemon registers a background daemon with a logger and start function
func (l *Loader) RegisterDaemon(logger func(format string, v ...any), starter DaemonStarter) {
	l.daemons = append(l.daemons, daemonEntry{starter: starter, logger: logger})
}

// StartDaemons starts every registered daemon once. Later calls, such as the Ready event
// firing again after a reconnect, do nothing.
func (l *Loader) StartDaemons(ctx context.Context) {
	l.daemonsOnce.Do(func() {
		type activeDaemon struct {
			entry daemonEntry
			run   func()
		}
		var active []activeDaemon

		for _, daemon := range l.daemons {
			if ok, run, shutdown := daemon.starter(ctx); ok && run != nil {
				if shutdown != nil {
					l.shutdownMu.Lock()
					l.shutdownHooks = append(l.shutdownHooks, shutdown)
					l.shutdownMu.Unlock()
				}
				active = append(active, activeDaemon{daemon, run})
			}
		}

		for _, ad := range active {
			ad.entry.logger(MsgDaemonStarting)
		}

		for _, ad := range active {
			safeGo(ad.run)
		}
	})
}

// ShutdownDaemons runs every shutdown hook and waits for them.
func (l *Loader) ShutdownDaemons() {
	l.shutdownMu.Lock()
	defer l.shutdownMu.Unlock()

	var wg sync.WaitGroup
	for _, shutdown := range l.shutdownHooks {
		if shutdown != nil {
			wg.Add(1)
			go func(s func()) {
				defer wg.Done()
				s()
			}(shutdown)
		}
	}
	wg.Wait()
	l.shutdownHooks = nil
}
