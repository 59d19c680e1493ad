// Package app wires the bot's state, its store and the event queue together. Handlers and
// daemons receive an *App instead of reaching for package globals.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/time/rate"

	"github.com/leeineian/akeome/gate"
	"github.com/leeineian/akeome/ledger"
	"github.com/leeineian/akeome/store"
	"github.com/leeineian/akeome/sys"
	"github.com/leeineian/akeome/threadline"
)

type App struct {
	Config     *sys.Config
	Ledger     *ledger.Ledger
	Threadline *threadline.Settings
	Classifier threadline.Classifier
	Store      store.Store
	Queue      *sys.Queue
	Metrics    *sys.Metrics

	// ThreadPacer spaces out thread creation so a busy channel cannot exhaust the REST
	// rate limit for everything else.
	ThreadPacer *rate.Limiter

	client *bot.Client
	gate   *gate.Resolver

	// version is only touched on the queue consumer.
	version uint64

	// loaded is set once Load has restored or repaired the state. Until then nothing in
	// memory may be written over the store.
	loaded atomic.Bool

	saveMu  sync.Mutex
	written uint64
}

func New(cfg *sys.Config, st store.Store, metrics *sys.Metrics, opts ...ledger.Option) *App {
	perMinute := cfg.ThreadRatePerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	burst := perMinute / 10
	if burst < 1 {
		burst = 1
	}

	return &App{
		Config:      cfg,
		Ledger:      ledger.New(cfg.Location(), opts...),
		Threadline:  threadline.NewSettings(),
		Classifier:  threadline.Classifier{CommandPrefix: cfg.CommandPrefix},
		Store:       st,
		Queue:       sys.NewQueue(256),
		Metrics:     metrics,
		ThreadPacer: rate.NewLimiter(rate.Limit(float64(perMinute)/60), burst),
	}
}

// Attach binds the gateway client once it exists. Permission checks read its cache.
func (a *App) Attach(client *bot.Client) {
	a.client = client
	a.gate = gate.NewResolver(client.Caches, client.ID(), a.Metrics)
}

func (a *App) Client() *bot.Client { return a.client }

// Allowed reports whether the bot holds an explicit grant for capability in channelID.
// Before Attach nothing is allowed.
func (a *App) Allowed(channelID snowflake.ID, capability gate.Capability) bool {
	if a.gate == nil {
		return false
	}
	return a.gate.Allowed(channelID, capability)
}

// MemberName is the display name of userID in guildID, or a placeholder when the member is
// not cached.
func (a *App) MemberName(guildID, userID snowflake.ID) string {
	if a.client != nil {
		if m, ok := a.client.Caches.Member(guildID, userID); ok {
			return threadline.DisplayName(m.User, &m)
		}
	}
	return fmt.Sprintf(sys.MsgRankingUnknownUser, userID)
}

// Do runs fn on the event queue and waits for it.
func (a *App) Do(ctx context.Context, fn func()) error {
	return a.Queue.Call(ctx, fn)
}

// Load restores state from the store. A missing or unreadable document starts the bot
// empty and is replaced by a clean one straight away; any other store error is returned.
func (a *App) Load(ctx context.Context) error {
	repair := false

	doc, err := a.Store.Load(ctx)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		sys.LogStore(sys.MsgStoreEmpty, a.Store.Name())
		doc, repair = store.NewDocument(), true
	case errors.Is(err, store.ErrMalformed):
		sys.LogWarn(sys.MsgStoreMalformed, a.Store.Name(), err)
		doc, repair = store.NewDocument(), true
	default:
		return fmt.Errorf("load state: %w", err)
	}

	var dropped []error
	err = a.Do(ctx, func() {
		dropped = append(dropped, a.Ledger.Restore(doc)...)
		dropped = append(dropped, a.Threadline.Restore(doc)...)

		winners := len(doc.FirstWinners)
		start := "none"
		if d, ok := a.Ledger.SeasonStart(); ok {
			start = d.String()
		}
		sys.LogLedger(sys.MsgLedgerRestored, winners, len(doc.History), start)
	})
	if err != nil {
		return fmt.Errorf("restore state: %w", err)
	}

	a.loaded.Store(true)

	for _, e := range dropped {
		sys.LogWarn(sys.MsgStoreDroppedRecord, e)
	}

	if repair || len(dropped) > 0 {
		if err := a.Persist(ctx); err != nil {
			sys.LogWarn(sys.MsgStoreSaveFail, err)
		}
	}
	return nil
}

// Persist snapshots the state on the queue and writes it from the calling goroutine. A
// snapshot older than one already written is dropped.
func (a *App) Persist(ctx context.Context) error {
	var (
		doc     *store.Document
		version uint64
	)
	err := a.Do(ctx, func() {
		a.version++
		version = a.version
		doc = a.snapshot()
	})
	if err != nil {
		return fmt.Errorf("snapshot state: %w", err)
	}
	return a.write(ctx, version, doc)
}

func (a *App) snapshot() *store.Document {
	doc := store.NewDocument()
	a.Ledger.Export(doc)
	a.Threadline.Export(doc)
	return doc
}

func (a *App) write(ctx context.Context, version uint64, doc *store.Document) error {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	if version <= a.written {
		return nil
	}

	start := time.Now()
	err := a.Store.Save(ctx, doc)
	a.Metrics.StoreSave(time.Since(start), err)
	if err != nil {
		return fmt.Errorf("save state to %s: %w", a.Store.Name(), err)
	}
	a.written = version
	return nil
}

// Close flushes the state one last time and releases the store. State that was never
// loaded is not flushed.
func (a *App) Close(ctx context.Context) {
	if a.loaded.Load() {
		if err := a.Persist(ctx); err != nil && !errors.Is(err, sys.ErrQueueClosed) {
			sys.ComponentWarn("store", sys.MsgStoreSaveFail, err)
		}
	}
	a.Queue.Close()
	if err := a.Store.Close(); err != nil {
		sys.ComponentWarn("store", sys.MsgStoreCloseFail, a.Store.Name(), err)
	}
}
