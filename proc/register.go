// Package proc holds the bot's background daemons: the daily and annual resets and the
// presence rotator.
package proc

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/leeineian/akeome/app"
	"github.com/leeineian/akeome/sys"
)

var registrars []func(l *sys.Loader, a *app.App)

// Register hands every daemon in this package to the loader.
func Register(l *sys.Loader, a *app.App) {
	for _, r := range registrars {
		r(l, a)
	}
}

// guard runs one daemon iteration and keeps a panic from ending the loop.
func guard(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			sys.LogError(sys.MsgSchedulerPanic, name, r)
			sys.LogDebug("%s", debug.Stack())
		}
	}()
	fn()
}

// sleepUntil waits for the wall clock to reach t. It reports false if ctx ended first.
func sleepUntil(ctx context.Context, t time.Time) bool {
	return sleepFor(ctx, time.Until(t))
}

func sleepFor(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
