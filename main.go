package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/gateway"

	"github.com/leeineian/akeome/app"
	"github.com/leeineian/akeome/home"
	"github.com/leeineian/akeome/proc"
	"github.com/leeineian/akeome/store"
	"github.com/leeineian/akeome/sys"
)

const pidFile = ".bot.pid"

func main() {
	silent := flag.Bool("silent", false, "Disable all log output")
	skipReg := flag.Bool("skip-reg", false, "Skip command registration")
	clearAll := flag.Bool("clear-all", false, "Re-register commands even when unchanged")
	flag.Parse()

	cfg, err := sys.LoadConfig()
	if err != nil {
		sys.LogFatal(sys.MsgConfigFailedToLoad, err)
	}

	sys.InitLogger(*silent || cfg.Silent, cfg.Debug, cfg.LogFile, "")
	defer sys.CloseLogger()

	sys.LogInfo(sys.MsgBotStarting, sys.ProjectName)

	f, err := lockPIDFile()
	if err != nil {
		sys.LogFatal(sys.MsgGenericError, err)
	}
	defer func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
		_ = os.Remove(pidFile)
	}()

	if err := run(cfg, *silent, *skipReg, *clearAll); err != nil {
		sys.LogError(sys.MsgGenericError, err)
		sys.CloseLogger()
		os.Exit(1)
	}
}

// lockPIDFile takes an exclusive lock on the PID file, terminating whichever instance
// holds it, and writes our PID.
func lockPIDFile() (*os.File, error) {
	f, err := os.OpenFile(pidFile, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open PID file: %w", err)
	}

	for {
		err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			break
		}
		if !errors.Is(err, syscall.EWOULDBLOCK) {
			_ = f.Close()
			return nil, fmt.Errorf("lock PID file: %w", err)
		}

		var oldPid int
		_, _ = f.Seek(0, 0)
		if _, scanErr := fmt.Fscanf(f, "%d", &oldPid); scanErr != nil || oldPid == os.Getpid() {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		process, procErr := os.FindProcess(oldPid)
		if procErr != nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		sys.LogInfo(sys.MsgBotKillingOld, oldPid)
		if err := process.Signal(syscall.SIGTERM); err != nil {
			sys.LogWarn(sys.MsgBotKillFail, err)
		}

		terminated := false
		for range 50 {
			if err := process.Signal(syscall.Signal(0)); err != nil {
				terminated = true
				break
			}
			time.Sleep(100 * time.Millisecond)
		}
		if !terminated {
			_ = process.Signal(syscall.SIGKILL)
			time.Sleep(200 * time.Millisecond)
		}
		sys.LogInfo(sys.MsgBotOldTerminated)
	}

	_ = f.Truncate(0)
	_, _ = f.Seek(0, 0)
	if _, err := fmt.Fprintf(f, "%d", os.Getpid()); err != nil {
		sys.LogWarn(sys.MsgBotPIDWriteFail, err)
	}
	_ = f.Sync()
	return f, nil
}

func run(cfg *sys.Config, silent, skipReg, clearAll bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	// 1. State
	st, err := store.Open(ctx, store.Options{
		Backend:     cfg.Store.Backend,
		Path:        cfg.Store.Path,
		Key:         cfg.Store.Key,
		RedisURL:    cfg.Store.RedisURL,
		PostgresDSN: cfg.Store.PostgresDSN,
		S3: store.S3Options{
			Endpoint:  cfg.Store.S3.Endpoint,
			Bucket:    cfg.Store.S3.Bucket,
			AccessKey: cfg.Store.S3.AccessKey,
			SecretKey: cfg.Store.S3.SecretKey,
			UseSSL:    cfg.Store.S3.UseSSL,
		},
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	sys.LogStore(sys.MsgStoreOpened, st.Name())

	metrics := sys.NewMetrics()
	a := app.New(cfg, st, metrics)
	go a.Queue.Run(context.Background())
	defer a.Close(context.Background())

	if err := a.Load(ctx); err != nil {
		return err
	}

	// 2. Commands, handlers and daemons
	l := sys.NewLoader(ctx, filepath.Join(filepath.Dir(cfg.Store.Path), ".commands.hash"))
	home.Register(l, a)
	proc.Register(l, a)

	// 3. Discord client
	client, err := l.CreateClient(cfg)
	if err != nil {
		return fmt.Errorf(sys.MsgBotClientFail, err)
	}
	defer client.Close(context.Background())
	a.Attach(client)

	if !skipReg {
		if err := l.RegisterCommands(client, cfg.GuildID, clearAll); err != nil {
			sys.LogError(sys.MsgBotRegisterFail, err)
		}
	}

	// 4. Metrics
	if cfg.MetricsAddr != "" {
		sys.NewMetricsServer(cfg.MetricsAddr, metrics, func() error {
			if status := client.Gateway.Status(); status != gateway.StatusReady {
				return fmt.Errorf("gateway not ready: %v", status)
			}
			return nil
		}).Start(ctx)
	}

	// 5. Gateway
	if err := client.OpenGateway(ctx); err != nil {
		return fmt.Errorf(sys.MsgBotConnectFail, err)
	}

	<-ctx.Done()
	if !silent {
		fmt.Println()
	}

	l.ShutdownDaemons()
	if self, ok := client.Caches.SelfUser(); ok {
		sys.LogInfo(sys.MsgBotShutdown, self.Username)
	} else {
		sys.LogInfo(sys.MsgBotShutdown, sys.ProjectName)
	}
	return nil
}
