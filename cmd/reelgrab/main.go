package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"thirdcoast.systems/reelgrab/internal/admission"
	"thirdcoast.systems/reelgrab/internal/application"
	"thirdcoast.systems/reelgrab/internal/config"
	"thirdcoast.systems/reelgrab/internal/db"
	"thirdcoast.systems/reelgrab/internal/dispatch"
	"thirdcoast.systems/reelgrab/internal/i18n"
	"thirdcoast.systems/reelgrab/internal/rapidapi"
	"thirdcoast.systems/reelgrab/internal/resolve"
	"thirdcoast.systems/reelgrab/internal/stats"
	"thirdcoast.systems/reelgrab/internal/telegram"
	"thirdcoast.systems/reelgrab/internal/web"
	"thirdcoast.systems/reelgrab/pkg/ytdlp"
)

const drainTimeout = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting reelgrab")

	config.LoadDotEnv()
	conf, err := config.LoadConfig(ctx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if conf.DatabaseRetries <= 0 {
		conf.DatabaseRetries = 10
	}
	if lang, ok := i18n.Parse(conf.DefaultLanguage); ok {
		i18n.Default = lang
	}

	pool, err := application.OpenDBPoolWithRetry(ctx, *conf)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	dbc, err := db.NewDatabaseConnection(ctx, pool)
	if err != nil {
		slog.Error("failed to create database connection", "error", err)
		os.Exit(1)
	}
	defer dbc.Close()

	if err := dbc.Migrate(ctx); err != nil {
		slog.Error("failed to run PostgreSQL migrations", "error", err)
		os.Exit(1)
	}
	store := db.NewStore(dbc)

	client := ytdlp.New()
	client.Path = conf.YtdlpPath
	client.Proxy = conf.ProxyURL
	if conf.YtdlpUpdate {
		updateCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		if err := client.Update(updateCtx); err != nil {
			slog.Warn("failed to update yt-dlp", "error", err)
		} else {
			slog.Info("yt-dlp updated successfully")
		}
		cancel()
	}
	if version, err := client.Version(ctx); err != nil {
		slog.Warn("yt-dlp is not runnable", "path", client.PathOrDefault(), "error", err)
	} else {
		slog.Info("Using yt-dlp", "path", client.PathOrDefault(), "version", version)
	}

	downloader := resolve.NewYTDLP(client, conf.SpoolDir)
	links := []resolve.Named{}
	if conf.RapidAPIKey != "" {
		api, err := rapidapi.NewClient(rapidapi.Options{
			Key:      conf.RapidAPIKey,
			Host:     conf.RapidAPIHost,
			ProxyURL: conf.ProxyURL,
		})
		if err != nil {
			slog.Error("failed to create RapidAPI client", "error", err)
			os.Exit(1)
		}
		links = append(links, resolve.Named{Name: "rapidapi", Resolver: resolve.NewRapidAPI(api)})
	}
	links = append(links, resolve.Named{Name: "yt-dlp", Resolver: downloader})
	resolver := resolve.NewChain(links...)

	queue := dispatch.NewQueue()
	registry := dispatch.NewRegistry()

	// The bot and its handlers reference each other; the default handler is
	// bound through a closure once both exist.
	var handlers *telegram.Handlers
	b, err := bot.New(conf.TelegramBotToken, bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
		handlers.Default(ctx, b, update)
	}))
	if err != nil {
		slog.Error("failed to create telegram bot", "error", err)
		os.Exit(1)
	}

	transport := telegram.NewTransport(b)
	gate := admission.NewGate(transport, conf.ChannelList())
	dispatcher := dispatch.NewDispatcher(queue, registry, gate, transport, store)
	handlers = telegram.NewHandlers(dispatcher, store, transport)

	workers := dispatch.NewPool(dispatch.PoolConfig{
		Workers:          conf.DownloadWorkers,
		TaskTimeout:      conf.TaskTimeout,
		RecheckAdmission: conf.RecheckAdmission,
	}, dispatch.PoolDeps{
		Queue:      queue,
		Registry:   registry,
		Gate:       gate,
		Resolver:   resolver,
		Deliverer:  transport,
		Downloader: downloader,
		Notifier:   transport,
		Prefs:      store,
	})
	workers.OnOutcome(dispatcher.HandleOutcome)

	if err := handlers.RegisterCommands(ctx); err != nil {
		slog.Warn("failed to register bot commands", "error", err)
	}

	reporter := stats.NewReporter(store, transport, conf.AdminIDs(), i18n.Default)
	if err := reporter.Schedule(conf.StatsSchedule); err != nil {
		slog.Error("failed to schedule stats report", "error", err)
		os.Exit(1)
	}
	reporter.Start()

	// Workers outlive ctx so queued tasks can drain after a signal.
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	workers.Start(workerCtx)

	if conf.WebServerPort != 0 {
		server := web.NewWebserver(store, queue, registry)
		addr := ":" + strconv.Itoa(conf.WebServerPort)
		go func() {
			if err := server.Run(ctx, addr); err != nil {
				slog.Error("server failed", "error", err)
				stop()
			}
		}()
	}

	slog.Info("Bot started", "channels", len(gate.Requirements()))
	b.Start(ctx)

	slog.Info("Reelgrab stopping", "queued", queue.Len())
	handlers.Wait()
	queue.Close()

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := queue.Wait(drainCtx); err != nil {
		slog.Warn("in-flight tasks did not finish before shutdown", "remaining", queue.Len(), "error", err)
		cancelWorkers()
	}
	workers.Wait()
	reporter.Stop(drainCtx)

	slog.Info("Reelgrab stopped")
}
