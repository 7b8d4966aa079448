package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"localcal/internal/app"
	"localcal/internal/config"
	"localcal/internal/feed"
	"localcal/internal/localstore"
	appLog "localcal/internal/log"
	"localcal/internal/remind"
	"localcal/internal/store"
	"localcal/internal/web"
)

// rescanEvery is how often the reminder scheduler re-scans the event set,
// independent of store changes, so events drift into the one-minute window.
const rescanEvery = "@every 30s"

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	debug      bool
}

func main() {
	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	appLog.Info("localcal starting", "version", "0.1.0")

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	loc, err := conf.Location()
	if err != nil {
		appLog.Error("invalid timezone", err, "timezone", conf.Timezone)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", loc.String(),
		"feed_url", conf.FeedURL,
		"ics_count", len(conf.ICS),
		"store_path", conf.StorePath,
		"refresh", conf.RefreshCron,
		"horizon_days", conf.HorizonDays,
		"notify", conf.Notify.Enabled,
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	local, err := localstore.Open(conf.StorePath)
	if err != nil {
		appLog.Error("failed to open local store", err, "path", conf.StorePath)
		os.Exit(1)
	}
	defer local.Close()

	st := store.New(local, buildFeed(conf, loc))
	ctrl := app.New(st, time.Now)

	if flags.once {
		runOnce(ctx, st, ctrl, loc)
		return
	}

	var notifier remind.Notifier
	if conf.Notify.Enabled {
		notifier = &remind.DesktopNotifier{Icon: conf.Notify.Icon}
	}

	alerts := remind.NewAlertBox()
	scheduler := remind.NewScheduler(notifier, alerts, loc)
	defer scheduler.Stop()

	// Every change to the event set triggers a scheduling pass.
	st.OnChange(func() {
		scheduler.Rescan(st.Events())
	})

	st.Load(ctx)

	c := cron.New()
	if _, err := c.AddFunc(conf.RefreshCron, func() {
		appLog.Debug("refreshing static feed")
		st.Load(ctx)
	}); err != nil {
		appLog.Error("invalid refresh cron spec", err, "spec", conf.RefreshCron)
		os.Exit(1)
	}
	if _, err := c.AddFunc(rescanEvery, func() {
		scheduler.Rescan(st.Events())
	}); err != nil {
		appLog.Error("invalid rescan cron spec", err, "spec", rescanEvery)
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	server := web.NewServer(conf, loc, ctrl, st, alerts)
	if err := server.Run(ctx); err != nil {
		appLog.Error("HTTP server stopped", err)
		os.Exit(1)
	}

	appLog.Info("localcal exiting")
}

// buildFeed assembles the static feed from the configured JSON URL and ICS
// sources. Returns nil when no source is configured.
func buildFeed(conf *config.Config, loc *time.Location) store.Feed {
	fetcher := feed.NewFetcher(conf.CacheDir)

	sources := make(store.MultiFeed, 0, 1+len(conf.ICS))
	if conf.FeedURL != "" {
		sources = append(sources, store.JSONFeed(fetcher, conf.FeedURL))
	}
	for _, ics := range conf.ICS {
		src := feed.ICSSource{ID: ics.ID, Name: ics.Name, URL: ics.URL}
		sources = append(sources, store.ICSFeed(fetcher, src, loc, conf.HorizonDays))
	}

	if len(sources) == 0 {
		return nil
	}
	return sources
}

// runOnce loads the event set and prints today's resolved events as JSON.
func runOnce(ctx context.Context, st *store.Store, ctrl *app.Controller, loc *time.Location) {
	st.Load(ctx)

	today := time.Now().In(loc)
	events := ctrl.Day(time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(events); err != nil {
		appLog.Error("failed to encode events", err)
		os.Exit(1)
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Load events, print today's resolved list as JSON, and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
