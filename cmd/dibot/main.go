package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/amryu/dibot/internal/calendar"
	"github.com/amryu/dibot/internal/config"
	"github.com/amryu/dibot/internal/discord"
	"github.com/amryu/dibot/internal/dispatch"
	"github.com/amryu/dibot/internal/logging"
	"github.com/amryu/dibot/internal/notify"
	"github.com/amryu/dibot/internal/roster"
	"github.com/amryu/dibot/internal/schedule"
	"github.com/amryu/dibot/internal/scrape"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(conf.Env, conf.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(conf, log); err != nil {
		log.Fatal("fatal", zap.Error(err))
	}
}

func run(conf *config.Config, log *zap.Logger) error {
	log.Info("dibot starting",
		zap.String("base_url", conf.BaseURL),
		zap.Strings("calendars", conf.Calendars),
		zap.String("data_dir", conf.DataDir))

	if err := os.MkdirAll(conf.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("signal received, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	// Roster: headless-browser scrape source behind the registry.
	source := scrape.NewClient(conf.BaseURL, scrapeCookies(conf.Auth.Cookies), 0, log)
	registry := roster.NewRegistry(source, filepath.Join(conf.DataDir, "mdr.json"), log)
	if err := registry.Load(); err != nil {
		return fmt.Errorf("load roster snapshot: %w", err)
	}

	// Calendars: one store per configured feed.
	set, err := calendar.LoadSet(filepath.Join(conf.DataDir, "calendars"), conf.Calendars)
	if err != nil {
		return fmt.Errorf("load calendar snapshots: %w", err)
	}

	fetcher := calendar.NewFetcher(calendar.FetcherOptions{
		BaseURL:   conf.BaseURL,
		MemberID:  conf.Auth.MemberID,
		MemberKey: conf.Auth.MemberKey,
		Cookies:   httpCookies(conf.Auth.Cookies),
		CacheDir:  filepath.Join(conf.DataDir, "feedcache"),
	}, log)

	// Discord session and the notification pipeline behind it.
	client, err := discord.New(conf.DiscordToken, log)
	if err != nil {
		return err
	}
	if err := client.Open(); err != nil {
		return err
	}
	defer client.Close()

	disp := dispatch.New(time.Duration(conf.DrainSeconds)*time.Second, log)
	go disp.Run(ctx)

	notifier := notify.New(disp, client, registry, conf.BaseURL, log)

	sched := schedule.New(registry, fetcher, set, notifier, schedule.Options{
		RosterCron:   conf.RosterCron,
		CalendarCron: conf.CalendarCron,
		FastStart:    time.Duration(conf.CalendarFastStartSeconds) * time.Second,
	}, log)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()
	sched.Stop()
	log.Info("dibot exiting")
	return nil
}

func scrapeCookies(cookies []config.Cookie) []scrape.Cookie {
	out := make([]scrape.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, scrape.Cookie{Name: c.Name, Value: c.Value, Domain: c.Domain, Path: c.Path})
	}
	return out
}

func httpCookies(cookies []config.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value, Domain: c.Domain, Path: c.Path})
	}
	return out
}
