package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"familyhub/internal/calendar"
	"familyhub/internal/capture"
	"familyhub/internal/config"
	"familyhub/internal/family"
	"familyhub/internal/hass"
	"familyhub/internal/hub"
	"familyhub/internal/ics"
	"familyhub/internal/kv"
	appLog "familyhub/internal/log"
	"familyhub/internal/model"
	"familyhub/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	snapshot   string
	debug      bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	level := conf.LogLevel
	if flags.debug {
		level = "debug"
	}
	appLog.SetLevel(appLog.ParseLevel(level))

	appLog.Info("familyhub starting", "version", "0.1.0")
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"refresh", conf.RefreshCron,
		"state_path", conf.StatePath,
		"seed_ics", conf.SeedICS,
		"family_count", len(conf.Family),
		"metrics_enabled", conf.MetricsEnabled,
		"once", flags.once,
		"snapshot", flags.snapshot,
	)

	loc := resolveLocationOrLocal(conf.Timezone)

	store, err := kv.Open(conf.StatePath)
	if err != nil {
		appLog.Error("failed to open state store", err, "state_path", conf.StatePath)
		os.Exit(1)
	}

	members := family.NewRegistry(conf.Family, conf.DefaultColor)
	events := calendar.NewStore(loc, members.ColorFor)
	events.SetLocal(loadSeedEvents(conf, loc))

	h := hub.New(store, hass.NewClient(time.Duration(conf.RequestTimeoutSeconds)*time.Second), events, members, hub.Options{
		DefaultColor: conf.DefaultColor,
		Location:     loc,
		WeekStart:    calendar.ParseWeekStart(conf.WeekStart),
	})

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

	if flags.once {
		if err := runOnce(ctx, h); err != nil {
			appLog.Error("sync failed", err)
			os.Exit(1)
		}
		return
	}

	srv := web.NewServer(conf, h)

	if flags.snapshot != "" {
		if err := runSnapshot(ctx, conf, srv, flags.snapshot); err != nil {
			appLog.Error("snapshot failed", err, "output", flags.snapshot)
			os.Exit(1)
		}
		return
	}

	if conf.RefreshEnabled() {
		sched, err := startRefresh(ctx, conf.RefreshCron, loc, h)
		if err != nil {
			appLog.Error("invalid refresh schedule; background refresh disabled", err, "refresh", conf.RefreshCron)
		} else {
			defer sched.Stop()
		}
	}

	if err := srv.ListenAndServe(ctx); err != nil {
		appLog.Error("HTTP server failed", err, "listen", conf.Listen)
		os.Exit(1)
	}
	appLog.Info("familyhub exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/familyhub/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Sync the current week from Home Assistant once and exit")
	flag.StringVar(&cfg.snapshot, "snapshot", "", "Write a PNG snapshot of the dashboard to this path and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}

// loadSeedEvents returns the local events the hub starts with: the
// configured seed calendar expanded around today, or the demo events.
func loadSeedEvents(conf *config.Config, loc *time.Location) []model.CalendarEvent {
	now := time.Now().In(loc)
	if conf.SeedICS == "" {
		return calendar.DemoEvents(now)
	}

	horizon := conf.SeedHorizonDays
	seed, err := ics.LoadSeed(conf.SeedICS, now.AddDate(0, 0, -horizon), now.AddDate(0, 0, horizon), loc)
	if err != nil {
		appLog.Error("failed to load seed calendar; using demo events", err, "path", conf.SeedICS)
		return calendar.DemoEvents(now)
	}
	appLog.Info("seed calendar loaded", "path", conf.SeedICS, "event_count", len(seed))
	return seed
}

// startRefresh schedules a re-sync of the current week.
func startRefresh(ctx context.Context, schedule string, loc *time.Location, h *hub.Hub) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(loc))
	_, err := c.AddFunc(schedule, func() {
		_, err := h.Refresh(ctx)
		var fe *hass.FetchError
		if errors.As(err, &fe) && fe.Kind == hass.KindNotConnected {
			appLog.Debug("scheduled refresh skipped; not connected")
			return
		}
		if err != nil {
			appLog.Error("scheduled refresh failed", err)
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	appLog.Info("background refresh scheduled", "refresh", schedule)
	return c, nil
}

func runOnce(ctx context.Context, h *hub.Hub) error {
	res, err := h.Refresh(ctx)
	if err != nil {
		return errors.New(hub.UserMessage(err))
	}
	fmt.Printf("Loaded %d events from Home Assistant\n", res.Events)
	if msg := hub.UserMessage(res.Partial()); msg != "" {
		fmt.Println(msg)
	}
	return nil
}

// runSnapshot serves the dashboard on the configured address just long
// enough to capture it.
func runSnapshot(ctx context.Context, conf *config.Config, srv *web.Server, output string) error {
	ln, err := net.Listen("tcp", conf.Listen)
	if err != nil {
		return err
	}

	serveCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(serveCtx, ln) }()

	opts := capture.Options{
		URL:        "http://" + dialAddr(ln.Addr()) + "/?view=week",
		OutputPath: output,
	}
	if conf.BasicAuth != nil {
		opts.Username = conf.BasicAuth.Username
		opts.Password = conf.BasicAuth.Password
	}
	captureErr := capture.CaptureDashboardPNG(ctx, opts)

	stop()
	if err := <-done; err != nil && captureErr == nil {
		return err
	}
	if captureErr == nil {
		appLog.Info("snapshot written", "output", output)
	}
	return captureErr
}

// dialAddr turns a listen address into one a local browser can reach.
func dialAddr(addr net.Addr) string {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" || name == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}
