package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"moncal/internal/capture"
	"moncal/internal/config"
	appLog "moncal/internal/log"
	"moncal/internal/snapshot"
	"moncal/internal/store"
	"moncal/internal/web"
)

const version = "0.1.0"

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	debug      bool
	once       bool
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		hashPassword(os.Args[2:])
		return
	}

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
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	appLog.Info("moncal starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"auth", conf.AuthEnabled(),
		"capture_scale", conf.Capture.Scale,
		"snapshot_cron", conf.Snapshot.Cron,
		"snapshot_dir", conf.Snapshot.Dir,
		"event_types", len(conf.Defaults.EventTypes),
	)

	st := store.New(conf.InitialState(time.Now()))
	raster := capture.Chromium{
		Width:   conf.Capture.Width,
		Height:  conf.Capture.Height,
		Scale:   conf.Capture.Scale,
		Timeout: conf.Capture.Timeout(),
	}
	sched := snapshot.New(st, raster, conf.Snapshot.Dir, conf.Location(), conf.Capture.Timeout())

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if flags.once {
		path, err := sched.RunOnce(ctx)
		if err != nil {
			appLog.Error("one-shot export failed", err)
			os.Exit(1)
		}
		appLog.Info("one-shot export written", "path", path)
		return
	}

	if err := sched.Start(conf.Snapshot.Cron); err != nil {
		appLog.Error("failed to start snapshot scheduler", err)
		os.Exit(1)
	}
	defer sched.Stop()

	srv := web.NewServer(conf, st, raster, flags.debug)
	if err := srv.Run(ctx); err != nil {
		appLog.Error("http server failed", err)
		sched.Stop()
		os.Exit(1)
	}

	appLog.Info("moncal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/moncal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging and request logs")
	flag.BoolVar(&cfg.once, "once", false, "Export the current month to the snapshot dir and exit")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: moncal [OPTIONS]\n       moncal hash-password [OPTIONS]\n\nOptions:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	return cfg
}
