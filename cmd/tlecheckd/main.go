// Tlecheckd is the TLE validation daemon.
//
// It loads configuration, starts the HTTP/WebSocket server that parses and
// validates element sets on request, and optionally replays a demo catalog.
// Shutdown is handled gracefully on SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/large-farva/tlecheck/internal/app"
	"github.com/large-farva/tlecheck/internal/config"
)

const defaultConfigPath = "/etc/tlecheck/tlecheck.toml"

func main() {
	var (
		configPath = pflag.StringP("config", "c", defaultConfigPath, "Path to config TOML")
		bind       = pflag.String("bind", "", "HTTP bind address (overrides server.bind)")
		level      = pflag.String("log-level", "", "Log level (overrides logging.level)")
		noDemo     = pflag.Bool("no-demo", false, "Disable the demo catalog replay")
	)
	pflag.Parse()

	cfg, loadedFrom, err := loadConfig(*configPath, pflag.CommandLine.Changed("config"))
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *level != "" {
		cfg.Logging.Level = *level
	}
	if *noDemo {
		cfg.Demo.Enabled = false
	}

	out, closer, err := app.OpenLogOutput(cfg.Logging)
	if err != nil {
		log.Fatalf("log setup failed: %v", err)
	}
	defer closer.Close()

	logger := app.NewLogger(log.New(out, "tlecheckd ", app.LogFlags), app.ParseLevel(cfg.Logging.Level))
	if loadedFrom == "" {
		logger.Infof("no config file at %s, using defaults", *configPath)
	} else {
		logger.Infof("config loaded from %s", loadedFrom)
	}

	a := app.New(app.Options{
		Logger:     logger,
		Cfg:        cfg,
		ConfigPath: loadedFrom,
		Bind:       *bind,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		logger.Fatalf("tlecheckd failed: %v", err)
	}

	// Brief pause so in-flight log writes can flush before exit.
	time.Sleep(50 * time.Millisecond)
}

// loadConfig reads path. A missing file at the default location falls back
// to built-in defaults; an explicitly named file must exist.
func loadConfig(path string, explicit bool) (config.Config, string, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, path, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return config.Default(), "", nil
	}
	return cfg, "", err
}
