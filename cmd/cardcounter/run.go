package main

import (
	"fmt"
	"time"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/cardcounter/cmd/cardcounter/shared"
	"github.com/lox/cardcounter/internal/config"
	"github.com/lox/cardcounter/internal/counter"
	"github.com/lox/cardcounter/internal/dedup"
	"github.com/lox/cardcounter/internal/httpapi"
	"github.com/lox/cardcounter/internal/scheduler"
	"github.com/lox/cardcounter/internal/settings"
	"github.com/lox/cardcounter/internal/tally"
	"github.com/lox/cardcounter/internal/telegram"
)

// RunCmd starts the bot.
type RunCmd struct {
	Config   string `short:"c" default:"cardcounter.hcl" help:"Path to HCL configuration file"`
	EnvFile  string `name:"env-file" default:".env" help:"Dotenv file loaded into the environment"`
	Addr     string `short:"a" help:"HTTP address to bind to (overrides config)"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
}

func (c *RunCmd) Run() error {
	if err := config.LoadDotEnv(c.EnvFile); err != nil {
		return err
	}
	cfg, err := config.Load(c.Config)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if c.Addr != "" {
		cfg.HTTP.Addr = c.Addr
	}
	if c.LogLevel != "" {
		cfg.Log.Level = c.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := shared.SetupLogger(cfg.LogLevel())
	ctx := shared.SetupSignalHandler(logger)

	st, err := settings.Load(cfg.Report.SettingsFile, settings.Settings{
		StatChannel:     cfg.Channels.Stat,
		DisplayChannel:  cfg.Channels.Display,
		IntervalMinutes: cfg.Report.IntervalMinutes,
	})
	if err != nil {
		return err
	}
	current := st.Get()
	if current.StatChannel == 0 {
		logger.Warn("Stat channel not configured, nothing will be counted until /set_stat")
	}

	dd, err := dedup.Open(ctx, dedup.Config{
		Driver: cfg.Dedup.Driver,
		Path:   cfg.Dedup.Path,
		DSN:    cfg.Dedup.DSN,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := dd.Close(); err != nil {
			logger.Error("Failed to close dedup store", "error", err)
		}
	}()

	api, err := telegram.Connect(cfg.Telegram.Token)
	if err != nil {
		return err
	}
	logger.Info("Authorized on Telegram", "bot", api.Self.UserName)

	hub := httpapi.NewHub(logger)
	defer hub.Close()

	svc := counter.New(logger, tally.NewStore(), dd, telegram.NewSender(api), st,
		counter.WithAdmin(cfg.Telegram.AdminID),
		counter.WithFeed(hub),
		counter.WithInstantSummary(cfg.Instant()),
	)
	interval := time.Duration(current.IntervalMinutes) * time.Minute
	sched := scheduler.New(quartz.NewReal(), logger, interval, svc.ReportAndSend)
	svc.AttachScheduler(sched)

	logger.Info("Starting card counter",
		"version", version,
		"stat_channel", current.StatChannel,
		"display_channel", current.DisplayChannel,
		"interval", interval,
		"dedup", cfg.Dedup.Driver,
		"http", cfg.HTTP.Addr)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sched.Start(ctx)
		<-ctx.Done()
		sched.Stop()
		return nil
	})
	g.Go(func() error {
		return telegram.NewBot(api, svc, logger, cfg.Telegram.Timeout).Run(ctx)
	})
	g.Go(func() error {
		return httpapi.NewServer(cfg.HTTP.Addr, svc, hub, logger).Run(ctx)
	})

	err = g.Wait()
	logger.Info("Card counter stopped")
	return err
}
