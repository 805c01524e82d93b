package main

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"headline-monitor/monitor"
)

// app is one wired monitor: state, engine, collaborators and loop.
type app struct {
	state  *monitor.State
	engine *monitor.Engine
	runner *monitor.Runner
	logger zerolog.Logger
}

func buildApp(ctx context.Context, cfg *monitor.Config, logger zerolog.Logger, dryRun bool) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	state, openErrs := monitor.OpenState(ctx, cfg.State, loc)
	for _, e := range openErrs {
		logger.Warn().Err(e).Msg("state store opened degraded")
	}

	engine, err := monitor.NewEngine(state.EngineDeps(loc, logger.With().Str("component", "engine").Logger()))
	if err != nil {
		_ = state.Close()
		return nil, err
	}

	notifier, err := buildNotifier(cfg, logger, dryRun)
	if err != nil {
		_ = state.Close()
		return nil, err
	}

	fetcher := monitor.NewPageFetcher(
		cfg.Source.URL,
		&http.Client{Timeout: cfg.Source.FetchTimeout.Std()},
		cfg.Source.UserAgent,
		cfg.ExtractOptions(),
	)

	runner, err := monitor.NewRunner(cfg.RunnerConfig(), engine, fetcher, notifier, logger)
	if err != nil {
		_ = state.Close()
		return nil, err
	}
	return &app{state: state, engine: engine, runner: runner, logger: logger}, nil
}

func buildNotifier(cfg *monitor.Config, logger zerolog.Logger, dryRun bool) (monitor.Notifier, error) {
	var sinks monitor.MultiNotifier
	switch {
	case dryRun:
		sinks = append(sinks, monitor.LogNotifier{Logger: logger.With().Str("component", "dry-run").Logger()})
	case cfg.Telegram.Enabled():
		tg, err := monitor.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID, cfg.Telegram.Endpoint, cfg.Telegram.Timeout.Std())
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, tg)
	default:
		logger.Warn().Msg("telegram not configured; headlines will only be logged")
		sinks = append(sinks, monitor.LogNotifier{Logger: logger.With().Str("component", "notify").Logger()})
	}
	if cfg.Syslog.Addr != "" && !dryRun {
		sinks = append(sinks, monitor.NewSyslogNotifier(cfg.Syslog.Addr, cfg.Syslog.Service))
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return sinks, nil
}

func (a *app) dashboard() (*monitor.Dashboard, error) {
	return monitor.NewDashboard(monitor.DashboardDeps{
		Archive:      a.state.Archive,
		Journal:      a.state.Journal,
		Fingerprints: a.state.Fingerprints,
		Checkpoint:   a.state.Checkpoint,
		Status:       a.runner,
		Logger:       a.logger.With().Str("component", "dashboard").Logger(),
	})
}

func (a *app) Close() error {
	return a.state.Close()
}
