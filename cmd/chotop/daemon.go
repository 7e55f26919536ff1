// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/chotop-overlay/chotop/lib/avatar"
	"github.com/chotop-overlay/chotop/lib/bus"
	"github.com/chotop-overlay/chotop/lib/config"
	"github.com/chotop-overlay/chotop/lib/control"
	"github.com/chotop-overlay/chotop/lib/ingest"
	"github.com/chotop-overlay/chotop/lib/logging"
	"github.com/chotop-overlay/chotop/lib/overlay"
	"github.com/chotop-overlay/chotop/lib/version"
)

// consumer drives the engine until ctx ends or the engine stops. It
// returns overlay.ErrRestart when a restart was requested.
type consumer func(ctx context.Context, engine *overlay.Engine) error

// daemon is one running overlay: the producers feeding the bus and the
// engine consuming it.
type daemon struct {
	config     *config.Config
	configPath string
	level      *slog.LevelVar
	logger     *slog.Logger

	bus     *bus.Bus
	cache   *avatar.Cache
	worker  *avatar.Worker
	ingest  *ingest.Server
	control *control.Server
	engine  *overlay.Engine
}

// newDaemon builds every component. Nothing listens until run.
func newDaemon(cfg *config.Config, configPath string, level *slog.LevelVar, logger *slog.Logger) (*daemon, error) {
	messages := bus.New(bus.CapacitiesFrom(cfg.Bus))

	fetcher := &avatar.HTTPFetcher{UserAgent: version.UserAgent()}
	cache, err := avatar.NewCache(avatar.ConfigFrom(cfg.Avatar), fetcher, logger.With("component", "avatar"))
	if err != nil {
		return nil, fmt.Errorf("opening avatar cache: %w", err)
	}
	worker := avatar.NewWorker(cache, messages, cfg.Avatar.QueueSize, logger.With("component", "avatar"))

	if err := os.MkdirAll(filepath.Dir(cfg.Control.SocketPath), 0o700); err != nil {
		cache.Close()
		return nil, fmt.Errorf("creating control socket directory: %w", err)
	}

	return &daemon{
		config:     cfg,
		configPath: configPath,
		level:      level,
		logger:     logger,
		bus:        messages,
		cache:      cache,
		worker:     worker,
		ingest:     ingest.NewServer(ingest.ConfigFrom(cfg.Ingest), messages, logger.With("component", "ingest")),
		control:    control.NewServer(cfg.Control.SocketPath, messages, logger.With("component", "control")),
		engine: overlay.NewEngine(overlay.Options{
			Config:  cfg,
			Bus:     messages,
			Avatars: worker,
			Logger:  logger.With("component", "overlay"),
		}),
	}, nil
}

// run starts the producers, hands the engine to consume and shuts
// everything down when consume returns. A listener that fails to bind
// is logged and stays down; the rest of the daemon keeps running.
func (d *daemon) run(ctx context.Context, testMode bool, consume consumer) error {
	defer d.cache.Close()
	defer d.engine.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)
	ingestFailed := d.listen(group, groupCtx, "websocket listener", d.ingest.Serve)
	controlFailed := d.listen(group, groupCtx, "control socket", d.control.Serve)
	group.Go(func() error { return d.worker.Run(groupCtx) })
	if d.configPath != "" {
		group.Go(func() error {
			return config.Watch(groupCtx, d.configPath, config.WatchOptions{Logger: d.logger}, func(cfg *config.Config) {
				d.reload(groupCtx, cfg)
			})
		})
	}

	for _, listener := range []struct {
		ready, failed <-chan struct{}
	}{
		{d.ingest.Ready(), ingestFailed},
		{d.control.Ready(), controlFailed},
	} {
		select {
		case <-listener.ready:
		case <-listener.failed:
		case <-groupCtx.Done():
			cancel()
			return group.Wait()
		}
	}
	if address, ok := d.ingest.Addr().(*net.TCPAddr); ok {
		d.engine.SetBoundPort(address.Port)
	}

	if testMode {
		if err := d.bus.PublishControl(groupCtx, control.EnableTestMode()); err != nil {
			d.logger.Warn("could not enable test mode", "error", err)
		}
	}

	consumeErr := consume(groupCtx, d.engine)
	cancel()
	waitErr := group.Wait()
	if consumeErr != nil {
		return consumeErr
	}
	return waitErr
}

// listen runs serve in group. The returned channel closes when serve
// fails; the failure is logged and does not stop the group.
func (d *daemon) listen(group *errgroup.Group, ctx context.Context, name string, serve func(context.Context) error) <-chan struct{} {
	failed := make(chan struct{})
	group.Go(func() error {
		if err := serve(ctx); err != nil {
			d.logger.Error(name+" unavailable", "error", err)
			close(failed)
		}
		return nil
	})
	return failed
}

// reload forwards a changed configuration file to the engine. The log
// level applies at once.
func (d *daemon) reload(ctx context.Context, cfg *config.Config) {
	if level, err := logging.ParseLevel(cfg.Log.Level); err == nil {
		d.level.Set(level)
	}
	if err := d.bus.PublishControl(ctx, control.UpdateConfig(cfg)); err != nil {
		d.logger.Debug("configuration reload not delivered", "error", err)
		return
	}
	d.logger.Info("configuration file changed", "path", d.configPath)
}

// headless consumes the engine without a display, logging each state.
func headless(logger *slog.Logger) consumer {
	return func(ctx context.Context, engine *overlay.Engine) error {
		return engine.Run(ctx, overlay.LogPresenter{Logger: logger})
	}
}
