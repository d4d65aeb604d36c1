package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/viant/authbridge/background"
	"github.com/viant/authbridge/config"
	"github.com/viant/authbridge/foreground"
	"github.com/viant/authbridge/keepalive"
	"github.com/viant/authbridge/popup"
	"github.com/viant/authbridge/transport"
	"github.com/viant/authbridge/transport/memory"
	"github.com/viant/authbridge/transport/redis"
	"github.com/viant/authbridge/window/process"
	"github.com/viant/scy/cred/secret"
)

// runtime wires the components selected by the configuration.
type runtime struct {
	config   *config.Config
	logger   *slog.Logger
	client   *goredis.Client
	bus      transport.Bus
	alarms   keepalive.Alarms
	registry *prometheus.Registry
	closers  []func() error
}

func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(ctx, configURL)
	if err != nil {
		return nil, err
	}
	logger, err := config.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}
	ret := &runtime{config: cfg, logger: logger, registry: prometheus.NewRegistry()}
	if cfg.Redis.URL == "" {
		bus := memory.New(memory.WithLogger(logger))
		ret.bus = bus
		ret.alarms = keepalive.NewMemoryAlarms()
		ret.closers = append(ret.closers, bus.Close)
		return ret, nil
	}
	if ret.client, err = redis.NewClient(ctx, cfg.Redis.URL); err != nil {
		return nil, err
	}
	ret.bus = redis.New(ret.client, redis.WithPrefix(cfg.Redis.Prefix), redis.WithLogger(logger))
	ret.alarms = redis.NewAlarms(ret.client, cfg.Redis.Prefix, 2*cfg.KeepAlive.Interval)
	ret.closers = append(ret.closers, ret.client.Close)
	return ret, nil
}

// distributed returns true when popups run in separate processes.
func (r *runtime) distributed() bool {
	return r.client != nil
}

func (r *runtime) store() foreground.Store {
	if r.client == nil {
		return foreground.NewMemoryStore()
	}
	return foreground.NewRedisStore(r.client, r.config.Redis.Prefix, r.config.Store.Retention)
}

// processWindows launches popups with the configured command.
func (r *runtime) processWindows() *process.Windows {
	cfg := r.config.Popup
	options := []process.Option{process.WithLogger(r.logger)}
	if cfg.Host != "" {
		options = append(options, process.WithHost(cfg.Host), process.WithSecret(secret.Resource(cfg.Secret)))
	}
	if configURL != "" {
		options = append(options, process.WithEnvironment("AUTHBRIDGE_CONFIG", configURL))
	}
	return process.New(cfg.Command, options...)
}

func (r *runtime) coordinator(ctx context.Context, windows popup.Windows, events popup.TabEvents) (*background.Coordinator, error) {
	cfg := r.config
	metrics := background.NewMetrics(r.registry)
	popups := popup.NewManager(windows, cfg.Popup.URL,
		popup.WithSize(cfg.Popup.Width, cfg.Popup.Height),
		popup.WithLogger(r.logger),
		popup.WithCreatedListener(metrics.PopupCreated),
	)
	keepAlive := keepalive.New(r.alarms,
		keepalive.WithInterval(cfg.KeepAlive.Interval),
		keepalive.WithAlarmName(cfg.KeepAlive.Alarm),
		keepalive.WithLogger(r.logger),
	)
	ret := background.New(r.bus, popups, keepAlive,
		background.WithTimeout(cfg.Request.Timeout),
		background.WithLogger(r.logger),
		background.WithMetrics(metrics),
		background.WithTabEvents(events),
	)
	if err := ret.Start(ctx); err != nil {
		return nil, err
	}
	r.closers = append([]func() error{ret.Close}, r.closers...)
	return ret, nil
}

func (r *runtime) Close() error {
	var errs []error
	for _, closer := range r.closers {
		errs = append(errs, closer())
	}
	return errors.Join(errs...)
}
