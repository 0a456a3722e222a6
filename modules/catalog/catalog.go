package catalog

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/grafana/dskit/services"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zachfi/vcast/pkg/stations"
)

// Catalog owns the station directory for the process: it loads the
// configured station list at startup and hands out the current immutable
// generation to request handlers. A reload builds a fresh generation and
// installs it with an atomic swap; in-flight requests keep the generation
// they started with.
type Catalog struct {
	services.Service
	cfg    *Config
	logger *slog.Logger

	current atomic.Pointer[stations.Catalog]

	stationCount prometheus.Gauge
	reloads      prometheus.Counter
}

var module = "catalog"

// New creates and returns a new Catalog service.
func New(cfg Config, logger slog.Logger, reg prometheus.Registerer) (*Catalog, error) {
	c := &Catalog{
		cfg:    &cfg,
		logger: logger.With("module", module),
		stationCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vcast",
			Name:      "catalog_stations",
			Help:      "Number of stations in the current catalog generation.",
		}),
		reloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vcast",
			Name:      "catalog_reloads_total",
			Help:      "Number of successful catalog reloads.",
		}),
	}

	if err := reg.Register(c.stationCount); err != nil {
		return nil, errors.Wrap(err, "failed to register station gauge")
	}
	if err := reg.Register(c.reloads); err != nil {
		return nil, errors.Wrap(err, "failed to register reload counter")
	}

	c.Service = services.NewBasicService(c.starting, c.running, c.stopping)

	return c, nil
}

func (c *Catalog) starting(ctx context.Context) error {
	if err := c.load(); err != nil {
		c.logger.Error("failed to load station catalog", "file", c.cfg.Stations, "err", err)
		return err
	}

	return nil
}

func (c *Catalog) running(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (c *Catalog) stopping(_ error) error {
	c.logger.Info("stopping")
	return nil
}

func (c *Catalog) load() error {
	data, err := os.ReadFile(c.cfg.Stations)
	if err != nil {
		return errors.Wrapf(err, "failed to read station list %s", c.cfg.Stations)
	}

	catalog, err := stations.Parse(data)
	if err != nil {
		return errors.Wrapf(err, "failed to parse station list %s", c.cfg.Stations)
	}

	c.current.Store(catalog)
	c.stationCount.Set(float64(catalog.Stations()))
	c.logger.Info("station catalog loaded", "file", c.cfg.Stations, "stations", catalog.Stations())

	return nil
}

// Current returns the catalog generation to serve a request from.
func (c *Catalog) Current() *stations.Catalog {
	return c.current.Load()
}

// Reload rebuilds the catalog from the configured file and installs it
// wholesale. On failure the previous generation stays in place.
func (c *Catalog) Reload() error {
	if err := c.load(); err != nil {
		return err
	}

	c.reloads.Inc()

	return nil
}

// ReloadHandler serves the admin reload endpoint.
func (c *Catalog) ReloadHandler(w http.ResponseWriter, _ *http.Request) {
	if err := c.Reload(); err != nil {
		c.logger.Error("catalog reload failed", "err", err)
		http.Error(w, "reload failed", http.StatusInternalServerError)
		return
	}

	_, _ = w.Write([]byte("catalog reloaded\n"))
}
