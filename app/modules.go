package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	kitlog "github.com/go-kit/log"
	"github.com/grafana/dskit/modules"
	"github.com/grafana/dskit/server"
	"github.com/grafana/dskit/services"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zachfi/vcast/modules/catalog"
	"github.com/zachfi/vcast/modules/responder"
	"github.com/zachfi/vcast/pkg/redirect"
)

const (
	Server string = "server"

	Catalog   string = "catalog"
	Responder string = "responder"

	All string = "all"
)

func (a *App) setupModuleManager() error {
	mm := modules.NewManager(kitlog.NewLogfmtLogger(os.Stderr))
	mm.RegisterModule(Server, a.initServer, modules.UserInvisibleModule)

	mm.RegisterModule(Catalog, a.initCatalog)
	mm.RegisterModule(Responder, a.initResponder)

	mm.RegisterModule(All, nil)

	deps := map[string][]string{
		// Server:    nil,
		// Catalog:   nil,
		Responder: {Server, Catalog},

		All: {Responder},
	}

	for mod, targets := range deps {
		if err := mm.AddDependency(mod, targets...); err != nil {
			return err
		}
	}

	a.ModuleManager = mm

	return nil
}

func (a *App) initCatalog() (services.Service, error) {
	c, err := catalog.New(a.cfg.Catalog, a.logger, prometheus.DefaultRegisterer)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create catalog")
	}

	a.catalog = c

	return c, nil
}

func (a *App) initResponder() (services.Service, error) {
	resolver := redirect.New(a.cfg.Responder.ResolveTimeout, a.logger.With("module", "redirect"))

	r, err := responder.New(a.cfg.Responder, a.logger, a.catalog, resolver, prometheus.DefaultRegisterer)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create responder")
	}

	r.RegisterRoutes(a.Server.HTTP)
	a.Server.HTTP.Path("/-/reload").Methods(http.MethodPost).HandlerFunc(a.catalog.ReloadHandler)

	return r, nil
}

func (a *App) initServer() (services.Service, error) {
	a.cfg.Server.MetricsNamespace = metricsNamespace
	a.cfg.Server.ExcludeRequestInLog = true
	a.cfg.Server.RegisterInstrumentation = true
	a.cfg.Server.Log = kitlog.NewLogfmtLogger(os.Stderr)

	server, err := server.New(a.cfg.Server)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create server")
	}

	servicesToWaitFor := func() []services.Service {
		svs := []services.Service(nil)
		for m, s := range a.serviceMap {
			// Server should not wait for itself.
			if m != Server {
				svs = append(svs, s)
			}
		}

		return svs
	}

	a.Server = server

	serverDone := make(chan error, 1)

	runFn := func(ctx context.Context) error {
		go func() {
			defer close(serverDone)
			serverDone <- server.Run()
		}()

		select {
		case <-ctx.Done():
			return nil
		case err := <-serverDone:
			if err != nil {
				return err
			}

			return fmt.Errorf("server stopped unexpectedly")
		}
	}

	stoppingFn := func(_ error) error {
		// wait until all modules are done, and then shutdown server.
		for _, s := range servicesToWaitFor() {
			_ = s.AwaitTerminated(context.Background())
		}

		// shutdown HTTP and gRPC servers (this also unblocks Run)
		server.Shutdown()

		// if not closed yet, wait until server stops.
		<-serverDone
		slog.Info("server stopped")
		return nil
	}

	return services.NewBasicService(nil, runFn, stoppingFn), nil
}
