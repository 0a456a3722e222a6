package responder

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/grafana/dskit/services"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zachfi/vcast/pkg/stations"
	"github.com/zachfi/vcast/pkg/vtuner"
)

// CatalogSource yields the catalog generation to serve a request from.
type CatalogSource interface {
	Current() *stations.Catalog
}

// URLResolver translates a configured station URL into a playable one. It
// never fails; unresolvable URLs come back unchanged.
type URLResolver interface {
	Resolve(ctx context.Context, url string) string
}

// Responder maps each inbound vTuner request to exactly one response
// document. It mutates no shared state and reads a single immutable catalog
// generation per request, so any number of requests can run concurrently.
type Responder struct {
	services.Service
	cfg      *Config
	logger   *slog.Logger
	source   CatalogSource
	resolver URLResolver

	requests *prometheus.CounterVec
}

var module = "responder"

// New creates and returns a new Responder service.
func New(cfg Config, logger slog.Logger, source CatalogSource, resolver URLResolver, reg prometheus.Registerer) (*Responder, error) {
	r := &Responder{
		cfg:      &cfg,
		logger:   logger.With("module", module),
		source:   source,
		resolver: resolver,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vcast",
			Name:      "responder_requests_total",
			Help:      "Requests served, by protocol operation.",
		}, []string{"operation"}),
	}

	if err := reg.Register(r.requests); err != nil {
		return nil, errors.Wrap(err, "failed to register request counter")
	}

	r.Service = services.NewBasicService(nil, r.running, r.stopping)

	return r, nil
}

func (r *Responder) running(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (r *Responder) stopping(_ error) error {
	r.logger.Info("stopping")
	return nil
}

// RegisterRoutes attaches the protocol endpoints to the server router.
// Anything outside these paths falls through to the router's 404.
func (r *Responder) RegisterRoutes(router *mux.Router) {
	router.HandleFunc(vtuner.InitPath, r.handleInit)
	router.HandleFunc(vtuner.StatusPath, r.handleStatus)
	router.HandleFunc("/", r.handleBrowse)
	router.HandleFunc("/"+r.cfg.Location, r.handleBrowse)
	router.HandleFunc("/"+r.cfg.Location+"/", r.handleBrowse)
}

// handleInit serves the device's first request. With a token parameter it is
// the handshake; otherwise it is a root listing with optional paging.
func (r *Responder) handleInit(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()

	if q.Has("token") {
		r.requests.WithLabelValues("handshake").Inc()
		r.writeBare(w, vtuner.EncryptedToken{Token: r.cfg.Token})
		return
	}

	r.requests.WithLabelValues("root").Inc()
	r.writeRootList(req.Context(), w, vtuner.ParsePage(q.Get("start"), q.Get("howmany")))
}

// handleStatus serves station detail by id. An unknown or malformed id must
// not fault: the protocol has no "station missing" response, so unknown ids
// substitute the default station under the sentinel id, and a missing id
// parameter degrades to 404.
func (r *Responder) handleStatus(w http.ResponseWriter, req *http.Request) {
	r.requests.WithLabelValues("station").Inc()

	id, err := strconv.Atoi(req.URL.Query().Get("id"))
	if err != nil {
		http.NotFound(w, req)
		return
	}

	name, streamURL := "", ""
	if station, err := r.source.Current().ByID(id); err == nil {
		name, streamURL = station.Name, station.URL
	} else {
		name, streamURL, _ = strings.Cut(r.cfg.DefaultStation, "&")
		id = vtuner.SentinelStationID
		r.logger.Info("unknown station id, serving default", "id", req.URL.Query().Get("id"))
	}

	doc := &vtuner.ListOfItems{
		Items: []vtuner.Item{
			vtuner.NewStation(name, r.resolver.Resolve(req.Context(), streamURL), id),
		},
	}
	r.write(w, doc)
}

// handleBrowse serves the root aliases and category listings.
func (r *Responder) handleBrowse(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()

	if !q.Has("category") {
		r.requests.WithLabelValues("root").Inc()
		r.writeRootList(req.Context(), w, vtuner.DefaultPage())
		return
	}

	r.requests.WithLabelValues("category").Inc()

	path := q.Get("category")
	category, err := r.source.Current().ResolvePath(path)
	if err != nil {
		r.logger.Info("category not found", "category", path)
		http.NotFound(w, req)
		return
	}

	page := vtuner.ParsePage(q.Get("start"), q.Get("howmany"))
	r.write(w, r.listOf(req.Context(), category, path, page))
}

// listOf renders one page of a category's children in display order, each
// child as a Dir or Station item. Station URLs are resolved lazily here,
// once per response.
func (r *Responder) listOf(ctx context.Context, category *stations.Category, path string, page vtuner.Page) *vtuner.ListOfItems {
	sorted := category.Sorted()
	lo, hi := page.Bounds(len(sorted))

	doc := &vtuner.ListOfItems{}
	for _, node := range sorted[lo:hi] {
		switch child := node.(type) {
		case *stations.Category:
			childPath := child.Name
			if path != "" {
				childPath = path + stations.PathSeparator + child.Name
			}
			doc.Items = append(doc.Items, vtuner.NewDir(child.Name, r.cfg.BaseURL, r.cfg.Location, childPath, child.Len()))
		case *stations.Station:
			doc.Items = append(doc.Items, vtuner.NewStation(child.Name, r.resolver.Resolve(ctx, child.URL), child.ID))
		}
	}

	return doc
}

func (r *Responder) writeRootList(ctx context.Context, w http.ResponseWriter, page vtuner.Page) {
	doc := r.listOf(ctx, r.source.Current().Root(), "", page)
	doc.DirCount = vtuner.RootDirCount
	r.write(w, doc)
}

func (r *Responder) write(w http.ResponseWriter, doc any) {
	body, err := vtuner.Render(doc)
	if err != nil {
		r.logger.Error("failed to render response", "err", err)
		http.Error(w, fmt.Sprintf("render: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write(body)
}

func (r *Responder) writeBare(w http.ResponseWriter, doc any) {
	body, err := vtuner.RenderBare(doc)
	if err != nil {
		r.logger.Error("failed to render response", "err", err)
		http.Error(w, fmt.Sprintf("render: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write(body)
}
