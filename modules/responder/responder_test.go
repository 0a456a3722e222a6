package responder

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zachfi/vcast/pkg/stations"
	"github.com/zachfi/vcast/pkg/vtuner"
)

// Ids in document order: BBC=1, DW=2, Jazz FM=3.
const fixture = `News:
  BBC: BBC - auto:http://bbc/stream
  World:
    DW: DW - auto:http://dw/stream
Music:
  Jazz FM: Jazz - auto:http://jazz/stream
`

type staticSource struct {
	catalog *stations.Catalog
}

func (s staticSource) Current() *stations.Catalog { return s.catalog }

type passthroughResolver struct{}

func (passthroughResolver) Resolve(_ context.Context, url string) string { return url }

// markingResolver tags every URL it sees, so tests can assert resolution
// happened at render time.
type markingResolver struct{}

func (markingResolver) Resolve(_ context.Context, url string) string { return url + "#resolved" }

func newTestRouter(t *testing.T, source string, resolver URLResolver) *mux.Router {
	t.Helper()

	catalog, err := stations.Parse([]byte(source))
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}

	var cfg Config
	cfg.RegisterFlagsAndApplyDefaults("responder", flag.NewFlagSet("test", flag.ContinueOnError))

	logger := *slog.New(slog.NewTextHandler(io.Discard, nil))
	r, err := New(cfg, logger, staticSource{catalog}, resolver, prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	router := mux.NewRouter()
	r.RegisterRoutes(router)

	return router
}

func get(t *testing.T, router *mux.Router, target string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	return rec
}

func TestHandshake(t *testing.T) {
	router := newTestRouter(t, fixture, passthroughResolver{})

	rec := get(t, router, vtuner.InitPath+"?token=0")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	if body != "<EncryptedToken>85d6fa40a9dcc906</EncryptedToken>" {
		t.Errorf("body = %q", body)
	}
	if strings.Contains(body, "<?xml") {
		t.Error("handshake body must not carry the XML prolog")
	}
}

func TestRootListing(t *testing.T) {
	router := newTestRouter(t, fixture, passthroughResolver{})

	rec := get(t, router, vtuner.InitPath+"?start=1&howmany=8")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/html" {
		t.Errorf("Content-Type = %q, want text/html", got)
	}

	want := vtuner.Prolog +
		`<ListOfItems>` +
		`<DirCount>9</DirCount>` +
		`<Item><ItemType>Dir</ItemType><Title>Music</Title>` +
		`<UrlDir>http://radioyamaha.vtuner.com/ycast?category=Music</UrlDir>` +
		`<DirCount>1</DirCount></Item>` +
		`<Item><ItemType>Dir</ItemType><Title>News</Title>` +
		`<UrlDir>http://radioyamaha.vtuner.com/ycast?category=News</UrlDir>` +
		`<DirCount>2</DirCount></Item>` +
		`</ListOfItems>`
	if got := rec.Body.String(); got != want {
		t.Errorf("body =\n%s\nwant\n%s", got, want)
	}
}

func TestRootListing_Aliases(t *testing.T) {
	router := newTestRouter(t, fixture, passthroughResolver{})

	for _, target := range []string{"/", "/ycast", "/ycast/", vtuner.InitPath} {
		t.Run(target, func(t *testing.T) {
			rec := get(t, router, target)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}

			body := rec.Body.String()
			if !strings.Contains(body, "<DirCount>9</DirCount>") {
				t.Error("root listing is missing the placeholder DirCount")
			}
			if !strings.Contains(body, "<Title>Music</Title>") || !strings.Contains(body, "<Title>News</Title>") {
				t.Errorf("root listing is missing categories:\n%s", body)
			}
		})
	}
}

func TestRootListing_Pagination(t *testing.T) {
	router := newTestRouter(t, fixture, passthroughResolver{})

	tests := []struct {
		name    string
		query   string
		present []string
		absent  []string
	}{
		{"second item only", "?start=2&howmany=1", []string{"News"}, []string{"Music"}},
		{"window past the end", "?start=9&howmany=8", nil, []string{"Music", "News"}},
		{"malformed falls back to default", "?start=x&howmany=y", []string{"Music", "News"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := get(t, router, vtuner.InitPath+tt.query).Body.String()
			for _, title := range tt.present {
				if !strings.Contains(body, "<Title>"+title+"</Title>") {
					t.Errorf("missing %q:\n%s", title, body)
				}
			}
			for _, title := range tt.absent {
				if strings.Contains(body, "<Title>"+title+"</Title>") {
					t.Errorf("unexpected %q:\n%s", title, body)
				}
			}
		})
	}
}

func TestCategoryListing_Mixed(t *testing.T) {
	router := newTestRouter(t, fixture, passthroughResolver{})

	rec := get(t, router, "/ycast?category=News")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	// BBC sorts before World; the station keeps its id, the sub-directory
	// addresses the nested path.
	want := vtuner.Prolog +
		`<ListOfItems>` +
		`<Item><ItemType>Station</ItemType><StationName>BBC</StationName>` +
		`<StationId>1</StationId><StationUrl>BBC - auto:http://bbc/stream</StationUrl></Item>` +
		`<Item><ItemType>Dir</ItemType><Title>World</Title>` +
		`<UrlDir>http://radioyamaha.vtuner.com/ycast?category=News%7CWorld</UrlDir>` +
		`<DirCount>1</DirCount></Item>` +
		`</ListOfItems>`
	if got := rec.Body.String(); got != want {
		t.Errorf("body =\n%s\nwant\n%s", got, want)
	}
}

func TestCategoryListing_Nested(t *testing.T) {
	router := newTestRouter(t, fixture, passthroughResolver{})

	body := get(t, router, "/ycast?category=News%7CWorld").Body.String()
	if !strings.Contains(body, "<StationName>DW</StationName>") {
		t.Errorf("nested listing missing DW:\n%s", body)
	}
	if !strings.Contains(body, "<StationId>2</StationId>") {
		t.Errorf("nested listing has wrong id:\n%s", body)
	}
}

func TestCategoryListing_NotFound(t *testing.T) {
	router := newTestRouter(t, fixture, passthroughResolver{})

	for _, target := range []string{
		"/ycast?category=Nope",
		"/ycast?category=News%7CNope",
		"/ycast?category=News%7CBBC", // a station, not a category
		"/ycast?category=",
	} {
		t.Run(target, func(t *testing.T) {
			if rec := get(t, router, target); rec.Code != http.StatusNotFound {
				t.Errorf("status = %d, want 404", rec.Code)
			}
		})
	}
}

func TestStationDetail(t *testing.T) {
	router := newTestRouter(t, fixture, passthroughResolver{})

	rec := get(t, router, vtuner.StatusPath+"?id=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	want := vtuner.Prolog +
		`<ListOfItems>` +
		`<Item><ItemType>Station</ItemType><StationName>BBC</StationName>` +
		`<StationId>1</StationId><StationUrl>BBC - auto:http://bbc/stream</StationUrl></Item>` +
		`</ListOfItems>`
	if got := rec.Body.String(); got != want {
		t.Errorf("body =\n%s\nwant\n%s", got, want)
	}
}

func TestStationDetail_UnknownID(t *testing.T) {
	router := newTestRouter(t, fixture, passthroughResolver{})

	rec := get(t, router, vtuner.StatusPath+"?id=42")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with the default station", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "<StationName>Radio Paradise - auto:http://stream.radioparadise.com/mp3-192</StationName>") {
		t.Errorf("missing default station:\n%s", body)
	}
	if !strings.Contains(body, fmt.Sprintf("<StationId>%d</StationId>", vtuner.SentinelStationID)) {
		t.Errorf("missing sentinel id:\n%s", body)
	}
}

func TestStationDetail_BadID(t *testing.T) {
	router := newTestRouter(t, fixture, passthroughResolver{})

	for _, target := range []string{vtuner.StatusPath, vtuner.StatusPath + "?id=abc"} {
		t.Run(target, func(t *testing.T) {
			if rec := get(t, router, target); rec.Code != http.StatusNotFound {
				t.Errorf("status = %d, want 404", rec.Code)
			}
		})
	}
}

func TestUnrecognizedPath(t *testing.T) {
	router := newTestRouter(t, fixture, passthroughResolver{})

	for _, target := range []string{"/other", "/ycast/deeper", "/setupapp/Yamaha/asp/BrowseXML/other.asp"} {
		t.Run(target, func(t *testing.T) {
			if rec := get(t, router, target); rec.Code != http.StatusNotFound {
				t.Errorf("status = %d, want 404", rec.Code)
			}
		})
	}
}

func TestStationURLsResolvedAtRenderTime(t *testing.T) {
	router := newTestRouter(t, fixture, markingResolver{})

	body := get(t, router, "/ycast?category=News").Body.String()
	if !strings.Contains(body, "BBC - auto:http://bbc/stream#resolved</StationUrl>") {
		t.Errorf("station URL not passed through the resolver:\n%s", body)
	}

	body = get(t, router, vtuner.StatusPath+"?id=1").Body.String()
	if !strings.Contains(body, "#resolved</StationUrl>") {
		t.Errorf("detail URL not passed through the resolver:\n%s", body)
	}
}

// The documented round trip: browse the root, open a category, request the
// station.
func TestEndToEnd(t *testing.T) {
	source := `News:
  BBC: BBC - auto:http://bbc/stream
Music:
  Jazz FM: Jazz - auto:http://jazz/stream
`
	router := newTestRouter(t, source, passthroughResolver{})

	root := get(t, router, "/").Body.String()
	for _, want := range []string{
		`<Item><ItemType>Dir</ItemType><Title>Music</Title><UrlDir>http://radioyamaha.vtuner.com/ycast?category=Music</UrlDir><DirCount>1</DirCount></Item>`,
		`<Item><ItemType>Dir</ItemType><Title>News</Title><UrlDir>http://radioyamaha.vtuner.com/ycast?category=News</UrlDir><DirCount>1</DirCount></Item>`,
	} {
		if !strings.Contains(root, want) {
			t.Errorf("root listing missing %s:\n%s", want, root)
		}
	}
	if musicAt, newsAt := strings.Index(root, "Music"), strings.Index(root, "News"); musicAt > newsAt {
		t.Error("root listing not in lexicographic order")
	}

	news := get(t, router, "/ycast?category=News").Body.String()
	if !strings.Contains(news, "<StationName>BBC</StationName>") || !strings.Contains(news, "<StationId>1</StationId>") {
		t.Errorf("category listing wrong:\n%s", news)
	}

	detail := get(t, router, vtuner.StatusPath+"?id=1").Body.String()
	if !strings.Contains(detail, "<StationName>BBC</StationName>") {
		t.Errorf("station detail wrong:\n%s", detail)
	}
}
