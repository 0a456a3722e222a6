// Package redirect translates configured station URLs into directly playable
// addresses. Some hosting providers (streamtheworld) hand out per-listener
// stream URLs behind an HTTP redirect the receivers cannot follow, and some
// station lists point at .pls/.m3u playlists rather than streams. Resolution
// is best-effort: on any failure the input URL is returned unchanged.
package redirect

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 5 * time.Second

// redirectHost marks URLs that need the one-hop redirect capture.
const redirectHost = "streamtheworld.com/"

// Resolver resolves station URLs with a short-timeout HTTP client. The zero
// value is not usable; construct with New.
type Resolver struct {
	client *http.Client
	logger *slog.Logger
}

// New returns a Resolver whose requests are bounded by timeout end to end.
func New(timeout time.Duration, logger *slog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	dialer := &net.Dialer{Timeout: timeout}

	return &Resolver{
		client: &http.Client{
			Transport: &http.Transport{Dial: dialer.Dial},
			Timeout:   timeout,
			// Capture the redirect target instead of following it; the
			// Location is what gets handed to the device.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger,
	}
}

// Resolve translates rawURL into a playable address when it can: known
// redirect hosts become their one-hop redirect target, playlist URLs become
// their first stream entry, everything else passes through untouched.
// Resolve never fails; a resolution error yields the input unchanged.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) string {
	switch {
	case strings.Contains(rawURL, redirectHost):
		return r.followRedirect(ctx, rawURL)
	case isPlaylistURL(rawURL):
		return r.resolvePlaylist(ctx, rawURL)
	}

	return rawURL
}

func (r *Resolver) followRedirect(ctx context.Context, rawURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return rawURL
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug("redirect resolution failed", "url", rawURL, "err", err)
		return rawURL
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 || resp.StatusCode > 399 {
		return rawURL
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return rawURL
	}

	return location
}

func (r *Resolver) resolvePlaylist(ctx context.Context, rawURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return rawURL
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug("playlist resolution failed", "url", rawURL, "err", err)
		return rawURL
	}
	defer resp.Body.Close()

	// Playlists are tiny; cap the read so a stream URL mislabeled as a
	// playlist can't hold the response open.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return rawURL
	}

	if entry := firstPlaylistEntry(string(body)); entry != "" {
		return entry
	}

	return rawURL
}
