package responder

import (
	"flag"
	"time"

	"github.com/zachfi/zkit/pkg/util"
)

const (
	defaultLocation = "ycast"
	defaultBaseURL  = "http://radioyamaha.vtuner.com"
	defaultToken    = "85d6fa40a9dcc906"

	// defaultStation is substituted when a device asks for a station id the
	// catalog doesn't know. The descriptor is split on '&' into name and URL.
	defaultStation = "Radio Paradise - auto:http://stream.radioparadise.com/mp3-192"

	defaultResolveTimeout = 5 * time.Second
)

type Config struct {
	Location       string        `yaml:"location,omitempty"`
	BaseURL        string        `yaml:"base-url,omitempty"`
	Token          string        `yaml:"token,omitempty"`
	DefaultStation string        `yaml:"default-station,omitempty"`
	ResolveTimeout time.Duration `yaml:"resolve-timeout,omitempty"`
}

func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.StringVar(&cfg.Location, util.PrefixConfig(prefix, "location"), defaultLocation,
		"The path under which the station directory is served.")
	f.StringVar(&cfg.BaseURL, util.PrefixConfig(prefix, "base-url"), defaultBaseURL,
		"The base URL embedded in directory links. Devices resolve the vTuner hostname to this server, so the default matches the real service.")
	f.StringVar(&cfg.Token, util.PrefixConfig(prefix, "token"), defaultToken,
		"The opaque token returned by the handshake.")
	f.StringVar(&cfg.DefaultStation, util.PrefixConfig(prefix, "default-station"), defaultStation,
		"Station descriptor substituted for unknown station ids.")
	f.DurationVar(&cfg.ResolveTimeout, util.PrefixConfig(prefix, "resolve-timeout"), defaultResolveTimeout,
		"Timeout for resolving station URL redirects and playlists.")
}
