package catalog

import (
	"flag"

	"github.com/zachfi/zkit/pkg/util"
)

const defaultStationsFile = "stations.yml"

type Config struct {
	Stations string `yaml:"stations,omitempty"`
}

func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.StringVar(&cfg.Stations, util.PrefixConfig(prefix, "stations"), defaultStationsFile,
		"The YAML station list to serve. Nested mappings are categories, string values are stations.")
}
