package config

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, an optional YAML file, and
// environment variables. Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) when configPath or SCRAPER_CONFIG points at one
//  3. env (prefix SCRAPER_)
func Load(configPath string) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if configPath == "" {
		configPath = os.Getenv("SCRAPER_CONFIG")
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Environment variables: SCRAPER_EVENTS_TABLE, SCRAPER_FETCH_TIMEOUT, ...
	// Keys keep their underscores to match the koanf struct tags.
	envProvider := env.Provider("SCRAPER_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "scraper_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.EventsTable == "" || cfg.SourcesTable == "" || cfg.OperationsTable == "" {
		return nil, errors.New("table names must not be empty")
	}
	if cfg.FetchTimeout <= 0 {
		return nil, errors.New("fetch_timeout must be positive")
	}
	return &cfg, nil
}
