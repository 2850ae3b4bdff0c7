package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	redis "github.com/go-redis/redis/v8"
	"gopkg.in/yaml.v3"

	"github.com/a-teotia/AISignalNEW-sub001/internal/acquire"
	"github.com/a-teotia/AISignalNEW-sub001/internal/signal"
	"github.com/a-teotia/AISignalNEW-sub001/internal/strategy"
)

// File is the on-disk configuration: extraction precedence, acquisition
// tuning, and strategy profile overrides. Everything is optional; absent
// sections fall back to the in-code defaults.
type File struct {
	Extraction struct {
		Order              []string `yaml:"order"`
		SentimentThreshold float64  `yaml:"sentiment_threshold"`
		ConsensusBullRatio float64  `yaml:"consensus_bull_ratio"`
		ConsensusBearRatio float64  `yaml:"consensus_bear_ratio"`
	} `yaml:"extraction"`

	Acquisition struct {
		PerSourceTimeoutSeconds int     `yaml:"per_source_timeout_seconds"`
		RequestsPerSecond       float64 `yaml:"requests_per_second"`
		Burst                   int     `yaml:"burst"`
		BreakerMaxFailures      uint32  `yaml:"breaker_max_failures"`
		BreakerTimeoutSeconds   int     `yaml:"breaker_timeout_seconds"`
	} `yaml:"acquisition"`

	// Agents maps source types to remote analysis agent endpoints. When set,
	// the CLI can collect a live batch instead of reading a fixture.
	Agents map[string]string `yaml:"agents"`

	Cache struct {
		RedisAddr string `yaml:"redis_addr"`
	} `yaml:"cache"`

	Strategies map[string]StrategyEntry `yaml:"strategies"`
}

// StrategyEntry is one named strategy profile in yaml form.
type StrategyEntry struct {
	Description     string             `yaml:"description"`
	Focus           string             `yaml:"focus"`
	Mode            string             `yaml:"mode"`
	CacheTTLSeconds int                `yaml:"cache_ttl_seconds"`
	DecayRatePerDay float64            `yaml:"decay_rate_per_day"`
	Relevance       map[string]float64 `yaml:"relevance"`
}

// Load reads a yaml configuration file.
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &f, nil
}

// ExtractorConfig merges the file's extraction section over the defaults.
func (f *File) ExtractorConfig() signal.ExtractorConfig {
	cfg := signal.DefaultExtractorConfig()
	if len(f.Extraction.Order) > 0 {
		order := make([]signal.ExtractionPath, 0, len(f.Extraction.Order))
		for _, p := range f.Extraction.Order {
			order = append(order, signal.ExtractionPath(p))
		}
		cfg.Order = order
	}
	if f.Extraction.SentimentThreshold > 0 {
		cfg.SentimentThreshold = f.Extraction.SentimentThreshold
	}
	if f.Extraction.ConsensusBullRatio > 0 {
		cfg.ConsensusBullRatio = f.Extraction.ConsensusBullRatio
	}
	if f.Extraction.ConsensusBearRatio > 0 {
		cfg.ConsensusBearRatio = f.Extraction.ConsensusBearRatio
	}
	return cfg
}

// AcquireConfig merges the file's acquisition section over the defaults.
func (f *File) AcquireConfig() acquire.Config {
	cfg := acquire.DefaultConfig()
	if f.Acquisition.PerSourceTimeoutSeconds > 0 {
		cfg.PerSourceTimeout = time.Duration(f.Acquisition.PerSourceTimeoutSeconds) * time.Second
	}
	if f.Acquisition.RequestsPerSecond > 0 {
		cfg.RequestsPerSecond = f.Acquisition.RequestsPerSecond
	}
	if f.Acquisition.Burst > 0 {
		cfg.Burst = f.Acquisition.Burst
	}
	if f.Acquisition.BreakerMaxFailures > 0 {
		cfg.BreakerMaxFailures = f.Acquisition.BreakerMaxFailures
	}
	if f.Acquisition.BreakerTimeoutSeconds > 0 {
		cfg.BreakerTimeout = time.Duration(f.Acquisition.BreakerTimeoutSeconds) * time.Second
	}
	return cfg
}

// Collaborators builds an HTTP collaborator per configured agent, in stable
// source-type order.
func (f *File) Collaborators() []acquire.Collaborator {
	types := make([]string, 0, len(f.Agents))
	for t := range f.Agents {
		types = append(types, t)
	}
	sort.Strings(types)

	cols := make([]acquire.Collaborator, 0, len(types))
	for _, t := range types {
		cols = append(cols, acquire.NewHTTPCollaborator(signal.SourceType(t), f.Agents[t]))
	}
	return cols
}

// CacheBackend returns the configured acquisition cache: Redis when an
// address is set, in-process memory otherwise.
func (f *File) CacheBackend() acquire.Cache {
	if f.Cache.RedisAddr != "" {
		return acquire.NewRedisCache(redis.NewClient(&redis.Options{Addr: f.Cache.RedisAddr}))
	}
	return acquire.NewMemoryCache()
}

// Profiles returns the built-in strategy presets overlaid with any profiles
// defined in the file.
func (f *File) Profiles() (map[string]*strategy.Profile, error) {
	profiles := strategy.Presets()
	for name, entry := range f.Strategies {
		p := &strategy.Profile{
			Name:            name,
			Description:     entry.Description,
			Focus:           signal.Horizon(entry.Focus),
			Mode:            strategy.RelevanceMode(entry.Mode),
			CacheTTL:        time.Duration(entry.CacheTTLSeconds) * time.Second,
			DecayRatePerDay: entry.DecayRatePerDay,
			Relevance:       make(map[signal.SourceType]float64, len(entry.Relevance)),
		}
		for t, w := range entry.Relevance {
			p.Relevance[signal.SourceType(t)] = w
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		profiles[name] = p
	}
	return profiles, nil
}
