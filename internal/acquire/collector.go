package acquire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/a-teotia/AISignalNEW-sub001/internal/signal"
)

// Collaborator is an external analysis agent. It produces one report per
// subject per run; calls may be slow or fail.
type Collaborator interface {
	Type() signal.SourceType
	Process(ctx context.Context, subject string) (*signal.SourceOutput, error)
}

// Failure records a collaborator that produced nothing usable. Failures
// exclude the source from the run; they never abort it.
type Failure struct {
	Source signal.SourceType `json:"source"`
	Reason string            `json:"reason"`
}

// Config tunes the acquisition fan-out.
type Config struct {
	// PerSourceTimeout bounds each collaborator call. A source that exceeds
	// it is treated as absent, not retried.
	PerSourceTimeout time.Duration `yaml:"per_source_timeout"`

	// RequestsPerSecond / Burst rate-limit each collaborator independently.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`

	// Breaker settings: consecutive failures before the circuit opens and
	// how long it stays open.
	BreakerMaxFailures uint32        `yaml:"breaker_max_failures"`
	BreakerTimeout     time.Duration `yaml:"breaker_timeout"`
}

// DefaultConfig returns the production acquisition configuration.
func DefaultConfig() Config {
	return Config{
		PerSourceTimeout:   10 * time.Second,
		RequestsPerSecond:  2,
		Burst:              4,
		BreakerMaxFailures: 3,
		BreakerTimeout:     60 * time.Second,
	}
}

// Collector fans out to all collaborators concurrently, with per-source
// timeout, rate limiting, circuit breaking and caching. Cancellation of the
// caller's context propagates to every in-flight call.
type Collector struct {
	cfg           Config
	collaborators []Collaborator
	cache         Cache
	limiters      map[signal.SourceType]*rate.Limiter
	breakers      map[signal.SourceType]*gobreaker.CircuitBreaker
}

// NewCollector creates a collector over the given collaborators. A nil cache
// disables memoization.
func NewCollector(cfg Config, cache Cache, collaborators ...Collaborator) *Collector {
	c := &Collector{
		cfg:           cfg,
		collaborators: collaborators,
		cache:         cache,
		limiters:      make(map[signal.SourceType]*rate.Limiter, len(collaborators)),
		breakers:      make(map[signal.SourceType]*gobreaker.CircuitBreaker, len(collaborators)),
	}
	for _, col := range collaborators {
		t := col.Type()
		c.limiters[t] = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
		c.breakers[t] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    string(t),
			Timeout: cfg.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
			},
		})
	}
	return c
}

// Collect acquires one batch of source outputs for a subject. Sources that
// time out, error, or return malformed reports are returned as failures and
// excluded; partial availability is tolerated by design.
func (c *Collector) Collect(ctx context.Context, subject string, cacheTTL time.Duration) ([]signal.SourceOutput, []Failure) {
	type slot struct {
		out     *signal.SourceOutput
		failure *Failure
	}

	results := make([]slot, len(c.collaborators))
	var wg sync.WaitGroup
	for i, col := range c.collaborators {
		wg.Add(1)
		go func(i int, col Collaborator) {
			defer wg.Done()
			out, err := c.acquireOne(ctx, col, subject, cacheTTL)
			if err != nil {
				results[i].failure = &Failure{Source: col.Type(), Reason: err.Error()}
				return
			}
			results[i].out = out
		}(i, col)
	}
	wg.Wait()

	outputs := make([]signal.SourceOutput, 0, len(results))
	var failures []Failure
	for _, r := range results {
		switch {
		case r.out != nil:
			outputs = append(outputs, *r.out)
		case r.failure != nil:
			failures = append(failures, *r.failure)
			log.Warn().
				Str("subject", subject).
				Str("source", string(r.failure.Source)).
				Str("reason", r.failure.Reason).
				Msg("source excluded from run")
		}
	}
	return outputs, failures
}

func (c *Collector) acquireOne(ctx context.Context, col Collaborator, subject string, cacheTTL time.Duration) (*signal.SourceOutput, error) {
	key := cacheKey(subject, col.Type())
	if c.cache != nil {
		if b, ok := c.cache.Get(key); ok {
			var out signal.SourceOutput
			if err := json.Unmarshal(b, &out); err == nil {
				return &out, nil
			}
			// A corrupt cache entry is ignored, not fatal.
		}
	}

	if lim := c.limiters[col.Type()]; lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.PerSourceTimeout)
	defer cancel()

	var out *signal.SourceOutput
	call := func() (interface{}, error) {
		o, err := col.Process(callCtx, subject)
		if err != nil {
			return nil, err
		}
		if o == nil {
			return nil, errors.New("collaborator returned no report")
		}
		return o, nil
	}

	var (
		res interface{}
		err error
	)
	if br := c.breakers[col.Type()]; br != nil {
		res, err = br.Execute(call)
	} else {
		res, err = call()
	}
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("source timeout after %s", c.cfg.PerSourceTimeout)
		}
		return nil, fmt.Errorf("source unavailable: %w", err)
	}
	out = res.(*signal.SourceOutput)

	if err := checkWellFormed(out, subject); err != nil {
		return nil, fmt.Errorf("malformed source output: %w", err)
	}

	if c.cache != nil && cacheTTL > 0 {
		if b, err := json.Marshal(out); err == nil {
			c.cache.Set(key, b, cacheTTL)
		}
	}
	return out, nil
}

// checkWellFormed rejects structurally unusable reports before they reach
// validation.
func checkWellFormed(out *signal.SourceOutput, subject string) error {
	if out.SourceID == "" {
		return errors.New("missing sourceId")
	}
	if out.Subject != subject {
		return fmt.Errorf("report is for %q, wanted %q", out.Subject, subject)
	}
	if out.Timestamp.IsZero() {
		return errors.New("missing timestamp")
	}
	return nil
}

func cacheKey(subject string, t signal.SourceType) string {
	return "acquire:" + subject + ":" + string(t)
}
