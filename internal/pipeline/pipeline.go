package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/a-teotia/AISignalNEW-sub001/internal/acquire"
	"github.com/a-teotia/AISignalNEW-sub001/internal/conflict"
	"github.com/a-teotia/AISignalNEW-sub001/internal/decision"
	"github.com/a-teotia/AISignalNEW-sub001/internal/explain"
	"github.com/a-teotia/AISignalNEW-sub001/internal/metrics"
	"github.com/a-teotia/AISignalNEW-sub001/internal/quality"
	"github.com/a-teotia/AISignalNEW-sub001/internal/signal"
	"github.com/a-teotia/AISignalNEW-sub001/internal/strategy"
	"github.com/a-teotia/AISignalNEW-sub001/internal/synthesis"
	"github.com/a-teotia/AISignalNEW-sub001/internal/validation"
)

// Config bundles the stage tables for one pipeline instance.
type Config struct {
	Extractor signal.ExtractorConfig
	Synthesis synthesis.Config
	Conflict  conflict.Config
	Risk      decision.RiskTable
	Penalties quality.PenaltyTable
}

// DefaultConfig returns production settings for every stage.
func DefaultConfig() Config {
	return Config{
		Extractor: signal.DefaultExtractorConfig(),
		Synthesis: synthesis.DefaultConfig(),
		Conflict:  conflict.DefaultConfig(),
		Risk:      decision.DefaultRiskTable(),
		Penalties: quality.DefaultPenaltyTable(),
	}
}

// Pipeline runs one complete synthesis cycle: validate and score each source
// in parallel, detect conflicts, synthesize a direction and confidence, and
// generate the risk-bounded decision. A pipeline holds no per-run state:
// every run is independent.
type Pipeline struct {
	engine    *validation.Engine
	scorer    *quality.Scorer
	penalties quality.PenaltyTable
	detector  *conflict.Detector
	synth     *synthesis.Synthesizer
	generator *decision.Generator
	metrics   *metrics.Set
	now       func() time.Time
}

// New builds a pipeline from config. A nil metrics set disables
// instrumentation.
func New(cfg Config, m *metrics.Set) (*Pipeline, error) {
	extractor := signal.NewExtractor(cfg.Extractor)
	synth, err := synthesis.NewSynthesizer(cfg.Synthesis, extractor)
	if err != nil {
		return nil, err
	}

	engine := validation.NewEngine()
	return &Pipeline{
		engine:    engine,
		scorer:    quality.NewScorer(engine),
		penalties: cfg.Penalties,
		detector:  conflict.NewDetector(cfg.Conflict, extractor),
		synth:     synth,
		generator: decision.NewGenerator(cfg.Risk),
		metrics:   m,
		now:       time.Now,
	}, nil
}

// SetClock pins every stage clock, for deterministic tests.
func (p *Pipeline) SetClock(now func() time.Time) {
	p.now = now
	p.engine.SetClock(now)
	p.scorer.SetClock(now)
	p.generator.SetClock(now)
}

// Input is one already-collected batch of source outputs for one subject.
type Input struct {
	Subject  string
	Outputs  []signal.SourceOutput
	Failures []acquire.Failure // acquisition failures, recorded as exclusions
	Strategy *strategy.Profile // optional time-horizon profile
}

// Run executes one synthesis cycle. Only InsufficientEvidence and
// MissingMarketData abort the run; every other degradation excludes the
// offending source and is recorded in the decision metadata.
func (p *Pipeline) Run(ctx context.Context, in Input) (*decision.Decision, error) {
	started := p.now()
	runID := uuid.NewString()

	logger := log.With().
		Str("run_id", runID).
		Str("subject", in.Subject).
		Logger()

	adjusted := p.adjustAll(in)

	if err := ctx.Err(); err != nil {
		p.count("error")
		return nil, err
	}

	conflicts := p.detector.Detect(adjusted)

	result, err := p.synth.Synthesize(in.Subject, adjusted, in.Strategy)
	if err != nil {
		p.recordFailure(err)
		logger.Warn().Err(err).Msg("synthesis refused to produce a decision")
		return nil, err
	}

	report := explain.Build(adjusted, conflicts, result)

	dec, err := p.generator.Generate(runID, result, adjusted, report)
	if err != nil {
		p.recordFailure(err)
		logger.Warn().Err(err).Msg("decision generation failed")
		return nil, err
	}

	p.observe(dec, adjusted, conflicts, p.now().Sub(started))

	logger.Info().
		Str("direction", string(dec.Direction)).
		Int("confidence", dec.Confidence).
		Str("risk_level", string(dec.RiskLevel)).
		Bool("tradeable", dec.Tradeable).
		Float64("consensus", conflicts.ConsensusStrength).
		Msg("decision generated")

	return dec, nil
}

// adjustAll validates, quality-scores and confidence-adjusts every source
// concurrently. Each goroutine writes only its own slice slot; the WaitGroup
// is the barrier before conflict detection and synthesis, which need the
// complete set.
func (p *Pipeline) adjustAll(in Input) []quality.AdjustedSource {
	adjusted := make([]quality.AdjustedSource, len(in.Outputs))
	var wg sync.WaitGroup
	for i, out := range in.Outputs {
		wg.Add(1)
		go func(i int, out signal.SourceOutput) {
			defer wg.Done()
			adj := quality.Adjust(p.engine, p.scorer, p.penalties, out)
			p.applyDecay(&adj, in.Strategy)
			adjusted[i] = adj
		}(i, out)
	}
	wg.Wait()

	// Acquisition failures appear as excluded sources so the transparency
	// report explains every absence.
	for _, f := range in.Failures {
		adjusted = append(adjusted, quality.AdjustedSource{
			Output: signal.SourceOutput{
				SourceID: string(f.Source),
				Type:     f.Source,
				Subject:  in.Subject,
			},
			ExclusionReason: f.Reason,
		})
	}
	return adjusted
}

// applyDecay ages the adjusted confidence by elapsed time since the analysis
// was produced, under the strategy profile's decay rate. Decay only lowers
// confidence, so the quality and original-confidence bounds still hold.
func (p *Pipeline) applyDecay(adj *quality.AdjustedSource, prof *strategy.Profile) {
	if prof == nil || adj.Output.Timestamp.IsZero() {
		return
	}
	elapsed := p.now().Sub(adj.Output.Timestamp)
	decayed := prof.DecayedConfidence(adj.AdjustedConfidence, elapsed)
	if decayed < adj.AdjustedConfidence {
		adj.AdjustedConfidence = decayed
		if decayed == 0 && adj.ExclusionReason == "" {
			adj.ExclusionReason = "confidence decayed to zero"
		}
	}
}

func (p *Pipeline) observe(dec *decision.Decision, adjusted []quality.AdjustedSource, conflicts conflict.Summary, elapsed time.Duration) {
	if p.metrics == nil {
		return
	}
	p.metrics.RunsTotal.WithLabelValues("decision").Inc()
	p.metrics.RunDuration.Observe(elapsed.Seconds())
	p.metrics.DecisionConfidence.Observe(float64(dec.Confidence))
	for _, a := range adjusted {
		if a.Excluded() {
			p.metrics.SourcesExcluded.Inc()
		}
	}
	p.metrics.ConflictsDetected.Add(float64(len(conflicts.Records)))
}

func (p *Pipeline) recordFailure(err error) {
	if p.metrics == nil {
		return
	}
	var insufficient *synthesis.InsufficientEvidenceError
	var missing *decision.MissingMarketDataError
	switch {
	case errors.As(err, &insufficient):
		p.metrics.RunsTotal.WithLabelValues("insufficient_evidence").Inc()
	case errors.As(err, &missing):
		p.metrics.RunsTotal.WithLabelValues("missing_market_data").Inc()
	default:
		p.metrics.RunsTotal.WithLabelValues("error").Inc()
	}
}

func (p *Pipeline) count(outcome string) {
	if p.metrics != nil {
		p.metrics.RunsTotal.WithLabelValues(outcome).Inc()
	}
}
