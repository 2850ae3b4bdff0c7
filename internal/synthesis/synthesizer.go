package synthesis

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/a-teotia/AISignalNEW-sub001/internal/quality"
	"github.com/a-teotia/AISignalNEW-sub001/internal/signal"
	"github.com/a-teotia/AISignalNEW-sub001/internal/strategy"
)

// Trend classifies a weighted directional vote.
type Trend string

const (
	TrendUp       Trend = "UP"
	TrendDown     Trend = "DOWN"
	TrendSideways Trend = "SIDEWAYS"
)

// TrendValue maps a trend onto the vote scale.
func TrendValue(t Trend) float64 {
	switch t {
	case TrendUp:
		return 1
	case TrendDown:
		return -1
	default:
		return 0
	}
}

// Config holds the synthesizer's tables and thresholds. All tunables are
// table-driven, never inlined.
type Config struct {
	// BaseWeights is the static per-source-type weight table. It must sum to
	// 1.0 across all known types.
	BaseWeights map[signal.SourceType]float64 `yaml:"base_weights"`

	// HorizonWeights combines per-horizon directions into the overall one;
	// the nearest horizon is weighted highest.
	HorizonWeights map[signal.Horizon]float64 `yaml:"horizon_weights"`

	MinQualifyingSources int     `yaml:"min_qualifying_sources"`
	QualityThreshold     float64 `yaml:"quality_threshold"`
	DirectionThreshold   float64 `yaml:"direction_threshold"`

	// Dynamic weight floors keep any single multiplier from zeroing a source.
	ConfidenceFloor float64 `yaml:"confidence_floor"`
	QualityFloor    float64 `yaml:"quality_floor"`
	ValidationFloor float64 `yaml:"validation_floor"`

	// Authoritative fast path: when the designated synthesis source is both
	// confident and high quality, its confidence bypasses the weighted vote.
	AuthoritativeType          signal.SourceType `yaml:"authoritative_type"`
	AuthoritativeMinConfidence int               `yaml:"authoritative_min_confidence"`
	AuthoritativeMinQuality    float64           `yaml:"authoritative_min_quality"`
}

// DefaultConfig returns the production synthesis configuration.
func DefaultConfig() Config {
	return Config{
		BaseWeights: map[signal.SourceType]float64{
			signal.SourceTechnical:      0.20,
			signal.SourceFlow:           0.18,
			signal.SourceFundamental:    0.15,
			signal.SourceMicrostructure: 0.13,
			signal.SourceSentiment:      0.12,
			signal.SourceOnChain:        0.12,
			signal.SourceSynthesis:      0.10,
		},
		HorizonWeights: map[signal.Horizon]float64{
			signal.Horizon1Day:   0.5,
			signal.Horizon1Week:  0.3,
			signal.Horizon1Month: 0.2,
		},
		MinQualifyingSources:       3,
		QualityThreshold:           70,
		DirectionThreshold:         0.1,
		ConfidenceFloor:            0.1,
		QualityFloor:               0.5,
		ValidationFloor:            0.5,
		AuthoritativeType:          signal.SourceSynthesis,
		AuthoritativeMinConfidence: 60,
		AuthoritativeMinQuality:    70,
	}
}

// Validate checks weight-table integrity.
func (c Config) Validate() error {
	sum := 0.0
	for _, w := range c.BaseWeights {
		sum += w
	}
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("base weights sum to %.3f, expected 1.000", sum)
	}

	hsum := 0.0
	for _, w := range c.HorizonWeights {
		hsum += w
	}
	if hsum < 0.99 || hsum > 1.01 {
		return fmt.Errorf("horizon weights sum to %.3f, expected 1.000", hsum)
	}
	return nil
}

// SourceWeight records one source's share of the vote, for transparency.
type SourceWeight struct {
	SourceID string  `json:"sourceId"`
	Weight   float64 `json:"weight"` // normalized, sums to 100 across sources
}

// Result is the synthesized direction and confidence before risk management.
type Result struct {
	Subject           string                   `json:"subject"`
	Direction         Trend                    `json:"direction"`
	Confidence        int                      `json:"confidence"`
	HorizonDirections map[signal.Horizon]Trend `json:"horizonDirections"`
	Weights           []SourceWeight           `json:"weights"`
	FastPath          bool                     `json:"fastPath"`
}

// Synthesizer combines adjusted sources into one direction and confidence.
type Synthesizer struct {
	cfg       Config
	extractor *signal.Extractor
}

// NewSynthesizer creates a synthesizer; an invalid config is rejected.
func NewSynthesizer(cfg Config, extractor *signal.Extractor) (*Synthesizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Synthesizer{cfg: cfg, extractor: extractor}, nil
}

// Synthesize performs the dynamic weighted vote. It fails with
// InsufficientEvidenceError when fewer than the minimum count of
// quality-qualifying sources exist, or when no sources exist at all; it never
// degrades to a guess.
func (s *Synthesizer) Synthesize(subject string, sources []quality.AdjustedSource, prof *strategy.Profile) (*Result, error) {
	if len(sources) == 0 {
		return nil, &InsufficientEvidenceError{Subject: subject, Qualifying: 0, Required: s.cfg.MinQualifyingSources}
	}

	included := make([]quality.AdjustedSource, 0, len(sources))
	qualifying := 0
	for _, src := range sources {
		if src.Excluded() {
			continue
		}
		included = append(included, src)
		if src.Profile.OverallQuality >= s.cfg.QualityThreshold {
			qualifying++
		}
	}

	if qualifying < s.cfg.MinQualifyingSources {
		return nil, &InsufficientEvidenceError{Subject: subject, Qualifying: qualifying, Required: s.cfg.MinQualifyingSources}
	}

	weights := s.dynamicWeights(included, prof)

	res := &Result{
		Subject:           subject,
		HorizonDirections: make(map[signal.Horizon]Trend, len(s.cfg.HorizonWeights)),
		Weights:           normalizedWeights(weights, included),
	}

	res.Confidence, res.FastPath = s.overallConfidence(included, weights)

	for _, h := range signal.Horizons() {
		res.HorizonDirections[h] = s.horizonVote(included, weights, h)
	}
	res.Direction = s.overallDirection(res.HorizonDirections)

	log.Debug().
		Str("subject", subject).
		Str("direction", string(res.Direction)).
		Int("confidence", res.Confidence).
		Bool("fast_path", res.FastPath).
		Int("sources", len(included)).
		Msg("synthesis complete")

	return res, nil
}

// dynamicWeights computes the raw per-source weights:
// base(sourceType) x max(floor, conf/100) x max(floor, quality/100) x
// max(floor, validation/100). A strategy profile swaps or scales the base
// weight with the source's relevance to that profile.
func (s *Synthesizer) dynamicWeights(included []quality.AdjustedSource, prof *strategy.Profile) []float64 {
	weights := make([]float64, len(included))
	for i, src := range included {
		base := s.cfg.BaseWeights[src.Output.Type] // 0 for unknown types
		if prof != nil {
			rel := prof.SourceRelevance(src.Output)
			if prof.Mode == strategy.ModeMultiply {
				base *= rel
			} else {
				base = rel
			}
		}
		weights[i] = base *
			math.Max(s.cfg.ConfidenceFloor, float64(src.AdjustedConfidence)/100) *
			math.Max(s.cfg.QualityFloor, src.Profile.OverallQuality/100) *
			math.Max(s.cfg.ValidationFloor, src.ValidationScore/100)
	}
	return weights
}

// overallConfidence returns the run confidence: the authoritative source's
// own confidence when it is strong enough, otherwise the weight-normalized
// average of all included sources' adjusted confidences.
func (s *Synthesizer) overallConfidence(included []quality.AdjustedSource, weights []float64) (int, bool) {
	for _, src := range included {
		if src.Output.Type == s.cfg.AuthoritativeType &&
			src.AdjustedConfidence > s.cfg.AuthoritativeMinConfidence &&
			src.Profile.OverallQuality > s.cfg.AuthoritativeMinQuality {
			return src.AdjustedConfidence, true
		}
	}

	var weighted, total float64
	for i, src := range included {
		weighted += weights[i] * float64(src.AdjustedConfidence)
		total += weights[i]
	}
	if total == 0 {
		return 0, false
	}
	return int(math.Round(weighted / total)), false
}

// horizonVote runs the weighted directional vote for one horizon.
func (s *Synthesizer) horizonVote(included []quality.AdjustedSource, weights []float64, h signal.Horizon) Trend {
	var sum, norm float64
	for i, src := range included {
		stance := s.extractor.HorizonStance(src.Output.Payload, h)
		contribution := weights[i] * float64(src.AdjustedConfidence) / 100
		sum += signal.StanceValue(stance) * contribution
		norm += contribution
	}
	if norm == 0 {
		return TrendSideways
	}
	return s.classify(sum / norm)
}

// overallDirection combines per-horizon directions under the fixed horizon
// weights, nearest horizon weighted highest.
func (s *Synthesizer) overallDirection(horizons map[signal.Horizon]Trend) Trend {
	var sum float64
	for h, t := range horizons {
		sum += s.cfg.HorizonWeights[h] * TrendValue(t)
	}
	return s.classify(sum)
}

func (s *Synthesizer) classify(v float64) Trend {
	switch {
	case v > s.cfg.DirectionThreshold:
		return TrendUp
	case v < -s.cfg.DirectionThreshold:
		return TrendDown
	default:
		return TrendSideways
	}
}

// normalizedWeights rescales raw weights to sum to 100 for reporting.
func normalizedWeights(weights []float64, included []quality.AdjustedSource) []SourceWeight {
	total := 0.0
	for _, w := range weights {
		total += w
	}

	out := make([]SourceWeight, len(included))
	for i, src := range included {
		w := 0.0
		if total > 0 {
			w = 100 * weights[i] / total
		}
		out[i] = SourceWeight{SourceID: src.Output.SourceID, Weight: w}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].SourceID < out[j].SourceID
	})
	return out
}
