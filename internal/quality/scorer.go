package quality

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/a-teotia/AISignalNEW-sub001/internal/signal"
	"github.com/a-teotia/AISignalNEW-sub001/internal/validation"
)

// Profile holds the derived per-source quality metrics, each 0-100.
// OverallQuality is always the deterministic weighted mean of the six
// sub-scores and is never set independently.
type Profile struct {
	DataFreshness     float64  `json:"dataFreshness"`
	SourceReliability float64  `json:"sourceReliability"`
	CrossVerification float64  `json:"crossVerification"`
	AnomalyScore      float64  `json:"anomalyScore"`
	Completeness      float64  `json:"completeness"`
	Consistency       float64  `json:"consistency"`
	OverallQuality    float64  `json:"overallQuality"`
	Warnings          []string `json:"warnings,omitempty"`
}

// Sub-score weights for the overall quality roll-up. They sum to 1.0.
const (
	weightReliability       = 0.25
	weightFreshness         = 0.20
	weightCrossVerification = 0.15
	weightAnomaly           = 0.15
	weightCompleteness      = 0.15
	weightConsistency       = 0.10
)

// Warning thresholds per metric. Advisory only: warnings never gate the run.
const (
	warnFreshnessBelow    = 50.0
	warnReliabilityBelow  = 60.0
	warnCompletenessBelow = 70.0
	warnAnomalyBelow      = 60.0
	warnConsistencyBelow  = 70.0
)

// Anomaly penalties, applied to a 100 starting score.
const (
	penaltyExtremeConfidence = 30.0 // confidence above 95
	penaltyExtremeTrend      = 25.0 // trend strength above 95
	penaltyExtremeSentiment  = 20.0 // |sentiment| above 0.9
)

// Scorer derives quality profiles from validation results and raw metadata.
// It is a pure function holder: safe for concurrent use.
type Scorer struct {
	reqs func(signal.SourceType) validation.Requirements
	now  func() time.Time
}

// NewScorer creates a scorer that reads max-age ceilings from the engine's
// requirement table.
func NewScorer(engine *validation.Engine) *Scorer {
	return &Scorer{reqs: engine.RequirementsFor, now: time.Now}
}

// SetClock overrides the scorer clock for deterministic tests.
func (s *Scorer) SetClock(now func() time.Time) { s.now = now }

// Score computes the quality profile for one source output given its checks.
func (s *Scorer) Score(checks []validation.Check, out signal.SourceOutput) Profile {
	req := s.reqs(out.Type)
	p := Profile{
		DataFreshness:     s.freshness(out, req),
		SourceReliability: reliability(out, req),
		CrossVerification: crossVerification(out),
		AnomalyScore:      anomaly(out),
		Completeness:      checkScore(checks, "required_fields"),
		Consistency:       checkScore(checks, "internal_consistency"),
	}

	p.OverallQuality = weightReliability*p.SourceReliability +
		weightFreshness*p.DataFreshness +
		weightCrossVerification*p.CrossVerification +
		weightAnomaly*p.AnomalyScore +
		weightCompleteness*p.Completeness +
		weightConsistency*p.Consistency

	p.Warnings = warnings(out.SourceID, p)
	return p
}

func (s *Scorer) freshness(out signal.SourceOutput, req validation.Requirements) float64 {
	if out.Timestamp.IsZero() || req.MaxAge <= 0 {
		return 0
	}
	age := s.now().Sub(out.Timestamp)
	if age <= 0 {
		return 100
	}
	score := 100 * (1 - age.Seconds()/req.MaxAge.Seconds())
	return clamp(score, 0, 100)
}

// reliability is the fraction of cited provenance entries that match the
// source type's trusted-domain allow-list.
func reliability(out signal.SourceOutput, req validation.Requirements) float64 {
	cited := out.DistinctProvenance()
	if len(cited) == 0 {
		return 0
	}
	if len(req.TrustedDomains) == 0 {
		return 100
	}
	trusted := 0
	for _, c := range cited {
		if domainTrusted(c, req.TrustedDomains) {
			trusted++
		}
	}
	return 100 * float64(trusted) / float64(len(cited))
}

// crossVerification rewards reports corroborated by multiple distinct
// provenance entries.
func crossVerification(out signal.SourceOutput) float64 {
	switch n := len(out.DistinctProvenance()); {
	case n == 0:
		return 0
	case n == 1:
		return 50
	case n == 2:
		return 75
	default:
		return 95
	}
}

// anomaly starts at 100 and is penalized per detected statistical anomaly.
func anomaly(out signal.SourceOutput) float64 {
	score := 100.0
	if out.Confidence > 95 {
		score -= penaltyExtremeConfidence
	}
	if ts := out.Payload.TrendStrength; ts != nil && *ts > 95 {
		score -= penaltyExtremeTrend
	}
	if sent := out.Payload.Sentiment; sent != nil && math.Abs(*sent) > 0.9 {
		score -= penaltyExtremeSentiment
	}
	return clamp(score, 0, 100)
}

func warnings(sourceID string, p Profile) []string {
	var w []string
	if p.DataFreshness < warnFreshnessBelow {
		w = append(w, fmt.Sprintf("%s: stale data (freshness %.0f)", sourceID, p.DataFreshness))
	}
	if p.SourceReliability < warnReliabilityBelow {
		w = append(w, fmt.Sprintf("%s: low source reliability (%.0f)", sourceID, p.SourceReliability))
	}
	if p.Completeness < warnCompletenessBelow {
		w = append(w, fmt.Sprintf("%s: incomplete payload (completeness %.0f)", sourceID, p.Completeness))
	}
	if p.AnomalyScore < warnAnomalyBelow {
		w = append(w, fmt.Sprintf("%s: statistical anomalies detected (score %.0f)", sourceID, p.AnomalyScore))
	}
	if p.Consistency < warnConsistencyBelow {
		w = append(w, fmt.Sprintf("%s: internally inconsistent payload (%.0f)", sourceID, p.Consistency))
	}
	return w
}

func checkScore(checks []validation.Check, name string) float64 {
	if c, ok := validation.FindCheck(checks, name); ok {
		return c.Score
	}
	return 0
}

func domainTrusted(cited string, domains []string) bool {
	c := strings.ToLower(cited)
	for _, d := range domains {
		if d != "" && strings.Contains(c, strings.ToLower(d)) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
