package quality

import (
	"math"

	"github.com/a-teotia/AISignalNEW-sub001/internal/signal"
	"github.com/a-teotia/AISignalNEW-sub001/internal/validation"
)

// PenaltyTable holds the confidence-adjustment factors. They are table-driven
// so they can be tuned and tested independently of the algorithm.
type PenaltyTable struct {
	LowQualityThreshold   float64 `yaml:"low_quality_threshold"`
	LowQualityFactor      float64 `yaml:"low_quality_factor"`
	CriticalFailureFactor float64 `yaml:"critical_failure_factor"`
}

// DefaultPenaltyTable returns the production penalty factors.
func DefaultPenaltyTable() PenaltyTable {
	return PenaltyTable{
		LowQualityThreshold:   70,
		LowQualityFactor:      0.8,
		CriticalFailureFactor: 0.5,
	}
}

// AdjustConfidence revises a source's self-reported confidence downward when
// quality is low or critical checks failed. The order matters: penalties
// compound multiplicatively, then the result is clamped to the overall
// quality and to [0,100]. A borderline source's survival depends on this
// exact sequence.
func AdjustConfidence(original int, profile Profile, checks []validation.Check, table PenaltyTable) int {
	adjusted := float64(original)

	if profile.OverallQuality < table.LowQualityThreshold {
		adjusted *= table.LowQualityFactor
	}
	if !validation.Passed(checks) {
		adjusted *= table.CriticalFailureFactor
	}

	adjusted = math.Min(adjusted, profile.OverallQuality)
	adjusted = math.Max(0, math.Min(100, adjusted))

	// Rounding must not lift the result back above a fractional quality cap:
	// a 69.6 quality caps the integer result at 69, never 70.
	result := math.Round(adjusted)
	if ceiling := math.Floor(profile.OverallQuality); result > ceiling {
		result = ceiling
	}
	return int(result)
}

// AdjustedSource is a source output together with its validation checks,
// quality profile and adjusted confidence. It is the unit the conflict
// detector and synthesizer consume. Written once, read-only afterward.
type AdjustedSource struct {
	Output             signal.SourceOutput `json:"output"`
	Checks             []validation.Check  `json:"checks"`
	Profile            Profile             `json:"profile"`
	ValidationScore    float64             `json:"validationScore"`
	OriginalConfidence int                 `json:"originalConfidence"`
	AdjustedConfidence int                 `json:"adjustedConfidence"`

	// ExclusionReason is set when the source was excluded from synthesis
	// (adjusted confidence 0, malformed payload, acquisition failure). An
	// excluded source still appears in the transparency report.
	ExclusionReason string `json:"exclusionReason,omitempty"`
}

// Excluded reports whether the source is dropped from the weighted vote.
func (a AdjustedSource) Excluded() bool {
	return a.AdjustedConfidence == 0
}

// Adjust runs validation scoring and confidence adjustment for one raw
// output, producing the synthesizer's input unit.
func Adjust(engine *validation.Engine, scorer *Scorer, table PenaltyTable, out signal.SourceOutput) AdjustedSource {
	checks := engine.Validate(out)
	profile := scorer.Score(checks, out)

	adj := AdjustedSource{
		Output:             out,
		Checks:             checks,
		Profile:            profile,
		ValidationScore:    validation.Score(checks),
		OriginalConfidence: out.Confidence,
		AdjustedConfidence: AdjustConfidence(out.Confidence, profile, checks, table),
	}
	if adj.AdjustedConfidence == 0 {
		adj.ExclusionReason = "adjusted confidence reduced to zero"
	}
	return adj
}
