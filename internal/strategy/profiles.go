package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/a-teotia/AISignalNEW-sub001/internal/signal"
)

// RelevanceMode controls how a profile's relevance weights interact with the
// synthesizer's static base weights.
type RelevanceMode string

const (
	// ModeReplace substitutes the relevance weight for the base weight.
	ModeReplace RelevanceMode = "replace"
	// ModeMultiply scales the base weight by the relevance weight.
	ModeMultiply RelevanceMode = "multiply"
)

// Profile is a named time-horizon configuration bundle: per-source-type
// relevance weights, a cache validity window for acquired payloads, and a
// decay rate that ages out confidence over elapsed time since analysis.
type Profile struct {
	Name        string                        `yaml:"name" json:"name"`
	Description string                        `yaml:"description" json:"description"`
	Focus       signal.Horizon                `yaml:"focus" json:"focus"`
	Relevance   map[signal.SourceType]float64 `yaml:"relevance" json:"relevance"`
	Mode        RelevanceMode                 `yaml:"mode" json:"mode"`
	CacheTTL    time.Duration                 `yaml:"cache_ttl" json:"cacheTTL"`

	// DecayRatePerDay is the percent-per-day decay parameter:
	// confidence *= 0.9^(daysElapsed * rate/100), multiplier floored at 0.10.
	DecayRatePerDay float64 `yaml:"decay_rate_per_day" json:"decayRatePerDay"`
}

// Catalyst boost applied when a source's findings match the profile's focus:
// near-term catalysts matter to intraday traders, long-term theses to
// position traders.
const catalystBoost = 1.25

// SourceRelevance returns this profile's relevance weight for one source,
// derived from the source type and the nature of its findings.
func (p *Profile) SourceRelevance(out signal.SourceOutput) float64 {
	rel, ok := p.Relevance[out.Type]
	if !ok {
		// Unknown source types degrade to low relevance, not zero: they may
		// still corroborate, they just never dominate.
		rel = 0.05
	}
	if p.Focus == signal.Horizon1Day && out.Payload.NearTermCatalyst {
		rel *= catalystBoost
	}
	if p.Focus == signal.Horizon1Month && out.Payload.LongTermThesis {
		rel *= catalystBoost
	}
	return rel
}

// decayFloor is the minimum decay multiplier: aged analyses lose weight but
// are never erased outright.
const decayFloor = 0.10

// DecayMultiplier computes the confidence aging factor for an analysis
// produced `elapsed` ago under the given percent-per-day decay rate.
func DecayMultiplier(elapsed time.Duration, decayRatePerDay float64) float64 {
	if elapsed <= 0 || decayRatePerDay <= 0 {
		return 1
	}
	days := elapsed.Hours() / 24
	m := math.Pow(0.9, days*decayRatePerDay/100)
	if m < decayFloor {
		m = decayFloor
	}
	return m
}

// DecayedConfidence ages a confidence value, keeping it an integer in [0,100].
func (p *Profile) DecayedConfidence(confidence int, elapsed time.Duration) int {
	m := DecayMultiplier(elapsed, p.DecayRatePerDay)
	return int(math.Round(float64(confidence) * m))
}

// Validate checks that relevance weights are sane.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("strategy profile missing name")
	}
	if p.Mode != ModeReplace && p.Mode != ModeMultiply {
		return fmt.Errorf("strategy %s: unknown relevance mode %q", p.Name, p.Mode)
	}
	for t, w := range p.Relevance {
		if w < 0 {
			return fmt.Errorf("strategy %s: negative relevance %.3f for %s", p.Name, w, t)
		}
	}
	return nil
}

// Presets returns the built-in strategy profiles keyed by name.
func Presets() map[string]*Profile {
	return map[string]*Profile{
		"intraday": {
			Name:        "intraday",
			Description: "Day-trading focus: order flow, microstructure and short-term technicals dominate",
			Focus:       signal.Horizon1Day,
			Mode:        ModeReplace,
			CacheTTL:    15 * time.Minute,
			Relevance: map[signal.SourceType]float64{
				signal.SourceFlow:           0.26,
				signal.SourceMicrostructure: 0.22,
				signal.SourceTechnical:      0.22,
				signal.SourceSentiment:      0.12,
				signal.SourceSynthesis:      0.10,
				signal.SourceOnChain:        0.05,
				signal.SourceFundamental:    0.03,
			},
			DecayRatePerDay: 25,
		},
		"swing": {
			Name:        "swing",
			Description: "Multi-day swing focus: balanced technical, flow and sentiment weighting",
			Focus:       signal.Horizon1Week,
			Mode:        ModeMultiply,
			CacheTTL:    2 * time.Hour,
			Relevance: map[signal.SourceType]float64{
				signal.SourceTechnical:      1.2,
				signal.SourceFlow:           1.1,
				signal.SourceSentiment:      1.0,
				signal.SourceSynthesis:      1.0,
				signal.SourceMicrostructure: 0.8,
				signal.SourceOnChain:        0.9,
				signal.SourceFundamental:    0.9,
			},
			DecayRatePerDay: 10,
		},
		"position": {
			Name:        "position",
			Description: "Position-trading focus: fundamentals and on-chain structure outweigh intraday noise",
			Focus:       signal.Horizon1Month,
			Mode:        ModeReplace,
			CacheTTL:    12 * time.Hour,
			Relevance: map[signal.SourceType]float64{
				signal.SourceFundamental:    0.28,
				signal.SourceOnChain:        0.22,
				signal.SourceSynthesis:      0.16,
				signal.SourceTechnical:      0.14,
				signal.SourceSentiment:      0.10,
				signal.SourceFlow:           0.06,
				signal.SourceMicrostructure: 0.04,
			},
			DecayRatePerDay: 5,
		},
	}
}

// Lookup returns a preset by name.
func Lookup(name string) (*Profile, error) {
	if p, ok := Presets()[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("unknown strategy profile %q", name)
}
