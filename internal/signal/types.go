package signal

import "time"

// SourceType identifies the kind of analysis agent that produced a report.
type SourceType string

const (
	SourceTechnical      SourceType = "technical"
	SourceFundamental    SourceType = "fundamental"
	SourceSentiment      SourceType = "sentiment"
	SourceFlow           SourceType = "flow"
	SourceOnChain        SourceType = "onchain"
	SourceMicrostructure SourceType = "microstructure"
	SourceSynthesis      SourceType = "synthesis"
)

// KnownSourceTypes lists every source type the core understands. Unknown types
// still flow through the pipeline but degrade to a neutral, low-relevance stance.
func KnownSourceTypes() []SourceType {
	return []SourceType{
		SourceTechnical,
		SourceFundamental,
		SourceSentiment,
		SourceFlow,
		SourceOnChain,
		SourceMicrostructure,
		SourceSynthesis,
	}
}

// Direction is a coarse directional stance extracted from a source payload.
type Direction string

const (
	DirectionBullish Direction = "bullish"
	DirectionBearish Direction = "bearish"
	DirectionNeutral Direction = "neutral"
)

// Horizon is a named forward-looking time window.
type Horizon string

const (
	Horizon1Day   Horizon = "1d"
	Horizon1Week  Horizon = "1w"
	Horizon1Month Horizon = "1m"
)

// Horizons returns all horizons in nearest-first order.
func Horizons() []Horizon {
	return []Horizon{Horizon1Day, Horizon1Week, Horizon1Month}
}

// Payload carries the source-specific structured content of a report. The core
// treats it as mostly opaque: only the generically named optional fields below
// are read, through the Extractor. Pointer fields distinguish "absent" from
// zero so that an agent that never measured a thing is not mistaken for one
// that measured zero.
type Payload struct {
	Kind SourceType `json:"kind"`

	// Directional evidence, in extraction precedence order.
	TrendDirection     Direction `json:"trendDirection,omitempty"`
	PredictedDirection Direction `json:"predictedDirection,omitempty"`
	Sentiment          *float64  `json:"sentiment,omitempty"`     // -1..+1
	BullConsensus      *float64  `json:"bullConsensus,omitempty"` // vote counts or ratios
	BearConsensus      *float64  `json:"bearConsensus,omitempty"`

	// Optional per-horizon stances. When absent for a horizon, the overall
	// extracted stance applies.
	Horizons map[Horizon]Direction `json:"horizons,omitempty"`

	// Magnitudes used by anomaly scoring.
	TrendStrength *float64 `json:"trendStrength,omitempty"` // 0..100

	// Reference prices, in decision-entry priority order.
	OrderBookMid   *float64 `json:"orderBookMid,omitempty"`
	TechnicalPrice *float64 `json:"technicalPrice,omitempty"`
	MarketPrice    *float64 `json:"marketPrice,omitempty"`
	NetworkPrice   *float64 `json:"networkPrice,omitempty"`

	// Strategy relevance hints.
	NearTermCatalyst bool `json:"nearTermCatalyst,omitempty"`
	LongTermThesis   bool `json:"longTermThesis,omitempty"`
}

// SourceOutput is one agent's report for one subject at one point in time.
// It is immutable once produced and consumed exactly once per run.
type SourceOutput struct {
	SourceID   string     `json:"sourceId"`
	Type       SourceType `json:"type"`
	Subject    string     `json:"subject"`
	Timestamp  time.Time  `json:"timestamp"`
	Confidence int        `json:"confidence"` // self-reported, 0-100
	Provenance []string   `json:"provenance,omitempty"`
	Payload    Payload    `json:"payload"`
}

// DistinctProvenance returns the deduplicated provenance list, preserving
// first-seen order.
func (o SourceOutput) DistinctProvenance() []string {
	seen := make(map[string]bool, len(o.Provenance))
	out := make([]string, 0, len(o.Provenance))
	for _, p := range o.Provenance {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
