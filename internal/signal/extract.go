package signal

// ExtractionPath names one way of deriving a directional stance from a payload.
type ExtractionPath string

const (
	PathTrend      ExtractionPath = "trend"
	PathPrediction ExtractionPath = "prediction"
	PathSentiment  ExtractionPath = "sentiment"
	PathConsensus  ExtractionPath = "consensus"
)

// ExtractorConfig controls how directional stances are read out of
// heterogeneous payloads. The precedence order is a heuristic, not a law, so
// it is configurable rather than hard-coded; the first path that yields a
// non-neutral stance wins and there is deliberately no cross-path tie-break.
type ExtractorConfig struct {
	Order []ExtractionPath `yaml:"order"`

	// SentimentThreshold is the minimum |sentiment| treated as directional.
	SentimentThreshold float64 `yaml:"sentiment_threshold"`

	// ConsensusBullRatio / ConsensusBearRatio classify the bull share of the
	// bull+bear consensus tally.
	ConsensusBullRatio float64 `yaml:"consensus_bull_ratio"`
	ConsensusBearRatio float64 `yaml:"consensus_bear_ratio"`
}

// DefaultExtractorConfig returns the standard precedence:
// explicit trend -> explicit prediction -> sentiment polarity -> consensus ratio.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		Order:              []ExtractionPath{PathTrend, PathPrediction, PathSentiment, PathConsensus},
		SentimentThreshold: 0.15,
		ConsensusBullRatio: 0.60,
		ConsensusBearRatio: 0.40,
	}
}

// Extractor derives coarse directional stances from payloads.
type Extractor struct {
	cfg ExtractorConfig
}

// NewExtractor creates an extractor with the given configuration. A zero-value
// Order falls back to the default precedence.
func NewExtractor(cfg ExtractorConfig) *Extractor {
	if len(cfg.Order) == 0 {
		cfg = DefaultExtractorConfig()
	}
	return &Extractor{cfg: cfg}
}

// Stance extracts the overall directional stance from a payload. Unknown or
// future payload shapes degrade to neutral rather than erroring.
func (e *Extractor) Stance(p Payload) Direction {
	for _, path := range e.cfg.Order {
		if d := e.stanceVia(path, p); d != DirectionNeutral {
			return d
		}
	}
	return DirectionNeutral
}

// HorizonStance extracts the stance for one horizon, falling back to the
// overall stance when the payload carries no horizon-specific signal.
func (e *Extractor) HorizonStance(p Payload, h Horizon) Direction {
	if d, ok := p.Horizons[h]; ok && (validDirection(d) || d == DirectionNeutral) {
		return d
	}
	return e.Stance(p)
}

// StanceValue maps a direction onto the vote scale {+1, 0, -1}.
func StanceValue(d Direction) float64 {
	switch d {
	case DirectionBullish:
		return 1
	case DirectionBearish:
		return -1
	default:
		return 0
	}
}

func (e *Extractor) stanceVia(path ExtractionPath, p Payload) Direction {
	switch path {
	case PathTrend:
		if validDirection(p.TrendDirection) {
			return p.TrendDirection
		}
	case PathPrediction:
		if validDirection(p.PredictedDirection) {
			return p.PredictedDirection
		}
	case PathSentiment:
		if p.Sentiment != nil {
			switch {
			case *p.Sentiment >= e.cfg.SentimentThreshold:
				return DirectionBullish
			case *p.Sentiment <= -e.cfg.SentimentThreshold:
				return DirectionBearish
			}
		}
	case PathConsensus:
		if p.BullConsensus != nil && p.BearConsensus != nil {
			total := *p.BullConsensus + *p.BearConsensus
			if total > 0 {
				ratio := *p.BullConsensus / total
				switch {
				case ratio > e.cfg.ConsensusBullRatio:
					return DirectionBullish
				case ratio < e.cfg.ConsensusBearRatio:
					return DirectionBearish
				}
			}
		}
	}
	return DirectionNeutral
}

// validDirection reports whether d is an explicit directional stance. An
// explicit "neutral" is treated the same as absent so that later extraction
// paths still get a chance to find a direction.
func validDirection(d Direction) bool {
	return d == DirectionBullish || d == DirectionBearish
}
