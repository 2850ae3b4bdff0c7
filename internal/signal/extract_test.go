package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fp(v float64) *float64 { return &v }

func TestExtractor_Stance_PrecedenceOrder(t *testing.T) {
	e := NewExtractor(DefaultExtractorConfig())

	// Explicit trend wins over everything else, even a contradicting sentiment.
	p := Payload{
		TrendDirection: DirectionBullish,
		Sentiment:      fp(-0.8),
		BullConsensus:  fp(1),
		BearConsensus:  fp(9),
	}
	assert.Equal(t, DirectionBullish, e.Stance(p), "explicit trend should take precedence")

	// Without a trend, prediction is next.
	p.TrendDirection = ""
	p.PredictedDirection = DirectionBearish
	assert.Equal(t, DirectionBearish, e.Stance(p))

	// Then sentiment polarity.
	p.PredictedDirection = ""
	assert.Equal(t, DirectionBearish, e.Stance(p), "sentiment -0.8 is past the threshold")

	// Then consensus ratio.
	p.Sentiment = nil
	assert.Equal(t, DirectionBearish, e.Stance(p), "1 bull vs 9 bears is a bearish consensus")
}

func TestExtractor_Stance_NeutralFallsThrough(t *testing.T) {
	e := NewExtractor(DefaultExtractorConfig())

	// An explicitly neutral trend is treated as absent: the sentiment path
	// still gets to find a direction.
	p := Payload{
		TrendDirection: DirectionNeutral,
		Sentiment:      fp(0.5),
	}
	assert.Equal(t, DirectionBullish, e.Stance(p))
}

func TestExtractor_Stance_SentimentThreshold(t *testing.T) {
	e := NewExtractor(DefaultExtractorConfig())

	assert.Equal(t, DirectionNeutral, e.Stance(Payload{Sentiment: fp(0.1)}),
		"sentiment inside the dead zone is neutral")
	assert.Equal(t, DirectionBullish, e.Stance(Payload{Sentiment: fp(0.15)}),
		"threshold itself counts as directional")
	assert.Equal(t, DirectionBearish, e.Stance(Payload{Sentiment: fp(-0.2)}))
}

func TestExtractor_Stance_ConsensusRatios(t *testing.T) {
	e := NewExtractor(DefaultExtractorConfig())

	tests := []struct {
		name        string
		bulls, bear float64
		want        Direction
	}{
		{"clear bull majority", 7, 3, DirectionBullish},
		{"clear bear majority", 3, 7, DirectionBearish},
		{"even split is neutral", 5, 5, DirectionNeutral},
		{"exactly at bull ratio is neutral", 6, 4, DirectionNeutral},
		{"zero tally is neutral", 0, 0, DirectionNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Payload{BullConsensus: fp(tt.bulls), BearConsensus: fp(tt.bear)}
			assert.Equal(t, tt.want, e.Stance(p))
		})
	}
}

func TestExtractor_Stance_ConfigurableOrder(t *testing.T) {
	cfg := DefaultExtractorConfig()
	cfg.Order = []ExtractionPath{PathSentiment, PathTrend}
	e := NewExtractor(cfg)

	p := Payload{
		TrendDirection: DirectionBullish,
		Sentiment:      fp(-0.8),
	}
	assert.Equal(t, DirectionBearish, e.Stance(p),
		"reordered config should consult sentiment before trend")
}

func TestExtractor_Stance_EmptyPayloadIsNeutral(t *testing.T) {
	e := NewExtractor(DefaultExtractorConfig())
	assert.Equal(t, DirectionNeutral, e.Stance(Payload{}))
}

func TestExtractor_HorizonStance(t *testing.T) {
	e := NewExtractor(DefaultExtractorConfig())

	p := Payload{
		TrendDirection: DirectionBullish,
		Horizons: map[Horizon]Direction{
			Horizon1Week:  DirectionBearish,
			Horizon1Month: DirectionNeutral,
		},
	}

	assert.Equal(t, DirectionBullish, e.HorizonStance(p, Horizon1Day),
		"absent horizon entry falls back to the overall stance")
	assert.Equal(t, DirectionBearish, e.HorizonStance(p, Horizon1Week),
		"explicit horizon entry overrides the overall stance")
	assert.Equal(t, DirectionNeutral, e.HorizonStance(p, Horizon1Month),
		"an explicitly neutral horizon entry is honored, not overridden")
}

func TestStanceValue(t *testing.T) {
	assert.Equal(t, 1.0, StanceValue(DirectionBullish))
	assert.Equal(t, -1.0, StanceValue(DirectionBearish))
	assert.Equal(t, 0.0, StanceValue(DirectionNeutral))
	assert.Equal(t, 0.0, StanceValue(Direction("garbage")), "unknown stances vote zero")
}

func TestSourceOutput_DistinctProvenance(t *testing.T) {
	out := SourceOutput{Provenance: []string{"binance.com", "", "kraken.com", "binance.com"}}
	assert.Equal(t, []string{"binance.com", "kraken.com"}, out.DistinctProvenance())
}
