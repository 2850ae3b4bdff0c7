package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a-teotia/AISignalNEW-sub001/internal/acquire"
	"github.com/a-teotia/AISignalNEW-sub001/internal/decision"
	"github.com/a-teotia/AISignalNEW-sub001/internal/metrics"
	"github.com/a-teotia/AISignalNEW-sub001/internal/signal"
	"github.com/a-teotia/AISignalNEW-sub001/internal/strategy"
	"github.com/a-teotia/AISignalNEW-sub001/internal/synthesis"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fp(v float64) *float64 { return &v }

func newTestPipeline(t *testing.T) (*Pipeline, *metrics.Set) {
	t.Helper()
	m := metrics.NewSet(prometheus.NewRegistry())
	p, err := New(DefaultConfig(), m)
	require.NoError(t, err)
	p.SetClock(func() time.Time { return testNow })
	return p, m
}

func bullish(id string, typ signal.SourceType, payload signal.Payload, cites ...string) signal.SourceOutput {
	return signal.SourceOutput{
		SourceID:   id,
		Type:       typ,
		Subject:    "BTC-USD",
		Timestamp:  testNow.Add(-10 * time.Minute),
		Confidence: 80,
		Provenance: cites,
		Payload:    payload,
	}
}

// scenarioBatch is four strong bullish sources against one weak bearish flow
// source.
func scenarioBatch() []signal.SourceOutput {
	weakBear := signal.SourceOutput{
		SourceID:   "flow-agent",
		Type:       signal.SourceFlow,
		Subject:    "BTC-USD",
		Timestamp:  testNow.Add(-90 * time.Minute),
		Confidence: 40,
		Provenance: []string{"unverified-feed.example"},
		Payload: signal.Payload{
			PredictedDirection: signal.DirectionBearish,
			MarketPrice:        fp(63800),
		},
	}

	return []signal.SourceOutput{
		bullish("technical-agent", signal.SourceTechnical,
			signal.Payload{TrendDirection: signal.DirectionBullish, TechnicalPrice: fp(64000)},
			"tradingview.com", "binance.com"),
		bullish("sentiment-agent", signal.SourceSentiment,
			signal.Payload{Sentiment: fp(0.7)},
			"reddit.com", "santiment.net"),
		bullish("onchain-agent", signal.SourceOnChain,
			signal.Payload{TrendDirection: signal.DirectionBullish, NetworkPrice: fp(63900)},
			"glassnode.com", "etherscan.io"),
		bullish("fundamental-agent", signal.SourceFundamental,
			signal.Payload{PredictedDirection: signal.DirectionBullish},
			"bloomberg.com", "reuters.com"),
		weakBear,
	}
}

func TestPipeline_Run_MajorityBullishDecision(t *testing.T) {
	p, m := newTestPipeline(t)

	dec, err := p.Run(context.Background(), Input{Subject: "BTC-USD", Outputs: scenarioBatch()})
	require.NoError(t, err)

	assert.Equal(t, decision.Bullish, dec.Direction)
	assert.True(t, dec.Tradeable, "four strong bulls push confidence over the floor")
	assert.GreaterOrEqual(t, dec.Confidence, 70)
	assert.Equal(t, 64000.0, dec.EntryPrice, "technical price wins with no order book in the batch")
	assert.NotEmpty(t, dec.RunID)

	// The weak bear survives with reduced weight; it is not silently dropped.
	assert.Empty(t, dec.Metadata.Transparency.Excluded)

	// Its disagreement is on the record.
	types := make(map[string]bool)
	for _, rec := range dec.Metadata.Conflicts.Records {
		types[rec.Type] = true
	}
	assert.True(t, types["directional_conflict"], "4 vs 1 split must be recorded")
	assert.True(t, types["flow_technical_conflict"], "flow disagreeing with technical must be recorded")
	assert.Less(t, dec.Metadata.Conflicts.ConsensusStrength, 1.0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("decision")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ConflictsDetected))
}

func TestPipeline_Run_Deterministic(t *testing.T) {
	p, _ := newTestPipeline(t)

	d1, err := p.Run(context.Background(), Input{Subject: "BTC-USD", Outputs: scenarioBatch()})
	require.NoError(t, err)
	d2, err := p.Run(context.Background(), Input{Subject: "BTC-USD", Outputs: scenarioBatch()})
	require.NoError(t, err)

	// Only the run ID may differ between identical runs under a pinned clock.
	d2.RunID = d1.RunID
	b1, err := json.Marshal(d1)
	require.NoError(t, err)
	b2, err := json.Marshal(d2)
	require.NoError(t, err)
	assert.JSONEq(t, string(b1), string(b2), "identical inputs must produce identical decisions")
}

func TestPipeline_Run_InsufficientEvidence(t *testing.T) {
	p, m := newTestPipeline(t)

	batch := scenarioBatch()[:2] // two sources cannot clear the three-source minimum
	_, err := p.Run(context.Background(), Input{Subject: "BTC-USD", Outputs: batch})

	var insufficient *synthesis.InsufficientEvidenceError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("insufficient_evidence")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("decision")))
}

func TestPipeline_Run_MissingMarketData(t *testing.T) {
	p, m := newTestPipeline(t)

	// Strip every reference price from the batch.
	batch := scenarioBatch()
	for i := range batch {
		batch[i].Payload.TechnicalPrice = nil
		batch[i].Payload.MarketPrice = nil
		batch[i].Payload.NetworkPrice = nil
		batch[i].Payload.OrderBookMid = nil
	}
	// Price fields are required for some types; keep only the types whose
	// requirements still hold.
	batch = []signal.SourceOutput{batch[1], batch[3], bullish("sentiment-2", signal.SourceSentiment,
		signal.Payload{Sentiment: fp(0.6)}, "reddit.com", "x.com")}

	_, err := p.Run(context.Background(), Input{Subject: "BTC-USD", Outputs: batch})

	var missing *decision.MissingMarketDataError
	require.True(t, errors.As(err, &missing), "no price anywhere must abort, got %v", err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("missing_market_data")))
}

func TestPipeline_Run_AcquisitionFailuresAreVisible(t *testing.T) {
	p, _ := newTestPipeline(t)

	dec, err := p.Run(context.Background(), Input{
		Subject: "BTC-USD",
		Outputs: scenarioBatch(),
		Failures: []acquire.Failure{
			{Source: signal.SourceMicrostructure, Reason: "source timeout after 10s"},
		},
	})
	require.NoError(t, err)

	require.Len(t, dec.Metadata.Transparency.Excluded, 1)
	excluded := dec.Metadata.Transparency.Excluded[0]
	assert.Equal(t, signal.SourceMicrostructure, excluded.Type)
	assert.Equal(t, "source timeout after 10s", excluded.Reason)
}

func TestPipeline_Run_CanceledContext(t *testing.T) {
	p, _ := newTestPipeline(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, Input{Subject: "BTC-USD", Outputs: scenarioBatch()})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_Run_StrategyDecayAgesConfidence(t *testing.T) {
	p, _ := newTestPipeline(t)

	// Age the whole batch by half a day under an aggressive intraday decay.
	// The generous fundamental/on-chain age ceilings keep the sources valid.
	batch := []signal.SourceOutput{
		bullish("fundamental-agent", signal.SourceFundamental,
			signal.Payload{PredictedDirection: signal.DirectionBullish, MarketPrice: fp(64000)},
			"bloomberg.com", "reuters.com"),
		bullish("onchain-agent", signal.SourceOnChain,
			signal.Payload{TrendDirection: signal.DirectionBullish, NetworkPrice: fp(63900)},
			"glassnode.com", "etherscan.io"),
		bullish("onchain-agent-2", signal.SourceOnChain,
			signal.Payload{TrendDirection: signal.DirectionBullish, NetworkPrice: fp(63950)},
			"dune.com", "nansen.ai"),
	}

	fresh, err := p.Run(context.Background(), Input{Subject: "BTC-USD", Outputs: batch})
	require.NoError(t, err)

	aged := make([]signal.SourceOutput, len(batch))
	copy(aged, batch)
	for i := range aged {
		aged[i].Timestamp = testNow.Add(-12 * time.Hour)
	}
	decayed, err := p.Run(context.Background(), Input{
		Subject: "BTC-USD", Outputs: aged, Strategy: strategy.Presets()["intraday"],
	})
	require.NoError(t, err)

	assert.Less(t, decayed.Confidence, fresh.Confidence,
		"aged analyses under a decay profile must carry less confidence")
}
