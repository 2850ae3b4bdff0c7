package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a-teotia/AISignalNEW-sub001/internal/quality"
	"github.com/a-teotia/AISignalNEW-sub001/internal/signal"
)

func newTestDetector() *Detector {
	return NewDetector(DefaultConfig(), signal.NewExtractor(signal.DefaultExtractorConfig()))
}

func src(id string, typ signal.SourceType, dir signal.Direction, conf int) quality.AdjustedSource {
	return quality.AdjustedSource{
		Output: signal.SourceOutput{
			SourceID: id,
			Type:     typ,
			Payload:  signal.Payload{TrendDirection: dir},
		},
		AdjustedConfidence: conf,
		Profile:            quality.Profile{OverallQuality: 80},
	}
}

func TestDetector_Detect_InsufficientData(t *testing.T) {
	d := newTestDetector()

	for _, sources := range [][]quality.AdjustedSource{
		nil,
		{src("a", signal.SourceTechnical, signal.DirectionBullish, 80)},
		{
			src("a", signal.SourceTechnical, signal.DirectionBullish, 80),
			src("b", signal.SourceSentiment, signal.DirectionBearish, 0), // excluded
		},
	} {
		summary := d.Detect(sources)
		assert.True(t, summary.InsufficientData, "fewer than 2 valid sources")
		assert.Empty(t, summary.Records)
		assert.Equal(t, 1.0, summary.ConsensusStrength)
	}
}

func TestDetector_Detect_UnanimousSourcesNoConflict(t *testing.T) {
	d := newTestDetector()
	summary := d.Detect([]quality.AdjustedSource{
		src("a", signal.SourceTechnical, signal.DirectionBullish, 80),
		src("b", signal.SourceSentiment, signal.DirectionBullish, 78),
		src("c", signal.SourceOnChain, signal.DirectionBullish, 82),
	})

	assert.False(t, summary.InsufficientData)
	assert.Empty(t, summary.Records)
	assert.Equal(t, 0.0, summary.ConflictScore)
	assert.Equal(t, 1.0, summary.ConsensusStrength)
	assert.Equal(t, 3, summary.DirectionTally[signal.DirectionBullish])
}

func TestDetector_Detect_LopsidedSplitIsMediumSeverity(t *testing.T) {
	d := newTestDetector()
	summary := d.Detect([]quality.AdjustedSource{
		src("a", signal.SourceTechnical, signal.DirectionBullish, 80),
		src("b", signal.SourceSentiment, signal.DirectionBullish, 80),
		src("c", signal.SourceOnChain, signal.DirectionBullish, 80),
		src("d", signal.SourceFundamental, signal.DirectionBullish, 80),
		src("e", signal.SourceSynthesis, signal.DirectionBearish, 75),
	})

	require.Len(t, summary.Records, 1)
	rec := summary.Records[0]
	assert.Equal(t, "directional_conflict", rec.Type)
	assert.Equal(t, SeverityMedium, rec.Severity, "4 vs 1 is lopsided, not near-even")
	assert.InDelta(t, 0.2, rec.Impact, 1e-9, "minority of 1 over 5 valid sources")
	assert.Len(t, rec.InvolvedSources, 5)

	// conflictScore = 0.2 * 0.6 = 0.12, consensus = 0.88
	assert.InDelta(t, 0.12, summary.ConflictScore, 1e-9)
	assert.InDelta(t, 0.88, summary.ConsensusStrength, 1e-9)
}

func TestDetector_Detect_NearEvenSplitIsHighSeverity(t *testing.T) {
	d := newTestDetector()
	summary := d.Detect([]quality.AdjustedSource{
		src("a", signal.SourceSentiment, signal.DirectionBullish, 80),
		src("b", signal.SourceOnChain, signal.DirectionBullish, 80),
		src("c", signal.SourceFundamental, signal.DirectionBearish, 80),
	})

	require.Len(t, summary.Records, 1)
	assert.Equal(t, SeverityHigh, summary.Records[0].Severity, "2 vs 1 is within one source of even")
}

func TestDetector_Detect_ConfidenceOutlier(t *testing.T) {
	d := newTestDetector()
	// Four low, tightly clustered confidences and one far outlier. All bullish
	// so no directional conflict muddies the assertion. Against the rest of
	// the group (mean 20.5, stddev ~1.1) the 95 is dozens of deviations out;
	// against its own baseline it would mask itself at z < 2.
	summary := d.Detect([]quality.AdjustedSource{
		src("a", signal.SourceTechnical, signal.DirectionBullish, 20),
		src("b", signal.SourceSentiment, signal.DirectionBullish, 22),
		src("c", signal.SourceOnChain, signal.DirectionBullish, 95),
		src("d", signal.SourceFundamental, signal.DirectionBullish, 21),
		src("e", signal.SourceMicrostructure, signal.DirectionBullish, 19),
	})

	require.Len(t, summary.Records, 1)
	rec := summary.Records[0]
	assert.Equal(t, "confidence_outlier", rec.Type)
	assert.Equal(t, []string{"c"}, rec.InvolvedSources, "only the 95-confidence source is the outlier")
	assert.Equal(t, SeverityMedium, rec.Severity)
	assert.Equal(t, 0.1, rec.Impact)
}

func TestDetector_Detect_OutlierInVariedCluster(t *testing.T) {
	d := newTestDetector()
	summary := d.Detect([]quality.AdjustedSource{
		src("a", signal.SourceTechnical, signal.DirectionBullish, 50),
		src("b", signal.SourceSentiment, signal.DirectionBullish, 51),
		src("c", signal.SourceOnChain, signal.DirectionBullish, 49),
		src("d", signal.SourceFundamental, signal.DirectionBullish, 50),
		src("e", signal.SourceSynthesis, signal.DirectionBullish, 95),
	})

	require.Len(t, summary.Records, 1)
	assert.Equal(t, "confidence_outlier", summary.Records[0].Type)
	assert.Equal(t, []string{"e"}, summary.Records[0].InvolvedSources)
}

func TestDetector_Detect_IdenticalConfidencesNoOutlier(t *testing.T) {
	d := newTestDetector()
	summary := d.Detect([]quality.AdjustedSource{
		src("a", signal.SourceTechnical, signal.DirectionBullish, 70),
		src("b", signal.SourceSentiment, signal.DirectionBullish, 70),
		src("c", signal.SourceOnChain, signal.DirectionBullish, 70),
	})
	assert.Empty(t, summary.Records, "zero dispersion must not divide by zero or flag anything")
}

func TestDetector_Detect_ModestSpreadNoOutlier(t *testing.T) {
	d := newTestDetector()
	// A 75 among four 80s is not an outlier: the rest of the group is uniform
	// and carries no dispersion to measure against.
	summary := d.Detect([]quality.AdjustedSource{
		src("a", signal.SourceTechnical, signal.DirectionBullish, 80),
		src("b", signal.SourceSentiment, signal.DirectionBullish, 80),
		src("c", signal.SourceOnChain, signal.DirectionBullish, 80),
		src("d", signal.SourceFundamental, signal.DirectionBullish, 80),
		src("e", signal.SourceSynthesis, signal.DirectionBullish, 75),
	})
	assert.Empty(t, summary.Records)
}

func TestDetector_Detect_FlowTechnicalConflict(t *testing.T) {
	d := newTestDetector()
	summary := d.Detect([]quality.AdjustedSource{
		src("flow-agent", signal.SourceFlow, signal.DirectionBearish, 75),
		src("ta-agent", signal.SourceTechnical, signal.DirectionBullish, 75),
	})

	var found *Record
	for i, rec := range summary.Records {
		if rec.Type == "flow_technical_conflict" {
			found = &summary.Records[i]
		}
	}
	require.NotNil(t, found, "opposing flow vs technical stances must be flagged")
	assert.Equal(t, SeverityHigh, found.Severity)
	assert.Equal(t, 0.2, found.Impact)
	assert.ElementsMatch(t, []string{"flow-agent", "ta-agent"}, found.InvolvedSources)
}

func TestDetector_Detect_NeutralSidesNoOpposingConflict(t *testing.T) {
	d := newTestDetector()
	summary := d.Detect([]quality.AdjustedSource{
		src("flow-agent", signal.SourceFlow, signal.DirectionNeutral, 75),
		src("ta-agent", signal.SourceTechnical, signal.DirectionBullish, 75),
	})

	for _, rec := range summary.Records {
		assert.NotEqual(t, "flow_technical_conflict", rec.Type,
			"a neutral side is not a disagreement")
	}
}

func TestDetector_Detect_ConsensusStrengthFloorsAtZero(t *testing.T) {
	cfg := DefaultConfig()
	d := NewDetector(cfg, signal.NewExtractor(signal.DefaultExtractorConfig()))

	// Many stacked conflicts: 3 flow vs 3 technical pairs all disagreeing plus
	// a near-even directional split.
	summary := d.Detect([]quality.AdjustedSource{
		src("f1", signal.SourceFlow, signal.DirectionBearish, 75),
		src("f2", signal.SourceFlow, signal.DirectionBearish, 75),
		src("f3", signal.SourceFlow, signal.DirectionBearish, 75),
		src("t1", signal.SourceTechnical, signal.DirectionBullish, 75),
		src("t2", signal.SourceTechnical, signal.DirectionBullish, 75),
		src("t3", signal.SourceTechnical, signal.DirectionBullish, 75),
	})

	assert.Greater(t, summary.ConflictScore, 1.0, "stacked conflicts can exceed 1 raw")
	assert.Equal(t, 0.0, summary.ConsensusStrength, "consensus strength is floored, never negative")
}
