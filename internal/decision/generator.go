package decision

import (
	"fmt"
	"math"
	"time"

	"github.com/a-teotia/AISignalNEW-sub001/internal/explain"
	"github.com/a-teotia/AISignalNEW-sub001/internal/quality"
	"github.com/a-teotia/AISignalNEW-sub001/internal/signal"
	"github.com/a-teotia/AISignalNEW-sub001/internal/synthesis"
)

// Direction is the final, risk-managed decision direction.
type Direction string

const (
	Bullish Direction = "BULLISH"
	Bearish Direction = "BEARISH"
	Neutral Direction = "NEUTRAL"
)

// RiskLevel tiers the decision's risk parameters.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// MissingMarketDataError aborts decision generation when no source supplied a
// usable reference price. A decision is never fabricated without one.
type MissingMarketDataError struct {
	Subject string
}

func (e *MissingMarketDataError) Error() string {
	return fmt.Sprintf("no usable reference price for %s from any source", e.Subject)
}

// Decision is the run's sole externally visible artifact. It is created once
// and immutable, and fully JSON-serializable.
type Decision struct {
	RunID             string                             `json:"runId"`
	Subject           string                             `json:"subject"`
	Direction         Direction                          `json:"direction"`
	HorizonDirections map[signal.Horizon]synthesis.Trend `json:"horizonDirections"`
	Confidence        int                                `json:"confidence"`
	EntryPrice        float64                            `json:"entryPrice"`
	StopLoss          float64                            `json:"stopLoss"`
	TakeProfit        float64                            `json:"takeProfit"`
	ExpirationTime    time.Time                          `json:"expirationTime"`
	RiskLevel         RiskLevel                          `json:"riskLevel"`
	RiskRewardRatio   float64                            `json:"riskRewardRatio"`
	Tradeable         bool                               `json:"tradeable"`
	GeneratedAt       time.Time                          `json:"generatedAt"`
	Metadata          explain.Report                     `json:"metadata"`
}

// RiskTable holds the decision generator's tunables: the professional
// confidence floor, risk-tier thresholds, and percentage offsets per tier.
type RiskTable struct {
	ConfidenceFloor int `yaml:"confidence_floor"`

	// Risk-tier thresholds on the authoritative source's mean of quality,
	// confidence and validation score.
	LowRiskAbove    float64 `yaml:"low_risk_above"`
	MediumRiskAbove float64 `yaml:"medium_risk_above"`

	StopPercent   map[RiskLevel]float64 `yaml:"stop_percent"`
	TargetPercent map[RiskLevel]float64 `yaml:"target_percent"`

	// NeutralOffsetPercent marks a non-trade: deliberately tight symmetric
	// levels that are a warning marker, not actionable.
	NeutralOffsetPercent float64 `yaml:"neutral_offset_percent"`

	BaseExpiration  time.Duration `yaml:"base_expiration"`
	WeekExpiration  time.Duration `yaml:"week_expiration"`
	MonthExpiration time.Duration `yaml:"month_expiration"`
}

// DefaultRiskTable returns the production risk parameters.
func DefaultRiskTable() RiskTable {
	return RiskTable{
		ConfidenceFloor: 70,
		LowRiskAbove:    80,
		MediumRiskAbove: 60,
		StopPercent: map[RiskLevel]float64{
			RiskLow:    2,
			RiskMedium: 3,
			RiskHigh:   5,
		},
		TargetPercent: map[RiskLevel]float64{
			RiskLow:    4,
			RiskMedium: 6,
			RiskHigh:   10,
		},
		NeutralOffsetPercent: 1,
		BaseExpiration:       24 * time.Hour,
		WeekExpiration:       168 * time.Hour,
		MonthExpiration:      720 * time.Hour,
	}
}

// entryPricePriority is the fixed field order for the entry reference price:
// order-book mid, then technical, then flow market, then on-chain network.
var entryPricePriority = []func(p signal.Payload) *float64{
	func(p signal.Payload) *float64 { return p.OrderBookMid },
	func(p signal.Payload) *float64 { return p.TechnicalPrice },
	func(p signal.Payload) *float64 { return p.MarketPrice },
	func(p signal.Payload) *float64 { return p.NetworkPrice },
}

// Generator turns a synthesis result into a risk-bounded trading decision.
type Generator struct {
	table             RiskTable
	authoritativeType signal.SourceType
	now               func() time.Time
}

// NewGenerator creates a decision generator.
func NewGenerator(table RiskTable) *Generator {
	return &Generator{
		table:             table,
		authoritativeType: signal.SourceSynthesis,
		now:               time.Now,
	}
}

// SetClock overrides the generator clock for deterministic tests.
func (g *Generator) SetClock(now func() time.Time) { g.now = now }

// Generate produces the final decision. Confidence below the professional
// floor forces NEUTRAL regardless of the vote outcome: a risk-management
// override, not a synthesis artifact.
func (g *Generator) Generate(runID string, res *synthesis.Result, sources []quality.AdjustedSource, meta explain.Report) (*Decision, error) {
	entry, err := g.entryPrice(res.Subject, sources)
	if err != nil {
		return nil, err
	}

	direction := trendToDirection(res.Direction)
	if res.Confidence < g.table.ConfidenceFloor {
		direction = Neutral
	}

	risk := g.riskLevel(sources)
	stop, target := g.levels(direction, risk, entry)

	now := g.now()
	d := &Decision{
		RunID:             runID,
		Subject:           res.Subject,
		Direction:         direction,
		HorizonDirections: res.HorizonDirections,
		Confidence:        res.Confidence,
		EntryPrice:        entry,
		StopLoss:          stop,
		TakeProfit:        target,
		ExpirationTime:    g.expiration(now, res),
		RiskLevel:         risk,
		RiskRewardRatio:   g.riskReward(direction, risk),
		Tradeable:         res.Confidence >= g.table.ConfidenceFloor && direction != Neutral,
		GeneratedAt:       now,
		Metadata:          meta,
	}
	return d, nil
}

// entryPrice scans sources for the first available positive reference price
// in the fixed field priority order.
func (g *Generator) entryPrice(subject string, sources []quality.AdjustedSource) (float64, error) {
	for _, get := range entryPricePriority {
		for _, src := range sources {
			if src.Excluded() {
				continue
			}
			if v := get(src.Output.Payload); v != nil && *v > 0 {
				return *v, nil
			}
		}
	}
	return 0, &MissingMarketDataError{Subject: subject}
}

// riskLevel derives the tier from the authoritative source's mean of quality,
// adjusted confidence and validation score. Without an authoritative source
// the mean across all included sources stands in.
func (g *Generator) riskLevel(sources []quality.AdjustedSource) RiskLevel {
	var score float64
	found := false
	for _, src := range sources {
		if src.Output.Type == g.authoritativeType && !src.Excluded() {
			score = meanOf(src)
			found = true
			break
		}
	}
	if !found {
		var sum float64
		n := 0
		for _, src := range sources {
			if src.Excluded() {
				continue
			}
			sum += meanOf(src)
			n++
		}
		if n > 0 {
			score = sum / float64(n)
		}
	}

	switch {
	case score >= g.table.LowRiskAbove:
		return RiskLow
	case score >= g.table.MediumRiskAbove:
		return RiskMedium
	default:
		return RiskHigh
	}
}

func meanOf(src quality.AdjustedSource) float64 {
	return (src.Profile.OverallQuality + float64(src.AdjustedConfidence) + src.ValidationScore) / 3
}

// levels computes stop-loss and take-profit as percentage offsets from entry,
// signed by direction. NEUTRAL gets the tight symmetric non-trade marker.
func (g *Generator) levels(dir Direction, risk RiskLevel, entry float64) (stop, target float64) {
	stopPct := g.table.StopPercent[risk] / 100
	targetPct := g.table.TargetPercent[risk] / 100

	switch dir {
	case Bullish:
		return round2(entry * (1 - stopPct)), round2(entry * (1 + targetPct))
	case Bearish:
		return round2(entry * (1 + stopPct)), round2(entry * (1 - targetPct))
	default:
		off := g.table.NeutralOffsetPercent / 100
		return round2(entry * (1 - off)), round2(entry * (1 + off))
	}
}

func (g *Generator) riskReward(dir Direction, risk RiskLevel) float64 {
	if dir == Neutral {
		return 1
	}
	stopPct := g.table.StopPercent[risk]
	if stopPct == 0 {
		return 0
	}
	return round2(g.table.TargetPercent[risk] / stopPct)
}

// expiration starts at 24h and is extended when the longer horizons carry a
// non-neutral view; the later rule overrides the earlier.
func (g *Generator) expiration(now time.Time, res *synthesis.Result) time.Time {
	ttl := g.table.BaseExpiration
	if t, ok := res.HorizonDirections[signal.Horizon1Week]; ok && t != synthesis.TrendSideways {
		ttl = g.table.WeekExpiration
	}
	if t, ok := res.HorizonDirections[signal.Horizon1Month]; ok && t != synthesis.TrendSideways {
		ttl = g.table.MonthExpiration
	}
	return now.Add(ttl)
}

func trendToDirection(t synthesis.Trend) Direction {
	switch t {
	case synthesis.TrendUp:
		return Bullish
	case synthesis.TrendDown:
		return Bearish
	default:
		return Neutral
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
