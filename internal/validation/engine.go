package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/a-teotia/AISignalNEW-sub001/internal/signal"
)

// Check is the result of one validation rule applied to one source output.
type Check struct {
	Name     string  `json:"name"`
	Passed   bool    `json:"passed"`
	Score    float64 `json:"score"` // 0-100
	Details  string  `json:"details"`
	Critical bool    `json:"critical"`
}

// Requirements parameterizes the rule set per source type. A static lookup
// table, not per-call configuration.
type Requirements struct {
	RequiredFields []string      `yaml:"required_fields"`
	MaxAge         time.Duration `yaml:"max_age"`
	TrustedDomains []string      `yaml:"trusted_domains"`
}

// DefaultRequirements returns the per-source-type requirement table.
func DefaultRequirements() map[signal.SourceType]Requirements {
	return map[signal.SourceType]Requirements{
		signal.SourceTechnical: {
			RequiredFields: []string{"trendDirection", "technicalPrice"},
			MaxAge:         4 * time.Hour,
			TrustedDomains: []string{"tradingview.com", "binance.com", "kraken.com", "coinbase.com"},
		},
		signal.SourceFundamental: {
			RequiredFields: []string{"predictedDirection"},
			MaxAge:         72 * time.Hour,
			TrustedDomains: []string{"sec.gov", "bloomberg.com", "reuters.com", "messari.io"},
		},
		signal.SourceSentiment: {
			RequiredFields: []string{"sentiment"},
			MaxAge:         12 * time.Hour,
			TrustedDomains: []string{"reddit.com", "x.com", "twitter.com", "santiment.net"},
		},
		signal.SourceFlow: {
			RequiredFields: []string{"predictedDirection", "marketPrice"},
			MaxAge:         2 * time.Hour,
			TrustedDomains: []string{"binance.com", "kraken.com", "okx.com", "coinglass.com"},
		},
		signal.SourceOnChain: {
			RequiredFields: []string{"networkPrice"},
			MaxAge:         24 * time.Hour,
			TrustedDomains: []string{"glassnode.com", "etherscan.io", "dune.com", "nansen.ai"},
		},
		signal.SourceMicrostructure: {
			RequiredFields: []string{"orderBookMid"},
			MaxAge:         30 * time.Minute,
			TrustedDomains: []string{"binance.com", "kraken.com", "coinbase.com"},
		},
		signal.SourceSynthesis: {
			RequiredFields: []string{"predictedDirection"},
			MaxAge:         6 * time.Hour,
			TrustedDomains: []string{"perplexity.ai", "bloomberg.com", "reuters.com"},
		},
	}
}

// fallbackRequirements applies to unknown source types: nothing is required,
// a generous age ceiling keeps freshness scoring meaningful.
var fallbackRequirements = Requirements{MaxAge: 24 * time.Hour}

// Engine applies the fixed rule set to raw source outputs. Rules are pure and
// total: a rule that panics is recorded as a failed, non-critical check
// instead of aborting the run.
type Engine struct {
	reqs map[signal.SourceType]Requirements
	now  func() time.Time
}

// NewEngine creates a validation engine with the default requirement table.
func NewEngine() *Engine {
	return NewEngineWithRequirements(DefaultRequirements())
}

// NewEngineWithRequirements creates an engine with a custom requirement table.
func NewEngineWithRequirements(reqs map[signal.SourceType]Requirements) *Engine {
	return &Engine{reqs: reqs, now: time.Now}
}

// SetClock overrides the engine clock. Tests use this to pin "now".
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// RequirementsFor returns the requirement entry for a source type.
func (e *Engine) RequirementsFor(t signal.SourceType) Requirements {
	if r, ok := e.reqs[t]; ok {
		return r
	}
	return fallbackRequirements
}

type rule struct {
	name string
	fn   func(out signal.SourceOutput, req Requirements, now time.Time) Check
}

// Validate applies every rule to one source output and returns the check list.
func (e *Engine) Validate(out signal.SourceOutput) []Check {
	req := e.RequirementsFor(out.Type)
	now := e.now()

	rules := []rule{
		{"required_fields", ruleRequiredFields},
		{"data_age", ruleDataAge},
		{"provenance_domains", ruleProvenanceDomains},
		{"confidence_evidence", ruleConfidenceEvidence},
		{"internal_consistency", ruleInternalConsistency},
		{"confidence_outlier", ruleConfidenceOutlier},
	}

	checks := make([]Check, 0, len(rules))
	for _, r := range rules {
		checks = append(checks, runRule(r, out, req, now))
	}
	return checks
}

// runRule shields the engine from rule implementation errors: a panic becomes
// a failed, non-critical check so one bad rule cannot crash the run.
func runRule(r rule, out signal.SourceOutput, req Requirements, now time.Time) (c Check) {
	defer func() {
		if rec := recover(); rec != nil {
			c = Check{
				Name:     r.name,
				Passed:   false,
				Score:    0,
				Details:  fmt.Sprintf("rule error: %v", rec),
				Critical: false,
			}
		}
	}()
	return r.fn(out, req, now)
}

// Passed reports whether the output is validation-passed: every critical
// check must have passed. Non-critical failures only depress the score.
func Passed(checks []Check) bool {
	for _, c := range checks {
		if c.Critical && !c.Passed {
			return false
		}
	}
	return true
}

// Score returns the mean check score, 0-100.
func Score(checks []Check) float64 {
	if len(checks) == 0 {
		return 0
	}
	var sum float64
	for _, c := range checks {
		sum += c.Score
	}
	return sum / float64(len(checks))
}

// FindCheck returns the named check, if present.
func FindCheck(checks []Check, name string) (Check, bool) {
	for _, c := range checks {
		if c.Name == name {
			return c, true
		}
	}
	return Check{}, false
}

func ruleRequiredFields(out signal.SourceOutput, req Requirements, _ time.Time) Check {
	if len(req.RequiredFields) == 0 {
		return Check{Name: "required_fields", Passed: true, Score: 100, Details: "no required fields for source type", Critical: true}
	}

	var missing []string
	for _, f := range req.RequiredFields {
		if !hasPayloadField(out.Payload, f) {
			missing = append(missing, f)
		}
	}

	present := len(req.RequiredFields) - len(missing)
	score := 100 * float64(present) / float64(len(req.RequiredFields))
	if len(missing) > 0 {
		return Check{
			Name:     "required_fields",
			Passed:   false,
			Score:    score,
			Details:  "missing required fields: " + strings.Join(missing, ", "),
			Critical: true,
		}
	}
	return Check{Name: "required_fields", Passed: true, Score: 100, Details: "all required fields present", Critical: true}
}

func ruleDataAge(out signal.SourceOutput, req Requirements, now time.Time) Check {
	if out.Timestamp.IsZero() {
		return Check{Name: "data_age", Passed: false, Score: 0, Details: "missing timestamp", Critical: true}
	}

	age := now.Sub(out.Timestamp)
	if age > req.MaxAge {
		return Check{
			Name:     "data_age",
			Passed:   false,
			Score:    0,
			Details:  fmt.Sprintf("data is %s old, ceiling is %s", age.Round(time.Minute), req.MaxAge),
			Critical: true,
		}
	}

	score := 100 * (1 - age.Seconds()/req.MaxAge.Seconds())
	if score < 0 {
		score = 0
	}
	return Check{
		Name:     "data_age",
		Passed:   true,
		Score:    score,
		Details:  fmt.Sprintf("data is %s old within %s ceiling", age.Round(time.Minute), req.MaxAge),
		Critical: true,
	}
}

func ruleProvenanceDomains(out signal.SourceOutput, req Requirements, _ time.Time) Check {
	cited := out.DistinctProvenance()
	if len(cited) == 0 {
		return Check{Name: "provenance_domains", Passed: false, Score: 0, Details: "no data sources cited", Critical: false}
	}
	if len(req.TrustedDomains) == 0 {
		return Check{Name: "provenance_domains", Passed: true, Score: 100, Details: "no allow-list for source type", Critical: false}
	}

	trusted := 0
	for _, p := range cited {
		if matchesDomain(p, req.TrustedDomains) {
			trusted++
		}
	}

	score := 100 * float64(trusted) / float64(len(cited))
	return Check{
		Name:     "provenance_domains",
		Passed:   trusted > 0,
		Score:    score,
		Details:  fmt.Sprintf("%d of %d cited sources on the allow-list", trusted, len(cited)),
		Critical: false,
	}
}

// ruleConfidenceEvidence flags high self-reported confidence that is not
// backed by enough cited evidence.
func ruleConfidenceEvidence(out signal.SourceOutput, _ Requirements, _ time.Time) Check {
	cited := len(out.DistinctProvenance())
	if out.Confidence >= 80 && cited < 2 {
		return Check{
			Name:     "confidence_evidence",
			Passed:   false,
			Score:    40,
			Details:  fmt.Sprintf("confidence %d backed by only %d cited source(s)", out.Confidence, cited),
			Critical: false,
		}
	}
	return Check{Name: "confidence_evidence", Passed: true, Score: 100, Details: "confidence plausible for cited evidence", Critical: false}
}

// ruleInternalConsistency catches self-contradictory payloads such as a
// bullish trend paired with strongly bearish sentiment.
func ruleInternalConsistency(out signal.SourceOutput, _ Requirements, _ time.Time) Check {
	p := out.Payload
	if p.Sentiment != nil {
		s := *p.Sentiment
		if p.TrendDirection == signal.DirectionBullish && s < -0.5 {
			return Check{
				Name:     "internal_consistency",
				Passed:   false,
				Score:    40,
				Details:  fmt.Sprintf("bullish trend with bearish sentiment %.2f", s),
				Critical: false,
			}
		}
		if p.TrendDirection == signal.DirectionBearish && s > 0.5 {
			return Check{
				Name:     "internal_consistency",
				Passed:   false,
				Score:    40,
				Details:  fmt.Sprintf("bearish trend with bullish sentiment %.2f", s),
				Critical: false,
			}
		}
	}
	if p.TrendDirection != "" && p.PredictedDirection != "" &&
		p.TrendDirection != signal.DirectionNeutral && p.PredictedDirection != signal.DirectionNeutral &&
		p.TrendDirection != p.PredictedDirection {
		return Check{
			Name:     "internal_consistency",
			Passed:   false,
			Score:    50,
			Details:  fmt.Sprintf("trend %s disagrees with prediction %s", p.TrendDirection, p.PredictedDirection),
			Critical: false,
		}
	}
	return Check{Name: "internal_consistency", Passed: true, Score: 100, Details: "payload internally consistent", Critical: false}
}

// ruleConfidenceOutlier flags statistically implausible certainty.
func ruleConfidenceOutlier(out signal.SourceOutput, _ Requirements, _ time.Time) Check {
	if out.Confidence > 95 {
		return Check{
			Name:     "confidence_outlier",
			Passed:   false,
			Score:    50,
			Details:  fmt.Sprintf("confidence %d above the 95 plausibility ceiling", out.Confidence),
			Critical: false,
		}
	}
	if out.Confidence < 0 || out.Confidence > 100 {
		return Check{
			Name:     "confidence_outlier",
			Passed:   false,
			Score:    0,
			Details:  fmt.Sprintf("confidence %d outside [0,100]", out.Confidence),
			Critical: true,
		}
	}
	return Check{Name: "confidence_outlier", Passed: true, Score: 100, Details: "confidence within plausible range", Critical: false}
}

func hasPayloadField(p signal.Payload, name string) bool {
	switch name {
	case "trendDirection":
		return p.TrendDirection != ""
	case "predictedDirection":
		return p.PredictedDirection != ""
	case "sentiment":
		return p.Sentiment != nil
	case "bullConsensus":
		return p.BullConsensus != nil
	case "bearConsensus":
		return p.BearConsensus != nil
	case "trendStrength":
		return p.TrendStrength != nil
	case "orderBookMid":
		return p.OrderBookMid != nil && *p.OrderBookMid > 0
	case "technicalPrice":
		return p.TechnicalPrice != nil && *p.TechnicalPrice > 0
	case "marketPrice":
		return p.MarketPrice != nil && *p.MarketPrice > 0
	case "networkPrice":
		return p.NetworkPrice != nil && *p.NetworkPrice > 0
	default:
		return false
	}
}

func matchesDomain(cited string, domains []string) bool {
	c := strings.ToLower(cited)
	for _, d := range domains {
		if strings.Contains(c, strings.ToLower(d)) {
			return true
		}
	}
	return false
}
