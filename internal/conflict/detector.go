package conflict

import (
	"fmt"
	"math"

	"github.com/a-teotia/AISignalNEW-sub001/internal/quality"
	"github.com/a-teotia/AISignalNEW-sub001/internal/signal"
)

// Severity classifies how damaging a detected conflict is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// severityWeights convert severity into the aggregate conflict score.
var severityWeights = map[Severity]float64{
	SeverityHigh:   1.0,
	SeverityMedium: 0.6,
	SeverityLow:    0.3,
}

// Record describes one detected cross-source disagreement. Produced once,
// never mutated.
type Record struct {
	Type            string   `json:"type"`
	InvolvedSources []string `json:"involvedSources"`
	Description     string   `json:"description"`
	Severity        Severity `json:"severity"`
	Impact          float64  `json:"impact"` // 0-1
}

// Summary aggregates all conflicts detected in one run.
type Summary struct {
	Records           []Record                 `json:"records"`
	ConflictScore     float64                  `json:"conflictScore"`
	ConsensusStrength float64                  `json:"consensusStrength"`
	InsufficientData  bool                     `json:"insufficientData"`
	DirectionTally    map[signal.Direction]int `json:"directionTally"`
}

// Config parameterizes the detector.
type Config struct {
	// OutlierSigma is the z-score beyond which an adjusted confidence is an
	// outlier.
	OutlierSigma float64

	// OutlierMinGap is the minimum absolute confidence distance from the rest
	// of the group. Tight clusters have tiny dispersion, so a bare z-score
	// would flag a 78 sitting two points from a group of 80s. Zero disables
	// the gap requirement.
	OutlierMinGap float64

	// OpposingPairs lists source-type pairs whose directional disagreement is
	// itself a high-severity conflict (e.g. order flow vs technical trend).
	OpposingPairs [][2]signal.SourceType
}

// DefaultConfig returns the standard detector configuration.
func DefaultConfig() Config {
	return Config{
		OutlierSigma:  2.0,
		OutlierMinGap: 10,
		OpposingPairs: [][2]signal.SourceType{
			{signal.SourceFlow, signal.SourceTechnical},
		},
	}
}

// Detector compares directional stances and confidence distributions across
// all valid sources. It only sees sources with adjusted confidence > 0.
type Detector struct {
	cfg       Config
	extractor *signal.Extractor
}

// NewDetector creates a conflict detector.
func NewDetector(cfg Config, extractor *signal.Extractor) *Detector {
	if cfg.OutlierSigma <= 0 {
		cfg.OutlierSigma = 2.0
	}
	return &Detector{cfg: cfg, extractor: extractor}
}

// Detect runs all conflict checks over the valid (non-excluded) sources.
// With fewer than 2 valid sources there is nothing to compare: the summary
// is empty and flagged as insufficient data.
func (d *Detector) Detect(sources []quality.AdjustedSource) Summary {
	valid := make([]quality.AdjustedSource, 0, len(sources))
	for _, s := range sources {
		if !s.Excluded() {
			valid = append(valid, s)
		}
	}

	summary := Summary{
		Records:        []Record{},
		DirectionTally: map[signal.Direction]int{},
	}
	if len(valid) < 2 {
		summary.InsufficientData = true
		summary.ConsensusStrength = 1
		return summary
	}

	stances := make(map[string]signal.Direction, len(valid))
	for _, s := range valid {
		dir := d.extractor.Stance(s.Output.Payload)
		stances[s.Output.SourceID] = dir
		summary.DirectionTally[dir]++
	}

	summary.Records = append(summary.Records, d.directionalConflicts(valid, stances, summary.DirectionTally)...)
	summary.Records = append(summary.Records, d.confidenceOutliers(valid)...)
	summary.Records = append(summary.Records, d.opposingDomainConflicts(valid, stances)...)

	for _, r := range summary.Records {
		summary.ConflictScore += r.Impact * severityWeights[r.Severity]
	}
	summary.ConsensusStrength = 1 - math.Min(1, summary.ConflictScore)
	return summary
}

// directionalConflicts flags split bull/bear camps. A near-even split is a
// high-severity conflict; a lopsided one is medium.
func (d *Detector) directionalConflicts(valid []quality.AdjustedSource, stances map[string]signal.Direction, tally map[signal.Direction]int) []Record {
	bulls := tally[signal.DirectionBullish]
	bears := tally[signal.DirectionBearish]
	if bulls == 0 || bears == 0 {
		return nil
	}

	severity := SeverityMedium
	if abs(bulls-bears) <= 1 {
		severity = SeverityHigh
	}

	var involved []string
	for _, s := range valid {
		if dir := stances[s.Output.SourceID]; dir == signal.DirectionBullish || dir == signal.DirectionBearish {
			involved = append(involved, s.Output.SourceID)
		}
	}

	minority := bulls
	if bears < bulls {
		minority = bears
	}

	return []Record{{
		Type:            "directional_conflict",
		InvolvedSources: involved,
		Description:     fmt.Sprintf("%d bullish vs %d bearish sources disagree on direction", bulls, bears),
		Severity:        severity,
		Impact:          float64(minority) / float64(len(valid)),
	}}
}

// confidenceOutliers flags sources whose adjusted confidence sits more than
// OutlierSigma standard deviations from the rest of the group. Each candidate
// is scored against the mean and population stddev of the OTHER sources:
// including the candidate in its own baseline drags the mean toward it and
// lets a single extreme value mask itself in small groups.
func (d *Detector) confidenceOutliers(valid []quality.AdjustedSource) []Record {
	if len(valid) < 4 {
		// Dispersion estimated from fewer than 3 other sources is noise.
		return nil
	}

	var records []Record
	for i, s := range valid {
		mean, stddev := restStats(valid, i)
		if stddev == 0 {
			// The rest of the group is a single point or perfectly uniform;
			// no meaningful dispersion to measure against.
			continue
		}
		gap := math.Abs(float64(s.AdjustedConfidence) - mean)
		if gap < d.cfg.OutlierMinGap {
			continue
		}
		z := gap / stddev
		if z > d.cfg.OutlierSigma {
			records = append(records, Record{
				Type:            "confidence_outlier",
				InvolvedSources: []string{s.Output.SourceID},
				Description: fmt.Sprintf("confidence %d is %.1f standard deviations from the group mean %.1f",
					s.AdjustedConfidence, z, mean),
				Severity: SeverityMedium,
				Impact:   0.1,
			})
		}
	}
	return records
}

// restStats returns the mean and population stddev of every valid source's
// adjusted confidence except the one at skip.
func restStats(valid []quality.AdjustedSource, skip int) (mean, stddev float64) {
	n := len(valid) - 1
	if n < 1 {
		return 0, 0
	}
	for i, s := range valid {
		if i == skip {
			continue
		}
		mean += float64(s.AdjustedConfidence)
	}
	mean /= float64(n)

	variance := 0.0
	for i, s := range valid {
		if i == skip {
			continue
		}
		diff := float64(s.AdjustedConfidence) - mean
		variance += diff * diff
	}
	return mean, math.Sqrt(variance / float64(n))
}

// opposingDomainConflicts checks designated opposing-domain source pairs for
// directional disagreement.
func (d *Detector) opposingDomainConflicts(valid []quality.AdjustedSource, stances map[string]signal.Direction) []Record {
	byType := make(map[signal.SourceType][]quality.AdjustedSource)
	for _, s := range valid {
		byType[s.Output.Type] = append(byType[s.Output.Type], s)
	}

	var records []Record
	for _, pair := range d.cfg.OpposingPairs {
		for _, a := range byType[pair[0]] {
			for _, b := range byType[pair[1]] {
				da := stances[a.Output.SourceID]
				db := stances[b.Output.SourceID]
				if da == signal.DirectionNeutral || db == signal.DirectionNeutral || da == db {
					continue
				}
				records = append(records, Record{
					Type:            fmt.Sprintf("%s_%s_conflict", pair[0], pair[1]),
					InvolvedSources: []string{a.Output.SourceID, b.Output.SourceID},
					Description: fmt.Sprintf("%s source %s (%s) disagrees with %s source %s (%s)",
						pair[0], a.Output.SourceID, da, pair[1], b.Output.SourceID, db),
					Severity: SeverityHigh,
					Impact:   0.2,
				})
			}
		}
	}
	return records
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
