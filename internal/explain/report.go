package explain

import (
	"fmt"
	"sort"

	"github.com/a-teotia/AISignalNEW-sub001/internal/conflict"
	"github.com/a-teotia/AISignalNEW-sub001/internal/quality"
	"github.com/a-teotia/AISignalNEW-sub001/internal/signal"
	"github.com/a-teotia/AISignalNEW-sub001/internal/synthesis"
	"github.com/a-teotia/AISignalNEW-sub001/internal/validation"
)

// Report is the decision metadata block: every quantitative figure in the
// final output traces back to the real source inputs summarized here.
type Report struct {
	Quality      QualitySummary     `json:"quality"`
	Validation   ValidationSummary  `json:"validation"`
	Reliability  ReliabilitySummary `json:"reliability"`
	Conflicts    conflict.Summary   `json:"conflicts"`
	Transparency Transparency       `json:"transparency"`
}

// QualitySummary aggregates per-source quality.
type QualitySummary struct {
	AverageQuality float64            `json:"averageQuality"`
	PerSource      map[string]float64 `json:"perSource"`
	Warnings       []string           `json:"warnings,omitempty"`
}

// ValidationSummary aggregates validation outcomes.
type ValidationSummary struct {
	PassedSources    int      `json:"passedSources"`
	FailedSources    int      `json:"failedSources"`
	AverageScore     float64  `json:"averageScore"`
	CriticalFailures []string `json:"criticalFailures,omitempty"`
}

// ReliabilitySummary aggregates provenance trust.
type ReliabilitySummary struct {
	AverageReliability float64 `json:"averageReliability"`
	DistinctCitations  int     `json:"distinctCitations"`
}

// Transparency explains who contributed what and why the numbers are what
// they are.
type Transparency struct {
	RankedDataSources []RankedDataSource `json:"rankedDataSources"`
	Excluded          []ExcludedSource   `json:"excluded,omitempty"`
	Reasoning         []string           `json:"reasoning"`
}

// RankedDataSource is one cited upstream data source, ranked by how much
// contributing-source confidence stands behind it.
type RankedDataSource struct {
	Name      string  `json:"name"`
	Citations int     `json:"citations"`
	Weight    float64 `json:"weight"` // sum of citing sources' adjusted confidence
}

// ExcludedSource records a source dropped from the vote. Exclusions are
// always visible: degradation is never silent.
type ExcludedSource struct {
	SourceID string            `json:"sourceId"`
	Type     signal.SourceType `json:"type"`
	Reason   string            `json:"reason"`
}

// Build assembles the full metadata report for one run.
func Build(sources []quality.AdjustedSource, conflicts conflict.Summary, res *synthesis.Result) Report {
	r := Report{
		Quality:      qualitySummary(sources),
		Validation:   validationSummary(sources),
		Reliability:  reliabilitySummary(sources),
		Conflicts:    conflicts,
		Transparency: transparency(sources, conflicts, res),
	}
	return r
}

func qualitySummary(sources []quality.AdjustedSource) QualitySummary {
	s := QualitySummary{PerSource: make(map[string]float64, len(sources))}
	for _, src := range sources {
		s.PerSource[src.Output.SourceID] = src.Profile.OverallQuality
		s.AverageQuality += src.Profile.OverallQuality
		s.Warnings = append(s.Warnings, src.Profile.Warnings...)
	}
	if len(sources) > 0 {
		s.AverageQuality /= float64(len(sources))
	}
	sort.Strings(s.Warnings)
	return s
}

func validationSummary(sources []quality.AdjustedSource) ValidationSummary {
	var s ValidationSummary
	for _, src := range sources {
		if validation.Passed(src.Checks) {
			s.PassedSources++
		} else {
			s.FailedSources++
			for _, c := range src.Checks {
				if c.Critical && !c.Passed {
					s.CriticalFailures = append(s.CriticalFailures,
						fmt.Sprintf("%s: %s (%s)", src.Output.SourceID, c.Name, c.Details))
				}
			}
		}
		s.AverageScore += src.ValidationScore
	}
	if len(sources) > 0 {
		s.AverageScore /= float64(len(sources))
	}
	sort.Strings(s.CriticalFailures)
	return s
}

func reliabilitySummary(sources []quality.AdjustedSource) ReliabilitySummary {
	var s ReliabilitySummary
	distinct := map[string]bool{}
	for _, src := range sources {
		s.AverageReliability += src.Profile.SourceReliability
		for _, c := range src.Output.DistinctProvenance() {
			distinct[c] = true
		}
	}
	if len(sources) > 0 {
		s.AverageReliability /= float64(len(sources))
	}
	s.DistinctCitations = len(distinct)
	return s
}

func transparency(sources []quality.AdjustedSource, conflicts conflict.Summary, res *synthesis.Result) Transparency {
	t := Transparency{
		RankedDataSources: rankDataSources(sources),
	}

	for _, src := range sources {
		if src.Excluded() {
			t.Excluded = append(t.Excluded, ExcludedSource{
				SourceID: src.Output.SourceID,
				Type:     src.Output.Type,
				Reason:   src.ExclusionReason,
			})
		}
	}
	sort.Slice(t.Excluded, func(i, j int) bool { return t.Excluded[i].SourceID < t.Excluded[j].SourceID })

	t.Reasoning = reasoning(sources, conflicts, res, len(t.Excluded))
	return t
}

// rankDataSources deduplicates provenance across all sources and ranks the
// cited upstream data sources by the adjusted confidence standing behind
// each citation.
func rankDataSources(sources []quality.AdjustedSource) []RankedDataSource {
	byName := map[string]*RankedDataSource{}
	for _, src := range sources {
		for _, cite := range src.Output.DistinctProvenance() {
			entry, ok := byName[cite]
			if !ok {
				entry = &RankedDataSource{Name: cite}
				byName[cite] = entry
			}
			entry.Citations++
			entry.Weight += float64(src.AdjustedConfidence)
		}
	}

	ranked := make([]RankedDataSource, 0, len(byName))
	for _, e := range byName {
		ranked = append(ranked, *e)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Weight != ranked[j].Weight {
			return ranked[i].Weight > ranked[j].Weight
		}
		return ranked[i].Name < ranked[j].Name
	})
	return ranked
}

func reasoning(sources []quality.AdjustedSource, conflicts conflict.Summary, res *synthesis.Result, excluded int) []string {
	var lines []string

	if res != nil {
		if res.FastPath {
			lines = append(lines, fmt.Sprintf(
				"confidence %d taken directly from the authoritative synthesis source", res.Confidence))
		} else {
			lines = append(lines, fmt.Sprintf(
				"confidence %d is the weight-normalized average across %d contributing sources",
				res.Confidence, len(res.Weights)))
		}
		lines = append(lines, fmt.Sprintf("overall direction %s from horizon votes %v",
			res.Direction, horizonLine(res)))
	}

	if excluded > 0 {
		lines = append(lines, fmt.Sprintf("%d of %d sources excluded from the weighted vote", excluded, len(sources)))
	}

	if conflicts.InsufficientData {
		lines = append(lines, "fewer than 2 valid sources: conflict detection skipped")
	} else {
		lines = append(lines, fmt.Sprintf("consensus strength %.2f across %d detected conflicts",
			conflicts.ConsensusStrength, len(conflicts.Records)))
		for _, rec := range conflicts.Records {
			lines = append(lines, fmt.Sprintf("conflict (%s, %s): %s", rec.Type, rec.Severity, rec.Description))
		}
	}

	return lines
}

func horizonLine(res *synthesis.Result) []string {
	out := make([]string, 0, len(res.HorizonDirections))
	for _, h := range signal.Horizons() {
		if t, ok := res.HorizonDirections[h]; ok {
			out = append(out, fmt.Sprintf("%s=%s", h, t))
		}
	}
	return out
}
