package pipeline

import (
	"time"

	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/classify"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/decide"
	"github.com/dmnkSabota/penterep-forensic-toolkit/pkg/types"
)

func (p *Pipeline) validationReport(runID string, items []*item, elapsed time.Duration) *types.ValidationReport {
	sum := classify.Summarize(records(items))

	report := &types.ValidationReport{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		Elapsed:     elapsed,
		Summary:     batchSummary(sum),
		ByFormat:    map[string]types.Breakdown{},
		BySource:    map[string]types.Breakdown{},
		Artifacts:   make([]types.ArtifactResult, 0, len(items)),
	}

	for _, it := range items {
		formatName := "unknown"
		if it.res != nil && it.res.Facts.LooseKind.String() != "unknown" {
			formatName = it.res.Facts.LooseKind.String()
		}

		entry := types.ArtifactResult{
			ArtifactID:     it.id,
			Name:           it.id,
			SourcePath:     it.path,
			Method:         it.method,
			Format:         formatName,
			SizeBytes:      it.size,
			Classification: it.rec.Classification.String(),
			Detail:         it.rec.Detail,
		}
		if it.rec.Type != classify.TypeNone {
			entry.CorruptionType = it.rec.Type.String()
			entry.Tier = it.rec.Tier
		}
		if it.rec.Technique != classify.TechniqueNone {
			entry.RecommendedTechnique = it.rec.Technique.String()
		}
		if it.res != nil {
			for _, v := range it.res.Verdicts {
				entry.Verdicts = append(entry.Verdicts, types.CheckVerdict{
					Check: v.Check, Passed: v.Passed, Diagnostic: v.Diagnostic,
				})
			}
		}
		report.Artifacts = append(report.Artifacts, entry)

		bump(report.ByFormat, formatName, it.rec.Classification)
		bump(report.BySource, it.method, it.rec.Classification)
	}

	report.Sort()
	return report
}

func (p *Pipeline) decisionReport(runID string, d decide.Decision, sum types.BatchSummary) *types.DecisionReport {
	report := &types.DecisionReport{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		Summary:     sum,

		Action:     d.Action.String(),
		Confidence: d.Confidence.String(),
		Rule:       d.Rule,
		Reasoning:  d.Reasoning,

		Estimate:           d.Estimate,
		ExpectedAdditional: d.ExpectedAdditional,
		FinalExpectedValid: d.FinalExpectedValid,
		ProjectedIntegrity: d.ProjectedIntegrity,
		ImprovementPoints:  d.ImprovementPoints,
	}
	if d.Override != nil {
		report.OverrideAction = d.Override.Action.String()
		report.OverrideJustification = d.Override.Justification
		report.OverrideApprover = d.Override.Approver
	}
	return report
}

func batchSummary(sum classify.Summary) types.BatchSummary {
	return types.BatchSummary{
		Total:          sum.Total,
		Valid:          sum.Valid,
		Corrupted:      sum.Corrupted,
		Unrecoverable:  sum.Unrecoverable,
		Repairable:     sum.Repairable,
		ByType:         sum.ByType,
		IntegrityScore: sum.IntegrityScore,
		Band:           sum.Band(),
	}
}

func bump(groups map[string]types.Breakdown, key string, cls classify.Classification) {
	g := groups[key]
	g.Total++
	switch cls {
	case classify.Valid:
		g.Valid++
	case classify.Corrupted:
		g.Corrupted++
	case classify.Unrecoverable:
		g.Unrecoverable++
	}
	groups[key] = g
}
