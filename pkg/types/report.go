package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// CheckVerdict is the outcome of one validation check on one artifact.
type CheckVerdict struct {
	Check      string `json:"check"`
	Passed     bool   `json:"passed"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// ArtifactResult is the per-artifact entry shared by all reports.
type ArtifactResult struct {
	ArtifactID string `json:"artifact_id"`
	Name       string `json:"name,omitempty"`
	SourcePath string `json:"source_path,omitempty"`
	// Method is the recovery method that produced the artifact upstream
	// (fs_based, carved, ...).
	Method    string `json:"method,omitempty"`
	Format    string `json:"format"`
	SizeBytes int64  `json:"size_bytes"`

	Classification string `json:"classification"`
	CorruptionType string `json:"corruption_type,omitempty"`
	Tier           int    `json:"tier,omitempty"`
	// RecommendedTechnique names the repair technique mapped to the
	// corruption type, when one exists.
	RecommendedTechnique string `json:"recommended_technique,omitempty"`
	Detail               string `json:"detail,omitempty"`

	Verdicts []CheckVerdict `json:"verdicts,omitempty"`
}

// Breakdown is a per-group count split used by the by-format and
// by-source views.
type Breakdown struct {
	Total         int `json:"total"`
	Valid         int `json:"valid"`
	Corrupted     int `json:"corrupted"`
	Unrecoverable int `json:"unrecoverable"`
}

// BatchSummary aggregates one validation pass.
type BatchSummary struct {
	Total         int            `json:"total"`
	Valid         int            `json:"valid"`
	Corrupted     int            `json:"corrupted"`
	Unrecoverable int            `json:"unrecoverable"`
	Repairable    int            `json:"repairable"`
	ByType        map[string]int `json:"by_type,omitempty"`

	// IntegrityScore is the percentage of the batch that is valid;
	// Band buckets it for the narrative report.
	IntegrityScore float64 `json:"integrity_score"`
	Band           string  `json:"band"`
}

// ValidationReport is the output of the validation stage.
type ValidationReport struct {
	RunID       string        `json:"run_id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Elapsed     time.Duration `json:"elapsed"`

	Summary  BatchSummary         `json:"summary"`
	ByFormat map[string]Breakdown `json:"by_format,omitempty"`
	BySource map[string]Breakdown `json:"by_source,omitempty"`

	Artifacts []ArtifactResult `json:"artifacts"`
}

// Sort orders the artifact entries by ID for deterministic output.
func (r *ValidationReport) Sort() {
	sort.Slice(r.Artifacts, func(i, j int) bool {
		return r.Artifacts[i].ArtifactID < r.Artifacts[j].ArtifactID
	})
}

// FormatJSON returns the report as formatted JSON (2-space indentation).
func (r *ValidationReport) FormatJSON() (string, error) {
	return marshalIndent(r)
}

// FormatText returns a human-readable text report.
func (r *ValidationReport) FormatText() string {
	var b strings.Builder
	header(&b, "Artifact Validation Report")

	fmt.Fprintf(&b, "Run:       %s\n", r.RunID)
	fmt.Fprintf(&b, "Artifacts: %d\n", r.Summary.Total)
	fmt.Fprintf(&b, "Elapsed:   %v\n\n", r.Elapsed)

	b.WriteString("SUMMARY\n")
	b.WriteString(strings.Repeat("-", 79) + "\n")
	fmt.Fprintf(&b, "  Valid:         %d\n", r.Summary.Valid)
	fmt.Fprintf(&b, "  Corrupted:     %d\n", r.Summary.Corrupted)
	fmt.Fprintf(&b, "  Unrecoverable: %d\n", r.Summary.Unrecoverable)
	fmt.Fprintf(&b, "  Repairable:    %d\n", r.Summary.Repairable)
	fmt.Fprintf(&b, "  Integrity:     %.1f%% (%s)\n\n", r.Summary.IntegrityScore, r.Summary.Band)

	if len(r.Summary.ByType) > 0 {
		b.WriteString("CORRUPTION BY TYPE\n")
		b.WriteString(strings.Repeat("-", 79) + "\n")
		for _, name := range sortedKeys(r.Summary.ByType) {
			fmt.Fprintf(&b, "  %-18s %d\n", name, r.Summary.ByType[name])
		}
		b.WriteString("\n")
	}

	writeBreakdown(&b, "BY FORMAT", r.ByFormat)
	writeBreakdown(&b, "BY SOURCE", r.BySource)

	damaged := 0
	for _, a := range r.Artifacts {
		if a.Classification != "valid" {
			damaged++
		}
	}
	if damaged == 0 {
		b.WriteString("No damaged artifacts.\n")
		return b.String()
	}

	b.WriteString("DAMAGED ARTIFACTS\n")
	b.WriteString(strings.Repeat("-", 79) + "\n")
	for _, a := range r.Artifacts {
		if a.Classification == "valid" {
			continue
		}
		fmt.Fprintf(&b, "\n%s (%s, %d bytes)\n", a.ArtifactID, a.Format, a.SizeBytes)
		fmt.Fprintf(&b, "  Classification: %s", a.Classification)
		if a.CorruptionType != "" {
			fmt.Fprintf(&b, " / %s (tier %d)", a.CorruptionType, a.Tier)
		}
		b.WriteString("\n")
		if a.Detail != "" {
			fmt.Fprintf(&b, "  Detail:         %s\n", a.Detail)
		}
		if a.RecommendedTechnique != "" {
			fmt.Fprintf(&b, "  Technique:      %s\n", a.RecommendedTechnique)
		}
	}
	return b.String()
}

// DecisionReport is the output of the decision stage.
type DecisionReport struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`

	Summary BatchSummary `json:"summary"`

	Action     string   `json:"action"`
	Confidence string   `json:"confidence"`
	Rule       string   `json:"rule"`
	Reasoning  []string `json:"reasoning"`

	Estimate           float64 `json:"estimate"`
	ExpectedAdditional int     `json:"expected_additional"`
	FinalExpectedValid int     `json:"final_expected_valid"`
	ProjectedIntegrity float64 `json:"projected_integrity"`
	ImprovementPoints  float64 `json:"improvement_points"`

	OverrideAction        string `json:"override_action,omitempty"`
	OverrideJustification string `json:"override_justification,omitempty"`
	OverrideApprover      string `json:"override_approver,omitempty"`
}

// FormatJSON returns the report as formatted JSON.
func (r *DecisionReport) FormatJSON() (string, error) {
	return marshalIndent(r)
}

// FormatText returns a human-readable text report.
func (r *DecisionReport) FormatText() string {
	var b strings.Builder
	header(&b, "Repair Decision Report")

	fmt.Fprintf(&b, "Run:        %s\n", r.RunID)
	fmt.Fprintf(&b, "Action:     %s\n", r.Action)
	fmt.Fprintf(&b, "Confidence: %s\n", r.Confidence)
	fmt.Fprintf(&b, "Rule:       %s\n\n", r.Rule)

	b.WriteString("REASONING\n")
	b.WriteString(strings.Repeat("-", 79) + "\n")
	for _, line := range r.Reasoning {
		fmt.Fprintf(&b, "  - %s\n", line)
	}
	b.WriteString("\n")

	b.WriteString("PROJECTION\n")
	b.WriteString(strings.Repeat("-", 79) + "\n")
	fmt.Fprintf(&b, "  Weighted estimate:   %.1f%%\n", r.Estimate)
	fmt.Fprintf(&b, "  Expected additional: %d\n", r.ExpectedAdditional)
	fmt.Fprintf(&b, "  Valid after repair:  %d of %d (%.1f%%)\n",
		r.FinalExpectedValid, r.Summary.Total, r.ProjectedIntegrity)
	fmt.Fprintf(&b, "  Improvement:         %+.1f points\n", r.ImprovementPoints)

	if r.OverrideAction != "" {
		b.WriteString("\nOVERRIDE\n")
		b.WriteString(strings.Repeat("-", 79) + "\n")
		fmt.Fprintf(&b, "  Action:        %s\n", r.OverrideAction)
		fmt.Fprintf(&b, "  Justification: %s\n", r.OverrideJustification)
		fmt.Fprintf(&b, "  Approved by:   %s\n", r.OverrideApprover)
	}
	return b.String()
}

// RepairAttempt is one technique attempt in the repair report.
type RepairAttempt struct {
	Technique  string        `json:"technique"`
	Status     string        `json:"status"`
	Note       string        `json:"note,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	OutputSize int64         `json:"output_size,omitempty"`
}

// RepairResult is the per-artifact entry of the repair report.
type RepairResult struct {
	ArtifactID     string          `json:"artifact_id"`
	CorruptionType string          `json:"corruption_type,omitempty"`
	Repaired       bool            `json:"repaired"`
	Technique      string          `json:"technique,omitempty"`
	OutputPath     string          `json:"output_path,omitempty"`
	Attempts       []RepairAttempt `json:"attempts,omitempty"`
}

// RepairTypeStats splits attempts and successes per corruption type.
// ExpectedRate is the configured empirical success percentage used by
// the decision stage, for comparison against the observed outcome.
type RepairTypeStats struct {
	Attempted    int     `json:"attempted"`
	Repaired     int     `json:"repaired"`
	ExpectedRate float64 `json:"expected_rate"`
}

// RepairReport is the output of the repair stage.
type RepairReport struct {
	RunID       string        `json:"run_id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Elapsed     time.Duration `json:"elapsed"`
	DryRun      bool          `json:"dry_run,omitempty"`

	Attempted int `json:"attempted"`
	Repaired  int `json:"repaired"`
	Failed    int `json:"failed"`

	// ByType is the success split per corruption type.
	ByType map[string]RepairTypeStats `json:"by_type,omitempty"`

	// FinalValid and FinalIntegrity describe the batch after repair
	// outputs are counted in.
	FinalValid     int     `json:"final_valid"`
	FinalIntegrity float64 `json:"final_integrity"`

	Results []RepairResult `json:"results"`
}

// Sort orders the result entries by artifact ID.
func (r *RepairReport) Sort() {
	sort.Slice(r.Results, func(i, j int) bool {
		return r.Results[i].ArtifactID < r.Results[j].ArtifactID
	})
}

// FormatJSON returns the report as formatted JSON.
func (r *RepairReport) FormatJSON() (string, error) {
	return marshalIndent(r)
}

// FormatText returns a human-readable text report.
func (r *RepairReport) FormatText() string {
	var b strings.Builder
	header(&b, "Artifact Repair Report")

	fmt.Fprintf(&b, "Run:       %s\n", r.RunID)
	if r.DryRun {
		b.WriteString("Mode:      dry run (no output written)\n")
	}
	fmt.Fprintf(&b, "Attempted: %d\n", r.Attempted)
	fmt.Fprintf(&b, "Repaired:  %d\n", r.Repaired)
	fmt.Fprintf(&b, "Failed:    %d\n", r.Failed)
	fmt.Fprintf(&b, "Elapsed:   %v\n\n", r.Elapsed)

	fmt.Fprintf(&b, "Final integrity: %d valid (%.1f%%)\n\n", r.FinalValid, r.FinalIntegrity)

	if len(r.ByType) > 0 {
		b.WriteString("SUCCESS BY TYPE\n")
		b.WriteString(strings.Repeat("-", 79) + "\n")
		names := make([]string, 0, len(r.ByType))
		for name := range r.ByType {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			s := r.ByType[name]
			fmt.Fprintf(&b, "  %-18s %d of %d repaired (expected %.0f%%)\n",
				name, s.Repaired, s.Attempted, s.ExpectedRate)
		}
		b.WriteString("\n")
	}

	if len(r.Results) == 0 {
		b.WriteString("Nothing to repair.\n")
		return b.String()
	}

	b.WriteString("RESULTS\n")
	b.WriteString(strings.Repeat("-", 79) + "\n")
	for _, res := range r.Results {
		status := "FAILED"
		if res.Repaired {
			status = "REPAIRED"
		}
		fmt.Fprintf(&b, "\n%s: %s", res.ArtifactID, status)
		if res.Technique != "" {
			fmt.Fprintf(&b, " via %s", res.Technique)
		}
		b.WriteString("\n")
		if res.OutputPath != "" {
			fmt.Fprintf(&b, "  Output: %s\n", res.OutputPath)
		}
		for _, a := range res.Attempts {
			fmt.Fprintf(&b, "  [%s] %s", a.Status, a.Technique)
			if a.Note != "" {
				fmt.Fprintf(&b, ": %s", a.Note)
			}
			if a.Error != "" {
				fmt.Fprintf(&b, " (%s)", a.Error)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func header(b *strings.Builder, title string) {
	b.WriteString(strings.Repeat("=", 79) + "\n")
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", 79) + "\n\n")
}

func writeBreakdown(b *strings.Builder, title string, groups map[string]Breakdown) {
	if len(groups) == 0 {
		return
	}
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("-", 79) + "\n")
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		g := groups[name]
		fmt.Fprintf(b, "  %-12s total %-4d valid %-4d corrupted %-4d unrecoverable %d\n",
			name, g.Total, g.Valid, g.Corrupted, g.Unrecoverable)
	}
	b.WriteString("\n")
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func marshalIndent(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
