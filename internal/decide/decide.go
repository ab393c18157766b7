// Package decide implements the batch repair decision. Given a classified
// batch, the engine weighs the empirical success rates of the damage it
// found and recommends whether running the repair stage is worth it. The
// rules are ordered; the first match wins and is named in the decision so
// an auditor can trace why the batch went the way it did.
package decide

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/classify"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/config"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/logging"
)

// Action is the recommended batch action.
type Action int

const (
	ActionSkip Action = iota
	ActionRepair
)

func (a Action) String() string {
	if a == ActionRepair {
		return "perform_repair"
	}
	return "skip_repair"
}

// MarshalText serializes the action by name.
func (a Action) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// Confidence grades how strongly the evidence supports the action.
type Confidence int

const (
	ConfidenceMedium Confidence = iota
	ConfidenceHigh
)

func (c Confidence) String() string {
	if c == ConfidenceHigh {
		return "high"
	}
	return "medium"
}

// MarshalText serializes the confidence by name.
func (c Confidence) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Decision is the engine's recommendation plus the arithmetic behind it.
type Decision struct {
	Action     Action     `json:"action"`
	Confidence Confidence `json:"confidence"`
	// Rule names the first matching rule, e.g. "low_yield".
	Rule      string   `json:"rule"`
	Reasoning []string `json:"reasoning"`

	// Estimate is the weighted repair success estimate in percent over
	// the repairable portion of the batch.
	Estimate float64 `json:"estimate"`
	// ExpectedAdditional is how many extra valid artifacts a repair run
	// is expected to produce.
	ExpectedAdditional int `json:"expected_additional"`
	// FinalExpectedValid projects the valid count after repair.
	FinalExpectedValid int `json:"final_expected_valid"`
	// ProjectedIntegrity is the batch integrity score after repair.
	ProjectedIntegrity float64 `json:"projected_integrity"`
	// ImprovementPoints is the projected integrity gain in percentage
	// points over the current score.
	ImprovementPoints float64 `json:"improvement_points"`

	// Override is set when an operator overruled the recommendation.
	Override *Override `json:"override,omitempty"`
}

// Override records a manual overrule of the engine's recommendation. The
// original decision stays in the record; the override is layered on top,
// never substituted in.
type Override struct {
	Action        Action `json:"action"`
	Justification string `json:"justification"`
	Approver      string `json:"approver"`
}

// Engine holds the injected rate table and rule thresholds.
type Engine struct {
	rates      map[string]float64
	thresholds config.Thresholds
	log        *slog.Logger
}

// New builds a decision engine from the loaded configuration.
func New(cfg *config.Config) *Engine {
	return &Engine{
		rates:      cfg.SuccessRates,
		thresholds: cfg.Thresholds,
		log:        logging.New("decide"),
	}
}

// rate returns the success percentage for a corruption type, falling
// back to the "unknown" row for types the table does not name.
func (e *Engine) rate(t classify.CorruptionType) float64 {
	if r, ok := e.rates[t.String()]; ok {
		return r
	}
	return e.rates["unknown"]
}

// Estimate computes the weighted success estimate over the repairable
// corrupted records: the mean of the per-type empirical rates.
func (e *Engine) Estimate(records []classify.Record) float64 {
	var total float64
	var n int
	for _, rec := range records {
		if rec.Classification == classify.Corrupted && rec.Type.Repairable() {
			total += e.rate(rec.Type)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// Decide evaluates the rule chain over a classified batch. Rules are
// checked in order and the first match wins.
func (e *Engine) Decide(records []classify.Record) Decision {
	sum := classify.Summarize(records)
	est := e.Estimate(records)

	d := Decision{Estimate: est}
	d.ExpectedAdditional = int(math.Round(float64(sum.Repairable) * est / 100))
	d.FinalExpectedValid = sum.Valid + d.ExpectedAdditional
	if sum.Total > 0 {
		d.ProjectedIntegrity = float64(d.FinalExpectedValid) / float64(sum.Total) * 100
		d.ImprovementPoints = d.ProjectedIntegrity - sum.IntegrityScore
	}

	switch {
	case sum.Corrupted == 0:
		d.Action = ActionSkip
		d.Confidence = ConfidenceHigh
		d.Rule = "no_corruption"
		d.Reasoning = append(d.Reasoning, "no corrupted artifacts in the batch")

	case sum.Repairable == 0:
		d.Action = ActionSkip
		d.Confidence = ConfidenceHigh
		d.Rule = "nothing_repairable"
		d.Reasoning = append(d.Reasoning,
			fmt.Sprintf("%d corrupted artifacts, none with a viable technique", sum.Corrupted))

	case sum.Valid < e.thresholds.LowYield:
		d.Action = ActionRepair
		d.Confidence = ConfidenceHigh
		d.Rule = "low_yield"
		d.Reasoning = append(d.Reasoning,
			fmt.Sprintf("only %d valid artifacts recovered (threshold %d), every additional photo matters",
				sum.Valid, e.thresholds.LowYield))

	case est >= e.thresholds.Repair:
		d.Action = ActionRepair
		d.Rule = "estimate_above_threshold"
		if est >= e.thresholds.HighConfidence {
			d.Confidence = ConfidenceHigh
		} else {
			d.Confidence = ConfidenceMedium
		}
		d.Reasoning = append(d.Reasoning,
			fmt.Sprintf("weighted success estimate %.1f%% meets the %.1f%% repair threshold",
				est, e.thresholds.Repair))

	default:
		d.Action = ActionSkip
		d.Confidence = ConfidenceMedium
		d.Rule = "estimate_below_threshold"
		d.Reasoning = append(d.Reasoning,
			fmt.Sprintf("weighted success estimate %.1f%% below the %.1f%% repair threshold",
				est, e.thresholds.Repair))
	}

	if d.Action == ActionRepair {
		d.Reasoning = append(d.Reasoning,
			fmt.Sprintf("expect %d additional valid artifacts, %d total after repair",
				d.ExpectedAdditional, d.FinalExpectedValid))
	}

	e.log.Info("batch decision",
		slog.String("action", d.Action.String()),
		slog.String("rule", d.Rule),
		slog.Float64("estimate", est),
		slog.Int("repairable", sum.Repairable))
	return d
}

// Apply layers a manual override onto a decision. Overrides need a
// justification and an approver; an unattributed overrule is rejected.
func Apply(d Decision, o Override) (Decision, error) {
	if o.Justification == "" {
		return d, errors.New("decide: override requires a justification")
	}
	if o.Approver == "" {
		return d, errors.New("decide: override requires an approver")
	}
	d.Override = &o
	return d, nil
}

// Effective returns the action to act on: the override when present,
// the engine's recommendation otherwise.
func (d Decision) Effective() Action {
	if d.Override != nil {
		return d.Override.Action
	}
	return d.Action
}
