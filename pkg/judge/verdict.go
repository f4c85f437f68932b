package judge

import (
	"fmt"

	"github.com/pkg/errors"
)

// DefaultThresholdPercent is the fixed pass threshold: an aggregate of
// at least 70% of the maximum possible score passes.
const DefaultThresholdPercent = 70

// Result is one domain's judgment of an agent run. Derived from the
// raw judge output, never mutated after creation.
type Result struct {
	Domain         string
	MaxScore       int
	Output         string // raw judge output text
	Score          int    // parsed total, 0 when unparseable
	Parsed         bool   // whether a valid total line was found
	CriticalIssues []string
}

// NewResult derives a Result from raw judge output. A missing or
// malformed total line yields Score 0 with Parsed false.
func NewResult(domain *Domain, output string) *Result {
	score, parsed := ParseTotal(domain.Name, domain.MaxScore, output)
	return &Result{
		Domain:         domain.Name,
		MaxScore:       domain.MaxScore,
		Output:         output,
		Score:          score,
		Parsed:         parsed,
		CriticalIssues: ExtractCriticalIssues(output),
	}
}

// Verdict is the final aggregate pass/fail decision for one run.
type Verdict struct {
	Total     int
	MaxScore  int // num_domains x per-domain max
	Percent   int // floor of Total/MaxScore
	Threshold int // minimum passing Total
	Pass      bool
}

// String formats the verdict the way it appears in logs and summaries.
func (v *Verdict) String() string {
	outcome := "FAIL"
	if v.Pass {
		outcome = "PASS"
	}
	return fmt.Sprintf("%s %d/%d (%d%%)", outcome, v.Total, v.MaxScore, v.Percent)
}

// Aggregate computes the verdict for a set of per-domain results. The
// total is the arithmetic sum of the results' scores; the threshold is
// thresholdPercent of the maximum possible score. Pure and idempotent:
// the same results always yield the same verdict.
func Aggregate(results []*Result, thresholdPercent int) (*Verdict, error) {
	if len(results) == 0 {
		return nil, errors.New("cannot aggregate zero judgment results")
	}
	if thresholdPercent < 0 || thresholdPercent > 100 {
		return nil, errors.Errorf("threshold percent %d is out of range [0, 100]", thresholdPercent)
	}

	total := 0
	maxScore := 0
	for _, result := range results {
		total += result.Score
		maxScore += result.MaxScore
	}

	threshold := maxScore * thresholdPercent / 100

	return &Verdict{
		Total:     total,
		MaxScore:  maxScore,
		Percent:   total * 100 / maxScore,
		Threshold: threshold,
		Pass:      total >= threshold,
	}, nil
}
