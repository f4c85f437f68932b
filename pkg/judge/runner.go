package judge

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/skillbench/skillbench/pkg/invoker"
	"github.com/skillbench/skillbench/pkg/logger"
	"github.com/skillbench/skillbench/pkg/scenario"
)

// judgeSystemPrompt instructs the judge to follow the rubric convention
// the score parser relies on.
const judgeSystemPrompt = `You are an exacting senior code reviewer acting as a judge.
Score the agent output strictly against the rubric you are given, one numeric sub-score per criterion.

Rules:
- Judge only the %q domain. Ignore concerns the rubric does not cover.
- For each criterion, state the sub-score as "<criterion>: N/10" with a one-sentence justification.
- Flag any severe problem on its own line as "CRITICAL: <issue>".
- End your judgment with exactly one line of the form "## %s Total: NN/%d" where NN is the sum of your sub-scores.`

// Job pairs a domain with its assembled supporting context.
type Job struct {
	Domain  *Domain
	Context string
}

// Runner invokes LLM judges. Judge invocation goes through the same
// Invoker as agent invocation, so subprocess failures share one
// error-handling path and judges can be swapped without touching
// invocation code.
type Runner struct {
	invoker invoker.Invoker
}

// NewRunner creates a judge runner on top of the given invoker.
func NewRunner(inv invoker.Invoker) *Runner {
	return &Runner{invoker: inv}
}

// Judge runs a single domain's judge over the agent output and derives
// its Result. The judge's total line is not validated here; parsing
// degrades to a zero score in NewResult.
func (r *Runner) Judge(ctx context.Context, job Job, sc *scenario.Scenario, agentOutput string) (*Result, error) {
	system, user := buildJudgePrompt(job, sc, agentOutput)

	logger.G(ctx).WithField("domain", job.Domain.Name).Debug("Invoking judge")
	output, err := r.invoker.Invoke(ctx, system, user)
	if err != nil {
		return nil, errors.Wrapf(err, "judge for domain '%s' failed", job.Domain.Name)
	}

	result := NewResult(job.Domain, output)
	if !result.Parsed {
		logger.G(ctx).WithField("domain", job.Domain.Name).Warn("Judge output has no parseable total, scoring 0")
	}

	return result, nil
}

// buildJudgePrompt assembles the composite judge prompt in fixed order:
// rubric, then domain context, then scenario description, then agent
// output.
func buildJudgePrompt(job Job, sc *scenario.Scenario, agentOutput string) (string, string) {
	system := fmt.Sprintf(judgeSystemPrompt, job.Domain.Name, job.Domain.Name, job.Domain.MaxScore)

	var sb strings.Builder
	sb.WriteString("# Rubric\n\n")
	sb.WriteString(strings.TrimSpace(job.Domain.Rubric))

	if strings.TrimSpace(job.Context) != "" {
		sb.WriteString("\n\n# Reference Material\n\n")
		sb.WriteString(strings.TrimSpace(job.Context))
	}

	sb.WriteString("\n\n# Scenario\n\n")
	if sc.Description != "" {
		sb.WriteString(sc.Description)
		sb.WriteString("\n\n")
	}
	sb.WriteString("The agent was asked:\n\n")
	sb.WriteString(strings.TrimSpace(sc.UserPrompt))

	sb.WriteString("\n\n# Agent Output\n\n")
	sb.WriteString(strings.TrimSpace(agentOutput))

	return system, sb.String()
}
