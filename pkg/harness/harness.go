// Package harness runs one evaluation scenario end to end: load the
// scenario (and its agent definition), invoke the LLM CLI for the
// agent output, fan out concurrent judges over every configured
// domain, aggregate their scores into a verdict, and persist the run.
// It also provides the assertion layer used by integration tests.
package harness

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/skillbench/skillbench/pkg/agents"
	"github.com/skillbench/skillbench/pkg/gitinfo"
	"github.com/skillbench/skillbench/pkg/invoker"
	"github.com/skillbench/skillbench/pkg/judge"
	"github.com/skillbench/skillbench/pkg/logger"
	"github.com/skillbench/skillbench/pkg/runlog"
	"github.com/skillbench/skillbench/pkg/scenario"
	"github.com/skillbench/skillbench/pkg/skills"
)

// Options configures one harness run. Zero values fall back to the
// repository-local defaults.
type Options struct {
	Scenario string            // scenario name, required
	Args     map[string]string // scenario template arguments

	ScenarioDirs []string
	SkillDirs    []string
	AgentDirs    []string
	DomainDirs   []string

	Invoker          invoker.Invoker // defaults to the CLI invoker with DefaultConfig
	ThresholdPercent int             // defaults to judge.DefaultThresholdPercent
	RunsDir          string          // defaults to runlog.DefaultRunsDir
	LogFile          string          // defaults to runlog.DefaultLogFile
	RepoDir          string          // git query directory, defaults to "."
}

// RunResult carries everything a caller needs to assert on or inspect
// after a run.
type RunResult struct {
	Scenario    *scenario.Scenario
	AgentOutput string
	Results     []*judge.Result
	Verdict     *judge.Verdict
	Entry       *runlog.Entry
	RunDir      string
}

// Run executes the full pipeline for one scenario. Configuration and
// invocation errors abort the run and propagate; unparseable judge
// output does not (it scores zero in its domain).
func Run(ctx context.Context, opts Options) (*RunResult, error) {
	if opts.Scenario == "" {
		return nil, errors.New("scenario name is required")
	}
	if opts.Invoker == nil {
		opts.Invoker = invoker.NewCLIInvoker(invoker.DefaultConfig())
	}
	if opts.ThresholdPercent == 0 {
		opts.ThresholdPercent = judge.DefaultThresholdPercent
	}
	if opts.RunsDir == "" {
		opts.RunsDir = runlog.DefaultRunsDir
	}
	if opts.LogFile == "" {
		opts.LogFile = runlog.DefaultLogFile
	}
	if opts.RepoDir == "" {
		opts.RepoDir = "."
	}

	sc, availableSkills, domains, err := loadInputs(ctx, opts)
	if err != nil {
		return nil, err
	}

	systemPrompt := sc.SystemPrompt
	if sc.Agent != "" {
		agentLoader, err := newAgentLoader(opts)
		if err != nil {
			return nil, err
		}
		agent, err := agentLoader.LoadAgent(ctx, sc.Agent)
		if err != nil {
			return nil, errors.Wrapf(err, "scenario '%s' references an unloadable agent", sc.Name)
		}
		systemPrompt, err = agent.ResolveSystemPrompt(availableSkills)
		if err != nil {
			return nil, err
		}
	}

	logger.G(ctx).WithField("scenario", sc.Name).Info("Invoking agent")
	agentOutput, err := opts.Invoker.Invoke(ctx, systemPrompt, sc.UserPrompt)
	if err != nil {
		return nil, errors.Wrapf(err, "agent invocation for scenario '%s' failed", sc.Name)
	}

	jobs := make([]judge.Job, 0, len(domains))
	for _, domain := range domains {
		domainContext, err := domain.Context(availableSkills)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, judge.Job{Domain: domain, Context: domainContext})
	}

	logger.G(ctx).WithField("domains", len(jobs)).Info("Dispatching judges")
	runner := judge.NewRunner(opts.Invoker)
	results, err := runner.JudgeAll(ctx, jobs, sc, agentOutput)
	if err != nil {
		return nil, err
	}

	verdict, err := judge.Aggregate(results, opts.ThresholdPercent)
	if err != nil {
		return nil, err
	}

	info := gitinfo.Describe(ctx, opts.RepoDir)
	entry := runlog.NewEntry(sc.Name, info.Revision, info.Branch, results, verdict)

	runDir, err := runlog.New(opts.RunsDir, opts.LogFile).Record(entry, agentOutput)
	if err != nil {
		return nil, err
	}

	logger.G(ctx).WithField("verdict", verdict.String()).WithField("run_dir", runDir).Info("Run recorded")

	return &RunResult{
		Scenario:    sc,
		AgentOutput: agentOutput,
		Results:     results,
		Verdict:     verdict,
		Entry:       entry,
		RunDir:      runDir,
	}, nil
}

func loadInputs(ctx context.Context, opts Options) (*scenario.Scenario, map[string]*skills.Skill, []*judge.Domain, error) {
	scenarioLoader, err := newScenarioLoader(opts)
	if err != nil {
		return nil, nil, nil, err
	}
	sc, err := scenarioLoader.Load(ctx, opts.Scenario, opts.Args)
	if err != nil {
		return nil, nil, nil, err
	}

	discovery, err := newSkillDiscovery(opts)
	if err != nil {
		return nil, nil, nil, err
	}
	availableSkills, err := discovery.DiscoverSkills()
	if err != nil {
		return nil, nil, nil, err
	}

	registry, err := newDomainRegistry(opts)
	if err != nil {
		return nil, nil, nil, err
	}
	domains, err := registry.LoadAll()
	if err != nil {
		return nil, nil, nil, err
	}
	if len(domains) == 0 {
		return nil, nil, nil, errors.Wrap(judge.ErrDomainNotConfigured, "no judge domains configured")
	}

	return sc, availableSkills, domains, nil
}

func newScenarioLoader(opts Options) (*scenario.Loader, error) {
	if len(opts.ScenarioDirs) > 0 {
		return scenario.NewLoader(scenario.WithScenarioDirs(opts.ScenarioDirs...))
	}
	return scenario.NewLoader()
}

func newSkillDiscovery(opts Options) (*skills.Discovery, error) {
	if len(opts.SkillDirs) > 0 {
		return skills.NewDiscovery(skills.WithSkillDirs(opts.SkillDirs...))
	}
	return skills.NewDiscovery()
}

func newAgentLoader(opts Options) (*agents.Loader, error) {
	if len(opts.AgentDirs) > 0 {
		return agents.NewLoader(agents.WithAgentDirs(opts.AgentDirs...))
	}
	return agents.NewLoader()
}

func newDomainRegistry(opts Options) (*judge.Registry, error) {
	if len(opts.DomainDirs) > 0 {
		return judge.NewRegistry(judge.WithDomainDirs(opts.DomainDirs...))
	}
	return judge.NewRegistry()
}

// Assert checks a completed run against the scenario's expectations.
// Each failed expectation is reported independently; none short-circuits
// the others. A verdict/expectation mismatch and unmet content
// assertions are ordinary test failures, not errors.
func Assert(t testing.TB, res *RunResult) {
	t.Helper()

	sc := res.Scenario
	if res.Verdict.Pass != sc.ExpectedPass {
		t.Errorf("scenario %q: verdict %s but expected_pass=%v", sc.Name, res.Verdict, sc.ExpectedPass)
	}

	for _, assertion := range sc.Assertions {
		if !assertion.MatchString(res.AgentOutput) {
			t.Errorf("scenario %q: agent output does not match /%s/", sc.Name, assertion)
		}
	}
}

// RunAndAssert runs the scenario and asserts on the result. An
// infrastructure error (configuration, subprocess) fails the test
// immediately as an error, distinct from assertion failures.
func RunAndAssert(t *testing.T, ctx context.Context, opts Options) *RunResult {
	t.Helper()

	res, err := Run(ctx, opts)
	if err != nil {
		t.Fatalf("harness run errored (infrastructure, not a scored FAIL): %v", err)
	}

	Assert(t, res)
	return res
}
