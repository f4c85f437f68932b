package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skillbench/skillbench/pkg/harness"
	"github.com/skillbench/skillbench/pkg/invoker"
	"github.com/skillbench/skillbench/pkg/presenter"
)

// RunConfig holds configuration for the run command
type RunConfig struct {
	Args             []string
	ScenarioDirs     []string
	SkillDirs        []string
	AgentDirs        []string
	DomainDirs       []string
	ThresholdPercent int
	RunsDir          string
	LogFile          string
}

// NewRunConfig creates a new RunConfig with default values
func NewRunConfig() *RunConfig {
	return &RunConfig{}
}

var runCmd = &cobra.Command{
	Use:   "run <scenario>",
	Short: "Run one evaluation scenario and record the verdict",
	Long: `Run loads the named scenario, invokes the LLM CLI for the agent output,
dispatches one concurrent judge per configured domain, aggregates the scores
into a pass/fail verdict, and appends it to the judge log.

Exits 0 on PASS and 1 on FAIL. Infrastructure failures (a missing scenario,
a crashed CLI) exit 2 and record nothing.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := getRunConfigFromFlags(cmd)

		templateArgs, err := parseTemplateArgs(config.Args)
		if err != nil {
			presenter.Error(err, "Invalid --arg")
			os.Exit(2)
		}

		opts := harness.Options{
			Scenario:         args[0],
			Args:             templateArgs,
			ScenarioDirs:     config.ScenarioDirs,
			SkillDirs:        config.SkillDirs,
			AgentDirs:        config.AgentDirs,
			DomainDirs:       config.DomainDirs,
			Invoker:          invoker.NewCLIInvoker(invokerConfigFromViper()),
			ThresholdPercent: config.ThresholdPercent,
			RunsDir:          config.RunsDir,
			LogFile:          config.LogFile,
		}

		res, err := harness.Run(cmd.Context(), opts)
		if err != nil {
			presenter.Error(err, "Evaluation run failed")
			os.Exit(2)
		}

		printScoreTable(res)
		presenter.Info(fmt.Sprintf("Artifacts: %s", res.RunDir))

		if res.Verdict.Pass {
			presenter.Success(res.Verdict.String())
			return
		}
		presenter.Warning(res.Verdict.String())
		os.Exit(1)
	},
}

func init() {
	defaults := NewRunConfig()
	runCmd.Flags().StringArray("arg", defaults.Args, "Scenario template argument as key=value (repeatable)")
	runCmd.Flags().StringSlice("scenarios-dir", defaults.ScenarioDirs, "Scenario directories (defaults to ./scenarios, ~/.skillbench/scenarios)")
	runCmd.Flags().StringSlice("skills-dir", defaults.SkillDirs, "Skill directories (defaults to ./skills, ~/.skillbench/skills)")
	runCmd.Flags().StringSlice("agents-dir", defaults.AgentDirs, "Agent directories (defaults to ./agents, ~/.skillbench/agents)")
	runCmd.Flags().StringSlice("domains-dir", defaults.DomainDirs, "Domain directories (defaults to ./domains, ~/.skillbench/domains)")
	runCmd.Flags().Int("threshold", 0, "Pass threshold as a percentage of the maximum score (defaults to 70)")
	runCmd.Flags().String("runs-dir", defaults.RunsDir, "Directory for per-run artifacts (defaults to ./runs)")
	runCmd.Flags().String("log-file", defaults.LogFile, "Append-only judge log (defaults to ./JUDGE_LOG.md)")
}

// getRunConfigFromFlags extracts run configuration from command flags
func getRunConfigFromFlags(cmd *cobra.Command) *RunConfig {
	config := NewRunConfig()

	if args, err := cmd.Flags().GetStringArray("arg"); err == nil {
		config.Args = args
	}
	if dirs, err := cmd.Flags().GetStringSlice("scenarios-dir"); err == nil {
		config.ScenarioDirs = dirs
	}
	if dirs, err := cmd.Flags().GetStringSlice("skills-dir"); err == nil {
		config.SkillDirs = dirs
	}
	if dirs, err := cmd.Flags().GetStringSlice("agents-dir"); err == nil {
		config.AgentDirs = dirs
	}
	if dirs, err := cmd.Flags().GetStringSlice("domains-dir"); err == nil {
		config.DomainDirs = dirs
	}
	if threshold, err := cmd.Flags().GetInt("threshold"); err == nil {
		config.ThresholdPercent = threshold
	}
	if runsDir, err := cmd.Flags().GetString("runs-dir"); err == nil {
		config.RunsDir = runsDir
	}
	if logFile, err := cmd.Flags().GetString("log-file"); err == nil {
		config.LogFile = logFile
	}

	return config
}

func parseTemplateArgs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	args := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, errors.Errorf("argument %q is not key=value", pair)
		}
		args[key] = value
	}
	return args, nil
}

// invokerConfigFromViper applies viper overrides on top of the default
// CLI configuration.
func invokerConfigFromViper() invoker.Config {
	config := invoker.DefaultConfig()

	if command := viper.GetString("command"); command != "" {
		config.Command = command
	}
	if args := viper.GetStringSlice("command_args"); len(args) > 0 {
		config.Args = args
	}
	if flag := viper.GetString("system_flag"); flag != "" {
		config.SystemFlag = flag
	}
	if attempts := viper.GetUint("retry.attempts"); attempts > 0 {
		config.Retry.Attempts = attempts
	}
	if delay := viper.GetInt("retry.initial_delay"); delay > 0 {
		config.Retry.InitialDelay = delay
	}
	if delay := viper.GetInt("retry.max_delay"); delay > 0 {
		config.Retry.MaxDelay = delay
	}
	if backoff := viper.GetString("retry.backoff_type"); backoff != "" {
		config.Retry.BackoffType = backoff
	}

	return config
}

// printScoreTable renders one row per domain plus the aggregate.
func printScoreTable(res *harness.RunResult) {
	table := newMarkdownTable([]string{"Domain", "Score", "Parsed", "Critical Issues"}, os.Stdout)

	for _, result := range res.Results {
		_ = table.Append([]string{
			result.Domain,
			fmt.Sprintf("%d/%d", result.Score, result.MaxScore),
			fmt.Sprintf("%v", result.Parsed),
			fmt.Sprintf("%d", len(result.CriticalIssues)),
		})
	}
	_ = table.Append([]string{
		"Total",
		fmt.Sprintf("%d/%d", res.Verdict.Total, res.Verdict.MaxScore),
		"",
		"",
	})
	_ = table.Render()
}

// newMarkdownTable creates a table writer with the formatting shared by
// every tabular command output.
func newMarkdownTable(headers []string, w *os.File) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		MaxWidth: 100,
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{
				Left:   tw.On,
				Top:    tw.Off,
				Right:  tw.On,
				Bottom: tw.Off,
			},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}
