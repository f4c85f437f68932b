package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/skillbench/skillbench/pkg/lint"
	"github.com/skillbench/skillbench/pkg/presenter"
)

// LintConfig holds configuration for the lint command
type LintConfig struct {
	Watch        bool
	DebounceTime int
}

// NewLintConfig creates a new LintConfig with default values
func NewLintConfig() *LintConfig {
	return &LintConfig{
		Watch:        false,
		DebounceTime: 500,
	}
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate the markdown content tree",
	Long: `Lint parses every skill, agent, scenario, and domain rubric the way the
harness would and reports every structural problem at once: missing
frontmatter fields, dangling agent references, glob patterns matching no
skill, assertions that do not compile.

With --watch it keeps running and re-lints whenever a markdown file changes.`,
	Run: func(cmd *cobra.Command, args []string) {
		config := getLintConfigFromFlags(cmd)
		cfg := lint.DefaultConfig()

		if config.Watch {
			err := lint.Watch(cmd.Context(), cfg, time.Duration(config.DebounceTime)*time.Millisecond, printLintReport)
			if err != nil && cmd.Context().Err() == nil {
				presenter.Error(err, "Watch failed")
				os.Exit(1)
			}
			return
		}

		report, err := lint.Run(cfg)
		if err != nil {
			presenter.Error(err, "Lint failed")
			os.Exit(1)
		}
		printLintReport(report)
		if !report.OK() {
			os.Exit(1)
		}
	},
}

func init() {
	defaults := NewLintConfig()
	lintCmd.Flags().Bool("watch", defaults.Watch, "Re-lint whenever a markdown file changes")
	lintCmd.Flags().IntP("debounce", "d", defaults.DebounceTime, "Debounce time in milliseconds for file change events")
}

// getLintConfigFromFlags extracts lint configuration from command flags
func getLintConfigFromFlags(cmd *cobra.Command) *LintConfig {
	config := NewLintConfig()

	if watch, err := cmd.Flags().GetBool("watch"); err == nil {
		config.Watch = watch
	}
	if debounceTime, err := cmd.Flags().GetInt("debounce"); err == nil {
		config.DebounceTime = debounceTime
	}

	return config
}

func printLintReport(report *lint.Report) {
	if report.OK() {
		presenter.Success(fmt.Sprintf("%d files, no issues", report.Checked))
		return
	}
	for _, issue := range report.Issues {
		presenter.Warning(issue.String())
	}
	presenter.Error(errors.Errorf("%d issues in %d files checked", len(report.Issues), report.Checked), "Lint found problems")
}
