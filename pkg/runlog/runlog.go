// Package runlog persists evaluation results: a timestamped artifact
// directory per run (raw agent output, every raw judgment, a summary)
// and an append-only chronological markdown log shared across runs.
// The log is write-only during a run; appends never rewrite or reorder
// prior entries. Concurrent processes appending to the same log are
// not coordinated.
package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/skillbench/skillbench/pkg/judge"
)

const (
	// DefaultLogFile is the chronological log at the repository root.
	DefaultLogFile = "JUDGE_LOG.md"
	// DefaultRunsDir holds per-run artifact directories.
	DefaultRunsDir = "runs"

	dirTimestampFormat = "20060102_150405"
)

// Entry is one append-only record of a completed run.
type Entry struct {
	RunID     string
	Timestamp time.Time
	Scenario  string
	Revision  string
	Branch    string
	Results   []*judge.Result
	Verdict   *judge.Verdict
}

// Logger writes run artifacts and log entries.
type Logger struct {
	runsDir string
	logFile string
}

// New creates a Logger writing artifacts under runsDir and appending
// entries to logFile.
func New(runsDir, logFile string) *Logger {
	return &Logger{runsDir: runsDir, logFile: logFile}
}

// NewEntry stamps a new log entry for a finished run.
func NewEntry(scenarioName, revision, branch string, results []*judge.Result, verdict *judge.Verdict) *Entry {
	return &Entry{
		RunID:     uuid.NewString(),
		Timestamp: time.Now(),
		Scenario:  scenarioName,
		Revision:  revision,
		Branch:    branch,
		Results:   results,
		Verdict:   verdict,
	}
}

// Record writes the run's artifact directory and appends the entry to
// the chronological log. Returns the artifact directory path.
func (l *Logger) Record(entry *Entry, agentOutput string) (string, error) {
	runDir := filepath.Join(l.runsDir, entry.Timestamp.Format(dirTimestampFormat)+"_"+entry.Scenario)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create run directory")
	}

	if err := os.WriteFile(filepath.Join(runDir, "agent_output.md"), []byte(agentOutput), 0o644); err != nil {
		return "", errors.Wrap(err, "failed to write agent output")
	}

	for _, result := range entry.Results {
		name := "judge_" + strings.ToLower(result.Domain) + ".md"
		if err := os.WriteFile(filepath.Join(runDir, name), []byte(result.Output), 0o644); err != nil {
			return "", errors.Wrapf(err, "failed to write judgment for domain '%s'", result.Domain)
		}
	}

	rendered := Render(entry)
	if err := os.WriteFile(filepath.Join(runDir, "summary.md"), []byte(rendered), 0o644); err != nil {
		return "", errors.Wrap(err, "failed to write summary")
	}

	if err := l.append(rendered); err != nil {
		return "", err
	}

	return runDir, nil
}

// append adds one rendered entry block to the chronological log without
// touching prior bytes.
func (l *Logger) append(rendered string) error {
	if dir := filepath.Dir(l.logFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "failed to create log directory")
		}
	}

	f, err := os.OpenFile(l.logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "failed to open judge log")
	}
	defer f.Close()

	if _, err := f.WriteString(rendered + "\n"); err != nil {
		return errors.Wrap(err, "failed to append to judge log")
	}

	return nil
}

// Render formats an entry block. The same structure is used for log
// entries and per-run summaries.
func Render(entry *Entry) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## %s — %s\n\n", entry.Timestamp.Format(time.RFC3339), entry.Scenario)
	fmt.Fprintf(&sb, "Version: %s (%s) | Run ID: %s\n\n", entry.Revision, entry.Branch, entry.RunID)

	sb.WriteString("### Scores\n\n")
	for _, result := range entry.Results {
		fmt.Fprintf(&sb, "- %s: %d/%d\n", result.Domain, result.Score, result.MaxScore)
	}
	fmt.Fprintf(&sb, "\n**Total**: %d/%d (%d%%)\n\n", entry.Verdict.Total, entry.Verdict.MaxScore, entry.Verdict.Percent)

	sb.WriteString("### Result\n\n")
	outcome := "**FAIL**"
	if entry.Verdict.Pass {
		outcome = "**PASS**"
	}
	fmt.Fprintf(&sb, "%s (threshold: %d/%d)\n\n", outcome, entry.Verdict.Threshold, entry.Verdict.MaxScore)

	sb.WriteString("### Critical Issues\n\n")
	sb.WriteString(renderCriticalIssues(entry.Results))

	return sb.String()
}

func renderCriticalIssues(results []*judge.Result) string {
	withIssues := make([]*judge.Result, 0, len(results))
	for _, result := range results {
		if len(result.CriticalIssues) > 0 {
			withIssues = append(withIssues, result)
		}
	}

	if len(withIssues) == 0 {
		return "None\n"
	}

	sort.Slice(withIssues, func(i, j int) bool {
		return withIssues[i].Domain < withIssues[j].Domain
	})

	var sb strings.Builder
	for _, result := range withIssues {
		fmt.Fprintf(&sb, "**%s**:\n", result.Domain)
		for _, issue := range result.CriticalIssues {
			fmt.Fprintf(&sb, "- %s\n", issue)
		}
	}
	return sb.String()
}
