package runlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillbench/skillbench/pkg/judge"
)

func passingEntry(t *testing.T, scenarioName string, ts time.Time) *Entry {
	t.Helper()
	results := []*judge.Result{
		{Domain: "Backend", MaxScore: 50, Score: 45, Parsed: true, Output: "backend judgment text\n## Backend Total: 45/50"},
		{Domain: "Tests", MaxScore: 50, Score: 42, Parsed: true, Output: "tests judgment text\n## Tests Total: 42/50"},
		{Domain: "Security", MaxScore: 50, Score: 38, Parsed: true, Output: "security judgment text\n## Security Total: 38/50", CriticalIssues: []string{"session fixation unhandled"}},
	}
	verdict, err := judge.Aggregate(results, judge.DefaultThresholdPercent)
	require.NoError(t, err)

	entry := NewEntry(scenarioName, "abc1234", "main", results, verdict)
	entry.Timestamp = ts
	return entry
}

func TestRecordWritesArtifacts(t *testing.T) {
	tmpDir := t.TempDir()
	logger := New(filepath.Join(tmpDir, "runs"), filepath.Join(tmpDir, "JUDGE_LOG.md"))

	ts := time.Date(2026, 8, 29, 14, 30, 5, 0, time.UTC)
	entry := passingEntry(t, "blog-crud", ts)

	runDir, err := logger.Record(entry, "the raw agent plan")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(tmpDir, "runs", "20260829_143005_blog-crud"), runDir)

	agentOutput, err := os.ReadFile(filepath.Join(runDir, "agent_output.md"))
	require.NoError(t, err)
	assert.Equal(t, "the raw agent plan", string(agentOutput))

	for _, name := range []string{"judge_backend.md", "judge_tests.md", "judge_security.md", "summary.md"} {
		_, err := os.Stat(filepath.Join(runDir, name))
		assert.NoError(t, err, name)
	}

	backendJudgment, err := os.ReadFile(filepath.Join(runDir, "judge_backend.md"))
	require.NoError(t, err)
	assert.Contains(t, string(backendJudgment), "backend judgment text")

	summary, err := os.ReadFile(filepath.Join(runDir, "summary.md"))
	require.NoError(t, err)
	logContent, err := os.ReadFile(filepath.Join(tmpDir, "JUDGE_LOG.md"))
	require.NoError(t, err)
	assert.Contains(t, string(logContent), string(summary), "log entry and summary share one structure")
}

func TestRenderEntryStructure(t *testing.T) {
	ts := time.Date(2026, 8, 29, 14, 30, 5, 0, time.UTC)
	entry := passingEntry(t, "blog-crud", ts)

	rendered := Render(entry)

	assert.Contains(t, rendered, "## 2026-08-29T14:30:05Z — blog-crud")
	assert.Contains(t, rendered, "Version: abc1234 (main)")
	assert.Contains(t, rendered, entry.RunID)
	assert.Contains(t, rendered, "### Scores")
	assert.Contains(t, rendered, "- Backend: 45/50")
	assert.Contains(t, rendered, "- Tests: 42/50")
	assert.Contains(t, rendered, "- Security: 38/50")
	assert.Contains(t, rendered, "**Total**: 125/150 (83%)")
	assert.Contains(t, rendered, "### Result")
	assert.Contains(t, rendered, "**PASS** (threshold: 105/150)")
	assert.Contains(t, rendered, "### Critical Issues")
	assert.Contains(t, rendered, "**Security**:")
	assert.Contains(t, rendered, "- session fixation unhandled")
}

func TestRenderNoCriticalIssues(t *testing.T) {
	results := []*judge.Result{
		{Domain: "Backend", MaxScore: 50, Score: 20, Parsed: true},
	}
	verdict, err := judge.Aggregate(results, judge.DefaultThresholdPercent)
	require.NoError(t, err)

	entry := NewEntry("sparse", "unknown", "unknown", results, verdict)
	rendered := Render(entry)

	assert.Contains(t, rendered, "**FAIL** (threshold: 35/50)")
	assert.Contains(t, rendered, "### Critical Issues\n\nNone\n")
}

func TestSequentialAppendsPreservePriorEntries(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "JUDGE_LOG.md")
	logger := New(filepath.Join(tmpDir, "runs"), logFile)

	first := passingEntry(t, "first-scenario", time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC))
	_, err := logger.Record(first, "first output")
	require.NoError(t, err)

	afterFirst, err := os.ReadFile(logFile)
	require.NoError(t, err)

	second := passingEntry(t, "second-scenario", time.Date(2026, 8, 29, 11, 0, 0, 0, time.UTC))
	_, err = logger.Record(second, "second output")
	require.NoError(t, err)

	afterSecond, err := os.ReadFile(logFile)
	require.NoError(t, err)

	// The first entry's bytes are unchanged by the second append.
	assert.True(t, strings.HasPrefix(string(afterSecond), string(afterFirst)))

	firstIdx := strings.Index(string(afterSecond), "first-scenario")
	secondIdx := strings.Index(string(afterSecond), "second-scenario")
	require.NotEqual(t, -1, firstIdx)
	require.NotEqual(t, -1, secondIdx)
	assert.Less(t, firstIdx, secondIdx, "entries appear in run order")
}

func TestNewEntryAssignsUniqueRunIDs(t *testing.T) {
	a := NewEntry("s", "r", "b", nil, &judge.Verdict{})
	b := NewEntry("s", "r", "b", nil, &judge.Verdict{})
	assert.NotEmpty(t, a.RunID)
	assert.NotEqual(t, a.RunID, b.RunID)
}
