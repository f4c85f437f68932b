package lint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testConfig(root string) Config {
	return Config{
		SkillDirs:    []string{filepath.Join(root, "skills")},
		AgentDirs:    []string{filepath.Join(root, "agents")},
		ScenarioDirs: []string{filepath.Join(root, "scenarios")},
		DomainDirs:   []string{filepath.Join(root, "domains")},
	}
}

func writeCleanTree(t *testing.T, root string) {
	t.Helper()
	writeFile(t, filepath.Join(root, "skills", "rails-models", "SKILL.md"), `---
name: rails-models
description: Model conventions
---

Use belongs_to.
`)
	writeFile(t, filepath.Join(root, "agents", "rails-backend.md"), `---
name: rails-backend
description: Backend assistant
skills:
  - rails-*
---

You are a Rails developer.
`)
	writeFile(t, filepath.Join(root, "domains", "backend", "RUBRIC.md"), `---
name: Backend
description: Backend rubric
skills:
  - rails-models
---

Criteria here.
`)
	writeFile(t, filepath.Join(root, "scenarios", "blog-crud.md"), `---
name: blog-crud
description: CRUD planning
agent: rails-backend
expected_pass: true
assertions:
  - "belongs_to"
---

## User Prompt

Plan the feature for {{.feature}}.
`)
}

func TestRunCleanTree(t *testing.T) {
	root := t.TempDir()
	writeCleanTree(t, root)

	report, err := Run(testConfig(root))
	require.NoError(t, err)
	assert.True(t, report.OK(), "issues: %v", report.Issues)
	assert.Equal(t, 4, report.Checked)
	assert.NoError(t, report.Err())
}

func TestRunEmptyTreeIsClean(t *testing.T) {
	report, err := Run(testConfig(t.TempDir()))
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Zero(t, report.Checked)
}

func TestRunMissingFrontmatter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "skills", "bare", "SKILL.md"), "No frontmatter at all.\n")

	report, err := Run(testConfig(root))
	require.NoError(t, err)
	require.Len(t, report.Issues, 1)
	assert.Contains(t, report.Issues[0].Message, "missing YAML frontmatter")
}

func TestRunAccumulatesAllIssues(t *testing.T) {
	root := t.TempDir()
	// Skill with a name/directory mismatch and no description.
	writeFile(t, filepath.Join(root, "skills", "rails-models", "SKILL.md"), `---
name: rails-model
---

Body.
`)
	// Scenario referencing a missing agent, with a broken assertion
	// and no user prompt.
	writeFile(t, filepath.Join(root, "scenarios", "broken.md"), `---
name: broken
agent: nobody
expected_pass: true
assertions:
  - "([unclosed"
---

## System Prompt

Hi.
`)

	report, err := Run(testConfig(root))
	require.NoError(t, err)

	messages := make([]string, 0, len(report.Issues))
	for _, issue := range report.Issues {
		messages = append(messages, issue.String())
	}

	assert.Len(t, report.Issues, 5)
	assertContainsSubstring(t, messages, `name "rails-model" does not match directory "rails-models"`)
	assertContainsSubstring(t, messages, "missing 'description'")
	assertContainsSubstring(t, messages, `references unknown agent "nobody"`)
	assertContainsSubstring(t, messages, "does not compile")
	assertContainsSubstring(t, messages, "missing '## User Prompt'")

	require.Error(t, report.Err())
}

func TestRunScenarioNeedsPromptSource(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "scenarios", "floating.md"), `---
name: floating
expected_pass: false
---

## User Prompt

Do something.
`)

	report, err := Run(testConfig(root))
	require.NoError(t, err)
	require.Len(t, report.Issues, 1)
	assert.Contains(t, report.Issues[0].Message, "'agent' reference or a '## System Prompt'")
}

func TestRunExpectedPassMustBeBool(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "scenarios", "stringy.md"), `---
name: stringy
expected_pass: "yes"
---

## System Prompt

Hi.

## User Prompt

Go.
`)

	report, err := Run(testConfig(root))
	require.NoError(t, err)
	require.Len(t, report.Issues, 1)
	assert.Contains(t, report.Issues[0].Message, "'expected_pass' must be present and boolean")
}

func TestRunUnmatchedSkillGlob(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "skills", "rails-models", "SKILL.md"), `---
name: rails-models
description: Models
---

Body.
`)
	writeFile(t, filepath.Join(root, "domains", "frontend", "RUBRIC.md"), `---
name: Frontend
description: Frontend rubric
skills:
  - react-*
---

Criteria.
`)

	report, err := Run(testConfig(root))
	require.NoError(t, err)
	require.Len(t, report.Issues, 1)
	assert.Contains(t, report.Issues[0].Message, `"react-*" matches no known skill`)
}

func TestRunBadTemplate(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "scenarios", "bad-template.md"), `---
name: bad-template
expected_pass: true
---

## System Prompt

Hi.

## User Prompt

Plan {{.feature.
`)

	report, err := Run(testConfig(root))
	require.NoError(t, err)
	require.Len(t, report.Issues, 1)
	assert.Contains(t, report.Issues[0].Message, "prompt template does not parse")
}

func TestRunBadMaxScore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "domains", "backend", "RUBRIC.md"), `---
name: Backend
description: Backend rubric
max_score: -10
---

Criteria.
`)

	report, err := Run(testConfig(root))
	require.NoError(t, err)
	require.Len(t, report.Issues, 1)
	assert.Contains(t, report.Issues[0].Message, "'max_score' must be a positive integer")
}

func TestIssuesSortedByPath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "scenarios", "zz.md"), "no frontmatter\n")
	writeFile(t, filepath.Join(root, "scenarios", "aa.md"), "no frontmatter\n")

	report, err := Run(testConfig(root))
	require.NoError(t, err)
	require.Len(t, report.Issues, 2)
	assert.Contains(t, report.Issues[0].Path, "aa.md")
	assert.Contains(t, report.Issues[1].Path, "zz.md")
}

func assertContainsSubstring(t *testing.T, haystack []string, needle string) {
	t.Helper()
	for _, s := range haystack {
		if strings.Contains(s, needle) {
			return
		}
	}
	t.Errorf("no message contains %q in %v", needle, haystack)
}
