// Package lint statically validates the markdown content tree: skills,
// agents, scenarios, and domain rubrics. It parses every file the way
// the loaders do, but instead of skipping a broken file it reports an
// issue, so authors find out before a run (or a CI job) does.
package lint

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"github.com/gobwas/glob"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
)

// Config names the directories to lint. Missing directories are
// skipped; an empty tree lints clean.
type Config struct {
	SkillDirs    []string
	AgentDirs    []string
	ScenarioDirs []string
	DomainDirs   []string
}

// DefaultConfig lints the repository-local content tree.
func DefaultConfig() Config {
	return Config{
		SkillDirs:    []string{"./skills"},
		AgentDirs:    []string{"./agents"},
		ScenarioDirs: []string{"./scenarios"},
		DomainDirs:   []string{"./domains"},
	}
}

// Issue is one problem in one file.
type Issue struct {
	Path    string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Path, i.Message)
}

// Report is the outcome of one lint pass.
type Report struct {
	Checked int // files parsed
	Issues  []Issue
}

// OK reports whether the tree linted clean.
func (r *Report) OK() bool {
	return len(r.Issues) == 0
}

// Err folds all issues into a single error, nil when clean.
func (r *Report) Err() error {
	var result *multierror.Error
	for _, issue := range r.Issues {
		result = multierror.Append(result, errors.New(issue.String()))
	}
	return result.ErrorOrNil()
}

// linter accumulates issues and the cross-reference state gathered
// while walking the tree.
type linter struct {
	report     Report
	agentNames map[string]bool
	skillNames map[string]bool
}

// Run lints the whole content tree and returns the report. The error
// return is reserved for I/O failures outside individual files; file
// problems land in the report.
func Run(cfg Config) (*Report, error) {
	l := &linter{
		agentNames: make(map[string]bool),
		skillNames: make(map[string]bool),
	}

	// Skills and agents first: scenarios and rubrics reference them.
	for _, dir := range cfg.SkillDirs {
		l.lintSkillDir(dir)
	}
	for _, dir := range cfg.AgentDirs {
		l.lintAgentDir(dir)
	}
	for _, dir := range cfg.DomainDirs {
		l.lintDomainDir(dir)
	}
	for _, dir := range cfg.ScenarioDirs {
		l.lintScenarioDir(dir)
	}

	sort.Slice(l.report.Issues, func(i, j int) bool {
		if l.report.Issues[i].Path != l.report.Issues[j].Path {
			return l.report.Issues[i].Path < l.report.Issues[j].Path
		}
		return l.report.Issues[i].Message < l.report.Issues[j].Message
	})

	return &l.report, nil
}

func (l *linter) issue(path, format string, args ...interface{}) {
	l.report.Issues = append(l.report.Issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (l *linter) lintSkillDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name(), "SKILL.md")
		fm, body, ok := l.parseFile(path)
		if !ok {
			continue
		}

		name := stringField(fm, "name")
		if name == "" {
			l.issue(path, "missing 'name' in frontmatter")
		} else {
			l.skillNames[name] = true
			if name != entry.Name() {
				l.issue(path, "name %q does not match directory %q", name, entry.Name())
			}
		}
		if stringField(fm, "description") == "" {
			l.issue(path, "missing 'description' in frontmatter")
		}
		if strings.TrimSpace(body) == "" {
			l.issue(path, "skill body is empty")
		}
	}
}

func (l *linter) lintAgentDir(dir string) {
	for _, path := range markdownFiles(dir) {
		fm, body, ok := l.parseFile(path)
		if !ok {
			continue
		}

		name := stringField(fm, "name")
		if name == "" {
			l.issue(path, "missing 'name' in frontmatter")
		} else {
			l.agentNames[name] = true
		}
		if stringField(fm, "description") == "" {
			l.issue(path, "missing 'description' in frontmatter")
		}
		if strings.TrimSpace(body) == "" {
			l.issue(path, "agent has no system prompt body")
		}
		l.lintGlobs(path, fm["skills"])
	}
}

func (l *linter) lintDomainDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name(), "RUBRIC.md")
		fm, body, ok := l.parseFile(path)
		if !ok {
			continue
		}

		if strings.TrimSpace(body) == "" {
			l.issue(path, "rubric body is empty")
		}
		if maxScore, present := fm["max_score"]; present {
			if n, ok := maxScore.(int); !ok || n <= 0 {
				l.issue(path, "'max_score' must be a positive integer")
			}
		}
		l.lintGlobs(path, fm["skills"])
	}
}

func (l *linter) lintScenarioDir(dir string) {
	for _, path := range markdownFiles(dir) {
		fm, body, ok := l.parseFile(path)
		if !ok {
			continue
		}

		if stringField(fm, "name") == "" {
			l.issue(path, "missing 'name' in frontmatter")
		}
		if _, ok := fm["expected_pass"].(bool); !ok {
			l.issue(path, "'expected_pass' must be present and boolean")
		}

		agent := stringField(fm, "agent")
		lower := strings.ToLower(body)
		hasSystem := strings.Contains(lower, "## system prompt")
		hasUser := strings.Contains(lower, "## user prompt")

		if agent == "" && !hasSystem {
			l.issue(path, "needs an 'agent' reference or a '## System Prompt' section")
		}
		if agent != "" && !l.agentNames[agent] {
			l.issue(path, "references unknown agent %q", agent)
		}
		if !hasUser {
			l.issue(path, "missing '## User Prompt' section")
		}

		if assertions, present := fm["assertions"]; present {
			patterns, ok := assertions.([]interface{})
			if !ok {
				l.issue(path, "'assertions' must be a list of regular expressions")
			} else {
				for _, p := range patterns {
					str, ok := p.(string)
					if !ok {
						l.issue(path, "'assertions' entries must be strings")
						continue
					}
					if _, err := regexp.Compile(str); err != nil {
						l.issue(path, "assertion /%s/ does not compile: %v", str, err)
					}
				}
			}
		}

		if _, err := template.New(filepath.Base(path)).Parse(body); err != nil {
			l.issue(path, "prompt template does not parse: %v", err)
		}
	}
}

// lintGlobs validates a frontmatter 'skills' field: a list of glob
// patterns, each matching at least one known skill.
func (l *linter) lintGlobs(path string, field interface{}) {
	if field == nil {
		return
	}
	patterns, ok := field.([]interface{})
	if !ok {
		l.issue(path, "'skills' must be a list of glob patterns")
		return
	}
	for _, p := range patterns {
		str, ok := p.(string)
		if !ok {
			l.issue(path, "'skills' entries must be strings")
			continue
		}
		g, err := glob.Compile(strings.TrimSpace(str))
		if err != nil {
			l.issue(path, "skill pattern %q does not compile: %v", str, err)
			continue
		}
		matched := false
		for name := range l.skillNames {
			if g.Match(name) {
				matched = true
				break
			}
		}
		if !matched {
			l.issue(path, "skill pattern %q matches no known skill", str)
		}
	}
}

// parseFile parses frontmatter and body; a parse failure is reported
// as an issue and (nil, "", false) is returned.
func (l *linter) parseFile(path string) (map[string]interface{}, string, bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		l.issue(path, "unreadable: %v", err)
		return nil, "", false
	}
	l.report.Checked++

	md := goldmark.New(goldmark.WithExtensions(meta.Meta))
	var buf bytes.Buffer
	pctx := parser.NewContext()
	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		l.issue(path, "markdown does not parse: %v", err)
		return nil, "", false
	}

	fm := meta.Get(pctx)
	if fm == nil {
		l.issue(path, "missing YAML frontmatter")
		return nil, "", false
	}

	return fm, extractBodyContent(string(content)), true
}

func stringField(fm map[string]interface{}, key string) string {
	s, _ := fm[key].(string)
	return strings.TrimSpace(s)
}

func markdownFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths
}

// extractBodyContent removes YAML frontmatter and returns the body
func extractBodyContent(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}

	lines := strings.Split(content, "\n")
	frontmatterEnd := -1

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			frontmatterEnd = i
			break
		}
	}

	if frontmatterEnd == -1 {
		return content
	}

	return strings.Join(lines[frontmatterEnd+1:], "\n")
}
