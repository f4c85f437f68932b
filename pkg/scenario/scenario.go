// Package scenario loads evaluation scenarios from markdown files. A
// scenario fixes the inputs for one harness run: the system prompt (or
// a reference to an agent definition), the user prompt handed to the
// agent, the expected pass/fail outcome, and optional regex assertions
// against the agent output. Prompt sections are text/template bodies
// rendered with caller-supplied arguments.
package scenario

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"

	"github.com/skillbench/skillbench/pkg/logger"
)

// ErrScenarioNotFound indicates that no scenario definition matches the
// requested identifier.
var ErrScenarioNotFound = errors.New("scenario not found")

const (
	systemPromptSection = "system prompt"
	userPromptSection   = "user prompt"
)

// Scenario is one fixed input case driving a harness run. Immutable
// once loaded.
type Scenario struct {
	Name         string
	Description  string
	Agent        string // optional agent definition supplying the system prompt
	ExpectedPass bool
	Assertions   []*regexp.Regexp // content checks against the agent output
	SystemPrompt string
	UserPrompt   string
	Path         string
}

// Loader loads scenarios from configured directories
type Loader struct {
	scenarioDirs []string
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader) error

// WithScenarioDirs sets custom scenario directories
func WithScenarioDirs(dirs ...string) LoaderOption {
	return func(l *Loader) error {
		if len(dirs) == 0 {
			return errors.New("at least one scenario directory must be specified")
		}
		l.scenarioDirs = dirs
		return nil
	}
}

// WithDefaultDirs sets the default scenario directories (./scenarios, ~/.skillbench/scenarios)
func WithDefaultDirs() LoaderOption {
	return func(l *Loader) error {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "failed to get user home directory")
		}
		l.scenarioDirs = []string{
			"./scenarios",
			filepath.Join(homeDir, ".skillbench", "scenarios"),
		}
		return nil
	}
}

// NewLoader creates a new scenario loader
func NewLoader(opts ...LoaderOption) (*Loader, error) {
	l := &Loader{}

	if len(opts) == 0 {
		if err := WithDefaultDirs()(l); err != nil {
			return nil, errors.Wrap(err, "failed to apply default scenario directories")
		}
		return l, nil
	}

	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, errors.Wrap(err, "failed to apply scenario loader option")
		}
	}

	if len(l.scenarioDirs) == 0 {
		if err := WithDefaultDirs()(l); err != nil {
			return nil, errors.Wrap(err, "failed to apply default scenario directories")
		}
	}

	return l, nil
}

func (l *Loader) findScenarioFile(name string) (string, error) {
	possibleNames := []string{
		name + ".md",
		name,
	}

	for _, dir := range l.scenarioDirs {
		for _, fileName := range possibleNames {
			fullPath := filepath.Join(dir, fileName)
			if info, err := os.Stat(fullPath); err == nil && !info.IsDir() {
				return fullPath, nil
			}
		}
	}

	return "", errors.Wrapf(ErrScenarioNotFound, "scenario '%s' not found in directories %v", name, l.scenarioDirs)
}

// Load loads a scenario by name, rendering its prompt sections with the
// given template arguments. It has no side effects.
func (l *Loader) Load(ctx context.Context, name string, args map[string]string) (*Scenario, error) {
	logger.G(ctx).WithField("scenario", name).Debug("Loading scenario")

	path, err := l.findScenarioFile(name)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read scenario file '%s'", path)
	}

	sc, err := parse(string(content), args)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse scenario '%s'", path)
	}

	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), ".md")
	}
	sc.Path = path

	if sc.Agent == "" && sc.SystemPrompt == "" {
		return nil, errors.Errorf("scenario '%s' must declare an agent or a '## System Prompt' section", sc.Name)
	}
	if sc.UserPrompt == "" {
		return nil, errors.Errorf("scenario '%s' is missing a '## User Prompt' section", sc.Name)
	}

	return sc, nil
}

// List returns the sorted names of all available scenarios
func (l *Loader) List() ([]string, error) {
	var names []string
	seen := make(map[string]bool)

	for _, dir := range l.scenarioDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
				continue
			}
			name := strings.TrimSuffix(entry.Name(), ".md")
			if !seen[name] {
				names = append(names, name)
				seen[name] = true
			}
		}
	}

	sort.Strings(names)
	return names, nil
}

// parse extracts frontmatter and renders the prompt sections
func parse(content string, args map[string]string) (*Scenario, error) {
	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()

	if err := md.Convert([]byte(content), &buf, parser.WithContext(pctx)); err != nil {
		return nil, errors.Wrap(err, "failed to parse markdown")
	}

	metaData := meta.Get(pctx)
	if metaData == nil {
		return nil, errors.New("missing frontmatter")
	}

	sc := &Scenario{}
	if name, ok := metaData["name"].(string); ok {
		sc.Name = name
	}
	if description, ok := metaData["description"].(string); ok {
		sc.Description = description
	}
	if agent, ok := metaData["agent"].(string); ok {
		sc.Agent = agent
	}
	expected, ok := metaData["expected_pass"].(bool)
	if !ok {
		return nil, errors.New("expected_pass is required in frontmatter")
	}
	sc.ExpectedPass = expected

	if raw := metaData["assertions"]; raw != nil {
		patterns, ok := raw.([]interface{})
		if !ok {
			return nil, errors.New("assertions must be a list of regex patterns")
		}
		for _, p := range patterns {
			str, ok := p.(string)
			if !ok {
				return nil, errors.Errorf("assertion %v is not a string", p)
			}
			re, err := regexp.Compile(str)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid assertion pattern '%s'", str)
			}
			sc.Assertions = append(sc.Assertions, re)
		}
	}

	body := extractBodyContent(content)
	sections := splitSections(body)

	systemPrompt, err := renderSection(sections[systemPromptSection], args)
	if err != nil {
		return nil, errors.Wrap(err, "failed to render system prompt")
	}
	userPrompt, err := renderSection(sections[userPromptSection], args)
	if err != nil {
		return nil, errors.Wrap(err, "failed to render user prompt")
	}

	sc.SystemPrompt = systemPrompt
	sc.UserPrompt = userPrompt

	return sc, nil
}

// splitSections splits a markdown body on level-2 headings, keyed by
// lower-cased heading text.
func splitSections(body string) map[string]string {
	sections := make(map[string]string)

	var current string
	var lines []string
	flush := func() {
		if current != "" {
			sections[current] = strings.TrimSpace(strings.Join(lines, "\n"))
		}
		lines = nil
	}

	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "## ") {
			flush()
			current = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "## ")))
			continue
		}
		lines = append(lines, line)
	}
	flush()

	return sections
}

// renderSection renders a prompt section through text/template with the
// given arguments. Missing keys are an error so that a scenario cannot
// silently run with an incomplete prompt.
func renderSection(content string, args map[string]string) (string, error) {
	if content == "" {
		return "", nil
	}

	tmpl, err := template.New("section").Option("missingkey=error").Parse(content)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse template")
	}

	if args == nil {
		args = map[string]string{}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, args); err != nil {
		return "", errors.Wrap(err, "failed to execute template")
	}

	return strings.TrimSpace(buf.String()), nil
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
