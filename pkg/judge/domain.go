// Package judge evaluates agent output against domain rubrics using
// LLM judges. Each domain (backend, tests, security) carries a rubric
// worth a fixed number of points; judges run concurrently through the
// same invoker as the agent, their free-text judgments are parsed for
// a total score, and the scores are aggregated into a pass/fail
// verdict.
package judge

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"

	"github.com/skillbench/skillbench/pkg/skills"
)

// ErrDomainNotConfigured indicates an unknown domain identifier.
var ErrDomainNotConfigured = errors.New("domain not configured")

const (
	rubricFileName = "RUBRIC.md"

	// DefaultMaxScore is the rubric convention: 5 criteria x 10 points.
	DefaultMaxScore = 50
)

// Domain is one evaluation axis with its own rubric and scoring.
// Static configuration, read-only at run time.
type Domain struct {
	Name        string
	Description string
	Rubric      string   // rubric body text (criteria x point values)
	SkillGlobs  []string // skills injected as supporting judge context
	MaxScore    int
	Directory   string
}

// Registry discovers domains from configured directories
type Registry struct {
	domainDirs []string
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry) error

// WithDomainDirs sets custom domain directories
func WithDomainDirs(dirs ...string) RegistryOption {
	return func(r *Registry) error {
		if len(dirs) == 0 {
			return errors.New("at least one domain directory must be specified")
		}
		r.domainDirs = dirs
		return nil
	}
}

// WithDefaultDirs sets the default domain directories (./domains, ~/.skillbench/domains)
func WithDefaultDirs() RegistryOption {
	return func(r *Registry) error {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "failed to get user home directory")
		}
		r.domainDirs = []string{
			"./domains",
			filepath.Join(homeDir, ".skillbench", "domains"),
		}
		return nil
	}
}

// NewRegistry creates a domain registry
func NewRegistry(opts ...RegistryOption) (*Registry, error) {
	r := &Registry{}

	if len(opts) == 0 {
		if err := WithDefaultDirs()(r); err != nil {
			return nil, errors.Wrap(err, "failed to apply default domain directories")
		}
		return r, nil
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, errors.Wrap(err, "failed to apply domain registry option")
		}
	}

	if len(r.domainDirs) == 0 {
		if err := WithDefaultDirs()(r); err != nil {
			return nil, errors.Wrap(err, "failed to apply default domain directories")
		}
	}

	return r, nil
}

// LoadDomain loads a single domain by name
func (r *Registry) LoadDomain(name string) (*Domain, error) {
	for _, dir := range r.domainDirs {
		domainDir := filepath.Join(dir, name)
		rubricPath := filepath.Join(domainDir, rubricFileName)
		if _, err := os.Stat(rubricPath); err != nil {
			continue
		}
		return loadDomain(domainDir, name)
	}

	return nil, errors.Wrapf(ErrDomainNotConfigured, "domain '%s' not found in directories %v", name, r.domainDirs)
}

// LoadAll loads every configured domain, sorted by name. Earlier
// directories take precedence on name collisions.
func (r *Registry) LoadAll() ([]*Domain, error) {
	byName := make(map[string]*Domain)

	for _, dir := range r.domainDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			name := entry.Name()
			if _, exists := byName[name]; exists {
				continue
			}

			domain, err := loadDomain(filepath.Join(dir, name), name)
			if err != nil {
				continue
			}
			byName[name] = domain
		}
	}

	domains := make([]*Domain, 0, len(byName))
	for _, domain := range byName {
		domains = append(domains, domain)
	}
	sort.Slice(domains, func(i, j int) bool {
		return domains[i].Name < domains[j].Name
	})

	return domains, nil
}

// loadDomain reads and parses a RUBRIC.md file
func loadDomain(domainDir, fallbackName string) (*Domain, error) {
	content, err := os.ReadFile(filepath.Join(domainDir, rubricFileName))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read rubric file")
	}

	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()

	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, errors.Wrap(err, "failed to parse rubric markdown")
	}

	metaData := meta.Get(pctx)
	if metaData == nil {
		return nil, errors.New("rubric is missing frontmatter")
	}

	domain := &Domain{
		Name:      fallbackName,
		MaxScore:  DefaultMaxScore,
		Directory: domainDir,
	}

	if name, ok := metaData["name"].(string); ok && name != "" {
		domain.Name = name
	}
	if description, ok := metaData["description"].(string); ok {
		domain.Description = description
	}
	if maxScore, ok := metaData["max_score"].(int); ok && maxScore > 0 {
		domain.MaxScore = maxScore
	}
	if skillPatterns := metaData["skills"]; skillPatterns != nil {
		patterns, ok := skillPatterns.([]interface{})
		if !ok {
			return nil, errors.New("rubric 'skills' must be a list of glob patterns")
		}
		for _, p := range patterns {
			if str, ok := p.(string); ok {
				domain.SkillGlobs = append(domain.SkillGlobs, strings.TrimSpace(str))
			}
		}
	}

	domain.Rubric = strings.TrimSpace(extractBodyContent(string(content)))
	if domain.Rubric == "" {
		return nil, errors.New("rubric body is empty")
	}

	return domain, nil
}

// Context assembles the domain's supporting judge context: the content
// of every skill matching the domain's glob patterns, joined in sorted
// name order. Pure file/text assembly, no process or network calls.
func (d *Domain) Context(available map[string]*skills.Skill) (string, error) {
	matched, err := skills.FilterByGlobs(available, d.SkillGlobs)
	if err != nil {
		return "", errors.Wrapf(err, "domain '%s' has invalid skill patterns", d.Name)
	}

	names := make([]string, 0, len(matched))
	for name := range matched {
		names = append(names, name)
	}
	sort.Strings(names)

	var sections []string
	for _, name := range names {
		sections = append(sections, "## Reference: "+name+"\n\n"+strings.TrimSpace(matched[name].Content))
	}

	return strings.Join(sections, "\n\n"), nil
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
