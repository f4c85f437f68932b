// Package agents loads markdown agent definitions. An agent is the
// system-prompt persona under evaluation (e.g. a Rails backend
// assistant): YAML frontmatter with a name, description, and an
// optional list of skill glob patterns, followed by the system prompt
// body. Scenarios reference agents by name instead of embedding a
// system prompt.
package agents

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"

	"github.com/skillbench/skillbench/pkg/logger"
	"github.com/skillbench/skillbench/pkg/skills"
)

// Metadata represents the YAML frontmatter configuration for an agent
type Metadata struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Skills      []string `yaml:"skills,omitempty"` // glob patterns of skills appended to the system prompt
}

// Agent represents a loaded agent with its metadata, system prompt, and file path
type Agent struct {
	Metadata     Metadata
	SystemPrompt string
	Path         string
}

// Loader handles loading of agent definitions from disk
type Loader struct {
	agentDirs []string
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader) error

// WithAgentDirs sets custom agent directories
func WithAgentDirs(dirs ...string) LoaderOption {
	return func(l *Loader) error {
		if len(dirs) == 0 {
			return errors.New("at least one agent directory must be specified")
		}
		l.agentDirs = dirs
		return nil
	}
}

// WithDefaultDirs sets the default agent directories (./agents, ~/.skillbench/agents)
func WithDefaultDirs() LoaderOption {
	return func(l *Loader) error {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "failed to get user home directory")
		}
		l.agentDirs = []string{
			"./agents", // Repository-specific (higher precedence)
			filepath.Join(homeDir, ".skillbench", "agents"),
		}
		return nil
	}
}

// NewLoader creates a new agent loader with optional configuration
func NewLoader(opts ...LoaderOption) (*Loader, error) {
	l := &Loader{}

	if len(opts) == 0 {
		if err := WithDefaultDirs()(l); err != nil {
			return nil, errors.Wrap(err, "failed to apply default agent directories")
		}
		return l, nil
	}

	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, errors.Wrap(err, "failed to apply agent loader option")
		}
	}

	if len(l.agentDirs) == 0 {
		if err := WithDefaultDirs()(l); err != nil {
			return nil, errors.Wrap(err, "failed to apply default agent directories")
		}
	}

	return l, nil
}

// findAgentFile searches for an agent file in the configured directories
func (l *Loader) findAgentFile(agentName string) (string, error) {
	possibleNames := []string{
		agentName + ".md",
		agentName,
	}

	for _, dir := range l.agentDirs {
		for _, name := range possibleNames {
			fullPath := filepath.Join(dir, name)
			if _, err := os.Stat(fullPath); err == nil {
				return fullPath, nil
			}
		}
	}

	return "", errors.Errorf("agent '%s' not found in directories: %v", agentName, l.agentDirs)
}

// parseFrontmatter extracts YAML frontmatter and body content from agent markdown
func (l *Loader) parseFrontmatter(content string) (Metadata, string, error) {
	var metadata Metadata

	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()

	if err := md.Convert([]byte(content), &buf, parser.WithContext(pctx)); err != nil {
		return metadata, content, errors.Wrap(err, "failed to convert markdown")
	}

	metaData := meta.Get(pctx)
	if metaData != nil {
		if name, ok := metaData["name"].(string); ok {
			metadata.Name = name
		}
		if description, ok := metaData["description"].(string); ok {
			metadata.Description = description
		}
		if skillPatterns := metaData["skills"]; skillPatterns != nil {
			metadata.Skills = parseStringArrayField(skillPatterns)
		}
	}

	return metadata, extractBodyContent(content), nil
}

// parseStringArrayField handles both []interface{} (YAML array) and string (comma-separated) formats
func parseStringArrayField(field interface{}) []string {
	switch v := field.(type) {
	case []interface{}:
		var result []string
		for _, item := range v {
			if str, ok := item.(string); ok {
				result = append(result, strings.TrimSpace(str))
			}
		}
		return result
	case string:
		if v == "" {
			return []string{}
		}
		var result []string
		for _, item := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	default:
		return []string{}
	}
}

// extractBodyContent extracts the markdown body content after YAML frontmatter
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

// LoadAgent loads a single agent by name
func (l *Loader) LoadAgent(ctx context.Context, agentName string) (*Agent, error) {
	logger.G(ctx).WithField("agent", agentName).Debug("Loading agent")

	agentPath, err := l.findAgentFile(agentName)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(agentPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read agent file '%s'", agentPath)
	}

	metadata, systemPrompt, err := l.parseFrontmatter(string(content))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse frontmatter in agent '%s'", agentPath)
	}

	if metadata.Name == "" {
		metadata.Name = agentName
	}

	return &Agent{
		Metadata:     metadata,
		SystemPrompt: strings.TrimSpace(systemPrompt),
		Path:         agentPath,
	}, nil
}

// ListAgents returns all available agents from the configured directories
func (l *Loader) ListAgents(ctx context.Context) ([]*Agent, error) {
	var agents []*Agent
	seen := make(map[string]bool)

	for _, dir := range l.agentDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			logger.G(ctx).WithField("dir", dir).Debug("Agent directory not found, skipping")
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
				continue
			}

			agentName := strings.TrimSuffix(entry.Name(), ".md")
			if seen[agentName] {
				continue
			}

			agent, err := l.LoadAgent(ctx, agentName)
			if err != nil {
				logger.G(ctx).WithField("agent", agentName).WithError(err).Warn("Failed to load agent, skipping")
				continue
			}

			agents = append(agents, agent)
			seen[agentName] = true
		}
	}

	sort.Slice(agents, func(i, j int) bool {
		return agents[i].Metadata.Name < agents[j].Metadata.Name
	})

	return agents, nil
}

// Validate checks that an agent has all required fields
func (a *Agent) Validate() error {
	if a.Metadata.Name == "" {
		return errors.New("agent name is required")
	}
	if a.Metadata.Description == "" {
		return errors.New("agent description is required")
	}
	if strings.TrimSpace(a.SystemPrompt) == "" {
		return errors.New("agent system prompt cannot be empty")
	}
	return nil
}

// ResolveSystemPrompt returns the agent's system prompt with the content
// of every skill matching the agent's skill patterns appended in sorted
// name order.
func (a *Agent) ResolveSystemPrompt(available map[string]*skills.Skill) (string, error) {
	if len(a.Metadata.Skills) == 0 {
		return a.SystemPrompt, nil
	}

	matched, err := skills.FilterByGlobs(available, a.Metadata.Skills)
	if err != nil {
		return "", errors.Wrapf(err, "agent '%s' has invalid skill patterns", a.Metadata.Name)
	}

	names := make([]string, 0, len(matched))
	for name := range matched {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString(a.SystemPrompt)
	for _, name := range names {
		sb.WriteString("\n\n## Skill: ")
		sb.WriteString(name)
		sb.WriteString("\n\n")
		sb.WriteString(strings.TrimSpace(matched[name].Content))
	}

	return sb.String(), nil
}
