// Package skills loads markdown skill definitions that capture coding
// conventions (Rails models, controllers, testing, security). Skills
// are packaged as directories containing a SKILL.md file with YAML
// frontmatter; their bodies are injected as reference context into
// judge prompts.
package skills

// Skill represents a discovered skill with its metadata
type Skill struct {
	Name        string // Unique name from frontmatter
	Description string // Brief description of the convention the skill documents
	Directory   string // Full path to the skill directory
	Content     string // Full content of SKILL.md (body, not frontmatter)
}

// Metadata represents the YAML frontmatter in SKILL.md files
type Metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}
