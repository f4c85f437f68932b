package judge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTotal(t *testing.T) {
	tests := []struct {
		name      string
		domain    string
		maxScore  int
		text      string
		wantScore int
		wantOK    bool
	}{
		{
			name:      "well-formed heading line",
			domain:    "Backend",
			maxScore:  50,
			text:      "criterion one: 9/10\ncriterion two: 8/10\n\n## Backend Total: 45/50\n",
			wantScore: 45,
			wantOK:    true,
		},
		{
			name:      "case insensitive",
			domain:    "backend",
			maxScore:  50,
			text:      "## BACKEND TOTAL: 38/50",
			wantScore: 38,
			wantOK:    true,
		},
		{
			name:      "no heading marker",
			domain:    "Tests",
			maxScore:  50,
			text:      "Overall the Tests total: 42/50 looks right.",
			wantScore: 42,
			wantOK:    true,
		},
		{
			name:      "whitespace variations",
			domain:    "Security",
			maxScore:  50,
			text:      "## Security  Total :  38 / 50",
			wantScore: 38,
			wantOK:    true,
		},
		{
			name:     "missing total line",
			domain:   "Backend",
			maxScore: 50,
			text:     "The plan looks reasonable but I cannot score it.",
			wantOK:   false,
		},
		{
			name:     "total for the wrong domain",
			domain:   "Backend",
			maxScore: 50,
			text:     "## Security Total: 40/50",
			wantOK:   false,
		},
		{
			name:     "wrong denominator",
			domain:   "Backend",
			maxScore: 50,
			text:     "## Backend Total: 30/40",
			wantOK:   false,
		},
		{
			name:      "multiple totals take the first",
			domain:    "Backend",
			maxScore:  50,
			text:      "## Backend Total: 41/50\nrevised:\n## Backend Total: 47/50",
			wantScore: 41,
			wantOK:    true,
		},
		{
			name:      "clamped above max",
			domain:    "Backend",
			maxScore:  50,
			text:      "## Backend Total: 63/50",
			wantScore: 50,
			wantOK:    true,
		},
		{
			name:     "empty text",
			domain:   "Backend",
			maxScore: 50,
			text:     "",
			wantOK:   false,
		},
		{
			name:      "custom max score",
			domain:    "Style",
			maxScore:  30,
			text:      "## Style Total: 21/30",
			wantScore: 21,
			wantOK:    true,
		},
		{
			name:     "fraction without Total keyword",
			domain:   "Backend",
			maxScore: 50,
			text:     "Backend score 45/50",
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, ok := ParseTotal(tt.domain, tt.maxScore, tt.text)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantScore, score)
			} else {
				assert.Zero(t, score, "unparseable output must score exactly 0")
			}
		})
	}
}

func TestParseTotalIdempotent(t *testing.T) {
	text := "## Backend Total: 45/50"
	first, ok1 := ParseTotal("Backend", 50, text)
	second, ok2 := ParseTotal("Backend", 50, text)
	assert.Equal(t, first, second)
	assert.Equal(t, ok1, ok2)
}

func TestExtractCriticalIssues(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		assert.Empty(t, ExtractCriticalIssues("all good\n## Backend Total: 50/50"))
	})

	t.Run("plain and bulleted", func(t *testing.T) {
		text := `The migration is missing an index.
CRITICAL: SQL interpolation in Post.search
Some more prose.
- CRITICAL: mass assignment of admin flag
* critical: params not filtered
`
		issues := ExtractCriticalIssues(text)
		assert.Equal(t, []string{
			"SQL interpolation in Post.search",
			"mass assignment of admin flag",
			"params not filtered",
		}, issues)
	})

	t.Run("mid-line mentions are ignored", func(t *testing.T) {
		issues := ExtractCriticalIssues("this is not a critical: issue marker")
		assert.Empty(t, issues)
	})
}
