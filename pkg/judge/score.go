package judge

import (
	"regexp"
	"strconv"
	"strings"
)

// criticalPattern matches judge-emitted critical issue lines, e.g.
// "CRITICAL: mass assignment of admin flag" or "- CRITICAL: ...".
var criticalPattern = regexp.MustCompile(`(?i)^\s*(?:[-*]\s*)?CRITICAL\s*:\s*(.+)$`)

// ParseTotal extracts a domain's declared total from free-text judge
// output. The rubric convention is a line containing the domain name
// followed by "Total:" and a fraction over maxScore, e.g.
// "## Backend Total: 45/50". Matching is case-insensitive; the first
// matching line wins; the value is clamped to [0, maxScore]. Returns
// (0, false) when no such line exists: unparseable judge output
// degrades to a zero score rather than erroring the run.
func ParseTotal(domain string, maxScore int, text string) (int, bool) {
	pattern := regexp.MustCompile(
		`(?i)\b` + regexp.QuoteMeta(domain) + `\b.*\bTotal\s*:\s*(\d+)\s*/\s*` + strconv.Itoa(maxScore) + `\b`,
	)

	for _, line := range strings.Split(text, "\n") {
		m := pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		score, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}

		if score < 0 {
			score = 0
		}
		if score > maxScore {
			score = maxScore
		}
		return score, true
	}

	return 0, false
}

// ExtractCriticalIssues returns the text of every critical issue line
// a judge flagged in its output.
func ExtractCriticalIssues(text string) []string {
	var issues []string
	for _, line := range strings.Split(text, "\n") {
		if m := criticalPattern.FindStringSubmatch(line); m != nil {
			issues = append(issues, strings.TrimSpace(m[1]))
		}
	}
	return issues
}
