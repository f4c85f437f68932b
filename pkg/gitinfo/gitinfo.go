// Package gitinfo captures the source-control state of a run so that
// log entries can be traced back to the skill/agent content that was
// evaluated. Lookup failures are non-fatal: an unavailable repository
// degrades to "unknown" rather than failing the run.
package gitinfo

import (
	"context"
	"os/exec"
	"strings"

	"github.com/skillbench/skillbench/pkg/logger"
)

// Unknown is recorded when the version-control query fails.
const Unknown = "unknown"

// Info identifies the source revision a run was executed against.
type Info struct {
	Revision string
	Branch   string
}

// Describe returns the short revision hash and branch name of the git
// repository containing dir. It never fails; unavailable information is
// reported as Unknown.
func Describe(ctx context.Context, dir string) Info {
	return Info{
		Revision: gitQuery(ctx, dir, "rev-parse", "--short", "HEAD"),
		Branch:   gitQuery(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD"),
	}
}

func gitQuery(ctx context.Context, dir string, args ...string) string {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	output, err := cmd.Output()
	if err != nil {
		logger.G(ctx).WithError(err).WithField("args", args).Debug("git query failed")
		return Unknown
	}

	value := strings.TrimSpace(string(output))
	if value == "" {
		return Unknown
	}
	return value
}
