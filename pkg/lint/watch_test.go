package lint

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchRelintsOnChange(t *testing.T) {
	root := t.TempDir()
	writeCleanTree(t, root)
	cfg := testConfig(root)

	reports := make(chan *Report, 8)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, cfg, 50*time.Millisecond, func(r *Report) {
			reports <- r
		})
	}()

	// Initial pass is clean.
	initial := waitReport(t, reports)
	assert.True(t, initial.OK(), "issues: %v", initial.Issues)

	// Breaking a file triggers a re-lint that reports the issue.
	skillPath := filepath.Join(root, "skills", "rails-models", "SKILL.md")
	require.NoError(t, os.WriteFile(skillPath, []byte("no frontmatter\n"), 0o644))

	broken := waitReport(t, reports)
	assert.False(t, broken.OK())

	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
}

func waitReport(t *testing.T, reports <-chan *Report) *Report {
	t.Helper()
	select {
	case r := <-reports:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a lint report")
		return nil
	}
}
