package gitinfo

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeOutsideRepository(t *testing.T) {
	info := Describe(context.Background(), t.TempDir())
	assert.Equal(t, Unknown, info.Revision)
	assert.Equal(t, Unknown, info.Branch)
}

func TestDescribeInsideRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		require.NoError(t, cmd.Run(), "git %v", args)
	}

	run("init", "-b", "main")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "Test")
	run("commit", "--allow-empty", "-m", "initial")

	info := Describe(context.Background(), dir)
	assert.NotEqual(t, Unknown, info.Revision)
	assert.Equal(t, "main", info.Branch)
}
