package integration

import (
	"os"
	"testing"
)

// TestMain runs setup and teardown for integration tests
func TestMain(m *testing.M) {
	code := m.Run()
	os.Exit(code)
}
