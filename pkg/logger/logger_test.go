package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLoggerFallsBackToGlobal(t *testing.T) {
	ctx := context.Background()
	entry := GetLogger(ctx)
	require.NotNil(t, entry)
	assert.Equal(t, L.Logger, entry.Logger)
}

func TestWithLoggerRoundTrip(t *testing.T) {
	base := logrus.New()
	entry := logrus.NewEntry(base).WithField("scenario", "blog-crud")

	ctx := WithLogger(context.Background(), entry)
	got := GetLogger(ctx)

	require.NotNil(t, got)
	assert.Equal(t, base, got.Logger)
	assert.Equal(t, "blog-crud", got.Data["scenario"])
}

func TestSetLogLevel(t *testing.T) {
	require.NoError(t, SetLogLevel("debug"))
	assert.Equal(t, logrus.DebugLevel, L.Logger.GetLevel())

	require.NoError(t, SetLogLevel("info"))
	assert.Equal(t, logrus.InfoLevel, L.Logger.GetLevel())

	assert.Error(t, SetLogLevel("not-a-level"))
}

func TestSetLogFormatJSON(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	defer SetLogOutput(bytes.NewBuffer(nil))

	SetLogFormat("json")
	defer SetLogFormat("text")

	L.Info("hello")
	assert.Contains(t, buf.String(), `"message":"hello"`)
}
