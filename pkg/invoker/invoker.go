// Package invoker shells out to an external LLM CLI. The CLI is an
// opaque black box: a system prompt goes in via a flag, the user
// prompt via stdin, and the completion comes back on stdout. Both the
// agent under evaluation and every judge go through the same Invoker
// so that subprocess failures share one error-handling path, and tests
// can substitute a stub.
package invoker

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/pkg/errors"

	"github.com/skillbench/skillbench/pkg/logger"
)

// ErrEmptyOutput indicates the LLM CLI exited successfully but produced
// no output. Treated as an infrastructure error, never a scored FAIL.
var ErrEmptyOutput = errors.New("LLM CLI produced empty output")

// InvocationError is an infrastructure failure of the LLM CLI
// subprocess, distinct from a scored FAIL.
type InvocationError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *InvocationError) Error() string {
	msg := errors.Wrapf(e.Err, "LLM CLI '%s' failed (exit code %d)", e.Command, e.ExitCode).Error()
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// Invoker is the single synchronous function boundary around the LLM.
type Invoker interface {
	Invoke(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// RetryConfig controls retries of failed CLI invocations. The default
// of one attempt means no retry: retrying transient failures is an
// explicit, configured decision, never a silent one.
type RetryConfig struct {
	Attempts     uint   // total attempts, minimum 1
	InitialDelay int    // milliseconds
	MaxDelay     int    // milliseconds
	BackoffType  string // "fixed" or "exponential"
}

// Config describes how to run the LLM CLI.
type Config struct {
	Command    string   // CLI binary, e.g. "claude"
	Args       []string // fixed leading arguments
	SystemFlag string   // flag carrying the system prompt
	Retry      RetryConfig
}

// DefaultConfig returns the default CLI configuration.
func DefaultConfig() Config {
	return Config{
		Command:    "claude",
		Args:       []string{"-p"},
		SystemFlag: "--append-system-prompt",
		Retry: RetryConfig{
			Attempts:     1,
			InitialDelay: 500,
			MaxDelay:     5000,
			BackoffType:  "exponential",
		},
	}
}

// CLIInvoker runs the configured LLM CLI as a blocking subprocess.
type CLIInvoker struct {
	config Config
}

// NewCLIInvoker creates an invoker for the given CLI configuration.
func NewCLIInvoker(config Config) *CLIInvoker {
	if config.Retry.Attempts == 0 {
		config.Retry.Attempts = 1
	}
	return &CLIInvoker{config: config}
}

// Invoke runs the CLI once per the retry policy and returns its stdout.
// It blocks until the subprocess exits; there is no timeout beyond the
// caller's context.
func (c *CLIInvoker) Invoke(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var output string

	var delayType retry.DelayTypeFunc
	switch c.config.Retry.BackoffType {
	case "fixed":
		delayType = retry.FixedDelay
	default:
		delayType = retry.BackOffDelay
	}

	err := retry.Do(
		func() error {
			var attemptErr error
			output, attemptErr = c.invokeOnce(ctx, systemPrompt, userPrompt)
			return attemptErr
		},
		retry.Attempts(c.config.Retry.Attempts),
		retry.Delay(time.Duration(c.config.Retry.InitialDelay)*time.Millisecond),
		retry.MaxDelay(time.Duration(c.config.Retry.MaxDelay)*time.Millisecond),
		retry.DelayType(delayType),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).WithField("max_attempts", c.config.Retry.Attempts).Warn("retrying LLM CLI invocation")
		}),
	)

	return output, err
}

func (c *CLIInvoker) invokeOnce(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	args := make([]string, 0, len(c.config.Args)+2)
	args = append(args, c.config.Args...)
	if systemPrompt != "" && c.config.SystemFlag != "" {
		args = append(args, c.config.SystemFlag, systemPrompt)
	}

	cmd := exec.CommandContext(ctx, c.config.Command, args...)
	cmd.Stdin = strings.NewReader(userPrompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.G(ctx).WithField("command", c.config.Command).Debug("Invoking LLM CLI")
	start := time.Now()
	err := cmd.Run()
	logger.G(ctx).WithField("duration", time.Since(start)).Debug("LLM CLI returned")

	if err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return "", &InvocationError{
			Command:  c.config.Command,
			ExitCode: exitCode,
			Stderr:   stderr.String(),
			Err:      err,
		}
	}

	output := stdout.String()
	if strings.TrimSpace(output) == "" {
		return "", &InvocationError{
			Command:  c.config.Command,
			ExitCode: 0,
			Stderr:   stderr.String(),
			Err:      ErrEmptyOutput,
		}
	}

	return output, nil
}
