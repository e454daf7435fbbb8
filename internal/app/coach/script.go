package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/learnquest/learnquest/internal/domain"
)

// UnparsableSuggestion replaces script output that is not JSON.
const UnparsableSuggestion = "Focus on your weakest subject today!"

// ScriptCoach runs an external coach program per request:
//
//	<interpreter> <script> analyze|daily_suggestion <request-json>
//
// The program prints one JSON object on stdout. A non-zero exit is an
// error carrying the tail of stderr. When ctx ends the whole process
// group is killed.
type ScriptCoach struct {
	Interpreter string
	Script      string
}

// NewScriptCoach creates a script backend.
func NewScriptCoach(interpreter, script string) *ScriptCoach {
	return &ScriptCoach{Interpreter: interpreter, Script: script}
}

// Analyze implements domain.Coach.
func (c *ScriptCoach) Analyze(ctx context.Context, req domain.CoachRequest) (*domain.CoachingReport, error) {
	out, err := c.run(ctx, opAnalyze, req)
	if err != nil {
		return nil, err
	}
	var report domain.CoachingReport
	if err := json.Unmarshal(out, &report); err != nil {
		return nil, fmt.Errorf("%w: %v: %s", domain.ErrCoachOutput, err, truncate(string(out), 200))
	}
	return &report, nil
}

// DailySuggestion implements domain.Coach.
func (c *ScriptCoach) DailySuggestion(ctx context.Context, req domain.CoachRequest) (*domain.Suggestion, error) {
	out, err := c.run(ctx, opSuggestion, req)
	if err != nil {
		return nil, err
	}
	var sug domain.Suggestion
	if err := json.Unmarshal(out, &sug); err != nil {
		return &domain.Suggestion{Success: true, Suggestion: UnparsableSuggestion}, nil
	}
	return &sug, nil
}

// Check verifies the interpreter and script can be found.
func (c *ScriptCoach) Check(_ context.Context) error {
	if _, err := exec.LookPath(c.Interpreter); err != nil {
		return fmt.Errorf("%w: interpreter %q: %v", domain.ErrCoachUnavailable, c.Interpreter, err)
	}
	if c.Script != "" {
		if _, err := os.Stat(c.Script); err != nil {
			return fmt.Errorf("%w: script: %v", domain.ErrCoachUnavailable, err)
		}
	}
	return nil
}

func (c *ScriptCoach) run(ctx context.Context, command string, req domain.CoachRequest) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal coach request: %w", err)
	}

	var args []string
	if c.Script != "" {
		args = append(args, c.Script)
	}
	args = append(args, command, string(payload))

	var stdout bytes.Buffer
	stderr := &limitedBuffer{max: 8192}

	cmd := exec.CommandContext(ctx, c.Interpreter, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = 2 * time.Second
	configureProcess(cmd)

	err = cmd.Run()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrCoachTimeout, c.Interpreter, command, ctx.Err())
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: coach process failed (exit %d): %s",
				domain.ErrCoachUnavailable, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("%w: start coach process: %v", domain.ErrCoachUnavailable, err)
	}
	return bytes.TrimSpace(stdout.Bytes()), nil
}

// limitedBuffer is a thread-safe buffer that keeps only the last N bytes.
type limitedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := b.buf.Write(p)
	if b.buf.Len() > b.max {
		data := b.buf.Bytes()
		b.buf.Reset()
		b.buf.Write(data[len(data)-b.max:])
	}
	return n, err
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
