package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandSynthesizer runs an external program that writes audio to stdout,
// such as espeak-ng or piper. The placeholders {text} and {lang} in the
// arguments are replaced per call.
type CommandSynthesizer struct {
	name    string
	args    []string
	timeout time.Duration
}

// NewCommandSynthesizer parses a command line like
// "espeak-ng --stdout -v {lang} {text}". A zero timeout means none.
func NewCommandSynthesizer(command string, timeout time.Duration) (*CommandSynthesizer, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, errors.New("speech: empty synthesizer command")
	}
	return &CommandSynthesizer{
		name:    fields[0],
		args:    fields[1:],
		timeout: timeout,
	}, nil
}

// Synthesize implements Synthesizer. If no argument carries {text}, the text
// is written to the program's stdin instead.
func (c *CommandSynthesizer) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := make([]string, len(c.args))
	textInArgs := false
	for i, a := range c.args {
		if strings.Contains(a, "{text}") {
			textInArgs = true
		}
		a = strings.ReplaceAll(a, "{text}", text)
		args[i] = strings.ReplaceAll(a, "{lang}", lang)
	}

	cmd := exec.CommandContext(ctx, c.name, args...)
	if !textInArgs {
		cmd.Stdin = strings.NewReader(text)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("synthesizer %s: %w", c.name, ctx.Err())
	}
	if err != nil {
		if s := strings.TrimSpace(stderr.String()); s != "" {
			return nil, fmt.Errorf("synthesizer %s failed: %w, stderr: %s", c.name, err, s)
		}
		return nil, fmt.Errorf("synthesizer %s failed: %w", c.name, err)
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("synthesizer %s produced no audio", c.name)
	}
	return stdout.Bytes(), nil
}
