package speech

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// ErrNoPlayer is returned when no audio player program can be found.
var ErrNoPlayer = errors.New("speech: no audio player found (install ffplay, mpg123 or mpv)")

// playerCandidates are tried in order when no player is configured.
var playerCandidates = []string{
	"ffplay -nodisp -autoexit -loglevel quiet {file}",
	"mpg123 -q {file}",
	"mpv --no-video --really-quiet {file}",
	"afplay {file}",
}

// ExecPlayer plays files with an external program. Busy is true while the
// program runs.
type ExecPlayer struct {
	name string
	args []string

	mu   sync.Mutex
	path string
	cmd  *exec.Cmd
	done chan struct{}
}

// NewExecPlayer parses a command line like "mpg123 -q {file}". When {file}
// is absent the path is appended. An empty command auto-detects a player.
func NewExecPlayer(command string) (*ExecPlayer, error) {
	if strings.TrimSpace(command) == "" {
		var err error
		if command, err = DetectPlayer(); err != nil {
			return nil, err
		}
	}
	fields := strings.Fields(command)
	return &ExecPlayer{name: fields[0], args: fields[1:]}, nil
}

// DetectPlayer returns the first known player command found on PATH.
func DetectPlayer() (string, error) {
	for _, c := range playerCandidates {
		name, _, _ := strings.Cut(c, " ")
		if _, err := exec.LookPath(name); err == nil {
			return c, nil
		}
	}
	return "", ErrNoPlayer
}

// Load implements Player.
func (p *ExecPlayer) Load(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("load audio: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.path = path
	return nil
}

// Play implements Player. It starts the player program and returns.
func (p *ExecPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.path == "" {
		return errors.New("play: nothing loaded")
	}
	if p.busyLocked() {
		return errors.New("play: already playing")
	}

	args := make([]string, 0, len(p.args)+1)
	placed := false
	for _, a := range p.args {
		if strings.Contains(a, "{file}") {
			placed = true
			a = strings.ReplaceAll(a, "{file}", p.path)
		}
		args = append(args, a)
	}
	if !placed {
		args = append(args, p.path)
	}

	cmd := exec.Command(p.name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.name, err)
	}

	done := make(chan struct{})
	p.cmd = cmd
	p.done = done
	go func() {
		if err := cmd.Wait(); err != nil {
			slog.Warn("audio player exited", "player", p.name, "err", err)
		}
		close(done)
	}()
	return nil
}

// Busy implements Player.
func (p *ExecPlayer) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.busyLocked()
}

func (p *ExecPlayer) busyLocked() bool {
	if p.done == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Close stops a running player program.
func (p *ExecPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.busyLocked() && p.cmd.Process != nil {
		return p.cmd.Process.Kill()
	}
	return nil
}

// String returns the player command.
func (p *ExecPlayer) String() string {
	return strings.TrimSpace(p.name + " " + strings.Join(p.args, " "))
}
