package speech

import (
	"context"
	"os"
	"sync"
)

// SynthesizeCall records one Synthesize invocation.
type SynthesizeCall struct {
	Text string
	Lang string
}

// MockSynthesizer is a Synthesizer test double.
type MockSynthesizer struct {
	mu sync.Mutex

	// Audio is returned by Synthesize. Defaults to a few placeholder bytes.
	Audio []byte
	// Err, if set, is returned instead of audio.
	Err error
	// Block, if set, is waited on before returning, so a clip can be held
	// in flight.
	Block chan struct{}

	calls []SynthesizeCall
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, SynthesizeCall{Text: text, Lang: lang})
	block, audio, err := m.Block, m.Audio, m.Err
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if audio == nil {
		audio = []byte("ID3mock")
	}
	return audio, nil
}

// Calls returns a copy of the recorded calls.
func (m *MockSynthesizer) Calls() []SynthesizeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SynthesizeCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// MockPlayer is a Player test double. Each Play keeps Busy true for
// BusyPolls calls.
type MockPlayer struct {
	mu sync.Mutex

	LoadErr   error
	PlayErr   error
	BusyPolls int

	loaded    []string
	existed   []bool
	plays     int
	remaining int
}

func (p *MockPlayer) Load(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, statErr := os.Stat(path)
	p.loaded = append(p.loaded, path)
	p.existed = append(p.existed, statErr == nil)
	return p.LoadErr
}

func (p *MockPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.PlayErr != nil {
		return p.PlayErr
	}
	p.plays++
	p.remaining = p.BusyPolls
	return nil
}

func (p *MockPlayer) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.remaining > 0 {
		p.remaining--
		return true
	}
	return false
}

// Plays returns how many clips were started.
func (p *MockPlayer) Plays() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.plays
}

// Loaded returns the loaded paths and whether each file existed at load time.
func (p *MockPlayer) Loaded() ([]string, []bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.loaded...), append([]bool(nil), p.existed...)
}
