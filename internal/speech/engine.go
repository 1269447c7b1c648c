package speech

import (
	"fmt"
	"time"
)

// Engine names accepted by NewSynthesizer.
const (
	EngineGTTS    = "gtts"
	EngineCommand = "command"
)

// NewSynthesizer builds the synthesizer for engine. baseURL applies to gtts,
// command to the command engine.
func NewSynthesizer(engine, baseURL, command string, timeout time.Duration) (Synthesizer, error) {
	switch engine {
	case "", EngineGTTS:
		var opts []GTTSOption
		if baseURL != "" {
			opts = append(opts, WithBaseURL(baseURL))
		}
		if timeout > 0 {
			opts = append(opts, WithRequestTimeout(timeout))
		}
		return NewGTTS(opts...), nil
	case EngineCommand:
		return NewCommandSynthesizer(command, timeout)
	default:
		return nil, fmt.Errorf("speech: unknown engine %q", engine)
	}
}
