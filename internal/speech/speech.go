// Package speech plays a short spoken clip for each gesture transition.
//
// Clips are synthesized and played on a background goroutine. At most one
// clip is in flight: requests arriving while a clip is playing are dropped,
// not queued.
package speech

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrEmptyText is returned when asked to synthesize an empty string.
var ErrEmptyText = errors.New("speech: empty text")

// Synthesizer turns text into encoded audio (MP3 or WAV bytes).
type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
}

// Player plays audio files. Play starts playback and returns; Busy reports
// whether the last started clip is still playing.
type Player interface {
	Load(path string) error
	Play() error
	Busy() bool
}

// Stage names the step of a feedback clip that failed.
type Stage string

const (
	StageSynthesize Stage = "synthesize"
	StagePersist    Stage = "persist"
	StageLoad       Stage = "load"
	StagePlay       Stage = "play"
	StageCleanup    Stage = "cleanup"
)

// Outcome is the result of one background clip. Err is nil on success, in
// which case Stage is empty.
type Outcome struct {
	JobID    string
	Text     string
	Stage    Stage
	Err      error
	Duration time.Duration
}

// OK reports whether the clip played to completion.
func (o Outcome) OK() bool {
	return o.Err == nil
}

func (o Outcome) String() string {
	if o.Err == nil {
		return "ok"
	}
	return fmt.Sprintf("%s: %v", o.Stage, o.Err)
}

func fail(stage Stage, err error) Outcome {
	return Outcome{Stage: stage, Err: err}
}
