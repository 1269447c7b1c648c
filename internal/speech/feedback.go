package speech

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/observe"
)

// DefaultPollInterval is how often playback completion is checked.
const DefaultPollInterval = 100 * time.Millisecond

// Options configures a Feedback.
type Options struct {
	// PollInterval between Busy checks. Default DefaultPollInterval.
	PollInterval time.Duration

	// TempDir receives the synthesized clips. Default os.TempDir().
	TempDir string

	// Timeout bounds synthesis. Zero means no timeout.
	Timeout time.Duration

	// Lang is used when a descriptor has no language. Default gesture.DefaultLang.
	Lang string

	// Extension of the temp files, including the dot. Default ".mp3".
	Extension string

	Logger  *slog.Logger
	Metrics *observe.Metrics

	// OnOutcome, if set, is called from the worker goroutine after each clip.
	OnOutcome func(Outcome)
}

type job struct {
	ID   string
	Text string
	Lang string
	Path string
}

// Feedback is the single-flight spoken feedback worker.
type Feedback struct {
	synth  Synthesizer
	player Player
	opts   Options
	log    *slog.Logger

	catalog atomic.Pointer[gesture.Catalog]
	playing atomic.Bool
	muted   atomic.Bool

	files  *registry
	closed atomic.Bool
	wg     sync.WaitGroup
}

// New creates a Feedback that speaks descriptors from catalog.
func New(synth Synthesizer, player Player, catalog *gesture.Catalog, opts Options) *Feedback {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.Lang == "" {
		opts.Lang = gesture.DefaultLang
	}
	if opts.Extension == "" {
		opts.Extension = ".mp3"
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	f := &Feedback{
		synth:  synth,
		player: player,
		opts:   opts,
		log:    log.With("component", "speech"),
		files:  newRegistry(),
	}
	f.catalog.Store(catalog)
	return f
}

// UseCatalog swaps the catalog used to resolve transition targets.
func (f *Feedback) UseCatalog(c *gesture.Catalog) {
	f.catalog.Store(c)
}

// SetMuted enables or disables speaking. A clip already in flight finishes.
func (f *Feedback) SetMuted(muted bool) {
	f.muted.Store(muted)
}

// Muted reports whether speaking is disabled.
func (f *Feedback) Muted() bool {
	return f.muted.Load()
}

// Playing reports whether a clip is in flight.
func (f *Feedback) Playing() bool {
	return f.playing.Load()
}

// Notify speaks the descriptor of the transition's target gesture. A
// transition to no gesture, or to a gesture without spoken text, is ignored.
// It never blocks on synthesis or playback.
func (f *Feedback) Notify(t gesture.Transition) bool {
	if t.To == "" {
		return false
	}
	c := f.catalog.Load()
	if c == nil {
		return false
	}
	d := c.Descriptor(t.To)
	if d == nil || d.Speech == "" {
		return false
	}
	return f.Speak(d.Speech, d.Lang)
}

// Speak starts a background clip for text unless one is already in flight.
// It reports whether a clip was started.
func (f *Feedback) Speak(text, lang string) bool {
	ctx := context.Background()
	if text == "" || f.closed.Load() {
		return false
	}
	if f.muted.Load() {
		f.opts.Metrics.RecordSpeechRequest(ctx, "muted")
		return false
	}
	if !f.playing.CompareAndSwap(false, true) {
		f.opts.Metrics.RecordSpeechRequest(ctx, "dropped")
		f.log.Debug("speech busy, dropping clip", "text", text)
		return false
	}
	if lang == "" {
		lang = f.opts.Lang
	}

	f.opts.Metrics.RecordSpeechRequest(ctx, "started")
	j := job{ID: uuid.NewString(), Text: text, Lang: lang}

	f.wg.Add(1)
	go f.run(j)
	return true
}

func (f *Feedback) run(j job) {
	ctx := context.Background()
	defer f.wg.Done()
	defer f.playing.Store(false)

	f.opts.Metrics.SpeechStarted(ctx)
	defer f.opts.Metrics.SpeechFinished(ctx)

	start := time.Now()
	out := f.play(ctx, &j)
	out.JobID = j.ID
	out.Text = j.Text
	out.Duration = time.Since(start)

	if j.Path != "" {
		if err := f.files.remove(j.Path); err != nil {
			f.log.Warn("temp audio not removed", "job", j.ID, "path", j.Path, "err", err)
			f.opts.Metrics.RecordSpeechFailure(ctx, string(StageCleanup))
			if out.OK() {
				out = Outcome{JobID: j.ID, Text: j.Text, Stage: StageCleanup, Err: err, Duration: out.Duration}
			}
		}
	}

	if out.OK() {
		f.log.Debug("clip played", "job", j.ID, "text", j.Text, "duration", out.Duration)
	} else if out.Stage != StageCleanup {
		f.log.Warn("clip failed", "job", j.ID, "stage", out.Stage, "err", out.Err)
		f.opts.Metrics.RecordSpeechFailure(ctx, string(out.Stage))
	}

	if f.opts.OnOutcome != nil {
		f.opts.OnOutcome(out)
	}
}

// play runs one clip through synthesis, persistence and playback. j.Path is
// set once the temp file exists so the caller can remove it.
func (f *Feedback) play(ctx context.Context, j *job) Outcome {
	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	synthStart := time.Now()
	audio, err := f.synth.Synthesize(ctx, j.Text, j.Lang)
	if err != nil {
		return fail(StageSynthesize, err)
	}
	if len(audio) == 0 {
		return fail(StageSynthesize, errors.New("synthesizer returned no audio"))
	}
	f.opts.Metrics.RecordSynthesis(ctx, time.Since(synthStart))

	path, err := f.files.write(f.opts.TempDir, "mudra-"+j.ID+f.opts.Extension, audio)
	if err != nil {
		return fail(StagePersist, err)
	}
	j.Path = path

	if err := f.player.Load(path); err != nil {
		return fail(StageLoad, err)
	}
	playStart := time.Now()
	if err := f.player.Play(); err != nil {
		return fail(StagePlay, err)
	}

	ticker := time.NewTicker(f.opts.PollInterval)
	defer ticker.Stop()
	for f.player.Busy() {
		<-ticker.C
	}
	f.opts.Metrics.RecordPlayback(ctx, time.Since(playStart))
	return Outcome{}
}

// Wait blocks until the in-flight clip, if any, has finished or ctx is done.
func (f *Feedback) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TempFiles lists the clips currently on disk.
func (f *Feedback) TempFiles() []string {
	return f.files.paths()
}

// Shutdown deletes every temp clip still on disk and refuses new ones. An
// in-flight clip is not interrupted. It is safe to call more than once;
// each call retries files a previous call could not delete.
func (f *Feedback) Shutdown() error {
	f.closed.Store(true)
	err := f.files.close()
	if err != nil {
		f.log.Warn("temp audio cleanup", "err", err)
	}
	return err
}
