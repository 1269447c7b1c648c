// Package app wires the camera, classifier, dialog and spoken feedback into
// the gesture feedback loop.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/dialog"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/observe"
	"github.com/ayusman/mudra/internal/speech"
	"github.com/ayusman/mudra/internal/store"
)

// Options configures an App. Camera and Detector are required to Run;
// ProcessHands works without them.
type Options struct {
	Camera   capture.Camera
	Detector detector.Detector
	// Feedback speaks transitions. Nil disables audio.
	Feedback *speech.Feedback

	// Catalog sources, tried in order: CatalogFile, Store, built-in.
	CatalogFile string
	Store       *store.Store

	PinchTolerance  float64
	TypingSpeed     time.Duration
	IdleFPS         int
	ActiveFPS       int
	MotionThreshold float64

	// Window shows the annotated preview in a desktop window.
	Window bool
	// EncodeFrames keeps a JPEG of the latest annotated frame for Latest.
	EncodeFrames bool

	Logger  *slog.Logger
	Metrics *observe.Metrics
}

// Snapshot is the externally visible loop state.
type Snapshot struct {
	Gesture  string       `json:"gesture"`
	View     *dialog.View `json:"view,omitempty"`
	Hands    int          `json:"hands"`
	Speaking bool         `json:"speaking"`
	Muted    bool         `json:"muted"`
	Enabled  bool         `json:"enabled"`
	FPS      int          `json:"fps"`
	Frames   uint64       `json:"frames"`
}

type ruleSet struct {
	catalog    *gesture.Catalog
	classifier *gesture.Classifier
}

// App owns the per-frame state. The classifier, tracker and dialog engine are
// touched only by the frame loop; everything else is safe for concurrent use.
type App struct {
	opts     Options
	logger   *slog.Logger
	metrics  *observe.Metrics
	feedback *speech.Feedback

	rules   atomic.Pointer[ruleSet]
	tracker *gesture.Tracker
	dialog  *dialog.Engine
	motion  *capture.MotionDetector
	pacer   *capture.Pacer
	enabled atomic.Bool

	mu        sync.RWMutex
	snap      Snapshot
	jpeg      []byte
	listeners []func(gesture.Transition)
}

// New creates an App and loads its catalog.
func New(opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PinchTolerance <= 0 {
		opts.PinchTolerance = gesture.DefaultPinchTolerance
	}

	a := &App{
		opts:     opts,
		logger:   logger,
		metrics:  opts.Metrics,
		feedback: opts.Feedback,
		tracker:  gesture.NewTracker(),
		dialog:   dialog.New(opts.TypingSpeed),
		pacer:    capture.NewPacer(opts.IdleFPS, opts.ActiveFPS, capture.DefaultIdleTimeout),
	}

	enabled := true
	if opts.Store != nil {
		settings := opts.Store.Settings()
		enabled = settings.Bool(store.SettingEnabled, true)
		if a.feedback != nil {
			a.feedback.SetMuted(settings.Bool(store.SettingMuted, false))
		}
	}
	a.enabled.Store(enabled)

	if err := a.LoadCatalog(); err != nil {
		return nil, err
	}
	return a, nil
}

// LoadCatalog (re)reads the gesture catalog from the configured source and
// swaps it in. The frame loop picks it up on its next frame.
func (a *App) LoadCatalog() error {
	c, source, err := a.readCatalog()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	a.UseCatalog(c)
	a.logger.Info("gesture catalog loaded", "source", source, "gestures", c.Len())
	return nil
}

func (a *App) readCatalog() (*gesture.Catalog, string, error) {
	switch {
	case a.opts.CatalogFile != "":
		c, err := gesture.LoadCatalogFile(a.opts.CatalogFile)
		return c, a.opts.CatalogFile, err
	case a.opts.Store != nil:
		repo := a.opts.Store.Gestures()
		n, err := repo.Seed(gesture.DefaultEntries())
		if err != nil {
			return nil, "", fmt.Errorf("seed defaults: %w", err)
		}
		if n > 0 {
			a.logger.Info("seeded default gestures", "count", n)
		}
		c, err := repo.Catalog()
		return c, a.opts.Store.Path(), err
	default:
		return gesture.DefaultCatalog(), "built-in", nil
	}
}

// UseCatalog installs c for classification and speech.
func (a *App) UseCatalog(c *gesture.Catalog) {
	a.rules.Store(&ruleSet{
		catalog:    c,
		classifier: gesture.NewClassifier(c, a.opts.PinchTolerance),
	})
	if a.feedback != nil {
		a.feedback.UseCatalog(c)
	}
}

// Catalog returns the catalog in use.
func (a *App) Catalog() *gesture.Catalog {
	return a.rules.Load().catalog
}

// OnTransition registers fn to be called from the frame loop for every
// gesture transition. fn must not block.
func (a *App) OnTransition(fn func(gesture.Transition)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// SetEnabled turns hand detection on or off. While disabled every frame is
// treated as showing no hands.
func (a *App) SetEnabled(enabled bool) {
	a.enabled.Store(enabled)
	a.persist(store.SettingEnabled, enabled)
	a.logger.Info("detection toggled", "enabled", enabled)
}

// Enabled reports whether hand detection is on.
func (a *App) Enabled() bool {
	return a.enabled.Load()
}

// SetMuted silences or restores spoken feedback.
func (a *App) SetMuted(muted bool) {
	if a.feedback == nil {
		return
	}
	a.feedback.SetMuted(muted)
	a.persist(store.SettingMuted, muted)
	a.logger.Info("speech toggled", "muted", muted)
}

// Muted reports whether spoken feedback is silenced. Without audio it is
// always muted.
func (a *App) Muted() bool {
	return a.feedback == nil || a.feedback.Muted()
}

func (a *App) persist(key string, value bool) {
	if a.opts.Store == nil {
		return
	}
	if err := a.opts.Store.Settings().SetBool(key, value); err != nil {
		a.logger.Warn("failed to persist setting", "key", key, "error", err)
	}
}

// State returns a copy of the latest loop state.
func (a *App) State() Snapshot {
	a.mu.RLock()
	s := a.snap
	a.mu.RUnlock()

	if s.View != nil {
		v := *s.View
		s.View = &v
	}
	s.Enabled = a.Enabled()
	s.Muted = a.Muted()
	s.Speaking = a.feedback != nil && a.feedback.Playing()
	return s
}

// Latest returns the most recent annotated frame as JPEG, or nil before the
// first frame or when EncodeFrames is off.
func (a *App) Latest() []byte {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.jpeg
}

// Close stops audio, removes temp clips and releases the detector.
func (a *App) Close() error {
	var errs []error
	if a.feedback != nil {
		if err := a.feedback.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("speech shutdown: %w", err))
		}
	}
	if a.opts.Detector != nil {
		if err := a.opts.Detector.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close detector: %w", err))
		}
	}
	return errors.Join(errs...)
}
