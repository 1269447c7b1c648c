package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/dialog"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/overlay"
)

// maxReadFailures is how many consecutive failed camera reads end the loop.
const maxReadFailures = 50

// WindowTitle names the preview window.
const WindowTitle = "mudra"

// errQuit is returned by step when the user closes the preview.
var errQuit = errors.New("quit requested")

// FrameResult is the outcome of processing one frame's hands.
type FrameResult struct {
	Gesture    string
	Transition gesture.Transition
	Changed    bool
	View       dialog.View
	Visible    bool
}

// ProcessHands runs classification, debouncing, spoken feedback and the
// dialog animation for one frame. It must only be called from one goroutine
// at a time; Run does so for every captured frame.
func (a *App) ProcessHands(ctx context.Context, hands []detector.HandLandmarks, now time.Time) FrameResult {
	rules := a.rules.Load()
	id := rules.classifier.Classify(hands)

	res := FrameResult{Gesture: id}
	if t, ok := a.tracker.Observe(id); ok {
		res.Transition, res.Changed = t, true
		a.metrics.RecordTransition(ctx, t.To)
		a.logger.Info("gesture changed", "from", t.From, "to", t.To)
		if a.feedback != nil {
			a.feedback.Notify(t)
		}
		a.emit(t)
	}

	res.View, res.Visible = a.dialog.Render(rules.catalog.Descriptor(id), now)

	a.mu.Lock()
	a.snap.Gesture = id
	a.snap.Hands = len(hands)
	a.snap.Frames++
	a.snap.FPS = a.pacer.FPS()
	if res.Visible {
		v := res.View
		a.snap.View = &v
	} else {
		a.snap.View = nil
	}
	a.mu.Unlock()

	return res
}

func (a *App) emit(t gesture.Transition) {
	a.mu.RLock()
	listeners := a.listeners
	a.mu.RUnlock()

	for _, fn := range listeners {
		fn(t)
	}
}

// Run captures frames until ctx is cancelled, the camera runs dry, or the
// preview window is closed with q or Esc. The frame rate follows scene
// activity.
func (a *App) Run(ctx context.Context) error {
	if a.opts.Camera == nil || a.opts.Detector == nil {
		return errors.New("app: camera and detector are required")
	}
	cam := a.opts.Camera
	if err := cam.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer cam.Close()

	motion := capture.NewMotionDetector(a.opts.MotionThreshold)
	defer motion.Close()

	var window *gocv.Window
	if a.opts.Window {
		window = gocv.NewWindow(WindowTitle)
		defer window.Close()
	}

	cam.SetFPS(a.pacer.FPS())
	interval := a.pacer.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.logger.Info("frame loop started", "fps", a.pacer.FPS(), "window", a.opts.Window)
	defer a.logger.Info("frame loop stopped")

	failures := 0
	for {
		var now time.Time
		select {
		case <-ctx.Done():
			return nil
		case now = <-ticker.C:
		}

		err := a.step(ctx, cam, motion, window, now)
		switch {
		case err == nil:
			failures = 0
		case errors.Is(err, errQuit), errors.Is(err, capture.ErrNoMoreFrames):
			return nil
		default:
			failures++
			a.logger.Warn("frame failed", "error", err, "consecutive", failures)
			if failures >= maxReadFailures {
				return fmt.Errorf("camera: %d consecutive failures: %w", failures, err)
			}
		}

		if next := a.pacer.Interval(); next != interval {
			interval = next
			ticker.Reset(interval)
			cam.SetFPS(a.pacer.FPS())
			a.logger.Debug("frame rate changed", "fps", a.pacer.FPS())
		}
	}
}

// step processes one captured frame.
func (a *App) step(ctx context.Context, cam capture.Camera, motion *capture.MotionDetector, window *gocv.Window, now time.Time) error {
	frame, err := cam.ReadFrame()
	if err != nil {
		return err
	}
	defer frame.Close()
	start := time.Now()

	moved, _ := motion.Detect(frame)
	a.pacer.Observe(moved, now)

	var hands []detector.HandLandmarks
	if a.Enabled() {
		hands, err = a.opts.Detector.Detect(frame)
		if err != nil {
			a.logger.Warn("hand detection failed", "error", err)
			hands = nil
		}
	}

	res := a.ProcessHands(ctx, hands, now)

	overlay.DrawHands(frame, hands)
	if res.Visible {
		overlay.Draw(frame, res.View)
	}
	if a.opts.EncodeFrames {
		a.storeJPEG(frame)
	}
	a.metrics.RecordFrame(ctx, len(hands), time.Since(start))

	if window != nil {
		window.IMShow(*frame)
		if key := window.WaitKey(1); key == 'q' || key == 27 {
			return errQuit
		}
	}
	return nil
}

func (a *App) storeJPEG(frame *gocv.Mat) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		a.logger.Debug("jpeg encode failed", "error", err)
		return
	}
	defer buf.Close()

	data := append([]byte(nil), buf.GetBytes()...)
	a.mu.Lock()
	a.jpeg = data
	a.mu.Unlock()
}
