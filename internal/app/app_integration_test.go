package app

import (
	"context"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/speech"
)

func TestApp_Run_MockCamera(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()
	frames := []*gocv.Mat{&frame, &frame, &frame, &frame}
	cam := capture.NewMockCamera(frames, false)

	det := detector.NewMockDetector()
	det.SetHands([]detector.HandLandmarks{detector.OpenPalmLandmarks()})

	synth := &speech.MockSynthesizer{}
	player := &speech.MockPlayer{}
	fb := newTestFeedback(t, synth, player)

	a := newTestApp(t, Options{
		Camera:       cam,
		Detector:     det,
		Feedback:     fb,
		IdleFPS:      100,
		ActiveFPS:    100,
		EncodeFrames: true,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// The mock camera runs dry after four frames, which ends the loop.
	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	waitIdle(t, fb)

	if det.Calls() != 4 {
		t.Errorf("detector calls = %d, want 4", det.Calls())
	}
	if s := a.State(); s.Gesture != "Halo" || s.Frames != 4 {
		t.Errorf("state = %+v", s)
	}
	if len(synth.Calls()) != 1 || player.Plays() != 1 {
		t.Errorf("expected one clip, got %d syntheses and %d plays", len(synth.Calls()), player.Plays())
	}

	jpeg := a.Latest()
	if len(jpeg) < 2 || jpeg[0] != 0xFF || jpeg[1] != 0xD8 {
		t.Error("latest frame is not a JPEG")
	}
}

func TestApp_Run_Disabled(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cam, release := capture.NewBlankCamera(64, 48)
	defer release()
	det := detector.NewMockDetector()
	det.SetHands([]detector.HandLandmarks{detector.FistLandmarks()})

	a := newTestApp(t, Options{Camera: cam, Detector: det, IdleFPS: 200, ActiveFPS: 200})
	a.SetEnabled(false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for cam.Reads() < 5 {
		if time.Now().After(deadline) {
			t.Fatal("loop did not read frames")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if det.Calls() != 0 {
		t.Errorf("detector called %d times while disabled", det.Calls())
	}
	if g := a.State().Gesture; g != "" {
		t.Errorf("gesture = %q while disabled", g)
	}
}
