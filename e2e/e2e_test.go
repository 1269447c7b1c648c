package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/speech"
	"github.com/ayusman/mudra/internal/store"
)

// TestE2E_OpenHand shows one open hand on two consecutive frames: the first
// frame announces Halo once, the second is silent.
func TestE2E_OpenHand(t *testing.T) {
	synth := &speech.MockSynthesizer{}
	player := &speech.MockPlayer{BusyPolls: 2}
	tmp := t.TempDir()
	fb := speech.New(synth, player, nil, speech.Options{PollInterval: time.Millisecond, TempDir: tmp})

	a, err := app.New(app.Options{Feedback: fb, TypingSpeed: 30 * time.Millisecond})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}

	var events []gesture.Transition
	a.OnTransition(func(tr gesture.Transition) { events = append(events, tr) })

	ctx := context.Background()
	start := time.Unix(0, 0)
	hand := []detector.HandLandmarks{detector.OpenPalmLandmarks()}

	first := a.ProcessHands(ctx, hand, start)
	second := a.ProcessHands(ctx, hand, start.Add(30*time.Millisecond))

	if first.Gesture != "Halo" || !first.Changed {
		t.Errorf("first frame = %+v", first)
	}
	if second.Gesture != "Halo" || second.Changed {
		t.Errorf("second frame = %+v", second)
	}
	if len(events) != 1 || events[0] != (gesture.Transition{From: "", To: "Halo"}) {
		t.Errorf("events = %v", events)
	}
	if !second.Visible || second.View.Title != "five fingers" || second.View.Text != "H" {
		t.Errorf("dialog = %+v", second.View)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := fb.Wait(waitCtx); err != nil {
		t.Fatalf("clip did not finish: %v", err)
	}
	if calls := synth.Calls(); len(calls) != 1 || calls[0].Text != "Haloo!" || calls[0].Lang != "id" {
		t.Errorf("synthesis calls = %+v", calls)
	}
	if player.Plays() != 1 {
		t.Errorf("plays = %d, want 1", player.Plays())
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if entries, _ := os.ReadDir(tmp); len(entries) != 0 {
		t.Errorf("temp files left after shutdown: %d", len(entries))
	}
}

// TestE2E_CameraToClients runs the full loop on a mock camera with the HTTP
// server and websocket clients attached.
func TestE2E_CameraToClients(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()
	cam := capture.NewMockCamera([]*gocv.Mat{&frame, &frame}, false)

	det := detector.NewMockDetector()
	det.SetHands([]detector.HandLandmarks{detector.OpenPalmLandmarks()})

	synth := &speech.MockSynthesizer{}
	player := &speech.MockPlayer{}
	fb := speech.New(synth, player, nil, speech.Options{
		PollInterval: time.Millisecond,
		TempDir:      t.TempDir(),
	})

	application, err := app.New(app.Options{
		Camera:       cam,
		Detector:     det,
		Feedback:     fb,
		Store:        s,
		IdleFPS:      50,
		ActiveFPS:    50,
		EncodeFrames: true,
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	defer application.Close()

	hub := server.NewHub()
	defer hub.Close()
	application.OnTransition(hub.Publish)

	ts := httptest.NewServer(server.New(server.Config{Store: s, Runtime: application, Events: hub}))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	deadline := time.Now().Add(5 * time.Second)
	for hub.Clients() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := application.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := fb.Wait(ctx); err != nil {
		t.Fatalf("clip did not finish: %v", err)
	}

	t.Run("one event", func(t *testing.T) {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var ev server.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read event: %v", err)
		}
		if ev.From != "" || ev.To != "Halo" {
			t.Errorf("event = %+v", ev)
		}

		conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		_, _, err := conn.ReadMessage()
		var ne net.Error
		if !errors.As(err, &ne) || !ne.Timeout() {
			t.Errorf("expected no second event, got err = %v", err)
		}
	})

	t.Run("one clip", func(t *testing.T) {
		if len(synth.Calls()) != 1 || player.Plays() != 1 {
			t.Errorf("syntheses = %d, plays = %d", len(synth.Calls()), player.Plays())
		}
	})

	t.Run("state over http", func(t *testing.T) {
		resp, err := ts.Client().Get(ts.URL + "/api/state")
		if err != nil {
			t.Fatalf("GET /api/state error = %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		var state app.Snapshot
		if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if state.Gesture != "Halo" || state.Frames != 2 || state.View == nil {
			t.Errorf("state = %+v", state)
		}
	})
}
