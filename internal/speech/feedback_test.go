package speech

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

type outcomes struct {
	mu  sync.Mutex
	all []Outcome
}

func (o *outcomes) add(out Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.all = append(o.all, out)
}

func (o *outcomes) list() []Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Outcome(nil), o.all...)
}

func newTestFeedback(t *testing.T, synth *MockSynthesizer, player *MockPlayer) (*Feedback, *outcomes) {
	t.Helper()
	rec := &outcomes{}
	f := New(synth, player, gesture.DefaultCatalog(), Options{
		PollInterval: time.Millisecond,
		TempDir:      t.TempDir(),
		OnOutcome:    rec.add,
	})
	t.Cleanup(func() { f.Shutdown() })
	return f, rec
}

func wait(t *testing.T, f *Feedback) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.Wait(ctx); err != nil {
		t.Fatalf("clip did not finish: %v", err)
	}
}

func dirEntries(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	return entries
}

func TestFeedback_Notify(t *testing.T) {
	synth := &MockSynthesizer{}
	player := &MockPlayer{BusyPolls: 3}
	f, rec := newTestFeedback(t, synth, player)

	if !f.Notify(gesture.Transition{From: "", To: "Halo"}) {
		t.Fatal("expected clip to start")
	}
	wait(t, f)

	calls := synth.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 synthesis, got %d", len(calls))
	}
	if calls[0].Text != "Haloo!" || calls[0].Lang != "id" {
		t.Errorf("unexpected synthesis call %+v", calls[0])
	}
	if player.Plays() != 1 {
		t.Errorf("expected 1 playback, got %d", player.Plays())
	}

	paths, existed := player.Loaded()
	if len(paths) != 1 || !existed[0] {
		t.Fatalf("expected the temp clip to exist at load time: %v %v", paths, existed)
	}
	if filepath.Ext(paths[0]) != ".mp3" {
		t.Errorf("unexpected temp file name %q", paths[0])
	}
	if _, err := os.Stat(paths[0]); !os.IsNotExist(err) {
		t.Errorf("expected temp clip removed after playback, stat err = %v", err)
	}
	if len(f.TempFiles()) != 0 {
		t.Errorf("registry not empty: %v", f.TempFiles())
	}

	outs := rec.list()
	if len(outs) != 1 || !outs[0].OK() {
		t.Errorf("expected one successful outcome, got %+v", outs)
	}
	if f.Playing() {
		t.Error("flag still set after clip finished")
	}
}

func TestFeedback_NotifyIgnored(t *testing.T) {
	synth := &MockSynthesizer{}
	f, _ := newTestFeedback(t, synth, &MockPlayer{})

	if f.Notify(gesture.Transition{From: "Halo", To: ""}) {
		t.Error("transition to none should not speak")
	}
	if f.Notify(gesture.Transition{To: "Unknown"}) {
		t.Error("unknown gesture should not speak")
	}
	if f.Speak("", "id") {
		t.Error("empty text should not speak")
	}
	if len(synth.Calls()) != 0 {
		t.Errorf("expected no synthesis, got %d", len(synth.Calls()))
	}
}

func TestFeedback_SingleFlight(t *testing.T) {
	synth := &MockSynthesizer{Block: make(chan struct{})}
	player := &MockPlayer{}
	f, _ := newTestFeedback(t, synth, player)

	first := f.Notify(gesture.Transition{To: "Halo"})
	second := f.Notify(gesture.Transition{From: "Halo", To: "OK"})

	if !first || second {
		t.Errorf("expected first started and second dropped, got %v %v", first, second)
	}
	if !f.Playing() {
		t.Error("flag should be set while the clip is in flight")
	}

	close(synth.Block)
	wait(t, f)

	if n := len(synth.Calls()); n != 1 {
		t.Errorf("expected 1 synthesis, got %d", n)
	}
	if player.Plays() != 1 {
		t.Errorf("expected 1 playback, got %d", player.Plays())
	}

	if !f.Notify(gesture.Transition{To: "OK"}) {
		t.Error("expected a new clip once the first finished")
	}
	wait(t, f)
}

func TestFeedback_FailuresClearFlag(t *testing.T) {
	tests := []struct {
		name   string
		synth  *MockSynthesizer
		player *MockPlayer
		stage  Stage
	}{
		{"synthesis error", &MockSynthesizer{Err: errors.New("network down")}, &MockPlayer{}, StageSynthesize},
		{"empty audio", &MockSynthesizer{Audio: []byte{}}, &MockPlayer{}, StageSynthesize},
		{"load error", &MockSynthesizer{}, &MockPlayer{LoadErr: errors.New("bad file")}, StageLoad},
		{"play error", &MockSynthesizer{}, &MockPlayer{PlayErr: errors.New("no device")}, StagePlay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			rec := &outcomes{}
			f := New(tt.synth, tt.player, gesture.DefaultCatalog(), Options{
				PollInterval: time.Millisecond,
				TempDir:      dir,
				OnOutcome:    rec.add,
			})

			if !f.Speak("halo", "id") {
				t.Fatal("expected clip to start")
			}
			wait(t, f)

			if f.Playing() {
				t.Error("flag stuck after failure")
			}
			outs := rec.list()
			if len(outs) != 1 || outs[0].Stage != tt.stage || outs[0].Err == nil {
				t.Fatalf("expected %s failure, got %+v", tt.stage, outs)
			}
			if n := len(dirEntries(t, dir)); n != 0 {
				t.Errorf("expected no temp files left, found %d", n)
			}
			if !f.Speak("lagi", "id") {
				t.Error("expected a retry to be accepted after failure")
			}
			wait(t, f)
		})
	}
}

func TestFeedback_PersistFailure(t *testing.T) {
	rec := &outcomes{}
	f := New(&MockSynthesizer{}, &MockPlayer{}, nil, Options{
		TempDir:   filepath.Join(t.TempDir(), "missing"),
		OnOutcome: rec.add,
	})

	f.Speak("halo", "")
	wait(t, f)

	outs := rec.list()
	if len(outs) != 1 || outs[0].Stage != StagePersist {
		t.Fatalf("expected persist failure, got %+v", outs)
	}
	if f.Playing() {
		t.Error("flag stuck after failure")
	}
}

func TestFeedback_Shutdown(t *testing.T) {
	synth := &MockSynthesizer{}
	player := &MockPlayer{BusyPolls: 1 << 30}
	dir := t.TempDir()
	f := New(synth, player, gesture.DefaultCatalog(), Options{
		PollInterval: time.Millisecond,
		TempDir:      dir,
	})

	f.Speak("halo", "id")

	deadline := time.Now().Add(5 * time.Second)
	for player.Plays() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("playback never started")
		}
		time.Sleep(time.Millisecond)
	}
	if n := len(f.TempFiles()); n != 1 {
		t.Fatalf("expected 1 registered temp file mid-playback, got %d", n)
	}

	if err := f.Shutdown(); err != nil {
		t.Fatalf("first Shutdown: %v", err)
	}
	if n := len(dirEntries(t, dir)); n != 0 {
		t.Errorf("expected no temp files after Shutdown, found %d", n)
	}
	if err := f.Shutdown(); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
	if n := len(dirEntries(t, dir)); n != 0 {
		t.Errorf("expected no temp files after second Shutdown, found %d", n)
	}

	if f.Speak("lagi", "id") {
		t.Error("Speak after Shutdown should be refused")
	}

	// Let the playing clip finish; its cleanup finds the file already gone.
	player.mu.Lock()
	player.remaining = 0
	player.mu.Unlock()
	wait(t, f)
	if f.Playing() {
		t.Error("flag stuck after shutdown")
	}
}

func TestFeedback_ShutdownRetriesUndeletable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("directory permissions differ on Windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	dir := t.TempDir()
	r := newRegistry()
	path, err := r.write(dir, "clip.mp3", []byte("x"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := os.Chmod(dir, 0o500); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	if err := r.close(); err == nil {
		t.Error("expected error removing from read-only dir")
	}
	if got := r.paths(); len(got) != 1 || got[0] != path {
		t.Errorf("undeletable file should stay registered, got %v", got)
	}

	if err := os.Chmod(dir, 0o700); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	if err := r.close(); err != nil {
		t.Errorf("retry: %v", err)
	}
	if len(r.paths()) != 0 {
		t.Errorf("expected empty registry after retry, got %v", r.paths())
	}
	if _, err := r.write(dir, "late.mp3", []byte("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("write after close: got %v, want ErrClosed", err)
	}
}

func TestFeedback_Muted(t *testing.T) {
	synth := &MockSynthesizer{}
	f, _ := newTestFeedback(t, synth, &MockPlayer{})

	f.SetMuted(true)
	if f.Notify(gesture.Transition{To: "Halo"}) {
		t.Error("muted feedback should not speak")
	}
	f.SetMuted(false)
	if !f.Notify(gesture.Transition{To: "Halo"}) {
		t.Error("unmuted feedback should speak")
	}
	wait(t, f)
	if len(synth.Calls()) != 1 {
		t.Errorf("expected 1 synthesis, got %d", len(synth.Calls()))
	}
}

func TestFeedback_Timeout(t *testing.T) {
	synth := &MockSynthesizer{Block: make(chan struct{})}
	rec := &outcomes{}
	f := New(synth, &MockPlayer{}, nil, Options{
		TempDir:   t.TempDir(),
		Timeout:   20 * time.Millisecond,
		OnOutcome: rec.add,
	})
	defer close(synth.Block)

	f.Speak("halo", "id")
	wait(t, f)

	outs := rec.list()
	if len(outs) != 1 || !errors.Is(outs[0].Err, context.DeadlineExceeded) {
		t.Errorf("expected synthesis deadline, got %+v", outs)
	}
}
