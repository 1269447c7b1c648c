// Package tray puts the mudra controls in the desktop system tray.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray is the system tray menu: detection and speech toggles, the last
// recognized gesture, a link to the web preview and quit.
type Tray struct {
	mu sync.RWMutex

	enabled bool
	muted   bool
	last    string

	onToggle  func(enabled bool)
	onMute    func(muted bool)
	onPreview func()
	onQuit    func()

	// Menu items stored for later updates
	menuToggle      *systray.MenuItem
	menuMute        *systray.MenuItem
	menuLastGesture *systray.MenuItem
}

// New creates a tray reflecting the current detection and speech state.
func New(enabled, muted bool) *Tray {
	return &Tray{enabled: enabled, muted: muted}
}

// OnToggle sets the callback for the detection toggle.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnMute sets the callback for the speech toggle.
func (t *Tray) OnMute(fn func(muted bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onMute = fn
}

// OnPreview sets the callback for the "Open preview" item. The item is only
// shown when a callback is set before Run.
func (t *Tray) OnPreview(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onPreview = fn
}

// OnQuit sets the callback for the quit item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray. It blocks until Quit is called and must run on
// the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("mudra")
	systray.SetTooltip("mudra hand gesture feedback")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(detectionLabel(t.enabled), "Toggle hand detection")
	t.menuMute = systray.AddMenuItem(speechLabel(t.muted), "Toggle spoken feedback")
	systray.AddSeparator()
	t.menuLastGesture = systray.AddMenuItem(lastLabel(t.last), "Last recognized gesture")
	t.menuLastGesture.Disable()
	preview := t.onPreview != nil
	t.mu.Unlock()

	var previewCh <-chan struct{}
	if preview {
		systray.AddSeparator()
		previewCh = systray.AddMenuItem("Open preview...", "Open the live preview in a browser").ClickedCh
	}
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit mudra")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.toggleDetection()
			case <-t.menuMute.ClickedCh:
				t.toggleSpeech()
			case <-previewCh:
				t.mu.RLock()
				fn := t.onPreview
				t.mu.RUnlock()
				fn()
			case <-menuQuit.ClickedCh:
				t.mu.RLock()
				fn := t.onQuit
				t.mu.RUnlock()
				if fn != nil {
					fn()
				}
				systray.Quit()
				return
			}
		}
	}()
}

// toggleDetection flips the detection state and reports it to the callback
// outside the lock.
func (t *Tray) toggleDetection() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(detectionLabel(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) toggleSpeech() {
	t.mu.Lock()
	t.muted = !t.muted
	muted := t.muted
	if t.menuMute != nil {
		t.menuMute.SetTitle(speechLabel(muted))
	}
	callback := t.onMute
	t.mu.Unlock()

	if callback != nil {
		callback(muted)
	}
}

// SetLastGesture updates the last gesture line. An empty id keeps the
// previous gesture, so the line shows the last thing actually recognized.
func (t *Tray) SetLastGesture(id string) {
	if id == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = id
	if t.menuLastGesture != nil {
		t.menuLastGesture.SetTitle(lastLabel(id))
	}
}

// LastGesture returns the last recognized gesture id.
func (t *Tray) LastGesture() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// IsEnabled returns the current detection state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// IsMuted returns the current speech state.
func (t *Tray) IsMuted() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.muted
}

func detectionLabel(enabled bool) string {
	if enabled {
		return "● Detection on"
	}
	return "○ Detection off"
}

func speechLabel(muted bool) string {
	if muted {
		return "○ Speech muted"
	}
	return "● Speech on"
}

func lastLabel(id string) string {
	if id == "" {
		return "Last: none"
	}
	return "Last: " + id
}
