package gesture

// Transition is a change of the recognized gesture. An empty id means no
// gesture.
type Transition struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Tracker debounces per-frame classifications into transitions. It is not
// safe for concurrent use; the frame loop owns it.
type Tracker struct {
	last string
}

// NewTracker returns a tracker with no gesture recorded.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Observe records the frame's gesture id and reports a transition when it
// differs from the last recorded id.
func (t *Tracker) Observe(id string) (Transition, bool) {
	if id == t.last {
		return Transition{}, false
	}
	tr := Transition{From: t.last, To: id}
	t.last = id
	return tr, true
}

// Current returns the last recorded gesture id.
func (t *Tracker) Current() string {
	return t.last
}

// Reset forgets the recorded gesture without emitting a transition.
func (t *Tracker) Reset() {
	t.last = ""
}
