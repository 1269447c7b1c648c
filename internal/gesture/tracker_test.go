package gesture

import "testing"

func TestTracker_Debounce(t *testing.T) {
	tr := NewTracker()

	var got []Transition
	for _, id := range []string{"A", "A", "A", "", "A"} {
		if ev, ok := tr.Observe(id); ok {
			got = append(got, ev)
		}
	}

	want := []Transition{
		{From: "", To: "A"},
		{From: "A", To: ""},
		{From: "", To: "A"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d transitions, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transition %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestTracker_DirectChange(t *testing.T) {
	tr := NewTracker()
	tr.Observe("Fist")

	ev, ok := tr.Observe("Sip")
	if !ok {
		t.Fatal("expected transition")
	}
	if ev.From != "Fist" || ev.To != "Sip" {
		t.Errorf("unexpected transition %+v", ev)
	}
	if tr.Current() != "Sip" {
		t.Errorf("Current() = %q, want Sip", tr.Current())
	}
}

func TestTracker_Reset(t *testing.T) {
	tr := NewTracker()

	if _, ok := tr.Observe(""); ok {
		t.Error("none on a fresh tracker should not emit")
	}

	tr.Observe("Halo")
	tr.Reset()
	if tr.Current() != "" {
		t.Errorf("Current() after Reset = %q", tr.Current())
	}
	if ev, ok := tr.Observe("Halo"); !ok || ev.From != "" {
		t.Errorf("expected fresh transition after Reset, got %+v %v", ev, ok)
	}
}
