package capture

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestNewMotionDetector_Threshold(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"explicit", 5.0, 5.0},
		{"zero uses default", 0, DefaultMotionThreshold},
		{"negative uses default", -2, DefaultMotionThreshold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := NewMotionDetector(tt.in)
			defer md.Close()
			if got := md.Threshold(); got != tt.want {
				t.Errorf("Threshold() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestMotionDetector_SetThreshold(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	md.SetThreshold(5.0)
	if md.Threshold() != 5.0 {
		t.Errorf("threshold = %f, want 5.0", md.Threshold())
	}
	md.SetThreshold(-1.0)
	if md.Threshold() != 5.0 {
		t.Errorf("negative threshold should be ignored, got %f", md.Threshold())
	}
}

func TestMotionDetector_Detect(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	black := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 120, 160, gocv.MatTypeCV8UC3)
	defer black.Close()
	black2 := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 120, 160, gocv.MatTypeCV8UC3)
	defer black2.Close()
	white := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer white.Close()
	white.SetTo(gocv.NewScalar(255, 255, 255, 0))

	t.Run("first frame primes", func(t *testing.T) {
		md := NewMotionDetector(1.0)
		defer md.Close()

		moved, pct := md.Detect(&black)
		if moved || pct != 0 {
			t.Errorf("first frame = %v, %f", moved, pct)
		}
	})

	t.Run("identical frames", func(t *testing.T) {
		md := NewMotionDetector(1.0)
		defer md.Close()

		md.Detect(&black)
		if moved, pct := md.Detect(&black2); moved {
			t.Errorf("identical frames moved, pct = %f", pct)
		}
	})

	t.Run("black to white", func(t *testing.T) {
		md := NewMotionDetector(1.0)
		defer md.Close()

		md.Detect(&black)
		moved, pct := md.Detect(&white)
		if !moved || pct < 50 {
			t.Errorf("black to white = %v, %f", moved, pct)
		}
	})

	t.Run("reset re-primes", func(t *testing.T) {
		md := NewMotionDetector(1.0)
		defer md.Close()

		md.Detect(&black)
		md.Reset()
		if moved, _ := md.Detect(&white); moved {
			t.Error("first frame after Reset should not report motion")
		}
	})

	t.Run("size change re-primes", func(t *testing.T) {
		md := NewMotionDetector(1.0)
		defer md.Close()

		small := gocv.NewMatWithSize(60, 80, gocv.MatTypeCV8UC3)
		defer small.Close()
		small.SetTo(gocv.NewScalar(255, 255, 255, 0))

		md.Detect(&black)
		if moved, _ := md.Detect(&small); moved {
			t.Error("resolution change should not report motion")
		}
	})

	t.Run("nil frame", func(t *testing.T) {
		md := NewMotionDetector(1.0)
		defer md.Close()
		if moved, _ := md.Detect(nil); moved {
			t.Error("nil frame reported motion")
		}
	})
}

func TestMotionDetector_Close_Multiple(t *testing.T) {
	md := NewMotionDetector(1.0)
	md.Close()
	md.Close()
}
