package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Dialog.TypingSpeed != 30*time.Millisecond {
		t.Errorf("typing speed = %s", cfg.Dialog.TypingSpeed)
	}
	if cfg.Speech.PollInterval != 100*time.Millisecond {
		t.Errorf("poll interval = %s", cfg.Speech.PollInterval)
	}
	if cfg.Classifier.PinchTolerance != 0.05 {
		t.Errorf("pinch tolerance = %f", cfg.Classifier.PinchTolerance)
	}
	if cfg.Speech.Timeout != 0 {
		t.Errorf("speech timeout = %s, want none", cfg.Speech.Timeout)
	}
}

func TestLoadFromReader(t *testing.T) {
	t.Run("empty document yields defaults", func(t *testing.T) {
		cfg, err := LoadFromReader(strings.NewReader(""))
		if err != nil {
			t.Fatalf("LoadFromReader() error = %v", err)
		}
		if cfg.Camera.ActiveFPS != 15 {
			t.Errorf("active fps = %d", cfg.Camera.ActiveFPS)
		}
	})

	t.Run("overrides merge with defaults", func(t *testing.T) {
		doc := `
camera:
  device: 1
  mirror: false
dialog:
  typing_speed: 50ms
speech:
  engine: command
  command: espeak-ng --stdout -v {lang} {text}
  lang: en
  timeout: 5s
log_level: debug
`
		cfg, err := LoadFromReader(strings.NewReader(doc))
		if err != nil {
			t.Fatalf("LoadFromReader() error = %v", err)
		}
		if cfg.Camera.Device != 1 || cfg.Camera.Mirror {
			t.Errorf("camera = %+v", cfg.Camera)
		}
		if cfg.Camera.Width != 640 {
			t.Errorf("width default lost: %d", cfg.Camera.Width)
		}
		if cfg.Dialog.TypingSpeed != 50*time.Millisecond {
			t.Errorf("typing speed = %s", cfg.Dialog.TypingSpeed)
		}
		if cfg.Speech.Engine != "command" || cfg.Speech.Timeout != 5*time.Second {
			t.Errorf("speech = %+v", cfg.Speech)
		}
		if cfg.LogLevel.Level().String() != "DEBUG" {
			t.Errorf("log level = %s", cfg.LogLevel)
		}
	})

	t.Run("unknown key rejected", func(t *testing.T) {
		_, err := LoadFromReader(strings.NewReader("camera:\n  fps: 30\n"))
		if err == nil {
			t.Fatal("expected error for unknown key")
		}
	})

	t.Run("all validation errors reported", func(t *testing.T) {
		doc := `
detector:
  max_hands: 3
classifier:
  pinch_tolerance: 0
speech:
  engine: polly
log_level: loud
`
		_, err := LoadFromReader(strings.NewReader(doc))
		if err == nil {
			t.Fatal("expected validation error")
		}
		for _, want := range []string{"detector.max_hands", "classifier.pinch_tolerance", "speech.engine", "log_level"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("error does not mention %s: %v", want, err)
			}
		}
	})

	t.Run("command engine needs a command", func(t *testing.T) {
		_, err := LoadFromReader(strings.NewReader("speech:\n  engine: command\n"))
		if err == nil || !strings.Contains(err.Error(), "speech.command") {
			t.Errorf("expected speech.command error, got %v", err)
		}
	})
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mudra.yaml")
	if err := os.WriteFile(path, []byte("server:\n  listen_addr: \":9090\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("listen addr = %q", cfg.Server.ListenAddr)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"MUDRA_SPEECH_LANG":         "en",
		"MUDRA_SPEECH_ENABLED":      "false",
		"MUDRA_CAMERA_DEVICE":       "2",
		"MUDRA_DIALOG_TYPING_SPEED": "10ms",
		"MUDRA_SERVER_LISTEN_ADDR":  ":7000",
		"MUDRA_LOG_LEVEL":           "WARN",
		"UNRELATED_SPEECH_LANG":     "fr",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	if err := ApplyEnv(cfg, lookup); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.Speech.Lang != "en" || cfg.Speech.Enabled {
		t.Errorf("speech = %+v", cfg.Speech)
	}
	if cfg.Camera.Device != 2 {
		t.Errorf("device = %d", cfg.Camera.Device)
	}
	if cfg.Dialog.TypingSpeed != 10*time.Millisecond {
		t.Errorf("typing speed = %s", cfg.Dialog.TypingSpeed)
	}
	if cfg.Server.ListenAddr != ":7000" {
		t.Errorf("listen addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.LogLevel != LogWarn {
		t.Errorf("log level = %q", cfg.LogLevel)
	}

	t.Run("bad values", func(t *testing.T) {
		bad := map[string]string{
			"MUDRA_CAMERA_DEVICE":  "front",
			"MUDRA_SPEECH_TIMEOUT": "soon",
		}
		err := ApplyEnv(Default(), func(k string) (string, bool) {
			v, ok := bad[k]
			return v, ok
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "MUDRA_CAMERA_DEVICE") || !strings.Contains(err.Error(), "MUDRA_SPEECH_TIMEOUT") {
			t.Errorf("error should name both variables: %v", err)
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("MUDRA_TEST_ENV_FILE=loaded\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("MUDRA_TEST_ENV_FILE") })

	if err := LoadEnvFile(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}
	if got := os.Getenv("MUDRA_TEST_ENV_FILE"); got != "loaded" {
		t.Errorf("MUDRA_TEST_ENV_FILE = %q", got)
	}
}
