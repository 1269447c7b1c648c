// Package config loads the mudra configuration from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MUDRA_"

// Config is the top-level configuration.
type Config struct {
	Camera     CameraConfig     `yaml:"camera"`
	Detector   DetectorConfig   `yaml:"detector"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Dialog     DialogConfig     `yaml:"dialog"`
	Speech     SpeechConfig     `yaml:"speech"`
	Server     ServerConfig     `yaml:"server"`
	Store      StoreConfig      `yaml:"store"`
	LogLevel   LogLevel         `yaml:"log_level"`
}

// CameraConfig controls frame acquisition.
type CameraConfig struct {
	Device int  `yaml:"device"`
	Width  int  `yaml:"width"`
	Height int  `yaml:"height"`
	Mirror bool `yaml:"mirror"`

	// IdleFPS and ActiveFPS are the capture rates without and with motion.
	IdleFPS   int `yaml:"idle_fps"`
	ActiveFPS int `yaml:"active_fps"`

	// MotionThreshold is the percentage of changed pixels that counts as motion.
	MotionThreshold float64 `yaml:"motion_threshold"`

	// Window shows the annotated frame in a desktop window.
	Window bool `yaml:"window"`
}

// DetectorConfig controls the hand landmark detector.
type DetectorConfig struct {
	MaxHands      int     `yaml:"max_hands"`
	MinConfidence float64 `yaml:"min_confidence"`
	Script        string  `yaml:"script"`
}

// ClassifierConfig controls gesture classification.
type ClassifierConfig struct {
	PinchTolerance float64 `yaml:"pinch_tolerance"`

	// CatalogFile, if set, replaces the stored catalog with a YAML file.
	CatalogFile string `yaml:"catalog_file"`
}

// DialogConfig controls the typing animation.
type DialogConfig struct {
	TypingSpeed time.Duration `yaml:"typing_speed"`
}

// SpeechConfig controls spoken feedback.
type SpeechConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Engine       string        `yaml:"engine"`
	Lang         string        `yaml:"lang"`
	BaseURL      string        `yaml:"base_url"`
	Command      string        `yaml:"command"`
	Player       string        `yaml:"player"`
	PollInterval time.Duration `yaml:"poll_interval"`
	TempDir      string        `yaml:"temp_dir"`
	Timeout      time.Duration `yaml:"timeout"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	StaticDir  string `yaml:"static_dir"`
}

// StoreConfig controls the catalog database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LogLevel is a slog level name.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a known level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level converts l to a slog.Level, defaulting to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Camera: CameraConfig{
			Device:          0,
			Width:           640,
			Height:          480,
			Mirror:          true,
			IdleFPS:         5,
			ActiveFPS:       15,
			MotionThreshold: 1.0,
			Window:          true,
		},
		Detector: DetectorConfig{
			MaxHands:      2,
			MinConfidence: 0.7,
		},
		Classifier: ClassifierConfig{
			PinchTolerance: 0.05,
		},
		Dialog: DialogConfig{
			TypingSpeed: 30 * time.Millisecond,
		},
		Speech: SpeechConfig{
			Enabled:      true,
			Engine:       "gtts",
			Lang:         "id",
			PollInterval: 100 * time.Millisecond,
		},
		Server: ServerConfig{
			ListenAddr: "127.0.0.1:8080",
		},
		Store: StoreConfig{
			Path: defaultStorePath(),
		},
		LogLevel: LogInfo,
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "mudra.db"
	}
	return filepath.Join(home, ".mudra", "mudra.db")
}

// Load reads the YAML file at path over the defaults and validates it.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over the defaults and validates it.
// An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from the given .env files into the
// process environment. Missing files are ignored; existing variables win.
func LoadEnvFile(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("config: load %q: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg from MUDRA_* variables found by lookup (usually
// os.LookupEnv) and re-validates.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + key); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	integer("CAMERA_DEVICE", &cfg.Camera.Device)
	boolean("CAMERA_MIRROR", &cfg.Camera.Mirror)
	boolean("CAMERA_WINDOW", &cfg.Camera.Window)
	str("DETECTOR_SCRIPT", &cfg.Detector.Script)
	str("CLASSIFIER_CATALOG_FILE", &cfg.Classifier.CatalogFile)
	duration("DIALOG_TYPING_SPEED", &cfg.Dialog.TypingSpeed)
	boolean("SPEECH_ENABLED", &cfg.Speech.Enabled)
	str("SPEECH_ENGINE", &cfg.Speech.Engine)
	str("SPEECH_LANG", &cfg.Speech.Lang)
	str("SPEECH_BASE_URL", &cfg.Speech.BaseURL)
	str("SPEECH_COMMAND", &cfg.Speech.Command)
	str("SPEECH_PLAYER", &cfg.Speech.Player)
	str("SPEECH_TEMP_DIR", &cfg.Speech.TempDir)
	duration("SPEECH_TIMEOUT", &cfg.Speech.Timeout)
	str("SERVER_LISTEN_ADDR", &cfg.Server.ListenAddr)
	str("SERVER_STATIC_DIR", &cfg.Server.StaticDir)
	str("STORE_PATH", &cfg.Store.Path)
	if v, ok := lookup(EnvPrefix + "LOG_LEVEL"); ok {
		cfg.LogLevel = LogLevel(strings.ToLower(strings.TrimSpace(v)))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: env: %w", err)
	}
	return Validate(cfg)
}

// Validate checks cfg and returns every problem found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Camera.Device < 0 {
		errs = append(errs, fmt.Errorf("camera.device %d must be >= 0", cfg.Camera.Device))
	}
	if cfg.Camera.Width <= 0 || cfg.Camera.Height <= 0 {
		errs = append(errs, fmt.Errorf("camera size %dx%d must be positive", cfg.Camera.Width, cfg.Camera.Height))
	}
	if cfg.Camera.IdleFPS <= 0 || cfg.Camera.ActiveFPS <= 0 {
		errs = append(errs, errors.New("camera.idle_fps and camera.active_fps must be positive"))
	} else if cfg.Camera.IdleFPS > cfg.Camera.ActiveFPS {
		errs = append(errs, fmt.Errorf("camera.idle_fps %d exceeds camera.active_fps %d", cfg.Camera.IdleFPS, cfg.Camera.ActiveFPS))
	}
	if cfg.Camera.MotionThreshold < 0 || cfg.Camera.MotionThreshold > 100 {
		errs = append(errs, fmt.Errorf("camera.motion_threshold %.2f is out of range [0, 100]", cfg.Camera.MotionThreshold))
	}

	if cfg.Detector.MaxHands < 1 || cfg.Detector.MaxHands > 2 {
		errs = append(errs, fmt.Errorf("detector.max_hands %d must be 1 or 2", cfg.Detector.MaxHands))
	}
	if cfg.Detector.MinConfidence < 0 || cfg.Detector.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("detector.min_confidence %.2f is out of range [0, 1]", cfg.Detector.MinConfidence))
	}

	if cfg.Classifier.PinchTolerance <= 0 || cfg.Classifier.PinchTolerance >= 1 {
		errs = append(errs, fmt.Errorf("classifier.pinch_tolerance %.3f is out of range (0, 1)", cfg.Classifier.PinchTolerance))
	}

	if cfg.Dialog.TypingSpeed <= 0 {
		errs = append(errs, fmt.Errorf("dialog.typing_speed %s must be positive", cfg.Dialog.TypingSpeed))
	}

	switch cfg.Speech.Engine {
	case "gtts":
	case "command":
		if strings.TrimSpace(cfg.Speech.Command) == "" {
			errs = append(errs, errors.New("speech.command is required for the command engine"))
		}
	default:
		errs = append(errs, fmt.Errorf("speech.engine %q is invalid; valid values: gtts, command", cfg.Speech.Engine))
	}
	if cfg.Speech.Lang == "" {
		errs = append(errs, errors.New("speech.lang is required"))
	}
	if cfg.Speech.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("speech.poll_interval %s must be positive", cfg.Speech.PollInterval))
	}
	if cfg.Speech.Timeout < 0 {
		errs = append(errs, fmt.Errorf("speech.timeout %s must not be negative", cfg.Speech.Timeout))
	}

	if cfg.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required"))
	}
	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	return errors.Join(errs...)
}
