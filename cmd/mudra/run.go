package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/observe"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/speech"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

func newRunCmd(c *cli) *cobra.Command {
	var withTray, noWindow bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Watch the camera and answer gestures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if noWindow {
				c.cfg.Camera.Window = false
			}
			return runLoop(cmd.Context(), c.cfg, withTray)
		},
	}
	cmd.Flags().BoolVar(&withTray, "tray", false, "show controls in the system tray")
	cmd.Flags().BoolVar(&noWindow, "no-window", false, "do not open the preview window")
	return cmd
}

func runLoop(ctx context.Context, cfg *config.Config, withTray bool) error {
	shutdownMetrics, err := observe.InitProvider(ctx, Version)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer shutdownMetrics(context.Background())
	metrics := observe.DefaultMetrics()

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	det, err := detector.NewMediaPipeDetector(detector.Config{
		MaxHands:        cfg.Detector.MaxHands,
		MinConfidence:   cfg.Detector.MinConfidence,
		MinTrackingConf: detector.DefaultConfig().MinTrackingConf,
		Script:          cfg.Detector.Script,
	})
	if err != nil {
		return fmt.Errorf("start detector: %w", err)
	}

	var feedback *speech.Feedback
	if cfg.Speech.Enabled {
		fb, player, err := newFeedback(cfg, metrics, nil)
		if err != nil {
			det.Close()
			return err
		}
		defer player.Close()
		feedback = fb
	}

	a, err := app.New(app.Options{
		Camera: capture.NewCamera(capture.Options{
			Device: cfg.Camera.Device,
			Width:  cfg.Camera.Width,
			Height: cfg.Camera.Height,
			Mirror: cfg.Camera.Mirror,
		}),
		Detector:        det,
		Feedback:        feedback,
		CatalogFile:     cfg.Classifier.CatalogFile,
		Store:           st,
		PinchTolerance:  cfg.Classifier.PinchTolerance,
		TypingSpeed:     cfg.Dialog.TypingSpeed,
		IdleFPS:         cfg.Camera.IdleFPS,
		ActiveFPS:       cfg.Camera.ActiveFPS,
		MotionThreshold: cfg.Camera.MotionThreshold,
		Window:          cfg.Camera.Window,
		EncodeFrames:    true,
		Metrics:         metrics,
	})
	if err != nil {
		det.Close()
		if feedback != nil {
			feedback.Shutdown()
		}
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("shutdown", "error", err)
		}
	}()

	hub := server.NewHub()
	a.OnTransition(hub.Publish)

	srv := server.New(server.Config{
		StaticDir:      cfg.Server.StaticDir,
		Store:          st,
		Runtime:        a,
		Events:         hub,
		Metrics:        metrics,
		MetricsHandler: observe.Handler(),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The loop ending (window closed, camera gone) stops everything else.
		defer cancel()
		return a.Run(gctx)
	})
	g.Go(func() error {
		return srv.ListenAndServe(gctx, cfg.Server.ListenAddr)
	})

	if withTray {
		t := tray.New(a.Enabled(), a.Muted())
		t.OnToggle(a.SetEnabled)
		t.OnMute(a.SetMuted)
		t.OnPreview(func() {
			if err := openBrowser(previewURL(cfg.Server.ListenAddr)); err != nil {
				slog.Warn("could not open browser", "error", err)
			}
		})
		t.OnQuit(cancel)
		a.OnTransition(func(tr gesture.Transition) { t.SetLastGesture(tr.To) })

		go func() {
			<-gctx.Done()
			t.Quit()
		}()
		t.Run()
		cancel()
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newFeedback builds the spoken feedback worker from the speech settings.
// The player is returned so the caller can stop it on exit.
func newFeedback(cfg *config.Config, metrics *observe.Metrics, onOutcome func(speech.Outcome)) (*speech.Feedback, *speech.ExecPlayer, error) {
	synth, err := speech.NewSynthesizer(cfg.Speech.Engine, cfg.Speech.BaseURL, cfg.Speech.Command, cfg.Speech.Timeout)
	if err != nil {
		return nil, nil, err
	}
	player, err := speech.NewExecPlayer(cfg.Speech.Player)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("speech ready", "engine", cfg.Speech.Engine, "player", player.String(), "lang", cfg.Speech.Lang)

	fb := speech.New(synth, player, nil, speech.Options{
		PollInterval: cfg.Speech.PollInterval,
		TempDir:      cfg.Speech.TempDir,
		Timeout:      cfg.Speech.Timeout,
		Lang:         cfg.Speech.Lang,
		Metrics:      metrics,
		OnOutcome:    onOutcome,
	})
	return fb, player, nil
}

// previewURL turns a listen address such as ":8080" into a browsable URL.
func previewURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
