package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/speech"
)

// sayTimeout bounds how long the command waits for one clip.
const sayTimeout = 2 * time.Minute

func newSayCmd(c *cli) *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "say <text>",
		Short: "Speak text through the configured speech engine and player",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var outcome speech.Outcome
			fb, player, err := newFeedback(c.cfg, nil, func(o speech.Outcome) { outcome = o })
			if err != nil {
				return err
			}
			defer player.Close()
			return say(cmd.Context(), fb, strings.Join(args, " "), lang, &outcome)
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "language code (default: speech.lang)")
	return cmd
}

// say speaks one clip on fb and waits for it. outcome is filled in by the
// OnOutcome hook fb was built with.
func say(ctx context.Context, fb *speech.Feedback, text, lang string, outcome *speech.Outcome) error {
	defer fb.Shutdown()

	if !fb.Speak(text, lang) {
		return errors.New("nothing to say")
	}

	ctx, cancel := context.WithTimeout(ctx, sayTimeout)
	defer cancel()
	if err := fb.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for playback: %w", err)
	}
	if !outcome.OK() {
		return fmt.Errorf("speech failed at %s: %w", outcome.Stage, outcome.Err)
	}
	return nil
}
