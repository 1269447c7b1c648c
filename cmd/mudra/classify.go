package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/store"
)

func newClassifyCmd(c *cli) *cobra.Command {
	var fromStore bool

	cmd := &cobra.Command{
		Use:   "classify <landmarks.json>",
		Short: "Classify a recorded landmark dump offline",
		Long: `Classify reads a JSON array of frames, each frame an array of hands as
produced by the detector, and prints the gesture recognized in every frame
together with the transitions the live loop would have announced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frames, err := readFrames(args[0])
			if err != nil {
				return err
			}

			opts := app.Options{
				CatalogFile:    c.cfg.Classifier.CatalogFile,
				PinchTolerance: c.cfg.Classifier.PinchTolerance,
				TypingSpeed:    c.cfg.Dialog.TypingSpeed,
			}
			if fromStore {
				st, err := store.New(c.cfg.Store.Path)
				if err != nil {
					return fmt.Errorf("open store: %w", err)
				}
				defer st.Close()
				opts.Store = st
			}

			a, err := app.New(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			interval := time.Second / time.Duration(c.cfg.Camera.ActiveFPS)
			return classifyFrames(cmd.Context(), cmd.OutOrStdout(), a, frames, interval)
		},
	}
	cmd.Flags().BoolVar(&fromStore, "store", false, "use the stored catalog instead of the built-in one")
	return cmd
}

func readFrames(path string) ([][]detector.HandLandmarks, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var frames [][]detector.HandLandmarks
	if err := json.NewDecoder(f).Decode(&frames); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return frames, nil
}

// classifyFrames feeds frames through the loop at the given spacing and
// writes one row per frame.
func classifyFrames(ctx context.Context, w io.Writer, a *app.App, frames [][]detector.HandLandmarks, interval time.Duration) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "FRAME\tHANDS\tGESTURE\tEVENT")

	now := time.Unix(0, 0)
	for i, hands := range frames {
		res := a.ProcessHands(ctx, hands, now)
		now = now.Add(interval)

		event := ""
		if res.Changed {
			event = fmt.Sprintf("%s -> %s", label(res.Transition.From), label(res.Transition.To))
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", i, len(hands), label(res.Gesture), event)
	}
	return tw.Flush()
}

func label(id string) string {
	if id == "" {
		return "-"
	}
	return id
}
