package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

func newGesturesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gestures",
		Short: "Inspect and seed the stored gesture catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored gestures in priority order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.New(c.cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			gestures, err := st.Gestures().List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(gestures) == 0 {
				fmt.Fprintln(out, "No gestures stored. Run `mudra gestures seed` to add the defaults.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "POS\tID\tHANDS\tNAME\tCOLOR\tSPEECH")
			for _, g := range gestures {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n", g.Position, g.ID, g.Hands, g.Name, g.Color, g.Speech)
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Store the built-in gestures if the catalog is empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.New(c.cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			n, err := st.Gestures().Seed(gesture.DefaultEntries())
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Catalog already has gestures; nothing seeded.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d gestures into %s\n", n, st.Path())
			return nil
		},
	})
	return cmd
}
