package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/catalog-browser/internal/filtering"
	"github.com/stacklok/catalog-browser/internal/tui"
)

func newBrowseCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "browse [URL or query]",
		Short: "Browse artifacts interactively",
		Long: `Open an interactive browser over the catalog.

Type to edit the focused filter, tab to move between query, shape, culture and tags
(tags comma-separated), ↑/↓ to pick a shape or culture, PgUp/PgDn to change page.
The query string shown at the bottom can be pasted back into list or the web front-end.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			s, err := newSession(ctx, v)
			if err != nil {
				return err
			}
			defer s.close()

			var raw string
			if len(args) == 1 {
				raw = args[0]
			}
			vw, err := s.newView(filtering.NewMemoryLocation(filtering.ParseLocation(raw)), true)
			if err != nil {
				return fmt.Errorf("failed to create view: %w", err)
			}
			if err := vw.Mount(ctx); err != nil {
				return fmt.Errorf("failed to mount view: %w", err)
			}
			defer vw.Unmount()

			return tui.Run(ctx, vw)
		},
	}
}
