package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/catalog-browser/internal/catalog"
)

func newMetadataCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Print the shapes, cultures and tags artifacts can be filtered by",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString("format")
			if format != formatTable && format != formatJSON {
				return fmt.Errorf("unsupported format %q, expected %s or %s", format, formatTable, formatJSON)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			s, err := newSession(ctx, v)
			if err != nil {
				return err
			}
			defer s.close()

			loader, err := s.newLoader()
			if err != nil {
				return err
			}
			md, err := loader.Load(ctx)
			if err != nil {
				return err
			}

			if format == formatJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(md)
			}
			return writeMetadata(cmd.OutOrStdout(), md)
		},
	}
	cmd.Flags().String("format", formatTable, "Output format (table or json)")
	return cmd
}

func writeMetadata(w io.Writer, md catalog.Metadata) error {
	sections := []struct {
		title string
		refs  []catalog.Ref
	}{
		{"Shapes", md.Shapes},
		{"Cultures", md.Cultures},
		{"Tags", md.Tags},
	}
	for _, s := range sections {
		values := catalog.Values(s.refs)
		if len(values) == 0 {
			values = []string{"(none)"}
		}
		if _, err := fmt.Fprintf(w, "%s: %s\n", s.title, strings.Join(values, ", ")); err != nil {
			return err
		}
	}
	return nil
}
