package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/catalog-browser/internal/alert"
	"github.com/stacklok/catalog-browser/internal/catalog"
	"github.com/stacklok/catalog-browser/internal/detail"
)

func newShowCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "show <id>",
		Short:   "Show one artifact with its images and 3D model",
		Example: `  catalog-browser show 12 --format json`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id < 1 {
				return fmt.Errorf("invalid artifact id %q", args[0])
			}
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

			d, err := s.newDetailLoader().Load(ctx, id)
			if err != nil {
				return err
			}

			if format == formatJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(d)
			}
			return writeDetail(cmd.OutOrStdout(), d)
		},
	}
	cmd.Flags().String("format", formatTable, "Output format (table or json)")
	return cmd
}

// newDetailLoader creates an artifact detail loader for the configured endpoint
func (s *session) newDetailLoader() *detail.Loader {
	return detail.NewLoader(s.cfg.ArtifactURL, s.client, s.tokens, alert.LogAlerter{Logger: s.logger},
		detail.WithTracer(s.telemetry.Tracer()),
		detail.WithLogger(s.logger),
	)
}

func writeDetail(w io.Writer, d catalog.ArtifactDetail) error {
	rows := [][]string{
		{"ID", strconv.Itoa(d.ID)},
		{"Shape", d.Attributes.Shape.Value},
		{"Culture", d.Attributes.Culture.Value},
		{"Tags", strings.Join(d.TagValues(), ", ")},
		{"Description", strings.TrimSpace(d.Attributes.Description)},
	}
	if d.Thumbnail != "" {
		rows = append(rows, []string{"Thumbnail", d.Thumbnail})
	}
	for i, img := range d.Images {
		rows = append(rows, []string{fmt.Sprintf("Image %d", i+1), img})
	}
	if d.Model != nil {
		rows = append(rows,
			[]string{"Model object", d.Model.Object},
			[]string{"Model material", d.Model.Material},
			[]string{"Model texture", d.Model.Texture},
		)
	}

	table := tablewriter.NewWriter(w)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}
