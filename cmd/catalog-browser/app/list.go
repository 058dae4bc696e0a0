package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/catalog-browser/internal/catalog"
	"github.com/stacklok/catalog-browser/internal/filtering"
	"github.com/stacklok/catalog-browser/internal/paging"
	"github.com/stacklok/catalog-browser/internal/view"
)

const (
	defaultListTimeout = 30 * time.Second
	descriptionWidth   = 60
)

func newListCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [URL or query]",
		Short: "List one page of artifacts",
		Long: `List one page of artifacts matching a filter.

The optional argument is a catalog URL or query string, for example
"?shape=Vessel&tags=Ceramic,Ritual&page=2" copied from the address bar.
Flags are applied on top of it, and any filter flag moves back to the first page.`,
		Example: `  catalog-browser list "?culture=Inca"
  catalog-browser list --shape Vessel --tag Ceramic --tag Ritual
  catalog-browser list "https://catalog.example.org/?query=jar" --page 2 --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, v, args)
		},
	}

	cmd.Flags().String("query", "", "Free-text search over descriptions and ids")
	cmd.Flags().String("shape", "", "Artifact shape")
	cmd.Flags().String("culture", "", "Artifact culture")
	cmd.Flags().StringSlice("tag", nil, "Tag every artifact must have (repeatable)")
	cmd.Flags().Int("page", 0, "Page to show")
	cmd.Flags().String("format", formatTable, "Output format (table or json)")
	cmd.Flags().Duration("timeout", defaultListTimeout, "How long to wait for the catalog")
	return cmd
}

func runList(cmd *cobra.Command, v *viper.Viper, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if format != formatTable && format != formatJSON {
		return fmt.Errorf("unsupported format %q, expected %s or %s", format, formatTable, formatJSON)
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")

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
	vw, err := s.newView(filtering.NewMemoryLocation(filtering.ParseLocation(raw)), false)
	if err != nil {
		return fmt.Errorf("failed to create view: %w", err)
	}
	if err := vw.Mount(ctx); err != nil {
		return fmt.Errorf("failed to mount view: %w", err)
	}
	defer vw.Unmount()

	if err := applyListFlags(cmd, vw); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := vw.WaitIdle(waitCtx); err != nil {
		return fmt.Errorf("failed to wait for the catalog: %w", err)
	}

	state := vw.State()
	if state.LastError != nil {
		return fmt.Errorf("failed to list artifacts: %w", state.LastError)
	}

	out := cmd.OutOrStdout()
	if format == formatJSON {
		return writeListJSON(out, state, vw.ShareableQuery())
	}
	return writeListTable(out, state, vw.ShareableQuery())
}

// applyListFlags turns the filter flags into view updates. They land within
// one debounce period, so only the final filter is requested.
func applyListFlags(cmd *cobra.Command, vw *view.View[catalog.Artifact]) error {
	flags := cmd.Flags()
	for _, field := range []catalog.Field{catalog.FieldQuery, catalog.FieldShape, catalog.FieldCulture} {
		if !flags.Changed(string(field)) {
			continue
		}
		value, _ := flags.GetString(string(field))
		if err := vw.Update(field, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", field, err)
		}
	}
	if flags.Changed("tag") {
		tags, _ := flags.GetStringSlice("tag")
		if err := vw.Update(catalog.FieldTags, filtering.DedupeTags(tags)); err != nil {
			return fmt.Errorf("failed to set tags: %w", err)
		}
	}
	if flags.Changed("page") {
		page, _ := flags.GetInt("page")
		if err := vw.SetPage(page); err != nil {
			return fmt.Errorf("failed to set page: %w", err)
		}
	}
	return nil
}

type listOutput struct {
	Query      string             `json:"query"`
	Criteria   catalog.Criteria   `json:"criteria"`
	Pagination catalog.Pagination `json:"pagination"`
	Items      []catalog.Artifact `json:"items"`
}

func writeListJSON(w io.Writer, state paging.State[catalog.Artifact], query string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(listOutput{
		Query:      query,
		Criteria:   state.Criteria,
		Pagination: state.Pagination,
		Items:      state.Items,
	})
}

func writeListTable(w io.Writer, state paging.State[catalog.Artifact], query string) error {
	if len(state.Items) == 0 {
		if _, err := fmt.Fprintln(w, "No artifacts match these filters."); err != nil {
			return err
		}
	} else {
		table := tablewriter.NewWriter(w)
		table.Header("ID", "Shape", "Culture", "Tags", "Description")
		for _, a := range state.Items {
			if err := table.Append([]string{
				fmt.Sprint(a.ID),
				a.Attributes.Shape.Value,
				a.Attributes.Culture.Value,
				strings.Join(a.TagValues(), ", "),
				a.Summary(descriptionWidth),
			}); err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}
		}
		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}
	}

	p := state.Pagination
	if _, err := fmt.Fprintf(w, "page %d of %d (%d total)\n", p.CurrentPage, p.TotalPages, p.Total); err != nil {
		return err
	}
	if query != "" {
		_, err := fmt.Fprintf(w, "?%s\n", query)
		return err
	}
	return nil
}
