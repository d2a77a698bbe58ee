// cmd/madlibs/templates.go
package main

import (
	"fmt"
	"text/tabwriter"

	apperrors "madlibs-stories/internal/common/errors"
	"madlibs-stories/internal/story"

	"github.com/spf13/cobra"
)

var featuredOnly bool

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List active templates from the configured source",
	RunE:  runTemplates,
}

func init() {
	templatesCmd.Flags().BoolVar(&featuredOnly, "featured", false, "Only featured templates")
}

func runTemplates(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	templates, err := story.NewCatalog(a.source).Templates(ctx, featuredOnly)
	if err != nil {
		stdErr := apperrors.Normalize(err)
		return fmt.Errorf("%s: %s", stdErr.Code, stdErr.Message)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tNAME\tTHEME\tDIFFICULTY\tQUESTIONS")
	for _, t := range templates {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", t.Slug, t.Name, t.Theme, t.Difficulty, len(t.Questions))
	}
	return w.Flush()
}
