package inspect

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tphakala/via2coco/internal/conf"
	"github.com/tphakala/via2coco/internal/via"
)

// Command creates the inspect command.
func Command(ctx *conf.Context) *cobra.Command {
	var categories []string

	cmd := &cobra.Command{
		Use:   "inspect <via-file>",
		Short: "Summarize the regions and labels of a VIA annotation file",
		Long: `Print the number of entries and regions of a VIA annotation file and the
regions per label. With categories, labels that convert would skip are marked.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			fsys := afero.NewOsFs()
			known := categories
			if !cmd.Flags().Changed("categories") {
				var err error
				if known, err = ctx.Settings.CategoryNames(fsys); err != nil {
					return err
				}
			}

			project, err := via.Load(fsys, args[0])
			if err != nil {
				return err
			}

			return printSummary(cmd.OutOrStdout(), args[0], via.Summarize(project), known)
		},
	}

	cmd.Flags().StringSliceVarP(&categories, "categories", "c", nil, "Mark labels that are not in these categories")

	return cmd
}

func printSummary(out io.Writer, path string, s via.Summary, known []string) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "File:\t%s\n", path)
	fmt.Fprintf(w, "Entries:\t%d\n", s.Entries)
	fmt.Fprintf(w, "Regions:\t%d\n", s.Regions)
	if len(known) > 0 && s.Unlabeled > 0 {
		fmt.Fprintf(w, "Unlabeled:\t%d (as %s)\n", s.Unlabeled, known[0])
	} else {
		fmt.Fprintf(w, "Unlabeled:\t%d\n", s.Unlabeled)
	}
	if s.InvalidLabels > 0 {
		fmt.Fprintf(w, "Invalid labels:\t%d (skipped)\n", s.InvalidLabels)
	}

	if len(s.Labels) > 0 {
		fmt.Fprintln(w)
		if len(known) == 0 {
			fmt.Fprintln(w, "LABEL\tREGIONS")
			for _, lc := range s.Labels {
				fmt.Fprintf(w, "%s\t%d\n", lc.Name, lc.Count)
			}
		} else {
			unknown := make(map[string]bool)
			for _, name := range s.Unknown(known) {
				unknown[name] = true
			}

			fmt.Fprintln(w, "LABEL\tREGIONS\tSTATUS")
			for _, lc := range s.Labels {
				status := "ok"
				if unknown[lc.Name] {
					status = "skipped"
				}
				fmt.Fprintf(w, "%s\t%d\t%s\n", lc.Name, lc.Count, status)
			}
		}
	}

	return w.Flush()
}
