package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/feedload/pkg/errors"
	"github.com/matzehuels/feedload/pkg/render/nodelink"
)

// Output formats of the tree command.
const (
	formatDOT = "dot"
	formatSVG = "svg"
)

// treeCommand creates the tree command.
func (c *CLI) treeCommand() *cobra.Command {
	var (
		opts   loadOptions
		format string
		output string
		dlOpts nodelink.Options
	)

	cmd := &cobra.Command{
		Use:   "tree <url|name>",
		Short: "Render the normalized channel as a node-link diagram",
		Long: `Render the normalized channel element tree as Graphviz DOT or SVG.

Synthetic "prefix:local" fields are drawn dashed.`,
		Example: `  feedload tree https://go.dev/blog/feed.atom --max-children 5 > feed.dot
  feedload tree intranet --format svg -o intranet.svg --detailed`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeFeedNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatDOT && format != formatSVG {
				return errors.New(errors.ErrCodeInvalidInput, "unsupported format %q (use dot or svg)", format)
			}

			f, err := c.load(cmd, args[0], opts)
			if err != nil {
				return err
			}

			data := []byte(nodelink.ToDOT(f.Channel(), dlOpts))
			if format == formatSVG {
				spinner := newSpinnerWithContext(cmd.Context(), "Rendering SVG")
				spinner.Start()
				data, err = nodelink.RenderSVG(cmd.Context(), string(data))
				if err != nil {
					spinner.StopWithError("Rendering failed")
					return err
				}
				spinner.StopWithSuccess("Rendered SVG")
			}

			if output == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printSuccess("Wrote %s", format)
			printFile(output)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.rss, "rss", false, "accept documents without a channel")
	cmd.Flags().StringVarP(&format, "format", "f", formatDOT, "output format: dot or svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().BoolVar(&dlOpts.Detailed, "detailed", false, "show leaf text in node labels")
	cmd.Flags().IntVar(&dlOpts.MaxDepth, "max-depth", 0, "stop below this depth (0 for unlimited)")
	cmd.Flags().IntVar(&dlOpts.MaxChildren, "max-children", 0, "collapse children past this count (0 for unlimited)")

	return cmd
}
