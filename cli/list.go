package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/compozy/assetflow/engine/project"
	"github.com/compozy/assetflow/engine/task"
	"github.com/compozy/assetflow/pkg/config"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// ListCmd prints the task table.
func ListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the available tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return fmt.Errorf("failed to get format flag: %w", err)
			}
			cfg := config.FromContext(cmd.Context())
			graph, err := project.Graph(project.OptionsFromConfig(cfg, afero.NewReadOnlyFs(afero.NewOsFs())))
			if err != nil {
				return fmt.Errorf("failed to build task graph: %w", err)
			}
			return outputTasks(cmd, graph, format)
		},
	}
	cmd.Flags().StringP("format", "f", "table", "Output format (json, table)")
	return cmd
}

type taskListing struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Details []string `json:"details"`
}

func listTasks(g *task.Graph) []taskListing {
	entries := g.Entries()
	out := make([]taskListing, 0, len(entries))
	for _, e := range entries {
		l := taskListing{Name: e.Name(), Kind: e.Kind.String()}
		switch e.Kind {
		case task.KindTask:
			for _, p := range e.Task.Pipelines {
				l.Details = append(l.Details, p.Describe())
			}
		case task.KindAggregate:
			l.Details = []string{strings.Join(e.Aggregate.Steps, ", ")}
		case task.KindWatch:
			l.Details = []string{strings.Join(e.Watch.Globs, ", ") + " -> " + strings.Join(e.Watch.Tasks, ", ")}
		}
		out = append(out, l)
	}
	return out
}

func outputTasks(cmd *cobra.Command, g *task.Graph, format string) error {
	listing := listTasks(g)
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(listing)
	case "table":
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		defer w.Flush()
		fmt.Fprintln(w, "TASK\tKIND\tDETAILS")
		fmt.Fprintln(w, "----\t----\t-------")
		for _, l := range listing {
			for i, d := range l.Details {
				if i == 0 {
					fmt.Fprintf(w, "%s\t%s\t%s\n", l.Name, l.Kind, d)
					continue
				}
				fmt.Fprintf(w, "\t\t%s\n", d)
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}
