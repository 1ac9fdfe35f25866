package cli

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/conf2dot/pkg/dataflow"
	"github.com/matzehuels/conf2dot/pkg/pipeline"
	"github.com/matzehuels/conf2dot/pkg/smileconf"
)

// inspectCommand creates the inspect command for summarizing a configuration.
func (c *CLI) inspectCommand() *cobra.Command {
	var (
		set         map[string]string
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <input>",
		Short: "Summarize components, levels and options of a configuration",
		Long: `Inspect parses a configuration file and prints its components with the
data memory levels they read and write, the command-line options it
declares, and anything that could not be classified.

With --interactive, sections and their properties are browsed in the terminal.`,
		Example: `  conf2dot inspect MFCC12_0_D_A.conf
  conf2dot inspect MFCC12_0_D_A.conf -i --set inputfile=speech.wav`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts := pipeline.Options{
				Input:     args[0],
				Overrides: c.cfg.overrides(set),
				Logger:    c.Logger,
			}
			if err := opts.ValidateAndSetDefaults(); err != nil {
				return cliError(err)
			}

			doc, err := pipeline.Parse(ctx, opts)
			if err != nil {
				return cliError(err)
			}
			g := pipeline.BuildGraph(ctx, doc, opts)

			if interactive {
				_, err := tea.NewProgram(NewSectionBrowserModel(doc), tea.WithContext(ctx)).Run()
				return err
			}
			writeInspection(cmd.OutOrStdout(), doc, g)
			return nil
		},
	}

	cmd.Flags().StringToStringVar(&set, "set", nil, "set a command-line option of the config (repeatable)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse sections interactively")
	cmd.ValidArgsFunction = func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"conf", "inc"}, cobra.ShellCompDirectiveFilterFileExt
	}
	return cmd
}

// writeInspection prints the summary, component table, option table and
// diagnostics of a parsed document.
func writeInspection(w io.Writer, doc *smileconf.Document, g *dataflow.Graph) {
	fmt.Fprintln(w, StyleTitle.Render(doc.Path))
	printKeyValue(w, "Files", fmt.Sprint(len(doc.Files())))
	printKeyValue(w, "Sections", fmt.Sprint(doc.Len()))
	printKeyValue(w, "Components", fmt.Sprint(len(g.Components)))
	printKeyValue(w, "Levels", fmt.Sprint(len(g.Levels)))
	fmt.Fprintln(w)

	if len(g.Components) > 0 {
		fmt.Fprintln(w, componentTable(g))
	}
	if opts := doc.CommandLineOptions(); len(opts) > 0 {
		fmt.Fprintln(w, optionTable(opts, doc.Overrides()))
	}

	for _, d := range doc.Diagnostics() {
		fmt.Fprintln(w, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(d.String()))
	}
	for _, warn := range g.Warnings {
		fmt.Fprintln(w, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(warn))
	}
}

// headerRow is the row index lipgloss tables pass for the header.
const headerRow = -1

func componentTable(g *dataflow.Graph) string {
	rows := make([][]string, 0, len(g.Components))
	for _, comp := range g.Components {
		rows = append(rows, []string{
			comp.Name,
			comp.Type,
			joinOrDash(g.LevelsReadBy(comp.Name)),
			joinOrDash(g.LevelsWrittenBy(comp.Name)),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleTableBorder).
		Headers("Component", "Type", "Reads", "Writes").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == headerRow:
				return styleTableHeader
			case col == 2:
				return styleReader
			case col == 3:
				return styleWriter
			}
			return lipgloss.NewStyle()
		})
	return t.Render()
}

func optionTable(opts []smileconf.CommandLineOption, overrides map[string]string) string {
	rows := make([][]string, 0, len(opts))
	for _, o := range opts {
		value := o.Default
		if v, ok := overrides[o.Long]; ok {
			value = v
		}
		short := o.Short
		if short == "" {
			short = "—"
		}
		rows = append(rows, []string{o.Long, short, o.Default, value})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleTableBorder).
		Headers("Option", "Short", "Default", "Value").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == headerRow {
				return styleTableHeader
			}
			if col == 3 {
				return StyleValue
			}
			return StyleDim
		})
	return t.Render()
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "—"
	}
	return strings.Join(items, ", ")
}
