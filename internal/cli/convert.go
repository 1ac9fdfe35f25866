package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/conf2dot/pkg/errors"
	"github.com/matzehuels/conf2dot/pkg/pipeline"
	"github.com/matzehuels/conf2dot/pkg/render/nodelink"
)

// stdoutPath makes the converter write its output to standard output.
const stdoutPath = "-"

// convertOpts holds the flags shared by conversion commands.
type convertOpts struct {
	format     string
	omitLevels bool
	set        map[string]string
	engine     string
	tool       string
	timeout    time.Duration
	noCache    bool
}

func (o *convertOpts) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&o.format, "format", "f", pipeline.DefaultFormat, "output format: dot, json, or any Graphviz format (png, svg, pdf, ...)")
	flags.BoolVar(&o.omitLevels, "omit-levels", false, "do not include data memory levels in the graph")
	flags.StringToStringVar(&o.set, "set", nil, "set a command-line option of the config, e.g. --set inputfile=in.wav (repeatable)")
	flags.StringVar(&o.engine, "engine", pipeline.DefaultEngine, "image engine: exec (Graphviz dot program) or embedded")
	flags.StringVar(&o.tool, "tool", nodelink.DefaultTool, "Graphviz program used by the exec engine")
	flags.DurationVar(&o.timeout, "timeout", nodelink.DefaultTimeout, "maximum time for the Graphviz program")
	flags.BoolVar(&o.noCache, "no-cache", false, "disable the rendered image cache")
}

// pipelineOptions resolves flags against the loaded config.
func (c *CLI) pipelineOptions(cmd *cobra.Command, o convertOpts, input string) pipeline.Options {
	flags := cmd.Flags()
	return pipeline.Options{
		Input:      input,
		Overrides:  c.cfg.overrides(o.set),
		Format:     stringFlag(flags, "format", o.format, c.cfg.Format),
		OmitLevels: boolFlag(flags, "omit-levels", o.omitLevels, c.cfg.OmitLevels),
		Engine:     stringFlag(flags, "engine", o.engine, c.cfg.Engine),
		Tool:       stringFlag(flags, "tool", o.tool, c.cfg.Tool),
		Timeout:    durationFlag(flags, "timeout", o.timeout, c.cfg.Timeout),
		NoCache:    boolFlag(flags, "no-cache", o.noCache, c.cfg.NoCache),
		Logger:     c.Logger,
	}
}

// convertCommand creates the root conversion command.
func (c *CLI) convertCommand() *cobra.Command {
	var opts convertOpts

	cmd := &cobra.Command{
		Use:   "conf2dot <input> <output>",
		Short: "Visualize the data flow of openSMILE configuration files",
		Long: `conf2dot reads an openSMILE configuration file, follows its includes and
command-line option macros, and draws the data flow between components
and data memory levels as a Graphviz diagram.

The default output is DOT source. Any other format is rendered by Graphviz,
which must be installed and on the path unless --engine embedded is used.
Use "-" as output to write to standard output.`,
		Example: `  conf2dot MFCC12_0_D_A.conf mfcc.dot
  conf2dot MFCC12_0_D_A.conf mfcc.png --format png
  conf2dot MFCC12_0_D_A.conf mfcc.svg -f svg --omit-levels --set inputfile=speech.wav`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConvert(cmd, opts, args[0], args[1])
		},
	}
	opts.register(cmd)
	registerFlagCompletions(cmd)
	return cmd
}

func (c *CLI) runConvert(cmd *cobra.Command, o convertOpts, input, output string) error {
	ctx := cmd.Context()
	opts := c.pipelineOptions(cmd, o, input)

	runner := c.newRunner(ctx, opts.NoCache)
	defer runner.Close()

	// Fails on a missing layout tool before anything is parsed or written.
	if _, err := runner.Prepare(&opts); err != nil {
		return cliError(err)
	}

	var spinner *Spinner
	if opts.NeedsEngine() && output != stdoutPath {
		spinner = newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", opts.Format))
		spinner.Start()
	}
	result, err := runner.Execute(ctx, opts)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return cliError(err)
	}

	if output == stdoutPath {
		_, err := cmd.OutOrStdout().Write(result.Output)
		return err
	}
	if err := os.WriteFile(output, result.Output, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	printSuccess("Wrote %s", StyleHighlight.Render(output))
	printStats(result.Stats.Components, result.Stats.Levels, opts.NeedsEngine(), result.CacheHit)
	if n := len(result.Document.Diagnostics()) + result.Stats.Warnings; n > 0 {
		printWarning("%d warning(s), run \"conf2dot inspect %s\" for details", n, input)
	}
	return nil
}

// cliError hides the machine-readable code of pipeline errors from users
// while keeping the error chain intact.
func cliError(err error) error {
	if errors.GetCode(err) == "" {
		return err
	}
	return &userError{err: err}
}

type userError struct{ err error }

func (e *userError) Error() string { return errors.UserMessage(e.err) }

func (e *userError) Unwrap() error { return e.err }
