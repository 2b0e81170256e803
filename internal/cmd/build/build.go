// Package build provides the build command.
package build

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/open-cli-collective/mori/internal/cmd/cmdutil"
	"github.com/open-cli-collective/mori/internal/config"
	"github.com/open-cli-collective/mori/internal/metrics"
	"github.com/open-cli-collective/mori/internal/site"
	"github.com/open-cli-collective/mori/internal/view"
	"github.com/open-cli-collective/mori/internal/watch"
)

type buildOptions struct {
	cmdutil.Globals

	sourceDir    string
	buildDir     string
	templatesDir string
	metricsFile  string
	templateOnly bool
	macroOnly    bool
	clean        bool
	strict       bool
	watch        bool
	output       string

	stdout io.Writer
	stderr io.Writer
}

// NewCmdBuild creates the build command.
func NewCmdBuild() *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the site",
		Long: `Build the site from the source directory.

The source directory is copied into the build directory. Every Markdown
file then gets an HTML file next to it, made from the template, and the
macros in that file are expanded. Macros that fail are reported and left
in the output as written.`,
		Example: `  # Build with mori.yml settings
  mori build

  # Build from another directory and fail on macro errors
  mori build --source site --build public --strict

  # Rebuild on every change
  mori build --watch

  # Print the build summary as JSON
  mori build --output json`,
		Args: cmdutil.UsageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Globals = cmdutil.GlobalsFrom(cmd)
			opts.stdout = cmd.OutOrStdout()
			opts.stderr = cmd.ErrOrStderr()

			cfg, err := cmdutil.LoadConfig(opts.Globals)
			if err != nil {
				return err
			}
			applyFlags(cmd, opts, cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBuild(ctx, opts, cfg)
		},
	}

	cmd.Flags().StringVar(&opts.sourceDir, "source", "", "source directory (default from config: src)")
	cmd.Flags().StringVar(&opts.buildDir, "build", "", "build directory (default from config: build)")
	cmd.Flags().StringVar(&opts.templatesDir, "templates", "", "templates directory (default: <build>/templates)")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file after each build")
	cmd.Flags().BoolVar(&opts.templateOnly, "template-only", false, "only create HTML files from the template")
	cmd.Flags().BoolVar(&opts.macroOnly, "macro-only", false, "only expand macros in existing HTML files")
	cmd.Flags().BoolVar(&opts.clean, "clean", false, "remove the build directory first")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "exit with an error when any macro fails")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "rebuild when the source directory changes")
	cmdutil.AddOutputFlag(cmd, &opts.output)
	cmd.MarkFlagsMutuallyExclusive("template-only", "macro-only")

	return cmd
}

// applyFlags overrides config values with flags the user set explicitly.
func applyFlags(cmd *cobra.Command, opts *buildOptions, cfg *config.Config) {
	if cmd.Flags().Changed("source") {
		cfg.SourceDir = opts.sourceDir
	}
	if cmd.Flags().Changed("build") {
		cfg.BuildDir = opts.buildDir
	}
	if cmd.Flags().Changed("templates") {
		cfg.TemplatesDir = opts.templatesDir
	}
	if cmd.Flags().Changed("metrics-file") {
		cfg.MetricsFile = opts.metricsFile
	}
	if cmd.Flags().Changed("clean") {
		cfg.Clean = opts.clean
	}
}

func (o *buildOptions) mode() site.Mode {
	switch {
	case o.templateOnly:
		return site.ModeTemplateOnly
	case o.macroOnly:
		return site.ModeMacroOnly
	default:
		return site.ModeFull
	}
}

func runBuild(ctx context.Context, opts *buildOptions, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return site.NewError(site.KindConfig, "invalid config", "", err)
	}

	format, err := cmdutil.OutputFormat(opts.output)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger := cmdutil.NewLogger(opts.stderr, opts.Verbose).With(slog.String(site.KeyRunID, runID))

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	var prom *metrics.PrometheusRecorder
	if cfg.MetricsFile != "" {
		prom = metrics.NewPrometheusRecorder(prometheus.NewRegistry())
		recorder = prom
	}

	renderer := view.NewRenderer(format, opts.NoColor)
	renderer.SetWriter(opts.stdout)

	// JSON output owns stdout, so diagnostics move to stderr.
	reporter := view.NewRenderer(view.FormatTable, opts.NoColor)
	reporter.SetWriter(opts.stdout)
	if format == view.FormatJSON {
		reporter.SetWriter(opts.stderr)
	}

	sc := cmdutil.NewScriptContext(cfg)
	defer sc.Close()

	pipeline := site.New(site.Options{
		SourceDir:    cfg.SourceDir,
		BuildDir:     cfg.BuildDir,
		TemplatesDir: cfg.TemplatesPath(),
		TemplatePath: cfg.TemplatePath(),
		Mode:         opts.mode(),
		Clean:        cfg.Clean,
	}, sc, reporter).WithLogger(logger).WithRecorder(recorder)

	build := func() (*site.Summary, error) {
		summary, err := pipeline.Run()
		if prom != nil {
			if werr := prom.WriteTextfile(cfg.MetricsFile); werr != nil {
				logger.Warn("Failed to write metrics", "path", cfg.MetricsFile, "error", werr)
			}
		}
		if err != nil {
			return nil, err
		}
		if err := renderSummary(renderer, summary); err != nil {
			return nil, err
		}
		return summary, nil
	}

	summary, err := build()
	if err != nil {
		return err
	}
	if !opts.watch {
		if opts.strict {
			return summary.StrictError()
		}
		return nil
	}

	w, err := watch.New(cfg.SourceDir, watch.WithLogger(logger))
	if err != nil {
		return site.NewError(site.KindSetup, "watch", cfg.SourceDir, err)
	}
	defer func() { _ = w.Close() }()

	logger.Info("Watching for changes", slog.String("dir", cfg.SourceDir))
	return w.Run(ctx, func(context.Context) error {
		_, err := build()
		return err
	})
}

type summaryJSON struct {
	Files      int           `json:"files"`
	Macros     int           `json:"macros"`
	DurationMS int64         `json:"duration_ms"`
	Failures   []failureJSON `json:"failures"`
}

type failureJSON struct {
	File  string `json:"file"`
	Line  int    `json:"line"`
	Macro string `json:"macro"`
	Error string `json:"error"`
}

func renderSummary(r *view.Renderer, s *site.Summary) error {
	switch r.Format() {
	case view.FormatJSON:
		out := summaryJSON{
			Files:      s.Files,
			Macros:     s.Macros,
			DurationMS: s.Duration.Milliseconds(),
			Failures:   make([]failureJSON, 0, len(s.Failures)),
		}
		for _, f := range s.Failures {
			out.Failures = append(out.Failures, failureJSON{
				File:  f.File,
				Line:  f.Diagnostic.Line,
				Macro: f.Diagnostic.Macro,
				Error: f.Diagnostic.Err.Error(),
			})
		}
		return r.RenderJSON(out)
	case view.FormatPlain:
		r.RenderText(fmt.Sprintf("files=%d macros=%d failed=%d", s.Files, s.Macros, len(s.Failures)))
		r.RenderTable(nil, failureRows(s, 0))
		return nil
	}

	if len(s.Failures) == 0 {
		r.Success(fmt.Sprintf("Built %d file(s), %d macro(s) expanded", s.Files, s.Macros))
		return nil
	}
	r.Error(fmt.Sprintf("Built %d file(s), %d of %d macro(s) failed", s.Files, len(s.Failures), s.Macros))
	r.RenderTable([]string{"FILE", "LINE", "MACRO"}, failureRows(s, 60))
	return nil
}

// failureRows lists failures as table rows. Macros longer than width are
// truncated unless width is zero.
func failureRows(s *site.Summary, width int) [][]string {
	rows := make([][]string, 0, len(s.Failures))
	for _, f := range s.Failures {
		m := f.Diagnostic.Macro
		if width > 0 {
			m = view.Truncate(m, width)
		}
		rows = append(rows, []string{f.File, strconv.Itoa(f.Diagnostic.Line), m})
	}
	return rows
}
