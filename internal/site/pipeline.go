// Package site builds a site: it mirrors the source tree into the build
// directory, materializes an HTML file from the template for every
// Markdown file, and expands the macros in it.
//
// Expansion runs two passes over each output file. The generator pass
// rewrites shorthand such as {{ markdown title }} into script macros bound
// to the Markdown file; the script pass evaluates every macro against the
// shared interpreter context. A macro that fails to evaluate is left in the
// output as written and reported; it never stops the build.
package site

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/open-cli-collective/mori/internal/metrics"
	"github.com/open-cli-collective/mori/pkg/macro"
	"github.com/open-cli-collective/mori/pkg/script"
)

// Log attribute keys.
const (
	KeyFile       = "file"
	KeyOutput     = "output"
	KeyRunID      = "run_id"
	KeyMode       = "mode"
	KeyDurationMS = "duration_ms"
)

// Mode selects which pipeline steps run.
type Mode string

const (
	ModeFull         Mode = "full"
	ModeTemplateOnly Mode = "template-only"
	ModeMacroOnly    Mode = "macro-only"
)

func (m Mode) templates() bool { return m != ModeMacroOnly }
func (m Mode) macros() bool    { return m != ModeTemplateOnly }

// Options configures a build.
type Options struct {
	SourceDir    string
	BuildDir     string
	TemplatesDir string
	TemplatePath string
	Mode         Mode
	Clean        bool
}

// Document is a text plus the Markdown file it is expanded for.
type Document struct {
	Path string
	Text string
}

// Reporter receives diagnostics for macros that failed to expand.
type Reporter interface {
	Diagnostic(d macro.Diagnostic)
}

// Failure is a diagnostic attributed to the Markdown file it came from.
type Failure struct {
	File       string
	Diagnostic macro.Diagnostic
}

// Summary describes a finished build.
type Summary struct {
	Files    int
	Macros   int
	Failures []Failure
	Duration time.Duration
}

// Expansion is the result of running both passes over a document.
type Expansion struct {
	Generated macro.Result
	Evaluated macro.Result
}

// Text is the fully expanded document.
func (e Expansion) Text() string {
	return e.Evaluated.Text
}

// Pipeline runs builds. It is not safe for concurrent use: files are
// processed one at a time against a single interpreter context.
type Pipeline struct {
	opts     Options
	script   *script.Context
	reporter Reporter
	logger   *slog.Logger
	recorder metrics.Recorder
}

// New creates a pipeline. sc must already have its host functions
// registered; it is shared by every file of every run.
func New(opts Options, sc *script.Context, reporter Reporter) *Pipeline {
	if opts.Mode == "" {
		opts.Mode = ModeFull
	}
	return &Pipeline{
		opts:     opts,
		script:   sc,
		reporter: reporter,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}
}

// WithLogger sets the logger used for progress messages.
func (p *Pipeline) WithLogger(l *slog.Logger) *Pipeline {
	if l != nil {
		p.logger = l
	}
	return p
}

// WithRecorder sets the metrics recorder.
func (p *Pipeline) WithRecorder(r metrics.Recorder) *Pipeline {
	if r != nil {
		p.recorder = r
	}
	return p
}

// Generate runs the generator pass, binding shorthand to doc.Path.
// Macros that are not generators are counted as passthroughs.
func (p *Pipeline) Generate(doc Document) macro.Result {
	res := macro.Expand(doc.Text, macro.GenerateFunc(doc.Path))
	passed := 0
	for _, o := range res.Outcomes {
		if macro.ParseGenerator(o.Span.Inner).Kind == macro.GeneratorUnrecognized {
			passed++
		}
	}
	p.recorder.AddMacros(metrics.PassGenerator, metrics.ResultExpanded, len(res.Outcomes)-passed)
	p.recorder.AddMacros(metrics.PassGenerator, metrics.ResultPassthrough, passed)
	return res
}

// Evaluate runs the script pass and reports each failed macro.
func (p *Pipeline) Evaluate(text string) macro.Result {
	res := macro.Expand(text, p.script.Eval)
	diags := res.Diagnostics()
	for _, d := range diags {
		if p.reporter != nil {
			p.reporter.Diagnostic(d)
		}
	}
	p.recorder.AddMacros(metrics.PassScript, metrics.ResultExpanded, len(res.Outcomes)-len(diags))
	p.recorder.AddMacros(metrics.PassScript, metrics.ResultFailed, len(diags))
	return res
}

// ExpandText runs both passes over an in-memory document.
func (p *Pipeline) ExpandText(doc Document) Expansion {
	gen := p.Generate(doc)
	return Expansion{Generated: gen, Evaluated: p.Evaluate(gen.Text)}
}

// ProcessFile materializes and expands the HTML output for one Markdown
// file. The returned expansion is empty in template-only mode.
func (p *Pipeline) ProcessFile(mdPath string) (Expansion, error) {
	out := OutputPath(mdPath)
	log := p.logger.With(slog.String(KeyFile, mdPath), slog.String(KeyOutput, out))

	if p.opts.Mode.templates() {
		log.Info("Templating file")
		if err := CopyFile(p.opts.TemplatePath, out); err != nil {
			return Expansion{}, NewError(KindIO, "copy template to", out, err)
		}
	}
	p.recorder.IncFile(string(p.opts.Mode))
	if !p.opts.Mode.macros() {
		return Expansion{}, nil
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return Expansion{}, NewError(KindIO, "read", out, err)
	}

	exp := p.ExpandText(Document{Path: mdPath, Text: string(data)})
	if n := len(exp.Evaluated.Diagnostics()); n > 0 {
		log.Warn("Macros left unexpanded", slog.Int("failed", n))
	} else {
		log.Debug("Expanded macros", slog.Int("macros", len(exp.Evaluated.Outcomes)))
	}

	if err := os.WriteFile(out, []byte(exp.Text()), 0644); err != nil {
		return Expansion{}, NewError(KindIO, "write", out, err)
	}
	return exp, nil
}

// Prepare checks the source directory, optionally cleans the build
// directory, creates it when missing and mirrors the source tree into it.
func (p *Pipeline) Prepare() error {
	if !isDir(p.opts.SourceDir) {
		return NewError(KindSetup, "source directory", p.opts.SourceDir, errors.New("does not exist"))
	}

	if p.opts.Clean {
		if _, err := os.Stat(p.opts.BuildDir); err == nil {
			p.logger.Info("Cleaning build directory", slog.String("dir", p.opts.BuildDir))
			if err := os.RemoveAll(p.opts.BuildDir); err != nil {
				return NewError(KindIO, "clean build directory", p.opts.BuildDir, err)
			}
		}
	}

	if !isDir(p.opts.BuildDir) {
		p.logger.Info("Build directory not found, creating it", slog.String("dir", p.opts.BuildDir))
		if err := os.MkdirAll(p.opts.BuildDir, 0755); err != nil {
			return NewError(KindIO, "create build directory", p.opts.BuildDir, err)
		}
	}

	if err := Mirror(p.opts.SourceDir, p.opts.BuildDir); err != nil {
		return NewError(KindIO, "copy source directory into", p.opts.BuildDir, err)
	}
	return nil
}

// Run performs a complete build. Any returned error is fatal; macro
// failures are reported through the Reporter and collected in the summary.
func (p *Pipeline) Run() (*Summary, error) {
	start := time.Now()
	p.logger.Info("Starting build", slog.String(KeyMode, string(p.opts.Mode)))

	if err := p.Prepare(); err != nil {
		return nil, err
	}

	if p.opts.Mode.templates() {
		info, err := os.Stat(p.opts.TemplatePath)
		if err != nil || info.IsDir() {
			return nil, NewError(KindSetup, "template file", p.opts.TemplatePath, errors.New("not found"))
		}
	}

	var skip []string
	if p.opts.TemplatesDir != "" {
		skip = append(skip, p.opts.TemplatesDir)
	}
	files, err := ListMarkdown(p.opts.BuildDir, skip...)
	if err != nil {
		return nil, NewError(KindIO, "list markdown files in", p.opts.BuildDir, err)
	}

	summary := &Summary{}
	for _, f := range files {
		exp, err := p.ProcessFile(f)
		if err != nil {
			return nil, err
		}
		summary.Files++
		summary.Macros += len(exp.Evaluated.Outcomes)
		for _, d := range exp.Evaluated.Diagnostics() {
			summary.Failures = append(summary.Failures, Failure{File: f, Diagnostic: d})
		}
	}

	summary.Duration = time.Since(start)
	p.recorder.ObserveBuildDuration(summary.Duration)
	p.logger.Info("Build finished",
		slog.Int("files", summary.Files),
		slog.Int("failed_macros", len(summary.Failures)),
		slog.Int64(KeyDurationMS, summary.Duration.Milliseconds()))
	return summary, nil
}

// StrictError returns a KindMacro error when the summary has failures.
func (s *Summary) StrictError() error {
	if s == nil || len(s.Failures) == 0 {
		return nil
	}
	return NewError(KindMacro, "build", "", fmt.Errorf("%w: %d in %s", ErrMacroFailures, len(s.Failures), relFiles(s.Failures)))
}

func relFiles(failures []Failure) string {
	seen := map[string]bool{}
	var files []string
	for _, f := range failures {
		if !seen[f.File] {
			seen[f.File] = true
			files = append(files, filepath.ToSlash(f.File))
		}
	}
	if len(files) == 1 {
		return files[0]
	}
	return fmt.Sprintf("%d files", len(files))
}
