package site

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-cli-collective/mori/internal/metrics"
	"github.com/open-cli-collective/mori/pkg/macro"
	"github.com/open-cli-collective/mori/pkg/md"
	"github.com/open-cli-collective/mori/pkg/script"
)

type recordingReporter struct {
	diags []macro.Diagnostic
}

func (r *recordingReporter) Diagnostic(d macro.Diagnostic) {
	r.diags = append(r.diags, d)
}

type fixture struct {
	src, build string
	reporter   *recordingReporter
	script     *script.Context
}

func newFixture(t *testing.T, template string, files map[string]string) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		src:      filepath.Join(root, "src"),
		build:    filepath.Join(root, "build"),
		reporter: &recordingReporter{},
		script:   script.New(),
	}
	t.Cleanup(f.script.Close)
	RegisterHost(f.script, md.NewConverter(md.DefaultOptions()))

	writeFile(t, filepath.Join(f.src, "templates", "template.html"), template)
	for name, content := range files {
		writeFile(t, filepath.Join(f.src, name), content)
	}
	return f
}

func (f *fixture) options(mode Mode) Options {
	return Options{
		SourceDir:    f.src,
		BuildDir:     f.build,
		TemplatesDir: filepath.Join(f.build, "templates"),
		TemplatePath: filepath.Join(f.build, "templates", "template.html"),
		Mode:         mode,
	}
}

func (f *fixture) pipeline(mode Mode) *Pipeline {
	return New(f.options(mode), f.script, f.reporter).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (f *fixture) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.build, rel))
	require.NoError(t, err)
	return string(data)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestRun_ExpandsGeneratorsFromMarkdownFile(t *testing.T) {
	f := newFixture(t,
		"<title>{{ markdown title }}</title>\n<main>{{ markdown content }}</main>\n",
		map[string]string{
			"index.md": "---\ntitle: Home\n---\n# Hello\n",
		})

	summary, err := f.pipeline(ModeFull).Run()
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Files)
	assert.Equal(t, 2, summary.Macros)
	assert.Empty(t, summary.Failures)
	assert.Empty(t, f.reporter.diags)
	assert.Equal(t, "<title>Home</title>\n<main><h1>Hello</h1>\n</main>\n", f.read(t, "index.html"))
}

func TestRun_ContentComesFromMarkdownNotTemplate(t *testing.T) {
	f := newFixture(t, "<body>{{ markdown content }}</body>", map[string]string{
		"page.md": "only *this* page",
	})

	_, err := f.pipeline(ModeFull).Run()
	require.NoError(t, err)

	out := f.read(t, "page.html")
	assert.Contains(t, out, "<em>this</em>")
	assert.NotContains(t, out, "<body><body>")
}

func TestRun_NestedDirectoriesAndMirroring(t *testing.T) {
	f := newFixture(t, "{{ markdown content }}", map[string]string{
		"index.md":          "# Root",
		"docs/guide.md":     "# Guide",
		"assets/style.css":  "body{}",
		"docs/img/logo.txt": "logo",
	})

	summary, err := f.pipeline(ModeFull).Run()
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Files)

	assert.Contains(t, f.read(t, "docs/guide.html"), "<h1>Guide</h1>")
	assert.Equal(t, "body{}", f.read(t, "assets/style.css"))
	assert.Equal(t, "logo", f.read(t, "docs/img/logo.txt"))
	assert.NoFileExists(t, filepath.Join(f.build, "templates", "template.html.html"))
}

func TestRun_TemplatesDirectoryIsNotProcessed(t *testing.T) {
	f := newFixture(t, "{{ markdown content }}", map[string]string{
		"index.md":           "# Root",
		"templates/notes.md": "template notes",
	})

	summary, err := f.pipeline(ModeFull).Run()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Files)
	assert.NoFileExists(t, filepath.Join(f.build, "templates", "notes.html"))
}

func TestRun_FailedMacroIsLeftVerbatimAndReported(t *testing.T) {
	f := newFixture(t, "<h1>{{ markdown title }}</h1>\n<p>{{ 1 + }}</p>\n<p>{{ \"ok\" }}</p>\n",
		map[string]string{
			"index.md": "---\ntitle: T\n---\nbody",
		})

	summary, err := f.pipeline(ModeFull).Run()
	require.NoError(t, err)

	assert.Equal(t, "<h1>T</h1>\n<p>{{ 1 + }}</p>\n<p>ok</p>\n", f.read(t, "index.html"))

	require.Len(t, f.reporter.diags, 1)
	assert.Equal(t, 2, f.reporter.diags[0].Line)
	assert.Equal(t, "{{ 1 + }}", f.reporter.diags[0].Macro)

	require.Len(t, summary.Failures, 1)
	assert.Equal(t, filepath.Join(f.build, "index.md"), summary.Failures[0].File)
}

func TestRun_LinesAfterMultiLineGeneratorMatchTemplate(t *testing.T) {
	f := newFixture(t, "<main>{{\n  markdown content\n}}</main>\n<p>{{ error('boom') }}</p>\n",
		map[string]string{"index.md": "# Hi\n"})

	summary, err := f.pipeline(ModeFull).Run()
	require.NoError(t, err)

	assert.Equal(t, "<main><h1>Hi</h1>\n</main>\n<p>{{ error('boom') }}</p>\n", f.read(t, "index.html"))
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, 4, summary.Failures[0].Diagnostic.Line)
	assert.Equal(t, "{{ error('boom') }}", summary.Failures[0].Diagnostic.Macro)
}

func TestRun_LeadingThematicBreakRenders(t *testing.T) {
	f := newFixture(t, "{{ markdown content }}", map[string]string{
		"a.md": "---\n\nText after rule\n",
	})

	summary, err := f.pipeline(ModeFull).Run()
	require.NoError(t, err)
	assert.Empty(t, summary.Failures)
	assert.Equal(t, "<hr>\n<p>Text after rule</p>\n", f.read(t, "a.html"))
}

func TestRun_MissingFieldIsReported(t *testing.T) {
	f := newFixture(t, "{{ markdown author }}", map[string]string{
		"index.md": "---\ntitle: T\n---\n",
	})

	summary, err := f.pipeline(ModeFull).Run()
	require.NoError(t, err)
	require.Len(t, summary.Failures, 1)
	assert.Contains(t, summary.Failures[0].Diagnostic.Err.Error(), "author")
	assert.Contains(t, f.read(t, "index.html"), "markdown_field(")
}

func TestRun_UnrecognizedGeneratorPassesToScript(t *testing.T) {
	f := newFixture(t, "{{ string.upper(\"x\") }}", map[string]string{"a.md": ""})

	_, err := f.pipeline(ModeFull).Run()
	require.NoError(t, err)
	assert.Equal(t, "X", f.read(t, "a.html"))
}

func TestRun_GlobalsPersistAcrossFiles(t *testing.T) {
	f := newFixture(t, "{{ count = (count or 0) + 1; return tostring(count) }}", map[string]string{
		"a.md": "",
		"b.md": "",
	})

	_, err := f.pipeline(ModeFull).Run()
	require.NoError(t, err)
	assert.Equal(t, "1", f.read(t, "a.html"))
	assert.Equal(t, "2", f.read(t, "b.html"))
}

func TestRun_TemplateOnly(t *testing.T) {
	f := newFixture(t, "<p>{{ markdown content }}</p>", map[string]string{"index.md": "# Hi"})

	summary, err := f.pipeline(ModeTemplateOnly).Run()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Files)
	assert.Zero(t, summary.Macros)
	assert.Equal(t, "<p>{{ markdown content }}</p>", f.read(t, "index.html"))
}

func TestRun_MacroOnlyExpandsExistingOutput(t *testing.T) {
	f := newFixture(t, "unused", map[string]string{
		"index.md":   "# Hi",
		"index.html": "<p>{{ markdown content }}</p>",
	})

	_, err := f.pipeline(ModeMacroOnly).Run()
	require.NoError(t, err)
	assert.Equal(t, "<p><h1>Hi</h1>\n</p>", f.read(t, "index.html"))
}

func TestRun_MacroOnlyWithoutOutputIsIOError(t *testing.T) {
	f := newFixture(t, "unused", map[string]string{"index.md": "# Hi"})

	_, err := f.pipeline(ModeMacroOnly).Run()
	require.Error(t, err)
	assert.Equal(t, KindIO, KindOf(err))
}

func TestRun_MissingSourceDir(t *testing.T) {
	root := t.TempDir()
	sc := script.New()
	defer sc.Close()

	p := New(Options{
		SourceDir:    filepath.Join(root, "nope"),
		BuildDir:     filepath.Join(root, "build"),
		TemplatePath: filepath.Join(root, "build", "templates", "template.html"),
	}, sc, nil).WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := p.Run()
	require.Error(t, err)
	assert.Equal(t, KindSetup, KindOf(err))
	assert.Equal(t, 4, ExitCode(err))
}

func TestRun_MissingTemplate(t *testing.T) {
	f := newFixture(t, "x", map[string]string{"index.md": ""})
	opts := f.options(ModeFull)
	opts.TemplatePath = filepath.Join(f.build, "templates", "missing.html")

	_, err := New(opts, f.script, f.reporter).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Run()
	require.Error(t, err)
	assert.Equal(t, KindSetup, KindOf(err))
	assert.Contains(t, err.Error(), "missing.html")
}

func TestRun_CreatesBuildDirAndLogs(t *testing.T) {
	f := newFixture(t, "x", map[string]string{"index.md": ""})

	var logs bytes.Buffer
	_, err := New(f.options(ModeFull), f.script, f.reporter).
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))).
		Run()
	require.NoError(t, err)

	assert.DirExists(t, f.build)
	assert.Contains(t, logs.String(), "Build directory not found")
	assert.Contains(t, logs.String(), "Templating file")
	assert.Contains(t, logs.String(), "file="+filepath.Join(f.build, "index.md"))
}

func TestRun_CleanRemovesStaleFiles(t *testing.T) {
	f := newFixture(t, "x", map[string]string{"index.md": ""})
	writeFile(t, filepath.Join(f.build, "stale.html"), "old")

	opts := f.options(ModeFull)
	opts.Clean = true
	_, err := New(opts, f.script, f.reporter).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Run()
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(f.build, "stale.html"))
	assert.FileExists(t, filepath.Join(f.build, "index.html"))
}

func TestRun_RecordsMetrics(t *testing.T) {
	f := newFixture(t, "{{ markdown content }} {{ nope() }}", map[string]string{
		"a.md": "a",
		"b.md": "b",
	})
	rec := metrics.NewPrometheusRecorder(prometheus.NewRegistry())

	_, err := f.pipeline(ModeFull).WithRecorder(rec).Run()
	require.NoError(t, err)

	families, err := rec.Registry().Gather()
	require.NoError(t, err)
	got := map[string]bool{}
	for _, mf := range families {
		got[mf.GetName()] = true
	}
	assert.True(t, got["mori_files_processed_total"])
	assert.True(t, got["mori_macros_total"])
	assert.True(t, got["mori_build_duration_seconds"])

	n, err := testutil.GatherAndCount(rec.Registry(), "mori_files_processed_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = testutil.GatherAndCount(rec.Registry(), "mori_macros_total")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestGenerate_CountsPassthroughsSeparately(t *testing.T) {
	rec := metrics.NewPrometheusRecorder(prometheus.NewRegistry())
	p := New(Options{}, nil, nil).WithRecorder(rec)

	p.Generate(Document{Path: "a.md", Text: "{{ markdown content }} {{ markdown title }} {{ 1 }}"})

	families, err := rec.Registry().Gather()
	require.NoError(t, err)
	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "mori_macros_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			var pass, result string
			for _, l := range m.GetLabel() {
				switch l.GetName() {
				case "pass":
					pass = l.GetValue()
				case "result":
					result = l.GetValue()
				}
			}
			counts[pass+"/"+result] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{
		metrics.PassGenerator + "/" + metrics.ResultExpanded:    2,
		metrics.PassGenerator + "/" + metrics.ResultPassthrough: 1,
	}, counts)
}

func TestExpandText(t *testing.T) {
	sc := script.New()
	defer sc.Close()
	sc.Register("shout", func(args []string) (string, error) {
		return strings.ToUpper(args[0]) + "!", nil
	})

	p := New(Options{}, sc, nil)
	exp := p.ExpandText(Document{Path: "x.md", Text: `a {{ shout("hi") }} b`})

	assert.Equal(t, "a HI! b", exp.Text())
	assert.Len(t, exp.Generated.Outcomes, 1)
	assert.Equal(t, `a {{ shout("hi") }} b`, exp.Generated.Text)
}

func TestSummary_StrictError(t *testing.T) {
	var s *Summary
	assert.NoError(t, s.StrictError())
	assert.NoError(t, (&Summary{Files: 3}).StrictError())

	s = &Summary{Failures: []Failure{
		{File: "a.md"},
		{File: "a.md"},
	}}
	err := s.StrictError()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMacroFailures)
	assert.Equal(t, KindMacro, KindOf(err))
	assert.Contains(t, err.Error(), "2 in a.md")

	s.Failures = append(s.Failures, Failure{File: "b.md"})
	assert.Contains(t, s.StrictError().Error(), "3 in 2 files")
}
