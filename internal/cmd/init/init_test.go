package init

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-cli-collective/mori/internal/cmd/cmdutil"
	"github.com/open-cli-collective/mori/internal/config"
	"github.com/open-cli-collective/mori/internal/site"
)

func newOptions(t *testing.T) (*initOptions, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	var out bytes.Buffer
	return &initOptions{
		Globals:   cmdutil.Globals{ConfigPath: filepath.Join(dir, "mori.yml"), NoColor: true},
		sourceDir: filepath.Join(dir, "src"),
		buildDir:  filepath.Join(dir, "build"),
		noInput:   true,
		out:       &out,
	}, &out
}

func TestRunInit_NoInput(t *testing.T) {
	opts, out := newOptions(t)

	require.NoError(t, runInit(opts))

	cfg, err := config.Load(opts.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, opts.sourceDir, cfg.SourceDir)
	assert.Equal(t, opts.buildDir, cfg.BuildDir)

	assert.FileExists(t, filepath.Join(opts.sourceDir, "templates", "template.html"))
	assert.FileExists(t, filepath.Join(opts.sourceDir, "index.md"))
	assert.Contains(t, out.String(), "Configuration saved to")
	assert.Contains(t, out.String(), "mori build")
}

func TestRunInit_KeepsExistingFiles(t *testing.T) {
	opts, _ := newOptions(t)
	index := filepath.Join(opts.sourceDir, "index.md")
	require.NoError(t, os.MkdirAll(opts.sourceDir, 0755))
	require.NoError(t, os.WriteFile(index, []byte("mine"), 0644))

	require.NoError(t, runInit(opts))

	data, err := os.ReadFile(index)
	require.NoError(t, err)
	assert.Equal(t, "mine", string(data))
}

func TestRunInit_ExistingConfig(t *testing.T) {
	opts, _ := newOptions(t)
	require.NoError(t, os.WriteFile(opts.ConfigPath, []byte("source_dir: old\n"), 0644))

	err := runInit(opts)
	require.Error(t, err)
	assert.Equal(t, site.KindUsage, site.KindOf(err))
	assert.Contains(t, err.Error(), "--force")

	opts.force = true
	require.NoError(t, runInit(opts))
	cfg, err := config.Load(opts.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, opts.sourceDir, cfg.SourceDir)
}

func TestRunInit_InvalidDirs(t *testing.T) {
	opts, _ := newOptions(t)
	opts.buildDir = opts.sourceDir

	err := runInit(opts)
	require.Error(t, err)
	assert.Equal(t, site.KindConfig, site.KindOf(err))
	assert.NoFileExists(t, opts.ConfigPath)
}

func TestStarterSiteBuildsCleanly(t *testing.T) {
	opts, _ := newOptions(t)
	require.NoError(t, runInit(opts))

	cfg, err := config.Load(opts.ConfigPath)
	require.NoError(t, err)

	sc := cmdutil.NewScriptContext(cfg)
	defer sc.Close()

	summary, err := site.New(site.Options{
		SourceDir:    cfg.SourceDir,
		BuildDir:     cfg.BuildDir,
		TemplatesDir: cfg.TemplatesPath(),
		TemplatePath: cfg.TemplatePath(),
	}, sc, nil).WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).Run()
	require.NoError(t, err)
	assert.Empty(t, summary.Failures)

	data, err := os.ReadFile(filepath.Join(cfg.BuildDir, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "<title>Home</title>")
	assert.Contains(t, string(data), "<h1>Welcome</h1>")
}
