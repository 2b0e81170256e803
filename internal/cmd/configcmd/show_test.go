package configcmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-cli-collective/mori/internal/cmd/cmdutil"
	"github.com/open-cli-collective/mori/internal/config"
	"github.com/open-cli-collective/mori/internal/view"
)

func newRenderer(format view.Format, buf *bytes.Buffer) *view.Renderer {
	r := view.NewRenderer(format, true)
	r.SetWriter(buf)
	return r
}

func TestRunShow_WithConfigFile(t *testing.T) {
	t.Setenv(config.EnvBuildDir, "")
	configPath := filepath.Join(t.TempDir(), "mori.yml")
	require.NoError(t, (&config.Config{SourceDir: "site", BuildDir: "build"}).Save(configPath))

	var buf bytes.Buffer
	require.NoError(t, runShow(newRenderer(view.FormatTable, &buf), cmdutil.Globals{ConfigPath: configPath, NoColor: true}))

	out := buf.String()
	assert.Contains(t, out, "Source:       site  (source: config)")
	assert.Contains(t, out, "Build:        build  (source: default)")
	assert.Contains(t, out, "Math:         true  (source: default)")
	assert.Contains(t, out, "Metrics file: -")
	assert.Contains(t, out, "Config file: "+configPath)
	assert.NotContains(t, out, "file not found")
}

func TestRunShow_EnvOverride(t *testing.T) {
	t.Setenv(config.EnvSourceDir, "from-env")

	var buf bytes.Buffer
	configPath := filepath.Join(t.TempDir(), "mori.yml")
	require.NoError(t, runShow(newRenderer(view.FormatTable, &buf), cmdutil.Globals{ConfigPath: configPath, NoColor: true}))

	assert.Contains(t, buf.String(), "from-env  (source: MORI_SOURCE_DIR)")
	assert.Contains(t, buf.String(), "(file not found)")
}

func TestRunShow_JSON(t *testing.T) {
	t.Setenv(config.EnvSourceDir, "")
	configPath := filepath.Join(t.TempDir(), "mori.yml")
	require.NoError(t, (&config.Config{SourceDir: "site", BuildDir: "out"}).Save(configPath))

	var buf bytes.Buffer
	require.NoError(t, runShow(newRenderer(view.FormatJSON, &buf), cmdutil.Globals{ConfigPath: configPath}))

	var rows []map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	got := map[string]map[string]string{}
	for _, row := range rows {
		got[row["setting"]] = row
	}
	assert.Equal(t, "site", got["source_dir"]["value"])
	assert.Equal(t, "config", got["source_dir"]["source"])
	assert.Equal(t, "true", got["math"]["value"])
	assert.Equal(t, configPath, got["config_file"]["value"])
	assert.Equal(t, "file", got["config_file"]["source"])
}

func TestRunShow_Plain(t *testing.T) {
	t.Setenv(config.EnvSourceDir, "")
	configPath := filepath.Join(t.TempDir(), "missing.yml")

	var buf bytes.Buffer
	require.NoError(t, runShow(newRenderer(view.FormatPlain, &buf), cmdutil.Globals{ConfigPath: configPath}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Contains(t, lines, "source_dir\tsrc\tdefault")
	assert.Contains(t, lines, "config_file\t"+configPath+"\tnot found")
}

func TestCmdShow_InvalidOutput(t *testing.T) {
	cmd := NewCmdShow()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--output", "yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}
