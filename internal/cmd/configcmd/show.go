package configcmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/open-cli-collective/mori/internal/cmd/cmdutil"
	"github.com/open-cli-collective/mori/internal/config"
	"github.com/open-cli-collective/mori/internal/view"
)

// NewCmdShow creates the config show command.
func NewCmdShow() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long:  `Display the effective mori configuration and where each value comes from.`,
		Example: `  # Show current config
  mori config show

  # Show it as JSON
  mori config show --output json`,
		Args: cmdutil.UsageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			g := cmdutil.GlobalsFrom(cmd)
			format, err := cmdutil.OutputFormat(output)
			if err != nil {
				return err
			}
			r := view.NewRenderer(format, g.NoColor)
			r.SetWriter(cmd.OutOrStdout())
			return runShow(r, g)
		},
	}
	cmdutil.AddOutputFlag(cmd, &output)

	return cmd
}

type setting struct {
	label  string
	key    string
	value  string
	source string
}

func runShow(r *view.Renderer, g cmdutil.Globals) error {
	// Load file config (may not exist)
	fileCfg, fileErr := config.Load(g.ConfigPath)
	if fileErr != nil {
		fileCfg = config.Default()
	}

	cfg, err := cmdutil.LoadConfig(g)
	if err != nil {
		return err
	}

	defaults := config.Default()
	field := func(label, key, value, fileValue, defaultValue, envVar string) setting {
		source := "config"
		switch {
		case envVar != "" && os.Getenv(envVar) != "" && os.Getenv(envVar) == value:
			source = envVar
		case fileErr != nil || fileValue == defaultValue:
			source = "default"
		}
		return setting{label: label, key: key, value: value, source: source}
	}

	settings := []setting{
		field("Source", "source_dir", cfg.SourceDir, fileCfg.SourceDir, defaults.SourceDir, config.EnvSourceDir),
		field("Build", "build_dir", cfg.BuildDir, fileCfg.BuildDir, defaults.BuildDir, config.EnvBuildDir),
		field("Templates", "templates_dir", cfg.TemplatesPath(), fileCfg.TemplatesPath(), defaults.TemplatesPath(), config.EnvTemplatesDir),
		field("Template", "template", cfg.TemplateName, fileCfg.TemplateName, defaults.TemplateName, ""),
		field("Math", "math", strconv.FormatBool(cfg.MathEnabled()), strconv.FormatBool(fileCfg.MathEnabled()), "true", ""),
		field("Unsafe HTML", "unsafe_html", strconv.FormatBool(cfg.UnsafeHTML), strconv.FormatBool(fileCfg.UnsafeHTML), "false", ""),
		field("Safe scripts", "safe_scripts", strconv.FormatBool(cfg.SafeScripts), strconv.FormatBool(fileCfg.SafeScripts), "false", ""),
		field("Metrics file", "metrics_file", cfg.MetricsFile, fileCfg.MetricsFile, "", config.EnvMetricsFile),
	}

	if r.Format() != view.FormatTable {
		fileSource := "file"
		if fileErr != nil {
			fileSource = "not found"
		}
		rows := make([][]string, 0, len(settings)+1)
		for _, st := range settings {
			rows = append(rows, []string{st.key, st.value, st.source})
		}
		rows = append(rows, []string{"config_file", g.ConfigPath, fileSource})
		r.RenderTable([]string{"SETTING", "VALUE", "SOURCE"}, rows)
		return nil
	}

	w := r.Writer()
	bold := color.New(color.Bold)
	dim := color.New(color.Faint)
	for _, st := range settings {
		_, _ = bold.Fprintf(w, "%-14s", st.label+":")
		if st.value == "" {
			_, _ = dim.Fprintln(w, "-")
			continue
		}
		fmt.Fprint(w, st.value)
		_, _ = dim.Fprintf(w, "  (source: %s)\n", st.source)
	}

	fmt.Fprintln(w)
	_, _ = dim.Fprintf(w, "Config file: %s\n", g.ConfigPath)
	if fileErr != nil {
		_, _ = dim.Fprintln(w, "(file not found)")
	}

	return nil
}
