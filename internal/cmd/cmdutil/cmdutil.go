// Package cmdutil holds state and helpers shared by mori's commands.
package cmdutil

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/open-cli-collective/mori/internal/config"
	"github.com/open-cli-collective/mori/internal/site"
	"github.com/open-cli-collective/mori/internal/view"
	"github.com/open-cli-collective/mori/pkg/md"
	"github.com/open-cli-collective/mori/pkg/script"
)

// Global flag names registered on the root command.
const (
	FlagConfig  = "config"
	FlagNoColor = "no-color"
	FlagVerbose = "verbose"
)

// FlagOutput is the per-command output format flag.
const FlagOutput = "output"

// Globals are the persistent flags every command can read.
type Globals struct {
	ConfigPath string
	NoColor    bool
	Verbose    bool
}

// GlobalsFrom reads the persistent flags. An empty --config falls back to
// config.DefaultConfigPath.
func GlobalsFrom(cmd *cobra.Command) Globals {
	var g Globals
	g.ConfigPath, _ = cmd.Flags().GetString(FlagConfig)
	g.NoColor, _ = cmd.Flags().GetBool(FlagNoColor)
	g.Verbose, _ = cmd.Flags().GetBool(FlagVerbose)
	if g.ConfigPath == "" {
		g.ConfigPath = config.DefaultConfigPath()
	}
	return g
}

// LoadConfig loads mori.yml (if present) plus environment overrides.
func LoadConfig(g Globals) (*config.Config, error) {
	cfg, err := config.LoadWithEnv(g.ConfigPath)
	if err != nil {
		return nil, site.NewError(site.KindConfig, "load config", g.ConfigPath, err)
	}
	return cfg, nil
}

// NewLogger returns a text logger at info level, or debug when verbose.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewScriptContext creates the interpreter shared by a build, with the
// Markdown host functions registered. The caller must Close it.
func NewScriptContext(cfg *config.Config) *script.Context {
	var opts []script.Option
	if cfg.SafeScripts {
		opts = append(opts, script.WithSafeLibs())
	}
	sc := script.New(opts...)
	site.RegisterHost(sc, md.NewConverter(md.Options{
		Math:   cfg.MathEnabled(),
		Unsafe: cfg.UnsafeHTML,
	}))
	return sc
}

// AddOutputFlag registers --output on cmd, bound to target.
func AddOutputFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, FlagOutput, string(view.FormatTable),
		"output format: "+strings.Join(view.ValidFormats(), ", "))
}

// OutputFormat validates an --output value. Unknown formats are usage
// errors.
func OutputFormat(s string) (view.Format, error) {
	if err := view.ValidateFormat(s); err != nil {
		return "", site.NewError(site.KindUsage, "--"+FlagOutput, "", err)
	}
	if s == "" {
		return view.FormatTable, nil
	}
	return view.Format(s), nil
}

// UsageArgs wraps a positional-argument validator so its errors map to
// the usage exit code.
func UsageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return site.NewError(site.KindUsage, cmd.CommandPath(), "", err)
		}
		return nil
	}
}
