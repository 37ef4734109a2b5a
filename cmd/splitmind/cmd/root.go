package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/splitmind/internal/catalog"
	"github.com/hugo-lorenzo-mato/splitmind/internal/config"
	"github.com/hugo-lorenzo-mato/splitmind/internal/logging"
)

// Version info - set via SetVersion()
var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersion records build information for the version command.
func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// Execute runs the CLI with os.Args.
func Execute() error {
	root, opts := newRootCmd()
	defer opts.close()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), newStyles(false).err.Render("error: ")+err.Error())
		return err
	}
	return nil
}

// rootOptions carries the persistent flags and the state loaded before every
// subcommand runs.
type rootOptions struct {
	cfgFile   string
	envFile   string
	logLevel  string
	logFormat string
	noColor   bool

	v       *viper.Viper
	cfg     *config.Config
	logger  *logging.Logger
	catalog *catalog.Catalog
	styles  styles
	closers []io.Closer
}

// newRootCmd builds the command tree. Callers close the returned options
// once the command has run.
func newRootCmd() (*cobra.Command, *rootOptions) {
	opts := &rootOptions{v: viper.New()}

	root := &cobra.Command{
		Use:   "splitmind",
		Short: "Manage the SplitMind orchestrator settings",
		Long: `splitmind edits and serves the orchestrator configuration: concurrency,
merge behaviour, and the language-model provider, credential and model used
to generate plans.

Settings live in a pluggable store (file, sqlite, memory, or a remote
orchestrator over HTTP) selected in .splitmind.yaml or with SPLITMIND_* env vars.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default: .splitmind.yaml)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format (auto, text, json)")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	// Bind flags to viper (errors are nil when flag exists)
	_ = opts.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = opts.v.BindPFlag("log.format", flags.Lookup("log-format"))

	root.AddCommand(
		newServeCmd(opts),
		newConfigCmd(opts),
		newProvidersCmd(opts),
		newModelsCmd(opts),
		newVersionCmd(),
	)
	return root, opts
}

func (o *rootOptions) init(cmd *cobra.Command) error {
	o.styles = newStyles(o.noColor)

	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", o.envFile, err)
		}
	}

	loader := config.NewLoaderWithViper(o.v)
	if o.cfgFile != "" {
		loader.WithConfigFile(o.cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	o.cfg = cfg

	logCfg := logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cmd.ErrOrStderr()}
	if cfg.Log.File != "" {
		f, err := logging.OpenFile(cfg.Log.File)
		if err != nil {
			return err
		}
		o.closers = append(o.closers, f)
		logCfg.Output = f
	}
	o.logger = logging.New(logCfg)

	if cfg.Catalog.File != "" {
		cat, err := catalog.LoadFile(cfg.Catalog.File)
		if err != nil {
			return err
		}
		o.catalog = cat
	} else {
		o.catalog = catalog.Default()
	}

	if used := loader.ConfigFile(); used != "" {
		o.logger.Debug("configuration loaded", "file", used)
	}
	return nil
}

func (o *rootOptions) close() {
	for _, c := range o.closers {
		_ = c.Close()
	}
	o.closers = nil
}
