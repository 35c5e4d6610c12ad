package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pevans/booksrc/config"
	"github.com/pevans/booksrc/notify"
	"github.com/pevans/booksrc/replace"
	"github.com/pevans/booksrc/sources"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries the resolved configuration shared by every command.
type app struct {
	configPath string
	envFile    string
	dsn        string
	logLevel   string

	cfg    *config.FileConfig
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "booksrc",
		Short: "Import, migrate and render book sources",
		Long: `booksrc manages book source definitions for a web-novel reader.

It imports legacy and current source documents, upgrades legacy extraction
rules and URL templates, manages replace rules and renders chapter text.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (default ~/.booksrc/config.yaml)")
	flags.StringVar(&a.envFile, "env-file", ".env", "Env file loaded before the config")
	flags.StringVar(&a.dsn, "db", "", "SQLite database path (overrides config and "+config.EnvDSN+")")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newImportCmd(a),
		newSourcesCmd(a),
		newMigrateCmd(),
		newRenderCmd(a),
		newReplaceCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
	)
	return root
}

// load resolves configuration in order: defaults, config file, environment,
// flags.
func (a *app) load() error {
	if err := config.LoadEnvFile(a.envFile); err != nil {
		return err
	}

	path := a.configPath
	if path == "" {
		var err error
		if path, err = config.DefaultConfigPath(); err != nil {
			return err
		}
	}

	cfg, err := config.LoadConfigFile(path)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return err
	}
	if a.dsn != "" {
		cfg.Storage.DSN = a.dsn
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	notify.SetupLogger(cfg.Log.Level, cfg.Log.Console)
	a.cfg = cfg
	a.logger = log.Logger
	return nil
}

func (a *app) openSourceStore() (*sources.SourceStore, error) {
	store, err := sources.NewSourceStore(a.cfg.Storage.DSN, sources.NewMapper(a.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open source store: %w", err)
	}
	return store, nil
}

func (a *app) openRuleStore() (*replace.Store, error) {
	store, err := replace.NewStore(a.cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open replace rule store: %w", err)
	}
	return store, nil
}

func (a *app) openConfigStore() (*config.ConfigStore, error) {
	store, err := config.NewConfigStore(a.cfg.Storage.DSN, a.cfg.Reader.Defaults())
	if err != nil {
		return nil, fmt.Errorf("failed to open config store: %w", err)
	}
	return store, nil
}

// readInput reads the named file, or stdin when name is empty or "-".
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "" || name == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}
