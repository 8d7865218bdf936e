package main

import (
	"fmt"

	"github.com/a-poor/cowdb/db"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries the state shared by every command.
type app struct {
	configPath string
	flags      Config // raw flag values; only changed flags are applied
	cfg        Config
	log        *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "cowdb",
		Short: "A copy-on-write key-value store in a single file",
		Long: "cowdb stores string keys and byte values in an immutable binary search tree,\n" +
			"appended to a single file. Every command works on the file named by --db.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				a.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "path to a YAML config file")
	pf.StringVar(&a.flags.Path, "db", "", "path to the store file (default \"cowdb.db\")")
	pf.BoolVar(&a.flags.Compress, "compress", false, "snappy-compress value records")
	pf.StringVar(&a.flags.LogLevel, "log-level", "", "log level: debug, info, warn or error (default \"warn\")")

	root.AddCommand(
		a.getCmd(),
		a.setCmd(),
		a.deleteCmd(),
		a.lenCmd(),
		a.dumpCmd(),
		a.statsCmd(),
		a.checkCmd(),
		a.importCmd(),
		a.serveCmd(),
	)
	return root
}

// setup resolves the configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg := DefaultConfig()
	if a.configPath != "" {
		var err error
		if cfg, err = LoadConfig(a.configPath); err != nil {
			return err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Path = a.flags.Path
	}
	if flags.Changed("compress") {
		cfg.Compress = a.flags.Compress
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.flags.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	log, err := newLogger(cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.log = log
	return nil
}

// open opens the configured store.
func (a *app) open() (*db.DB, error) {
	d, err := db.Open(a.cfg.Path,
		db.WithLogger(a.log),
		db.WithCompression(a.cfg.Compress),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", a.cfg.Path, err)
	}
	return d, nil
}

// withDB opens the store, runs fn and closes the store.
func (a *app) withDB(fn func(d *db.DB) error) (err error) {
	d, err := a.open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := d.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(d)
}
