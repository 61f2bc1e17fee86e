// Command repwatch flags repetitive body movement in a stream of pose
// landmarks.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ayusman/repwatch/internal/config"
	"github.com/ayusman/repwatch/internal/logging"
	"github.com/ayusman/repwatch/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	dataDir    string
	logLevel   string
	devLog     bool
	out        io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{out: out}

	rootCmd := &cobra.Command{
		Use:          "repwatch",
		Short:        "Detects repetitive body movement from pose landmarks",
		SilenceUsage: true,
	}
	rootCmd.SetOut(out)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	pf.StringVar(&opts.dataDir, "data-dir", "", "directory holding the database and hooks (default ~/.repwatch)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&opts.devLog, "dev-log", false, "human-readable console logs")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newServeCmd(opts),
		newSessionsCmd(opts),
	)
	return rootCmd
}

// load reads the configuration file, the environment and the persistent
// flags, in that order of precedence from lowest to highest.
func (o *rootOptions) load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return config.Config{}, fmt.Errorf("environment: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.DataDir = o.dataDir
		if !flags.Changed("hooks-dir") {
			cfg.Hooks.Dir = cfg.DefaultHooksDir()
		}
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("dev-log") {
		cfg.Log.Development = o.devLog
	}
	return cfg, nil
}

func (o *rootOptions) logger(cfg config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Log.Level, cfg.Log.Development)
}

// openStore creates the data directory and opens the database in it.
func openStore(cfg config.Config) (*store.Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("initialize store: %w", err)
	}
	return st, nil
}
