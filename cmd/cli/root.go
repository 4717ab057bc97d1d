// Package cli implements the safety-admin command line tool.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/touristsafety/internal/bootstrap"
	"github.com/turtacn/touristsafety/internal/config"
	"github.com/turtacn/touristsafety/internal/infrastructure/monitoring"
	"github.com/turtacn/touristsafety/pkg/logger"
)

// Version is set at build time with -ldflags "-X .../cmd/cli.Version=...".
var Version = "dev"

type rootOptions struct {
	configFile string
	verbose    bool
	out        io.Writer
}

// NewRootCommand builds the safety-admin command tree writing results to out.
// NewRootCommand 构建 safety-admin 命令树。
func NewRootCommand(out io.Writer) *cobra.Command {
	opts := &rootOptions{out: out}
	root := &cobra.Command{
		Use:   "safety-admin",
		Short: "Administer the tourist safety service",
		Long: `safety-admin trains and inspects the safety model, scores tourists offline,
manages trip registrations and issues admin tokens for the HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "path to the config file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(
		newTrainCommand(opts),
		newGenerateCommand(opts),
		newPredictCommand(opts),
		newTripCommand(opts),
		newCacheCommand(opts),
		newTokenCommand(opts),
		newVersionCommand(opts),
	)
	return root
}

// Execute is the main entry point for the CLI application.
func Execute() {
	if err := NewRootCommand(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	return config.NewLoader(o.configFile, nil).Load()
}

func (o *rootOptions) logger(cfg *config.Config) (logger.Logger, error) {
	if !o.verbose {
		return logger.NewNoopLogger(), nil
	}
	return monitoring.NewZapLogger(&config.LogConfig{Level: cfg.Log.Level, Format: "console"})
}

// withComponents loads the configuration, wires the components and runs fn.
func (o *rootOptions) withComponents(ctx context.Context, opts bootstrap.Options, fn func(*bootstrap.Components) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	log, err := o.logger(cfg)
	if err != nil {
		return err
	}
	comps, err := bootstrap.Build(ctx, cfg, log, opts)
	if err != nil {
		return err
	}
	defer comps.Close()
	return fn(comps)
}

func (o *rootOptions) printJSON(v interface{}) error {
	return writeJSON(o.out, v)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
