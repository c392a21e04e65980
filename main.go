package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/greenthumb-app/greenthumb/pkg/config"
	"github.com/greenthumb-app/greenthumb/pkg/logging"
)

// Version is set at build time via ldflags
var Version = "dev"

// app carries what every command needs once configuration is loaded.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "greenthumb",
		Short: "Plant identification, care guides and garden reminders",
		Long: `greenthumb identifies plants from photos, fetches care guides, diagnoses
problems, keeps a garden of adopted plants with watering and fertilizing
reminders, and answers gardening questions in a chat.

Running without a subcommand starts the server.`,
		Version:           Version,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.load() },
		PersistentPostRun: func(cmd *cobra.Command, args []string) { a.sync() },
		RunE:              a.runServe,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "",
		"path to a YAML config file (default: "+config.DefaultPath+" when present)")

	root.AddCommand(
		a.serveCmd(),
		a.remindCmd(),
		parseGuideCmd(),
		a.configCmd(),
	)
	return root
}

// load reads configuration and builds the logger.
func (a *app) load() error {
	cfg, err := config.Load(a.configPath, Version)
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(cfg.LogLevel, cfg.Env)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) sync() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
