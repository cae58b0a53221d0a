package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-vl/orbit-frontend-sub000/internal/config"
	"github.com/noah-vl/orbit-frontend-sub000/internal/logger"
)

var (
	version = "0.1.0-preview"
	commit  = "dev"
	date    = "unknown"
)

// app carries what every command needs once the root has loaded it.
type app struct {
	configDir string
	quiet     bool

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}

	var rootCmd = &cobra.Command{
		Use:   "orbit",
		Short: "Orbit - knowledge graph explorer",
		Long: `Orbit lays a knowledge graph out on concentric rings and lets you
explore it: hover and lock clusters, search, zoom and pan. Frames can be
written as SVG, browsed in the terminal or streamed to browsers.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configDir, "config", "c", ".", "Directory holding orbit.yaml or orbit.toml")
	rootCmd.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "Only log warnings and errors")

	// Add commands
	rootCmd.AddCommand(newRenderCommand(a))
	rootCmd.AddCommand(newExploreCommand(a))
	rootCmd.AddCommand(newServeCommand(a))
	rootCmd.AddCommand(newStatsCommand(a))
	rootCmd.AddCommand(newRespondCommand(a))

	return rootCmd
}

func (a *app) init() error {
	cfg, err := config.Load(a.configDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(cfg.Env, a.quiet); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger.Get()
	return nil
}
