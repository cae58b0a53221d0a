package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-vl/orbit-frontend-sub000/internal/logger"
	"github.com/noah-vl/orbit-frontend-sub000/internal/tui"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/scheduler"
)

func newExploreCommand(a *app) *cobra.Command {
	var logFile string
	var seed int64

	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Browse the graph in the terminal",
		Long: `Opens the graph full screen. Tab cycles through nodes, enter locks a
cluster or opens an article, / searches and esc backs out one step.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplore(a, logFile, seed)
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "", "Write logs here while the UI owns the terminal")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Layout seed; 0 picks one from the clock")

	return cmd
}

func runExplore(a *app, logFile string, seed int64) error {
	// the alternate screen leaves no room for log lines on stderr
	if logFile != "" {
		if err := logger.Init(a.cfg.Env, a.quiet, logFile); err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		a.logger = logger.Get()
	} else {
		a.logger = zap.NewNop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(scheduler.Options{Start: time.Now(), Logger: a.logger.Named("scheduler")})
	s, err := a.newSession(sched, seed)
	if err != nil {
		return err
	}
	defer s.Close()

	loopCtx, cancelLoop := context.WithCancel(ctx)
	defer cancelLoop()
	go func() {
		if err := s.ex.Run(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("scheduler stopped", zap.Error(err))
		}
	}()

	// a failed fetch is shown in the status line
	go func() {
		if err := s.load(loopCtx, a.cfg.Data.Credential); err != nil {
			a.logger.Warn("initial load failed", zap.Error(err))
		}
	}()

	err = tui.Run(ctx, s.ex)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
