package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-vl/orbit-frontend-sub000/pkg/graph"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/live"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/scheduler"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/source"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(a *app) *cobra.Command {
	var addr string
	var watch bool
	var seed int64

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Stream the explorer to browsers over WebSocket",
		Long: `Runs one shared explorer and serves it over HTTP: /live streams frames
and accepts interaction events, /api/frame.svg returns the current frame.
With --watch a file dataset is reloaded whenever it changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("watch") {
				a.cfg.Server.Watch = watch
			}
			return runServe(a, seed)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "Address to listen on (defaults to server.addr)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload a file dataset when it changes")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Layout seed; 0 picks one from the clock")

	return cmd
}

func runServe(a *app, seed int64) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	sched := scheduler.New(scheduler.Options{Start: time.Now(), Logger: a.logger.Named("scheduler")})
	s, err := a.newSession(sched, seed)
	if err != nil {
		return err
	}
	defer s.Close()

	liveServer := live.NewServer(s.ex, live.ServerOptions{
		FrameInterval: a.cfg.Server.FrameInterval(),
		Logger:        a.logger.Named("live"),
	})
	liveServer.Attach(s.ex)

	httpServer := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           liveServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.ex.Run(gctx) })
	g.Go(func() error { return liveServer.Run(gctx) })

	g.Go(func() error {
		a.logger.Info("listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		if err := s.load(gctx, a.cfg.Data.Credential); err != nil {
			a.logger.Warn("initial load failed", zap.Error(err))
		}
		return nil
	})

	if ff, ok := s.fetch.(*source.FileFetcher); ok && a.cfg.Server.Watch {
		g.Go(func() error {
			return ff.Watch(gctx, func(p graph.Payload, err error) {
				if err != nil {
					a.logger.Warn("reload failed, keeping the current graph", zap.String("path", ff.Path), zap.Error(err))
					return
				}
				if s.layouts != nil {
					s.layouts.InvalidateSource(ff.Path)
				}
				s.ex.SetDataset(p)
			})
		})
	}

	color.New(color.FgHiGreen, color.Bold).Printf("orbit serving on %s\n", httpServer.Addr)

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
