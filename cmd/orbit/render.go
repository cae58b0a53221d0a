package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-vl/orbit-frontend-sub000/pkg/explorer"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/render"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/scheduler"
)

// settleStep is the virtual time advanced between settle checks.
const settleStep = 100 * time.Millisecond

type renderOptions struct {
	output  string
	width   float64
	height  float64
	query   string
	focus   string
	seed    int64
	maxTime time.Duration
}

func newRenderCommand(a *app) *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Lay the graph out and write it as SVG",
		Long: `Loads the configured dataset, runs the layout on a virtual clock until it
settles, lets the camera fit, and writes the resulting frame as SVG.
A search query or a focused node is applied before the frame is taken.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd.Context(), a, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "orbit.svg", `Output file, or "-" for stdout`)
	cmd.Flags().Float64Var(&opts.width, "width", 0, "Viewport width (defaults to camera.width)")
	cmd.Flags().Float64Var(&opts.height, "height", 0, "Viewport height (defaults to camera.height)")
	cmd.Flags().StringVar(&opts.query, "query", "", "Search query to highlight")
	cmd.Flags().StringVar(&opts.focus, "focus", "", "Node id to click before rendering")
	cmd.Flags().Int64Var(&opts.seed, "seed", 1, "Layout seed; 0 picks one from the clock")
	cmd.Flags().DurationVar(&opts.maxTime, "max-time", 30*time.Second, "Simulated time allowed for the layout to settle")

	return cmd
}

func runRender(ctx context.Context, a *app, opts renderOptions, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sched := scheduler.New(scheduler.Options{Logger: a.logger.Named("scheduler")})
	s, err := a.newSession(sched, opts.seed)
	if err != nil {
		return err
	}
	defer s.Close()
	ex := s.ex

	if opts.width > 0 || opts.height > 0 {
		w, h := opts.width, opts.height
		if w <= 0 {
			w = a.cfg.Camera.Width
		}
		if h <= 0 {
			h = a.cfg.Camera.Height
		}
		ex.SetViewport(w, h)
	}
	if err := s.load(ctx, a.cfg.Data.Credential); err != nil {
		return fmt.Errorf("failed to load graph: %w", err)
	}
	sched.Flush()

	elapsed := time.Duration(0)
	for !ex.Status().Settled && elapsed < opts.maxTime {
		sched.Advance(settleStep)
		elapsed += settleStep
	}
	if !ex.Status().Settled {
		a.logger.Warn("layout did not settle", zap.Duration("simulated", elapsed))
	}
	// the automatic fit may still be pending or animating
	sched.Advance(a.cfg.Camera.AutoFitDelay() + camSlack)

	if opts.query != "" {
		if err := awaitSearch(ctx, a, ex, sched, opts.query); err != nil {
			return err
		}
		sched.Advance(camSlack)
	}
	if opts.focus != "" {
		ex.NodeClick(opts.focus)
		sched.Advance(camSlack)
	}

	f := ex.Frame()
	if err := writeFrame(opts.output, stdout, f); err != nil {
		return err
	}
	if opts.output != "-" {
		ok := color.New(color.FgGreen)
		fmt.Fprintf(stdout, "%s wrote %s (%d nodes, %d links)\n", ok.Sprint("✓"), opts.output, len(f.Nodes), len(f.Links))
		if st := ex.Status(); st.Message != "" {
			color.New(color.FgYellow).Fprintf(stdout, "  %s\n", st.Message)
		}
	}
	return nil
}

// camSlack covers a full camera transition on the virtual clock.
const camSlack = 2 * time.Second

// awaitSearch issues query and waits on the wall clock for the answer,
// flushing the loop in between. Search backends reply from their own
// goroutines.
func awaitSearch(ctx context.Context, a *app, ex *explorer.Explorer, sched *scheduler.Scheduler, query string) error {
	ex.Search(ctx, query)
	sched.Flush()

	wait := a.cfg.Search.Timeout() + time.Second
	deadline := time.Now().Add(wait)
	for ex.Status().Searching {
		if time.Now().After(deadline) {
			return fmt.Errorf("search %q did not complete within %s", query, wait)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
		sched.Flush()
	}
	return nil
}

func writeFrame(path string, stdout io.Writer, f render.Frame) error {
	if path == "-" {
		return render.WriteSVG(stdout, f)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := render.WriteSVG(file, f); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}
