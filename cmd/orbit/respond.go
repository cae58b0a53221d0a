package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-vl/orbit-frontend-sub000/pkg/graph"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/search"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/source"
)

func newRespondCommand(a *app) *cobra.Command {
	var natsURL string
	var watch bool

	cmd := &cobra.Command{
		Use:   "respond",
		Short: "Answer search requests over NATS from the local index",
		Long: `Indexes the configured dataset and answers requests on search.subject.
Explorers configured with the "nats" search backend query it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if natsURL == "" {
				natsURL = a.cfg.Search.NATSURL
			}
			if natsURL == "" {
				natsURL = nats.DefaultURL
			}
			return runRespond(a, natsURL, watch)
		},
	}

	cmd.Flags().StringVar(&natsURL, "nats-url", "", "NATS server (defaults to search.natsURL)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-index a file dataset when it changes")

	return cmd
}

func runRespond(a *app, natsURL string, watch bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetch, closeFetch, err := a.fetcher()
	if err != nil {
		return err
	}
	defer closeFetch()

	includeSynthetic := a.cfg.Data.IncludeSynthetic || a.cfg.Data.Source == "synthetic"
	indexed := func(p graph.Payload) graph.Payload {
		if includeSynthetic {
			return p.WithSynthetic()
		}
		return p
	}

	var p graph.Payload
	if fetch != nil {
		p, err = fetch.Fetch(ctx, source.Request{TeamID: a.cfg.Data.TeamID, Credential: a.cfg.Data.Credential})
		if err != nil {
			return fmt.Errorf("failed to load graph: %w", err)
		}
	}
	index := search.NewIndex(indexed(p))

	nc, err := nats.Connect(natsURL, nats.Name("orbit-respond"))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer nc.Drain()

	sub, err := search.Respond(nc, a.cfg.Search.Subject, index, a.logger.Named("respond"))
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	color.New(color.FgHiGreen, color.Bold).Printf("answering %s on %s\n", sub.Subject, natsURL)

	ff, ok := fetch.(*source.FileFetcher)
	if !watch || !ok {
		<-ctx.Done()
		return nil
	}
	err = ff.Watch(ctx, func(p graph.Payload, err error) {
		if err != nil {
			a.logger.Warn("reload failed, keeping the current index", zap.String("path", ff.Path), zap.Error(err))
			return
		}
		index.Reset(indexed(p))
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
