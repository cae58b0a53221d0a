package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/noah-vl/orbit-frontend-sub000/pkg/graph"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/source"
)

var (
	headingColor = color.New(color.FgHiGreen, color.Bold)
	subtleColor  = color.New(color.FgHiBlack)
	warnColor    = color.New(color.FgYellow)
)

// graphStats is what the stats command reports.
type graphStats struct {
	Source string         `json:"source"`
	Nodes  int            `json:"nodes"`
	Links  int            `json:"links"`
	Tiers  map[string]int `json:"tiers"`
	Report graph.Report   `json:"report"`
	Top    []degreeEntry  `json:"top"`
}

type degreeEntry struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Tier   string `json:"tier"`
	Degree int    `json:"degree"`
}

func newStatsCommand(a *app) *cobra.Command {
	var asJSON bool
	var top int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the dataset after ingestion",
		Long:  `Fetches the configured dataset, normalizes it and reports what was kept, dropped and pruned.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := collectStats(cmd.Context(), a, top)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			printStats(cmd.OutOrStdout(), st)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	cmd.Flags().IntVar(&top, "top", 5, "Number of best connected nodes to list")

	return cmd
}

func collectStats(ctx context.Context, a *app, top int) (graphStats, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	fetch, closeFetch, err := a.fetcher()
	if err != nil {
		return graphStats{}, err
	}
	defer closeFetch()

	var p graph.Payload
	if fetch != nil {
		p, err = fetch.Fetch(ctx, source.Request{TeamID: a.cfg.Data.TeamID, Credential: a.cfg.Data.Credential})
		if err != nil {
			return graphStats{}, fmt.Errorf("failed to load graph: %w", err)
		}
	}

	g, rep := graph.Build(p.Nodes, p.Links, &graph.Options{
		IncludeSynthetic: a.cfg.Data.IncludeSynthetic || a.cfg.Data.Source == "synthetic",
		Rings:            a.cfg.Rings,
		Logger:           a.logger.Named("graph"),
	})

	st := graphStats{
		Source: a.cfg.Data.Source,
		Nodes:  g.Len(),
		Links:  len(g.Links()),
		Tiers:  make(map[string]int),
		Report: rep,
	}
	for _, n := range g.Nodes() {
		st.Tiers[n.Tier.String()]++
		st.Top = append(st.Top, degreeEntry{ID: n.ID, Title: n.Title, Tier: n.Tier.String(), Degree: g.Degree(n.ID)})
	}
	sort.SliceStable(st.Top, func(i, j int) bool {
		if st.Top[i].Degree != st.Top[j].Degree {
			return st.Top[i].Degree > st.Top[j].Degree
		}
		return st.Top[i].ID < st.Top[j].ID
	})
	if top < 0 {
		top = 0
	}
	if len(st.Top) > top {
		st.Top = st.Top[:top]
	}
	return st, nil
}

func printStats(w io.Writer, st graphStats) {
	headingColor.Fprintf(w, "orbit graph (%s)\n\n", st.Source)
	fmt.Fprintf(w, "  %-10s %d\n", "nodes", st.Nodes)
	fmt.Fprintf(w, "  %-10s %d\n", "links", st.Links)
	for _, tier := range []graph.Tier{graph.Hub, graph.Category, graph.Leaf} {
		fmt.Fprintf(w, "  %-10s %d\n", tier.String()+"s", st.Tiers[tier.String()])
	}

	fmt.Fprintln(w)
	printCount(w, "skipped nodes", st.Report.SkippedNodes)
	printCount(w, "dropped links", st.Report.DroppedLinks)
	printCount(w, "pruned nodes", st.Report.PrunedNodes)
	subtleColor.Fprintf(w, "  %-14s %d\n", "synthetic", st.Report.SyntheticAdded)

	if len(st.Top) == 0 {
		return
	}
	fmt.Fprintln(w)
	headingColor.Fprintln(w, "best connected")
	width := 0
	for _, e := range st.Top {
		if len(e.Title) > width {
			width = len(e.Title)
		}
	}
	subtleColor.Fprintf(w, "  %-*s  %-8s  %s\n", width, "title", "tier", "degree")
	subtleColor.Fprintf(w, "  %s\n", strings.Repeat("─", width+18))
	for _, e := range st.Top {
		fmt.Fprintf(w, "  %-*s  %-8s  %d\n", width, e.Title, e.Tier, e.Degree)
	}
}

func printCount(w io.Writer, label string, n int) {
	if n > 0 {
		warnColor.Fprintf(w, "  %-14s %d\n", label, n)
		return
	}
	subtleColor.Fprintf(w, "  %-14s %d\n", label, n)
}
