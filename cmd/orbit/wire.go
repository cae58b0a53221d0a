package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/noah-vl/orbit-frontend-sub000/internal/cache"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/explorer"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/scheduler"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/search"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/source"
)

func noop() {}

// fetcher returns the configured data source. The synthetic source has no
// fetcher; the explorer merges the demo dataset instead.
func (a *app) fetcher() (source.Fetcher, func(), error) {
	d := a.cfg.Data
	log := a.logger.Named("source")

	switch d.Source {
	case "synthetic":
		return nil, noop, nil
	case "file":
		return &source.FileFetcher{Path: d.Path, Logger: log}, noop, nil
	case "http":
		return &source.HTTPFetcher{Endpoint: d.Endpoint, Logger: log}, noop, nil
	case "neo4j":
		driver, err := neo4j.NewDriverWithContext(d.Neo4jURI, neo4j.BasicAuth(d.Neo4jUser, d.Neo4jPassword, ""))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create neo4j driver: %w", err)
		}
		closeDriver := func() {
			if err := driver.Close(context.Background()); err != nil {
				log.Warn("failed to close neo4j driver", zap.Error(err))
			}
		}
		return source.NewNeo4jFetcher(driver, d.Neo4jDatabase), closeDriver, nil
	}
	return nil, nil, fmt.Errorf("unknown data source %q", d.Source)
}

// searchService returns the configured backend, or nil for the in-process
// index the explorer builds itself.
func (a *app) searchService() (search.Service, func(), error) {
	s := a.cfg.Search
	log := a.logger.Named("search")

	switch s.Backend {
	case "", "local":
		return nil, noop, nil
	case "http":
		return search.NewHTTPService(search.HTTPOptions{
			Endpoint:      s.Endpoint,
			Credential:    a.cfg.Data.Credential,
			Timeout:       s.Timeout(),
			RatePerSecond: s.RatePerSecond,
			Burst:         s.Burst,
			Logger:        log,
		}), noop, nil
	case "nats":
		nc, err := nats.Connect(s.NATSURL, nats.Name("orbit"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		return search.NewNATSService(nc, s.Subject, s.Timeout(), log), nc.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown search backend %q", s.Backend)
}

// layoutCache opens the position cache when enabled. A nil cache means no
// caching.
func (a *app) layoutCache() (*cache.Cache, error) {
	if !a.cfg.Cache.Enabled {
		return nil, nil
	}
	c, err := cache.New(cache.Config{
		Dir:        a.cfg.Cache.Dir,
		MaxEntries: a.cfg.Cache.MaxEntries,
		Strategy:   cache.LRU,
		Source:     a.cfg.Data.Path,
		Logger:     a.logger.Named("cache"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open layout cache: %w", err)
	}
	return c, nil
}

// session is an explorer plus everything it was wired with.
type session struct {
	ex      *explorer.Explorer
	sched   *scheduler.Scheduler
	fetch   source.Fetcher
	layouts *cache.Cache
	closers []func()
}

func (s *session) Close() {
	s.ex.Close()
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	if s.layouts != nil {
		s.layouts.Close()
	}
}

// newSession wires an explorer from the config. A zero seed draws one from
// the clock.
func (a *app) newSession(sched *scheduler.Scheduler, seed int64) (*session, error) {
	fetch, closeFetch, err := a.fetcher()
	if err != nil {
		return nil, err
	}
	svc, closeSearch, err := a.searchService()
	if err != nil {
		closeFetch()
		return nil, err
	}
	layouts, err := a.layoutCache()
	if err != nil {
		closeSearch()
		closeFetch()
		return nil, err
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	opts := explorer.Options{
		Scheduler:        sched,
		Search:           svc,
		TeamID:           a.cfg.Data.TeamID,
		Layout:           a.cfg.Layout,
		Rings:            a.cfg.Rings,
		Camera:           a.cfg.Camera.Options(),
		Render:           &a.cfg.Render,
		IncludeSynthetic: a.cfg.Data.IncludeSynthetic || a.cfg.Data.Source == "synthetic",
		AutoFitDelay:     a.cfg.Camera.AutoFitDelay(),
		SearchTimeout:    a.cfg.Search.Timeout(),
		Rand:             rand.New(rand.NewSource(seed)),
		Logger:           a.logger.Named("explorer"),
	}
	if layouts != nil {
		opts.Layouts = layouts
	}

	return &session{
		ex:      explorer.New(opts),
		sched:   sched,
		fetch:   fetch,
		layouts: layouts,
		closers: []func(){closeFetch, closeSearch},
	}, nil
}

// load fetches the dataset once. Without a fetcher the explorer keeps the
// synthetic graph it started with.
func (s *session) load(ctx context.Context, credential string) error {
	if s.fetch == nil {
		return nil
	}
	return s.ex.Load(ctx, s.fetch, credential)
}
