package source

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	orbiterrors "github.com/noah-vl/orbit-frontend-sub000/pkg/errors"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/graph"
)

// CypherResult is the part of a neo4j result the fetcher reads.
type CypherResult interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Err() error
}

// CypherSession runs read queries.
type CypherSession interface {
	Run(ctx context.Context, cypher string, params map[string]any) (CypherResult, error)
	Close(ctx context.Context) error
}

// SessionOpener opens sessions.
type SessionOpener interface {
	OpenSession(ctx context.Context) CypherSession
}

type driverOpener struct {
	driver   neo4j.DriverWithContext
	database string
}

func (o driverOpener) OpenSession(ctx context.Context) CypherSession {
	return driverSession{o.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: o.database,
	})}
}

type driverSession struct {
	sess neo4j.SessionWithContext
}

func (s driverSession) Run(ctx context.Context, cypher string, params map[string]any) (CypherResult, error) {
	return s.sess.Run(ctx, cypher, params)
}

func (s driverSession) Close(ctx context.Context) error { return s.sess.Close(ctx) }

// graphQuery returns one row per node with its outgoing link targets.
const graphQuery = `
MATCH (n:KGNode)
WHERE $team = '' OR n.team = $team
OPTIONAL MATCH (n)-[:LINKS]->(m:KGNode)
RETURN n.id AS id, n.group AS group, n.value AS value, n.title AS title,
       n.articleId AS articleId, collect(m.id) AS targets`

// Neo4jFetcher reads the graph from (:KGNode)-[:LINKS]->(:KGNode).
type Neo4jFetcher struct {
	opener SessionOpener
}

// NewNeo4jFetcher wraps a driver.
func NewNeo4jFetcher(driver neo4j.DriverWithContext, database string) *Neo4jFetcher {
	return &Neo4jFetcher{opener: driverOpener{driver: driver, database: database}}
}

// NewNeo4jFetcherWithOpener uses a custom session opener.
func NewNeo4jFetcherWithOpener(opener SessionOpener) *Neo4jFetcher {
	return &Neo4jFetcher{opener: opener}
}

// Fetch implements Fetcher.
func (f *Neo4jFetcher) Fetch(ctx context.Context, req Request) (graph.Payload, error) {
	sess := f.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	result, err := sess.Run(ctx, graphQuery, map[string]any{"team": req.TeamID})
	if err != nil {
		return graph.Payload{}, orbiterrors.NewDataError("neo4j", err)
	}
	var p graph.Payload
	for result.Next(ctx) {
		rec := result.Record()
		id := stringProp(rec, "id")
		if id == "" {
			continue
		}
		p.Nodes = append(p.Nodes, graph.RawNode{
			ID:        id,
			Group:     int(intProp(rec, "group")),
			Value:     floatProp(rec, "value"),
			Title:     stringProp(rec, "title"),
			ArticleID: stringProp(rec, "articleId"),
		})
		targets, _ := rec.Get("targets")
		list, _ := targets.([]any)
		for _, t := range list {
			if tid, ok := t.(string); ok && tid != "" {
				p.Links = append(p.Links, graph.RawLink{Source: graph.RefID(id), Target: graph.RefID(tid)})
			}
		}
	}
	if err := result.Err(); err != nil {
		return graph.Payload{}, orbiterrors.NewDataError("neo4j", err)
	}
	return p, nil
}

func stringProp(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	s, _ := v.(string)
	return s
}

func intProp(rec *neo4j.Record, key string) int64 {
	v, _ := rec.Get(key)
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return -1
}

func floatProp(rec *neo4j.Record, key string) float64 {
	v, _ := rec.Get(key)
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}
