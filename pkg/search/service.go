// Package search adapts the external semantic search service. The explorer
// only consumes the result shape; transports are HTTP, NATS request/reply
// or an in-process index over the loaded graph.
package search

import "context"

// Service runs a semantic search.
type Service interface {
	Search(ctx context.Context, q Query) (Result, error)
}

// ServiceFunc adapts a function to Service.
type ServiceFunc func(ctx context.Context, q Query) (Result, error)

// Search implements Service.
func (f ServiceFunc) Search(ctx context.Context, q Query) (Result, error) {
	return f(ctx, q)
}
