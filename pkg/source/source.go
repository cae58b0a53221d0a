// Package source loads the raw graph payload the explorer lays out.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/noah-vl/orbit-frontend-sub000/pkg/graph"
)

// Request identifies whose graph to load.
type Request struct {
	TeamID     string
	Credential string
}

// Fetcher loads a graph payload.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (graph.Payload, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, req Request) (graph.Payload, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, req Request) (graph.Payload, error) {
	return f(ctx, req)
}

// Static always returns the same payload.
type Static graph.Payload

// Fetch implements Fetcher.
func (s Static) Fetch(context.Context, Request) (graph.Payload, error) {
	return graph.Payload(s), nil
}

// Format is a payload encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format by file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Decode parses a payload. A null or empty document is an empty payload.
func Decode(data []byte, format Format) (graph.Payload, error) {
	var p graph.Payload
	if len(bytes.TrimSpace(data)) == 0 {
		return p, nil
	}
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &p); err != nil {
			return graph.Payload{}, fmt.Errorf("decode yaml payload: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &p); err != nil {
			return graph.Payload{}, fmt.Errorf("decode json payload: %w", err)
		}
	}
	return p, nil
}

// Encode writes a payload.
func Encode(p graph.Payload, format Format) ([]byte, error) {
	if format == FormatYAML {
		return yaml.Marshal(p)
	}
	return json.MarshalIndent(p, "", "  ")
}
