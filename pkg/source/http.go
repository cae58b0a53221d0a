package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	orbiterrors "github.com/noah-vl/orbit-frontend-sub000/pkg/errors"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/graph"
)

// maxPayload bounds the response body.
const maxPayload = 32 << 20

// HTTPFetcher GETs {Endpoint}?team={TeamID} with a bearer credential.
type HTTPFetcher struct {
	Endpoint string
	Client   *http.Client
	Timeout  time.Duration
	Logger   *zap.Logger
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, req Request) (graph.Payload, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	u, err := url.Parse(f.Endpoint)
	if err != nil {
		return graph.Payload{}, fmt.Errorf("parse endpoint: %w", err)
	}
	if req.TeamID != "" {
		q := u.Query()
		q.Set("team", req.TeamID)
		u.RawQuery = q.Encode()
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return graph.Payload{}, err
	}
	hreq.Header.Set("Accept", "application/json")
	if req.Credential != "" {
		hreq.Header.Set("Authorization", "Bearer "+req.Credential)
	}

	resp, err := client.Do(hreq)
	if err != nil {
		return graph.Payload{}, orbiterrors.NewDataError(f.Endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return graph.Payload{}, orbiterrors.NewDataError(f.Endpoint, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPayload))
	if err != nil {
		return graph.Payload{}, orbiterrors.NewDataError(f.Endpoint, err)
	}
	p, err := Decode(data, FormatJSON)
	if err != nil {
		return graph.Payload{}, orbiterrors.NewDataError(f.Endpoint, err)
	}
	if f.Logger != nil {
		f.Logger.Debug("graph fetched",
			zap.String("team", req.TeamID),
			zap.Int("nodes", len(p.Nodes)),
			zap.Int("links", len(p.Links)))
	}
	return p, nil
}
