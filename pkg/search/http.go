package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	orbiterrors "github.com/noah-vl/orbit-frontend-sub000/pkg/errors"
)

// HTTPOptions configures an HTTPService.
type HTTPOptions struct {
	Endpoint   string
	Credential string
	Timeout    time.Duration
	// RatePerSecond limits outgoing requests; zero means 5/s.
	RatePerSecond float64
	Burst         int
	Client        *http.Client
	Logger        *zap.Logger
}

// HTTPService posts queries as JSON. Failed requests are not retried.
type HTTPService struct {
	endpoint   string
	credential string
	timeout    time.Duration
	client     *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewHTTPService creates an HTTP search client.
func NewHTTPService(opts HTTPOptions) *HTTPService {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 2
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &HTTPService{
		endpoint:   opts.Endpoint,
		credential: opts.Credential,
		timeout:    opts.Timeout,
		client:     opts.Client,
		limiter:    rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
		logger:     opts.Logger,
	}
}

// Search implements Service.
func (s *HTTPService) Search(ctx context.Context, q Query) (Result, error) {
	q = q.Normalized()
	if err := s.limiter.Wait(ctx); err != nil {
		return Result{}, orbiterrors.NewSearchError(q.Text, 0, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, err := json.Marshal(q)
	if err != nil {
		return Result{}, orbiterrors.NewSearchError(q.Text, 0, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, orbiterrors.NewSearchError(q.Text, 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.credential != "" {
		req.Header.Set("Authorization", "Bearer "+s.credential)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return Result{}, orbiterrors.NewSearchError(q.Text, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, orbiterrors.NewSearchError(q.Text, resp.StatusCode,
			fmt.Errorf("unexpected response: %s", bytes.TrimSpace(snippet)))
	}

	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return Result{}, orbiterrors.NewSearchError(q.Text, resp.StatusCode, err)
	}
	s.logger.Debug("search completed",
		zap.String("query", q.Text),
		zap.Int("articles", len(res.Articles)),
		zap.Int("categories", len(res.Categories)),
		zap.Duration("took", time.Since(start)))
	return res, nil
}
