package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orbiterrors "github.com/noah-vl/orbit-frontend-sub000/pkg/errors"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/graph"
)

func TestHTTPService_Search(t *testing.T) {
	var got Query
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Result{
			Articles: []Article{{ID: "a1", Title: "Postgres", Similarity: 0.9}},
			Summary:  "one hit",
		})
	}))
	defer srv.Close()

	svc := NewHTTPService(HTTPOptions{Endpoint: srv.URL, Credential: "secret"})
	res, err := svc.Search(context.Background(), Query{Text: "  postgres ", TeamID: "t1"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, Query{Text: "postgres", TeamID: "t1", Limit: DefaultLimit}, got)
	require.Len(t, res.Articles, 1)
	assert.Equal(t, 0.9, res.Articles[0].Similarity)
	assert.Equal(t, "one hit", res.Summary)
}

func TestHTTPService_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	svc := NewHTTPService(HTTPOptions{Endpoint: srv.URL})
	_, err := svc.Search(context.Background(), Query{Text: "x"})
	require.Error(t, err)
	assert.True(t, orbiterrors.IsErrorType(err, orbiterrors.ErrorTypeSearch))

	var se *orbiterrors.ErrSearchFailed
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Status)
}

func TestHTTPService_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	svc := NewHTTPService(HTTPOptions{Endpoint: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := svc.Search(context.Background(), Query{Text: "slow"})
	assert.True(t, orbiterrors.IsErrorType(err, orbiterrors.ErrorTypeSearch))
}

func TestTracker_Supersession(t *testing.T) {
	var tr Tracker
	q1 := tr.Begin("first")
	q2 := tr.Begin("second")

	assert.False(t, tr.Current(q1))
	assert.True(t, tr.Current(q2))

	// Q1 resolving late is dropped, Q2 lands.
	assert.False(t, tr.Done(q1))
	assert.True(t, tr.Done(q2))
	assert.False(t, tr.Done(q2), "a ticket completes once")

	q3 := tr.Begin("third")
	tr.Cancel()
	assert.False(t, tr.Current(q3))
	_, pending := tr.Pending()
	assert.False(t, pending)
}

func TestTracker_ConcurrentResponsesOnlyLatestWins(t *testing.T) {
	var tr Tracker
	tickets := make([]Ticket, 50)
	for i := range tickets {
		tickets[i] = tr.Begin("q")
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var winners []uint64
	for _, tk := range tickets {
		wg.Add(1)
		go func(tk Ticket) {
			defer wg.Done()
			if tr.Done(tk) {
				mu.Lock()
				winners = append(winners, tk.Seq)
				mu.Unlock()
			}
		}(tk)
	}
	wg.Wait()
	assert.Equal(t, []uint64{tickets[len(tickets)-1].Seq}, winners)
}

func TestIndex_Search(t *testing.T) {
	idx := NewIndex(graph.Synthetic())

	res, err := idx.Search(context.Background(), Query{Text: "onboarding"})
	require.NoError(t, err)
	assert.False(t, res.Empty())
	for _, a := range res.Articles {
		assert.Greater(t, a.Similarity, 0.0)
		assert.LessOrEqual(t, a.Similarity, 1.0)
	}

	res, err = idx.Search(context.Background(), Query{Text: "zzzz-not-a-word"})
	require.NoError(t, err)
	assert.True(t, res.Empty())

	res, err = idx.Search(context.Background(), Query{Text: "   "})
	require.NoError(t, err)
	assert.True(t, res.Empty())
}

func TestIndex_RespectsLimit(t *testing.T) {
	p := graph.Payload{Nodes: []graph.RawNode{
		{ID: "l1", Group: 2, Title: "Go tips"},
		{ID: "l2", Group: 2, Title: "Go tricks"},
		{ID: "l3", Group: 2, Title: "Go traps"},
	}}
	res, err := NewIndex(p).Search(context.Background(), Query{Text: "go", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, res.Articles, 2)
}

func TestHeaderCarrier(t *testing.T) {
	msg := &nats.Msg{}
	carrier := (*headerCarrier)(msg)
	assert.Empty(t, carrier.Get("traceparent"))
	assert.Nil(t, carrier.Keys())

	carrier.Set("traceparent", "00-abc-def-01")
	assert.Equal(t, "00-abc-def-01", carrier.Get("traceparent"))
	assert.Len(t, carrier.Keys(), 1)
}

func TestHandleRequest_RoundTrip(t *testing.T) {
	svc := ServiceFunc(func(ctx context.Context, q Query) (Result, error) {
		return Result{Summary: "echo " + q.Text}, nil
	})
	msg, err := newRequest(context.Background(), DefaultSubject, Query{Text: "graphs"})
	require.NoError(t, err)

	data, ok := handleRequest(svc, msg, nil)
	require.True(t, ok)
	res, err := decodeReply("graphs", data)
	require.NoError(t, err)
	assert.Equal(t, "echo graphs", res.Summary)

	_, ok = handleRequest(svc, &nats.Msg{Data: []byte("{")}, nil)
	assert.False(t, ok)

	failing := ServiceFunc(func(context.Context, Query) (Result, error) {
		return Result{}, orbiterrors.NewSearchError("graphs", 500, nil)
	})
	data, ok = handleRequest(failing, msg, nil)
	require.True(t, ok)
	_, err = decodeReply("graphs", data)
	assert.True(t, orbiterrors.IsErrorType(err, orbiterrors.ErrorTypeSearch))
}
