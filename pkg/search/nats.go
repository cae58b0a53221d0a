package search

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	orbiterrors "github.com/noah-vl/orbit-frontend-sub000/pkg/errors"
)

// DefaultSubject is the request subject for search over NATS.
const DefaultSubject = "orbit.search"

// headerCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// wireReply is the NATS reply envelope.
type wireReply struct {
	Result Result `json:"result"`
	Error  string `json:"error,omitempty"`
}

// NATSService issues searches as NATS requests with trace context in the
// message headers.
type NATSService struct {
	nc      *nats.Conn
	subject string
	timeout time.Duration
	logger  *zap.Logger
}

// NewNATSService creates a NATS search client.
func NewNATSService(nc *nats.Conn, subject string, timeout time.Duration, logger *zap.Logger) *NATSService {
	if subject == "" {
		subject = DefaultSubject
	}
	if timeout <= 0 {
		timeout = nats.DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSService{nc: nc, subject: subject, timeout: timeout, logger: logger}
}

func newRequest(ctx context.Context, subject string, q Query) (*nats.Msg, error) {
	data, err := json.Marshal(q)
	if err != nil {
		return nil, err
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	return msg, nil
}

// Search implements Service.
func (s *NATSService) Search(ctx context.Context, q Query) (Result, error) {
	q = q.Normalized()
	msg, err := newRequest(ctx, s.subject, q)
	if err != nil {
		return Result{}, orbiterrors.NewSearchError(q.Text, 0, err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		return Result{}, orbiterrors.NewSearchError(q.Text, 0, err)
	}
	return decodeReply(q.Text, resp.Data)
}

func decodeReply(query string, data []byte) (Result, error) {
	var reply wireReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return Result{}, orbiterrors.NewSearchError(query, 0, err)
	}
	if reply.Error != "" {
		return Result{}, orbiterrors.NewSearchError(query, 0, errString(reply.Error))
	}
	return reply.Result, nil
}

type errString string

func (e errString) Error() string { return string(e) }

// Respond serves svc on subject. Trace context is extracted from the request
// headers and passed down; malformed requests are dropped.
func Respond(nc *nats.Conn, subject string, svc Service, logger *zap.Logger) (*nats.Subscription, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		data, ok := handleRequest(svc, msg, logger)
		if !ok {
			return
		}
		if err := msg.Respond(data); err != nil {
			logger.Warn("search reply failed", zap.Error(err))
		}
	})
}

func handleRequest(svc Service, msg *nats.Msg, logger *zap.Logger) ([]byte, bool) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var q Query
	if err := json.Unmarshal(msg.Data, &q); err != nil {
		logger.Debug("dropping malformed search request", zap.Error(err))
		return nil, false
	}
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*headerCarrier)(msg))
	res, err := svc.Search(ctx, q)
	reply := wireReply{Result: res}
	if err != nil {
		reply = wireReply{Error: err.Error()}
	}
	data, err := json.Marshal(reply)
	if err != nil {
		return nil, false
	}
	return data, true
}
