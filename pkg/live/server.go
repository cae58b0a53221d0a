package live

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-vl/orbit-frontend-sub000/pkg/explorer"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/render"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 300 * time.Second
	pingInterval = 54 * time.Second
	sendBuffer   = 64

	// DefaultFrameInterval caps how often frames are pushed to clients.
	DefaultFrameInterval = 50 * time.Millisecond
)

// Target receives decoded client events. *explorer.Explorer satisfies it.
type Target interface {
	NodeHover(id string)
	NodeUnhover()
	NodeClick(id string)
	BackgroundClick()
	ZoomIn()
	ZoomOut()
	Reset()
	Search(ctx context.Context, text string)
	ClearSearch()
	PointerMove(sx, sy float64)
	PointerClick(sx, sy float64)
	Pan(dx, dy float64)
	Wheel(factor, sx, sy float64)
	SetViewport(w, h float64)
	Frame() render.Frame
	Status() explorer.Status
}

// Server handles WebSocket connections for live updates
type Server struct {
	upgrader websocket.Upgrader
	target   Target
	logger   *zap.Logger
	interval time.Duration

	sessions map[string]*Session
	mu       sync.RWMutex

	seq          atomic.Uint64
	frameMu      sync.Mutex
	pendingFrame *render.Frame
}

// Session represents a live connection session
type Session struct {
	ID        string
	conn      *websocket.Conn
	send      chan []byte
	closeChan chan struct{}
	closeOnce sync.Once
	logger    *zap.Logger
}

// ServerOptions configures NewServer.
type ServerOptions struct {
	// FrameInterval is the minimum spacing between pushed frames.
	FrameInterval time.Duration
	// CheckOrigin overrides the upgrader origin check; nil allows all.
	CheckOrigin func(r *http.Request) bool
	Logger      *zap.Logger
}

// NewServer creates a new live protocol server
func NewServer(target Target, opts ServerOptions) *Server {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin:     checkOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
		},
		target:   target,
		logger:   opts.Logger,
		interval: opts.FrameInterval,
		sessions: make(map[string]*Session),
	}
}

// Attach routes the explorer's callbacks to connected clients.
func (s *Server) Attach(e *explorer.Explorer) {
	e.OnFrame(s.PublishFrame)
	e.OnStatus(s.PublishStatus)
	e.OnNavigate(s.PublishNavigate)
}

// HandleWebSocket upgrades the request and serves the session until the
// client disconnects. A "session" query parameter reuses a client-chosen id;
// a new connection with an id already in use takes it over and the older
// connection is closed.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	session := s.addSession(sessionID, conn)
	defer s.removeSession(session)
	s.serve(r.Context(), session)
}

func (s *Server) addSession(id string, conn *websocket.Conn) *Session {
	session := &Session{
		ID:        id,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		closeChan: make(chan struct{}),
		logger:    s.logger.With(zap.String("session", id)),
	}

	s.mu.Lock()
	old, exists := s.sessions[id]
	s.sessions[id] = session
	s.mu.Unlock()

	if exists {
		old.close()
	}
	return session
}

func (s *Server) removeSession(session *Session) {
	s.mu.Lock()
	if cur, ok := s.sessions[session.ID]; ok && cur == session {
		delete(s.sessions, session.ID)
	}
	s.mu.Unlock()
	session.close()
}

// GetSession retrieves a session by ID
func (s *Server) GetSession(sessionID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

// SessionCount returns the number of connected sessions.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// serve runs the read loop for a session. The writer runs alongside it.
func (s *Server) serve(ctx context.Context, session *Session) {
	go session.writer()

	session.enqueue(s.encode(MessageHello, session.ID, nil))
	session.enqueue(s.encode(MessageFrame, "", s.target.Frame()))
	session.enqueue(s.encode(MessageStatus, "", s.target.Status()))
	session.logger.Info("live session connected")

	session.conn.SetReadDeadline(time.Now().Add(pongWait))
	session.conn.SetPongHandler(func(string) error {
		session.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, data, err := session.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				session.logger.Warn("unexpected close", zap.Error(err))
			}
			session.logger.Info("live session disconnected")
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		ev, err := DecodeEvent(data)
		if err != nil {
			session.logger.Debug("bad event", zap.Error(err))
			session.enqueue(s.encode(MessageError, "", err.Error()))
			continue
		}
		if ev.Type == EventPing {
			session.enqueue(s.encode(MessagePong, "", nil))
			continue
		}
		s.Dispatch(ctx, ev)
	}
}

// Dispatch applies one event to the target.
func (s *Server) Dispatch(ctx context.Context, ev Event) {
	t := s.target
	switch ev.Type {
	case EventHover:
		t.NodeHover(ev.NodeID)
	case EventUnhover:
		t.NodeUnhover()
	case EventClick:
		t.NodeClick(ev.NodeID)
	case EventBackground:
		t.BackgroundClick()
	case EventZoomIn:
		t.ZoomIn()
	case EventZoomOut:
		t.ZoomOut()
	case EventReset:
		t.Reset()
	case EventSearch:
		t.Search(context.WithoutCancel(ctx), ev.Query)
	case EventClearSearch:
		t.ClearSearch()
	case EventPointer:
		t.PointerMove(ev.X, ev.Y)
	case EventPointerDown:
		t.PointerClick(ev.X, ev.Y)
	case EventPan:
		t.Pan(ev.DX, ev.DY)
	case EventWheel:
		t.Wheel(ev.Factor, ev.X, ev.Y)
	case EventResize:
		t.SetViewport(ev.Width, ev.Height)
	}
}

func (s *Server) encode(typ MessageType, session string, data any) []byte {
	b, err := json.Marshal(Message{Type: typ, Session: session, Seq: s.seq.Add(1), Data: data})
	if err != nil {
		s.logger.Error("encode message", zap.String("type", string(typ)), zap.Error(err))
		return nil
	}
	return b
}

// PublishFrame queues f for the next frame push. Only the latest frame is
// kept.
func (s *Server) PublishFrame(f render.Frame) {
	s.frameMu.Lock()
	s.pendingFrame = &f
	s.frameMu.Unlock()
}

// PublishStatus pushes st to every session immediately.
func (s *Server) PublishStatus(st explorer.Status) {
	s.broadcast(s.encode(MessageStatus, "", st))
}

// PublishNavigate tells every session to open route.
func (s *Server) PublishNavigate(route string) {
	s.broadcast(s.encode(MessageNavigate, "", map[string]string{"route": route}))
}

// Run pushes pending frames at the frame interval until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return ctx.Err()
		case <-ticker.C:
			s.flushFrame()
		}
	}
}

func (s *Server) flushFrame() {
	s.frameMu.Lock()
	f := s.pendingFrame
	s.pendingFrame = nil
	s.frameMu.Unlock()
	if f == nil {
		return
	}
	s.broadcast(s.encode(MessageFrame, "", *f))
}

func (s *Server) broadcast(data []byte) {
	if data == nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, session := range s.sessions {
		if !session.enqueue(data) {
			session.logger.Debug("send buffer full, dropping message")
		}
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.Unlock()
	for _, session := range sessions {
		session.close()
	}
}

func (s *Session) enqueue(data []byte) bool {
	if data == nil {
		return false
	}
	select {
	case <-s.closeChan:
		return false
	default:
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.closeChan)
		s.conn.Close()
	})
}

// writer handles writing messages to the WebSocket
func (s *Session) writer() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case message := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Debug("write failed", zap.Error(err))
				s.close()
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}

		case <-s.closeChan:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
