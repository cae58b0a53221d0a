package live

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-vl/orbit-frontend-sub000/pkg/camera"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/explorer"
	"github.com/noah-vl/orbit-frontend-sub000/pkg/render"
)

type fakeTarget struct {
	mu     sync.Mutex
	calls  []string
	called chan string
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{called: make(chan string, 32)}
}

func (f *fakeTarget) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	f.called <- call
}

func (f *fakeTarget) NodeHover(id string)                { f.record("hover:" + id) }
func (f *fakeTarget) NodeUnhover()                       { f.record("unhover") }
func (f *fakeTarget) NodeClick(id string)                { f.record("click:" + id) }
func (f *fakeTarget) BackgroundClick()                   { f.record("background") }
func (f *fakeTarget) ZoomIn()                            { f.record("zoomIn") }
func (f *fakeTarget) ZoomOut()                           { f.record("zoomOut") }
func (f *fakeTarget) Reset()                             { f.record("reset") }
func (f *fakeTarget) Search(_ context.Context, q string) { f.record("search:" + q) }
func (f *fakeTarget) ClearSearch()                       { f.record("clearSearch") }
func (f *fakeTarget) PointerMove(sx, sy float64)         { f.record("pointer") }
func (f *fakeTarget) PointerClick(sx, sy float64)        { f.record("pointerDown") }
func (f *fakeTarget) Pan(dx, dy float64)                 { f.record("pan") }
func (f *fakeTarget) Wheel(factor, sx, sy float64)       { f.record("wheel") }
func (f *fakeTarget) SetViewport(w, h float64)           { f.record("resize") }
func (f *fakeTarget) Status() explorer.Status            { return explorer.Status{Mode: "idle", Nodes: 2} }
func (f *fakeTarget) Frame() render.Frame {
	return render.Frame{
		Width:  100,
		Height: 80,
		Camera: camera.State{Zoom: 1},
		Nodes:  []render.NodeSprite{{ID: "a", Radius: 5, Color: "#ffffff"}},
	}
}

func (f *fakeTarget) waitCall(t *testing.T) string {
	t.Helper()
	select {
	case c := <-f.called:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no call")
		return ""
	}
}

func init() {
	gin.SetMode(gin.TestMode)
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/live" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var m Message
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    EventType
		wantErr bool
	}{
		{"click", `{"type":"click","id":"n1"}`, EventClick, false},
		{"click without id", `{"type":"click"}`, "", true},
		{"search", `{"type":"search","query":"infra"}`, EventSearch, false},
		{"wheel", `{"type":"wheel","factor":1.1,"x":3,"y":4}`, EventWheel, false},
		{"wheel without factor", `{"type":"wheel"}`, "", true},
		{"resize", `{"type":"resize","width":800,"height":600}`, EventResize, false},
		{"unknown", `{"type":"explode"}`, "", true},
		{"garbage", `{`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeEvent([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ev.Type)
		})
	}
}

func TestWebSocketSession(t *testing.T) {
	target := newFakeTarget()
	s := NewServer(target, ServerOptions{FrameInterval: 5 * time.Millisecond})
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	conn := dial(t, srv, "?session=abc")

	hello := readMessage(t, conn)
	assert.Equal(t, MessageHello, hello.Type)
	assert.Equal(t, "abc", hello.Session)
	assert.Equal(t, MessageFrame, readMessage(t, conn).Type)
	assert.Equal(t, MessageStatus, readMessage(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"click","id":"n1"}`)))
	assert.Equal(t, "click:n1", target.waitCall(t))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"search","query":"infra"}`)))
	assert.Equal(t, "search:infra", target.waitCall(t))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"bogus"}`)))
	assert.Equal(t, MessageError, readMessage(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	assert.Equal(t, MessagePong, readMessage(t, conn).Type)

	_, ok := s.GetSession("abc")
	assert.True(t, ok)
}

func TestWebSocketSessionTakeover(t *testing.T) {
	target := newFakeTarget()
	s := NewServer(target, ServerOptions{FrameInterval: 5 * time.Millisecond})
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	first := dial(t, srv, "?session=tab")
	assert.Equal(t, MessageHello, readMessage(t, first).Type)

	second := dial(t, srv, "?session=tab")
	hello := readMessage(t, second)
	assert.Equal(t, MessageHello, hello.Type)
	assert.Equal(t, "tab", hello.Session)

	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	var err error
	for err == nil {
		_, _, err = first.ReadMessage()
	}
	var netErr net.Error
	assert.False(t, errors.As(err, &netErr) && netErr.Timeout(), "older connection should be closed, got %v", err)
	assert.Equal(t, 1, s.SessionCount())

	require.NoError(t, second.WriteMessage(websocket.TextMessage, []byte(`{"type":"click","id":"n2"}`)))
	assert.Equal(t, "click:n2", target.waitCall(t))
}

func TestPublishReachesClients(t *testing.T) {
	target := newFakeTarget()
	s := NewServer(target, ServerOptions{FrameInterval: 5 * time.Millisecond})
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	conn := dial(t, srv, "")
	hello := readMessage(t, conn)
	assert.NotEmpty(t, hello.Session)
	readMessage(t, conn)
	readMessage(t, conn)

	s.PublishNavigate("/articles/a1")
	m := readMessage(t, conn)
	assert.Equal(t, MessageNavigate, m.Type)
	assert.Equal(t, map[string]any{"route": "/articles/a1"}, m.Data)

	s.PublishFrame(render.Frame{Width: 1, Height: 1})
	s.PublishFrame(render.Frame{Width: 2, Height: 2})
	var width any
	for i := 0; i < 2 && width != float64(2); i++ {
		m = readMessage(t, conn)
		require.Equal(t, MessageFrame, m.Type)
		data, ok := m.Data.(map[string]any)
		require.True(t, ok)
		width = data["width"]
	}
	assert.Equal(t, float64(2), width)
}

func TestHTTPRoutes(t *testing.T) {
	target := newFakeTarget()
	router := NewServer(target, ServerOptions{}).Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	var st explorer.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, 2, st.Nodes)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/frame.svg", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<circle")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(`{"type":"zoomIn"}`)))
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "zoomIn", target.waitCall(t))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(`{"type":"nope"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
