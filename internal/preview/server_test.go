package preview

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/ws2812c/model"
	"github.com/coreman2200/ws2812c/spi"
	"github.com/coreman2200/ws2812c/transmit"
	"github.com/coreman2200/ws2812c/ws2812"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func waitClients(t *testing.T, s *Server, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return s.Clients() == n }, 2*time.Second, 5*time.Millisecond)
}

func TestFrameBroadcast(t *testing.T) {
	l := model.Layout{Width: 2, Height: 2, Serpentine: true}
	s := NewServer(l, "sim", zerolog.Nop())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	c := dial(t, srv)
	var top topologyMsg
	require.NoError(t, c.ReadJSON(&top))
	assert.Equal(t, topologyMsg{LEDs: 4, Width: 2, Height: 2, Serpentine: true, Driver: "sim"}, top)
	waitClients(t, s, 1)

	f := model.Frame{model.Red, model.Green, model.Blue, model.NewColour(1, 2, 3)}
	require.NoError(t, s.Draw(s.Bounds(), f.Image(), image.Point{}))
	require.NoError(t, s.Draw(s.Bounds(), f.Image(), image.Point{}))

	var m frameMsg
	require.NoError(t, c.ReadJSON(&m))
	assert.Equal(t, uint64(1), m.FrameID)
	assert.Equal(t, []byte{255, 0, 0, 0, 255, 0, 0, 0, 255, 1, 2, 3}, m.RGB)
	assert.NotZero(t, m.T)

	require.NoError(t, c.ReadJSON(&m))
	assert.Equal(t, uint64(2), m.FrameID)
}

func TestDrawWithoutClients(t *testing.T) {
	s := NewServer(model.Linear(3), "sim", zerolog.Nop())
	f := model.NewFrame(3)
	f.Fill(model.White)
	assert.NoError(t, s.Draw(s.Bounds(), f.Image(), image.Point{}))
	assert.Equal(t, image.Rect(0, 0, 3, 1), s.Bounds())
	assert.Equal(t, "preview", s.String())
}

func TestHealth(t *testing.T) {
	s := NewServer(model.Linear(5), "spi", zerolog.Nop())
	require.NoError(t, s.Draw(s.Bounds(), model.NewFrame(5).Image(), image.Point{}))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(1), resp["frame_id"])
	assert.Equal(t, float64(5), resp["count"])
	assert.Equal(t, "spi", resp["driver"])
}

func TestHaltDisconnects(t *testing.T) {
	s := NewServer(model.Linear(1), "sim", zerolog.Nop())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	c := dial(t, srv)
	var top topologyMsg
	require.NoError(t, c.ReadJSON(&top))
	waitClients(t, s, 1)

	require.NoError(t, s.Halt())
	assert.Equal(t, 0, s.Clients())
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := c.ReadMessage()
	assert.Error(t, err)
}

func TestClientGoneIsDropped(t *testing.T) {
	s := NewServer(model.Linear(1), "sim", zerolog.Nop())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	c := dial(t, srv)
	var top topologyMsg
	require.NoError(t, c.ReadJSON(&top))
	waitClients(t, s, 1)

	c.Close()
	waitClients(t, s, 0)
}

func TestStalledClientDoesNotBlockDraw(t *testing.T) {
	const n = 20000
	s := NewServer(model.Linear(n), "sim", zerolog.Nop())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	// connected, but never reads again
	dial(t, srv)
	waitClients(t, s, 1)

	f := model.NewFrame(n)
	deadline := time.Now().Add(10 * time.Second)
	for i := 0; s.Clients() > 0; i++ {
		require.True(t, time.Now().Before(deadline), "stalled client never dropped")
		f.Fill(model.HueToRGB(i * 7))
		start := time.Now()
		require.NoError(t, s.Draw(s.Bounds(), f.Image(), image.Point{}))
		require.Less(t, time.Since(start), writeWait/2, "draw %d waited on the network", i)
	}
}

func TestStalledClientDoesNotStallTransfers(t *testing.T) {
	const n = 20000
	s := NewServer(model.Linear(n), "sim", zerolog.Nop())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	dial(t, srv)
	waitClients(t, s, 1)

	done := &transmit.Signal{}
	port := spi.NewPort(ws2812.DefaultTiming, done.Set, s)
	defer port.Close()
	sync := transmit.NewSynchronizer(port, done, 0)
	enc, err := ws2812.NewEncoder(n, ws2812.DefaultTiming)
	require.NoError(t, err)

	f := model.NewFrame(n)
	for i := 0; i < 100; i++ {
		f.Fill(model.HueToRGB(i * 15))
		buf, err := enc.Encode(f)
		require.NoError(t, err)
		require.NoError(t, sync.Transmit(buf), "frame %d", i)
	}
}

func TestDrawLogsEncodeFailure(t *testing.T) {
	var logs bytes.Buffer
	s := NewServer(model.Linear(2), "sim", zerolog.New(&logs))
	s.marshal = func(any) ([]byte, error) { return nil, errors.New("boom") }

	assert.NoError(t, s.Draw(s.Bounds(), model.NewFrame(2).Image(), image.Point{}))
	assert.Contains(t, logs.String(), `"error":"boom"`)
	assert.Contains(t, logs.String(), "encode frame")
}
