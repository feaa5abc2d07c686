// Package preview mirrors the strip to browsers over a websocket. A Server is
// a display sink: every frame drawn on it is broadcast to the connected
// clients as {t, frame_id, rgb}.
package preview

import (
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/coreman2200/ws2812c/model"
)

const (
	writeWait = 200 * time.Millisecond
	// sendQueue is the number of frames a client may fall behind before it
	// is dropped.
	sendQueue = 4
)

type frameMsg struct {
	T       int64  `json:"t"`
	FrameID uint64 `json:"frame_id"`
	RGB     []byte `json:"rgb"`
}

type topologyMsg struct {
	LEDs       int    `json:"leds"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Serpentine bool   `json:"serpentine"`
	Driver     string `json:"driver"`
}

// client owns one websocket. Only its writer goroutine writes to conn.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

type Server struct {
	layout  model.Layout
	driver  string
	log     zerolog.Logger
	marshal func(any) ([]byte, error)

	mu        sync.RWMutex
	rgb       []byte
	frameID   uint64
	startTime time.Time
	clients   map[*client]bool
	up        websocket.Upgrader
}

// NewServer returns a sink for a strip with the given geometry. driver names
// the hardware output the preview sits next to and is only reported.
func NewServer(l model.Layout, driver string, log zerolog.Logger) *Server {
	return &Server{
		layout:    l,
		driver:    driver,
		log:       log,
		rgb:       make([]byte, l.Count()*3),
		marshal:   json.Marshal,
		startTime: time.Now(),
		clients:   map[*client]bool{},
		up:        websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

func (s *Server) String() string          { return "preview" }
func (s *Server) ColorModel() color.Model { return model.ColourModel }
func (s *Server) Bounds() image.Rectangle { return image.Rect(0, 0, s.layout.Count(), 1) }

// Draw snapshots src and queues it for every client without waiting on the
// network. A client whose queue is full is dropped.
func (s *Server) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	f := model.FrameFromImage(src, s.layout.Count())
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range f {
		s.rgb[i*3+0] = c.R
		s.rgb[i*3+1] = c.G
		s.rgb[i*3+2] = c.B
	}
	s.frameID++
	b, err := s.marshal(frameMsg{T: time.Now().UnixNano(), FrameID: s.frameID, RGB: s.rgb})
	if err != nil {
		s.log.Error().Err(err).Uint64("frame_id", s.frameID).Msg("encode frame")
		return nil
	}
	for c := range s.clients {
		select {
		case c.send <- b:
		default:
			s.log.Debug().Str("remote", c.conn.RemoteAddr().String()).Msg("preview client too slow, dropped")
			s.dropLocked(c)
		}
	}
	return nil
}

// Halt disconnects every client.
func (s *Server) Halt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		s.dropLocked(c)
	}
	return nil
}

// Clients is the number of connected websocket clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked(c)
}

// dropLocked closes c's queue, which makes its writer close the connection.
// Must hold s.mu.
func (s *Server) dropLocked(c *client) {
	if !s.clients[c] {
		return
	}
	delete(s.clients, c)
	close(c.send)
}

func (s *Server) writer(c *client) {
	defer c.conn.Close()
	for b := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			s.log.Debug().Err(err).Msg("write frame")
			s.drop(c)
			return
		}
	}
}

func (s *Server) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	top, err := s.marshal(topologyMsg{
		LEDs:       s.layout.Count(),
		Width:      s.layout.Width,
		Height:     s.layout.Height,
		Serpentine: s.layout.Serpentine,
		Driver:     s.driver,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("encode topology")
		conn.Close()
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendQueue)}
	c.send <- top
	s.mu.Lock()
	s.clients[c] = true
	s.mu.Unlock()
	s.log.Debug().Str("remote", r.RemoteAddr).Msg("preview client connected")

	go s.writer(c)
	go func() {
		defer s.drop(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resp := map[string]any{
		"frame_id": s.frameID,
		"uptime_s": time.Since(s.startTime).Seconds(),
		"count":    s.layout.Count(),
		"clients":  len(s.clients),
		"driver":   s.driver,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// Handler routes /ws and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleFramesWS)
	mux.HandleFunc("/health", s.HandleHealth)
	return withCORS(mux)
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
