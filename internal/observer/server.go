// Package observer streams heat frames to WebSocket clients.
package observer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"heatsim/internal/gridio"
	"heatsim/internal/heat"
)

// Info is the JSON description of the most recent frame.
type Info struct {
	Type   string  `json:"type"`
	Frame  uint64  `json:"frame"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Alpha  float32 `json:"alpha"`
	T      float32 `json:"t"`
}

type frame struct {
	info Info
	data []byte
}

type client struct {
	id  uint64
	out chan *frame
}

// Server fans frames out to connected clients. Every frame is sent as a
// JSON text message followed by the world encoded in the half format as a
// binary message. Slow clients miss frames rather than stall Publish.
type Server struct {
	log *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	frames   atomic.Uint64

	mu      sync.Mutex
	clients map[uint64]*client
	latest  *frame
}

func NewServer(logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		log:     logger,
		clients: make(map[uint64]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Publish encodes world and queues it for every client.
func (s *Server) Publish(world *heat.World) error {
	var buf bytes.Buffer
	if err := gridio.Save(&buf, world, gridio.Half); err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	f := &frame{
		info: Info{
			Type:   "FRAME",
			Frame:  s.frames.Add(1),
			Width:  world.Width,
			Height: world.Height,
			Alpha:  world.Alpha,
			T:      world.T,
		},
		data: buf.Bytes(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = f
	for _, c := range s.clients {
		select {
		case c.out <- f:
		default:
		}
	}
	return nil
}

// Clients reports how many sessions are connected.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) join() (*client, *frame) {
	c := &client{id: s.nextID.Add(1), out: make(chan *frame, 4)}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.id] = c
	return c, s.latest
}

func (s *Server) leave(c *client) {
	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
}

// Handler serves the observer endpoints: /ws for the stream and /info for
// the latest frame header.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.WSHandler())
	mux.HandleFunc("/info", s.InfoHandler())
	return mux
}

func (s *Server) InfoHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.mu.Lock()
		latest := s.latest
		s.mu.Unlock()
		if latest == nil {
			http.Error(rw, "no frame yet", http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(latest.info)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		c, latest := s.join()
		defer s.leave(c)
		s.log.Printf("observer %d connected from %s", c.id, remoteHost(r.RemoteAddr))

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				// Clients only send close frames; anything else is ignored.
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		if latest != nil {
			if err := writeFrame(conn, latest); err != nil {
				return
			}
		}
		for {
			select {
			case <-done:
				s.log.Printf("observer %d disconnected", c.id)
				return
			case f := <-c.out:
				if err := writeFrame(conn, f); err != nil {
					s.log.Printf("observer %d: %v", c.id, err)
					return
				}
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, f *frame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteJSON(f.info); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.BinaryMessage, f.data)
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
