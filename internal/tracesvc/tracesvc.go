// Package tracesvc streams per-instruction execution events to
// connected websocket clients, grounded on the teacher's
// network.NetworkModule WebSocket server (internal/network/
// websocket.go, websocket_server.go): the same Upgrader-plus-
// Clients-map-plus-broadcast shape, retargeted from a generic
// scripting-language socket primitive to a dedicated push feed
// wired directly to internal/vm.TraceHook.
package tracesvc

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sentra-lang/zincvm/internal/bytecode"
	"github.com/sentra-lang/zincvm/internal/disasm"
	"github.com/sentra-lang/zincvm/internal/vm"
)

// Event is one broadcast trace message, shaped the same whether it
// reports an instruction, a call, a return, or a fatal error.
type Event struct {
	Kind string `json:"kind"` // "instruction", "call", "return", "error"
	PC   int    `json:"pc"`
	Text string `json:"text,omitempty"`
	Step int    `json:"step,omitempty"`
}

// client is one upgraded websocket connection subscribed to the feed.
type client struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
}

func (c *client) send(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if err := c.conn.WriteJSON(ev); err != nil {
		c.closed = true
	}
}

// Server broadcasts trace events to every connected client over a
// websocket endpoint, and itself implements vm.TraceHook so it can be
// attached directly to a running machine via vm.WithHook.
type Server struct {
	mu       sync.RWMutex
	clients  map[string]*client
	upgrader websocket.Upgrader
	httpSrv  *http.Server
	step     int
}

// New builds a trace server ready to accept connections; call Listen
// to actually start serving.
func New() *Server {
	return &Server{
		clients: make(map[string]*client),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Listen starts the HTTP server upgrading every request on path into
// a trace-feed subscriber, the same Upgrader-in-an-http.Handler idiom
// the teacher's WebSocketListen uses.
func (s *Server) Listen(addr, path string) error {
	mux := http.NewServeMux()
	mux.HandleFunc(path, s.handleUpgrade)
	s.httpSrv = &http.Server{Addr: addr, Handler: mux}
	return s.httpSrv.ListenAndServe()
}

// Close shuts down the HTTP server and every connected client.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.clients {
		c.conn.Close()
		delete(s.clients, id)
	}
	if s.httpSrv != nil {
		return s.httpSrv.Close()
	}
	return nil
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	id := fmt.Sprintf("trace_client_%d", time.Now().UnixNano())
	c := &client{conn: conn}

	s.mu.Lock()
	s.clients[id] = c
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, id)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) broadcast(ev Event) {
	s.mu.RLock()
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	for _, c := range clients {
		c.send(ev)
	}
}

// OnInstruction implements vm.TraceHook: broadcasts the disassembled
// instruction text before it executes.
func (s *Server) OnInstruction(_ *vm.VM, pc int, instr *bytecode.Instruction) bool {
	s.step++
	s.broadcast(Event{Kind: "instruction", PC: pc, Text: disasm.Instruction(instr), Step: s.step})
	return true
}

// OnCall implements vm.TraceHook.
func (s *Server) OnCall(_ *vm.VM, funcIdx int, pc int) {
	s.broadcast(Event{Kind: "call", PC: pc, Text: fmt.Sprintf("func #%d", funcIdx)})
}

// OnReturn implements vm.TraceHook.
func (s *Server) OnReturn(_ *vm.VM, pc int) {
	s.broadcast(Event{Kind: "return", PC: pc})
}

// OnError implements vm.TraceHook.
func (s *Server) OnError(_ *vm.VM, err error, pc int) {
	s.broadcast(Event{Kind: "error", PC: pc, Text: err.Error()})
}

var _ vm.TraceHook = (*Server)(nil)
