package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"RegimeDash/internal/domain/models"
	domrepo "RegimeDash/internal/domain/repository"
	svcmetrics "RegimeDash/internal/service/metrics"
	applogger "RegimeDash/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 90 * time.Second
	pingPeriod = 45 * time.Second
	outBuffer  = 64
)

// Message types sent to and received from the browser.
const (
	TypeSnapshot   = "snapshot"
	TypeSelectDate = "select_date"
	TypeError      = "error"
)

// Envelope is the frame written to every client.
type Envelope struct {
	Type     string           `json:"type"`
	Snapshot *models.Snapshot `json:"snapshot,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Control is a frame read from a client.
type Control struct {
	Type string `json:"type"`
	Date string `json:"date"`
}

// Session is what the hub needs from the session controller.
type Session interface {
	Snapshot() models.Snapshot
	RequestDate(d models.Date) (models.Snapshot, error)
}

type client struct {
	conn *websocket.Conn
	out  chan Envelope
	done chan struct{}

	mu       sync.Mutex
	lastSeq  uint64
	lastRank int
	sent     bool
}

// phaseRank orders the phases of one sequence.
var phaseRank = map[models.Phase]int{
	models.PhaseIdle:     0,
	models.PhaseFetching: 1,
	models.PhaseSettling: 2,
	models.PhaseReady:    3,
}

// offer queues s unless the client has already been sent a newer snapshot.
// Snapshots of the same sequence and phase pass, so quote updates still arrive.
func (c *client) offer(s models.Snapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	rank := phaseRank[s.Phase]
	if c.sent && (s.Seq < c.lastSeq || (s.Seq == c.lastSeq && rank < c.lastRank)) {
		return false
	}
	select {
	case c.out <- Envelope{Type: TypeSnapshot, Snapshot: &s}:
		c.sent = true
		c.lastSeq = s.Seq
		c.lastRank = rank
		return true
	default:
		return false
	}
}

// Hub streams session snapshots to connected browsers and accepts date selections.
type Hub struct {
	session  Session
	log      *applogger.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

var _ domrepo.SnapshotPublisher = (*Hub)(nil)

// NewHub creates a hub bound to session.
func NewHub(session Session, l *applogger.Logger) *Hub {
	if l == nil {
		l = applogger.Nop()
	}
	return &Hub{
		session: session,
		log:     l,
		upgrader: websocket.Upgrader{
			CheckOrigin:       func(*http.Request) bool { return true },
			EnableCompression: true,
		},
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) Name() string { return "ws" }

// Publish broadcasts s to every client. Slow clients miss frames instead of
// blocking, and a client never receives a snapshot older than one it has seen.
func (h *Hub) Publish(_ context.Context, s models.Snapshot) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.offer(s)
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve upgrades the request and blocks until the client goes away.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", applogger.Error(err))
		return nil
	}
	defer conn.Close()

	cl := &client{conn: conn, out: make(chan Envelope, outBuffer), done: make(chan struct{})}
	h.add(cl)
	defer h.remove(cl)

	cl.offer(h.session.Snapshot())

	go h.writeLoop(cl)
	h.readLoop(cl)
	return nil
}

func (h *Hub) add(cl *client) {
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	svcmetrics.WebsocketClients.Set(float64(n))
	h.log.Debug("websocket client connected", applogger.Int("clients", n))
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	delete(h.clients, cl)
	n := len(h.clients)
	h.mu.Unlock()
	svcmetrics.WebsocketClients.Set(float64(n))
	close(cl.done)
	h.log.Debug("websocket client disconnected", applogger.Int("clients", n))
}

func (h *Hub) writeLoop(cl *client) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case env := <-cl.out:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteJSON(env); err != nil {
				_ = cl.conn.Close()
				return
			}
		case <-ping.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = cl.conn.Close()
				return
			}
		case <-cl.done:
			return
		}
	}
}

func (h *Hub) readLoop(cl *client) {
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		mt, data, err := cl.conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		var ctrl Control
		if err := json.Unmarshal(data, &ctrl); err != nil || ctrl.Type != TypeSelectDate {
			continue
		}
		h.selectDate(cl, ctrl.Date)
	}
}

func (h *Hub) selectDate(cl *client, raw string) {
	d, err := models.ParseDate(raw)
	if err == nil {
		_, err = h.session.RequestDate(d)
	}
	if err != nil {
		select {
		case cl.out <- Envelope{Type: TypeError, Error: err.Error()}:
		default:
		}
	}
}
