package httphandler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/escrowd/internal/core/ports"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientQueueLen = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	topic string
	send  chan []byte
}

// EventHub streams offer events to websocket clients. Clients that don't keep
// up with the stream are disconnected.
type EventHub struct {
	lock    sync.Mutex
	clients map[*client]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{clients: make(map[*client]struct{})}
}

// OnEvent implements ports.EventListener.
func (h *EventHub) OnEvent(topic string, message []byte) {
	h.lock.Lock()
	defer h.lock.Unlock()

	for c := range h.clients {
		if c.topic != ports.AnyTopic && c.topic != topic {
			continue
		}
		select {
		case c.send <- message:
		default:
			log.Warn("dropping slow events client")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// NumOfClients returns the number of connected clients.
func (h *EventHub) NumOfClients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

// Close disconnects all clients.
func (h *EventHub) Close() {
	h.lock.Lock()
	defer h.lock.Unlock()

	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// Stream upgrades the connection and streams the events of the topic given
// in the optional "event" query param.
func (h *EventHub) Stream(c *gin.Context) {
	topic := c.DefaultQuery("event", ports.AnyTopic)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Debug("failed to upgrade events connection")
		return
	}

	cl := &client{topic, make(chan []byte, clientQueueLen)}
	h.register(cl)

	go h.readPump(conn, cl)
	h.writePump(conn, cl)
}

func (h *EventHub) register(c *client) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.clients[c] = struct{}{}
}

func (h *EventHub) unregister(c *client) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// readPump only serves control frames, clients are not expected to send
// anything.
func (h *EventHub) readPump(conn *websocket.Conn, c *client) {
	defer h.unregister(c)

	conn.SetReadLimit(512)
	//nolint
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(
				err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			) {
				log.WithError(err).Debug("events client disconnected")
			}
			return
		}
	}
}

func (h *EventHub) writePump(conn *websocket.Conn, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			//nolint
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				//nolint
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
