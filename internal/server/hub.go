package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 32
	maxMessage = 4096
)

// client is one websocket connection. Only its write loop writes to conn,
// and only the hub sends on or closes send.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

type envelope struct {
	c   *client
	msg []byte
}

// hub fans snapshots out to every connected client. Registration and
// broadcast are serialised through run.
type hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	direct     chan envelope
	counts     chan chan int
	done       chan struct{}
	wg         sync.WaitGroup
	closeOnce  sync.Once
	logger     *slog.Logger
}

func newHub(logger *slog.Logger) *hub {
	h := &hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		direct:     make(chan envelope),
		counts:     make(chan chan int),
		done:       make(chan struct{}),
		logger:     logger,
	}
	h.wg.Add(1)
	go h.run()
	return h
}

func (h *hub) run() {
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return

		case c := <-h.register:
			h.clients[c] = true

		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}

		case e := <-h.direct:
			if h.clients[e.c] {
				h.deliver(e.c, e.msg)
			}

		case reply := <-h.counts:
			reply <- len(h.clients)

		case msg := <-h.broadcast:
			for c := range h.clients {
				h.deliver(c, msg)
			}
		}
	}
}

// deliver queues msg on c, dropping a client whose buffer is full. It can
// reconnect and resync from the next snapshot.
func (h *hub) deliver(c *client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		h.logger.Warn("dropping slow websocket client", "remote", c.conn.RemoteAddr())
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *hub) add(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *hub) remove(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// publish queues msg for every client without blocking.
func (h *hub) publish(msg []byte) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		h.logger.Warn("websocket broadcast queue full; dropping snapshot")
	}
}

// sendTo queues msg for c alone.
func (h *hub) sendTo(c *client, msg []byte) {
	select {
	case h.direct <- envelope{c: c, msg: msg}:
	case <-h.done:
	}
}

// count returns the number of registered clients.
func (h *hub) count() int {
	reply := make(chan int, 1)
	select {
	case h.counts <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

func (h *hub) close() {
	h.closeOnce.Do(func() { close(h.done) })
	h.wg.Wait()
}

// writeLoop drains c.send and keeps the connection alive with pings.
func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
