// Package ws fans marketplace events out to WebSocket subscribers. The hub
// bridges the signal bus to connected clients, each of which may narrow its
// subscription to a subset of channels.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/propchain/marketd/internal/domain"
	"github.com/propchain/marketd/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Channels every client starts subscribed to.
var defaultChannels = []string{
	service.ChannelProperties,
	service.ChannelAuctions,
	service.ChannelBids,
	service.ChannelEscrows,
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin checks are handled by the CORS layer in front of the upgrade.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientCommand is the only message clients send: adjusting which channels
// they receive.
type clientCommand struct {
	Action   string   `json:"action"`
	Channels []string `json:"channels"`
}

type broadcastMsg struct {
	channel string
	payload []byte
}

type client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	channels map[string]bool
}

// Hub relays bus events to WebSocket clients.
type Hub struct {
	bus    domain.SignalBus
	logger *slog.Logger

	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan broadcastMsg
}

func NewHub(bus domain.SignalBus, logger *slog.Logger) *Hub {
	return &Hub{
		bus:        bus,
		logger:     logger,
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan broadcastMsg, 256),
	}
}

// Run pumps bus events to clients until the context is cancelled. It owns the
// clients map; registration and broadcast all go through its channels.
func (h *Hub) Run(ctx context.Context) error {
	for _, ch := range defaultChannels {
		if err := h.subscribe(ctx, ch); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				c.conn.Close()
			}
			return ctx.Err()

		case c := <-h.register:
			h.clients[c] = true
			h.logger.DebugContext(ctx, "ws client connected",
				slog.Int("clients", len(h.clients)))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				if !c.channels[msg.channel] {
					continue
				}
				select {
				case c.send <- msg.payload:
				default:
					// Slow consumer; drop it rather than stall the hub.
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// subscribe bridges one bus channel into the broadcast loop.
func (h *Hub) subscribe(ctx context.Context, channel string) error {
	msgs, err := h.bus.Subscribe(ctx, channel)
	if err != nil {
		return err
	}
	go func() {
		for payload := range msgs {
			select {
			case h.broadcast <- broadcastMsg{channel: channel, payload: payload}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// ServeWS handles GET /ws, upgrading the connection and starting the client
// pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(r.Context(), "ws upgrade failed",
			slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		channels: make(map[string]bool, len(defaultChannels)),
	}
	for _, ch := range defaultChannels {
		c.channels[ch] = true
	}

	h.register <- c
	go c.writePump()
	go c.readPump()
}

// readPump consumes subscription commands until the connection closes, then
// unregisters the client.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd clientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			continue
		}
		switch cmd.Action {
		case "subscribe":
			for _, ch := range cmd.Channels {
				if validChannel(ch) {
					c.channels[ch] = true
				}
			}
		case "unsubscribe":
			for _, ch := range cmd.Channels {
				delete(c.channels, ch)
			}
		}
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func validChannel(ch string) bool {
	for _, known := range defaultChannels {
		if ch == known {
			return true
		}
	}
	return false
}
