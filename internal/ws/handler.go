// Package ws exposes the market-data hub over a websocket, fanning out
// the same Ticker/Trade messages the hub delivers to any in-process
// subscriber.
package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"fenrir/internal/marketdata"
)

const writeTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades GET /ws requests and streams marketdata.Hub messages to
// the connection until the client disconnects or a write fails. A slow
// connection is not dropped; it misses the messages its full buffer could
// not take.
type Handler struct {
	hub *marketdata.Hub
}

// New returns a websocket Handler fanning out hub.
func New(hub *marketdata.Hub) *Handler {
	return &Handler{hub: hub}
}

// Register mounts GET /ws on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/ws", h.serve)
}

func (h *Handler) serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws: upgrade failed")
		return
	}
	defer conn.Close()

	ch := h.hub.Subscribe()
	defer h.hub.Unsubscribe(ch)

	// Drain and discard anything the client sends; this processes control
	// frames and lets us notice a close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}
