package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"slotshare-backend/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const wsWriteTimeout = 10 * time.Second

// SlotsWebSocket streams slot_occupied, slot_released and
// queue_changed events to the client. The client may send the text
// frame "ping" at any time and receives "pong" back.
func (h *Handler) SlotsWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := h.bus.Subscribe()
	defer sub.Close()

	metrics.WSClients.Inc()
	defer metrics.WSClients.Dec()

	// gorilla connections allow one concurrent writer; the event pump
	// and the pong reply share this mutex.
	var writeMu sync.Mutex
	write := func(messageType int, data []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteMessage(messageType, data)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case ev, ok := <-sub.C:
				if !ok {
					return
				}
				data, err := json.Marshal(ev)
				if err != nil {
					log.Printf("websocket: marshal event: %v", err)
					continue
				}
				if err := write(websocket.TextMessage, data); err != nil {
					return
				}
			case <-sub.Done():
				return
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if messageType == websocket.TextMessage && string(data) == "ping" {
			if err := write(websocket.TextMessage, []byte("pong")); err != nil {
				break
			}
		}
	}

	sub.Close()
	<-done
}
