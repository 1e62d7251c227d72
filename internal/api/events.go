package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Loopback-only server with no auth (spec §4.6); any local origin may
	// connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleEvents implements the supplemented GET /events endpoint: a live
// websocket stream of changed hashes backed by the index's bounded
// broadcaster (spec §5's backpressure semantics carry over unchanged —
// a slow websocket client loses intermediate events but always receives
// the latest hash).
func (s *Server) handleEvents(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, unsubscribe := s.index.Broadcaster().Subscribe()
	defer unsubscribe()

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
		case hash, ok := <-ch:
			if !ok {
				return nil
			}
			frame := map[string]string{"hash": hash, "at": time.Now().UTC().Format(time.RFC3339)}
			if err := conn.WriteJSON(frame); err != nil {
				return nil
			}
		case <-closed:
			return nil
		}
	}
}
