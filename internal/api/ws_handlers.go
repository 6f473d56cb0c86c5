package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rada-ai/rada-vms/internal/events"
	"github.com/rada-ai/rada-vms/internal/middleware"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// tokens travel in the query string, CORS does not apply to upgrades
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventStreamHandler pushes applied transitions to dashboard clients.
type EventStreamHandler struct {
	Auth *middleware.JWTAuth
	Hub  *events.Hub
}

func (h *EventStreamHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on upgrades, so the token is a query param
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	ac, ok := h.Auth.Authenticate(r, tokenStr)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	transitions, unsubscribe := h.Hub.Subscribe()
	defer unsubscribe()
	log.Printf("[WS] connected user=%s", ac.UserID)

	// reader only services control frames and notices the client leaving
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			log.Printf("[WS] disconnected user=%s", ac.UserID)
			return
		case <-r.Context().Done():
			return
		case t, ok := <-transitions:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(t); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
