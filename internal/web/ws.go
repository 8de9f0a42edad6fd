package web

import (
	"log"
	"net/http"
	"time"

	"neighborly/internal/hub"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleWebSocket upgrades the connection and attaches it to the hub under
// the session's user id. Server→client frames are the JSON event envelopes;
// client→server frames are read and logged only.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	client := s.hub.Register(userID)
	log.Printf("websocket client %s connected (user %d)", client.ID, userID)

	go s.writePump(conn, client)
	go s.readPump(conn, client)
}

// writePump drains the client's event channel onto the socket and keeps the
// connection alive with pings
func (s *Server) writePump(conn *websocket.Conn, client *hub.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case payload, ok := <-client.Events():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump consumes inbound frames until the connection drops. Inbound
// payloads are not acted upon.
func (s *Server) readPump(conn *websocket.Conn, client *hub.Client) {
	defer func() {
		s.hub.Unregister(client)
		conn.Close()
		log.Printf("websocket client %s disconnected", client.ID)
	}()

	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		log.Printf("websocket client %s sent %d bytes (ignored)", client.ID, len(payload))
	}
}
