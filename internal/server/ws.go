package server

import (
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatFrame is the WebSocket message format, both directions.
type chatFrame struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
	Error     string `json:"error,omitempty"`
}

// handleWebSocket runs one chat connection. The first frame without a
// session id is assigned one, which the client echoes on later frames.
// Messages on a connection are handled sequentially; cross-connection
// ordering for a shared session is the engine's per-session lock.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	for {
		var frame chatFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("server: websocket read: %v", err)
			}
			return
		}

		if frame.Content == "" {
			s.sendFrame(conn, chatFrame{SessionID: frame.SessionID, Error: "content is required"})
			continue
		}
		if frame.SessionID == "" {
			frame.SessionID = uuid.New().String()
		}

		reply := s.engine.HandleMessage(r.Context(), frame.SessionID, frame.Content)
		s.sendFrame(conn, chatFrame{SessionID: frame.SessionID, Content: reply})
	}
}

func (s *Server) sendFrame(conn *websocket.Conn, frame chatFrame) {
	if err := conn.WriteJSON(frame); err != nil {
		log.Printf("server: websocket write: %v", err)
	}
}
