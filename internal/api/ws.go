package api

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"trip-playback/internal/header"
	"trip-playback/internal/panel"
)

const writeWait = 10 * time.Second

// wsMessage is pushed to websocket clients. Exactly one of View, Header,
// Result or Error is set.
type wsMessage struct {
	Type   string        `json:"type"`
	View   *panel.View   `json:"view,omitempty"`
	Header *header.State `json:"header,omitempty"`
	Result any           `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// wsConn serialises writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(msg wsMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

// handleWS streams every view change of the session and applies commands
// sent by the client.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	c := &wsConn{conn: conn}
	defer conn.Close()

	views, unsubscribe := sess.Panel.Subscribe()
	defer unsubscribe()

	v := sess.Panel.View()
	h := sess.Header.State()
	if err := c.send(wsMessage{Type: "view", View: &v}); err != nil {
		return
	}
	if err := c.send(wsMessage{Type: "header", Header: &h}); err != nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var cmd Command
			if err := conn.ReadJSON(&cmd); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("websocket read error for %s: %v", sess.ID, err)
				}
				return
			}
			res, err := s.apply(sess, cmd)
			msg := wsMessage{Type: "result", Result: res}
			if err != nil {
				msg = wsMessage{Type: "error", Error: err.Error()}
			} else if hs, ok := res.(header.State); ok {
				msg = wsMessage{Type: "header", Header: &hs}
			}
			if err := c.send(msg); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case v, ok := <-views:
			if !ok {
				_ = c.send(wsMessage{Type: "closed"})
				return
			}
			if err := c.send(wsMessage{Type: "view", View: &v}); err != nil {
				return
			}
		}
	}
}
