package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/michaelbrown/opencompiler/internal/events"
	"github.com/michaelbrown/opencompiler/internal/orchestrator"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local tool; the listener binds to loopback by default
	},
}

// Inbound message types.
const (
	msgRunCode   = "run_code"
	msgSendInput = "send_input"
	msgStop      = "stop"
)

// wsIncoming is a message from the client.
type wsIncoming struct {
	Type     string `json:"type"`
	Code     string `json:"code,omitempty"`
	Language string `json:"language,omitempty"`
	Input    string `json:"input,omitempty"`
}

// Outbound messages are events.Event values: {"type":"term_output","data":...}.

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket_upgrade_failed", "error", err)
		return
	}

	c := s.clients.Add(conn, s.hub.Subscribe())
	s.logger.Debug("client_connected",
		"client_id", c.id,
		"remote", r.RemoteAddr,
		"clients", s.clients.Len(),
	)
	defer func() {
		s.clients.Remove(c.id)
		s.logger.Debug("client_disconnected", "client_id", c.id, "clients", s.clients.Len())
	}()

	go s.writeLoop(c)

	for {
		var msg wsIncoming
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket_read_failed", "client_id", c.id, "error", err)
			}
			return
		}
		s.dispatch(c, msg)
	}
}

func (s *Server) dispatch(c *client, msg wsIncoming) {
	switch msg.Type {
	case msgRunCode:
		// Failures are reported to every subscriber as events.
		s.orch.Run(s.ctx, orchestrator.Request{Code: msg.Code, Language: msg.Language})
	case msgSendInput:
		s.orch.SendInput(msg.Input)
	case msgStop:
		s.orch.Stop()
	default:
		s.logger.Debug("websocket_unknown_message", "client_id", c.id, "type", msg.Type)
	}
}

// writeLoop relays broadcast events to one connection. The subscription
// channel closes when the client disconnects or falls too far behind; in
// the latter case the connection is closed so the read loop ends too.
func (s *Server) writeLoop(c *client) {
	for e := range c.sub.C() {
		if err := c.write(e); err != nil {
			s.logger.Debug("websocket_write_failed", "client_id", c.id, "error", err)
			c.close()
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.close()
}

func (c *client) write(e events.Event) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(e)
}
