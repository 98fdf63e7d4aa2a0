package gateway

import (
	"encoding/json"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/session"
)

const (
	frameMessage = "message"
	frameReply   = "reply"
	frameCommand = "command"
	frameError   = "error"
)

type clientFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type serverFrame struct {
	Type     string                `json:"type"`
	Session  string                `json:"session,omitempty"`
	Content  string                `json:"content,omitempty"`
	Messages []session.ChatMessage `json:"messages,omitempty"`
	Actions  []session.Action      `json:"actions,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// handleWebSocket serves one connection bound to ?session=ID (a new ID when
// omitted). Frames are handled in order; each message frame gets exactly one
// reply or error frame.
func (s *Server) handleWebSocket(c *gin.Context) {
	id := c.Query("session")
	if id == "" {
		id = uuid.NewString()
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	log := s.logger.With("session", id)
	log.Info("WebSocket connected", "remote", c.Request.RemoteAddr)
	ctx := c.Request.Context()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("WebSocket read failed", "err", err)
			}
			log.Info("WebSocket disconnected")
			return
		}

		out := s.handleFrame(c, id, data)
		if err := conn.WriteJSON(out); err != nil {
			log.Warn("WebSocket write failed", "err", err)
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (s *Server) handleFrame(c *gin.Context, id string, data []byte) serverFrame {
	var in clientFrame
	if err := json.Unmarshal(data, &in); err != nil {
		return serverFrame{Type: frameError, Session: id, Error: "invalid frame: " + err.Error()}
	}
	if in.Type != frameMessage {
		return serverFrame{Type: frameError, Session: id, Error: "unsupported frame type " + strconv.Quote(in.Type)}
	}

	ctx := c.Request.Context()
	o := s.pool.GetOrCreate(id)
	if reply, ok := o.HandleCommand(ctx, in.Content); ok {
		return serverFrame{Type: frameCommand, Session: id, Content: reply}
	}

	resp, err := s.process(ctx, id, in.Content)
	if err != nil {
		return serverFrame{Type: frameError, Session: id, Error: err.Error()}
	}
	return serverFrame{Type: frameReply, Session: resp.Session, Messages: resp.Messages, Actions: resp.Actions}
}
