package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"

	"gridrush/internal/room"
)

// WSMessage is the JSON envelope for inbound WebSocket messages.
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type createRoomPayload struct {
	Name string `json:"name"`
}

type joinRoomPayload struct {
	RoomCode string `json:"roomCode"`
	Name     string `json:"name"`
}

type movePayload struct {
	Position room.Position `json:"position"`
}

type roomCreatedPayload struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
}

type joinErrorPayload struct {
	Message string `json:"message"`
}

// conn is one connected client.
type conn struct {
	id   string
	send chan []byte
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // allow any origin for dev
	})
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer ws.Close(websocket.StatusNormalClosure, "")

	c := &conn{
		id:   uuid.NewString(),
		send: make(chan []byte, 64),
	}
	s.mu.Lock()
	s.conns[c.id] = c
	s.mu.Unlock()

	ctx := r.Context()
	log.Debug().Str("player", c.id).Msg("player connected")

	// Writer goroutine: send messages from the channel to the websocket
	go func() {
		for msg := range c.send {
			if err := ws.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}()

	// Reader loop: handle incoming actions
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			break
		}
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(c.id, "invalid message")
			continue
		}
		s.handleMessage(c, msg)
	}

	s.disconnect(c)
	log.Debug().Str("player", c.id).Msg("player disconnected")
}

func (s *Server) handleMessage(c *conn, msg WSMessage) {
	switch msg.Type {
	case "createRoom":
		var req createRoomPayload
		json.Unmarshal(msg.Payload, &req) // name is optional
		s.createRoom(c, req.Name)

	case "joinRoom":
		var req joinRoomPayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil || req.RoomCode == "" {
			s.sendError(c.id, "invalid join payload")
			return
		}
		s.joinRoom(c, req.RoomCode, req.Name)

	case "playerReady":
		var ready bool
		if err := json.Unmarshal(msg.Payload, &ready); err != nil {
			s.sendError(c.id, "invalid ready payload")
			return
		}
		if rm, ok := s.roomFor(c.id); ok {
			rm.SetReady(c.id, ready)
		}

	case "movePlayer":
		var req movePayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			s.sendError(c.id, "invalid move payload")
			return
		}
		if rm, ok := s.roomFor(c.id); ok {
			rm.Move(c.id, req.Position)
		}

	case "restartGame":
		rm, ok := s.roomFor(c.id)
		if !ok {
			return
		}
		if err := rm.Restart(c.id); err != nil {
			s.sendError(c.id, err.Error())
		}

	default:
		s.sendError(c.id, "unknown message type: "+msg.Type)
	}
}

func (s *Server) createRoom(c *conn, name string) {
	if _, ok := s.roomFor(c.id); ok {
		s.sendError(c.id, "already in a room")
		return
	}
	rm := s.registry.Create()
	if err := rm.AddPlayer(c.id, name); err != nil {
		s.registry.Destroy(rm.Code())
		s.sendError(c.id, err.Error())
		return
	}
	s.mu.Lock()
	s.roomsByConn[c.id] = rm.Code()
	s.mu.Unlock()
	s.Send(c.id, room.Event{Type: room.EventRoomCreated, Payload: roomCreatedPayload{
		RoomCode: rm.Code(),
		PlayerID: c.id,
	}})
	log.Info().Str("room", rm.Code()).Str("player", c.id).Msg("room created")
}

func (s *Server) joinRoom(c *conn, code, name string) {
	if _, ok := s.roomFor(c.id); ok {
		s.sendError(c.id, "already in a room")
		return
	}
	rm, ok := s.registry.Get(code)
	if !ok {
		s.sendError(c.id, room.ErrRoomNotFound.Error())
		return
	}
	if err := rm.AddPlayer(c.id, name); err != nil {
		s.sendError(c.id, err.Error())
		return
	}
	s.mu.Lock()
	s.roomsByConn[c.id] = rm.Code()
	s.mu.Unlock()
	rm.SendState(c.id)
	log.Info().Str("room", rm.Code()).Str("player", c.id).Msg("player joined")
}

func (s *Server) disconnect(c *conn) {
	s.mu.Lock()
	code, inRoom := s.roomsByConn[c.id]
	delete(s.roomsByConn, c.id)
	delete(s.conns, c.id)
	close(c.send) // under mu so Send never races the close
	s.mu.Unlock()

	if inRoom {
		if rm, ok := s.registry.Get(code); ok {
			rm.RemovePlayer(c.id)
		}
	}
}

// roomFor resolves the caller's room through the explicit connection→room
// mapping; actions from connections without a room are dropped.
func (s *Server) roomFor(playerID string) (*room.Room, bool) {
	s.mu.Lock()
	code, ok := s.roomsByConn[playerID]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	return s.registry.Get(code)
}

// Send implements room.Sender. Events are dropped if the connection's
// buffer is full or the connection is gone.
func (s *Server) Send(playerID string, e room.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Str("type", e.Type).Msg("marshal event")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[playerID]
	if !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (s *Server) sendError(playerID, message string) {
	s.Send(playerID, room.Event{Type: room.EventJoinError, Payload: joinErrorPayload{Message: message}})
}
