package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"gridrush/internal/room"
	"gridrush/internal/storage"
)

// --- Test environment ---

type testEnv struct {
	ts    *httptest.Server
	srv   *Server
	store *storage.Store
}

// idleConfig keeps timers far in the future so tests control pacing.
func idleConfig() room.Config {
	return room.Config{
		Countdown: time.Hour,
		GameTime:  30 * time.Hour,
		Tick:      time.Hour,
	}
}

func setupTestEnv(t *testing.T, cfg room.Config) *testEnv {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	srv := New(cfg, store)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, srv: srv, store: store}
}

// --- WebSocket client helpers ---

type wsClient struct {
	conn *websocket.Conn
	ctx  context.Context
	id   string // learned from roomCreated/roomJoined
}

func dial(t *testing.T, env *testEnv) *wsClient {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	url := strings.Replace(env.ts.URL, "http://", "ws://", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return &wsClient{conn: conn, ctx: ctx}
}

func (c *wsClient) send(t *testing.T, msgType string, payload any) {
	t.Helper()
	p, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	msg, _ := json.Marshal(WSMessage{Type: msgType, Payload: p})
	if err := c.conn.Write(c.ctx, websocket.MessageText, msg); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// recv reads the next event.
func (c *wsClient) recv(t *testing.T) WSMessage {
	t.Helper()
	_, data, err := c.conn.Read(c.ctx)
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	return msg
}

// expect reads events until one of the wanted type arrives, skipping others.
func (c *wsClient) expect(t *testing.T, eventType string) json.RawMessage {
	t.Helper()
	for i := 0; i < 50; i++ {
		msg := c.recv(t)
		if msg.Type == eventType {
			return msg.Payload
		}
	}
	t.Fatalf("never received %s", eventType)
	return nil
}

// createRoom drives the create flow and returns the room code.
func (c *wsClient) createRoom(t *testing.T) string {
	t.Helper()
	c.send(t, "createRoom", createRoomPayload{Name: "host"})
	payload := c.expect(t, room.EventRoomCreated)
	var created roomCreatedPayload
	if err := json.Unmarshal(payload, &created); err != nil {
		t.Fatalf("unmarshal roomCreated: %v", err)
	}
	c.id = created.PlayerID
	return created.RoomCode
}

// joinRoom drives the join flow and returns the received snapshot.
func (c *wsClient) joinRoom(t *testing.T, code string) room.RoomJoinedPayload {
	t.Helper()
	c.send(t, "joinRoom", joinRoomPayload{RoomCode: code, Name: "guest"})
	payload := c.expect(t, room.EventRoomJoined)
	var joined room.RoomJoinedPayload
	if err := json.Unmarshal(payload, &joined); err != nil {
		t.Fatalf("unmarshal roomJoined: %v", err)
	}
	c.id = joined.PlayerID
	return joined
}
