package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"gridrush/internal/room"
	"gridrush/internal/storage"
)

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	env := setupTestEnv(t, idleConfig())
	var body map[string]string
	if status := getJSON(t, env.ts.URL+"/healthz", &body); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected health body %v", body)
	}
}

func TestListRooms(t *testing.T) {
	env := setupTestEnv(t, idleConfig())

	var infos []room.Info
	getJSON(t, env.ts.URL+"/api/rooms", &infos)
	if len(infos) != 0 {
		t.Fatalf("expected no rooms, got %d", len(infos))
	}

	c := dial(t, env)
	code := c.createRoom(t)

	getJSON(t, env.ts.URL+"/api/rooms", &infos)
	if len(infos) != 1 {
		t.Fatalf("expected 1 room, got %d", len(infos))
	}
	if infos[0].Code != code || infos[0].Players != 1 || infos[0].Phase != "lobby" {
		t.Fatalf("unexpected room info %+v", infos[0])
	}
}

func TestRecentMatchesEndpoint(t *testing.T) {
	env := setupTestEnv(t, idleConfig())

	var matches []storage.MatchRow
	if status := getJSON(t, env.ts.URL+"/api/matches", &matches); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(matches) != 0 {
		t.Fatalf("expected empty history, got %d", len(matches))
	}

	env.store.RecordMatch("ABCD", "p1", []room.ScoreEntry{{PlayerID: "p1", Score: 2}})
	getJSON(t, env.ts.URL+"/api/matches", &matches)
	if len(matches) != 1 || matches[0].WinnerID != "p1" {
		t.Fatalf("unexpected history %+v", matches)
	}
}
