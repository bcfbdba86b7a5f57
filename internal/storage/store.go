package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"gridrush/internal/room"
)

// MatchRow is one finished game as stored in the history log.
type MatchRow struct {
	ID         int64             `json:"id"`
	RoomCode   string            `json:"roomCode"`
	WinnerID   string            `json:"winner"`
	Scores     []room.ScoreEntry `json:"scores"`
	FinishedAt time.Time         `json:"finishedAt"`
}

// Store appends finished games to SQLite. It is a write-mostly audit log;
// live rooms never read from it.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database and runs migrations.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS matches (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			room_code   TEXT NOT NULL,
			winner_id   TEXT NOT NULL,
			scores_json TEXT NOT NULL,
			finished_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_matches_finished_at ON matches(finished_at);
	`)
	return err
}

// RecordMatch appends one finished game. Implements room.MatchRecorder.
func (s *Store) RecordMatch(roomCode, winnerID string, scores []room.ScoreEntry) error {
	data, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}
	_, err = s.db.Exec(
		"INSERT INTO matches (room_code, winner_id, scores_json) VALUES (?, ?, ?)",
		roomCode, winnerID, string(data),
	)
	return err
}

// RecentMatches returns the most recently finished games, newest first.
func (s *Store) RecentMatches(limit int) ([]MatchRow, error) {
	rows, err := s.db.Query(
		"SELECT id, room_code, winner_id, scores_json, finished_at FROM matches ORDER BY finished_at DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []MatchRow
	for rows.Next() {
		var mr MatchRow
		var scoresJSON string
		if err := rows.Scan(&mr.ID, &mr.RoomCode, &mr.WinnerID, &scoresJSON, &mr.FinishedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(scoresJSON), &mr.Scores); err != nil {
			return nil, fmt.Errorf("unmarshal scores for match %d: %w", mr.ID, err)
		}
		result = append(result, mr)
	}
	return result, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
