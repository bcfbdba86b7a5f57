package room

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"gridrush/internal/grid"
)

// Phase is a room's coarse lifecycle state.
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseStarting
	PhaseActive
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhaseStarting:
		return "starting"
	case PhaseActive:
		return "active"
	case PhaseEnded:
		return "ended"
	}
	return "unknown"
}

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrAlreadyStarted = errors.New("game already started")
	ErrRoomFull       = errors.New("room is full")
	ErrNotHost        = errors.New("only the host can restart")
)

// Config holds the tunable timings of a session. Tests shrink these.
type Config struct {
	Countdown time.Duration // lobby-ready to active
	GameTime  time.Duration // active play length
	Tick      time.Duration // timeLeft resolution
}

// DefaultConfig returns the standard 3s countdown / 30s game timings.
func DefaultConfig() Config {
	return Config{
		Countdown: 3 * time.Second,
		GameTime:  30 * time.Second,
		Tick:      time.Second,
	}
}

// MatchRecorder receives the outcome of every finished game.
type MatchRecorder interface {
	RecordMatch(roomCode, winnerID string, scores []ScoreEntry) error
}

// Room is one independent game session. All state is guarded by mu; timer
// callbacks re-acquire it and verify their generation so a cancelled timer
// never mutates the room.
type Room struct {
	code     string
	cfg      Config
	sender   Sender
	recorder MatchRecorder     // may be nil
	onEmpty  func(code string) // registry hook, invoked after the last player leaves

	mu        sync.Mutex
	phase     Phase
	players   map[string]*Player
	order     []string // join order; drives host migration and tie-breaks
	hostID    string
	grid      *grid.Grid
	timeLeft  int
	timer     *time.Timer
	timerGen  uint64
	destroyed bool
}

// Code returns the room's join code.
func (r *Room) Code() string { return r.code }

// Phase returns the current lifecycle phase.
func (r *Room) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// TimeLeft returns the remaining game seconds.
func (r *Room) TimeLeft() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timeLeft
}

// HostID returns the current host's player id, or "" for an empty room.
func (r *Room) HostID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID
}

// Players returns a snapshot of the member map.
func (r *Room) Players() map[string]Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playersLocked()
}

// Info summarizes the room for the listing endpoint.
type Info struct {
	Code    string `json:"code"`
	Phase   string `json:"phase"`
	Players int    `json:"players"`
}

func (r *Room) Info() Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Info{Code: r.code, Phase: r.phase.String(), Players: len(r.players)}
}

// AddPlayer inserts a new member. The first player becomes host. Existing
// members are notified with a playerJoined delta; the joiner gets its full
// snapshot separately via SendState.
func (r *Room) AddPlayer(id, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return ErrRoomNotFound
	}
	if r.phase != PhaseLobby {
		return ErrAlreadyStarted
	}
	if len(r.players) >= MaxPlayers {
		return ErrRoomFull
	}
	p := &Player{
		ID:     id,
		Name:   name,
		Color:  r.freeColorLocked(),
		IsHost: len(r.players) == 0,
	}
	if p.IsHost {
		r.hostID = id
	}
	// broadcast before inserting so the joiner does not hear its own delta
	r.broadcastLocked(Event{EventPlayerJoined, PlayerJoinedPayload{PlayerID: id, PlayerInfo: *p}})
	r.players[id] = p
	r.order = append(r.order, id)
	return nil
}

// SendState sends the full room snapshot to one member. The joiner needs the
// complete player list while everyone else only got the delta.
func (r *Room) SendState(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[id]; !ok {
		return
	}
	r.sender.Send(id, Event{EventRoomJoined, RoomJoinedPayload{
		RoomCode: r.code,
		PlayerID: id,
		Players:  r.playersLocked(),
	}})
}

// SetReady updates a member's ready flag and starts the countdown once all
// of at least two members are ready. Unknown members are ignored.
func (r *Room) SetReady(id string, ready bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok || r.destroyed {
		return
	}
	p.Ready = ready
	r.broadcastLocked(Event{EventPlayerStatus, PlayerStatusPayload{PlayerID: id, Ready: ready}})

	if r.phase != PhaseLobby || len(r.players) < 2 {
		return
	}
	for _, q := range r.players {
		if !q.Ready {
			return
		}
	}
	r.phase = PhaseStarting
	r.broadcastLocked(Event{EventGameStart, GameStartPayload{Countdown: int(r.cfg.Countdown / time.Second)}})
	r.scheduleLocked(r.cfg.Countdown, r.activate)
}

// Move clamps the target, updates the player's position and resolves cell
// capture. Ignored outside the active phase and for unknown members.
func (r *Room) Move(id string, pos Position) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok || r.destroyed || r.phase != PhaseActive {
		return
	}
	pos.X = grid.Clamp(pos.X)
	pos.Y = grid.Clamp(pos.Y)
	p.Position = pos

	if prev, changed := r.grid.Paint(pos.X, pos.Y, p.Color); changed {
		if prev != "" {
			if owner := r.playerByColorLocked(prev); owner != nil {
				owner.Score--
			}
		}
		p.Score++
		r.broadcastLocked(Event{EventGridUpdated, GridUpdatedPayload{X: pos.X, Y: pos.Y, Color: p.Color}})
		r.broadcastLocked(Event{EventScoresUpdated, r.scoresLocked()})
	}
	r.broadcastExceptLocked(id, Event{EventPlayerMoved, PlayerMovedPayload{PlayerID: id, Position: pos}})
}

// Restart resets the room to a fresh lobby. Only the host may restart.
func (r *Room) Restart(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return ErrRoomNotFound
	}
	if id != r.hostID {
		return ErrNotHost
	}
	r.cancelTimerLocked()
	r.resetLocked()
	r.broadcastLocked(Event{Type: EventGameRestarted})
	return nil
}

// RemovePlayer deletes a member, migrating the host to the earliest-joined
// survivor and tearing the room down if nobody remains. An active game with
// fewer than two survivors is force-ended.
func (r *Room) RemovePlayer(id string) {
	r.mu.Lock()
	p, ok := r.players[id]
	if !ok || r.destroyed {
		r.mu.Unlock()
		return
	}
	delete(r.players, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.broadcastLocked(Event{EventPlayerLeft, PlayerLeftPayload{PlayerID: id}})

	if len(r.players) == 0 {
		r.cancelTimerLocked()
		r.destroyed = true
		onEmpty, code := r.onEmpty, r.code
		r.mu.Unlock()
		if onEmpty != nil {
			onEmpty(code)
		}
		return
	}

	if p.IsHost {
		next := r.players[r.order[0]]
		next.IsHost = true
		r.hostID = next.ID
		r.broadcastLocked(Event{EventNewHost, NewHostPayload{PlayerID: next.ID}})
	}

	if len(r.players) < 2 {
		switch r.phase {
		case PhaseActive:
			// a race cannot be won alone
			r.endGameLocked()
		case PhaseStarting:
			r.cancelTimerLocked()
			r.phase = PhaseLobby
		}
	}
	r.mu.Unlock()
}

// shutdown cancels timers and marks the room dead. Called by the registry
// when the room is destroyed explicitly.
func (r *Room) shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelTimerLocked()
	r.destroyed = true
}

// activate fires when the starting countdown elapses.
func (r *Room) activate(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed || gen != r.timerGen || r.phase != PhaseStarting {
		return
	}
	r.phase = PhaseActive
	r.grid.Reset()
	r.timeLeft = int(r.cfg.GameTime / r.cfg.Tick)
	r.broadcastLocked(Event{EventGridInitialized, GridInitializedPayload{Grid: r.grid.Snapshot()}})
	r.scheduleLocked(r.cfg.Tick, r.tick)
}

// tick fires once per game second.
func (r *Room) tick(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed || gen != r.timerGen || r.phase != PhaseActive {
		return
	}
	r.timeLeft--
	r.broadcastLocked(Event{EventTimeUpdated, TimeUpdatedPayload{TimeLeft: r.timeLeft}})
	if r.timeLeft <= 0 {
		r.endGameLocked()
		return
	}
	r.scheduleLocked(r.cfg.Tick, r.tick)
}

func (r *Room) endGameLocked() {
	r.cancelTimerLocked()
	scores := r.scoresLocked()
	winner, best := "", -1
	for _, e := range scores {
		if e.Score > best {
			winner, best = e.PlayerID, e.Score
		}
	}
	r.phase = PhaseEnded
	if r.recorder != nil {
		if err := r.recorder.RecordMatch(r.code, winner, scores); err != nil {
			log.Error().Err(err).Str("room", r.code).Msg("record match")
		}
	}
	r.broadcastLocked(Event{EventGameEnded, GameEndedPayload{Scores: scores, Winner: winner}})
	r.resetLocked()
}

// resetLocked returns the room to a replayable lobby without touching
// membership or host assignment.
func (r *Room) resetLocked() {
	r.phase = PhaseLobby
	r.grid.Reset()
	r.timeLeft = 0
	for _, p := range r.players {
		p.Ready = false
		p.Score = 0
		p.Position = Position{}
	}
}

// scheduleLocked arms the room timer. The captured generation invalidates
// the callback if cancelTimerLocked runs before it fires.
func (r *Room) scheduleLocked(d time.Duration, fn func(gen uint64)) {
	gen := r.timerGen
	r.timer = time.AfterFunc(d, func() { fn(gen) })
}

func (r *Room) cancelTimerLocked() {
	r.timerGen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// broadcastLocked sends an event to every member in join order.
func (r *Room) broadcastLocked(e Event) {
	for _, id := range r.order {
		r.sender.Send(id, e)
	}
}

func (r *Room) broadcastExceptLocked(skip string, e Event) {
	for _, id := range r.order {
		if id != skip {
			r.sender.Send(id, e)
		}
	}
}

// scoresLocked builds the score table in join order.
func (r *Room) scoresLocked() []ScoreEntry {
	scores := make([]ScoreEntry, 0, len(r.order))
	for _, id := range r.order {
		p := r.players[id]
		scores = append(scores, ScoreEntry{PlayerID: p.ID, Color: p.Color, Score: p.Score})
	}
	return scores
}

func (r *Room) playersLocked() map[string]Player {
	out := make(map[string]Player, len(r.players))
	for id, p := range r.players {
		out[id] = *p
	}
	return out
}

func (r *Room) playerByColorLocked(color string) *Player {
	for _, p := range r.players {
		if p.Color == color {
			return p
		}
	}
	return nil
}

// freeColorLocked picks the first palette color not held by a member, so
// owner-by-color lookups during capture stay unambiguous.
func (r *Room) freeColorLocked() string {
	used := make(map[string]bool, len(r.players))
	for _, p := range r.players {
		used[p.Color] = true
	}
	for _, c := range palette {
		if !used[c] {
			return c
		}
	}
	return palette[0] // unreachable while MaxPlayers == len(palette)
}
