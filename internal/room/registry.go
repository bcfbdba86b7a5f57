package room

import (
	"crypto/rand"
	"strings"
	"sync"

	"gridrush/internal/grid"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeLength   = 4
)

// Registry owns every live room, keyed by join code. It is injected into
// the dispatcher rather than living as package state so tests can run
// isolated registries in parallel.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	cfg      Config
	sender   Sender
	recorder MatchRecorder
}

// NewRegistry creates an empty registry. recorder may be nil.
func NewRegistry(cfg Config, sender Sender, recorder MatchRecorder) *Registry {
	return &Registry{
		rooms:    make(map[string]*Room),
		cfg:      cfg,
		sender:   sender,
		recorder: recorder,
	}
}

// Create inserts a new lobby-phase room under a fresh collision-free code.
// The caller must add the creating player afterwards.
func (reg *Registry) Create() *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	code := reg.generateCodeLocked()
	r := &Room{
		code:     code,
		cfg:      reg.cfg,
		sender:   reg.sender,
		recorder: reg.recorder,
		onEmpty:  reg.remove,
		phase:    PhaseLobby,
		players:  make(map[string]*Player),
		grid:     grid.New(),
	}
	reg.rooms[code] = r
	return r
}

// Get looks up a room by code, case-insensitively.
func (reg *Registry) Get(code string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[strings.ToUpper(code)]
	return r, ok
}

// Destroy cancels a room's timers and removes it. Idempotent.
func (reg *Registry) Destroy(code string) {
	code = strings.ToUpper(code)
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if r, ok := reg.rooms[code]; ok {
		r.shutdown()
		delete(reg.rooms, code)
	}
}

// List returns info for all live rooms.
func (reg *Registry) List() []Info {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.RUnlock()

	infos := make([]Info, 0, len(rooms))
	for _, r := range rooms {
		infos = append(infos, r.Info())
	}
	return infos
}

// remove drops an already-shut-down room; the room calls it after its last
// player leaves.
func (reg *Registry) remove(code string) {
	reg.mu.Lock()
	delete(reg.rooms, code)
	reg.mu.Unlock()
}

// generateCodeLocked draws 4-letter codes until one is unused.
func (reg *Registry) generateCodeLocked() string {
	buf := make([]byte, codeLength)
	for {
		rand.Read(buf)
		code := make([]byte, codeLength)
		for i, b := range buf {
			code[i] = codeAlphabet[int(b)%len(codeAlphabet)]
		}
		if _, exists := reg.rooms[string(code)]; !exists {
			return string(code)
		}
	}
}
