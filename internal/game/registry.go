package game

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"snakearena/internal/model"
)

const maxCodeAttempts = 64

// Departure describes a member leaving a session, explicitly or because
// they created or joined another room.
type Departure struct {
	Session   *Session
	UserID    string
	Destroyed bool
}

// Registry owns every live session and the code, id and user indices
// that point at them. The three indices are only changed together under mu.
//
// Lock order is registry, then session. Nothing holding a session lock
// may call into the registry.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session // id -> session
	codes    map[string]string   // room code -> id
	users    map[string]string   // user id -> id

	newID   func() string
	newCode func() (string, error)
	newRand func() *rand.Rand
	now     func() time.Time
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		codes:    make(map[string]string),
		users:    make(map[string]string),
		newID:    uuid.NewString,
		newCode:  randomCode,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
		now: time.Now,
	}
}

// Create opens a new room with owner as player 0. A previous membership of
// the owner is released first and returned as a Departure.
func (r *Registry) Create(owner *model.UserProfile, settings Settings) (*Session, *Departure, error) {
	if err := settings.validate(); err != nil {
		return nil, nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	code, err := r.uniqueCodeLocked()
	if err != nil {
		return nil, nil, err
	}

	var dep *Departure
	if prev, ok := r.users[owner.UserID]; ok {
		dep = r.leaveLocked(owner.UserID, prev, false)
	}

	sess := newSession(r.newID(), code, settings, r.newRand(), r.now)
	sess.mu.Lock()
	sess.addPlayer(owner, 0)
	sess.mu.Unlock()

	r.sessions[sess.id] = sess
	r.codes[code] = sess.id
	r.users[owner.UserID] = sess.id

	return sess, dep, nil
}

func (r *Registry) uniqueCodeLocked() (string, error) {
	for attempts := 0; attempts < maxCodeAttempts; attempts++ {
		code, err := r.newCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate room code: %w", err)
		}
		if _, taken := r.codes[code]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique room code")
}

// JoinByCode admits member to the waiting room owning code. Joining a room
// the member already belongs to returns the existing slot.
func (r *Registry) JoinByCode(member *model.UserProfile, code string) (*Session, int, *Departure, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, 0, nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.codes[code]
	if !ok {
		return nil, 0, nil, newError(KindNotFound, "game not found")
	}
	sess, ok := r.sessions[id]
	if !ok {
		return nil, 0, nil, newError(KindNotFound, "game not found")
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if p, ok := sess.players[member.UserID]; ok {
		return sess, p.state.PlayerIndex, nil, nil
	}
	if sess.status != model.GameWaiting {
		return nil, 0, nil, newError(KindInvalidState, "game already started")
	}
	if len(sess.players) >= sess.settings.MaxPlayers {
		return nil, 0, nil, newError(KindCapacity, "game is full")
	}

	// Only one session lock is ever nested inside another, and only under r.mu.
	var dep *Departure
	if prev, ok := r.users[member.UserID]; ok && prev != id {
		dep = r.leaveLocked(member.UserID, prev, false)
	}

	idx := sess.lowestFreeIndex()
	sess.addPlayer(member, idx)
	r.users[member.UserID] = id

	return sess, idx, dep, nil
}

// Leave removes userID from the session. It returns nil when the user was
// not a member.
func (r *Registry) Leave(userID, sessionID string) *Departure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(userID, sessionID, false)
}

// LeaveIfWaiting removes userID only while the session is still waiting
// for players.
func (r *Registry) LeaveIfWaiting(userID, sessionID string) *Departure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(userID, sessionID, true)
}

func (r *Registry) leaveLocked(userID, sessionID string, waitingOnly bool) *Departure {
	sess, ok := r.sessions[sessionID]
	if !ok {
		if r.users[userID] == sessionID {
			delete(r.users, userID)
		}
		return nil
	}

	sess.mu.Lock()
	if waitingOnly && sess.status != model.GameWaiting {
		sess.mu.Unlock()
		return nil
	}
	removed := sess.removePlayer(userID)
	empty := len(sess.players) == 0
	if empty {
		sess.stopLocked()
	}
	sess.mu.Unlock()

	if r.users[userID] == sessionID {
		delete(r.users, userID)
	}
	if empty {
		r.dropLocked(sess)
	}
	if !removed {
		return nil
	}
	return &Departure{Session: sess, UserID: userID, Destroyed: empty}
}

// Destroy removes a session and cancels anything scheduled for it.
// It returns nil if the session was already gone.
func (r *Registry) Destroy(sessionID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}
	sess.mu.Lock()
	sess.stopLocked()
	sess.mu.Unlock()
	r.dropLocked(sess)
	return sess
}

func (r *Registry) dropLocked(sess *Session) {
	delete(r.sessions, sess.id)
	if r.codes[sess.code] == sess.id {
		delete(r.codes, sess.code)
	}
	for user, id := range r.users {
		if id == sess.id {
			delete(r.users, user)
		}
	}
}

// Attach binds a runner's cancel func to a live session. It reports false
// if the session is gone, in which case the caller owns cancellation.
func (r *Registry) Attach(sess *Session, cancel context.CancelFunc) bool {
	return sess.attach(cancel)
}

// Resolve looks a session up by id
func (r *Registry) Resolve(sessionID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[sessionID]
	return sess, ok
}

// ResolveCode looks a session up by room code
func (r *Registry) ResolveCode(code string) (*Session, bool) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.codes[code]
	if !ok {
		return nil, false
	}
	sess, ok := r.sessions[id]
	return sess, ok
}

// CurrentSessionFor returns the id of the session userID belongs to
func (r *Registry) CurrentSessionFor(userID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.users[userID]
	return id, ok
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sessions returns every live session
func (r *Registry) Sessions() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		list = append(list, s)
	}
	return list
}
