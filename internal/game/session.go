package game

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"snakearena/internal/model"
)

// Game rules
const (
	MinPlayers  = 2
	MaxPlayers  = 8
	MinGridSize = 10
	MaxGridSize = 40
	MinSpeed    = 50
	MaxSpeed    = 200

	DefaultMode       = "classic"
	DefaultMaxPlayers = 4
	DefaultGridSize   = 20
	DefaultSpeed      = 100

	CountdownFrom = 3
	InitialFood   = 3
	FoodReward    = 10

	maxModeLength = 32
)

var palette = []string{
	"#4CAF50", // green
	"#2196F3", // blue
	"#F44336", // red
	"#FF9800", // orange
	"#9C27B0", // purple
	"#00BCD4", // cyan
	"#FFEB3B", // yellow
	"#E91E63", // pink
}

const defaultHeading = model.DirRight

// Settings are the creation parameters of a session
type Settings struct {
	Mode       string
	MaxPlayers int
	GridSize   int
	Speed      int // milliseconds between ticks
}

func (s Settings) validate() error {
	if s.MaxPlayers < MinPlayers || s.MaxPlayers > MaxPlayers {
		return newError(KindCapacity, fmt.Sprintf("maxPlayers must be between %d and %d", MinPlayers, MaxPlayers))
	}
	if s.GridSize < MinGridSize || s.GridSize > MaxGridSize {
		return newError(KindValidation, fmt.Sprintf("gridSize must be between %d and %d", MinGridSize, MaxGridSize))
	}
	if s.Speed < MinSpeed || s.Speed > MaxSpeed {
		return newError(KindValidation, fmt.Sprintf("speed must be between %d and %d", MinSpeed, MaxSpeed))
	}
	if len(s.Mode) > maxModeLength {
		return newError(KindValidation, "mode is too long")
	}
	return nil
}

// Emitter delivers one message to everything watching a session.
// It is invoked with the session lock held and must not call back into the session.
type Emitter func(msgType string, payload any)

type player struct {
	state model.PlayerState
	next  model.Direction
}

// Session is the authoritative state of one multiplayer match.
// All fields are guarded by mu.
type Session struct {
	mu sync.Mutex

	id       string
	code     string
	settings Settings

	status    model.GameStatus
	countdown *int
	winnerID  *string

	players  map[string]*player
	order    []string // join order
	food     []model.Position
	powerUps []map[string]any

	createdAt  time.Time
	startedAt  *time.Time
	finishedAt *time.Time

	rng *rand.Rand
	now func() time.Time

	destroyed bool
	cancel    context.CancelFunc
}

func newSession(id, code string, settings Settings, rng *rand.Rand, now func() time.Time) *Session {
	if settings.Mode == "" {
		settings.Mode = DefaultMode
	}
	return &Session{
		id:        id,
		code:      code,
		settings:  settings,
		status:    model.GameWaiting,
		players:   make(map[string]*player),
		food:      []model.Position{},
		powerUps:  []map[string]any{},
		createdAt: now(),
		rng:       rng,
		now:       now,
	}
}

func (s *Session) ID() string   { return s.id }
func (s *Session) Code() string { return s.code }

// Speed is the fixed interval between ticks
func (s *Session) Speed() time.Duration {
	return time.Duration(s.settings.Speed) * time.Millisecond
}

func (s *Session) Status() model.GameStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

func (s *Session) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// spawnCell returns the start cell for a player slot, relative to the grid
func spawnCell(index, gridSize int) model.Position {
	table := [...]model.Position{
		{X: 2, Y: gridSize / 2},
		{X: gridSize - 3, Y: gridSize / 2},
		{X: gridSize / 2, Y: 2},
		{X: gridSize / 2, Y: gridSize - 3},
	}
	return table[index%len(table)]
}

func colorFor(index int) string {
	return palette[index%len(palette)]
}

// lowestFreeIndex returns the smallest slot not held by a current member
func (s *Session) lowestFreeIndex() int {
	taken := make(map[int]bool, len(s.players))
	for _, p := range s.players {
		taken[p.state.PlayerIndex] = true
	}
	idx := 0
	for taken[idx] {
		idx++
	}
	return idx
}

func (s *Session) addPlayer(profile *model.UserProfile, index int) {
	start := spawnCell(index, s.settings.GridSize)
	s.players[profile.UserID] = &player{
		state: model.PlayerState{
			UserID:         profile.UserID,
			Username:       profile.Username,
			DisplayName:    profile.DisplayName,
			AvatarURL:      profile.AvatarURL,
			PlayerIndex:    index,
			Score:          0,
			IsAlive:        true,
			SnakePositions: []model.Position{start},
			Direction:      defaultHeading,
			Color:          colorFor(index),
		},
		next: defaultHeading,
	}
	s.order = append(s.order, profile.UserID)
}

func (s *Session) removePlayer(userID string) bool {
	if _, ok := s.players[userID]; !ok {
		return false
	}
	delete(s.players, userID)
	for i, id := range s.order {
		if id == userID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// playersByIndex returns members in ascending player index
func (s *Session) playersByIndex() []*player {
	list := make([]*player, 0, len(s.players))
	for _, id := range s.order {
		list = append(list, s.players[id])
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].state.PlayerIndex < list[j].state.PlayerIndex
	})
	return list
}

// SetHeading buffers a direction change for the next tick.
// It reports false when the game is not running, the player is dead or the
// change would reverse the snake onto itself.
func (s *Session) SetHeading(userID string, dir model.Direction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed || s.status != model.GamePlaying || !dir.Valid() {
		return false
	}
	p, ok := s.players[userID]
	if !ok || !p.state.IsAlive {
		return false
	}
	if dir == p.state.Direction.Opposite() {
		return false
	}
	p.next = dir
	return true
}

// StartCountdown moves a waiting game into countdown on the host's request
func (s *Session) StartCountdown(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return newError(KindNotFound, "game not found")
	}
	p, ok := s.players[userID]
	if !ok {
		return newError(KindAuth, "not in this game")
	}
	if p.state.PlayerIndex != 0 {
		return newError(KindAuth, "only the host can start the game")
	}
	if s.status != model.GameWaiting {
		return newError(KindInvalidState, "game already started")
	}
	if len(s.players) < MinPlayers {
		return newError(KindInvalidState, "need at least 2 players")
	}

	s.status = model.GameCountdown
	n := CountdownFrom
	s.countdown = &n
	for i := 0; i < InitialFood; i++ {
		s.addFood()
	}
	return nil
}

// SetCountdown records and announces one countdown step
func (s *Session) SetCountdown(n int, emit Emitter) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed || s.status != model.GameCountdown {
		return false
	}
	s.countdown = &n
	emit(model.MsgCountdown, model.CountdownTick{Count: n})
	return true
}

// BeginPlaying ends the countdown and announces the first playing snapshot
func (s *Session) BeginPlaying(emit Emitter) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed || s.status != model.GameCountdown {
		return false
	}
	now := s.now()
	s.status = model.GamePlaying
	s.countdown = nil
	s.startedAt = &now
	emit(model.MsgGameState, s.snapshotLocked())
	return true
}

// Advance runs one tick and broadcasts the result. ok is false when the
// session is no longer playing.
func (s *Session) Advance(emit Emitter) (finished, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed || s.status != model.GamePlaying {
		return false, false
	}
	finished = s.tick()
	emit(model.MsgGameState, s.snapshotLocked())
	if finished {
		emit(model.MsgGameOver, s.gameOverLocked())
	}
	return finished, true
}

// Broadcast emits payload unless the session has been destroyed
func (s *Session) Broadcast(emit Emitter, msgType string, payload any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return false
	}
	emit(msgType, payload)
	return true
}

// BroadcastState emits the current snapshot unless the session has been destroyed
func (s *Session) BroadcastState(emit Emitter) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return false
	}
	emit(model.MsgGameState, s.snapshotLocked())
	return true
}

// Admit passes the current snapshot to fn if userID is a member. fn runs
// under the session lock, so no broadcast of this session can be emitted
// between the snapshot and fn returning.
func (s *Session) Admit(userID string, fn func(model.GameState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return newError(KindNotFound, "game not found")
	}
	if _, ok := s.players[userID]; !ok {
		return newError(KindAuth, "not in this game")
	}
	fn(s.snapshotLocked())
	return nil
}

// attach binds the cancel func of the session's runner
func (s *Session) attach(cancel context.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return false
	}
	s.cancel = cancel
	return true
}

func (s *Session) stopLocked() {
	s.destroyed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func copyPlayer(p *player) model.PlayerState {
	st := p.state
	st.SnakePositions = append([]model.Position(nil), p.state.SnakePositions...)
	return st
}

func (s *Session) playerStatesLocked() []model.PlayerState {
	players := s.playersByIndex()
	states := make([]model.PlayerState, 0, len(players))
	for _, p := range players {
		states = append(states, copyPlayer(p))
	}
	return states
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

func (s *Session) snapshotLocked() model.GameState {
	return model.GameState{
		GameID:        s.id,
		Status:        s.status,
		Players:       s.playerStatesLocked(),
		FoodPositions: append([]model.Position{}, s.food...),
		PowerUps:      append([]map[string]any{}, s.powerUps...),
		Countdown:     copyInt(s.countdown),
		WinnerID:      copyString(s.winnerID),
	}
}

func (s *Session) gameOverLocked() model.GameOver {
	scores := make(map[string]int, len(s.players))
	for id, p := range s.players {
		scores[id] = p.state.Score
	}
	return model.GameOver{
		WinnerID:    copyString(s.winnerID),
		FinalScores: scores,
	}
}

// Info returns the REST view of the session
func (s *Session) Info() *model.GameInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &model.GameInfo{
		GameID:         s.id,
		Mode:           s.settings.Mode,
		Status:         s.status,
		RoomCode:       s.code,
		MaxPlayers:     s.settings.MaxPlayers,
		CurrentPlayers: len(s.players),
		Players:        s.playerStatesLocked(),
		FoodPositions:  append([]model.Position{}, s.food...),
		PowerUps:       append([]map[string]any{}, s.powerUps...),
		GridSize:       s.settings.GridSize,
		Speed:          s.settings.Speed,
		WinnerID:       copyString(s.winnerID),
		CreatedAt:      s.createdAt,
		StartedAt:      s.startedAt,
		FinishedAt:     s.finishedAt,
	}
}

// Meta returns the public room preview
func (s *Session) Meta() *model.RoomMeta {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &model.RoomMeta{
		GameID:         s.id,
		RoomCode:       s.code,
		Mode:           s.settings.Mode,
		Status:         s.status,
		CurrentPlayers: len(s.players),
		MaxPlayers:     s.settings.MaxPlayers,
		GridSize:       s.settings.GridSize,
		CreatedAt:      s.createdAt,
	}
}

func (s *Session) resultsLocked() []model.PlayerResult {
	players := s.playersByIndex()
	results := make([]model.PlayerResult, 0, len(players))
	for _, p := range players {
		results = append(results, model.PlayerResult{
			UserID:      p.state.UserID,
			Username:    p.state.Username,
			PlayerIndex: p.state.PlayerIndex,
			Score:       p.state.Score,
			IsAlive:     p.state.IsAlive,
			Won:         s.winnerID != nil && *s.winnerID == p.state.UserID,
		})
	}
	return results
}

// Result returns the final standings of a finished game
func (s *Session) Result() *model.GameResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	finishedAt := s.now()
	if s.finishedAt != nil {
		finishedAt = *s.finishedAt
	}
	return &model.GameResult{
		GameID:     s.id,
		RoomCode:   s.code,
		Mode:       s.settings.Mode,
		WinnerID:   copyString(s.winnerID),
		Players:    s.resultsLocked(),
		FinishedAt: finishedAt,
	}
}

// Record returns the persistence view of the session
func (s *Session) Record() *model.GameRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &model.GameRecord{
		GameID:     s.id,
		RoomCode:   s.code,
		Mode:       s.settings.Mode,
		Status:     s.status,
		MaxPlayers: s.settings.MaxPlayers,
		GridSize:   s.settings.GridSize,
		Speed:      s.settings.Speed,
		Players:    s.resultsLocked(),
		WinnerID:   copyString(s.winnerID),
		CreatedAt:  s.createdAt,
		StartedAt:  s.startedAt,
		FinishedAt: s.finishedAt,
	}
}
