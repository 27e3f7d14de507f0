package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"snakearena/internal/cache"
	"snakearena/internal/game"
	"snakearena/internal/model"
	"snakearena/internal/repository"
)

// Timing holds the lifecycle durations of a game
type Timing struct {
	CountdownStep  time.Duration
	GracePeriod    time.Duration // between game over and teardown
	PersistTimeout time.Duration
}

// DefaultTiming returns production timings
func DefaultTiming() Timing {
	return Timing{
		CountdownStep:  time.Second,
		GracePeriod:    10 * time.Second,
		PersistTimeout: 5 * time.Second,
	}
}

// GameService drives multiplayer games from creation to teardown
type GameService struct {
	registry    *game.Registry
	identity    IdentityProvider
	scores      ScoreRecorder
	records     repository.GameRepo
	rooms       cache.RoomCache
	broadcaster Broadcaster
	timing      Timing
	verbose     bool

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	accepting bool
	runners   sync.WaitGroup
	tasks     sync.WaitGroup
}

// NewGameService creates a new game service
func NewGameService(
	registry *game.Registry,
	identity IdentityProvider,
	scores ScoreRecorder,
	records repository.GameRepo,
	rooms cache.RoomCache,
	timing Timing,
) *GameService {
	ctx, cancel := context.WithCancel(context.Background())
	return &GameService{
		registry:  registry,
		identity:  identity,
		scores:    scores,
		records:   records,
		rooms:     rooms,
		timing:    timing,
		ctx:       ctx,
		cancel:    cancel,
		accepting: true,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *GameService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetVerbose enables per-game debug logging
func (s *GameService) SetVerbose(v bool) {
	s.verbose = v
}

func (s *GameService) logf(format string, args ...interface{}) {
	if s.verbose {
		log.Printf(format, args...)
	}
}

// Accepting reports whether new games can still be created
func (s *GameService) Accepting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepting
}

func (s *GameService) emitter(sessionID string) game.Emitter {
	return func(msgType string, payload any) {
		if s.broadcaster != nil {
			s.broadcaster.Broadcast(sessionID, msgType, payload)
		}
	}
}

func (s *GameService) profile(ctx context.Context, userID string) (*model.UserProfile, error) {
	profile, err := s.identity.Lookup(ctx, userID)
	switch {
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrUserInactive):
		return nil, game.NewError(game.KindAuth, err.Error())
	case err != nil:
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return profile, nil
}

func settingsFrom(req *model.CreateGameRequest) game.Settings {
	settings := game.Settings{
		Mode:       req.Mode,
		MaxPlayers: req.MaxPlayers,
		GridSize:   req.GridSize,
		Speed:      req.Speed,
	}
	if settings.Mode == "" {
		settings.Mode = game.DefaultMode
	}
	if settings.MaxPlayers == 0 {
		settings.MaxPlayers = game.DefaultMaxPlayers
	}
	if settings.GridSize == 0 {
		settings.GridSize = game.DefaultGridSize
	}
	if settings.Speed == 0 {
		settings.Speed = game.DefaultSpeed
	}
	return settings
}

var errShuttingDown = game.NewError(game.KindInvalidState, "server is shutting down")

// CreateGame opens a room with the caller as host
func (s *GameService) CreateGame(ctx context.Context, userID string, req *model.CreateGameRequest) (*model.CreateGameResponse, error) {
	if !s.Accepting() {
		return nil, errShuttingDown
	}
	owner, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	sess, dep, err := s.registry.Create(owner, settingsFrom(req))
	if err != nil {
		return nil, err
	}
	s.handleDeparture(dep)

	log.Printf("Game %s created by %s (room %s)", sess.ID(), userID, sess.Code())
	s.publish(sess)
	s.persist(sess.Record())

	return &model.CreateGameResponse{
		SessionID: sess.ID(),
		RoomCode:  sess.Code(),
		Game:      sess.Info(),
	}, nil
}

// JoinGame admits the caller to a waiting room by code
func (s *GameService) JoinGame(ctx context.Context, userID, code string) (*model.JoinGameResponse, error) {
	if !s.Accepting() {
		return nil, errShuttingDown
	}
	member, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	sess, idx, dep, err := s.registry.JoinByCode(member, code)
	if err != nil {
		return nil, err
	}
	s.handleDeparture(dep)

	log.Printf("Player %s joined game %s as player %d", userID, sess.ID(), idx)
	sess.BroadcastState(s.emitter(sess.ID()))
	s.publish(sess)

	return &model.JoinGameResponse{
		SessionID:   sess.ID(),
		PlayerIndex: idx,
		Game:        sess.Info(),
	}, nil
}

// StartGame begins the countdown on the host's request
func (s *GameService) StartGame(ctx context.Context, userID, gameID string) error {
	sess, ok := s.registry.Resolve(gameID)
	if !ok {
		return game.ErrNotFound
	}
	if err := sess.StartCountdown(userID); err != nil {
		return err
	}
	if err := s.startRunner(sess); err != nil {
		s.destroy(sess.ID())
		return err
	}

	log.Printf("Game %s starting", gameID)
	s.publish(sess)
	s.persist(sess.Record())
	return nil
}

// LeaveGame removes the caller from a game. Leaving a game the caller is
// not part of is not an error.
func (s *GameService) LeaveGame(ctx context.Context, userID, gameID string) error {
	if _, ok := s.registry.Resolve(gameID); !ok {
		return game.ErrNotFound
	}
	s.handleDeparture(s.registry.Leave(userID, gameID))
	return nil
}

// Disconnect handles a dropped channel. Players only lose their seat while
// the game is still waiting for players.
func (s *GameService) Disconnect(userID, gameID string) {
	s.handleDeparture(s.registry.LeaveIfWaiting(userID, gameID))
}

// Move buffers a direction change. It reports false when the input was ignored.
func (s *GameService) Move(userID, gameID string, dir model.Direction) bool {
	sess, ok := s.registry.Resolve(gameID)
	if !ok {
		return false
	}
	return sess.SetHeading(userID, dir)
}

// GetGame returns the REST view of a live game
func (s *GameService) GetGame(gameID string) (*model.GameInfo, error) {
	sess, ok := s.registry.Resolve(gameID)
	if !ok {
		return nil, game.ErrNotFound
	}
	return sess.Info(), nil
}

// CurrentGame reports the game the caller belongs to, if any
func (s *GameService) CurrentGame(userID string) *model.CurrentGameResponse {
	id, ok := s.registry.CurrentSessionFor(userID)
	if !ok {
		return &model.CurrentGameResponse{InGame: false}
	}
	sess, ok := s.registry.Resolve(id)
	if !ok {
		return &model.CurrentGameResponse{InGame: false}
	}
	return &model.CurrentGameResponse{InGame: true, Game: sess.Info()}
}

// Admit checks that userID may watch gameID and hands the current snapshot
// to attach. attach runs before any later broadcast of the game is issued.
func (s *GameService) Admit(userID, gameID string, attach func(*model.GameState)) error {
	sess, ok := s.registry.Resolve(gameID)
	if !ok {
		return game.ErrNotFound
	}
	return sess.Admit(userID, func(state model.GameState) {
		attach(&state)
	})
}

// History returns the caller's most recent multiplayer games
func (s *GameService) History(ctx context.Context, userID string, limit int64) ([]*model.GameRecord, error) {
	return s.records.ListByUser(ctx, userID, limit)
}

// handleDeparture announces a member leaving and tears the session down if
// they were the last one.
func (s *GameService) handleDeparture(dep *game.Departure) {
	if dep == nil {
		return
	}
	sess := dep.Session
	log.Printf("Player %s left game %s", dep.UserID, sess.ID())

	if dep.Destroyed {
		s.teardown(sess)
		return
	}
	sess.Broadcast(s.emitter(sess.ID()), model.MsgPlayerLeft, model.PlayerLeft{UserID: dep.UserID})
	if s.broadcaster != nil {
		s.broadcaster.DisconnectUser(sess.ID(), dep.UserID)
	}
	s.publish(sess)
}

func (s *GameService) destroy(gameID string) {
	if sess := s.registry.Destroy(gameID); sess != nil {
		s.teardown(sess)
	}
}

// teardown releases everything outside the registry that refers to a destroyed session
func (s *GameService) teardown(sess *game.Session) {
	log.Printf("Game %s destroyed", sess.ID())
	if s.broadcaster != nil {
		s.broadcaster.CloseSession(sess.ID())
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timing.PersistTimeout)
	defer cancel()
	if err := s.rooms.Delete(ctx, sess.Code()); err != nil {
		log.Printf("Failed to delete room preview %s: %v", sess.Code(), err)
	}

	record := sess.Record()
	record.Status = model.GameFinished
	if record.FinishedAt == nil {
		now := time.Now()
		record.FinishedAt = &now
	}
	s.persist(record)
}

func (s *GameService) publish(sess *game.Session) {
	meta := sess.Meta()
	if sess.Destroyed() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timing.PersistTimeout)
	defer cancel()
	if err := s.rooms.SetMeta(ctx, meta); err != nil {
		log.Printf("Failed to publish room %s: %v", meta.RoomCode, err)
		return
	}
	// teardown may have deleted the preview while the write was in flight
	if sess.Destroyed() {
		if err := s.rooms.Delete(ctx, meta.RoomCode); err != nil {
			log.Printf("Failed to delete room preview %s: %v", meta.RoomCode, err)
		}
	}
}

func (s *GameService) persist(record *model.GameRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timing.PersistTimeout)
	defer cancel()
	if err := s.records.Upsert(ctx, record); err != nil {
		log.Printf("Failed to persist game %s: %v", record.GameID, err)
	}
}

// recordScores hands the final standings to the score collaborator in the background
func (s *GameService) recordScores(result *model.GameResult) {
	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timing.PersistTimeout)
		defer cancel()
		if err := s.scores.RecordFinal(ctx, result); err != nil {
			log.Printf("Failed to record scores for game %s: %v", result.GameID, err)
		}
	}

	s.mu.Lock()
	if !s.accepting {
		s.mu.Unlock()
		run()
		return
	}
	s.tasks.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.tasks.Done()
		run()
	}()
}

// Shutdown stops accepting games, stops every runner and tears down all
// live sessions.
func (s *GameService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.accepting = false
	s.mu.Unlock()

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.runners.Wait()
		s.tasks.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	for _, sess := range s.registry.Sessions() {
		s.destroy(sess.ID())
	}
	return nil
}
