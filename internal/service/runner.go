package service

import (
	"context"
	"log"
	"time"

	"snakearena/internal/game"
)

// startRunner launches the goroutine that drives sess from countdown to teardown
func (s *GameService) startRunner(sess *game.Session) error {
	s.mu.Lock()
	if !s.accepting {
		s.mu.Unlock()
		return errShuttingDown
	}
	s.runners.Add(1)
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(s.ctx)
	if !s.registry.Attach(sess, cancel) {
		cancel()
		s.runners.Done()
		return game.ErrNotFound
	}

	go s.run(ctx, sess)
	return nil
}

func (s *GameService) run(ctx context.Context, sess *game.Session) {
	defer s.runners.Done()
	emit := s.emitter(sess.ID())

	for n := game.CountdownFrom; n >= 1; n-- {
		if !sess.SetCountdown(n, emit) {
			return
		}
		if !sleep(ctx, s.timing.CountdownStep) {
			return
		}
	}
	if !sess.BeginPlaying(emit) {
		return
	}
	s.logf("Game %s playing at %v per tick", sess.ID(), sess.Speed())
	s.publish(sess)
	s.persist(sess.Record())

	ticker := time.NewTicker(sess.Speed())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			finished, ok := s.advance(sess, emit)
			if !ok {
				return
			}
			if finished {
				s.finish(ctx, sess)
				return
			}
		}
	}
}

// advance runs one tick. A panic is logged and the tick skipped.
func (s *GameService) advance(sess *game.Session, emit game.Emitter) (finished, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Tick failed in game %s: %v", sess.ID(), r)
			finished, ok = false, true
		}
	}()
	return sess.Advance(emit)
}

func (s *GameService) finish(ctx context.Context, sess *game.Session) {
	result := sess.Result()
	if result.WinnerID != nil {
		log.Printf("Game %s finished, winner %s", sess.ID(), *result.WinnerID)
	} else {
		log.Printf("Game %s finished without a winner", sess.ID())
	}

	s.recordScores(result)
	s.publish(sess)
	s.persist(sess.Record())

	if !sleep(ctx, s.timing.GracePeriod) {
		return
	}
	s.destroy(sess.ID())
}

// sleep waits for d and reports false if ctx ended first
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
