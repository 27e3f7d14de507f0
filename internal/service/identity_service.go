package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"snakearena/internal/cache"
	"snakearena/internal/model"
	"snakearena/internal/repository"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserInactive = errors.New("user is inactive")
)

// IdentityProvider resolves a user id to display metadata
type IdentityProvider interface {
	Lookup(ctx context.Context, userID string) (*model.UserProfile, error)
}

// IdentityService reads profiles through the Redis user cache
type IdentityService struct {
	users repository.UserRepo
	cache cache.UserCache
}

// NewIdentityService creates a new identity service
func NewIdentityService(users repository.UserRepo, userCache cache.UserCache) *IdentityService {
	return &IdentityService{
		users: users,
		cache: userCache,
	}
}

// Lookup returns the profile of an active user
func (s *IdentityService) Lookup(ctx context.Context, userID string) (*model.UserProfile, error) {
	profile, err := s.cache.Get(ctx, userID)
	if err != nil {
		log.Printf("User cache read failed for %s: %v", userID, err)
		profile = nil
	}

	if profile == nil {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		if user == nil {
			return nil, ErrUserNotFound
		}
		profile = user.Profile()
		if err := s.cache.Set(ctx, profile); err != nil {
			log.Printf("User cache write failed for %s: %v", userID, err)
		}
	}

	if !profile.IsActive {
		return nil, ErrUserInactive
	}
	return profile, nil
}

// Deactivate disables an account and drops its cached profile so the next
// lookup sees the change.
func (s *IdentityService) Deactivate(ctx context.Context, userID string) error {
	found, err := s.users.SetActive(ctx, userID, false)
	if err != nil {
		return err
	}
	if !found {
		return ErrUserNotFound
	}
	if err := s.cache.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to invalidate cached profile: %w", err)
	}
	return nil
}
