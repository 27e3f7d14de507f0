package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"snakearena/internal/model"
	"snakearena/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidUsername    = errors.New("username must be 3-32 characters")
	ErrInvalidPassword    = errors.New("password must be at least 6 characters")
)

const tokenTTL = 24 * time.Hour

// AuthService handles account registration and bearer tokens
type AuthService struct {
	users     repository.UserRepo
	jwtSecret []byte
	now       func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(users repository.UserRepo, secret string) *AuthService {
	return &AuthService{
		users:     users,
		jwtSecret: []byte(secret),
		now:       time.Now,
	}
}

// Register creates an account and returns a token for it
func (s *AuthService) Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error) {
	username := strings.TrimSpace(req.Username)
	if n := utf8.RuneCountInString(username); n < 3 || n > 32 {
		return nil, ErrInvalidUsername
	}
	if len(req.Password) < 6 {
		return nil, ErrInvalidPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = username
	}
	user := &model.User{
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	return s.respond(user)
}

// Login validates credentials and returns a fresh token
func (s *AuthService) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.respond(user)
}

func (s *AuthService) respond(user *model.User) (*model.AuthResponse, error) {
	token, err := s.IssueToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &model.AuthResponse{Token: token, UserID: user.ID}, nil
}

// IssueToken signs a bearer token for user
func (s *AuthService) IssueToken(user *model.User) (string, error) {
	now := s.now()
	claims := &model.UserClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken validates a bearer token and returns its claims
func (s *AuthService) ValidateToken(tokenString string) (*model.UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.UserClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
