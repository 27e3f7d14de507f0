package model

import "github.com/golang-jwt/jwt/v5"

// UserClaims are JWT claims for an authenticated player
type UserClaims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// LoginRequest is the request body for login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the request body for account creation
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// AuthResponse is returned after a successful login or registration
type AuthResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}
