package model

import "time"

// User is an account record
type User struct {
	ID           string    `json:"id" bson:"_id,omitempty"`
	Username     string    `json:"username" bson:"username"`
	DisplayName  string    `json:"displayName" bson:"displayName"`
	AvatarURL    string    `json:"avatarUrl,omitempty" bson:"avatarUrl,omitempty"`
	PasswordHash string    `json:"-" bson:"passwordHash"`
	IsActive     bool      `json:"isActive" bson:"isActive"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// UserProfile is the display metadata copied into a game at join time
type UserProfile struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	IsActive    bool   `json:"isActive"`
}

// Profile returns the public display metadata of the user
func (u *User) Profile() *UserProfile {
	return &UserProfile{
		UserID:      u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		IsActive:    u.IsActive,
	}
}
