package models

// User represents a registered account
type User struct {
	ID             int64  `json:"id"`
	Email          string `json:"email"`
	Username       string `json:"username"`
	HashedPassword string `json:"-"` // Not serialized
	CreatedAt      string `json:"created_at"`
}
