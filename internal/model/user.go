package model

import "time"

// User owns zero or more projects. Ownership never transfers.
type User struct {
	ID         string    `json:"id"`
	CognitoSub string    `json:"cognito_sub"`
	Email      string    `json:"email"`
	Nickname   string    `json:"nickname"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UserChannel returns the private broadcast channel name for a user.
func UserChannel(userID string) string {
	return "users." + userID
}
