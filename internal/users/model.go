package users

import "time"

// User is an account identity. PasswordHash is empty for accounts created
// through Google sign-in; such accounts cannot log in with a password.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
