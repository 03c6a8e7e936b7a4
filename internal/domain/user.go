package domain

import "time"

type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	PasswordHash  string    `json:"-"`
	EmailVerified bool      `json:"email_verified"`
	DateJoined    time.Time `json:"date_joined"`
}

// FullName devuelve el nombre visible del usuario.
func (u User) FullName() string {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	return name
}
