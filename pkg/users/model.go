package users

import (
	"time"

	"garrison/pkg/auth"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	Phone        string    `json:"phone"`
	Role         auth.Role `json:"role"`
	Base         string    `json:"base"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	PasswordHash string    `json:"-"`
}

func (u User) Actor() auth.Actor {
	return auth.Actor{ID: u.ID, Role: u.Role, Base: u.Base}
}
