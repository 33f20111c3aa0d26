package model

import "time"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Identity - проверенное содержимое токена, явно передается в каждый вызов TaskService
type Identity struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (u User) Identity() Identity {
	return Identity{UserID: u.ID, Username: u.Username, Email: u.Email}
}
