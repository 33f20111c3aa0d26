package model

import "time"

type Task struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"userId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	IsCompleted bool       `json:"isCompleted"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt"`
}

// TaskInput - поля, которые клиент может задавать. Владелец и время ставит сервер.
type TaskInput struct {
	Title       string
	Description string
	IsCompleted bool
}
