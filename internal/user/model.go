package user

import "time"

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	ProfileImg   string    `json:"profile_img,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
