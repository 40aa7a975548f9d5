package entities

import "time"

// User is an administrator of the catalog. There are no roles: a stored
// user may manage every book.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;size:255;not null" json:"-"` // bcrypt, never serialized
	CreatedAt    time.Time `json:"created_at"`
}

func (User) TableName() string {
	return "users"
}
