package domain

import (
	"context"
	"time"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Mobile       string    `json:"mobile"`
	PasswordHash string    `json:"-"`
	Followers    []string  `json:"followers"`
	Following    []string  `json:"following"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserRepository is the contract the directory and the social graph need from storage.
// Lookups that find nothing return an error wrapping ErrNotFound.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmailOrMobile(ctx context.Context, email, mobile string) (bool, error)
	Search(ctx context.Context, query string) ([]User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) ([]string, error)

	// AddFollow records follower -> followee once. added is false when the edge already existed.
	AddFollow(ctx context.Context, followerID, followeeID string) (added bool, err error)
	RemoveFollow(ctx context.Context, followerID, followeeID string) (removed bool, err error)
}
