package user

import (
	"time"

	"user-service/internal/domain"
)

type UserModel struct {
	ID           string `gorm:"primaryKey;type:varchar(36)"`
	Name         string `gorm:"size:128;not null"`
	Email        string `gorm:"uniqueIndex;size:255;not null"`
	Mobile       string `gorm:"uniqueIndex;size:32;not null"`
	PasswordHash string `gorm:"size:100;not null"`

	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string { return "users" }

// FollowModel is one directed edge. The same row backs follower.following and followee.followers,
// and the unique pair index makes inserting it an idempotent set-add.
type FollowModel struct {
	Seq        uint64    `gorm:"primaryKey;autoIncrement"`
	FollowerID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_follow_pair,priority:1"`
	FolloweeID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_follow_pair,priority:2;index"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (FollowModel) TableName() string { return "follows" }

// Models lists every table owned by this feature, in migration order.
func Models() []any { return []any{&UserModel{}, &FollowModel{}} }

func (m *UserModel) ToDomain(followers, following []string) *domain.User {
	if followers == nil {
		followers = []string{}
	}
	if following == nil {
		following = []string{}
	}
	return &domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		Mobile:       m.Mobile,
		PasswordHash: m.PasswordHash,
		Followers:    followers,
		Following:    following,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func FromDomain(u *domain.User) *UserModel {
	return &UserModel{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Mobile:       u.Mobile,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
