package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"user-service/internal/domain"
	"user-service/internal/feature/user"
	"user-service/pkg/utils"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

var _ domain.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(user.Models()...)
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	m := user.FromDomain(u)
	if m.ID == "" {
		m.ID = utils.NewID()
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isDupKey(err) {
			return fmt.Errorf("%w: email or mobile already exists", domain.ErrConflict)
		}
		return fmt.Errorf("create user: %w", err)
	}
	*u = *m.ToDomain(nil, nil)
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *UserRepo) findOne(ctx context.Context, where string, arg string) (*domain.User, error) {
	db := r.db.WithContext(ctx)
	var m user.UserModel
	if err := db.Where(where, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	edges, err := loadEdges(db, []string{m.ID})
	if err != nil {
		return nil, err
	}
	return m.ToDomain(edges.followers[m.ID], edges.following[m.ID]), nil
}

func (r *UserRepo) ExistsByEmailOrMobile(ctx context.Context, email, mobile string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&user.UserModel{}).
		Where("email = ? OR mobile = ?", email, mobile).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return n > 0, nil
}

// Search matches query case-insensitively as a plain substring of name or email.
// An empty query returns every user.
func (r *UserRepo) Search(ctx context.Context, query string) ([]domain.User, error) {
	db := r.db.WithContext(ctx)
	q := db.Model(&user.UserModel{})
	if s := strings.ToLower(strings.TrimSpace(query)); s != "" {
		like := "%" + escapeLike(s) + "%"
		q = q.Where("LOWER(name) LIKE ? ESCAPE '!' OR LOWER(email) LIKE ? ESCAPE '!'", like, like)
	}
	var ms []user.UserModel
	if err := q.Order("created_at ASC").Order("id ASC").Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	out := make([]domain.User, 0, len(ms))
	if len(ms) == 0 {
		return out, nil
	}
	ids := make([]string, len(ms))
	for i := range ms {
		ids[i] = ms[i].ID
	}
	edges, err := loadEdges(db, ids)
	if err != nil {
		return nil, err
	}
	for i := range ms {
		out = append(out, *ms[i].ToDomain(edges.followers[ms[i].ID], edges.following[ms[i].ID]))
	}
	return out, nil
}

// Update writes the scalar fields of u. Follow edges are only touched by AddFollow/RemoveFollow.
func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	db := r.db.WithContext(ctx)
	res := db.Model(&user.UserModel{}).Where("id = ?", u.ID).Updates(map[string]any{
		"name":          u.Name,
		"email":         u.Email,
		"mobile":        u.Mobile,
		"password_hash": u.PasswordHash,
	})
	if res.Error != nil {
		if isDupKey(res.Error) {
			return fmt.Errorf("%w: email or mobile already exists", domain.ErrConflict)
		}
		return fmt.Errorf("update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// mysql reports 0 for a no-op write; tell that apart from a missing row
		var n int64
		if err := db.Model(&user.UserModel{}).Where("id = ?", u.ID).Count(&n).Error; err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("user: %w", domain.ErrNotFound)
		}
	}
	return nil
}

// Delete removes the user and every edge touching it, returning the ids of former neighbours.
func (r *UserRepo) Delete(ctx context.Context, id string) ([]string, error) {
	var neighbours []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var edges []user.FollowModel
		if err := tx.Where("follower_id = ? OR followee_id = ?", id, id).Find(&edges).Error; err != nil {
			return err
		}
		seen := map[string]struct{}{}
		for _, e := range edges {
			other := e.FolloweeID
			if other == id {
				other = e.FollowerID
			}
			if _, ok := seen[other]; !ok && other != id {
				seen[other] = struct{}{}
				neighbours = append(neighbours, other)
			}
		}
		if err := tx.Where("follower_id = ? OR followee_id = ?", id, id).Delete(&user.FollowModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&user.UserModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("user: %w", domain.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("delete user: %w", err)
	}
	return neighbours, nil
}

func (r *UserRepo) AddFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&user.FollowModel{FollowerID: followerID, FolloweeID: followeeID})
	if res.Error != nil {
		if isDupKey(res.Error) {
			return false, nil
		}
		return false, fmt.Errorf("add follow: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *UserRepo) RemoveFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&user.FollowModel{})
	if res.Error != nil {
		return false, fmt.Errorf("remove follow: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

type edgeSet struct {
	followers map[string][]string
	following map[string][]string
}

// loadEdges fetches both directions for ids in one query, in insertion order.
func loadEdges(db *gorm.DB, ids []string) (edgeSet, error) {
	set := edgeSet{followers: map[string][]string{}, following: map[string][]string{}}
	var rows []user.FollowModel
	err := db.Where("follower_id IN ? OR followee_id IN ?", ids, ids).Order("seq ASC").Find(&rows).Error
	if err != nil {
		return set, fmt.Errorf("load follows: %w", err)
	}
	for _, e := range rows {
		set.following[e.FollowerID] = append(set.following[e.FollowerID], e.FolloweeID)
		set.followers[e.FolloweeID] = append(set.followers[e.FolloweeID], e.FollowerID)
	}
	return set, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

func isDupKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// drivers without an error translator
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}
