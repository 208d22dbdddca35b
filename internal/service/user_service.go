package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"user-service/internal/core/cache"
	"user-service/internal/domain"
	"user-service/pkg/utils"
)

var (
	ErrInvalidCredentials = fmt.Errorf("%w: Invalid email or password", domain.ErrAuth)
	ErrDuplicateUser      = fmt.Errorf("%w: Email or Mobile number already exists", domain.ErrConflict)
	ErrSelfFollow         = fmt.Errorf("%w: cannot follow yourself", domain.ErrValidation)
)

type TokenIssuer interface {
	Issue(uid string) (string, error)
}

type RegisterInput struct {
	Name     string
	Mobile   string
	Email    string
	Password string
}

// UpdateInput fields left nil (or empty) keep their stored value.
type UpdateInput struct {
	Name     *string
	Email    *string
	Mobile   *string
	Password *string
}

type AuthResult struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

type UserService struct {
	repo     domain.UserRepository
	tokens   TokenIssuer
	cache    cache.Store
	cacheTTL time.Duration
	cost     int
	log      *zap.Logger

	// compared against when the email is unknown so both login failures cost one bcrypt run
	dummyHash string
}

type Option func(*UserService)

func WithCache(c cache.Store, ttl time.Duration) Option {
	return func(s *UserService) {
		if c != nil {
			s.cache = c
			s.cacheTTL = ttl
		}
	}
}

func WithBcryptCost(cost int) Option { return func(s *UserService) { s.cost = cost } }

func WithLogger(l *zap.Logger) Option {
	return func(s *UserService) {
		if l != nil {
			s.log = l
		}
	}
}

func NewUserService(repo domain.UserRepository, tokens TokenIssuer, opts ...Option) *UserService {
	s := &UserService{
		repo:     repo,
		tokens:   tokens,
		cache:    cache.Noop{},
		cacheTTL: 5 * time.Minute,
		cost:     10,
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	s.dummyHash, _ = utils.HashPassword("login-timing-equalizer", s.cost)
	return s
}

func cacheKey(id string) string { return "user:" + id }

func (s *UserService) invalidate(ctx context.Context, ids ...string) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, cacheKey(id))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.Warn("cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (s *UserService) hash(pw string) (string, error) {
	h, err := utils.HashPassword(pw, s.cost)
	if err != nil {
		if errors.Is(err, utils.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password must be at most 72 bytes", domain.ErrValidation)
		}
		return "", fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}
	return h, nil
}

func (s *UserService) issue(uid string) (AuthResult, error) {
	tok, err := s.tokens.Issue(uid)
	if err != nil {
		return AuthResult{}, fmt.Errorf("%w: issue token: %v", domain.ErrInternal, err)
	}
	return AuthResult{ID: uid, Token: tok}, nil
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Mobile = strings.TrimSpace(in.Mobile)
	if in.Name == "" || in.Email == "" || in.Mobile == "" || in.Password == "" {
		return AuthResult{}, fmt.Errorf("%w: name, email, mobile and password are required", domain.ErrValidation)
	}

	exists, err := s.repo.ExistsByEmailOrMobile(ctx, in.Email, in.Mobile)
	if err != nil {
		return AuthResult{}, err
	}
	if exists {
		return AuthResult{}, ErrDuplicateUser
	}

	hashed, err := s.hash(in.Password)
	if err != nil {
		return AuthResult{}, err
	}
	u := &domain.User{Name: in.Name, Email: in.Email, Mobile: in.Mobile, PasswordHash: hashed}
	if err := s.repo.Create(ctx, u); err != nil {
		// lost the race against a concurrent registration
		if errors.Is(err, domain.ErrConflict) {
			return AuthResult{}, ErrDuplicateUser
		}
		return AuthResult{}, err
	}
	s.log.Info("user registered", zap.String("user_id", u.ID))
	return s.issue(u.ID)
}

func (s *UserService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	u, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		utils.CheckPassword(password, s.dummyHash)
		return AuthResult{}, ErrInvalidCredentials
	case err != nil:
		return AuthResult{}, err
	}
	if !utils.CheckPassword(password, u.PasswordHash) {
		s.log.Info("login rejected", zap.String("user_id", u.ID))
		return AuthResult{}, ErrInvalidCredentials
	}
	return s.issue(u.ID)
}

// Get reads through the cache. The returned user carries no password hash.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return cache.GetOrLoadJSON(s.cache, ctx, cacheKey(id), s.cacheTTL, func(ctx context.Context) (*domain.User, error) {
		return s.repo.FindByID(ctx, id)
	})
}

// Update applies a partial update. Email and mobile are not re-checked against other users here;
// a collision the store's unique index catches is reported as a conflict.
func (s *UserService) Update(ctx context.Context, id string, in UpdateInput) (*domain.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	set := func(dst *string, v *string) {
		if v != nil {
			if t := strings.TrimSpace(*v); t != "" {
				*dst = t
			}
		}
	}
	set(&u.Name, in.Name)
	set(&u.Email, in.Email)
	set(&u.Mobile, in.Mobile)
	if in.Password != nil && *in.Password != "" {
		if u.PasswordHash, err = s.hash(*in.Password); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, u); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, ErrDuplicateUser
		}
		return nil, err
	}
	s.invalidate(ctx, id)
	return s.repo.FindByID(ctx, id)
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	neighbours, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.invalidate(ctx, append(neighbours, id)...)
	s.log.Info("user deleted", zap.String("user_id", id), zap.Int("edges_dropped_for", len(neighbours)))
	return nil
}

func (s *UserService) Search(ctx context.Context, query string) ([]domain.User, error) {
	return s.repo.Search(ctx, query)
}

// Follow makes actor follow target. Repeating it changes nothing and still succeeds.
func (s *UserService) Follow(ctx context.Context, actorID, targetID string) (*domain.User, error) {
	actor, err := s.loadPair(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}
	added, err := s.repo.AddFollow(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}
	if !added {
		return actor, nil
	}
	s.invalidate(ctx, actorID, targetID)
	return s.repo.FindByID(ctx, actorID)
}

// Unfollow is the inverse of Follow; unfollowing someone not followed is a no-op.
func (s *UserService) Unfollow(ctx context.Context, actorID, targetID string) (*domain.User, error) {
	actor, err := s.loadPair(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}
	removed, err := s.repo.RemoveFollow(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return actor, nil
	}
	s.invalidate(ctx, actorID, targetID)
	return s.repo.FindByID(ctx, actorID)
}

func (s *UserService) loadPair(ctx context.Context, actorID, targetID string) (*domain.User, error) {
	if strings.TrimSpace(targetID) == "" {
		return nil, fmt.Errorf("%w: target user id is required", domain.ErrValidation)
	}
	if actorID == targetID {
		return nil, ErrSelfFollow
	}
	actor, err := s.repo.FindByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByID(ctx, targetID); err != nil {
		return nil, err
	}
	return actor, nil
}
