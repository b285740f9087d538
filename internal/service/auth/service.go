package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"habitflow/internal/apperr"
	"habitflow/internal/model"
	"habitflow/internal/store"
	"habitflow/internal/util"
)

type Service struct {
	users     store.UserStore
	rdb       *redis.Client // optional, backs the sign-out denylist
	jwtSecret string
	logger    *zap.Logger
}

func NewService(users store.UserStore, rdb *redis.Client, jwtSecret string, logger *zap.Logger) *Service {
	return &Service{
		users:     users,
		rdb:       rdb,
		jwtSecret: jwtSecret,
		logger:    logger,
	}
}

// Configured reports whether authentication can run at all.
func (s *Service) Configured() bool {
	return s.jwtSecret != "" && s.users != nil
}

// Register creates a new user.
func (s *Service) Register(ctx context.Context, email, password string) (*model.User, error) {
	if !s.Configured() {
		return nil, apperr.Configurationf("auth")
	}
	if email == "" || password == "" {
		return nil, apperr.ErrEmptyInput
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New("email already exists")
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}

	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", zap.Int("user_id", u.ID))
	return u, nil
}

// Login checks user credentials and returns a JWT.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	if !s.Configured() {
		return "", apperr.Configurationf("auth")
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", errors.New("invalid email or password")
	}

	if !util.CheckPassword(password, u.PasswordHash) {
		return "", errors.New("invalid email or password")
	}

	token, err := util.GenerateJWT(u.ID, s.jwtSecret)
	if err != nil {
		return "", err
	}

	return token, nil
}

// Logout revokes the presented token by denylisting its id until expiry.
// Best-effort without redis: stateless JWTs cannot be recalled, so the
// token simply ages out.
func (s *Service) Logout(ctx context.Context, claims *util.Claims) error {
	if s.rdb == nil || claims.TokenID == "" {
		s.logger.Warn("Logout without denylist backing, token remains valid until expiry",
			zap.Int("user_id", claims.UserID),
		)
		return nil
	}

	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, "revoked:"+claims.TokenID, 1, ttl).Err(); err != nil {
		return apperr.Transportf("denylist token")
	}
	return nil
}

// IsRevoked reports whether a token id has been signed out. Redis being
// unavailable fails open: an expired denylist is less harmful than locking
// every user out.
func (s *Service) IsRevoked(ctx context.Context, tokenID string) bool {
	if s.rdb == nil || tokenID == "" {
		return false
	}
	n, err := s.rdb.Exists(ctx, "revoked:"+tokenID).Result()
	if err != nil {
		return false
	}
	return n > 0
}

// ParseToken validates a bearer token against the configured secret.
func (s *Service) ParseToken(tokenStr string) (*util.Claims, error) {
	return util.ParseJWT(tokenStr, s.jwtSecret)
}
