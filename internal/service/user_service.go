package service

import (
	"context"
	"fmt"
	"time"

	"bookstore-service/internal/models"
	"bookstore-service/internal/redisclient"
	"bookstore-service/internal/store"
	"bookstore-service/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserService handles accounts, credentials, and session tokens. It is
// also the Identity collaborator of the order core: UserExists,
// StoreExists, and StoreOwner are served from here.
type UserService struct {
	store         *store.Store
	redis         *redisclient.Client
	tokenLifetime time.Duration
	logger        *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(st *store.Store, redis *redisclient.Client, tokenLifetime time.Duration) *UserService {
	return &UserService{
		store:         st,
		redis:         redis,
		tokenLifetime: tokenLifetime,
		logger:        util.GetLogger(),
	}
}

// Tokens are signed per user: the user id doubles as the HMAC key, so
// a token can only ever validate against the account it names.
func signToken(userID, terminal string, issued time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":   userID,
		"terminal":  terminal,
		"timestamp": issued.Unix(),
	})
	return token.SignedString([]byte(userID))
}

func parseToken(tokenStr, userID string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(userID), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

func newTerminal(now time.Time) string {
	return fmt.Sprintf("terminal_%d", now.UnixNano())
}

// Register creates an account with zero balance and an initial token
func (s *UserService) Register(ctx context.Context, userID, password string) error {
	ctx, span := util.StartSpan(ctx, "UserService.Register")
	defer span.End()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.ErrInvalidParameter("password")
	}

	now := time.Now()
	terminal := newTerminal(now)
	token, err := signToken(userID, terminal, now)
	if err != nil {
		return models.ErrInvalidParameter("user_id")
	}

	user := &models.User{
		UserID:       userID,
		PasswordHash: string(hash),
		Token:        token,
		Terminal:     terminal,
		TokenIssued:  now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return err
	}

	s.logger.Info("User registered", zap.String("user_id", userID))
	return nil
}

// CheckPassword verifies a user's credential
func (s *UserService) CheckPassword(ctx context.Context, userID, password string) error {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if models.CodeOf(err) == models.CodeNonExistUser {
			return models.ErrAuthorizationFail()
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return models.ErrAuthorizationFail()
	}
	return nil
}

// CheckToken verifies that token is the user's active session token
// and is still inside its lifetime
func (s *UserService) CheckToken(ctx context.Context, userID, token string) error {
	active := ""
	if cached, err := s.redis.GetCachedToken(ctx, userID); err == nil && cached != "" {
		active = cached
	} else {
		user, err := s.store.GetUser(ctx, userID)
		if err != nil {
			return models.ErrAuthorizationFail()
		}
		active = user.Token
	}

	if active != token {
		return models.ErrAuthorizationFail()
	}

	claims, err := parseToken(token, userID)
	if err != nil {
		return models.ErrAuthorizationFail()
	}
	ts, ok := claims["timestamp"].(float64)
	if !ok {
		return models.ErrAuthorizationFail()
	}
	age := time.Since(time.Unix(int64(ts), 0))
	if age < 0 || age >= s.tokenLifetime {
		return models.ErrAuthorizationFail()
	}
	return nil
}

// Login verifies the password and issues a fresh session token bound
// to the caller's terminal
func (s *UserService) Login(ctx context.Context, userID, password, terminal string) (string, error) {
	ctx, span := util.StartSpan(ctx, "UserService.Login")
	defer span.End()

	if err := s.CheckPassword(ctx, userID, password); err != nil {
		return "", err
	}

	now := time.Now()
	token, err := signToken(userID, terminal, now)
	if err != nil {
		return "", models.ErrAuthorizationFail()
	}

	if err := s.store.UpdateUserToken(ctx, userID, token, terminal, now); err != nil {
		return "", err
	}
	if err := s.redis.CacheToken(ctx, userID, token, s.tokenLifetime); err != nil {
		s.logger.Warn("Failed to cache token", zap.String("user_id", userID), zap.Error(err))
	}

	return token, nil
}

// Logout invalidates the active token by rotating it
func (s *UserService) Logout(ctx context.Context, userID, token string) error {
	ctx, span := util.StartSpan(ctx, "UserService.Logout")
	defer span.End()

	if err := s.CheckToken(ctx, userID, token); err != nil {
		return err
	}

	now := time.Now()
	terminal := newTerminal(now)
	dummy, err := signToken(userID, terminal, now)
	if err != nil {
		return models.ErrAuthorizationFail()
	}

	if err := s.store.UpdateUserToken(ctx, userID, dummy, terminal, now); err != nil {
		return err
	}
	if err := s.redis.DropToken(ctx, userID); err != nil {
		s.logger.Warn("Failed to drop cached token", zap.String("user_id", userID), zap.Error(err))
	}
	return nil
}

// ChangePassword replaces the credential and rotates the token
func (s *UserService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	ctx, span := util.StartSpan(ctx, "UserService.ChangePassword")
	defer span.End()

	if err := s.CheckPassword(ctx, userID, oldPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return models.ErrInvalidParameter("new_password")
	}

	now := time.Now()
	terminal := newTerminal(now)
	token, err := signToken(userID, terminal, now)
	if err != nil {
		return models.ErrAuthorizationFail()
	}

	if err := s.store.UpdateUserPassword(ctx, userID, string(hash), token, terminal, now); err != nil {
		return err
	}
	if err := s.redis.DropToken(ctx, userID); err != nil {
		s.logger.Warn("Failed to drop cached token", zap.String("user_id", userID), zap.Error(err))
	}
	return nil
}

// Unregister deletes an account after a password check
func (s *UserService) Unregister(ctx context.Context, userID, password string) error {
	ctx, span := util.StartSpan(ctx, "UserService.Unregister")
	defer span.End()

	if err := s.CheckPassword(ctx, userID, password); err != nil {
		return err
	}
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return err
	}
	if err := s.redis.DropToken(ctx, userID); err != nil {
		s.logger.Warn("Failed to drop cached token", zap.String("user_id", userID), zap.Error(err))
	}
	s.logger.Info("User unregistered", zap.String("user_id", userID))
	return nil
}

// UserExists reports whether a user id is registered
func (s *UserService) UserExists(ctx context.Context, userID string) (bool, error) {
	return s.store.UserExists(ctx, userID)
}

// StoreExists reports whether a store id is registered
func (s *UserService) StoreExists(ctx context.Context, storeID string) (bool, error) {
	return s.store.StoreExists(ctx, storeID)
}

// StoreOwner returns the owning user of a store
func (s *UserService) StoreOwner(ctx context.Context, storeID string) (string, error) {
	return s.store.StoreOwner(ctx, storeID)
}
