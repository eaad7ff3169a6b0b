package service

import (
	"context"
	"log/slog"

	"github.com/librisapp/libris-server/internal/auth"
	"github.com/librisapp/libris-server/internal/domain"
	domainerrors "github.com/librisapp/libris-server/internal/errors"
	"github.com/librisapp/libris-server/internal/id"
	"github.com/librisapp/libris-server/internal/store"
	"github.com/librisapp/libris-server/internal/validation"
)

// placeholderPassword is the single accepted login password.
// TODO: replace with per-user verified credentials once account
// registration grows a password field.
const placeholderPassword = "secret"

// AuthService handles user accounts and login.
type AuthService struct {
	store     *store.Store
	tokens    *auth.TokenService
	logger    *slog.Logger
	validator *validation.Validator
}

// NewAuthService creates a new auth service.
func NewAuthService(s *store.Store, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:     s,
		tokens:    tokens,
		logger:    logger,
		validator: validation.New(),
	}
}

// CreateUserRequest contains fields for creating a user.
type CreateUserRequest struct {
	Username      string `json:"username" validate:"required,min=1,max=100"`
	FavoriteGenre string `json:"favoriteGenre" validate:"required,min=1,max=100"`
}

// CreateUser creates and persists a user account.
func (s *AuthService) CreateUser(ctx context.Context, req CreateUserRequest) (*domain.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	userID, err := id.Generate("user")
	if err != nil {
		return nil, domainerrors.Internal("generate user ID").WithCause(err)
	}

	user := &domain.User{
		Username:      req.Username,
		FavoriteGenre: req.FavoriteGenre,
	}
	user.ID = userID
	user.InitTimestamps()

	if err := s.store.Users.Create(ctx, userID, user); err != nil {
		return nil, domainerrors.UserInput("creating the user failed").WithArgs(req.Username).WithCause(err)
	}

	s.logger.Info("user created", "username", user.Username, "user_id", user.ID)
	return user, nil
}

// Login verifies credentials and issues a token binding username and user ID.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.Users.GetByIndex(ctx, "username", username)
	if err != nil || password != placeholderPassword {
		return "", domainerrors.InvalidCredentials("wrong credentials")
	}

	token, err := s.tokens.IssueToken(user)
	if err != nil {
		return "", domainerrors.Internal("issuing token failed").WithCause(err)
	}

	s.logger.Info("user logged in", "username", user.Username)
	return token, nil
}

// ResolveToken verifies a bearer token and resolves it to a full user record.
// Used by the transport layer to establish the request's current user.
func (s *AuthService) ResolveToken(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.VerifyToken(token)
	if err != nil {
		return nil, err
	}

	user, err := s.store.Users.Get(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	return user, nil
}
