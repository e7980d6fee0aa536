package auth

import (
	"context"
	"errors"

	"github.com/lumen-app/lumen/internal/shared"
	"github.com/lumen-app/lumen/internal/users"
)

// Service wraps registration, authentication and profile business rules.
type Service struct {
	repo     users.Repository
	hasher   Hasher
	tokens   TokenCodec
	sessions Registry
}

// NewService constructs a new Service.
func NewService(repo users.Repository, hasher Hasher, tokens TokenCodec, sessions Registry) *Service {
	return &Service{repo: repo, hasher: hasher, tokens: tokens, sessions: sessions}
}

// ProfileUpdate carries an optional partial profile mutation. The password,
// when present, arrives as plaintext and is hashed here.
type ProfileUpdate struct {
	Username *string
	Email    *string
	Password *string
}

// Register creates an account and mints a bearer token for it.
// The unique index on email is authoritative; the FindByEmail pre-check only
// gives the common case a cheap answer before hashing.
func (s *Service) Register(ctx context.Context, username, email, password string) (string, error) {
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return "", shared.ErrDuplicateEmail
	} else if !errors.Is(err, shared.ErrNotFound) {
		return "", err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", err
	}

	user, err := s.repo.Create(ctx, username, email, hash)
	if err != nil {
		return "", err
	}

	return s.tokens.Issue(user.ID.Hex())
}

// Login validates credentials, enforces the same-client single-session
// guard, records a fresh session and mints a bearer token.
// priorSessionID is the session cookie presented by the incoming request,
// empty when the client holds none.
func (s *Service) Login(ctx context.Context, email, password, priorSessionID string) (token, sessionID string, err error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", "", err
	}

	ok, err := s.hasher.Verify(user.PasswordHash, password)
	if err != nil {
		return "", "", err
	}
	if !ok {
		return "", "", shared.ErrInvalidCredentials
	}

	userID := user.ID.Hex()
	if priorSessionID != "" {
		valid, err := s.sessions.Validate(ctx, userID, priorSessionID)
		if err != nil {
			return "", "", err
		}
		if valid {
			return "", "", shared.ErrAlreadyLoggedIn
		}
	}

	sessionID, err = s.sessions.Create(ctx, userID)
	if err != nil {
		return "", "", err
	}

	token, err = s.tokens.Issue(userID)
	if err != nil {
		return "", "", err
	}
	return token, sessionID, nil
}

// Account returns the profile for the authenticated user.
func (s *Service) Account(ctx context.Context, userID string) (*users.User, error) {
	return s.repo.FindByID(ctx, userID)
}

// UpdateProfile applies the supplied fields only; omitted fields are
// untouched.
func (s *Service) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*users.User, error) {
	fields := users.Update{Username: upd.Username, Email: upd.Email}
	if upd.Password != nil {
		hash, err := s.hasher.Hash(*upd.Password)
		if err != nil {
			return nil, err
		}
		fields.PasswordHash = &hash
	}
	return s.repo.Update(ctx, userID, fields)
}

// DeleteAccount removes the account after re-confirming the password, then
// drops the user's session.
func (s *Service) DeleteAccount(ctx context.Context, userID, password string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(user.PasswordHash, password)
	if err != nil {
		return err
	}
	if !ok {
		return shared.ErrInvalidCredentials
	}

	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}
	return s.sessions.Delete(ctx, userID)
}

// Logout removes the user's session record.
func (s *Service) Logout(ctx context.Context, userID string) error {
	return s.sessions.Delete(ctx, userID)
}
