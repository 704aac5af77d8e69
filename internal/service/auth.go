package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront/internal/model"
	"github.com/iliyamo/storefront/internal/queue"
	"github.com/iliyamo/storefront/internal/repository"
	"github.com/iliyamo/storefront/internal/utils"
)

// MinPasswordLen is the shortest password signup accepts.
const MinPasswordLen = 6

// UserStore is the slice of user persistence the auth flow needs.
type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash, role string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// AuthService implements signup, login, logout, access-token refresh and
// password change on top of the token service and session store.
type AuthService struct {
	users      UserStore
	tokens     *TokenService
	sessions   SessionStore
	events     queue.Publisher
	bcryptCost int
	log        echo.Logger

	// dummyHash is compared against when a login names an unknown email so
	// that both failure paths cost one bcrypt comparison.
	dummyHash string
}

// NewAuthService wires an AuthService.  A nil publisher discards events.
func NewAuthService(users UserStore, tokens *TokenService, sessions SessionStore,
	events queue.Publisher, bcryptCost int, logger echo.Logger) *AuthService {
	if events == nil {
		events = queue.NopPublisher{}
	}
	dummy, _ := utils.HashPassword("storefront-dummy-password", bcryptCost)
	return &AuthService{
		users:      users,
		tokens:     tokens,
		sessions:   sessions,
		events:     events,
		bcryptCost: bcryptCost,
		log:        logger,
		dummyHash:  dummy,
	}
}

// SignupInput carries the signup form.
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	User   model.PublicUser
	Tokens TokenPair
}

func (in SignupInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case strings.TrimSpace(in.Email) == "":
		return fmt.Errorf("%w: email is required", ErrValidation)
	case len(in.Password) < MinPasswordLen:
		return fmt.Errorf("%w: password must be at least %d characters long", ErrValidation, MinPasswordLen)
	}
	email := strings.TrimSpace(in.Email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return fmt.Errorf("%w: email is invalid", ErrValidation)
	}
	return nil
}

// Signup registers a new customer and starts a session for them.  The
// lookup before insert only spares a bcrypt round for the common duplicate
// case; the unique index decides races.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (AuthResult, error) {
	if err := in.validate(); err != nil {
		return AuthResult{}, err
	}

	_, err := s.users.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return AuthResult{}, fmt.Errorf("%w: user already exists", ErrConflict)
	case !errors.Is(err, repository.ErrNotFound):
		return AuthResult{}, fmt.Errorf("%w: lookup user: %v", ErrUnavailable, err)
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.users.Create(ctx, in.Name, in.Email, hash, model.RoleCustomer)
	if errors.Is(err, repository.ErrEmailExists) {
		return AuthResult{}, fmt.Errorf("%w: user already exists", ErrConflict)
	}
	if err != nil {
		return AuthResult{}, fmt.Errorf("%w: create user: %v", ErrUnavailable, err)
	}

	res, err := s.startSession(ctx, u)
	if err != nil {
		return AuthResult{}, err
	}
	s.publish(queue.EventSignup, u)
	return res, nil
}

// Login checks credentials and starts a new session, replacing any session
// the user already had.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		utils.VerifyPassword(s.dummyHash, password)
		return AuthResult{}, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}
	if err != nil {
		return AuthResult{}, fmt.Errorf("%w: lookup user: %v", ErrUnavailable, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return AuthResult{}, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}

	res, err := s.startSession(ctx, u)
	if err != nil {
		return AuthResult{}, err
	}
	s.publish(queue.EventLogin, u)
	return res, nil
}

// Logout revokes the session a refresh token belongs to.  It never fails:
// missing, forged or unknown tokens simply leave the store untouched, and
// store errors are logged.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	userID, err := s.tokens.RefreshSubject(refreshToken)
	if err != nil {
		return
	}
	if err := s.sessions.Delete(ctx, userID); err != nil {
		s.log.Errorf("logout: delete session for user %s: %v", userID, err)
		return
	}
	s.publish(queue.EventLogout, model.User{ID: userID})
}

// RefreshAccess mints a new access token for a refresh token that is both
// cryptographically valid and the one currently stored for its user.  The
// refresh token itself is not rotated.
func (s *AuthService) RefreshAccess(ctx context.Context, refreshToken string) (utils.SignedToken, error) {
	if refreshToken == "" {
		return utils.SignedToken{}, fmt.Errorf("%w: no refresh token provided", ErrUnauthorized)
	}
	userID, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return utils.SignedToken{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	stored, ok, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return utils.SignedToken{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ok || subtle.ConstantTimeCompare([]byte(stored), []byte(refreshToken)) != 1 {
		return utils.SignedToken{}, fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
	}
	return s.tokens.IssueAccess(userID)
}

// ChangePassword replaces a user's password after checking the current one
// and revokes their session, so every device has to log in again.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if len(next) < MinPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters long", ErrValidation, MinPasswordLen)
	}
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: user not found", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("%w: lookup user: %v", ErrUnavailable, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, current) {
		return fmt.Errorf("%w: current password is incorrect", ErrUnauthorized)
	}
	hash, err := utils.HashPassword(next, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("%w: update password: %v", ErrUnavailable, err)
	}
	if err := s.sessions.Delete(ctx, userID); err != nil {
		s.log.Errorf("change password: delete session for user %s: %v", userID, err)
	}
	return nil
}

// startSession issues a token pair and records the refresh token as the
// user's only live session.
func (s *AuthService) startSession(ctx context.Context, u model.User) (AuthResult, error) {
	pair, err := s.tokens.IssuePair(u.ID)
	if err != nil {
		return AuthResult{}, err
	}
	if err := s.sessions.Put(ctx, u.ID, pair.Refresh.Token); err != nil {
		return AuthResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return AuthResult{User: u.Public(), Tokens: pair}, nil
}

// publish sends an audit event in the background.  The request does not
// wait for the broker and a failed publish only produces a warning.
func (s *AuthService) publish(kind string, u model.User) {
	ev := queue.AuthEvent{
		Kind:       kind,
		UserID:     u.ID,
		Email:      u.Email,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.events.PublishAuthEvent(ctx, ev); err != nil {
			s.log.Warnf("publish %s event for user %s: %v", kind, u.ID, err)
		}
	}()
}
