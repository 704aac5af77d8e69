package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/storefront/internal/config"
	"github.com/iliyamo/storefront/internal/utils"
)

// TokenPair is what a successful signup or login hands to the client.
type TokenPair struct {
	Access  utils.SignedToken
	Refresh utils.SignedToken
}

// TokenService mints and verifies access and refresh tokens.  The two kinds
// are signed with distinct secrets, so neither can stand in for the other.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenService builds a TokenService from injected configuration.
func NewTokenService(cfg config.Config) *TokenService {
	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
	}
}

func (s *TokenService) AccessTTL() time.Duration  { return s.accessTTL }
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// IssuePair mints an access token and a refresh token for userID.
func (s *TokenService) IssuePair(userID string) (TokenPair, error) {
	access, err := s.IssueAccess(userID)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := utils.NewToken(s.refreshSecret, userID, s.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// IssueAccess mints an access token only.
func (s *TokenService) IssueAccess(userID string) (utils.SignedToken, error) {
	tok, err := utils.NewToken(s.accessSecret, userID, s.accessTTL)
	if err != nil {
		return utils.SignedToken{}, fmt.Errorf("sign access token: %w", err)
	}
	return tok, nil
}

// VerifyAccess returns the user id of a valid access token.
func (s *TokenService) VerifyAccess(raw string) (string, error) {
	return verify(s.accessSecret, raw)
}

// VerifyRefresh returns the user id of a cryptographically valid refresh
// token.  It does not consult the session store.
func (s *TokenService) VerifyRefresh(raw string) (string, error) {
	return verify(s.refreshSecret, raw)
}

// RefreshSubject returns the user id of a refresh token whose signature is
// valid, ignoring expiry.  Logout uses it to clean up the session of a
// token that has already expired; forged tokens are still rejected.
func (s *TokenService) RefreshSubject(raw string) (string, error) {
	claims, err := utils.ParseToken(s.refreshSecret, raw, jwt.WithoutClaimsValidation())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return claims.UserID, nil
}

func verify(secret []byte, raw string) (string, error) {
	claims, err := utils.ParseToken(secret, raw)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return claims.UserID, nil
}
