package utils // package utils provides helper functions for token signing and password hashing

import (
    "errors"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/google/uuid"
)

// Claims is the payload carried by both access and refresh tokens.  The
// user id is the only application claim; the registered claims add expiry,
// issue time and a random token id so that two tokens minted for the same
// user in the same second still differ.
type Claims struct {
    UserID string `json:"userId"`
    jwt.RegisteredClaims
}

// SignedToken is a serialized JWT together with its expiry.
type SignedToken struct {
    Token string
    Exp   time.Time
}

// NewToken builds and signs an HS256 JWT for userID that expires after ttl.
func NewToken(secret []byte, userID string, ttl time.Duration) (SignedToken, error) {
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims := Claims{
        UserID: userID,
        RegisteredClaims: jwt.RegisteredClaims{
            ID:        uuid.NewString(),
            IssuedAt:  jwt.NewNumericDate(now),
            ExpiresAt: jwt.NewNumericDate(exp),
        },
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
    if err != nil {
        return SignedToken{}, err
    }
    return SignedToken{Token: signed, Exp: exp}, nil
}

// ParseToken verifies raw against secret and returns its claims.  Only HMAC
// signing methods are accepted.  The returned error wraps the jwt package's
// sentinels, so errors.Is(err, jwt.ErrTokenExpired) distinguishes expiry.
// Passing jwt.WithoutClaimsValidation() checks the signature alone.
func ParseToken(secret []byte, raw string, opts ...jwt.ParserOption) (Claims, error) {
    var claims Claims
    opts = append(opts, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
    tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
        return secret, nil
    }, opts...)
    if err != nil {
        return Claims{}, err
    }
    if !tok.Valid {
        return Claims{}, jwt.ErrTokenSignatureInvalid
    }
    if claims.UserID == "" {
        return Claims{}, errors.New("token has no user id")
    }
    return claims, nil
}
