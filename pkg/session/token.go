package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned when a session token is malformed, forged, expired
// or issued for another kind of session.
var ErrInvalidToken = errors.New("session: invalid token")

const tokenIssuer = "icap-management-ui"

// Kind of sessions. Tokens are valid only for sessions of their kind.
type Kind string

const (
	KindPolicy  Kind = "policy"
	KindHistory Kind = "history"
)

type Claim struct {
	jwt.RegisteredClaims
}

// Issuer signs and verifies session tokens with HS256.
type Issuer struct {
	key []byte
	now func() time.Time
}

func NewIssuer(key []byte, now func() time.Time) *Issuer {
	if now == nil {
		now = time.Now
	}
	return &Issuer{key: key, now: now}
}

// Issue returns a token for the session, expiring at exp.
func (i *Issuer) Issue(kind Kind, id uuid.UUID, exp time.Time) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claim{
		RegisteredClaims: jwt.RegisteredClaims{
			// jti
			ID: uuid.NewString(),

			Issuer:    tokenIssuer,
			Subject:   id.String(),
			Audience:  jwt.ClaimStrings{string(kind)},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	return token.SignedString(i.key)
}

// Verify checks the token, and returns the id of the session.
func (i *Issuer) Verify(kind Kind, token string) (uuid.UUID, error) {
	claim := new(Claim)
	_, err := jwt.ParseWithClaims(
		token, claim,
		func(*jwt.Token) (any, error) { return i.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(string(kind)),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	id, err := uuid.Parse(claim.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: subject is not a session id: %w", ErrInvalidToken, err)
	}
	return id, nil
}
