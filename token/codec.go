package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// NowTimeFunc is the clock used for issuing and checking expiry
var NowTimeFunc = time.Now

// DefaultLifetime of an issued session token
const DefaultLifetime = 7 * time.Hour

type Status int

const (
	StatusInvalid Status = iota
	StatusValid
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusExpired:
		return "expired"
	default:
		return "invalid"
	}
}

// Result of decoding a session token. Claims is set for StatusValid and
// StatusExpired, Reason for StatusInvalid.
type Result struct {
	Status Status
	Claims *Claims
	Reason error
}

// Codec issues and decodes session tokens
type Codec struct {
	signer   Signer
	lifetime time.Duration
}

func NewCodec(signer Signer, lifetime time.Duration) *Codec {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return &Codec{
		signer:   signer,
		lifetime: lifetime,
	}
}

// Issue signs a fresh token for the user expiring one lifetime from now
func (c *Codec) Issue(userID int64, accessToken string) (string, *Claims, error) {
	now := NowTimeFunc()
	claims := &Claims{
		AccessToken: accessToken,
		UserID:      userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.lifetime)),
		},
	}
	raw, err := c.Encode(claims)
	if err != nil {
		return "", nil, err
	}
	return raw, claims, nil
}

func (c *Codec) Encode(claims *Claims) (string, error) {
	if err := claims.validate(); err != nil {
		return "", fmt.Errorf("[Codec Encode] %w", err)
	}
	return c.signer.Sign(claims)
}

// Decode never fails: every problem ends up in the Result. A token whose
// signature checks out but whose expiry has passed is reported as expired
// with its claims, anything else wrong makes it invalid.
func (c *Codec) Decode(raw string) Result {
	if raw == "" {
		return Result{Status: StatusInvalid, Reason: errors.New("empty token")}
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, c.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{c.signer.GetSigningMethod().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(NowTimeFunc),
	)

	status := StatusValid
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid):
		status = StatusExpired
	default:
		return Result{Status: StatusInvalid, Reason: err}
	}

	if err := claims.validate(); err != nil {
		return Result{Status: StatusInvalid, Reason: err}
	}
	return Result{Status: status, Claims: claims}
}
