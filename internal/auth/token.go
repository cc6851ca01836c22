// Package auth implements password hashing and the signed bearer-token
// envelope shared by the edge router, the submission API, and the auth
// endpoints. Tokens are symmetric HMAC-SHA256, matching the teacher's
// HS256 backend-token path.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind distinguishes an access token (short-lived, used on every request)
// from a refresh token (long-lived, used only to mint a new pair).
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	ErrExpired       = errors.New("token expired")
	ErrWrongKind     = errors.New("unexpected token kind")
	ErrMalformed     = errors.New("malformed token")
)

// Claims is the full set of information embedded in a token, mirroring
// {subject, role, expiry, kind} from the data model.
type Claims struct {
	Subject uuid.UUID
	Role    string
	Expiry  time.Time
	Kind    Kind
}

// Signer mints and verifies tokens against a single symmetric secret.
type Signer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewSigner(secret string, accessTTL, refreshTTL time.Duration) *Signer {
	return &Signer{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// IssuePair mints a fresh {access, refresh} pair for subject/role.
func (s *Signer) IssuePair(subject uuid.UUID, role string) (TokenPair, error) {
	access, err := s.issue(subject, role, KindAccess, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.issue(subject, role, KindRefresh, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Signer) issue(subject uuid.UUID, role string, kind Kind, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject.String(),
		"role": role,
		"kind": string(kind),
		"exp":  now.Add(ttl).Unix(),
		"iat":  now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Verify decodes and validates a token, requiring it to match wantKind.
// Expired tokens and kind mismatches are distinguishable errors so callers
// can log the right reason, but both map to 401 at the HTTP boundary.
func (s *Signer) Verify(tokenString string, wantKind Kind) (Claims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	sub, _ := claims["sub"].(string)
	subject, err := uuid.Parse(sub)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: bad subject", ErrMalformed)
	}
	role, _ := claims["role"].(string)
	kindStr, _ := claims["kind"].(string)
	expF, _ := claims["exp"].(float64)

	out := Claims{
		Subject: subject,
		Role:    role,
		Kind:    Kind(kindStr),
		Expiry:  time.Unix(int64(expF), 0),
	}
	if out.Kind != wantKind {
		return Claims{}, ErrWrongKind
	}
	return out, nil
}
