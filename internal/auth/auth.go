// Package auth holds the demo user directory and issues bearer tokens for it.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/romariotrain/visiguard/internal/video/models"
)

var (
	ErrUnknownUser  = errors.New("unknown user")
	ErrInvalidToken = errors.New("invalid token")
)

// DemoUsers are the accounts available to log in as.
var DemoUsers = []models.User{
	{ID: "u1", Name: "Admin User", Email: "admin@visiguard.ai", OrgID: "org1", Role: models.AdminRole, Avatar: "https://picsum.photos/seed/admin/100/100"},
	{ID: "u2", Name: "Content Editor", Email: "editor@visiguard.ai", OrgID: "org1", Role: models.EditorRole, Avatar: "https://picsum.photos/seed/editor/100/100"},
	{ID: "u3", Name: "Regular Viewer", Email: "viewer@visiguard.ai", OrgID: "org1", Role: models.ViewerRole, Avatar: "https://picsum.photos/seed/viewer/100/100"},
}

type Claims struct {
	OrgID string      `json:"org_id"`
	Role  models.Role `json:"role"`
	jwt.RegisteredClaims
}

type Config struct {
	Users  []models.User
	Secret []byte
	TTL    time.Duration
}

type Authenticator struct {
	users  []models.User
	secret []byte
	ttl    time.Duration
	clock  func() time.Time
}

func New(cfg Config) (*Authenticator, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("token secret is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got: %v", cfg.TTL)
	}
	users := cfg.Users
	if users == nil {
		users = DemoUsers
	}
	return &Authenticator{
		users:  append([]models.User(nil), users...),
		secret: cfg.Secret,
		ttl:    cfg.TTL,
		clock:  time.Now,
	}, nil
}

func (a *Authenticator) Users() []models.User {
	return append([]models.User(nil), a.users...)
}

// Login issues a token for the user with email. There are no passwords.
func (a *Authenticator) Login(email string) (string, models.User, error) {
	u, ok := a.byEmail(email)
	if !ok {
		return "", models.User{}, ErrUnknownUser
	}

	now := a.clock()
	claims := Claims{
		OrgID: u.OrgID,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    "visiguard",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", models.User{}, fmt.Errorf("sign token: %w", err)
	}
	return token, u, nil
}

// Authenticate resolves a token back to its directory entry.
func (a *Authenticator) Authenticate(token string) (models.User, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer("visiguard"),
		jwt.WithTimeFunc(a.clock),
	)
	if err != nil || !parsed.Valid {
		return models.User{}, ErrInvalidToken
	}

	u, ok := a.byID(claims.Subject)
	if !ok {
		return models.User{}, ErrInvalidToken
	}
	return u, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

func (a *Authenticator) byEmail(email string) (models.User, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range a.users {
		if strings.ToLower(u.Email) == email {
			return u, true
		}
	}
	return models.User{}, false
}

func (a *Authenticator) byID(id string) (models.User, bool) {
	for _, u := range a.users {
		if u.ID == id {
			return u, true
		}
	}
	return models.User{}, false
}
