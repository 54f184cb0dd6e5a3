package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrToken = errors.New("invalid token")

// Claims carried by the bearer token. Field names match the original API
// payload, so existing clients keep working.
type Claims struct {
	Username string   `json:"username"`
	Name     string   `json:"nome"`
	Email    string   `json:"email,omitempty"`
	Groups   []string `json:"grupos"`
	jwt.RegisteredClaims
}

func (c *Claims) User() *User {
	return &User{
		Username: c.Username,
		Name:     c.Name,
		Email:    c.Email,
		Groups:   c.Groups,
	}
}

// IssueToken signs an 8 hour HS256 token for the user.
func (a *AuthDB) IssueToken(u *User) (string, error) {
	claims := &Claims{
		Username: u.Username,
		Name:     u.Name,
		Email:    u.Email,
		Groups:   u.Groups,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(8 * time.Hour)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.JWTSecret))
}

// VerifyToken parses and validates a bearer token, with or without the
// "Bearer " prefix. Returns ErrToken on any validation failure.
func (a *AuthDB) VerifyToken(token string) (*Claims, error) {

	token = strings.TrimPrefix(token, "Bearer ")
	if token == "" {
		return nil, ErrToken
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(a.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, ErrToken
	}

	return &claims, nil
}
