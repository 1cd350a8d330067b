package api

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const tokenLifetime = 24 * time.Hour

var (
	errMissingAuthorization = errors.New("missing Authorization header")
	errBadAuthorization     = errors.New("malformed Authorization header")
	errBadCredentials       = errors.New("invalid credentials")
)

// Auth issues and validates HS256 session tokens for the single configured
// user.
type Auth struct {
	secret   []byte
	username string
	password string

	parser *jwt.Parser
}

// NewAuth creates a new Auth instance. The secret signs session tokens and
// must not be empty.
func NewAuth(secret []byte, username, password string) *Auth {
	if len(secret) == 0 {
		panic("auth: signing secret must not be empty")
	}
	return &Auth{
		secret:   secret,
		username: username,
		password: password,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

// Login checks the credentials against the configured user and returns a
// signed session token.
func (a *Auth) Login(username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	if !userOK || !passOK {
		return "", errBadCredentials
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": a.username,
		"iat": now.Unix(),
		"exp": now.Add(tokenLifetime).Unix(),
	})
	return token.SignedString(a.secret)
}

// UserFromAuthHeader extracts the authenticated username from the
// Authorization header.
func (a *Auth) UserFromAuthHeader(h string) (string, error) {
	if h == "" {
		return "", errMissingAuthorization
	}
	raw, err := bearerTokenFromString(h)
	if err != nil {
		return "", err
	}
	parsed, err := a.parser.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	if !claims.VerifyExpiresAt(time.Now().Unix(), true) {
		return "", errors.New("token expired")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("missing sub")
	}
	return sub, nil
}

func bearerTokenFromString(h string) (string, error) {
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", errBadAuthorization
	}
	token := strings.TrimSpace(h[len(prefix):])
	if token == "" {
		return "", errBadAuthorization
	}
	return token, nil
}
