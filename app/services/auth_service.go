package services

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/shashiranjanraj/orderly/app/apperr"
	"github.com/shashiranjanraj/orderly/app/resources"
	"github.com/shashiranjanraj/orderly/pkg/auth"
	"github.com/shashiranjanraj/orderly/pkg/logger"
)

// AuthConfig is the single administrator credential. Password may be plain
// text or a bcrypt hash.
type AuthConfig struct {
	Username string
	Password string
}

type AuthService struct {
	cfg AuthConfig
}

func NewAuthService(cfg AuthConfig) *AuthService {
	return &AuthService{cfg: cfg}
}

// AdminRole is the role carried by tokens issued at login.
const AdminRole = "admin"

// Login checks the credential and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, username, password string) (resources.Token, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return resources.Token{}, apperr.Unauthorized("Username and password are required")
	}
	if !s.valid(username, password) {
		logger.WithCtx(ctx).Warn("login rejected", "username", username)
		return resources.Token{}, apperr.Unauthorized("Invalid username or password")
	}

	token, exp, err := auth.GenerateToken(username, AdminRole)
	if err != nil {
		return resources.Token{}, apperr.Internal(err)
	}

	logger.WithCtx(ctx).Info("login succeeded", "username", username)
	return resources.NewToken(token, exp), nil
}

func (s *AuthService) valid(username, password string) bool {
	if s.cfg.Username == "" || s.cfg.Password == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.Username)) == 1
	var passOK bool
	if auth.IsHash(s.cfg.Password) {
		passOK = auth.CheckPassword(s.cfg.Password, password)
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.Password)) == 1
	}
	return userOK && passOK
}
