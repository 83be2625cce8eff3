package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nkiryanov/campuswallet/internal/apperrors"
	"github.com/nkiryanov/campuswallet/internal/models"
)

const (
	defaultAccessHeaderName = "Authorization"
	defaultAccessAuthScheme = "Bearer"
	DefaultAllowedDomain    = "mbcet.ac.in"
)

type tokenManager interface {
	Issue(email string) (models.IssuedToken, error)
	Parse(value string) (models.Session, error)
}

type Config struct {
	// Header to read session token from and auth scheme before it
	AccessHeaderName string
	AccessAuthScheme string

	// Only emails of the institution domain may hold a wallet
	AllowedDomain string
}

type AuthService struct {
	accessHeaderName string
	accessAuthScheme string
	allowedDomain    string

	tokens tokenManager
}

func NewService(cfg Config, tokens tokenManager) (*AuthService, error) {
	if tokens == nil {
		return nil, errors.New("token manager must not be nil")
	}

	setDefault := func(field *string, def string) {
		if *field == "" {
			*field = def
		}
	}
	setDefault(&cfg.AccessHeaderName, defaultAccessHeaderName)
	setDefault(&cfg.AccessAuthScheme, defaultAccessAuthScheme)
	setDefault(&cfg.AllowedDomain, DefaultAllowedDomain)

	return &AuthService{
		accessHeaderName: cfg.AccessHeaderName,
		accessAuthScheme: cfg.AccessAuthScheme,
		allowedDomain:    strings.ToLower(strings.TrimPrefix(cfg.AllowedDomain, "@")),
		tokens:           tokens,
	}, nil
}

// Login issues session token for an institution email
func (s *AuthService) Login(email string) (models.IssuedToken, error) {
	if err := s.CheckDomain(email); err != nil {
		return models.IssuedToken{}, err
	}

	return s.tokens.Issue(email)
}

// Auth returns session of the request
func (s *AuthService) Auth(_ context.Context, r *http.Request) (models.Session, error) {
	header := r.Header.Get(s.accessHeaderName)
	scheme, value, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, s.accessAuthScheme) || value == "" {
		return models.Session{}, fmt.Errorf("%w: no session token", apperrors.ErrUnauthorized)
	}

	session, err := s.tokens.Parse(strings.TrimSpace(value))
	if err != nil {
		return models.Session{}, err
	}

	if err := s.CheckDomain(session.Email); err != nil {
		return models.Session{}, err
	}

	return session, nil
}

// CheckDomain fails with apperrors.ErrEmailDomainNotAllowed for emails outside the allowed domain
func (s *AuthService) CheckDomain(email string) error {
	at := strings.LastIndex(email, "@")
	if at <= 0 || !strings.EqualFold(email[at+1:], s.allowedDomain) {
		return fmt.Errorf("%w: %q", apperrors.ErrEmailDomainNotAllowed, email)
	}
	return nil
}
