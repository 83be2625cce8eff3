package tokenmanager

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/campuswallet/internal/apperrors"
	"github.com/nkiryanov/campuswallet/internal/models"
)

const (
	defaultSessionTTL    = 12 * time.Hour
	defaultSigningMethod = "HS256"
)

type SessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Token manager with sensible default
type Config struct {
	// Secret key to sign session token
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Session token lifetime
	// If not set than default is used
	TTL time.Duration
}

type TokenManager struct {
	key string
	alg jwt.SigningMethod
	ttl time.Duration
}

func New(cfg Config) (*TokenManager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	alg := jwt.GetSigningMethod(cfg.Alg)
	if _, ok := alg.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("signing method %q is not supported", cfg.Alg)
	}

	if cfg.TTL == 0 {
		cfg.TTL = defaultSessionTTL
	}

	return &TokenManager{
		key: cfg.SecretKey,
		alg: alg,
		ttl: cfg.TTL,
	}, nil
}

// Issue session token for the email
func (m *TokenManager) Issue(email string) (models.IssuedToken, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return models.IssuedToken{}, fmt.Errorf("%w: email is required", apperrors.ErrValidation)
	}

	now := time.Now().Truncate(time.Second)
	expiresAt := now.Add(m.ttl)

	token := jwt.NewWithClaims(
		m.alg,
		SessionClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				Subject:   email,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			Email: email,
		},
	)
	value, err := token.SignedString([]byte(m.key))
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing session token. Err: %w", err)
	}

	return models.IssuedToken{Value: value, ExpiresAt: expiresAt}, nil
}

// Parse and validate session token
func (m *TokenManager) Parse(value string) (models.Session, error) {
	claims := &SessionClaims{}

	_, err := jwt.ParseWithClaims(
		value,
		claims,
		func(t *jwt.Token) (any, error) {
			return []byte(m.key), nil
		},
		jwt.WithValidMethods([]string{m.alg.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: error while parsing or validating token. Err: %w", apperrors.ErrUnauthorized, err)
	}

	if claims.Email == "" {
		return models.Session{}, fmt.Errorf("%w: token has no email", apperrors.ErrUnauthorized)
	}

	return models.Session{Email: claims.Email, ExpiresAt: claims.ExpiresAt.Time}, nil
}
