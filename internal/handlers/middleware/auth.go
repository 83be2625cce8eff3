package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/nkiryanov/campuswallet/internal/apperrors"
	"github.com/nkiryanov/campuswallet/internal/handlers/render"
	"github.com/nkiryanov/campuswallet/internal/handlers/sessionctx"
	"github.com/nkiryanov/campuswallet/internal/models"
)

type authService interface {
	Auth(ctx context.Context, r *http.Request) (models.Session, error)
}

func AuthMiddleware(as authService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := as.Auth(r.Context(), r)
			switch {
			case err == nil:
			case errors.Is(err, apperrors.ErrEmailDomainNotAllowed):
				render.ServiceError(w, "Email domain is not allowed", http.StatusUnauthorized)
				return
			default:
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := sessionctx.New(r.Context(), session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
