package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/nkiryanov/campuswallet/internal/handlers/render"
	"github.com/nkiryanov/campuswallet/internal/logger"
)

const defaultHealthTimeout = 2 * time.Second

func handleHealth(health healthChecker, timeout time.Duration, l logger.Logger) http.Handler {
	type response struct {
		Status string `json:"status"`
	}

	if timeout <= 0 {
		timeout = defaultHealthTimeout
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := health.Ping(ctx); err != nil {
			l.Warn("Health check failed", "error", err)
			render.JSONStatus(w, response{Status: "unavailable"}, http.StatusServiceUnavailable)
			return
		}

		render.JSON(w, response{Status: "ok"})
	})
}
