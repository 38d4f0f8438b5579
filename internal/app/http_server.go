package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"clio-sync/internal/usecase"
)

// HTTPServer returns a configured http.Server exposing endpoints to trigger
// syncs and to receive the OAuth2 authorization callback.
// Call ListenAndServe on the returned server in a goroutine and Shutdown it on exit.
func (a *App) HTTPServer(addr string) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// /sync?from=...&to=...
	// from/to accept RFC3339 or YYYY-MM-DD. If omitted, defaults to [now-24h, now].
	mux.HandleFunc("/sync", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		q := r.URL.Query()
		now := time.Now().UTC()
		toTime := parseEndHTTP(q.Get("to"), now)
		fromTime := parseStartHTTP(q.Get("from"), toTime.Add(-24*time.Hour))

		// Optional timeout override: ?timeout=5m
		ctx := r.Context()
		if tStr := q.Get("timeout"); tStr != "" {
			if d, err := time.ParseDuration(tStr); err == nil && d > 0 {
				var cancel func()
				ctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
			}
		}

		err := a.RunOnce(ctx, fromTime, toTime)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err != nil {
			// Distinguish a concurrent run from other errors
			status := http.StatusInternalServerError
			if errors.Is(err, usecase.ErrSyncRunning) {
				status = http.StatusConflict
			}
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": "error",
				"error":  err.Error(),
				"from":   fromTime.Format(time.RFC3339),
				"to":     toTime.Format(time.RFC3339),
			})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"from":   fromTime.Format(time.RFC3339),
			"to":     toTime.Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/matters/refresh", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := a.RefreshMatters(r.Context()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "error", "error": err.Error()})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	})

	// OAuth2 redirect target. The provider sends the user here with
	// ?code=...&state=...; the state must match the one issued by BeginLogin.
	mux.HandleFunc("/oauth/callback", func(w http.ResponseWriter, r *http.Request) {
		if a.authorizer == nil {
			http.Error(w, "login not supported in sandbox mode", http.StatusNotFound)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing authorization code", http.StatusBadRequest)
			return
		}
		if !a.consumeLoginState(r.URL.Query().Get("state")) {
			http.Error(w, "states do not match", http.StatusBadRequest)
			return
		}
		if err := a.authorizer.Exchange(r.Context(), code); err != nil {
			a.log.Error("authorization code exchange failed", slog.String("error", err.Error()))
			http.Error(w, "authorization failed", http.StatusForbidden)
			return
		}
		close(a.loginDone)

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("login complete, you can close this window"))
	})

	srv := &http.Server{Addr: addr, Handler: loggingMiddleware(a.log, mux)}
	a.log.Info("http trigger server configured", slog.String("addr", addr))
	return srv
}

// loggingMiddleware provides basic request logging.
func loggingMiddleware(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr),
			slog.Duration("dur", time.Since(start)),
		)
	})
}

// parseStartHTTP parses a start boundary that may be RFC3339 or YYYY-MM-DD.
// If empty, defaultVal is returned.
func parseStartHTTP(val string, defaultVal time.Time) time.Time {
	if val == "" {
		return defaultVal
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t
	}
	if d, err := time.Parse("2006-01-02", val); err == nil {
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	}
	// On invalid input, fall back to default to avoid hard failures.
	return defaultVal
}

// parseEndHTTP parses an end boundary that may be RFC3339 or YYYY-MM-DD.
// Date-only form is treated as inclusive by converting to next-day 00:00 UTC.
// If empty, defaultVal is returned.
func parseEndHTTP(val string, defaultVal time.Time) time.Time {
	if val == "" {
		return defaultVal
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t
	}
	if d, err := time.Parse("2006-01-02", val); err == nil {
		next := d.Add(24 * time.Hour)
		return time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, time.UTC)
	}
	return defaultVal
}
