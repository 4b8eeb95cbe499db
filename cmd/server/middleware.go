package main

import (
	"net/http"

	"go.uber.org/zap"
)

// apiKey reads the key from the X-Api-Key header, falling back to the
// api_key query parameter since browsers cannot set headers on a websocket
// handshake.
func apiKey(r *http.Request) string {
	if key := r.Header.Get("X-Api-Key"); key != "" {
		return key
	}
	return r.URL.Query().Get("api_key")
}

func (app *application) authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if app.Auth.IsValidKey(apiKey(r)) {
			next(w, r)
			return
		}

		app.Logger.Warn("rejected clock client",
			zap.String("path", r.URL.Path),
			zap.String("origin", r.Header.Get("Origin")),
			zap.String("remote_addr", r.RemoteAddr),
		)
		w.Header().Set("WWW-Authenticate", "APIKey")
		http.Error(w, "Unauthorized: invalid API key", http.StatusUnauthorized)
	}
}
