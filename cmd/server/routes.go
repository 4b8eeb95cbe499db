// Package main is the entry point of the application
package main

import (
	"net/http"

	"github.com/rs/cors"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", app.handleHealth)
	mux.HandleFunc("/ws", app.authenticate(app.handleWebSocket))

	allowedOrigins := []string{"*"}
	if app.Config.FrontendOrigin != "" {
		allowedOrigins = []string{app.Config.FrontendOrigin}
	}

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
		},
		AllowedOrigins: allowedOrigins,
		AllowedHeaders: []string{"X-Api-Key", "Content-Type"},
	})

	return c.Handler(mux)
}
