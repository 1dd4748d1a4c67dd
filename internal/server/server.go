// Package server exposes the auction engine over a small JSON HTTP API.
//
// Participants are identified by a UUID cookie set on first contact;
// display names travel with each request. The API is designed for a
// polling browser client: GET /api/state doubles as the presence
// heartbeat.
package server

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/lotboard/lotboard/internal/engine"
)

// Server routes HTTP requests to the auction engine.
type Server struct {
	engine  *engine.Engine
	handler http.Handler
}

// New builds the HTTP handler stack: method-routed mux wrapped in
// permissive CORS so a dev frontend on another port can talk to it.
func New(e *engine.Engine) *Server {
	s := &Server{engine: e}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/round", s.handleStartRound)
	mux.HandleFunc("POST /api/bid", s.handleBid)
	mux.HandleFunc("GET /health", s.handleHealth)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	s.handler = c.Handler(mux)
	return s
}

// Handler returns the root handler for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
