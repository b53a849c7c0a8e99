// Package server exposes the two webhook endpoints and composes the event
// gate, the commitment classifier and the task lifecycle engine into
// end-to-end request handling.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nomadicseo/slack-asana-bridge/internal/biz/domain"
	"github.com/nomadicseo/slack-asana-bridge/internal/biz/repo"
)

// LifecycleEngine is the slice of the lifecycle usecase the router needs.
type LifecycleEngine interface {
	CreateFromMessage(ctx context.Context, ev *domain.MessageEvent, cls *domain.Classification) error
	Cancel(ctx context.Context, key, requestingUser string) (*domain.TrackedCommitment, error)
	ReconcileCompletion(ctx context.Context, taskGID, completedByGID string) error
}

// Server handles the inbound webhooks.
type Server struct {
	gate           *Gate
	classifier     repo.ClassifierRepo
	engine         LifecycleEngine
	chat           repo.ChatRepo
	cancelReaction string

	// dispatch runs background units of work; replaced in tests to run
	// synchronously.
	dispatch func(func())

	server *http.Server
	addr   string

	credentials map[string]bool
}

// NewServer creates the webhook server.
func NewServer(gate *Gate, classifier repo.ClassifierRepo, engine LifecycleEngine, chat repo.ChatRepo, cancelReaction, addr string) *Server {
	if cancelReaction == "" {
		cancelReaction = domain.ReactionCancel
	}
	return &Server{
		gate:           gate,
		classifier:     classifier,
		engine:         engine,
		chat:           chat,
		cancelReaction: cancelReaction,
		dispatch:       func(f func()) { go f() },
		addr:           addr,
	}
}

// Start starts the HTTP server (blocking).
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/slack/events", s.handleSlackEvents)
	mux.HandleFunc("/asana/webhook", s.handleAsanaWebhook)
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	fmt.Printf("[Server] Listening on %s\n", s.addr)
	return s.server.ListenAndServe()
}

// Stop shuts the HTTP server down.
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Shutdown(context.Background())
	}
	return nil
}

// SetCredentialStatus records which integrations hold credentials, for the
// health endpoint.
func (s *Server) SetCredentialStatus(slack, asana, classifier bool) {
	s.credentials = map[string]bool{
		"slack_configured":      slack,
		"asana_configured":      asana,
		"classifier_configured": classifier,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":  "healthy",
		"service": "slack-asana-bridge",
	}
	for k, v := range s.credentials {
		resp[k] = v
	}
	s.writeJSON(w, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
