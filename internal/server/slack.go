package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nomadicseo/slack-asana-bridge/internal/biz/domain"
)

// slackEnvelope is the outer Slack Events API payload.
type slackEnvelope struct {
	Type      string          `json:"type"`
	Challenge string          `json:"challenge"`
	EventID   string          `json:"event_id"`
	Event     json.RawMessage `json:"event"`
}

// slackEvent is the inner event, covering the two types handled here.
type slackEvent struct {
	Type     string `json:"type"`
	User     string `json:"user"`
	Text     string `json:"text"`
	Channel  string `json:"channel"`
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts"`
	BotID    string `json:"bot_id"`
	Reaction string `json:"reaction"`
	Item     struct {
		Type    string `json:"type"`
		Channel string `json:"channel"`
		TS      string `json:"ts"`
	} `json:"item"`
}

func (s *Server) handleSlackEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		s.writeJSONStatus(w, http.StatusBadRequest, map[string]string{"error": "Content-Type must be application/json"})
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeJSONStatus(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	timestamp := r.Header.Get("X-Slack-Request-Timestamp")
	signature := r.Header.Get("X-Slack-Signature")
	if err := s.gate.Authenticate(body, timestamp, signature); err != nil {
		switch {
		case errors.Is(err, domain.ErrBadSignature):
			fmt.Println("[Server] Rejected request: invalid signature")
			s.writeJSONStatus(w, http.StatusForbidden, map[string]string{"error": "Invalid signature"})
		default:
			fmt.Printf("[Server] Rejected request: %v\n", err)
			s.writeJSONStatus(w, http.StatusBadRequest, map[string]string{"error": "Request timestamp too old"})
		}
		return
	}

	var envelope slackEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		s.writeJSONStatus(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}

	// Slack's endpoint ownership handshake short-circuits everything else.
	if envelope.Type == "url_verification" {
		s.writeJSON(w, map[string]string{"challenge": envelope.Challenge})
		return
	}

	if len(envelope.Event) > 0 && envelope.EventID != "" {
		if !s.gate.ShouldProcess(envelope.EventID) {
			fmt.Printf("[Server] Duplicate event %s, skipping\n", envelope.EventID)
			s.writeJSON(w, map[string]string{"status": "ok"})
			return
		}

		var event slackEvent
		if err := json.Unmarshal(envelope.Event, &event); err != nil {
			s.writeJSONStatus(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
			return
		}

		switch {
		case event.Type == "message" && event.BotID == "" && event.Text != "":
			ev := &domain.MessageEvent{
				Channel:  event.Channel,
				TS:       event.TS,
				ThreadTS: event.ThreadTS,
				UserID:   event.User,
				Text:     event.Text,
			}
			// Classification and creation are slow network calls; Slack
			// retries on slow responses, so they run off the request path.
			s.dispatch(func() { s.processMessage(ev) })

		case event.Type == "reaction_added" && event.Reaction == s.cancelReaction && event.Item.Type == "message":
			key := domain.CommitmentKey(event.Item.Channel, event.Item.TS)
			user := event.User
			channel := event.Item.Channel
			ts := event.Item.TS
			s.dispatch(func() { s.processCancelReaction(key, channel, ts, user) })
		}
	}

	s.writeJSON(w, map[string]string{"status": "ok"})
}

// processMessage classifies a message and starts task creation on a
// positive verdict. Classification failures fail closed.
func (s *Server) processMessage(ev *domain.MessageEvent) {
	ctx := context.Background()

	cls, err := s.classifier.Classify(ctx, ev.Text, time.Now())
	if err != nil {
		fmt.Printf("[Server] Classification failed for %s: %v\n", ev.Key(), err)
		return
	}
	if !cls.IsCommitment {
		fmt.Printf("[Server] Not a commitment: %s\n", ev.Key())
		return
	}

	// The assignee-free flag is derived here: the classifier never sees
	// whether the raw text actually mentioned anyone.
	cls.NoExplicitAssignee = !domain.HasMention(ev.Text)

	if err := s.engine.CreateFromMessage(ctx, ev, cls); err != nil {
		fmt.Printf("[Server] Task creation failed for %s: %v\n", ev.Key(), err)
	}
}

// processCancelReaction runs the cancel flow and translates lifecycle
// errors into user-facing ephemerals and reaction reverts. Only a
// successful cancel mutates state.
func (s *Server) processCancelReaction(key, channel, messageTS, user string) {
	ctx := context.Background()

	rec, err := s.engine.Cancel(ctx, key, user)
	if err == nil {
		return
	}

	threadTS := ""
	if rec != nil {
		threadTS = rec.ThreadTS
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		// Reaction on an untracked message: clear the dangling indicator.
		fmt.Printf("[Server] Cancel reaction on untracked message %s\n", key)
		s.removeCancelReaction(ctx, channel, messageTS)

	case errors.Is(err, domain.ErrUnauthorized):
		s.notify(ctx, channel, user, "❌ Solo el creador de la tarea puede cancelarla.", threadTS)
		s.removeCancelReaction(ctx, channel, messageTS)

	case errors.Is(err, domain.ErrWindowExpired):
		s.notify(ctx, channel, user, "⏰ Ya no puedes cancelar esta tarea. Han pasado más de 5 minutos desde su creación.", threadTS)
		s.removeCancelReaction(ctx, channel, messageTS)

	default:
		// Deletion failure: record untouched, a later reaction retries.
		fmt.Printf("[Server] Cancel failed for %s: %v\n", key, err)
	}
}

func (s *Server) notify(ctx context.Context, channel, user, text, threadTS string) {
	if err := s.chat.PostEphemeral(ctx, channel, user, text, threadTS); err != nil {
		fmt.Printf("[Server] Failed to send notice: %v\n", err)
	}
}

func (s *Server) removeCancelReaction(ctx context.Context, channel, messageTS string) {
	if err := s.chat.RemoveReaction(ctx, channel, messageTS, s.cancelReaction); err != nil {
		fmt.Printf("[Server] Failed to remove cancel reaction: %v\n", err)
	}
}
