package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nomadicseo/slack-asana-bridge/internal/biz/domain"
)

// asanaEvent is one entry of an Asana webhook delivery.
type asanaEvent struct {
	Action   string `json:"action"`
	Resource struct {
		GID          string `json:"gid"`
		ResourceType string `json:"resource_type"`
	} `json:"resource"`
	Change struct {
		Field    string `json:"field"`
		NewValue struct {
			ResourceSubtype string `json:"resource_subtype"`
		} `json:"new_value"`
	} `json:"change"`
	User struct {
		GID string `json:"gid"`
	} `json:"user"`
}

func (s *Server) handleAsanaWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Webhook establishment handshake: echo the secret and do nothing else.
	if secret := r.Header.Get("X-Hook-Secret"); secret != "" {
		fmt.Println("[Server] Asana webhook handshake")
		w.Header().Set("X-Hook-Secret", secret)
		s.writeJSON(w, map[string]string{"X-Hook-Secret": secret})
		return
	}

	var payload struct {
		Events []asanaEvent `json:"events"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeJSONStatus(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}

	fmt.Printf("[Server] Asana webhook with %d events\n", len(payload.Events))
	for _, event := range payload.Events {
		if event.Action != "changed" || event.Resource.ResourceType != "task" {
			continue
		}
		if !strings.Contains(event.Change.Field, "completed") {
			continue
		}
		if event.Change.NewValue.ResourceSubtype != "completed" {
			// Un-completions and other status noise are ignored.
			continue
		}

		if err := s.engine.ReconcileCompletion(context.Background(), event.Resource.GID, event.User.GID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Tasks created before the bridge started, or directly in
				// Asana, are expected misses.
				fmt.Printf("[Server] Completed task %s not tracked\n", event.Resource.GID)
				continue
			}
			fmt.Printf("[Server] Reconciliation failed for %s: %v\n", event.Resource.GID, err)
		}
	}

	s.writeJSON(w, map[string]string{"status": "ok"})
}
