// Command setup-webhooks registers an Asana webhook for every project in
// the channel map, pointing at the bridge's Asana endpoint. Existing
// registrations for the same target are left alone, so the command is safe
// to re-run.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/nomadicseo/slack-asana-bridge/internal/conf"
	"github.com/nomadicseo/slack-asana-bridge/internal/data"
	"github.com/nomadicseo/slack-asana-bridge/internal/infra/asana"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := conf.LoadFromEnv()
	if cfg.Asana.AccessToken == "" {
		log.Fatal("ASANA_ACCESS_TOKEN is required")
	}
	if cfg.Asana.WebhookTarget == "" {
		log.Fatal("ASANA_WEBHOOK_TARGET is required (public URL of the /asana/webhook endpoint)")
	}

	channelMap, err := data.LoadChannelMap(cfg.Storage.ChannelMapPath)
	if err != nil {
		log.Fatalf("Failed to load channel map: %v", err)
	}
	// Several channels may feed the same project; register each once.
	seen := make(map[string]bool)
	var projects []string
	for _, gid := range channelMap.Projects() {
		if !seen[gid] {
			seen[gid] = true
			projects = append(projects, gid)
		}
	}
	if len(projects) == 0 {
		log.Fatal("Channel map contains no projects")
	}

	ctx := context.Background()
	client := asana.NewClient(cfg.Asana.AccessToken)

	workspaces, err := client.Workspaces(ctx)
	if err != nil {
		log.Fatalf("Failed to list workspaces: %v", err)
	}
	if len(workspaces) == 0 {
		log.Fatal("Token has no visible workspaces")
	}
	workspace := workspaces[0]
	fmt.Printf("[Setup] Workspace: %s (%s)\n", workspace.Name, workspace.GID)

	existing, err := client.ListWebhooks(ctx, workspace.GID)
	if err != nil {
		log.Fatalf("Failed to list webhooks: %v", err)
	}

	registered := make(map[string]bool)
	for _, wh := range existing {
		if wh.Target == cfg.Asana.WebhookTarget && wh.Active {
			registered[wh.Resource.GID] = true
		}
	}

	created := 0
	for _, projectGID := range projects {
		if registered[projectGID] {
			fmt.Printf("[Setup] Project %s already registered, skipping\n", projectGID)
			continue
		}
		wh, err := client.CreateWebhook(ctx, projectGID, cfg.Asana.WebhookTarget)
		if err != nil {
			log.Fatalf("Failed to register webhook for project %s: %v", projectGID, err)
		}
		fmt.Printf("[Setup] Registered webhook %s for project %s\n", wh.GID, projectGID)
		created++
	}

	fmt.Printf("[Setup] Done: %d created, %d already present\n", created, len(projects)-created)
}
