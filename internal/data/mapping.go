package data

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nomadicseo/slack-asana-bridge/internal/biz/domain"
)

// ChannelMap resolves Slack channels to Asana projects from a static JSON
// file of the form {"C0123...": "1205..."}.
type ChannelMap struct {
	projects map[string]string
}

// LoadChannelMap reads the channel→project file.
func LoadChannelMap(path string) (*ChannelMap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read channel map: %w", err)
	}

	var projects map[string]string
	if err := json.Unmarshal(raw, &projects); err != nil {
		return nil, fmt.Errorf("failed to parse channel map: %w", err)
	}
	return &ChannelMap{projects: projects}, nil
}

// ResolveProjectForChannel returns the project gid for a channel, ok=false
// when the channel is unmapped.
func (m *ChannelMap) ResolveProjectForChannel(channelID string) (string, bool) {
	id, ok := m.projects[channelID]
	return id, ok
}

// Projects returns the full channel→project table (webhook setup).
func (m *ChannelMap) Projects() map[string]string {
	return m.projects
}

// mergedAccount is the on-disk shape of one identity entry, keyed by email:
// {"ana@example.com": {"slack_ids": [...], "asana_ids": [...]}}.
type mergedAccount struct {
	SlackIDs []string `json:"slack_ids"`
	AsanaIDs []string `json:"asana_ids"`
}

// LoadDirectory reads the merged-accounts identity file.
func LoadDirectory(path string) (*domain.Directory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts file: %w", err)
	}

	var entries map[string]mergedAccount
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse accounts file: %w", err)
	}

	accounts := make([]domain.Account, 0, len(entries))
	for email, e := range entries {
		accounts = append(accounts, domain.Account{
			Email:    email,
			SlackIDs: e.SlackIDs,
			AsanaIDs: e.AsanaIDs,
		})
	}
	return domain.NewDirectory(accounts), nil
}
