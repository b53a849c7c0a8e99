// Package slackapi adapts the Slack Web API to the chat boundary the
// lifecycle engine works against.
package slackapi

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/slack-go/slack"

	"github.com/nomadicseo/slack-asana-bridge/internal/biz/repo"
)

// Client wraps the Slack Web API client. It caches user profiles and
// channel names, both effectively immutable for the bridge's lifetime.
type Client struct {
	api *slack.Client

	mu       sync.RWMutex
	profiles map[string]*cachedProfile
	channels map[string]string
}

type cachedProfile struct {
	id          string
	name        string
	realName    string
	displayName string
	email       string
}

func (p *cachedProfile) toRepo() *repo.UserProfile {
	return &repo.UserProfile{
		ID:          p.id,
		Name:        p.name,
		RealName:    p.realName,
		DisplayName: p.displayName,
		Email:       p.email,
	}
}

// NewClient creates a Slack client from a bot token.
func NewClient(botToken string, opts ...slack.Option) *Client {
	return &Client{
		api:      slack.New(botToken, opts...),
		profiles: make(map[string]*cachedProfile),
		channels: make(map[string]string),
	}
}

// AuthTest verifies the token and returns the bot's own user ID.
func (c *Client) AuthTest(ctx context.Context) (string, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("slack auth test failed: %w", err)
	}
	return resp.UserID, nil
}

func (c *Client) AddReaction(ctx context.Context, channel, messageTS, name string) error {
	ref := slack.NewRefToMessage(channel, messageTS)
	if err := c.api.AddReactionContext(ctx, name, ref); err != nil {
		// Re-adding the same reaction is not an error worth surfacing.
		if strings.Contains(err.Error(), "already_reacted") {
			return nil
		}
		return fmt.Errorf("failed to add reaction %s: %w", name, err)
	}
	return nil
}

func (c *Client) RemoveReaction(ctx context.Context, channel, messageTS, name string) error {
	ref := slack.NewRefToMessage(channel, messageTS)
	if err := c.api.RemoveReactionContext(ctx, name, ref); err != nil {
		if strings.Contains(err.Error(), "no_reaction") {
			return nil
		}
		return fmt.Errorf("failed to remove reaction %s: %w", name, err)
	}
	return nil
}

func (c *Client) PostEphemeral(ctx context.Context, channel, userID, text, threadTS string) error {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}
	if _, err := c.api.PostEphemeralContext(ctx, channel, userID, opts...); err != nil {
		return fmt.Errorf("failed to post ephemeral: %w", err)
	}
	return nil
}

func (c *Client) PostMessage(ctx context.Context, channel, text string) error {
	_, _, err := c.api.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("failed to post message: %w", err)
	}
	return nil
}

func (c *Client) GetUserProfile(ctx context.Context, userID string) (*repo.UserProfile, error) {
	c.mu.RLock()
	cached, ok := c.profiles[userID]
	c.mu.RUnlock()
	if ok {
		return cached.toRepo(), nil
	}

	user, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}

	p := &cachedProfile{
		id:          user.ID,
		name:        user.Name,
		realName:    user.RealName,
		displayName: user.Profile.DisplayName,
		email:       user.Profile.Email,
	}
	c.mu.Lock()
	c.profiles[userID] = p
	c.mu.Unlock()

	return p.toRepo(), nil
}

func (c *Client) GetChannelName(ctx context.Context, channelID string) (string, error) {
	c.mu.RLock()
	name, ok := c.channels[channelID]
	c.mu.RUnlock()
	if ok {
		return name, nil
	}

	info, err := c.api.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{
		ChannelID: channelID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get channel %s: %w", channelID, err)
	}

	c.mu.Lock()
	c.channels[channelID] = info.Name
	c.mu.Unlock()

	return info.Name, nil
}
