package repo

import "context"

// UserProfile is the chat platform's view of a user.
type UserProfile struct {
	ID          string
	Name        string
	RealName    string
	DisplayName string
	Email       string
}

// DisplayLabel picks the best human-readable name for task descriptions.
func (p *UserProfile) DisplayLabel() string {
	switch {
	case p.RealName != "":
		return p.RealName
	case p.DisplayName != "":
		return p.DisplayName
	case p.Name != "":
		return p.Name
	default:
		return "<@" + p.ID + ">"
	}
}

// ChatRepo is the chat platform (Slack Web API) boundary.
type ChatRepo interface {
	// AddReaction adds a named reaction to a message.
	AddReaction(ctx context.Context, channel, messageTS, name string) error

	// RemoveReaction removes a named reaction from a message.
	RemoveReaction(ctx context.Context, channel, messageTS, name string) error

	// PostEphemeral sends a message only the given user can see. threadTS
	// may be empty for channel-level delivery.
	PostEphemeral(ctx context.Context, channel, userID, text, threadTS string) error

	// PostMessage sends a regular channel message (operational alerts).
	PostMessage(ctx context.Context, channel, text string) error

	// GetUserProfile looks up a user's profile.
	GetUserProfile(ctx context.Context, userID string) (*UserProfile, error)

	// GetChannelName looks up a channel's display name.
	GetChannelName(ctx context.Context, channelID string) (string, error)
}
