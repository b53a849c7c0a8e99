package domain

import (
	"fmt"
	"strings"
	"time"
)

// CancelWindow is how long the author may retract a created task via the
// cancel reaction before it locks.
const CancelWindow = 300 * time.Second

// Reaction names used as lifecycle indicators on the originating message.
const (
	ReactionCreated   = "bulb"
	ReactionCancel    = "no_entry_sign"
	ReactionCompleted = "white_check_mark"
)

// TrackedCommitment links a Slack message to the Asana task created from it.
type TrackedCommitment struct {
	Key         string // Channel + ":" + MessageTS, unique per message
	TaskGID     string // Asana task gid
	Channel     string
	MessageTS   string
	ThreadTS    string // Parent thread timestamp, empty outside threads
	AuthorID    string // Slack user who posted the original message
	AssignedTo  string // Mentioned Slack user, empty when assigned to author
	ProjectID   string
	TaskTitle   string
	CreatedAt   time.Time
	Cancellable bool
}

// CommitmentKey builds the canonical lookup key for a message.
func CommitmentKey(channel, messageTS string) string {
	return channel + ":" + messageTS
}

// WithinWindow reports whether the cancellation window is still open at now.
// The scheduled lock timer is advisory; this is the authoritative check.
func (c *TrackedCommitment) WithinWindow(now time.Time, window time.Duration) bool {
	return c.Cancellable && now.Sub(c.CreatedAt) <= window
}

// Permalink builds the Slack archive link for the originating message.
func (c *TrackedCommitment) Permalink(workspaceURL string) string {
	ts := strings.ReplaceAll(c.MessageTS, ".", "")
	return fmt.Sprintf("%s/archives/%s/p%s", strings.TrimSuffix(workspaceURL, "/"), c.Channel, ts)
}

// MessageEvent is an inbound Slack message, reduced to the fields the
// lifecycle engine needs.
type MessageEvent struct {
	Channel  string
	TS       string
	ThreadTS string
	UserID   string
	Text     string
}

// Key returns the commitment key this message would be tracked under.
func (e *MessageEvent) Key() string {
	return CommitmentKey(e.Channel, e.TS)
}
