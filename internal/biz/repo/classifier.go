package repo

import (
	"context"
	"time"

	"github.com/nomadicseo/slack-asana-bridge/internal/biz/domain"
)

// ClassifierRepo is the commitment-detection boundary. Classify grounds the
// prompt at now so relative due dates resolve against the right day.
// Failures (no provider, unparseable output) fail closed: the caller treats
// the message as not a commitment.
type ClassifierRepo interface {
	Classify(ctx context.Context, messageText string, now time.Time) (*domain.Classification, error)
}

// ProjectResolver maps chat channels to tracker projects from static
// configuration.
type ProjectResolver interface {
	// ResolveProjectForChannel returns the Asana project gid configured for
	// a channel, ok=false when the channel is unmapped.
	ResolveProjectForChannel(channelID string) (string, bool)
}
