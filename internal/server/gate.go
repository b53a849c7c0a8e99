package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/nomadicseo/slack-asana-bridge/internal/biz/domain"
)

// freshnessWindow bounds how far a request timestamp may drift from the
// local clock (replay / clock-skew defense).
const freshnessWindow = 300 * time.Second

// dedupCapacity bounds the processed-event-id set. Exceeding it clears the
// whole set right after admitting the triggering event. Blunt, but the
// platform's redelivery window is far shorter than the time it takes to
// see a thousand fresh events.
const dedupCapacity = 1000

// Gate verifies inbound webhook authenticity and freshness and
// deduplicates events by id with bounded memory.
type Gate struct {
	secret string
	now    func() time.Time

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewGate creates a gate keyed by the shared signing secret.
func NewGate(secret string) *Gate {
	return &Gate{
		secret: secret,
		now:    time.Now,
		seen:   make(map[string]struct{}),
	}
}

// Authenticate checks the request timestamp and the v0 HMAC signature over
// the raw body. Stale requests fail before any signature work.
func (g *Gate) Authenticate(body []byte, timestamp, signature string) error {
	ts, err := strconv.ParseFloat(timestamp, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp %q", domain.ErrStaleRequest, timestamp)
	}
	if math.Abs(float64(g.now().Unix())-ts) > freshnessWindow.Seconds() {
		return domain.ErrStaleRequest
	}

	mac := hmac.New(sha256.New, []byte(g.secret))
	fmt.Fprintf(mac, "v0:%s:%s", timestamp, body)
	expected := "v0=" + hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return domain.ErrBadSignature
	}
	return nil
}

// ShouldProcess returns true exactly once per distinct event id. Recording
// the id that pushes the set past capacity clears everything else.
func (g *Gate) ShouldProcess(eventID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, dup := g.seen[eventID]; dup {
		return false
	}
	g.seen[eventID] = struct{}{}

	if len(g.seen) > dedupCapacity {
		g.seen = map[string]struct{}{eventID: {}}
		fmt.Println("[Gate] Cleared processed-event cache")
	}
	return true
}

// SetClock overrides the gate's clock. Test hook.
func (g *Gate) SetClock(now func() time.Time) {
	g.now = now
}
