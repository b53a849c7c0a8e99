package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nomadicseo/slack-asana-bridge/internal/biz/domain"
	"github.com/nomadicseo/slack-asana-bridge/internal/biz/repo"
	"github.com/nomadicseo/slack-asana-bridge/internal/dates"
)

// LifecycleConfig contains lifecycle engine configuration.
type LifecycleConfig struct {
	CancelWindow time.Duration // How long the author may retract a created task
	WorkspaceURL string        // Slack workspace base URL for permalinks
	OpsChannel   string        // Channel for operational alerts, empty to disable
}

// DefaultLifecycleConfig returns the production defaults.
func DefaultLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{
		CancelWindow: domain.CancelWindow,
	}
}

// LifecycleUsecase owns the (channel, message) → task mapping: it creates
// tracker tasks from classified commitments, enforces the cancellation
// window with a per-key timer, and reconciles tracker-side completions back
// onto the originating message. Every mutation is persisted immediately so
// the window survives a restart.
type LifecycleUsecase struct {
	commitments repo.CommitmentRepo
	tracker     repo.TrackerRepo
	chat        repo.ChatRepo
	directory   *domain.Directory
	projects    repo.ProjectResolver
	cfg         LifecycleConfig

	now func() time.Time

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewLifecycleUsecase creates the lifecycle engine.
func NewLifecycleUsecase(
	commitments repo.CommitmentRepo,
	tracker repo.TrackerRepo,
	chat repo.ChatRepo,
	directory *domain.Directory,
	projects repo.ProjectResolver,
	cfg LifecycleConfig,
) *LifecycleUsecase {
	if cfg.CancelWindow <= 0 {
		cfg.CancelWindow = domain.CancelWindow
	}
	return &LifecycleUsecase{
		commitments: commitments,
		tracker:     tracker,
		chat:        chat,
		directory:   directory,
		projects:    projects,
		cfg:         cfg,
		now:         time.Now,
		timers:      make(map[string]*time.Timer),
	}
}

// Restore reloads persisted commitments and re-arms their window timers.
// Records whose window already elapsed while the process was down are
// locked immediately. Must run before the server accepts events.
func (u *LifecycleUsecase) Restore(ctx context.Context) error {
	all, err := u.commitments.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore commitments: %w", err)
	}

	restored := 0
	for _, c := range all {
		if !c.Cancellable {
			continue
		}
		remaining := u.cfg.CancelWindow - u.now().Sub(c.CreatedAt)
		if remaining <= 0 {
			if err := u.commitments.Lock(ctx, c.Key); err != nil {
				fmt.Printf("[Lifecycle] Failed to lock expired commitment %s: %v\n", c.Key, err)
			}
			continue
		}
		u.armTimer(c.Key, remaining)
		restored++
	}

	fmt.Printf("[Lifecycle] Restored %d commitments (%d windows re-armed)\n", len(all), restored)
	return nil
}

// CreateFromMessage files a tracker task for a positively classified
// message and records the commitment. Ambiguous input (commitment without a
// mention that the classifier did not mark as assignee-free) is dropped
// rather than guessed.
func (u *LifecycleUsecase) CreateFromMessage(ctx context.Context, ev *domain.MessageEvent, cls *domain.Classification) error {
	projectID, ok := u.projects.ResolveProjectForChannel(ev.Channel)
	if !ok {
		fmt.Printf("[Lifecycle] No Asana project configured for channel %s, skipping\n", ev.Channel)
		return nil
	}

	mention, hasMention := domain.FirstMention(ev.Text)

	var assignedTo, assigneeGID, assigneeEmail string
	switch {
	case hasMention:
		assignedTo = mention
		assigneeGID, _ = u.directory.TrackerUserFor(mention)
		if assigneeGID == "" {
			fmt.Printf("[Lifecycle] No Asana mapping for Slack user %s\n", mention)
		}
		if profile, err := u.chat.GetUserProfile(ctx, mention); err == nil {
			assigneeEmail = profile.Email
		}
	case !cls.NoExplicitAssignee:
		// Classification omitted a mention without marking the commitment
		// as assignee-free. Dropping beats guessing.
		fmt.Printf("[Lifecycle] Ambiguous assignee for %s, dropping\n", ev.Key())
		return nil
	default:
		// No mention at all: the task falls back to its author.
		assigneeGID, _ = u.directory.TrackerUserFor(ev.UserID)
	}

	authorLabel := "<@" + ev.UserID + ">"
	authorProfile, err := u.chat.GetUserProfile(ctx, ev.UserID)
	if err != nil {
		fmt.Printf("[Lifecycle] Failed to fetch author profile %s: %v\n", ev.UserID, err)
	} else {
		authorLabel = authorProfile.DisplayLabel()
		if !hasMention && cls.NoExplicitAssignee && assigneeEmail == "" {
			assigneeEmail = authorProfile.Email
		}
	}

	channelName := ev.Channel
	if name, err := u.chat.GetChannelName(ctx, ev.Channel); err == nil && name != "" {
		channelName = name
	}

	title := cls.Description
	if title == "" {
		title = ev.Text
	}

	rec := &domain.TrackedCommitment{
		Key:         ev.Key(),
		Channel:     ev.Channel,
		MessageTS:   ev.TS,
		ThreadTS:    ev.ThreadTS,
		AuthorID:    ev.UserID,
		AssignedTo:  assignedTo,
		ProjectID:   projectID,
		TaskTitle:   title,
		CreatedAt:   u.now(),
		Cancellable: true,
	}

	created, err := u.tracker.CreateTask(ctx, repo.CreateTaskRequest{
		Name:      title,
		ProjectID: projectID,
		DueOn:     dates.Resolve(cls.DueDate, u.now()),
		Notes: fmt.Sprintf("Tarea creada desde Slack por: %s\n\nMensaje original: %s\n\nCanal: #%s\n\nLink al mensaje: %s",
			authorLabel, ev.Text, channelName, rec.Permalink(u.cfg.WorkspaceURL)),
		AssigneeGID:   assigneeGID,
		AssigneeEmail: assigneeEmail,
	})
	if err != nil {
		u.alert(ctx, fmt.Sprintf("Error creando tarea automática: %v", err))
		return fmt.Errorf("failed to create tracker task: %w", err)
	}

	rec.TaskGID = created.GID
	if err := u.commitments.Save(ctx, rec); err != nil {
		return fmt.Errorf("failed to persist commitment: %w", err)
	}
	u.armTimer(rec.Key, u.cfg.CancelWindow)

	fmt.Printf("[Lifecycle] Created task %s for %s (window until %s)\n",
		created.GID, rec.Key, rec.CreatedAt.Add(u.cfg.CancelWindow).Format(time.TimeOnly))

	// Chat-side affordances are best effort; the task exists either way.
	if err := u.chat.AddReaction(ctx, ev.Channel, ev.TS, domain.ReactionCreated); err != nil {
		fmt.Printf("[Lifecycle] Failed to add reaction: %v\n", err)
	}
	ack := fmt.Sprintf("✅ <%s|Ver tarea en Asana>", created.URL)
	if err := u.chat.PostEphemeral(ctx, ev.Channel, ev.UserID, ack, ev.ThreadTS); err != nil {
		fmt.Printf("[Lifecycle] Failed to send creation ack: %v\n", err)
	}

	return nil
}

// Cancel retracts a commitment on behalf of requestingUser. The returned
// record (when one exists) gives the caller thread context for failure
// notices; only a successful cancel mutates state.
func (u *LifecycleUsecase) Cancel(ctx context.Context, key, requestingUser string) (*domain.TrackedCommitment, error) {
	rec, err := u.commitments.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load commitment: %w", err)
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	if requestingUser != rec.AuthorID {
		return rec, domain.ErrUnauthorized
	}
	if !rec.WithinWindow(u.now(), u.cfg.CancelWindow) {
		return rec, domain.ErrWindowExpired
	}

	// An already-gone tracker task still counts as deleted.
	if err := u.tracker.DeleteTask(ctx, rec.TaskGID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		u.alert(ctx, fmt.Sprintf("Error eliminando tarea %s: %v", rec.TaskGID, err))
		return rec, fmt.Errorf("%w: %v", domain.ErrDeletionFailed, err)
	}

	u.stopTimer(key)
	if err := u.commitments.Delete(ctx, key); err != nil {
		return rec, fmt.Errorf("failed to delete commitment: %w", err)
	}

	for _, name := range []string{domain.ReactionCreated, domain.ReactionCancel} {
		if err := u.chat.RemoveReaction(ctx, rec.Channel, rec.MessageTS, name); err != nil {
			fmt.Printf("[Lifecycle] Failed to remove %s reaction: %v\n", name, err)
		}
	}
	if err := u.chat.PostEphemeral(ctx, rec.Channel, rec.AuthorID, "🗑️", rec.ThreadTS); err != nil {
		fmt.Printf("[Lifecycle] Failed to send deletion notice: %v\n", err)
	}

	fmt.Printf("[Lifecycle] Cancelled %s (task %s) after %.1fs\n",
		key, rec.TaskGID, u.now().Sub(rec.CreatedAt).Seconds())
	return rec, nil
}

// ReconcileCompletion propagates a tracker-side completion back onto the
// originating message. Unknown task gids are expected (tasks created before
// the engine started, or directly in the tracker) and surface as a benign
// ErrNotFound. The record is retained; completion is not a deletion.
func (u *LifecycleUsecase) ReconcileCompletion(ctx context.Context, taskGID, completedByGID string) error {
	rec, err := u.commitments.GetByTaskGID(ctx, taskGID)
	if err != nil {
		return fmt.Errorf("failed to look up task %s: %w", taskGID, err)
	}
	if rec == nil {
		return domain.ErrNotFound
	}

	if err := u.chat.AddReaction(ctx, rec.Channel, rec.MessageTS, domain.ReactionCompleted); err != nil {
		fmt.Printf("[Lifecycle] Failed to add completion reaction: %v\n", err)
	}

	if completedByGID != "" {
		if slackUser, ok := u.directory.ChatUserFor(completedByGID); ok {
			text := fmt.Sprintf("✅ La tarea '%s' fue completada por <@%s> en Asana", rec.TaskTitle, slackUser)
			if err := u.chat.PostEphemeral(ctx, rec.Channel, rec.AuthorID, text, rec.ThreadTS); err != nil {
				fmt.Printf("[Lifecycle] Failed to send completion notice: %v\n", err)
			}
		}
	}

	fmt.Printf("[Lifecycle] Reconciled completion of task %s (%s)\n", taskGID, rec.Key)
	return nil
}

// Stop cancels all pending window timers.
func (u *LifecycleUsecase) Stop() {
	u.mu.Lock()
	defer u.mu.Unlock()
	for key, t := range u.timers {
		t.Stop()
		delete(u.timers, key)
	}
}

// armTimer schedules the cancellable→locked flip for a key, replacing any
// previous timer.
func (u *LifecycleUsecase) armTimer(key string, d time.Duration) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if old, ok := u.timers[key]; ok {
		old.Stop()
	}
	u.timers[key] = time.AfterFunc(d, func() { u.lockKey(key) })
}

// stopTimer cancels a pending flip, if any.
func (u *LifecycleUsecase) stopTimer(key string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if t, ok := u.timers[key]; ok {
		t.Stop()
		delete(u.timers, key)
	}
}

// lockKey is the timer callback. Firing on an already-deleted key is a no-op.
func (u *LifecycleUsecase) lockKey(key string) {
	u.mu.Lock()
	delete(u.timers, key)
	u.mu.Unlock()

	ctx := context.Background()
	rec, err := u.commitments.Get(ctx, key)
	if err != nil || rec == nil {
		return
	}
	if err := u.commitments.Lock(ctx, key); err != nil {
		fmt.Printf("[Lifecycle] Failed to lock %s: %v\n", key, err)
		return
	}
	fmt.Printf("[Lifecycle] Cancellation window expired for %s\n", key)
}

// alert posts a best-effort message to the operational alert channel.
func (u *LifecycleUsecase) alert(ctx context.Context, text string) {
	if u.cfg.OpsChannel == "" {
		return
	}
	if err := u.chat.PostMessage(ctx, u.cfg.OpsChannel, text); err != nil {
		fmt.Printf("[Lifecycle] Failed to post ops alert: %v\n", err)
	}
}

// SetClock overrides the engine's clock. Test hook.
func (u *LifecycleUsecase) SetClock(now func() time.Time) {
	u.now = now
}
