package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nomadicseo/slack-asana-bridge/internal/biz/domain"
	"github.com/nomadicseo/slack-asana-bridge/internal/biz/repo"
)

// Mock implementations

type mockCommitmentRepo struct {
	mu          sync.Mutex
	commitments map[string]*domain.TrackedCommitment
}

func newMockCommitmentRepo() *mockCommitmentRepo {
	return &mockCommitmentRepo{commitments: make(map[string]*domain.TrackedCommitment)}
}

func (m *mockCommitmentRepo) Get(ctx context.Context, key string) (*domain.TrackedCommitment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.commitments[key]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (m *mockCommitmentRepo) GetByTaskGID(ctx context.Context, taskGID string) (*domain.TrackedCommitment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.commitments {
		if c.TaskGID == taskGID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockCommitmentRepo) Save(ctx context.Context, c *domain.TrackedCommitment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.commitments[c.Key] = &cp
	return nil
}

func (m *mockCommitmentRepo) Lock(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.commitments[key]; ok {
		c.Cancellable = false
	}
	return nil
}

func (m *mockCommitmentRepo) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.commitments, key)
	return nil
}

func (m *mockCommitmentRepo) ListAll(ctx context.Context) ([]*domain.TrackedCommitment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.TrackedCommitment
	for _, c := range m.commitments {
		cp := *c
		result = append(result, &cp)
	}
	return result, nil
}

func (m *mockCommitmentRepo) Close() error { return nil }

type mockTracker struct {
	created   []repo.CreateTaskRequest
	deleted   []string
	createErr error
	deleteErr error
	nextGID   int
}

func (m *mockTracker) CreateTask(ctx context.Context, req repo.CreateTaskRequest) (*repo.CreatedTask, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = append(m.created, req)
	m.nextGID++
	gid := fmt.Sprintf("gid-%d", m.nextGID)
	return &repo.CreatedTask{GID: gid, URL: "https://app.asana.com/0/" + req.ProjectID + "/" + gid}, nil
}

func (m *mockTracker) DeleteTask(ctx context.Context, taskGID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, taskGID)
	return nil
}

type mockChat struct {
	mu         sync.Mutex
	reactions  []string // "add:channel:ts:name" / "remove:channel:ts:name"
	ephemerals []string // "channel:user:text"
	messages   []string // "channel:text"
	profiles   map[string]*repo.UserProfile
}

func newMockChat() *mockChat {
	return &mockChat{profiles: make(map[string]*repo.UserProfile)}
}

func (m *mockChat) AddReaction(ctx context.Context, channel, ts, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reactions = append(m.reactions, "add:"+channel+":"+ts+":"+name)
	return nil
}

func (m *mockChat) RemoveReaction(ctx context.Context, channel, ts, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reactions = append(m.reactions, "remove:"+channel+":"+ts+":"+name)
	return nil
}

func (m *mockChat) PostEphemeral(ctx context.Context, channel, userID, text, threadTS string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ephemerals = append(m.ephemerals, channel+":"+userID+":"+text)
	return nil
}

func (m *mockChat) PostMessage(ctx context.Context, channel, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, channel+":"+text)
	return nil
}

func (m *mockChat) GetUserProfile(ctx context.Context, userID string) (*repo.UserProfile, error) {
	if p, ok := m.profiles[userID]; ok {
		return p, nil
	}
	return &repo.UserProfile{ID: userID, Name: userID}, nil
}

func (m *mockChat) GetChannelName(ctx context.Context, channelID string) (string, error) {
	return "general", nil
}

type mockProjects struct {
	projects map[string]string
}

func (m *mockProjects) ResolveProjectForChannel(channelID string) (string, bool) {
	pid, ok := m.projects[channelID]
	return pid, ok
}

// Fixture

type fixture struct {
	uc      *LifecycleUsecase
	repo    *mockCommitmentRepo
	tracker *mockTracker
	chat    *mockChat
	clock   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:    newMockCommitmentRepo(),
		tracker: &mockTracker{},
		chat:    newMockChat(),
		clock:   time.Date(2025, 8, 13, 10, 0, 0, 0, time.UTC),
	}
	dir := domain.NewDirectory([]domain.Account{
		{Email: "ana@example.com", SlackIDs: []string{"U1ANA"}, AsanaIDs: []string{"A1"}},
		{Email: "bob@example.com", SlackIDs: []string{"U2BOB"}, AsanaIDs: []string{"A2"}},
	})
	projects := &mockProjects{projects: map[string]string{"C1": "P1"}}
	cfg := DefaultLifecycleConfig()
	cfg.WorkspaceURL = "https://acme.slack.com"
	cfg.OpsChannel = "C-OPS"
	f.uc = NewLifecycleUsecase(f.repo, f.tracker, f.chat, dir, projects, cfg)
	f.uc.SetClock(func() time.Time { return f.clock })
	t.Cleanup(f.uc.Stop)
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func messageEvent() *domain.MessageEvent {
	return &domain.MessageEvent{
		Channel: "C1",
		TS:      "1700000000.000100",
		UserID:  "U1ANA",
		Text:    "<@U2BOB> revisá el reporte antes del viernes",
	}
}

// Tests

func TestCreateWithMention(t *testing.T) {
	f := newFixture(t)
	ev := messageEvent()
	cls := &domain.Classification{IsCommitment: true, Assignee: "@bob", Description: "revisar el reporte", DueDate: "viernes"}

	if err := f.uc.CreateFromMessage(context.Background(), ev, cls); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(f.tracker.created) != 1 {
		t.Fatalf("Expected 1 task created, got %d", len(f.tracker.created))
	}
	req := f.tracker.created[0]
	if req.Name != "revisar el reporte" {
		t.Errorf("Unexpected task name: %q", req.Name)
	}
	if req.AssigneeGID != "A2" {
		t.Errorf("Expected assignee A2, got %q", req.AssigneeGID)
	}
	// 2025-08-13 is a Wednesday; "viernes" is that week's Friday.
	if req.DueOn != "2025-08-15" {
		t.Errorf("Expected due 2025-08-15, got %q", req.DueOn)
	}

	rec, _ := f.repo.Get(context.Background(), ev.Key())
	if rec == nil {
		t.Fatal("Expected persisted commitment")
	}
	if !rec.Cancellable {
		t.Error("Expected fresh commitment to be cancellable")
	}
	if rec.AssignedTo != "U2BOB" {
		t.Errorf("Expected assigned to U2BOB, got %q", rec.AssignedTo)
	}

	if len(f.chat.reactions) != 1 || f.chat.reactions[0] != "add:C1:1700000000.000100:bulb" {
		t.Errorf("Expected bulb reaction, got %v", f.chat.reactions)
	}
	if len(f.chat.ephemerals) != 1 {
		t.Fatalf("Expected 1 ephemeral ack, got %d", len(f.chat.ephemerals))
	}
}

func TestCreateWithoutMentionFallsBackToAuthor(t *testing.T) {
	f := newFixture(t)
	ev := messageEvent()
	ev.Text = "Tenemos que mandar el reporte la próxima semana"
	cls := &domain.Classification{IsCommitment: true, Description: "mandar el reporte", NoExplicitAssignee: true}

	if err := f.uc.CreateFromMessage(context.Background(), ev, cls); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(f.tracker.created) != 1 {
		t.Fatalf("Expected 1 task created, got %d", len(f.tracker.created))
	}
	if f.tracker.created[0].AssigneeGID != "A1" {
		t.Errorf("Expected author's gid A1, got %q", f.tracker.created[0].AssigneeGID)
	}

	rec, _ := f.repo.Get(context.Background(), ev.Key())
	if rec == nil || rec.AssignedTo != "" {
		t.Errorf("Expected record without mention assignee, got %+v", rec)
	}
}

func TestCreateAmbiguousAssigneeDropped(t *testing.T) {
	f := newFixture(t)
	ev := messageEvent()
	ev.Text = "hay que terminar esto"
	cls := &domain.Classification{IsCommitment: true, Description: "terminar tarea"}

	if err := f.uc.CreateFromMessage(context.Background(), ev, cls); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(f.tracker.created) != 0 {
		t.Errorf("Expected no task for ambiguous assignee, got %d", len(f.tracker.created))
	}
}

func TestCreateUnmappedChannelSkipped(t *testing.T) {
	f := newFixture(t)
	ev := messageEvent()
	ev.Channel = "C-UNMAPPED"
	cls := &domain.Classification{IsCommitment: true, Description: "algo"}

	if err := f.uc.CreateFromMessage(context.Background(), ev, cls); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(f.tracker.created) != 0 {
		t.Error("Expected no task for unmapped channel")
	}
}

func TestCreateTrackerFailureAlerts(t *testing.T) {
	f := newFixture(t)
	f.tracker.createErr = errors.New("asana 500")
	cls := &domain.Classification{IsCommitment: true, Description: "algo"}

	if err := f.uc.CreateFromMessage(context.Background(), messageEvent(), cls); err == nil {
		t.Fatal("Expected error")
	}
	if len(f.chat.messages) != 1 {
		t.Errorf("Expected 1 ops alert, got %d", len(f.chat.messages))
	}
	if rec, _ := f.repo.Get(context.Background(), messageEvent().Key()); rec != nil {
		t.Error("Expected no record after create failure")
	}
}

func createTracked(t *testing.T, f *fixture) *domain.TrackedCommitment {
	t.Helper()
	cls := &domain.Classification{IsCommitment: true, Description: "revisar el reporte", DueDate: "viernes"}
	if err := f.uc.CreateFromMessage(context.Background(), messageEvent(), cls); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	rec, _ := f.repo.Get(context.Background(), messageEvent().Key())
	if rec == nil {
		t.Fatal("Expected record")
	}
	return rec
}

func TestCancelWithinWindow(t *testing.T) {
	f := newFixture(t)
	rec := createTracked(t, f)
	f.advance(100 * time.Second)

	got, err := f.uc.Cancel(context.Background(), rec.Key, "U1ANA")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got.TaskGID != rec.TaskGID {
		t.Errorf("Expected record %s, got %s", rec.TaskGID, got.TaskGID)
	}

	if len(f.tracker.deleted) != 1 || f.tracker.deleted[0] != rec.TaskGID {
		t.Errorf("Expected task deletion, got %v", f.tracker.deleted)
	}
	if still, _ := f.repo.Get(context.Background(), rec.Key); still != nil {
		t.Error("Expected record removed after cancel")
	}

	wantRemovals := map[string]bool{
		"remove:C1:1700000000.000100:bulb":          false,
		"remove:C1:1700000000.000100:no_entry_sign": false,
	}
	for _, r := range f.chat.reactions {
		if _, ok := wantRemovals[r]; ok {
			wantRemovals[r] = true
		}
	}
	for r, seen := range wantRemovals {
		if !seen {
			t.Errorf("Missing reaction removal %s", r)
		}
	}
}

func TestCancelAfterWindowExpired(t *testing.T) {
	f := newFixture(t)
	rec := createTracked(t, f)
	f.advance(400 * time.Second)

	_, err := f.uc.Cancel(context.Background(), rec.Key, "U1ANA")
	if !errors.Is(err, domain.ErrWindowExpired) {
		t.Fatalf("Expected ErrWindowExpired, got %v", err)
	}
	if still, _ := f.repo.Get(context.Background(), rec.Key); still == nil {
		t.Error("Expected record retained after expired cancel")
	}
	if len(f.tracker.deleted) != 0 {
		t.Error("Expected no tracker deletion")
	}
}

func TestCancelUnauthorized(t *testing.T) {
	f := newFixture(t)
	rec := createTracked(t, f)
	f.advance(10 * time.Second)

	// Authorization beats window state: still inside the window.
	_, err := f.uc.Cancel(context.Background(), rec.Key, "U2BOB")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("Expected ErrUnauthorized, got %v", err)
	}
	if still, _ := f.repo.Get(context.Background(), rec.Key); still == nil {
		t.Error("Expected record untouched")
	}
}

func TestCancelNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.Cancel(context.Background(), "C1:0.0", "U1ANA")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestCancelDeletionFailureKeepsRecord(t *testing.T) {
	f := newFixture(t)
	rec := createTracked(t, f)
	f.tracker.deleteErr = errors.New("asana 500")
	f.advance(50 * time.Second)

	_, err := f.uc.Cancel(context.Background(), rec.Key, "U1ANA")
	if !errors.Is(err, domain.ErrDeletionFailed) {
		t.Fatalf("Expected ErrDeletionFailed, got %v", err)
	}
	if still, _ := f.repo.Get(context.Background(), rec.Key); still == nil {
		t.Error("Expected record retained for retry")
	}

	// A later retry after the tracker recovers succeeds.
	f.tracker.deleteErr = nil
	if _, err := f.uc.Cancel(context.Background(), rec.Key, "U1ANA"); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
}

func TestCancelToleratesAlreadyDeletedTask(t *testing.T) {
	f := newFixture(t)
	rec := createTracked(t, f)
	f.tracker.deleteErr = domain.ErrNotFound

	if _, err := f.uc.Cancel(context.Background(), rec.Key, "U1ANA"); err != nil {
		t.Fatalf("Expected success for already-gone task, got %v", err)
	}
	if still, _ := f.repo.Get(context.Background(), rec.Key); still != nil {
		t.Error("Expected record removed")
	}
}

func TestReconcileCompletion(t *testing.T) {
	f := newFixture(t)
	rec := createTracked(t, f)

	if err := f.uc.ReconcileCompletion(context.Background(), rec.TaskGID, "A2"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	found := false
	for _, r := range f.chat.reactions {
		if r == "add:C1:1700000000.000100:white_check_mark" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected completion reaction, got %v", f.chat.reactions)
	}

	// Completing user resolves to Slack, so the author is notified.
	notified := false
	for _, e := range f.chat.ephemerals {
		if e == "C1:U1ANA:✅ La tarea 'revisar el reporte' fue completada por <@U2BOB> en Asana" {
			notified = true
		}
	}
	if !notified {
		t.Errorf("Expected completion notice, got %v", f.chat.ephemerals)
	}

	// Completion retains the record.
	if still, _ := f.repo.Get(context.Background(), rec.Key); still == nil {
		t.Error("Expected record retained after completion")
	}
}

func TestReconcileUnknownTaskIsBenign(t *testing.T) {
	f := newFixture(t)
	err := f.uc.ReconcileCompletion(context.Background(), "gid-external", "A2")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestReconcileUnmappedCompleterSkipsNotice(t *testing.T) {
	f := newFixture(t)
	rec := createTracked(t, f)
	before := len(f.chat.ephemerals)

	if err := f.uc.ReconcileCompletion(context.Background(), rec.TaskGID, "A-UNKNOWN"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(f.chat.ephemerals) != before {
		t.Error("Expected no notice for unmapped completer")
	}
}

func TestWindowTimerLocksRecord(t *testing.T) {
	f := newFixture(t)
	// Real short window so the timer actually fires.
	cfg := DefaultLifecycleConfig()
	cfg.CancelWindow = 20 * time.Millisecond
	f.uc = NewLifecycleUsecase(f.repo, f.tracker, f.chat,
		domain.NewDirectory(nil), &mockProjects{projects: map[string]string{"C1": "P1"}}, cfg)
	t.Cleanup(f.uc.Stop)

	ev := messageEvent()
	ev.Text = "mandar el reporte"
	cls := &domain.Classification{IsCommitment: true, Description: "mandar el reporte", NoExplicitAssignee: true}
	if err := f.uc.CreateFromMessage(context.Background(), ev, cls); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec, _ := f.repo.Get(context.Background(), ev.Key())
		if rec != nil && !rec.Cancellable {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Timer never locked the record")
}

func TestRestoreReArmsAndLocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fresh := &domain.TrackedCommitment{
		Key: "C1:1.0", TaskGID: "g1", Channel: "C1", MessageTS: "1.0",
		AuthorID: "U1ANA", ProjectID: "P1", TaskTitle: "a",
		CreatedAt: f.clock.Add(-100 * time.Second), Cancellable: true,
	}
	expired := &domain.TrackedCommitment{
		Key: "C1:2.0", TaskGID: "g2", Channel: "C1", MessageTS: "2.0",
		AuthorID: "U1ANA", ProjectID: "P1", TaskTitle: "b",
		CreatedAt: f.clock.Add(-400 * time.Second), Cancellable: true,
	}
	for _, c := range []*domain.TrackedCommitment{fresh, expired} {
		if err := f.repo.Save(ctx, c); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	if err := f.uc.Restore(ctx); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	got, _ := f.repo.Get(ctx, expired.Key)
	if got.Cancellable {
		t.Error("Expected expired record locked on restore")
	}
	got, _ = f.repo.Get(ctx, fresh.Key)
	if !got.Cancellable {
		t.Error("Expected fresh record still cancellable")
	}

	// The re-armed window still honors the on-demand check.
	if _, err := f.uc.Cancel(ctx, fresh.Key, "U1ANA"); err != nil {
		t.Errorf("Cancel of restored record failed: %v", err)
	}
}
