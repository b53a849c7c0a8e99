package repo

import "context"

// CreateTaskRequest carries everything needed to file a tracker task.
// DueOn is a canonical YYYY-MM-DD date or empty; AssigneeGID wins over
// AssigneeEmail when both are set.
type CreateTaskRequest struct {
	Name          string
	Notes         string
	ProjectID     string
	DueOn         string
	AssigneeGID   string
	AssigneeEmail string
}

// CreatedTask is the tracker's view of a freshly filed task.
type CreatedTask struct {
	GID string
	URL string
}

// TrackerRepo is the task-tracker (Asana) boundary.
type TrackerRepo interface {
	// CreateTask files a task and returns its gid and permalink.
	CreateTask(ctx context.Context, req CreateTaskRequest) (*CreatedTask, error)

	// DeleteTask deletes a task. Deleting an already-gone task returns
	// domain.ErrNotFound.
	DeleteTask(ctx context.Context, taskGID string) error
}
