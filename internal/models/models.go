package models

import "time"

// User is a registered account. The password hash never leaves the store.
type User struct {
	ID    int64  `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
}

// Project groups statuses and tasks shared by its members.
type Project struct {
	ID          int64   `json:"id" db:"id"`
	Title       string  `json:"title" db:"title"`
	Description *string `json:"description" db:"description"`
	OwnerID     int64   `json:"owner_id" db:"owner_id"`
}

// Status is a board column defined per project.
type Status struct {
	ID        int64  `json:"id" db:"id"`
	ProjectID int64  `json:"project_id" db:"project_id"`
	Name      string `json:"name" db:"name"`
}

// Task represents a single card on a project board.
type Task struct {
	ID          int64      `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	ProjectID   int64      `json:"project_id" db:"project_id"`
	StatusID    int64      `json:"status_id" db:"status_id"`
	Deadline    *time.Time `json:"deadline" db:"deadline"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// StatusRef is the status as seen from a task. Known is false when the task
// points at a status that no longer exists.
type StatusRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Known bool   `json:"known"`
}

// TaskDetail is the aggregate returned for a single task.
type TaskDetail struct {
	Task
	Status    StatusRef `json:"status"`
	Assignees []User    `json:"assignees"`
}

// TaskInput holds the fields required to create a task.
type TaskInput struct {
	Title       string
	Description string
	ProjectID   int64
	StatusID    int64
	Deadline    *time.Time
	Assignees   []int64
}

// TaskUpdate replaces the mutable fields of a task. Assignees is a full
// replacement: nil or empty leaves the task unassigned.
type TaskUpdate struct {
	StatusID  int64
	Deadline  *time.Time
	Assignees []int64
}

// Token is a signed identity credential.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
