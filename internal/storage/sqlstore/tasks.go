package sqlstore

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/xenon007/tasktracker/internal/apperr"
	"github.com/xenon007/tasktracker/internal/models"
)

const taskColumns = `t.id, t.title, t.description, t.project_id, t.status_id, t.deadline, t.created_at`

// CreateTask inserts a task and its assignments in one transaction.
func (s *Store) CreateTask(ctx context.Context, callerID int64, in models.TaskInput) (int64, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return 0, apperr.New(apperr.KindInvalid, "task title must not be empty")
	}
	assignees := dedupe(in.Assignees)

	var taskID int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := requireMember(ctx, tx, in.ProjectID, callerID); err != nil {
			return err
		}
		if err := requireStatusInProject(ctx, tx, in.StatusID, in.ProjectID); err != nil {
			return err
		}
		if err := validateAssignees(ctx, tx, in.ProjectID, assignees); err != nil {
			return err
		}

		id, err := insertReturningID(ctx, tx, `INSERT INTO tasks(title, description, project_id, status_id, deadline, created_at)
            VALUES(?, ?, ?, ?, ?, ?) RETURNING id`,
			title, strings.TrimSpace(in.Description), in.ProjectID, in.StatusID, utcPtr(in.Deadline), s.now().UTC())
		if err != nil {
			return apperr.Infra("insert task", err)
		}
		taskID = id

		return replaceAssignees(ctx, tx, id, assignees)
	})
	if err != nil {
		return 0, apperr.Infra("create task", err)
	}

	s.logger.Info("task created", slog.Int64("task_id", taskID), slog.Int64("project_id", in.ProjectID), slog.Int("assignees", len(assignees)))
	return taskID, nil
}

// GetTask assembles a task with its status and assignees.
func (s *Store) GetTask(ctx context.Context, callerID, id int64) (models.TaskDetail, error) {
	var detail models.TaskDetail
	err := get(ctx, s.db, &detail.Task, `SELECT `+taskColumns+` FROM tasks t WHERE t.id = ?`, id)
	if isNoRows(err) {
		return models.TaskDetail{}, apperr.New(apperr.KindNotFound, "task %d not found", id)
	}
	if err != nil {
		return models.TaskDetail{}, apperr.Infra("get task", err)
	}
	if err := requireMember(ctx, s.db, detail.ProjectID, callerID); err != nil {
		return models.TaskDetail{}, err
	}

	detail.Status = models.StatusRef{ID: detail.StatusID}
	var status models.Status
	err = get(ctx, s.db, &status, `SELECT id, project_id, name FROM task_statuses WHERE id = ?`, detail.StatusID)
	switch {
	case err == nil:
		detail.Status = models.StatusRef{ID: status.ID, Name: status.Name, Known: true}
	case isNoRows(err):
		s.logger.Warn("task references missing status", slog.Int64("task_id", id), slog.Int64("status_id", detail.StatusID))
	default:
		return models.TaskDetail{}, apperr.Infra("get task status", err)
	}

	detail.Assignees = []models.User{}
	err = selectAll(ctx, s.db, &detail.Assignees, `SELECT u.id, u.name, u.email
        FROM users u
        JOIN task_user tu ON u.id = tu.user_id
        WHERE tu.task_id = ?
        ORDER BY u.id`, id)
	if err != nil {
		return models.TaskDetail{}, apperr.Infra("get task assignees", err)
	}
	return detail, nil
}

// ListTasksForUser returns the tasks assigned to userID.
func (s *Store) ListTasksForUser(ctx context.Context, userID int64) ([]models.Task, error) {
	tasks := []models.Task{}
	err := selectAll(ctx, s.db, &tasks, `SELECT `+taskColumns+`
        FROM tasks t
        JOIN task_user tu ON t.id = tu.task_id
        WHERE tu.user_id = ?
        ORDER BY t.deadline IS NULL, t.deadline, t.id`, userID)
	if err != nil {
		return nil, apperr.Infra("list assigned tasks", err)
	}
	return tasks, nil
}

// ListTasksForProject returns a project's tasks grouped by status column and
// then by urgency, tasks without a deadline last.
func (s *Store) ListTasksForProject(ctx context.Context, callerID, projectID int64) ([]models.Task, error) {
	if err := requireMember(ctx, s.db, projectID, callerID); err != nil {
		return nil, err
	}

	tasks := []models.Task{}
	err := selectAll(ctx, s.db, &tasks, `SELECT `+taskColumns+`
        FROM tasks t
        WHERE t.project_id = ?
        ORDER BY t.status_id, t.deadline IS NULL, t.deadline, t.id`, projectID)
	if err != nil {
		return nil, apperr.Infra("list project tasks", err)
	}
	return tasks, nil
}

// UpdateTask sets the status and deadline and replaces the full assignee list.
func (s *Store) UpdateTask(ctx context.Context, callerID, id int64, upd models.TaskUpdate) error {
	assignees := dedupe(upd.Assignees)

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		projectID, err := projectOfTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := requireMember(ctx, tx, projectID, callerID); err != nil {
			return err
		}
		if err := requireStatusInProject(ctx, tx, upd.StatusID, projectID); err != nil {
			return err
		}
		if err := validateAssignees(ctx, tx, projectID, assignees); err != nil {
			return err
		}

		if _, err := exec(ctx, tx, `UPDATE tasks SET status_id = ?, deadline = ? WHERE id = ?`, upd.StatusID, utcPtr(upd.Deadline), id); err != nil {
			return apperr.Infra("update task", err)
		}
		return replaceAssignees(ctx, tx, id, assignees)
	})
	if err != nil {
		return apperr.Infra("update task", err)
	}

	s.logger.Info("task updated", slog.Int64("task_id", id), slog.Int64("status_id", upd.StatusID), slog.Int("assignees", len(assignees)))
	return nil
}
