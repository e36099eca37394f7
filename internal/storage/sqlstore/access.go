package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/xenon007/tasktracker/internal/apperr"
)

// requireMember fails with NotFound when the project does not exist and with
// Unauthorized when userID holds no membership in it.
func requireMember(ctx context.Context, q sqlx.ExtContext, projectID, userID int64) error {
	var row struct {
		Exists   int64 `db:"project_exists"`
		IsMember int64 `db:"is_member"`
	}
	err := get(ctx, q, &row, `SELECT
            (SELECT COUNT(1) FROM projects WHERE id = ?) AS project_exists,
            (SELECT COUNT(1) FROM project_user WHERE project_id = ? AND user_id = ?) AS is_member`,
		projectID, projectID, userID)
	if err != nil {
		return apperr.Infra("check membership", err)
	}
	if row.Exists == 0 {
		return apperr.New(apperr.KindNotFound, "project %d not found", projectID)
	}
	if row.IsMember == 0 {
		return apperr.New(apperr.KindUnauthorized, "user %d is not a member of project %d", userID, projectID)
	}
	return nil
}

func isMember(ctx context.Context, q sqlx.ExtContext, projectID, userID int64) (bool, error) {
	var n int64
	err := get(ctx, q, &n, `SELECT COUNT(1) FROM project_user WHERE project_id = ? AND user_id = ?`, projectID, userID)
	if err != nil {
		return false, apperr.Infra("check membership", err)
	}
	return n > 0, nil
}

func userExists(ctx context.Context, q sqlx.ExtContext, userID int64) (bool, error) {
	var n int64
	if err := get(ctx, q, &n, `SELECT COUNT(1) FROM users WHERE id = ?`, userID); err != nil {
		return false, apperr.Infra("check user", err)
	}
	return n > 0, nil
}

// projectOfTask resolves the owning project of a task or fails with NotFound.
func projectOfTask(ctx context.Context, q sqlx.ExtContext, taskID int64) (int64, error) {
	var projectID int64
	err := get(ctx, q, &projectID, `SELECT project_id FROM tasks WHERE id = ?`, taskID)
	if isNoRows(err) {
		return 0, apperr.New(apperr.KindNotFound, "task %d not found", taskID)
	}
	if err != nil {
		return 0, apperr.Infra("resolve task project", err)
	}
	return projectID, nil
}

// requireStatusInProject fails with InvalidReference unless statusID names a
// status defined for projectID.
func requireStatusInProject(ctx context.Context, q sqlx.ExtContext, statusID, projectID int64) error {
	var n int64
	err := get(ctx, q, &n, `SELECT COUNT(1) FROM task_statuses WHERE id = ? AND project_id = ?`, statusID, projectID)
	if err != nil {
		return apperr.Infra("check status", err)
	}
	if n == 0 {
		return apperr.New(apperr.KindInvalidReference, "status %d does not belong to project %d", statusID, projectID)
	}
	return nil
}

// validateAssignees checks that every id is a member of the project.
func validateAssignees(ctx context.Context, q sqlx.ExtContext, projectID int64, assignees []int64) error {
	for _, userID := range assignees {
		ok, err := isMember(ctx, q, projectID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.New(apperr.KindInvalidAssignee, "user %d is not a member of project %d", userID, projectID)
		}
	}
	return nil
}

func replaceAssignees(ctx context.Context, q sqlx.ExtContext, taskID int64, assignees []int64) error {
	if _, err := exec(ctx, q, `DELETE FROM task_user WHERE task_id = ?`, taskID); err != nil {
		return apperr.Infra("clear assignees", err)
	}
	for _, userID := range assignees {
		if _, err := exec(ctx, q, `INSERT INTO task_user(task_id, user_id) VALUES(?, ?)`, taskID, userID); err != nil {
			return apperr.Infra(fmt.Sprintf("assign user %d", userID), err)
		}
	}
	return nil
}
