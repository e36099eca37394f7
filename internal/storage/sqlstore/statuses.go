package sqlstore

import (
	"context"
	"log/slog"
	"strings"

	"github.com/xenon007/tasktracker/internal/apperr"
	"github.com/xenon007/tasktracker/internal/models"
)

// CreateStatus adds a board column to a project. Names may repeat.
func (s *Store) CreateStatus(ctx context.Context, callerID, projectID int64, name string) (models.Status, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Status{}, apperr.New(apperr.KindInvalid, "status name must not be empty")
	}
	if err := requireMember(ctx, s.db, projectID, callerID); err != nil {
		return models.Status{}, err
	}

	id, err := insertReturningID(ctx, s.db, `INSERT INTO task_statuses(project_id, name) VALUES(?, ?) RETURNING id`, projectID, name)
	if err != nil {
		return models.Status{}, apperr.Infra("insert status", err)
	}
	return models.Status{ID: id, ProjectID: projectID, Name: name}, nil
}

// ListStatuses returns the statuses of a project in creation order.
func (s *Store) ListStatuses(ctx context.Context, callerID, projectID int64) ([]models.Status, error) {
	if err := requireMember(ctx, s.db, projectID, callerID); err != nil {
		return nil, err
	}

	statuses := []models.Status{}
	err := selectAll(ctx, s.db, &statuses, `SELECT id, project_id, name FROM task_statuses WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, apperr.Infra("list statuses", err)
	}
	return statuses, nil
}

// DeleteStatus removes a status and reports whether a row was deleted.
// Tasks that still reference the status are left untouched.
func (s *Store) DeleteStatus(ctx context.Context, callerID, statusID int64) (bool, error) {
	var projectID int64
	err := get(ctx, s.db, &projectID, `SELECT project_id FROM task_statuses WHERE id = ?`, statusID)
	if isNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Infra("resolve status project", err)
	}
	if err := requireMember(ctx, s.db, projectID, callerID); err != nil {
		return false, err
	}

	affected, err := exec(ctx, s.db, `DELETE FROM task_statuses WHERE id = ?`, statusID)
	if err != nil {
		return false, apperr.Infra("delete status", err)
	}
	if affected > 0 {
		s.logger.Info("status deleted", slog.Int64("status_id", statusID), slog.Int64("project_id", projectID))
	}
	return affected > 0, nil
}
