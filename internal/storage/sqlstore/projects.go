package sqlstore

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/xenon007/tasktracker/internal/apperr"
	"github.com/xenon007/tasktracker/internal/models"
)

// CreateProject persists a project together with the owner's membership.
// Both rows are written in one transaction.
func (s *Store) CreateProject(ctx context.Context, ownerID int64, title string, description *string) (models.Project, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.Project{}, apperr.New(apperr.KindInvalid, "project title must not be empty")
	}

	project := models.Project{Title: title, Description: description, OwnerID: ownerID}
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		ok, err := userExists(ctx, tx, ownerID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.New(apperr.KindInvalidReference, "user %d does not exist", ownerID)
		}

		id, err := insertReturningID(ctx, tx, `INSERT INTO projects(title, description, owner_id) VALUES(?, ?, ?) RETURNING id`, title, description, ownerID)
		if err != nil {
			return apperr.Infra("insert project", err)
		}
		project.ID = id

		if _, err := exec(ctx, tx, `INSERT INTO project_user(project_id, user_id) VALUES(?, ?)`, id, ownerID); err != nil {
			return apperr.Infra("insert owner membership", err)
		}
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInfrastructure {
			s.logger.Error("create project failed", slog.Int64("owner_id", ownerID), slog.String("error", err.Error()))
		} else {
			s.logger.Debug("create project rejected", slog.Int64("owner_id", ownerID), slog.String("error", err.Error()))
		}
		return models.Project{}, apperr.Infra("create project", err)
	}

	s.logger.Info("project created", slog.Int64("project_id", project.ID), slog.Int64("owner_id", ownerID))
	return project, nil
}

// ListProjectsForUser returns projects the user is a member of.
func (s *Store) ListProjectsForUser(ctx context.Context, userID int64) ([]models.Project, error) {
	projects := []models.Project{}
	err := selectAll(ctx, s.db, &projects, `SELECT p.id, p.title, p.description, p.owner_id
        FROM projects p
        JOIN project_user pu ON p.id = pu.project_id
        WHERE pu.user_id = ?
        ORDER BY p.id`, userID)
	if err != nil {
		return nil, apperr.Infra("list projects", err)
	}
	return projects, nil
}

// GetProject fetches a single project visible to the caller.
func (s *Store) GetProject(ctx context.Context, callerID, id int64) (models.Project, error) {
	if err := requireMember(ctx, s.db, id, callerID); err != nil {
		return models.Project{}, err
	}

	var p models.Project
	err := get(ctx, s.db, &p, `SELECT id, title, description, owner_id FROM projects WHERE id = ?`, id)
	if isNoRows(err) {
		return models.Project{}, apperr.New(apperr.KindNotFound, "project %d not found", id)
	}
	if err != nil {
		return models.Project{}, apperr.Infra("get project", err)
	}
	return p, nil
}

// LinkUser adds userID to the project's members. The caller must already be a member.
func (s *Store) LinkUser(ctx context.Context, callerID, userID, projectID int64) error {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := requireMember(ctx, tx, projectID, callerID); err != nil {
			return err
		}
		ok, err := userExists(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.New(apperr.KindInvalidReference, "user %d does not exist", userID)
		}

		_, err = exec(ctx, tx, `INSERT INTO project_user(project_id, user_id) VALUES(?, ?)`, projectID, userID)
		switch {
		case isUniqueViolation(err):
			return apperr.New(apperr.KindAlreadyMember, "user %d is already a member of project %d", userID, projectID)
		case isForeignKeyViolation(err):
			return apperr.New(apperr.KindInvalidReference, "user %d or project %d does not exist", userID, projectID)
		case err != nil:
			return apperr.Infra("insert membership", err)
		}
		return nil
	})
	if err != nil {
		return apperr.Infra("link user", err)
	}

	s.logger.Info("user linked to project", slog.Int64("project_id", projectID), slog.Int64("user_id", userID))
	return nil
}

// ListMembers returns the users holding membership in a project.
func (s *Store) ListMembers(ctx context.Context, callerID, projectID int64) ([]models.User, error) {
	if err := requireMember(ctx, s.db, projectID, callerID); err != nil {
		return nil, err
	}

	users := []models.User{}
	err := selectAll(ctx, s.db, &users, `SELECT u.id, u.name, u.email
        FROM users u
        JOIN project_user pu ON u.id = pu.user_id
        WHERE pu.project_id = ?
        ORDER BY u.id`, projectID)
	if err != nil {
		return nil, apperr.Infra("list members", err)
	}
	return users, nil
}
