package sqlstore

import (
	"context"
	"strings"

	"github.com/xenon007/tasktracker/internal/apperr"
	"github.com/xenon007/tasktracker/internal/models"
)

// NormalizeEmail is the canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser stores a new account. The caller supplies an already hashed password.
func (s *Store) CreateUser(ctx context.Context, name, email, passwordHash string) (int64, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" || email == "" || passwordHash == "" {
		return 0, apperr.New(apperr.KindInvalid, "name, email and password are required")
	}

	id, err := insertReturningID(ctx, s.db, `INSERT INTO users(name, email, password) VALUES(?, ?, ?) RETURNING id`, name, email, passwordHash)
	if isUniqueViolation(err) {
		return 0, apperr.New(apperr.KindDuplicateEmail, "email %s is already registered", email)
	}
	if err != nil {
		return 0, apperr.Infra("insert user", err)
	}
	return id, nil
}

// UserCredentials returns the user and its password hash for an email.
func (s *Store) UserCredentials(ctx context.Context, email string) (models.User, string, error) {
	var row struct {
		models.User
		Password string `db:"password"`
	}
	err := get(ctx, s.db, &row, `SELECT id, name, email, password FROM users WHERE email = ?`, NormalizeEmail(email))
	if isNoRows(err) {
		return models.User{}, "", apperr.New(apperr.KindNotFound, "user not found")
	}
	if err != nil {
		return models.User{}, "", apperr.Infra("get credentials", err)
	}
	return row.User, row.Password, nil
}

// GetUser fetches a single user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	var u models.User
	err := get(ctx, s.db, &u, `SELECT id, name, email FROM users WHERE id = ?`, id)
	if isNoRows(err) {
		return models.User{}, apperr.New(apperr.KindNotFound, "user %d not found", id)
	}
	if err != nil {
		return models.User{}, apperr.Infra("get user", err)
	}
	return u, nil
}

// SearchUsers returns users whose email contains fragment and who share no
// project with the caller, i.e. candidates for an invite.
func (s *Store) SearchUsers(ctx context.Context, callerID int64, fragment string) ([]models.User, error) {
	fragment = NormalizeEmail(fragment)
	if fragment == "" {
		return []models.User{}, nil
	}

	users := []models.User{}
	err := selectAll(ctx, s.db, &users, `SELECT u.id, u.name, u.email
        FROM users u
        WHERE u.email LIKE ? ESCAPE '\'
          AND u.id <> ?
          AND NOT EXISTS (
              SELECT 1 FROM project_user pu1
              JOIN project_user pu2 ON pu1.project_id = pu2.project_id
              WHERE pu1.user_id = u.id AND pu2.user_id = ?
          )
        ORDER BY u.email`, "%"+escapeLike(fragment)+"%", callerID, callerID)
	if err != nil {
		return nil, apperr.Infra("search users", err)
	}
	return users, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
