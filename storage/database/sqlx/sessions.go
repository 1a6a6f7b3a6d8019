package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/tutortrack/core/user"
)

type sessionRepository struct {
	db *sqlx.DB
}

var _ user.SessionRepository = (*sessionRepository)(nil)

func NewSessionRepository(db *sqlx.DB) user.SessionRepository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) CreateSession(ctx context.Context, sess user.Session) error {
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO sessions (id, user_id, created_at) VALUES (:id, :user_id, :created_at)`, sess)
	return errors.Wrap(err, "creating session")
}

func (repo *sessionRepository) GetSession(ctx context.Context, id string) (user.Session, error) {
	var sess user.Session
	if err := repo.db.GetContext(ctx, &sess, `SELECT id, user_id, created_at FROM sessions WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.Session{}, user.ErrSessionNotFound
		}
		return user.Session{}, errors.Wrap(err, "getting session")
	}
	sess.CreatedAt = sess.CreatedAt.UTC()
	return sess, nil
}

func (repo *sessionRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return errors.Wrap(err, "deleting session")
}

func (repo *sessionRepository) DeleteUserSessions(ctx context.Context, userID string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return errors.Wrap(err, "deleting user sessions")
}
