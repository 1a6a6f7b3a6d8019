package inmemdb

import (
	"context"

	"github.com/trezcool/tutortrack/core/user"
)

type sessionRepository struct {
	db *sessionTable
}

var _ user.SessionRepository = (*sessionRepository)(nil)

func NewSessionRepository(db *DB) user.SessionRepository {
	return &sessionRepository{db: db.sessions}
}

func (repo *sessionRepository) CreateSession(_ context.Context, sess user.Session) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.table[sess.ID] = sess
	return nil
}

func (repo *sessionRepository) GetSession(_ context.Context, id string) (user.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sess, ok := repo.db.table[id]; ok {
		return sess, nil
	}
	return user.Session{}, user.ErrSessionNotFound
}

func (repo *sessionRepository) DeleteSession(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.table, id)
	return nil
}

func (repo *sessionRepository) DeleteUserSessions(_ context.Context, userID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for id, sess := range repo.db.table {
		if sess.UserID == userID {
			delete(repo.db.table, id)
		}
	}
	return nil
}
