package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/tutortrack/core/user"
)

type roleStore struct {
	db *roleTable
}

var _ user.RoleStore = (*roleStore)(nil)

func NewRoleStore(db *DB) user.RoleStore {
	return &roleStore{db: db.roles}
}

func (s *roleStore) GetRole(_ context.Context, userID string) (user.RoleDocument, error) {
	s.db.mutex.RLock()
	defer s.db.mutex.RUnlock()

	if doc, ok := s.db.table[userID]; ok {
		return doc, nil
	}
	return user.RoleDocument{}, user.ErrRoleNotFound
}

func (s *roleStore) SetRole(_ context.Context, userID string, role user.Role) (user.RoleDocument, error) {
	s.db.mutex.Lock()
	defer s.db.mutex.Unlock()

	doc := user.RoleDocument{UserID: userID, Role: role, UpdatedAt: time.Now().UTC()}
	s.db.table[userID] = doc
	return doc, nil
}
