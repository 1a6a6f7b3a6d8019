// Package inmemdb implements the user repositories in memory.
// It backs the tests and DEV runs without Postgres or Mongo.
package inmemdb

import (
	"sync"

	"github.com/trezcool/tutortrack/core/user"
)

type (
	DB struct {
		accounts *accountTable
		sessions *sessionTable
		roles    *roleTable
	}

	accountTable struct {
		table map[string]*user.Account
		mutex sync.RWMutex
	}

	sessionTable struct {
		table map[string]user.Session
		mutex sync.RWMutex
	}

	roleTable struct {
		table map[string]user.RoleDocument
		mutex sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		accounts: &accountTable{table: make(map[string]*user.Account)},
		sessions: &sessionTable{table: make(map[string]user.Session)},
		roles:    &roleTable{table: make(map[string]user.RoleDocument)},
	}
}
