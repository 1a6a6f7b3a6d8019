package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/tutortrack/core/user"
)

type accountRepository struct {
	db *accountTable
}

var _ user.AccountRepository = (*accountRepository)(nil)

func NewAccountRepository(db *DB) user.AccountRepository {
	return &accountRepository{db: db.accounts}
}

func (repo *accountRepository) CreateAccount(_ context.Context, acc user.Account) (user.Account, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[acc.ID]; ok {
		return user.Account{}, user.ErrEmailExists
	}
	if acc.Email != "" && repo.findByEmail(acc.Email) != nil {
		return user.Account{}, user.ErrEmailExists
	}
	repo.db.table[acc.ID] = &acc
	return acc, nil
}

func (repo *accountRepository) GetAccountByID(_ context.Context, id string) (user.Account, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if acc, ok := repo.db.table[id]; ok {
		return *acc, nil
	}
	return user.Account{}, user.ErrNotFound
}

func (repo *accountRepository) GetAccountByEmail(_ context.Context, email string) (user.Account, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if acc := repo.findByEmail(email); acc != nil {
		return *acc, nil
	}
	return user.Account{}, user.ErrNotFound
}

func (repo *accountRepository) GetAccountByProviderSubject(_ context.Context, provider, subject string) (user.Account, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, acc := range repo.db.table {
		if acc.ProviderSubject != "" && acc.Provider == provider && acc.ProviderSubject == subject {
			return *acc, nil
		}
	}
	return user.Account{}, user.ErrNotFound
}

func (repo *accountRepository) UpdateAccount(_ context.Context, acc user.Account) (user.Account, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[acc.ID]; !ok {
		return user.Account{}, user.ErrNotFound
	}
	if other := repo.findByEmail(acc.Email); acc.Email != "" && other != nil && other.ID != acc.ID {
		return user.Account{}, user.ErrEmailExists
	}
	repo.db.table[acc.ID] = &acc
	return acc, nil
}

// findByEmail must be called with the lock held.
func (repo *accountRepository) findByEmail(email string) *user.Account {
	for _, acc := range repo.db.table {
		if acc.Email != "" && strings.EqualFold(acc.Email, email) {
			return acc
		}
	}
	return nil
}
