package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/tutortrack/core/user"
)

const uniqueViolation = "23505"

type accountRow struct {
	ID              string         `db:"id"`
	Email           sql.NullString `db:"email"`
	DisplayName     string         `db:"display_name"`
	PasswordHash    []byte         `db:"password_hash"`
	Provider        string         `db:"provider"`
	ProviderSubject sql.NullString `db:"provider_subject"`
	IsAnonymous     bool           `db:"is_anonymous"`
	EmailVerified   bool           `db:"email_verified"`
	IsActive        bool           `db:"is_active"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
	LastLogin       sql.NullTime   `db:"last_login"`
}

func toRow(acc user.Account) accountRow {
	return accountRow{
		ID:              acc.ID,
		Email:           sql.NullString{String: acc.Email, Valid: acc.Email != ""},
		DisplayName:     acc.DisplayName,
		PasswordHash:    acc.PasswordHash,
		Provider:        acc.Provider,
		ProviderSubject: sql.NullString{String: acc.ProviderSubject, Valid: acc.ProviderSubject != ""},
		IsAnonymous:     acc.IsAnonymous,
		EmailVerified:   acc.EmailVerified,
		IsActive:        acc.IsActive,
		CreatedAt:       acc.CreatedAt.UTC(),
		UpdatedAt:       acc.UpdatedAt.UTC(),
		LastLogin:       sql.NullTime{Time: acc.LastLogin.UTC(), Valid: !acc.LastLogin.IsZero()},
	}
}

func (r accountRow) toAccount() user.Account {
	acc := user.Account{
		ID:              r.ID,
		Email:           r.Email.String,
		DisplayName:     r.DisplayName,
		PasswordHash:    r.PasswordHash,
		Provider:        r.Provider,
		ProviderSubject: r.ProviderSubject.String,
		IsAnonymous:     r.IsAnonymous,
		EmailVerified:   r.EmailVerified,
		IsActive:        r.IsActive,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
	if r.LastLogin.Valid {
		acc.LastLogin = r.LastLogin.Time.UTC()
	}
	return acc
}

type accountRepository struct {
	db *sqlx.DB
}

var _ user.AccountRepository = (*accountRepository)(nil)

func NewAccountRepository(db *sqlx.DB) user.AccountRepository {
	return &accountRepository{db: db}
}

func (repo *accountRepository) CreateAccount(ctx context.Context, acc user.Account) (user.Account, error) {
	q := `
		INSERT INTO accounts (
			id, email, display_name, password_hash, provider, provider_subject,
			is_anonymous, email_verified, is_active, created_at, updated_at, last_login
		) VALUES (
			:id, :email, :display_name, :password_hash, :provider, :provider_subject,
			:is_anonymous, :email_verified, :is_active, :created_at, :updated_at, :last_login
		)`
	if _, err := repo.db.NamedExecContext(ctx, q, toRow(acc)); err != nil {
		return user.Account{}, mapError(err, "creating account")
	}
	return acc, nil
}

func (repo *accountRepository) GetAccountByID(ctx context.Context, id string) (user.Account, error) {
	return repo.get(ctx, `SELECT * FROM accounts WHERE id = $1`, id)
}

func (repo *accountRepository) GetAccountByEmail(ctx context.Context, email string) (user.Account, error) {
	return repo.get(ctx, `SELECT * FROM accounts WHERE lower(email) = lower($1)`, email)
}

func (repo *accountRepository) GetAccountByProviderSubject(ctx context.Context, provider, subject string) (user.Account, error) {
	return repo.get(ctx, `SELECT * FROM accounts WHERE provider = $1 AND provider_subject = $2`, provider, subject)
}

func (repo *accountRepository) UpdateAccount(ctx context.Context, acc user.Account) (user.Account, error) {
	q := `
		UPDATE accounts SET
			email = :email, display_name = :display_name, password_hash = :password_hash,
			provider = :provider, provider_subject = :provider_subject, is_anonymous = :is_anonymous,
			email_verified = :email_verified, is_active = :is_active, updated_at = :updated_at,
			last_login = :last_login
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toRow(acc))
	if err != nil {
		return user.Account{}, mapError(err, "updating account")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.Account{}, user.ErrNotFound
	}
	return acc, nil
}

func (repo *accountRepository) get(ctx context.Context, q string, args ...interface{}) (user.Account, error) {
	var row accountRow
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.Account{}, user.ErrNotFound
		}
		return user.Account{}, errors.Wrap(err, "getting account")
	}
	return row.toAccount(), nil
}

// mapError turns unique violations into user.ErrEmailExists.
func mapError(err error, msg string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return user.ErrEmailExists
	}
	return errors.Wrap(err, msg)
}
