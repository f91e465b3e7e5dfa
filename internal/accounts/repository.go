package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-bank/banking-api/internal/platform/db"
	"github.com/odyssey-bank/banking-api/internal/platform/httpx"
)

var (
	// ErrNotFound indicates the account does not exist.
	ErrNotFound = fmt.Errorf("account: %w", httpx.ErrNotFound)
	// ErrDuplicateAccount indicates the account number is taken.
	ErrDuplicateAccount = fmt.Errorf("account number already exists: %w", httpx.ErrDuplicate)
)

// Repository persists accounts.
type Repository interface {
	List(ctx context.Context) ([]Account, error)
	Get(ctx context.Context, id int64) (Account, error)
	Create(ctx context.Context, a Account) (Account, error)
	Update(ctx context.Context, a Account) (Account, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a PostgreSQL backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, account_number, account_holder_name, balance::float8, currency, status, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.AccountNumber, &a.AccountHolderName, &a.Balance, &a.Currency, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func mapErr(err error, id any) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%w: %v", ErrNotFound, id)
	case db.IsUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrDuplicateAccount, id)
	default:
		return err
	}
}

func (r *repository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		return Account{}, mapErr(err, id)
	}
	return a, nil
}

func (r *repository) Create(ctx context.Context, a Account) (Account, error) {
	created, err := scanAccount(r.db.QueryRow(ctx, `
		INSERT INTO accounts (account_number, account_holder_name, balance, currency, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+accountColumns,
		a.AccountNumber, a.AccountHolderName, a.Balance, a.Currency, a.Status,
	))
	if err != nil {
		return Account{}, mapErr(err, a.AccountNumber)
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, a Account) (Account, error) {
	updated, err := scanAccount(r.db.QueryRow(ctx, `
		UPDATE accounts
		SET account_holder_name = $2, balance = $3, currency = $4, status = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+accountColumns,
		a.ID, a.AccountHolderName, a.Balance, a.Currency, a.Status,
	))
	if err != nil {
		return Account{}, mapErr(err, a.ID)
	}
	return updated, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}
