package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/ledger/internal/domain"
	"github.com/iho/ledger/internal/infrastructure/postgres/generated"
	"github.com/iho/ledger/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	queries *generated.Queries
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return newAccountRepository(pool)
}

func newAccountRepository(db generated.DBTX) *AccountRepository {
	return &AccountRepository{queries: generated.New(db)}
}

// Create inserts a new account within tx.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Tx, account *domain.Account) error {
	queries, err := txQueries(tx)
	if err != nil {
		return err
	}

	err = queries.CreateAccount(ctx, generated.CreateAccountParams{
		ID:        account.ID,
		Name:      account.Name,
		Direction: account.Direction.String(),
		Balance:   amountToNumeric(account.Balance),
		CreatedAt: timeToPgTimestamptz(account.CreatedAt),
		UpdatedAt: timeToPgTimestamptz(account.UpdatedAt),
	})
	if isUniqueViolation(err) {
		return domain.NewAlreadyExistsError(domain.EntityAccount, account.ID)
	}

	return translateError(err)
}

// Exists reports whether an account with id exists.
func (r *AccountRepository) Exists(ctx context.Context, tx usecase.Tx, id string) (bool, error) {
	queries, err := txQueries(tx)
	if err != nil {
		return false, err
	}

	exists, err := queries.AccountExists(ctx, id)
	return exists, translateError(err)
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row, err := r.queries.GetAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError(domain.EntityAccount, id)
		}

		return nil, err
	}

	return rowToAccount(row)
}

// GetByIDsForUpdate locks the matching rows with SELECT ... ORDER BY id FOR
// UPDATE. Ids with no row are absent from the result.
func (r *AccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Tx, ids []string) (map[string]*domain.Account, error) {
	queries, err := txQueries(tx)
	if err != nil {
		return nil, err
	}

	rows, err := queries.GetAccountsByIDsForUpdate(ctx, ids)
	if err != nil {
		return nil, translateError(err)
	}

	accounts := make(map[string]*domain.Account, len(rows))
	for _, row := range rows {
		account, err := rowToAccount(row)
		if err != nil {
			return nil, err
		}
		accounts[account.ID] = account
	}

	return accounts, nil
}

// UpdateBalances writes new balances in the given order.
func (r *AccountRepository) UpdateBalances(ctx context.Context, tx usecase.Tx, accounts []*domain.Account) error {
	queries, err := txQueries(tx)
	if err != nil {
		return err
	}

	for _, account := range accounts {
		err := queries.UpdateAccountBalance(ctx, generated.UpdateAccountBalanceParams{
			ID:        account.ID,
			Balance:   amountToNumeric(account.Balance),
			UpdatedAt: timeToPgTimestamptz(account.UpdatedAt),
		})
		if isCheckViolation(err) {
			return domain.NewInsufficientFundsError([]string{account.ID})
		}
		if err != nil {
			return translateError(err)
		}
	}

	return nil
}

// List lists accounts ordered by id.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	rows, err := r.queries.ListAccounts(ctx, generated.ListAccountsParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, err
	}

	accounts := make([]*domain.Account, 0, len(rows))
	for _, row := range rows {
		account, err := rowToAccount(row)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, nil
}

func rowToAccount(row generated.Account) (*domain.Account, error) {
	balance, err := numericToAmount(row.Balance)
	if err != nil {
		return nil, err
	}

	return &domain.Account{
		ID:        row.ID,
		Name:      row.Name,
		Direction: domain.Direction(row.Direction),
		Balance:   balance,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}, nil
}
