package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	"github.com/vietddude/tonkit/internal/core/domain"
)

// AccountRepo implements storage.AccountRepository using PostgreSQL.
type AccountRepo struct {
	db *DB
}

func NewAccountRepo(db *DB) *AccountRepo {
	return &AccountRepo{db: db}
}

type accountRow struct {
	Address string `db:"address"`
	Balance string `db:"balance"`
	Status  string `db:"status"`
}

func (r *AccountRepo) Account(ctx context.Context, address domain.Address) (*domain.Account, error) {
	query := `SELECT address, balance, status FROM account WHERE address = $1`

	var row accountRow
	err := r.db.GetContext(ctx, &row, query, address.Raw())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	balance, ok := new(big.Int).SetString(row.Balance, 10)
	if !ok {
		return nil, fmt.Errorf("failed to parse balance %q", row.Balance)
	}

	return &domain.Account{
		Address: address,
		Balance: balance,
		Status:  domain.AccountStatus(row.Status),
	}, nil
}

func (r *AccountRepo) SaveAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO account (address, balance, status, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (address) DO UPDATE SET
			balance = EXCLUDED.balance,
			status = EXCLUDED.status,
			updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query, account.Address.Raw(), account.Balance.String(), string(account.Status))
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}
