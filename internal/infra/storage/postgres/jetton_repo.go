package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/vietddude/tonkit/internal/core/domain"
)

// JettonBalanceRepo implements storage.JettonBalanceRepository using PostgreSQL.
type JettonBalanceRepo struct {
	db *DB
}

func NewJettonBalanceRepo(db *DB) *JettonBalanceRepo {
	return &JettonBalanceRepo{db: db}
}

type jettonBalanceRow struct {
	Owner         string `db:"owner"`
	JettonAddress string `db:"jetton_address"`
	Jetton        []byte `db:"jetton"`
	Balance       string `db:"balance"`
	WalletAddress string `db:"wallet_address"`
}

func (r *JettonBalanceRepo) JettonBalances(ctx context.Context, owner domain.Address) ([]domain.JettonBalance, error) {
	query := `SELECT owner, jetton_address, jetton, balance, wallet_address FROM jetton_balance WHERE owner = $1`

	var rows []jettonBalanceRow
	if err := r.db.SelectContext(ctx, &rows, query, owner.Raw()); err != nil {
		return nil, fmt.Errorf("failed to get jetton balances: %w", err)
	}

	balances := make([]domain.JettonBalance, 0, len(rows))
	for _, row := range rows {
		balance, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		balances = append(balances, balance)
	}
	return balances, nil
}

func (row *jettonBalanceRow) toDomain() (domain.JettonBalance, error) {
	var jetton domain.Jetton
	if err := json.Unmarshal(row.Jetton, &jetton); err != nil {
		return domain.JettonBalance{}, fmt.Errorf("failed to decode jetton: %w", err)
	}

	jettonAddress, err := domain.ParseAddress(row.JettonAddress)
	if err != nil {
		return domain.JettonBalance{}, err
	}
	walletAddress, err := domain.ParseAddress(row.WalletAddress)
	if err != nil {
		return domain.JettonBalance{}, err
	}

	balance, ok := new(big.Int).SetString(row.Balance, 10)
	if !ok {
		return domain.JettonBalance{}, fmt.Errorf("failed to parse balance %q", row.Balance)
	}

	return domain.JettonBalance{
		JettonAddress: jettonAddress,
		Jetton:        jetton,
		Balance:       balance,
		WalletAddress: walletAddress,
	}, nil
}

// ReplaceJettonBalances replaces the owner's full balance set in one
// transaction, so readers never observe a partial overwrite.
func (r *JettonBalanceRepo) ReplaceJettonBalances(ctx context.Context, owner domain.Address, balances []domain.JettonBalance) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM jetton_balance WHERE owner = $1`, owner.Raw()); err != nil {
		return fmt.Errorf("failed to clear jetton balances: %w", err)
	}

	query := `
		INSERT INTO jetton_balance (owner, jetton_address, jetton, balance, wallet_address)
		VALUES ($1, $2, $3, $4, $5)
	`

	for _, balance := range balances {
		jetton, err := json.Marshal(balance.Jetton)
		if err != nil {
			return fmt.Errorf("failed to encode jetton: %w", err)
		}

		_, err = tx.ExecContext(ctx, query,
			owner.Raw(), balance.JettonAddress.Raw(), jetton,
			balance.Balance.String(), balance.WalletAddress.Raw(),
		)
		if err != nil {
			return fmt.Errorf("failed to save jetton balance: %w", err)
		}
	}

	return tx.Commit()
}
