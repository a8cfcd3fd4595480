package domain

import "math/big"

// Account is the cached snapshot of the watched address's native state.
// It is replaced wholesale on every successful sync.
type Account struct {
	Address Address
	Balance *big.Int
	Status  AccountStatus
}

type AccountStatus string

const (
	AccountStatusNonexist AccountStatus = "nonexist"
	AccountStatusUninit   AccountStatus = "uninit"
	AccountStatusActive   AccountStatus = "active"
	AccountStatusFrozen   AccountStatus = "frozen"
	AccountStatusUnknown  AccountStatus = "unknown"
)

// StateInitRequired reports whether an outgoing external message must
// carry the wallet contract's state init. Only uninitialized accounts
// need deployment data attached.
func (s AccountStatus) StateInitRequired() bool {
	return s == AccountStatusUninit
}
