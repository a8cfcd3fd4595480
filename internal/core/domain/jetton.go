package domain

import "math/big"

// Jetton is fungible-token metadata, keyed by the token master address.
type Jetton struct {
	Address      Address
	Name         string
	Symbol       string
	Decimals     int
	Image        string
	Verification JettonVerification
}

type JettonVerification string

const (
	JettonVerificationWhitelist JettonVerification = "whitelist"
	JettonVerificationBlacklist JettonVerification = "blacklist"
	JettonVerificationNone      JettonVerification = "none"
	JettonVerificationUnknown   JettonVerification = "unknown"
)

// JettonBalance is the watched address's holding of one jetton.
// WalletAddress is the per-holder jetton wallet contract through which
// the balance is held and transferred.
type JettonBalance struct {
	JettonAddress Address
	Jetton        Jetton
	Balance       *big.Int
	WalletAddress Address
}
