package domain

import "math/big"

// TransferRequest is a high-level outgoing transfer intent. When Jetton
// is nil the transfer moves native coins; otherwise it moves the jetton
// with that master address through the owner's jetton wallet contract.
type TransferRequest struct {
	Recipient Address
	Amount    *big.Int

	// SendMax drains the full available balance instead of Amount.
	// Native transfers only.
	SendMax bool

	Comment string
	Jetton  *Address

	// ValidUntil caps the message validity window (unix seconds).
	// Zero means no explicit deadline.
	ValidUntil int64
}

// FeeEstimate is the result of emulating a transfer without broadcasting.
type FeeEstimate struct {
	TotalFee *big.Int
	Event    *Event
}
