package domain

import "math/big"

// Event is one on-chain event of the watched address. Lt (logical time)
// is strictly increasing per account and is the canonical ordering and
// pagination cursor. An event is immutable once InProgress is false;
// while it is true a later completed version with the same ID replaces it.
type Event struct {
	ID         string
	Lt         int64
	Timestamp  int64
	IsScam     bool
	InProgress bool
	Actions    []Action
}

// AccountAddress is an address reference inside an action, as reported
// by the chain API.
type AccountAddress struct {
	Address  Address
	Name     string
	IsScam   bool
	IsWallet bool
}

// Action is a tagged union: Type selects which of the variant pointers
// is populated. Consumers must switch exhaustively on Type.
type Action struct {
	Type   ActionType
	Status ActionStatus

	TonTransfer    *TonTransferAction
	JettonTransfer *JettonTransferAction
	JettonBurn     *JettonBurnAction
	JettonMint     *JettonMintAction
	ContractDeploy *ContractDeployAction
	JettonSwap     *JettonSwapAction
	SmartContract  *SmartContractAction

	// RawType keeps the server-reported type for ActionTypeUnknown.
	RawType string
}

type ActionType string

const (
	ActionTypeTonTransfer    ActionType = "ton_transfer"
	ActionTypeJettonTransfer ActionType = "jetton_transfer"
	ActionTypeJettonBurn     ActionType = "jetton_burn"
	ActionTypeJettonMint     ActionType = "jetton_mint"
	ActionTypeContractDeploy ActionType = "contract_deploy"
	ActionTypeJettonSwap     ActionType = "jetton_swap"
	ActionTypeSmartContract  ActionType = "smart_contract_exec"
	ActionTypeUnknown        ActionType = "unknown"
)

type ActionStatus string

const (
	ActionStatusOK      ActionStatus = "ok"
	ActionStatusFailed  ActionStatus = "failed"
	ActionStatusUnknown ActionStatus = "unknown"
)

type TonTransferAction struct {
	Sender    AccountAddress
	Recipient AccountAddress
	Amount    *big.Int
	Comment   string
}

type JettonTransferAction struct {
	Sender           *AccountAddress
	Recipient        *AccountAddress
	SendersWallet    Address
	RecipientsWallet Address
	Amount           *big.Int
	Comment          string
	Jetton           Jetton
}

type JettonBurnAction struct {
	Sender        AccountAddress
	SendersWallet Address
	Amount        *big.Int
	Jetton        Jetton
}

type JettonMintAction struct {
	Recipient        AccountAddress
	RecipientsWallet Address
	Amount           *big.Int
	Jetton           Jetton
}

type ContractDeployAction struct {
	Address    Address
	Interfaces []string
}

type JettonSwapAction struct {
	Dex             string
	AmountIn        *big.Int
	AmountOut       *big.Int
	TonIn           *big.Int
	TonOut          *big.Int
	UserWallet      AccountAddress
	Router          AccountAddress
	JettonMasterIn  *Jetton
	JettonMasterOut *Jetton
}

type SmartContractAction struct {
	Contract    AccountAddress
	TonAttached *big.Int
	Operation   string
	Payload     string
}
