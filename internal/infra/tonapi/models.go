package tonapi

import (
	"fmt"
	"math/big"

	"github.com/vietddude/tonkit/internal/core/domain"
)

// Wire models for the tonapi.io v2 JSON API and their mapping onto the
// domain types. Amounts arrive either as numbers or decimal strings
// depending on the endpoint, hence the two helpers below.

type apiAccount struct {
	Address string `json:"address"`
	Balance int64  `json:"balance"`
	Status  string `json:"status"`
}

func (a *apiAccount) toDomain() (*domain.Account, error) {
	address, err := domain.ParseAddress(a.Address)
	if err != nil {
		return nil, err
	}

	return &domain.Account{
		Address: address,
		Balance: big.NewInt(a.Balance),
		Status:  accountStatus(a.Status),
	}, nil
}

func accountStatus(s string) domain.AccountStatus {
	switch domain.AccountStatus(s) {
	case domain.AccountStatusNonexist, domain.AccountStatusUninit,
		domain.AccountStatusActive, domain.AccountStatusFrozen:
		return domain.AccountStatus(s)
	default:
		return domain.AccountStatusUnknown
	}
}

type apiJettonBalances struct {
	Balances []apiJettonBalance `json:"balances"`
}

type apiJettonBalance struct {
	Balance       string `json:"balance"`
	WalletAddress struct {
		Address string `json:"address"`
	} `json:"wallet_address"`
	Jetton apiJettonPreview `json:"jetton"`
}

func (b *apiJettonBalance) toDomain() (domain.JettonBalance, error) {
	jetton, err := b.Jetton.toDomain()
	if err != nil {
		return domain.JettonBalance{}, err
	}

	walletAddress, err := domain.ParseAddress(b.WalletAddress.Address)
	if err != nil {
		return domain.JettonBalance{}, err
	}

	return domain.JettonBalance{
		JettonAddress: jetton.Address,
		Jetton:        jetton,
		Balance:       parseAmount(b.Balance),
		WalletAddress: walletAddress,
	}, nil
}

type apiJettonPreview struct {
	Address      string `json:"address"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	Decimals     int    `json:"decimals"`
	Image        string `json:"image"`
	Verification string `json:"verification"`
}

func (j *apiJettonPreview) toDomain() (domain.Jetton, error) {
	address, err := domain.ParseAddress(j.Address)
	if err != nil {
		return domain.Jetton{}, err
	}

	return domain.Jetton{
		Address:      address,
		Name:         j.Name,
		Symbol:       j.Symbol,
		Decimals:     j.Decimals,
		Image:        j.Image,
		Verification: jettonVerification(j.Verification),
	}, nil
}

func jettonVerification(s string) domain.JettonVerification {
	switch domain.JettonVerification(s) {
	case domain.JettonVerificationWhitelist, domain.JettonVerificationBlacklist,
		domain.JettonVerificationNone:
		return domain.JettonVerification(s)
	default:
		return domain.JettonVerificationUnknown
	}
}

type apiJettonInfo struct {
	Verification string `json:"verification"`
	Metadata     struct {
		Address  string `json:"address"`
		Name     string `json:"name"`
		Symbol   string `json:"symbol"`
		Decimals string `json:"decimals"`
		Image    string `json:"image"`
	} `json:"metadata"`
}

func (j *apiJettonInfo) toDomain() (*domain.Jetton, error) {
	address, err := domain.ParseAddress(j.Metadata.Address)
	if err != nil {
		return nil, err
	}

	decimals := 0
	fmt.Sscanf(j.Metadata.Decimals, "%d", &decimals)

	return &domain.Jetton{
		Address:      address,
		Name:         j.Metadata.Name,
		Symbol:       j.Metadata.Symbol,
		Decimals:     decimals,
		Image:        j.Metadata.Image,
		Verification: jettonVerification(j.Verification),
	}, nil
}

type apiEvents struct {
	Events []apiEvent `json:"events"`
}

type apiEvent struct {
	EventID    string      `json:"event_id"`
	Lt         int64       `json:"lt"`
	Timestamp  int64       `json:"timestamp"`
	IsScam     bool        `json:"is_scam"`
	InProgress bool        `json:"in_progress"`
	Actions    []apiAction `json:"actions"`
}

func (e *apiEvent) toDomain() (domain.Event, error) {
	actions := make([]domain.Action, 0, len(e.Actions))
	for _, action := range e.Actions {
		converted, err := action.toDomain()
		if err != nil {
			return domain.Event{}, err
		}
		actions = append(actions, converted)
	}

	return domain.Event{
		ID:         e.EventID,
		Lt:         e.Lt,
		Timestamp:  e.Timestamp,
		IsScam:     e.IsScam,
		InProgress: e.InProgress,
		Actions:    actions,
	}, nil
}

type apiAction struct {
	Type   string `json:"type"`
	Status string `json:"status"`

	TonTransfer *struct {
		Sender    apiAccountAddress `json:"sender"`
		Recipient apiAccountAddress `json:"recipient"`
		Amount    int64             `json:"amount"`
		Comment   string            `json:"comment"`
	} `json:"TonTransfer"`

	JettonTransfer *struct {
		Sender           *apiAccountAddress `json:"sender"`
		Recipient        *apiAccountAddress `json:"recipient"`
		SendersWallet    string             `json:"senders_wallet"`
		RecipientsWallet string             `json:"recipients_wallet"`
		Amount           string             `json:"amount"`
		Comment          string             `json:"comment"`
		Jetton           apiJettonPreview   `json:"jetton"`
	} `json:"JettonTransfer"`

	JettonBurn *struct {
		Sender        apiAccountAddress `json:"sender"`
		SendersWallet string            `json:"senders_wallet"`
		Amount        string            `json:"amount"`
		Jetton        apiJettonPreview  `json:"jetton"`
	} `json:"JettonBurn"`

	JettonMint *struct {
		Recipient        apiAccountAddress `json:"recipient"`
		RecipientsWallet string            `json:"recipients_wallet"`
		Amount           string            `json:"amount"`
		Jetton           apiJettonPreview  `json:"jetton"`
	} `json:"JettonMint"`

	ContractDeploy *struct {
		Address    string   `json:"address"`
		Interfaces []string `json:"interfaces"`
	} `json:"ContractDeploy"`

	JettonSwap *struct {
		Dex             string            `json:"dex"`
		AmountIn        string            `json:"amount_in"`
		AmountOut       string            `json:"amount_out"`
		TonIn           *int64            `json:"ton_in"`
		TonOut          *int64            `json:"ton_out"`
		UserWallet      apiAccountAddress `json:"user_wallet"`
		Router          apiAccountAddress `json:"router"`
		JettonMasterIn  *apiJettonPreview `json:"jetton_master_in"`
		JettonMasterOut *apiJettonPreview `json:"jetton_master_out"`
	} `json:"JettonSwap"`

	SmartContractExec *struct {
		Contract    apiAccountAddress `json:"contract"`
		TonAttached int64             `json:"ton_attached"`
		Operation   string            `json:"operation"`
		Payload     string            `json:"payload"`
	} `json:"SmartContractExec"`
}

type apiAccountAddress struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	IsScam   bool   `json:"is_scam"`
	IsWallet bool   `json:"is_wallet"`
}

func (a *apiAccountAddress) toDomain() (domain.AccountAddress, error) {
	address, err := domain.ParseAddress(a.Address)
	if err != nil {
		return domain.AccountAddress{}, err
	}

	return domain.AccountAddress{
		Address:  address,
		Name:     a.Name,
		IsScam:   a.IsScam,
		IsWallet: a.IsWallet,
	}, nil
}

func (a *apiAction) toDomain() (domain.Action, error) {
	action := domain.Action{Status: actionStatus(a.Status)}

	switch {
	case a.TonTransfer != nil:
		sender, err := a.TonTransfer.Sender.toDomain()
		if err != nil {
			return domain.Action{}, err
		}
		recipient, err := a.TonTransfer.Recipient.toDomain()
		if err != nil {
			return domain.Action{}, err
		}
		action.Type = domain.ActionTypeTonTransfer
		action.TonTransfer = &domain.TonTransferAction{
			Sender:    sender,
			Recipient: recipient,
			Amount:    big.NewInt(a.TonTransfer.Amount),
			Comment:   a.TonTransfer.Comment,
		}

	case a.JettonTransfer != nil:
		t := a.JettonTransfer
		jetton, err := t.Jetton.toDomain()
		if err != nil {
			return domain.Action{}, err
		}
		sendersWallet, err := domain.ParseAddress(t.SendersWallet)
		if err != nil {
			return domain.Action{}, err
		}
		recipientsWallet, err := domain.ParseAddress(t.RecipientsWallet)
		if err != nil {
			return domain.Action{}, err
		}

		converted := &domain.JettonTransferAction{
			SendersWallet:    sendersWallet,
			RecipientsWallet: recipientsWallet,
			Amount:           parseAmount(t.Amount),
			Comment:          t.Comment,
			Jetton:           jetton,
		}
		if t.Sender != nil {
			sender, err := t.Sender.toDomain()
			if err != nil {
				return domain.Action{}, err
			}
			converted.Sender = &sender
		}
		if t.Recipient != nil {
			recipient, err := t.Recipient.toDomain()
			if err != nil {
				return domain.Action{}, err
			}
			converted.Recipient = &recipient
		}
		action.Type = domain.ActionTypeJettonTransfer
		action.JettonTransfer = converted

	case a.JettonBurn != nil:
		t := a.JettonBurn
		sender, err := t.Sender.toDomain()
		if err != nil {
			return domain.Action{}, err
		}
		sendersWallet, err := domain.ParseAddress(t.SendersWallet)
		if err != nil {
			return domain.Action{}, err
		}
		jetton, err := t.Jetton.toDomain()
		if err != nil {
			return domain.Action{}, err
		}
		action.Type = domain.ActionTypeJettonBurn
		action.JettonBurn = &domain.JettonBurnAction{
			Sender:        sender,
			SendersWallet: sendersWallet,
			Amount:        parseAmount(t.Amount),
			Jetton:        jetton,
		}

	case a.JettonMint != nil:
		t := a.JettonMint
		recipient, err := t.Recipient.toDomain()
		if err != nil {
			return domain.Action{}, err
		}
		recipientsWallet, err := domain.ParseAddress(t.RecipientsWallet)
		if err != nil {
			return domain.Action{}, err
		}
		jetton, err := t.Jetton.toDomain()
		if err != nil {
			return domain.Action{}, err
		}
		action.Type = domain.ActionTypeJettonMint
		action.JettonMint = &domain.JettonMintAction{
			Recipient:        recipient,
			RecipientsWallet: recipientsWallet,
			Amount:           parseAmount(t.Amount),
			Jetton:           jetton,
		}

	case a.ContractDeploy != nil:
		address, err := domain.ParseAddress(a.ContractDeploy.Address)
		if err != nil {
			return domain.Action{}, err
		}
		action.Type = domain.ActionTypeContractDeploy
		action.ContractDeploy = &domain.ContractDeployAction{
			Address:    address,
			Interfaces: a.ContractDeploy.Interfaces,
		}

	case a.JettonSwap != nil:
		t := a.JettonSwap
		userWallet, err := t.UserWallet.toDomain()
		if err != nil {
			return domain.Action{}, err
		}
		router, err := t.Router.toDomain()
		if err != nil {
			return domain.Action{}, err
		}

		converted := &domain.JettonSwapAction{
			Dex:        t.Dex,
			AmountIn:   parseAmount(t.AmountIn),
			AmountOut:  parseAmount(t.AmountOut),
			UserWallet: userWallet,
			Router:     router,
		}
		if t.TonIn != nil {
			converted.TonIn = big.NewInt(*t.TonIn)
		}
		if t.TonOut != nil {
			converted.TonOut = big.NewInt(*t.TonOut)
		}
		if t.JettonMasterIn != nil {
			jetton, err := t.JettonMasterIn.toDomain()
			if err != nil {
				return domain.Action{}, err
			}
			converted.JettonMasterIn = &jetton
		}
		if t.JettonMasterOut != nil {
			jetton, err := t.JettonMasterOut.toDomain()
			if err != nil {
				return domain.Action{}, err
			}
			converted.JettonMasterOut = &jetton
		}
		action.Type = domain.ActionTypeJettonSwap
		action.JettonSwap = converted

	case a.SmartContractExec != nil:
		t := a.SmartContractExec
		contract, err := t.Contract.toDomain()
		if err != nil {
			return domain.Action{}, err
		}
		action.Type = domain.ActionTypeSmartContract
		action.SmartContract = &domain.SmartContractAction{
			Contract:    contract,
			TonAttached: big.NewInt(t.TonAttached),
			Operation:   t.Operation,
			Payload:     t.Payload,
		}

	default:
		action.Type = domain.ActionTypeUnknown
		action.RawType = a.Type
	}

	return action, nil
}

func actionStatus(s string) domain.ActionStatus {
	switch domain.ActionStatus(s) {
	case domain.ActionStatusOK, domain.ActionStatusFailed:
		return domain.ActionStatus(s)
	default:
		return domain.ActionStatusUnknown
	}
}

type apiEmulateResult struct {
	Event apiEvent `json:"event"`
	Trace struct {
		Transaction struct {
			TotalFees int64 `json:"total_fees"`
		} `json:"transaction"`
	} `json:"trace"`
}

func (r *apiEmulateResult) toDomain() (*domain.FeeEstimate, error) {
	event, err := r.Event.toDomain()
	if err != nil {
		return nil, err
	}

	return &domain.FeeEstimate{
		TotalFee: big.NewInt(r.Trace.Transaction.TotalFees),
		Event:    &event,
	}, nil
}

// parseAmount decodes a decimal string amount; malformed input becomes
// zero rather than failing the whole page.
func parseAmount(s string) *big.Int {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return amount
}
