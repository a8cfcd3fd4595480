package send

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vietddude/tonkit/internal/core/domain"
	"github.com/vietddude/tonkit/internal/infra/tonapi"
	"github.com/vietddude/tonkit/internal/metrics"
)

// TTL is the default validity window of a transfer, capped by any
// explicitly requested deadline.
const TTL = 5 * 60

var (
	// ErrInvalidAmount is returned for a zero/negative transfer amount.
	ErrInvalidAmount = errors.New("invalid transfer amount")

	// ErrNoJettonWallet is returned when the owner holds no wallet
	// contract for the requested jetton.
	ErrNoJettonWallet = errors.New("no jetton wallet for token")

	// ErrSendMaxJetton is returned when send-max is combined with a
	// jetton selector; draining applies to the native balance only.
	ErrSendMaxJetton = errors.New("send-max applies to native transfers only")
)

// JettonWalletResolver maps a jetton master address to the owner's
// jetton wallet contract address.
type JettonWalletResolver interface {
	JettonWallet(jetton domain.Address) (domain.Address, bool)
}

// Sender builds, fee-estimates, signs and submits outgoing transfers.
// It is stateless between calls: sequence number, account status and
// chain time are resolved per transfer, with no retry.
type Sender struct {
	api     tonapi.Client
	address domain.Address
	jettons JettonWalletResolver
	signer  Signer
	logger  *slog.Logger
}

func NewSender(api tonapi.Client, address domain.Address, jettons JettonWalletResolver, signer Signer, logger *slog.Logger) *Sender {
	return &Sender{
		api:     api,
		address: address,
		jettons: jettons,
		signer:  signer,
		logger:  logger,
	}
}

// EstimateFee emulates the transfer with a null signature and returns
// the total fee without broadcasting.
func (s *Sender) EstimateFee(ctx context.Context, req domain.TransferRequest) (*domain.FeeEstimate, error) {
	boc, err := s.boc(ctx, req, NullSigner{})
	if err != nil {
		return nil, err
	}
	return s.api.Emulate(ctx, boc)
}

// Send signs with the real secret key and broadcasts. It does not wait
// for confirmation; that arrives later through sync or the listener.
func (s *Sender) Send(ctx context.Context, req domain.TransferRequest) error {
	boc, err := s.boc(ctx, req, s.signer)
	if err != nil {
		return err
	}

	if err := s.api.Send(ctx, boc); err != nil {
		return err
	}

	metrics.TransfersSubmitted.Inc()
	s.logger.Debug("Transfer submitted", "recipient", req.Recipient)
	return nil
}

func (s *Sender) boc(ctx context.Context, req domain.TransferRequest, signer Signer) (string, error) {
	if req.SendMax && req.Jetton != nil {
		return "", ErrSendMaxJetton
	}
	if !req.SendMax && (req.Amount == nil || req.Amount.Sign() <= 0) {
		return "", ErrInvalidAmount
	}

	message, sendMode, err := s.internalMessage(req)
	if err != nil {
		return "", err
	}

	seqno, err := s.api.GetSeqno(ctx, s.address)
	if err != nil {
		return "", err
	}

	timeout := s.safeTimeout(ctx)
	if req.ValidUntil > 0 && uint64(req.ValidUntil) < timeout {
		timeout = uint64(req.ValidUntil)
	}

	account, err := s.api.GetAccount(ctx, s.address)
	if err != nil {
		return "", err
	}

	transfer := UnsignedTransfer{
		Sender:     s.address,
		Seqno:      seqno,
		ValidUntil: timeout,
		SendMode:   sendMode,
		Messages:   []InternalMessage{message},
		StateInit:  account.Status.StateInitRequired(),
	}

	signature, err := signer.Sign(transfer.SigningPayload())
	if err != nil {
		return "", err
	}
	return transfer.Boc(signature), nil
}

func (s *Sender) internalMessage(req domain.TransferRequest) (InternalMessage, uint8, error) {
	if req.Jetton == nil {
		sendMode := SendModeDefault
		if req.SendMax {
			sendMode = SendModeMax
		}
		return NativeTransferMessage(req.Recipient, req.Amount, true, req.Comment), sendMode, nil
	}

	wallet, ok := s.jettons.JettonWallet(*req.Jetton)
	if !ok {
		return InternalMessage{}, 0, ErrNoJettonWallet
	}
	message := JettonTransferMessage(wallet, req.Amount, req.Recipient, s.address, true, req.Comment)
	return message, SendModeDefault, nil
}

// safeTimeout derives the validity deadline from chain time, falling
// back to the local clock when the time endpoint is unreachable.
func (s *Sender) safeTimeout(ctx context.Context) uint64 {
	if chainTime, err := s.api.GetRawTime(ctx); err == nil {
		return uint64(chainTime) + TTL
	}
	return uint64(time.Now().Unix()) + TTL
}
