package send

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"log/slog"
	"math/big"
	"testing"

	"github.com/vietddude/tonkit/internal/core/domain"
)

var (
	senderAddr    = domain.MustParseAddress("0:1111111111111111111111111111111111111111111111111111111111111111")
	recipientAddr = domain.MustParseAddress("0:2222222222222222222222222222222222222222222222222222222222222222")
	usdtMaster    = domain.MustParseAddress("0:4444444444444444444444444444444444444444444444444444444444444444")
	usdtWallet    = domain.MustParseAddress("0:5555555555555555555555555555555555555555555555555555555555555555")
)

// stubAPI serves fixed chain state and records submitted bocs.
type stubAPI struct {
	seqno     uint64
	chainTime int64
	timeErr   error
	status    domain.AccountStatus

	emulated  []string
	submitted []string
}

func (s *stubAPI) GetAccount(ctx context.Context, address domain.Address) (*domain.Account, error) {
	status := s.status
	if status == "" {
		status = domain.AccountStatusActive
	}
	return &domain.Account{Address: address, Balance: big.NewInt(1_000_000_000), Status: status}, nil
}

func (s *stubAPI) GetJettonBalances(ctx context.Context, address domain.Address) ([]domain.JettonBalance, error) {
	return nil, errors.New("not implemented")
}

func (s *stubAPI) GetJettonInfo(ctx context.Context, address domain.Address) (*domain.Jetton, error) {
	return nil, errors.New("not implemented")
}

func (s *stubAPI) GetEvents(ctx context.Context, address domain.Address, beforeLt, startTimestamp *int64, limit int) ([]domain.Event, error) {
	return nil, errors.New("not implemented")
}

func (s *stubAPI) GetSeqno(ctx context.Context, address domain.Address) (uint64, error) {
	return s.seqno, nil
}

func (s *stubAPI) GetRawTime(ctx context.Context) (int64, error) {
	if s.timeErr != nil {
		return 0, s.timeErr
	}
	return s.chainTime, nil
}

func (s *stubAPI) Emulate(ctx context.Context, boc string) (*domain.FeeEstimate, error) {
	s.emulated = append(s.emulated, boc)
	return &domain.FeeEstimate{TotalFee: big.NewInt(3_000_000)}, nil
}

func (s *stubAPI) Send(ctx context.Context, boc string) error {
	s.submitted = append(s.submitted, boc)
	return nil
}

type stubResolver map[domain.Address]domain.Address

func (r stubResolver) JettonWallet(jetton domain.Address) (domain.Address, bool) {
	wallet, ok := r[jetton]
	return wallet, ok
}

func newTestSender(api *stubAPI) *Sender {
	_, key, _ := ed25519.GenerateKey(bytes.NewReader(make([]byte, 64)))
	resolver := stubResolver{usdtMaster: usdtWallet}
	return NewSender(api, senderAddr, resolver, NewSecretKeySigner(key), slog.Default())
}

func decodeBoc(t *testing.T, boc string) []byte {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(boc)
	if err != nil {
		t.Fatalf("Invalid boc encoding: %v", err)
	}
	return raw
}

// Envelope layout: magic(4) sender(33) stateInit(1) sigLen(4) sig(64) payload.
const (
	stateInitOffset = 4 + 33
	signatureStart  = 4 + 33 + 1 + 4
	signatureEnd    = signatureStart + ed25519.SignatureSize
)

func TestSender_EmulatedAndSubmittedBytesDifferOnlyInSignature(t *testing.T) {
	api := &stubAPI{seqno: 7, chainTime: 1_700_000_000}
	sender := newTestSender(api)

	req := domain.TransferRequest{Recipient: recipientAddr, Amount: big.NewInt(100), Comment: "hi"}

	if _, err := sender.EstimateFee(context.Background(), req); err != nil {
		t.Fatalf("EstimateFee failed: %v", err)
	}
	if err := sender.Send(context.Background(), req); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	emulated := decodeBoc(t, api.emulated[0])
	submitted := decodeBoc(t, api.submitted[0])

	if len(emulated) != len(submitted) {
		t.Fatalf("Length mismatch: %d vs %d", len(emulated), len(submitted))
	}
	if !bytes.Equal(emulated[:signatureStart], submitted[:signatureStart]) {
		t.Error("Envelope prefix differs between emulation and submission")
	}
	if !bytes.Equal(emulated[signatureEnd:], submitted[signatureEnd:]) {
		t.Error("Signing payload differs between emulation and submission")
	}

	if !bytes.Equal(emulated[signatureStart:signatureEnd], make([]byte, ed25519.SignatureSize)) {
		t.Error("Emulated message must carry an all-zero signature")
	}
	if bytes.Equal(submitted[signatureStart:signatureEnd], make([]byte, ed25519.SignatureSize)) {
		t.Error("Submitted message must carry a real signature")
	}
}

func TestSender_ValidUntilCapsTimeout(t *testing.T) {
	api := &stubAPI{seqno: 1, chainTime: 1_700_000_000}
	sender := newTestSender(api)

	explicit := int64(1_700_000_010) // earlier than chainTime + TTL
	req := domain.TransferRequest{Recipient: recipientAddr, Amount: big.NewInt(1), ValidUntil: explicit}

	if err := sender.Send(context.Background(), req); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	raw := decodeBoc(t, api.submitted[0])
	payload := raw[signatureEnd:]
	validUntil := binary.BigEndian.Uint32(payload[4:8])
	if int64(validUntil) != explicit {
		t.Errorf("Expected validUntil %d, got %d", explicit, validUntil)
	}
}

func TestSender_DefaultTimeoutFromChainTime(t *testing.T) {
	api := &stubAPI{seqno: 1, chainTime: 1_700_000_000}
	sender := newTestSender(api)

	req := domain.TransferRequest{Recipient: recipientAddr, Amount: big.NewInt(1)}
	if err := sender.Send(context.Background(), req); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	raw := decodeBoc(t, api.submitted[0])
	payload := raw[signatureEnd:]
	validUntil := binary.BigEndian.Uint32(payload[4:8])
	if int64(validUntil) != api.chainTime+TTL {
		t.Errorf("Expected validUntil %d, got %d", api.chainTime+TTL, validUntil)
	}
}

func TestSender_StateInitAttachedForUninitAccount(t *testing.T) {
	api := &stubAPI{seqno: 0, chainTime: 1_700_000_000, status: domain.AccountStatusUninit}
	sender := newTestSender(api)

	req := domain.TransferRequest{Recipient: recipientAddr, Amount: big.NewInt(1)}
	if err := sender.Send(context.Background(), req); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	raw := decodeBoc(t, api.submitted[0])
	if raw[stateInitOffset] != 1 {
		t.Error("Expected state init flag for uninitialized account")
	}

	api.submitted = nil
	api.status = domain.AccountStatusActive
	if err := sender.Send(context.Background(), req); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	raw = decodeBoc(t, api.submitted[0])
	if raw[stateInitOffset] != 0 {
		t.Error("Active account must not attach state init")
	}
}

func TestSender_RejectsInvalidAmount(t *testing.T) {
	sender := newTestSender(&stubAPI{})

	cases := []domain.TransferRequest{
		{Recipient: recipientAddr},                           // nil amount
		{Recipient: recipientAddr, Amount: big.NewInt(0)},    // zero
		{Recipient: recipientAddr, Amount: big.NewInt(-5)},   // negative
	}

	for _, req := range cases {
		if _, err := sender.EstimateFee(context.Background(), req); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Expected ErrInvalidAmount, got %v", err)
		}
		if err := sender.Send(context.Background(), req); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Expected ErrInvalidAmount, got %v", err)
		}
	}
}

func TestSender_SendMaxAllowsNilAmount(t *testing.T) {
	api := &stubAPI{seqno: 1, chainTime: 1_700_000_000}
	sender := newTestSender(api)

	req := domain.TransferRequest{Recipient: recipientAddr, SendMax: true}
	if err := sender.Send(context.Background(), req); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	raw := decodeBoc(t, api.submitted[0])
	payload := raw[signatureEnd:]
	sendMode := payload[12]
	if sendMode != SendModeMax {
		t.Errorf("Expected send mode %d, got %d", SendModeMax, sendMode)
	}
}

func TestSender_SendMaxRejectedForJettonTransfer(t *testing.T) {
	api := &stubAPI{seqno: 1, chainTime: 1_700_000_000}
	sender := newTestSender(api)

	req := domain.TransferRequest{Recipient: recipientAddr, SendMax: true, Jetton: &usdtMaster}

	if _, err := sender.EstimateFee(context.Background(), req); !errors.Is(err, ErrSendMaxJetton) {
		t.Errorf("Expected ErrSendMaxJetton from EstimateFee, got %v", err)
	}
	if err := sender.Send(context.Background(), req); !errors.Is(err, ErrSendMaxJetton) {
		t.Errorf("Expected ErrSendMaxJetton from Send, got %v", err)
	}
	if len(api.emulated) != 0 || len(api.submitted) != 0 {
		t.Error("A rejected transfer must never reach the chain API")
	}
}

func TestSender_JettonTransferTargetsJettonWallet(t *testing.T) {
	api := &stubAPI{seqno: 1, chainTime: 1_700_000_000}
	sender := newTestSender(api)

	req := domain.TransferRequest{
		Recipient: recipientAddr,
		Amount:    big.NewInt(42),
		Jetton:    &usdtMaster,
	}
	if err := sender.Send(context.Background(), req); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	raw := decodeBoc(t, api.submitted[0])
	payload := raw[signatureEnd:]

	// Payload: walletID(4) validUntil(4) seqno(4) sendMode(1) count(1),
	// then the first message's destination address (33 bytes).
	dest := payload[14 : 14+33]
	if int8(dest[0]) != usdtWallet.Workchain || !bytes.Equal(dest[1:], usdtWallet.Hash[:]) {
		t.Error("Jetton transfer must target the owner's jetton wallet contract")
	}
}

func TestSender_UnknownJettonRejected(t *testing.T) {
	sender := newTestSender(&stubAPI{})
	unknown := domain.MustParseAddress("0:9999999999999999999999999999999999999999999999999999999999999999")

	req := domain.TransferRequest{Recipient: recipientAddr, Amount: big.NewInt(1), Jetton: &unknown}
	if err := sender.Send(context.Background(), req); !errors.Is(err, ErrNoJettonWallet) {
		t.Errorf("Expected ErrNoJettonWallet, got %v", err)
	}
}

func TestSender_LocalClockFallbackWhenChainTimeUnavailable(t *testing.T) {
	api := &stubAPI{seqno: 1, timeErr: errors.New("rawtime down")}
	sender := newTestSender(api)

	req := domain.TransferRequest{Recipient: recipientAddr, Amount: big.NewInt(1)}
	if err := sender.Send(context.Background(), req); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	raw := decodeBoc(t, api.submitted[0])
	payload := raw[signatureEnd:]
	validUntil := int64(binary.BigEndian.Uint32(payload[4:8]))

	// Derived from the local clock: roughly now + TTL.
	if validUntil < 1_700_000_000 {
		t.Errorf("Expected wall-clock based deadline, got %d", validUntil)
	}
}
