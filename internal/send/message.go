package send

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"math/big"

	"github.com/vietddude/tonkit/internal/core/domain"
)

// Send modes of the wallet contract.
const (
	// SendModeDefault pays fees separately and ignores no errors.
	SendModeDefault uint8 = 3

	// SendModeMax carries the full remaining balance of the wallet,
	// draining it instead of sending a fixed value.
	SendModeMax uint8 = 130
)

const (
	// walletID is the v4r2 wallet contract subwallet identifier.
	walletID uint32 = 698983191

	// jettonTransferOp is the TEP-74 jetton transfer opcode.
	jettonTransferOp uint32 = 0x0f8a7ea5

	// jettonTransferValue is the native value attached to a jetton
	// transfer message to cover the token wallet's processing fees.
	jettonTransferValue int64 = 50_000_000

	externalMessageMagic uint32 = 0x7e8764ef
)

// InternalMessage is one value-bearing message carried inside the
// external transfer. Payload is the opaque serialized message body.
type InternalMessage struct {
	Dest    domain.Address
	Value   *big.Int
	Bounce  bool
	Payload []byte
}

// NativeTransferMessage builds a native coin transfer with an optional
// text comment body.
func NativeTransferMessage(recipient domain.Address, value *big.Int, bounce bool, comment string) InternalMessage {
	var payload []byte
	if comment != "" {
		payload = commentPayload(comment)
	}

	return InternalMessage{
		Dest:    recipient,
		Value:   value,
		Bounce:  bounce,
		Payload: payload,
	}
}

// JettonTransferMessage builds a token transfer instruction addressed to
// the sender's jetton wallet contract. Excess value and the optional
// comment are routed back to responseTo.
func JettonTransferMessage(jettonWallet domain.Address, amount *big.Int, recipient, responseTo domain.Address, bounce bool, comment string) InternalMessage {
	buf := new(bytes.Buffer)
	writeUint32(buf, jettonTransferOp)
	writeUint64(buf, 0) // query id
	writeBigInt(buf, amount)
	writeAddress(buf, recipient)
	writeAddress(buf, responseTo)
	writeBytes(buf, commentPayload(comment))

	return InternalMessage{
		Dest:    jettonWallet,
		Value:   big.NewInt(jettonTransferValue),
		Bounce:  bounce,
		Payload: buf.Bytes(),
	}
}

// commentPayload is the text-comment body: a zero opcode followed by
// the UTF-8 comment bytes.
func commentPayload(comment string) []byte {
	buf := new(bytes.Buffer)
	writeUint32(buf, 0)
	buf.WriteString(comment)
	return buf.Bytes()
}

// UnsignedTransfer is a fully resolved external transfer awaiting a
// signature: sequence number, validity deadline, send mode and the
// internal messages to carry.
type UnsignedTransfer struct {
	Sender     domain.Address
	Seqno      uint64
	ValidUntil uint64
	SendMode   uint8
	Messages   []InternalMessage

	// StateInit attaches the wallet contract deployment data, required
	// when the account is still uninitialized.
	StateInit bool
}

// SigningPayload serializes the signed portion of the transfer. The
// layout is deterministic, so emulation and submission of the same
// transfer produce identical bytes here.
func (t *UnsignedTransfer) SigningPayload() []byte {
	buf := new(bytes.Buffer)
	writeUint32(buf, walletID)
	writeUint32(buf, uint32(t.ValidUntil))
	writeUint32(buf, uint32(t.Seqno))
	buf.WriteByte(t.SendMode)

	buf.WriteByte(byte(len(t.Messages)))
	for _, msg := range t.Messages {
		writeAddress(buf, msg.Dest)
		writeBigInt(buf, msg.Value)
		if msg.Bounce {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		writeBytes(buf, msg.Payload)
	}

	return buf.Bytes()
}

// ExternalMessage wraps the signing payload and its signature into the
// broadcastable envelope. Only the signature bytes differ between an
// emulated and a submitted copy of the same transfer.
func (t *UnsignedTransfer) ExternalMessage(signature []byte) []byte {
	buf := new(bytes.Buffer)
	writeUint32(buf, externalMessageMagic)
	writeAddress(buf, t.Sender)
	if t.StateInit {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	writeBytes(buf, signature)
	buf.Write(t.SigningPayload())
	return buf.Bytes()
}

// Boc returns the base64 wire form submitted to the chain API.
func (t *UnsignedTransfer) Boc(signature []byte) string {
	return base64.StdEncoding.EncodeToString(t.ExternalMessage(signature))
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	_ = binary.Write(buf, binary.BigEndian, v)
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	_ = binary.Write(buf, binary.BigEndian, v)
}

func writeAddress(buf *bytes.Buffer, addr domain.Address) {
	buf.WriteByte(byte(addr.Workchain))
	buf.Write(addr.Hash[:])
}

func writeBigInt(buf *bytes.Buffer, v *big.Int) {
	// A nil value (send-max drains the balance) encodes as zero.
	if v == nil {
		writeBytes(buf, nil)
		return
	}
	writeBytes(buf, v.Bytes())
}

func writeBytes(buf *bytes.Buffer, data []byte) {
	writeUint32(buf, uint32(len(data)))
	buf.Write(data)
}
