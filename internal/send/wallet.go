package send

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"

	"github.com/vietddude/tonkit/internal/core/domain"
)

// WalletAddress derives the basechain v4r2 wallet contract address for a
// public key. The derivation is deterministic: the same key always maps
// to the same address.
func WalletAddress(pub ed25519.PublicKey) domain.Address {
	buf := new(bytes.Buffer)
	buf.WriteString("wallet-v4r2")
	writeUint32(buf, walletID)
	buf.Write(pub)

	addr := domain.Address{Workchain: 0}
	addr.Hash = sha256.Sum256(buf.Bytes())
	return addr
}
