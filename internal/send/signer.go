package send

import "crypto/ed25519"

// Signer signs the transfer's signing payload. TON wallet signatures
// are plain ed25519 over the serialized signing message.
type Signer interface {
	Sign(message []byte) ([]byte, error)
}

// NullSigner emits an all-zero signature. Used for fee emulation, where
// the message must be byte-identical to the real one except for the
// signature bytes.
type NullSigner struct{}

func (NullSigner) Sign(message []byte) ([]byte, error) {
	return make([]byte, ed25519.SignatureSize), nil
}

// SecretKeySigner signs with the wallet's ed25519 secret key.
type SecretKeySigner struct {
	key ed25519.PrivateKey
}

func NewSecretKeySigner(key ed25519.PrivateKey) *SecretKeySigner {
	return &SecretKeySigner{key: key}
}

func (s *SecretKeySigner) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(s.key, message), nil
}
