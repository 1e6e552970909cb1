package crypto

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ErrDeclined is returned by a TransactionSigner that refuses to sign. The
// orchestration layer treats it as a user decision, not a fault.
var ErrDeclined = errors.New("crypto: signer declined transaction")

// TransactionSigner signs assembled transactions. The production
// implementation holds a local key; tests and interactive wallets provide
// their own.
type TransactionSigner interface {
	// PublicKey returns the signing identity.
	PublicKey() solana.PublicKey

	// Sign adds the signer's signature to tx in place. Returning
	// ErrDeclined (possibly wrapped) aborts the operation without
	// treating it as a failure of the transaction itself.
	Sign(ctx context.Context, tx *solana.Transaction) error
}

// LocalSigner signs with an in-process ed25519 key.
type LocalSigner struct {
	key solana.PrivateKey
}

var _ TransactionSigner = (*LocalSigner)(nil)

// NewLocalSigner wraps an already-resolved private key.
func NewLocalSigner(key solana.PrivateKey) (*LocalSigner, error) {
	if len(key) == 0 {
		return nil, errors.New("crypto: empty private key")
	}
	return &LocalSigner{key: key}, nil
}

func (s *LocalSigner) PublicKey() solana.PublicKey {
	return s.key.PublicKey()
}

func (s *LocalSigner) Sign(_ context.Context, tx *solana.Transaction) error {
	_, err := tx.Sign(func(pk solana.PublicKey) *solana.PrivateKey {
		if pk.Equals(s.key.PublicKey()) {
			return &s.key
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("crypto/signer: signing transaction: %w", err)
	}
	return nil
}
