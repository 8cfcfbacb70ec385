// Package executor drives executeLimitOrder exactly when an order is
// triggerable: a single long-running sweep loop, an operator key, and a
// per-order cooldown, grounded on the same ticker+select daemon shape
// the rest of this module's predecessor used for its block-polling loop.
package executor

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/stellarnova/limitorder/pkg/domain"
)

// Signer holds the operator's private key and derives the address the
// contract checks against its configured executor.
type Signer struct {
	key     *ecdsa.PrivateKey
	address domain.Address
}

// LoadSigner reads a hex-encoded private key from path. Unlike an
// Ethereum EOA (Keccak256(pubkey)[12:], truncated to 20 bytes), this
// system's addresses are the full 32-byte hash, so the operator address
// is derived directly from Keccak256 with no truncation.
func LoadSigner(path string) (*Signer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("executor: read operator key: %w", err)
	}

	hexKey := strings.TrimSpace(string(raw))
	hexKey = strings.TrimPrefix(hexKey, "0x")

	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("executor: parse operator key: %w", err)
	}

	pubBytes := crypto.FromECDSAPub(&key.PublicKey)
	// FromECDSAPub includes the uncompressed-point prefix byte; drop it
	// before hashing, the same way go-ethereum's crypto.PubkeyToAddress
	// hashes a public key.
	hash := crypto.Keccak256(pubBytes[1:])

	return &Signer{
		key:     key,
		address: domain.BytesToAddress(hash),
	}, nil
}

// Address returns the operator's derived address.
func (s *Signer) Address() domain.Address {
	return s.address
}

// Sign produces a deterministic signature over payload using the
// operator key. The reference chain's transaction envelope and its
// signature scheme are outside this module's scope (see SPEC_FULL.md);
// this is the hook a real submitter would call before broadcasting.
func (s *Signer) Sign(payload []byte) ([]byte, error) {
	hash := crypto.Keccak256(payload)
	return crypto.Sign(hash, s.key)
}
