// Package domain holds the shared vocabulary of the limit-order engine:
// addresses, token identifiers, orders, pool snapshots and the events the
// contract emits. It is imported by every other package so that the
// pricing, AMM, contract and executor layers agree on one representation.
package domain

import (
	"encoding/hex"
	"fmt"
)

// AddressLength is the size of an address on the target chain. Unlike
// Ethereum's 20-byte addresses, this chain (modeled after MultiversX)
// uses 32-byte addresses, so go-ethereum's common.Address cannot be reused
// directly for contract-level identities.
const AddressLength = 32

// Address identifies an account: a contract owner, an order owner, or the
// configured executor.
type Address [AddressLength]byte

// ZeroAddress is the unset/sentinel address.
var ZeroAddress = Address{}

// BytesToAddress left-pads or truncates b to AddressLength bytes.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// Bytes returns a copy of the address bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a[:])
	return out
}

// Hex renders the address as a 0x-prefixed hex string.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) String() string {
	return a.Hex()
}

// IsZero reports whether a is the unset address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Equal reports whether a and b identify the same account.
func (a Address) Equal(b Address) bool {
	return a == b
}

// ParseAddress parses a 0x-prefixed or bare hex string into an Address.
func ParseAddress(s string) (Address, error) {
	if len(s) >= 2 && s[0:2] == "0x" {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("domain: invalid address %q: %w", s, err)
	}
	if len(b) != AddressLength {
		return Address{}, fmt.Errorf("domain: address %q has %d bytes, want %d", s, len(b), AddressLength)
	}
	var a Address
	copy(a[:], b)
	return a, nil
}
