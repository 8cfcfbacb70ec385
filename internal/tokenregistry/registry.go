// Package tokenregistry holds the small, process-configured mapping from
// a TokenID to the facts this system needs about it: how many decimals
// its base units carry, and which on-chain address represents it to the
// pool contract. Nothing here is derived from the TokenID string itself.
package tokenregistry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/stellarnova/limitorder/pkg/domain"
)

// ErrUnknownToken is returned when a TokenID has no registry entry.
var ErrUnknownToken = errors.New("tokenregistry: unknown token")

// TokenInfo is everything the registry knows about a token.
type TokenInfo struct {
	Decimals uint8
	Address  common.Address
}

// Registry is a concurrency-safe TokenID -> TokenInfo map, populated once
// at startup (see cmd/seed) and read frequently by the AMM adapter.
type Registry struct {
	mu     sync.RWMutex
	tokens map[domain.TokenID]TokenInfo
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{tokens: make(map[domain.TokenID]TokenInfo)}
}

// Register adds or replaces the entry for id.
func (r *Registry) Register(id domain.TokenID, info TokenInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[id] = info
}

// Remove deletes the entry for id, if present.
func (r *Registry) Remove(id domain.TokenID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, id)
}

// Lookup returns the registered info for id, or ErrUnknownToken.
func (r *Registry) Lookup(id domain.TokenID) (TokenInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.tokens[id]
	if !ok {
		return TokenInfo{}, ErrUnknownToken
	}
	return info, nil
}

// Decimals is a convenience wrapper returning just the decimals count.
func (r *Registry) Decimals(id domain.TokenID) (uint8, error) {
	info, err := r.Lookup(id)
	if err != nil {
		return 0, err
	}
	return info.Decimals, nil
}

// Tokens returns every registered TokenID, in no particular order.
func (r *Registry) Tokens() []domain.TokenID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.TokenID, 0, len(r.tokens))
	for id := range r.tokens {
		out = append(out, id)
	}
	return out
}

// Len reports how many tokens are currently registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens)
}

// entry is the on-disk shape of a single registry record.
type entry struct {
	TokenID  string `json:"token_id"`
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
}

// LoadFromFile populates a new Registry from a JSON array of
// {token_id, address, decimals} records, the config-file bootstrap path
// cmd/seed and cmd/executor both use in place of a live on-chain
// token-metadata query.
func LoadFromFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tokenregistry: read %s: %w", path, err)
	}

	var entries []entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("tokenregistry: parse %s: %w", path, err)
	}

	reg := New()
	for _, e := range entries {
		reg.Register(domain.TokenID(e.TokenID), TokenInfo{
			Decimals: e.Decimals,
			Address:  common.HexToAddress(e.Address),
		})
	}
	return reg, nil
}

// SaveToFile writes the registry's current contents to path in the same
// shape LoadFromFile reads (the same shape cmd/seed writes with its own
// encoder).
func (r *Registry) SaveToFile(path string) error {
	r.mu.RLock()
	entries := make([]entry, 0, len(r.tokens))
	for id, info := range r.tokens {
		entries = append(entries, entry{
			TokenID:  string(id),
			Address:  info.Address.Hex(),
			Decimals: info.Decimals,
		})
	}
	r.mu.RUnlock()

	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenregistry: marshal: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("tokenregistry: write %s: %w", path, err)
	}
	return nil
}
