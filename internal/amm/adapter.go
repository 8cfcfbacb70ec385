// Package amm is the single dependency boundary on the external
// constant-product pool: reading reserves and building the fixed-input
// swap payload the order contract submits. Nothing else about the pool
// leaks past this package.
package amm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/stellarnova/limitorder/internal/tokenregistry"
	"github.com/stellarnova/limitorder/pkg/domain"
)

// ErrPoolUnavailable is returned by GetReserves on network/parse failure.
var ErrPoolUnavailable = errors.New("amm: pool unavailable")

const (
	getReservesSelector = "0902f1ac"
	token0Selector      = "0dfe1681"
	token1Selector      = "d21220a7"
)

const swapABIJSON = `[{"inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"}],"name":"swapExactTokensForTokens","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"nonpayable","type":"function"}]`

// contractCaller is the narrow read boundary Adapter needs from a chain
// client; Client satisfies it, and tests supply a fake instead of
// dialing a real RPC endpoint.
type contractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Adapter is the read/write boundary on a single configured pool. It is
// stateless except for network configuration — the caller owns
// pool-address configuration; the adapter never searches for pairs.
type Adapter struct {
	client   contractCaller
	registry *tokenregistry.Registry
	swapABI  abi.ABI
}

// NewAdapter builds an Adapter over client, looking up token addresses
// and decimals from registry.
func NewAdapter(client contractCaller, registry *tokenregistry.Registry) (*Adapter, error) {
	parsed, err := abi.JSON(strings.NewReader(swapABIJSON))
	if err != nil {
		return nil, fmt.Errorf("amm: parse swap ABI: %w", err)
	}
	return &Adapter{client: client, registry: registry, swapABI: parsed}, nil
}

// GetReserves reads current reserves for (fromToken, toToken) on pool,
// orienting them in the order's directional sense, and returns a
// PoolSnapshot carrying both tokens' decimals for downstream pricing.
func (a *Adapter) GetReserves(ctx context.Context, pool common.Address, fromToken, toToken domain.TokenID) (domain.PoolSnapshot, error) {
	fromInfo, err := a.registry.Lookup(fromToken)
	if err != nil {
		return domain.PoolSnapshot{}, fmt.Errorf("%w: %v", ErrPoolUnavailable, err)
	}
	toInfo, err := a.registry.Lookup(toToken)
	if err != nil {
		return domain.PoolSnapshot{}, fmt.Errorf("%w: %v", ErrPoolUnavailable, err)
	}

	token0, err := a.callAddress(ctx, pool, token0Selector)
	if err != nil {
		return domain.PoolSnapshot{}, fmt.Errorf("%w: token0: %v", ErrPoolUnavailable, err)
	}

	reserve0, reserve1, err := a.callReserves(ctx, pool)
	if err != nil {
		return domain.PoolSnapshot{}, fmt.Errorf("%w: %v", ErrPoolUnavailable, err)
	}

	reserveFrom, reserveTo := reserve0, reserve1
	if token0 != fromInfo.Address {
		reserveFrom, reserveTo = reserve1, reserve0
	}

	return domain.PoolSnapshot{
		ReserveFrom:  reserveFrom,
		ReserveTo:    reserveTo,
		DecimalsFrom: fromInfo.Decimals,
		DecimalsTo:   toInfo.Decimals,
	}, nil
}

// BuildSwapPayload produces the call payload that, submitted to the pool
// with an attached payment of fromAmount of fromToken, executes a
// fixed-input swap reverting unless the output is at least minOut.
func (a *Adapter) BuildSwapPayload(fromToken domain.TokenID, fromAmount *big.Int, toToken domain.TokenID, minOut *big.Int) ([]byte, error) {
	fromInfo, err := a.registry.Lookup(fromToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPoolUnavailable, err)
	}
	toInfo, err := a.registry.Lookup(toToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPoolUnavailable, err)
	}

	path := []common.Address{fromInfo.Address, toInfo.Address}

	payload, err := a.swapABI.Pack("swapExactTokensForTokens", fromAmount, minOut, path, fromInfo.Address)
	if err != nil {
		return nil, fmt.Errorf("amm: pack swap payload: %w", err)
	}
	return payload, nil
}

func (a *Adapter) callAddress(ctx context.Context, pool common.Address, selectorHex string) (common.Address, error) {
	data := common.Hex2Bytes(selectorHex)
	msg := ethereum.CallMsg{To: &pool, Data: data}

	result, err := a.client.CallContract(ctx, msg, nil)
	if err != nil {
		return common.Address{}, err
	}
	if len(result) < 32 {
		return common.Address{}, fmt.Errorf("short response: %d bytes", len(result))
	}
	return common.BytesToAddress(result[12:32]), nil
}

func (a *Adapter) callReserves(ctx context.Context, pool common.Address) (*big.Int, *big.Int, error) {
	data := common.Hex2Bytes(getReservesSelector)
	msg := ethereum.CallMsg{To: &pool, Data: data}

	result, err := a.client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, nil, err
	}
	if len(result) < 64 {
		return nil, nil, fmt.Errorf("short getReserves response: %d bytes", len(result))
	}

	reserve0 := new(big.Int).SetBytes(result[0:32])
	reserve1 := new(big.Int).SetBytes(result[32:64])
	return reserve0, reserve1, nil
}
