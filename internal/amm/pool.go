package amm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/stellarnova/limitorder/pkg/domain"
)

// feeMul/feeDen is the constant-product pool's 0.3% swap fee, the same
// 997/1000 multiplier used throughout the pack's AMM math (e.g.
// nulln0ne-uniswapv2-estimator's GetAmountOut).
var (
	feeMul = big.NewInt(997)
	feeDen = big.NewInt(1000)
)

// AdapterPool adapts Adapter's read-only reserve query into the
// contract.Pool interface the order engine invokes on execute, computing
// the swap output with the pool's constant-product formula instead of
// submitting a live chain transaction. A deployed venue's executeLimitOrder
// instead routes through a real cross-shard call to the pool contract;
// this stands in for that call in local development and tests, the same
// role internal/contract.fakePool plays in engine_test.go but wired to
// the actual Adapter instead of a scripted fixture.
type AdapterPool struct {
	adapter *Adapter
	pool    common.Address
}

// NewAdapterPool builds an AdapterPool quoting against pool through adapter.
func NewAdapterPool(adapter *Adapter, pool common.Address) *AdapterPool {
	return &AdapterPool{adapter: adapter, pool: pool}
}

// Swap reads current reserves, computes the output a fixed-input swap
// would receive net of the pool's fee, and reports a refund if the
// computed output would fall below minOut (standing in for the pool's
// own revert-on-insufficient-output behaviour).
func (p *AdapterPool) Swap(ctx context.Context, fromToken domain.TokenID, fromAmount *big.Int, toToken domain.TokenID, minOut *big.Int) (*big.Int, bool, error) {
	snapshot, err := p.adapter.GetReserves(ctx, p.pool, fromToken, toToken)
	if err != nil {
		return nil, false, err
	}

	amountInWithFee := new(big.Int).Mul(fromAmount, feeMul)
	numerator := new(big.Int).Mul(amountInWithFee, snapshot.ReserveTo)
	denominator := new(big.Int).Mul(snapshot.ReserveFrom, feeDen)
	denominator.Add(denominator, amountInWithFee)
	if denominator.Sign() == 0 {
		return nil, false, ErrPoolUnavailable
	}
	output := new(big.Int).Quo(numerator, denominator)

	if output.Cmp(minOut) < 0 {
		// Pool would revert; the reference on-chain pool instead refunds
		// the original input rather than reverting the whole transaction.
		return new(big.Int).Set(fromAmount), true, nil
	}

	return output, false, nil
}
