package executor

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/stellarnova/limitorder/internal/config"
	"github.com/stellarnova/limitorder/internal/output"
	"github.com/stellarnova/limitorder/pkg/domain"
)

type fakeContractClient struct {
	mu          sync.Mutex
	pending     []*domain.Order
	executeErr  error
	executeCalls []struct {
		orderID             uint64
		currentNum, currentDenom *big.Int
	}
}

func (f *fakeContractClient) GetPendingOrders(ctx context.Context) ([]*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.Order, len(f.pending))
	copy(out, f.pending)
	return out, nil
}

func (f *fakeContractClient) GetOrder(ctx context.Context, orderID uint64) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.pending {
		if o.OrderID == orderID {
			return o.Clone(), nil
		}
	}
	return nil, ErrNotFoundForTest
}

func (f *fakeContractClient) ExecuteLimitOrder(ctx context.Context, orderID uint64, currentNum, currentDenom *big.Int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executeCalls = append(f.executeCalls, struct {
		orderID                  uint64
		currentNum, currentDenom *big.Int
	}{orderID, currentNum, currentDenom})
	return f.executeErr
}

func (f *fakeContractClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.executeCalls)
}

// ErrNotFoundForTest stands in for the contract's order-not-found error.
var ErrNotFoundForTest = &testError{"order not found"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }

type fakeAMMClient struct {
	reserveFrom, reserveTo     *big.Int
	decimalsFrom, decimalsTo   uint8
	err                        error
}

func (f *fakeAMMClient) GetReserves(ctx context.Context, pool common.Address, fromToken, toToken domain.TokenID) (domain.PoolSnapshot, error) {
	if f.err != nil {
		return domain.PoolSnapshot{}, f.err
	}
	return domain.PoolSnapshot{
		ReserveFrom:  f.reserveFrom,
		ReserveTo:    f.reserveTo,
		DecimalsFrom: f.decimalsFrom,
		DecimalsTo:   f.decimalsTo,
	}, nil
}

func testLogger() *output.Logger {
	return output.NewLogger(config.LoggingConfig{Level: "error", Format: "console"})
}

func sampleOrder(id uint64, expiresIn time.Duration) *domain.Order {
	return &domain.Order{
		OrderID:     id,
		Owner:       domain.Address{},
		FromToken:   "USDC-012345",
		FromAmount:  big.NewInt(10_000_000),
		ToToken:     "WEGLD-abcdef",
		TargetNum:   big.NewInt(155_000_000_000_000),
		TargetDenom: big.NewInt(1_000),
		SlippageBp:  500,
		ExpiresAt:   uint64(time.Now().Add(expiresIn).Unix()),
		Status:      domain.StatusPending,
		CreatedAt:   uint64(time.Now().Unix()),
	}
}

func TestSweepTriggersOnPriceAtOrBelowTarget(t *testing.T) {
	contract := &fakeContractClient{pending: []*domain.Order{sampleOrder(1, time.Hour)}}
	amm := &fakeAMMClient{
		reserveFrom:  big.NewInt(1_000_000_000_000),
		reserveTo:    mustBigT("154000000000000000000"),
		decimalsFrom: 6,
		decimalsTo:   18,
	}

	e := New(contract, amm, nil, testLogger(), Config{
		CheckInterval: time.Hour,
		Cooldown:      5 * time.Minute,
		RPCTimeout:    time.Second,
	})

	e.sweepOnce(context.Background())

	if contract.callCount() != 1 {
		t.Fatalf("ExecuteLimitOrder calls = %d, want 1", contract.callCount())
	}
}

func TestSweepDoesNotTriggerAbovePrice(t *testing.T) {
	contract := &fakeContractClient{pending: []*domain.Order{sampleOrder(1, time.Hour)}}
	amm := &fakeAMMClient{
		reserveFrom:  big.NewInt(1_000_000_000), // 1000 USDC
		reserveTo:    mustBigT("160000000000000000000"), // spot 0.160 > target 0.155
		decimalsFrom: 6,
		decimalsTo:   18,
	}

	e := New(contract, amm, nil, testLogger(), Config{
		CheckInterval: time.Hour,
		Cooldown:      5 * time.Minute,
		RPCTimeout:    time.Second,
	})

	e.sweepOnce(context.Background())

	if contract.callCount() != 0 {
		t.Fatalf("ExecuteLimitOrder calls = %d, want 0", contract.callCount())
	}
}

func TestSweepSkipsDuringCooldown(t *testing.T) {
	contract := &fakeContractClient{pending: []*domain.Order{sampleOrder(1, time.Hour)}}
	amm := &fakeAMMClient{
		reserveFrom:  big.NewInt(1_000_000_000_000),
		reserveTo:    mustBigT("154000000000000000000"),
		decimalsFrom: 6,
		decimalsTo:   18,
	}

	e := New(contract, amm, nil, testLogger(), Config{
		CheckInterval: time.Hour,
		Cooldown:      5 * time.Minute,
		RPCTimeout:    time.Second,
	})

	e.sweepOnce(context.Background())
	e.sweepOnce(context.Background())

	if got := contract.callCount(); got != 1 {
		t.Fatalf("ExecuteLimitOrder calls across two sweeps within cooldown = %d, want 1", got)
	}
}

func TestSweepSkipsExpiredOrder(t *testing.T) {
	contract := &fakeContractClient{pending: []*domain.Order{sampleOrder(1, -time.Hour)}}
	amm := &fakeAMMClient{
		reserveFrom:  big.NewInt(1_000_000_000_000),
		reserveTo:    mustBigT("154000000000000000000"),
		decimalsFrom: 6,
		decimalsTo:   18,
	}

	e := New(contract, amm, nil, testLogger(), Config{
		CheckInterval: time.Hour,
		Cooldown:      5 * time.Minute,
		RPCTimeout:    time.Second,
	})

	e.sweepOnce(context.Background())

	if contract.callCount() != 0 {
		t.Fatalf("ExecuteLimitOrder calls = %d, want 0 for an expired order", contract.callCount())
	}
}

func TestClearCooldownAllowsImmediateRetry(t *testing.T) {
	contract := &fakeContractClient{pending: []*domain.Order{sampleOrder(1, time.Hour)}}
	amm := &fakeAMMClient{
		reserveFrom:  big.NewInt(1_000_000_000_000),
		reserveTo:    mustBigT("154000000000000000000"),
		decimalsFrom: 6,
		decimalsTo:   18,
	}

	e := New(contract, amm, nil, testLogger(), Config{
		CheckInterval: time.Hour,
		Cooldown:      5 * time.Minute,
		RPCTimeout:    time.Second,
	})

	e.sweepOnce(context.Background())
	e.ClearAllCooldowns()
	e.sweepOnce(context.Background())

	if got := contract.callCount(); got != 2 {
		t.Fatalf("ExecuteLimitOrder calls after ClearAllCooldowns = %d, want 2", got)
	}
}

func mustBigT(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad test fixture: " + s)
	}
	return n
}
