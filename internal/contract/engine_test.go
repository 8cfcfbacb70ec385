package contract

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/stellarnova/limitorder/pkg/domain"
)

const (
	usdcToken  domain.TokenID = "USDC-012345"
	wegldToken domain.TokenID = "WEGLD-abcdef"
)

var (
	ownerAddr    = addrFromByte(1)
	executorAddr = addrFromByte(2)
	userAddr     = addrFromByte(3)
	strangerAddr = addrFromByte(4)
)

func addrFromByte(b byte) domain.Address {
	var a domain.Address
	a[31] = b
	return a
}

// fakePool answers Swap with a fixed script, standing in for the real
// AMM during contract tests. It records the arguments of its most
// recent call for assertions.
type fakePool struct {
	output   *big.Int
	refunded bool
	err      error

	lastFromToken  domain.TokenID
	lastFromAmount *big.Int
	lastToToken    domain.TokenID
	lastMinOut     *big.Int
}

func (p *fakePool) Swap(ctx context.Context, fromToken domain.TokenID, fromAmount *big.Int, toToken domain.TokenID, minOut *big.Int) (*big.Int, bool, error) {
	p.lastFromToken = fromToken
	p.lastFromAmount = fromAmount
	p.lastToToken = toToken
	p.lastMinOut = minOut
	return p.output, p.refunded, p.err
}

func newTestEngine(t *testing.T, feeBps uint64, pool Pool) (*Engine, *MemorySink) {
	t.Helper()
	sink := NewMemorySink()
	cfg := Config{
		Owner:           ownerAddr,
		Executor:        executorAddr,
		Pool:            common.HexToAddress("0xdead"),
		MaxSlippageBp:   2000,
		MinDuration:     time.Second,
		MaxDuration:     30 * 24 * time.Hour,
		ExecutionFeeBps: &feeBps,
	}
	e := New(cfg, pool, sink)
	t.Cleanup(e.Close)

	if err := e.WhitelistToken(ownerAddr, usdcToken); err != nil {
		t.Fatalf("whitelist USDC: %v", err)
	}
	if err := e.WhitelistToken(ownerAddr, wegldToken); err != nil {
		t.Fatalf("whitelist WEGLD: %v", err)
	}
	return e, sink
}

// TestScenarioS1HappyPath mirrors the literal S1 numbers: 10 USDC at
// target price 0.155, pool returns 1.55 WEGLD, min_out is exactly
// 1.4725 WEGLD.
func TestScenarioS1HappyPath(t *testing.T) {
	pool := &fakePool{output: mustBig("1550000000000000000")}
	e, sink := newTestEngine(t, 0, pool)

	targetNum := mustBig("155000000000000")
	targetDenom := big.NewInt(1_000)
	fromAmount := big.NewInt(10_000_000)

	orderID, err := e.CreateLimitOrder(userAddr, usdcToken, fromAmount, wegldToken, targetNum, targetDenom, 500, 3600)
	if err != nil {
		t.Fatalf("CreateLimitOrder: %v", err)
	}

	currentNum := mustBig("155000000000000")
	currentDenom := big.NewInt(1_000)
	if err := e.ExecuteLimitOrder(executorAddr, orderID, currentNum, currentDenom); err != nil {
		t.Fatalf("ExecuteLimitOrder: %v", err)
	}
	<-e.Settled(orderID)

	wantMinOut := mustBig("1472500000000000000")
	if pool.lastMinOut.Cmp(wantMinOut) != 0 {
		t.Errorf("min_out passed to pool = %s, want %s", pool.lastMinOut, wantMinOut)
	}

	order, err := e.GetOrder(orderID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if order.Status != domain.StatusExecuted {
		t.Errorf("Status = %v, want Executed", order.Status)
	}

	events := sink.Events()
	last := events[len(events)-1]
	executed, ok := last.(domain.OrderExecuted)
	if !ok {
		t.Fatalf("last event = %T, want OrderExecuted", last)
	}
	if executed.OutputAmount.Cmp(mustBig("1550000000000000000")) != 0 {
		t.Errorf("OutputAmount = %s, want 1550000000000000000", executed.OutputAmount)
	}
}

// TestScenarioS2ExpiryNoTrigger: price never reaches target; expiry
// sweep refunds without any swap event.
func TestScenarioS2ExpiryNoTrigger(t *testing.T) {
	pool := &fakePool{output: big.NewInt(0)}
	e, sink := newTestEngine(t, 0, pool)
	e.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	orderID, err := e.CreateLimitOrder(userAddr, usdcToken, big.NewInt(10_000_000), wegldToken, big.NewInt(155), big.NewInt(1000), 500, 3600)
	if err != nil {
		t.Fatalf("CreateLimitOrder: %v", err)
	}

	e.now = func() time.Time { return time.Unix(1_700_000_000+3601, 0) }
	expired := e.ExpireOrders(10)
	if len(expired) != 1 || expired[0] != orderID {
		t.Fatalf("ExpireOrders = %v, want [%d]", expired, orderID)
	}

	order, err := e.GetOrder(orderID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if order.Status != domain.StatusExpired {
		t.Errorf("Status = %v, want Expired", order.Status)
	}

	for _, ev := range sink.Events() {
		if _, ok := ev.(domain.OrderExecuted); ok {
			t.Error("no swap event should be emitted on expiry")
		}
	}
}

// TestScenarioS3CancelThenCancelAgainFails covers user cancellation and
// the double-cancel Lifecycle rejection.
func TestScenarioS3CancelThenCancelAgainFails(t *testing.T) {
	pool := &fakePool{}
	e, _ := newTestEngine(t, 0, pool)

	orderID, err := e.CreateLimitOrder(userAddr, usdcToken, big.NewInt(10_000_000), wegldToken, big.NewInt(155), big.NewInt(1000), 500, 3600)
	if err != nil {
		t.Fatalf("CreateLimitOrder: %v", err)
	}

	if err := e.CancelLimitOrder(userAddr, orderID); err != nil {
		t.Fatalf("CancelLimitOrder: %v", err)
	}
	order, _ := e.GetOrder(orderID)
	if order.Status != domain.StatusCancelled {
		t.Errorf("Status = %v, want Cancelled", order.Status)
	}

	err = e.CancelLimitOrder(userAddr, orderID)
	cerr, ok := err.(*Error)
	if !ok || cerr.Kind != KindLifecycle {
		t.Errorf("second cancel: err = %v, want Lifecycle error", err)
	}
}

// TestScenarioS4PoolRefund covers the pool-refund path: order remains
// Pending, funds remain custodied (represented here by the order never
// leaving the pending index), and an OrderExecutionFailed is emitted.
func TestScenarioS4PoolRefund(t *testing.T) {
	pool := &fakePool{refunded: true, output: big.NewInt(10_000_000)}
	e, sink := newTestEngine(t, 0, pool)

	orderID, err := e.CreateLimitOrder(userAddr, usdcToken, big.NewInt(10_000_000), wegldToken, mustBig("155000000000000"), big.NewInt(1000), 500, 3600)
	if err != nil {
		t.Fatalf("CreateLimitOrder: %v", err)
	}

	if err := e.ExecuteLimitOrder(executorAddr, orderID, mustBig("155000000000000"), big.NewInt(1000)); err != nil {
		t.Fatalf("ExecuteLimitOrder: %v", err)
	}
	<-e.Settled(orderID)

	order, _ := e.GetOrder(orderID)
	if order.Status != domain.StatusPending {
		t.Errorf("Status = %v, want Pending", order.Status)
	}

	pendingIDs := e.GetPendingOrders()
	found := false
	for _, o := range pendingIDs {
		if o.OrderID == orderID {
			found = true
		}
	}
	if !found {
		t.Error("order should still be in the pending index after a pool refund")
	}

	events := sink.Events()
	last := events[len(events)-1]
	if _, ok := last.(domain.OrderExecutionFailed); !ok {
		t.Fatalf("last event = %T, want OrderExecutionFailed", last)
	}
}

// TestScenarioS5NonExecutorRejected: a non-operator caller cannot invoke
// execute, and no state changes.
func TestScenarioS5NonExecutorRejected(t *testing.T) {
	pool := &fakePool{output: mustBig("1550000000000000000")}
	e, _ := newTestEngine(t, 0, pool)

	orderID, err := e.CreateLimitOrder(userAddr, usdcToken, big.NewInt(10_000_000), wegldToken, mustBig("155000000000000"), big.NewInt(1000), 500, 3600)
	if err != nil {
		t.Fatalf("CreateLimitOrder: %v", err)
	}

	err = e.ExecuteLimitOrder(strangerAddr, orderID, mustBig("155000000000000"), big.NewInt(1000))
	cerr, ok := err.(*Error)
	if !ok || cerr.Kind != KindValidation {
		t.Fatalf("err = %v, want Validation error", err)
	}

	order, _ := e.GetOrder(orderID)
	if order.Status != domain.StatusPending {
		t.Errorf("Status = %v, want unchanged Pending", order.Status)
	}
}

// TestScenarioS6PausedContract: create and execute are rejected while
// paused, cancel still succeeds and refunds.
func TestScenarioS6PausedContract(t *testing.T) {
	pool := &fakePool{output: mustBig("1550000000000000000")}
	e, _ := newTestEngine(t, 0, pool)

	orderID, err := e.CreateLimitOrder(userAddr, usdcToken, big.NewInt(10_000_000), wegldToken, mustBig("155000000000000"), big.NewInt(1000), 500, 3600)
	if err != nil {
		t.Fatalf("CreateLimitOrder: %v", err)
	}

	if err := e.SetPaused(ownerAddr, true); err != nil {
		t.Fatalf("SetPaused: %v", err)
	}

	if _, err := e.CreateLimitOrder(userAddr, usdcToken, big.NewInt(1), wegldToken, big.NewInt(1), big.NewInt(1), 0, 3600); err != ErrContractPaused {
		t.Errorf("CreateLimitOrder while paused: err = %v, want ErrContractPaused", err)
	}

	if err := e.ExecuteLimitOrder(executorAddr, orderID, mustBig("155000000000000"), big.NewInt(1000)); err != ErrContractPaused {
		t.Errorf("ExecuteLimitOrder while paused: err = %v, want ErrContractPaused", err)
	}

	if err := e.CancelLimitOrder(userAddr, orderID); err != nil {
		t.Fatalf("CancelLimitOrder while paused: %v", err)
	}
	order, _ := e.GetOrder(orderID)
	if order.Status != domain.StatusCancelled {
		t.Errorf("Status = %v, want Cancelled", order.Status)
	}
}

func TestCreateLimitOrderValidation(t *testing.T) {
	pool := &fakePool{}
	e, _ := newTestEngine(t, 0, pool)

	cases := []struct {
		name        string
		fromToken   domain.TokenID
		fromAmount  *big.Int
		toToken     domain.TokenID
		targetNum   *big.Int
		targetDenom *big.Int
		slippageBp  uint64
		durationS   uint64
		wantErr     error
	}{
		{"same token", usdcToken, big.NewInt(1), usdcToken, big.NewInt(1), big.NewInt(1), 0, 3600, ErrSameToken},
		{"not whitelisted", "UNKNOWN", big.NewInt(1), wegldToken, big.NewInt(1), big.NewInt(1), 0, 3600, ErrTokenNotWhitelisted},
		{"zero amount", usdcToken, big.NewInt(0), wegldToken, big.NewInt(1), big.NewInt(1), 0, 3600, ErrInvalidAmount},
		{"slippage too high", usdcToken, big.NewInt(1), wegldToken, big.NewInt(1), big.NewInt(1), 5000, 3600, ErrSlippageTooHigh},
		{"duration too short", usdcToken, big.NewInt(1), wegldToken, big.NewInt(1), big.NewInt(1), 0, 0, ErrInvalidDuration},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.CreateLimitOrder(userAddr, tc.fromToken, tc.fromAmount, tc.toToken, tc.targetNum, tc.targetDenom, tc.slippageBp, tc.durationS)
			if err != tc.wantErr {
				t.Errorf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestCreateLimitOrderTargetDenomZeroRejected(t *testing.T) {
	pool := &fakePool{}
	e, _ := newTestEngine(t, 0, pool)
	_, err := e.CreateLimitOrder(userAddr, usdcToken, big.NewInt(1), wegldToken, big.NewInt(1), big.NewInt(0), 0, 3600)
	if err == nil {
		t.Fatal("expected an error for target_denom = 0")
	}
	cerr, ok := err.(*Error)
	if !ok || cerr.Kind != KindArithmetic {
		t.Errorf("err = %v, want Arithmetic error", err)
	}
}

func TestOrderIDsMonotonicallyIncreasing(t *testing.T) {
	pool := &fakePool{}
	e, _ := newTestEngine(t, 0, pool)

	var last uint64
	for i := 0; i < 5; i++ {
		id, err := e.CreateLimitOrder(userAddr, usdcToken, big.NewInt(1), wegldToken, big.NewInt(1), big.NewInt(1), 0, 3600)
		if err != nil {
			t.Fatalf("CreateLimitOrder: %v", err)
		}
		if id <= last {
			t.Fatalf("order_id %d did not increase past %d", id, last)
		}
		last = id
	}
}

func TestExecutionFeeAppliedToUserPayout(t *testing.T) {
	pool := &fakePool{output: big.NewInt(1_000_000)}
	e, sink := newTestEngine(t, 100, pool) // 1% fee

	orderID, err := e.CreateLimitOrder(userAddr, usdcToken, big.NewInt(1_000_000), wegldToken, big.NewInt(1), big.NewInt(1), 0, 3600)
	if err != nil {
		t.Fatalf("CreateLimitOrder: %v", err)
	}
	if err := e.ExecuteLimitOrder(executorAddr, orderID, big.NewInt(1), big.NewInt(1)); err != nil {
		t.Fatalf("ExecuteLimitOrder: %v", err)
	}
	<-e.Settled(orderID)

	events := sink.Events()
	executed := events[len(events)-1].(domain.OrderExecuted)
	want := big.NewInt(990_000) // 1_000_000 - 1%
	if executed.OutputAmount.Cmp(want) != 0 {
		t.Errorf("OutputAmount = %s, want %s", executed.OutputAmount, want)
	}
}

func mustBig(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad test fixture: " + s)
	}
	return n
}
