// Package contract implements the order book's custody and lifecycle:
// the on-chain half of the venue, reproduced in-process. Every endpoint
// invocation here corresponds to a single atomic transaction from the
// spec's point of view; Engine.mu stands in for the host chain's
// per-account serialization, since Go gives no such guarantee for free.
//
// executeLimitOrder's pool call is asynchronous across shards on the
// reference chain: the result arrives in a separate, later transaction.
// This is reproduced with a goroutine that performs the swap and a
// single callback-processing goroutine that owns the one place
// Pending -> Executed happens, exactly as the spec requires.
package contract

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/stellarnova/limitorder/internal/pricing"
	"github.com/stellarnova/limitorder/pkg/domain"
)

const (
	defaultExecutionFeeBps = 10
	maxExecutionFeeBps     = 500
	basisPointDenominator  = 10_000
)

// Pool is the contract's only view of the external AMM: a fixed-input
// swap that either returns an output amount or a refund of the original
// input. cmd/executor wires internal/amm.AdapterPool here (or a stand-in
// whose every swap fails when no AMM endpoint is configured); tests
// supply a deterministic fake.
type Pool interface {
	Swap(ctx context.Context, fromToken domain.TokenID, fromAmount *big.Int, toToken domain.TokenID, minOut *big.Int) (output *big.Int, refunded bool, err error)
}

// Config carries the contract's owner-configured, init-time settings.
type Config struct {
	Owner           domain.Address
	Executor        domain.Address
	Pool            common.Address
	MaxSlippageBp   uint64
	MinDuration     time.Duration
	MaxDuration     time.Duration

	// ExecutionFeeBps overrides the default execution fee. A nil pointer
	// means "unset, apply defaultExecutionFeeBps" — a uint64 alone cannot
	// tell an explicit zero fee apart from a caller that never set the
	// field at all.
	ExecutionFeeBps *uint64
}

type swapExecutionContext struct {
	orderID      uint64
	owner        domain.Address
	fromToken    domain.TokenID
	fromAmount   *big.Int
	toToken      domain.TokenID
	minOut       *big.Int
	currentNum   *big.Int
	currentDenom *big.Int
}

type swapResult struct {
	orderID  uint64
	output   *big.Int
	refunded bool
	err      error
}

// Engine is the order book's custody and state machine, holding
// configuration cells (owner, executor, pool, paused, max slippage,
// execution fee) with single-writer discipline enforced by mu.
type Engine struct {
	mu sync.Mutex

	owner           domain.Address
	executor        domain.Address
	poolAddr        common.Address
	paused          bool
	maxSlippageBp   uint64
	minDuration     time.Duration
	maxDuration     time.Duration
	executionFeeBps uint64

	whitelisted map[domain.TokenID]bool
	orders      map[uint64]*domain.Order
	pending     map[uint64]struct{}
	userOrders  map[domain.Address][]uint64
	nextOrderID uint64

	pendingSwaps      map[uint64]*swapExecutionContext
	pendingSettlement map[uint64]chan struct{}

	pool Pool
	sink EventSink

	resultCh chan swapResult
	closeCh  chan struct{}
	wg       sync.WaitGroup

	now func() time.Time
}

// New builds an Engine and starts its single callback-processing
// goroutine. Close must be called to stop it.
func New(cfg Config, pool Pool, sink EventSink) *Engine {
	feeBps := uint64(defaultExecutionFeeBps)
	if cfg.ExecutionFeeBps != nil {
		feeBps = *cfg.ExecutionFeeBps
	}
	if feeBps > maxExecutionFeeBps {
		feeBps = maxExecutionFeeBps
	}

	e := &Engine{
		owner:             cfg.Owner,
		executor:          cfg.Executor,
		poolAddr:          cfg.Pool,
		maxSlippageBp:     cfg.MaxSlippageBp,
		minDuration:       cfg.MinDuration,
		maxDuration:       cfg.MaxDuration,
		executionFeeBps:   feeBps,
		whitelisted:       make(map[domain.TokenID]bool),
		orders:            make(map[uint64]*domain.Order),
		pending:           make(map[uint64]struct{}),
		userOrders:        make(map[domain.Address][]uint64),
		nextOrderID:       1,
		pendingSwaps:      make(map[uint64]*swapExecutionContext),
		pendingSettlement: make(map[uint64]chan struct{}),
		pool:              pool,
		sink:              sink,
		resultCh:          make(chan swapResult, 32),
		closeCh:           make(chan struct{}),
		now:               time.Now,
	}

	e.wg.Add(1)
	go e.callbackLoop()

	return e
}

// Close stops the callback-processing goroutine, waiting for it to
// drain. Swap results that have already arrived when Close is called are
// still processed; a swap whose result arrives after that is not, and
// its order stays Pending.
func (e *Engine) Close() {
	close(e.closeCh)
	e.wg.Wait()
}

func (e *Engine) callbackLoop() {
	defer e.wg.Done()
	for {
		select {
		case res := <-e.resultCh:
			e.handleSwapResult(res)
		case <-e.closeCh:
			// Drain whatever already landed in the channel before
			// exiting, so a shutdown never leaves an order's callback
			// silently undelivered.
			for {
				select {
				case res := <-e.resultCh:
					e.handleSwapResult(res)
				default:
					return
				}
			}
		}
	}
}

// WhitelistToken admits tok as an allowed from_token/to_token.
func (e *Engine) WhitelistToken(caller domain.Address, tok domain.TokenID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return ErrNotOwner
	}
	e.whitelisted[tok] = true
	return nil
}

// RemoveToken revokes tok's whitelist status.
func (e *Engine) RemoveToken(caller domain.Address, tok domain.TokenID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return ErrNotOwner
	}
	delete(e.whitelisted, tok)
	return nil
}

// SetPaused toggles the paused configuration cell.
func (e *Engine) SetPaused(caller domain.Address, paused bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return ErrNotOwner
	}
	e.paused = paused
	return nil
}

// SetMaxSlippage updates the upper bound applied on create.
func (e *Engine) SetMaxSlippage(caller domain.Address, bp uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return ErrNotOwner
	}
	e.maxSlippageBp = bp
	return nil
}

// SetExecutor updates the single address authorised to call
// ExecuteLimitOrder.
func (e *Engine) SetExecutor(caller, executor domain.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return ErrNotOwner
	}
	e.executor = executor
	return nil
}

// SetPool updates the recorded pool address. This is bookkeeping only —
// the single-pair design routes every swap through the Pool
// implementation Engine was constructed with; a live router swap is
// future work, not modeled here.
func (e *Engine) SetPool(caller domain.Address, pool common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return ErrNotOwner
	}
	e.poolAddr = pool
	return nil
}

// SetExecutionFeeBps updates the fee taken from swap output before the
// user is paid, capped at maxExecutionFeeBps.
func (e *Engine) SetExecutionFeeBps(caller domain.Address, bps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return ErrNotOwner
	}
	if bps > maxExecutionFeeBps {
		return newError(KindValidation, "execution fee exceeds maximum of %d bp", maxExecutionFeeBps)
	}
	e.executionFeeBps = bps
	return nil
}

// CreateLimitOrder allocates a new order and custodies fromAmount of
// fromToken, atomically with validation, exactly as createLimitOrder's
// single transaction does on-chain.
func (e *Engine) CreateLimitOrder(caller domain.Address, fromToken domain.TokenID, fromAmount *big.Int, toToken domain.TokenID, targetNum, targetDenom *big.Int, slippageBp, durationS uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused {
		return 0, ErrContractPaused
	}
	if fromToken == toToken {
		return 0, ErrSameToken
	}
	if !e.whitelisted[fromToken] || !e.whitelisted[toToken] {
		return 0, ErrTokenNotWhitelisted
	}
	if fromAmount == nil || fromAmount.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}
	if targetDenom == nil || targetDenom.Sign() <= 0 {
		return 0, newError(KindArithmetic, "target_denom must be positive")
	}
	if targetNum == nil || targetNum.Sign() <= 0 {
		return 0, newError(KindArithmetic, "target_num must be positive")
	}
	if slippageBp > e.maxSlippageBp {
		return 0, ErrSlippageTooHigh
	}
	duration := time.Duration(durationS) * time.Second
	if duration < e.minDuration || duration > e.maxDuration {
		return 0, ErrInvalidDuration
	}

	now := uint64(e.now().Unix())
	orderID := e.nextOrderID
	e.nextOrderID++

	order := &domain.Order{
		OrderID:     orderID,
		Owner:       caller,
		FromToken:   fromToken,
		FromAmount:  new(big.Int).Set(fromAmount),
		ToToken:     toToken,
		TargetNum:   new(big.Int).Set(targetNum),
		TargetDenom: new(big.Int).Set(targetDenom),
		SlippageBp:  slippageBp,
		ExpiresAt:   now + durationS,
		Status:      domain.StatusPending,
		CreatedAt:   now,
	}

	e.orders[orderID] = order
	e.pending[orderID] = struct{}{}
	e.userOrders[caller] = append(e.userOrders[caller], orderID)

	e.sink.Emit(domain.OrderCreated{
		OrderID:     orderID,
		Owner:       caller,
		FromToken:   fromToken,
		FromAmount:  new(big.Int).Set(fromAmount),
		ToToken:     toToken,
		TargetNum:   new(big.Int).Set(targetNum),
		TargetDenom: new(big.Int).Set(targetDenom),
		ExpiresAt:   order.ExpiresAt,
		Timestamp:   now,
	})

	return orderID, nil
}

// CancelLimitOrder refunds a Pending order to its owner and marks it
// Cancelled. A second call on the same order fails with Lifecycle and
// moves no tokens.
func (e *Engine) CancelLimitOrder(caller domain.Address, orderID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	if order.Owner != caller {
		return ErrNotOrderOwner
	}
	if order.Status != domain.StatusPending {
		return ErrOrderNotPending
	}

	order.Status = domain.StatusCancelled
	delete(e.pending, orderID)

	e.sink.Emit(domain.OrderCancelled{
		OrderID:    orderID,
		Owner:      order.Owner,
		FromToken:  order.FromToken,
		FromAmount: new(big.Int).Set(order.FromAmount),
		Timestamp:  uint64(e.now().Unix()),
	})

	return nil
}

// ExecuteLimitOrder rejects the call if the executor-supplied current
// price is above the order's stored target, computes min_out from the
// stored target — never from the current price — and starts the
// asynchronous swap. It returns as soon as the
// swap is accepted; the Pending -> Executed transition happens later in
// the callback. Use Settled to wait for that transition in tests.
func (e *Engine) ExecuteLimitOrder(caller domain.Address, orderID uint64, currentNum, currentDenom *big.Int) error {
	e.mu.Lock()

	if caller != e.executor {
		e.mu.Unlock()
		return ErrNotExecutor
	}
	if e.paused {
		e.mu.Unlock()
		return ErrContractPaused
	}
	order, ok := e.orders[orderID]
	if !ok {
		e.mu.Unlock()
		return ErrOrderNotFound
	}
	if order.Status != domain.StatusPending {
		e.mu.Unlock()
		return ErrOrderNotPending
	}
	now := uint64(e.now().Unix())
	if now >= order.ExpiresAt {
		e.mu.Unlock()
		return ErrOrderExpired
	}
	if currentDenom == nil || currentDenom.Sign() <= 0 {
		e.mu.Unlock()
		return newError(KindArithmetic, "current_denom must be positive")
	}
	if currentNum == nil || currentNum.Sign() < 0 {
		e.mu.Unlock()
		return newError(KindArithmetic, "current_num must be non-negative")
	}

	// p_current <= target  <=>  current_num*target_denom <= target_num*current_denom
	lhs := new(big.Int).Mul(currentNum, order.TargetDenom)
	rhs := new(big.Int).Mul(order.TargetNum, currentDenom)
	if lhs.Cmp(rhs) > 0 {
		e.mu.Unlock()
		return ErrPriceConditionNotMet
	}

	minOut, err := pricing.MinOut(order.FromAmount, order.TargetNum, order.TargetDenom, order.SlippageBp)
	if err != nil {
		e.mu.Unlock()
		return newError(KindArithmetic, "%v", err)
	}

	ctx := &swapExecutionContext{
		orderID:      orderID,
		owner:        order.Owner,
		fromToken:    order.FromToken,
		fromAmount:   new(big.Int).Set(order.FromAmount),
		toToken:      order.ToToken,
		minOut:       minOut,
		currentNum:   new(big.Int).Set(currentNum),
		currentDenom: new(big.Int).Set(currentDenom),
	}
	e.pendingSwaps[orderID] = ctx

	settled := make(chan struct{})
	e.pendingSettlement[orderID] = settled

	e.mu.Unlock()

	go e.performSwap(ctx)

	return nil
}

func (e *Engine) performSwap(ctx *swapExecutionContext) {
	output, refunded, err := e.pool.Swap(context.Background(), ctx.fromToken, ctx.fromAmount, ctx.toToken, ctx.minOut)
	e.resultCh <- swapResult{orderID: ctx.orderID, output: output, refunded: refunded, err: err}
}

func (e *Engine) handleSwapResult(res swapResult) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, ok := e.pendingSwaps[res.orderID]
	if !ok {
		return
	}
	delete(e.pendingSwaps, res.orderID)

	settled := e.pendingSettlement[res.orderID]
	delete(e.pendingSettlement, res.orderID)
	if settled != nil {
		defer close(settled)
	}

	order, ok := e.orders[res.orderID]
	if !ok {
		return
	}

	now := uint64(e.now().Unix())

	if res.err != nil || res.refunded || res.output == nil || res.output.Cmp(ctx.minOut) < 0 {
		var execErr *ExecutionFailedError
		switch {
		case res.err != nil:
			execErr = newExecutionFailedError("%s", res.err.Error())
		case res.refunded:
			execErr = newExecutionFailedError("pool refunded input")
		default:
			execErr = newExecutionFailedError("pool refused output below minimum")
		}
		// Order stays Pending; funds stay custodied; the executor will
		// retry after its cooldown. execErr never escapes to a
		// synchronous caller — only its Error() string does, as the
		// event's Reason.
		e.sink.Emit(domain.OrderExecutionFailed{
			OrderID:   res.orderID,
			Reason:    execErr.Error(),
			Timestamp: now,
		})
		return
	}

	fee := new(big.Int).Mul(res.output, big.NewInt(int64(e.executionFeeBps)))
	fee.Quo(fee, big.NewInt(basisPointDenominator))
	userAmount := new(big.Int).Sub(res.output, fee)

	order.Status = domain.StatusExecuted
	delete(e.pending, res.orderID)

	e.sink.Emit(domain.OrderExecuted{
		OrderID:      res.orderID,
		Owner:        ctx.owner,
		FromToken:    ctx.fromToken,
		FromAmount:   ctx.fromAmount,
		ToToken:      ctx.toToken,
		OutputAmount: userAmount,
		CurrentNum:   ctx.currentNum,
		CurrentDenom: ctx.currentDenom,
		Timestamp:    now,
	})
}

// Settled returns a channel that closes once orderID's in-flight swap
// callback has run. If no swap is in flight for orderID, it returns an
// already-closed channel.
func (e *Engine) Settled(orderID uint64) <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ch, ok := e.pendingSettlement[orderID]; ok {
		return ch
	}
	closed := make(chan struct{})
	close(closed)
	return closed
}

// ExpireOrders transitions up to limit Pending orders whose expiry has
// passed to Expired, refunding each to its owner. It is idempotent per
// order and may be called by anyone.
func (e *Engine) ExpireOrders(limit uint32) []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]uint64, 0, len(e.pending))
	for id := range e.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	now := uint64(e.now().Unix())
	var expired []uint64

	for _, id := range ids {
		if uint32(len(expired)) >= limit {
			break
		}
		order := e.orders[id]
		if now < order.ExpiresAt {
			continue
		}

		order.Status = domain.StatusExpired
		delete(e.pending, id)
		expired = append(expired, id)

		e.sink.Emit(domain.OrderExpired{
			OrderID:    id,
			Owner:      order.Owner,
			FromToken:  order.FromToken,
			FromAmount: new(big.Int).Set(order.FromAmount),
			Timestamp:  now,
		})
	}

	return expired
}

// GetOrder returns a deep copy of orderID's order.
func (e *Engine) GetOrder(orderID uint64) (*domain.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	order, ok := e.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return order.Clone(), nil
}

// GetPendingOrders returns a deep copy of every order still in Pending
// state; ordering is unspecified (callers must not rely on it).
func (e *Engine) GetPendingOrders() []*domain.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*domain.Order, 0, len(e.pending))
	for id := range e.pending {
		out = append(out, e.orders[id].Clone())
	}
	return out
}

// GetUserOrders returns every order_id ever created by addr, regardless
// of status.
func (e *Engine) GetUserOrders(addr domain.Address) []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := e.userOrders[addr]
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out
}

// GetPool returns the recorded pool address.
func (e *Engine) GetPool() common.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.poolAddr
}

// GetExecutor returns the configured executor address.
func (e *Engine) GetExecutor() domain.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.executor
}

// IsPaused reports the paused configuration cell.
func (e *Engine) IsPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// GetMaxSlippage returns the configured upper bound in basis points.
func (e *Engine) GetMaxSlippage() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxSlippageBp
}
