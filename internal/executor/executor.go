package executor

import (
	"context"
	"math"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/stellarnova/limitorder/internal/output"
	"github.com/stellarnova/limitorder/internal/pricing"
	"github.com/stellarnova/limitorder/pkg/domain"
)

// StatusSnapshot is the read model the status API serves. The sweep loop
// swaps a new one in atomically once per sweep; nothing holds a lock
// across both the sweep and an HTTP read.
type StatusSnapshot struct {
	Running         bool
	OperatorAddress string
	CheckIntervalMs int64
	CooldownMs      int64
	AttemptedCount  uint64
	ContractAddress string
}

// ContractClient is everything the executor needs from the order
// contract. Every method here corresponds to an RPC in production; a
// local/dev wiring can satisfy it directly over an in-process Engine.
type ContractClient interface {
	GetPendingOrders(ctx context.Context) ([]*domain.Order, error)
	GetOrder(ctx context.Context, orderID uint64) (*domain.Order, error)
	ExecuteLimitOrder(ctx context.Context, orderID uint64, currentNum, currentDenom *big.Int) error
}

// AMMClient is everything the executor needs from the AMM adapter.
type AMMClient interface {
	GetReserves(ctx context.Context, pool common.Address, fromToken, toToken domain.TokenID) (domain.PoolSnapshot, error)
}

// Config carries the executor's own tunables (SPEC_FULL.md §6).
type Config struct {
	CheckInterval time.Duration
	Cooldown      time.Duration
	Pool          common.Address
	RPCTimeout    time.Duration

	// PollAttempts/PollInterval bound confirmation polling after a
	// submit, per the ~20 polls x 3s budget in SPEC_FULL.md §5. Zero
	// PollAttempts disables polling: the submit is treated as fire-
	// and-forget, and the cooldown entry is left for the next sweep to
	// resolve naturally (the order simply stops appearing once
	// executed).
	PollAttempts int
	PollInterval time.Duration

	ContractAddress string
}

// Executor is the long-running process that polls the contract for
// pending orders, asks the AMM for current price, decides which orders
// are triggerable, and submits execute calls through its ContractClient.
// The sweep does not sign those calls itself; the Signer only supplies
// the operator address reported in the status snapshot.
type Executor struct {
	contract ContractClient
	amm      AMMClient
	signer   *Signer
	logger   *output.Logger
	cfg      Config

	cooldown *cooldownTable

	mu             sync.Mutex
	running        bool
	attemptedCount uint64

	snapshot atomic.Pointer[StatusSnapshot]
}

// New builds an Executor.
func New(contract ContractClient, amm AMMClient, signer *Signer, logger *output.Logger, cfg Config) *Executor {
	e := &Executor{
		contract: contract,
		amm:      amm,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
		cooldown: newCooldownTable(),
	}
	e.publishSnapshot()
	return e
}

// Snapshot returns the most recently published status, safe to call
// concurrently with a running sweep.
func (e *Executor) Snapshot() *StatusSnapshot {
	return e.snapshot.Load()
}

func (e *Executor) publishSnapshot() {
	operator := ""
	if e.signer != nil {
		operator = e.signer.Address().String()
	}
	e.snapshot.Store(&StatusSnapshot{
		Running:         e.Running(),
		OperatorAddress: operator,
		CheckIntervalMs: e.cfg.CheckInterval.Milliseconds(),
		CooldownMs:      e.cfg.Cooldown.Milliseconds(),
		AttemptedCount:  atomic.LoadUint64(&e.attemptedCount),
		ContractAddress: e.cfg.ContractAddress,
	})
}

// Run performs a periodic sweep every cfg.CheckInterval until ctx is
// cancelled. No two sweeps run concurrently: if a sweep is still
// running when the next tick fires, that tick is dropped, matching the
// "no queueing" rule in the concurrency model.
func (e *Executor) Run(ctx context.Context) {
	e.setRunning(true)
	defer e.setRunning(false)

	ticker := time.NewTicker(e.cfg.CheckInterval)
	defer ticker.Stop()

	busy := make(chan struct{}, 1)
	busy <- struct{}{}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case <-busy:
				go func() {
					defer func() { busy <- struct{}{} }()
					e.sweepOnce(ctx)
				}()
			default:
				// A sweep is still running; this tick is dropped.
			}
		}
	}
}

func (e *Executor) setRunning(v bool) {
	e.mu.Lock()
	e.running = v
	e.mu.Unlock()
	e.publishSnapshot()
}

// Running reports whether the sweep loop is active.
func (e *Executor) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// CooldownCount reports how many orders currently carry a cooldown
// entry, for the status API.
func (e *Executor) CooldownCount() int {
	return e.cooldown.len()
}

// ClearCooldown removes a single order's cooldown entry (operator
// intervention only).
func (e *Executor) ClearCooldown(orderID uint64) {
	e.cooldown.clear(orderID)
}

// ClearAllCooldowns removes every cooldown entry (operator intervention
// only).
func (e *Executor) ClearAllCooldowns() {
	e.cooldown.clearAll()
}

// sweepOnce performs exactly one sweep of getPendingOrders, per
// SPEC_FULL.md §4.4's seven-step algorithm.
func (e *Executor) sweepOnce(ctx context.Context) {
	start := time.Now()

	rpcCtx, cancel := context.WithTimeout(ctx, e.cfg.RPCTimeout)
	orders, err := e.contract.GetPendingOrders(rpcCtx)
	cancel()
	if err != nil {
		e.logger.LogError(err, "getPendingOrders")
		return
	}

	e.logger.LogSweepStart(len(orders))

	triggered := 0
	for _, order := range orders {
		if e.processOrder(ctx, order, start) {
			triggered++
		}
	}

	e.logger.LogSweepComplete(len(orders), triggered, time.Since(start))
	e.publishSnapshot()
}

// processOrder runs steps (a)-(g) of the sweep algorithm for a single
// order and reports whether it was triggered this sweep.
func (e *Executor) processOrder(ctx context.Context, order *domain.Order, now time.Time) bool {
	orderID := order.OrderID

	if e.cooldown.shouldSkip(orderID, now, e.cfg.Cooldown) {
		e.logger.LogOrderSkipped(orderID, "cooldown")
		return false
	}

	if uint64(now.Unix()) >= order.ExpiresAt {
		e.cooldown.clear(orderID)
		e.logger.LogOrderSkipped(orderID, "expired")
		return false
	}

	rpcCtx, cancel := context.WithTimeout(ctx, e.cfg.RPCTimeout)
	snapshot, err := e.amm.GetReserves(rpcCtx, e.cfg.Pool, order.FromToken, order.ToToken)
	cancel()
	if err != nil {
		// External I/O error: log and continue, do not mark the order
		// attempted since nothing was submitted.
		e.logger.LogError(err, "get_reserves")
		return false
	}

	spot, err := pricing.SpotPrice(snapshot.ReserveFrom, snapshot.ReserveTo, snapshot.DecimalsFrom, snapshot.DecimalsTo)
	if err != nil {
		e.logger.LogError(err, "spot_price")
		return false
	}

	// TargetNum/TargetDenom is in base units (p * 10^(decimalsTo-decimalsFrom),
	// see pricing.PriceToFraction); scale it back to the decimal-adjusted
	// price SpotPrice returns before comparing.
	target := targetAsFloat(order.TargetNum, order.TargetDenom) * math.Pow10(int(snapshot.DecimalsFrom)-int(snapshot.DecimalsTo))
	if spot > target {
		e.logger.LogOrderSkipped(orderID, "not triggered")
		return false
	}

	e.logger.LogOrderTriggered(orderID, spot, target)

	currentFraction, err := pricing.PriceToFraction(spot, snapshot.DecimalsFrom, snapshot.DecimalsTo)
	if err != nil {
		// Arithmetic error: skip the order with a log; this value is
		// logging-only and never trusted for trade economics, so a
		// failure here must not block the submission path's safety, but
		// without it the event can't carry a current price at all.
		e.logger.LogError(err, "price_to_fraction")
		return false
	}

	// Record the attempt before submitting, so a crash leaves a
	// cooldown entry in place.
	e.cooldown.record(orderID, now)
	atomic.AddUint64(&e.attemptedCount, 1)

	submitCtx, cancel := context.WithTimeout(ctx, e.cfg.RPCTimeout)
	err = e.contract.ExecuteLimitOrder(submitCtx, orderID, currentFraction.Num, currentFraction.Denom)
	cancel()
	if err != nil {
		e.logger.LogOrderFailed(orderID, err.Error())
		return false
	}

	e.logger.LogOrderSubmitted(orderID, "")

	if e.pollForConfirmation(ctx, orderID) {
		e.cooldown.clear(orderID)
	}
	// On failure or timeout the cooldown entry stays in place, so the
	// next attempt is deferred by cfg.Cooldown.

	return true
}

// pollForConfirmation polls GetOrder a bounded number of times, waiting
// for the order to leave Pending. It reports whether the order reached
// a confirmed, non-pending state within the budget.
func (e *Executor) pollForConfirmation(ctx context.Context, orderID uint64) bool {
	if e.cfg.PollAttempts <= 0 {
		return false
	}

	for i := 0; i < e.cfg.PollAttempts; i++ {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(e.cfg.PollInterval):
		}

		pollCtx, cancel := context.WithTimeout(ctx, e.cfg.RPCTimeout)
		order, err := e.contract.GetOrder(pollCtx, orderID)
		cancel()
		if err != nil {
			continue
		}
		if order.Status != domain.StatusPending {
			return order.Status == domain.StatusExecuted
		}
	}

	return false
}

func targetAsFloat(num, denom *big.Int) float64 {
	f := new(big.Float).Quo(new(big.Float).SetInt(num), new(big.Float).SetInt(denom))
	out, _ := f.Float64()
	return out
}
