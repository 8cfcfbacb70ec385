package domain

import "math/big"

// Events are append-only and are the sole source of truth external
// indexers rely on; field sets are part of the external wire protocol and
// must be extended, never reshaped, once published.

// OrderCreated is emitted when createLimitOrder succeeds.
type OrderCreated struct {
	OrderID     uint64
	Owner       Address
	FromToken   TokenID
	FromAmount  *big.Int
	ToToken     TokenID
	TargetNum   *big.Int
	TargetDenom *big.Int
	ExpiresAt   uint64
	Timestamp   uint64
}

// OrderExecuted is emitted when the async swap callback completes
// successfully and the order transitions Pending -> Executed.
type OrderExecuted struct {
	OrderID      uint64
	Owner        Address
	FromToken    TokenID
	FromAmount   *big.Int
	ToToken      TokenID
	OutputAmount *big.Int
	CurrentNum   *big.Int // executor-supplied, logged only, never trusted for economics
	CurrentDenom *big.Int
	Timestamp    uint64
}

// OrderExecutionFailed is emitted when the swap reverts, refunds, or
// returns below the minimum output; the order stays Pending.
type OrderExecutionFailed struct {
	OrderID   uint64
	Reason    string
	Timestamp uint64
}

// OrderCancelled is emitted when the owner cancels a Pending order.
type OrderCancelled struct {
	OrderID    uint64
	Owner      Address
	FromToken  TokenID
	FromAmount *big.Int
	Timestamp  uint64
}

// OrderExpired is emitted when expireOrders sweeps a past-expiry order.
type OrderExpired struct {
	OrderID    uint64
	Owner      Address
	FromToken  TokenID
	FromAmount *big.Int
	Timestamp  uint64
}

// Event is implemented by every event type above; it exists only so
// EventSink has a single narrow method to implement.
type Event interface {
	eventMarker()
}

func (OrderCreated) eventMarker()         {}
func (OrderExecuted) eventMarker()        {}
func (OrderExecutionFailed) eventMarker() {}
func (OrderCancelled) eventMarker()       {}
func (OrderExpired) eventMarker()         {}
