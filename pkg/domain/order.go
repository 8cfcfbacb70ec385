package domain

import "math/big"

// TokenID is an opaque token identifier (e.g. "WEGLD-abcdef", "USDC-012345").
// Its decimals count is looked up in a process-configured registry, never
// derived from the string itself.
type TokenID string

// OrderStatus is the lifecycle state of a limit order.
type OrderStatus uint8

const (
	StatusPending OrderStatus = iota
	StatusExecuted
	StatusCancelled
	StatusExpired
)

func (s OrderStatus) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusExecuted:
		return "Executed"
	case StatusCancelled:
		return "Cancelled"
	case StatusExpired:
		return "Expired"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether s is one of Executed, Cancelled or Expired.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusExecuted || s == StatusCancelled || s == StatusExpired
}

// Order is a user's standing instruction to swap a held amount of
// FromToken for ToToken once the AMM spot price is at or below the target
// price TargetNum/TargetDenom.
//
// Field order matches the normative wire layout in EncodeOrder/DecodeOrder,
// which is itself normative per the external event/indexer interface —
// do not reorder without updating both.
type Order struct {
	OrderID     uint64
	Owner       Address
	FromToken   TokenID
	FromAmount  *big.Int
	ToToken     TokenID
	TargetNum   *big.Int
	TargetDenom *big.Int
	SlippageBp  uint64
	ExpiresAt   uint64
	Status      OrderStatus
	CreatedAt   uint64
}

// Clone returns a deep copy of o, so callers holding a reference returned
// from a view endpoint cannot mutate engine-internal state.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	cp := *o
	cp.FromAmount = new(big.Int).Set(o.FromAmount)
	cp.TargetNum = new(big.Int).Set(o.TargetNum)
	cp.TargetDenom = new(big.Int).Set(o.TargetDenom)
	return &cp
}

// PoolSnapshot is a transient read of an AMM pool's reserves, used to
// derive a spot price. It carries the decimals of both sides so the
// pricing package can adjust for tokens with differing decimals.
type PoolSnapshot struct {
	ReserveFrom  *big.Int
	ReserveTo    *big.Int
	DecimalsFrom uint8
	DecimalsTo   uint8
}
