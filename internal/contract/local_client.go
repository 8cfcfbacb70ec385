package contract

import (
	"context"
	"math/big"

	"github.com/stellarnova/limitorder/pkg/domain"
)

// LocalClient adapts an in-process Engine to the ctx/error-shaped
// interface an RPC-backed contract client would present. It exists so
// cmd/executor can wire the executor daemon directly against Engine for
// local development and tests, without the executor package depending
// on contract's concrete types.
type LocalClient struct {
	engine   *Engine
	executor domain.Address
}

// NewLocalClient builds a LocalClient that signs every submitted
// execute call as executorAddr.
func NewLocalClient(engine *Engine, executorAddr domain.Address) *LocalClient {
	return &LocalClient{engine: engine, executor: executorAddr}
}

func (c *LocalClient) GetPendingOrders(ctx context.Context) ([]*domain.Order, error) {
	return c.engine.GetPendingOrders(), nil
}

func (c *LocalClient) GetOrder(ctx context.Context, orderID uint64) (*domain.Order, error) {
	return c.engine.GetOrder(orderID)
}

func (c *LocalClient) ExecuteLimitOrder(ctx context.Context, orderID uint64, currentNum, currentDenom *big.Int) error {
	return c.engine.ExecuteLimitOrder(c.executor, orderID, currentNum, currentDenom)
}
