package amm

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"

	"github.com/stellarnova/limitorder/internal/config"
)

// Client wraps the chain RPC client with retry logic. It exposes only
// the read-only call the adapter needs — unlike a general-purpose chain
// client, it has no block/log/transaction-receipt surface, since nothing
// in this system scans historical chain activity.
type Client struct {
	client *ethclient.Client
	cfg    config.RPCConfig
}

// NewClient dials the configured AMM query endpoint.
func NewClient(cfg config.RPCConfig) (*Client, error) {
	client, err := ethclient.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("amm: dial chain RPC: %w", err)
	}

	log.Info().Str("url", cfg.URL).Msg("connected to chain RPC for AMM queries")

	return &Client{client: client, cfg: cfg}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() {
	c.client.Close()
}

// CallContract executes a read-only contract call with retry.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var result []byte
	var err error

	attempts := c.cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		result, err = c.client.CallContract(ctx, msg, blockNumber)
		if err == nil {
			return result, nil
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("amm: call failed, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.cfg.RetryDelay):
		}
	}

	return nil, fmt.Errorf("amm: call failed after %d attempts: %w", attempts, err)
}
