// Command executor is the long-running daemon that sweeps the order
// engine for triggerable limit orders and submits executeLimitOrder on
// their behalf, the same ticker-driven daemon shape as
// cmd/inspector/main.go generalized from "poll blocks" to "sweep pending
// orders."
package main

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/stellarnova/limitorder/internal/amm"
	"github.com/stellarnova/limitorder/internal/config"
	"github.com/stellarnova/limitorder/internal/contract"
	"github.com/stellarnova/limitorder/internal/executor"
	"github.com/stellarnova/limitorder/internal/output"
	"github.com/stellarnova/limitorder/internal/statusapi"
	"github.com/stellarnova/limitorder/internal/tokenregistry"
	"github.com/stellarnova/limitorder/pkg/domain"
)

// Order-creation bounds the engine enforces; the spec leaves the exact
// figures to the deployer, so this daemon picks the same values
// internal/contract's tests exercise: one second minimum (so tests and
// local dev don't need to wait) up to thirty days maximum.
const (
	minOrderDuration = time.Second
	maxOrderDuration = 30 * 24 * time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := output.NewLogger(cfg.Logging)

	registry, err := loadRegistry(cfg.TokenRegistry.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load token registry")
	}
	log.Info().Int("tokens", registry.Len()).Msg("token registry loaded")

	if cfg.Order.ContractAddress == "" {
		log.Warn().Msg("CONTRACT_ADDRESS not set; running against a fresh in-process engine")
	}

	poolAddr := common.HexToAddress(cfg.Order.ContractAddress)

	var ammClient *amm.Client
	var adapter *amm.Adapter
	if cfg.AMM.QueryURL != "" || cfg.RPC.URL != "" {
		rpcCfg := cfg.RPC
		if cfg.AMM.QueryURL != "" {
			rpcCfg.URL = cfg.AMM.QueryURL
		}
		ammClient, err = amm.NewClient(rpcCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to AMM query endpoint")
		}
		defer ammClient.Close()

		adapter, err = amm.NewAdapter(ammClient, registry)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build AMM adapter")
		}
	} else {
		log.Warn().Msg("CHAIN_RPC_URL/AMM_QUERY_URL not set; the AMM adapter cannot reach a pool")
	}

	ownerAddr := domain.Address{}

	var signer *executor.Signer
	if cfg.Executor.Enabled {
		if cfg.Executor.OperatorKeyPath == "" {
			log.Fatal().Msg("ENABLE_EXECUTOR=true requires OPERATOR_KEY_PATH")
		}
		signer, err = executor.LoadSigner(cfg.Executor.OperatorKeyPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load operator key")
		}
	}

	executorAddr := domain.Address{}
	if signer != nil {
		executorAddr = signer.Address()
	}

	sink := contract.NewMultiSink(contract.NewLogSink(), contract.NewMemorySink())

	var pool contract.Pool
	if adapter != nil {
		pool = amm.NewAdapterPool(adapter, poolAddr)
	} else {
		pool = noopPool{}
	}

	engine := contract.New(contract.Config{
		Owner:         ownerAddr,
		Executor:      executorAddr,
		Pool:          poolAddr,
		MaxSlippageBp: 2000,
		MinDuration:   minOrderDuration,
		MaxDuration:   maxOrderDuration,
	}, pool, sink)
	defer engine.Close()

	// Every token known to the registry is tradeable: there is no separate
	// admin RPC surface in this system, so the registry file cmd/seed
	// produces doubles as the whitelist cmd/executor's own Engine boots with.
	for _, tok := range registry.Tokens() {
		if err := engine.WhitelistToken(ownerAddr, tok); err != nil {
			log.Fatal().Err(err).Str("token", string(tok)).Msg("failed to whitelist token from registry")
		}
	}

	client := contract.NewLocalClient(engine, executorAddr)

	var ammExecClient executor.AMMClient = noopAMM{}
	if adapter != nil {
		ammExecClient = adapter
	}

	exec := executor.New(client, ammExecClient, signer, logger, executor.Config{
		CheckInterval:   cfg.Executor.CheckInterval,
		Cooldown:        cfg.Executor.Cooldown,
		Pool:            poolAddr,
		RPCTimeout:      cfg.RPC.RequestTimeout,
		PollAttempts:    20,
		PollInterval:    3 * time.Second,
		ContractAddress: cfg.Order.ContractAddress,
	})

	statusSrv := statusapi.New(cfg.Executor.StatusAddr, exec, cfg.Executor.Enabled)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	go func() {
		if err := statusSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("status API stopped unexpectedly")
		}
	}()
	defer statusSrv.Shutdown()

	if cfg.Executor.Enabled {
		log.Info().
			Dur("checkInterval", cfg.Executor.CheckInterval).
			Dur("cooldown", cfg.Executor.Cooldown).
			Str("operator", executorAddr.String()).
			Msg("starting executor sweep loop")
		exec.Run(ctx)
	} else {
		log.Info().Msg("ENABLE_EXECUTOR=false; executor sweep loop disabled, status API still running")
		<-ctx.Done()
	}

	log.Info().Msg("executor stopped")
}

func loadRegistry(path string) (*tokenregistry.Registry, error) {
	if path == "" {
		return tokenregistry.New(), nil
	}
	return tokenregistry.LoadFromFile(path)
}

// errNoAMM is returned by noopPool, distinguishing "no AMM endpoint
// configured" from a genuine pool-unavailable condition in logs.
var errNoAMM = errors.New("executor: no AMM endpoint configured")

// noopPool stands in for a pool when no AMM endpoint is configured, so
// the engine can still be exercised locally (create/cancel/expire) even
// though execute would have nothing real to swap against: every swap
// fails, leaving the order Pending and the funds custodied, exactly as
// spec.md's swap-failure semantics require.
type noopPool struct{}

func (noopPool) Swap(ctx context.Context, fromToken domain.TokenID, fromAmount *big.Int, toToken domain.TokenID, minOut *big.Int) (*big.Int, bool, error) {
	return nil, false, errNoAMM
}

// noopAMM mirrors noopPool for the executor's own read path: every
// get_reserves call fails, which the sweep loop already treats as
// external I/O error (log and skip, no attempt recorded).
type noopAMM struct{}

func (noopAMM) GetReserves(ctx context.Context, pool common.Address, fromToken, toToken domain.TokenID) (domain.PoolSnapshot, error) {
	return domain.PoolSnapshot{}, errNoAMM
}
