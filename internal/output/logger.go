// Package output formats and emits executor activity, the same
// zerolog-based console/json switch the inspector used, retargeted at
// sweep/order/trigger events instead of blocks/swaps/arbitrages.
package output

import (
	"math/big"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/stellarnova/limitorder/internal/config"
)

// Logger handles output formatting for executor activity.
type Logger struct {
	stats *Stats
}

// Stats tracks executor sweep statistics.
type Stats struct {
	SweepsRun       uint64
	OrdersInspected uint64
	OrdersTriggered uint64
	OrdersSubmitted uint64
	OrdersSucceeded uint64
	OrdersFailed    uint64
	StartTime       time.Time
}

// NewLogger creates a new executor logger.
func NewLogger(cfg config.LoggingConfig) *Logger {
	switch cfg.Format {
	case "json":
		// Default JSON output.
	case "console":
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		})
	}

	switch cfg.Level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	}

	return &Logger{
		stats: &Stats{StartTime: time.Now()},
	}
}

// LogSweepStart logs the beginning of a sweep over pending orders.
func (l *Logger) LogSweepStart(pendingCount int) {
	l.stats.SweepsRun++
	log.Debug().
		Int("pending", pendingCount).
		Msg("sweep starting")
}

// LogSweepComplete logs the end of a sweep.
func (l *Logger) LogSweepComplete(inspected, triggered int, duration time.Duration) {
	l.stats.OrdersInspected += uint64(inspected)
	l.stats.OrdersTriggered += uint64(triggered)

	log.Info().
		Int("inspected", inspected).
		Int("triggered", triggered).
		Dur("duration", duration).
		Msg("sweep complete")
}

// LogOrderSkipped logs an order skipped during a sweep (cooldown,
// expired, or not triggered) at debug level — these are routine, not errors.
func (l *Logger) LogOrderSkipped(orderID uint64, reason string) {
	log.Debug().
		Uint64("orderID", orderID).
		Str("reason", reason).
		Msg("order skipped")
}

// LogOrderTriggered logs a trigger decision before submission.
func (l *Logger) LogOrderTriggered(orderID uint64, spot, target float64) {
	log.Info().
		Uint64("orderID", orderID).
		Float64("spot", spot).
		Float64("target", target).
		Msg("order triggered")
}

// LogOrderSubmitted logs a successful executeLimitOrder submission.
func (l *Logger) LogOrderSubmitted(orderID uint64, txHash string) {
	l.stats.OrdersSubmitted++
	log.Info().
		Uint64("orderID", orderID).
		Str("txHash", txHash).
		Msg("execute submitted")
}

// LogOrderExecuted logs a confirmed, successful execution.
func (l *Logger) LogOrderExecuted(orderID uint64, outputAmount *big.Int) {
	l.stats.OrdersSucceeded++
	log.Info().
		Uint64("orderID", orderID).
		Str("outputAmount", outputAmount.String()).
		Msg("order executed")
}

// LogOrderFailed logs a failed or timed-out execution attempt.
func (l *Logger) LogOrderFailed(orderID uint64, reason string) {
	l.stats.OrdersFailed++
	log.Warn().
		Uint64("orderID", orderID).
		Str("reason", reason).
		Msg("order execution failed")
}

// LogStats logs current statistics.
func (l *Logger) LogStats() {
	elapsed := time.Since(l.stats.StartTime)
	log.Info().
		Uint64("sweepsRun", l.stats.SweepsRun).
		Uint64("ordersInspected", l.stats.OrdersInspected).
		Uint64("ordersTriggered", l.stats.OrdersTriggered).
		Uint64("ordersSubmitted", l.stats.OrdersSubmitted).
		Uint64("ordersSucceeded", l.stats.OrdersSucceeded).
		Uint64("ordersFailed", l.stats.OrdersFailed).
		Dur("uptime", elapsed).
		Msg("executor stats")
}

// LogError logs an error with a short description of where it occurred.
func (l *Logger) LogError(err error, context string) {
	log.Error().
		Err(err).
		Str("context", context).
		Msg("error occurred")
}

// GetStats returns current statistics.
func (l *Logger) GetStats() *Stats {
	return l.stats
}
