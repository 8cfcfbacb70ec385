// Package pricing translates between human-decimal prices and the
// integer numerator/denominator pairs the contract stores and computes
// with, and derives the spot price used for trigger comparisons.
//
// All contract-facing arithmetic stays in math/big; floats only ever
// appear at the edges (spot price, and the human decimal a user typed in).
package pricing

import (
	"errors"
	"math"
	"math/big"
)

// ErrPriceOutOfRange is returned by PriceToFraction when the requested
// decimals difference leaves no room for a positive precision.
var ErrPriceOutOfRange = errors.New("pricing: price out of range")

// ErrZeroReserve is returned by SpotPrice when either reserve is zero.
var ErrZeroReserve = errors.New("pricing: zero reserve")

// ErrZeroInput is returned by MinOut when fromAmount is zero or nil.
var ErrZeroInput = errors.New("pricing: zero input amount")

const (
	maxPrecision  = 6
	maxAbsDelta   = 15
	basisPointMax = 10_000
)

// Fraction is an exact non-negative rational, stored as the contract
// sees it: a numerator and a strictly positive denominator.
type Fraction struct {
	Num   *big.Int
	Denom *big.Int
}

// Reciprocal returns 1/f. The caller is responsible for ensuring the
// inverted pair still fits the target range — Reciprocal performs no
// range check of its own, since it only swaps the two legs of an
// already-validated fraction.
func (f Fraction) Reciprocal() Fraction {
	return Fraction{Num: new(big.Int).Set(f.Denom), Denom: new(big.Int).Set(f.Num)}
}

// Float64 renders f as a float64, for logging and display only — never
// feed this back into contract arithmetic.
func (f Fraction) Float64() float64 {
	num := new(big.Float).SetInt(f.Num)
	denom := new(big.Float).SetInt(f.Denom)
	out, _ := new(big.Float).Quo(num, denom).Float64()
	return out
}

// PriceToFraction converts a human decimal price p (units of toToken per
// 1 unit of fromToken) into the integer (num, denom) pair the contract
// stores, given each token's decimals count.
//
// decimalsFrom/decimalsTo are the tokens' base-unit exponents (e.g. 6 for
// USDC, 18 for WEGLD). PRECISION is chosen so that num/denom stays inside
// a safe integer range regardless of how far apart the two decimals are.
func PriceToFraction(p float64, decimalsFrom, decimalsTo uint8) (Fraction, error) {
	delta := int(decimalsTo) - int(decimalsFrom)
	absDelta := delta
	if absDelta < 0 {
		absDelta = -absDelta
	}
	if absDelta >= maxAbsDelta {
		return Fraction{}, ErrPriceOutOfRange
	}

	precision := maxAbsDelta - absDelta
	if precision > maxPrecision {
		precision = maxPrecision
	}
	if precision < 0 {
		return Fraction{}, ErrPriceOutOfRange
	}

	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(precision)), nil)

	numExp := precision + delta
	scaled := p * math.Pow10(numExp)
	num, _ := big.NewFloat(math.Floor(scaled)).Int(nil)

	return Fraction{Num: num, Denom: denom}, nil
}

// MinOut computes the minimum acceptable output amount for a swap of
// fromAmount at the stored target price (num, denom), after applying the
// order's slippage tolerance in basis points.
//
// expected = fromAmount * num / denom
// minOut   = expected * (10_000 - slippageBp) / 10_000
//
// All divisions truncate toward zero, matching the contract's integer
// arithmetic exactly.
func MinOut(fromAmount, num, denom *big.Int, slippageBp uint64) (*big.Int, error) {
	if fromAmount == nil || fromAmount.Sign() == 0 {
		return nil, ErrZeroInput
	}
	if denom == nil || denom.Sign() == 0 {
		return nil, ErrPriceOutOfRange
	}
	if slippageBp > basisPointMax {
		slippageBp = basisPointMax
	}

	expected := new(big.Int).Mul(fromAmount, num)
	expected.Quo(expected, denom)

	factor := big.NewInt(int64(basisPointMax - slippageBp))
	minOut := expected.Mul(expected, factor)
	minOut.Quo(minOut, big.NewInt(basisPointMax))

	return minOut, nil
}

// SpotPrice derives the current exchange rate of toToken per 1 unit of
// fromToken from a pool's raw reserves, adjusted for each token's
// decimals. The result is used exclusively for the trigger comparison
// (p ≤ target); it is never written on-chain as an economic guarantee.
func SpotPrice(reserveFrom, reserveTo *big.Int, decimalsFrom, decimalsTo uint8) (float64, error) {
	if reserveFrom == nil || reserveTo == nil || reserveFrom.Sign() == 0 || reserveTo.Sign() == 0 {
		return 0, ErrZeroReserve
	}

	rf := new(big.Float).SetInt(reserveFrom)
	rt := new(big.Float).SetInt(reserveTo)

	rf.Quo(rf, new(big.Float).SetFloat64(math.Pow10(int(decimalsFrom))))
	rt.Quo(rt, new(big.Float).SetFloat64(math.Pow10(int(decimalsTo))))

	p := new(big.Float).Quo(rt, rf)
	out, _ := p.Float64()
	return out, nil
}
