// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package main

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/BoostyLabs/txsmith/bitcoin"
	"github.com/BoostyLabs/txsmith/bitcoin/txsmith"
	"github.com/BoostyLabs/txsmith/internal/numbers"
)

var (
	decimalRe = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

	satoshiPerBitcoin = big.NewRat(btcutil.SatoshiPerBitcoin, 1)
	vBytesPerKVByte   = big.NewRat(1000, 1)
)

// parseAmount parses amount in BTC ("0.001") or in satoshi ("25000sat"), returns satoshi.
func parseAmount(s string) (*big.Int, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	var (
		amount *big.Int
		err    error
	)
	switch {
	case strings.HasSuffix(s, "sats"):
		amount, err = parseDecimal(strings.TrimSpace(strings.TrimSuffix(s, "sats")), big.NewRat(1, 1))
	case strings.HasSuffix(s, "sat"):
		amount, err = parseDecimal(strings.TrimSpace(strings.TrimSuffix(s, "sat")), big.NewRat(1, 1))
	default:
		amount, err = parseDecimal(strings.TrimSpace(strings.TrimSuffix(s, "btc")), satoshiPerBitcoin)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q: %w", bitcoin.ErrInvalidParams, s, err)
	}

	if !numbers.IsPositive(amount) || amount.Cmp(big.NewInt(btcutil.MaxSatoshi)) > 0 {
		return nil, fmt.Errorf("%w: amount %q is out of range", bitcoin.ErrInvalidParams, s)
	}

	return amount, nil
}

// parseFeeRate parses fee rate in sat/vB with up to 3 decimals, returns satoshi per kvbyte.
func parseFeeRate(s string) (*big.Int, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(strings.ToLower(s)), "sat/vb"))

	rate, err := parseDecimal(s, vBytesPerKVByte)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", bitcoin.ErrInvalidFeeRate, s, err)
	}

	if numbers.IsLess(rate, big.NewInt(txsmith.DefaultMinSatoshiPerKVByte)) ||
		numbers.IsGreater(rate, big.NewInt(txsmith.DefaultMaxSatoshiPerKVByte)) {
		return nil, fmt.Errorf("%w: %s sat/vB is out of [1, 1000]", bitcoin.ErrInvalidFeeRate, s)
	}

	return rate, nil
}

// parseDecimal parses non-negative decimal and multiplies it by unit, result must be integer.
func parseDecimal(s string, unit *big.Rat) (*big.Int, error) {
	if !decimalRe.MatchString(s) {
		return nil, fmt.Errorf("%q is not a decimal number", s)
	}

	value, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("%q is not a decimal number", s)
	}

	value.Mul(value, unit)
	if !value.IsInt() {
		return nil, fmt.Errorf("%q has too many decimal places", s)
	}

	return new(big.Int).Set(value.Num()), nil
}

// formatFeeRate returns satoshi per kvbyte rate as sat/vB.
func formatFeeRate(satoshiPerKVByte *big.Int) string {
	return formatRateValue(satoshiPerKVByte) + " sat/vB"
}

// formatRateValue returns satoshi per kvbyte rate as sat/vB number.
func formatRateValue(satoshiPerKVByte *big.Int) string {
	rate := new(big.Rat).SetFrac(satoshiPerKVByte, big.NewInt(1000)).FloatString(3)

	return strings.TrimRight(strings.TrimRight(rate, "0"), ".")
}

// formatAmount returns satoshi amount with its BTC value.
func formatAmount(amount *big.Int) string {
	return fmt.Sprintf("%s sat (%s)", amount, btcutil.Amount(amount.Int64()))
}
