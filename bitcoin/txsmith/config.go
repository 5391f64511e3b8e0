// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package txsmith

import (
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/BoostyLabs/txsmith/bitcoin"
	"github.com/BoostyLabs/txsmith/internal/numbers"
)

const (
	// DefaultEstVSizeLegacy is an expected vsize of one input legacy payment with change.
	DefaultEstVSizeLegacy int64 = 192
	// DefaultEstVSizeWitness is an expected vsize of one input witness payment with change.
	DefaultEstVSizeWitness int64 = 110
	// DefaultMinSatoshiPerKVByte is the minimal accepted fee rate (1 sat/vB).
	DefaultMinSatoshiPerKVByte int64 = 1000
	// DefaultMaxSatoshiPerKVByte is the maximal accepted fee rate (1000 sat/vB).
	DefaultMaxSatoshiPerKVByte int64 = 1000000
)

// Config defines configuration of the Coordinator.
type Config struct {
	NetworkParams *chaincfg.Params

	// Sizes used to estimate the fee before selection.
	EstVSizeLegacy  int64
	EstVSizeWitness int64

	// DustLimit is the smallest change kept as an output, smaller change goes to miners.
	DustLimit *big.Int

	MinSatoshiPerKVByte *big.Int
	MaxSatoshiPerKVByte *big.Int

	// CheckKey enables check that signing key controls the source address.
	CheckKey bool
}

// DefaultConfig returns default configuration for provided network.
func DefaultConfig(networkParams *chaincfg.Params) Config {
	return Config{
		NetworkParams:       networkParams,
		EstVSizeLegacy:      DefaultEstVSizeLegacy,
		EstVSizeWitness:     DefaultEstVSizeWitness,
		DustLimit:           big.NewInt(0),
		MinSatoshiPerKVByte: big.NewInt(DefaultMinSatoshiPerKVByte),
		MaxSatoshiPerKVByte: big.NewInt(DefaultMaxSatoshiPerKVByte),
		CheckKey:            true,
	}
}

// Validate checks configuration values.
func (cfg Config) Validate() error {
	switch {
	case cfg.NetworkParams == nil:
		return fmt.Errorf("%w: network params are not set", bitcoin.ErrInvalidParams)
	case cfg.EstVSizeLegacy <= 0 || cfg.EstVSizeWitness <= 0:
		return fmt.Errorf("%w: estimated vsizes must be positive", bitcoin.ErrInvalidParams)
	case cfg.DustLimit == nil || numbers.IsNegative(cfg.DustLimit):
		return fmt.Errorf("%w: dust limit must not be negative", bitcoin.ErrInvalidParams)
	case cfg.MinSatoshiPerKVByte == nil || !numbers.IsPositive(cfg.MinSatoshiPerKVByte):
		return fmt.Errorf("%w: minimal fee rate must be positive", bitcoin.ErrInvalidParams)
	case cfg.MaxSatoshiPerKVByte == nil || numbers.IsLess(cfg.MaxSatoshiPerKVByte, cfg.MinSatoshiPerKVByte):
		return fmt.Errorf("%w: maximal fee rate is less than minimal", bitcoin.ErrInvalidParams)
	}

	return nil
}

// clone returns deep copy of configuration.
func (cfg Config) clone() Config {
	cfg.DustLimit = new(big.Int).Set(cfg.DustLimit)
	cfg.MinSatoshiPerKVByte = new(big.Int).Set(cfg.MinSatoshiPerKVByte)
	cfg.MaxSatoshiPerKVByte = new(big.Int).Set(cfg.MaxSatoshiPerKVByte)

	return cfg
}

// estVSize returns estimated vsize for address type.
func (cfg Config) estVSize(addrType bitcoin.AddressType) int64 {
	if addrType == bitcoin.Legacy {
		return cfg.EstVSizeLegacy
	}

	return cfg.EstVSizeWitness
}
