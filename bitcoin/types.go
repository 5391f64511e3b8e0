// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package bitcoin

import (
	"math/big"
)

// UTXO describes unspent transaction output data.
type UTXO struct {
	TxHash        string
	Index         uint32   // output index in transaction outputs.
	Amount        *big.Int // in Satoshi.
	Script        []byte   // ScriptPubKey.
	Address       string   // output recipient address.
	Confirmations int64    // 0 for outputs still in mempool.
}

// AddressType defines the spending class of an address.
type AddressType int

const (
	// Unsupported defines any address this module can not spend from or pay to.
	Unsupported AddressType = iota
	// Legacy defines base58check P2PKH addresses.
	Legacy
	// WitnessV0 defines bech32 P2WPKH addresses (witness version 0, 20-byte program).
	WitnessV0
)

// String returns address type name.
func (t AddressType) String() string {
	switch t {
	case Legacy:
		return "legacy"
	case WitnessV0:
		return "witness_v0"
	default:
		return "unsupported"
	}
}
