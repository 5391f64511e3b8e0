// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package node

import (
	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

// VSize returns virtual size of transaction, weight divided by 4 rounded up.
func VSize(tx *wire.MsgTx) int64 {
	weight := blockchain.GetTransactionWeight(btcutil.NewTx(tx))

	return (weight + blockchain.WitnessScaleFactor - 1) / blockchain.WitnessScaleFactor
}
