// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package txsmith

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/txsmith/bitcoin"
)

// UTXOFetcher returns spendable outputs of an address, including unconfirmed ones.
type UTXOFetcher interface {
	FetchUTXOs(ctx context.Context, address string) ([]bitcoin.UTXO, error)
}

// VSizeDecoder measures virtual size of a serialized transaction.
type VSizeDecoder interface {
	DecodeVSize(ctx context.Context, serialized []byte) (int64, error)
}

// Broadcaster submits signed transaction to the network.
type Broadcaster interface {
	Broadcast(ctx context.Context, tx *wire.MsgTx) (*chainhash.Hash, error)
}

// Dependencies holds external collaborators of the Coordinator.
type Dependencies struct {
	LegacyFetcher  UTXOFetcher
	WitnessFetcher UTXOFetcher
	Decoder        VSizeDecoder
}
