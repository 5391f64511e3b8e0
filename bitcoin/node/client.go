// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package node

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/txsmith/bitcoin"
)

// FallbackSatoshiPerKVByte is a fee rate used when node has no estimate (2 sat/vB).
const FallbackSatoshiPerKVByte int64 = 2000

// ErrNode defines errors class of node communication.
var ErrNode = errors.New("bitcoin node")

// Backend is a subset of bitcoin node json-rpc api used by Client.
// *rpcclient.Client implements it.
type Backend interface {
	RawRequest(method string, params []json.RawMessage) (json.RawMessage, error)
	GetRawMempool() ([]*chainhash.Hash, error)
	GetRawTransactionVerbose(txHash *chainhash.Hash) (*btcjson.TxRawResult, error)
	DecodeRawTransaction(serializedTx []byte) (*btcjson.TxRawResult, error)
	SendRawTransaction(tx *wire.MsgTx, allowHighFees bool) (*chainhash.Hash, error)
	EstimateSmartFee(confTarget int64, mode *btcjson.EstimateSmartFeeMode) (*btcjson.EstimateSmartFeeResult, error)
	GetBlockCount() (int64, error)
	Shutdown()
}

// Client provides bitcoin node related logic.
type Client struct {
	backend       Backend
	networkParams *chaincfg.Params
}

// NewClient connects to bitcoin node json-rpc in HTTP POST mode.
func NewClient(connConfig rpcclient.ConnConfig, networkParams *chaincfg.Params) (*Client, error) {
	connConfig.HTTPPostMode = true

	backend, err := rpcclient.New(&connConfig, nil)
	if err != nil {
		return nil, errors.Join(ErrNode, err)
	}

	return NewClientWithBackend(backend, networkParams), nil
}

// NewClientWithBackend is a constructor for Client.
func NewClientWithBackend(backend Backend, networkParams *chaincfg.Params) *Client {
	return &Client{
		backend:       backend,
		networkParams: networkParams,
	}
}

// Close shuts down node connection.
func (c *Client) Close() {
	c.backend.Shutdown()
}

// BlockCount returns height of the best chain.
func (c *Client) BlockCount(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count, err := c.backend.GetBlockCount()
	if err != nil {
		return 0, errors.Join(ErrNode, err)
	}

	return count, nil
}

// DecodeVSize measures serialized transaction with decoderawtransaction.
func (c *Client) DecodeVSize(ctx context.Context, serialized []byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	decoded, err := c.backend.DecodeRawTransaction(serialized)
	if err != nil {
		return 0, errors.Join(ErrNode, err)
	}
	if decoded.Vsize <= 0 {
		return 0, fmt.Errorf("%w: decoded transaction has no vsize", ErrNode)
	}

	return int64(decoded.Vsize), nil
}

// Broadcast submits transaction with sendrawtransaction.
// Node refusals are returned as *bitcoin.NodeRejectionError.
func (c *Client) Broadcast(ctx context.Context, tx *wire.MsgTx) (*chainhash.Hash, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	txHash, err := c.backend.SendRawTransaction(tx, false)
	if err != nil {
		var rpcErr *btcjson.RPCError
		if errors.As(err, &rpcErr) {
			log.Debugf("transaction %s rejected: %s", tx.TxHash(), rpcErr.Message)
			return nil, &bitcoin.NodeRejectionError{Code: int(rpcErr.Code), Reason: rpcErr.Message}
		}

		return nil, errors.Join(ErrNode, err)
	}

	log.Infof("transaction %s broadcast", txHash)

	return txHash, nil
}

// EstimateFeeRate returns fee rate in satoshi per kvbyte for confirmation target in blocks.
// Falls back to FallbackSatoshiPerKVByte when node has no estimate.
func (c *Client) EstimateFeeRate(ctx context.Context, confTarget int64) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := c.backend.EstimateSmartFee(confTarget, nil)
	if err != nil {
		return nil, errors.Join(ErrNode, err)
	}

	if res.FeeRate == nil || *res.FeeRate <= 0 {
		log.Debugf("no fee estimate for %d blocks %v, using fallback", confTarget, res.Errors)
		return big.NewInt(FallbackSatoshiPerKVByte), nil
	}

	// fee rate is in BTC per kvbyte.
	amount, err := btcutil.NewAmount(*res.FeeRate)
	if err != nil {
		return nil, errors.Join(ErrNode, err)
	}

	return big.NewInt(int64(amount)), nil
}

// OfflineDecoder measures transactions locally without node.
type OfflineDecoder struct{}

// DecodeVSize returns virtual size of serialized transaction.
func (OfflineDecoder) DecodeVSize(_ context.Context, serialized []byte) (int64, error) {
	var tx wire.MsgTx
	if err := tx.Deserialize(bytes.NewReader(serialized)); err != nil {
		return 0, err
	}

	return VSize(&tx), nil
}
