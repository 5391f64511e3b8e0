// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package node

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/txsmith/bitcoin"
	"github.com/BoostyLabs/txsmith/bitcoin/utils"
)

// scanUnspent is an output found by scantxoutset.
type scanUnspent struct {
	TxID         string  `json:"txid"`
	Vout         uint32  `json:"vout"`
	ScriptPubKey string  `json:"scriptPubKey"`
	Amount       float64 `json:"amount"`
	Height       int64   `json:"height"`
}

// scanResult is a result of scantxoutset start.
type scanResult struct {
	Success  bool          `json:"success"`
	Height   int64         `json:"height"`
	Unspents []scanUnspent `json:"unspents"`
}

// descriptorFunc returns output descriptor to scan for address with its script.
type descriptorFunc func(address string, script []byte) string

// UTXOFetcher fetches outputs of an address with scantxoutset and node mempool.
type UTXOFetcher struct {
	client     *Client
	descriptor descriptorFunc
}

// LegacyFetcher returns fetcher scanning raw P2PKH scripts.
func (c *Client) LegacyFetcher() *UTXOFetcher {
	return &UTXOFetcher{
		client: c,
		descriptor: func(_ string, script []byte) string {
			return fmt.Sprintf("raw(%s)", hex.EncodeToString(script))
		},
	}
}

// WitnessFetcher returns fetcher scanning P2WPKH addresses.
func (c *Client) WitnessFetcher() *UTXOFetcher {
	return &UTXOFetcher{
		client: c,
		descriptor: func(address string, _ []byte) string {
			return fmt.Sprintf("addr(%s)", address)
		},
	}
}

// FetchUTXOs returns confirmed and mempool outputs paying to address,
// except outputs already spent by mempool transactions.
// Address without outputs results in empty list.
func (f *UTXOFetcher) FetchUTXOs(ctx context.Context, address string) ([]bitcoin.UTXO, error) {
	script, err := utils.ScriptFor(address, f.client.networkParams)
	if err != nil {
		return nil, err
	}

	confirmed, err := f.client.scan(ctx, f.descriptor(address, script), address)
	if err != nil {
		return nil, err
	}

	unconfirmed, spent, err := f.client.mempool(ctx, address, script)
	if err != nil {
		return nil, err
	}

	var (
		seen  = make(map[wire.OutPoint]struct{}, len(confirmed)+len(unconfirmed))
		utxos = make([]bitcoin.UTXO, 0, len(confirmed)+len(unconfirmed))
	)
	for _, utxo := range append(confirmed, unconfirmed...) {
		outPoint, err := outPointOf(utxo)
		if err != nil {
			return nil, err
		}

		if _, ok := spent[outPoint]; ok {
			continue
		}
		if _, ok := seen[outPoint]; ok {
			continue
		}

		seen[outPoint] = struct{}{}
		utxos = append(utxos, utxo)
	}

	log.Debugf("%s: %d confirmed, %d mempool, %d spendable outputs",
		address, len(confirmed), len(unconfirmed), len(utxos))

	return utxos, nil
}

// scan returns confirmed outputs matching descriptor.
func (c *Client) scan(ctx context.Context, descriptor, address string) ([]bitcoin.UTXO, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	action, err := json.Marshal("start")
	if err != nil {
		return nil, err
	}
	descriptors, err := json.Marshal([]string{descriptor})
	if err != nil {
		return nil, err
	}

	raw, err := c.backend.RawRequest("scantxoutset", []json.RawMessage{action, descriptors})
	if err != nil {
		return nil, errors.Join(ErrNode, err)
	}

	var res scanResult
	if err = json.Unmarshal(raw, &res); err != nil {
		return nil, errors.Join(ErrNode, err)
	}
	if !res.Success {
		return nil, fmt.Errorf("%w: scantxoutset %s failed", ErrNode, descriptor)
	}

	utxos := make([]bitcoin.UTXO, 0, len(res.Unspents))
	for _, unspent := range res.Unspents {
		amount, err := btcutil.NewAmount(unspent.Amount)
		if err != nil {
			return nil, errors.Join(ErrNode, err)
		}

		script, err := hex.DecodeString(unspent.ScriptPubKey)
		if err != nil {
			return nil, errors.Join(ErrNode, err)
		}

		utxos = append(utxos, bitcoin.UTXO{
			TxHash:        unspent.TxID,
			Index:         unspent.Vout,
			Amount:        big.NewInt(int64(amount)),
			Script:        script,
			Address:       address,
			Confirmations: res.Height - unspent.Height + 1,
		})
	}

	return utxos, nil
}

// mempool returns mempool outputs paying to script and outpoints spent by mempool transactions.
func (c *Client) mempool(ctx context.Context, address string, script []byte) ([]bitcoin.UTXO, map[wire.OutPoint]struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	txHashes, err := c.backend.GetRawMempool()
	if err != nil {
		return nil, nil, errors.Join(ErrNode, err)
	}

	var (
		scriptHex = hex.EncodeToString(script)
		spent     = make(map[wire.OutPoint]struct{})
		utxos     []bitcoin.UTXO
	)
	for _, txHash := range txHashes {
		if err = ctx.Err(); err != nil {
			return nil, nil, err
		}

		tx, err := c.backend.GetRawTransactionVerbose(txHash)
		if err != nil {
			// transaction left mempool while iterating.
			log.Debugf("skip mempool transaction %s: %v", txHash, err)
			continue
		}

		for _, in := range tx.Vin {
			if in.IsCoinBase() {
				continue
			}

			outPoint, err := outPointOf(bitcoin.UTXO{TxHash: in.Txid, Index: in.Vout})
			if err != nil {
				return nil, nil, err
			}
			spent[outPoint] = struct{}{}
		}

		for _, out := range tx.Vout {
			if out.ScriptPubKey.Hex != scriptHex {
				continue
			}

			amount, err := btcutil.NewAmount(out.Value)
			if err != nil {
				return nil, nil, errors.Join(ErrNode, err)
			}

			utxos = append(utxos, bitcoin.UTXO{
				TxHash:  txHash.String(),
				Index:   out.N,
				Amount:  big.NewInt(int64(amount)),
				Script:  script,
				Address: address,
			})
		}
	}

	return utxos, spent, nil
}

// outPointOf returns outpoint of utxo.
func outPointOf(utxo bitcoin.UTXO) (wire.OutPoint, error) {
	txHash, err := chainhash.NewHashFromStr(utxo.TxHash)
	if err != nil {
		return wire.OutPoint{}, errors.Join(ErrNode, err)
	}

	return *wire.NewOutPoint(txHash, utxo.Index), nil
}
