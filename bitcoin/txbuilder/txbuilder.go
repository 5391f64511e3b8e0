// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/txsmith/bitcoin"
	"github.com/BoostyLabs/txsmith/bitcoin/utils"
	"github.com/BoostyLabs/txsmith/internal/numbers"
)

const (
	// txVersion defines transaction version for this builder.
	txVersion int32 = 2
	// txLockTime defines transaction lock time for this builder.
	txLockTime uint32 = 0
	// signHashType define signature hash type for input signing.
	signHashType = txscript.SigHashAll
)

// BuildParams describes data needed to build payment transaction draft.
type BuildParams struct {
	Inputs           []*bitcoin.UTXO // selected utxos, spent in provided order.
	RecipientAddress string
	Amount           *big.Int // satoshi to pay to recipient.
	ChangeAddress    string
	Fee              *big.Int // satoshi left to miners, used to size change output.
}

// Draft is an unsigned payment transaction with its accounting.
//
//	Tx struct
//	outputs:
//	┌─────────┬──────────────┬────────────────────────────────────────┐
//	│  index  │     type     │             description                │
//	├=========┼==============┼========================================┤
//	│       0 │ recipient    │ mandatory, pays amount to recipient.   │
//	├─────────┼──────────────┼────────────────────────────────────────┤
//	│       1 │ change       │ optional, returns inputs left after    │
//	│         │              │ amount and fee to change address.      │
//	└─────────┴──────────────┴────────────────────────────────────────┘
type Draft struct {
	Tx     *wire.MsgTx
	Inputs []*bitcoin.UTXO
	Amount *big.Int
	Fee    *big.Int // includes change absorbed as dust.
	Change *big.Int // zero when change output is omitted.
}

// HasChange returns true if draft has change output.
func (d *Draft) HasChange() bool {
	return !numbers.IsZero(d.Change)
}

// TxBuilder provides transaction building related logic.
type TxBuilder struct {
	networkParams *chaincfg.Params
	dustLimit     *big.Int
}

// NewTxBuilder is a constructor for TxBuilder.
// Change below dustLimit is left to miners, nil dustLimit keeps any positive change.
func NewTxBuilder(networkParams *chaincfg.Params, dustLimit *big.Int) *TxBuilder {
	if dustLimit == nil {
		dustLimit = big.NewInt(0)
	}

	return &TxBuilder{
		networkParams: networkParams,
		dustLimit:     new(big.Int).Set(dustLimit),
	}
}

// Build constructs unsigned payment transaction with recipient output
// followed by optional change output. Inputs get empty unlocking placeholders.
func (b *TxBuilder) Build(params BuildParams) (*Draft, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	var (
		totalInput   = totalAmount(params.Inputs)
		amountAndFee = new(big.Int).Add(params.Amount, params.Fee)
	)
	if numbers.IsLess(totalInput, amountAndFee) {
		return nil, NewInsufficientError(InsufficientErrorTypeInputValue, amountAndFee, totalInput)
	}

	tx := wire.NewMsgTx(txVersion)
	tx.LockTime = txLockTime
	for _, utxo := range params.Inputs {
		utxoHash, err := chainhash.NewHashFromStr(utxo.TxHash)
		if err != nil {
			return nil, fmt.Errorf("%w: utxo hash %q: %w", bitcoin.ErrInvalidParams, utxo.TxHash, err)
		}

		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(utxoHash, utxo.Index), nil, nil))
	}

	// subtract fee.
	unallocatedAmount := new(big.Int).Sub(totalInput, params.Fee)

	// recipient output (#0).
	err := b.addOutput(tx, params.Amount, unallocatedAmount, params.RecipientAddress)
	if err != nil {
		return nil, err
	}

	draft := &Draft{
		Tx:     tx,
		Inputs: params.Inputs,
		Amount: new(big.Int).Set(params.Amount),
		Fee:    new(big.Int).Set(params.Fee),
		Change: big.NewInt(0),
	}

	// change output (#1).
	if numbers.IsPositive(unallocatedAmount) && !numbers.IsLess(unallocatedAmount, b.dustLimit) {
		draft.Change.Set(unallocatedAmount)
		err = b.addOutput(tx, draft.Change, unallocatedAmount, params.ChangeAddress)
		if err != nil {
			return nil, err
		}
	}

	// dust change, if any, goes to miners.
	draft.Fee.Add(draft.Fee, unallocatedAmount)

	return draft, nil
}

// SelectUTXO is a greedy selection algorithm, accumulates utxos in provided order
// until total amount covers target. Returns pointers to the consumed prefix with total amount.
func SelectUTXO(utxos []bitcoin.UTXO, target *big.Int) (usedUTXOs []*bitcoin.UTXO, totalAmount *big.Int, _ error) {
	totalAmount = big.NewInt(0)
	if !numbers.IsPositive(target) {
		return []*bitcoin.UTXO{}, totalAmount, nil
	}

	available := big.NewInt(0)
	for idx := range utxos {
		available.Add(available, utxos[idx].Amount)
	}
	if numbers.IsLess(available, target) {
		return nil, nil, NewInsufficientError(InsufficientErrorTypeFunds, new(big.Int).Set(target), available)
	}

	usedUTXOs = make([]*bitcoin.UTXO, 0, 1)
	for idx := range utxos {
		usedUTXOs = append(usedUTXOs, &utxos[idx])
		totalAmount.Add(totalAmount, utxos[idx].Amount)
		if !numbers.IsLess(totalAmount, target) {
			break
		}
	}

	return usedUTXOs, totalAmount, nil
}

// addOutput adds output to transaction, subtracts amount from unallocated amount.
func (b *TxBuilder) addOutput(tx *wire.MsgTx, amount, unallocatedAmount *big.Int, address string) error {
	if numbers.IsLess(unallocatedAmount, amount) {
		return errors.New("unallocated amount is less than the amount in provided inputs")
	}

	destinationAddrByte, err := utils.ScriptFor(address, b.networkParams)
	if err != nil {
		return err
	}

	tx.AddTxOut(wire.NewTxOut(amount.Int64(), destinationAddrByte))
	unallocatedAmount.Sub(unallocatedAmount, amount)

	return nil
}

// validate checks build parameters.
func (params BuildParams) validate() error {
	switch {
	case len(params.Inputs) == 0:
		return fmt.Errorf("%w: no inputs provided", bitcoin.ErrInvalidParams)
	case params.Amount == nil || !numbers.IsPositive(params.Amount):
		return fmt.Errorf("%w: amount must be positive", bitcoin.ErrInvalidParams)
	case params.Fee == nil || numbers.IsNegative(params.Fee):
		return fmt.Errorf("%w: fee must not be negative", bitcoin.ErrInvalidParams)
	}

	for _, utxo := range params.Inputs {
		if utxo == nil || utxo.Amount == nil || numbers.IsNegative(utxo.Amount) {
			return fmt.Errorf("%w: malformed input", bitcoin.ErrInvalidParams)
		}
	}

	return nil
}

// totalAmount returns sum of utxos amounts.
func totalAmount(utxos []*bitcoin.UTXO) *big.Int {
	total := big.NewInt(0)
	for _, utxo := range utxos {
		total.Add(total, utxo.Amount)
	}

	return total
}
