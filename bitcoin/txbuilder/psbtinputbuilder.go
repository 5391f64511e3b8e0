// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/txsmith/bitcoin"
)

// ErrPSBTInputBuilder defines errors class for prepare input data method.
var ErrPSBTInputBuilder = errors.New("prepare psbt input")

const (
	// P2PKH defines P2PKH (public key hash) script type over which the address is built.
	P2PKH = "P2PKH"
	// P2WPKH defines P2WPKH (witness public key hash) script type over which the address is built.
	P2WPKH = "P2WPKH"
)

// PSBTInputBuilder is a helping tool to prepare psbt input based on spent script type.
type PSBTInputBuilder struct {
	params     *chaincfg.Params
	scriptType string
	address    btcutil.Address
}

// NewPSBTInputBuilder is a constructor for PSBTInputBuilder.
func NewPSBTInputBuilder(pkScript []byte, networkParams *chaincfg.Params) (pib *PSBTInputBuilder, err error) {
	pib = &PSBTInputBuilder{params: networkParams}

	defer func(err *error) {
		if err != nil && *err != nil {
			*err = errors.Join(ErrPSBTInputBuilder, *err)
		}
	}(&err)

	_, addresses, _, err := txscript.ExtractPkScriptAddrs(pkScript, pib.params)
	if err != nil {
		return pib, err
	}
	if len(addresses) != 1 {
		return pib, bitcoin.ErrUnsupportedAddressType
	}

	pib.address = addresses[0]
	switch pib.address.(type) {
	case *btcutil.AddressWitnessPubKeyHash:
		pib.scriptType = P2WPKH
	case *btcutil.AddressPubKeyHash:
		pib.scriptType = P2PKH
	default:
		return pib, bitcoin.ErrUnsupportedAddressType
	}

	return pib, nil
}

// PrepareInput updates input with required data based on script type.
// Legacy inputs need the whole previous transaction which is not known here,
// so only the sighash type is set for them.
func (pib *PSBTInputBuilder) PrepareInput(input *psbt.PInput, utxo *bitcoin.UTXO) {
	input.SighashType = signHashType
	if pib.scriptType == P2WPKH {
		input.WitnessUtxo = wire.NewTxOut(utxo.Amount.Int64(), utxo.Script)
	}
}

// ScriptType returns underlying script type.
func (pib *PSBTInputBuilder) ScriptType() string {
	return pib.scriptType
}

// Address returns address of the spent script.
func (pib *PSBTInputBuilder) Address() btcutil.Address {
	return pib.address
}

// BuildPSBT returns serialized PSBT of the unsigned draft.
// Indexes of inputs are listed in global unknowns under InputsHelpingKey of their script type.
func (b *TxBuilder) BuildPSBT(draft *Draft) ([]byte, error) {
	unsignedTx := draft.Tx.Copy()
	for _, in := range unsignedTx.TxIn {
		in.SignatureScript = nil
		in.Witness = nil
	}

	p, err := psbt.NewFromUnsignedTx(unsignedTx)
	if err != nil {
		return nil, err
	}

	if len(draft.Inputs) > maxHelpedInputs {
		return nil, fmt.Errorf("%w: too many inputs for psbt, %d", bitcoin.ErrInvalidParams, len(draft.Inputs))
	}

	indexes := make(map[InputsHelpingKey][]byte, 2)
	for i, utxo := range draft.Inputs {
		pib, err := NewPSBTInputBuilder(utxo.Script, b.networkParams)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}

		pib.PrepareInput(&p.Inputs[i], utxo)

		key := InputsHelpingKeyFor(pib.ScriptType())
		indexes[key] = append(indexes[key], byte(i))
	}

	for _, key := range []InputsHelpingKey{LegacyInputsHelpingKey, WitnessInputsHelpingKey} {
		if len(indexes[key]) != 0 {
			p.Unknowns = append(p.Unknowns, &psbt.Unknown{Key: key.Bytes(), Value: indexes[key]})
		}
	}

	w := bytes.NewBuffer(nil)
	err = p.Serialize(w)
	if err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}
