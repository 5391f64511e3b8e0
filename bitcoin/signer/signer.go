// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package signer

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/txsmith/bitcoin"
	"github.com/BoostyLabs/txsmith/bitcoin/txbuilder"
	"github.com/BoostyLabs/txsmith/bitcoin/utils"
)

const (
	// signHashType define signature hash type for input signing.
	signHashType = txscript.SigHashAll
	// MaxSignatureLen is the longest DER encoded signature with sighash type byte.
	MaxSignatureLen = 73
)

// ErrUncompressedKey defines that witness input can not be signed by uncompressed key.
var ErrUncompressedKey = errors.New("witness inputs require compressed public key")

// InputSigner produces unlocking data for a single input of one address type.
type InputSigner interface {
	// AddressType returns address type of spent outputs.
	AddressType() bitcoin.AddressType
	// SignInput returns unlocking data for input idx of the tx.
	SignInput(tx *wire.MsgTx, idx int, prevOuts *PrevOuts, key *btcutil.WIF) (*Proof, error)
}

// Proof holds unlocking data of an input, only one of fields is set.
type Proof struct {
	SignatureScript []byte
	Witness         wire.TxWitness
}

// PrevOuts resolves outputs spent by transaction inputs with precomputed BIP-143 hashes.
type PrevOuts struct {
	*txscript.MultiPrevOutFetcher
	SigHashes *txscript.TxSigHashes
}

// NewPrevOuts is a constructor for PrevOuts, inputs must follow tx inputs order.
func NewPrevOuts(tx *wire.MsgTx, inputs []*bitcoin.UTXO) (*PrevOuts, error) {
	if len(tx.TxIn) != len(inputs) {
		return nil, fmt.Errorf("%w: %d inputs for %d spent outputs", bitcoin.ErrInvalidParams, len(tx.TxIn), len(inputs))
	}

	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for idx, in := range tx.TxIn {
		if inputs[idx] == nil || inputs[idx].Amount == nil {
			return nil, fmt.Errorf("%w: malformed spent output %d", bitcoin.ErrInvalidParams, idx)
		}

		fetcher.AddPrevOut(in.PreviousOutPoint, wire.NewTxOut(inputs[idx].Amount.Int64(), inputs[idx].Script))
	}

	return &PrevOuts{
		MultiPrevOutFetcher: fetcher,
		SigHashes:           txscript.NewTxSigHashes(tx, fetcher),
	}, nil
}

// spent returns output spent by input idx.
func (p *PrevOuts) spent(tx *wire.MsgTx, idx int) (*wire.TxOut, error) {
	if idx < 0 || idx >= len(tx.TxIn) {
		return nil, errors.New("invalid input index")
	}

	prevOut := p.FetchPrevOutput(tx.TxIn[idx].PreviousOutPoint)
	if prevOut == nil {
		return nil, fmt.Errorf("unknown spent output of input %d", idx)
	}

	return prevOut, nil
}

// LegacySigner signs P2PKH inputs.
type LegacySigner struct{}

// AddressType returns bitcoin.Legacy.
func (LegacySigner) AddressType() bitcoin.AddressType {
	return bitcoin.Legacy
}

// SignInput signs input over spent script, unlocking script carries signature and public key.
// Public key is serialized according to WIF compression flag.
func (LegacySigner) SignInput(tx *wire.MsgTx, idx int, prevOuts *PrevOuts, key *btcutil.WIF) (*Proof, error) {
	prevOut, err := prevOuts.spent(tx, idx)
	if err != nil {
		return nil, err
	}

	sig, err := txscript.RawTxInSignature(tx, idx, prevOut.PkScript, signHashType, key.PrivKey)
	if err != nil {
		return nil, err
	}

	sigScript, err := utils.NewP2PKHSignatureScript(sig, key.SerializePubKey())
	if err != nil {
		return nil, err
	}

	return &Proof{SignatureScript: sigScript}, nil
}

// WitnessSigner signs P2WPKH inputs.
type WitnessSigner struct{}

// AddressType returns bitcoin.WitnessV0.
func (WitnessSigner) AddressType() bitcoin.AddressType {
	return bitcoin.WitnessV0
}

// SignInput signs input with BIP-143 digest, unlocking script stays empty.
func (WitnessSigner) SignInput(tx *wire.MsgTx, idx int, prevOuts *PrevOuts, key *btcutil.WIF) (*Proof, error) {
	if !key.CompressPubKey {
		return nil, ErrUncompressedKey
	}

	prevOut, err := prevOuts.spent(tx, idx)
	if err != nil {
		return nil, err
	}

	sig, err := txscript.RawTxInWitnessSignature(
		tx, prevOuts.SigHashes, idx,
		prevOut.Value, prevOut.PkScript, signHashType, key.PrivKey)
	if err != nil {
		return nil, err
	}

	return &Proof{Witness: utils.NewP2WPKHWitness(sig, key.SerializePubKey())}, nil
}

// NewInputSigner returns signer for provided address type.
func NewInputSigner(addrType bitcoin.AddressType) (InputSigner, error) {
	switch addrType {
	case bitcoin.Legacy:
		return LegacySigner{}, nil
	case bitcoin.WitnessV0:
		return WitnessSigner{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", bitcoin.ErrUnsupportedAddressType, addrType)
	}
}

// Sign signs every input of the draft, returns signed copy of draft transaction.
func Sign(s InputSigner, draft *txbuilder.Draft, key *btcutil.WIF) (*wire.MsgTx, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: signing key is not provided", bitcoin.ErrInvalidParams)
	}

	tx := draft.Tx.Copy()
	prevOuts, err := NewPrevOuts(tx, draft.Inputs)
	if err != nil {
		return nil, err
	}

	for idx := range tx.TxIn {
		proof, err := s.SignInput(tx, idx, prevOuts, key)
		if err != nil {
			return nil, fmt.Errorf("sign input %d: %w", idx, err)
		}

		tx.TxIn[idx].SignatureScript = proof.SignatureScript
		tx.TxIn[idx].Witness = proof.Witness
	}

	return tx, nil
}

// Verify executes every input of signed tx against spent outputs with standard verification flags.
func Verify(tx *wire.MsgTx, inputs []*bitcoin.UTXO) error {
	prevOuts, err := NewPrevOuts(tx, inputs)
	if err != nil {
		return err
	}

	for idx := range tx.TxIn {
		prevOut, err := prevOuts.spent(tx, idx)
		if err != nil {
			return err
		}

		vm, err := txscript.NewEngine(
			prevOut.PkScript, tx, idx, txscript.StandardVerifyFlags,
			nil, prevOuts.SigHashes, prevOut.Value, prevOuts)
		if err != nil {
			return fmt.Errorf("verify input %d: %w", idx, err)
		}

		if err = vm.Execute(); err != nil {
			return fmt.Errorf("verify input %d: %w", idx, err)
		}
	}

	return nil
}

// MaxSizeGrowth returns vbytes signed tx may gain when its inputs are signed again
// over other outputs, with every signature reaching MaxSignatureLen.
// INFO: Signatures are single push items, so only their bytes change.
func MaxSizeGrowth(tx *wire.MsgTx) int64 {
	var stripped, witness int64
	for _, in := range tx.TxIn {
		switch {
		case len(in.Witness) > 0:
			witness += int64(MaxSignatureLen - len(in.Witness[0]))
		case len(in.SignatureScript) > 0:
			// first opcode is OP_DATA_N pushing N bytes of signature.
			stripped += int64(MaxSignatureLen - int(in.SignatureScript[0]))
		}
	}

	return stripped + (witness+blockchain.WitnessScaleFactor-1)/blockchain.WitnessScaleFactor
}

// CheckKey checks that key controls address of provided type.
func CheckKey(addrType bitcoin.AddressType, address string, key *btcutil.WIF, networkParams *chaincfg.Params) error {
	addr, _, err := utils.DecodeAddress(address, networkParams)
	if err != nil {
		return err
	}

	derived, err := utils.AddressFromWIF(key, addrType, networkParams)
	if err != nil {
		return err
	}

	if derived.EncodeAddress() != addr.EncodeAddress() {
		return &bitcoin.KeyMismatchError{Address: addr.EncodeAddress(), Derived: derived.EncodeAddress()}
	}

	return nil
}
