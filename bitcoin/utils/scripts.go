// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package utils

import (
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// NewP2PKHSignatureScript builds legacy unlocking script.
// INFO: Script will have the next format: {<signature||sighash type> <public key>}.
func NewP2PKHSignatureScript(signature, publicKey []byte) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddData(signature).
		AddData(publicKey).
		Script()
}

// MustP2PKHSignatureScript uses NewP2PKHSignatureScript, panics in case of error.
func MustP2PKHSignatureScript(signature, publicKey []byte) []byte {
	script, err := NewP2PKHSignatureScript(signature, publicKey)
	if err != nil {
		panic(err)
	}

	return script
}

// NewP2WPKHWitness builds witness stack spending P2WPKH output.
// INFO: Stack will have the next format: [<signature||sighash type>, <public key>].
func NewP2WPKHWitness(signature, publicKey []byte) wire.TxWitness {
	return wire.TxWitness{signature, publicKey}
}
