// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder_test

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/txsmith/bitcoin"
)

const testTxHash = "d78a52d61c43ec43d56e270e8f87ebe952f3bb5fe0a042494ed6ebf753285746"

// testAddress holds address of a deterministic key with its locking script.
type testAddress struct {
	address string
	script  []byte
}

// newTestAddresses returns legacy and witness addresses of a key built from seed byte.
func newTestAddresses(t *testing.T, seed byte, params *chaincfg.Params) (legacy, witness testAddress) {
	t.Helper()

	privKey, _ := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{seed}, 32))
	pkHash := btcutil.Hash160(privKey.PubKey().SerializeCompressed())

	legacyAddr, err := btcutil.NewAddressPubKeyHash(pkHash, params)
	require.NoError(t, err)
	legacy.address = legacyAddr.EncodeAddress()
	legacy.script, err = txscript.PayToAddrScript(legacyAddr)
	require.NoError(t, err)

	witnessAddr, err := btcutil.NewAddressWitnessPubKeyHash(pkHash, params)
	require.NoError(t, err)
	witness.address = witnessAddr.EncodeAddress()
	witness.script, err = txscript.PayToAddrScript(witnessAddr)
	require.NoError(t, err)

	return legacy, witness
}

// newUTXO returns utxo of the provided owner.
func newUTXO(index uint32, amount int64, owner testAddress) bitcoin.UTXO {
	return bitcoin.UTXO{
		TxHash:        testTxHash,
		Index:         index,
		Amount:        big.NewInt(amount),
		Script:        owner.script,
		Address:       owner.address,
		Confirmations: 6,
	}
}
