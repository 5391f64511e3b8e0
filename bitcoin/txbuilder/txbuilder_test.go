// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/txsmith/bitcoin"
	"github.com/BoostyLabs/txsmith/bitcoin/txbuilder"
)

func TestSelectUTXO(t *testing.T) {
	utxos := []bitcoin.UTXO{ // fetch order, not sorted.
		{Amount: big.NewInt(150000)},
		{Amount: big.NewInt(75000)},
		{Amount: big.NewInt(25000)},
		{Amount: big.NewInt(10000)},
		{Amount: big.NewInt(5000)},
		{Amount: big.NewInt(546)},
	}

	tests := []struct {
		target      *big.Int
		totalAmount *big.Int
		utxos       []*bitcoin.UTXO
		err         error
	}{
		{big.NewInt(150000), big.NewInt(150000), []*bitcoin.UTXO{&utxos[0]}, nil},
		{big.NewInt(149000), big.NewInt(150000), []*bitcoin.UTXO{&utxos[0]}, nil},
		{big.NewInt(150001), big.NewInt(225000), []*bitcoin.UTXO{&utxos[0], &utxos[1]}, nil},
		{big.NewInt(225000), big.NewInt(225000), []*bitcoin.UTXO{&utxos[0], &utxos[1]}, nil},
		{big.NewInt(255000), big.NewInt(260000), []*bitcoin.UTXO{&utxos[0], &utxos[1], &utxos[2], &utxos[3]}, nil},
		{big.NewInt(265546), big.NewInt(265546), []*bitcoin.UTXO{&utxos[0], &utxos[1], &utxos[2], &utxos[3], &utxos[4], &utxos[5]}, nil},
		{big.NewInt(265547), nil, nil, txbuilder.NewInsufficientError(txbuilder.InsufficientErrorTypeFunds, big.NewInt(265547), big.NewInt(265546))},
		{big.NewInt(0), big.NewInt(0), []*bitcoin.UTXO{}, nil},
	}

	for _, test := range tests {
		usedUTXOs, totalAmount, err := txbuilder.SelectUTXO(utxos, test.target)
		require.Equal(t, test.err, err, test.target.String())
		require.Equal(t, test.utxos, usedUTXOs, test.target.String())
		require.EqualValues(t, test.totalAmount, totalAmount, test.target.String())
	}

	t.Run("first prefix covering target", func(t *testing.T) {
		var sum int64
		for _, utxo := range utxos {
			sum += utxo.Amount.Int64()
		}

		for target := int64(1); target <= sum; target += 997 {
			usedUTXOs, totalAmount, err := txbuilder.SelectUTXO(utxos, big.NewInt(target))
			require.NoError(t, err)

			var prefix int64
			for idx, used := range usedUTXOs {
				require.Same(t, &utxos[idx], used)
				if idx < len(usedUTXOs)-1 {
					prefix += used.Amount.Int64()
				}
			}
			require.Less(t, prefix, target)
			require.GreaterOrEqual(t, totalAmount.Int64(), target)
		}
	})

	t.Run("insufficient funds", func(t *testing.T) {
		_, _, err := txbuilder.SelectUTXO(nil, big.NewInt(1))
		require.ErrorIs(t, err, bitcoin.ErrInsufficientFunds)

		var insufficientErr *txbuilder.InsufficientError
		require.True(t, errors.As(err, &insufficientErr))
		require.EqualValues(t, 0, insufficientErr.Have.Int64())
		require.EqualValues(t, 1, insufficientErr.Need.Int64())
	})
}

func TestTxBuilder(t *testing.T) {
	params := &chaincfg.TestNet3Params
	txBuilder := txbuilder.NewTxBuilder(params, nil)
	senderLegacy, senderWitness := newTestAddresses(t, 0x01, params)
	recipientLegacy, recipientWitness := newTestAddresses(t, 0x02, params)

	t.Run("Build with change", func(t *testing.T) {
		utxos := []bitcoin.UTXO{newUTXO(0, 100000, senderLegacy)}

		draft, err := txBuilder.Build(txbuilder.BuildParams{
			Inputs:           []*bitcoin.UTXO{&utxos[0]},
			RecipientAddress: recipientWitness.address,
			Amount:           big.NewInt(50000),
			ChangeAddress:    senderLegacy.address,
			Fee:              big.NewInt(1910),
		})
		require.NoError(t, err)

		require.EqualValues(t, 2, draft.Tx.Version)
		require.EqualValues(t, 0, draft.Tx.LockTime)
		require.Len(t, draft.Tx.TxIn, 1)
		require.Empty(t, draft.Tx.TxIn[0].SignatureScript)
		require.Empty(t, draft.Tx.TxIn[0].Witness)
		require.EqualValues(t, wire.MaxTxInSequenceNum, draft.Tx.TxIn[0].Sequence)
		require.Equal(t, testTxHash, draft.Tx.TxIn[0].PreviousOutPoint.Hash.String())

		require.True(t, draft.HasChange())
		require.Len(t, draft.Tx.TxOut, 2)
		require.EqualValues(t, 50000, draft.Tx.TxOut[0].Value)
		require.Equal(t, recipientWitness.script, draft.Tx.TxOut[0].PkScript)
		require.EqualValues(t, 48090, draft.Tx.TxOut[1].Value)
		require.Equal(t, senderLegacy.script, draft.Tx.TxOut[1].PkScript)
		require.EqualValues(t, 48090, draft.Change.Int64())
		require.EqualValues(t, 1910, draft.Fee.Int64())
		require.EqualValues(t, 100000, draft.Tx.TxOut[0].Value+draft.Tx.TxOut[1].Value+draft.Fee.Int64())
	})

	t.Run("exact spend omits change", func(t *testing.T) {
		utxos := []bitcoin.UTXO{newUTXO(0, 30000, senderWitness), newUTXO(1, 22000, senderWitness)}

		draft, err := txBuilder.Build(txbuilder.BuildParams{
			Inputs:           []*bitcoin.UTXO{&utxos[0], &utxos[1]},
			RecipientAddress: recipientLegacy.address,
			Amount:           big.NewInt(50000),
			ChangeAddress:    senderWitness.address,
			Fee:              big.NewInt(2000),
		})
		require.NoError(t, err)
		require.False(t, draft.HasChange())
		require.Len(t, draft.Tx.TxOut, 1)
		require.EqualValues(t, 0, draft.Change.Int64())
		require.EqualValues(t, 2000, draft.Fee.Int64())
		require.EqualValues(t, 0, draft.Tx.TxIn[0].PreviousOutPoint.Index)
		require.EqualValues(t, 1, draft.Tx.TxIn[1].PreviousOutPoint.Index)
		require.EqualValues(t, 52000, draft.Tx.TxOut[0].Value+draft.Fee.Int64())
	})

	t.Run("dust change absorbed into fee", func(t *testing.T) {
		dustBuilder := txbuilder.NewTxBuilder(params, big.NewInt(546))
		utxos := []bitcoin.UTXO{newUTXO(0, 52500, senderWitness)}

		draft, err := dustBuilder.Build(txbuilder.BuildParams{
			Inputs:           []*bitcoin.UTXO{&utxos[0]},
			RecipientAddress: recipientWitness.address,
			Amount:           big.NewInt(50000),
			ChangeAddress:    senderWitness.address,
			Fee:              big.NewInt(2000),
		})
		require.NoError(t, err)
		require.False(t, draft.HasChange())
		require.EqualValues(t, 2500, draft.Fee.Int64())
		require.EqualValues(t, 0, draft.Change.Int64())

		draft, err = dustBuilder.Build(txbuilder.BuildParams{
			Inputs:           []*bitcoin.UTXO{&utxos[0]},
			RecipientAddress: recipientWitness.address,
			Amount:           big.NewInt(50000),
			ChangeAddress:    senderWitness.address,
			Fee:              big.NewInt(1954),
		})
		require.NoError(t, err)
		require.True(t, draft.HasChange())
		require.EqualValues(t, 546, draft.Change.Int64())
	})

	t.Run("accounting invariant", func(t *testing.T) {
		utxos := []bitcoin.UTXO{newUTXO(0, 40000, senderWitness), newUTXO(1, 12000, senderWitness)}
		inputs := []*bitcoin.UTXO{&utxos[0], &utxos[1]}

		for fee := int64(0); fee <= 2000; fee += 250 {
			draft, err := txBuilder.Build(txbuilder.BuildParams{
				Inputs:           inputs,
				RecipientAddress: recipientWitness.address,
				Amount:           big.NewInt(50000),
				ChangeAddress:    senderWitness.address,
				Fee:              big.NewInt(fee),
			})
			require.NoError(t, err)

			var outputs int64
			for _, out := range draft.Tx.TxOut {
				outputs += out.Value
			}
			require.EqualValues(t, 52000, outputs+draft.Fee.Int64())
			require.EqualValues(t, 52000, draft.Amount.Int64()+draft.Fee.Int64()+draft.Change.Int64())
			require.Equal(t, fee < 2000, draft.HasChange())
			require.False(t, draft.Change.Sign() < 0)
		}
	})

	t.Run("insufficient input value", func(t *testing.T) {
		utxos := []bitcoin.UTXO{newUTXO(0, 50000, senderWitness)}

		_, err := txBuilder.Build(txbuilder.BuildParams{
			Inputs:           []*bitcoin.UTXO{&utxos[0]},
			RecipientAddress: recipientWitness.address,
			Amount:           big.NewInt(50000),
			ChangeAddress:    senderWitness.address,
			Fee:              big.NewInt(1),
		})
		require.ErrorIs(t, err, bitcoin.ErrInsufficientInputValue)
		require.NotErrorIs(t, err, bitcoin.ErrInsufficientFunds)

		var insufficientErr *txbuilder.InsufficientError
		require.True(t, errors.As(err, &insufficientErr))
		require.EqualValues(t, 50001, insufficientErr.Need.Int64())
		require.EqualValues(t, 50000, insufficientErr.Have.Int64())
	})

	t.Run("invalid params", func(t *testing.T) {
		utxos := []bitcoin.UTXO{newUTXO(0, 50000, senderWitness)}
		badHash := newUTXO(0, 50000, senderWitness)
		badHash.TxHash = "zz"

		tests := []struct {
			params txbuilder.BuildParams
			err    error
		}{
			{txbuilder.BuildParams{RecipientAddress: recipientWitness.address, Amount: big.NewInt(1), ChangeAddress: senderWitness.address, Fee: big.NewInt(0)}, bitcoin.ErrInvalidParams},
			{txbuilder.BuildParams{Inputs: []*bitcoin.UTXO{&utxos[0]}, RecipientAddress: recipientWitness.address, Amount: big.NewInt(0), ChangeAddress: senderWitness.address, Fee: big.NewInt(0)}, bitcoin.ErrInvalidParams},
			{txbuilder.BuildParams{Inputs: []*bitcoin.UTXO{&utxos[0]}, RecipientAddress: recipientWitness.address, Amount: big.NewInt(1), ChangeAddress: senderWitness.address, Fee: big.NewInt(-1)}, bitcoin.ErrInvalidParams},
			{txbuilder.BuildParams{Inputs: []*bitcoin.UTXO{&badHash}, RecipientAddress: recipientWitness.address, Amount: big.NewInt(1), ChangeAddress: senderWitness.address, Fee: big.NewInt(0)}, bitcoin.ErrInvalidParams},
			{txbuilder.BuildParams{Inputs: []*bitcoin.UTXO{&utxos[0]}, RecipientAddress: "2N8mvwwUPfXt8FczXvE1UvM8ioVTW9LQLj1", Amount: big.NewInt(1), ChangeAddress: senderWitness.address, Fee: big.NewInt(0)}, bitcoin.ErrUnsupportedAddressType},
			{txbuilder.BuildParams{Inputs: []*bitcoin.UTXO{&utxos[0]}, RecipientAddress: recipientWitness.address, Amount: big.NewInt(1), ChangeAddress: "tb1p9m40h0uj4uk37hsgvm97h4shhx2kyhehvfax8rysfhwjdp2ycvgqtxqsu0", Fee: big.NewInt(0)}, bitcoin.ErrUnsupportedAddressType},
		}
		for _, test := range tests {
			_, err := txBuilder.Build(test.params)
			require.ErrorIs(t, err, test.err)
		}
	})

	t.Run("BuildPSBT", func(t *testing.T) {
		for _, sender := range []testAddress{senderLegacy, senderWitness} {
			utxos := []bitcoin.UTXO{newUTXO(3, 70000, sender)}
			draft, err := txBuilder.Build(txbuilder.BuildParams{
				Inputs:           []*bitcoin.UTXO{&utxos[0]},
				RecipientAddress: recipientLegacy.address,
				Amount:           big.NewInt(50000),
				ChangeAddress:    sender.address,
				Fee:              big.NewInt(1000),
			})
			require.NoError(t, err)

			packetBytes, err := txBuilder.BuildPSBT(draft)
			require.NoError(t, err)

			packet, err := psbtFromBytes(packetBytes)
			require.NoError(t, err)
			require.Equal(t, draft.Tx.TxHash(), packet.UnsignedTx.TxHash())
			require.Len(t, packet.Inputs, 1)
			require.Len(t, packet.Outputs, 2)
			require.EqualValues(t, 1, packet.Inputs[0].SighashType)

			indexes, err := txbuilder.ExtractAddressTypeInputIndexesFromPSBT(packetBytes)
			require.NoError(t, err)

			if sender.address == senderWitness.address {
				require.Equal(t, map[txbuilder.InputsHelpingKey][]int{txbuilder.WitnessInputsHelpingKey: {0}}, indexes)
				require.NotNil(t, packet.Inputs[0].WitnessUtxo)
				require.EqualValues(t, 70000, packet.Inputs[0].WitnessUtxo.Value)
				require.Equal(t, sender.script, packet.Inputs[0].WitnessUtxo.PkScript)
			} else {
				require.Equal(t, map[txbuilder.InputsHelpingKey][]int{txbuilder.LegacyInputsHelpingKey: {0}}, indexes)
				require.Nil(t, packet.Inputs[0].WitnessUtxo)
			}
		}
	})

	t.Run("PSBTInputBuilder", func(t *testing.T) {
		pib, err := txbuilder.NewPSBTInputBuilder(senderWitness.script, params)
		require.NoError(t, err)
		require.Equal(t, txbuilder.P2WPKH, pib.ScriptType())
		require.Equal(t, senderWitness.address, pib.Address().EncodeAddress())

		pib, err = txbuilder.NewPSBTInputBuilder(senderLegacy.script, params)
		require.NoError(t, err)
		require.Equal(t, txbuilder.P2PKH, pib.ScriptType())

		p2sh, err := btcutil.NewAddressScriptHashFromHash(make([]byte, 20), params)
		require.NoError(t, err)
		p2shScript, err := txscript.PayToAddrScript(p2sh)
		require.NoError(t, err)
		_, err = txbuilder.NewPSBTInputBuilder(p2shScript, params)
		require.ErrorIs(t, err, txbuilder.ErrPSBTInputBuilder)
		require.ErrorIs(t, err, bitcoin.ErrUnsupportedAddressType)
	})
}
