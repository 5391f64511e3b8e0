// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/txsmith/bitcoin"
	"github.com/BoostyLabs/txsmith/bitcoin/utils"
)

func TestWallet(t *testing.T) {
	params := &chaincfg.TestNet3Params
	privKey, _ := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{0x55}, 32))
	wif, err := btcutil.NewWIF(privKey, params, true)
	require.NoError(t, err)
	address, err := utils.AddressFromWIF(wif, bitcoin.WitnessV0, params)
	require.NoError(t, err)

	dir := t.TempDir()
	writeFile := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
		return path
	}

	t.Run("find", func(t *testing.T) {
		_, err := findWalletFiles(t.TempDir())
		require.ErrorIs(t, err, ErrNoWallet)

		b := writeFile("b.json", `{}`)
		a := writeFile("a.json", `{}`)
		writeFile("notes.txt", "")

		files, err := findWalletFiles(dir)
		require.NoError(t, err)
		require.Equal(t, []string{a, b}, files)

		chosen, err := chooseWallet(files[:1])
		require.NoError(t, err)
		require.Equal(t, a, chosen)
	})

	t.Run("load", func(t *testing.T) {
		path := writeFile("wallet.json", `{"address": " `+address.EncodeAddress()+` ", "private_key_wif": "`+wif.String()+`"}`)

		wallet, err := loadWallet(path)
		require.NoError(t, err)
		require.Equal(t, address.EncodeAddress(), wallet.Address)
		require.Equal(t, wif.String(), wallet.PrivateKeyWIF)

		addrType, err := checkWalletAddress(wallet, params)
		require.NoError(t, err)
		require.Equal(t, bitcoin.WitnessV0, addrType)

		key, err := decodeKey(wallet.PrivateKeyWIF, params)
		require.NoError(t, err)
		require.Equal(t, wif.SerializePubKey(), key.SerializePubKey())

		_, err = decodeKey(wallet.PrivateKeyWIF, &chaincfg.MainNetParams)
		require.ErrorIs(t, err, bitcoin.ErrInvalidParams)

		_, err = decodeKey("not a key", params)
		require.ErrorIs(t, err, bitcoin.ErrInvalidParams)

		_, err = checkWalletAddress(wallet, &chaincfg.MainNetParams)
		require.ErrorIs(t, err, bitcoin.ErrUnsupportedAddressType)
	})

	t.Run("key is optional", func(t *testing.T) {
		wallet, err := loadWallet(writeFile("watch.json", `{"address": "`+address.EncodeAddress()+`"}`))
		require.NoError(t, err)
		require.Empty(t, wallet.PrivateKeyWIF)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := loadWallet(writeFile("empty.json", `{"private_key_wif": "`+wif.String()+`"}`))
		require.Error(t, err)

		_, err = loadWallet(writeFile("broken.json", `{"address": `))
		require.Error(t, err)

		_, err = loadWallet(filepath.Join(dir, "missing.json"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}
