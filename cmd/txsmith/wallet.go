// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/BoostyLabs/txsmith/bitcoin"
	"github.com/BoostyLabs/txsmith/bitcoin/utils"
)

// ErrNoWallet defines that no wallet file could be found.
var ErrNoWallet = errors.New("no wallet file found")

// walletFile is the content of wallet JSON file.
type walletFile struct {
	Address       string `json:"address"`
	PrivateKeyWIF string `json:"private_key_wif"`
}

// loadWallet reads wallet file, private key is optional.
func loadWallet(path string) (*walletFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var wallet walletFile
	if err = json.Unmarshal(data, &wallet); err != nil {
		return nil, fmt.Errorf("wallet %s: %w", path, err)
	}

	wallet.Address = strings.TrimSpace(wallet.Address)
	wallet.PrivateKeyWIF = strings.TrimSpace(wallet.PrivateKeyWIF)
	if wallet.Address == "" {
		return nil, fmt.Errorf("wallet %s: address is empty", path)
	}

	return &wallet, nil
}

// findWalletFiles returns sorted *.json files of directory.
func findWalletFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoWallet, dir)
	}

	sort.Strings(files)

	return files, nil
}

// decodeKey decodes WIF private key of the network.
func decodeKey(wif string, params *chaincfg.Params) (*btcutil.WIF, error) {
	key, err := btcutil.DecodeWIF(strings.TrimSpace(wif))
	if err != nil {
		return nil, fmt.Errorf("%w: private key: %w", bitcoin.ErrInvalidParams, err)
	}

	if !key.IsForNet(params) {
		return nil, fmt.Errorf("%w: private key is not for %s", bitcoin.ErrInvalidParams, params.Name)
	}

	return key, nil
}

// checkWalletAddress returns address type of wallet address.
func checkWalletAddress(wallet *walletFile, params *chaincfg.Params) (bitcoin.AddressType, error) {
	_, addrType, err := utils.DecodeAddress(wallet.Address, params)
	if err != nil {
		return bitcoin.Unsupported, fmt.Errorf("wallet address: %w", err)
	}

	return addrType, nil
}
