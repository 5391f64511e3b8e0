// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package utils

import (
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"

	"github.com/BoostyLabs/txsmith/bitcoin"
)

// ClassifyAddress returns the spending class of address for the active network.
// Only P2PKH and version 0 P2WPKH addresses are supported, everything else
// (P2SH, P2WSH, taproot, foreign network, malformed input) is bitcoin.Unsupported.
func ClassifyAddress(address string, chainParams *chaincfg.Params) bitcoin.AddressType {
	_, addrType := decode(address, chainParams)

	return addrType
}

// DecodeAddress decodes supported address, returns UnsupportedAddressError otherwise.
func DecodeAddress(address string, chainParams *chaincfg.Params) (btcutil.Address, bitcoin.AddressType, error) {
	addr, addrType := decode(address, chainParams)
	if addrType == bitcoin.Unsupported {
		return nil, bitcoin.Unsupported, &bitcoin.UnsupportedAddressError{Address: address, Prefix: AddressPrefix(address)}
	}

	return addr, addrType, nil
}

// ScriptFor returns P2PKH or P2WPKH locking script for provided address.
func ScriptFor(address string, chainParams *chaincfg.Params) ([]byte, error) {
	addr, _, err := DecodeAddress(address, chainParams)
	if err != nil {
		return nil, err
	}

	return txscript.PayToAddrScript(addr)
}

// MustScriptFor uses ScriptFor, panics in case of error.
func MustScriptFor(address string, chainParams *chaincfg.Params) []byte {
	script, err := ScriptFor(address, chainParams)
	if err != nil {
		panic(err)
	}

	return script
}

// AddressPrefix returns the human readable prefix of an address, e.g. "bc1p" or "3".
func AddressPrefix(address string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return ""
	}

	lower := strings.ToLower(address)
	for _, hrp := range []string{"bcrt1", "bc1", "tb1"} {
		if strings.HasPrefix(lower, hrp) {
			if len(lower) > len(hrp) {
				return lower[:len(hrp)+1]
			}

			return lower
		}
	}

	return address[:1]
}

// AddressFromWIF derives address of the provided key for given address type.
// Legacy addresses respect WIF compression flag, witness addresses always use compressed key.
func AddressFromWIF(wif *btcutil.WIF, addrType bitcoin.AddressType, chainParams *chaincfg.Params) (btcutil.Address, error) {
	switch addrType {
	case bitcoin.Legacy:
		return btcutil.NewAddressPubKeyHash(btcutil.Hash160(wif.SerializePubKey()), chainParams)
	case bitcoin.WitnessV0:
		return btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(wif.PrivKey.PubKey().SerializeCompressed()), chainParams)
	default:
		return nil, bitcoin.ErrUnsupportedAddressType
	}
}

// decode decodes address and determines its type.
func decode(address string, chainParams *chaincfg.Params) (btcutil.Address, bitcoin.AddressType) {
	addr, err := btcutil.DecodeAddress(strings.TrimSpace(address), chainParams)
	if err != nil || !addr.IsForNet(chainParams) {
		return nil, bitcoin.Unsupported
	}

	switch a := addr.(type) {
	case *btcutil.AddressPubKeyHash:
		return a, bitcoin.Legacy
	case *btcutil.AddressWitnessPubKeyHash:
		if a.WitnessVersion() != 0 || len(a.WitnessProgram()) != 20 {
			return nil, bitcoin.Unsupported
		}

		return a, bitcoin.WitnessV0
	default:
		return nil, bitcoin.Unsupported
	}
}
