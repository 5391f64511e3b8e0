// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package node_test

import (
	"encoding/json"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/mock"

	"github.com/BoostyLabs/txsmith/bitcoin/node"
)

var _ node.Backend = (*mockBackend)(nil)

// mockBackend is a mock implementation of node json-rpc backend for use in tests.
type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) RawRequest(method string, params []json.RawMessage) (json.RawMessage, error) {
	args := m.Called(method, params)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func (m *mockBackend) GetRawMempool() ([]*chainhash.Hash, error) {
	args := m.Called()
	hashes, _ := args.Get(0).([]*chainhash.Hash)
	return hashes, args.Error(1)
}

func (m *mockBackend) GetRawTransactionVerbose(txHash *chainhash.Hash) (*btcjson.TxRawResult, error) {
	args := m.Called(txHash)
	res, _ := args.Get(0).(*btcjson.TxRawResult)
	return res, args.Error(1)
}

func (m *mockBackend) DecodeRawTransaction(serializedTx []byte) (*btcjson.TxRawResult, error) {
	args := m.Called(serializedTx)
	res, _ := args.Get(0).(*btcjson.TxRawResult)
	return res, args.Error(1)
}

func (m *mockBackend) SendRawTransaction(tx *wire.MsgTx, allowHighFees bool) (*chainhash.Hash, error) {
	args := m.Called(tx, allowHighFees)
	hash, _ := args.Get(0).(*chainhash.Hash)
	return hash, args.Error(1)
}

func (m *mockBackend) EstimateSmartFee(confTarget int64, mode *btcjson.EstimateSmartFeeMode) (*btcjson.EstimateSmartFeeResult, error) {
	args := m.Called(confTarget, mode)
	res, _ := args.Get(0).(*btcjson.EstimateSmartFeeResult)
	return res, args.Error(1)
}

func (m *mockBackend) GetBlockCount() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockBackend) Shutdown() {
	m.Called()
}
