// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package txsmith_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/BoostyLabs/txsmith/bitcoin"
	"github.com/BoostyLabs/txsmith/bitcoin/txsmith"
)

var (
	_ txsmith.UTXOFetcher  = (*mockFetcher)(nil)
	_ txsmith.VSizeDecoder = constDecoder{}
	_ txsmith.VSizeDecoder = (*mockDecoder)(nil)
)

// mockFetcher is a mock implementation of utxo fetcher for use in tests.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchUTXOs(_ context.Context, address string) ([]bitcoin.UTXO, error) {
	args := m.Called(address)
	utxos, _ := args.Get(0).([]bitcoin.UTXO)
	return utxos, args.Error(1)
}

// constDecoder reports the same vsize for every transaction.
type constDecoder struct {
	vsize int64
	err   error
}

func (d constDecoder) DecodeVSize(context.Context, []byte) (int64, error) {
	return d.vsize, d.err
}

// mockDecoder is a mock implementation of vsize decoder for use in tests.
type mockDecoder struct {
	mock.Mock
}

func (m *mockDecoder) DecodeVSize(_ context.Context, serialized []byte) (int64, error) {
	args := m.Called(serialized)
	return args.Get(0).(int64), args.Error(1)
}
