// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder_test

import (
	"bytes"

	"github.com/btcsuite/btcd/btcutil/psbt"
)

// psbtFromBytes parses serialized psbt.
func psbtFromBytes(b []byte) (*psbt.Packet, error) {
	return psbt.NewFromRawBytes(bytes.NewReader(b), false)
}
