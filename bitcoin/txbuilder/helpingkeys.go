// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"errors"
)

// ErrUnknownInputsHelpingKey defines that inputs help keys is unknown.
var ErrUnknownInputsHelpingKey = errors.New("unknown inputs help keys")

// maxHelpedInputs is the number of input indexes representable by helping values.
const maxHelpedInputs = 256

// InputsHelpingKey defines type for additional data in PSBT Unknowns field
// to distinguish input types and their indexes.
type InputsHelpingKey byte

const (
	// LegacyInputsHelpingKey defines key for P2PKH inputs.
	LegacyInputsHelpingKey InputsHelpingKey = 0x20
	// WitnessInputsHelpingKey defines key for P2WPKH inputs.
	WitnessInputsHelpingKey InputsHelpingKey = 0x21
)

// InputsHelpingKeyFromBytes parses bytes array into InputsHelpingKey if any.
func InputsHelpingKeyFromBytes(b []byte) (InputsHelpingKey, error) {
	if len(b) != 1 {
		return 0, ErrUnknownInputsHelpingKey
	}

	switch b[0] {
	case LegacyInputsHelpingKey.Byte():
		return LegacyInputsHelpingKey, nil
	case WitnessInputsHelpingKey.Byte():
		return WitnessInputsHelpingKey, nil
	}

	return 0, ErrUnknownInputsHelpingKey
}

// InputsHelpingKeyFor returns key for inputs of PSBTInputBuilder script type.
func InputsHelpingKeyFor(scriptType string) InputsHelpingKey {
	if scriptType == P2PKH {
		return LegacyInputsHelpingKey
	}

	return WitnessInputsHelpingKey
}

// Byte returns InputsHelpingKey as byte.
func (k InputsHelpingKey) Byte() byte {
	return byte(k)
}

// Bytes returns InputsHelpingKey as bytes array.
func (k InputsHelpingKey) Bytes() []byte {
	return []byte{byte(k)}
}
