// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package bitcoin

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedAddressType defines that address is neither P2PKH nor P2WPKH of the active network.
	ErrUnsupportedAddressType = errors.New("unsupported address type")
	// ErrInsufficientFunds defines that spendable outputs do not cover required amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientInputValue defines that inputs do not cover outputs and fee of a draft.
	ErrInsufficientInputValue = errors.New("insufficient input value")
	// ErrSigningKeyMismatch defines that private key does not control the spent address.
	ErrSigningKeyMismatch = errors.New("signing key mismatch")
	// ErrNodeRejection defines that node refused the transaction.
	ErrNodeRejection = errors.New("node rejected transaction")
	// ErrInvalidParams defines that provided parameters are malformed.
	ErrInvalidParams = errors.New("invalid parameters")
	// ErrFeeUnderpaid defines that signed transaction pays less than fee rate for its size.
	ErrFeeUnderpaid = errors.New("fee underpaid")
	// ErrInvalidFeeRate defines that fee rate is out of allowed bounds.
	ErrInvalidFeeRate = errors.New("invalid fee rate")
)

// UnsupportedAddressError describes address rejected by classification.
type UnsupportedAddressError struct {
	Address string
	Prefix  string
}

// Error returns error description.
func (e *UnsupportedAddressError) Error() string {
	return fmt.Sprintf("%s: %q (prefix %q)", ErrUnsupportedAddressType, e.Address, e.Prefix)
}

// Is implements comparator method for [errors] package.
func (e *UnsupportedAddressError) Is(target error) bool {
	return target == ErrUnsupportedAddressType
}

// KeyMismatchError describes private key that derives another address than expected.
type KeyMismatchError struct {
	Address string
	Derived string
}

// Error returns error description.
func (e *KeyMismatchError) Error() string {
	return fmt.Sprintf("%s: key controls %s, not %s", ErrSigningKeyMismatch, e.Derived, e.Address)
}

// Is implements comparator method for [errors] package.
func (e *KeyMismatchError) Is(target error) bool {
	return target == ErrSigningKeyMismatch
}

// NodeRejectionError carries the reason string returned by the node.
type NodeRejectionError struct {
	Code   int
	Reason string
}

// Error returns error description.
func (e *NodeRejectionError) Error() string {
	return fmt.Sprintf("%s (%d): %s", ErrNodeRejection, e.Code, e.Reason)
}

// Is implements comparator method for [errors] package.
func (e *NodeRejectionError) Is(target error) bool {
	return target == ErrNodeRejection
}
