// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/BoostyLabs/txsmith/bitcoin"
)

type balanceErrorType string

const (
	// InsufficientErrorTypeFunds defines that spendable outputs can not cover required amount.
	InsufficientErrorTypeFunds balanceErrorType = "funds"
	// InsufficientErrorTypeInputValue defines that selected inputs can not cover draft outputs and fee.
	InsufficientErrorTypeInputValue balanceErrorType = "input value"
)

// InsufficientError is the error type to describe insufficient balance errors with details.
type InsufficientError struct {
	Type balanceErrorType
	Need *big.Int
	Have *big.Int
}

// NewInsufficientError is a constructor for InsufficientError.
func NewInsufficientError(type_ balanceErrorType, need, have *big.Int) *InsufficientError {
	return &InsufficientError{type_, need, have}
}

// Error returns error description.
func (e *InsufficientError) Error() string {
	var errMsg = fmt.Sprintf("insufficient %s", e.Type)

	if e.Have != nil && e.Need != nil {
		errMsg += fmt.Sprintf(": Need - %s sat, Have - %s sat", e.Need, e.Have)
	}

	return errMsg
}

// Is implements comparator method for [errors] package.
func (e *InsufficientError) Is(target error) bool {
	switch e.Type {
	case InsufficientErrorTypeFunds:
		if target == bitcoin.ErrInsufficientFunds {
			return true
		}
	case InsufficientErrorTypeInputValue:
		if target == bitcoin.ErrInsufficientInputValue {
			return true
		}
	}

	var other *InsufficientError
	if errors.As(target, &other) {
		return other.Type == e.Type
	}

	return false
}
