// Package transfer computes the outcome of moving a crypto quantity between
// two platforms. It does not touch storage.
package transfer

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidQuantity     = errors.New("quantity to transfer must be positive and fee must not be negative")
	ErrNothingReceived     = errors.New("quantity to receive must be greater than zero")
)

// Request describes one transfer out of a source holding
type Request struct {
	Available          decimal.Decimal
	QuantityToTransfer decimal.Decimal
	NetworkFee         decimal.Decimal
	SendFullQuantity   bool
	// DestinationQuantity is zero when the destination holding does not exist yet
	DestinationQuantity decimal.Decimal
}

// Result is the post-transfer state of both holdings
type Result struct {
	RemainingCryptoQuantity decimal.Decimal
	QuantityToReceive       decimal.Decimal
	TotalToSubtract         decimal.Decimal
	NewDestinationQuantity  decimal.Decimal
}

// RemainingIsZero reports whether the source holding is drained
func (r Result) RemainingIsZero() bool {
	return r.RemainingCryptoQuantity.IsZero()
}

// Validate checks the request without computing anything
func Validate(req Request) error {
	if !req.QuantityToTransfer.IsPositive() || req.NetworkFee.IsNegative() {
		return ErrInvalidQuantity
	}
	if req.Available.LessThan(req.QuantityToTransfer) || req.NetworkFee.GreaterThan(req.Available) {
		return ErrInsufficientBalance
	}
	return nil
}

// Calculate validates req and derives both sides of the transfer
func Calculate(req Request) (Result, error) {
	if err := Validate(req); err != nil {
		return Result{}, err
	}

	remaining := CalculateRemainingCryptoQuantity(req)
	received := CalculateQuantityToReceive(req, remaining)
	if !received.IsPositive() {
		return Result{}, ErrNothingReceived
	}

	return Result{
		RemainingCryptoQuantity: remaining,
		QuantityToReceive:       received,
		TotalToSubtract:         CalculateTotalToSubtract(req, remaining),
		NewDestinationQuantity:  req.DestinationQuantity.Add(received),
	}, nil
}

// CalculateRemainingCryptoQuantity returns what stays at the source, never below zero.
// In full quantity mode the fee is taken from the source on top of the transferred amount.
func CalculateRemainingCryptoQuantity(req Request) decimal.Decimal {
	remaining := req.Available.Sub(req.QuantityToTransfer)
	if req.SendFullQuantity {
		remaining = req.Available.Sub(req.QuantityToTransfer.Add(req.NetworkFee))
	}
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// CalculateQuantityToReceive returns what arrives at the destination. A drained
// source in full quantity mode absorbs the fee from the whole available amount.
func CalculateQuantityToReceive(req Request, remaining decimal.Decimal) decimal.Decimal {
	if !req.SendFullQuantity {
		return req.QuantityToTransfer.Sub(req.NetworkFee)
	}
	if remaining.IsZero() {
		return req.Available.Sub(req.NetworkFee)
	}
	return req.QuantityToTransfer
}

// CalculateTotalToSubtract returns the amount debited from the source holding
func CalculateTotalToSubtract(req Request, remaining decimal.Decimal) decimal.Decimal {
	if req.SendFullQuantity && remaining.IsPositive() {
		return req.QuantityToTransfer.Add(req.NetworkFee)
	}
	return req.QuantityToTransfer
}
