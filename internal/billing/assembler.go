// Package billing holds the pure arithmetic of invoice assembly: component
// totals, tax rounding, sequential numbering and the duplicate-correlation
// description format. Everything here is deterministic and store-free.
package billing

import "fmt"

// RoundPolicy selects how the tax division is rounded.
type RoundPolicy string

// Rounding policies for the tax computation.
const (
	RoundPolicyRound RoundPolicy = "round"
	RoundPolicyFloor RoundPolicy = "floor"
	RoundPolicyCeil  RoundPolicy = "ceil"
)

// ParseRoundPolicy validates a configured policy string.
func ParseRoundPolicy(s string) (RoundPolicy, error) {
	switch RoundPolicy(s) {
	case RoundPolicyRound, RoundPolicyFloor, RoundPolicyCeil:
		return RoundPolicy(s), nil
	}
	return "", fmt.Errorf("unknown round policy %q", s)
}

// Components are the inputs of one invoice computation, all integer yen.
type Components struct {
	PreviousBalance      int64
	MembershipAmount     int64
	MaterialAmount       int64
	OtherExpensesAmount  int64
	AdjustmentAmount     int64
	NonTaxableAmount     int64
	MaterialReturnAmount int64
}

// Totals is the computed bottom of an invoice.
type Totals struct {
	Subtotal    int64
	TaxAmount   int64
	TotalAmount int64
}

// ComputeTotals folds the components into subtotal, tax and total. The tax
// base is the subtotal after the non-taxable and return deductions.
func ComputeTotals(c Components, taxRate int, policy RoundPolicy) Totals {
	subtotal := c.PreviousBalance +
		c.MembershipAmount +
		c.MaterialAmount +
		c.OtherExpensesAmount +
		c.AdjustmentAmount -
		c.NonTaxableAmount -
		c.MaterialReturnAmount

	tax := divideRounded(subtotal*int64(taxRate), 100, policy)

	return Totals{
		Subtotal:    subtotal,
		TaxAmount:   tax,
		TotalAmount: subtotal + tax,
	}
}

// divideRounded divides numerator by denominator under the policy. Works for
// negative numerators too (floor moves toward negative infinity, ceil toward
// positive).
func divideRounded(numerator, denominator int64, policy RoundPolicy) int64 {
	q := numerator / denominator
	rem := numerator % denominator
	if rem == 0 {
		return q
	}

	switch policy {
	case RoundPolicyFloor:
		if numerator < 0 {
			return q - 1
		}
		return q
	case RoundPolicyCeil:
		if numerator > 0 {
			return q + 1
		}
		return q
	default: // round half away from zero
		if rem < 0 {
			rem = -rem
		}
		if rem*2 >= denominator {
			if numerator < 0 {
				return q - 1
			}
			return q + 1
		}
		return q
	}
}
