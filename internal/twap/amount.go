// Package twap implements the TWAP order parameterization and derivation
// engine: pure, total computations that turn user-entered amounts, limit
// price, duration, and fill delay into a validated on-chain order tuple.
//
// All functions in this package are deterministic and never panic or return
// errors over their documented domain; malformed or absent inputs degrade to
// zero values or ok=false so the validation layer can report the appropriate
// state instead of crashing.
package twap

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ToBaseUnits converts a human-readable decimal amount to integer base units
// for a token with the given decimal count. The fractional remainder beyond
// the token's precision is truncated. Empty or malformed input yields
// ok=false.
func ToBaseUnits(decimals int32, ui string) (string, bool) {
	s := strings.TrimSpace(ui)
	if s == "" {
		return "", false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.Sign() < 0 {
		return "", false
	}
	return d.Shift(decimals).Truncate(0).String(), true
}

// ToUIUnits converts an integer base-unit amount back to a human-readable
// decimal string. Malformed input yields ok=false.
func ToUIUnits(decimals int32, base string) (string, bool) {
	s := strings.TrimSpace(base)
	if s == "" {
		return "", false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.Sign() < 0 {
		return "", false
	}
	return d.Shift(-decimals).String(), true
}
