package domain

import "strings"

// Token describes one ERC-20 (or the chain-native placeholder) as supplied by
// the dapp token list. Tokens are immutable once selected; identity is the
// address compared case-insensitively, falling back to the symbol when either
// side has no address.
type Token struct {
	Address  string `json:"address"`
	Decimals int32  `json:"decimals"`
	Symbol   string `json:"symbol"`
	LogoURL  string `json:"logo_url,omitempty"`
}

// nativeAddress is the conventional pseudo-address dapps use for the chain
// native asset.
const nativeAddress = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

// IsZero reports whether the token is unset.
func (t Token) IsZero() bool {
	return t.Address == "" && t.Symbol == ""
}

// IsNative reports whether the token is the chain native asset.
func (t Token) IsNative() bool {
	return strings.EqualFold(t.Address, nativeAddress)
}

// Equals compares tokens by address (case-insensitive) with a symbol fallback
// for entries that carry no address.
func (t Token) Equals(o Token) bool {
	if t.Address != "" && o.Address != "" {
		return strings.EqualFold(t.Address, o.Address)
	}
	return t.Symbol != "" && strings.EqualFold(t.Symbol, o.Symbol)
}

// WrapPair reports whether src/dst form a degenerate wrap-only or unwrap-only
// pairing (native asset against the configured wrapped-native token), which is
// not a valid TWAP pair.
func WrapPair(src, dst Token, wrappedNative string) bool {
	if wrappedNative == "" {
		return false
	}
	srcWrapped := strings.EqualFold(src.Address, wrappedNative)
	dstWrapped := strings.EqualFold(dst.Address, wrappedNative)
	return (src.IsNative() && dstWrapped) || (srcWrapped && dst.IsNative())
}
