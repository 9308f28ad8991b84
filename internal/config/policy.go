package config

import "github.com/orbs-network/twap-engine/internal/history"

// chainPolicies is the per-chain exception table for history reconstruction.
// Every chain-specific workaround lives here so the exceptions stay auditable
// in one place.
var chainPolicies = map[int64]history.Policy{
	// BSC: the indexer's open signal is unreliable before sync; substitute the
	// locally computed progress-based status until progress reaches 100.
	56: {UseLocalProgressOverride: true},
}

// PolicyFor returns the history policy for a chain, merged with the
// configured legacy exchange allow-list.
func (c *Config) PolicyFor(chainID int64) history.Policy {
	p := chainPolicies[chainID]
	p.LegacyExchangeAddresses = append(p.LegacyExchangeAddresses, c.Exchange.LegacyAddresses...)
	return p
}
