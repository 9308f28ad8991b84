package chain

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const decimalsABIJSON = `[
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

// DecimalsResolver resolves ERC-20 decimals via the chain and memoizes them.
// Decimals are immutable on chain, so entries never expire.
type DecimalsResolver struct {
	client *ethclient.Client
	abi    abi.ABI
	cache  sync.Map // lowercase address -> int32
}

// NewDecimalsResolver prepares a resolver over an already-dialed client.
func NewDecimalsResolver(client *ethclient.Client) (*DecimalsResolver, error) {
	parsed, err := abi.JSON(strings.NewReader(decimalsABIJSON))
	if err != nil {
		return nil, fmt.Errorf("chain: parse decimals abi: %w", err)
	}
	return &DecimalsResolver{client: client, abi: parsed}, nil
}

// Decimals returns the token's decimals, consulting the chain on first use.
func (r *DecimalsResolver) Decimals(ctx context.Context, tokenAddress string) (int32, error) {
	key := strings.ToLower(tokenAddress)
	if v, ok := r.cache.Load(key); ok {
		return v.(int32), nil
	}

	token := bind.NewBoundContract(common.HexToAddress(tokenAddress), r.abi, r.client, r.client, r.client)

	var out []interface{}
	if err := token.Call(&bind.CallOpts{Context: ctx}, &out, "decimals"); err != nil {
		return 0, fmt.Errorf("chain: decimals of %s: %w", tokenAddress, err)
	}
	dec := int32(out[0].(uint8))

	r.cache.Store(key, dec)
	return dec, nil
}

// Func adapts the resolver to the lookup-function shape the history
// reconstruction consumes. Unresolvable tokens report not-ok instead of
// failing the whole rebuild.
func (r *DecimalsResolver) Func(ctx context.Context) func(address string) (int32, bool) {
	return func(address string) (int32, bool) {
		dec, err := r.Decimals(ctx, address)
		if err != nil {
			return 0, false
		}
		return dec, true
	}
}
