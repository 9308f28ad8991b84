package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/orbs-network/twap-engine/internal/domain"
)

// BalanceReader implements domain.BalanceReader over an RPC endpoint. It
// reads native balances directly and ERC-20 balances via balanceOf.
type BalanceReader struct {
	client   *ethclient.Client
	erc20ABI abi.ABI
}

// NewBalanceReader prepares a reader over an already-dialed client.
func NewBalanceReader(client *ethclient.Client) (*BalanceReader, error) {
	erc20ABI, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("chain: parse erc20 abi: %w", err)
	}
	return &BalanceReader{client: client, erc20ABI: erc20ABI}, nil
}

// Balance returns the wallet's balance of the given token in base units.
func (r *BalanceReader) Balance(ctx context.Context, tokenAddress, wallet string) (string, error) {
	owner := common.HexToAddress(wallet)

	if (domain.Token{Address: tokenAddress}).IsNative() {
		bal, err := r.client.BalanceAt(ctx, owner, nil)
		if err != nil {
			return "", fmt.Errorf("chain: native balance %s: %w", wallet, domain.ErrNetwork)
		}
		return bal.String(), nil
	}

	token := bind.NewBoundContract(common.HexToAddress(tokenAddress), r.erc20ABI, r.client, r.client, r.client)

	var out []interface{}
	if err := token.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", owner); err != nil {
		return "", fmt.Errorf("chain: balance %s of %s: %w", tokenAddress, wallet, domain.ErrNetwork)
	}
	return out[0].(*big.Int).String(), nil
}

// Compile-time interface check.
var _ domain.BalanceReader = (*BalanceReader)(nil)
