package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/orbs-network/twap-engine/internal/domain"
)

// Minimal ABI fragments for the TWAP contract, ERC-20 tokens, and the
// wrapped-native deposit.
const twapABIJSON = `[
	{"type":"function","name":"ask","stateMutability":"nonpayable","inputs":[{"name":"_ask","type":"tuple","components":[
		{"name":"exchange","type":"address"},
		{"name":"srcToken","type":"address"},
		{"name":"dstToken","type":"address"},
		{"name":"srcAmount","type":"uint256"},
		{"name":"srcBidAmount","type":"uint256"},
		{"name":"dstMinAmount","type":"uint256"},
		{"name":"deadline","type":"uint32"},
		{"name":"bidDelay","type":"uint32"},
		{"name":"fillDelay","type":"uint32"},
		{"name":"data","type":"bytes"}
	]}],"outputs":[{"name":"id","type":"uint64"}]},
	{"type":"function","name":"cancel","stateMutability":"nonpayable","inputs":[{"name":"id","type":"uint64"}],"outputs":[]},
	{"type":"event","name":"OrderCreated","inputs":[
		{"name":"id","type":"uint64","indexed":true},
		{"name":"maker","type":"address","indexed":true},
		{"name":"exchange","type":"address","indexed":false}
	]}
]`

const erc20ABIJSON = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"deposit","stateMutability":"payable","inputs":[],"outputs":[]}
]`

// askTuple mirrors the TWAP contract's Ask struct for ABI encoding.
type askTuple struct {
	Exchange     common.Address
	SrcToken     common.Address
	DstToken     common.Address
	SrcAmount    *big.Int
	SrcBidAmount *big.Int
	DstMinAmount *big.Int
	Deadline     uint32
	BidDelay     uint32
	FillDelay    uint32
	Data         []byte
}

// SubmitterConfig holds the chain-side parameters for order submission.
type SubmitterConfig struct {
	RPCURL          string
	ChainID         int64
	TWAPAddress     string
	WrappedNative   string
	BidDelaySeconds int64
}

// Submitter implements domain.OrderSubmitter against the on-chain TWAP
// contract. Submission is the sequential wrap, approve, create flow; each
// step waits for its transaction to be mined before the next starts.
type Submitter struct {
	client     *ethclient.Client
	privateKey *ecdsa.PrivateKey
	maker      common.Address
	chainID    *big.Int

	twapAddr      common.Address
	wrappedNative common.Address
	bidDelay      uint32

	twapABI  abi.ABI
	erc20ABI abi.ABI
	twap     *bind.BoundContract

	log *slog.Logger
}

// NewSubmitter dials the RPC endpoint and prepares the contract bindings.
// privateKeyHex is the maker wallet key as returned by LoadKey.
func NewSubmitter(ctx context.Context, cfg SubmitterConfig, privateKeyHex string, logger *slog.Logger) (*Submitter, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial rpc: %w", err)
	}

	pk, err := ethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("chain: invalid private key: %w", err)
	}

	twapABI, err := abi.JSON(strings.NewReader(twapABIJSON))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("chain: parse twap abi: %w", err)
	}
	erc20ABI, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("chain: parse erc20 abi: %w", err)
	}

	twapAddr := common.HexToAddress(cfg.TWAPAddress)

	s := &Submitter{
		client:        client,
		privateKey:    pk,
		maker:         ethcrypto.PubkeyToAddress(pk.PublicKey),
		chainID:       big.NewInt(cfg.ChainID),
		twapAddr:      twapAddr,
		wrappedNative: common.HexToAddress(cfg.WrappedNative),
		bidDelay:      uint32(cfg.BidDelaySeconds),
		twapABI:       twapABI,
		erc20ABI:      erc20ABI,
		log:           logger.With("component", "chain"),
	}
	s.twap = bind.NewBoundContract(twapAddr, twapABI, client, client, client)

	return s, nil
}

// Maker returns the wallet address orders are created from.
func (s *Submitter) Maker() string {
	return s.maker.Hex()
}

// Client exposes the underlying RPC client so read-side collaborators can
// share the connection.
func (s *Submitter) Client() *ethclient.Client {
	return s.client
}

// Close releases the RPC connection.
func (s *Submitter) Close() {
	s.client.Close()
}

// SubmitOrder runs the sequential submission flow: top up wrapped native
// balance if the source token is the wrapped native and the balance falls
// short, grant the TWAP contract an allowance if needed, then create the
// order. It returns the creation tx hash and the on-chain order id.
func (s *Submitter) SubmitOrder(ctx context.Context, p domain.SubmitParams) (domain.SubmitReceipt, error) {
	srcToken := common.HexToAddress(p.SrcToken)
	srcAmount, ok := new(big.Int).SetString(p.SrcAmount, 10)
	if !ok {
		return domain.SubmitReceipt{}, fmt.Errorf("chain: invalid src amount %q: %w", p.SrcAmount, domain.ErrInvalidOrder)
	}
	srcBid, ok := new(big.Int).SetString(p.SrcChunkAmount, 10)
	if !ok {
		return domain.SubmitReceipt{}, fmt.Errorf("chain: invalid chunk amount %q: %w", p.SrcChunkAmount, domain.ErrInvalidOrder)
	}
	dstMin, ok := new(big.Int).SetString(p.DstMinChunkAmountOut, 10)
	if !ok {
		return domain.SubmitReceipt{}, fmt.Errorf("chain: invalid dst min amount %q: %w", p.DstMinChunkAmountOut, domain.ErrInvalidOrder)
	}

	if err := s.wrapIfNeeded(ctx, srcToken, srcAmount); err != nil {
		return domain.SubmitReceipt{}, err
	}
	if err := s.ensureAllowance(ctx, srcToken, srcAmount); err != nil {
		return domain.SubmitReceipt{}, err
	}

	ask := askTuple{
		Exchange:     common.HexToAddress(p.Exchange),
		SrcToken:     srcToken,
		DstToken:     common.HexToAddress(p.DstToken),
		SrcAmount:    srcAmount,
		SrcBidAmount: srcBid,
		DstMinAmount: dstMin,
		Deadline:     uint32(p.Deadline.Unix()),
		BidDelay:     s.bidDelay,
		FillDelay:    uint32(p.FillDelaySeconds),
		Data:         []byte{},
	}

	opts, err := s.transactOpts(ctx)
	if err != nil {
		return domain.SubmitReceipt{}, err
	}

	tx, err := s.twap.Transact(opts, "ask", ask)
	if err != nil {
		return domain.SubmitReceipt{}, s.classify("ask", err)
	}

	s.log.Info("order submitted",
		slog.String("tx", tx.Hash().Hex()),
		slog.String("maker", s.maker.Hex()),
	)

	receipt, err := s.waitMined(ctx, tx)
	if err != nil {
		return domain.SubmitReceipt{}, err
	}

	orderID, err := s.orderIDFromReceipt(receipt)
	if err != nil {
		return domain.SubmitReceipt{}, err
	}

	return domain.SubmitReceipt{
		TxHash:  tx.Hash().Hex(),
		OrderID: orderID,
	}, nil
}

// CancelOrder cancels an open order on chain and returns the tx hash.
func (s *Submitter) CancelOrder(ctx context.Context, orderID int64) (string, error) {
	opts, err := s.transactOpts(ctx)
	if err != nil {
		return "", err
	}

	tx, err := s.twap.Transact(opts, "cancel", uint64(orderID))
	if err != nil {
		return "", s.classify("cancel", err)
	}

	if _, err := s.waitMined(ctx, tx); err != nil {
		return "", err
	}

	s.log.Info("order canceled",
		slog.String("tx", tx.Hash().Hex()),
		slog.Int64("order_id", orderID),
	)
	return tx.Hash().Hex(), nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// wrapIfNeeded deposits native currency into the wrapped-native contract
// when the order's source token is the wrapped native and the ERC-20 balance
// falls short of the order amount.
func (s *Submitter) wrapIfNeeded(ctx context.Context, srcToken common.Address, srcAmount *big.Int) error {
	if srcToken != s.wrappedNative {
		return nil
	}

	token := bind.NewBoundContract(srcToken, s.erc20ABI, s.client, s.client, s.client)

	var out []interface{}
	if err := token.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", s.maker); err != nil {
		return s.classify("balanceOf", err)
	}
	balance := out[0].(*big.Int)
	if balance.Cmp(srcAmount) >= 0 {
		return nil
	}

	shortfall := new(big.Int).Sub(srcAmount, balance)

	opts, err := s.transactOpts(ctx)
	if err != nil {
		return err
	}
	opts.Value = shortfall

	tx, err := token.Transact(opts, "deposit")
	if err != nil {
		return s.classify("deposit", err)
	}

	s.log.Info("wrapped native deposit",
		slog.String("tx", tx.Hash().Hex()),
		slog.String("amount", shortfall.String()),
	)

	_, err = s.waitMined(ctx, tx)
	return err
}

// ensureAllowance grants the TWAP contract an unlimited allowance for the
// source token when the current allowance does not cover the order amount.
func (s *Submitter) ensureAllowance(ctx context.Context, srcToken common.Address, srcAmount *big.Int) error {
	token := bind.NewBoundContract(srcToken, s.erc20ABI, s.client, s.client, s.client)

	var out []interface{}
	if err := token.Call(&bind.CallOpts{Context: ctx}, &out, "allowance", s.maker, s.twapAddr); err != nil {
		return s.classify("allowance", err)
	}
	allowance := out[0].(*big.Int)
	if allowance.Cmp(srcAmount) >= 0 {
		return nil
	}

	opts, err := s.transactOpts(ctx)
	if err != nil {
		return err
	}

	maxUint256 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	tx, err := token.Transact(opts, "approve", s.twapAddr, maxUint256)
	if err != nil {
		return s.classify("approve", err)
	}

	s.log.Info("allowance granted",
		slog.String("tx", tx.Hash().Hex()),
		slog.String("token", srcToken.Hex()),
	)

	_, err = s.waitMined(ctx, tx)
	return err
}

func (s *Submitter) transactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.privateKey, s.chainID)
	if err != nil {
		return nil, fmt.Errorf("chain: build transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

// waitMined blocks until the transaction is mined and maps a failed receipt
// to domain.ErrReverted.
func (s *Submitter) waitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, s.client, tx)
	if err != nil {
		return nil, s.classify("wait mined", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("chain: tx %s: %w", tx.Hash().Hex(), domain.ErrReverted)
	}
	return receipt, nil
}

// orderIDFromReceipt extracts the on-chain order id from the OrderCreated
// event emitted by the TWAP contract.
func (s *Submitter) orderIDFromReceipt(receipt *types.Receipt) (int64, error) {
	eventID := s.twapABI.Events["OrderCreated"].ID
	for _, lg := range receipt.Logs {
		if lg.Address != s.twapAddr || len(lg.Topics) < 2 || lg.Topics[0] != eventID {
			continue
		}
		return new(big.Int).SetBytes(lg.Topics[1].Bytes()).Int64(), nil
	}
	return 0, fmt.Errorf("chain: tx %s: OrderCreated event not found", receipt.TxHash.Hex())
}

// classify maps transport-level failures onto the typed submission errors.
func (s *Submitter) classify(step string, err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("chain: %s aborted: %w", step, domain.ErrUserRejected)
	case strings.Contains(err.Error(), "execution reverted"):
		return fmt.Errorf("chain: %s: %v: %w", step, err, domain.ErrReverted)
	default:
		return fmt.Errorf("chain: %s: %v: %w", step, err, domain.ErrNetwork)
	}
}

// Compile-time interface check.
var _ domain.OrderSubmitter = (*Submitter)(nil)
