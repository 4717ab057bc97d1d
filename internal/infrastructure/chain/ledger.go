// Package chain implements the trip ledger on an EVM chain with go-ethereum.
// Package chain 使用 go-ethereum 实现链上行程登记。
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/turtacn/touristsafety/internal/config"
	"github.com/turtacn/touristsafety/internal/infrastructure/kms"
	"github.com/turtacn/touristsafety/pkg/logger"
)

// TripRegistryABI is the interface of the temporary trip registry contract.
const TripRegistryABI = `[
 {"type":"function","name":"registerTemporaryTrip","stateMutability":"nonpayable",
  "inputs":[{"name":"tripIdHash","type":"bytes32"},{"name":"expiryTimestamp","type":"uint256"}],
  "outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"getTripExpiry","stateMutability":"view",
  "inputs":[{"name":"tripIdHash","type":"bytes32"}],
  "outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"deleteExpiredTrip","stateMutability":"nonpayable",
  "inputs":[{"name":"tripIdHash","type":"bytes32"}],
  "outputs":[{"name":"","type":"bool"}]},
 {"type":"function","name":"isTripActive","stateMutability":"view",
  "inputs":[{"name":"tripIdHash","type":"bytes32"}],
  "outputs":[{"name":"","type":"bool"}]}
]`

const (
	methodRegister = "registerTemporaryTrip"
	methodExpiry   = "getTripExpiry"
	methodDelete   = "deleteExpiredTrip"
	methodActive   = "isTripActive"
)

// ErrTxReverted is returned when a mined transaction has a failed receipt.
var ErrTxReverted = errors.New("transaction reverted")

// Backend is the subset of an Ethereum JSON-RPC client the ledger needs.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.DeployBackend
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Ledger registers trip hashes with the registry contract.
type Ledger struct {
	backend        Backend
	keys           kms.KeySource
	contract       common.Address
	chainID        *big.Int
	maxFee         *big.Int
	tip            *big.Int
	receiptTimeout time.Duration
	abi            abi.ABI
	log            logger.Logger

	// writes are serialised so pending nonces do not collide
	writeMu sync.Mutex
}

// NewLedger creates a ledger on an existing backend. keys may be nil, in which
// case reads work and every write fails with kms.ErrSigningKeyUnavailable.
func NewLedger(cfg config.ChainConfig, backend Backend, keys kms.KeySource, log logger.Logger) (*Ledger, error) {
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", cfg.ContractAddress)
	}
	parsed, err := abi.JSON(strings.NewReader(TripRegistryABI))
	if err != nil {
		return nil, fmt.Errorf("parse registry abi: %w", err)
	}
	if log == nil {
		log = logger.NewNoopLogger()
	}
	timeout := cfg.ReceiptTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Ledger{
		backend:        backend,
		keys:           keys,
		contract:       common.HexToAddress(cfg.ContractAddress),
		chainID:        big.NewInt(cfg.ChainID),
		maxFee:         gwei(cfg.MaxFeeGwei, 30),
		tip:            gwei(cfg.TipGwei, 2),
		receiptTimeout: timeout,
		abi:            parsed,
		log:            log.WithComponent("trip_ledger"),
	}, nil
}

// Dial connects to cfg.RPCURL and creates a ledger on it.
func Dial(ctx context.Context, cfg config.ChainConfig, keys kms.KeySource, log logger.Logger) (*Ledger, *ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("dial chain rpc: %w", err)
	}
	ledger, err := NewLedger(cfg, client, keys, log)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return ledger, client, nil
}

func gwei(v, fallback int64) *big.Int {
	if v <= 0 {
		v = fallback
	}
	return new(big.Int).Mul(big.NewInt(v), big.NewInt(1_000_000_000))
}

// RegisterTrip records tripHash with the given expiry and waits for the receipt.
func (l *Ledger) RegisterTrip(ctx context.Context, tripHash [32]byte, expiry time.Time) (string, uint64, error) {
	return l.transact(ctx, methodRegister, tripHash, big.NewInt(expiry.Unix()))
}

// DeleteTrip removes tripHash from the registry.
func (l *Ledger) DeleteTrip(ctx context.Context, tripHash [32]byte) (string, uint64, error) {
	return l.transact(ctx, methodDelete, tripHash)
}

// IsTripActive reports whether the registry holds an unexpired entry for tripHash.
func (l *Ledger) IsTripActive(ctx context.Context, tripHash [32]byte) (bool, error) {
	out, err := l.call(ctx, methodActive, tripHash)
	if err != nil {
		return false, err
	}
	active, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("%s: unexpected output %T", methodActive, out[0])
	}
	return active, nil
}

// TripExpiry returns the registered expiry timestamp; zero for unknown trips.
func (l *Ledger) TripExpiry(ctx context.Context, tripHash [32]byte) (*big.Int, error) {
	out, err := l.call(ctx, methodExpiry, tripHash)
	if err != nil {
		return nil, err
	}
	expiry, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected output %T", methodExpiry, out[0])
	}
	return expiry, nil
}

func (l *Ledger) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := l.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	raw, err := l.backend.CallContract(ctx, ethereum.CallMsg{To: &l.contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	out, err := l.abi.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return out, nil
}

func (l *Ledger) signingKey(ctx context.Context) (*ecdsa.PrivateKey, error) {
	if l.keys == nil {
		return nil, kms.ErrSigningKeyUnavailable
	}
	return l.keys.SigningKey(ctx)
}

// transact sends an EIP-1559 transaction calling method and waits for it to be mined.
func (l *Ledger) transact(ctx context.Context, method string, args ...interface{}) (string, uint64, error) {
	key, err := l.signingKey(ctx)
	if err != nil {
		return "", 0, err
	}
	data, err := l.abi.Pack(method, args...)
	if err != nil {
		return "", 0, fmt.Errorf("pack %s: %w", method, err)
	}
	from := crypto.PubkeyToAddress(key.PublicKey)

	l.writeMu.Lock()
	tx, err := l.send(ctx, key, from, data)
	l.writeMu.Unlock()
	if err != nil {
		return "", 0, fmt.Errorf("%s: %w", method, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.receiptTimeout)
	defer cancel()
	receipt, err := bind.WaitMined(waitCtx, l.backend, tx)
	if err != nil {
		return tx.Hash().Hex(), 0, fmt.Errorf("%s: wait for receipt: %w", method, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return tx.Hash().Hex(), receipt.BlockNumber.Uint64(), fmt.Errorf("%s: %w", method, ErrTxReverted)
	}

	l.log.Info(ctx, "ledger transaction mined", logger.Fields{
		"method":   method,
		"tx_hash":  tx.Hash().Hex(),
		"block":    receipt.BlockNumber.Uint64(),
		"gas_used": receipt.GasUsed,
	})
	return tx.Hash().Hex(), receipt.BlockNumber.Uint64(), nil
}

func (l *Ledger) send(ctx context.Context, key *ecdsa.PrivateKey, from common.Address, data []byte) (*types.Transaction, error) {
	nonce, err := l.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}
	gas, err := l.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:      from,
		To:        &l.contract,
		GasFeeCap: l.maxFee,
		GasTipCap: l.tip,
		Data:      data,
	})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}

	tx, err := types.SignNewTx(key, types.LatestSignerForChainID(l.chainID), &types.DynamicFeeTx{
		ChainID:   l.chainID,
		Nonce:     nonce,
		GasTipCap: l.tip,
		GasFeeCap: l.maxFee,
		Gas:       gas,
		To:        &l.contract,
		Data:      data,
	})
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	if err := l.backend.SendTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}
	return tx, nil
}
