package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	logger "github.com/sirupsen/logrus"

	"agentexecutor/src/security"
)

// RPC is the subset of the EVM JSON-RPC surface this service touches.
// *ethclient.Client satisfies it; tests substitute a double.
type RPC interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Client bundles the RPC connection with the executor identity and the
// confirmation settings every on-chain await uses.
type Client struct {
	rpc     RPC
	chainID *big.Int

	executorKey  *ecdsa.PrivateKey
	executorAddr common.Address

	confirmationTimeout time.Duration
	receiptPollInterval time.Duration
}

// Connect dials the configured RPC endpoint and unseals the executor key.
// A missing key or endpoint is a configuration error and fatal at startup.
func Connect() (*Client, error) {
	config := GetConfig()

	if config.ExecutorKeyEncrypted == "" {
		return nil, errors.New("EXECUTOR_KEY_ENCRYPTED not set")
	}

	keyHex, err := security.DecryptString(config.ExecutorKeyEncrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to unseal executor key: %w", err)
	}

	ec, err := ethclient.Dial(config.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", config.RPCURL, err)
	}

	client, err := NewClient(ec, big.NewInt(config.ChainID), keyHex, config.ConfirmationTimeout, config.ReceiptPollInterval)
	if err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"chain_id": config.ChainID,
		"executor": client.executorAddr.Hex(),
	}).Info("[chain] connected")

	return client, nil
}

// NewClient wires an explicit RPC backend. Used by Connect and by tests.
func NewClient(rpc RPC, chainID *big.Int, executorKeyHex string, confirmationTimeout, receiptPollInterval time.Duration) (*Client, error) {
	key, err := crypto.HexToECDSA(executorKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid executor key: %w", err)
	}

	if confirmationTimeout <= 0 {
		confirmationTimeout = 2 * time.Minute
	}
	if receiptPollInterval <= 0 {
		receiptPollInterval = 2 * time.Second
	}

	return &Client{
		rpc:                 rpc,
		chainID:             chainID,
		executorKey:         key,
		executorAddr:        crypto.PubkeyToAddress(key.PublicKey),
		confirmationTimeout: confirmationTimeout,
		receiptPollInterval: receiptPollInterval,
	}, nil
}

func (c *Client) RPC() RPC                      { return c.rpc }
func (c *Client) ChainID() *big.Int             { return c.chainID }
func (c *Client) ExecutorAddress() common.Address { return c.executorAddr }

// Call performs a read-only contract call.
func (c *Client) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return c.rpc.CallContract(ctx, ethereum.CallMsg{
		From: c.executorAddr,
		To:   &to,
		Data: data,
	}, nil)
}

// Submit signs and broadcasts a call with an explicit nonce and gas limit,
// then waits for one confirmation. It never retries; retry policy belongs to
// the caller.
func (c *Client) Submit(ctx context.Context, to common.Address, data []byte, nonce uint64, gasLimit uint64) (*types.Receipt, error) {
	gasPrice, err := c.rpc.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &to,
		Value:    big.NewInt(0),
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.executorKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.rpc.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to broadcast transaction: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"tx":    signed.Hash().Hex(),
		"to":    to.Hex(),
		"nonce": nonce,
	}).Debug("[chain] transaction broadcast")

	return c.waitMined(ctx, signed.Hash())
}

// waitMined polls for the receipt until the confirmation deadline. A timeout
// does not mean the transaction failed; the caller must re-query before any
// compensating action.
func (c *Client) waitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	deadline, cancel := context.WithTimeout(ctx, c.confirmationTimeout)
	defer cancel()

	ticker := time.NewTicker(c.receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.rpc.TransactionReceipt(deadline, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			logger.WithError(err).WithField("tx", txHash.Hex()).Debug("[chain] receipt poll error")
		}

		select {
		case <-deadline.Done():
			return nil, fmt.Errorf("confirmation timed out for %s: %w", txHash.Hex(), deadline.Err())
		case <-ticker.C:
		}
	}
}
