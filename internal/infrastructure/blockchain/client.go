package blockchain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"delta-hedge/internal/domain/entities"
	"delta-hedge/internal/infrastructure/config"
	"delta-hedge/internal/pkg/logger"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// receiptPollInterval период опроса квитанции
const receiptPollInterval = 2 * time.Second

// Client клиент EVM-сети: чтение контрактов и подписанные транзакции одного аккаунта
type Client struct {
	eth            *ethclient.Client
	chainID        *big.Int
	key            *ecdsa.PrivateKey
	account        common.Address
	rpcTimeout     time.Duration
	receiptTimeout time.Duration

	// транзакции одного аккаунта подписываются строго последовательно
	nonceMu   sync.Mutex
	nextNonce *big.Int
}

// NewClient подключается к RPC и проверяет chain id
func NewClient(ctx context.Context, cfg *config.ChainConfig) (*Client, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("некорректный приватный ключ: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.RPCTimeoutDuration())
	defer cancel()

	eth, err := ethclient.DialContext(dialCtx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к RPC: %w", err)
	}

	chainID, err := eth.ChainID(dialCtx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("ошибка получения chain id: %w", err)
	}
	if chainID.Int64() != cfg.ChainID {
		eth.Close()
		return nil, fmt.Errorf("RPC вернул chain id %s, ожидался %d", chainID, cfg.ChainID)
	}

	client := &Client{
		eth:            eth,
		chainID:        chainID,
		key:            key,
		account:        crypto.PubkeyToAddress(key.PublicKey),
		rpcTimeout:     cfg.RPCTimeoutDuration(),
		receiptTimeout: cfg.ReceiptTimeoutDuration(),
	}

	logger.LogWithTime("✅ Подключение к сети %s установлено, аккаунт %s", chainID, client.account.Hex())
	return client, nil
}

// Close закрывает соединение с RPC
func (c *Client) Close() {
	c.eth.Close()
}

// Account возвращает адрес подписывающего аккаунта
func (c *Client) Account() common.Address {
	return c.account
}

func (c *Client) contract(address common.Address, parsed abi.ABI) *bind.BoundContract {
	return bind.NewBoundContract(address, parsed, c.eth, c.eth, c.eth)
}

// call выполняет view-вызов с таймаутом RPC
func (c *Client) call(ctx context.Context, contract *bind.BoundContract, method string, params ...interface{}) ([]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, c.rpcTimeout)
	defer cancel()

	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx, From: c.account}, &out, method, params...); err != nil {
		return nil, fmt.Errorf("вызов %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("вызов %s: пустой ответ", method)
	}
	return out, nil
}

// transact подписывает и отправляет транзакцию, выделяя nonce под мьютексом
func (c *Client) transact(ctx context.Context, contract *bind.BoundContract, method string, params ...interface{}) (common.Hash, error) {
	c.nonceMu.Lock()
	defer c.nonceMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.rpcTimeout)
	defer cancel()

	if c.nextNonce == nil {
		nonce, err := c.eth.PendingNonceAt(ctx, c.account)
		if err != nil {
			return common.Hash{}, fmt.Errorf("ошибка получения nonce: %w", err)
		}
		c.nextNonce = new(big.Int).SetUint64(nonce)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("ошибка создания подписанта: %w", err)
	}
	opts.Context = ctx
	opts.Nonce = new(big.Int).Set(c.nextNonce)

	tx, err := contract.Transact(opts, method, params...)
	if err != nil {
		// при следующей отправке nonce перечитывается из сети
		c.nextNonce = nil
		return common.Hash{}, fmt.Errorf("транзакция %s: %w", method, err)
	}

	c.nextNonce.Add(c.nextNonce, big.NewInt(1))
	logger.LogPlain("📤 %s отправлена: %s (nonce %d)", method, tx.Hash().Hex(), tx.Nonce())
	return tx.Hash(), nil
}

// WaitForTrade ждет квитанцию не дольше receipt_timeout
func (c *Client) WaitForTrade(ctx context.Context, txHash common.Hash) (entities.TradeStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		status, err := c.TradeStatus(ctx, txHash)
		if err == nil && status != entities.TradeStatusPending {
			return status, nil
		}
		if err != nil && ctx.Err() == nil {
			logger.LogPlain("⚠️ Ошибка получения квитанции %s: %v", txHash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return entities.TradeStatusPending, nil
		case <-ticker.C:
		}
	}
}

// TradeStatus возвращает статус транзакции по квитанции
func (c *Client) TradeStatus(ctx context.Context, txHash common.Hash) (entities.TradeStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.rpcTimeout)
	defer cancel()

	receipt, err := c.eth.TransactionReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return entities.TradeStatusPending, nil
		}
		return entities.TradeStatusUnknown, fmt.Errorf("ошибка получения квитанции: %w", err)
	}
	return statusFromReceipt(receipt), nil
}

// TradeReplaced проверяет, обогнал ли включенный nonce аккаунта nonce транзакции без квитанции.
// Транзакция, неизвестная ноде, не считается замененной: ее снимает pending_ttl.
func (c *Client) TradeReplaced(ctx context.Context, txHash common.Hash) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.rpcTimeout)
	defer cancel()

	tx, isPending, err := c.eth.TransactionByHash(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return false, nil
		}
		return false, fmt.Errorf("ошибка получения транзакции: %w", err)
	}
	if !isPending {
		return false, nil
	}

	mined, err := c.eth.NonceAt(ctx, c.account, nil)
	if err != nil {
		return false, fmt.Errorf("ошибка получения nonce: %w", err)
	}
	if mined <= tx.Nonce() {
		return false, nil
	}

	// nonce мог уйти вперед вместе с самой транзакцией между двумя запросами
	if _, err := c.eth.TransactionReceipt(ctx, txHash); err == nil {
		return false, nil
	} else if !errors.Is(err, ethereum.NotFound) {
		return false, fmt.Errorf("ошибка получения квитанции: %w", err)
	}
	return true, nil
}

func statusFromReceipt(receipt *types.Receipt) entities.TradeStatus {
	if receipt.Status == types.ReceiptStatusSuccessful {
		return entities.TradeStatusConfirmed
	}
	return entities.TradeStatusReverted
}
