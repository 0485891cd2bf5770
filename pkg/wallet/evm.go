package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"ca-send/config"
)

// ErrNoActiveChain is returned when a transfer is issued before SwitchChain
var ErrNoActiveChain = errors.New("no active chain selected")

const (
	nativeTransferGas = uint64(21000)
	tokenTransferGas  = uint64(100000)
)

// EthClient is the subset of *ethclient.Client the wallet uses
type EthClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	Close()
}

// DialFunc opens a client for one RPC url
type DialFunc func(ctx context.Context, url string) (EthClient, error)

func dialEthClient(ctx context.Context, url string) (EthClient, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return client, nil
}

type activeChain struct {
	id     *big.Int
	client EthClient
}

// EVMWallet signs and broadcasts transfers with a single configured key. It
// is built once at startup and shared by reference.
type EVMWallet struct {
	cfg        config.WalletConfig
	privateKey *ecdsa.PrivateKey
	from       common.Address
	dial       DialFunc
	log        *zap.SugaredLogger

	mu     sync.Mutex
	active *activeChain
}

// NewEVMWallet parses the signing key and prepares a wallet with no active chain
func NewEVMWallet(cfg config.WalletConfig, log *zap.SugaredLogger) (*EVMWallet, error) {
	if cfg.PrivateKey == "" {
		return nil, fmt.Errorf("private key not configured")
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to get public key")
	}

	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &EVMWallet{
		cfg:        cfg,
		privateKey: privateKey,
		from:       crypto.PubkeyToAddress(*publicKeyECDSA),
		dial:       dialEthClient,
		log:        log,
	}, nil
}

// WithDialer replaces how RPC connections are opened
func (w *EVMWallet) WithDialer(dial DialFunc) *EVMWallet {
	w.dial = dial
	return w
}

// Address returns the sending account
func (w *EVMWallet) Address() common.Address {
	return w.from
}

// ActiveChain returns the currently selected chain id, or 0
func (w *EVMWallet) ActiveChain() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active == nil {
		return 0
	}
	return w.active.id.Int64()
}

// connect tries every configured RPC for chainID until one answers with the
// expected chain id.
func (w *EVMWallet) connect(ctx context.Context, chainID int64) (EthClient, error) {
	urls := w.cfg.RPC[chainID]
	if len(urls) == 0 {
		return nil, fmt.Errorf("no RPC URL configured for chain %d", chainID)
	}

	var lastErr error
	for _, url := range urls {
		client, err := w.dial(ctx, url)
		if err != nil {
			w.log.Warnw("rpc dial failed", "chain", chainID, "url", url, "err", err)
			lastErr = err
			continue
		}

		remote, err := client.ChainID(ctx)
		if err != nil {
			client.Close()
			w.log.Warnw("rpc chain id query failed", "chain", chainID, "url", url, "err", err)
			lastErr = err
			continue
		}
		if remote.Int64() != chainID {
			client.Close()
			lastErr = fmt.Errorf("rpc %s serves chain %s, expected %d", url, remote, chainID)
			continue
		}

		return client, nil
	}

	return nil, fmt.Errorf("failed to connect to chain %d: %w", chainID, lastErr)
}

// SwitchChain makes chainID the active network
func (w *EVMWallet) SwitchChain(ctx context.Context, chainID int64) *Future[struct{}] {
	return Go(ctx, func(ctx context.Context) (struct{}, error) {
		client, err := w.connect(ctx, chainID)
		if err != nil {
			return struct{}{}, err
		}

		w.mu.Lock()
		if w.active != nil {
			w.active.client.Close()
		}
		w.active = &activeChain{id: big.NewInt(chainID), client: client}
		w.mu.Unlock()

		w.log.Infow("switched active chain", "chain", chainID)
		return struct{}{}, nil
	})
}

func (w *EVMWallet) current() (*activeChain, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active == nil {
		return nil, ErrNoActiveChain
	}
	return w.active, nil
}

// SendNative transfers the active chain's native coin
func (w *EVMWallet) SendNative(ctx context.Context, to common.Address, value *big.Int) *Future[common.Hash] {
	return Go(ctx, func(ctx context.Context) (common.Hash, error) {
		chain, err := w.current()
		if err != nil {
			return common.Hash{}, err
		}

		balance, err := chain.client.BalanceAt(ctx, w.from, nil)
		if err != nil {
			return common.Hash{}, fmt.Errorf("failed to get balance: %w", err)
		}
		if balance.Cmp(value) < 0 {
			return common.Hash{}, fmt.Errorf("insufficient balance: have %s wei, need %s wei", balance, value)
		}

		gasLimit := nativeTransferGas
		if w.cfg.GasLimit != nil {
			gasLimit = *w.cfg.GasLimit
		}

		return w.signAndSend(ctx, chain, to, value, gasLimit, nil)
	})
}

// SendContractCall packs method(args...) and sends it to contract with zero value
func (w *EVMWallet) SendContractCall(ctx context.Context, contract common.Address, contractABI abi.ABI, method string, args ...interface{}) *Future[common.Hash] {
	return Go(ctx, func(ctx context.Context) (common.Hash, error) {
		chain, err := w.current()
		if err != nil {
			return common.Hash{}, err
		}

		data, err := contractABI.Pack(method, args...)
		if err != nil {
			return common.Hash{}, fmt.Errorf("failed to pack %s data: %w", method, err)
		}

		if method == "transfer" && len(args) == 2 {
			if amount, ok := args[1].(*big.Int); ok {
				if err := w.checkTokenBalance(ctx, chain, contract, amount); err != nil {
					return common.Hash{}, err
				}
			}
		}

		gasLimit := tokenTransferGas
		if w.cfg.GasLimit != nil {
			gasLimit = *w.cfg.GasLimit
		} else {
			msg := ethereum.CallMsg{From: w.from, To: &contract, Data: data}
			if estimated, err := chain.client.EstimateGas(ctx, msg); err == nil {
				gasLimit = estimated * 120 / 100
			}
		}

		return w.signAndSend(ctx, chain, contract, big.NewInt(0), gasLimit, data)
	})
}

func (w *EVMWallet) checkTokenBalance(ctx context.Context, chain *activeChain, token common.Address, need *big.Int) error {
	data, err := ERC20.Pack("balanceOf", w.from)
	if err != nil {
		return fmt.Errorf("failed to pack balanceOf data: %w", err)
	}

	result, err := chain.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return fmt.Errorf("failed to call balanceOf: %w", err)
	}

	balance := new(big.Int).SetBytes(result)
	if balance.Cmp(need) < 0 {
		return fmt.Errorf("insufficient token balance: have %s, need %s", balance, need)
	}
	return nil
}

func (w *EVMWallet) signAndSend(ctx context.Context, chain *activeChain, to common.Address, value *big.Int, gasLimit uint64, data []byte) (common.Hash, error) {
	nonce, err := chain.client.PendingNonceAt(ctx, w.from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := w.gasPrice(ctx, chain)
	if err != nil {
		return common.Hash{}, err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(chain.id), w.privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := chain.client.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	w.log.Infow("transaction sent", "chain", chain.id, "hash", signedTx.Hash().Hex(), "to", to.Hex())
	return signedTx.Hash(), nil
}

func (w *EVMWallet) gasPrice(ctx context.Context, chain *activeChain) (*big.Int, error) {
	if w.cfg.GasPrice != nil {
		return big.NewInt(*w.cfg.GasPrice), nil
	}

	gasPrice, err := chain.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	return gasPrice, nil
}

// TxInfo describes a broadcast transaction
type TxInfo struct {
	Hash        string  `json:"hash"`
	Nonce       uint64  `json:"nonce"`
	To          string  `json:"to"`
	Value       string  `json:"value"`
	GasPrice    string  `json:"gas_price"`
	GasLimit    uint64  `json:"gas_limit"`
	Pending     bool    `json:"pending"`
	BlockNumber uint64  `json:"block_number,omitempty"`
	GasUsed     uint64  `json:"gas_used,omitempty"`
	Status      *uint64 `json:"status,omitempty"`
}

// LookupTransaction reads a transaction without a signing key
func LookupTransaction(ctx context.Context, cfg config.WalletConfig, chainID int64, txHash string) (*TxInfo, error) {
	w := &EVMWallet{cfg: cfg, dial: dialEthClient, log: zap.NewNop().Sugar()}
	return w.TransactionInfo(ctx, chainID, txHash)
}

// TransactionInfo looks up a transaction and its receipt on chainID
func (w *EVMWallet) TransactionInfo(ctx context.Context, chainID int64, txHash string) (*TxInfo, error) {
	client, err := w.connect(ctx, chainID)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	hash := common.HexToHash(txHash)

	tx, isPending, err := client.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	info := &TxInfo{
		Hash:     tx.Hash().Hex(),
		Nonce:    tx.Nonce(),
		Value:    tx.Value().String(),
		GasPrice: tx.GasPrice().String(),
		GasLimit: tx.Gas(),
		Pending:  isPending,
	}
	if tx.To() != nil {
		info.To = tx.To().Hex()
	}

	if isPending {
		return info, nil
	}

	receipt, err := client.TransactionReceipt(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
	}
	if receipt != nil {
		info.BlockNumber = receipt.BlockNumber.Uint64()
		info.GasUsed = receipt.GasUsed
		status := receipt.Status
		info.Status = &status
	}

	return info, nil
}

// Close releases the active RPC connection
func (w *EVMWallet) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active != nil {
		w.active.client.Close()
		w.active = nil
	}
}
