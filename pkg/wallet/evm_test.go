package wallet

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"ca-send/config"
)

type fakeClient struct {
	chainID      int64
	balance      *big.Int
	tokenBalance *big.Int
	estimate     uint64
	sendErr      error

	mu     sync.Mutex
	sent   []*types.Transaction
	closed bool
}

func (c *fakeClient) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(c.chainID), nil
}

func (c *fakeClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 7, nil
}

func (c *fakeClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (c *fakeClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if c.estimate == 0 {
		return 0, errors.New("estimate unavailable")
	}
	return c.estimate, nil
}

func (c *fakeClient) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return c.balance, nil
}

func (c *fakeClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return common.LeftPadBytes(c.tokenBalance.Bytes(), 32), nil
}

func (c *fakeClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, tx)
	return nil
}

func (c *fakeClient) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tx := range c.sent {
		if tx.Hash() == hash {
			return tx, false, nil
		}
	}
	return nil, false, ethereum.NotFound
}

func (c *fakeClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(100), GasUsed: 21000}, nil
}

func (c *fakeClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func newTestWallet(t *testing.T, clients map[string]*fakeClient, rpc map[int64][]string) *EVMWallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	w, err := NewEVMWallet(config.WalletConfig{
		PrivateKey: hexutil.Encode(crypto.FromECDSA(key)),
		RPC:        rpc,
	}, nil)
	require.NoError(t, err)

	return w.WithDialer(func(ctx context.Context, url string) (EthClient, error) {
		c, ok := clients[url]
		if !ok {
			return nil, errors.New("connection refused")
		}
		return c, nil
	})
}

func TestNewEVMWallet_InvalidKey(t *testing.T) {
	_, err := NewEVMWallet(config.WalletConfig{}, nil)
	require.Error(t, err)

	_, err = NewEVMWallet(config.WalletConfig{PrivateKey: "0xnothex"}, nil)
	require.ErrorContains(t, err, "invalid private key")
}

func TestSwitchChain_FallsBackAcrossRPCs(t *testing.T) {
	wrong := &fakeClient{chainID: 1}
	good := &fakeClient{chainID: 10}
	w := newTestWallet(t, map[string]*fakeClient{"wrong": wrong, "good": good},
		map[int64][]string{10: {"down", "wrong", "good"}})

	_, err := w.SwitchChain(context.Background(), 10).Wait()
	require.NoError(t, err)
	require.Equal(t, int64(10), w.ActiveChain())
	require.True(t, wrong.closed)

	_, err = w.SwitchChain(context.Background(), 137).Wait()
	require.ErrorContains(t, err, "no RPC URL configured")
	require.Equal(t, int64(10), w.ActiveChain())
}

func TestSend_RequiresActiveChain(t *testing.T) {
	w := newTestWallet(t, nil, nil)
	_, err := w.SendNative(context.Background(), common.Address{}, big.NewInt(1)).Wait()
	require.ErrorIs(t, err, ErrNoActiveChain)
}

func TestSendNative(t *testing.T) {
	client := &fakeClient{chainID: 8453, balance: big.NewInt(1e18)}
	w := newTestWallet(t, map[string]*fakeClient{"base": client}, map[int64][]string{8453: {"base"}})
	_, err := w.SwitchChain(context.Background(), 8453).Wait()
	require.NoError(t, err)

	to := common.HexToAddress("0x2b5AD5c4795c026514f8317c7a215E218DcCD6cF")
	hash, err := w.SendNative(context.Background(), to, big.NewInt(1e16)).Wait()
	require.NoError(t, err)

	require.Len(t, client.sent, 1)
	tx := client.sent[0]
	require.Equal(t, hash, tx.Hash())
	require.Equal(t, to, *tx.To())
	require.Equal(t, big.NewInt(1e16), tx.Value())
	require.Equal(t, uint64(21000), tx.Gas())
	require.Equal(t, uint64(7), tx.Nonce())

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(8453)), tx)
	require.NoError(t, err)
	require.Equal(t, w.Address(), sender)

	_, err = w.SendNative(context.Background(), to, big.NewInt(2e18)).Wait()
	require.ErrorContains(t, err, "insufficient balance")
}

func TestSendContractCall_Transfer(t *testing.T) {
	client := &fakeClient{chainID: 10, tokenBalance: big.NewInt(100_000000), estimate: 50000}
	w := newTestWallet(t, map[string]*fakeClient{"op": client}, map[int64][]string{10: {"op"}})
	_, err := w.SwitchChain(context.Background(), 10).Wait()
	require.NoError(t, err)

	usdc := common.HexToAddress("0x0b2c639c533813f4aa9d7837caf62653d097ff85")
	to := common.HexToAddress("0x2b5AD5c4795c026514f8317c7a215E218DcCD6cF")

	_, err = w.SendContractCall(context.Background(), usdc, ERC20, "transfer", to, big.NewInt(50_000000)).Wait()
	require.NoError(t, err)

	require.Len(t, client.sent, 1)
	tx := client.sent[0]
	require.Equal(t, usdc, *tx.To())
	require.Zero(t, tx.Value().Sign())
	require.Equal(t, uint64(60000), tx.Gas())

	method, err := ERC20.MethodById(tx.Data()[:4])
	require.NoError(t, err)
	require.Equal(t, "transfer", method.Name)
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	require.Equal(t, to, args[0])
	require.Equal(t, big.NewInt(50_000000), args[1])

	_, err = w.SendContractCall(context.Background(), usdc, ERC20, "transfer", to, big.NewInt(500_000000)).Wait()
	require.ErrorContains(t, err, "insufficient token balance")
}

func TestSendContractCall_DefaultGasAndPackErrors(t *testing.T) {
	client := &fakeClient{chainID: 1, tokenBalance: big.NewInt(1)}
	w := newTestWallet(t, map[string]*fakeClient{"eth": client}, map[int64][]string{1: {"eth"}})
	_, err := w.SwitchChain(context.Background(), 1).Wait()
	require.NoError(t, err)

	token := common.HexToAddress("0xdac17f958d2ee523a2206206994597c13d831ec7")
	_, err = w.SendContractCall(context.Background(), token, ERC20, "transfer", common.Address{}, big.NewInt(1)).Wait()
	require.NoError(t, err)
	require.Equal(t, uint64(100000), client.sent[0].Gas())

	_, err = w.SendContractCall(context.Background(), token, ERC20, "approve", common.Address{}).Wait()
	require.ErrorContains(t, err, "failed to pack")
}

func TestTransactionInfo(t *testing.T) {
	client := &fakeClient{chainID: 137, balance: big.NewInt(1e18)}
	w := newTestWallet(t, map[string]*fakeClient{"pol": client}, map[int64][]string{137: {"pol"}})
	_, err := w.SwitchChain(context.Background(), 137).Wait()
	require.NoError(t, err)

	hash, err := w.SendNative(context.Background(), common.Address{1}, big.NewInt(5)).Wait()
	require.NoError(t, err)

	info, err := w.TransactionInfo(context.Background(), 137, hash.Hex())
	require.NoError(t, err)
	require.Equal(t, hash.Hex(), info.Hash)
	require.Equal(t, "5", info.Value)
	require.False(t, info.Pending)
	require.Equal(t, uint64(100), info.BlockNumber)
	require.Equal(t, uint64(1), *info.Status)

	_, err = w.TransactionInfo(context.Background(), 137, "0xdead")
	require.ErrorContains(t, err, "failed to get transaction")
}
