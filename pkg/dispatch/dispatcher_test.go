package dispatch

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"ca-send/pkg/types"
	"ca-send/pkg/wallet"
)

const (
	recipient = "0x2b5AD5c4795c026514f8317c7a215E218DcCD6cF"
	timeout   = 2 * time.Second
	tick      = 5 * time.Millisecond
)

var txHash = common.HexToHash("0xabc123")

type contractCall struct {
	contract common.Address
	method   string
	args     []interface{}
}

type nativeCall struct {
	to    common.Address
	value *big.Int
}

type mockWallet struct {
	SwitchErr error
	SendErr   error
	// Block, when set, holds transfers until closed.
	Block chan struct{}
	Panic bool

	mu       sync.Mutex
	switches []int64
	natives  []nativeCall
	calls    []contractCall
}

func (m *mockWallet) SwitchChain(ctx context.Context, chainID int64) *wallet.Future[struct{}] {
	m.mu.Lock()
	m.switches = append(m.switches, chainID)
	m.mu.Unlock()
	return wallet.Resolved(struct{}{}, m.SwitchErr)
}

func (m *mockWallet) SendNative(ctx context.Context, to common.Address, value *big.Int) *wallet.Future[common.Hash] {
	m.mu.Lock()
	m.natives = append(m.natives, nativeCall{to: to, value: value})
	m.mu.Unlock()
	return m.send()
}

func (m *mockWallet) SendContractCall(ctx context.Context, contract common.Address, contractABI abi.ABI, method string, args ...interface{}) *wallet.Future[common.Hash] {
	if m.Panic {
		panic("wallet exploded")
	}
	m.mu.Lock()
	m.calls = append(m.calls, contractCall{contract: contract, method: method, args: args})
	m.mu.Unlock()
	return m.send()
}

func (m *mockWallet) send() *wallet.Future[common.Hash] {
	if m.Block == nil {
		return wallet.Resolved(txHash, m.SendErr)
	}
	return wallet.Go(context.Background(), func(ctx context.Context) (common.Hash, error) {
		<-m.Block
		return txHash, m.SendErr
	})
}

func (m *mockWallet) touched() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.switches)+len(m.natives)+len(m.calls) > 0
}

type recordingObserver struct {
	mu     sync.Mutex
	states []State
	resets int
}

func (r *recordingObserver) StateChanged(_ string, s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recordingObserver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets++
}

func form(to, chain, asset, amount string) types.TransferForm {
	return types.TransferForm{Recipient: to, Chain: chain, Asset: asset, Amount: amount}
}

func TestSubmit_RejectsBeforeTouchingWallet(t *testing.T) {
	tests := []struct {
		name string
		form types.TransferForm
		err  error
	}{
		{"missing recipient", form("", "1", "eth", "1"), ErrMissingParameter},
		{"missing chain", form(recipient, "", "eth", "1"), ErrMissingParameter},
		{"missing asset", form(recipient, "1", "", "1"), ErrMissingParameter},
		{"missing amount", form(recipient, "1", "eth", ""), ErrMissingParameter},
		{"blank amount", form(recipient, "1", "eth", "   "), ErrMissingParameter},
		{"unknown asset", form(recipient, "1", "dai", "1"), ErrAssetNotSupported},
		{"non numeric chain", form(recipient, "optimism", "eth", "1"), ErrMissingParameter},
		{"unknown chain", form(recipient, "56", "eth", "1"), ErrAssetNotSupported},
		{"bad recipient", form("0x1234", "1", "eth", "1"), ErrInvalidRecipient},
		{"bad amount", form(recipient, "1", "eth", "1e5"), ErrInvalidAmount},
		{"negative amount", form(recipient, "1", "eth", "-1"), ErrInvalidAmount},
		{"usdt on base", form(recipient, "8453", "usdt", "10"), ErrAssetNotSupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &mockWallet{}
			d := New(w)

			out := d.Submit(context.Background(), tt.form)

			require.Equal(t, Failed, out.State)
			require.ErrorIs(t, out.Err, tt.err)
			require.Nil(t, out.Notification)
			require.False(t, w.touched())
			require.Equal(t, Idle, d.State())
			require.False(t, d.Busy())
		})
	}
}

func TestSubmit_NativeTransfer(t *testing.T) {
	w := &mockWallet{}
	var notes []Notification
	d := New(w, WithNotifier(NotifierFunc(func(n Notification) { notes = append(notes, n) })))

	out := d.Submit(context.Background(), form(recipient, "1", "eth", "0.01"))

	require.True(t, out.Succeeded())
	require.NoError(t, out.Err)
	require.Equal(t, []int64{1}, w.switches)
	require.Empty(t, w.calls)
	require.Len(t, w.natives, 1)
	require.Equal(t, common.HexToAddress(recipient), w.natives[0].to)
	require.Equal(t, "10000000000000000", w.natives[0].value.String())

	require.Len(t, notes, 1)
	require.Equal(t, "Success", notes[0].Title)
	require.Equal(t, "Transaction submitted!", notes[0].Description)
	require.Equal(t, "https://etherscan.io/tx/"+txHash.Hex(), notes[0].Action.URL)
}

func TestSubmit_TokenTransfer(t *testing.T) {
	w := &mockWallet{}
	d := New(w)

	out := d.Submit(context.Background(), form(recipient, "10", "usdc", "50"))

	require.True(t, out.Succeeded())
	require.Equal(t, []int64{10}, w.switches)
	require.Empty(t, w.natives)
	require.Len(t, w.calls, 1)

	call := w.calls[0]
	require.Equal(t, common.HexToAddress("0x0b2c639c533813f4aa9d7837caf62653d097ff85"), call.contract)
	require.Equal(t, "transfer", call.method)
	require.Len(t, call.args, 2)
	require.Equal(t, common.HexToAddress(recipient), call.args[0])
	require.Equal(t, big.NewInt(50_000000), call.args[1])

	require.Equal(t, "Show in explorer", out.Notification.Action.Label)
	require.Equal(t, "https://optimistic.etherscan.io/tx/"+txHash.Hex(), out.Notification.Action.URL)

	res := out.Result()
	require.Equal(t, "succeeded", res.Status)
	require.Equal(t, txHash.Hex(), res.TxHash)
	require.Equal(t, out.Request.ID, res.RequestID)
}

func TestSubmit_TruncatesExtraPrecision(t *testing.T) {
	w := &mockWallet{}
	out := New(w).Submit(context.Background(), form(recipient, "137", "usdt", "1.1234567"))

	require.True(t, out.Succeeded())
	require.Equal(t, big.NewInt(1_123456), w.calls[0].args[1])
	require.Equal(t, common.HexToAddress("0xc2132d05d31c914a87c6611c10748aeb04b58e8f"), w.calls[0].contract)
}

func TestSubmit_ChainSwitchRejected(t *testing.T) {
	w := &mockWallet{SwitchErr: errors.New("user rejected")}
	obs := &recordingObserver{}
	d := New(w, WithObserver(obs))

	out := d.Submit(context.Background(), form(recipient, "42161", "usdc", "5"))

	require.Equal(t, Failed, out.State)
	require.ErrorIs(t, out.Err, ErrChainSwitchRejected)
	require.Contains(t, out.Err.Error(), "user rejected")
	require.Empty(t, w.natives)
	require.Empty(t, w.calls)
	require.Equal(t, []State{Submitting, ChainSwitching, Failed, Idle}, obs.states)
	require.Equal(t, 1, obs.resets)
}

func TestSubmit_DispatchRejected(t *testing.T) {
	w := &mockWallet{SendErr: errors.New("insufficient funds")}
	notified := false
	d := New(w, WithNotifier(NotifierFunc(func(Notification) { notified = true })))

	out := d.Submit(context.Background(), form(recipient, "8453", "eth", "1"))

	require.Equal(t, Failed, out.State)
	require.ErrorIs(t, out.Err, ErrDispatchRejected)
	require.False(t, notified)
	require.Equal(t, "failed", out.Result().Status)
	require.Empty(t, out.Result().TxHash)
}

func TestSubmit_StateSequence(t *testing.T) {
	obs := &recordingObserver{}
	d := New(&mockWallet{}, WithObserver(obs))

	d.Submit(context.Background(), form(recipient, "59144", "usdt", "2"))

	require.Equal(t, []State{Submitting, ChainSwitching, Dispatching, Succeeded, Idle}, obs.states)
	require.Equal(t, 1, obs.resets)
}

func TestSubmit_SingleFlight(t *testing.T) {
	block := make(chan struct{})
	w := &mockWallet{Block: block}
	d := New(w)

	first := make(chan Outcome)
	go func() {
		first <- d.Submit(context.Background(), form(recipient, "1", "eth", "1"))
	}()

	require.Eventually(t, func() bool { return d.State() == Dispatching }, timeout, tick)
	require.True(t, d.Busy())

	second := d.Submit(context.Background(), form(recipient, "1", "usdc", "1"))
	require.ErrorIs(t, second.Err, ErrSubmissionInProgress)
	require.Empty(t, w.calls)

	close(block)
	out := <-first
	require.True(t, out.Succeeded())
	require.False(t, d.Busy())

	// The next submission is accepted once the first completes.
	require.True(t, d.Submit(context.Background(), form(recipient, "1", "usdc", "1")).Succeeded())
}

func TestSubmit_CancelledCallerStillCompletes(t *testing.T) {
	block := make(chan struct{})
	w := &mockWallet{Block: block}
	d := New(w)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Outcome)
	go func() { done <- d.Submit(ctx, form(recipient, "1", "eth", "1")) }()

	require.Eventually(t, func() bool { return d.State() == Dispatching }, timeout, tick)
	cancel()
	close(block)

	require.True(t, (<-done).Succeeded())
}

func TestSubmit_RecoversWalletPanic(t *testing.T) {
	obs := &recordingObserver{}
	d := New(&mockWallet{Panic: true}, WithObserver(obs))

	out := d.Submit(context.Background(), form(recipient, "1", "usdc", "1"))

	require.Equal(t, Failed, out.State)
	require.ErrorIs(t, out.Err, ErrDispatchRejected)
	require.NotNil(t, out.Request)
	require.False(t, d.Busy())
	require.Equal(t, Idle, d.State())
	require.Equal(t, 1, obs.resets)
}

func TestSuccessNotification_UnknownChain(t *testing.T) {
	n := SuccessNotification(999, txHash)
	require.Equal(t, "Success", n.Title)
	require.Nil(t, n.Action)
}
