// Package dispatch turns a submitted transfer form into a chain-correct,
// unit-correct wallet call and reports one terminal outcome per submission.
package dispatch

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"ca-send/pkg/amount"
	"ca-send/pkg/registry"
	"ca-send/pkg/types"
	"ca-send/pkg/wallet"
)

// State of the dispatcher
type State int32

const (
	Idle State = iota
	Submitting
	ChainSwitching
	Dispatching
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case ChainSwitching:
		return "switching chain"
	case Dispatching:
		return "dispatching"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Terminal reports whether s ends a submission
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed
}

// Request is a resolved submission. It is not modified after dispatch.
type Request struct {
	ID        string
	Recipient common.Address
	ChainID   int64
	Asset     registry.AssetKind
	Amount    string
	BaseUnits *big.Int
	// Contract is the token contract; zero for native transfers
	Contract common.Address
}

// Outcome is the single terminal result of a submission
type Outcome struct {
	State        State
	Request      *Request
	TxHash       common.Hash
	Notification *Notification
	Err          error
}

func (o Outcome) Succeeded() bool {
	return o.State == Succeeded
}

// Result converts the outcome for display
func (o Outcome) Result() types.TransferResult {
	res := types.TransferResult{Status: o.State.String()}
	if o.Request != nil {
		res.RequestID = o.Request.ID
	}
	if o.Succeeded() {
		res.TxHash = o.TxHash.Hex()
		if o.Notification != nil && o.Notification.Action != nil {
			res.ExplorerURL = o.Notification.Action.URL
		}
	}
	if o.Err != nil {
		res.Error = o.Err.Error()
	}
	return res
}

// Observer follows a submission. StateChanged is called on every transition
// and Reset once the form should be cleared.
type Observer interface {
	StateChanged(requestID string, state State)
	Reset()
}

type nopObserver struct{}

func (nopObserver) StateChanged(string, State) {}
func (nopObserver) Reset()                     {}

// Option configures a Dispatcher
type Option func(*Dispatcher)

func WithNotifier(n Notifier) Option {
	return func(d *Dispatcher) { d.notifier = n }
}

func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(d *Dispatcher) { d.log = log }
}

// Dispatcher runs Idle → Submitting → ChainSwitching → Dispatching →
// Succeeded|Failed → Idle. Only one submission is in flight at a time.
type Dispatcher struct {
	wallet   wallet.Wallet
	notifier Notifier
	observer Observer
	log      *zap.SugaredLogger
	newID    func() string

	busy  *atomic.Bool
	state *atomic.Int32
}

// New creates a dispatcher bound to w
func New(w wallet.Wallet, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		wallet:   w,
		notifier: nopNotifier{},
		observer: nopObserver{},
		log:      zap.NewNop().Sugar(),
		newID:    func() string { return uuid.New().String() },
		busy:     atomic.NewBool(false),
		state:    atomic.NewInt32(int32(Idle)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Busy reports whether a submission is in flight; submit should be disabled
func (d *Dispatcher) Busy() bool {
	return d.busy.Load()
}

// State returns the current state
func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

func (d *Dispatcher) setState(id string, s State) {
	d.state.Store(int32(s))
	d.log.Debugw("transfer state", "request", id, "state", s.String())
	d.observer.StateChanged(id, s)
}

// Submit validates form, switches the wallet to the destination chain and
// issues the transfer. It never panics or returns an error; every failure is
// reported as a Failed outcome.
func (d *Dispatcher) Submit(ctx context.Context, form types.TransferForm) (out Outcome) {
	if !d.busy.CAS(false, true) {
		return Outcome{State: Failed, Err: ErrSubmissionInProgress}
	}

	id := d.newID()
	var req *Request
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorw("transfer panicked", "request", id, "panic", r)
			out = Outcome{State: Failed, Request: req, Err: fmt.Errorf("%w: %v", ErrDispatchRejected, r)}
			d.setState(id, Failed)
		}
		d.observer.Reset()
		d.setState(id, Idle)
		d.busy.Store(false)
	}()

	// Issued wallet calls run to completion regardless of the caller.
	ctx = context.WithoutCancel(ctx)

	d.setState(id, Submitting)
	req, err := resolve(id, form)
	if err != nil {
		return d.fail(id, nil, err)
	}

	d.setState(id, ChainSwitching)
	if _, err := d.wallet.SwitchChain(ctx, req.ChainID).Wait(); err != nil {
		return d.fail(id, req, fmt.Errorf("%w: %w", ErrChainSwitchRejected, err))
	}

	d.setState(id, Dispatching)
	var pending *wallet.Future[common.Hash]
	if req.Asset.IsToken() {
		pending = d.wallet.SendContractCall(ctx, req.Contract, wallet.ERC20, "transfer", req.Recipient, req.BaseUnits)
	} else {
		pending = d.wallet.SendNative(ctx, req.Recipient, req.BaseUnits)
	}
	hash, err := pending.Wait()
	if err != nil {
		return d.fail(id, req, fmt.Errorf("%w: %w", ErrDispatchRejected, err))
	}

	note := SuccessNotification(req.ChainID, hash)
	d.log.Infow("transfer submitted", "request", id, "chain", req.ChainID, "asset", req.Asset.String(), "hash", hash.Hex())
	d.setState(id, Succeeded)
	d.notifier.Notify(note)

	return Outcome{State: Succeeded, Request: req, TxHash: hash, Notification: &note}
}

func (d *Dispatcher) fail(id string, req *Request, err error) Outcome {
	d.log.Warnw("transfer failed", "request", id, "err", err)
	d.setState(id, Failed)
	return Outcome{State: Failed, Request: req, Err: err}
}

// resolve checks the form and computes everything the wallet calls need,
// before any of them is issued.
func resolve(id string, form types.TransferForm) (*Request, error) {
	to := strings.TrimSpace(form.Recipient)
	chain := strings.TrimSpace(form.Chain)
	asset := strings.TrimSpace(form.Asset)
	human := strings.TrimSpace(form.Amount)
	if to == "" || chain == "" || asset == "" || human == "" {
		return nil, ErrMissingParameter
	}

	kind, err := registry.ParseAsset(asset)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAssetNotSupported, err)
	}

	chainID, err := strconv.ParseInt(chain, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: chain '%s' is not a chain id", ErrMissingParameter, chain)
	}
	if _, ok := registry.ChainByID(chainID); !ok {
		return nil, fmt.Errorf("%w: unknown chain %d", ErrAssetNotSupported, chainID)
	}

	if !common.IsHexAddress(to) {
		return nil, fmt.Errorf("%w: '%s'", ErrInvalidRecipient, to)
	}

	units, err := amount.ToBaseUnits(human, kind.Decimals())
	if err != nil {
		return nil, err
	}

	req := &Request{
		ID:        id,
		Recipient: common.HexToAddress(to),
		ChainID:   chainID,
		Asset:     kind,
		Amount:    human,
		BaseUnits: units,
	}

	if kind.IsToken() {
		res := registry.ResolveAddress(chainID, kind)
		if res.Kind != registry.Contract {
			return nil, fmt.Errorf("%w: %s on chain %d", ErrAssetNotSupported, kind, chainID)
		}
		req.Contract = res.Address
	}

	return req, nil
}
