// Package wallet defines the wallet collaborator the dispatcher drives and a
// go-ethereum backed implementation of it.
package wallet

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Wallet is the connected account. Every call returns immediately with a
// future; the call itself runs to completion even if nobody waits for it.
type Wallet interface {
	// SwitchChain changes the active network. Transfers are scoped to it.
	SwitchChain(ctx context.Context, chainID int64) *Future[struct{}]
	// SendNative transfers value (base units) of the active chain's coin.
	SendNative(ctx context.Context, to common.Address, value *big.Int) *Future[common.Hash]
	// SendContractCall invokes method on contract with args packed by contractABI.
	SendContractCall(ctx context.Context, contract common.Address, contractABI abi.ABI, method string, args ...interface{}) *Future[common.Hash]
}

// ERC20 transfer and balanceOf
const erc20ABIJSON = `[
	{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"}
]`

// ERC20 is the parsed token ABI used for stablecoin transfers
var ERC20 = mustParseABI(erc20ABIJSON)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}
