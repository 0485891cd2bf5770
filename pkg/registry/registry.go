// Package registry holds the static chain and asset tables used to resolve
// a transfer's contract address and explorer links.
package registry

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// AssetKind identifies the asset a transfer moves
type AssetKind int

const (
	Native AssetKind = iota
	USDC
	USDT
)

// Decimals returns the base-unit precision of the asset
func (a AssetKind) Decimals() int32 {
	if a == Native {
		return 18
	}
	return 6
}

// IsToken reports whether the asset is moved through a token contract call
func (a AssetKind) IsToken() bool {
	return a == USDC || a == USDT
}

func (a AssetKind) String() string {
	switch a {
	case Native:
		return "eth"
	case USDC:
		return "usdc"
	case USDT:
		return "usdt"
	default:
		return fmt.Sprintf("asset(%d)", int(a))
	}
}

// Symbol returns the upper case ticker used by price feeds
func (a AssetKind) Symbol() string {
	return strings.ToUpper(a.String())
}

// ParseAsset converts a form value (eth, usdc, usdt) into an AssetKind
func ParseAsset(s string) (AssetKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "eth":
		return Native, nil
	case "usdc":
		return USDC, nil
	case "usdt":
		return USDT, nil
	default:
		return 0, fmt.Errorf("unknown asset '%s'", s)
	}
}

// Chain describes one destination network
type Chain struct {
	ID       int64
	Name     string
	Aliases  []string
	Explorer string
	// token contracts indexed by asset; a zero address means unsupported
	USDC common.Address
	USDT common.Address
}

// Order matches the destination chain selector.
var chains = []Chain{
	{
		ID:       42161,
		Name:     "Arbitrum One",
		Aliases:  []string{"arbitrum", "arb"},
		Explorer: "https://arbiscan.io/",
		USDC:     common.HexToAddress("0xaf88d065e77c8cc2239327c5edb3a432268e5831"),
		USDT:     common.HexToAddress("0xfd086bc7cd5c481dcc9c85ebe478a1c0b69fcbb9"),
	},
	{
		ID:       59144,
		Name:     "Linea",
		Aliases:  []string{"linea"},
		Explorer: "https://lineascan.build/",
		USDC:     common.HexToAddress("0x176211869ca2b568f2a7d4ee941e073a821ee1ff"),
		USDT:     common.HexToAddress("0xa219439258ca9da29e9cc4ce5596924745e12b93"),
	},
	{
		ID:       534352,
		Name:     "Scroll",
		Aliases:  []string{"scroll"},
		Explorer: "https://scrollscan.com/",
		USDC:     common.HexToAddress("0x06efdbff2a14a7c8e15944d1f4a48f9f95f663a4"),
		USDT:     common.HexToAddress("0xf55bec9cafdbe8730f096aa55dad6d22d44099df"),
	},
	{
		ID:       10,
		Name:     "Optimism",
		Aliases:  []string{"optimism", "op"},
		Explorer: "https://optimistic.etherscan.io/",
		USDC:     common.HexToAddress("0x0b2c639c533813f4aa9d7837caf62653d097ff85"),
		USDT:     common.HexToAddress("0x94b008aa00579c1307b0ef2c499ad98a8ce58e58"),
	},
	{
		ID:       8453,
		Name:     "Base",
		Aliases:  []string{"base"},
		Explorer: "https://basescan.org/",
		USDC:     common.HexToAddress("0x833589fcd6edb6e08f4c7c32d4f71b54bda02913"),
	},
	{
		ID:       1,
		Name:     "Ethereum",
		Aliases:  []string{"ethereum", "mainnet", "eth"},
		Explorer: "https://etherscan.io/",
		USDC:     common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"),
		USDT:     common.HexToAddress("0xdac17f958d2ee523a2206206994597c13d831ec7"),
	},
	{
		ID:       137,
		Name:     "Polygon POS",
		Aliases:  []string{"polygon", "matic", "pol"},
		Explorer: "https://polygonscan.com/",
		USDC:     common.HexToAddress("0x3c499c542cef5e3811e1192ce70d8cc03d5c3359"),
		USDT:     common.HexToAddress("0xc2132d05d31c914a87c6611c10748aeb04b58e8f"),
	},
}

var chainsByID = func() map[int64]Chain {
	m := make(map[int64]Chain, len(chains))
	for _, c := range chains {
		m[c.ID] = c
	}
	return m
}()

// Chains returns the supported destination chains in selector order
func Chains() []Chain {
	out := make([]Chain, len(chains))
	copy(out, chains)
	return out
}

// ChainByID looks up a chain by its numeric id
func ChainByID(id int64) (Chain, bool) {
	c, ok := chainsByID[id]
	return c, ok
}

// ChainByName accepts a chain id, its display name or one of its aliases
func ChainByName(name string) (Chain, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if id, err := strconv.ParseInt(name, 10, 64); err == nil {
		return ChainByID(id)
	}
	for _, c := range chains {
		if strings.ToLower(c.Name) == name {
			return c, true
		}
		for _, alias := range c.Aliases {
			if alias == name {
				return c, true
			}
		}
	}
	return Chain{}, false
}

// ResolutionKind tags the outcome of an address lookup
type ResolutionKind int

const (
	// NoContract is returned for the native asset, which is never a contract call
	NoContract ResolutionKind = iota
	Contract
	Unsupported
)

// Resolution is the result of ResolveAddress
type Resolution struct {
	Kind    ResolutionKind
	Address common.Address
}

// ResolveAddress finds the token contract for asset on chainID.
func ResolveAddress(chainID int64, asset AssetKind) Resolution {
	if asset == Native {
		return Resolution{Kind: NoContract}
	}

	c, ok := chainsByID[chainID]
	if !ok {
		return Resolution{Kind: Unsupported}
	}

	var addr common.Address
	switch asset {
	case USDC:
		addr = c.USDC
	case USDT:
		addr = c.USDT
	}
	if addr == (common.Address{}) {
		return Resolution{Kind: Unsupported}
	}

	return Resolution{Kind: Contract, Address: addr}
}

// ResolveExplorer returns the block explorer base URL for chainID
func ResolveExplorer(chainID int64) (*url.URL, bool) {
	c, ok := chainsByID[chainID]
	if !ok || c.Explorer == "" {
		return nil, false
	}
	u, err := url.Parse(c.Explorer)
	if err != nil {
		return nil, false
	}
	return u, true
}

// TxURL builds the explorer link for a transaction hash
func TxURL(chainID int64, hash string) (string, bool) {
	base, ok := ResolveExplorer(chainID)
	if !ok {
		return "", false
	}
	ref := &url.URL{Path: "/tx/" + hash}
	return base.ResolveReference(ref).String(), true
}
