package registry

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestResolveAddress_NativeNeverContract(t *testing.T) {
	for _, c := range Chains() {
		res := ResolveAddress(c.ID, Native)
		require.Equal(t, NoContract, res.Kind, "chain %d", c.ID)
		require.Equal(t, common.Address{}, res.Address)
	}

	// Unknown chains too.
	require.Equal(t, NoContract, ResolveAddress(999999, Native).Kind)
}

func TestResolveAddress_Tokens(t *testing.T) {
	res := ResolveAddress(10, USDC)
	require.Equal(t, Contract, res.Kind)
	require.Equal(t, common.HexToAddress("0x0b2c639c533813f4aa9d7837caf62653d097ff85"), res.Address)
	require.True(t, strings.HasPrefix(strings.ToLower(res.Address.Hex()), "0x0b2c639c"))

	res = ResolveAddress(137, USDT)
	require.Equal(t, Contract, res.Kind)
	require.Equal(t, common.HexToAddress("0xc2132d05d31c914a87c6611c10748aeb04b58e8f"), res.Address)

	require.Equal(t, Unsupported, ResolveAddress(8453, USDT).Kind)
	require.Equal(t, Contract, ResolveAddress(8453, USDC).Kind)
	require.Equal(t, Unsupported, ResolveAddress(56, USDC).Kind)
}

func TestEveryChainHasUSDC(t *testing.T) {
	for _, c := range Chains() {
		require.Equal(t, Contract, ResolveAddress(c.ID, USDC).Kind, c.Name)
	}
}

func TestParseAsset(t *testing.T) {
	a, err := ParseAsset("ETH")
	require.NoError(t, err)
	require.Equal(t, Native, a)
	require.Equal(t, int32(18), a.Decimals())
	require.False(t, a.IsToken())

	a, err = ParseAsset(" usdt ")
	require.NoError(t, err)
	require.Equal(t, USDT, a)
	require.Equal(t, int32(6), a.Decimals())
	require.Equal(t, "USDT", a.Symbol())

	_, err = ParseAsset("dai")
	require.Error(t, err)
}

func TestChainByName(t *testing.T) {
	c, ok := ChainByName("op")
	require.True(t, ok)
	require.Equal(t, int64(10), c.ID)

	c, ok = ChainByName("Arbitrum One")
	require.True(t, ok)
	require.Equal(t, int64(42161), c.ID)

	c, ok = ChainByName("534352")
	require.True(t, ok)
	require.Equal(t, "Scroll", c.Name)

	_, ok = ChainByName("solana")
	require.False(t, ok)
}

func TestTxURL(t *testing.T) {
	u, ok := TxURL(10, "0xabc")
	require.True(t, ok)
	require.Equal(t, "https://optimistic.etherscan.io/tx/0xabc", u)

	u, ok = TxURL(1, "0xdef")
	require.True(t, ok)
	require.Equal(t, "https://etherscan.io/tx/0xdef", u)

	_, ok = TxURL(5, "0xabc")
	require.False(t, ok)
}

func TestChainsReturnsCopy(t *testing.T) {
	list := Chains()
	list[0].Name = "changed"
	require.NotEqual(t, "changed", Chains()[0].Name)
}
