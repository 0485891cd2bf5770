package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ca-send/pkg/registry"
)

var filterAsset string

type chainInfo struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Explorer string `json:"explorer"`
	USDC     string `json:"usdc,omitempty"`
	USDT     string `json:"usdt,omitempty"`
}

var chainsCmd = &cobra.Command{
	Use:     "chains",
	Aliases: []string{"list-chains", "ls"},
	Short:   "List supported destination chains",
	Long: `List the destination chains and the stablecoin contracts used on each.

ETH is supported on every chain. Filter by asset to see where a stablecoin is
available.

Examples:
  ca-send chains
  ca-send chains --asset usdt`,
	Run: runListChains,
}

func init() {
	rootCmd.AddCommand(chainsCmd)

	chainsCmd.Flags().StringVar(&filterAsset, "asset", "", "Only show chains that support this asset")
}

func runListChains(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	var filter *registry.AssetKind
	if filterAsset != "" {
		kind, err := registry.ParseAsset(filterAsset)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		filter = &kind
	}

	var chains []chainInfo
	for _, c := range registry.Chains() {
		if filter != nil && registry.ResolveAddress(c.ID, *filter).Kind == registry.Unsupported {
			continue
		}
		info := chainInfo{ID: c.ID, Name: c.Name, Explorer: c.Explorer}
		if res := registry.ResolveAddress(c.ID, registry.USDC); res.Kind == registry.Contract {
			info.USDC = res.Address.Hex()
		}
		if res := registry.ResolveAddress(c.ID, registry.USDT); res.Kind == registry.Contract {
			info.USDT = res.Address.Hex()
		}
		chains = append(chains, info)
	}

	// Output
	if jsonOutput {
		jsonData, _ := json.MarshalIndent(chains, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayChains(chains)
	}
}

func displayChains(chains []chainInfo) {
	if len(chains) == 0 {
		fmt.Println("\nNo chains found matching the criteria.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                            SUPPORTED CHAINS")
	fmt.Println(strings.Repeat("=", 90))

	for _, c := range chains {
		color.Cyan("\n%s (%d)", strings.ToUpper(c.Name), c.ID)
		fmt.Println(strings.Repeat("-", 90))
		fmt.Printf("  %-10s  %s\n", color.YellowString("ETH"), color.HiBlackString("native"))
		if c.USDC != "" {
			fmt.Printf("  %-10s  %s\n", color.YellowString("USDC"), color.HiBlackString(c.USDC))
		}
		if c.USDT != "" {
			fmt.Printf("  %-10s  %s\n", color.YellowString("USDT"), color.HiBlackString(c.USDT))
		}
		fmt.Printf("  %-10s  %s\n", "Explorer", c.Explorer)
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d chains\n\n", len(chains))
}
