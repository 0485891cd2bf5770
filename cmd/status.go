package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ca-send/config"
	"ca-send/pkg/registry"
	"ca-send/pkg/wallet"
)

var (
	statusChain   string
	watchStatus   bool
	watchInterval int
)

var statusCmd = &cobra.Command{
	Use:   "status <tx-hash>",
	Short: "Check the status of a transfer",
	Long: `Check whether a transfer has been mined and whether it succeeded.

Examples:
  ca-send status 0x1234...abcd --chain optimism
  ca-send status 0x1234...abcd --chain 8453 --watch
  ca-send status 0x1234...abcd --chain base --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusChain, "chain", "", "Chain id or name the transaction was sent on (REQUIRED)")
	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch status updates until the transaction is mined")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
	_ = statusCmd.MarkFlagRequired("chain")
}

func runStatus(cmd *cobra.Command, args []string) {
	txHash := args[0]
	jsonOutput, _ := cmd.Flags().GetBool("json")

	chain, ok := registry.ChainByName(statusChain)
	if !ok {
		printError(fmt.Errorf("unknown chain '%s' (see: ca-send chains)", statusChain))
		os.Exit(1)
	}

	cfg, _ := setup(cmd)

	if watchStatus {
		watchTxStatus(cfg, chain, txHash, jsonOutput)
	} else {
		checkTxStatus(cfg, chain, txHash, jsonOutput)
	}
}

func checkTxStatus(cfg *config.Config, chain registry.Chain, txHash string, jsonOutput bool) {
	s := newSpinner("Checking transaction status...")
	if !jsonOutput {
		s.Start()
	}

	info, err := wallet.LookupTransaction(context.Background(), cfg.Wallet, chain.ID, txHash)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(info, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayStatus(info, chain)
	}
}

func watchTxStatus(cfg *config.Config, chain registry.Chain, txHash string, jsonOutput bool) {
	if jsonOutput {
		fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
		os.Exit(1)
	}

	fmt.Printf("\nWatching transaction %s on %s\n", color.CyanString(txHash), chain.Name)
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n\n", watchInterval)

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	// Check immediately first, then until mined
	for {
		if checkAndDisplayStatus(cfg, chain, txHash) {
			return
		}
		<-ticker.C
	}
}

// checkAndDisplayStatus reports whether the transaction has been mined
func checkAndDisplayStatus(cfg *config.Config, chain registry.Chain, txHash string) bool {
	info, err := wallet.LookupTransaction(context.Background(), cfg.Wallet, chain.ID, txHash)
	if err != nil {
		color.Red("Error: %v", err)
		return false
	}

	displayStatus(info, chain)
	return !info.Pending
}

func displayStatus(info *wallet.TxInfo, chain registry.Chain) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                     TRANSACTION STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Hash:            %s\n", color.CyanString(info.Hash))
	fmt.Printf("  Chain:           %s (%d)\n", chain.Name, chain.ID)
	fmt.Printf("  Status:          %s\n", getColoredStatus(info))
	fmt.Printf("  To:              %s\n", info.To)
	fmt.Printf("  Value:           %s wei\n", info.Value)
	fmt.Printf("  Nonce:           %d\n", info.Nonce)

	if !info.Pending {
		fmt.Printf("  Block:           %d\n", info.BlockNumber)
		fmt.Printf("  Gas Used:        %d / %d\n", info.GasUsed, info.GasLimit)
	}
	if url, ok := registry.TxURL(chain.ID, info.Hash); ok {
		fmt.Printf("  Explorer:        %s\n", color.HiBlackString(url))
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func getColoredStatus(info *wallet.TxInfo) string {
	switch {
	case info.Pending:
		return color.YellowString("PENDING")
	case info.Status != nil && *info.Status == 1:
		return color.GreenString("SUCCESS")
	case info.Status != nil:
		return color.RedString("FAILED")
	default:
		return "UNKNOWN"
	}
}
