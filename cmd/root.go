package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ca-send/config"
	"ca-send/pkg/logger"
	"ca-send/pkg/price"
)

var rootCmd = &cobra.Command{
	Use:   "ca-send",
	Short: "A CLI for sending native coins and stablecoins across EVM chains",
	Long: `ca-send resolves a transfer to the right chain, contract and base units,
switches the wallet to the destination chain and sends it. It also renders
funding intents with their fee breakdown and live fiat conversion.

Examples:
  ca-send send 50 usdc to 0x1234... on optimism
  ca-send send --to 0x1234... --chain 8453 --asset eth --amount 0.01
  ca-send intent ./intent.json --watch
  ca-send chains
  ca-send status 0xabcd... --chain optimism
  ca-send prices ETH USDC`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}

// setup loads the configuration and builds the logger every command uses
func setup(cmd *cobra.Command) (*config.Config, *zap.SugaredLogger) {
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	log, err := logger.New(cfg.Development || verbose)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if !verbose && !cfg.Development {
		log = logger.Nop()
	}

	return cfg, log
}

func newPriceCache(cfg *config.Config, log *zap.SugaredLogger) *price.Cache {
	var feed price.Feed
	switch cfg.Price.Source {
	case config.PriceSourceOneClick:
		feed = price.NewOneClickFeed(cfg.OneClick.JWTToken, cfg.OneClick.BaseURL)
	default:
		feed = price.NewCoinbaseFeed(price.NewHttp(nil), cfg.Price.URL)
	}
	return price.NewCache(feed, cfg.Price.Interval, log).WithTimeout(cfg.Price.Timeout)
}

func newSpinner(suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + suffix
	return s
}

// shouldPrompt reports whether a command asks on the terminal before acting.
// JSON output is for scripts and never prompts.
func shouldPrompt(skip, jsonOutput bool) bool {
	return !skip && !jsonOutput
}

func confirm(prompt string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("\n%s (y/N): ", prompt)

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
