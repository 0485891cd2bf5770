package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ca-send/config"
	"ca-send/pkg/amount"
	"ca-send/pkg/dispatch"
	"ca-send/pkg/parser"
	"ca-send/pkg/price"
	"ca-send/pkg/registry"
	"ca-send/pkg/types"
	"ca-send/pkg/wallet"
)

var (
	sendTo     string
	sendChain  string
	sendAsset  string
	sendAmount string
	noConfirm  bool
)

var sendCmd = &cobra.Command{
	Use:   "send [<amount> <asset> to <address> on <chain>]",
	Short: "Send ETH, USDC or USDT on a supported chain",
	Long: `Send a native coin or stablecoin transfer on one of the supported chains.

The wallet is switched to the destination chain before the transfer is issued.
The amount is converted to base units with exact decimal arithmetic; digits
below one base unit are dropped.

Examples:
  # Natural language
  ca-send send 50 usdc to 0x1234... on optimism

  # Explicit fields (chain by id or name)
  ca-send send --to 0x1234... --chain 8453 --asset eth --amount 0.01

  # Skip the confirmation prompt
  ca-send send 10 usdt to 0x1234... on arbitrum --yes`,
	Run: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVar(&sendTo, "to", "", "Recipient address")
	sendCmd.Flags().StringVar(&sendChain, "chain", "", "Destination chain id or name")
	sendCmd.Flags().StringVar(&sendAsset, "asset", "", "Asset to send (eth, usdc, usdt)")
	sendCmd.Flags().StringVar(&sendAmount, "amount", "", "Amount in human units (e.g. 0.01)")
	sendCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runSend(cmd *cobra.Command, args []string) {
	form, err := buildForm(args)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	cfg, log := setup(cmd)

	w, err := wallet.NewEVMWallet(cfg.Wallet, log)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer w.Close()

	if !jsonOutput {
		displayTransfer(form, w.Address().Hex(), fiatLine(cfg, log, form))
	}

	if shouldPrompt(noConfirm || cfg.AutoConfirm, jsonOutput) {
		if !confirm("Proceed with transfer?") {
			fmt.Println("\nTransfer cancelled.")
			os.Exit(0)
		}
	}

	s := newSpinner("Submitting transfer...")
	opts := []dispatch.Option{dispatch.WithLogger(log)}
	if !jsonOutput {
		opts = append(opts,
			dispatch.WithObserver(&spinnerObserver{s: s}),
			dispatch.WithNotifier(dispatch.NotifierFunc(displayNotification)),
		)
	}
	d := dispatch.New(w, opts...)

	out := d.Submit(context.Background(), *form)

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(out.Result(), "", "  ")
		fmt.Println(string(jsonData))
	} else if !out.Succeeded() {
		color.Red("\n✗ Transfer failed: %v", out.Err)
	} else {
		fmt.Println("\nYou can check the transaction using:")
		color.Cyan("  ca-send status %s --chain %d\n", out.TxHash.Hex(), out.Request.ChainID)
	}

	if !out.Succeeded() {
		os.Exit(1)
	}
}

// buildForm reads the form from a natural language command or from flags.
// Flags override what the command says.
func buildForm(args []string) (*types.TransferForm, error) {
	form := &types.TransferForm{}
	if len(args) > 0 {
		parsed, err := parser.ParseSendCommand(strings.Join(args, " "))
		if err != nil {
			return nil, err
		}
		form = parsed
	}

	if sendTo != "" {
		form.Recipient = sendTo
	}
	if sendAsset != "" {
		form.Asset = parser.NormalizeAsset(sendAsset)
	}
	if sendAmount != "" {
		form.Amount = sendAmount
	}
	if sendChain != "" {
		chain, ok := registry.ChainByName(sendChain)
		if !ok {
			return nil, fmt.Errorf("unknown chain '%s' (see: ca-send chains)", sendChain)
		}
		form.Chain = strconv.FormatInt(chain.ID, 10)
	}

	return form, parser.ValidateTransferForm(form)
}

// fiatLine prices the transfer once; it is empty when no rate is available
func fiatLine(cfg *config.Config, log *zap.SugaredLogger, form *types.TransferForm) string {
	kind, err := registry.ParseAsset(form.Asset)
	if err != nil {
		return ""
	}
	value, err := amount.Parse(form.Amount)
	if err != nil {
		return ""
	}

	cache := newPriceCache(cfg, log)
	cache.Refresh(context.Background())
	return usdText(cache, kind.Symbol(), value)
}

func usdText(rates *price.Cache, symbol string, value decimal.Decimal) string {
	rate, ok := rates.Rate(symbol)
	if !ok || !rate.IsPositive() {
		return ""
	}
	return "~" + amount.FormatFiat(value.Div(rate)) + " USD"
}

func displayTransfer(form *types.TransferForm, from, fiat string) {
	chainName := form.Chain
	if id, err := strconv.ParseInt(form.Chain, 10, 64); err == nil {
		if chain, ok := registry.ChainByID(id); ok {
			chainName = fmt.Sprintf("%s (%d)", chain.Name, chain.ID)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                      TRANSFER")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  From:              %s\n", color.HiBlackString(from))
	fmt.Printf("  To:                %s\n", color.CyanString(form.Recipient))
	fmt.Printf("  Amount:            %s %s\n", amount.Readable(form.Amount), color.YellowString(strings.ToUpper(form.Asset)))
	if fiat != "" {
		fmt.Printf("                     %s\n", fiat)
	}
	fmt.Printf("  Chain:             %s\n", chainName)

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func displayNotification(n dispatch.Notification) {
	color.Green("\n✓ %s", n.Title)
	fmt.Printf("  %s\n", n.Description)
	if n.Action != nil {
		fmt.Printf("  %s: %s\n", n.Action.Label, color.CyanString(n.Action.URL))
	}
}

// spinnerObserver shows the dispatcher state on a spinner
type spinnerObserver struct {
	s *spinner.Spinner
}

func (o *spinnerObserver) StateChanged(_ string, state dispatch.State) {
	switch state {
	case dispatch.Submitting:
		o.setSuffix("Checking transfer...")
		o.s.Start()
	case dispatch.ChainSwitching:
		o.setSuffix("Switching chain...")
	case dispatch.Dispatching:
		o.setSuffix("Sending transfer...")
	case dispatch.Succeeded, dispatch.Failed:
		o.s.Stop()
	}
}

func (o *spinnerObserver) Reset() {
	o.s.Stop()
}

func (o *spinnerObserver) setSuffix(suffix string) {
	o.s.Lock()
	o.s.Suffix = " " + suffix
	o.s.Unlock()
}
