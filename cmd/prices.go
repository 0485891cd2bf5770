package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"ca-send/pkg/amount"
	"ca-send/pkg/price"
)

var watchPrices bool

var pricesCmd = &cobra.Command{
	Use:   "prices [symbol...]",
	Short: "Show the fiat rates used for USD conversion",
	Long: `Fetch the rate table from the configured price source and show the USD
value of one unit of each symbol.

Examples:
  ca-send prices
  ca-send prices ETH USDC USDT
  ca-send prices ETH --watch`,
	Run: runPrices,
}

func init() {
	rootCmd.AddCommand(pricesCmd)

	pricesCmd.Flags().BoolVarP(&watchPrices, "watch", "w", false, "Keep refreshing on the price interval")
}

type priceRow struct {
	Symbol    string `json:"symbol"`
	Rate      string `json:"rate"`
	USD       string `json:"usd"`
	UpdatedAt string `json:"updated_at"`
}

func runPrices(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	cfg, log := setup(cmd)

	symbols := []string{"ETH", "USDC", "USDT"}
	if len(args) > 0 {
		symbols = args
	}

	cache := newPriceCache(cfg, log)

	if !watchPrices {
		s := newSpinner("Fetching rates...")
		if !jsonOutput {
			s.Start()
		}
		cache.Refresh(context.Background())
		if !jsonOutput {
			s.Stop()
		}

		rows := priceRows(cache, symbols)
		if len(rows) == 0 {
			printError(fmt.Errorf("no rates available from the %s price source", cfg.Price.Source))
			os.Exit(1)
		}
		if jsonOutput {
			jsonData, _ := json.MarshalIndent(rows, "", "  ")
			fmt.Println(string(jsonData))
		} else {
			displayPrices(rows)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	updates := cache.Subscribe()
	defer cache.Unsubscribe(updates)
	if err := cache.Start(ctx); err != nil {
		printError(err)
		os.Exit(1)
	}
	defer cache.Stop()

	fmt.Printf("\nRefreshing every %s. Press Ctrl+C to stop.\n", cfg.Price.Interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			displayPrices(priceRows(cache, symbols))
		}
	}
}

func priceRows(cache *price.Cache, symbols []string) []priceRow {
	rows := make([]priceRow, 0, len(symbols))
	for _, symbol := range symbols {
		rate, ok := cache.Get(symbol)
		if !ok || !rate.Value.IsPositive() {
			continue
		}
		rows = append(rows, priceRow{
			Symbol:    strings.ToUpper(symbol),
			Rate:      rate.Value.String(),
			USD:       amount.FormatFiat(decimal.NewFromInt(1).Div(rate.Value)),
			UpdatedAt: rate.UpdatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Symbol < rows[j].Symbol })
	return rows
}

func displayPrices(rows []priceRow) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                       RATES")
	fmt.Println(strings.Repeat("=", 60))

	for _, r := range rows {
		fmt.Printf("\n  %-8s  1 = %s USD   %s\n", color.YellowString(r.Symbol), r.USD, color.HiBlackString(r.UpdatedAt))
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}
