package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ca-send/pkg/intent"
)

var (
	watchIntent bool
	stepDone    bool
)

var intentCmd = &cobra.Command{
	Use:   "intent <intent.json>",
	Short: "Review a funding intent and allow or deny it",
	Long: `Show which source chains fund a transfer, the fee breakdown and the USD
equivalents, then allow or deny it.

With --watch the file is reloaded whenever it changes and the USD figures are
refreshed on the price interval. Confirming is disabled while the intent is
being reloaded.

Examples:
  ca-send intent ./intent.json
  ca-send intent ./intent.json --watch
  ca-send intent steps INTENT_DEPOSITS_CONFIRMED`,
	Args: cobra.ExactArgs(1),
	Run:  runIntent,
}

var intentStepsCmd = &cobra.Command{
	Use:   "steps <status>",
	Short: "Show the progress of an intent at a given step",
	Args:  cobra.ExactArgs(1),
	Run:   runIntentSteps,
}

func init() {
	rootCmd.AddCommand(intentCmd)
	intentCmd.AddCommand(intentStepsCmd)

	intentCmd.Flags().BoolVarP(&watchIntent, "watch", "w", false, "Reload the intent and refresh prices until a decision is made")
	intentCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Allow the intent without prompting")
	intentStepsCmd.Flags().BoolVar(&stepDone, "done", false, "Mark the given step as completed")
}

type decision struct {
	Allowed bool `json:"allowed"`
}

func runIntent(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	cfg, log := setup(cmd)

	// The first decision wins.
	decided := make(chan bool, 1)
	decide := func(allowed bool) {
		select {
		case decided <- allowed:
		default:
		}
	}
	actions := intent.Actions{
		Allow: func() { decide(true) },
		Deny:  func() { decide(false) },
	}

	cache := newPriceCache(cfg, log)

	if !watchIntent {
		fi, err := intent.Load(args[0])
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		cache.Refresh(context.Background())

		view, err := intent.Derive(fi, cache, false)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		view.Actions = actions

		if jsonOutput {
			jsonData, _ := json.MarshalIndent(fi, "", "  ")
			fmt.Println(string(jsonData))
		} else {
			displayIntent(view)
		}

		if !shouldPrompt(noConfirm || cfg.AutoConfirm, jsonOutput) || confirm("Allow this intent?") {
			view.Confirm()
		} else {
			view.Cancel()
		}
		reportDecision(<-decided, jsonOutput)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	resolver, err := intent.NewFileResolver(args[0], log)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if err := resolver.Start(ctx); err != nil {
		printError(err)
		os.Exit(1)
	}
	if err := cache.Start(ctx); err != nil {
		printError(err)
		os.Exit(1)
	}
	defer cache.Stop()

	views := make(chan *intent.View)
	watcher := intent.NewWatcher(resolver, cache, actions, log)
	go func() {
		if err := watcher.Run(ctx, views); err != nil && !errors.Is(err, context.Canceled) {
			log.Warnw("intent watcher stopped", "err", err)
			stop()
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(strings.ToLower(scanner.Text()))
		}
	}()

	var current *intent.View
	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nNo decision made.")
			return
		case view := <-views:
			current = view
			if !jsonOutput {
				displayIntent(view)
				fmt.Print("Allow this intent? (y/n): ")
			}
		case line := <-lines:
			if current == nil {
				continue
			}
			switch line {
			case "y", "yes":
				if !current.Confirm() {
					color.Yellow("Intent is refreshing, try again in a moment.")
				}
			case "n", "no":
				current.Cancel()
			}
		case allowed := <-decided:
			reportDecision(allowed, jsonOutput)
			return
		}
	}
}

func reportDecision(allowed bool, jsonOutput bool) {
	if jsonOutput {
		jsonData, _ := json.MarshalIndent(decision{Allowed: allowed}, "", "  ")
		fmt.Println(string(jsonData))
		return
	}
	if allowed {
		printSuccess(color.GreenString("✓ Intent allowed"))
	} else {
		printSuccess(color.YellowString("Intent denied."))
	}
}

func displayIntent(v *intent.View) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                    FUNDING INTENT")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  Destination:       %s\n", color.CyanString(v.Destination.ChainName))

	displayLine(v.NetSpend)
	for _, row := range v.Sources {
		fmt.Printf("      %-16s %s\n", row.ChainName, row.Line.AmountText())
	}

	displayLine(v.TotalFees)
	for _, fee := range v.Fees {
		fmt.Printf("      %-16s %s\n", fee.Label+":", fee.AmountText())
	}

	displayLine(v.Total)

	for _, w := range v.Warnings {
		color.Red("\n  ! %s", w.Message)
	}
	if v.Refreshing {
		color.Yellow("\n  Refreshing...")
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func displayLine(l intent.Line) {
	fmt.Printf("\n  %-18s %s", l.Label+":", color.YellowString(l.AmountText()))
	if fiat := l.FiatText(); fiat != "" {
		fmt.Printf("  %s", color.HiBlackString(fiat))
	}
	fmt.Println()
}

func runIntentSteps(cmd *cobra.Command, args []string) {
	status := strings.ToUpper(args[0])

	reached := false
	for _, step := range intent.Steps {
		switch {
		case step == status:
			reached = true
			if stepDone {
				color.Green("  ✓ %s", intent.StepText(step, true))
			} else {
				color.Yellow("  … %s", intent.StepText(step, false))
			}
		case !reached:
			color.Green("  ✓ %s", intent.StepText(step, true))
		default:
			color.HiBlack("    %s", intent.StepText(step, false))
		}
	}

	if !reached {
		color.Red("  %s", intent.StepText(status, false))
		os.Exit(1)
	}
}
