package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"ca-send/pkg/registry"
	"ca-send/pkg/types"
)

// <amount> <asset> to <recipient> on <chain>
var sendPattern = regexp.MustCompile(`(?i)^(\S+)\s+(\S+)\s+to\s+(\S+)\s+on\s+(.+)$`)

// ParseSendCommand parses a natural language send command
// Examples:
//   - "send 50 usdc to 0xabc... on optimism"
//   - "0.01 ETH to 0xabc... on base"
//   - "10 usdt to 0xabc... on 42161"
func ParseSendCommand(command string) (*types.TransferForm, error) {
	// Normalize the command
	command = strings.Join(strings.Fields(command), " ")

	// Remove the word "send" if present at the beginning
	if len(command) > 5 && strings.EqualFold(command[:5], "send ") {
		command = command[5:]
	}

	matches := sendPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid send command format. Expected: 'send <amount> <asset> to <address> on <chain>' (e.g., 'send 50 usdc to 0x... on optimism')")
	}

	chain, ok := registry.ChainByName(matches[4])
	if !ok {
		return nil, fmt.Errorf("unknown chain '%s'", matches[4])
	}

	return &types.TransferForm{
		Amount:    matches[1],
		Asset:     NormalizeAsset(matches[2]),
		Recipient: matches[3],
		Chain:     strconv.FormatInt(chain.ID, 10),
	}, nil
}

// ValidateTransferForm checks that a form has all required fields
func ValidateTransferForm(form *types.TransferForm) error {
	if form.Amount == "" {
		return fmt.Errorf("amount is required")
	}
	if form.Asset == "" {
		return fmt.Errorf("asset is required")
	}
	if form.Recipient == "" {
		return fmt.Errorf("recipient is required")
	}
	if form.Chain == "" {
		return fmt.Errorf("chain is required")
	}
	return nil
}

// NormalizeAsset normalizes asset symbols to the form field values
func NormalizeAsset(symbol string) string {
	symbol = strings.TrimSpace(strings.ToLower(symbol))

	// Handle common aliases
	aliases := map[string]string{
		"weth":   "eth",
		"usdc.e": "usdc",
		"usd₮":   "usdt",
	}

	if normalized, exists := aliases[symbol]; exists {
		return normalized
	}

	return symbol
}
