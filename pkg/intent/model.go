// Package intent renders funding intents: which source chains pay for a
// destination transfer, what it costs, and what that is worth in fiat.
package intent

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"ca-send/pkg/amount"
)

var ErrMalformedIntent = errors.New("malformed intent")

// ChainRef identifies a chain as the resolver presents it
type ChainRef struct {
	ChainID   int64  `json:"chainID"`
	ChainName string `json:"chainName"`
	ChainLogo string `json:"chainLogo,omitempty"`
}

type Token struct {
	Symbol   string `json:"symbol"`
	Logo     string `json:"logo,omitempty"`
	Decimals int32  `json:"decimals"`
}

// Source is one chain contributing funds. Amount is a decimal string.
type Source struct {
	ChainID   int64  `json:"chainID"`
	ChainName string `json:"chainName"`
	ChainLogo string `json:"chainLogo,omitempty"`
	Amount    string `json:"amount"`
}

// Fees are decimal strings in the intent's token. Total is authoritative.
type Fees struct {
	CAGas       string `json:"caGas"`
	Solver      string `json:"solver"`
	Protocol    string `json:"protocol"`
	GasSupplied string `json:"gasSupplied"`
	Total       string `json:"total"`
}

// FundingIntent is produced by an external resolver and only read here.
// Sources are in the resolver's collection order.
type FundingIntent struct {
	Destination  ChainRef `json:"destination"`
	Token        Token    `json:"token"`
	SourcesTotal string   `json:"sourcesTotal"`
	Sources      []Source `json:"sources"`
	Fees         Fees     `json:"fees"`
}

// Parse decodes and checks an intent document
func Parse(data []byte) (*FundingIntent, error) {
	var fi FundingIntent
	if err := json.Unmarshal(data, &fi); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedIntent, err)
	}
	if err := fi.Validate(); err != nil {
		return nil, err
	}
	return &fi, nil
}

// Load reads an intent document from path
func Load(path string) (*FundingIntent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read intent: %w", err)
	}
	return Parse(data)
}

// Validate checks every amount is a non-negative decimal. It does not check
// that the amounts add up.
func (fi *FundingIntent) Validate() error {
	if fi.Token.Symbol == "" {
		return fmt.Errorf("%w: token symbol is required", ErrMalformedIntent)
	}

	type field struct{ name, value string }
	fields := []field{
		{"sourcesTotal", fi.SourcesTotal},
		{"fees.caGas", fi.Fees.CAGas},
		{"fees.solver", fi.Fees.Solver},
		{"fees.protocol", fi.Fees.Protocol},
		{"fees.gasSupplied", fi.Fees.GasSupplied},
		{"fees.total", fi.Fees.Total},
	}
	for i, s := range fi.Sources {
		fields = append(fields, field{fmt.Sprintf("sources[%d].amount", i), s.Amount})
	}

	// Report the first bad field in declaration order.
	for _, f := range fields {
		if _, err := amount.Parse(f.value); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrMalformedIntent, f.name, err)
		}
	}
	return nil
}
