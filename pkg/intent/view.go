package intent

import (
	"fmt"

	"github.com/shopspring/decimal"

	"ca-send/pkg/amount"
)

// RateSource yields units of symbol per 1 USD. *price.Cache satisfies it.
type RateSource interface {
	Rate(symbol string) (decimal.Decimal, bool)
}

// Rates is a fixed RateSource
type Rates map[string]decimal.Decimal

func (r Rates) Rate(symbol string) (decimal.Decimal, bool) {
	v, ok := r[symbol]
	return v, ok
}

// Line is one displayed amount. Fiat is nil when no rate is cached for the
// token, in which case no fiat figure is shown at all.
type Line struct {
	Label  string
	Amount decimal.Decimal
	Text   string
	Symbol string
	Fiat   *decimal.Decimal
}

// AmountText is the readable amount followed by the token symbol
func (l Line) AmountText() string {
	return l.Text + " " + l.Symbol
}

// FiatText renders the fiat equivalent, or "" when there is none
func (l Line) FiatText() string {
	if l.Fiat == nil {
		return ""
	}
	return "~" + amount.FormatFiat(*l.Fiat) + " USD"
}

type SourceRow struct {
	ChainID   int64
	ChainName string
	ChainLogo string
	Line      Line
}

type WarningKind int

const (
	// SourcesMismatch means sourcesTotal differs from the sum of the sources
	SourcesMismatch WarningKind = iota
	// NegativeNetSpend means the fees exceed sourcesTotal
	NegativeNetSpend
)

type Warning struct {
	Kind    WarningKind
	Message string
}

// Actions are the callbacks into the external settlement flow
type Actions struct {
	Allow func()
	Deny  func()
}

// View is the display model of one intent at one price snapshot
type View struct {
	Destination ChainRef
	Symbol      string

	// NetSpend is what reaches the destination: sourcesTotal - fees.total
	NetSpend  Line
	Sources   []SourceRow
	TotalFees Line
	Fees      []Line
	Total     Line

	Refreshing     bool
	ConfirmEnabled bool
	Warnings       []Warning

	Actions Actions
}

// Derive computes the view of fi. Amounts are taken as given; inconsistencies
// are reported in Warnings and never corrected.
func Derive(fi *FundingIntent, rates RateSource, refreshing bool) (*View, error) {
	if fi == nil {
		return nil, fmt.Errorf("%w: no intent", ErrMalformedIntent)
	}
	if err := fi.Validate(); err != nil {
		return nil, err
	}

	symbol := fi.Token.Symbol
	var rate *decimal.Decimal
	if rates != nil {
		if r, ok := rates.Rate(symbol); ok && r.IsPositive() {
			rate = &r
		}
	}

	line := func(label, value string) Line {
		d, _ := amount.Parse(value)
		return Line{Label: label, Amount: d, Text: amount.Readable(value), Symbol: symbol, Fiat: fiat(d, rate)}
	}

	total, _ := amount.Parse(fi.SourcesTotal)
	feeTotal, _ := amount.Parse(fi.Fees.Total)
	net := total.Sub(feeTotal)
	places := amount.Places(fi.SourcesTotal)
	if p := amount.Places(fi.Fees.Total); p > places {
		places = p
	}

	v := &View{
		Destination: fi.Destination,
		Symbol:      symbol,
		NetSpend: Line{
			Label:  "Spend",
			Amount: net,
			Text:   net.StringFixed(places),
			Symbol: symbol,
			Fiat:   fiat(net, rate),
		},
		TotalFees: line("Total Fees", fi.Fees.Total),
		Fees: []Line{
			line("CA Gas Fees", fi.Fees.CAGas),
			line("Solver Fees", fi.Fees.Solver),
			line("Protocol Fees", fi.Fees.Protocol),
			line("Gas Supplied", fi.Fees.GasSupplied),
		},
		Total:          line("Total", fi.SourcesTotal),
		Refreshing:     refreshing,
		ConfirmEnabled: !refreshing,
	}

	sum := decimal.Zero
	v.Sources = make([]SourceRow, 0, len(fi.Sources))
	for _, s := range fi.Sources {
		row := line(s.ChainName, s.Amount)
		row.Fiat = nil
		sum = sum.Add(row.Amount)
		v.Sources = append(v.Sources, SourceRow{
			ChainID:   s.ChainID,
			ChainName: s.ChainName,
			ChainLogo: s.ChainLogo,
			Line:      row,
		})
	}

	if len(fi.Sources) > 0 && !sum.Equal(total) {
		v.Warnings = append(v.Warnings, Warning{
			Kind:    SourcesMismatch,
			Message: fmt.Sprintf("sources add up to %s %s but sourcesTotal is %s %s", sum, symbol, total, symbol),
		})
	}
	if net.IsNegative() {
		v.Warnings = append(v.Warnings, Warning{
			Kind:    NegativeNetSpend,
			Message: fmt.Sprintf("fees of %s %s exceed sourcesTotal of %s %s", feeTotal, symbol, total, symbol),
		})
	}

	return v, nil
}

func fiat(d decimal.Decimal, rate *decimal.Decimal) *decimal.Decimal {
	if rate == nil {
		return nil
	}
	f := d.Div(*rate)
	return &f
}

// Confirm signals allow unless the intent is refreshing. It reports whether
// Allow was called.
func (v *View) Confirm() bool {
	if !v.ConfirmEnabled || v.Actions.Allow == nil {
		return false
	}
	v.Actions.Allow()
	return true
}

// Cancel signals deny. It is always available.
func (v *View) Cancel() {
	if v.Actions.Deny != nil {
		v.Actions.Deny()
	}
}

// HasWarning reports whether a warning of kind was raised
func (v *View) HasWarning(kind WarningKind) bool {
	for _, w := range v.Warnings {
		if w.Kind == kind {
			return true
		}
	}
	return false
}
