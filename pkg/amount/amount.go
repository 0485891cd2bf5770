package amount

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when an amount is not a non-negative decimal
var ErrInvalidAmount = errors.New("invalid amount")

// ReadablePlaces is how many fractional digits Readable keeps
const ReadablePlaces = 6

// plain decimal notation only: no sign, exponent or hex
var decimalPattern = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)$`)

// Parse reads a human decimal string into an arbitrary precision decimal.
func Parse(human string) (decimal.Decimal, error) {
	human = strings.TrimSpace(human)
	if !decimalPattern.MatchString(human) {
		return decimal.Decimal{}, fmt.Errorf("%w: '%s'", ErrInvalidAmount, human)
	}

	d, err := decimal.NewFromString(strings.TrimSuffix(human, "."))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: '%s': %v", ErrInvalidAmount, human, err)
	}

	return d, nil
}

// ToBaseUnits converts a human decimal amount into integer base units.
// Residue below one base unit is dropped (floor), matching on-chain integer
// amounts.
func ToBaseUnits(human string, decimals int32) (*big.Int, error) {
	if decimals < 0 {
		return nil, fmt.Errorf("negative decimals %d", decimals)
	}

	d, err := Parse(human)
	if err != nil {
		return nil, err
	}

	return d.Shift(decimals).Floor().BigInt(), nil
}

// FromBaseUnits is the inverse of ToBaseUnits for display.
func FromBaseUnits(units *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(units, -decimals)
}

// Readable shortens a decimal string for display, keeping at most
// ReadablePlaces fractional digits. Values that do not parse are returned as is.
func Readable(s string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return s
	}
	return d.Truncate(ReadablePlaces).String()
}

// FormatFiat renders a fiat value with two fractional digits
func FormatFiat(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Places returns the number of fractional digits written in s.
func Places(s string) int32 {
	s = strings.TrimSpace(s)
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return 0
	}
	return int32(len(s) - i - 1)
}
