package price

import (
	"context"
	"fmt"
	"strings"

	oneclick "github.com/defuse-protocol/one-click-sdk-go"
	"github.com/shopspring/decimal"
)

// OneClickFeed derives rates from the 1Click token list, which quotes each
// token's USD price. Rates are inverted to match CoinbaseFeed.
type OneClickFeed struct {
	client   *oneclick.APIClient
	jwtToken string
}

// NewOneClickFeed creates a new 1Click API backed feed
func NewOneClickFeed(jwtToken, baseURL string) *OneClickFeed {
	config := oneclick.NewConfiguration()
	if baseURL != "" {
		config.Servers = oneclick.ServerConfigurations{{URL: baseURL}}
	}

	return &OneClickFeed{
		client:   oneclick.NewAPIClient(config),
		jwtToken: jwtToken,
	}
}

type tokenPrice struct {
	symbol string
	usd    decimal.Decimal
}

func (f *OneClickFeed) FetchRates(ctx context.Context) (map[string]decimal.Decimal, error) {
	ctx = context.WithValue(ctx, oneclick.ContextAccessToken, f.jwtToken)

	resp, httpResp, err := f.client.OneClickAPI.GetTokens(ctx).Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get tokens: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != 200 {
		return nil, fmt.Errorf("API returned status code %d", httpResp.StatusCode)
	}

	prices := make([]tokenPrice, 0, len(resp))
	for _, token := range resp {
		prices = append(prices, tokenPrice{
			symbol: token.GetSymbol(),
			usd:    usdPrice(token.GetPrice()),
		})
	}

	rates := ratesFromPrices(prices)
	if len(rates) == 0 {
		return nil, fmt.Errorf("token list has no priced tokens")
	}
	return rates, nil
}

// usdPrice keeps the shortest float32 representation so 0.1 stays 0.1
func usdPrice(p float32) decimal.Decimal {
	return decimal.NewFromFloat32(p)
}

// ratesFromPrices inverts USD prices. The same symbol is listed once per
// chain; the first positive price wins.
func ratesFromPrices(prices []tokenPrice) map[string]decimal.Decimal {
	rates := make(map[string]decimal.Decimal)
	for _, p := range prices {
		symbol := strings.ToUpper(p.symbol)
		if symbol == "" || !p.usd.IsPositive() {
			continue
		}
		if _, seen := rates[symbol]; seen {
			continue
		}
		rates[symbol] = decimal.NewFromInt(1).Div(p.usd)
	}
	return rates
}
