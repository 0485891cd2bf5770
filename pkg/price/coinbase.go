package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Http performs a request and returns the body
type Http interface {
	Get(req *http.Request) ([]byte, error)
}

// DefaultTimeout bounds a request made by the client NewHttp creates
const DefaultTimeout = 30 * time.Second

type DefaultHttp struct {
	client *http.Client
}

func NewHttp(client *http.Client) Http {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &DefaultHttp{client: client}
}

func (d *DefaultHttp) Get(req *http.Request) ([]byte, error) {
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("price feed returned status code %d", resp.StatusCode)
	}

	return buf, nil
}

// CoinbaseFeed reads the USD exchange-rate table, where each rate is the
// amount of a currency one USD buys.
type CoinbaseFeed struct {
	url         string
	networkHttp Http
}

func NewCoinbaseFeed(networkHttp Http, url string) *CoinbaseFeed {
	return &CoinbaseFeed{
		url:         url,
		networkHttp: networkHttp,
	}
}

func (p *CoinbaseFeed) FetchRates(ctx context.Context) (map[string]decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, err
	}

	type Response struct {
		Data struct {
			Currency string            `json:"currency"`
			Rates    map[string]string `json:"rates"`
		} `json:"data"`
	}

	data, err := p.networkHttp.Get(req)
	if err != nil {
		return nil, err
	}

	response := &Response{}
	if err := json.Unmarshal(data, response); err != nil {
		return nil, fmt.Errorf("failed to decode exchange rates: %w", err)
	}

	rates := make(map[string]decimal.Decimal, len(response.Data.Rates))
	for symbol, raw := range response.Data.Rates {
		rate, err := decimal.NewFromString(raw)
		if err != nil || !rate.IsPositive() {
			continue
		}
		rates[symbol] = rate
	}

	if len(rates) == 0 {
		return nil, fmt.Errorf("exchange rate response has no usable rates")
	}

	return rates, nil
}
