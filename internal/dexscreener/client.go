package dexscreener

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"TokenRadar/internal/ratelimit"

	"github.com/sony/gobreaker"
)

// Quote is the normalized lookup result for one token address.
type Quote struct {
	Address string
	Name    string
	Symbol  string
	Price   float64
	Value   float64 // fully-diluted valuation in USD
	RefURL  string
}

// Client queries the DexScreener tokens endpoint, filtered to one chain.
// All calls are paced by the governor and wrapped by a circuit breaker so
// a dead provider fails fast instead of stalling every cycle.
type Client struct {
	baseURL string
	chain   string
	client  *http.Client
	gov     *ratelimit.Governor
	breaker *gobreaker.CircuitBreaker
}

// NewClient creates a DexScreener client with optional proxy support.
func NewClient(baseURL, chain, proxyURL string, gov *ratelimit.Governor) *Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	settings := gobreaker.Settings{
		Name:     "dexscreener",
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		chain:   chain,
		client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		gov:     gov,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// pair is the subset of the DexScreener pair payload we consume.
type pair struct {
	ChainID   string  `json:"chainId"`
	URL       string  `json:"url"`
	PriceUSD  string  `json:"priceUsd"`
	FDV       float64 `json:"fdv"`
	BaseToken struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
}

type tokensResponse struct {
	Pairs []pair `json:"pairs"`
}

func (c *Client) fetchPairs(ctx context.Context, addresses []string) ([]pair, error) {
	if c.gov != nil {
		if err := c.gov.WaitGateway(ctx); err != nil {
			return nil, err
		}
	}

	u := fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, strings.Join(addresses, ","))

	result, err := c.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("dexscreener fetch: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("dexscreener read body: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("dexscreener: status %d, body: %s", resp.StatusCode, string(body))
		}

		var decoded tokensResponse
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil, fmt.Errorf("dexscreener decode: %w", err)
		}
		return decoded.Pairs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]pair), nil
}

func (c *Client) quoteFromPair(p pair) Quote {
	price, _ := strconv.ParseFloat(p.PriceUSD, 64)
	return Quote{
		Address: p.BaseToken.Address,
		Name:    p.BaseToken.Name,
		Symbol:  p.BaseToken.Symbol,
		Price:   price,
		Value:   p.FDV,
		RefURL:  p.URL,
	}
}

// BatchLookup resolves quotes for up to the provider batch limit of
// addresses at once. Addresses with no pair on the target chain are simply
// absent from the result map.
func (c *Client) BatchLookup(ctx context.Context, addresses []string) (map[string]Quote, error) {
	if len(addresses) == 0 {
		return map[string]Quote{}, nil
	}
	pairs, err := c.fetchPairs(ctx, addresses)
	if err != nil {
		return nil, err
	}

	quotes := make(map[string]Quote, len(addresses))
	for _, p := range pairs {
		if p.ChainID != c.chain {
			continue
		}
		// First pair per address wins; DexScreener orders by liquidity.
		if _, seen := quotes[p.BaseToken.Address]; seen {
			continue
		}
		quotes[p.BaseToken.Address] = c.quoteFromPair(p)
	}
	return quotes, nil
}

// SingleLookup resolves one address, returning nil if no pair exists on the
// target chain.
func (c *Client) SingleLookup(ctx context.Context, address string) (*Quote, error) {
	quotes, err := c.BatchLookup(ctx, []string{address})
	if err != nil {
		return nil, err
	}
	q, ok := quotes[address]
	if !ok {
		return nil, nil
	}
	return &q, nil
}
