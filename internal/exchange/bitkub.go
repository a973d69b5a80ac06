package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const bitkubBaseURL = "https://api.bitkub.com"

// BitkubClient talks to the exchange the bot actually trades on. Public
// endpoints (ticker, server time) work without credentials; the signed v3
// endpoints (orders, wallet) need an API key pair.
type BitkubClient struct {
	apiKey    string
	apiSecret string
	baseURL   string
	hc        *http.Client
	log       zerolog.Logger
}

func NewBitkubClient(apiKey, apiSecret string, log zerolog.Logger) *BitkubClient {
	return &BitkubClient{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   bitkubBaseURL,
		hc:        &http.Client{Timeout: 10 * time.Second},
		log:       log.With().Str("component", "bitkub").Logger(),
	}
}

// Ticker is the quote the pricing engine works from.
type Ticker struct {
	Last       float64 `json:"last"`
	HighestBid float64 `json:"highestBid"`
	LowestAsk  float64 `json:"lowestAsk"`
}

// OrderResult is the exchange's acknowledgement of a placed order. Receive is
// the coin amount for bids and the quote amount for asks.
type OrderResult struct {
	ID      json.Number `json:"id"`
	Hash    string      `json:"hash"`
	Type    string      `json:"typ"`
	Amount  float64     `json:"amt"`
	Rate    float64     `json:"rat"`
	Fee     float64     `json:"fee"`
	Credit  float64     `json:"cre"`
	Receive float64     `json:"rec"`
}

type apiEnvelope struct {
	Error  int             `json:"error"`
	Result json.RawMessage `json:"result"`
}

// Ticker fetches the last trade, best bid and best ask for a symbol such as
// THB_BTC.
func (c *BitkubClient) Ticker(ctx context.Context, sym string) (Ticker, error) {
	var out map[string]Ticker
	if err := c.doPublic(ctx, "/api/market/ticker?sym="+sym, &out); err != nil {
		return Ticker{}, err
	}
	t, found := out[sym]
	if !found {
		return Ticker{}, fmt.Errorf("symbol %s missing from ticker response", sym)
	}
	return t, nil
}

// ServerTime returns the exchange clock in milliseconds since epoch.
func (c *BitkubClient) ServerTime(ctx context.Context) (time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v3/servertime", nil)
	if err != nil {
		return time.Time{}, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("fetch server time: %w", err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(string(bytes.TrimSpace(b)), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse server time %q: %w", b, err)
	}
	return time.UnixMilli(ms), nil
}

type placeOrderRequest struct {
	Symbol   string  `json:"sym"`
	Amount   float64 `json:"amt"`
	Rate     float64 `json:"rat"`
	Type     string  `json:"typ"`
	ClientID string  `json:"client_id,omitempty"`
}

// PlaceBid submits a buy order spending amountTHB of quote currency. Limit
// orders carry the rate; market orders pass rate 0 and typ "market".
func (c *BitkubClient) PlaceBid(ctx context.Context, sym string, amountTHB, rate float64, typ, clientID string) (OrderResult, error) {
	return c.placeOrder(ctx, "/api/v3/market/place-bid", placeOrderRequest{
		Symbol: sym, Amount: amountTHB, Rate: rate, Type: typ, ClientID: clientID,
	})
}

// PlaceAsk submits a sell order for amountCoin of the base asset.
func (c *BitkubClient) PlaceAsk(ctx context.Context, sym string, amountCoin, rate float64, typ, clientID string) (OrderResult, error) {
	return c.placeOrder(ctx, "/api/v3/market/place-ask", placeOrderRequest{
		Symbol: sym, Amount: amountCoin, Rate: rate, Type: typ, ClientID: clientID,
	})
}

func (c *BitkubClient) placeOrder(ctx context.Context, path string, req placeOrderRequest) (OrderResult, error) {
	var out OrderResult
	if err := c.doSecure(ctx, http.MethodPost, path, req, &out); err != nil {
		return OrderResult{}, err
	}
	c.log.Info().Str("path", path).Str("type", req.Type).
		Float64("amount", req.Amount).Float64("rate", req.Rate).
		Float64("receive", out.Receive).Msg("order accepted")
	return out, nil
}

// Balances returns the available amount per asset. Informational only: the
// bot's managed holding is tracked internally and never reconciled from the
// wallet.
func (c *BitkubClient) Balances(ctx context.Context) (map[string]float64, error) {
	var out map[string]float64
	if err := c.doSecure(ctx, http.MethodPost, "/api/v3/market/wallet", struct{}{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BitkubClient) doPublic(ctx context.Context, pathAndQuery string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathAndQuery, nil)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", pathAndQuery, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d: %s", pathAndQuery, resp.StatusCode, b)
	}
	return json.Unmarshal(b, out)
}

func (c *BitkubClient) doSecure(ctx context.Context, method, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-BTK-APIKEY", c.apiKey)
	req.Header.Set("X-BTK-TIMESTAMP", ts)
	req.Header.Set("X-BTK-SIGN", c.sign(ts, method, path, string(payload)))

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Error().Str("path", path).Int("status", resp.StatusCode).Bytes("body", b).Msg("request rejected")
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	var env apiEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	if env.Error != 0 {
		return fmt.Errorf("%s %s: api error code %d", method, path, env.Error)
	}
	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("%s %s: decode result: %w", method, path, err)
		}
	}
	return nil
}

// sign builds the v3 request signature: HMAC-SHA256 over
// timestamp + method + path + body, hex encoded.
func (c *BitkubClient) sign(ts, method, path, body string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(ts + method + path + body))
	return hex.EncodeToString(mac.Sum(nil))
}
