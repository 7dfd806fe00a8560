// Package binance implements the authenticated Binance spot REST client
// used in live trading mode.
package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"trade-assistant/pkg/exchanges/common"
)

const (
	defaultBaseURL = "https://api.binance.com"
	testnetBaseURL = "https://testnet.binance.vision"
)

// Config holds Binance credentials and routing options.
type Config struct {
	APIKey     string
	APISecret  string
	BaseURL    string // alternate API base for sandbox routing; overrides Testnet
	Testnet    bool
	RecvWindow int64 // ms
}

// Client is a Binance spot trading client. Construction performs no
// network I/O; errors surface at submission time.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New builds a client bound to the given credentials.
func New(cfg Config) *Client {
	base := defaultBaseURL
	if cfg.Testnet {
		base = testnetBaseURL
	}
	if cfg.BaseURL != "" {
		base = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.RecvWindow == 0 {
		cfg.RecvWindow = 5000
	}
	return &Client{
		cfg:        cfg,
		baseURL:    base,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		// Spot allows 1200 request weight per minute; stay at ~10 req/s.
		limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
}

// SubmitOrder places a single-leg order (MARKET, LIMIT, STOP_LOSS_LIMIT,
// TAKE_PROFIT_LIMIT).
func (c *Client) SubmitOrder(ctx context.Context, req common.OrderRequest) (common.OrderResult, error) {
	if err := c.requireKeys(); err != nil {
		return common.OrderResult{}, err
	}

	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", string(req.Side))
	params.Set("type", string(req.Type))
	params.Set("quantity", formatFloat(req.Qty))

	if req.Type != common.OrderTypeMarket {
		params.Set("price", formatFloat(req.Price))
		tif := req.TimeInForce
		if tif == "" {
			tif = common.TIFGTC
		}
		params.Set("timeInForce", string(tif))
	}
	if req.Type == common.OrderTypeStopLossLimit || req.Type == common.OrderTypeTakeProfitLimit {
		params.Set("stopPrice", formatFloat(req.StopPrice))
	}
	if req.ClientID != "" {
		params.Set("newClientOrderId", req.ClientID)
	}

	body, err := c.doSigned(ctx, http.MethodPost, "/api/v3/order", params)
	if err != nil {
		return common.OrderResult{}, err
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return common.OrderResult{}, fmt.Errorf("decode order response: %w", err)
	}
	return resp.toResult(), nil
}

// SubmitOCO places a one-cancels-the-other pair: limit leg + stop-limit leg.
func (c *Client) SubmitOCO(ctx context.Context, req common.OCORequest) (common.OrderResult, error) {
	if err := c.requireKeys(); err != nil {
		return common.OrderResult{}, err
	}

	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", string(req.Side))
	params.Set("quantity", formatFloat(req.Qty))
	params.Set("price", formatFloat(req.Price))
	params.Set("stopPrice", formatFloat(req.StopPrice))
	params.Set("stopLimitPrice", formatFloat(req.StopLimitPrice))
	params.Set("stopLimitTimeInForce", string(common.TIFGTC))
	if req.ClientID != "" {
		params.Set("listClientOrderId", req.ClientID)
	}

	body, err := c.doSigned(ctx, http.MethodPost, "/api/v3/order/oco", params)
	if err != nil {
		return common.OrderResult{}, err
	}

	var resp ocoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return common.OrderResult{}, fmt.Errorf("decode oco response: %w", err)
	}
	return resp.toResult(), nil
}

// CancelOrder cancels an order by exchange id.
func (c *Client) CancelOrder(ctx context.Context, symbol, exchangeOrderID string) error {
	if err := c.requireKeys(); err != nil {
		return err
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	if exchangeOrderID != "" {
		params.Set("orderId", exchangeOrderID)
	}
	_, err := c.doSigned(ctx, http.MethodDelete, "/api/v3/order", params)
	return err
}

// SymbolPrice fetches the latest ticker price. The endpoint is public but
// is exposed on the authenticated client so live sessions resolve prices
// against the same API base they trade on.
func (c *Client) SymbolPrice(ctx context.Context, symbol string) (float64, error) {
	u := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", c.baseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	body, err := c.do(req)
	if err != nil {
		return 0, err
	}

	var resp struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("decode ticker: %w", err)
	}
	price, err := strconv.ParseFloat(resp.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ticker price %q: %w", resp.Price, err)
	}
	return price, nil
}

// FreeBalance returns the free amount of one asset (e.g. "USDT").
func (c *Client) FreeBalance(ctx context.Context, asset string) (float64, error) {
	if err := c.requireKeys(); err != nil {
		return 0, err
	}
	body, err := c.doSigned(ctx, http.MethodGet, "/api/v3/account", url.Values{})
	if err != nil {
		return 0, err
	}

	var info struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return 0, fmt.Errorf("decode account info: %w", err)
	}
	for _, b := range info.Balances {
		if b.Asset == asset {
			free, _ := strconv.ParseFloat(b.Free, 64)
			return free, nil
		}
	}
	return 0, nil
}

func (c *Client) requireKeys() error {
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		return errors.New("binance: API key/secret required")
	}
	return nil
}

// doSigned signs the query and performs the HTTP request.
func (c *Client) doSigned(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("recvWindow", strconv.FormatInt(c.cfg.RecvWindow, 10))
	params.Set("signature", sign(params.Encode(), c.cfg.APISecret))

	endpoint := c.baseURL + path
	encoded := params.Encode()

	var (
		req *http.Request
		err error
	)
	switch method {
	case http.MethodGet, http.MethodDelete:
		// Binance expects signed params in the query string for GET/DELETE.
		req, err = http.NewRequestWithContext(ctx, method, endpoint+"?"+encoded, nil)
	default:
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(encoded))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", c.cfg.APIKey)

	return c.do(req)
}

// do performs the request, enforcing the client-side rate limit and
// converting non-2xx responses into *common.APIError.
func (c *Client) do(req *http.Request) ([]byte, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("binance: %w", err)
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode >= 300 {
		return nil, parseAPIError(res.StatusCode, body)
	}
	return body, nil
}

// parseAPIError decodes Binance's {"code":-NNNN,"msg":"..."} error shape.
func parseAPIError(status int, body []byte) *common.APIError {
	var payload struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Msg == "" {
		return &common.APIError{HTTPStatus: status, Message: strings.TrimSpace(string(body))}
	}
	return &common.APIError{HTTPStatus: status, Code: payload.Code, Message: payload.Msg}
}

type orderResponse struct {
	Symbol        string `json:"symbol"`
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Status        string `json:"status"`
	Price         string `json:"price"`
	ExecutedQty   string `json:"executedQty"`
	TransactTime  int64  `json:"transactTime"`
}

func (r orderResponse) toResult() common.OrderResult {
	price, _ := strconv.ParseFloat(r.Price, 64)
	executed, _ := strconv.ParseFloat(r.ExecutedQty, 64)
	return common.OrderResult{
		ExchangeOrderID: strconv.FormatInt(r.OrderID, 10),
		Status:          mapStatus(r.Status),
		ClientID:        r.ClientOrderID,
		Price:           price,
		ExecutedQty:     executed,
		TransactTime:    time.UnixMilli(r.TransactTime),
	}
}

type ocoResponse struct {
	OrderListID       int64  `json:"orderListId"`
	ListClientOrderID string `json:"listClientOrderId"`
	ListOrderStatus   string `json:"listOrderStatus"`
	TransactionTime   int64  `json:"transactionTime"`
}

func (r ocoResponse) toResult() common.OrderResult {
	status := common.StatusNew
	if strings.EqualFold(r.ListOrderStatus, "REJECT") {
		status = common.StatusRejected
	}
	return common.OrderResult{
		ExchangeOrderID: strconv.FormatInt(r.OrderListID, 10),
		Status:          status,
		ClientID:        r.ListClientOrderID,
		TransactTime:    time.UnixMilli(r.TransactionTime),
	}
}

func mapStatus(s string) common.OrderStatus {
	switch strings.ToUpper(s) {
	case "NEW":
		return common.StatusNew
	case "PARTIALLY_FILLED":
		return common.StatusPartial
	case "FILLED":
		return common.StatusFilled
	case "CANCELED":
		return common.StatusCanceled
	case "REJECTED":
		return common.StatusRejected
	case "EXPIRED":
		return common.StatusExpired
	default:
		return common.StatusUnknown
	}
}

func sign(data, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
