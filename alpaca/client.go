package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/straddle/broker"
	"github.com/shopspring/decimal"
)

const (
	// PaperURL is the URL for Alpaca's paper trading environment
	PaperURL = "https://paper-api.alpaca.markets"
	// LiveURL is the URL for Alpaca's live trading environment
	LiveURL = "https://api.alpaca.markets"

	headerKeyID  = "APCA-API-KEY-ID"
	headerSecret = "APCA-API-SECRET-KEY"

	maxErrBody = 64 * 1024
)

// Client talks to the Alpaca v2 trading API. It implements broker.Broker.
type Client struct {
	baseURL    string
	keyID      string
	secretKey  string
	httpClient *http.Client
}

var _ broker.Broker = (*Client)(nil)

// NewClient creates a new Alpaca API client. An empty baseURL selects the
// paper environment.
func NewClient(baseURL, keyID, secretKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = PaperURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		keyID:     keyID,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// apiOrder is the order object returned by /v2/orders
type apiOrder struct {
	ID             string              `json:"id"`
	ClientOrderID  string              `json:"client_order_id"`
	Symbol         string              `json:"symbol"`
	Qty            decimal.NullDecimal `json:"qty"`
	Side           string              `json:"side"`
	Type           string              `json:"type"`
	TimeInForce    string              `json:"time_in_force"`
	Status         string              `json:"status"`
	FilledAvgPrice decimal.NullDecimal `json:"filled_avg_price"`
	SubmittedAt    *time.Time          `json:"submitted_at"`
}

// apiPosition is the position object returned by /v2/positions
type apiPosition struct {
	Symbol         string              `json:"symbol"`
	Qty            decimal.Decimal     `json:"qty"`
	UnrealizedPLPC decimal.NullDecimal `json:"unrealized_plpc"`
}

type orderBody struct {
	Symbol        string `json:"symbol"`
	Qty           int64  `json:"qty"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	TimeInForce   string `json:"time_in_force"`
	ClientOrderID string `json:"client_order_id,omitempty"`
}

func (o apiOrder) toOrder() broker.Order {
	out := broker.Order{
		ID:             o.ID,
		ClientOrderID:  o.ClientOrderID,
		Symbol:         o.Symbol,
		Qty:            o.Qty.Decimal,
		Side:           broker.Side(o.Side),
		Status:         o.Status,
		FilledAvgPrice: o.FilledAvgPrice,
	}
	if o.SubmittedAt != nil {
		out.SubmittedAt = o.SubmittedAt.UTC()
	}
	return out
}

// SubmitOrder places a market, good-till-cancelled order.
func (c *Client) SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.Order, error) {
	const op = "submit order"

	if req.Symbol == "" || req.Qty < 1 {
		return broker.Order{}, &broker.Error{Op: op, Kind: broker.ErrRejected,
			Err: fmt.Errorf("invalid request symbol=%q qty=%d", req.Symbol, req.Qty)}
	}

	body := orderBody{
		Symbol:        req.Symbol,
		Qty:           req.Qty,
		Side:          string(req.Side),
		Type:          broker.OrderTypeMarket,
		TimeInForce:   broker.TimeInForceGTC,
		ClientOrderID: req.ClientOrderID,
	}

	var ao apiOrder
	if err := c.do(ctx, op, http.MethodPost, "/v2/orders", nil, body, &ao); err != nil {
		return broker.Order{}, err
	}
	if ao.ID == "" {
		return broker.Order{}, &broker.Error{Op: op, Kind: broker.ErrMalformed,
			Err: errors.New("no order id returned")}
	}
	return ao.toOrder(), nil
}

// GetOrder fetches the current state of an order.
func (c *Client) GetOrder(ctx context.Context, id string) (broker.Order, error) {
	var ao apiOrder
	if err := c.do(ctx, "get order", http.MethodGet, "/v2/orders/"+url.PathEscape(id), nil, nil, &ao); err != nil {
		return broker.Order{}, err
	}
	return ao.toOrder(), nil
}

// ListPositions returns all open positions.
func (c *Client) ListPositions(ctx context.Context) ([]broker.Position, error) {
	var aps []apiPosition
	if err := c.do(ctx, "list positions", http.MethodGet, "/v2/positions", nil, nil, &aps); err != nil {
		return nil, err
	}

	out := make([]broker.Position, 0, len(aps))
	for _, p := range aps {
		pos := broker.Position{
			Symbol:         p.Symbol,
			Qty:            p.Qty,
			UnrealizedPLPC: p.UnrealizedPLPC.Decimal,
		}
		if !p.UnrealizedPLPC.Valid {
			pos.Err = &broker.Error{Op: "list positions", Kind: broker.ErrMalformed,
				Err: fmt.Errorf("position %s has no unrealized_plpc", p.Symbol)}
		}
		out = append(out, pos)
	}
	return out, nil
}

// ListOrders returns recent orders, newest first.
func (c *Client) ListOrders(ctx context.Context, f broker.OrderFilter) ([]broker.Order, error) {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}

	var aos []apiOrder
	if err := c.do(ctx, "list orders", http.MethodGet, "/v2/orders", q, nil, &aos); err != nil {
		return nil, err
	}

	out := make([]broker.Order, 0, len(aos))
	for _, o := range aos {
		out = append(out, o.toOrder())
	}
	return out, nil
}

// ClosePosition liquidates the whole position in symbol.
func (c *Client) ClosePosition(ctx context.Context, symbol string) error {
	return c.do(ctx, "close position", http.MethodDelete, "/v2/positions/"+url.PathEscape(symbol), nil, nil, nil)
}

// do sends one request. A nil out discards the response body.
func (c *Client) do(ctx context.Context, op, method, path string, q url.Values, in, out any) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return &broker.Error{Op: op, Kind: broker.ErrTransport, Err: err}
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}

	var rdr io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &broker.Error{Op: op, Kind: broker.ErrMalformed, Err: err}
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return &broker.Error{Op: op, Kind: broker.ErrTransport, Err: err}
	}
	req.Header.Set(headerKeyID, c.keyID)
	req.Header.Set(headerSecret, c.secretKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpClient := c.httpClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return &broker.Error{Op: op, Kind: broker.ErrTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return &broker.Error{
			Op:     op,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(b)),
			Kind:   broker.ClassifyStatus(resp.StatusCode),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &broker.Error{Op: op, Status: resp.StatusCode, Kind: broker.ErrMalformed,
			Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
