package broker

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Broker is the gateway to the brokerage order and position endpoints.
// Implementations map requests and responses only; they never retry.
type Broker interface {
	SubmitOrder(ctx context.Context, req OrderRequest) (Order, error)
	GetOrder(ctx context.Context, id string) (Order, error)
	ListPositions(ctx context.Context) ([]Position, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]Order, error)
	ClosePosition(ctx context.Context, symbol string) error
}

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// SideFromPlay derives the order side from a free-text play such as
// "BUY straddle". Anything that does not mention BUY is a sell.
func SideFromPlay(play string) Side {
	if strings.Contains(strings.ToUpper(play), "BUY") {
		return Buy
	}
	return Sell
}

const (
	OrderTypeMarket = "market"
	TimeInForceGTC  = "gtc"
)

// OrderRequest is a market, good-till-cancelled order.
type OrderRequest struct {
	Symbol        string
	Qty           int64
	Side          Side
	ClientOrderID string // optional, for log correlation only
}

// Order statuses reported by the broker that this system cares about.
const (
	StatusNew             = "new"
	StatusAccepted        = "accepted"
	StatusPendingNew      = "pending_new"
	StatusPartiallyFilled = "partially_filled"
	StatusFilled          = "filled"
	StatusCanceled        = "canceled"
	StatusExpired         = "expired"
	StatusRejected        = "rejected"
)

// Order is the broker's view of a submitted order.
type Order struct {
	ID            string
	ClientOrderID string
	Symbol        string
	Qty           decimal.Decimal
	Side          Side
	Status        string

	// FilledAvgPrice is only valid once the broker reports a fill.
	FilledAvgPrice decimal.NullDecimal
	SubmittedAt    time.Time
}

// FillPrice returns the average fill price and whether one is present.
func (o Order) FillPrice() (decimal.Decimal, bool) {
	if !o.FilledAvgPrice.Valid {
		return decimal.Zero, false
	}
	return o.FilledAvgPrice.Decimal, true
}

// Position is an open position as reported by the broker.
type Position struct {
	Symbol string
	Qty    decimal.Decimal

	// UnrealizedPLPC is the unrealized P/L as a fraction of cost basis,
	// e.g. 0.15 for +15%.
	UnrealizedPLPC decimal.Decimal

	// Err is set when the broker's data for this position is unusable.
	// The rest of the listing is still valid.
	Err error
}

// OrderFilter narrows ListOrders.
type OrderFilter struct {
	Status string // open, closed, all
	Limit  int
}

// RecentOrders is the lookup used to reconstruct holding periods.
var RecentOrders = OrderFilter{Status: "all", Limit: 100}
