package api

// API request/response types for REST endpoints and WebSocket messages.
// Decimal amounts travel as strings to avoid float rounding on the wire.

// PairInfo represents a listed trading pair's static configuration.
type PairInfo struct {
	Symbol        string `json:"symbol"`     // e.g. "ETH-USDC"
	BaseToken     string `json:"baseToken"`  // e.g. "ETH"
	QuoteToken    string `json:"quoteToken"` // e.g. "USDC"
	Status        string `json:"status"`     // "active", "paused", "delisted"
	PriceDecimals int32  `json:"priceDecimals"`
	MinBaseSize   string `json:"minBaseSize"`
	MinNotional   string `json:"minNotional"`
}

// BookLevel is a [price, size, orders] aggregate at one price.
type BookLevel struct {
	Price   string `json:"price"`
	BaseQty string `json:"baseQty"`
	Orders  int    `json:"orders"`
}

// OrderbookSnapshot represents the current book state for one pair.
type OrderbookSnapshot struct {
	Symbol    string      `json:"symbol"`
	Bids      []BookLevel `json:"bids"` // best (highest) first
	Asks      []BookLevel `json:"asks"` // best (lowest) first
	BidIDs    []uint64    `json:"bidIds"`
	AskIDs    []uint64    `json:"askIds"`
	Timestamp int64       `json:"timestamp"` // unix milliseconds
}

// OrderInfo represents an order, open or terminal.
type OrderInfo struct {
	ID              uint64 `json:"id"`
	Pair            string `json:"pair"`
	Owner           string `json:"owner"`
	Side            string `json:"side"`
	Type            string `json:"type"`
	Price           string `json:"price"`
	AmountOffered   string `json:"amountOffered"`
	AmountRequested string `json:"amountRequested"`
	FilledBase      string `json:"filledBase"`
	FilledQuote     string `json:"filledQuote"`
	RemainingBase   string `json:"remainingBase"`
	Status          string `json:"status"`
	CreatedAt       int64  `json:"createdAt"`
}

// TradeInfo represents one fill.
type TradeInfo struct {
	Pair     string `json:"pair"`
	MakerID  uint64 `json:"makerId"`
	TakerID  uint64 `json:"takerId"`
	Price    string `json:"price"`
	BaseQty  string `json:"baseQty"`
	QuoteQty string `json:"quoteQty"`
	Sequence uint64 `json:"sequence"`
}

// PlaceOrderRequest is the POST /orders body.
type PlaceOrderRequest struct {
	Pair            string `json:"pair"`
	Owner           string `json:"owner"` // 0x address
	Side            string `json:"side"`  // "buy" | "sell"
	Type            string `json:"type"`  // "LIMIT" (default) | "IOC" | "FOK"
	AmountOffered   string `json:"amountOffered"`
	AmountRequested string `json:"amountRequested"`
}

// PlaceOrderResponse returns the allocated order id and resulting state.
type PlaceOrderResponse struct {
	OrderID uint64    `json:"orderId"`
	Order   OrderInfo `json:"order"`
}

// CancelOrderRequest is the POST /orders/cancel body.
type CancelOrderRequest struct {
	OrderID uint64 `json:"orderId"`
	Owner   string `json:"owner"`
}

// QuoteResponse prices a hypothetical taker against the book.
type QuoteResponse struct {
	Pair     string `json:"pair"`
	Side     string `json:"side"`
	BaseQty  string `json:"baseQty"`
	QuoteQty string `json:"quoteQty"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WSSubscribeRequest is the inbound subscription control message.
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" | "unsubscribe"
	Channels []string `json:"channels"`
}
