package api

// Wire types for the REST endpoints and WebSocket messages. Prices and
// amounts travel as decimal strings to keep the CSV round-trip exact.

// OrderInfo is a standing order at the session's current timeframe.
type OrderInfo struct {
	Timestamp string `json:"timestamp"`
	Product   string `json:"product"`
	Kind      string `json:"kind"`
	Owner     string `json:"owner"`
	Price     string `json:"price"`
	Amount    string `json:"amount"`
}

// ProductStatsInfo mirrors the console's per-product market summary.
type ProductStatsInfo struct {
	Product  string `json:"product"`
	AskCount int    `json:"askCount"`
	MaxAsk   string `json:"maxAsk,omitempty"`
	MinAsk   string `json:"minAsk,omitempty"`
}

// TradeInfo is a journaled trade.
type TradeInfo struct {
	ID         string `json:"id"`
	Seq        uint64 `json:"seq"`
	Timestamp  string `json:"timestamp"`
	Product    string `json:"product"`
	Kind       string `json:"kind"`
	Owner      string `json:"owner"`
	Price      string `json:"price"`
	Amount     string `json:"amount"`
	Annotation string `json:"annotation,omitempty"`
	RecordedAt string `json:"recordedAt"`
}

// WalletInfo maps currency to balance.
type WalletInfo struct {
	Balances map[string]string `json:"balances"`
}

// StatusInfo reports where the replay stands.
type StatusInfo struct {
	CurrentTime string   `json:"currentTime"`
	Products    []string `json:"products"`
	Timeframes  int      `json:"timeframes"`
}

// PlaceOrderRequest is the payload for POST /api/v1/orders.
type PlaceOrderRequest struct {
	Side    string `json:"side"` // "bid" or "ask"
	Product string `json:"product"`
	Price   string `json:"price"`
	Amount  string `json:"amount"`
}

// PlaceOrderResponse confirms a placed order.
type PlaceOrderResponse struct {
	Status string    `json:"status"`
	Order  OrderInfo `json:"order"`
}

// StepResponse is the result of POST /api/v1/step.
type StepResponse struct {
	From    string      `json:"from"`
	To      string      `json:"to"`
	Wrapped bool        `json:"wrapped"`
	Trades  []OrderInfo `json:"trades"`
}

// ErrorResponse is returned for all errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WSSubscribeRequest is sent by a client to manage channel subscriptions.
// Channels are "trades" and "steps".
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// TradeUpdate is broadcast on the "trades" channel for every matched trade.
type TradeUpdate struct {
	Type      string      `json:"type"` // "trade"
	Timestamp string      `json:"timestamp"`
	Trades    []OrderInfo `json:"trades"`
}

// StepUpdate is broadcast on the "steps" channel after each timeframe
// advance.
type StepUpdate struct {
	Type    string `json:"type"` // "step"
	From    string `json:"from"`
	To      string `json:"to"`
	Wrapped bool   `json:"wrapped"`
	Trades  int    `json:"trades"`
}
