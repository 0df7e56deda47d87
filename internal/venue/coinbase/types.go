package coinbase

// Message types
const (
	TypeSubscribe     = "subscribe"
	TypeSubscriptions = "subscriptions"
	TypeRfqMatch      = "rfq_match"
	TypeTicker        = "ticker"
	TypeHeartbeat     = "heartbeat"
	TypeError         = "error"
)

// Channels
const (
	ChannelRfqMatches = "rfq_matches"
	ChannelTicker     = "ticker"
	ChannelHeartbeat  = "heartbeat"
)

// -----------------------------------------------------------------------------
// Outbound
// -----------------------------------------------------------------------------

type subscribeMsg struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids,omitempty"`
	Channels   []string `json:"channels"`

	// Present only on authenticated subscriptions.
	Signature  string `json:"signature,omitempty"`
	Key        string `json:"key,omitempty"`
	Passphrase string `json:"passphrase,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
}

// -----------------------------------------------------------------------------
// Inbound
// -----------------------------------------------------------------------------

type messageEnvelope struct {
	Type string `json:"type"`
}

type subscriptionsWire struct {
	Channels []struct {
		Name       string   `json:"name"`
		ProductIDs []string `json:"product_ids"`
	} `json:"channels"`
}

type rfqMatchWire struct {
	MakerOrderID string `json:"maker_order_id"`
	TakerOrderID string `json:"taker_order_id"`
	Time         string `json:"time"`
	TradeID      uint64 `json:"trade_id"`
	ProductID    string `json:"product_id"`
	Size         string `json:"size"`
	Price        string `json:"price"`
	Side         string `json:"side"`
}

type tickerWire struct {
	Sequence    int64  `json:"sequence"`
	ProductID   string `json:"product_id"`
	Price       string `json:"price"`
	BestBid     string `json:"best_bid"`
	BestBidSize string `json:"best_bid_size"`
	BestAsk     string `json:"best_ask"`
	BestAskSize string `json:"best_ask_size"`
	Side        string `json:"side"`
	Time        string `json:"time"`
	TradeID     uint64 `json:"trade_id"`
	LastSize    string `json:"last_size"`
	Volume24h   string `json:"volume_24h"`
}

type heartbeatWire struct {
	Sequence    int64  `json:"sequence"`
	LastTradeID uint64 `json:"last_trade_id"`
	ProductID   string `json:"product_id"`
	Time        string `json:"time"`
}

type errorWire struct {
	Message string `json:"message"`
	Reason  string `json:"reason"`
}
