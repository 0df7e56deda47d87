package model

import "time"

// BookDepth is the number of levels per side kept in a BookSnapshot.
const BookDepth = 5

// -----------------------------------------------------------------------------
// Stream Records
// -----------------------------------------------------------------------------

// RfqMatch is a fill of a request-for-quote between a maker and a taker.
type RfqMatch struct {
	Channel      string    `persist:"type"`
	MakerOrderID string    `persist:"maker_order_id"`
	TakerOrderID string    `persist:"taker_order_id"`
	Time         time.Time `persist:"time"`
	TradeID      uint64    `persist:"trade_id"`
	ProductID    string    `persist:"product_id"`
	Size         float64   `persist:"size"`
	Price        float64   `persist:"price"`
	Side         string    `persist:"side"`
	ReceivedAt   time.Time `persist:"received_at,timestamp,unit=us"`
}

func (RfqMatch) TableName() string { return "rfq_match" }

// Ticker is a top-of-book update emitted after every match.
type Ticker struct {
	Time        time.Time `persist:"time"`
	Sequence    int64     `persist:"sequence"`
	ProductID   string    `persist:"product_id"`
	TradeID     uint64    `persist:"trade_id"`
	Price       float64   `persist:"price"`
	LastSize    float64   `persist:"last_size"`
	Side        string    `persist:"side"`
	BestBid     float64   `persist:"best_bid"`
	BestBidSize float64   `persist:"best_bid_size"`
	BestAsk     float64   `persist:"best_ask"`
	BestAskSize float64   `persist:"best_ask_size"`
	Volume24h   float64   `persist:"volume_24h"`
	ReceivedAt  time.Time `persist:"received_at,timestamp,unit=us"`
}

func (Ticker) TableName() string { return "ticker" }

// -----------------------------------------------------------------------------
// Snapshot Records
// -----------------------------------------------------------------------------

// Level is one aggregated price level.
type Level struct {
	Price  float64 `persist:"price"`
	Size   float64 `persist:"size"`
	Orders uint32  `persist:"orders"`
}

// BookSnapshot is the top of an order book fetched over REST. Missing levels
// are zero.
type BookSnapshot struct {
	ProductID  string           `persist:"product_id"`
	Sequence   int64            `persist:"sequence"`
	Time       time.Time        `persist:"time"`
	Bids       [BookDepth]Level `persist:"bid"`
	Asks       [BookDepth]Level `persist:"ask"`
	ReceivedAt time.Time        `persist:"received_at,timestamp,unit=us"`
}

func (BookSnapshot) TableName() string { return "book_snapshot" }
