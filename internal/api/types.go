package api

// Product from GET /products and GET /products/{id}
type Product struct {
	ID              string `json:"id"`
	BaseCurrency    string `json:"base_currency"`
	QuoteCurrency   string `json:"quote_currency"`
	QuoteIncrement  string `json:"quote_increment"`
	BaseIncrement   string `json:"base_increment"`
	DisplayName     string `json:"display_name"`
	Status          string `json:"status"`
	StatusMessage   string `json:"status_message"`
	TradingDisabled bool   `json:"trading_disabled"`
	CancelOnly      bool   `json:"cancel_only"`
	PostOnly        bool   `json:"post_only"`
	LimitOnly       bool   `json:"limit_only"`
}

// BookResponse from GET /products/{id}/book
//
// Levels are ["price", "size", num_orders] at level 2.
type BookResponse struct {
	Sequence int64   `json:"sequence"`
	Bids     [][]any `json:"bids"`
	Asks     [][]any `json:"asks"`
	Time     string  `json:"time"`
}

// errorResponse is the body of a failed request.
type errorResponse struct {
	Message string `json:"message"`
}
