package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// GetProducts fetches every tradable product.
func (c *Client) GetProducts(ctx context.Context) ([]Product, error) {
	var resp []Product
	if err := c.get(ctx, "/products", nil, &resp); err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	return resp, nil
}

// GetProduct fetches a single product by id.
func (c *Client) GetProduct(ctx context.Context, productID string) (*Product, error) {
	var resp Product
	if err := c.get(ctx, "/products/"+url.PathEscape(productID), nil, &resp); err != nil {
		return nil, fmt.Errorf("get product %s: %w", productID, err)
	}
	return &resp, nil
}

// GetBook fetches the order book for a product. Level 1 is the best bid and
// ask, level 2 the top 50 aggregated levels.
func (c *Client) GetBook(ctx context.Context, productID string, level int) (*BookResponse, error) {
	query := url.Values{}
	if level > 0 {
		query.Set("level", strconv.Itoa(level))
	}

	var resp BookResponse
	if err := c.get(ctx, "/products/"+url.PathEscape(productID)+"/book", query, &resp); err != nil {
		return nil, fmt.Errorf("get book %s: %w", productID, err)
	}
	return &resp, nil
}

// MissingProducts returns the ids in want that are not listed by the venue
// or not online.
func (c *Client) MissingProducts(ctx context.Context, want []string) ([]string, error) {
	products, err := c.GetProducts(ctx)
	if err != nil {
		return nil, err
	}

	online := make(map[string]bool, len(products))
	for _, p := range products {
		online[p.ID] = p.Status == "online" && !p.TradingDisabled
	}

	var missing []string
	for _, id := range want {
		if !online[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}
