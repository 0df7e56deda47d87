// Package api provides the Coinbase Exchange REST client.
//
// REST endpoints:
//   - Production: https://api.exchange.coinbase.com
//   - Sandbox: https://api-public.sandbox.exchange.coinbase.com
//
// Only public market data endpoints are used: /products and
// /products/{id}/book. Requests are signed when credentials are configured.
package api
