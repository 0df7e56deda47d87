// Package coinbase decodes the Coinbase Exchange market data feed.
package coinbase

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rickgao/market-recorder/internal/api"
	"github.com/rickgao/market-recorder/internal/auth"
	"github.com/rickgao/market-recorder/internal/connection"
	"github.com/rickgao/market-recorder/internal/model"
	"github.com/rickgao/market-recorder/internal/venue"
)

// Name is the venue name used in paths and file metadata.
const Name = "coinbase"

// Feed endpoints
const (
	DefaultURL     = "wss://ws-feed.exchange.coinbase.com"
	DefaultRESTURL = "https://api.exchange.coinbase.com"
)

// Config selects what the decoder subscribes to.
type Config struct {
	ProductIDs  []string
	Channels    []string
	Credentials *auth.Credentials // optional

	// Now stamps authenticated subscriptions. Defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig subscribes to RFQ matches on every product.
func DefaultConfig() Config {
	return Config{
		Channels: []string{ChannelRfqMatches},
	}
}

// Decoder implements venue.Decoder for Coinbase Exchange.
type Decoder struct {
	cfg Config
}

var _ venue.Decoder = (*Decoder)(nil)

// NewDecoder validates cfg and returns a decoder.
func NewDecoder(cfg Config) (*Decoder, error) {
	if len(cfg.Channels) == 0 {
		return nil, errors.New("at least one channel is required")
	}
	for _, ch := range cfg.Channels {
		switch ch {
		case ChannelRfqMatches:
		case ChannelTicker, ChannelHeartbeat:
			if len(cfg.ProductIDs) == 0 {
				return nil, fmt.Errorf("channel %s requires product ids", ch)
			}
		default:
			return nil, fmt.Errorf("unknown channel %q", ch)
		}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Decoder{cfg: cfg}, nil
}

// Name returns the venue name.
func (d *Decoder) Name() string { return Name }

// Tables returns the tables fed by the subscribed channels.
func (d *Decoder) Tables() []string {
	var tables []string
	for _, ch := range d.cfg.Channels {
		switch ch {
		case ChannelRfqMatches:
			tables = append(tables, model.RfqMatch{}.TableName())
		case ChannelTicker:
			tables = append(tables, model.Ticker{}.TableName())
		}
	}
	return tables
}

// Subscribe builds the subscribe frame, signed when credentials are set.
func (d *Decoder) Subscribe() ([][]byte, error) {
	msg := subscribeMsg{
		Type:       TypeSubscribe,
		ProductIDs: d.cfg.ProductIDs,
		Channels:   d.cfg.Channels,
	}

	if d.cfg.Credentials != nil {
		sig, err := d.cfg.Credentials.SignWebSocket(d.cfg.Now())
		if err != nil {
			return nil, fmt.Errorf("sign subscription: %w", err)
		}
		msg.Signature = sig.Sign
		msg.Key = sig.Key
		msg.Passphrase = sig.Passphrase
		msg.Timestamp = sig.Timestamp
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal subscription: %w", err)
	}
	return [][]byte{data}, nil
}

// Decode parses one feed frame.
func (d *Decoder) Decode(msg connection.TimestampedMessage) (venue.Event, error) {
	msgType, err := extractType(msg.Data)
	if err != nil {
		return venue.Event{}, malformed("envelope", err)
	}

	switch msgType {
	case TypeSubscriptions:
		var wire subscriptionsWire
		if err := json.Unmarshal(msg.Data, &wire); err != nil {
			return venue.Event{}, malformed(msgType, err)
		}
		names := make([]string, 0, len(wire.Channels))
		for _, ch := range wire.Channels {
			names = append(names, ch.Name)
		}
		return venue.Event{Type: venue.EventAck, Message: strings.Join(names, ",")}, nil

	case TypeRfqMatch:
		rec, err := parseRfqMatch(msg)
		if err != nil {
			return venue.Event{}, malformed(msgType, err)
		}
		return venue.Event{
			Type:   venue.EventRecord,
			Table:  rec.TableName(),
			Record: rec,
		}, nil

	case TypeTicker:
		rec, err := parseTicker(msg)
		if err != nil {
			return venue.Event{}, malformed(msgType, err)
		}
		return venue.Event{
			Type:   venue.EventRecord,
			Table:  rec.TableName(),
			Record: rec,
			SeqKey: TypeTicker + ":" + rec.ProductID,
			Seq:    rec.Sequence,
		}, nil

	case TypeHeartbeat:
		var wire heartbeatWire
		if err := json.Unmarshal(msg.Data, &wire); err != nil {
			return venue.Event{}, malformed(msgType, err)
		}
		return venue.Event{
			Type:   venue.EventHeartbeat,
			SeqKey: TypeHeartbeat + ":" + wire.ProductID,
			Seq:    wire.Sequence,
		}, nil

	case TypeError:
		var wire errorWire
		if err := json.Unmarshal(msg.Data, &wire); err != nil {
			return venue.Event{}, malformed(msgType, err)
		}
		text := wire.Message
		if wire.Reason != "" {
			text += ": " + wire.Reason
		}
		return venue.Event{Type: venue.EventError, Message: text}, nil

	default:
		return venue.Event{Type: venue.EventSkip, Message: msgType}, nil
	}
}

// extractType extracts the message type without decoding the body.
func extractType(data []byte) (string, error) {
	var envelope messageEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return "", err
	}
	if envelope.Type == "" {
		return "", errors.New("missing type")
	}
	return envelope.Type, nil
}

func malformed(what string, err error) error {
	return fmt.Errorf("%w: %s: %v", venue.ErrMalformed, what, err)
}

func parseRfqMatch(msg connection.TimestampedMessage) (model.RfqMatch, error) {
	var wire rfqMatchWire
	if err := json.Unmarshal(msg.Data, &wire); err != nil {
		return model.RfqMatch{}, err
	}
	if wire.ProductID == "" {
		return model.RfqMatch{}, errors.New("missing product_id")
	}

	ts, err := parseTime(wire.Time)
	if err != nil {
		return model.RfqMatch{}, err
	}

	var p decimals
	rec := model.RfqMatch{
		Channel:      TypeRfqMatch,
		MakerOrderID: wire.MakerOrderID,
		TakerOrderID: wire.TakerOrderID,
		Time:         ts,
		TradeID:      wire.TradeID,
		ProductID:    wire.ProductID,
		Size:         p.parse("size", wire.Size),
		Price:        p.parse("price", wire.Price),
		Side:         wire.Side,
		ReceivedAt:   msg.ReceivedAt,
	}
	return rec, p.err
}

func parseTicker(msg connection.TimestampedMessage) (model.Ticker, error) {
	var wire tickerWire
	if err := json.Unmarshal(msg.Data, &wire); err != nil {
		return model.Ticker{}, err
	}
	if wire.ProductID == "" {
		return model.Ticker{}, errors.New("missing product_id")
	}

	ts, err := parseTime(wire.Time)
	if err != nil {
		return model.Ticker{}, err
	}

	var p decimals
	rec := model.Ticker{
		Time:        ts,
		Sequence:    wire.Sequence,
		ProductID:   wire.ProductID,
		TradeID:     wire.TradeID,
		Price:       p.parse("price", wire.Price),
		LastSize:    p.parse("last_size", wire.LastSize),
		Side:        wire.Side,
		BestBid:     p.parse("best_bid", wire.BestBid),
		BestBidSize: p.parse("best_bid_size", wire.BestBidSize),
		BestAsk:     p.parse("best_ask", wire.BestAsk),
		BestAskSize: p.parse("best_ask_size", wire.BestAskSize),
		Volume24h:   p.parse("volume_24h", wire.Volume24h),
		ReceivedAt:  msg.ReceivedAt,
	}
	return rec, p.err
}

// parseTime parses an RFC 3339 timestamp. An empty string is the zero time.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}

// decimals parses decimal strings and keeps the first error.
type decimals struct {
	err error
}

func (p *decimals) parse(field, s string) float64 {
	v, err := api.ParseDecimal(s)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("parse %s: %w", field, err)
	}
	return v
}

