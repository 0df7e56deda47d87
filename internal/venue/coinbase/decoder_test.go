package coinbase

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rickgao/market-recorder/internal/auth"
	"github.com/rickgao/market-recorder/internal/connection"
	"github.com/rickgao/market-recorder/internal/model"
	"github.com/rickgao/market-recorder/internal/venue"
)

const rfqMatchFrame = `{
	"type": "rfq_match",
	"maker_order_id": "ac928c66-ca53-498f-9c13-a110027a60e8",
	"taker_order_id": "132fb6ae-456b-4654-b4e0-d681ac05cea1",
	"time": "2014-11-07T08:19:27.028459Z",
	"trade_id": 30,
	"product_id": "BTC-USD",
	"size": "5.23512",
	"price": "400.23",
	"side": "sell"
}`

const tickerFrame = `{
	"type": "ticker",
	"sequence": 37475248783,
	"product_id": "ETH-USD",
	"price": "1285.22",
	"open_24h": "1310.79",
	"volume_24h": "245532.79269678",
	"best_bid": "1285.04",
	"best_bid_size": "0.46688654",
	"best_ask": "1285.27",
	"best_ask_size": "1.56637040",
	"side": "buy",
	"time": "2022-10-19T23:28:22.061769Z",
	"trade_id": 370843401,
	"last_size": "11.4396987"
}`

func newTestDecoder(t *testing.T, cfg Config) *Decoder {
	t.Helper()
	d, err := NewDecoder(cfg)
	if err != nil {
		t.Fatalf("NewDecoder failed: %v", err)
	}
	return d
}

func frameOf(s string) connection.TimestampedMessage {
	return connection.TimestampedMessage{
		Data:       []byte(s),
		ReceivedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestDecode_RfqMatch(t *testing.T) {
	d := newTestDecoder(t, DefaultConfig())

	ev, err := d.Decode(frameOf(rfqMatchFrame))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if ev.Type != venue.EventRecord || ev.Table != "rfq_match" {
		t.Fatalf("event = %v/%s, want record/rfq_match", ev.Type, ev.Table)
	}
	if ev.HasSeq() {
		t.Error("rfq_match should carry no sequence")
	}

	rec, ok := ev.Record.(model.RfqMatch)
	if !ok {
		t.Fatalf("Record type = %T, want model.RfqMatch", ev.Record)
	}

	want := model.RfqMatch{
		Channel:      "rfq_match",
		MakerOrderID: "ac928c66-ca53-498f-9c13-a110027a60e8",
		TakerOrderID: "132fb6ae-456b-4654-b4e0-d681ac05cea1",
		Time:         time.Date(2014, 11, 7, 8, 19, 27, 28459000, time.UTC),
		TradeID:      30,
		ProductID:    "BTC-USD",
		Size:         5.23512,
		Price:        400.23,
		Side:         "sell",
		ReceivedAt:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if !rec.Time.Equal(want.Time) {
		t.Errorf("Time = %v, want %v", rec.Time, want.Time)
	}
	rec.Time = want.Time
	if rec != want {
		t.Errorf("record = %+v\nwant %+v", rec, want)
	}
}

func TestDecode_Ticker(t *testing.T) {
	d := newTestDecoder(t, Config{ProductIDs: []string{"ETH-USD"}, Channels: []string{ChannelTicker}})

	ev, err := d.Decode(frameOf(tickerFrame))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if ev.Type != venue.EventRecord || ev.Table != "ticker" {
		t.Fatalf("event = %v/%s, want record/ticker", ev.Type, ev.Table)
	}
	if ev.SeqKey != "ticker:ETH-USD" || ev.Seq != 37475248783 {
		t.Errorf("sequence = %s/%d", ev.SeqKey, ev.Seq)
	}

	rec := ev.Record.(model.Ticker)
	if rec.Price != 1285.22 || rec.BestBid != 1285.04 || rec.BestAskSize != 1.5663704 {
		t.Errorf("prices = %+v", rec)
	}
	if rec.TradeID != 370843401 || rec.Side != "buy" || rec.LastSize != 11.4396987 {
		t.Errorf("trade fields = %+v", rec)
	}
}

func TestDecode_Control(t *testing.T) {
	d := newTestDecoder(t, DefaultConfig())

	tests := []struct {
		name    string
		frame   string
		want    venue.EventType
		message string
		seqKey  string
	}{
		{
			name:    "subscriptions",
			frame:   `{"type":"subscriptions","channels":[{"name":"rfq_matches","product_ids":[]},{"name":"heartbeat","product_ids":["BTC-USD"]}]}`,
			want:    venue.EventAck,
			message: "rfq_matches,heartbeat",
		},
		{
			name:   "heartbeat",
			frame:  `{"type":"heartbeat","sequence":90,"last_trade_id":20,"product_id":"BTC-USD","time":"2014-11-07T08:19:28.464459Z"}`,
			want:   venue.EventHeartbeat,
			seqKey: "heartbeat:BTC-USD",
		},
		{
			name:    "error",
			frame:   `{"type":"error","message":"Failed to subscribe","reason":"product_ids is required"}`,
			want:    venue.EventError,
			message: "Failed to subscribe: product_ids is required",
		},
		{
			name:    "unknown",
			frame:   `{"type":"status","products":[]}`,
			want:    venue.EventSkip,
			message: "status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := d.Decode(frameOf(tt.frame))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if ev.Type != tt.want {
				t.Errorf("Type = %v, want %v", ev.Type, tt.want)
			}
			if ev.Message != tt.message {
				t.Errorf("Message = %q, want %q", ev.Message, tt.message)
			}
			if ev.SeqKey != tt.seqKey {
				t.Errorf("SeqKey = %q, want %q", ev.SeqKey, tt.seqKey)
			}
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	d := newTestDecoder(t, DefaultConfig())

	frames := map[string]string{
		"not json":       `{"type":"rfq_match",`,
		"no type":        `{"product_id":"BTC-USD"}`,
		"bad price":      `{"type":"rfq_match","product_id":"BTC-USD","price":"abc","size":"1","time":"2014-11-07T08:19:27Z"}`,
		"bad time":       `{"type":"rfq_match","product_id":"BTC-USD","price":"1","size":"1","time":"yesterday"}`,
		"no product":     `{"type":"ticker","sequence":1,"price":"1"}`,
		"wrong type":     `{"type":"ticker","product_id":"BTC-USD","sequence":"one"}`,
		"binary garbage": "\x00\x01\x02",
	}

	for name, frame := range frames {
		t.Run(name, func(t *testing.T) {
			_, err := d.Decode(frameOf(frame))
			if !errors.Is(err, venue.ErrMalformed) {
				t.Errorf("Decode() error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestSubscribe(t *testing.T) {
	d := newTestDecoder(t, Config{
		ProductIDs: []string{"BTC-USD", "ETH-USD"},
		Channels:   []string{ChannelRfqMatches, ChannelTicker, ChannelHeartbeat},
	})

	frames, err := d.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("len(frames) = %d, want 1", len(frames))
	}

	var got map[string]any
	if err := json.Unmarshal(frames[0], &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["type"] != "subscribe" {
		t.Errorf("type = %v", got["type"])
	}
	if chans := got["channels"].([]any); len(chans) != 3 {
		t.Errorf("channels = %v", chans)
	}
	if _, ok := got["signature"]; ok {
		t.Error("unauthenticated subscription should not carry a signature")
	}
}

func TestSubscribe_Authenticated(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString([]byte("secret"))
	creds := &auth.Credentials{Key: "key", Secret: secret, Passphrase: "phrase"}
	now := time.Unix(1700000000, 0)

	d := newTestDecoder(t, Config{
		Channels:    []string{ChannelRfqMatches},
		Credentials: creds,
		Now:         func() time.Time { return now },
	})

	frames, err := d.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	var got subscribeMsg
	if err := json.Unmarshal(frames[0], &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want, _ := creds.SignWebSocket(now)
	if got.Signature != want.Sign || got.Key != "key" || got.Passphrase != "phrase" || got.Timestamp != "1700000000" {
		t.Errorf("auth fields = %+v", got)
	}
}

func TestNewDecoder_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"no channels", Config{}, true},
		{"unknown channel", Config{Channels: []string{"level3"}}, true},
		{"ticker without products", Config{Channels: []string{ChannelTicker}}, true},
		{"ticker with products", Config{Channels: []string{ChannelTicker}, ProductIDs: []string{"BTC-USD"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDecoder(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewDecoder() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecoder_Tables(t *testing.T) {
	d := newTestDecoder(t, Config{
		ProductIDs: []string{"BTC-USD"},
		Channels:   []string{ChannelRfqMatches, ChannelHeartbeat, ChannelTicker},
	})

	got := d.Tables()
	if len(got) != 2 || got[0] != "rfq_match" || got[1] != "ticker" {
		t.Errorf("Tables() = %v, want [rfq_match ticker]", got)
	}
}

func TestDecimals_KeepsFirstError(t *testing.T) {
	var p decimals
	if got := p.parse("price", " 400.23 "); got != 400.23 {
		t.Errorf("parse(price) = %v, want 400.23", got)
	}
	if got := p.parse("size", ""); got != 0 {
		t.Errorf("parse(size) = %v, want 0", got)
	}
	if p.err != nil {
		t.Fatalf("err = %v, want nil", p.err)
	}

	p.parse("price", "1,000")
	p.parse("size", "abc")
	if p.err == nil || !strings.Contains(p.err.Error(), "parse price") {
		t.Errorf("err = %v, want first failure on price", p.err)
	}
}
