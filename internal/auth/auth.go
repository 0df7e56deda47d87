// Package auth provides Coinbase Exchange authentication using HMAC-SHA256
// signatures.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Header names for signed REST requests.
const (
	HeaderKey        = "CB-ACCESS-KEY"
	HeaderSign       = "CB-ACCESS-SIGN"
	HeaderTimestamp  = "CB-ACCESS-TIMESTAMP"
	HeaderPassphrase = "CB-ACCESS-PASSPHRASE"
)

// WebSocketPath is the path signed for authenticated feed subscriptions.
const WebSocketPath = "/users/self/verify"

// Credentials holds an Exchange API key.
type Credentials struct {
	Key        string // API key
	Secret     string // base64-encoded secret
	Passphrase string // passphrase chosen when the key was created
}

// LoadCredentials validates and returns credentials.
func LoadCredentials(key, secret, passphrase string) (*Credentials, error) {
	if key == "" {
		return nil, errors.New("API key is required")
	}
	if secret == "" {
		return nil, errors.New("API secret is required")
	}
	if _, err := base64.StdEncoding.DecodeString(secret); err != nil {
		return nil, fmt.Errorf("decode API secret: %w", err)
	}
	return &Credentials{Key: key, Secret: secret, Passphrase: passphrase}, nil
}

// Signature holds the fields added to a signed message.
type Signature struct {
	Key        string
	Passphrase string
	Timestamp  string
	Sign       string
}

// Sign signs timestamp + method + path + body.
func (c *Credentials) Sign(now time.Time, method, path, body string) (Signature, error) {
	ts := strconv.FormatInt(now.Unix(), 10)

	sign, err := c.generateSignature(ts + method + path + body)
	if err != nil {
		return Signature{}, err
	}

	return Signature{
		Key:        c.Key,
		Passphrase: c.Passphrase,
		Timestamp:  ts,
		Sign:       sign,
	}, nil
}

// SignRequest generates authentication headers for a REST request.
func (c *Credentials) SignRequest(now time.Time, method, path, body string) (http.Header, error) {
	sig, err := c.Sign(now, method, path, body)
	if err != nil {
		return nil, err
	}

	h := http.Header{}
	h.Set(HeaderKey, sig.Key)
	h.Set(HeaderSign, sig.Sign)
	h.Set(HeaderTimestamp, sig.Timestamp)
	h.Set(HeaderPassphrase, sig.Passphrase)
	return h, nil
}

// SignWebSocket signs a feed subscription.
func (c *Credentials) SignWebSocket(now time.Time) (Signature, error) {
	return c.Sign(now, http.MethodGet, WebSocketPath, "")
}

// generateSignature returns base64(HMAC-SHA256(base64decode(secret), message)).
func (c *Credentials) generateSignature(message string) (string, error) {
	key, err := base64.StdEncoding.DecodeString(c.Secret)
	if err != nil {
		return "", fmt.Errorf("decode secret: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))

	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
