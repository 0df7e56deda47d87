package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
	"time"
)

var testSecret = base64.StdEncoding.EncodeToString([]byte("test-secret-bytes"))

func TestCredentials_Sign(t *testing.T) {
	creds := &Credentials{Key: "test-key", Secret: testSecret, Passphrase: "pass"}
	now := time.Unix(1700000000, 0)

	sig, err := creds.Sign(now, "GET", "/products", "")
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	if sig.Timestamp != "1700000000" {
		t.Errorf("Timestamp = %q, want %q", sig.Timestamp, "1700000000")
	}
	if sig.Key != "test-key" || sig.Passphrase != "pass" {
		t.Errorf("Signature identity = %+v", sig)
	}

	mac := hmac.New(sha256.New, []byte("test-secret-bytes"))
	mac.Write([]byte("1700000000GET/products"))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if sig.Sign != want {
		t.Errorf("Sign = %q, want %q", sig.Sign, want)
	}
}

func TestCredentials_SignRequest(t *testing.T) {
	creds := &Credentials{Key: "k", Secret: testSecret, Passphrase: "p"}

	h, err := creds.SignRequest(time.Now(), "GET", "/products/BTC-USD/book", "")
	if err != nil {
		t.Fatalf("SignRequest failed: %v", err)
	}

	for _, name := range []string{HeaderKey, HeaderSign, HeaderTimestamp, HeaderPassphrase} {
		if h.Get(name) == "" {
			t.Errorf("header %s missing", name)
		}
	}
}

func TestCredentials_SignWebSocket(t *testing.T) {
	creds := &Credentials{Key: "k", Secret: testSecret}
	now := time.Unix(1700000000, 0)

	ws, err := creds.SignWebSocket(now)
	if err != nil {
		t.Fatalf("SignWebSocket failed: %v", err)
	}
	rest, _ := creds.Sign(now, "GET", WebSocketPath, "")
	if ws.Sign != rest.Sign {
		t.Error("SignWebSocket should sign GET /users/self/verify")
	}
}

func TestCredentials_BadSecret(t *testing.T) {
	creds := &Credentials{Key: "k", Secret: "not base64!"}
	if _, err := creds.Sign(time.Now(), "GET", "/", ""); err == nil {
		t.Error("expected error for invalid secret")
	}
}

func TestLoadCredentials(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		secret  string
		wantErr bool
	}{
		{"valid", "k", testSecret, false},
		{"missing key", "", testSecret, true},
		{"missing secret", "k", "", true},
		{"secret not base64", "k", "%%%", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCredentials(tt.key, tt.secret, "p")
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadCredentials() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
