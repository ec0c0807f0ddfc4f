package subscriptions

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Gateway issues payment order ids and checks the signature the checkout returns.
// The signature is hex(HMAC-SHA256(secret, orderId + "|" + paymentId)).
type Gateway struct {
	keyID  string
	secret []byte
}

// NewGateway creates a gateway for the given key pair.
func NewGateway(keyID, secret string) *Gateway {
	return &Gateway{keyID: keyID, secret: []byte(secret)}
}

// KeyID is the public key handed to the checkout.
func (g *Gateway) KeyID() string { return g.keyID }

// Configured reports whether a signing secret is set.
func (g *Gateway) Configured() bool { return len(g.secret) > 0 }

// NewOrderID returns a fresh gateway order id.
func (g *Gateway) NewOrderID() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("order id: %w", err)
	}
	return "order_" + hex.EncodeToString(b), nil
}

// Sign computes the signature for an order and payment pair.
func (g *Gateway) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches the order and payment pair.
func (g *Gateway) Verify(orderID, paymentID, signature string) bool {
	if !g.Configured() {
		return false
	}
	return hmac.Equal([]byte(g.Sign(orderID, paymentID)), []byte(signature))
}
