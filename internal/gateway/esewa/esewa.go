// Package esewa implements the eSewa ePay v2 redirect flow: a signed HTML form
// POSTed by the customer's browser to the gateway, and a base64-encoded JSON
// callback delivered back through a redirect query parameter.
package esewa

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/order"
)

// Sentinel errors for callback verification.
var (
	ErrMalformedPayload = errors.New("malformed callback payload")
	ErrBadSignature     = errors.New("callback signature mismatch")
)

const statusComplete = "COMPLETE"

// signedFields is the field list eSewa signs, in signing order.
const signedFields = "total_amount,transaction_uuid,product_code"

// Config holds merchant credentials and return URLs.
type Config struct {
	// FormURL is the gateway endpoint the browser form posts to.
	FormURL string
	// ProductCode is the merchant code assigned by eSewa.
	ProductCode string
	// SecretKey signs outgoing forms and verifies incoming callbacks.
	SecretKey string
	// SuccessURL and FailureURL are where the gateway redirects the browser.
	SuccessURL string
	FailureURL string
}

// Client builds redirect payloads and verifies callbacks for one merchant.
type Client struct {
	cfg Config
}

// New creates a Client for the given merchant configuration.
func New(cfg Config) *Client {
	return &Client{cfg: cfg}
}

var _ order.Gateway = (*Client)(nil)

// Name returns the gateway identifier used in API responses.
func (c *Client) Name() string { return "eSewa" }

// BuildRedirect constructs the signed form payload for a draft order. The
// order id doubles as the gateway transaction reference.
func (c *Client) BuildRedirect(o *order.Order) (*order.Redirect, error) {
	total := o.TotalPrice.StringFixed(2)

	fields := map[string]string{
		"amount":                  total,
		"tax_amount":              "0",
		"product_service_charge":  "0",
		"product_delivery_charge": "0",
		"total_amount":            total,
		"transaction_uuid":        o.ID,
		"product_code":            c.cfg.ProductCode,
		"success_url":             c.cfg.SuccessURL,
		"failure_url":             c.cfg.FailureURL,
		"signed_field_names":      signedFields,
	}
	fields["signature"] = c.sign(total, o.ID)

	return &order.Redirect{
		Gateway: c.Name(),
		URL:     c.cfg.FormURL,
		Fields:  fields,
	}, nil
}

// callbackPayload is the decoded gateway response.
type callbackPayload struct {
	TransactionCode  string `json:"transaction_code"`
	Status           string `json:"status"`
	TotalAmount      string `json:"total_amount"`
	TransactionUUID  string `json:"transaction_uuid"`
	ProductCode      string `json:"product_code"`
	SignedFieldNames string `json:"signed_field_names"`
	Signature        string `json:"signature"`
}

// DecodeCallback decodes the base64 JSON callback, verifies its HMAC
// signature, and normalizes the amount. Anything that fails to decode or
// verify is an integrity error; the payload is never partially trusted.
func (c *Client) DecodeCallback(encoded string) (*order.Callback, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		// Query-parameter transport sometimes delivers URL-safe base64.
		raw, err = base64.URLEncoding.DecodeString(strings.TrimSpace(encoded))
		if err != nil {
			return nil, errors.Wrap(ErrMalformedPayload, "base64 decode")
		}
	}

	var p callbackPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.Wrap(ErrMalformedPayload, "json decode")
	}
	if p.TransactionUUID == "" || p.TotalAmount == "" {
		return nil, errors.Wrap(ErrMalformedPayload, "missing required fields")
	}

	// eSewa formats amounts with thousands separators ("6,500.0").
	amount, err := decimal.NewFromString(strings.ReplaceAll(p.TotalAmount, ",", ""))
	if err != nil {
		return nil, errors.Wrap(ErrMalformedPayload, "parse amount")
	}

	if !c.verifySignature(&p) {
		return nil, ErrBadSignature
	}

	return &order.Callback{
		TransactionID: p.TransactionUUID,
		Amount:        amount,
		Complete:      p.Status == statusComplete,
		RawStatus:     p.Status,
	}, nil
}

// sign computes the base64 HMAC-SHA256 over the signed field list.
func (c *Client) sign(totalAmount, transactionUUID string) string {
	msg := "total_amount=" + totalAmount +
		",transaction_uuid=" + transactionUUID +
		",product_code=" + c.cfg.ProductCode

	mac := hmac.New(sha256.New, []byte(c.cfg.SecretKey))
	mac.Write([]byte(msg))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// verifySignature recomputes the signature over the callback's signed fields
// and compares in constant time.
func (c *Client) verifySignature(p *callbackPayload) bool {
	fieldNames := p.SignedFieldNames
	if fieldNames == "" {
		return false
	}

	values := map[string]string{
		"transaction_code":   p.TransactionCode,
		"status":             p.Status,
		"total_amount":       p.TotalAmount,
		"transaction_uuid":   p.TransactionUUID,
		"product_code":       p.ProductCode,
		"signed_field_names": p.SignedFieldNames,
	}

	parts := strings.Split(fieldNames, ",")
	pairs := make([]string, 0, len(parts))
	for _, name := range parts {
		name = strings.TrimSpace(name)
		v, ok := values[name]
		if !ok {
			return false
		}
		pairs = append(pairs, name+"="+v)
	}

	mac := hmac.New(sha256.New, []byte(c.cfg.SecretKey))
	mac.Write([]byte(strings.Join(pairs, ",")))
	want := mac.Sum(nil)

	got, err := base64.StdEncoding.DecodeString(p.Signature)
	if err != nil {
		return false
	}
	return hmac.Equal(got, want)
}
