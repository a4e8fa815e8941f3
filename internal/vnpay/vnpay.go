package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	version   = "2.1.0"
	command   = "pay"
	currency  = "VND"
	orderType = "other"
	locale    = "vn"

	// VNPay transmits amounts multiplied by 100.
	amountScale = 100

	// A redirect URL is valid for this long after creation.
	expiryWindow = 15 * time.Minute

	timeFormat = "20060102150405"

	successCode = "00"
)

var (
	ErrMisconfigured   = errors.New("vnpay client is missing tmn code or hash secret")
	ErrAmountPrecision = errors.New("amount has more precision than vnpay accepts")
)

type Config struct {
	TmnCode          string
	HashSecret       string
	BaseURL          string
	ReturnURL        string // appointment payments
	DepositReturnURL string // wallet top-ups
	Location         *time.Location
}

// Client builds signed redirect URLs and verifies return-callback
// signatures. It is stateless apart from configuration; the clock is
// injectable so identical inputs produce identical URLs in tests.
type Client struct {
	cfg Config
	now func() time.Time
	log *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Client {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Client{cfg: cfg, now: time.Now, log: log}
}

// PaymentURL builds a signed redirect URL for an appointment payment.
func (c *Client) PaymentURL(amount decimal.Decimal, orderInfo, txnRef string) (string, error) {
	return c.buildURL(amount, orderInfo, txnRef, c.cfg.ReturnURL)
}

// DepositURL builds a signed redirect URL for a wallet top-up.
func (c *Client) DepositURL(amount decimal.Decimal, orderInfo, txnRef string) (string, error) {
	return c.buildURL(amount, orderInfo, txnRef, c.cfg.DepositReturnURL)
}

func (c *Client) buildURL(amount decimal.Decimal, orderInfo, txnRef, returnURL string) (string, error) {
	if c.cfg.TmnCode == "" || c.cfg.HashSecret == "" {
		return "", ErrMisconfigured
	}

	scaled := amount.Mul(decimal.NewFromInt(amountScale))
	if !scaled.IsInteger() {
		return "", ErrAmountPrecision
	}

	createAt := c.now().In(c.cfg.Location)

	params := map[string]string{
		"vnp_Version":    version,
		"vnp_Command":    command,
		"vnp_TmnCode":    c.cfg.TmnCode,
		"vnp_Amount":     scaled.String(),
		"vnp_CurrCode":   currency,
		"vnp_TxnRef":     txnRef,
		"vnp_OrderInfo":  orderInfo,
		"vnp_OrderType":  orderType,
		"vnp_Locale":     locale,
		"vnp_ReturnUrl":  returnURL,
		"vnp_IpAddr":     "127.0.0.1",
		"vnp_CreateDate": createAt.Format(timeFormat),
		"vnp_ExpireDate": createAt.Add(expiryWindow).Format(timeFormat),
	}

	hashData, query := canonicalize(params)
	secureHash := c.sign(hashData)

	c.log.Info("built vnpay payment url", zap.String("txn_ref", txnRef))

	return fmt.Sprintf("%s?%s&vnp_SecureHash=%s", c.cfg.BaseURL, query, secureHash), nil
}

// VerifyReturn rebuilds the signing string from the callback parameters and
// compares the HMAC against the received vnp_SecureHash. It returns false on
// any mismatch or missing field and never panics on malformed input.
func (c *Client) VerifyReturn(params url.Values) bool {
	received := params.Get("vnp_SecureHash")
	if received == "" || c.cfg.HashSecret == "" {
		return false
	}

	fields := make(map[string]string, len(params))
	for k := range params {
		if k == "vnp_SecureHash" || k == "vnp_SecureHashType" {
			continue
		}
		fields[k] = params.Get(k)
	}

	hashData, _ := canonicalize(fields)
	expected := c.sign(hashData)

	ok := hmac.Equal([]byte(strings.ToLower(received)), []byte(expected))
	if !ok {
		c.log.Warn("vnpay checksum mismatch", zap.String("txn_ref", params.Get("vnp_TxnRef")))
	}
	return ok
}

// IsSuccess reports whether the provider flagged the payment as successful.
func (c *Client) IsSuccess(params url.Values) bool {
	return params.Get("vnp_ResponseCode") == successCode
}

func (c *Client) ResponseCode(params url.Values) string {
	return params.Get("vnp_ResponseCode")
}

// CallbackAmount returns the callback amount divided back to its real value.
func CallbackAmount(params url.Values) (decimal.Decimal, error) {
	raw := params.Get("vnp_Amount")
	if raw == "" {
		return decimal.Zero, errors.New("vnp_Amount missing")
	}
	scaled, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse vnp_Amount: %w", err)
	}
	return scaled.Div(decimal.NewFromInt(amountScale)), nil
}

// canonicalize sorts the parameters by key, drops empty values and returns
// the hash data (plain keys, encoded values) and the encoded query string.
func canonicalize(params map[string]string) (hashData, query string) {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var hashB, queryB strings.Builder
	for i, k := range keys {
		if i > 0 {
			hashB.WriteByte('&')
			queryB.WriteByte('&')
		}
		v := url.QueryEscape(params[k])
		hashB.WriteString(k)
		hashB.WriteByte('=')
		hashB.WriteString(v)
		queryB.WriteString(url.QueryEscape(k))
		queryB.WriteByte('=')
		queryB.WriteString(v)
	}
	return hashB.String(), queryB.String()
}

func (c *Client) sign(data string) string {
	mac := hmac.New(sha512.New, []byte(c.cfg.HashSecret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// WithClock replaces the clock, for deterministic URL generation in tests.
func (c *Client) WithClock(now func() time.Time) *Client {
	clone := *c
	clone.now = now
	return &clone
}
