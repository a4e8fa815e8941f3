package vnpay_test

import (
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/doctor-booking/internal/vnpay"
)

func testClient(t *testing.T) *vnpay.Client {
	t.Helper()

	c := vnpay.New(vnpay.Config{
		TmnCode:          "TESTTMN1",
		HashSecret:       "secret-key-for-tests",
		BaseURL:          "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:        "https://app.example.com/payments/vnpay/return",
		DepositReturnURL: "https://app.example.com/payments/vnpay/deposit/return",
		Location:         time.UTC,
	}, zap.NewNop())

	return c.WithClock(func() time.Time {
		return time.Date(2025, 9, 1, 10, 30, 0, 0, time.UTC)
	})
}

func paramsFromURL(t *testing.T, raw string) url.Values {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Query()
}

func TestPaymentURLFields(t *testing.T) {
	c := testClient(t)

	raw, err := c.PaymentURL(decimal.NewFromInt(150000), "Consultation fee", "txn-123")
	require.NoError(t, err)

	params := paramsFromURL(t, raw)
	assert.Equal(t, "2.1.0", params.Get("vnp_Version"))
	assert.Equal(t, "pay", params.Get("vnp_Command"))
	assert.Equal(t, "TESTTMN1", params.Get("vnp_TmnCode"))
	assert.Equal(t, "15000000", params.Get("vnp_Amount"), "amount is transmitted x100")
	assert.Equal(t, "VND", params.Get("vnp_CurrCode"))
	assert.Equal(t, "txn-123", params.Get("vnp_TxnRef"))
	assert.Equal(t, "https://app.example.com/payments/vnpay/return", params.Get("vnp_ReturnUrl"))
	assert.Equal(t, "20250901103000", params.Get("vnp_CreateDate"))
	assert.Equal(t, "20250901104500", params.Get("vnp_ExpireDate"), "expiry is 15 minutes after creation")
	assert.NotEmpty(t, params.Get("vnp_SecureHash"))
}

func TestPaymentURLDeterministic(t *testing.T) {
	c := testClient(t)

	first, err := c.PaymentURL(decimal.NewFromInt(150000), "Consultation fee", "txn-123")
	require.NoError(t, err)
	second, err := c.PaymentURL(decimal.NewFromInt(150000), "Consultation fee", "txn-123")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDepositURLUsesDepositReturn(t *testing.T) {
	c := testClient(t)

	raw, err := c.DepositURL(decimal.NewFromInt(500000), "Wallet top-up", "ref-42")
	require.NoError(t, err)

	params := paramsFromURL(t, raw)
	assert.Equal(t, "https://app.example.com/payments/vnpay/deposit/return", params.Get("vnp_ReturnUrl"))
}

func TestVerifyReturnRoundTrip(t *testing.T) {
	c := testClient(t)

	raw, err := c.PaymentURL(decimal.NewFromInt(150000), "Consultation fee - Dr. Smith", "txn-123")
	require.NoError(t, err)

	params := paramsFromURL(t, raw)
	assert.True(t, c.VerifyReturn(params), "own signature must verify")
}

func TestVerifyReturnRejectsTampering(t *testing.T) {
	c := testClient(t)

	raw, err := c.PaymentURL(decimal.NewFromInt(150000), "Consultation fee", "txn-123")
	require.NoError(t, err)

	params := paramsFromURL(t, raw)
	params.Set("vnp_Amount", "1")
	assert.False(t, c.VerifyReturn(params))
}

func TestVerifyReturnMissingHash(t *testing.T) {
	c := testClient(t)

	params := url.Values{}
	params.Set("vnp_TxnRef", "txn-123")
	params.Set("vnp_ResponseCode", "00")

	assert.False(t, c.VerifyReturn(params))
}

func TestVerifyReturnIgnoresHashTypeField(t *testing.T) {
	c := testClient(t)

	raw, err := c.PaymentURL(decimal.NewFromInt(150000), "Consultation fee", "txn-123")
	require.NoError(t, err)

	// The provider appends this field on some flows; it is excluded from
	// the signing string.
	params := paramsFromURL(t, raw)
	params.Set("vnp_SecureHashType", "HmacSHA512")
	assert.True(t, c.VerifyReturn(params))
}

func TestIsSuccess(t *testing.T) {
	c := testClient(t)

	ok := url.Values{"vnp_ResponseCode": {"00"}}
	assert.True(t, c.IsSuccess(ok))
	assert.Equal(t, "00", c.ResponseCode(ok))

	declined := url.Values{"vnp_ResponseCode": {"24"}}
	assert.False(t, c.IsSuccess(declined))
	assert.Equal(t, "24", c.ResponseCode(declined))

	assert.False(t, c.IsSuccess(url.Values{}))
}

func TestCallbackAmount(t *testing.T) {
	amount, err := vnpay.CallbackAmount(url.Values{"vnp_Amount": {"15000000"}})
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromInt(150000)))

	_, err = vnpay.CallbackAmount(url.Values{})
	assert.Error(t, err)

	_, err = vnpay.CallbackAmount(url.Values{"vnp_Amount": {"not-a-number"}})
	assert.Error(t, err)
}

func TestAmountPrecision(t *testing.T) {
	c := testClient(t)

	_, err := c.PaymentURL(decimal.RequireFromString("100.005"), "odd amount", "txn-1")
	assert.ErrorIs(t, err, vnpay.ErrAmountPrecision)

	_, err = c.PaymentURL(decimal.RequireFromString("100.25"), "two decimals", "txn-2")
	assert.NoError(t, err)
}

func TestMisconfiguredClient(t *testing.T) {
	c := vnpay.New(vnpay.Config{}, zap.NewNop())

	_, err := c.PaymentURL(decimal.NewFromInt(1000), "info", "txn-1")
	assert.ErrorIs(t, err, vnpay.ErrMisconfigured)
}
