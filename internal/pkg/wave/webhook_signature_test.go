package wave

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "wave_sn_WHS_test_secret"

var completedPayload = []byte(`{"id":"EV_QvEZuDSQbLdI","type":"checkout.session.completed","data":{"id":"cos-18qq25rgr100a","amount":"100","checkout_status":"complete","client_reference":"A1","currency":"GMD","payment_status":"succeeded","transaction_id":"TCN4Y4ZC3FM"}}`)

func hexMAC(secret, ts string, body []byte) string {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write([]byte(ts))
	m.Write(body)
	return hex.EncodeToString(m.Sum(nil))
}

func TestVerifyRoundTrip(t *testing.T) {
	v := NewVerifier(testSecret, 0, EncodingHex)
	now := time.Unix(1700000000, 0)

	header := v.Sign(now, completedPayload)
	event, err := v.Verify(header, completedPayload, now)
	require.NoError(t, err)

	assert.Equal(t, EventCheckoutSessionCompleted, event.Kind())
	assert.Equal(t, PaymentStatusSucceeded, event.PaymentStatus())
	assert.Equal(t, "A1", event.OrderID())
	assert.Equal(t, "100", event.Amount().String())
	assert.Equal(t, "GMD", event.Currency())
	assert.Equal(t, int64(1700000000), event.Timestamp)
	assert.JSONEq(t, string(completedPayload), string(event.Raw))
}

func TestVerifyMatchesIndependentHMAC(t *testing.T) {
	v := NewVerifier(testSecret, 0, EncodingHex)
	now := time.Unix(1700000000, 0)
	ts := strconv.FormatInt(now.Unix(), 10)

	header := "t=" + ts + ",v1=" + hexMAC(testSecret, ts, completedPayload)
	_, err := v.Verify(header, completedPayload, now)
	assert.NoError(t, err)
}

func TestVerifyAcceptsAnyRotatedSignature(t *testing.T) {
	v := NewVerifier(testSecret, 0, EncodingHex)
	now := time.Unix(1700000000, 0)
	ts := strconv.FormatInt(now.Unix(), 10)

	old := hexMAC("previous-secret", ts, completedPayload)
	current := hexMAC(testSecret, ts, completedPayload)
	header := "t=" + ts + ", v1=" + old + ", v1=" + current

	_, err := v.Verify(header, completedPayload, now)
	assert.NoError(t, err)
}

func TestVerifyExpired(t *testing.T) {
	v := NewVerifier(testSecret, 0, EncodingHex)
	signedAt := time.Unix(1700000000, 0)
	header := v.Sign(signedAt, completedPayload)

	tests := []struct {
		name string
		now  time.Time
		want error
	}{
		{"at window edge", signedAt.Add(300 * time.Second), nil},
		{"one second past", signedAt.Add(301 * time.Second), ErrExpired},
		{"far future timestamp", signedAt.Add(-301 * time.Second), ErrExpired},
		{"hours later", signedAt.Add(3 * time.Hour), ErrExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(header, completedPayload, tt.now)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestVerifyExpiredEvenWithBadSignature(t *testing.T) {
	v := NewVerifier(testSecret, 0, EncodingHex)
	_, err := v.Verify("t=1700000000,v1=deadbeef", completedPayload, time.Unix(1700000000+3600, 0))
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyTamperedBody(t *testing.T) {
	v := NewVerifier(testSecret, 0, EncodingHex)
	now := time.Unix(1700000000, 0)
	header := v.Sign(now, completedPayload)

	for i := range completedPayload {
		tampered := append([]byte(nil), completedPayload...)
		tampered[i] ^= 0x01
		_, err := v.Verify(header, tampered, now)
		if !errors.Is(err, ErrSignatureMismatch) {
			t.Fatalf("byte %d altered: expected ErrSignatureMismatch, got %v", i, err)
		}
	}
}

func TestVerifyMalformedHeader(t *testing.T) {
	v := NewVerifier(testSecret, 0, EncodingHex)
	now := time.Unix(1700000000, 0)

	headers := []string{
		"",
		"garbage",
		"v1=abcd",
		"t=1700000000",
		"t=1700000000,v1=",
		"t=abc,v1=abcd",
		"t=-5,v1=abcd",
		"t=1700000000,t=1700000001,v1=abcd",
	}
	for _, h := range headers {
		_, err := v.Verify(h, completedPayload, now)
		assert.ErrorIs(t, err, ErrMalformedHeader, "header %q", h)
	}
}

func TestVerifyRejectsNonHexAndWrongLength(t *testing.T) {
	v := NewVerifier(testSecret, 0, EncodingHex)
	now := time.Unix(1700000000, 0)

	for _, sig := range []string{"zz-not-hex", "abcd", hexMAC(testSecret, "1700000000", completedPayload) + "00"} {
		_, err := v.Verify("t=1700000000,v1="+sig, completedPayload, now)
		assert.ErrorIs(t, err, ErrSignatureMismatch)
	}
}

func TestVerifyEmptySecretNeverAccepts(t *testing.T) {
	signer := &Verifier{Secret: nil}
	now := time.Unix(1700000000, 0)
	header := signer.Sign(now, completedPayload)

	_, err := NewVerifier("", 0, EncodingHex).Verify(header, completedPayload, now)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestVerifyMalformedPayloadAfterAuthentication(t *testing.T) {
	v := NewVerifier(testSecret, 0, EncodingHex)
	now := time.Unix(1700000000, 0)
	body := []byte(`{"type": "checkout.session.completed", `)

	_, err := v.Verify(v.Sign(now, body), body, now)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestVerifyBase64Variant(t *testing.T) {
	v := NewVerifier(testSecret, time.Minute, EncodingBase64)
	now := time.Unix(1700000000, 0)

	header := v.Sign(now, completedPayload)
	_, err := v.Verify(header, completedPayload, now)
	require.NoError(t, err)

	hexVerifier := NewVerifier(testSecret, time.Minute, EncodingHex)
	_, err = hexVerifier.Verify(header, completedPayload, now)
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	_, err = v.Verify(header, completedPayload, now.Add(2*time.Minute))
	assert.ErrorIs(t, err, ErrExpired)
}

func TestWebhookEventFlatVariant(t *testing.T) {
	v := NewVerifier(testSecret, 0, EncodingHex)
	now := time.Unix(1700000000, 0)
	body := []byte(`{"event_type":"checkout.session.completed","payment_status":"SUCCEEDED","order_id":"B7","amount":250.5,"currency":"gmd"}`)

	event, err := v.Verify(v.Sign(now, body), body, now)
	require.NoError(t, err)
	assert.Equal(t, EventCheckoutSessionCompleted, event.Kind())
	assert.Equal(t, PaymentStatusSucceeded, event.PaymentStatus())
	assert.Equal(t, "B7", event.OrderID())
	assert.Equal(t, "250.5", event.Amount().String())
	assert.Equal(t, "GMD", event.Currency())
}

func TestVerifyAcceptsLooselyTypedEvents(t *testing.T) {
	v := NewVerifier(testSecret, 0, EncodingHex)
	now := time.Unix(1700000000, 0)

	tests := []struct {
		name string
		body string
		kind string
	}{
		{"empty amount", `{"type":"b2b.payment_received","data":{"id":"x","amount":""}}`, "b2b.payment_received"},
		{"numeric id", `{"type":"merchant.payment_received","data":{"id":12345}}`, "merchant.payment_received"},
		{"nested objects", `{"type":"merchant.payment_received","data":{"amount":{"value":"5"},"sender":{"name":"x"}}}`, "merchant.payment_received"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := []byte(tt.body)
			event, err := v.Verify(v.Sign(now, body), body, now)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, event.Kind())
			assert.True(t, event.Amount().IsZero())
		})
	}
}

func TestVerifyRejectsNonObjectPayload(t *testing.T) {
	v := NewVerifier(testSecret, 0, EncodingHex)
	now := time.Unix(1700000000, 0)

	for _, body := range []string{`[1,2]`, `null`, `"text"`} {
		_, err := v.Verify(v.Sign(now, []byte(body)), []byte(body), now)
		assert.ErrorIs(t, err, ErrMalformedPayload, body)
	}
}
