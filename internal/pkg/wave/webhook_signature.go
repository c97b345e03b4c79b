package wave

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	SignatureHeader = "Wave-Signature"

	// DefaultTolerance bounds how old (or how far in the future) a signed
	// timestamp may be.
	DefaultTolerance = 300 * time.Second

	EncodingHex    = "hex"
	EncodingBase64 = "base64"
)

var (
	ErrMalformedHeader   = errors.New("wave: malformed signature header")
	ErrExpired           = errors.New("wave: signature timestamp outside tolerance")
	ErrSignatureMismatch = errors.New("wave: signature mismatch")
	ErrMalformedPayload  = errors.New("wave: malformed webhook payload")
)

// Verifier checks Wave-Signature headers of the form
// "t=<unix>,v1=<mac>[,v1=<mac>...]" where mac = HMAC-SHA256(secret, t + body).
type Verifier struct {
	Secret    []byte
	Tolerance time.Duration
	// Encoding of the v1 values: EncodingHex (default) or EncodingBase64 for
	// integrations configured with the base64 digest variant.
	Encoding string
}

func NewVerifier(secret string, tolerance time.Duration, encoding string) *Verifier {
	return &Verifier{
		Secret:    []byte(strings.TrimSpace(secret)),
		Tolerance: tolerance,
		Encoding:  encoding,
	}
}

type signatureHeader struct {
	timestamp    int64
	rawTimestamp string
	signatures   []string
}

func parseSignatureHeader(header string) (*signatureHeader, error) {
	out := &signatureHeader{}
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "t":
			if out.rawTimestamp != "" {
				return nil, fmt.Errorf("%w: duplicate timestamp", ErrMalformedHeader)
			}
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil || ts <= 0 {
				return nil, fmt.Errorf("%w: invalid timestamp", ErrMalformedHeader)
			}
			out.timestamp = ts
			out.rawTimestamp = value
		case "v1":
			if value != "" {
				out.signatures = append(out.signatures, value)
			}
		}
	}

	if out.rawTimestamp == "" {
		return nil, fmt.Errorf("%w: missing timestamp", ErrMalformedHeader)
	}
	if len(out.signatures) == 0 {
		return nil, fmt.Errorf("%w: missing v1 signature", ErrMalformedHeader)
	}
	return out, nil
}

// Verify authenticates rawBody against header and only then decodes it.
func (v *Verifier) Verify(header string, rawBody []byte, now time.Time) (*WebhookEvent, error) {
	parsed, err := parseSignatureHeader(header)
	if err != nil {
		return nil, err
	}

	tolerance := v.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	age := now.Unix() - parsed.timestamp
	if age < 0 {
		age = -age
	}
	if age > int64(tolerance/time.Second) {
		return nil, ErrExpired
	}

	if len(v.Secret) == 0 {
		return nil, ErrSignatureMismatch
	}

	expected := v.mac(parsed.rawTimestamp, rawBody)
	matched := false
	for _, candidate := range parsed.signatures {
		got, err := v.decode(candidate)
		if err != nil {
			continue
		}
		if len(got) == len(expected) && hmac.Equal(got, expected) {
			matched = true
		}
	}
	if !matched {
		return nil, ErrSignatureMismatch
	}

	event, err := decodeEvent(rawBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	event.Timestamp = parsed.timestamp
	return event, nil
}

// Sign builds a header value for rawBody signed at timestamp.
func (v *Verifier) Sign(timestamp time.Time, rawBody []byte) string {
	ts := strconv.FormatInt(timestamp.Unix(), 10)
	return "t=" + ts + ",v1=" + v.encode(v.mac(ts, rawBody))
}

func (v *Verifier) mac(timestamp string, rawBody []byte) []byte {
	m := hmac.New(sha256.New, v.Secret)
	m.Write([]byte(timestamp))
	m.Write(rawBody)
	return m.Sum(nil)
}

func (v *Verifier) encode(sum []byte) string {
	if v.Encoding == EncodingBase64 {
		return base64.StdEncoding.EncodeToString(sum)
	}
	return hex.EncodeToString(sum)
}

func (v *Verifier) decode(sig string) ([]byte, error) {
	if v.Encoding == EncodingBase64 {
		return base64.StdEncoding.DecodeString(sig)
	}
	return hex.DecodeString(strings.ToLower(sig))
}
