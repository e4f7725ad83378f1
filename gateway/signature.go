package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance bounds the age of a signed payload. Events older than this
// are rejected to blunt replay of captured deliveries.
const DefaultTolerance = 5 * time.Minute

var (
	// ErrBadSignature covers any verification failure: missing or malformed
	// header, mismatched digest, or a timestamp outside tolerance. A
	// persistent mismatch is usually a misconfigured secret, not a transient
	// fault.
	ErrBadSignature = errors.New("gateway: webhook signature verification failed")

	ErrMalformedPayload = errors.New("gateway: malformed event payload")
)

// Sign produces a signature header for payload at time t. Used by the test
// suite and the local replay tool; the scheme matches what the gateway sends:
// "t=<unix>,v1=<hex hmac-sha256 of '<unix>.<payload>'>".
func Sign(payload []byte, secret string, t time.Time) string {
	ts := strconv.FormatInt(t.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

// VerifySignature checks header against the exact payload bytes as
// transmitted. Any re-serialization of the body before this point invalidates
// the signature, so it must run before JSON parsing.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if header == "" {
		return fmt.Errorf("%w: missing signature header", ErrBadSignature)
	}

	var ts string
	var sigs [][]byte
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			sig, err := hex.DecodeString(v)
			if err == nil {
				sigs = append(sigs, sig)
			}
		}
	}
	if ts == "" || len(sigs) == 0 {
		return fmt.Errorf("%w: malformed signature header", ErrBadSignature)
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: malformed timestamp", ErrBadSignature)
	}
	if tolerance > 0 {
		age := now.Sub(time.Unix(unix, 0))
		if age > tolerance || age < -tolerance {
			return fmt.Errorf("%w: timestamp outside tolerance", ErrBadSignature)
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, sig := range sigs {
		if hmac.Equal(expected, sig) {
			return nil
		}
	}
	return fmt.Errorf("%w: no matching v1 signature", ErrBadSignature)
}

// VerifyEvent authenticates the raw body and, only then, parses it.
func VerifyEvent(payload []byte, header, secret string, tolerance time.Duration) (*Event, error) {
	if err := VerifySignature(payload, header, secret, tolerance, time.Now()); err != nil {
		return nil, err
	}
	return ParseEvent(payload)
}
