package gateway

import (
	"encoding/json"
	"fmt"
	"time"
)

// Object kinds the gateway embeds in event payloads.
const (
	ObjectCheckoutSession = "checkout.session"
	ObjectPaymentIntent   = "payment_intent"
	ObjectCharge          = "charge"
)

// Metadata keys the checkout flow attaches at session creation time.
const (
	MetaUserID          = "userId"
	MetaProductIDs      = "product_id"
	MetaCheckoutSession = "checkout_session"
	MetaCorrelationID   = "correlation_id"
)

// Event is a verified gateway webhook event.
type Event struct {
	ID      string
	Type    string
	Created time.Time
	Object  Object
}

// Object is the flattened data.object of an event. Only the fields this
// service reconciles are kept; everything else stays in the raw payload.
type Object struct {
	ID              string
	Kind            string
	PaymentIntentID string
	LatestChargeID  string
	ReceiptURL      string
	PaymentMethod   string
	FailureMessage  string
	FailureCode     string
	Metadata        map[string]string
}

type wireEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object wireObject `json:"object"`
	} `json:"data"`
}

type wireObject struct {
	ID               string            `json:"id"`
	Object           string            `json:"object"`
	PaymentIntent    string            `json:"payment_intent"`
	LatestCharge     string            `json:"latest_charge"`
	ReceiptURL       string            `json:"receipt_url"`
	PaymentMethod    string            `json:"payment_method"`
	FailureMessage   string            `json:"failure_message"`
	FailureCode      string            `json:"failure_code"`
	Metadata         map[string]string `json:"metadata"`
	LastPaymentError *struct {
		Message     string `json:"message"`
		DeclineCode string `json:"decline_code"`
	} `json:"last_payment_error"`
}

// ParseEvent decodes a raw webhook body into an Event. It does not verify the
// signature; callers go through VerifyEvent.
func ParseEvent(payload []byte) (*Event, error) {
	var w wireEvent
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if w.ID == "" || w.Type == "" {
		return nil, fmt.Errorf("%w: missing event id or type", ErrMalformedPayload)
	}

	obj := Object{
		ID:              w.Data.Object.ID,
		Kind:            w.Data.Object.Object,
		PaymentIntentID: w.Data.Object.PaymentIntent,
		LatestChargeID:  w.Data.Object.LatestCharge,
		ReceiptURL:      w.Data.Object.ReceiptURL,
		PaymentMethod:   w.Data.Object.PaymentMethod,
		FailureMessage:  w.Data.Object.FailureMessage,
		FailureCode:     w.Data.Object.FailureCode,
		Metadata:        w.Data.Object.Metadata,
	}
	if obj.Kind == ObjectPaymentIntent {
		obj.PaymentIntentID = w.Data.Object.ID
	}
	if lpe := w.Data.Object.LastPaymentError; lpe != nil {
		if obj.FailureMessage == "" {
			obj.FailureMessage = lpe.Message
		}
		if obj.FailureCode == "" {
			obj.FailureCode = lpe.DeclineCode
		}
	}

	return &Event{
		ID:      w.ID,
		Type:    w.Type,
		Created: time.Unix(w.Created, 0).UTC(),
		Object:  obj,
	}, nil
}

// SessionID returns the checkout-session id the event references: directly
// for session-scoped events, via cross-reference metadata for payment and
// charge events.
func (e *Event) SessionID() string {
	if e.Object.Kind == ObjectCheckoutSession {
		return e.Object.ID
	}
	return e.Object.Metadata[MetaCheckoutSession]
}

// ProductIDs decodes the product_id metadata value, a JSON array of ids the
// checkout flow attaches at session creation.
func (e *Event) ProductIDs() []string {
	raw, ok := e.Object.Metadata[MetaProductIDs]
	if !ok || raw == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil
	}
	return ids
}
