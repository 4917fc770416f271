package payevo

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Provider is the payment_events.provider value for this gateway.
const Provider = "payevo"

// Event is the normalized view of one gateway notification. PayEvo payloads
// are loosely shaped and sometimes nest the payment under "data", so every
// field is extracted defensively.
type Event struct {
	TxID        string
	Email       string
	Status      string
	Description string
	AmountCents *int64
	Raw         json.RawMessage
}

// Paid reports whether the notification is for a settled payment.
func (e *Event) Paid() bool {
	return e.Status == "paid"
}

// Parse normalizes a raw webhook body. It never fails on unknown fields;
// missing data surfaces as empty Event fields that the pipeline turns into
// ignored outcomes.
func Parse(raw []byte) (*Event, error) {
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(raw, &outer); err != nil {
		return nil, err
	}

	payment := outer
	if data, ok := outer["data"]; ok {
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(data, &nested); err == nil && nested != nil {
			payment = nested
		}
	}

	event := &Event{
		TxID:        firstString(payment, "id", "transaction_id", "payment_id"),
		Email:       extractEmail(payment),
		Status:      strings.ToLower(firstString(payment, "status", "payment_status")),
		Description: extractDescription(payment),
		AmountCents: extractAmountCents(payment),
		Raw:         json.RawMessage(raw),
	}
	return event, nil
}

func extractEmail(payment map[string]json.RawMessage) string {
	for _, parent := range []string{"customer", "buyer", "metadata"} {
		if nested, ok := objectField(payment, parent); ok {
			if email := stringField(nested, "email"); email != "" {
				return email
			}
		}
	}
	return stringField(payment, "email")
}

func extractDescription(payment map[string]json.RawMessage) string {
	if desc := firstString(payment, "description", "productName", "title"); desc != "" {
		return desc
	}
	if product, ok := objectField(payment, "product"); ok {
		return stringField(product, "name")
	}
	return ""
}

// extractAmountCents accepts both numeric and string amounts ("49.90") and
// integer cent fields.
func extractAmountCents(payment map[string]json.RawMessage) *int64 {
	if raw, ok := payment["amount_cents"]; ok {
		var cents int64
		if err := json.Unmarshal(raw, &cents); err == nil {
			return &cents
		}
	}

	raw, ok := payment["amount"]
	if !ok {
		return nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if dec, err := decimal.NewFromString(strings.TrimSpace(asString)); err == nil {
			cents := dec.Mul(decimal.NewFromInt(100)).IntPart()
			return &cents
		}
		return nil
	}

	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		cents := decimal.NewFromFloat(asNumber).Mul(decimal.NewFromInt(100)).IntPart()
		return &cents
	}
	return nil
}

func firstString(payment map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		if v := stringField(payment, key); v != "" {
			return v
		}
	}
	return ""
}

func stringField(m map[string]json.RawMessage, key string) string {
	raw, ok := m[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	// ids occasionally arrive as bare numbers
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func objectField(m map[string]json.RawMessage, key string) (map[string]json.RawMessage, bool) {
	raw, ok := m[key]
	if !ok {
		return nil, false
	}
	var nested map[string]json.RawMessage
	if err := json.Unmarshal(raw, &nested); err != nil || nested == nil {
		return nil, false
	}
	return nested, true
}
