package payevo

import (
	"testing"
)

func TestParse_NestedDataPayload(t *testing.T) {
	body := []byte(`{"event":"payment.updated","data":{"id":"tx-9","status":"PAID","buyer":{"email":"a@b.com"},"product":{"name":"Pacote 500 creditos"},"amount":199.9}}`)

	event, err := Parse(body)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if event.TxID != "tx-9" {
		t.Fatalf("unexpected tx id: %q", event.TxID)
	}
	if !event.Paid() {
		t.Fatalf("status should normalize to paid, got %q", event.Status)
	}
	if event.Email != "a@b.com" {
		t.Fatalf("unexpected email: %q", event.Email)
	}
	if event.Description != "Pacote 500 creditos" {
		t.Fatalf("unexpected description: %q", event.Description)
	}
	if event.AmountCents == nil || *event.AmountCents != 19990 {
		t.Fatalf("unexpected amount: %v", event.AmountCents)
	}
}

func TestParse_FlatPayloadFallbacks(t *testing.T) {
	body := []byte(`{"transaction_id":"tx-7","payment_status":"paid","email":"flat@b.com","title":"Plano Pro","amount":"12.50"}`)

	event, err := Parse(body)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if event.TxID != "tx-7" {
		t.Fatalf("unexpected tx id: %q", event.TxID)
	}
	if event.Email != "flat@b.com" {
		t.Fatalf("unexpected email: %q", event.Email)
	}
	if event.Description != "Plano Pro" {
		t.Fatalf("unexpected description: %q", event.Description)
	}
	if event.AmountCents == nil || *event.AmountCents != 1250 {
		t.Fatalf("unexpected amount: %v", event.AmountCents)
	}
}

func TestParse_NumericIDAndMetadataEmail(t *testing.T) {
	body := []byte(`{"id":12345,"status":"paid","metadata":{"email":"meta@b.com"}}`)

	event, err := Parse(body)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if event.TxID != "12345" {
		t.Fatalf("numeric id should be stringified, got %q", event.TxID)
	}
	if event.Email != "meta@b.com" {
		t.Fatalf("unexpected email: %q", event.Email)
	}
	if event.AmountCents != nil {
		t.Fatalf("missing amount should stay nil, got %v", *event.AmountCents)
	}
}

func TestParse_RejectsNonObject(t *testing.T) {
	if _, err := Parse([]byte(`"just a string"`)); err == nil {
		t.Fatal("expected parse error")
	}
}
