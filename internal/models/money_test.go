package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMoneyFixedScale(t *testing.T) {
	price := NewMoney(decimal.RequireFromString("40.075"))
	if price.String() != "40.08" {
		t.Fatalf("price should round half away from zero, got %s", price.String())
	}
	raw, err := json.Marshal(struct {
		Price Money `json:"price"`
	}{Price: NewMoney(decimal.NewFromInt(15))})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(raw) != `{"price":"15.00"}` {
		t.Fatalf("unexpected json: %s", raw)
	}
}

func TestMoneyScanAndUnmarshal(t *testing.T) {
	var fromDB Money
	if err := fromDB.Scan([]byte("1000.2")); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if !fromDB.Equal(NewMoney(decimal.RequireFromString("1000.20"))) {
		t.Fatalf("scan mismatch: %s", fromDB)
	}

	var fromNumber, fromString Money
	if err := json.Unmarshal([]byte(`24.004`), &fromNumber); err != nil {
		t.Fatalf("unmarshal number failed: %v", err)
	}
	if err := json.Unmarshal([]byte(`"24"`), &fromString); err != nil {
		t.Fatalf("unmarshal string failed: %v", err)
	}
	if !fromNumber.Equal(fromString) {
		t.Fatalf("expected equal amounts, got %s and %s", fromNumber, fromString)
	}
}
