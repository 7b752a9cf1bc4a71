package mongo

import (
	"testing"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
)

type amountDoc struct {
	Amount decimal.Decimal `bson:"amount"`
}

func TestDecimalCodecKeepsExactAmount(t *testing.T) {
	reg := Registry()
	in := amountDoc{Amount: decimal.RequireFromString("49.99")}

	data, err := bson.MarshalWithRegistry(reg, in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	raw := bson.Raw(data)
	if got := raw.Lookup("amount").StringValue(); got != "49.99" {
		t.Errorf("stored amount = %q, want %q", got, "49.99")
	}

	var out amountDoc
	if err := bson.UnmarshalWithRegistry(reg, data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.Amount.Equal(in.Amount) {
		t.Errorf("Amount = %s, want %s", out.Amount, in.Amount)
	}
}

func TestDecimalCodecReadsDoubles(t *testing.T) {
	data, err := bson.Marshal(bson.M{"amount": 12.5})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out amountDoc
	if err := bson.UnmarshalWithRegistry(Registry(), data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("Amount = %s", out.Amount)
	}
}
