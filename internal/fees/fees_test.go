package fees

import (
	"testing"
	"testing/quick"

	"github.com/shopspring/decimal"
)

func TestSplitBasicSale(t *testing.T) {
	b := DefaultSchedule().Split(10000)

	want := Breakdown{
		Gross:        10000,
		Tax:          1667,
		NetOfTax:     8333,
		ProcessorFee: 320,
		Net:          8013,
		PlatformFee:  1249,
	}
	if b != want {
		t.Fatalf("Split(10000) = %+v, want %+v", b, want)
	}
}

func TestSplitRounding(t *testing.T) {
	s := Schedule{
		TaxRate:             decimal.RequireFromString("0.2"),
		ProcessorFeePercent: decimal.RequireFromString("0.015"),
		ProcessorFeeFixed:   25,
		PlatformFeePercent:  decimal.RequireFromString("0.1"),
	}

	tests := []struct {
		gross        int64
		tax          int64
		processorFee int64
		platformFee  int64
	}{
		{7, 1, 25, 0},
		{8, 2, 25, 0},
		{999, 200, 39, 79},
		{12345, 2469, 210, 987},
	}

	for _, tt := range tests {
		b := s.Split(tt.gross)
		if b.Tax != tt.tax || b.ProcessorFee != tt.processorFee || b.PlatformFee != tt.platformFee {
			t.Errorf("Split(%d) = %+v, want tax=%d processor=%d platform=%d",
				tt.gross, b, tt.tax, tt.processorFee, tt.platformFee)
		}
	}
}

func TestSplitZeroAndNegative(t *testing.T) {
	for _, gross := range []int64{0, -100} {
		b := DefaultSchedule().Split(gross)
		if b.Tax != 0 || b.ProcessorFee != 0 || b.PlatformFee != 0 {
			t.Errorf("Split(%d) charged fees: %+v", gross, b)
		}
	}
}

func TestSplitIdentities(t *testing.T) {
	s := DefaultSchedule()
	f := func(g uint32) bool {
		gross := int64(g)
		b := s.Split(gross)
		return b.Tax+b.NetOfTax == gross &&
			b.NetOfTax-b.ProcessorFee == b.Net &&
			b.PlatformFee <= b.NetOfTax
	}
	if err := quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}
}
