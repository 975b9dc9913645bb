// Package fees splits a gross sale amount into tax, processor fee and
// platform fee. All amounts are integer minor currency units.
package fees

import (
	"github.com/shopspring/decimal"
)

type Schedule struct {
	TaxRate             decimal.Decimal `json:"tax_rate"`
	ProcessorFeePercent decimal.Decimal `json:"processor_fee_percent"`
	ProcessorFeeFixed   int64           `json:"processor_fee_fixed"`
	PlatformFeePercent  decimal.Decimal `json:"platform_fee_percent"`
}

// Default rates: 16.67% tax, 2.9% + 30 processor fee, 15% platform fee.
func DefaultSchedule() Schedule {
	return Schedule{
		TaxRate:             decimal.RequireFromString("0.1667"),
		ProcessorFeePercent: decimal.RequireFromString("0.029"),
		ProcessorFeeFixed:   30,
		PlatformFeePercent:  decimal.RequireFromString("0.15"),
	}
}

type Breakdown struct {
	Gross        int64 `json:"gross"`
	Tax          int64 `json:"tax"`
	NetOfTax     int64 `json:"net_of_tax"`
	ProcessorFee int64 `json:"processor_fee"`
	Net          int64 `json:"net"`
	PlatformFee  int64 `json:"platform_fee"`
}

// Split applies the schedule to a gross amount. Percentage rewards are
// computed against NetOfTax, never against Gross or Net.
func (s Schedule) Split(gross int64) Breakdown {
	if gross <= 0 {
		return Breakdown{Gross: gross, NetOfTax: gross, Net: gross}
	}

	g := decimal.NewFromInt(gross)

	tax := g.Mul(s.TaxRate).Round(0).IntPart()
	netOfTax := gross - tax

	processorFee := g.Mul(s.ProcessorFeePercent).
		Add(decimal.NewFromInt(s.ProcessorFeeFixed)).
		Floor().IntPart()

	platformFee := decimal.NewFromInt(netOfTax).Mul(s.PlatformFeePercent).Floor().IntPart()

	return Breakdown{
		Gross:        gross,
		Tax:          tax,
		NetOfTax:     netOfTax,
		ProcessorFee: processorFee,
		Net:          netOfTax - processorFee,
		PlatformFee:  platformFee,
	}
}
