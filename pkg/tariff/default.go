package tariff

import (
	"github.com/shopspring/decimal"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func upTo(bound, fee string) StepTier {
	return StepTier{UpTo: d(bound), Fee: d(fee)}
}

func marginal(bound, base, rate string) MarginalTier {
	return MarginalTier{UpTo: d(bound), Base: d(base), Rate: d(rate)}
}

// Default returns the canonical schedule. Transfer duty follows the most
// recent bracket revision; the fee tables are estimates to be confirmed
// against the published tariffs before release.
func Default() Schedule {
	return Schedule{
		TransferDuty: []Bracket{
			{Min: d("0"), Max: d("1100000"), Rate: d("0")},
			{Min: d("1100001"), Max: d("1512500"), Rate: d("0.03")},
			{Min: d("1512501"), Max: d("2100000"), Rate: d("0.044")},
			{Min: d("2100001"), Unbounded: true, Rate: d("0.08")},
		},
		TransferAttorney: []MarginalTier{
			marginal("300000", "0", "0.032"),
			marginal("600000", "9600", "0.027"),
			marginal("1000000", "17700", "0.024"),
			marginal("2000000", "27300", "0.021"),
			{Unbounded: true, Base: d("48300"), Rate: d("0.018")},
		},
		TransferDisbursements: d("2600"),
		TransferDeeds: []StepTier{
			upTo("100000", "45"),
			upTo("200000", "114"),
			upTo("300000", "694"),
			upTo("600000", "1113"),
			upTo("800000", "1535"),
			upTo("1000000", "1766"),
			upTo("2000000", "2184"),
			upTo("4000000", "3055"),
			upTo("6000000", "3704"),
			upTo("8000000", "4364"),
			upTo("10000000", "5240"),
			upTo("15000000", "6107"),
			upTo("20000000", "7428"),
			{Unbounded: true, Fee: d("8942")},
		},
		BondDeeds: []StepTier{
			upTo("100000", "750"),
			upTo("300000", "1500"),
			upTo("600000", "2250"),
			upTo("1000000", "3750"),
			upTo("2000000", "6000"),
			{Unbounded: true, Fee: d("9000")},
		},
		BondAttorney: []MarginalTier{
			marginal("100000", "5750", "0"),
			marginal("500000", "5750", "0.0345"),
			marginal("1000000", "19550", "0.0115"),
			marginal("2000000", "25300", "0.0055"),
			{Unbounded: true, Base: d("30800"), Rate: d("0.0044")},
		},
		BondDisbursements: d("1700"),
		BankInitiationFee: d("6000"),
		VATRate:           d("0.15"),
	}
}
