package simulation

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fineflow77/btclti/internal/powerlaw"
)

const asOf = 2025

func validAccumulation() AccumulationInput {
	return AccumulationInput{
		InitialType:         InitialBTC,
		InitialBTC:          "0",
		MonthlyContribution: "10000",
		Years:               "1",
		Variant:             "standard",
		ExchangeRate:        "150",
		InflationRate:       "0",
	}
}

func validDecumulation() DecumulationInput {
	return DecumulationInput{
		InitialBTC:    "1",
		StartYear:     "2025",
		Variant:       "standard",
		Policy:        PolicyInput{Type: PolicyFixed, Amount: "100000"},
		TaxRate:       "20",
		ExchangeRate:  "150",
		InflationRate: "0",
	}
}

func validationFields(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "want *ValidationError, got %v", err)
	return verr.Fields
}

func TestAccumulationLedgerShape(t *testing.T) {
	records, err := RunAccumulation(validAccumulation(), asOf)
	require.NoError(t, err)
	require.Len(t, records, max(TargetYear, asOf+1)-asOf+1)

	for i, r := range records {
		assert.Equal(t, asOf+i, r.Year)
	}

	first := records[0]
	assert.True(t, first.InContributionWindow)
	assert.Equal(t, 120000.0, first.AnnualContributionFiat)
	assert.Greater(t, first.BTCHeld, 0.0)

	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1], records[i]
		assert.False(t, cur.InContributionWindow, "year %d", cur.Year)
		assert.Zero(t, cur.AnnualContributionFiat)
		assert.Equal(t, prev.BTCHeld, cur.BTCHeld, "holdings constant after window, year %d", cur.Year)
		assert.InEpsilon(t, cur.BTCHeld*cur.BTCPriceFiat, cur.TotalValueFiat, 1e-12)
	}
}

func TestAccumulationHoldingsGrowInsideWindow(t *testing.T) {
	in := validAccumulation()
	in.Years = "10"
	in.InitialBTC = "0.5"
	in.InflationRate = "2"

	records, err := RunAccumulation(in, asOf)
	require.NoError(t, err)

	assert.InDelta(t, 0.5+records[0].BTCPurchased, records[0].BTCHeld, 1e-12)
	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1], records[i]
		if cur.InContributionWindow {
			assert.Greater(t, cur.BTCHeld, prev.BTCHeld, "year %d", cur.Year)
		} else {
			assert.Equal(t, prev.BTCHeld, cur.BTCHeld, "year %d", cur.Year)
		}
	}
	assert.True(t, records[9].InContributionWindow)
	assert.False(t, records[10].InContributionWindow)
}

func TestAccumulationHorizonExtendsPastTargetYear(t *testing.T) {
	in := validAccumulation()
	in.Years = "50"

	records, err := RunAccumulation(in, asOf)
	require.NoError(t, err)
	require.Len(t, records, 51)
	assert.Equal(t, asOf+50, records[len(records)-1].Year)
	assert.False(t, records[len(records)-1].InContributionWindow)
}

func TestAccumulationFiatStart(t *testing.T) {
	model, err := powerlaw.For("standard")
	require.NoError(t, err)
	usd, err := model.PriceAtYear(asOf)
	require.NoError(t, err)

	in := validAccumulation()
	in.InitialType = InitialFiat
	in.InitialBTC = ""
	in.InitialFiat = "3000000"
	in.InflationRate = "3"

	records, err := RunAccumulation(in, asOf)
	require.NoError(t, err)

	want := 3000000/(usd*150) + records[0].BTCPurchased
	assert.InEpsilon(t, want, records[0].BTCHeld, 1e-12)
}

func TestAccumulationInflationRaisesLocalPrice(t *testing.T) {
	flat, err := RunAccumulation(validAccumulation(), asOf)
	require.NoError(t, err)

	in := validAccumulation()
	in.InflationRate = "2"
	inflated, err := RunAccumulation(in, asOf)
	require.NoError(t, err)

	assert.Equal(t, flat[0].BTCPriceFiat, inflated[0].BTCPriceFiat)
	assert.InEpsilon(t, flat[10].BTCPriceFiat*1.02*1.02*1.02*1.02*1.02*1.02*1.02*1.02*1.02*1.02,
		inflated[10].BTCPriceFiat, 1e-9)
}

func TestValidateAccumulation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AccumulationInput)
		field  string
	}{
		{"years 0", func(in *AccumulationInput) { in.Years = "0" }, "years"},
		{"years 51", func(in *AccumulationInput) { in.Years = "51" }, "years"},
		{"years fractional", func(in *AccumulationInput) { in.Years = "1.5" }, "years"},
		{"years missing", func(in *AccumulationInput) { in.Years = "" }, "years"},
		{"negative btc", func(in *AccumulationInput) { in.InitialBTC = "-1" }, "initialBtc"},
		{"nan btc", func(in *AccumulationInput) { in.InitialBTC = "NaN" }, "initialBtc"},
		{"missing btc", func(in *AccumulationInput) { in.InitialBTC = " " }, "initialBtc"},
		{"missing fiat", func(in *AccumulationInput) { in.InitialType = InitialFiat }, "initialFiat"},
		{"unknown initial type", func(in *AccumulationInput) { in.InitialType = "gold" }, "initialType"},
		{"zero contribution", func(in *AccumulationInput) { in.MonthlyContribution = "0" }, "monthlyContribution"},
		{"text contribution", func(in *AccumulationInput) { in.MonthlyContribution = "lots" }, "monthlyContribution"},
		{"zero exchange rate", func(in *AccumulationInput) { in.ExchangeRate = "0" }, "exchangeRate"},
		{"negative inflation", func(in *AccumulationInput) { in.InflationRate = "-0.1" }, "inflationRate"},
		{"unknown variant", func(in *AccumulationInput) { in.Variant = "moon" }, "variant"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validAccumulation()
			tt.mutate(&in)
			_, err := ValidateAccumulation(in)
			fields := validationFields(t, err)
			assert.Contains(t, fields, tt.field)
			assert.Len(t, fields, 1)
		})
	}
}

func TestValidateAccumulationCollectsAllFields(t *testing.T) {
	records, err := RunAccumulation(AccumulationInput{}, asOf)
	assert.Nil(t, records)
	fields := validationFields(t, err)
	for _, f := range []string{"initialBtc", "monthlyContribution", "years", "exchangeRate", "inflationRate"} {
		assert.Contains(t, fields, f)
	}
}

func TestValidateAccumulationAcceptsFiftyYears(t *testing.T) {
	in := validAccumulation()
	in.Years = "50"
	a, err := ValidateAccumulation(in)
	require.NoError(t, err)
	assert.Equal(t, 50, a.Years)
}

func TestDecumulationFixedPolicy(t *testing.T) {
	records, err := RunDecumulation(validDecumulation(), asOf)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.LessOrEqual(t, records[len(records)-1].Year, TargetYear)

	prev := 1.0
	for _, r := range records {
		require.NotNil(t, r.Withdrawal, "year %d", r.Year)
		assert.Equal(t, PhaseOne, r.Phase)
		assert.Less(t, r.RemainingBTC, prev, "year %d", r.Year)
		assert.InEpsilon(t, prev*r.BTCPriceFiat, r.TotalValueFiat, 1e-12, "total value is pre-withdrawal")
		assert.InEpsilon(t, 1_440_000/r.BTCPriceFiat, r.Withdrawal.BTC, 1e-12)
		assert.InEpsilon(t, r.Withdrawal.BTC/prev*100, r.Withdrawal.EffectiveRate, 1e-12)
		assert.Equal(t, 1_200_000.0, r.Withdrawal.ValueFiat)
		prev = r.RemainingBTC
	}
}

func TestDecumulationIsDeterministic(t *testing.T) {
	in := validDecumulation()
	in.SecondPhase = &SecondPhaseInput{Year: "2035", Policy: PolicyInput{Type: PolicyPercentage, Rate: "4"}}
	in.InflationRate = "1.5"

	a, err := RunDecumulation(in, asOf)
	require.NoError(t, err)
	b, err := RunDecumulation(in, asOf)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecumulationBeforeStartYear(t *testing.T) {
	in := validDecumulation()
	in.StartYear = "2028"

	records, err := RunDecumulation(in, asOf)
	require.NoError(t, err)

	for _, r := range records[:3] {
		assert.Nil(t, r.Withdrawal, "year %d", r.Year)
		assert.Equal(t, PhaseNone, r.Phase)
		assert.Equal(t, 1.0, r.RemainingBTC)
	}
	assert.NotNil(t, records[3].Withdrawal)
	assert.Equal(t, 2028, records[3].Year)
}

func TestDecumulationFullPercentageTruncates(t *testing.T) {
	in := validDecumulation()
	in.StartYear = "2027"
	in.Policy = PolicyInput{Type: PolicyPercentage, Rate: "100"}

	records, err := RunDecumulation(in, asOf)
	require.NoError(t, err)
	require.Len(t, records, 3)

	last := records[2]
	assert.Equal(t, 2027, last.Year)
	require.NotNil(t, last.Withdrawal)
	assert.Equal(t, 1.0, last.Withdrawal.BTC)
	assert.Zero(t, last.RemainingBTC)
	assert.InEpsilon(t, last.BTCPriceFiat*0.8, last.Withdrawal.ValueFiat, 1e-12)
}

func TestDecumulationSecondPhase(t *testing.T) {
	in := validDecumulation()
	in.SecondPhase = &SecondPhaseInput{Year: "2030", Policy: PolicyInput{Type: PolicyPercentage, Rate: "5"}}

	records, err := RunDecumulation(in, asOf)
	require.NoError(t, err)

	for _, r := range records {
		want := PhaseOne
		if r.Year >= 2030 {
			want = PhaseTwo
		}
		assert.Equal(t, want, r.Phase, "year %d", r.Year)
	}

	r := records[2030-asOf]
	require.NotNil(t, r.Withdrawal)
	assert.Equal(t, 5.0, r.Withdrawal.EffectiveRate)
	before := records[2029-asOf].RemainingBTC
	assert.InEpsilon(t, before*0.05, r.Withdrawal.BTC, 1e-12)
}

func TestDecumulationInsufficientFunds(t *testing.T) {
	in := validDecumulation()
	in.InitialBTC = "0.01"
	in.Policy.Amount = "1000000"

	records, err := RunDecumulation(in, asOf)
	assert.Nil(t, records)

	var cerr *ComputationError
	require.True(t, errors.As(err, &cerr), "want *ComputationError, got %v", err)
	assert.Equal(t, asOf, cerr.Year)
}

func TestValidateDecumulation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*DecumulationInput)
		field  string
	}{
		{"negative btc", func(in *DecumulationInput) { in.InitialBTC = "-0.1" }, "initialBtc"},
		{"missing btc", func(in *DecumulationInput) { in.InitialBTC = "" }, "initialBtc"},
		{"start before as-of", func(in *DecumulationInput) { in.StartYear = "2024" }, "startYear"},
		{"start after target", func(in *DecumulationInput) { in.StartYear = "2051" }, "startYear"},
		{"fixed zero", func(in *DecumulationInput) { in.Policy.Amount = "0" }, "policy.amount"},
		{"percentage zero", func(in *DecumulationInput) {
			in.Policy = PolicyInput{Type: PolicyPercentage, Rate: "0"}
		}, "policy.rate"},
		{"percentage over 100", func(in *DecumulationInput) {
			in.Policy = PolicyInput{Type: PolicyPercentage, Rate: "100.5"}
		}, "policy.rate"},
		{"unknown policy", func(in *DecumulationInput) { in.Policy = PolicyInput{Type: "yolo"} }, "policy.type"},
		{"second phase same year", func(in *DecumulationInput) {
			in.SecondPhase = &SecondPhaseInput{Year: "2025", Policy: PolicyInput{Type: PolicyPercentage, Rate: "4"}}
		}, "secondPhase.year"},
		{"second phase before start", func(in *DecumulationInput) {
			in.StartYear = "2030"
			in.SecondPhase = &SecondPhaseInput{Year: "2028", Policy: PolicyInput{Type: PolicyPercentage, Rate: "4"}}
		}, "secondPhase.year"},
		{"second phase bad rate", func(in *DecumulationInput) {
			in.SecondPhase = &SecondPhaseInput{Year: "2030", Policy: PolicyInput{Type: PolicyPercentage, Rate: "-1"}}
		}, "secondPhase.rate"},
		{"tax over 100", func(in *DecumulationInput) { in.TaxRate = "101" }, "taxRate"},
		{"tax negative", func(in *DecumulationInput) { in.TaxRate = "-1" }, "taxRate"},
		{"exchange rate zero", func(in *DecumulationInput) { in.ExchangeRate = "0" }, "exchangeRate"},
		{"inflation negative", func(in *DecumulationInput) { in.InflationRate = "-2" }, "inflationRate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validDecumulation()
			tt.mutate(&in)
			_, err := ValidateDecumulation(in, asOf)
			fields := validationFields(t, err)
			assert.Contains(t, fields, tt.field)
			assert.Len(t, fields, 1)
		})
	}
}

func TestValidateDecumulationSecondPhaseOneYearAfterStart(t *testing.T) {
	in := validDecumulation()
	in.SecondPhase = &SecondPhaseInput{Year: "2026", Policy: PolicyInput{Type: PolicyFixed, Amount: "50000"}}

	d, err := ValidateDecumulation(in, asOf)
	require.NoError(t, err)
	assert.Equal(t, 2026, d.SecondPhaseYear)
	assert.Equal(t, 50000.0, d.SecondPolicy.MonthlyFiat)
}

func TestValidateDecumulationBoundaries(t *testing.T) {
	in := validDecumulation()
	in.TaxRate = "0"
	in.Policy = PolicyInput{Type: PolicyPercentage, Rate: "100"}
	_, err := ValidateDecumulation(in, asOf)
	require.NoError(t, err)

	in.TaxRate = "100"
	_, err = ValidateDecumulation(in, asOf)
	require.NoError(t, err)
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"years": "is required", "exchangeRate": "must be greater than 0"}}
	assert.Equal(t, "invalid input: exchangeRate must be greater than 0; years is required", err.Error())
}

func TestComputationErrorUnwrap(t *testing.T) {
	err := &ComputationError{Year: 2030, Msg: "model price unavailable", Err: powerlaw.ErrDayOutOfDomain}
	assert.ErrorIs(t, err, powerlaw.ErrDayOutOfDomain)
	assert.Contains(t, err.Error(), "2030")
}

func TestValidateRejectsUnrepresentableNumbers(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AccumulationInput)
		field  string
	}{
		{"huge exponent rate", func(in *AccumulationInput) { in.ExchangeRate = "1e2000000000" }, "exchangeRate"},
		{"huge negative exponent btc", func(in *AccumulationInput) { in.InitialBTC = "1e-2000000000" }, "initialBtc"},
		{"overflowing contribution", func(in *AccumulationInput) { in.MonthlyContribution = "1e400" }, "monthlyContribution"},
		{"underflowing contribution", func(in *AccumulationInput) { in.MonthlyContribution = "1e-400" }, "monthlyContribution"},
		{"overflowing digits", func(in *AccumulationInput) { in.MonthlyContribution = strings.Repeat("9", 400) }, "monthlyContribution"},
		{"overflowing inflation", func(in *AccumulationInput) { in.InflationRate = "1" + strings.Repeat("0", 320) }, "inflationRate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validAccumulation()
			tt.mutate(&in)
			records, err := RunAccumulation(in, asOf)
			assert.Nil(t, records)
			fields := validationFields(t, err)
			assert.Equal(t, "is out of range", fields[tt.field])
			assert.Len(t, fields, 1)
		})
	}
}

func TestValidateDecumulationRejectsUnrepresentableNumbers(t *testing.T) {
	in := validDecumulation()
	in.Policy.Amount = "1e400"
	in.TaxRate = "1e-2000000000"

	_, err := ValidateDecumulation(in, asOf)
	fields := validationFields(t, err)
	assert.Contains(t, fields, "policy.amount")
	assert.Contains(t, fields, "taxRate")
}

func TestLargeButFiniteInputsSimulate(t *testing.T) {
	in := validAccumulation()
	in.MonthlyContribution = "1e30"
	records, err := RunAccumulation(in, asOf)
	require.NoError(t, err)
	for _, r := range records {
		assert.False(t, math.IsInf(r.TotalValueFiat, 0), "year %d", r.Year)
	}
}

func TestAsOfYearOutOfRange(t *testing.T) {
	for _, year := range []int{math.MinInt, 0, MinAsOfYear - 1, TargetYear + 1, math.MaxInt - 1, math.MaxInt} {
		t.Run("accumulation", func(t *testing.T) {
			records, err := RunAccumulation(validAccumulation(), year)
			assert.Nil(t, records)
			assert.Contains(t, validationFields(t, err), "asOfYear")
		})
		t.Run("decumulation", func(t *testing.T) {
			records, err := RunDecumulation(validDecumulation(), year)
			assert.Nil(t, records)
			assert.Contains(t, validationFields(t, err), "asOfYear")
		})
	}
}

func TestSimulatorsCheckAsOfYearDirectly(t *testing.T) {
	a, err := ValidateAccumulation(validAccumulation())
	require.NoError(t, err)
	_, err = Accumulate(a, math.MaxInt)
	assert.Contains(t, validationFields(t, err), "asOfYear")

	d, err := ValidateDecumulation(validDecumulation(), asOf)
	require.NoError(t, err)
	_, err = Decumulate(d, math.MaxInt)
	assert.Contains(t, validationFields(t, err), "asOfYear")
}

func TestAsOfYearMergesWithFieldErrors(t *testing.T) {
	_, err := RunAccumulation(AccumulationInput{}, 0)
	fields := validationFields(t, err)
	assert.Contains(t, fields, "asOfYear")
	assert.Contains(t, fields, "years")
}

func TestAsOfYearBoundsAccepted(t *testing.T) {
	records, err := RunAccumulation(validAccumulation(), MinAsOfYear)
	require.NoError(t, err)
	assert.Equal(t, MinAsOfYear, records[0].Year)

	records, err = RunAccumulation(validAccumulation(), TargetYear)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, TargetYear+1, records[1].Year)
}
