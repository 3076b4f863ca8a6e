package calc

import (
	"errors"
	"math"

	"hesapkit.com/internal/money"
	"hesapkit.com/internal/rates"
	"hesapkit.com/internal/validate"
)

// Countries with rate tables.
var Countries = []string{rates.Turkey, rates.UnitedStates}

type TaxBand struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"` // zero for the open top band
	Rate  float64 `json:"rate"`
	Taxed float64 `json:"taxed"`
	Tax   float64 `json:"tax"`
}

type IncomeTaxResult struct {
	Country       string    `json:"country"`
	Year          int       `json:"year"`
	Currency      string    `json:"currency"`
	Gross         float64   `json:"gross"`
	Deduction     float64   `json:"deduction"`
	Taxable       float64   `json:"taxable"`
	Tax           float64   `json:"tax"`
	Net           float64   `json:"net"`
	EffectiveRate float64   `json:"effectiveRate"`
	MarginalRate  float64   `json:"marginalRate"`
	Bands         []TaxBand `json:"bands"`
}

// IncomeTax applies a year's progressive brackets to annual gross income.
// The US standard deduction is subtracted first; the Turkish wage table
// has none.
func IncomeTax(table *rates.Table, country string, year int, gross float64) (IncomeTaxResult, error) {
	errs := validate.New()
	validate.OneOf(errs, "country", country, Countries...)
	validate.Positive(errs, "income", gross)
	validate.AtMost(errs, "income", gross, MaxAmount)
	if err := errs.Err(); err != nil {
		return IncomeTaxResult{}, err
	}

	ty, err := table.TaxYear(country, year)
	if err != nil {
		return IncomeTaxResult{}, noData(errs, "year", year, err)
	}

	taxable := math.Max(0, gross-ty.StandardDeduction)
	res := IncomeTaxResult{
		Country:   country,
		Year:      year,
		Currency:  ty.Currency,
		Gross:     money.Round(gross),
		Deduction: math.Min(gross, ty.StandardDeduction),
		Taxable:   money.Round(taxable),
	}

	lower := 0.0
	tax := 0.0
	res.MarginalRate = ty.Brackets[0].Rate
	for _, b := range ty.Brackets {
		upper := b.UpTo
		if upper == 0 {
			upper = math.Inf(1)
		}
		if taxable > lower {
			portion := math.Min(taxable, upper) - lower
			bandTax := portion * b.Rate / 100
			tax += bandTax
			res.MarginalRate = b.Rate
			res.Bands = append(res.Bands, TaxBand{
				From:  lower,
				To:    b.UpTo,
				Rate:  b.Rate,
				Taxed: money.Round(portion),
				Tax:   money.Round(bandTax),
			})
		}
		lower = upper
		if math.IsInf(lower, 1) {
			break
		}
	}

	res.Tax = money.Round(tax)
	res.Net = money.Round(gross - tax)
	res.EffectiveRate = money.Round(tax / gross * 100)
	return res, nil
}

type InflationYear struct {
	Year   int     `json:"year"`
	Rate   float64 `json:"rate"`
	Amount float64 `json:"amount"`
}

type InflationResult struct {
	Country             string          `json:"country"`
	Source              string          `json:"source"`
	FromYear            int             `json:"fromYear"`
	ToYear              int             `json:"toYear"`
	Amount              float64         `json:"amount"`
	Adjusted            float64         `json:"adjusted"`
	CumulativeInflation float64         `json:"cumulativeInflation"`
	AverageAnnualRate   float64         `json:"averageAnnualRate"`
	Steps               []InflationYear `json:"steps"`
}

// InflationAdjust restates an amount from the end of fromYear in the money
// of the end of toYear: amount * prod(1 + rate_y) for y in (fromYear, toYear].
// Going back in time divides by the same product.
func InflationAdjust(table *rates.Table, country string, amount float64, fromYear, toYear int) (InflationResult, error) {
	errs := validate.New()
	validate.OneOf(errs, "country", country, Countries...)
	validate.Positive(errs, "amount", amount)
	validate.AtMost(errs, "amount", amount, MaxAmount)
	if err := errs.Err(); err != nil {
		return InflationResult{}, err
	}

	lo, hi := fromYear, toYear
	if lo > hi {
		lo, hi = hi, lo
	}

	factor := 1.0
	var steps []InflationYear
	for y := lo + 1; y <= hi; y++ {
		rate, err := table.Inflation(country, y)
		if err != nil {
			field := "to"
			if fromYear > toYear {
				field = "from"
			}
			return InflationResult{}, noData(errs, field, y, err)
		}
		factor *= 1 + rate/100
		steps = append(steps, InflationYear{Year: y, Rate: rate, Amount: money.Round(amount * factor)})
	}

	adjusted := amount * factor
	if fromYear > toYear {
		// Step amounts only make sense going forward.
		adjusted = amount / factor
		steps = nil
	}

	res := InflationResult{
		Country:             country,
		Source:              table.InflationSource(country),
		FromYear:            fromYear,
		ToYear:              toYear,
		Amount:              money.Round(amount),
		Adjusted:            money.Round(adjusted),
		CumulativeInflation: money.Round((factor - 1) * 100),
		Steps:               steps,
	}
	if n := hi - lo; n > 0 {
		res.AverageAnnualRate = money.Round((math.Pow(factor, 1/float64(n)) - 1) * 100)
	}
	return res, nil
}

// BES vesting: share of the state contribution a participant keeps when
// leaving the system before retirement, by years in the system.
var besVesting = []struct {
	minYears int
	percent  float64
}{
	{10, 60},
	{6, 35},
	{3, 15},
	{0, 0},
}

func besVestedPercent(years int) float64 {
	for _, v := range besVesting {
		if years >= v.minYears {
			return v.percent
		}
	}
	return 0
}

type BESInput struct {
	MonthlyContribution float64 `json:"monthlyContribution"`
	Years               int     `json:"years"`
	AnnualReturn        float64 `json:"annualReturn"`
	StartYear           int     `json:"startYear"`
}

type BESResult struct {
	OwnContributions   float64 `json:"ownContributions"`
	StateContributions float64 `json:"stateContributions"`
	ProjectedBalance   float64 `json:"projectedBalance"`
	InvestmentReturn   float64 `json:"investmentReturn"`
	VestedStatePercent float64 `json:"vestedStatePercent"`
	VestedStateAmount  float64 `json:"vestedStateAmount"`
	CappedYears        int     `json:"cappedYears"`
}

// BESProjection projects a private pension account. Each month the state
// adds its rate of the contribution until the year's cap is reached.
// Years beyond the table reuse the newest row. The state portion grows with
// the fund like own contributions do.
func BESProjection(table *rates.Table, in BESInput) (BESResult, error) {
	errs := validate.New()
	validate.Positive(errs, "contribution", in.MonthlyContribution)
	validate.AtMost(errs, "contribution", in.MonthlyContribution, 10_000_000)
	validate.Range(errs, "years", float64(in.Years), 1, 50)
	validate.Range(errs, "return", in.AnnualReturn, 0, 200)
	validate.Range(errs, "start", float64(in.StartYear), 2000, 2100)
	if err := errs.Err(); err != nil {
		return BESResult{}, err
	}

	monthlyReturn := math.Pow(1+in.AnnualReturn/100, 1.0/12) - 1

	var own, state, ownBalance, stateBalance float64
	var capped int
	for y := 0; y < in.Years; y++ {
		row, err := table.BES(in.StartYear + y)
		if errors.Is(err, rates.ErrNoData) {
			row = table.LatestBES()
		}
		yearCap := row.AnnualCap()
		yearState := 0.0
		hitCap := false
		for m := 0; m < 12; m++ {
			s := in.MonthlyContribution * row.StateRate / 100
			if yearState+s > yearCap {
				s = math.Max(0, yearCap-yearState)
				hitCap = true
			}
			yearState += s
			own += in.MonthlyContribution
			ownBalance = ownBalance*(1+monthlyReturn) + in.MonthlyContribution
			stateBalance = stateBalance*(1+monthlyReturn) + s
		}
		state += yearState
		if hitCap {
			capped++
		}
	}

	vested := besVestedPercent(in.Years)
	balance := ownBalance + stateBalance
	return BESResult{
		OwnContributions:   money.Round(own),
		StateContributions: money.Round(state),
		ProjectedBalance:   money.Round(balance),
		InvestmentReturn:   money.Round(balance - own - state),
		VestedStatePercent: vested,
		VestedStateAmount:  money.Round(stateBalance * vested / 100),
		CappedYears:        capped,
	}, nil
}

func noData(errs *validate.Errors, field string, year int, cause error) error {
	if errors.Is(cause, rates.ErrNoData) {
		errs.Add(field, validate.CodeNoData, year)
		return errs
	}
	return cause
}
