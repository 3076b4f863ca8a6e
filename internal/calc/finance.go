package calc

import (
	"math"

	"hesapkit.com/internal/money"
	"hesapkit.com/internal/validate"
)

// Input limits shared by the finance calculators.
const (
	MaxAmount       = 1_000_000_000.0
	MaxInterestRate = 1000.0 // percent per year
	MaxTermMonths   = 600
	MaxPeople       = 100
	MaxYears        = 100
)

type TipResult struct {
	TipAmount    float64 `json:"tipAmount"`
	Total        float64 `json:"total"`
	PerPerson    float64 `json:"perPerson"`
	TipPerPerson float64 `json:"tipPerPerson"`
	// Shares is what each person pays; they add up to Total exactly and
	// PerPerson is the first, largest one.
	Shares []float64 `json:"shares"`
}

// Tip splits a bill and its tip between people.
func Tip(bill, tipPercent float64, people int) (TipResult, error) {
	errs := validate.New()
	validate.Positive(errs, "bill", bill)
	validate.AtMost(errs, "bill", bill, MaxAmount)
	validate.Range(errs, "tip", tipPercent, 0, 100)
	validate.Range(errs, "people", float64(people), 1, MaxPeople)
	if err := errs.Err(); err != nil {
		return TipResult{}, err
	}

	tip := money.Round(bill * tipPercent / 100)
	total := money.Sum(money.Round(bill), tip)
	shares := money.Split(total, people)
	return TipResult{
		TipAmount:    tip,
		Total:        total,
		PerPerson:    shares[0],
		TipPerPerson: money.Split(tip, people)[0],
		Shares:       shares,
	}, nil
}

type LoanInput struct {
	Principal  float64 `json:"principal"`
	AnnualRate float64 `json:"annualRate"`
	Months     int     `json:"months"`
}

type LoanResult struct {
	MonthlyPayment float64 `json:"monthlyPayment"`
	TotalPayment   float64 `json:"totalPayment"`
	TotalInterest  float64 `json:"totalInterest"`
}

type AmortizationRow struct {
	Month     int     `json:"month"`
	Payment   float64 `json:"payment"`
	Principal float64 `json:"principal"`
	Interest  float64 `json:"interest"`
	Balance   float64 `json:"balance"`
}

func (in LoanInput) validate() error {
	errs := validate.New()
	validate.Positive(errs, "principal", in.Principal)
	validate.AtMost(errs, "principal", in.Principal, MaxAmount)
	validate.Range(errs, "rate", in.AnnualRate, 0, MaxInterestRate)
	validate.Range(errs, "months", float64(in.Months), 1, MaxTermMonths)
	return errs.Err()
}

// monthlyPayment is the unrounded annuity payment P*r/(1-(1+r)^-n).
func (in LoanInput) monthlyPayment() float64 {
	if in.AnnualRate == 0 {
		return in.Principal / float64(in.Months)
	}
	r := in.AnnualRate / 100 / 12
	n := float64(in.Months)
	return in.Principal * (r / (1 - math.Pow(1+r, -n)))
}

// Loan computes the fixed monthly payment of a fully amortizing loan.
func Loan(in LoanInput) (LoanResult, error) {
	if err := in.validate(); err != nil {
		return LoanResult{}, err
	}

	payment := in.monthlyPayment()
	total := payment * float64(in.Months)
	return LoanResult{
		MonthlyPayment: money.Round(payment),
		TotalPayment:   money.Round(total),
		TotalInterest:  money.Round(total - in.Principal),
	}, nil
}

// AmortizationSchedule lists every monthly payment of the loan. Each row's
// payment is the rounded monthly payment; the last row pays off whatever
// balance is left so the schedule always ends at zero.
func AmortizationSchedule(in LoanInput) ([]AmortizationRow, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	r := in.AnnualRate / 100 / 12
	payment := money.Round(in.monthlyPayment())
	balance := money.Round(in.Principal)

	rows := make([]AmortizationRow, 0, in.Months)
	for month := 1; month <= in.Months; month++ {
		interest := money.Round(balance * r)
		principal := money.Round(payment - interest)
		if month == in.Months || principal > balance {
			principal = balance
		}
		balance = money.Round(balance - principal)
		rows = append(rows, AmortizationRow{
			Month:     month,
			Payment:   money.Sum(principal, interest),
			Principal: principal,
			Interest:  interest,
			Balance:   balance,
		})
		if balance == 0 {
			break
		}
	}
	return rows, nil
}

type SimpleInterestResult struct {
	Interest float64 `json:"interest"`
	Total    float64 `json:"total"`
}

// SimpleInterest is principal*rate*years with no compounding.
func SimpleInterest(principal, annualRate, years float64) (SimpleInterestResult, error) {
	errs := validate.New()
	validate.Positive(errs, "principal", principal)
	validate.AtMost(errs, "principal", principal, MaxAmount)
	validate.Range(errs, "rate", annualRate, 0, MaxInterestRate)
	validate.Range(errs, "years", years, 0, MaxYears)
	if err := errs.Err(); err != nil {
		return SimpleInterestResult{}, err
	}

	interest := principal * annualRate / 100 * years
	return SimpleInterestResult{
		Interest: money.Round(interest),
		Total:    money.Round(principal + interest),
	}, nil
}

// CompoundingFrequencies are the accepted compounds-per-year values.
var CompoundingFrequencies = []int{1, 2, 4, 12, 365}

type CompoundInput struct {
	Principal           float64 `json:"principal"`
	AnnualRate          float64 `json:"annualRate"`
	Years               int     `json:"years"`
	CompoundsPerYear    int     `json:"compoundsPerYear"`
	MonthlyContribution float64 `json:"monthlyContribution"`
}

type CompoundYear struct {
	Year          int     `json:"year"`
	Contributions float64 `json:"contributions"`
	Interest      float64 `json:"interest"`
	Balance       float64 `json:"balance"`
}

type CompoundResult struct {
	FinalAmount        float64        `json:"finalAmount"`
	TotalContributions float64        `json:"totalContributions"`
	InterestEarned     float64        `json:"interestEarned"`
	Years              []CompoundYear `json:"years"`
}

// CompoundInterest grows a principal plus end-of-month contributions.
// Interest compounds CompoundsPerYear times a year; it is applied monthly
// at the equivalent effective rate so contributions and compounding can
// use different periods.
func CompoundInterest(in CompoundInput) (CompoundResult, error) {
	errs := validate.New()
	validate.Range(errs, "principal", in.Principal, 0, MaxAmount)
	validate.Range(errs, "rate", in.AnnualRate, 0, 100)
	validate.Range(errs, "years", float64(in.Years), 1, MaxYears)
	validate.Range(errs, "contribution", in.MonthlyContribution, 0, MaxAmount)
	if !containsInt(CompoundingFrequencies, in.CompoundsPerYear) {
		errs.Add("compounding", validate.CodeInvalidChoice, "1, 2, 4, 12, 365")
	}
	if in.Principal == 0 && in.MonthlyContribution == 0 && !errs.Has("principal") {
		errs.Add("principal", validate.CodeTooSmall, 0)
	}
	if err := errs.Err(); err != nil {
		return CompoundResult{}, err
	}

	n := float64(in.CompoundsPerYear)
	monthly := math.Pow(1+in.AnnualRate/100/n, n/12) - 1

	balance := in.Principal
	contributed := in.Principal
	years := make([]CompoundYear, 0, in.Years)
	for y := 1; y <= in.Years; y++ {
		for m := 0; m < 12; m++ {
			balance = balance*(1+monthly) + in.MonthlyContribution
			contributed += in.MonthlyContribution
		}
		years = append(years, CompoundYear{
			Year:          y,
			Contributions: money.Round(contributed),
			Interest:      money.Round(balance - contributed),
			Balance:       money.Round(balance),
		})
	}

	return CompoundResult{
		FinalAmount:        money.Round(balance),
		TotalContributions: money.Round(contributed),
		InterestEarned:     money.Round(balance - contributed),
		Years:              years,
	}, nil
}

type DiscountResult struct {
	Saving     float64 `json:"saving"`
	FinalPrice float64 `json:"finalPrice"`
}

func Discount(price, percent float64) (DiscountResult, error) {
	errs := validate.New()
	validate.Positive(errs, "price", price)
	validate.AtMost(errs, "price", price, MaxAmount)
	validate.Range(errs, "percent", percent, 0, 100)
	if err := errs.Err(); err != nil {
		return DiscountResult{}, err
	}

	saving := price * percent / 100
	return DiscountResult{
		Saving:     money.Round(saving),
		FinalPrice: money.Round(price - saving),
	}, nil
}

type VATResult struct {
	Net   float64 `json:"net"`
	VAT   float64 `json:"vat"`
	Gross float64 `json:"gross"`
}

// VAT adds tax to a net amount, or extracts it from a gross amount when
// inclusive is set.
func VAT(amount, ratePercent float64, inclusive bool) (VATResult, error) {
	errs := validate.New()
	validate.Positive(errs, "amount", amount)
	validate.AtMost(errs, "amount", amount, MaxAmount)
	validate.Range(errs, "rate", ratePercent, 0, 100)
	if err := errs.Err(); err != nil {
		return VATResult{}, err
	}

	if inclusive {
		net := money.Round(amount / (1 + ratePercent/100))
		gross := money.Round(amount)
		return VATResult{Net: net, VAT: money.Round(gross - net), Gross: gross}, nil
	}
	net := money.Round(amount)
	vat := money.Round(amount * ratePercent / 100)
	return VATResult{Net: net, VAT: vat, Gross: money.Sum(net, vat)}, nil
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
