package calc

import (
	"net/url"
	"strconv"

	"hesapkit.com/internal/rates"
	"hesapkit.com/internal/validate"
)

// Calculator IDs.
const (
	IDTip              = "tip"
	IDLoan             = "loan"
	IDSimpleInterest   = "simple-interest"
	IDCompoundInterest = "compound-interest"
	IDInflation        = "inflation"
	IDIncomeTax        = "income-tax"
	IDVAT              = "vat"
	IDBES              = "bes"
	IDDiscount         = "discount"
	IDBMI              = "bmi"
	IDBMR              = "bmr"
	IDPercentage       = "percentage"
	IDAge              = "age"
	IDDateDiff         = "date-diff"
	IDGPA              = "gpa"
	IDExamAverage      = "exam-average"
)

const gpaRows = 8

func builtinSpecs(table *rates.Table) []Spec {
	trYears := table.InflationYears(rates.Turkey)
	taxYears := table.TaxYears(rates.Turkey)
	kdv := make([]string, len(table.KDV.Rates))
	for i, r := range table.KDV.Rates {
		kdv[i] = strconv.FormatFloat(r, 'f', -1, 64)
	}

	return []Spec{
		{
			ID: IDTip,
			Inputs: []Input{
				{Name: "bill", Kind: InputNumber, Min: ptr(0), Step: "0.01"},
				{Name: "tip", Kind: InputNumber, Default: "15", Min: ptr(0), Max: ptr(100), Step: "0.5"},
				{Name: "people", Kind: InputInteger, Default: "1", Min: ptr(1), Max: ptr(MaxPeople)},
			},
			eval: evalTip,
		},
		{
			ID: IDLoan,
			Inputs: []Input{
				{Name: "principal", Kind: InputNumber, Min: ptr(0), Step: "0.01"},
				{Name: "rate", Kind: InputNumber, Min: ptr(0), Max: ptr(MaxInterestRate), Step: "0.01"},
				{Name: "months", Kind: InputInteger, Default: "12", Min: ptr(1), Max: ptr(MaxTermMonths)},
			},
			eval: evalLoan,
		},
		{
			ID: IDSimpleInterest,
			Inputs: []Input{
				{Name: "principal", Kind: InputNumber, Min: ptr(0), Step: "0.01"},
				{Name: "rate", Kind: InputNumber, Min: ptr(0), Step: "0.01"},
				{Name: "years", Kind: InputNumber, Default: "1", Min: ptr(0), Max: ptr(MaxYears), Step: "0.25"},
			},
			eval: evalSimpleInterest,
		},
		{
			ID: IDCompoundInterest,
			Inputs: []Input{
				{Name: "principal", Kind: InputNumber, Min: ptr(0), Step: "0.01"},
				{Name: "rate", Kind: InputNumber, Min: ptr(0), Max: ptr(100), Step: "0.01"},
				{Name: "years", Kind: InputInteger, Default: "10", Min: ptr(1), Max: ptr(MaxYears)},
				{Name: "compounding", Kind: InputSelect, Default: "12", Options: []string{"1", "2", "4", "12", "365"}},
				{Name: "contribution", Kind: InputNumber, Default: "0", Min: ptr(0), Step: "0.01", Optional: true},
			},
			eval: evalCompound,
		},
		{
			ID: IDInflation,
			Inputs: []Input{
				{Name: "country", Kind: InputSelect, Options: Countries, LocaleOptions: map[string][]string{"tr": {rates.Turkey, rates.UnitedStates}, "en": {rates.UnitedStates, rates.Turkey}}},
				{Name: "amount", Kind: InputNumber, Min: ptr(0), Step: "0.01"},
				{Name: "from", Kind: InputSelect, Default: firstYear(trYears), Options: yearOptions(trYears)},
				{Name: "to", Kind: InputSelect, Default: lastYear(trYears), Options: yearOptions(trYears)},
			},
			eval: evalInflation,
		},
		{
			ID: IDIncomeTax,
			Inputs: []Input{
				{Name: "country", Kind: InputSelect, Options: Countries, LocaleOptions: map[string][]string{"tr": {rates.Turkey, rates.UnitedStates}, "en": {rates.UnitedStates, rates.Turkey}}},
				{Name: "year", Kind: InputSelect, Default: lastYear(taxYears), Options: yearOptions(taxYears)},
				{Name: "income", Kind: InputNumber, Min: ptr(0), Step: "0.01"},
			},
			eval: evalIncomeTax,
		},
		{
			ID: IDVAT,
			Inputs: []Input{
				{Name: "amount", Kind: InputNumber, Min: ptr(0), Step: "0.01"},
				{Name: "rate", Kind: InputSelect, Default: strconv.FormatFloat(table.KDV.Default, 'f', -1, 64), Options: kdv},
				{Name: "inclusive", Kind: InputSelect, Default: "0", Options: []string{"0", "1"}},
			},
			eval: evalVAT,
		},
		{
			ID: IDBES,
			Inputs: []Input{
				{Name: "contribution", Kind: InputNumber, Min: ptr(0), Step: "0.01"},
				{Name: "years", Kind: InputInteger, Default: "10", Min: ptr(1), Max: ptr(50)},
				{Name: "return", Kind: InputNumber, Default: "30", Min: ptr(0), Max: ptr(200), Step: "0.1"},
				{Name: "start", Kind: InputInteger, Default: strconv.Itoa(table.LatestBES().Year), Min: ptr(2000), Max: ptr(2100)},
			},
			eval: evalBES,
		},
		{
			ID: IDDiscount,
			Inputs: []Input{
				{Name: "price", Kind: InputNumber, Min: ptr(0), Step: "0.01"},
				{Name: "percent", Kind: InputNumber, Min: ptr(0), Max: ptr(100), Step: "0.5"},
			},
			eval: evalDiscount,
		},
		{
			ID: IDBMI,
			Inputs: []Input{
				{Name: "weight", Kind: InputNumber, Min: ptr(1), Max: ptr(500), Step: "0.1"},
				{Name: "height", Kind: InputNumber, Min: ptr(50), Max: ptr(300), Step: "0.1"},
			},
			eval: evalBMI,
		},
		{
			ID: IDBMR,
			Inputs: []Input{
				{Name: "sex", Kind: InputSelect, Options: []string{"female", "male"}},
				{Name: "age", Kind: InputInteger, Min: ptr(1), Max: ptr(120)},
				{Name: "weight", Kind: InputNumber, Min: ptr(1), Max: ptr(500), Step: "0.1"},
				{Name: "height", Kind: InputNumber, Min: ptr(50), Max: ptr(300), Step: "0.1"},
				{Name: "activity", Kind: InputSelect, Default: "sedentary", Options: ActivityLevels},
			},
			eval: evalBMR,
		},
		{
			ID: IDPercentage,
			Inputs: []Input{
				{Name: "mode", Kind: InputSelect, Default: PercentModeOf, Options: PercentModes},
				{Name: "a", Kind: InputNumber, Step: "any"},
				{Name: "b", Kind: InputNumber, Step: "any"},
			},
			eval: evalPercentage,
		},
		{
			ID: IDAge,
			Inputs: []Input{
				{Name: "birth", Kind: InputDate},
				{Name: "on", Kind: InputDate, Optional: true},
			},
			eval: evalAge,
		},
		{
			ID: IDDateDiff,
			Inputs: []Input{
				{Name: "start", Kind: InputDate},
				{Name: "end", Kind: InputDate},
			},
			eval: evalDateDiff,
		},
		{
			ID: IDGPA,
			Inputs: []Input{
				{Name: "grade", Kind: InputSelect, Options: USGrades, LocaleOptions: map[string][]string{"tr": TurkishGrades}, Repeat: gpaRows},
				{Name: "credit", Kind: InputNumber, Min: ptr(0.5), Max: ptr(30), Step: "0.5", Repeat: gpaRows},
			},
			eval: evalGPA,
		},
		{
			ID: IDExamAverage,
			Inputs: []Input{
				{Name: "score", Kind: InputNumber, Min: ptr(0), Max: ptr(100), Step: "0.01", Repeat: 5},
				{Name: "weight", Kind: InputNumber, Min: ptr(0), Max: ptr(100), Step: "1", Repeat: 5},
			},
			eval: evalExamAverage,
		},
	}
}

func evalTip(_ *Engine, p url.Values, nf validate.NumberFormat, errs *validate.Errors) (*Evaluation, error) {
	bill := validate.ParseFloatParam(p, "bill", nf, errs)
	tip := validate.OptionalFloatParam(p, "tip", 15, nf, errs)
	people := validate.OptionalIntParam(p, "people", 1, nf, errs)
	if err := errs.Err(); err != nil {
		return nil, err
	}
	r, err := Tip(bill, tip, people)
	if err != nil {
		return nil, err
	}
	return &Evaluation{
		Result: r,
		Outputs: []Output{
			{Key: "perPerson", Value: r.PerPerson, Kind: OutputMoney},
			{Key: "tipAmount", Value: r.TipAmount, Kind: OutputMoney},
			{Key: "total", Value: r.Total, Kind: OutputMoney},
			{Key: "tipPerPerson", Value: r.TipPerPerson, Kind: OutputMoney},
		},
	}, nil
}

func evalLoan(_ *Engine, p url.Values, nf validate.NumberFormat, errs *validate.Errors) (*Evaluation, error) {
	in := LoanInput{
		Principal:  validate.ParseFloatParam(p, "principal", nf, errs),
		AnnualRate: validate.ParseFloatParam(p, "rate", nf, errs),
		Months:     validate.ParseIntParam(p, "months", nf, errs),
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	r, err := Loan(in)
	if err != nil {
		return nil, err
	}
	schedule, err := AmortizationSchedule(in)
	if err != nil {
		return nil, err
	}

	t := &Table{Columns: []Column{
		{Key: "month", Kind: OutputInteger},
		{Key: "payment", Kind: OutputMoney},
		{Key: "principal", Kind: OutputMoney},
		{Key: "interest", Kind: OutputMoney},
		{Key: "balance", Kind: OutputMoney},
	}}
	for _, row := range schedule {
		t.Rows = append(t.Rows, []float64{float64(row.Month), row.Payment, row.Principal, row.Interest, row.Balance})
	}

	return &Evaluation{
		Result: struct {
			LoanResult
			Schedule []AmortizationRow `json:"schedule"`
		}{r, schedule},
		Outputs: []Output{
			{Key: "monthlyPayment", Value: r.MonthlyPayment, Kind: OutputMoney},
			{Key: "totalPayment", Value: r.TotalPayment, Kind: OutputMoney},
			{Key: "totalInterest", Value: r.TotalInterest, Kind: OutputMoney},
		},
		Table: t,
	}, nil
}

func evalSimpleInterest(_ *Engine, p url.Values, nf validate.NumberFormat, errs *validate.Errors) (*Evaluation, error) {
	principal := validate.ParseFloatParam(p, "principal", nf, errs)
	rate := validate.ParseFloatParam(p, "rate", nf, errs)
	years := validate.OptionalFloatParam(p, "years", 1, nf, errs)
	if err := errs.Err(); err != nil {
		return nil, err
	}
	r, err := SimpleInterest(principal, rate, years)
	if err != nil {
		return nil, err
	}
	return &Evaluation{
		Result: r,
		Outputs: []Output{
			{Key: "total", Value: r.Total, Kind: OutputMoney},
			{Key: "interest", Value: r.Interest, Kind: OutputMoney},
		},
	}, nil
}

func evalCompound(_ *Engine, p url.Values, nf validate.NumberFormat, errs *validate.Errors) (*Evaluation, error) {
	in := CompoundInput{
		Principal:           validate.ParseFloatParam(p, "principal", nf, errs),
		AnnualRate:          validate.ParseFloatParam(p, "rate", nf, errs),
		Years:               validate.OptionalIntParam(p, "years", 10, nf, errs),
		CompoundsPerYear:    validate.OptionalIntParam(p, "compounding", 12, nf, errs),
		MonthlyContribution: validate.OptionalFloatParam(p, "contribution", 0, nf, errs),
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	r, err := CompoundInterest(in)
	if err != nil {
		return nil, err
	}

	t := &Table{Columns: []Column{
		{Key: "year", Kind: OutputInteger},
		{Key: "contributions", Kind: OutputMoney},
		{Key: "interest", Kind: OutputMoney},
		{Key: "balance", Kind: OutputMoney},
	}}
	for _, y := range r.Years {
		t.Rows = append(t.Rows, []float64{float64(y.Year), y.Contributions, y.Interest, y.Balance})
	}

	return &Evaluation{
		Result: r,
		Outputs: []Output{
			{Key: "finalAmount", Value: r.FinalAmount, Kind: OutputMoney},
			{Key: "totalContributions", Value: r.TotalContributions, Kind: OutputMoney},
			{Key: "interestEarned", Value: r.InterestEarned, Kind: OutputMoney},
		},
		Table: t,
	}, nil
}

func evalInflation(e *Engine, p url.Values, nf validate.NumberFormat, errs *validate.Errors) (*Evaluation, error) {
	country := p.Get("country")
	amount := validate.ParseFloatParam(p, "amount", nf, errs)
	from := validate.ParseIntParam(p, "from", nf, errs)
	to := validate.ParseIntParam(p, "to", nf, errs)
	if err := errs.Err(); err != nil {
		return nil, err
	}
	r, err := InflationAdjust(e.rates, country, amount, from, to)
	if err != nil {
		return nil, err
	}

	var t *Table
	if len(r.Steps) > 0 {
		t = &Table{Columns: []Column{
			{Key: "year", Kind: OutputInteger},
			{Key: "rate", Kind: OutputPercent},
			{Key: "amount", Kind: OutputMoney},
		}}
		for _, s := range r.Steps {
			t.Rows = append(t.Rows, []float64{float64(s.Year), s.Rate, s.Amount})
		}
	}

	return &Evaluation{
		Currency: currencyFor(country),
		Result:   r,
		Outputs: []Output{
			{Key: "adjusted", Value: r.Adjusted, Kind: OutputMoney},
			{Key: "cumulativeInflation", Value: r.CumulativeInflation, Kind: OutputPercent},
			{Key: "averageAnnualRate", Value: r.AverageAnnualRate, Kind: OutputPercent},
			{Key: "source", Text: r.Source, Kind: OutputText},
		},
		Table: t,
	}, nil
}

func evalIncomeTax(e *Engine, p url.Values, nf validate.NumberFormat, errs *validate.Errors) (*Evaluation, error) {
	country := p.Get("country")
	year := validate.ParseIntParam(p, "year", nf, errs)
	income := validate.ParseFloatParam(p, "income", nf, errs)
	if err := errs.Err(); err != nil {
		return nil, err
	}
	r, err := IncomeTax(e.rates, country, year, income)
	if err != nil {
		return nil, err
	}

	t := &Table{Columns: []Column{
		{Key: "from", Kind: OutputMoney},
		{Key: "to", Kind: OutputMoney},
		{Key: "rate", Kind: OutputPercent},
		{Key: "taxed", Kind: OutputMoney},
		{Key: "tax", Kind: OutputMoney},
	}}
	for _, b := range r.Bands {
		t.Rows = append(t.Rows, []float64{b.From, b.To, b.Rate, b.Taxed, b.Tax})
	}

	return &Evaluation{
		Currency: r.Currency,
		Result:   r,
		Outputs: []Output{
			{Key: "tax", Value: r.Tax, Kind: OutputMoney},
			{Key: "net", Value: r.Net, Kind: OutputMoney},
			{Key: "taxable", Value: r.Taxable, Kind: OutputMoney},
			{Key: "effectiveRate", Value: r.EffectiveRate, Kind: OutputPercent},
			{Key: "marginalRate", Value: r.MarginalRate, Kind: OutputPercent},
		},
		Table: t,
	}, nil
}

func evalVAT(_ *Engine, p url.Values, nf validate.NumberFormat, errs *validate.Errors) (*Evaluation, error) {
	amount := validate.ParseFloatParam(p, "amount", nf, errs)
	rate := validate.OptionalFloatParam(p, "rate", 20, nf, errs)
	if err := errs.Err(); err != nil {
		return nil, err
	}
	r, err := VAT(amount, rate, boolParam(p, "inclusive"))
	if err != nil {
		return nil, err
	}
	return &Evaluation{
		Result: r,
		Outputs: []Output{
			{Key: "vat", Value: r.VAT, Kind: OutputMoney},
			{Key: "net", Value: r.Net, Kind: OutputMoney},
			{Key: "gross", Value: r.Gross, Kind: OutputMoney},
		},
	}, nil
}

func evalBES(e *Engine, p url.Values, nf validate.NumberFormat, errs *validate.Errors) (*Evaluation, error) {
	in := BESInput{
		MonthlyContribution: validate.ParseFloatParam(p, "contribution", nf, errs),
		Years:               validate.OptionalIntParam(p, "years", 10, nf, errs),
		AnnualReturn:        validate.OptionalFloatParam(p, "return", 30, nf, errs),
		StartYear:           validate.OptionalIntParam(p, "start", e.now().Year(), nf, errs),
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	r, err := BESProjection(e.rates, in)
	if err != nil {
		return nil, err
	}
	return &Evaluation{
		Currency: "TRY",
		Result:   r,
		Outputs: []Output{
			{Key: "projectedBalance", Value: r.ProjectedBalance, Kind: OutputMoney},
			{Key: "ownContributions", Value: r.OwnContributions, Kind: OutputMoney},
			{Key: "stateContributions", Value: r.StateContributions, Kind: OutputMoney},
			{Key: "investmentReturn", Value: r.InvestmentReturn, Kind: OutputMoney},
			{Key: "vestedStatePercent", Value: r.VestedStatePercent, Kind: OutputPercent},
			{Key: "vestedStateAmount", Value: r.VestedStateAmount, Kind: OutputMoney},
		},
	}, nil
}

func evalDiscount(_ *Engine, p url.Values, nf validate.NumberFormat, errs *validate.Errors) (*Evaluation, error) {
	price := validate.ParseFloatParam(p, "price", nf, errs)
	percent := validate.ParseFloatParam(p, "percent", nf, errs)
	if err := errs.Err(); err != nil {
		return nil, err
	}
	r, err := Discount(price, percent)
	if err != nil {
		return nil, err
	}
	return &Evaluation{
		Result: r,
		Outputs: []Output{
			{Key: "finalPrice", Value: r.FinalPrice, Kind: OutputMoney},
			{Key: "saving", Value: r.Saving, Kind: OutputMoney},
		},
	}, nil
}

func evalBMI(_ *Engine, p url.Values, nf validate.NumberFormat, errs *validate.Errors) (*Evaluation, error) {
	weight := validate.ParseFloatParam(p, "weight", nf, errs)
	height := validate.ParseFloatParam(p, "height", nf, errs)
	if err := errs.Err(); err != nil {
		return nil, err
	}
	r, err := BMI(weight, height)
	if err != nil {
		return nil, err
	}
	return &Evaluation{
		Result: r,
		Outputs: []Output{
			{Key: "bmi", Value: r.BMI, Kind: OutputNumber},
			{Key: "category", Text: r.Category, Kind: OutputText},
			{Key: "healthyWeightLo", Value: r.HealthyWeightLo, Kind: OutputNumber},
			{Key: "healthyWeightHi", Value: r.HealthyWeightHi, Kind: OutputNumber},
		},
	}, nil
}

func evalBMR(_ *Engine, p url.Values, nf validate.NumberFormat, errs *validate.Errors) (*Evaluation, error) {
	sex := p.Get("sex")
	age := validate.ParseIntParam(p, "age", nf, errs)
	weight := validate.ParseFloatParam(p, "weight", nf, errs)
	height := validate.ParseFloatParam(p, "height", nf, errs)
	activity := p.Get("activity")
	if activity == "" {
		activity = "sedentary"
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	r, err := BMR(sex, weight, height, age, activity)
	if err != nil {
		return nil, err
	}
	return &Evaluation{
		Result: r,
		Outputs: []Output{
			{Key: "tdee", Value: r.TDEE, Kind: OutputInteger},
			{Key: "bmr", Value: r.BMR, Kind: OutputInteger},
		},
	}, nil
}

func evalPercentage(_ *Engine, p url.Values, nf validate.NumberFormat, errs *validate.Errors) (*Evaluation, error) {
	mode := p.Get("mode")
	if mode == "" {
		mode = PercentModeOf
	}
	a := validate.ParseFloatParam(p, "a", nf, errs)
	b := validate.ParseFloatParam(p, "b", nf, errs)
	if err := errs.Err(); err != nil {
		return nil, err
	}
	r, err := Percentage(mode, a, b)
	if err != nil {
		return nil, err
	}
	kind := OutputPercent
	if mode == PercentModeOf {
		kind = OutputNumber
	}
	return &Evaluation{
		Result:  r,
		Outputs: []Output{{Key: "result", Value: r.Result, Kind: kind}},
	}, nil
}

func evalAge(e *Engine, p url.Values, nf validate.NumberFormat, errs *validate.Errors) (*Evaluation, error) {
	birth := validate.ParseDateParam(p, "birth", errs)
	on := e.now()
	if p.Get("on") != "" {
		on = validate.ParseDateParam(p, "on", errs)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	r, err := Age(birth, on)
	if err != nil {
		return nil, err
	}
	return &Evaluation{
		Result: r,
		Outputs: []Output{
			{Key: "years", Value: float64(r.Years), Kind: OutputInteger},
			{Key: "months", Value: float64(r.Months), Kind: OutputInteger},
			{Key: "days", Value: float64(r.Days), Kind: OutputInteger},
			{Key: "totalDays", Value: float64(r.TotalDays), Kind: OutputInteger},
			{Key: "totalWeeks", Value: float64(r.TotalWeeks), Kind: OutputInteger},
			{Key: "daysToBirthday", Value: float64(r.DaysToBirthday), Kind: OutputInteger},
		},
	}, nil
}

func evalDateDiff(_ *Engine, p url.Values, nf validate.NumberFormat, errs *validate.Errors) (*Evaluation, error) {
	start := validate.ParseDateParam(p, "start", errs)
	end := validate.ParseDateParam(p, "end", errs)
	if err := errs.Err(); err != nil {
		return nil, err
	}
	r := DaysBetween(start, end)
	return &Evaluation{
		Result: r,
		Outputs: []Output{
			{Key: "days", Value: float64(r.Days), Kind: OutputInteger},
			{Key: "weeks", Value: float64(r.Weeks), Kind: OutputInteger},
			{Key: "remainderDays", Value: float64(r.RemainderDays), Kind: OutputInteger},
			{Key: "businessDays", Value: float64(r.BusinessDays), Kind: OutputInteger},
		},
	}, nil
}

// pairedRows reads repeated a/b fields, skipping rows where both are blank.
func pairedRows(p url.Values, a, b string) [][2]string {
	as, bs := p[a], p[b]
	n := max(len(as), len(bs))
	var rows [][2]string
	for i := 0; i < n; i++ {
		var x, y string
		if i < len(as) {
			x = as[i]
		}
		if i < len(bs) {
			y = bs[i]
		}
		if x == "" && y == "" {
			continue
		}
		rows = append(rows, [2]string{x, y})
	}
	return rows
}

func evalGPA(_ *Engine, p url.Values, nf validate.NumberFormat, errs *validate.Errors) (*Evaluation, error) {
	var courses []Course
	for i, row := range pairedRows(p, "grade", "credit") {
		credits, err := validate.ParseNumber(row[1], nf)
		if err != nil {
			errs.Add("credit."+strconv.Itoa(i), validate.CodeInvalidNumber)
		}
		courses = append(courses, Course{Grade: row[0], Credits: credits})
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	r, err := GPA(courses)
	if err != nil {
		return nil, err
	}
	return &Evaluation{
		Result: r,
		Outputs: []Output{
			{Key: "gpa", Value: r.GPA, Kind: OutputNumber},
			{Key: "totalCredits", Value: r.TotalCredits, Kind: OutputNumber},
			{Key: "qualityPoints", Value: r.QualityPoints, Kind: OutputNumber},
		},
	}, nil
}

func evalExamAverage(_ *Engine, p url.Values, nf validate.NumberFormat, errs *validate.Errors) (*Evaluation, error) {
	var items []WeightedScore
	for i, row := range pairedRows(p, "score", "weight") {
		score, err := validate.ParseNumber(row[0], nf)
		if err != nil {
			errs.Add("score."+strconv.Itoa(i), validate.CodeInvalidNumber)
		}
		weight, err := validate.ParseNumber(row[1], nf)
		if err != nil {
			errs.Add("weight."+strconv.Itoa(i), validate.CodeInvalidNumber)
		}
		items = append(items, WeightedScore{Score: score, Weight: weight})
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	r, err := WeightedAverage(items)
	if err != nil {
		return nil, err
	}
	return &Evaluation{
		Result: r,
		Outputs: []Output{
			{Key: "average", Value: r.Average, Kind: OutputNumber},
			{Key: "totalWeight", Value: r.TotalWeight, Kind: OutputNumber},
		},
	}, nil
}
