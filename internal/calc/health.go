package calc

import (
	"hesapkit.com/internal/money"
	"hesapkit.com/internal/validate"
)

// BMI categories (WHO adult classification).
const (
	BMIUnderweight = "underweight"
	BMINormal      = "normal"
	BMIOverweight  = "overweight"
	BMIObese       = "obese"
)

type BMIResult struct {
	BMI             float64 `json:"bmi"`
	Category        string  `json:"category"`
	HealthyWeightLo float64 `json:"healthyWeightLo"`
	HealthyWeightHi float64 `json:"healthyWeightHi"`
}

func BMI(weightKg, heightCm float64) (BMIResult, error) {
	errs := validate.New()
	validate.Range(errs, "weight", weightKg, 1, 500)
	validate.Range(errs, "height", heightCm, 50, 300)
	if err := errs.Err(); err != nil {
		return BMIResult{}, err
	}

	m := heightCm / 100
	bmi := weightKg / (m * m)

	var category string
	switch {
	case bmi < 18.5:
		category = BMIUnderweight
	case bmi < 25:
		category = BMINormal
	case bmi < 30:
		category = BMIOverweight
	default:
		category = BMIObese
	}

	return BMIResult{
		BMI:             money.RoundTo(bmi, 1),
		Category:        category,
		HealthyWeightLo: money.RoundTo(18.5*m*m, 1),
		HealthyWeightHi: money.RoundTo(24.9*m*m, 1),
	}, nil
}

// ActivityFactors multiply BMR into total daily energy expenditure.
var ActivityFactors = map[string]float64{
	"sedentary":   1.2,
	"light":       1.375,
	"moderate":    1.55,
	"active":      1.725,
	"very_active": 1.9,
}

// ActivityLevels lists ActivityFactors keys from least to most active.
var ActivityLevels = []string{"sedentary", "light", "moderate", "active", "very_active"}

type BMRResult struct {
	BMR  float64 `json:"bmr"`
	TDEE float64 `json:"tdee"`
}

// BMR uses the Mifflin-St Jeor equation.
func BMR(sex string, weightKg, heightCm float64, age int, activity string) (BMRResult, error) {
	errs := validate.New()
	validate.OneOf(errs, "sex", sex, "male", "female")
	validate.Range(errs, "weight", weightKg, 1, 500)
	validate.Range(errs, "height", heightCm, 50, 300)
	validate.Range(errs, "age", float64(age), 1, 120)
	validate.OneOf(errs, "activity", activity, ActivityLevels...)
	if err := errs.Err(); err != nil {
		return BMRResult{}, err
	}

	bmr := 10*weightKg + 6.25*heightCm - 5*float64(age)
	if sex == "male" {
		bmr += 5
	} else {
		bmr -= 161
	}

	return BMRResult{
		BMR:  money.RoundTo(bmr, 0),
		TDEE: money.RoundTo(bmr*ActivityFactors[activity], 0),
	}, nil
}
