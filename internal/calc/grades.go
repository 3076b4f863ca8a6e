package calc

import (
	"strconv"
	"strings"

	"hesapkit.com/internal/money"
	"hesapkit.com/internal/validate"
)

// GradePoints maps letter grades to 4.0-scale points. Turkish university
// letters (AA..FF) and US letters (A..F) share the table.
var GradePoints = map[string]float64{
	"AA": 4.0, "BA": 3.5, "BB": 3.0, "CB": 2.5, "CC": 2.0,
	"DC": 1.5, "DD": 1.0, "FD": 0.5, "FF": 0.0,

	"A+": 4.0, "A": 4.0, "A-": 3.7,
	"B+": 3.3, "B": 3.0, "B-": 2.7,
	"C+": 2.3, "C": 2.0, "C-": 1.7,
	"D+": 1.3, "D": 1.0, "D-": 0.7,
	"F": 0.0,
}

// Letter scales offered by the GPA form, per locale.
var (
	TurkishGrades = []string{"AA", "BA", "BB", "CB", "CC", "DC", "DD", "FD", "FF"}
	USGrades      = []string{"A+", "A", "A-", "B+", "B", "B-", "C+", "C", "C-", "D+", "D", "D-", "F"}
)

type Course struct {
	Grade   string  `json:"grade"`
	Credits float64 `json:"credits"`
}

type GPAResult struct {
	GPA           float64 `json:"gpa"`
	TotalCredits  float64 `json:"totalCredits"`
	QualityPoints float64 `json:"qualityPoints"`
}

// GPA is the credit-weighted grade point average.
func GPA(courses []Course) (GPAResult, error) {
	errs := validate.New()
	if len(courses) == 0 {
		errs.Add("grade", validate.CodeRequired)
		return GPAResult{}, errs
	}

	var credits, points float64
	for i, c := range courses {
		suffix := "." + strconv.Itoa(i)
		p, ok := GradePoints[strings.ToUpper(strings.TrimSpace(c.Grade))]
		if !ok {
			errs.Add("grade"+suffix, validate.CodeInvalidValue)
		}
		validate.Range(errs, "credit"+suffix, c.Credits, 0.5, 30)
		credits += c.Credits
		points += p * c.Credits
	}
	if err := errs.Err(); err != nil {
		return GPAResult{}, err
	}

	return GPAResult{
		GPA:           money.Round(points / credits),
		TotalCredits:  credits,
		QualityPoints: money.Round(points),
	}, nil
}

type WeightedScore struct {
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
}

type WeightedAverageResult struct {
	Average     float64 `json:"average"`
	TotalWeight float64 `json:"totalWeight"`
}

// WeightedAverage averages exam scores on a 0-100 scale by weight.
func WeightedAverage(items []WeightedScore) (WeightedAverageResult, error) {
	errs := validate.New()
	if len(items) == 0 {
		errs.Add("score", validate.CodeRequired)
		return WeightedAverageResult{}, errs
	}

	var weights, sum float64
	for i, it := range items {
		suffix := "." + strconv.Itoa(i)
		validate.Range(errs, "score"+suffix, it.Score, 0, 100)
		validate.Range(errs, "weight"+suffix, it.Weight, 0, 100)
		weights += it.Weight
		sum += it.Score * it.Weight
	}
	if weights == 0 && errs.Empty() {
		errs.Add("weight", validate.CodeTooSmall, 0)
	}
	if err := errs.Err(); err != nil {
		return WeightedAverageResult{}, err
	}

	return WeightedAverageResult{
		Average:     money.Round(sum / weights),
		TotalWeight: weights,
	}, nil
}
