// Package rates holds the yearly lookup tables behind the finance
// calculators: income tax brackets, consumer price inflation, BES state
// contribution limits and KDV rates.
package rates

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/BurntSushi/toml"
)

//go:embed rates.toml
var defaultTable []byte

// ErrNoData is returned when a table has no row for the requested key.
var ErrNoData = errors.New("no rate data")

// Country codes used as table keys.
const (
	Turkey       = "tr"
	UnitedStates = "us"
)

// Bracket is one progressive tax band. UpTo is the cumulative upper limit
// of the band; zero means unbounded.
type Bracket struct {
	UpTo float64 `toml:"up_to"`
	Rate float64 `toml:"rate"`
}

type TaxYear struct {
	Country           string    `toml:"country"`
	Year              int       `toml:"year"`
	Currency          string    `toml:"currency"`
	StandardDeduction float64   `toml:"standard_deduction"`
	Brackets          []Bracket `toml:"brackets"`
}

type InflationSeries struct {
	Country  string             `toml:"country"`
	Source   string             `toml:"source"`
	Currency string             `toml:"currency"`
	Rates    map[string]float64 `toml:"rates"`
}

type BESYear struct {
	Year         int     `toml:"year"`
	StateRate    float64 `toml:"state_rate"`
	MinWageGross float64 `toml:"min_wage_gross"`
}

// AnnualCap is the most state contribution one participant can receive in
// the year.
func (b BESYear) AnnualCap() float64 {
	return b.MinWageGross * 12 * b.StateRate / 100
}

type KDV struct {
	Rates   []float64 `toml:"rates"`
	Default float64   `toml:"default"`
}

// Table is a decoded rates document.
type Table struct {
	Taxes    []TaxYear         `toml:"tax"`
	Series   []InflationSeries `toml:"inflation"`
	BESYears []BESYear         `toml:"bes"`
	KDV      KDV               `toml:"kdv"`

	inflation map[string]map[int]float64
}

var defaultOnce = sync.OnceValue(func() *Table {
	t, err := Parse(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("rates: embedded table is invalid: %v", err))
	}
	return t
})

// Default returns the embedded table. It is decoded once.
func Default() *Table {
	return defaultOnce()
}

// Parse decodes and checks a TOML rates document.
func Parse(data []byte) (*Table, error) {
	var t Table
	if _, err := toml.Decode(string(data), &t); err != nil {
		return nil, fmt.Errorf("decoding rates: %w", err)
	}

	for _, ty := range t.Taxes {
		if err := checkBrackets(ty); err != nil {
			return nil, err
		}
	}

	t.inflation = make(map[string]map[int]float64, len(t.Series))
	for _, series := range t.Series {
		years := make(map[int]float64, len(series.Rates))
		for key, rate := range series.Rates {
			year, err := strconv.Atoi(key)
			if err != nil {
				return nil, fmt.Errorf("inflation %s: invalid year %q", series.Country, key)
			}
			if rate <= -100 {
				return nil, fmt.Errorf("inflation %s %d: rate %v out of range", series.Country, year, rate)
			}
			years[year] = rate
		}
		t.inflation[series.Country] = years
	}

	return &t, nil
}

func checkBrackets(ty TaxYear) error {
	if len(ty.Brackets) == 0 {
		return fmt.Errorf("tax %s %d: no brackets", ty.Country, ty.Year)
	}
	prev := 0.0
	for i, b := range ty.Brackets {
		last := i == len(ty.Brackets)-1
		switch {
		case last && b.UpTo != 0:
			return fmt.Errorf("tax %s %d: last bracket must be unbounded", ty.Country, ty.Year)
		case !last && b.UpTo <= prev:
			return fmt.Errorf("tax %s %d: bracket %d limit %v is not ascending", ty.Country, ty.Year, i, b.UpTo)
		}
		prev = b.UpTo
	}
	return nil
}

// TaxYear returns the tax rules for country and year.
func (t *Table) TaxYear(country string, year int) (TaxYear, error) {
	for _, ty := range t.Taxes {
		if ty.Country == country && ty.Year == year {
			return ty, nil
		}
	}
	return TaxYear{}, fmt.Errorf("%w: tax %s %d", ErrNoData, country, year)
}

// TaxYears lists the years with tax rules for country, ascending.
func (t *Table) TaxYears(country string) []int {
	var years []int
	for _, ty := range t.Taxes {
		if ty.Country == country {
			years = append(years, ty.Year)
		}
	}
	sort.Ints(years)
	return years
}

// Inflation returns the yearly inflation percentage for country.
func (t *Table) Inflation(country string, year int) (float64, error) {
	rate, ok := t.inflation[country][year]
	if !ok {
		return 0, fmt.Errorf("%w: inflation %s %d", ErrNoData, country, year)
	}
	return rate, nil
}

// InflationYears lists the years with inflation data for country, ascending.
func (t *Table) InflationYears(country string) []int {
	years := make([]int, 0, len(t.inflation[country]))
	for y := range t.inflation[country] {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// InflationSource names the publisher of a country's series.
func (t *Table) InflationSource(country string) string {
	for _, s := range t.Series {
		if s.Country == country {
			return s.Source
		}
	}
	return ""
}

// BES returns the state contribution rules for year.
func (t *Table) BES(year int) (BESYear, error) {
	for _, b := range t.BESYears {
		if b.Year == year {
			return b, nil
		}
	}
	return BESYear{}, fmt.Errorf("%w: bes %d", ErrNoData, year)
}

// LatestBES returns the newest BES row. Projections past the table reuse it.
func (t *Table) LatestBES() BESYear {
	var latest BESYear
	for _, b := range t.BESYears {
		if b.Year > latest.Year {
			latest = b
		}
	}
	return latest
}

// IsKDVRate reports whether rate is one of the statutory KDV rates.
func (t *Table) IsKDVRate(rate float64) bool {
	for _, r := range t.KDV.Rates {
		if r == rate {
			return true
		}
	}
	return false
}

// TaxBrackets returns the progressive bands for country and year.
func (t *Table) TaxBrackets(country string, year int) ([]Bracket, error) {
	ty, err := t.TaxYear(country, year)
	if err != nil {
		return nil, err
	}
	return ty.Brackets, nil
}

// BESCap returns the yearly state contribution ceiling.
func (t *Table) BESCap(year int) (float64, error) {
	b, err := t.BES(year)
	if err != nil {
		return 0, err
	}
	return b.AnnualCap(), nil
}

// BESStateRate returns the state matching percentage for year.
func (t *Table) BESStateRate(year int) (float64, error) {
	b, err := t.BES(year)
	if err != nil {
		return 0, err
	}
	return b.StateRate, nil
}

func (t *Table) KDVRates() []float64 {
	return append([]float64(nil), t.KDV.Rates...)
}

// Years lists every year with tax or inflation data for country.
func (t *Table) Years(country string) []int {
	seen := make(map[int]bool)
	for _, y := range t.TaxYears(country) {
		seen[y] = true
	}
	for _, y := range t.InflationYears(country) {
		seen[y] = true
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}
