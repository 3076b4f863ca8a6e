package calc

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"hesapkit.com/internal/rates"
	"hesapkit.com/internal/validate"
)

// ErrUnknownCalculator is returned by Engine.Evaluate for unregistered IDs.
var ErrUnknownCalculator = errors.New("unknown calculator")

type InputKind string

const (
	InputNumber  InputKind = "number"
	InputInteger InputKind = "integer"
	InputDate    InputKind = "date"
	InputSelect  InputKind = "select"
)

// Input describes one form field of a calculator. Repeat > 0 renders that
// many rows of the field (GPA courses, exam scores).
type Input struct {
	Name          string              `json:"name"`
	Kind          InputKind           `json:"kind"`
	Default       string              `json:"default,omitempty"`
	Min           *float64            `json:"min,omitempty"`
	Max           *float64            `json:"max,omitempty"`
	Step          string              `json:"step,omitempty"`
	Options       []string            `json:"options,omitempty"`
	LocaleOptions map[string][]string `json:"-"`
	Repeat        int                 `json:"repeat,omitempty"`
	Optional      bool                `json:"optional,omitempty"`
}

// OptionsFor returns the select options to show in locale.
func (in Input) OptionsFor(locale string) []string {
	if opts, ok := in.LocaleOptions[locale]; ok {
		return opts
	}
	return in.Options
}

// Rows returns 0..Repeat-1 for templates.
func (in Input) Rows() []int {
	rows := make([]int, in.Repeat)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

// OutputKind tells renderers how to format a value.
type OutputKind string

const (
	OutputMoney   OutputKind = "money"
	OutputPercent OutputKind = "percent"
	OutputNumber  OutputKind = "number"
	OutputInteger OutputKind = "integer"
	OutputText    OutputKind = "text"
)

type Output struct {
	Key   string     `json:"key"`
	Value float64    `json:"value"`
	Text  string     `json:"text,omitempty"`
	Kind  OutputKind `json:"kind"`
}

type Column struct {
	Key  string     `json:"key"`
	Kind OutputKind `json:"kind"`
}

// Table is an optional detail grid such as an amortization schedule.
type Table struct {
	Columns []Column    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

// Evaluation is the outcome of running a calculator on form values.
// Outputs[0] is the headline figure.
type Evaluation struct {
	Calculator string   `json:"calculator"`
	Currency   string   `json:"currency,omitempty"`
	Result     any      `json:"result"`
	Outputs    []Output `json:"outputs"`
	Table      *Table   `json:"table,omitempty"`
}

// Headline returns the first output.
func (e *Evaluation) Headline() Output {
	if len(e.Outputs) == 0 {
		return Output{}
	}
	return e.Outputs[0]
}

type evalFunc func(e *Engine, params url.Values, nf validate.NumberFormat, errs *validate.Errors) (*Evaluation, error)

// Spec couples a calculator's form with its formula.
type Spec struct {
	ID     string
	Inputs []Input
	eval   evalFunc
}

// Engine evaluates calculators by ID against query parameters.
type Engine struct {
	rates *rates.Table
	now   func() time.Time
	specs map[string]Spec
}

// NewEngine builds an engine over the given rate table.
func NewEngine(table *rates.Table) *Engine {
	e := &Engine{
		rates: table,
		now:   time.Now,
		specs: make(map[string]Spec),
	}
	for _, s := range builtinSpecs(table) {
		e.specs[s.ID] = s
	}
	return e
}

// WithClock replaces the clock used for date defaults.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

func (e *Engine) Rates() *rates.Table {
	return e.rates
}

// Has reports whether id is a registered calculator.
func (e *Engine) Has(id string) bool {
	_, ok := e.specs[id]
	return ok
}

// IDs lists registered calculators in sorted order.
func (e *Engine) IDs() []string {
	ids := make([]string, 0, len(e.specs))
	for id := range e.specs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Inputs returns the form fields of calculator id.
func (e *Engine) Inputs(id string) ([]Input, error) {
	s, ok := e.specs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCalculator, id)
	}
	return s.Inputs, nil
}

// Evaluate parses params, with numbers written in nf, and runs calculator
// id. Input problems are returned as *validate.Errors.
func (e *Engine) Evaluate(id string, params url.Values, nf validate.NumberFormat) (*Evaluation, error) {
	s, ok := e.specs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCalculator, id)
	}
	errs := validate.New()
	ev, err := s.eval(e, params, nf, errs)
	if err != nil {
		return nil, err
	}
	ev.Calculator = id
	return ev, nil
}

// HasInput reports whether params carries any value for the calculator's
// fields, i.e. the form was submitted.
func (e *Engine) HasInput(id string, params url.Values) bool {
	s, ok := e.specs[id]
	if !ok {
		return false
	}
	for _, in := range s.Inputs {
		for _, v := range params[in.Name] {
			if v != "" {
				return true
			}
		}
	}
	return false
}

func ptr(v float64) *float64 { return &v }

func yearOptions(years []int) []string {
	out := make([]string, len(years))
	for i, y := range years {
		out[i] = strconv.Itoa(y)
	}
	return out
}

func lastYear(years []int) string {
	if len(years) == 0 {
		return ""
	}
	return strconv.Itoa(years[len(years)-1])
}

func firstYear(years []int) string {
	if len(years) == 0 {
		return ""
	}
	return strconv.Itoa(years[0])
}

func boolParam(params url.Values, key string) bool {
	switch params.Get(key) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func currencyFor(country string) string {
	if country == rates.Turkey {
		return "TRY"
	}
	return "USD"
}
