// Package engagement stores per-visitor calculation history and calculator
// ratings.
package engagement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// MaxHistory is how many entries are kept per visitor; older ones are
// dropped on insert.
const MaxHistory = 50

const (
	MinScore = 1
	MaxScore = 5
)

var (
	ErrInvalidScore   = errors.New("score must be between 1 and 5")
	ErrInvalidVisitor = errors.New("invalid visitor id")
)

// Entry is one saved calculation.
type Entry struct {
	ID         int64     `json:"id"`
	Calculator string    `json:"calculator"`
	Locale     string    `json:"locale"`
	Query      string    `json:"query"`
	ResultKey  string    `json:"resultKey"`
	Result     float64   `json:"result"`
	Currency   string    `json:"currency,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Rating summarises the scores of one calculator.
type Rating struct {
	Calculator string  `json:"calculator"`
	Count      int     `json:"count"`
	Average    float64 `json:"average"`
}

func newRating(calculator string, count int, sum float64) Rating {
	r := Rating{Calculator: calculator, Count: count}
	if count > 0 {
		r.Average = math.Round(sum/float64(count)*10) / 10
	}
	return r
}

// Store persists engagement data. Implementations are safe for concurrent
// use.
type Store interface {
	// AddHistory appends an entry and trims the visitor's history to
	// MaxHistory.
	AddHistory(ctx context.Context, visitor string, e Entry) error
	// History returns up to limit entries, newest first. limit <= 0 means
	// MaxHistory.
	History(ctx context.Context, visitor string, limit int) ([]Entry, error)
	ClearHistory(ctx context.Context, visitor string) error
	// Rate records the visitor's score, replacing an earlier one.
	Rate(ctx context.Context, visitor, calculator string, score int) error
	Rating(ctx context.Context, calculator string) (Rating, error)
	Close() error
}

// NewVisitorID returns a random visitor identifier.
func NewVisitorID() string {
	return uuid.NewString()
}

// ValidVisitor reports whether id looks like an ID from NewVisitorID.
func ValidVisitor(id string) bool {
	u, err := uuid.Parse(id)
	return err == nil && u.Version() == 4
}

func checkVisitor(id string) error {
	if !ValidVisitor(id) {
		return fmt.Errorf("%w: %q", ErrInvalidVisitor, id)
	}
	return nil
}

func checkScore(score int) error {
	if score < MinScore || score > MaxScore {
		return fmt.Errorf("%w: got %d", ErrInvalidScore, score)
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxHistory {
		return MaxHistory
	}
	return limit
}
