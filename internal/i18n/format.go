package i18n

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"hesapkit.com/internal/validate"
)

var (
	printersMu sync.Mutex
	printers   = map[string]*message.Printer{}
)

func printer(locale string) *message.Printer {
	printersMu.Lock()
	defer printersMu.Unlock()
	p, ok := printers[locale]
	if !ok {
		p = message.NewPrinter(Tag(locale))
		printers[locale] = p
	}
	return p
}

// Number formats v with locale grouping and exactly decimals fraction digits:
// 1234.5 -> "1,234.50" (en), "1.234,50" (tr).
func Number(locale string, v float64, decimals int) string {
	return printer(locale).Sprint(number.Decimal(v,
		number.MinFractionDigits(decimals),
		number.MaxFractionDigits(decimals)))
}

// Compact formats v with up to two fraction digits, dropping trailing zeros.
func Compact(locale string, v float64) string {
	return printer(locale).Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

// currencySymbol returns the narrow CLDR symbol for an ISO 4217 code, or
// the code and a space when CLDR has none.
func currencySymbol(locale, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return code + " "
	}
	sym := printer(locale).Sprint(currency.NarrowSymbol(unit))
	if sym == unit.String() {
		return sym + " "
	}
	return sym
}

// Money formats an amount with its currency symbol in front, the way both
// locales write prices.
func Money(locale, code string, v float64) string {
	sym := currencySymbol(locale, code)
	s := Number(locale, math.Abs(v), 2)
	if v < 0 {
		return "-" + sym + s
	}
	return sym + s
}

// Numbers returns the separators Number prints for locale, for reading
// numbers back.
func Numbers(locale string) validate.NumberFormat {
	nf := validate.PlainNumbers
	// "1,234.5" (en), "1.234,5" (tr)
	s := []rune(printer(locale).Sprint(number.Decimal(1234.5, number.MinFractionDigits(1))))
	if len(s) == 7 {
		nf.Group, nf.Decimal = s[1], s[5]
	}
	return nf
}

// Percent formats a value already expressed in percent. Turkish puts the
// sign first.
func Percent(locale string, v float64) string {
	s := Compact(locale, v)
	if locale == Turkish {
		if strings.HasPrefix(s, "-") {
			return "-%" + s[1:]
		}
		return "%" + s
	}
	return s + "%"
}

var monthNames = map[string][12]string{
	English: {"January", "February", "March", "April", "May", "June", "July",
		"August", "September", "October", "November", "December"},
	Turkish: {"Ocak", "Şubat", "Mart", "Nisan", "Mayıs", "Haziran", "Temmuz",
		"Ağustos", "Eylül", "Ekim", "Kasım", "Aralık"},
}

// Date renders a calendar date in long form: "March 10, 2024" or "10 Mart 2024".
func Date(locale string, t time.Time) string {
	months := monthNames[English]
	if m, ok := monthNames[locale]; ok {
		months = m
	}
	name := months[t.Month()-1]
	if locale == Turkish {
		return fmt.Sprintf("%d %s %d", t.Day(), name, t.Year())
	}
	return fmt.Sprintf("%s %d, %d", name, t.Day(), t.Year())
}
