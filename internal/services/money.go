package services

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// gatewayDateLayout is the date format Iugu uses for expires_at and due_date.
const gatewayDateLayout = "2006-01-02"

// formatBRL renders an amount in cents as Brazilian reais, e.g. "R$ 1.234,50".
func formatBRL(cents int64) string {
	amount := decimal.New(cents, -2)
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}

	fixed := amount.StringFixed(2)
	intPart, fraction := fixed[:len(fixed)-3], fixed[len(fixed)-2:]

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return sign + "R$ " + b.String() + "," + fraction
}

// dateAtCurrentTime parses a YYYY-MM-DD gateway date and keeps the clock of
// now, matching how the gateway dates were always stored locally.
func dateAtCurrentTime(date string, now time.Time) (time.Time, error) {
	day, err := time.ParseInLocation(gatewayDateLayout, date, now.Location())
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(),
		now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), now.Location()), nil
}
