// Package dates resolves due-date expressions from the classifier into
// canonical calendar dates. Expressions come back in whatever form the
// model echoed from the message: an ISO or numeric date, or a relative
// term like "mañana", "viernes" or "en 3 días" (Spanish or English).
package dates

import (
	"strconv"
	"strings"
	"time"
)

// Layouts tried in order for numeric dates. DD/MM wins over MM/DD on
// ambiguous input; same precedence as the formats the tracker accepted
// historically.
var layouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"01/02/2006",
	"01-02-2006",
}

var relativeDays = map[string]int{
	"hoy":           0,
	"today":         0,
	"mañana":        1,
	"manana":        1,
	"tomorrow":      1,
	"pasado mañana": 2,
	"pasado manana": 2,
}

var weekdays = map[string]time.Weekday{
	"lunes":     time.Monday,
	"martes":    time.Tuesday,
	"miércoles": time.Wednesday,
	"miercoles": time.Wednesday,
	"jueves":    time.Thursday,
	"viernes":   time.Friday,
	"sábado":    time.Saturday,
	"sabado":    time.Saturday,
	"domingo":   time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// Resolve turns a due-date expression into a canonical YYYY-MM-DD date, or
// "" when the expression matches nothing. Weekday names resolve to the next
// occurrence; naming today's weekday means a week from now.
func Resolve(expr string, now time.Time) string {
	expr = strings.ToLower(strings.TrimSpace(expr))
	if expr == "" {
		return ""
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, expr); err == nil {
			return t.Format("2006-01-02")
		}
	}

	if days, ok := relativeDays[expr]; ok {
		return now.AddDate(0, 0, days).Format("2006-01-02")
	}

	if wd, ok := weekdays[expr]; ok {
		delta := (int(wd) - int(now.Weekday()) + 7) % 7
		if delta == 0 {
			delta = 7
		}
		return now.AddDate(0, 0, delta).Format("2006-01-02")
	}

	if days, ok := parseInDays(expr); ok {
		return now.AddDate(0, 0, days).Format("2006-01-02")
	}

	return ""
}

// parseInDays handles "en N días" / "in N days" variants.
func parseInDays(expr string) (int, bool) {
	fields := strings.Fields(expr)
	if len(fields) != 3 {
		return 0, false
	}
	if fields[0] != "en" && fields[0] != "in" {
		return 0, false
	}
	switch fields[2] {
	case "días", "dias", "día", "dia", "days", "day":
	default:
		return 0, false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
