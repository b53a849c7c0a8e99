package dates

import (
	"testing"
	"time"
)

// Wednesday 2025-08-13.
var wednesday = time.Date(2025, 8, 13, 10, 0, 0, 0, time.UTC)

func TestResolveNumericFormats(t *testing.T) {
	cases := []struct {
		expr string
		want string
	}{
		{"2025-08-15", "2025-08-15"},
		{"15/08/2025", "2025-08-15"},
		{"15-08-2025", "2025-08-15"},
		{"08/15/2025", "2025-08-15"}, // falls through to MM/DD after DD/MM fails
		{"08-15-2025", "2025-08-15"},
	}

	for _, c := range cases {
		if got := Resolve(c.expr, wednesday); got != c.want {
			t.Errorf("Resolve(%q) = %q, want %q", c.expr, got, c.want)
		}
	}
}

func TestResolveAmbiguousDayFirst(t *testing.T) {
	// Both layouts match; day-first precedence applies.
	if got := Resolve("05/08/2025", wednesday); got != "2025-08-05" {
		t.Errorf("Resolve(05/08/2025) = %q, want 2025-08-05", got)
	}
}

func TestResolveRelativeTerms(t *testing.T) {
	cases := []struct {
		expr string
		want string
	}{
		{"hoy", "2025-08-13"},
		{"today", "2025-08-13"},
		{"mañana", "2025-08-14"},
		{"Mañana", "2025-08-14"},
		{"tomorrow", "2025-08-14"},
		{"pasado mañana", "2025-08-15"},
		{"en 3 días", "2025-08-16"},
		{"en 5 dias", "2025-08-18"},
		{"in 3 days", "2025-08-16"},
	}

	for _, c := range cases {
		if got := Resolve(c.expr, wednesday); got != c.want {
			t.Errorf("Resolve(%q) = %q, want %q", c.expr, got, c.want)
		}
	}
}

func TestResolveUpcomingWeekday(t *testing.T) {
	// From Wednesday, "viernes" is the coming Friday.
	if got := Resolve("viernes", wednesday); got != "2025-08-15" {
		t.Errorf("Resolve(viernes) = %q, want 2025-08-15", got)
	}

	// Naming today's weekday means a week out.
	if got := Resolve("miércoles", wednesday); got != "2025-08-20" {
		t.Errorf("Resolve(miércoles) = %q, want 2025-08-20", got)
	}

	// Wrapping past the weekend.
	if got := Resolve("lunes", wednesday); got != "2025-08-18" {
		t.Errorf("Resolve(lunes) = %q, want 2025-08-18", got)
	}
}

func TestResolveNoMatch(t *testing.T) {
	for _, expr := range []string{"", "esta semana", "fin de semana", "próxima semana", "ayer", "15 de agosto"} {
		if got := Resolve(expr, wednesday); got != "" {
			t.Errorf("Resolve(%q) = %q, want empty", expr, got)
		}
	}
}
