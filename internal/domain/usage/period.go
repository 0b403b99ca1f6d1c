package usage

import (
	"fmt"
	"time"
)

// Period is a calendar month bucket
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the month bucket containing t, in t's own location
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// String renders the period as YYYY-MM
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}
