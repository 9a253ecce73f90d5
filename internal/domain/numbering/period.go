package numbering

import (
	"fmt"
	"time"
)

// PeriodLabel derives the period label for an instant per the configured
// format. Pure and deterministic given (at, format): the service injects
// its clock, so tests can pin any date.
//
// Week formats use the ISO 8601 week and week-based year; around new year
// the ISO year can differ from the calendar year (2025-01-01 belongs to
// ISO week 1 of 2025, but 2027-01-01 to week 53 of 2026).
func PeriodLabel(format PeriodFormat, at time.Time) (string, error) {
	at = at.UTC()

	switch format {
	case PeriodMonthShort:
		return fmt.Sprintf("%02d%02d", int(at.Month()), at.Year()%100), nil
	case PeriodMonthLong:
		return fmt.Sprintf("%02d%04d", int(at.Month()), at.Year()), nil
	case PeriodWeekShort:
		year, week := at.ISOWeek()
		return fmt.Sprintf("%02d%02d", week, year%100), nil
	case PeriodWeekLong:
		year, week := at.ISOWeek()
		return fmt.Sprintf("%02d%04d", week, year), nil
	default:
		return "", fmt.Errorf("unsupported period format %q", format)
	}
}
