package livemap

import (
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/aa"
)

//transitHolidayCalendar holds the public holidays observed by the transit operator, used to flag recorded delays
type transitHolidayCalendar struct {
	calendar *cal.BusinessCalendar
}

//national days that have no definition in aa
var (
	constitutionDay = &cal.Holiday{
		Name:  "Constitution Day",
		Type:  cal.ObservancePublic,
		Month: time.May,
		Day:   3,
		Func:  cal.CalcDayOfMonth,
	}
	independenceDay = &cal.Holiday{
		Name:  "Independence Day",
		Type:  cal.ObservancePublic,
		Month: time.November,
		Day:   11,
		Func:  cal.CalcDayOfMonth,
	}
)

//makeTransitHolidayCalendar builds transitHolidayCalendar
//TODO:: should be customizable by transit agency rather than being hardcoded as it is now.
func makeTransitHolidayCalendar() *transitHolidayCalendar {
	calendar := cal.NewBusinessCalendar()
	calendar.AddHoliday(
		aa.NewYear,
		aa.Epiphany,
		aa.EasterMonday,
		aa.WorkersDay,
		constitutionDay,
		aa.CorpusChristi,
		aa.AssumptionOfMary,
		aa.AllSaintsDay,
		independenceDay,
		aa.ChristmasDay,
		aa.ChristmasDay2,
	)
	return &transitHolidayCalendar{calendar: calendar}
}

//isHoliday returns true if at is on an observed holiday
func (t *transitHolidayCalendar) isHoliday(at time.Time) bool {
	_, observed, _ := t.calendar.IsHoliday(at)
	return observed
}
