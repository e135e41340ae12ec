package navigator

import (
	"strings"
	"time"

	"github.com/gabisonia/go-clausenav/clause"
)

// Layouts accepted for date strings inside clauses.
var queryLayouts = []string{
	"2006/1/2 15:04",
	"2006-1-2 15:04",
	"2006/1/2",
	"2006-1-2",
}

const (
	queryDateLayout     = "2006-01-02"
	queryDateTimeLayout = "2006-01-02 15:04"
)

// DateLayouts are the Go time layouts navigator values are displayed in.
type DateLayouts struct {
	Date     string
	DateTime string
}

// DefaultDateLayouts returns ISO date and date-time layouts.
func DefaultDateLayouts() DateLayouts {
	return DateLayouts{Date: queryDateLayout, DateTime: queryDateTimeLayout}
}

func (l DateLayouts) withDefaults() DateLayouts {
	if strings.TrimSpace(l.Date) == "" {
		l.Date = queryDateLayout
	}
	if strings.TrimSpace(l.DateTime) == "" {
		l.DateTime = queryDateTimeLayout
	}
	return l
}

// DateSupport converts between clause literals, navigator display strings
// and query strings.
type DateSupport struct {
	layouts DateLayouts
}

// NewDateSupport creates date support for the given display layouts.
func NewDateSupport(layouts DateLayouts) *DateSupport {
	return &DateSupport{layouts: layouts.withDefaults()}
}

// ParseLiteral converts a literal to a point in time. Numbers are epoch
// milliseconds; strings must match one of the query layouts.
func (s *DateSupport) ParseLiteral(lit clause.Literal, loc *time.Location) (time.Time, bool) {
	if n, ok := lit.NumberValue(); ok {
		return time.UnixMilli(n).In(loc), true
	}
	if str, ok := lit.StringValue(); ok {
		return s.ParseQuery(str, loc)
	}
	return time.Time{}, false
}

// ParseQuery parses a date string as written in a clause.
func (s *DateSupport) ParseQuery(raw string, loc *time.Location) (time.Time, bool) {
	return parseFirst(strings.TrimSpace(raw), queryLayouts, loc)
}

// ParseDisplay parses a navigator display value, trying the date-time
// layout before the date layout.
func (s *DateSupport) ParseDisplay(raw string, loc *time.Location) (time.Time, bool) {
	return parseFirst(strings.TrimSpace(raw), []string{s.layouts.DateTime, s.layouts.Date}, loc)
}

// Display renders t for the navigator. When t carries a time of day that
// the caller does not allow, the time is dropped and fits is false.
func (s *DateSupport) Display(t time.Time, allowTimeComponent bool) (value string, fits bool) {
	if !HasTimeComponent(t) {
		return t.Format(s.layouts.Date), true
	}
	if allowTimeComponent {
		return t.Format(s.layouts.DateTime), true
	}
	return t.Format(s.layouts.Date), false
}

// FormatQuery renders t the way it should be written in a clause.
func FormatQuery(t time.Time) string {
	if HasTimeComponent(t) {
		return t.Format(queryDateTimeLayout)
	}
	return t.Format(queryDateLayout)
}

// HasTimeComponent reports a non-zero hour or minute. Seconds and
// sub-second precision are not considered.
func HasTimeComponent(t time.Time) bool {
	return t.Hour() != 0 || t.Minute() != 0
}

func parseFirst(raw string, layouts []string, loc *time.Location) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
