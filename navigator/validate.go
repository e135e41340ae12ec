package navigator

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gabisonia/go-clausenav/clause"
)

var ErrInvalidParams = errors.New("navigator: invalid navigator parameters")

// ValidationError lists problems per navigator parameter key.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("%s: %s", ErrInvalidParams.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidParams
}

// Validate checks a navigator form before it is turned back into a clause.
// It returns a *ValidationError describing every bad parameter, or nil.
func (t *DateRangeTranslator) Validate(user clause.User, r DateRange) error {
	id := t.config.ID
	problems := map[string]string{}

	after, afterOK := t.validateAbsolute(user, r.After, ParamKey(id, ParamAfter), problems)
	before, beforeOK := t.validateAbsolute(user, r.Before, ParamKey(id, ParamBefore), problems)
	if afterOK && beforeOK && after.After(before) {
		problems[ParamKey(id, ParamAfter)] = "after date is later than before date"
	}

	previous, previousOK := validateRelative(r.Previous, ParamKey(id, ParamPrevious), problems)
	next, nextOK := validateRelative(r.Next, ParamKey(id, ParamNext), problems)
	if previousOK && nextOK && previous > next {
		problems[ParamKey(id, ParamPrevious)] = "previous period is later than next period"
	}

	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Fields: problems}
}

func (t *DateRangeTranslator) validateAbsolute(user clause.User, value, key string, problems map[string]string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	parsed, ok := t.support.ParseDisplay(value, user.Loc())
	if !ok {
		problems[key] = fmt.Sprintf("invalid date %q", value)
		return time.Time{}, false
	}
	return parsed, true
}

func validateRelative(value, key string, problems map[string]string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	d, err := ParseDuration(value)
	if err != nil {
		problems[key] = fmt.Sprintf("invalid period %q", value)
		return 0, false
	}
	return d, true
}
