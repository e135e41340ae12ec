package navigator

import "strings"

// Parameter suffixes of the date navigator form.
const (
	ParamBefore   = "before"
	ParamAfter    = "after"
	ParamPrevious = "previous"
	ParamNext     = "next"
	ParamEquals   = "equals"
)

// ParamKey builds the "<id>:<slot>" key of a navigator parameter.
func ParamKey(id, slot string) string {
	return id + ":" + slot
}

// Params renders the populated slots as navigator parameters keyed by id.
func (r DateRange) Params(id string) map[string]string {
	out := map[string]string{}
	put := func(slot, value string) {
		if value != "" {
			out[ParamKey(id, slot)] = value
		}
	}
	put(ParamBefore, r.Before)
	put(ParamAfter, r.After)
	put(ParamPrevious, r.Previous)
	put(ParamNext, r.Next)
	put(ParamEquals, r.Equals)
	return out
}

// ParseDateParams reads the slots for id out of a parameter map. Values are
// trimmed and blank values are treated as unset.
func ParseDateParams(id string, params map[string]string) DateRange {
	get := func(slot string) string {
		return strings.TrimSpace(params[ParamKey(id, slot)])
	}
	return DateRange{
		Before:   get(ParamBefore),
		After:    get(ParamAfter),
		Previous: get(ParamPrevious),
		Next:     get(ParamNext),
		Equals:   get(ParamEquals),
		Fits:     true,
	}
}
