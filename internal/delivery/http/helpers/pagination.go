package helpers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ParseLimit reads the limit query parameter. Missing or invalid values fall
// back to def; values above max are clamped.
func ParseLimit(r *http.Request, def, max int) int {
	limit := def
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 1 {
			limit = v
		}
	}
	if limit > max {
		limit = max
	}
	return limit
}

// ParseTimeParam reads an RFC 3339 timestamp from the query string. It returns
// nil when the parameter is absent.
func ParseTimeParam(r *http.Request, name string) (*time.Time, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("%s must be an RFC 3339 timestamp", name)
	}
	t = t.UTC()
	return &t, nil
}

// ParseBoolParam reads a boolean query parameter, defaulting to def when absent.
func ParseBoolParam(r *http.Request, name string, def bool) (bool, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false", name)
	}
	return v, nil
}
