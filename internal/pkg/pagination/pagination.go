// Package pagination holds the page/limit state of the data tables.
package pagination

import (
	"errors"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	// MaxPage bounds the page so the row offset always fits an int.
	MaxPage = 1_000_000
)

// Limits are the page sizes offered by the limit selector.
var Limits = []int{5, 10, 25, 50, 100}

// State is the current page and page size of a table.
type State struct {
	Page  int
	Limit int
}

// New returns the first page with the default limit.
func New() State {
	return State{Page: DefaultPage, Limit: DefaultLimit}
}

// FromQuery reads page and limit from query values. Missing or invalid
// values fall back to the defaults; a limit not in Limits becomes DefaultLimit
// and pages past MaxPage become MaxPage.
func FromQuery(values url.Values) State {
	s := New()
	if p, err := strconv.Atoi(values.Get("page")); err == nil {
		s = s.WithPage(p)
	} else if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(values.Get("page"), "-") {
		s.Page = MaxPage
	}
	if l, err := strconv.Atoi(values.Get("limit")); err == nil && slices.Contains(Limits, l) {
		s.Limit = l
	}
	return s
}

// WithPage moves to page p.
func (s State) WithPage(p int) State {
	s.Page = min(max(p, DefaultPage), MaxPage)
	return s
}

// WithLimit changes the page size and goes back to the first page.
func (s State) WithLimit(l int) State {
	if !slices.Contains(Limits, l) {
		l = DefaultLimit
	}
	s.Limit = l
	s.Page = DefaultPage
	return s
}

// Range returns the zero based, inclusive row range of the page.
func (s State) Range() (from, to int) {
	from = (s.Page - 1) * s.Limit
	return from, from + s.Limit - 1
}

// TotalPages returns how many pages total rows fill. It is at least 1.
func (s State) TotalPages(total int64) int {
	if total <= 0 || s.Limit <= 0 {
		return 1
	}
	return int((total + int64(s.Limit) - 1) / int64(s.Limit))
}

// Clamp moves the page back inside [1, TotalPages(total)].
func (s State) Clamp(total int64) State {
	if last := s.TotalPages(total); s.Page > last {
		s.Page = last
	}
	return s
}

// HasPrev reports whether there is a page before this one.
func (s State) HasPrev() bool {
	return s.Page > 1
}

// HasNext reports whether there is a page after this one.
func (s State) HasNext(total int64) bool {
	return s.Page < s.TotalPages(total)
}

// Values encodes the state as query values, merged into base.
func (s State) Values(base url.Values) url.Values {
	out := url.Values{}
	for k, v := range base {
		out[k] = slices.Clone(v)
	}
	out.Set("page", strconv.Itoa(s.Page))
	out.Set("limit", strconv.Itoa(s.Limit))
	return out
}
