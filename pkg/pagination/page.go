package pagination

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// Query parameter names understood by the listing endpoint.
const (
	ParamLimit  = "limit"
	ParamOffset = "offset"
)

// Validation errors for Params.
var (
	ErrInvalidLimit  = errors.New("invalid limit: must be at least 1")
	ErrInvalidOffset = errors.New("invalid offset: must be non-negative")
)

// Params selects one window of the listing.
type Params struct {
	Limit  int
	Offset int
}

// Validate checks that the window is well formed.
func (p Params) Validate() error {
	if p.Limit < 1 {
		return fmt.Errorf("%w (got %d)", ErrInvalidLimit, p.Limit)
	}
	if p.Offset < 0 {
		return fmt.Errorf("%w (got %d)", ErrInvalidOffset, p.Offset)
	}
	return nil
}

// Values returns the query parameters for the listing request.
func (p Params) Values() url.Values {
	return url.Values{
		ParamLimit:  []string{strconv.Itoa(p.Limit)},
		ParamOffset: []string{strconv.Itoa(p.Offset)},
	}
}

// Entry is one named resource of a listing.
type Entry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Page is one listing response.
type Page struct {
	// Count is the total number of resources available, not the page size.
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []Entry `json:"results"`
}

// Entries returns the page results in listing order, truncated to limit.
// A limit <= 0 returns every result.
func (p *Page) Entries(limit int) []Entry {
	if p == nil {
		return nil
	}
	if limit > 0 && len(p.Results) > limit {
		return p.Results[:limit]
	}
	return p.Results
}

// HasNext reports whether the API advertised a following page.
func (p *Page) HasNext() bool {
	return p != nil && p.Next != nil && *p.Next != ""
}
