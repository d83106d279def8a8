package parse

import (
	"fmt"
	"strconv"
)

// Page holds offset pagination parameters. Page is 1-indexed.
type Page struct {
	Page  int
	Limit int
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// ParsePage reads page and limit query values, applying defaults for empty
// strings and rejecting values out of range.
func ParsePage(rawPage, rawLimit string, defaultLimit, maxLimit int) (Page, error) {
	p := Page{Page: 1, Limit: defaultLimit}
	if rawPage != "" {
		n, err := strconv.Atoi(rawPage)
		if err != nil || n < 1 {
			return Page{}, fmt.Errorf("page must be an integer >= 1")
		}
		p.Page = n
	}
	if rawLimit != "" {
		n, err := strconv.Atoi(rawLimit)
		if err != nil || n < 1 || n > maxLimit {
			return Page{}, fmt.Errorf("limit must be an integer between 1 and %d", maxLimit)
		}
		p.Limit = n
	}
	return p, nil
}
