package catalog

// FirstPage is the page every new result set starts on
const FirstPage = 1

// Pagination is the pagination position and the metadata reported by the server
type Pagination struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	TotalPages  int `json:"total_pages"`
}

// NewPagination returns pagination state positioned on the first page with no metadata
func NewPagination() Pagination {
	return Pagination{CurrentPage: FirstPage}
}

// Known reports whether the server has reported a page count
func (p Pagination) Known() bool {
	return p.TotalPages > 0
}

// Contains reports whether page is a valid position for this result set.
// Any positive page is accepted while the page count is still unknown.
func (p Pagination) Contains(page int) bool {
	if page < FirstPage {
		return false
	}
	return !p.Known() || page <= p.TotalPages
}

// Clamp returns page limited to [1, TotalPages] (or [1, ∞) when unknown)
func (p Pagination) Clamp(page int) int {
	if page < FirstPage {
		return FirstPage
	}
	if p.Known() && page > p.TotalPages {
		return p.TotalPages
	}
	return page
}

// HasNext reports whether a page after the current one exists
func (p Pagination) HasNext() bool {
	return p.Known() && p.CurrentPage < p.TotalPages
}

// HasPrevious reports whether a page before the current one exists
func (p Pagination) HasPrevious() bool {
	return p.CurrentPage > FirstPage
}
