// Package catalog defines the data model shared by the catalog browser engine.
//
// It holds the four-field filter criteria used to narrow the artifact list,
// the pagination metadata reported by the catalog API, and the wire shapes of
// the artifact list and metadata endpoints.
//
// # Filter criteria
//
// Criteria always carries all four fields. The "no filter" sentinel is the
// empty string for Query, Shape and Culture and the empty slice for Tags;
// absence is never used. Use NewCriteria or Normalize to obtain a value that
// honours this invariant.
//
// # Pagination
//
// Pagination is 1-based. CurrentPage is always at least 1 and, once the
// server has reported a TotalPages greater than zero, never exceeds it.
package catalog
