// Package querystring maps filter criteria and the page position to URL query
// parameters and back.
//
// The mapping is canonical and minimal: parameters at their default value are
// left out of the URL, and decoding substitutes defaults for anything missing
// or malformed. Decoding never fails.
package querystring

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/stacklok/catalog-browser/internal/catalog"
)

const (
	// ParamQuery is the free-text query parameter
	ParamQuery = "query"
	// ParamShape is the shape parameter
	ParamShape = "shape"
	// ParamCulture is the culture parameter
	ParamCulture = "culture"
	// ParamTags is the comma-separated tag list parameter
	ParamTags = "tags"
	// ParamPage is the 1-based page number parameter
	ParamPage = "page"

	// TagSeparator joins tag values inside the tags parameter
	TagSeparator = ","
)

// Params lists every parameter owned by the mapping
var Params = []string{ParamQuery, ParamShape, ParamCulture, ParamTags, ParamPage}

// Encode returns the minimal query parameters describing c and page.
// Empty fields are omitted, and page is omitted when it is the first page.
func Encode(c catalog.Criteria, page int) url.Values {
	v := url.Values{}
	setIfPresent(v, ParamQuery, c.Query)
	setIfPresent(v, ParamShape, c.Shape)
	setIfPresent(v, ParamCulture, c.Culture)
	setIfPresent(v, ParamTags, JoinTags(c.Tags))
	if page > catalog.FirstPage {
		v.Set(ParamPage, strconv.Itoa(page))
	}
	return v
}

// Decode reads criteria and page from query parameters.
// Missing parameters take their default; a page that is not a positive
// integer decodes to the first page.
func Decode(v url.Values) (catalog.Criteria, int) {
	c := catalog.Criteria{
		Query:   v.Get(ParamQuery),
		Shape:   v.Get(ParamShape),
		Culture: v.Get(ParamCulture),
		Tags:    SplitTags(v.Get(ParamTags)),
	}
	return c, DecodePage(v.Get(ParamPage))
}

// DecodePage parses a page parameter, falling back to the first page
func DecodePage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < catalog.FirstPage {
		return catalog.FirstPage
	}
	return page
}

// Merge writes the mapping's parameters onto a copy of existing.
// Parameters that are not owned by the mapping are preserved, and owned
// parameters at their default value are removed.
func Merge(existing url.Values, c catalog.Criteria, page int) url.Values {
	out := url.Values{}
	for k, vs := range existing {
		if isOwned(k) {
			continue
		}
		out[k] = append([]string(nil), vs...)
	}
	for k, vs := range Encode(c, page) {
		out[k] = vs
	}
	return out
}

// HasFilterParams reports whether v carries any of the four filter parameters
func HasFilterParams(v url.Values) bool {
	for _, p := range []string{ParamQuery, ParamShape, ParamCulture, ParamTags} {
		if v.Get(p) != "" {
			return true
		}
	}
	return false
}

// ParseRawQuery parses a query string, a "?"-prefixed query or a full URL.
// Malformed input yields whatever pairs could be parsed.
func ParseRawQuery(raw string) url.Values {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return url.Values{}
	}
	if strings.Contains(raw, "://") {
		if u, err := url.Parse(raw); err == nil {
			raw = u.RawQuery
		}
	} else if _, after, found := strings.Cut(raw, "?"); found {
		raw = after
	}
	// ParseQuery returns the pairs it managed to decode alongside the first error.
	v, _ := url.ParseQuery(raw)
	if v == nil {
		return url.Values{}
	}
	return v
}

// JoinTags joins tag values with the tag separator
func JoinTags(tags []string) string {
	return strings.Join(tags, TagSeparator)
}

// SplitTags splits a tags parameter, dropping empty segments.
// The result is never nil.
func SplitTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, TagSeparator) {
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func setIfPresent(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func isOwned(key string) bool {
	return slices.Contains(Params, key)
}
