package catalogtest

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/stacklok/catalog-browser/internal/catalog"
)

// Matcher decides whether an artifact satisfies filter criteria
type Matcher interface {
	// Matches reports whether artifact satisfies criteria.
	// Returns (matches bool, reason string)
	Matches(artifact catalog.Artifact, criteria catalog.Criteria) (bool, string)
}

// defaultMatcher applies the catalog API's matching rules
type defaultMatcher struct{}

var _ Matcher = (*defaultMatcher)(nil)

// NewDefaultMatcher creates a Matcher with the catalog API's rules
func NewDefaultMatcher() Matcher {
	return &defaultMatcher{}
}

// Matches reports whether artifact satisfies criteria
//
// Logic:
// 1. Query: the description contains it (case-insensitive) or the id contains it
// 2. Shape and culture: case-insensitive exact match
// 3. Tags: every selected tag must be present on the artifact (case-insensitive, trimmed)
// 4. Empty fields do not constrain the result
func (*defaultMatcher) Matches(artifact catalog.Artifact, criteria catalog.Criteria) (bool, string) {
	attrs := artifact.Attributes

	if q := criteria.Query; q != "" {
		inDescription := strings.Contains(strings.ToLower(attrs.Description), strings.ToLower(q))
		inID := strings.Contains(strconv.Itoa(artifact.ID), q)
		if !inDescription && !inID {
			return false, fmt.Sprintf("query '%s' not found in description or id", q)
		}
	}

	if s := criteria.Shape; s != "" && !strings.EqualFold(attrs.Shape.Value, s) {
		return false, fmt.Sprintf("shape '%s' does not match '%s'", attrs.Shape.Value, s)
	}

	if c := criteria.Culture; c != "" && !strings.EqualFold(attrs.Culture.Value, c) {
		return false, fmt.Sprintf("culture '%s' does not match '%s'", attrs.Culture.Value, c)
	}

	if ok, reason := MatchAllTags(artifact.TagValues(), criteria.Tags); !ok {
		return false, reason
	}

	return true, "all criteria satisfied"
}

// MatchAllTags reports whether every required tag appears in have
//
// Logic:
// 1. If no tags are required -> match
// 2. If any required tag is missing -> no match, naming the first missing tag
// 3. Otherwise -> match
func MatchAllTags(have, required []string) (bool, string) {
	if len(required) == 0 {
		return true, "no tag filters specified"
	}
	for _, want := range required {
		if !containsFold(have, strings.TrimSpace(want)) {
			return false, fmt.Sprintf("missing tag '%s' (artifact tags: %v)", want, have)
		}
	}
	return true, fmt.Sprintf("all tags %v present", required)
}

func containsFold(tags []string, tag string) bool {
	return slices.ContainsFunc(tags, func(t string) bool {
		return strings.EqualFold(strings.TrimSpace(t), tag)
	})
}
