package filtering

import (
	"slices"
	"strings"
)

// AddTag returns tags with tag appended, unless an equal tag is already present.
// Comparison ignores case and surrounding spaces; the input is not modified.
func AddTag(tags []string, tag string) []string {
	tag = strings.TrimSpace(tag)
	out := slices.Clone(tags)
	if out == nil {
		out = []string{}
	}
	if tag == "" || containsFold(out, tag) {
		return out
	}
	return append(out, tag)
}

// RemoveTag returns tags without any entry equal to tag.
// Comparison ignores case and surrounding spaces; the input is not modified.
func RemoveTag(tags []string, tag string) []string {
	tag = strings.TrimSpace(tag)
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if !strings.EqualFold(strings.TrimSpace(t), tag) {
			out = append(out, t)
		}
	}
	return out
}

// DedupeTags drops empty and repeated tags, keeping the first occurrence
func DedupeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = AddTag(out, t)
	}
	return out
}

func containsFold(tags []string, tag string) bool {
	return slices.ContainsFunc(tags, func(t string) bool {
		return strings.EqualFold(strings.TrimSpace(t), tag)
	})
}
