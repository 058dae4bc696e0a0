package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Field identifies one of the four filter criteria fields.
type Field string

const (
	// FieldQuery is the free-text search field
	FieldQuery Field = "query"
	// FieldShape is the selected shape name
	FieldShape Field = "shape"
	// FieldCulture is the selected culture name
	FieldCulture Field = "culture"
	// FieldTags is the selected tag list
	FieldTags Field = "tags"
)

// ErrUnknownField is returned when a field name is not one of the four filter fields
var ErrUnknownField = errors.New("unknown filter field")

// Fields lists the filter fields in display order
var Fields = []Field{FieldQuery, FieldShape, FieldCulture, FieldTags}

// ParseField converts a field name into a Field
func ParseField(name string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(name)))
	if !slices.Contains(Fields, f) {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return f, nil
}

// String returns the field name
func (f Field) String() string {
	return string(f)
}

// Criteria is the filter applied to the artifact list.
// Empty strings and an empty Tags slice mean "unconstrained".
type Criteria struct {
	Query   string   `json:"query"`
	Shape   string   `json:"shape"`
	Culture string   `json:"culture"`
	Tags    []string `json:"tags"`
}

// NewCriteria returns the default, unconstrained criteria
func NewCriteria() Criteria {
	return Criteria{Tags: []string{}}
}

// Normalize returns a copy of c whose Tags slice is never nil
func (c Criteria) Normalize() Criteria {
	out := c
	if c.Tags == nil {
		out.Tags = []string{}
	} else {
		out.Tags = slices.Clone(c.Tags)
	}
	return out
}

// Clone returns a deep copy of c
func (c Criteria) Clone() Criteria {
	return c.Normalize()
}

// IsZero reports whether no field constrains the result set
func (c Criteria) IsZero() bool {
	return c.Query == "" && c.Shape == "" && c.Culture == "" && len(c.Tags) == 0
}

// Equal reports whether c and other describe the same filter.
// Tag order is significant because it is displayed to the user.
func (c Criteria) Equal(other Criteria) bool {
	return c.Query == other.Query &&
		c.Shape == other.Shape &&
		c.Culture == other.Culture &&
		slices.Equal(c.Tags, other.Tags)
}

// Get returns the value held by a single field.
// Tags are returned as a copied []string, the rest as string.
func (c Criteria) Get(field Field) (any, error) {
	switch field {
	case FieldQuery:
		return c.Query, nil
	case FieldShape:
		return c.Shape, nil
	case FieldCulture:
		return c.Culture, nil
	case FieldTags:
		return slices.Clone(c.Tags), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
}

// WithString returns a copy of c with a string field replaced
func (c Criteria) WithString(field Field, value string) (Criteria, error) {
	out := c.Normalize()
	switch field {
	case FieldQuery:
		out.Query = value
	case FieldShape:
		out.Shape = value
	case FieldCulture:
		out.Culture = value
	case FieldTags:
		return c, fmt.Errorf("field %q takes a list of tags", field)
	default:
		return c, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return out, nil
}

// WithTags returns a copy of c with the whole tag sequence replaced
func (c Criteria) WithTags(tags []string) Criteria {
	out := c.Normalize()
	if tags == nil {
		out.Tags = []string{}
	} else {
		out.Tags = slices.Clone(tags)
	}
	return out
}
