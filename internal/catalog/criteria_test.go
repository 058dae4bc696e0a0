package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Field
		wantErr bool
	}{
		{name: "query", input: "query", want: FieldQuery},
		{name: "shape with spaces and case", input: "  Shape ", want: FieldShape},
		{name: "culture", input: "culture", want: FieldCulture},
		{name: "tags", input: "TAGS", want: FieldTags},
		{name: "page is not a filter field", input: "page", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseField(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownField)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewCriteria(t *testing.T) {
	t.Parallel()

	c := NewCriteria()
	assert.True(t, c.IsZero())
	assert.NotNil(t, c.Tags, "tags must never be nil")
	assert.Empty(t, c.Tags)
}

func TestCriteria_Normalize(t *testing.T) {
	t.Parallel()

	c := Criteria{Query: "jar"}
	n := c.Normalize()
	assert.NotNil(t, n.Tags)

	original := Criteria{Tags: []string{"Stone"}}
	copied := original.Normalize()
	copied.Tags[0] = "Clay"
	assert.Equal(t, "Stone", original.Tags[0], "normalize must not alias the tag slice")
}

func TestCriteria_Equal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    Criteria
		b    Criteria
		want bool
	}{
		{name: "both empty", a: NewCriteria(), b: Criteria{}, want: true},
		{name: "same fields", a: Criteria{Shape: "Vessel", Tags: []string{"a"}}, b: Criteria{Shape: "Vessel", Tags: []string{"a"}}, want: true},
		{name: "different query", a: Criteria{Query: "a"}, b: Criteria{Query: "b"}, want: false},
		{name: "tag order matters", a: Criteria{Tags: []string{"a", "b"}}, b: Criteria{Tags: []string{"b", "a"}}, want: false},
		{name: "different culture", a: Criteria{Culture: "Inca"}, b: Criteria{}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
		})
	}
}

func TestCriteria_WithString(t *testing.T) {
	t.Parallel()

	base := NewCriteria()

	c, err := base.WithString(FieldShape, "Vessel")
	require.NoError(t, err)
	assert.Equal(t, "Vessel", c.Shape)
	assert.Empty(t, base.Shape, "original must be untouched")

	c, err = c.WithString(FieldQuery, "jar")
	require.NoError(t, err)
	assert.Equal(t, Criteria{Query: "jar", Shape: "Vessel", Tags: []string{}}, c)

	_, err = c.WithString(FieldTags, "a")
	require.Error(t, err)

	_, err = c.WithString(Field("page"), "2")
	require.ErrorIs(t, err, ErrUnknownField)
}

func TestCriteria_WithTags(t *testing.T) {
	t.Parallel()

	tags := []string{"Vessel", "Stone"}
	c := NewCriteria().WithTags(tags)
	tags[0] = "changed"
	assert.Equal(t, []string{"Vessel", "Stone"}, c.Tags)

	cleared := c.WithTags(nil)
	assert.NotNil(t, cleared.Tags)
	assert.Empty(t, cleared.Tags)
}

func TestCriteria_Get(t *testing.T) {
	t.Parallel()

	c := Criteria{Query: "q", Shape: "s", Culture: "c", Tags: []string{"t"}}
	for _, f := range Fields {
		_, err := c.Get(f)
		require.NoError(t, err)
	}
	v, err := c.Get(FieldTags)
	require.NoError(t, err)
	assert.Equal(t, []string{"t"}, v)

	_, err = c.Get(Field("bogus"))
	assert.ErrorIs(t, err, ErrUnknownField)
}
