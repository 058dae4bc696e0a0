package catalog

import "strings"

// Ref is an id/value pair as the catalog API serializes shapes, cultures and tags
type Ref struct {
	ID    int    `json:"id"`
	Value string `json:"value"`
}

// Attributes are the filterable properties of an artifact
type Attributes struct {
	Shape       Ref    `json:"shape"`
	Culture     Ref    `json:"culture"`
	Tags        []Ref  `json:"tags"`
	Description string `json:"description"`
}

// Artifact is one catalog record as returned by the artifact list endpoint
type Artifact struct {
	ID         int        `json:"id"`
	Attributes Attributes `json:"attributes"`
	Thumbnail  string     `json:"thumbnail,omitempty"`
}

// Model3D holds the files of an artifact's 3D model
type Model3D struct {
	Object   string `json:"object"`
	Material string `json:"material"`
	Texture  string `json:"texture"`
}

// ArtifactDetail is one artifact as returned by the artifact detail endpoint
type ArtifactDetail struct {
	Artifact
	Model  *Model3D `json:"model,omitempty"`
	Images []string `json:"images"`
}

// TagValues returns the tag names of the artifact in server order
func (a Artifact) TagValues() []string {
	values := make([]string, 0, len(a.Attributes.Tags))
	for _, t := range a.Attributes.Tags {
		values = append(values, t.Value)
	}
	return values
}

// Summary returns the first line of the description, shortened to max runes
func (a Artifact) Summary(maxRunes int) string {
	line, _, _ := strings.Cut(a.Attributes.Description, "\n")
	line = strings.TrimSpace(line)
	runes := []rune(line)
	if maxRunes > 0 && len(runes) > maxRunes {
		if maxRunes <= 1 {
			return string(runes[:maxRunes])
		}
		return string(runes[:maxRunes-1]) + "…"
	}
	return line
}

// Page is one page of results from a paginated catalog endpoint
type Page[T any] struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	TotalPages  int `json:"total_pages"`
	Total       int `json:"total"`
	Data        []T `json:"data"`
}

// Pagination returns the pagination metadata carried by the page
func (p Page[T]) Pagination() Pagination {
	return Pagination{
		CurrentPage: p.CurrentPage,
		PerPage:     p.PerPage,
		Total:       p.Total,
		TotalPages:  p.TotalPages,
	}
}

// Metadata lists the values the filter selectors can offer
type Metadata struct {
	Shapes   []Ref `json:"shapes"`
	Cultures []Ref `json:"cultures"`
	Tags     []Ref `json:"tags"`
}

// Values returns the display values of refs in order
func Values(refs []Ref) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.Value)
	}
	return out
}

// Normalize replaces nil lists with empty ones
func (m Metadata) Normalize() Metadata {
	if m.Shapes == nil {
		m.Shapes = []Ref{}
	}
	if m.Cultures == nil {
		m.Cultures = []Ref{}
	}
	if m.Tags == nil {
		m.Tags = []Ref{}
	}
	return m
}
