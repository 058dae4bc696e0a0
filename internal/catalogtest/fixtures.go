package catalogtest

import (
	"fmt"

	"github.com/stacklok/catalog-browser/internal/catalog"
)

// NewArtifact builds an artifact. Ref ids are derived from the values so
// equal values share an id, as they would in the real catalog.
func NewArtifact(id int, shape, culture, description string, tags ...string) catalog.Artifact {
	refs := make([]catalog.Ref, 0, len(tags))
	for _, t := range tags {
		refs = append(refs, ref(t))
	}
	return catalog.Artifact{
		ID: id,
		Attributes: catalog.Attributes{
			Shape:       ref(shape),
			Culture:     ref(culture),
			Tags:        refs,
			Description: description,
		},
		Thumbnail: fmt.Sprintf("/media/thumbnails/%d.png", id),
	}
}

func ref(value string) catalog.Ref {
	id := 0
	for _, r := range value {
		id = (id*31 + int(r)) % 10007
	}
	return catalog.Ref{ID: id, Value: value}
}

// SampleArtifacts returns a small catalog spanning several pages
func SampleArtifacts() []catalog.Artifact {
	return []catalog.Artifact{
		NewArtifact(1, "Vessel", "Inca", "Aribalo with geometric decoration", "Ceramic", "Ritual"),
		NewArtifact(2, "Vessel", "Diaguita", "Small jar with zoomorphic handles", "Ceramic"),
		NewArtifact(3, "Figurine", "Moche", "Anthropomorphic figurine", "Ceramic", "Funerary"),
		NewArtifact(4, "Mortar", "Atacameño", "Stone mortar with pestle", "Stone", "Domestic"),
		NewArtifact(5, "Vessel", "Inca", "Plate with bird motif", "Ceramic", "Domestic"),
		NewArtifact(6, "Axe", "Mapuche", "Polished stone axe", "Stone", "Tool"),
		NewArtifact(7, "Vessel", "Diaguita", "Duck-shaped jar", "Ceramic", "Ritual"),
		NewArtifact(8, "Figurine", "Inca", "Silver llama figurine", "Metal", "Ritual"),
		NewArtifact(9, "Mask", "Moche", "Copper funerary mask", "Metal", "Funerary"),
		NewArtifact(10, "Vessel", "Mapuche", "Metawe jug", "Ceramic", "Domestic"),
		NewArtifact(11, "Pipe", "Mapuche", "Ceremonial stone pipe", "Stone", "Ritual"),
		NewArtifact(12, "Vessel", "Inca", "Kero drinking cup", "Wood", "Ritual"),
		NewArtifact(13, "Mortar", "Diaguita", "Small stone mortar", "Stone", "Domestic"),
		NewArtifact(14, "Figurine", "Diaguita", "Stone figurine with headdress", "Stone", "Ritual"),
		NewArtifact(15, "Vessel", "Moche", "Stirrup spout bottle", "Ceramic", "Funerary"),
		NewArtifact(16, "Axe", "Inca", "Bronze star-headed mace", "Metal", "Tool"),
		NewArtifact(17, "Vessel", "Atacameño", "Black polished bowl", "Ceramic"),
		NewArtifact(18, "Mask", "Inca", "Gold sheet mask", "Metal", "Funerary", "Ritual"),
		NewArtifact(19, "Vessel", "Diaguita", "Jar with cat face", "Ceramic", "Ritual"),
		NewArtifact(20, "Pipe", "Atacameño", "Snuff tablet", "Wood", "Ritual"),
	}
}

// Detail expands a into the shape of the artifact detail endpoint, with
// media paths derived from the id
func Detail(a catalog.Artifact) catalog.ArtifactDetail {
	return catalog.ArtifactDetail{
		Artifact: a,
		Model: &catalog.Model3D{
			Object:   fmt.Sprintf("/media/objects/%d.obj", a.ID),
			Material: fmt.Sprintf("/media/materials/%d.mtl", a.ID),
			Texture:  fmt.Sprintf("/media/materials/%d.jpg", a.ID),
		},
		Images: []string{
			fmt.Sprintf("/media/images/%d-front.jpg", a.ID),
			fmt.Sprintf("/media/images/%d-back.jpg", a.ID),
		},
	}
}
